package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/josh-kwaku/card-service/internal/domain"
	"github.com/josh-kwaku/card-service/internal/logging"
	"github.com/josh-kwaku/card-service/internal/metrics"
)

type httpError struct {
	Status int
	Body   string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Status, e.Body)
}

func (e *httpError) clientSide() bool {
	return e.Status >= 400 && e.Status < 500
}

func isNotFound(err error) bool {
	var he *httpError
	return errors.As(err, &he) && he.Status == http.StatusNotFound
}

// client is the transport shared by the per-service clients: one base URL,
// one per-call timeout and one breaker.
type client struct {
	service    string
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	metrics    *metrics.Metrics
}

func newClient(service, baseURL string, timeout time.Duration, breaker *gobreaker.CircuitBreaker, m *metrics.Metrics) client {
	return client{
		service: service,
		baseURL: baseURL,
		timeout: timeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		breaker: breaker,
		metrics: m,
	}
}

// do sends one JSON request through the breaker. in and out may be nil.
func (c *client) do(ctx context.Context, operation, method, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.send(ctx, operation, method, path, in, out)
	})

	result := "ok"
	switch {
	case err == nil:
	case isBreakerRejection(err):
		result = "rejected"
	case errors.Is(err, context.Canceled):
		result = "cancelled"
	default:
		result = "error"
	}
	c.metrics.ObserveDownstream(c.service, operation, result, time.Since(start))

	if err != nil {
		return fmt.Errorf("%s %s: %w", c.service, operation, err)
	}
	return nil
}

func (c *client) send(ctx context.Context, operation, method, path string, in, out any) error {
	log := logging.FromContext(ctx)

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	log.Debug("downstream request sent", "service", c.service, "operation", operation)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if neverSent(err) {
			return fmt.Errorf("send: %w", err)
		}
		return fmt.Errorf("send: %w: %w", domain.ErrOutcomeUnknown, err)
	}
	defer resp.Body.Close()

	log.Info("downstream response received",
		"service", c.service,
		"operation", operation,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &httpError{Status: resp.StatusCode, Body: string(respBody)}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode response: %w: %w", domain.ErrOutcomeUnknown, err)
	}
	return nil
}

// neverSent reports whether the request failed before reaching the
// service, so the call had no effect there.
func neverSent(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}
