package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/josh-kwaku/card-service/internal/domain"
	"github.com/josh-kwaku/card-service/internal/metrics"
)

// CustomerClient talks to the Customer service. Lookups gate card creation,
// so they are fail-closed.
type CustomerClient struct {
	client
}

func NewCustomerClient(baseURL string, timeout time.Duration, breaker *gobreaker.CircuitBreaker, m *metrics.Metrics) *CustomerClient {
	return &CustomerClient{client: newClient(ServiceCustomer, baseURL, timeout, breaker, m)}
}

type customerPayload struct {
	ID             string `json:"id"`
	CustomerType   string `json:"customerType"`
	FullName       string `json:"fullName"`
	DocumentType   string `json:"documentType"`
	DocumentNumber string `json:"documentNumber"`
}

type customerTypePayload struct {
	CustomerType string `json:"customerType"`
}

func (c *CustomerClient) GetCustomerType(ctx context.Context, customerID string) (domain.CustomerType, error) {
	var resp customerTypePayload
	err := c.do(ctx, "get_type", http.MethodGet, "/"+url.PathEscape(customerID)+"/type", nil, &resp)
	if err != nil {
		return "", fmt.Errorf("GetCustomerType: %w", c.failClosed(err))
	}

	ct := domain.CustomerType(resp.CustomerType)
	if !ct.IsValid() {
		return "", fmt.Errorf("GetCustomerType: unknown customer type %q: %w", resp.CustomerType, domain.ErrCustomerServiceUnavailable)
	}
	return ct, nil
}

func (c *CustomerClient) GetCustomer(ctx context.Context, customerID string) (*domain.Customer, error) {
	var resp customerPayload
	err := c.do(ctx, "get_customer", http.MethodGet, "/"+url.PathEscape(customerID), nil, &resp)
	if err != nil {
		return nil, fmt.Errorf("GetCustomer: %w", c.failClosed(err))
	}

	return &domain.Customer{
		ID:           resp.ID,
		Type:         domain.CustomerType(resp.CustomerType),
		FullName:     resp.FullName,
		DocumentType: resp.DocumentType,
		Document:     resp.DocumentNumber,
	}, nil
}

func (c *CustomerClient) failClosed(err error) error {
	if isNotFound(err) {
		return fmt.Errorf("%w: %w", domain.ErrCustomerNotFound, err)
	}
	return fmt.Errorf("%w: %w", domain.ErrCustomerServiceUnavailable, err)
}
