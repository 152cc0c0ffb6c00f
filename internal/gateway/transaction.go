package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"

	"github.com/josh-kwaku/card-service/internal/domain"
	"github.com/josh-kwaku/card-service/internal/logging"
	"github.com/josh-kwaku/card-service/internal/metrics"
)

const summaryDateLayout = "2006-01-02"

// TransactionClient talks to the Transaction service. Recording a
// transaction is fail-closed; summaries and movement history fail open to
// empty results.
type TransactionClient struct {
	client
}

func NewTransactionClient(baseURL string, timeout time.Duration, breaker *gobreaker.CircuitBreaker, m *metrics.Metrics) *TransactionClient {
	return &TransactionClient{client: newClient(ServiceTransaction, baseURL, timeout, breaker, m)}
}

type affectedAccountPayload struct {
	AccountID      string          `json:"accountId"`
	AmountDeducted decimal.Decimal `json:"amountDeducted"`
}

type transactionPayload struct {
	TransactionID     string                   `json:"transactionId,omitempty"`
	CardID            string                   `json:"cardId"`
	Amount            decimal.Decimal          `json:"amount"`
	TransactionType   string                   `json:"transactionType"`
	AuthorizationCode string                   `json:"authorizationCode,omitempty"`
	Status            string                   `json:"status"`
	Timestamp         time.Time                `json:"timestamp"`
	AccountsAffected  []affectedAccountPayload `json:"accountsAffected,omitempty"`
}

type summaryPayload struct {
	TotalTransactions int64           `json:"totalTransactions"`
	TotalAmount       decimal.Decimal `json:"totalAmount"`
}

type movementEntryPayload struct {
	TransactionID   string          `json:"transactionId"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionType string          `json:"transactionType"`
	Status          string          `json:"status"`
	Timestamp       time.Time       `json:"timestamp"`
}

func (c *TransactionClient) CreateTransaction(ctx context.Context, rec domain.TransactionRecord) error {
	payload := transactionPayload{
		TransactionID:     rec.TransactionID,
		CardID:            rec.CardID.String(),
		Amount:            rec.Amount,
		TransactionType:   rec.TransactionType,
		AuthorizationCode: rec.AuthorizationCode,
		Status:            rec.Status,
		Timestamp:         rec.Timestamp,
	}
	for _, a := range rec.AccountsAffected {
		payload.AccountsAffected = append(payload.AccountsAffected, affectedAccountPayload{
			AccountID:      a.AccountID,
			AmountDeducted: a.AmountDeducted,
		})
	}

	if err := c.do(ctx, "create", http.MethodPost, "", payload, nil); err != nil {
		return fmt.Errorf("CreateTransaction: %w: %w", domain.ErrTransactionServiceUnavailable, err)
	}
	return nil
}

// TransactionExists reports whether the Transaction service holds a record
// with the given id. It fails closed: an unreachable service is an error,
// never a "no".
func (c *TransactionClient) TransactionExists(ctx context.Context, transactionID string) (bool, error) {
	err := c.do(ctx, "get", http.MethodGet, "/"+url.PathEscape(transactionID), nil, nil)
	switch {
	case err == nil:
		return true, nil
	case isNotFound(err):
		return false, nil
	default:
		return false, fmt.Errorf("TransactionExists: %w: %w", domain.ErrTransactionServiceUnavailable, err)
	}
}

// GetTransactionSummary returns a zero summary when the service cannot
// answer.
func (c *TransactionClient) GetTransactionSummary(ctx context.Context, start, end time.Time) domain.TransactionSummary {
	q := url.Values{}
	q.Set("startDate", start.Format(summaryDateLayout))
	q.Set("endDate", end.Format(summaryDateLayout))

	var resp summaryPayload
	if err := c.do(ctx, "summary", http.MethodGet, "/summary?"+q.Encode(), nil, &resp); err != nil {
		logging.FromContext(ctx).Warn("transaction summary unavailable, returning empty summary", "error", err)
		return domain.TransactionSummary{TotalAmount: decimal.Zero}
	}

	return domain.TransactionSummary{
		TotalTransactions: resp.TotalTransactions,
		TotalAmount:       resp.TotalAmount,
	}
}

// GetLastMovements returns an empty list when the service cannot answer.
func (c *TransactionClient) GetLastMovements(ctx context.Context, cardID uuid.UUID, limit int) []domain.Movement {
	path := "/cards/" + url.PathEscape(cardID.String()) + "/movements?limit=" + strconv.Itoa(limit)

	var resp []movementEntryPayload
	if err := c.do(ctx, "movements", http.MethodGet, path, nil, &resp); err != nil {
		logging.FromContext(ctx).Warn("card movements unavailable, returning empty list",
			"card_id", cardID,
			"error", err,
		)
		return []domain.Movement{}
	}

	movements := make([]domain.Movement, 0, len(resp))
	for _, m := range resp {
		movements = append(movements, domain.Movement{
			TransactionID:   m.TransactionID,
			Amount:          m.Amount,
			TransactionType: m.TransactionType,
			Status:          m.Status,
			Timestamp:       m.Timestamp,
		})
	}
	return movements
}
