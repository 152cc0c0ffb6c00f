package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"

	"github.com/josh-kwaku/card-service/internal/domain"
	"github.com/josh-kwaku/card-service/internal/metrics"
)

// AccountClient talks to the Account service. Every operation is
// fail-closed: an outage surfaces as domain.ErrAccountServiceUnavailable.
type AccountClient struct {
	client
}

func NewAccountClient(baseURL string, timeout time.Duration, breaker *gobreaker.CircuitBreaker, m *metrics.Metrics) *AccountClient {
	return &AccountClient{client: newClient(ServiceAccount, baseURL, timeout, breaker, m)}
}

type accountBalancePayload struct {
	AccountID        string          `json:"accountId"`
	AvailableBalance decimal.Decimal `json:"availableBalance"`
	CurrentBalance   decimal.Decimal `json:"currentBalance"`
	Currency         string          `json:"currency"`
}

type accountDetailsPayload struct {
	AccountID        string     `json:"accountId"`
	AccountNumber    string     `json:"accountNumber"`
	AccountType      string     `json:"accountType"`
	Currency         string     `json:"currency"`
	LastMovementDate *time.Time `json:"lastMovementDate,omitempty"`
}

type movementPayload struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Reference   string          `json:"reference,omitempty"`
}

type movementResultPayload struct {
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
}

func (c *AccountClient) GetAccountBalance(ctx context.Context, accountID string) (*domain.AccountBalance, error) {
	var resp accountBalancePayload
	err := c.do(ctx, "get_balance", http.MethodGet, "/"+url.PathEscape(accountID)+"/balance", nil, &resp)
	if err != nil {
		return nil, fmt.Errorf("GetAccountBalance: %w", c.failClosed(err))
	}

	return &domain.AccountBalance{
		AccountID:        accountID,
		AvailableBalance: resp.AvailableBalance,
		CurrentBalance:   resp.CurrentBalance,
		Currency:         resp.Currency,
	}, nil
}

func (c *AccountClient) GetAccountDetails(ctx context.Context, accountID string) (*domain.AccountDetails, error) {
	var resp accountDetailsPayload
	err := c.do(ctx, "get_details", http.MethodGet, "/"+url.PathEscape(accountID), nil, &resp)
	if err != nil {
		return nil, fmt.Errorf("GetAccountDetails: %w", c.failClosed(err))
	}

	return &domain.AccountDetails{
		AccountID:        accountID,
		AccountNumber:    resp.AccountNumber,
		AccountType:      resp.AccountType,
		Currency:         resp.Currency,
		LastMovementDate: resp.LastMovementDate,
	}, nil
}

func (c *AccountClient) DebitAccount(ctx context.Context, accountID string, mv domain.AccountMovement) (*domain.AccountMovementResult, error) {
	res, err := c.move(ctx, "debit", accountID, mv)
	if err != nil {
		return nil, fmt.Errorf("DebitAccount: %w", err)
	}
	return res, nil
}

func (c *AccountClient) CreditAccount(ctx context.Context, accountID string, mv domain.AccountMovement) (*domain.AccountMovementResult, error) {
	res, err := c.move(ctx, "credit", accountID, mv)
	if err != nil {
		return nil, fmt.Errorf("CreditAccount: %w", err)
	}
	return res, nil
}

func (c *AccountClient) move(ctx context.Context, direction, accountID string, mv domain.AccountMovement) (*domain.AccountMovementResult, error) {
	payload := movementPayload{
		Amount:      mv.Amount,
		Description: mv.Description,
		Reference:   mv.Reference,
	}

	var resp movementResultPayload
	err := c.do(ctx, direction, http.MethodPost, "/"+url.PathEscape(accountID)+"/"+direction, payload, &resp)
	if err != nil {
		return nil, c.failClosed(err)
	}
	return &domain.AccountMovementResult{TransactionID: resp.TransactionID, Status: resp.Status}, nil
}

func (c *AccountClient) failClosed(err error) error {
	if isNotFound(err) {
		return fmt.Errorf("%w: %w", domain.ErrAccountNotFound, err)
	}
	return fmt.Errorf("%w: %w", domain.ErrAccountServiceUnavailable, err)
}
