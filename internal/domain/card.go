package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CardType string

const (
	CardTypeCredit CardType = "CREDIT"
	CardTypeDebit  CardType = "DEBIT"
)

func (t CardType) IsValid() bool {
	return t == CardTypeCredit || t == CardTypeDebit
}

type CardStatus string

const (
	CardStatusActive        CardStatus = "ACTIVE"
	CardStatusInactive      CardStatus = "INACTIVE"
	CardStatusChargePending CardStatus = "CHARGE_PENDING"
	CardStatusBlocked       CardStatus = "BLOCKED"
	CardStatusExpired       CardStatus = "EXPIRED"
)

type CustomerType string

const (
	CustomerTypePersonal   CustomerType = "PERSONAL"
	CustomerTypeEnterprise CustomerType = "ENTERPRISE"
)

func (c CustomerType) IsValid() bool {
	return c == CustomerTypePersonal || c == CustomerTypeEnterprise
}

// Card is the stored aggregate for both card variants. Exactly one of Credit
// or Debit is set, matching Type.
type Card struct {
	ID         uuid.UUID
	CardNumber string
	CustomerID string
	Type       CardType
	IsActive   bool
	Status     CardStatus
	Version    int64
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Credit *CreditDetails
	Debit  *DebitDetails

	// Pending describes the charge in flight while Status is CHARGE_PENDING.
	Pending *PendingCharge
}

// PendingCharge is written together with the CHARGE_PENDING status so a card
// left pending by a crash or a failed write can be settled later.
type PendingCharge struct {
	AuthorizationCode string
	Amount            decimal.Decimal
	Since             time.Time
}

// PendingExpired reports whether the card has been pending for longer than
// ttl. Cards without pending details never expire.
func (c *Card) PendingExpired(now time.Time, ttl time.Duration) bool {
	if c.Status != CardStatusChargePending || c.Pending == nil {
		return false
	}
	return now.Sub(c.Pending.Since) >= ttl
}

// ApplyCharge books amount against the credit line and returns the card to
// ACTIVE. The payment due date is set on the first charge of a cycle.
func (c *Card) ApplyCharge(amount decimal.Decimal, now time.Time) {
	cr := c.Credit
	cr.AvailableCredit = cr.AvailableCredit.Sub(amount)
	cr.CurrentBalance = cr.CurrentBalance.Add(amount)
	cr.MinimumPayment = MinimumPaymentFor(cr.CurrentBalance)
	if cr.PaymentDueDate == nil {
		due := now.AddDate(0, 1, 0)
		cr.PaymentDueDate = &due
	}
	c.Status = CardStatusActive
	c.Pending = nil
}

type CreditDetails struct {
	CreditCardType  CustomerType
	CreditLimit     decimal.Decimal
	AvailableCredit decimal.Decimal
	CurrentBalance  decimal.Decimal
	PaymentDueDate  *time.Time
	MinimumPayment  decimal.Decimal
	IsOverdue       bool
	OverdueDays     int
}

type DebitDetails struct {
	PrimaryAccountID     string
	AssociatedAccountIDs []string
}

// CanTransact reports whether the card is active and neither blocked nor
// expired. A pending charge does not make the card unusable.
func (c *Card) CanTransact() bool {
	return c.IsActive && (c.Status == CardStatusActive || c.Status == CardStatusChargePending)
}

func (c *Card) IsCredit() bool { return c.Type == CardTypeCredit && c.Credit != nil }

func (c *Card) IsDebit() bool { return c.Type == CardTypeDebit && c.Debit != nil }

// HasAccount reports whether accountID is already linked to the debit card,
// either as primary or associated.
func (d *DebitDetails) HasAccount(accountID string) bool {
	if d.PrimaryAccountID == accountID {
		return true
	}
	for _, id := range d.AssociatedAccountIDs {
		if id == accountID {
			return true
		}
	}
	return false
}

// SettlementOrder returns the primary account followed by the associated
// accounts in stored order, skipping blanks and repeats.
func (d *DebitDetails) SettlementOrder() []string {
	seen := make(map[string]struct{}, len(d.AssociatedAccountIDs)+1)
	order := make([]string, 0, len(d.AssociatedAccountIDs)+1)

	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		order = append(order, id)
	}

	add(d.PrimaryAccountID)
	for _, id := range d.AssociatedAccountIDs {
		add(id)
	}
	return order
}

var (
	minimumPaymentFloor = decimal.NewFromInt(25)
	minimumPaymentRate  = decimal.NewFromFloat(0.05)
)

// MinimumPaymentFor is 5% of the balance with a floor of 25. Balances under
// the floor are due in full.
func MinimumPaymentFor(balance decimal.Decimal) decimal.Decimal {
	if !balance.IsPositive() {
		return decimal.Zero
	}
	if balance.LessThan(minimumPaymentFloor) {
		return balance
	}
	pct := balance.Mul(minimumPaymentRate).Round(2)
	return decimal.Max(pct, minimumPaymentFloor)
}
