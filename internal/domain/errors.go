package domain

import "errors"

var (
	ErrNotFound                 = errors.New("not found")
	ErrCardNotFound             = errors.New("card not found")
	ErrAccountNotFound          = errors.New("account not found")
	ErrCustomerNotFound         = errors.New("customer not found")
	ErrCardInactive             = errors.New("card is not active")
	ErrCardTypeMismatch         = errors.New("operation not supported for this card type")
	ErrInvalidAmount            = errors.New("amount must be greater than zero")
	ErrInvalidRequest           = errors.New("invalid request")
	ErrVersionConflict          = errors.New("optimistic lock conflict")
	ErrChargeInProgress         = errors.New("another charge is in progress for this card")
	ErrPersonalCardLimit        = errors.New("personal customers can only have one active credit card")
	ErrAccountAlreadyAssociated = errors.New("account already associated with this card")
	ErrCardNumberExhausted      = errors.New("could not allocate a unique card number")
	ErrDuplicateCardNumber      = errors.New("card number already in use")
	ErrDuplicateIdempotencyKey  = errors.New("duplicate idempotency key")

	ErrServiceUnavailable = errors.New("service unavailable")

	ErrAccountServiceUnavailable     = &unavailableError{msg: "account service unavailable"}
	ErrCustomerServiceUnavailable    = &unavailableError{msg: "customer service unavailable"}
	ErrTransactionServiceUnavailable = &unavailableError{msg: "transaction service unavailable"}

	ErrPurchaseReverted = errors.New("purchase reverted")

	// ErrOutcomeUnknown marks a downstream write that may or may not have
	// been applied: the request left but no answer came back.
	ErrOutcomeUnknown = errors.New("downstream outcome unknown")
)

// unavailableError lets each downstream outage be matched on its own and as
// ErrServiceUnavailable.
type unavailableError struct {
	msg string
}

func (e *unavailableError) Error() string { return e.msg }

func (e *unavailableError) Is(target error) bool { return target == ErrServiceUnavailable }
