package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken     = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken     = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrInvalidRequest   = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError    = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrCardNotFound     = &AppError{http.StatusNotFound, "CARD_NOT_FOUND", "Card not found"}
	ErrAccountNotFound  = &AppError{http.StatusNotFound, "ACCOUNT_NOT_FOUND", "Account not found"}
	ErrCustomerNotFound = &AppError{http.StatusNotFound, "CUSTOMER_NOT_FOUND", "Customer not found"}

	ErrCardInactive             = &AppError{http.StatusUnprocessableEntity, "CARD_INACTIVE", "Card is not active"}
	ErrCardTypeMismatch         = &AppError{http.StatusUnprocessableEntity, "CARD_TYPE_MISMATCH", "Operation not supported for this card type"}
	ErrPersonalCardLimit        = &AppError{http.StatusUnprocessableEntity, "PERSONAL_CARD_LIMIT", "Personal customers can only have one active credit card"}
	ErrAccountAlreadyAssociated = &AppError{http.StatusConflict, "ACCOUNT_ALREADY_ASSOCIATED", "Account is already linked to this card"}
	ErrChargeInProgress         = &AppError{http.StatusConflict, "CHARGE_IN_PROGRESS", "Another charge is in progress for this card, please retry"}
	ErrVersionConflict          = &AppError{http.StatusConflict, "VERSION_CONFLICT", "Resource was modified concurrently, please retry"}
	ErrInvalidAmount            = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be greater than zero"}

	ErrMissingIdempotencyKey = &AppError{http.StatusBadRequest, "MISSING_IDEMPOTENCY_KEY", "Idempotency-Key header is required"}
	ErrIdempotencyConflict   = &AppError{http.StatusConflict, "IDEMPOTENCY_CONFLICT", "Idempotency key already used with a different request"}
	ErrIdempotencyInProgress = &AppError{http.StatusConflict, "IDEMPOTENCY_KEY_IN_USE", "A request with this idempotency key is still being processed, please retry"}

	ErrPurchaseReverted              = &AppError{http.StatusServiceUnavailable, "PURCHASE_REVERTED", "Purchase could not be recorded and was reverted"}
	ErrAccountServiceUnavailable     = &AppError{http.StatusServiceUnavailable, "ACCOUNT_SERVICE_UNAVAILABLE", "Account service is unavailable"}
	ErrCustomerServiceUnavailable    = &AppError{http.StatusServiceUnavailable, "CUSTOMER_SERVICE_UNAVAILABLE", "Customer service is unavailable"}
	ErrTransactionServiceUnavailable = &AppError{http.StatusServiceUnavailable, "TRANSACTION_SERVICE_UNAVAILABLE", "Transaction service is unavailable"}
	ErrServiceUnavailable            = &AppError{http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "A downstream service is unavailable"}
)
