package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/josh-kwaku/card-service/internal/domain"
)

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data"`
	Error   *APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func RespondSuccess(w http.ResponseWriter, status int, data any) {
	RespondJSON(w, status, APIResponse{
		Success: true,
		Data:    data,
		Error:   nil,
	})
}

func RespondAppError(w http.ResponseWriter, appErr *AppError, details any) {
	RespondJSON(w, appErr.Status, APIResponse{
		Success: false,
		Data:    nil,
		Error: &APIError{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: details,
		},
	})
}

func RespondValidationError(w http.ResponseWriter, fields []FieldError) {
	RespondAppError(w, ErrValidationFailed, fields)
}

func RespondDomainError(w http.ResponseWriter, err error) {
	RespondAppError(w, appErrorFor(err), nil)
}

// appErrorFor maps service errors onto the API catalogue. Order matters: a
// reverted purchase also wraps the outage that caused it, and the specific
// not-found errors are checked before the generic one.
func appErrorFor(err error) *AppError {
	switch {
	case errors.Is(err, domain.ErrPurchaseReverted):
		return ErrPurchaseReverted
	case errors.Is(err, domain.ErrAccountServiceUnavailable):
		return ErrAccountServiceUnavailable
	case errors.Is(err, domain.ErrCustomerServiceUnavailable):
		return ErrCustomerServiceUnavailable
	case errors.Is(err, domain.ErrTransactionServiceUnavailable):
		return ErrTransactionServiceUnavailable
	case errors.Is(err, domain.ErrServiceUnavailable):
		return ErrServiceUnavailable
	case errors.Is(err, domain.ErrCardNotFound):
		return ErrCardNotFound
	case errors.Is(err, domain.ErrAccountNotFound):
		return ErrAccountNotFound
	case errors.Is(err, domain.ErrCustomerNotFound):
		return ErrCustomerNotFound
	case errors.Is(err, domain.ErrNotFound):
		return ErrResourceNotFound
	case errors.Is(err, domain.ErrCardInactive):
		return ErrCardInactive
	case errors.Is(err, domain.ErrCardTypeMismatch):
		return ErrCardTypeMismatch
	case errors.Is(err, domain.ErrPersonalCardLimit):
		return ErrPersonalCardLimit
	case errors.Is(err, domain.ErrAccountAlreadyAssociated):
		return ErrAccountAlreadyAssociated
	case errors.Is(err, domain.ErrChargeInProgress):
		return ErrChargeInProgress
	case errors.Is(err, domain.ErrVersionConflict):
		return ErrVersionConflict
	case errors.Is(err, domain.ErrInvalidAmount):
		return ErrInvalidAmount
	case errors.Is(err, domain.ErrInvalidRequest):
		return ErrInvalidRequest
	default:
		slog.Error("unhandled domain error", "error", err)
		return ErrInternalError
	}
}
