package api

import (
	"context"  // Context errors
	"errors"   // Error inspection
	"net/http" // HTTP status codes

	"wallet_ledger/internal/domain" // Error taxonomy

	"github.com/gin-gonic/gin" // Gin web framework
)

// statusFor maps the ledger error taxonomy onto HTTP statuses
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest // Bad input
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound // Unknown account or wallet
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusBadRequest // Surfaced verbatim to the caller
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict // Retry with the same idempotency key
	case errors.Is(err, domain.ErrDuplicate):
		return http.StatusConflict // Idempotency key reused
	case errors.Is(err, domain.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable // Safe to retry wholesale
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err with its mapped status. Infrastructure details are
// replaced by fallback so storage errors never reach the client.
func respondError(c *gin.Context, err error, fallback string) {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		msg = fallback
	}
	c.JSON(status, gin.H{"error": msg})
}
