package domain

import (
	"errors"       // Sentinel errors
	"fmt"          // Error formatting
	"unicode/utf8" // Character counting
)

// Error categories. Callers classify failures with errors.Is against these.
var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrConflict          = errors.New("concurrent modification")
	ErrDuplicate         = errors.New("duplicate")
	ErrUnavailable       = errors.New("storage unavailable")
)

// Validation errors
var (
	ErrInvalidAmount       = fmt.Errorf("%w: amount must be positive", ErrValidation)
	ErrSameAccountTransfer = fmt.Errorf("%w: cannot transfer to same account", ErrValidation)
	ErrInvalidTransaction  = fmt.Errorf("%w: malformed transaction", ErrValidation)
	ErrInvalidAccount      = fmt.Errorf("%w: account id is required", ErrValidation)
	ErrAmountTooLarge      = fmt.Errorf("%w: amount exceeds the ledger limit", ErrValidation)
	ErrBalanceLimit        = fmt.Errorf("%w: balance would exceed the ledger limit", ErrValidation)
	ErrFieldTooLong        = fmt.Errorf("%w: field too long", ErrValidation)
)

// Lookup errors
var (
	ErrWalletNotFound = fmt.Errorf("wallet %w", ErrNotFound)
	ErrUserNotFound   = fmt.Errorf("user %w", ErrNotFound)
)

// Concurrency and idempotency errors
var (
	ErrVersionMismatch      = fmt.Errorf("%w: wallet version mismatch", ErrConflict)
	ErrOperationInProgress  = fmt.Errorf("%w: operation with this idempotency key is in progress", ErrConflict)
	ErrIdempotencyKeyReused = fmt.Errorf("%w: idempotency key reused for a different operation", ErrDuplicate)
)

// Unavailable wraps an infrastructure failure so callers can retry it wholesale
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

// IsTerminal reports whether err is a rejection that must not be retried automatically
func IsTerminal(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrDuplicate)
}

// CheckLength rejects values longer than the varchar column storing them
func CheckLength(field, value string, limit int) error {
	if utf8.RuneCountInString(value) > limit {
		return fmt.Errorf("%w: %s exceeds %d characters", ErrFieldTooLong, field, limit)
	}
	return nil
}
