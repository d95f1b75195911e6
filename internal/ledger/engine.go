// Package ledger is the only writer of wallet balances and transactions.
//
// Every mutating operation runs as one atomic unit of the injected
// domain.Store: wallet adjustments, the transaction row and, for keyed
// requests, the idempotency record commit together or not at all. Version
// conflicts re-run the whole unit a bounded number of times.
package ledger

import (
	"context"       // Request scoped cancellation
	"encoding/json" // Recorded result payloads
	"errors"        // Error inspection
	"fmt"           // Error formatting
	"math/rand"  // Retry jitter
	"time"          // Retry backoff

	"wallet_ledger/internal/domain"      // Domain models and ports
	"wallet_ledger/internal/idempotency" // Idempotency guard

	"github.com/shopspring/decimal" // Exact decimal amounts
	"github.com/sirupsen/logrus"    // Logging library
)

// Engine defaults
const (
	DefaultMaxRetries   = 3                     // Attempts per conflicting unit
	DefaultRetryBackoff = 10 * time.Millisecond // Base delay between attempts
	MoneyScale          = 4                     // Decimal places kept by the wallet and transaction columns
)

// Engine orchestrates deposits, withdrawals and transfers
type Engine struct {
	store      domain.Store       // Persistence backend
	guard      *idempotency.Guard // Serializes requests sharing a key
	maxRetries int                // Attempts per conflicting unit
	backoff    time.Duration      // Base retry delay
	log        logrus.FieldLogger // Outcome logger
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the logger used for operation outcomes
func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Engine) { e.log = log }
}

// WithMaxRetries bounds the attempts of a conflicting unit
func WithMaxRetries(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxRetries = n
		}
	}
}

// WithRetryBackoff sets the base delay between conflicting attempts
func WithRetryBackoff(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.backoff = d
		}
	}
}

// NewEngine builds an engine over store. A nil guard keeps idempotency leases in process.
func NewEngine(store domain.Store, guard *idempotency.Guard, opts ...Option) *Engine {
	if store == nil {
		panic("store is required")
	}
	e := &Engine{
		store:      store,                   // Persistence backend
		guard:      guard,                   // Optional shared guard
		maxRetries: DefaultMaxRetries,       // Retry bound
		backoff:    DefaultRetryBackoff,     // Retry delay
		log:        logrus.StandardLogger(), // Global logger until overridden
	}
	for _, opt := range opts {
		opt(e) // Apply options
	}
	// Fall back to in-process leases
	if e.guard == nil {
		e.guard = idempotency.NewGuard(idempotency.NewMemoryLeases(), idempotency.DefaultLease, idempotency.DefaultWait, e.log)
	}
	return e
}

// atomic runs fn as one unit, re-running it on version conflicts
func (e *Engine) atomic(ctx context.Context, op string, fn func(u domain.Unit) error) error {
	var err error
	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		err = e.store.Atomic(ctx, fn) // Run the whole unit
		// Only version conflicts are retried
		if err == nil || !errors.Is(err, domain.ErrConflict) {
			return err
		}
		if attempt == e.maxRetries {
			break // Out of attempts
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr // Caller gave up
		}
		e.log.WithFields(logrus.Fields{
			"operation": op,      // Operation name
			"attempt":   attempt, // Failed attempt number
		}).Debug("Ledger unit conflicted, retrying")
		// Linear backoff with jitter so colliding units spread out
		delay := e.backoff*time.Duration(attempt) + time.Duration(rand.Int63n(int64(e.backoff)))
		select {
		case <-ctx.Done():
			return ctx.Err() // Cancelled while waiting
		case <-time.After(delay): // Try again
		}
	}
	return fmt.Errorf("%s gave up after %d attempts: %w", op, e.maxRetries, err)
}

// keyedOp identifies an operation for the idempotency guard
type keyedOp struct {
	name        string // Operation name
	caller      uint   // Account issuing the request
	key         string // Client retry key, empty when not keyed
	fingerprint string // Digest of the request parameters
}

// execute runs body exactly once per idempotency key. body returns the result
// and the transaction it appended; both are recorded in the same unit.
func execute[R any](ctx context.Context, e *Engine, op keyedOp, body func(u domain.Unit) (*R, *domain.Transaction, error)) (*R, bool, error) {
	var result *R
	// Unkeyed requests skip the guard entirely
	if op.key == "" {
		err := e.atomic(ctx, op.name, func(u domain.Unit) error {
			r, _, err := body(u)
			result = r
			return err
		})
		return result, false, err
	}

	prior, reservation, err := e.guard.CheckAndReserve(ctx, e.store.Idempotency(), op.caller, op.key, op.name, op.fingerprint)
	if err != nil {
		return nil, false, err
	}
	// Replay the recorded result of a completed request
	if prior != nil {
		r, err := decodeRecord[R](prior)
		return r, true, err
	}
	defer reservation.Release(context.WithoutCancel(ctx)) // Always drop the lease

	err = e.atomic(ctx, op.name, func(u domain.Unit) error {
		r, tx, err := body(u)
		if err != nil {
			return err
		}
		payload, err := json.Marshal(r) // Result replayed to retries
		if err != nil {
			return fmt.Errorf("encode %s result: %w", op.name, err)
		}
		if err := reservation.Commit(ctx, u.Idempotency(), tx.ID, string(payload)); err != nil {
			return err
		}
		result = r // Set once the record is written
		return nil
	})
	if errors.Is(err, domain.ErrDuplicate) {
		// Our lease expired and another request committed the key first
		prior, findErr := e.store.Idempotency().FindRecord(ctx, op.caller, op.key)
		if findErr == nil && prior != nil {
			if !prior.Matches(op.name, op.fingerprint) {
				return nil, false, domain.ErrIdempotencyKeyReused
			}
			r, decodeErr := decodeRecord[R](prior)
			return r, true, decodeErr
		}
	}
	return result, false, err
}

// decodeRecord restores the result stored with an idempotency record
func decodeRecord[R any](record *domain.IdempotencyRecord) (*R, error) {
	var r R
	if err := json.Unmarshal([]byte(record.Response), &r); err != nil {
		return nil, fmt.Errorf("decode idempotency record %q: %w", record.Key, err)
	}
	return &r, nil
}

// validateAmount rejects non-positive amounts, sub-scale precision and
// amounts the money columns cannot hold
func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return domain.ErrInvalidAmount
	}
	if !amount.Equal(amount.Round(MoneyScale)) {
		return fmt.Errorf("%w: at most %d decimal places", domain.ErrInvalidAmount, MoneyScale)
	}
	if amount.GreaterThanOrEqual(domain.MaxBalance) {
		return fmt.Errorf("%w: must be below %s", domain.ErrAmountTooLarge, domain.MaxBalance)
	}
	return nil
}

// validateText bounds the caller supplied strings stored with a transaction
func validateText(description, key string) error {
	if err := domain.CheckLength("description", description, domain.MaxDescriptionLength); err != nil {
		return err
	}
	return domain.CheckLength("idempotency key", key, domain.MaxIdempotencyKeyLength)
}

// logOutcome records the terminal state of an operation
func (e *Engine) logOutcome(log logrus.FieldLogger, msg string, err error) {
	switch {
	case err == nil:
		log.Info(msg + " committed") // Success
	case domain.IsTerminal(err):
		log.WithField("error", err.Error()).Warn(msg + " rejected") // Caller error
	default:
		log.WithField("error", err.Error()).Error(msg + " failed") // Backend or retry exhaustion
	}
}

// optional maps an empty string to a NULL column
func optional(s string) *string {
	if s == "" {
		return nil // Store NULL
	}
	return &s
}
