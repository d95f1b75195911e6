// Package idempotency deduplicates retried client operations.
//
// A keyed operation first looks for a durable record of a previous outcome.
// On a miss it takes a short lease on (caller, key) so concurrent retries wait
// instead of executing twice. The durable record is written by the caller
// inside the same atomic unit as the ledger mutation, so there is never a
// committed mutation without its record. The lease only expires; a crashed
// holder blocks retries for at most one lease period.
package idempotency

import (
	"context"       // Request scoped cancellation
	"crypto/sha256" // Request fingerprints
	"encoding/hex"  // Fingerprint encoding
	"fmt"           // Lease key formatting
	"strings"       // Parameter joining
	"time"          // Lease and poll timings

	"wallet_ledger/internal/domain" // Domain models and ports

	"github.com/google/uuid"     // Lease tokens
	"github.com/sirupsen/logrus" // Logging library
)

// Default timings
const (
	DefaultLease   = 30 * time.Second       // Lifetime of an unreleased lease
	DefaultWait    = 2 * time.Second        // How long a retry waits for the holder
	minPollBackoff = 5 * time.Millisecond   // First poll delay
	maxPollBackoff = 200 * time.Millisecond // Poll delay cap
)

// LeaseStore grants exclusive, expiring leases on string keys.
type LeaseStore interface {
	// Acquire returns false when another token holds the key.
	Acquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	// Release drops the lease only if token still holds it.
	Release(ctx context.Context, key, token string) error
}

// Guard implements check-and-reserve over durable records and leases
type Guard struct {
	leases LeaseStore         // Shared or in-process leases
	lease  time.Duration      // Lease lifetime
	wait   time.Duration      // Poll budget for concurrent retries
	log    logrus.FieldLogger // Guard logger
}

// NewGuard builds a guard. wait bounds how long a concurrent retry polls for
// the holder's outcome before giving up with ErrOperationInProgress.
func NewGuard(leases LeaseStore, lease, wait time.Duration, log logrus.FieldLogger) *Guard {
	if leases == nil {
		panic("lease store is required")
	}
	if lease <= 0 {
		lease = DefaultLease // Default lifetime
	}
	// Never wait past the lease itself
	if wait <= 0 || wait > lease {
		wait = min(DefaultWait, lease)
	}
	if log == nil {
		log = logrus.StandardLogger() // Global logger
	}
	return &Guard{leases: leases, lease: lease, wait: wait, log: log}
}

// Reservation is a held lease on one (caller, key) pair
type Reservation struct {
	guard       *Guard // Owning guard
	caller      uint   // Account issuing the request
	key         string // Client retry key
	operation   string // Operation name
	fingerprint string // Digest of the request parameters
	leaseKey    string // Lease store key
	token       string // Proves lease ownership
}

// CheckAndReserve returns the prior record when the operation already ran,
// or a Reservation the caller must Commit inside its unit and then Release.
func (g *Guard) CheckAndReserve(ctx context.Context, records domain.IdempotencyRecords, caller uint, key, operation, fingerprint string) (*domain.IdempotencyRecord, *Reservation, error) {
	leaseKey := LeaseKey(caller, key)  // Lease store key
	token := uuid.NewString()          // Unique per attempt
	deadline := time.Now().Add(g.wait) // Stop polling after the wait budget
	backoff := minPollBackoff          // Doubles each poll

	for {
		// A completed request is replayed without taking a lease
		prior, err := lookup(ctx, records, caller, key, operation, fingerprint)
		if err != nil || prior != nil {
			return prior, nil, err
		}

		acquired, err := g.leases.Acquire(ctx, leaseKey, token, g.lease)
		if err != nil {
			return nil, nil, domain.Unavailable("reserve idempotency key", err)
		}
		if acquired {
			// The previous holder may have committed between lookup and acquire
			prior, err := lookup(ctx, records, caller, key, operation, fingerprint)
			if err != nil || prior != nil {
				_ = g.leases.Release(ctx, leaseKey, token) // Expires anyway
				return prior, nil, err
			}
			return nil, &Reservation{
				guard:       g,           // Owning guard
				caller:      caller,      // Issuer
				key:         key,         // Retry key
				operation:   operation,   // Operation name
				fingerprint: fingerprint, // Parameter digest
				leaseKey:    leaseKey,    // Lease store key
				token:       token,       // Ownership token
			}, nil
		}

		if time.Now().After(deadline) {
			g.log.WithFields(logrus.Fields{
				"caller_account_id": caller, // Issuer
				"idempotency_key":   key,    // Contended key
			}).Warn("Idempotency key still reserved by another request")
			return nil, nil, domain.ErrOperationInProgress
		}
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err() // Caller gave up
		case <-time.After(backoff): // Poll again
		}
		backoff = min(backoff*2, maxPollBackoff) // Exponential, capped
	}
}

// Commit writes the durable record through records, which must belong to the
// unit that performs the mutation.
func (r *Reservation) Commit(ctx context.Context, records domain.IdempotencyRecords, transactionID, response string) error {
	return records.SaveRecord(ctx, &domain.IdempotencyRecord{
		CallerAccountID: r.caller,      // Issuer
		Key:             r.key,         // Retry key
		Operation:       r.operation,   // Operation name
		Fingerprint:     r.fingerprint, // Parameter digest
		TransactionID:   transactionID, // Transaction the request produced
		Response:        response,      // Serialized result for replays
	})
}

// Release drops the lease. Failures are logged; the lease expires on its own.
func (r *Reservation) Release(ctx context.Context) {
	if err := r.guard.leases.Release(ctx, r.leaseKey, r.token); err != nil {
		r.guard.log.WithFields(logrus.Fields{
			"lease_key": r.leaseKey,  // Lease store key
			"error":     err.Error(), // Release failure
		}).Warn("Failed to release idempotency lease")
	}
}

// lookup finds a completed request and checks it matches this one
func lookup(ctx context.Context, records domain.IdempotencyRecords, caller uint, key, operation, fingerprint string) (*domain.IdempotencyRecord, error) {
	prior, err := records.FindRecord(ctx, caller, key)
	if err != nil {
		return nil, err
	}
	if prior == nil {
		return nil, nil // Never completed
	}
	// Same key, different request
	if !prior.Matches(operation, fingerprint) {
		return nil, domain.ErrIdempotencyKeyReused
	}
	return prior, nil
}

// LeaseKey is the lease store key for one (caller, key) pair
func LeaseKey(caller uint, key string) string {
	return fmt.Sprintf("idem:lease:%d:%s", caller, key)
}

// Fingerprint hashes an operation and its parameters so a reused key can be
// told apart from a genuine retry.
func Fingerprint(operation string, params ...string) string {
	sum := sha256.Sum256([]byte(operation + "\x00" + strings.Join(params, "\x00")))
	return hex.EncodeToString(sum[:])
}
