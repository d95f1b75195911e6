// Package store implements the ledger storage ports on top of gorm. Any
// dialect gorm supports works; the server wires MySQL or Postgres and the
// tests run against in-memory SQLite.
package store

import (
	"context" // Request scoped cancellation
	"errors"  // Error inspection
	"strings" // Driver message matching

	"wallet_ledger/internal/domain" // Domain models and ports

	"github.com/go-sql-driver/mysql" // MySQL error codes
	"github.com/jackc/pgx/v5/pgconn" // Postgres error codes
	"gorm.io/gorm"                   // GORM ORM library
)

// Store is the gorm implementation of domain.Store
type Store struct {
	db       *gorm.DB // Connection pool
	currency string   // Currency of new wallets
}

// New wraps an open gorm connection. currency is applied to new wallets.
func New(db *gorm.DB, currency string) *Store {
	if db == nil {
		panic("db is required")
	}
	if currency == "" {
		currency = domain.DefaultCurrency // Fallback currency
	}
	return &Store{db: db, currency: currency}
}

// Atomic runs fn inside a database transaction
func (s *Store) Atomic(ctx context.Context, fn func(u domain.Unit) error) error {
	var fnErr error // Error produced by the unit body itself
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fnErr = fn(&unit{db: tx, currency: s.currency}) // Bind stores to tx
		return fnErr                                    // Non-nil rolls back
	})
	if err != nil && fnErr == nil {
		// Begin or commit failed, nothing from the unit is visible
		return domain.Unavailable("commit unit", err)
	}
	return err
}

// Wallets reads committed wallet state
func (s *Store) Wallets() domain.WalletStore {
	return &walletStore{db: s.db, currency: s.currency}
}

// Transactions reads the committed transaction log
func (s *Store) Transactions() domain.TransactionLog {
	return &transactionLog{db: s.db}
}

// Idempotency reads committed idempotency records
func (s *Store) Idempotency() domain.IdempotencyRecords {
	return &idempotencyStore{db: s.db}
}

// Users reads committed accounts
func (s *Store) Users() domain.UserStore {
	return &userStore{db: s.db}
}

// unit binds every store to one open transaction
type unit struct {
	db       *gorm.DB // Open transaction
	currency string   // Currency of new wallets
}

func (u *unit) Wallets() domain.WalletStore {
	return &walletStore{db: u.db, currency: u.currency}
}

func (u *unit) Transactions() domain.TransactionLog {
	return &transactionLog{db: u.db}
}

func (u *unit) Idempotency() domain.IdempotencyRecords {
	return &idempotencyStore{db: u.db}
}

func (u *unit) Users() domain.UserStore {
	return &userStore{db: u.db}
}

// isDuplicateKey recognises unique constraint violations across the supported dialects
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true // Translated by the dialector
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return true // ER_DUP_ENTRY
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true // unique_violation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed") // SQLite
}
