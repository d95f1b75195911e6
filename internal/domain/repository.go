package domain

import (
	"context" // Request scoped cancellation

	"github.com/shopspring/decimal" // Exact decimal amounts
)

// WalletStore is the durable account -> balance mapping.
type WalletStore interface {
	GetWallet(ctx context.Context, accountID uint) (*Wallet, error)
	GetWalletByID(ctx context.Context, walletID uint) (*Wallet, error)
	// AdjustBalance applies delta when the stored version still equals
	// expectedVersion and the result stays non-negative. The returned wallet
	// carries the incremented version.
	AdjustBalance(ctx context.Context, walletID uint, delta decimal.Decimal, expectedVersion int64) (*Wallet, error)
	CreateWallet(ctx context.Context, accountID uint) (*Wallet, error)
}

// TransactionLog is the append-only record of ledger movements.
type TransactionLog interface {
	Append(ctx context.Context, tx *Transaction) (*Transaction, error)
	// QueryTopByAmount orders by amount desc, then creation time desc. A nil
	// walletID selects every transaction.
	QueryTopByAmount(ctx context.Context, walletID *uint, limit int) ([]Transaction, error)
	QueryAggregateByAccount(ctx context.Context, limit int) ([]AccountVolume, error)
	ListByWallet(ctx context.Context, walletID uint, offset, limit int) ([]Transaction, int64, error)
}

// IdempotencyRecords persists outcomes of keyed operations.
type IdempotencyRecords interface {
	// FindRecord returns nil, nil when no record exists.
	FindRecord(ctx context.Context, callerAccountID uint, key string) (*IdempotencyRecord, error)
	SaveRecord(ctx context.Context, record *IdempotencyRecord) error
}

// UserStore holds the accounts that own wallets.
type UserStore interface {
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id uint) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
}

// Unit is the set of stores visible inside one atomic unit of work.
type Unit interface {
	Wallets() WalletStore
	Transactions() TransactionLog
	Idempotency() IdempotencyRecords
	Users() UserStore
}

// Store is the storage handle threaded through the ledger engine. Reads made
// directly on the Store see committed state only.
type Store interface {
	Unit
	// Atomic runs fn as one unit: every write made through the Unit commits
	// together when fn returns nil and is discarded otherwise.
	Atomic(ctx context.Context, fn func(u Unit) error) error
}
