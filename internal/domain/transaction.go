package domain

import (
	"fmt"  // Error formatting
	"time" // Timestamps

	"github.com/shopspring/decimal" // Exact decimal arithmetic for money
)

// TransactionType classifies a ledger movement
type TransactionType string

// Transaction types
const (
	TransactionTypeDeposit    TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal TransactionType = "WITHDRAWAL"
	TransactionTypeTransfer   TransactionType = "TRANSFER"
	TransactionTypeFee        TransactionType = "FEE"
	TransactionTypeRefund     TransactionType = "REFUND"
)

// TransactionStatus is the lifecycle state of a recorded movement
type TransactionStatus string

// Transaction statuses
const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
	TransactionStatusCancelled TransactionStatus = "CANCELLED"
)

// MaxDescriptionLength matches the description column
const MaxDescriptionLength = 255

// Transaction Model
type Transaction struct {
	ID              string            `gorm:"primaryKey;type:varchar(36)" json:"id"`                                            // UUID assigned by the ledger engine
	Type            TransactionType   `gorm:"type:varchar(16);index;not null" json:"type"`                                      // Movement type
	Status          TransactionStatus `gorm:"type:varchar(16);not null" json:"status"`                                          // Movement status
	Amount          decimal.Decimal   `gorm:"type:decimal(20,4);index;not null" json:"amount"`                                  // Always positive
	FromWalletID    *uint             `gorm:"index" json:"from_wallet_id,omitempty"`                                            // Source wallet, nil for deposits
	ToWalletID      *uint             `gorm:"index" json:"to_wallet_id,omitempty"`                                              // Destination wallet, nil for withdrawals
	Description     *string           `gorm:"type:varchar(255)" json:"description,omitempty"`                                   // Optional caller note
	CallerAccountID uint              `gorm:"uniqueIndex:idx_tx_caller_key;not null" json:"caller_account_id"`                  // Account that issued the operation
	IdempotencyKey  *string           `gorm:"uniqueIndex:idx_tx_caller_key;type:varchar(128)" json:"idempotency_key,omitempty"` // Optional client retry key
	CreatedAt       time.Time         `gorm:"index" json:"created_at"`                                                          // Creation time
}

// Validate checks the shape rules every appended transaction must satisfy
func (t *Transaction) Validate() error {
	// Amount must be strictly positive
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	// Amount must fit decimal(20,4)
	if t.Amount.GreaterThanOrEqual(MaxBalance) {
		return ErrAmountTooLarge
	}
	// Optional text must fit its column
	if t.Description != nil {
		if err := CheckLength("description", *t.Description, MaxDescriptionLength); err != nil {
			return err
		}
	}
	if t.IdempotencyKey != nil {
		if err := CheckLength("idempotency key", *t.IdempotencyKey, MaxIdempotencyKeyLength); err != nil {
			return err
		}
	}
	switch t.Type {
	case TransactionTypeTransfer:
		// Both sides populated and distinct
		if t.FromWalletID == nil || t.ToWalletID == nil {
			return fmt.Errorf("%w: transfer requires source and destination", ErrInvalidTransaction)
		}
		if *t.FromWalletID == *t.ToWalletID {
			return ErrSameAccountTransfer
		}
	case TransactionTypeDeposit:
		// Destination only
		if t.FromWalletID != nil || t.ToWalletID == nil {
			return fmt.Errorf("%w: deposit requires destination only", ErrInvalidTransaction)
		}
	case TransactionTypeWithdrawal:
		// Source only
		if t.FromWalletID == nil || t.ToWalletID != nil {
			return fmt.Errorf("%w: withdrawal requires source only", ErrInvalidTransaction)
		}
	case TransactionTypeFee, TransactionTypeRefund:
		// At least one side populated
		if t.FromWalletID == nil && t.ToWalletID == nil {
			return fmt.Errorf("%w: %s requires a wallet reference", ErrInvalidTransaction, t.Type)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidTransaction, t.Type)
	}
	return nil
}

// AccountVolume is one row of the per-account volume report
type AccountVolume struct {
	AccountID        uint            `json:"account_id"`        // Owning account
	Username         string          `json:"username"`          // Account username
	TotalVolume      decimal.Decimal `json:"total_volume"`      // Sum of amounts on either side
	TransactionCount int64           `json:"transaction_count"` // Number of movements involved in
}
