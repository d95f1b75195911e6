package domain

import "time"

// Operation names recorded on idempotency records
const (
	OperationDeposit  = "deposit"
	OperationWithdraw = "withdraw"
	OperationTransfer = "transfer"
)

// MaxIdempotencyKeyLength matches the key columns on transactions and records
const MaxIdempotencyKeyLength = 128

// IdempotencyRecord stores the outcome of a keyed operation so retries replay it
type IdempotencyRecord struct {
	ID              uint      `gorm:"primaryKey" json:"-"`                                                                          // Primary key
	CallerAccountID uint      `gorm:"uniqueIndex:idx_idem_caller_key;not null" json:"caller_account_id"`                            // Account that issued the operation
	Key             string    `gorm:"column:idempotency_key;uniqueIndex:idx_idem_caller_key;type:varchar(128);not null" json:"key"` // Client supplied key
	Operation       string    `gorm:"type:varchar(16);not null" json:"operation"`                                                   // deposit, withdraw or transfer
	Fingerprint     string    `gorm:"type:varchar(64);not null" json:"fingerprint"`                                                 // Hash of the operation parameters
	TransactionID   string    `gorm:"type:varchar(36);not null" json:"transaction_id"`                                              // Resulting transaction
	Response        string    `gorm:"type:text;not null" json:"response"`                                                           // JSON snapshot of the result
	CreatedAt       time.Time `json:"created_at"`                                                                                   // First execution time
}

// Matches reports whether a retry carries the same operation as the stored record
func (r *IdempotencyRecord) Matches(operation, fingerprint string) bool {
	return r.Operation == operation && r.Fingerprint == fingerprint
}
