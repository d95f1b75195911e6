package domain

import (
	"fmt"  // Error formatting
	"time" // Timestamps

	"github.com/shopspring/decimal" // Exact decimal arithmetic for money
)

// DefaultCurrency is used when a wallet is created without an explicit currency
const DefaultCurrency = "USD"

// MaxBalance is the exclusive upper bound of a decimal(20,4) column. Balances
// and amounts must stay strictly below it.
var MaxBalance = decimal.New(1, 16)

// Wallet Model
type Wallet struct {
	ID        uint            `gorm:"primaryKey" json:"id"`                                   // Primary key
	UserID    uint            `gorm:"uniqueIndex;not null" json:"user_id"`                    // Owning account, one wallet per account
	Balance   decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"balance"`   // Wallet balance, never negative
	Currency  string          `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"` // Single currency per deployment
	Version   int64           `gorm:"not null;default:1" json:"version"`                      // Optimistic lock token
	CreatedAt time.Time       `json:"created_at"`                                             // Creation time
	UpdatedAt time.Time       `json:"updated_at"`                                             // Last mutation time
}

// NewWallet returns an empty wallet for the given account
func NewWallet(accountID uint, currency string) *Wallet {
	if currency == "" {
		currency = DefaultCurrency
	}
	return &Wallet{
		UserID:   accountID,    // Owning account
		Balance:  decimal.Zero, // Wallets always open empty
		Currency: currency,     // Deployment currency
		Version:  1,            // First version
	}
}

// HasSufficientFunds reports whether the wallet can be debited by amount
func (w *Wallet) HasSufficientFunds(amount decimal.Decimal) bool {
	return w.Balance.GreaterThanOrEqual(amount)
}

// CheckBalance rejects balances a wallet row cannot hold
func CheckBalance(balance decimal.Decimal) error {
	switch {
	case balance.IsNegative():
		return ErrInsufficientFunds
	case balance.GreaterThanOrEqual(MaxBalance):
		return fmt.Errorf("%w: %s", ErrBalanceLimit, balance)
	}
	return nil
}
