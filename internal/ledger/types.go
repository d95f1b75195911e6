package ledger

import (
	"wallet_ledger/internal/domain" // Domain models

	"github.com/shopspring/decimal" // Exact decimal arithmetic for money
)

// DepositRequest credits an account's wallet from outside the ledger
type DepositRequest struct {
	AccountID      uint            // Account receiving the funds
	Amount         decimal.Decimal // Positive amount
	Description    string          // Optional note
	IdempotencyKey string          // Optional retry key
}

// DepositResult is returned by Deposit and replayed for retried keys
type DepositResult struct {
	AccountID   uint               `json:"account_id"`  // Account credited
	WalletID    uint               `json:"wallet_id"`   // Wallet credited
	Balance     decimal.Decimal    `json:"balance"`     // Balance after the deposit
	Transaction domain.Transaction `json:"transaction"` // Appended DEPOSIT
	Replayed    bool               `json:"-"`           // Served from a previous execution
}

// WithdrawRequest debits an account's wallet to outside the ledger
type WithdrawRequest struct {
	AccountID      uint            // Account paying out
	Amount         decimal.Decimal // Positive amount
	Description    string          // Optional note
	IdempotencyKey string          // Optional retry key
}

// WithdrawResult is returned by Withdraw and replayed for retried keys
type WithdrawResult struct {
	AccountID   uint               `json:"account_id"`  // Account debited
	WalletID    uint               `json:"wallet_id"`   // Wallet debited
	Balance     decimal.Decimal    `json:"balance"`     // Balance after the withdrawal
	Transaction domain.Transaction `json:"transaction"` // Appended WITHDRAWAL
	Replayed    bool               `json:"-"`           // Served from a previous execution
}

// TransferRequest moves funds between two accounts
type TransferRequest struct {
	FromAccountID  uint            // Sender
	ToAccountID    uint            // Receiver
	Amount         decimal.Decimal // Positive amount
	Description    string          // Optional note
	IdempotencyKey string          // Optional retry key, scoped to the sender
}

// TransferResult is returned by Transfer and replayed for retried keys
type TransferResult struct {
	Transaction domain.Transaction `json:"transaction"`  // Appended TRANSFER
	FromBalance decimal.Decimal    `json:"from_balance"` // Sender balance after the transfer
	ToBalance   decimal.Decimal    `json:"to_balance"`   // Receiver balance after the transfer
	Replayed    bool               `json:"-"`            // Served from a previous execution
}

// Balance is the read model returned by GetBalance
type Balance struct {
	AccountID uint            `json:"account_id"` // Owning account
	WalletID  uint            `json:"wallet_id"`  // Wallet
	Balance   decimal.Decimal `json:"balance"`    // Current balance
	Currency  string          `json:"currency"`   // Wallet currency
}

// History is one page of a wallet's transactions
type History struct {
	Transactions []domain.Transaction `json:"transactions"` // Page content, newest first
	Page         int                  `json:"page"`         // Current page
	PageSize     int                  `json:"page_size"`    // Page size
	Total        int64                `json:"total"`        // Total number of transactions
	TotalPages   int                  `json:"total_pages"`  // Total pages
}
