package ledger

import (
	"context" // Request scoped cancellation
	"errors"  // Error inspection
	"math"    // Offset bounds

	"wallet_ledger/internal/domain" // Domain models and ports

	"github.com/sirupsen/logrus" // Logging library
)

// Report and history paging bounds
const (
	DefaultReportLimit = 10
	MaxReportLimit     = 100
	DefaultPageSize    = 20
	MaxPageSize        = 100
)

// GetBalance returns the committed balance of the account's wallet
func (e *Engine) GetBalance(ctx context.Context, accountID uint) (*Balance, error) {
	wallet, err := e.store.Wallets().GetWallet(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &Balance{
		AccountID: wallet.UserID,
		WalletID:  wallet.ID,
		Balance:   wallet.Balance,
		Currency:  wallet.Currency,
	}, nil
}

// TopTransactions lists the largest transactions touching the account's
// wallet, or every transaction when accountID is nil. An account without a
// wallet yields an empty list.
func (e *Engine) TopTransactions(ctx context.Context, accountID *uint, limit int) ([]domain.Transaction, error) {
	limit = clamp(limit, DefaultReportLimit, MaxReportLimit)
	var walletID *uint
	if accountID != nil {
		wallet, err := e.store.Wallets().GetWallet(ctx, *accountID)
		if errors.Is(err, domain.ErrNotFound) {
			return []domain.Transaction{}, nil
		}
		if err != nil {
			return nil, err
		}
		walletID = &wallet.ID
	}
	txs, err := e.store.Transactions().QueryTopByAmount(ctx, walletID, limit)
	if err != nil {
		e.log.WithFields(logrus.Fields{
			"report": "top_transactions",
			"error":  err.Error(),
		}).Error("Report query failed")
		return nil, err
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}
	return txs, nil
}

// TopAccountsByVolume ranks accounts by the summed amount of every transaction
// their wallet took part in. A transfer counts for both parties.
func (e *Engine) TopAccountsByVolume(ctx context.Context, limit int) ([]domain.AccountVolume, error) {
	limit = clamp(limit, DefaultReportLimit, MaxReportLimit)
	rows, err := e.store.Transactions().QueryAggregateByAccount(ctx, limit)
	if err != nil {
		e.log.WithFields(logrus.Fields{
			"report": "top_accounts",
			"error":  err.Error(),
		}).Error("Report query failed")
		return nil, err
	}
	if rows == nil {
		rows = []domain.AccountVolume{}
	}
	return rows, nil
}

// History pages through the account's transactions, newest first
func (e *Engine) History(ctx context.Context, accountID uint, page, pageSize int) (*History, error) {
	if page < 1 {
		page = 1
	}
	pageSize = clamp(pageSize, DefaultPageSize, MaxPageSize)
	wallet, err := e.store.Wallets().GetWallet(ctx, accountID)
	if err != nil {
		return nil, err
	}
	// Pages past the addressable range are simply empty
	offset := math.MaxInt
	if page-1 <= math.MaxInt/pageSize {
		offset = (page - 1) * pageSize
	}
	txs, total, err := e.store.Transactions().ListByWallet(ctx, wallet.ID, offset, pageSize)
	if err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}
	return &History{
		Transactions: txs,
		Page:         page,
		PageSize:     pageSize,
		Total:        total,
		TotalPages:   int((total + int64(pageSize) - 1) / int64(pageSize)),
	}, nil
}

// clamp maps non-positive values to def and caps the rest at upper
func clamp(n, def, upper int) int {
	if n <= 0 {
		return def
	}
	if n > upper {
		return upper
	}
	return n
}
