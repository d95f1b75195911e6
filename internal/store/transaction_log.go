package store

import (
	"context" // Request scoped cancellation
	"fmt"     // Error formatting
	"time"    // Timestamps

	"wallet_ledger/internal/domain" // Domain models and ports

	"github.com/google/uuid" // Transaction ids
	"gorm.io/gorm"           // GORM ORM library
)

// transactionLog is the append-only transactions table
type transactionLog struct {
	db *gorm.DB // Pool or open transaction
}

func (l *transactionLog) Append(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	// Reject malformed movements before touching the table
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString() // Assign a UUID
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now() // Stamp creation time
	}
	if err := l.db.WithContext(ctx).Create(tx).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, fmt.Errorf("%w: transaction %s", domain.ErrDuplicate, tx.ID)
		}
		return nil, domain.Unavailable("append transaction", err)
	}
	return tx, nil
}

func (l *transactionLog) QueryTopByAmount(ctx context.Context, walletID *uint, limit int) ([]domain.Transaction, error) {
	query := l.db.WithContext(ctx).Model(&domain.Transaction{})
	if walletID != nil {
		query = query.Where("from_wallet_id = ? OR to_wallet_id = ?", *walletID, *walletID) // Either side of the movement
	}
	var txs []domain.Transaction // Largest first, newest breaks ties
	if err := query.Order("amount DESC").Order("created_at DESC").Order("id DESC").Limit(limit).Find(&txs).Error; err != nil {
		return nil, domain.Unavailable("query top transactions", err)
	}
	return txs, nil
}

// QueryAggregateByAccount joins each transaction to every wallet it touches,
// so a transfer adds to both the sender's and the receiver's total.
func (l *transactionLog) QueryAggregateByAccount(ctx context.Context, limit int) ([]domain.AccountVolume, error) {
	var rows []domain.AccountVolume // One row per account
	err := l.db.WithContext(ctx).
		Table("transactions AS t").
		Select("w.user_id AS account_id, COALESCE(u.username, '') AS username, SUM(t.amount) AS total_volume, COUNT(t.id) AS transaction_count").
		Joins("JOIN wallets AS w ON (w.id = t.from_wallet_id OR w.id = t.to_wallet_id)").
		Joins("LEFT JOIN users AS u ON u.id = w.user_id").
		Group("w.user_id, u.username").
		Order("total_volume DESC").
		Order("w.user_id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, domain.Unavailable("aggregate volume", err)
	}
	return rows, nil
}

func (l *transactionLog) ListByWallet(ctx context.Context, walletID uint, offset, limit int) ([]domain.Transaction, int64, error) {
	if offset < 0 {
		return nil, 0, fmt.Errorf("%w: negative offset %d", domain.ErrValidation, offset)
	}
	query := l.db.WithContext(ctx).Model(&domain.Transaction{}).
		Where("from_wallet_id = ? OR to_wallet_id = ?", walletID, walletID)
	var total int64 // Matching rows before paging
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, domain.Unavailable("count transactions", err)
	}
	var txs []domain.Transaction // Newest first
	if err := query.Order("created_at DESC").Order("id DESC").Offset(offset).Limit(limit).Find(&txs).Error; err != nil {
		return nil, 0, domain.Unavailable("list transactions", err)
	}
	return txs, total, nil
}
