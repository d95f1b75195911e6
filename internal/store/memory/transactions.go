package memory

import (
	"context" // Request scoped cancellation
	"fmt"     // Error formatting
	"sort"    // Result ordering
	"time"    // Timestamps

	"wallet_ledger/internal/domain" // Domain models and ports

	"github.com/google/uuid" // Transaction ids
)

type transactionView struct {
	s *Store // Committed state
	u *unit  // Open unit, nil outside Atomic
}

func (v *transactionView) Append(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	if v.u == nil {
		var out *domain.Transaction
		err := v.s.Atomic(ctx, func(u domain.Unit) error {
			t, err := u.Transactions().Append(ctx, tx)
			out = t
			return err
		})
		return out, err
	}

	if err := tx.Validate(); err != nil {
		return nil, err
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}
	// Duplicates inside the same unit; committed ones are checked again at commit
	for _, staged := range v.u.txs {
		if staged.ID == tx.ID || sameKey(&staged, tx) {
			return nil, fmt.Errorf("%w: transaction %s", domain.ErrDuplicate, tx.ID)
		}
	}
	v.s.mu.RLock()
	_, dupID := v.s.txIDs[tx.ID]
	dupKey := false
	if tx.IdempotencyKey != nil {
		_, dupKey = v.s.txKeys[callerKey{tx.CallerAccountID, *tx.IdempotencyKey}]
	}
	v.s.mu.RUnlock()
	if dupID || dupKey {
		return nil, fmt.Errorf("%w: transaction %s", domain.ErrDuplicate, tx.ID)
	}

	v.u.txs = append(v.u.txs, *tx)
	return tx, nil
}

func sameKey(a, b *domain.Transaction) bool {
	return a.IdempotencyKey != nil && b.IdempotencyKey != nil &&
		a.CallerAccountID == b.CallerAccountID && *a.IdempotencyKey == *b.IdempotencyKey
}

func (v *transactionView) QueryTopByAmount(ctx context.Context, walletID *uint, limit int) ([]domain.Transaction, error) {
	v.s.mu.RLock()
	var txs []domain.Transaction
	for _, tx := range v.s.txs {
		if walletID == nil || touches(&tx, *walletID) {
			txs = append(txs, tx)
		}
	}
	v.s.mu.RUnlock()

	sort.SliceStable(txs, func(i, j int) bool {
		if c := txs[i].Amount.Cmp(txs[j].Amount); c != 0 {
			return c > 0
		}
		if !txs[i].CreatedAt.Equal(txs[j].CreatedAt) {
			return txs[i].CreatedAt.After(txs[j].CreatedAt)
		}
		return txs[i].ID > txs[j].ID
	})
	if limit >= 0 && len(txs) > limit {
		txs = txs[:limit]
	}
	return txs, nil
}

// QueryAggregateByAccount folds every transaction into the totals of each
// account it touches; a transfer counts for both parties.
func (v *transactionView) QueryAggregateByAccount(ctx context.Context, limit int) ([]domain.AccountVolume, error) {
	v.s.mu.RLock()
	totals := make(map[uint]*domain.AccountVolume)
	for _, tx := range v.s.txs {
		for _, wid := range []*uint{tx.FromWalletID, tx.ToWalletID} {
			if wid == nil {
				continue
			}
			wallet, ok := v.s.wallets[*wid]
			if !ok {
				continue
			}
			row, ok := totals[wallet.UserID]
			if !ok {
				row = &domain.AccountVolume{AccountID: wallet.UserID, Username: v.s.users[wallet.UserID].Username}
				totals[wallet.UserID] = row
			}
			row.TotalVolume = row.TotalVolume.Add(tx.Amount)
			row.TransactionCount++
		}
	}
	v.s.mu.RUnlock()

	rows := make([]domain.AccountVolume, 0, len(totals))
	for _, row := range totals {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if c := rows[i].TotalVolume.Cmp(rows[j].TotalVolume); c != 0 {
			return c > 0
		}
		return rows[i].AccountID < rows[j].AccountID
	})
	if limit >= 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (v *transactionView) ListByWallet(ctx context.Context, walletID uint, offset, limit int) ([]domain.Transaction, int64, error) {
	if offset < 0 {
		return nil, 0, fmt.Errorf("%w: negative offset %d", domain.ErrValidation, offset)
	}
	v.s.mu.RLock()
	var txs []domain.Transaction
	for _, tx := range v.s.txs {
		if touches(&tx, walletID) {
			txs = append(txs, tx)
		}
	}
	v.s.mu.RUnlock()

	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].CreatedAt.Equal(txs[j].CreatedAt) {
			return txs[i].CreatedAt.After(txs[j].CreatedAt)
		}
		return txs[i].ID > txs[j].ID
	})
	total := int64(len(txs))
	if offset >= len(txs) {
		return []domain.Transaction{}, total, nil
	}
	txs = txs[offset:]
	if len(txs) > limit {
		txs = txs[:limit]
	}
	return txs, total, nil
}

func touches(tx *domain.Transaction, walletID uint) bool {
	return (tx.FromWalletID != nil && *tx.FromWalletID == walletID) ||
		(tx.ToWalletID != nil && *tx.ToWalletID == walletID)
}
