package memory

import (
	"context" // Request scoped cancellation
	"fmt"     // Error formatting
	"time"    // Timestamps

	"wallet_ledger/internal/domain" // Domain models and ports

	"github.com/shopspring/decimal" // Exact decimal amounts
)

// walletView reads through the unit's buffer (when u is set) to committed state
type walletView struct {
	s *Store // Committed state
	u *unit  // Open unit, nil outside Atomic
}

func (v *walletView) GetWallet(ctx context.Context, accountID uint) (*domain.Wallet, error) {
	if v.u != nil {
		for _, sw := range v.u.wallets {
			if sw.wallet.UserID == accountID {
				w := sw.wallet
				return &w, nil
			}
		}
	}
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	id, ok := v.s.byAccount[accountID]
	if !ok {
		return nil, domain.ErrWalletNotFound
	}
	w := v.s.wallets[id]
	return &w, nil
}

func (v *walletView) GetWalletByID(ctx context.Context, walletID uint) (*domain.Wallet, error) {
	if v.u != nil {
		if sw, ok := v.u.wallets[walletID]; ok {
			w := sw.wallet
			return &w, nil
		}
	}
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	w, ok := v.s.wallets[walletID]
	if !ok {
		return nil, domain.ErrWalletNotFound
	}
	return &w, nil
}

func (v *walletView) AdjustBalance(ctx context.Context, walletID uint, delta decimal.Decimal, expectedVersion int64) (*domain.Wallet, error) {
	if v.u == nil {
		var out *domain.Wallet
		err := v.s.Atomic(ctx, func(u domain.Unit) error {
			w, err := u.Wallets().AdjustBalance(ctx, walletID, delta, expectedVersion)
			out = w
			return err
		})
		return out, err
	}

	sw, ok := v.u.wallets[walletID]
	if !ok {
		current, err := v.GetWalletByID(ctx, walletID)
		if err != nil {
			return nil, err
		}
		sw = &stagedWallet{wallet: *current, base: current.Version}
	}
	if sw.wallet.Version != expectedVersion {
		return nil, domain.ErrVersionMismatch
	}
	newBalance := sw.wallet.Balance.Add(delta)
	if err := domain.CheckBalance(newBalance); err != nil {
		return nil, err
	}
	sw.wallet.Balance = newBalance
	sw.wallet.Version = expectedVersion + 1
	sw.wallet.UpdatedAt = time.Now()
	v.u.wallets[walletID] = sw

	w := sw.wallet
	return &w, nil
}

func (v *walletView) CreateWallet(ctx context.Context, accountID uint) (*domain.Wallet, error) {
	if v.u == nil {
		var out *domain.Wallet
		err := v.s.Atomic(ctx, func(u domain.Unit) error {
			w, err := u.Wallets().CreateWallet(ctx, accountID)
			out = w
			return err
		})
		return out, err
	}

	if _, err := v.GetWallet(ctx, accountID); err == nil {
		return nil, fmt.Errorf("%w: wallet for account %d already exists", domain.ErrDuplicate, accountID)
	}
	wallet := domain.NewWallet(accountID, v.s.currency)
	now := time.Now()
	wallet.CreatedAt, wallet.UpdatedAt = now, now

	v.s.mu.Lock()
	v.s.nextWID++
	wallet.ID = v.s.nextWID
	v.s.mu.Unlock()

	v.u.wallets[wallet.ID] = &stagedWallet{wallet: *wallet, created: true}
	return wallet, nil
}
