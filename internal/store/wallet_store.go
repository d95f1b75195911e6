package store

import (
	"context" // Request scoped cancellation
	"errors"  // Error inspection
	"fmt"     // Error formatting
	"time"    // Timestamps

	"wallet_ledger/internal/domain" // Domain models and ports

	"github.com/shopspring/decimal" // Exact decimal amounts
	"gorm.io/gorm"                  // GORM ORM library
)

// walletStore reads and versions wallet rows
type walletStore struct {
	db       *gorm.DB // Pool or open transaction
	currency string   // Currency of new wallets
}

func (s *walletStore) GetWallet(ctx context.Context, accountID uint) (*domain.Wallet, error) {
	var wallet domain.Wallet // Wallet owned by the account
	if err := s.db.WithContext(ctx).Where("user_id = ?", accountID).First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrWalletNotFound // No wallet for the account
		}
		return nil, domain.Unavailable("get wallet", err)
	}
	return &wallet, nil
}

func (s *walletStore) GetWalletByID(ctx context.Context, walletID uint) (*domain.Wallet, error) {
	var wallet domain.Wallet
	if err := s.db.WithContext(ctx).First(&wallet, walletID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrWalletNotFound
		}
		return nil, domain.Unavailable("get wallet by id", err)
	}
	return &wallet, nil
}

// AdjustBalance computes the new balance in decimal and writes it back with a
// version guard, so the database never does money arithmetic.
func (s *walletStore) AdjustBalance(ctx context.Context, walletID uint, delta decimal.Decimal, expectedVersion int64) (*domain.Wallet, error) {
	wallet, err := s.GetWalletByID(ctx, walletID)
	if err != nil {
		return nil, err
	}
	// Someone committed since the caller read the wallet
	if wallet.Version != expectedVersion {
		return nil, domain.ErrVersionMismatch
	}
	newBalance := wallet.Balance.Add(delta) // Exact decimal arithmetic
	if err := domain.CheckBalance(newBalance); err != nil {
		return nil, err // Overdraft or column overflow
	}
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&domain.Wallet{}).
		Where("id = ? AND version = ?", walletID, expectedVersion).
		Updates(map[string]any{
			"balance":    newBalance,               // Computed balance
			"version":    gorm.Expr("version + 1"), // Bump the optimistic version
			"updated_at": now,                      // Touch timestamp
		})
	if res.Error != nil {
		return nil, domain.Unavailable("adjust balance", res.Error)
	}
	// Lost the race between the read and the conditional update
	if res.RowsAffected == 0 {
		return nil, domain.ErrVersionMismatch
	}
	wallet.Balance = newBalance          // Mirror the row
	wallet.Version = expectedVersion + 1 // Mirror the bump
	wallet.UpdatedAt = now
	return wallet, nil
}

func (s *walletStore) CreateWallet(ctx context.Context, accountID uint) (*domain.Wallet, error) {
	wallet := domain.NewWallet(accountID, s.currency) // Zero balance, version 1
	if err := s.db.WithContext(ctx).Create(wallet).Error; err != nil {
		// One wallet per account
		if isDuplicateKey(err) {
			return nil, fmt.Errorf("%w: wallet for account %d already exists", domain.ErrDuplicate, accountID)
		}
		return nil, domain.Unavailable("create wallet", err)
	}
	return wallet, nil
}
