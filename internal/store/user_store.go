package store

import (
	"context" // Request scoped cancellation
	"errors"  // Error inspection
	"fmt"     // Error formatting

	"wallet_ledger/internal/domain" // Domain models and ports

	"gorm.io/gorm" // GORM ORM library
)

// userStore persists accounts
type userStore struct {
	db *gorm.DB // Pool or open transaction
}

func (s *userStore) CreateUser(ctx context.Context, user *domain.User) error {
	// Omit the has-one wallet, the ledger creates it through the wallet store
	if err := s.db.WithContext(ctx).Omit("Wallet").Create(user).Error; err != nil {
		// Usernames are unique
		if isDuplicateKey(err) {
			return fmt.Errorf("%w: username %q", domain.ErrDuplicate, user.Username)
		}
		return domain.Unavailable("create user", err)
	}
	return nil
}

func (s *userStore) GetUser(ctx context.Context, id uint) (*domain.User, error) {
	var user domain.User // User with its wallet
	if err := s.db.WithContext(ctx).Preload("Wallet").First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, domain.Unavailable("get user", err)
	}
	return &user, nil
}

func (s *userStore) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User // User with its wallet
	if err := s.db.WithContext(ctx).Preload("Wallet").Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, domain.Unavailable("get user by username", err)
	}
	return &user, nil
}
