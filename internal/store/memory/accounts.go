package memory

import (
	"context" // Request scoped cancellation
	"fmt"     // Error formatting
	"time"    // Timestamps

	"wallet_ledger/internal/domain" // Domain models and ports
)

type recordView struct {
	s *Store // Committed state
	u *unit  // Open unit, nil outside Atomic
}

func (v *recordView) FindRecord(ctx context.Context, callerAccountID uint, key string) (*domain.IdempotencyRecord, error) {
	if v.u != nil {
		for _, r := range v.u.records {
			if r.CallerAccountID == callerAccountID && r.Key == key {
				rec := r
				return &rec, nil
			}
		}
	}
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	r, ok := v.s.records[callerKey{callerAccountID, key}]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (v *recordView) SaveRecord(ctx context.Context, record *domain.IdempotencyRecord) error {
	if v.u == nil {
		return v.s.Atomic(ctx, func(u domain.Unit) error {
			return u.Idempotency().SaveRecord(ctx, record)
		})
	}
	existing, err := v.FindRecord(ctx, record.CallerAccountID, record.Key)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: idempotency key %q", domain.ErrDuplicate, record.Key)
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	v.u.records = append(v.u.records, *record)
	return nil
}

type userView struct {
	s *Store // Committed state
	u *unit  // Open unit, nil outside Atomic
}

func (v *userView) CreateUser(ctx context.Context, user *domain.User) error {
	if v.u == nil {
		return v.s.Atomic(ctx, func(u domain.Unit) error {
			return u.Users().CreateUser(ctx, user)
		})
	}
	if _, err := v.GetUserByUsername(ctx, user.Username); err == nil {
		return fmt.Errorf("%w: username %q", domain.ErrDuplicate, user.Username)
	}
	if user.Role == "" {
		user.Role = domain.RoleUser
	}
	user.CreatedAt = time.Now()

	v.s.mu.Lock()
	v.s.nextUID++
	user.ID = v.s.nextUID
	v.s.mu.Unlock()

	stored := *user
	stored.Wallet = domain.Wallet{}
	v.u.users = append(v.u.users, stored)
	return nil
}

func (v *userView) GetUser(ctx context.Context, id uint) (*domain.User, error) {
	if v.u != nil {
		for _, usr := range v.u.users {
			if usr.ID == id {
				return v.withWallet(ctx, usr), nil
			}
		}
	}
	v.s.mu.RLock()
	usr, ok := v.s.users[id]
	v.s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return v.withWallet(ctx, usr), nil
}

func (v *userView) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	if v.u != nil {
		for _, usr := range v.u.users {
			if usr.Username == username {
				return v.withWallet(ctx, usr), nil
			}
		}
	}
	v.s.mu.RLock()
	id, ok := v.s.usernames[username]
	usr := v.s.users[id]
	v.s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return v.withWallet(ctx, usr), nil
}

// withWallet mirrors the SQL store's Preload("Wallet")
func (v *userView) withWallet(ctx context.Context, usr domain.User) *domain.User {
	wallets := &walletView{s: v.s, u: v.u}
	if w, err := wallets.GetWallet(ctx, usr.ID); err == nil {
		usr.Wallet = *w
	}
	return &usr
}
