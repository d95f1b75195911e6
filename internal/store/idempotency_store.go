package store

import (
	"context" // Request scoped cancellation
	"errors"  // Error inspection
	"fmt"     // Error formatting

	"wallet_ledger/internal/domain" // Domain models and ports

	"gorm.io/gorm" // GORM ORM library
)

// idempotencyStore persists completed keyed requests
type idempotencyStore struct {
	db *gorm.DB // Pool or open transaction
}

func (s *idempotencyStore) FindRecord(ctx context.Context, callerAccountID uint, key string) (*domain.IdempotencyRecord, error) {
	var record domain.IdempotencyRecord // Completed request, if any
	err := s.db.WithContext(ctx).
		Where("caller_account_id = ? AND idempotency_key = ?", callerAccountID, key).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // Key never completed
		}
		return nil, domain.Unavailable("find idempotency record", err)
	}
	return &record, nil
}

// SaveRecord relies on the (caller, key) unique index as the final compare-and-swap
func (s *idempotencyStore) SaveRecord(ctx context.Context, record *domain.IdempotencyRecord) error {
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		// Another request committed the key first
		if isDuplicateKey(err) {
			return fmt.Errorf("%w: idempotency key %q", domain.ErrDuplicate, record.Key)
		}
		return domain.Unavailable("save idempotency record", err)
	}
	return nil
}
