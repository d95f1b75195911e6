package memory_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"wallet_ledger/internal/domain"
	"wallet_ledger/internal/store/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func openAccount(t *testing.T, s *memory.Store, username string) *domain.Wallet {
	t.Helper()
	ctx := context.Background()
	var wallet *domain.Wallet
	err := s.Atomic(ctx, func(u domain.Unit) error {
		user := &domain.User{Username: username}
		if err := u.Users().CreateUser(ctx, user); err != nil {
			return err
		}
		w, err := u.Wallets().CreateWallet(ctx, user.ID)
		wallet = w
		return err
	})
	require.NoError(t, err)
	return wallet
}

func TestUnitWritesAreInvisibleUntilCommit(t *testing.T) {
	s := memory.New("")
	ctx := context.Background()
	wallet := openAccount(t, s, "alice")
	assert.Equal(t, domain.DefaultCurrency, wallet.Currency)

	err := s.Atomic(ctx, func(u domain.Unit) error {
		updated, err := u.Wallets().AdjustBalance(ctx, wallet.ID, d("25"), wallet.Version)
		require.NoError(t, err)

		// The unit sees its own write, committed readers do not
		inUnit, err := u.Wallets().GetWallet(ctx, wallet.UserID)
		require.NoError(t, err)
		assert.True(t, inUnit.Balance.Equal(d("25")))
		outside, err := s.Wallets().GetWallet(ctx, wallet.UserID)
		require.NoError(t, err)
		assert.True(t, outside.Balance.IsZero())

		// Chained adjustments within one unit use the staged version
		_, err = u.Wallets().AdjustBalance(ctx, wallet.ID, d("-5"), updated.Version)
		return err
	})
	require.NoError(t, err)

	committed, err := s.Wallets().GetWalletByID(ctx, wallet.ID)
	require.NoError(t, err)
	assert.True(t, committed.Balance.Equal(d("20")))
	assert.Equal(t, int64(3), committed.Version)
}

func TestFailedUnitIsDiscarded(t *testing.T) {
	s := memory.New("USD")
	ctx := context.Background()
	wallet := openAccount(t, s, "alice")
	boom := errors.New("boom")

	err := s.Atomic(ctx, func(u domain.Unit) error {
		if _, err := u.Wallets().AdjustBalance(ctx, wallet.ID, d("10"), wallet.Version); err != nil {
			return err
		}
		if _, err := u.Transactions().Append(ctx, &domain.Transaction{
			Type:       domain.TransactionTypeDeposit,
			Status:     domain.TransactionStatusCompleted,
			Amount:     d("10"),
			ToWalletID: &wallet.ID,
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	committed, err := s.Wallets().GetWalletByID(ctx, wallet.ID)
	require.NoError(t, err)
	assert.True(t, committed.Balance.IsZero())
	_, total, err := s.Transactions().ListByWallet(ctx, wallet.ID, 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestCommitRejectsStaleWallet(t *testing.T) {
	s := memory.New("USD")
	ctx := context.Background()
	wallet := openAccount(t, s, "alice")

	err := s.Atomic(ctx, func(u domain.Unit) error {
		if _, err := u.Wallets().AdjustBalance(ctx, wallet.ID, d("10"), wallet.Version); err != nil {
			return err
		}
		// A competing unit commits first
		_, err := s.Wallets().AdjustBalance(ctx, wallet.ID, d("1"), wallet.Version)
		require.NoError(t, err)
		return nil
	})
	require.ErrorIs(t, err, domain.ErrVersionMismatch)

	committed, err := s.Wallets().GetWalletByID(ctx, wallet.ID)
	require.NoError(t, err)
	assert.True(t, committed.Balance.Equal(d("1")))
}

func TestAdjustBalanceRules(t *testing.T) {
	s := memory.New("USD")
	ctx := context.Background()
	wallet := openAccount(t, s, "alice")

	_, err := s.Wallets().AdjustBalance(ctx, wallet.ID, d("-0.0001"), wallet.Version)
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	_, err = s.Wallets().AdjustBalance(ctx, wallet.ID, d("1"), wallet.Version+1)
	require.ErrorIs(t, err, domain.ErrConflict)

	_, err = s.Wallets().AdjustBalance(ctx, 404, d("1"), 1)
	require.ErrorIs(t, err, domain.ErrWalletNotFound)

	_, err = s.Wallets().AdjustBalance(ctx, wallet.ID, d("9999999999999999.9999"), wallet.Version)
	require.NoError(t, err)
	_, err = s.Wallets().AdjustBalance(ctx, wallet.ID, d("0.0001"), wallet.Version+1)
	require.ErrorIs(t, err, domain.ErrBalanceLimit)
}

func TestListByWalletBounds(t *testing.T) {
	s := memory.New("USD")
	ctx := context.Background()
	wallet := openAccount(t, s, "alice")
	_, err := s.Transactions().Append(ctx, &domain.Transaction{
		Type:       domain.TransactionTypeDeposit,
		Status:     domain.TransactionStatusCompleted,
		Amount:     d("10"),
		ToWalletID: &wallet.ID,
	})
	require.NoError(t, err)

	page, total, err := s.Transactions().ListByWallet(ctx, wallet.ID, math.MaxInt, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Empty(t, page)

	_, _, err = s.Transactions().ListByWallet(ctx, wallet.ID, -10, 10)
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestDuplicates(t *testing.T) {
	s := memory.New("USD")
	ctx := context.Background()
	wallet := openAccount(t, s, "alice")

	_, err := s.Wallets().CreateWallet(ctx, wallet.UserID)
	require.ErrorIs(t, err, domain.ErrDuplicate)

	err = s.Users().CreateUser(ctx, &domain.User{Username: "alice"})
	require.ErrorIs(t, err, domain.ErrDuplicate)

	key := "k"
	tx := func() *domain.Transaction {
		return &domain.Transaction{
			Type:            domain.TransactionTypeDeposit,
			Status:          domain.TransactionStatusCompleted,
			Amount:          d("1"),
			ToWalletID:      &wallet.ID,
			CallerAccountID: wallet.UserID,
			IdempotencyKey:  &key,
		}
	}
	_, err = s.Transactions().Append(ctx, tx())
	require.NoError(t, err)
	_, err = s.Transactions().Append(ctx, tx())
	require.ErrorIs(t, err, domain.ErrDuplicate)

	record := &domain.IdempotencyRecord{CallerAccountID: 1, Key: "k", Operation: domain.OperationDeposit}
	require.NoError(t, s.Idempotency().SaveRecord(ctx, record))
	err = s.Idempotency().SaveRecord(ctx, &domain.IdempotencyRecord{CallerAccountID: 1, Key: "k"})
	require.ErrorIs(t, err, domain.ErrDuplicate)

	found, err := s.Idempotency().FindRecord(ctx, 1, "k")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, domain.OperationDeposit, found.Operation)
	missing, err := s.Idempotency().FindRecord(ctx, 2, "k")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUsersCarryTheirWallet(t *testing.T) {
	s := memory.New("USD")
	ctx := context.Background()
	wallet := openAccount(t, s, "alice")

	user, err := s.Users().GetUser(ctx, wallet.UserID)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.Equal(t, wallet.ID, user.Wallet.ID)

	byName, err := s.Users().GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)

	_, err = s.Users().GetUser(ctx, 404)
	require.ErrorIs(t, err, domain.ErrUserNotFound)
	_, err = s.Users().GetUserByUsername(ctx, "nobody")
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestCancelledContextRunsNothing(t *testing.T) {
	s := memory.New("USD")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.Atomic(ctx, func(u domain.Unit) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
