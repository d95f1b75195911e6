package ledger_test

import (
	"context"
	"math"
	"testing"

	"wallet_ledger/internal/domain"
	"wallet_ledger/internal/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedReports builds: alice deposits 100, bob deposits 50, alice sends bob 30
func seedReports(t *testing.T) (*fixture, uint, uint) {
	t.Helper()
	f := newFixture(t)
	a := f.open(t, "alice", "100")
	b := f.open(t, "bob", "50")
	_, err := f.engine.Transfer(context.Background(), ledger.TransferRequest{FromAccountID: a, ToAccountID: b, Amount: d("30")})
	require.NoError(t, err)
	return f, a, b
}

func TestTopTransactions(t *testing.T) {
	f, a, b := seedReports(t)
	ctx := context.Background()

	all, err := f.engine.TopTransactions(ctx, nil, 2)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.True(t, all[0].Amount.Equal(d("100")))
	assert.True(t, all[1].Amount.Equal(d("50")))

	forB, err := f.engine.TopTransactions(ctx, &b, 10)
	require.NoError(t, err)
	require.Len(t, forB, 2)
	assert.True(t, forB[0].Amount.Equal(d("50")))
	assert.Equal(t, domain.TransactionTypeTransfer, forB[1].Type)

	forA, err := f.engine.TopTransactions(ctx, &a, 0)
	require.NoError(t, err)
	assert.Len(t, forA, 2)

	unknown := uint(999)
	none, err := f.engine.TopTransactions(ctx, &unknown, 10)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestTopTransactionsBreaksTiesByNewest(t *testing.T) {
	f := newFixture(t)
	a := f.open(t, "alice", "0")
	var ids []string
	for i := 0; i < 3; i++ {
		res, err := f.engine.Deposit(context.Background(), ledger.DepositRequest{AccountID: a, Amount: d("10")})
		require.NoError(t, err)
		ids = append(ids, res.Transaction.ID)
	}

	top, err := f.engine.TopTransactions(context.Background(), &a, 10)
	require.NoError(t, err)
	require.Len(t, top, 3)
	for i := 1; i < len(top); i++ {
		assert.False(t, top[i].CreatedAt.After(top[i-1].CreatedAt))
	}
	assert.ElementsMatch(t, ids, []string{top[0].ID, top[1].ID, top[2].ID})
}

func TestTopAccountsByVolumeCountsTransfersForBothParties(t *testing.T) {
	f, a, b := seedReports(t)
	f.open(t, "carol", "0")

	rows, err := f.engine.TopAccountsByVolume(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, a, rows[0].AccountID)
	assert.Equal(t, "alice", rows[0].Username)
	assert.True(t, rows[0].TotalVolume.Equal(d("130")))
	assert.Equal(t, int64(2), rows[0].TransactionCount)

	assert.Equal(t, b, rows[1].AccountID)
	assert.True(t, rows[1].TotalVolume.Equal(d("80")))
	assert.Equal(t, int64(2), rows[1].TransactionCount)

	limited, err := f.engine.TopAccountsByVolume(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestTopAccountsByVolumeBreaksTiesByAccountID(t *testing.T) {
	f := newFixture(t)
	first := f.open(t, "zed", "25")
	second := f.open(t, "amy", "25")

	rows, err := f.engine.TopAccountsByVolume(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, first, rows[0].AccountID)
	assert.Equal(t, second, rows[1].AccountID)
}

func TestHistoryPagination(t *testing.T) {
	f := newFixture(t)
	a := f.open(t, "alice", "0")
	for i := 0; i < 25; i++ {
		_, err := f.engine.Deposit(context.Background(), ledger.DepositRequest{AccountID: a, Amount: d("1")})
		require.NoError(t, err)
	}

	tests := []struct {
		name               string
		page, size         int
		wantLen            int
		wantPage, wantSize int
		wantPages          int
	}{
		{"first page", 1, 10, 10, 1, 10, 3},
		{"last page", 3, 10, 5, 3, 10, 3},
		{"past the end", 9, 10, 0, 9, 10, 3},
		{"defaults", 0, 0, 20, 1, ledger.DefaultPageSize, 2},
		{"size capped", 1, 1000, 25, 1, ledger.MaxPageSize, 1},
		{"page beyond addressable offsets", math.MaxInt/100 + 2, 100, 0, math.MaxInt/100 + 2, 100, 1},
		{"largest page", math.MaxInt, 10, 0, math.MaxInt, 10, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := f.engine.History(context.Background(), a, tt.page, tt.size)
			require.NoError(t, err)
			assert.Len(t, h.Transactions, tt.wantLen)
			assert.Equal(t, tt.wantPage, h.Page)
			assert.Equal(t, tt.wantSize, h.PageSize)
			assert.Equal(t, tt.wantPages, h.TotalPages)
			assert.Equal(t, int64(25), h.Total)
			for i := 1; i < len(h.Transactions); i++ {
				assert.False(t, h.Transactions[i].CreatedAt.After(h.Transactions[i-1].CreatedAt))
			}
		})
	}

	_, err := f.engine.History(context.Background(), 404, 1, 10)
	require.ErrorIs(t, err, domain.ErrWalletNotFound)
}
