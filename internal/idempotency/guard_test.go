package idempotency_test

import (
	"context"
	"testing"
	"time"

	"wallet_ledger/internal/domain"
	"wallet_ledger/internal/idempotency"
	"wallet_ledger/internal/store/memory"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGuard(t *testing.T, leases idempotency.LeaseStore, lease, wait time.Duration) *idempotency.Guard {
	t.Helper()
	log, _ := logtest.NewNullLogger()
	return idempotency.NewGuard(leases, lease, wait, log)
}

func TestFingerprint(t *testing.T) {
	a := idempotency.Fingerprint("deposit", "1", "20")
	assert.Len(t, a, 64)
	assert.Equal(t, a, idempotency.Fingerprint("deposit", "1", "20"))
	assert.NotEqual(t, a, idempotency.Fingerprint("deposit", "1", "21"))
	assert.NotEqual(t, a, idempotency.Fingerprint("withdraw", "1", "20"))
	// Parameter boundaries matter
	assert.NotEqual(t, idempotency.Fingerprint("x", "12", "3"), idempotency.Fingerprint("x", "1", "23"))
}

func TestCheckAndReserve(t *testing.T) {
	ctx := context.Background()
	records := memory.New("USD").Idempotency()
	guard := newGuard(t, idempotency.NewMemoryLeases(), time.Minute, 50*time.Millisecond)
	fp := idempotency.Fingerprint("deposit", "1", "20")

	prior, res, err := guard.CheckAndReserve(ctx, records, 1, "k1", domain.OperationDeposit, fp)
	require.NoError(t, err)
	assert.Nil(t, prior)
	require.NotNil(t, res)

	// A concurrent retry waits for the holder, then gives up
	_, _, err = guard.CheckAndReserve(ctx, records, 1, "k1", domain.OperationDeposit, fp)
	require.ErrorIs(t, err, domain.ErrOperationInProgress)
	assert.ErrorIs(t, err, domain.ErrConflict)

	// Another key of the same caller is independent
	_, other, err := guard.CheckAndReserve(ctx, records, 1, "k2", domain.OperationDeposit, fp)
	require.NoError(t, err)
	other.Release(ctx)

	require.NoError(t, res.Commit(ctx, records, "tx-1", `{"ok":true}`))
	res.Release(ctx)

	prior, res, err = guard.CheckAndReserve(ctx, records, 1, "k1", domain.OperationDeposit, fp)
	require.NoError(t, err)
	assert.Nil(t, res)
	require.NotNil(t, prior)
	assert.Equal(t, "tx-1", prior.TransactionID)
	assert.Equal(t, `{"ok":true}`, prior.Response)

	_, _, err = guard.CheckAndReserve(ctx, records, 1, "k1", domain.OperationDeposit, idempotency.Fingerprint("deposit", "1", "99"))
	require.ErrorIs(t, err, domain.ErrIdempotencyKeyReused)
	_, _, err = guard.CheckAndReserve(ctx, records, 1, "k1", domain.OperationTransfer, fp)
	require.ErrorIs(t, err, domain.ErrIdempotencyKeyReused)
}

func TestWaiterSeesHolderOutcome(t *testing.T) {
	ctx := context.Background()
	records := memory.New("USD").Idempotency()
	guard := newGuard(t, idempotency.NewMemoryLeases(), time.Minute, 2*time.Second)

	_, holder, err := guard.CheckAndReserve(ctx, records, 7, "k", domain.OperationWithdraw, "fp")
	require.NoError(t, err)

	done := make(chan *domain.IdempotencyRecord, 1)
	go func() {
		prior, _, err := guard.CheckAndReserve(ctx, records, 7, "k", domain.OperationWithdraw, "fp")
		assert.NoError(t, err)
		done <- prior
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, holder.Commit(ctx, records, "tx-9", "{}"))
	holder.Release(ctx)

	select {
	case prior := <-done:
		require.NotNil(t, prior)
		assert.Equal(t, "tx-9", prior.TransactionID)
	case <-time.After(3 * time.Second):
		t.Fatal("waiter never returned")
	}
}

func TestExpiredLeaseDoesNotBlockRetries(t *testing.T) {
	ctx := context.Background()
	records := memory.New("USD").Idempotency()
	guard := newGuard(t, idempotency.NewMemoryLeases(), 30*time.Millisecond, 10*time.Millisecond)

	// Holder crashes without releasing
	_, crashed, err := guard.CheckAndReserve(ctx, records, 1, "k", domain.OperationDeposit, "fp")
	require.NoError(t, err)
	require.NotNil(t, crashed)

	time.Sleep(50 * time.Millisecond)
	_, res, err := guard.CheckAndReserve(ctx, records, 1, "k", domain.OperationDeposit, "fp")
	require.NoError(t, err)
	require.NotNil(t, res)
	res.Release(ctx)
}

func TestCancelledWaitReturnsContextError(t *testing.T) {
	records := memory.New("USD").Idempotency()
	guard := newGuard(t, idempotency.NewMemoryLeases(), time.Minute, time.Second)

	_, _, err := guard.CheckAndReserve(context.Background(), records, 1, "k", domain.OperationDeposit, "fp")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err = guard.CheckAndReserve(ctx, records, 1, "k", domain.OperationDeposit, "fp")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRedisLeases(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	leases := idempotency.NewRedisLeases(client)
	ctx := context.Background()
	key := idempotency.LeaseKey(3, "k")

	ok, err := leases.Acquire(ctx, key, "owner", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = leases.Acquire(ctx, key, "intruder", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// Only the owner's token releases the lease
	require.NoError(t, leases.Release(ctx, key, "intruder"))
	assert.True(t, mr.Exists(key))
	require.NoError(t, leases.Release(ctx, key, "owner"))
	assert.False(t, mr.Exists(key))

	ok, err = leases.Acquire(ctx, key, "next", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	mr.FastForward(2 * time.Second)
	ok, err = leases.Acquire(ctx, key, "after-expiry", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGuardOverRedisReportsOutage(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	guard := newGuard(t, idempotency.NewRedisLeases(client), time.Minute, time.Second)
	records := memory.New("USD").Idempotency()

	mr.Close()
	_, _, err := guard.CheckAndReserve(context.Background(), records, 1, "k", domain.OperationDeposit, "fp")
	require.ErrorIs(t, err, domain.ErrUnavailable)
}
