package utils

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	token, err := GenerateJWT(42, "secret")
	require.NoError(t, err)

	claims, err := ParseJWT(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.AccountID)
	assert.WithinDuration(t, time.Now().Add(TokenTTL), claims.ExpiresAt.Time, time.Minute)

	_, err = ParseJWT(token, "other")
	assert.Error(t, err)
}

func TestParseJWTRejectsExpiredAndForeignTokens(t *testing.T) {
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		AccountID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	signed, err := expired.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = ParseJWT(signed, "secret")
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	noAccount := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{})
	signed, err = noAccount.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = ParseJWT(signed, "secret")
	assert.Error(t, err)

	hs512 := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{AccountID: 1})
	signed, err = hs512.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = ParseJWT(signed, "secret")
	assert.Error(t, err)
}

func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewRedisCache(client)
	ctx := context.Background()

	type entry struct {
		Balance string `json:"balance"`
	}
	var got entry
	found, err := cache.Get(ctx, "wallet:user:1", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, cache.Set(ctx, "wallet:user:1", entry{Balance: "10.5"}, time.Minute))
	found, err = cache.Get(ctx, "wallet:user:1", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "10.5", got.Balance)

	mr.FastForward(2 * time.Minute)
	found, err = cache.Get(ctx, "wallet:user:1", &got)
	require.NoError(t, err)
	assert.False(t, found)

	for _, key := range []string{"txhistory:user:1:page:1:size:20", "txhistory:user:1:page:2:size:20", "txhistory:user:12:page:1:size:20"} {
		require.NoError(t, cache.Set(ctx, key, entry{}, time.Minute))
	}
	require.NoError(t, cache.DeletePrefix(ctx, "txhistory:user:1:"))
	assert.False(t, mr.Exists("txhistory:user:1:page:1:size:20"))
	assert.False(t, mr.Exists("txhistory:user:1:page:2:size:20"))
	assert.True(t, mr.Exists("txhistory:user:12:page:1:size:20"))

	require.NoError(t, cache.Delete(ctx))
}

func TestNopCache(t *testing.T) {
	var c Cache = NopCache{}
	require.NoError(t, c.Set(context.Background(), "k", 1, time.Minute))
	found, err := c.Get(context.Background(), "k", new(int))
	require.NoError(t, err)
	assert.False(t, found)
}
