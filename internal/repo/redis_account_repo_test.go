package repo

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniRedisRepo(t *testing.T) (*RedisAccountRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisAccountRepo(rdb, 1000), mr
}

func TestRedisCreateIsUnique(t *testing.T) {
	ctx := context.Background()
	r, mr := newMiniRedisRepo(t)

	a, err := r.Create(ctx, "alice", "hash-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, 1000.0, a.Balance)

	_, err = r.Create(ctx, "alice", "hash-2")
	require.ErrorIs(t, err, ErrAlreadyExists)

	hash, err := r.GetCredential(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "hash-1", hash)
	assert.Equal(t, "1000", mr.HGet(accountKey("alice"), "balance"))

	b, err := r.Create(ctx, "bob", "hash-3")
	require.NoError(t, err)
	assert.Equal(t, int64(2), b.ID)
}

func TestRedisMissingAccount(t *testing.T) {
	ctx := context.Background()
	r, _ := newMiniRedisRepo(t)

	_, err := r.GetCredential(ctx, "ghost")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = r.GetBalance(ctx, "ghost")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = r.ApplyDelta(ctx, "ghost", 0)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRedisApplyDelta(t *testing.T) {
	ctx := context.Background()
	r, mr := newMiniRedisRepo(t)
	_, err := r.Create(ctx, "alice", "h")
	require.NoError(t, err)

	_, err = r.ApplyDelta(ctx, "alice", -1500)
	require.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, "1000", mr.HGet(accountKey("alice"), "balance"))

	bal, err := r.ApplyDelta(ctx, "alice", 250)
	require.NoError(t, err)
	assert.Equal(t, 1250.0, bal)
	assert.Equal(t, "1250", mr.HGet(accountKey("alice"), "balance"))

	bal, err = r.ApplyDelta(ctx, "alice", -1250)
	require.NoError(t, err)
	assert.Equal(t, 0.0, bal)

	bal, err = r.GetBalance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0.0, bal)
}

func TestRedisWithdrawWholeFractionalBalance(t *testing.T) {
	ctx := context.Background()
	r, _ := newMiniRedisRepo(t)
	_, err := r.Create(ctx, "alice", "h")
	require.NoError(t, err)

	_, err = r.ApplyDelta(ctx, "alice", -999.882)
	require.NoError(t, err)
	bal, err := r.GetBalance(ctx, "alice")
	require.NoError(t, err)

	left, err := r.ApplyDelta(ctx, "alice", -bal)
	require.NoError(t, err)
	assert.Equal(t, 0.0, left)
}

func TestRedisApplyDeltaRejectsOverflow(t *testing.T) {
	ctx := context.Background()
	r, mr := newMiniRedisRepo(t)
	_, err := r.Create(ctx, "alice", "h")
	require.NoError(t, err)

	_, err = r.ApplyDelta(ctx, "alice", math.MaxFloat64)
	require.NoError(t, err)
	before := mr.HGet(accountKey("alice"), "balance")

	_, err = r.ApplyDelta(ctx, "alice", math.MaxFloat64)
	require.ErrorIs(t, err, ErrBalanceOutOfRange)
	assert.Equal(t, before, mr.HGet(accountKey("alice"), "balance"))
}

func TestRedisApplyDeltaCorruptBalance(t *testing.T) {
	ctx := context.Background()
	r, mr := newMiniRedisRepo(t)
	_, err := r.Create(ctx, "alice", "h")
	require.NoError(t, err)
	mr.HSet(accountKey("alice"), "balance", "lots")

	_, err = r.ApplyDelta(ctx, "alice", 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrInsufficientBalance)
}

func TestRedisConcurrentDebitsNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	r, _ := newMiniRedisRepo(t)
	_, err := r.Create(ctx, "alice", "h")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.ApplyDelta(ctx, "alice", -30); err != nil {
				assert.ErrorIs(t, err, ErrInsufficientBalance)
			}
		}()
	}
	wg.Wait()

	bal, err := r.GetBalance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 10.0, bal)
}
