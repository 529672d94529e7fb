package repo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	dom "Ledger/internal/domain"

	"github.com/redis/go-redis/v9"
)

const accountKeyPrefix = "account:"

const (
	deltaNotFound     = 0
	deltaInsufficient = 1
	deltaApplied      = 2
	deltaOutOfRange   = 3
)

// createScript writes every field of a new account or nothing at all.
var createScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
local id = redis.call('INCR', KEYS[2])
redis.call('HSET', KEYS[1], 'id', id, 'password_hash', ARGV[1], 'balance', ARGV[2], 'created_at', ARGV[3])
return id
`)

// deltaScript runs as one Redis command, so no other client observes the
// account between the balance check and the write. The stored value is the
// one that was checked, so HINCRBYFLOAT (long double) is not used here.
var deltaScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'balance')
if not cur then
	return {0, '0'}
end
local nb = tonumber(cur) + tonumber(ARGV[1])
if nb ~= nb or nb == math.huge or nb == -math.huge then
	return {3, cur}
end
if nb < 0 then
	return {1, cur}
end
local out = string.format('%.17g', nb)
redis.call('HSET', KEYS[1], 'balance', out)
return {2, out}
`)

// RedisAccountRepo implements AccountRepo with a Redis hash per account.
type RedisAccountRepo struct {
	rdb            *redis.Client
	defaultBalance float64
}

// NewRedisAccountRepo returns a new RedisAccountRepo.
func NewRedisAccountRepo(rdb *redis.Client, defaultBalance float64) *RedisAccountRepo {
	return &RedisAccountRepo{rdb: rdb, defaultBalance: defaultBalance}
}

// Create stores a new account hash unless the username is taken.
func (r *RedisAccountRepo) Create(ctx context.Context, username, passwordHash string) (dom.Account, error) {
	now := time.Now().UTC()
	id, err := createScript.Run(ctx, r.rdb,
		[]string{accountKey(username), accountKeyPrefix + "seq"},
		passwordHash, formatAmount(r.defaultBalance), now.Format(time.RFC3339Nano),
	).Int64()
	if err != nil {
		return dom.Account{}, fmt.Errorf("create account: %w", err)
	}
	if id == 0 {
		return dom.Account{}, ErrAlreadyExists
	}
	return dom.Account{
		ID:           id,
		Username:     username,
		PasswordHash: passwordHash,
		Balance:      r.defaultBalance,
		CreatedAt:    now,
	}, nil
}

// GetCredential returns the stored password hash for username.
func (r *RedisAccountRepo) GetCredential(ctx context.Context, username string) (string, error) {
	hash, err := r.rdb.HGet(ctx, accountKey(username), "password_hash").Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get credential: %w", err)
	}
	return hash, nil
}

// GetBalance returns the current balance for username.
func (r *RedisAccountRepo) GetBalance(ctx context.Context, username string) (float64, error) {
	balance, err := r.rdb.HGet(ctx, accountKey(username), "balance").Float64()
	if errors.Is(err, redis.Nil) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return balance, nil
}

// ApplyDelta runs deltaScript against the account hash.
func (r *RedisAccountRepo) ApplyDelta(ctx context.Context, username string, delta float64) (float64, error) {
	res, err := deltaScript.Run(ctx, r.rdb, []string{accountKey(username)}, formatAmount(delta)).Slice()
	if err != nil {
		return 0, fmt.Errorf("apply delta: %w", err)
	}
	if len(res) != 2 {
		return 0, fmt.Errorf("apply delta: unexpected reply %v", res)
	}
	status, _ := res[0].(int64)
	switch status {
	case deltaNotFound:
		return 0, ErrNotFound
	case deltaInsufficient:
		return 0, ErrInsufficientBalance
	case deltaOutOfRange:
		return 0, ErrBalanceOutOfRange
	case deltaApplied:
		s, _ := res[1].(string)
		balance, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("apply delta: parse balance %q: %w", s, err)
		}
		return balance, nil
	default:
		return 0, fmt.Errorf("apply delta: unknown status %d", status)
	}
}

func accountKey(username string) string {
	return accountKeyPrefix + "user:" + username
}

// formatAmount renders without an exponent so Lua tonumber reads it back
// exactly.
func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
