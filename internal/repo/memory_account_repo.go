package repo

import (
	"context"
	"sync"
	"time"

	dom "Ledger/internal/domain"
	"Ledger/internal/utils"
)

// MemoryAccountRepo implements AccountRepo in process memory.
// Each account carries its own mutex, so deltas on different usernames
// never wait on each other.
type MemoryAccountRepo struct {
	mu             sync.RWMutex
	accounts       map[string]*memoryAccount
	nextID         int64
	defaultBalance float64
}

type memoryAccount struct {
	mu   sync.Mutex
	data dom.Account
}

// NewMemoryAccountRepo returns an empty MemoryAccountRepo.
func NewMemoryAccountRepo(defaultBalance float64) *MemoryAccountRepo {
	return &MemoryAccountRepo{
		accounts:       make(map[string]*memoryAccount),
		defaultBalance: defaultBalance,
	}
}

// Create inserts a new account; the existence check and the insert happen
// under the same write lock.
func (r *MemoryAccountRepo) Create(_ context.Context, username, passwordHash string) (dom.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[username]; ok {
		return dom.Account{}, ErrAlreadyExists
	}
	r.nextID++
	a := dom.Account{
		ID:           r.nextID,
		Username:     username,
		PasswordHash: passwordHash,
		Balance:      r.defaultBalance,
		CreatedAt:    time.Now().UTC(),
	}
	r.accounts[username] = &memoryAccount{data: a}
	return a, nil
}

// GetCredential returns the stored password hash for username.
func (r *MemoryAccountRepo) GetCredential(_ context.Context, username string) (string, error) {
	a, ok := r.lookup(username)
	if !ok {
		return "", ErrNotFound
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.data.PasswordHash, nil
}

// GetBalance returns the current balance for username.
func (r *MemoryAccountRepo) GetBalance(_ context.Context, username string) (float64, error) {
	a, ok := r.lookup(username)
	if !ok {
		return 0, ErrNotFound
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.data.Balance, nil
}

// ApplyDelta checks and writes the new balance while holding the account lock.
func (r *MemoryAccountRepo) ApplyDelta(_ context.Context, username string, delta float64) (float64, error) {
	a, ok := r.lookup(username)
	if !ok {
		return 0, ErrNotFound
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	next := a.data.Balance + delta
	if !utils.IsFinite(next) {
		return 0, ErrBalanceOutOfRange
	}
	if next < 0 {
		return 0, ErrInsufficientBalance
	}
	a.data.Balance = next
	return next, nil
}

func (r *MemoryAccountRepo) lookup(username string) (*memoryAccount, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[username]
	return a, ok
}
