package repo

import (
	"context"
	"errors"
	"fmt"

	dom "Ledger/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// AccountRepo provides account persistence.
//
// ApplyDelta must be a single atomic step with respect to any other
// ApplyDelta on the same username: read, check current+delta >= 0, write.
type AccountRepo interface {
	Create(ctx context.Context, username, passwordHash string) (dom.Account, error)
	GetCredential(ctx context.Context, username string) (string, error)
	GetBalance(ctx context.Context, username string) (float64, error)
	ApplyDelta(ctx context.Context, username string, delta float64) (float64, error)
}

// DBTX is the subset of *pgxpool.Pool used by PGAccountRepo.
type DBTX interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	queryInsertAccount = `
		INSERT INTO accounts (username, password_hash, balance)
		VALUES ($1, $2, $3)
		RETURNING id, username, password_hash, balance, created_at`

	querySelectCredential = `SELECT password_hash FROM accounts WHERE username = $1`

	querySelectBalance = `SELECT balance FROM accounts WHERE username = $1`

	// The predicate and the write are one statement, so Postgres row locking
	// linearizes concurrent deltas on the same username.
	queryApplyDelta = `
		UPDATE accounts
		SET balance = balance + $2
		WHERE username = $1 AND balance + $2 >= 0
		RETURNING balance`

	queryAccountExists = `SELECT EXISTS (SELECT 1 FROM accounts WHERE username = $1)`
)

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pge *pgconn.PgError
	return errors.As(err, &pge) && pge.Code == pgUniqueViolation
}

// PGAccountRepo implements AccountRepo with Postgres.
type PGAccountRepo struct {
	db             DBTX
	defaultBalance float64
}

// NewPGAccountRepo returns a new PGAccountRepo.
func NewPGAccountRepo(db DBTX, defaultBalance float64) *PGAccountRepo {
	return &PGAccountRepo{db: db, defaultBalance: defaultBalance}
}

// Create inserts a new account and returns it.
func (r *PGAccountRepo) Create(ctx context.Context, username, passwordHash string) (dom.Account, error) {
	var a dom.Account
	err := r.db.QueryRow(ctx, queryInsertAccount, username, passwordHash, r.defaultBalance).Scan(
		&a.ID, &a.Username, &a.PasswordHash, &a.Balance, &a.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return dom.Account{}, ErrAlreadyExists
		}
		return dom.Account{}, fmt.Errorf("insert account: %w", err)
	}
	return a, nil
}

// GetCredential returns the stored password hash for username.
func (r *PGAccountRepo) GetCredential(ctx context.Context, username string) (string, error) {
	var hash string
	if err := r.db.QueryRow(ctx, querySelectCredential, username).Scan(&hash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("select credential: %w", err)
	}
	return hash, nil
}

// GetBalance returns the current balance for username.
func (r *PGAccountRepo) GetBalance(ctx context.Context, username string) (float64, error) {
	var balance float64
	if err := r.db.QueryRow(ctx, querySelectBalance, username).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("select balance: %w", err)
	}
	return balance, nil
}

// ApplyDelta adds delta to the balance in one conditional UPDATE.
// When no row is updated the account is probed to tell a missing account
// from an insufficient balance; accounts are never deleted, so the probe
// cannot disagree with the rejected update.
func (r *PGAccountRepo) ApplyDelta(ctx context.Context, username string, delta float64) (float64, error) {
	var balance float64
	err := r.db.QueryRow(ctx, queryApplyDelta, username, delta).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("apply delta: %w", err)
	}

	var exists bool
	if err := r.db.QueryRow(ctx, queryAccountExists, username).Scan(&exists); err != nil {
		return 0, fmt.Errorf("probe account: %w", err)
	}
	if !exists {
		return 0, ErrNotFound
	}
	return 0, ErrInsufficientBalance
}
