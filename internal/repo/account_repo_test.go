package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	vals []any
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.vals) {
		return fmt.Errorf("scan: %d dest for %d values", len(dest), len(r.vals))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *int64:
			*p = r.vals[i].(int64)
		case *string:
			*p = r.vals[i].(string)
		case *float64:
			*p = r.vals[i].(float64)
		case *bool:
			*p = r.vals[i].(bool)
		case *time.Time:
			*p = r.vals[i].(time.Time)
		default:
			return fmt.Errorf("scan: unsupported dest %T", d)
		}
	}
	return nil
}

type fakeCall struct {
	sql  string
	args []any
}

// fakeDB answers QueryRow calls with rows in order.
type fakeDB struct {
	rows  []fakeRow
	calls []fakeCall
}

func (db *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	db.calls = append(db.calls, fakeCall{sql: sql, args: args})
	if len(db.rows) == 0 {
		return fakeRow{err: errors.New("unexpected query")}
	}
	row := db.rows[0]
	db.rows = db.rows[1:]
	return row
}

func TestPGCreate(t *testing.T) {
	now := time.Now()
	db := &fakeDB{rows: []fakeRow{{vals: []any{int64(7), "alice", "hash", 1000.0, now}}}}
	r := NewPGAccountRepo(db, 1000)

	a, err := r.Create(context.Background(), "alice", "hash")
	require.NoError(t, err)
	assert.Equal(t, int64(7), a.ID)
	assert.Equal(t, 1000.0, a.Balance)
	require.Len(t, db.calls, 1)
	assert.Equal(t, []any{"alice", "hash", 1000.0}, db.calls[0].args)
}

func TestPGCreateDuplicate(t *testing.T) {
	db := &fakeDB{rows: []fakeRow{{err: &pgconn.PgError{Code: "23505"}}}}
	r := NewPGAccountRepo(db, 1000)

	_, err := r.Create(context.Background(), "alice", "hash")
	require.ErrorIs(t, err, ErrAlreadyExists)
}

func TestPGGetBalanceNotFound(t *testing.T) {
	db := &fakeDB{rows: []fakeRow{{err: pgx.ErrNoRows}, {err: pgx.ErrNoRows}}}
	r := NewPGAccountRepo(db, 1000)

	_, err := r.GetBalance(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = r.GetCredential(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPGApplyDeltaIsOneConditionalStatement(t *testing.T) {
	db := &fakeDB{rows: []fakeRow{{vals: []any{1250.0}}}}
	r := NewPGAccountRepo(db, 1000)

	bal, err := r.ApplyDelta(context.Background(), "alice", 250)
	require.NoError(t, err)
	assert.Equal(t, 1250.0, bal)

	require.Len(t, db.calls, 1)
	sql := db.calls[0].sql
	assert.True(t, strings.Contains(sql, "UPDATE accounts"))
	assert.True(t, strings.Contains(sql, "balance + $2 >= 0"))
	assert.Equal(t, []any{"alice", 250.0}, db.calls[0].args)
}

func TestPGApplyDeltaClassifiesRejection(t *testing.T) {
	tests := []struct {
		name   string
		exists bool
		want   error
	}{
		{name: "insufficient", exists: true, want: ErrInsufficientBalance},
		{name: "missing", exists: false, want: ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &fakeDB{rows: []fakeRow{{err: pgx.ErrNoRows}, {vals: []any{tt.exists}}}}
			r := NewPGAccountRepo(db, 1000)

			_, err := r.ApplyDelta(context.Background(), "alice", -1500)
			require.ErrorIs(t, err, tt.want)
			require.Len(t, db.calls, 2)
			assert.Equal(t, queryAccountExists, db.calls[1].sql)
		})
	}
}

func TestPGApplyDeltaStoreError(t *testing.T) {
	boom := errors.New("connection reset")
	db := &fakeDB{rows: []fakeRow{{err: boom}}}
	r := NewPGAccountRepo(db, 1000)

	_, err := r.ApplyDelta(context.Background(), "alice", 10)
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrInsufficientBalance)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23514"}))
	assert.False(t, isUniqueViolation(errors.New("plain")))
}
