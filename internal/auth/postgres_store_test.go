package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rowFunc func(dest ...any) error

func (f rowFunc) Scan(dest ...any) error { return f(dest...) }

type fakeDB struct {
	sql  string
	args []any

	row     rowFunc
	tag     pgconn.CommandTag
	execErr error
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	f.sql, f.args = sql, args
	return f.row
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sql, f.args = sql, args
	return f.tag, f.execErr
}

func TestPostgresStore_GetByKey(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	db := &fakeDB{row: func(dest ...any) error {
		*dest[0].(*string) = "key-1"
		*dest[1].(*string) = "alice"
		*dest[2].(*string) = HashKey("raw")
		*dest[3].(*bool) = true
		*dest[4].(*time.Time) = created
		return nil
	}}

	k, err := NewPostgresStore(db).GetByKey(context.Background(), "raw")
	require.NoError(t, err)

	assert.Equal(t, &APIKey{ID: "key-1", Owner: "alice", KeyHash: HashKey("raw"), Active: true, CreatedAt: created}, k)
	assert.Equal(t, []any{HashKey("raw")}, db.args)
}

func TestPostgresStore_GetByKey_NotFound(t *testing.T) {
	db := &fakeDB{row: func(dest ...any) error { return pgx.ErrNoRows }}

	_, err := NewPostgresStore(db).GetByKey(context.Background(), "raw")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestPostgresStore_GetByKey_Error(t *testing.T) {
	db := &fakeDB{row: func(dest ...any) error { return errors.New("conn reset") }}

	_, err := NewPostgresStore(db).GetByKey(context.Background(), "raw")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrKeyNotFound)
}

func TestPostgresStore_Create(t *testing.T) {
	db := &fakeDB{row: func(dest ...any) error {
		*dest[0].(*string) = "key-9"
		*dest[1].(*time.Time) = time.Unix(100, 0)
		return nil
	}}
	k := &APIKey{Owner: "bob", KeyHash: "abc", Active: true}

	require.NoError(t, NewPostgresStore(db).Create(context.Background(), k))
	assert.Equal(t, "key-9", k.ID)
	assert.Equal(t, time.Unix(100, 0), k.CreatedAt)
	assert.Equal(t, []any{"bob", "abc", true}, db.args)
}

func TestPostgresStore_Create_RequiresHash(t *testing.T) {
	err := NewPostgresStore(&fakeDB{}).Create(context.Background(), &APIKey{Owner: "bob"})
	assert.Error(t, err)
}

func TestPostgresStore_Revoke(t *testing.T) {
	db := &fakeDB{tag: pgconn.NewCommandTag("UPDATE 1")}
	require.NoError(t, NewPostgresStore(db).Revoke(context.Background(), "key-1"))
	assert.Equal(t, []any{"key-1"}, db.args)

	db = &fakeDB{tag: pgconn.NewCommandTag("UPDATE 0")}
	assert.ErrorIs(t, NewPostgresStore(db).Revoke(context.Background(), "missing"), ErrKeyNotFound)

	db = &fakeDB{execErr: errors.New("db down")}
	assert.ErrorContains(t, NewPostgresStore(db).Revoke(context.Background(), "key-1"), "db down")
}

func TestPostgresStore_Migrate(t *testing.T) {
	db := &fakeDB{}
	require.NoError(t, NewPostgresStore(db).Migrate(context.Background()))
	assert.Contains(t, db.sql, "CREATE TABLE IF NOT EXISTS api_keys")
}
