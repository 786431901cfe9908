package kv

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/atelier/internal/dbx"
	"github.com/stretchr/testify/require"
)

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	require.NoError(t, err)
	return n > 0
}

func TestOpen_SQLiteFileRunsMigrations(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "atelier.db")

	h, err := Open(ctx, DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })

	require.Equal(t, dbx.SQLite, h.Dialect)
	require.True(t, tableExists(t, h.DB, "kv"))
	require.True(t, tableExists(t, h.DB, "goose_db_version"))

	require.NoError(t, h.Store.Set(ctx, "k", []byte("v")))
	require.NoError(t, h.Close())

	h2, err := Open(ctx, DriverSQLite, dsn)
	require.NoError(t, err, "reopening an up-to-date database must succeed")
	t.Cleanup(func() { _ = h2.Close() })

	v, err := h2.Store.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v"), v)
}

func TestOpen_MemoryAndUnknown(t *testing.T) {
	h, err := Open(context.Background(), DriverMemory, "")
	require.NoError(t, err)
	require.Nil(t, h.DB)
	require.IsType(t, &MemoryStore{}, h.Store)
	require.NoError(t, h.Close())

	_, err = Open(context.Background(), "redis", "")
	require.ErrorContains(t, err, `unknown store driver "redis"`)
}

func TestOpen_SQLOpenErrorIsWrapped(t *testing.T) {
	orig := sqlOpen
	sqlOpen = func(string, string) (*sql.DB, error) { return nil, errors.New("no driver") }
	t.Cleanup(func() { sqlOpen = orig })

	_, err := Open(context.Background(), DriverPostgres, "postgres://nowhere")
	require.ErrorContains(t, err, "open postgres: no driver")
}

func TestRunMigrations_UnknownDialect(t *testing.T) {
	require.Error(t, RunMigrations(context.Background(), nil, dbx.Dialect("oracle")))
}

func TestHandle_WithTx(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")

	sqliteHandle, err := Open(ctx, DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteHandle.Close() })

	memHandle, err := Open(ctx, DriverMemory, "")
	require.NoError(t, err)

	for name, h := range map[string]*Handle{"sqlite": sqliteHandle, "memory": memHandle} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, h.Store.Set(ctx, "keep", []byte("1")))

			err := h.WithTx(ctx, func(ctx context.Context, s Store) error {
				require.NoError(t, s.Set(ctx, "keep", []byte("2")))
				require.NoError(t, s.Set(ctx, "new", []byte("x")))
				return boom
			})
			require.ErrorIs(t, err, boom)

			v, err := h.Store.Get(ctx, "keep")
			require.NoError(t, err)
			require.Equal(t, []byte("1"), v, "failed tx must not leak writes")
			v, err = h.Store.Get(ctx, "new")
			require.NoError(t, err)
			require.Nil(t, v)

			require.NoError(t, h.WithTx(ctx, func(ctx context.Context, s Store) error {
				return s.Set(ctx, "new", []byte("y"))
			}))
			v, err = h.Store.Get(ctx, "new")
			require.NoError(t, err)
			require.Equal(t, []byte("y"), v)
		})
	}
}
