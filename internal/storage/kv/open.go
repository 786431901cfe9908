package kv

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/atelier/internal/dbx"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	_ "modernc.org/sqlite"             // registers the "sqlite" database/sql driver
)

// Supported store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Handle owns an opened backend. DB is nil for the memory driver.
type Handle struct {
	Store   Store
	DB      *sql.DB
	Dialect dbx.Dialect
	Driver  string
}

// Open connects to the backend named by driver, applies migrations and
// returns a ready Store.
func Open(ctx context.Context, driver, dsn string) (*Handle, error) {
	switch driver {
	case DriverMemory:
		return &Handle{Store: NewMemoryStore(), Driver: driver}, nil
	case DriverSQLite, "":
		if dsn == "" {
			dsn = "atelier.db"
		}
		return openSQL(ctx, DriverSQLite, "sqlite", dsn, dbx.SQLite)
	case DriverPostgres:
		return openSQL(ctx, DriverPostgres, "pgx", dsn, dbx.Postgres)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

func openSQL(ctx context.Context, driver, sqlDriver, dsn string, dialect dbx.Dialect) (*Handle, error) {
	openMu.Lock()
	db, err := sqlOpen(sqlDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if dialect == dbx.SQLite {
		// one writer; also keeps ":memory:" databases on a single connection
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	if err := RunMigrations(ctx, db, dialect); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Handle{Store: NewSQLStore(db, dialect), DB: db, Dialect: dialect, Driver: driver}, nil
}

// WithTx runs fn against a Store whose writes are applied atomically. For the
// memory driver the previous contents are restored when fn fails.
func (h *Handle) WithTx(ctx context.Context, fn func(ctx context.Context, s Store) error) error {
	if h.DB == nil {
		mem, ok := h.Store.(*MemoryStore)
		if !ok {
			return fn(ctx, h.Store)
		}
		before := mem.snapshot()
		if err := fn(ctx, mem); err != nil {
			mem.restore(before)
			return err
		}
		return nil
	}
	return dbx.WithTx(ctx, h.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, NewSQLStore(tx, h.Dialect))
	})
}

func (h *Handle) Close() error {
	if h.DB == nil {
		return nil
	}
	return h.DB.Close()
}
