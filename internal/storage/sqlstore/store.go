// Package sqlstore implements the ledger store on database/sql, with
// SQLite (modernc.org/sqlite) and PostgreSQL (lib/pq) dialects. Schema
// changes are embedded migrations applied with golang-migrate.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"expenses/internal/storage"
)

var _ storage.Store = (*Store)(nil)

type Store struct {
	db      *sql.DB
	dialect Dialect
}

// sqlitePragmas are applied to every pooled SQLite connection.
const sqlitePragmas = "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// OpenSQLite opens (or creates) the database file at dbPath and migrates it.
func OpenSQLite(ctx context.Context, dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(SQLite, dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open(SQLite.DriverName(), dbPath+sqlitePragmas)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; a single connection also keeps every unit of
	// work on the same snapshot.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.InfoContext(ctx, "Opened SQLite ledger store", "path", dbPath)
	return &Store{db: db, dialect: SQLite}, nil
}

// OpenPostgres connects to dsn, sizes the pool and migrates the schema.
func OpenPostgres(ctx context.Context, dsn string, maxOpenConns int) (*Store, error) {
	if err := RunMigrations(Postgres, dsn); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open(Postgres.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxOpenConns)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.InfoContext(ctx, "Opened PostgreSQL ledger store", "max_open_conns", maxOpenConns)
	return &Store{db: db, dialect: Postgres}, nil
}

func (s *Store) Dialect() Dialect { return s.dialect }

func (s *Store) View(ctx context.Context, fn func(storage.ReadTx) error) error {
	dbTx, err := s.db.BeginTx(ctx, s.dialect.readOptions())
	if err != nil {
		return fmt.Errorf("begin read transaction: %w", err)
	}
	defer dbTx.Rollback()

	if err := fn(&queryTx{ctx: ctx, tx: dbTx, dialect: s.dialect}); err != nil {
		return err
	}
	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit read transaction: %w", err)
	}
	return nil
}

// Update runs fn in one database transaction. The revision bump comes
// first so concurrent writers queue on the ledger_meta row lock.
func (s *Store) Update(ctx context.Context, fn func(storage.Tx) error) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	q := &queryTx{ctx: ctx, tx: dbTx, dialect: s.dialect}
	if _, err := q.exec(`UPDATE ledger_meta SET revision = revision + 1 WHERE id = 1`); err != nil {
		return fmt.Errorf("bump revision: %w", err)
	}

	if err := fn(q); err != nil {
		return err
	}
	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
