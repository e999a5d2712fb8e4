// Package sqlite implements the user store on SQLite via database/sql and the
// pure-Go modernc.org/sqlite driver. It is the default backend.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"userload/internal/ddl"
	"userload/internal/etlerr"
	"userload/internal/records"
	"userload/internal/storage"
)

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// DSN is a file path or URI, e.g. "users.db", "file:users.db?_pragma=busy_timeout(5000)"
	// or ":memory:".
	DSN string
	// Table is the target table name.
	Table string
}

// Types are the SQLite column types for the users table.
var Types = ddl.Types{
	Identity: "INTEGER PRIMARY KEY AUTOINCREMENT",
	Text:     "TEXT",
	Int:      "INTEGER",
}

// Repository is a SQLite-backed storage.Repository.
type Repository struct {
	db    *sql.DB
	table string
}

// Open opens a SQLite handle limited to one connection. A :memory: database
// lives per connection, and SQLite serialises writers anyway.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// New wraps an already open handle.
func New(db *sql.DB, table string) *Repository {
	if table == "" {
		table = storage.DefaultTable
	}
	return &Repository{db: db, table: table}
}

// NewRepository opens cfg.DSN, pings it and returns the repository plus its
// cleanup function.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	db, err := Open(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite: open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return New(db, cfg.Table), func() { _ = db.Close() }, nil
}

// ResetSchema drops and recreates the table in one transaction.
func (r *Repository) ResetSchema(ctx context.Context) error {
	create, err := CreateTableSQL(r.table)
	if err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin tx: %w", err)
	}
	for _, stmt := range []string{DropTableSQL(r.table), create} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("sqlite: reset schema: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

// UpsertBatch applies users in one transaction with INSERT … ON CONFLICT.
func (r *Repository) UpsertBatch(ctx context.Context, users []records.User) (int64, error) {
	n, err := storage.ExecBatch(ctx, r.db, UpsertSQL(r.table), users)
	if err != nil {
		return 0, classify(fmt.Errorf("sqlite: %w", err))
	}
	return n, nil
}

// DropTableSQL returns the idempotent drop statement.
func DropTableSQL(table string) string {
	return "DROP TABLE IF EXISTS " + ddl.QuoteFQN(table, sqlIdent)
}

// CreateTableSQL renders the users table for SQLite.
func CreateTableSQL(table string) (string, error) {
	return ddl.BuildCreateTableSQL(ddl.UsersTable(table, Types), sqlIdent)
}

// UpsertSQL inserts one user; on an email conflict it updates age and
// country only.
func UpsertSQL(table string) string {
	cols := make([]string, len(records.CanonicalColumns))
	ph := make([]string, len(records.CanonicalColumns))
	for i, c := range records.CanonicalColumns {
		cols[i] = sqlIdent(c)
		ph[i] = "?"
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(%s) DO UPDATE SET %s = excluded.%s, %s = excluded.%s",
		ddl.QuoteFQN(table, sqlIdent),
		strings.Join(cols, ", "),
		strings.Join(ph, ", "),
		sqlIdent(records.ColEmail),
		sqlIdent(records.ColAge), sqlIdent(records.ColAge),
		sqlIdent(records.ColCountry), sqlIdent(records.ColCountry),
	)
}

// classify tags constraint violations (primary result code
// SQLITE_CONSTRAINT, any extended code) as integrity errors.
func classify(err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		return fmt.Errorf("%w: %w", etlerr.ErrIntegrity, err)
	}
	return err
}

func sqlIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }
