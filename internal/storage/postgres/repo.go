// Package postgres implements the user store on Postgres using pgx v5. The
// batch upsert is a pgx.Batch of INSERT … ON CONFLICT statements sent inside
// one transaction.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"userload/internal/ddl"
	"userload/internal/etlerr"
	"userload/internal/records"
)

// Config holds Postgres repository configuration.
type Config struct {
	DSN   string // connection string for pgxpool
	Table string // target table, e.g. "public.users"
}

// Types are the Postgres column types for the users table.
var Types = ddl.Types{
	Identity: "BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY",
	Text:     "TEXT",
	Int:      "INTEGER",
}

// Repository is a Postgres-backed storage.Repository.
type Repository struct {
	pool  *pgxpool.Pool
	table string
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Repository{pool: pool, table: cfg.Table}, func() { pool.Close() }, nil
}

// ResetSchema drops and recreates the table in one transaction; Postgres DDL
// is transactional.
func (r *Repository) ResetSchema(ctx context.Context) error {
	create, err := CreateTableSQL(r.table)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, stmt := range []string{DropTableSQL(r.table), create} {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: reset schema: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

// UpsertBatch queues one upsert per user and sends them as a single batch in
// a transaction. Statements run in queue order.
func (r *Repository) UpsertBatch(ctx context.Context, users []records.User) (int64, error) {
	if len(users) == 0 {
		return 0, nil
	}
	n, err := r.upsert(ctx, users)
	if err != nil {
		return 0, classify(fmt.Errorf("postgres: %w", err))
	}
	return n, nil
}

func (r *Repository) upsert(ctx context.Context, users []records.User) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := UpsertSQL(r.table)
	b := &pgx.Batch{}
	for _, u := range users {
		b.Queue(q, u.Args()...)
	}
	br := tx.SendBatch(ctx, b)
	for i := range users {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return 0, fmt.Errorf("upsert row %d: %w", i+1, err)
		}
	}
	if err := br.Close(); err != nil {
		return 0, fmt.Errorf("close batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return int64(len(users)), nil
}

// DropTableSQL returns the idempotent drop statement.
func DropTableSQL(table string) string {
	return "DROP TABLE IF EXISTS " + ddl.QuoteFQN(table, pgIdent)
}

// CreateTableSQL renders the users table for Postgres.
func CreateTableSQL(table string) (string, error) {
	return ddl.BuildCreateTableSQL(ddl.UsersTable(table, Types), pgIdent)
}

// UpsertSQL inserts one user; on an email conflict it updates age and
// country only.
func UpsertSQL(table string) string {
	cols := make([]string, len(records.CanonicalColumns))
	ph := make([]string, len(records.CanonicalColumns))
	for i, c := range records.CanonicalColumns {
		cols[i] = pgIdent(c)
		ph[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		ddl.QuoteFQN(table, pgIdent),
		strings.Join(cols, ", "),
		strings.Join(ph, ", "),
		pgIdent(records.ColEmail),
		strings.Join(updateColumns([]string{records.ColAge, records.ColCountry}), ", "),
	)
}

// updateColumns generates "col = EXCLUDED.col" pairs.
func updateColumns(cols []string) []string {
	updates := make([]string, 0, len(cols))
	for _, col := range cols {
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", pgIdent(col), pgIdent(col)))
	}
	return updates
}

// classify tags SQLSTATE class 23 (integrity constraint violation) errors.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "23") {
		return fmt.Errorf("%w: %w", etlerr.ErrIntegrity, err)
	}
	return err
}

func pgIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }
