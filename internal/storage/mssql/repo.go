// Package mssql implements the user store on Microsoft SQL Server using
// go-mssqldb. Each user is applied with a MERGE … WITH (HOLDLOCK) so the
// match-then-insert is race free.
package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"userload/internal/ddl"
	"userload/internal/etlerr"
	"userload/internal/records"
	"userload/internal/storage"
)

// Config holds MSSQL repository configuration.
type Config struct {
	DSN   string
	Table string
}

// Types are the SQL Server column types. A UNIQUE index needs a bounded
// NVARCHAR; email also gets a binary collation since the usual server
// default (SQL_Latin1_General_CP1_CI_AS) ignores case.
var Types = ddl.Types{
	Identity: "INT IDENTITY(1,1) PRIMARY KEY",
	Text:     "NVARCHAR(255)",
	Int:      "INT",
	Email:    "NVARCHAR(254) COLLATE Latin1_General_100_BIN2",
}

// Error numbers treated as integrity failures.
var integrityErrors = map[int32]bool{
	515:  true, // cannot insert NULL
	547:  true, // constraint conflict (FK / CHECK)
	2601: true, // duplicate key row in unique index
	2627: true, // unique/PK constraint violation
}

// Repository is an MSSQL-backed storage.Repository.
type Repository struct {
	db    *sql.DB
	table string
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, nil, fmt.Errorf("mssql dsn: %w", err)
	}
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sql.Open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}
	return &Repository{db: db, table: cfg.Table}, func() { _ = db.Close() }, nil
}

// ResetSchema drops and recreates the table in one transaction.
func (r *Repository) ResetSchema(ctx context.Context) error {
	create, err := CreateTableSQL(r.table)
	if err != nil {
		return fmt.Errorf("mssql: %w", err)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("mssql: begin tx: %w", err)
	}
	for _, stmt := range []string{DropTableSQL(r.table), create} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("mssql: reset schema: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("mssql: commit: %w", err)
	}
	return nil
}

// UpsertBatch applies users in one transaction, one MERGE per user.
func (r *Repository) UpsertBatch(ctx context.Context, users []records.User) (int64, error) {
	n, err := storage.ExecBatch(ctx, r.db, MergeSQL(r.table), users)
	if err != nil {
		return 0, classify(fmt.Errorf("mssql: %w", err))
	}
	return n, nil
}

// DropTableSQL drops the table when OBJECT_ID finds it.
func DropTableSQL(table string) string {
	fq := msFQN(table)
	return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NOT NULL DROP TABLE %s;", fq, fq)
}

// CreateTableSQL renders the users table for SQL Server.
func CreateTableSQL(table string) (string, error) {
	return ddl.BuildCreateTableSQL(ddl.UsersTable(table, Types), msIdent)
}

// MergeSQL upserts one user keyed on email. Only age and country are updated
// on a match.
func MergeSQL(table string) string {
	cols := make([]string, len(records.CanonicalColumns))
	ph := make([]string, len(records.CanonicalColumns))
	src := make([]string, len(records.CanonicalColumns))
	for i, c := range records.CanonicalColumns {
		cols[i] = msIdent(c)
		ph[i] = fmt.Sprintf("@p%d", i+1)
		src[i] = "s." + msIdent(c)
	}
	email, age, country := msIdent(records.ColEmail), msIdent(records.ColAge), msIdent(records.ColCountry)
	return fmt.Sprintf(
		"MERGE %s WITH (HOLDLOCK) AS t "+
			"USING (VALUES (%s)) AS s (%s) "+
			"ON t.%s = s.%s "+
			"WHEN MATCHED THEN UPDATE SET t.%s = s.%s, t.%s = s.%s "+
			"WHEN NOT MATCHED THEN INSERT (%s) VALUES (%s);",
		msFQN(table),
		strings.Join(ph, ", "), strings.Join(cols, ", "),
		email, email,
		age, age, country, country,
		strings.Join(cols, ", "), strings.Join(src, ", "),
	)
}

func classify(err error) error {
	var msErr mssql.Error
	if errors.As(err, &msErr) && integrityErrors[msErr.Number] {
		return fmt.Errorf("%w: %w", etlerr.ErrIntegrity, err)
	}
	return err
}

// msIdent quotes an identifier with brackets.
func msIdent(id string) string { return `[` + strings.ReplaceAll(id, `]`, `]]`) + `]` }

// msFQN quotes a possibly schema-qualified name like "dbo.users" to
// "[dbo].[users]".
func msFQN(name string) string { return ddl.QuoteFQN(name, msIdent) }
