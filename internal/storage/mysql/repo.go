// Package mysql implements the user store on MySQL/MariaDB via database/sql
// and github.com/go-sql-driver/mysql.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"userload/internal/ddl"
	"userload/internal/etlerr"
	"userload/internal/records"
	"userload/internal/storage"
)

// Config holds MySQL repository configuration.
type Config struct {
	DSN   string // go-sql-driver DSN, e.g. "user:pw@tcp(host:3306)/db"
	Table string
}

// Types are the MySQL column types. UNIQUE on email needs a bounded VARCHAR,
// sized to the longest email the cleaning stage lets through, and a binary
// collation: the utf8mb4 default is case- and accent-insensitive.
var Types = ddl.Types{
	Identity: "BIGINT AUTO_INCREMENT PRIMARY KEY",
	Text:     "VARCHAR(255)",
	Int:      "INT",
	Email:    "VARCHAR(254) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin",
}

// Error numbers treated as integrity failures.
var integrityErrors = map[uint16]bool{
	1048: true, // ER_BAD_NULL_ERROR
	1062: true, // ER_DUP_ENTRY
	1451: true, // ER_ROW_IS_REFERENCED_2
	1452: true, // ER_NO_REFERENCED_ROW_2
	3819: true, // ER_CHECK_CONSTRAINT_VIOLATED
}

// Repository is a MySQL-backed storage.Repository.
type Repository struct {
	db    *sql.DB
	table string
}

// NewRepository validates the DSN, opens and pings the pool.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if _, err := mysql.ParseDSN(cfg.DSN); err != nil {
		return nil, nil, fmt.Errorf("mysql dsn: %w", err)
	}
	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sql.Open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("mysql: ping: %w", err)
	}
	return &Repository{db: db, table: cfg.Table}, func() { _ = db.Close() }, nil
}

// ResetSchema drops and recreates the table. MySQL DDL commits implicitly,
// so the two statements run outside a transaction.
func (r *Repository) ResetSchema(ctx context.Context) error {
	create, err := CreateTableSQL(r.table)
	if err != nil {
		return fmt.Errorf("mysql: %w", err)
	}
	for _, stmt := range []string{DropTableSQL(r.table), create} {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("mysql: reset schema: %w", err)
		}
	}
	return nil
}

// UpsertBatch applies users in one transaction with ON DUPLICATE KEY UPDATE.
func (r *Repository) UpsertBatch(ctx context.Context, users []records.User) (int64, error) {
	n, err := storage.ExecBatch(ctx, r.db, UpsertSQL(r.table), users)
	if err != nil {
		return 0, classify(fmt.Errorf("mysql: %w", err))
	}
	return n, nil
}

// DropTableSQL returns the idempotent drop statement.
func DropTableSQL(table string) string {
	return "DROP TABLE IF EXISTS " + ddl.QuoteFQN(table, myIdent)
}

// CreateTableSQL renders the users table for InnoDB.
func CreateTableSQL(table string) (string, error) {
	s, err := ddl.BuildCreateTableSQL(ddl.UsersTable(table, Types), myIdent)
	if err != nil {
		return "", err
	}
	return s + " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4", nil
}

// UpsertSQL inserts one user; on a duplicate email it updates age and
// country only.
func UpsertSQL(table string) string {
	cols := make([]string, len(records.CanonicalColumns))
	ph := make([]string, len(records.CanonicalColumns))
	for i, c := range records.CanonicalColumns {
		cols[i] = myIdent(c)
		ph[i] = "?"
	}
	age, country := myIdent(records.ColAge), myIdent(records.ColCountry)
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON DUPLICATE KEY UPDATE %s = VALUES(%s), %s = VALUES(%s)",
		ddl.QuoteFQN(table, myIdent),
		strings.Join(cols, ", "),
		strings.Join(ph, ", "),
		age, age, country, country,
	)
}

func classify(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) && integrityErrors[me.Number] {
		return fmt.Errorf("%w: %w", etlerr.ErrIntegrity, err)
	}
	return err
}

func myIdent(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" }
