package storage

import (
	"context"
	"database/sql"
	"fmt"

	"userload/internal/records"
)

// ExecBatch runs query once per user, in order, inside a single transaction
// using a prepared statement. Query placeholders must follow
// records.User.Args order. Any error rolls the transaction back and yields
// 0 applied rows; the error is returned unclassified for the backend to map.
func ExecBatch(ctx context.Context, db *sql.DB, query string, users []records.User) (int64, error) {
	if len(users) == 0 {
		return 0, nil
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for i, u := range users {
		if _, err := stmt.ExecContext(ctx, u.Args()...); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("upsert row %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return int64(len(users)), nil
}
