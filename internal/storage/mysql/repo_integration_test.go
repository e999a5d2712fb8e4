//go:build integration

package mysql

import (
	"context"
	"os"
	"testing"

	"userload/internal/records"
)

// Run with: MYSQL_TEST_DSN=user:pw@tcp(127.0.0.1:3306)/db go test -tags integration ./internal/storage/mysql
func TestIntegration_ResetAndUpsert(t *testing.T) {
	dsn := os.Getenv("MYSQL_TEST_DSN")
	if dsn == "" {
		t.Skip("MYSQL_TEST_DSN not set")
	}
	ctx := context.Background()
	r, closeFn, err := NewRepository(ctx, Config{DSN: dsn, Table: "userload_it_users"})
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	defer closeFn()

	for i := 0; i < 2; i++ {
		if err := r.ResetSchema(ctx); err != nil {
			t.Fatalf("ResetSchema #%d: %v", i+1, err)
		}
	}
	defer func() { _, _ = r.db.ExecContext(ctx, DropTableSQL("userload_it_users")) }()

	jane := records.User{LastName: "Doe", FirstName: "Jane", Email: "jane@example.com", Age: 25, Country: "US"}
	upd := jane
	upd.LastName, upd.Age, upd.Country = "Smith", 40, "CA"
	if _, err := r.UpsertBatch(ctx, []records.User{jane, upd}); err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}

	var (
		count   int
		last    string
		age     int
		country string
	)
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM userload_it_users").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	err = r.db.QueryRowContext(ctx, "SELECT last_name, age, country FROM userload_it_users WHERE email = ?", jane.Email).
		Scan(&last, &age, &country)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if count != 1 || last != "Doe" || age != 40 || country != "CA" {
		t.Fatalf("count %d row last=%s age=%d country=%s", count, last, age, country)
	}

	// Emails are compared byte for byte: a case variant is a new user.
	shout := jane
	shout.Email = "JANE@example.com"
	if _, err := r.UpsertBatch(ctx, []records.User{shout}); err != nil {
		t.Fatalf("UpsertBatch case variant: %v", err)
	}
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM userload_it_users").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("count after case variant = %d, want 2", count)
	}
}
