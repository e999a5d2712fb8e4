//go:build integration

package postgres

import (
	"context"
	"errors"
	"os"
	"testing"

	"userload/internal/etlerr"
	"userload/internal/records"
)

// Run with: POSTGRES_TEST_DSN=postgres://... go test -tags integration ./internal/storage/postgres
func TestIntegration_ResetAndUpsert(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
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
	defer func() { _, _ = r.pool.Exec(ctx, DropTableSQL("userload_it_users")) }()

	jane := records.User{LastName: "Doe", FirstName: "Jane", Email: "jane@example.com", Age: 25, Country: "US"}
	if _, err := r.UpsertBatch(ctx, []records.User{jane}); err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}
	var id1 int64
	if err := r.pool.QueryRow(ctx, `SELECT id FROM userload_it_users WHERE email = $1`, jane.Email).Scan(&id1); err != nil {
		t.Fatalf("select: %v", err)
	}

	upd := jane
	upd.LastName, upd.Age, upd.Country = "Smith", 40, "CA"
	if _, err := r.UpsertBatch(ctx, []records.User{upd}); err != nil {
		t.Fatalf("UpsertBatch update: %v", err)
	}
	var (
		id2     int64
		last    string
		age     int
		country string
	)
	err = r.pool.QueryRow(ctx, `SELECT id, last_name, age, country FROM userload_it_users WHERE email = $1`, jane.Email).
		Scan(&id2, &last, &age, &country)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if id2 != id1 || last != "Doe" || age != 40 || country != "CA" {
		t.Fatalf("row = id %d last %s age %d country %s", id2, last, age, country)
	}

	// Constraint failure mid-batch rolls everything back.
	if _, err := r.pool.Exec(ctx, `ALTER TABLE userload_it_users ADD CONSTRAINT age_cap CHECK (age < 90)`); err != nil {
		t.Fatalf("alter: %v", err)
	}
	n, err := r.UpsertBatch(ctx, []records.User{
		{LastName: "A", FirstName: "B", Email: "a@example.com", Age: 30, Country: "US"},
		{LastName: "C", FirstName: "D", Email: "c@example.com", Age: 95, Country: "US"},
	})
	if !errors.Is(err, etlerr.ErrIntegrity) || n != 0 {
		t.Fatalf("UpsertBatch = %d, %v; want 0, ErrIntegrity", n, err)
	}
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM userload_it_users`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
}
