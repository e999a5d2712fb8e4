package mssql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	mssql "github.com/microsoft/go-mssqldb"

	"userload/internal/etlerr"
	"userload/internal/storage"
)

func TestMergeSQL(t *testing.T) {
	t.Parallel()

	want := "MERGE [dbo].[users] WITH (HOLDLOCK) AS t " +
		"USING (VALUES (@p1, @p2, @p3, @p4, @p5)) AS s ([last_name], [first_name], [email], [age], [country]) " +
		"ON t.[email] = s.[email] " +
		"WHEN MATCHED THEN UPDATE SET t.[age] = s.[age], t.[country] = s.[country] " +
		"WHEN NOT MATCHED THEN INSERT ([last_name], [first_name], [email], [age], [country]) " +
		"VALUES (s.[last_name], s.[first_name], s.[email], s.[age], s.[country]);"
	if got := MergeSQL("dbo.users"); got != want {
		t.Fatalf("MergeSQL\n got: %s\nwant: %s", got, want)
	}
}

func TestCreateAndDropSQL(t *testing.T) {
	t.Parallel()

	create, err := CreateTableSQL("users")
	if err != nil {
		t.Fatalf("CreateTableSQL: %v", err)
	}
	for _, part := range []string{
		"CREATE TABLE [users]",
		"[id] INT IDENTITY(1,1) PRIMARY KEY",
		"[last_name] NVARCHAR(255) NOT NULL",
		"[email] NVARCHAR(254) COLLATE Latin1_General_100_BIN2 NOT NULL UNIQUE",
	} {
		if !strings.Contains(create, part) {
			t.Fatalf("create sql %q missing %q", create, part)
		}
	}
	want := "IF OBJECT_ID(N'[dbo].[users]', N'U') IS NOT NULL DROP TABLE [dbo].[users];"
	if got := DropTableSQL("dbo.users"); got != want {
		t.Fatalf("DropTableSQL = %q, want %q", got, want)
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		number    int32
		integrity bool
	}{
		{2627, true},
		{2601, true},
		{515, true},
		{547, true},
		{208, false},  // invalid object name
		{1205, false}, // deadlock victim
	}
	for _, tt := range tests {
		err := classify(fmt.Errorf("mssql: %w", mssql.Error{Number: tt.number}))
		if got := errors.Is(err, etlerr.ErrIntegrity); got != tt.integrity {
			t.Errorf("number %d: integrity = %v, want %v", tt.number, got, tt.integrity)
		}
	}
}

func TestRegistrationUsesNewRepositoryHook(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	var gotCfg Config
	closed := false
	newRepository = func(ctx context.Context, cfg Config) (*Repository, func(), error) {
		gotCfg = cfg
		return &Repository{}, func() { closed = true }, nil
	}

	repo, err := storage.New(context.Background(), storage.Config{Kind: "mssql", DSN: "sqlserver://sa:pw@localhost:1433", Table: "dbo.users"})
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	if gotCfg.Table != "dbo.users" {
		t.Fatalf("hook cfg = %+v", gotCfg)
	}
	repo.Close()
	if !closed {
		t.Fatalf("Close() did not invoke closeFn")
	}
}

func TestNewRepository_BadDSN(t *testing.T) {
	t.Parallel()

	if _, _, err := NewRepository(context.Background(), Config{DSN: "sqlserver://%zz"}); err == nil {
		t.Fatalf("expected DSN parse error")
	}
}
