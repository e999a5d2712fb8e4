package builtin

import (
	"strings"
	"testing"

	"userload/internal/records"
)

func TestRequire(t *testing.T) {
	t.Parallel()

	in := []records.Record{
		mk("Doe", "Jane", "jane@example.com", "25", "US"),
		mk(nil, "Jane", "jane@example.com", "25", "US"),
		mk("Doe", "Jane", "jane@example.com", "25", ""),
		{"last_name": "Doe", "first_name": "Jane", "email": "j@x.io", "age": "25"},
	}
	got := Require{Fields: allCols}.Apply(in)
	if len(got) != 1 || got[0]["last_name"] != "Doe" || got[0]["country"] != "US" {
		t.Fatalf("Require: got %#v", got)
	}
}

func TestValidEmail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{"jane@example.com", true},
		{"first.last+tag@sub.example.co", true},
		{"a_b%c-d@x-y.io", true},
		{"UPPER@EXAMPLE.ORG", true},
		{"not-an-email", false},
		{"", false},
		{"@example.com", false},
		{"jane@", false},
		{"jane@example", false},
		{"jane@example.c", false},
		{"jane@example.c0m", false},
		{"ja..ne@example.com", false},
		{"jane.@example.com", true},
		{"jane@exa..mple.com", true}, // only the local part is checked for ".."
		{"jane@example.com trailing", false},
		{"jane@example.com\n", false},
		{" jane@example.com", false},
		{"ja ne@example.com", false},
		{"jane@@example.com", false},
		{"jané@example.com", false},
	}
	for _, tc := range tests {
		if got := ValidEmail(tc.in); got != tc.want {
			t.Errorf("ValidEmail(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestValidateEmail_DropsMissing(t *testing.T) {
	t.Parallel()

	in := []records.Record{
		mk("A", "a", nil, "20", "US"),
		mk("B", "b", "b@x.io", "20", "US"),
		mk("C", "c", "nope", "20", "US"),
	}
	got := ValidateEmail{Field: "email"}.Apply(in)
	if len(got) != 1 || got[0]["email"] != "b@x.io" {
		t.Fatalf("ValidateEmail: got %#v", got)
	}
}

func TestAgeRange(t *testing.T) {
	t.Parallel()

	ages := []struct {
		raw  any
		keep bool
	}{
		{"18", true},
		{"100", true},
		{"25", true},
		{"025", true},
		{"17", false},
		{"101", false},
		{"150", false},
		{"-20", false},
		{"+20", false},
		{"25.0", false},
		{"25.5", false},
		{"abc", false},
		{"", false},
		{" 25", false},
		{"99999999999999999999999", false},
		{nil, false},
	}
	stage := AgeRange{Field: "age", Min: 18, Max: 100}
	for _, a := range ages {
		rec := mk("Doe", "Jane", "jane@example.com", a.raw, "US")
		got := stage.Apply([]records.Record{rec})
		if kept := len(got) == 1; kept != a.keep {
			t.Errorf("age %#v: kept=%v want %v", a.raw, kept, a.keep)
		}
		if len(got) == 1 && got[0]["age"] != a.raw {
			t.Errorf("age %#v was rewritten to %#v", a.raw, got[0]["age"])
		}
	}
}

func TestMaxLength(t *testing.T) {
	t.Parallel()

	stage := MaxLength{Limits: map[string]int{"last_name": 50, "first_name": 50, "country": 30}}
	in := []records.Record{
		mk(strings.Repeat("a", 50), strings.Repeat("b", 50), "x@y.io", "20", strings.Repeat("c", 30)),
		mk(strings.Repeat("a", 51), "b", "x@y.io", "20", "US"),
		mk("a", strings.Repeat("b", 51), "x@y.io", "20", "US"),
		mk("a", "b", "x@y.io", "20", strings.Repeat("c", 31)),
		// 50 two-byte characters is still 50 characters.
		mk(strings.Repeat("é", 50), "b", "x@y.io", "20", "US"),
	}
	got := stage.Apply(in)
	if len(got) != 2 {
		t.Fatalf("MaxLength kept %d rows, want 2: %#v", len(got), got)
	}
	if got[1]["last_name"] != strings.Repeat("é", 50) {
		t.Fatalf("multi-byte row dropped: %#v", got)
	}
}
