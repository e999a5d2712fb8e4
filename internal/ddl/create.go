// Package ddl is a small, backend-agnostic model of the users table and a
// renderer for CREATE TABLE statements. Backends supply their own types and
// identifier quoting.
package ddl

import (
	"fmt"
	"regexp"
	"strings"

	"userload/internal/records"
)

// IDColumn is the surrogate key of the users table.
const IDColumn = "id"

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateFQN accepts "table" or "schema.table" where every part is a plain
// identifier. Table names are interpolated into SQL, so nothing else passes.
func ValidateFQN(fqn string) error {
	if strings.TrimSpace(fqn) == "" {
		return fmt.Errorf("ddl: table name must not be empty")
	}
	parts := strings.Split(fqn, ".")
	if len(parts) > 2 {
		return fmt.Errorf("ddl: table name %q has too many parts", fqn)
	}
	for _, p := range parts {
		if !identPattern.MatchString(p) {
			return fmt.Errorf("ddl: invalid identifier %q in table name %q", p, fqn)
		}
	}
	return nil
}

// QuoteFQN applies quote to each dotted part of fqn.
func QuoteFQN(fqn string, quote func(string) string) string {
	if quote == nil {
		return fqn
	}
	parts := strings.Split(fqn, ".")
	for i, p := range parts {
		parts[i] = quote(p)
	}
	return strings.Join(parts, ".")
}

// UsersTable returns the users table definition: a surrogate id, the five
// canonical columns NOT NULL, and email UNIQUE.
func UsersTable(fqn string, t Types) TableDef {
	email := t.Email
	if email == "" {
		email = t.Text
	}
	return TableDef{
		FQN: fqn,
		Columns: []ColumnDef{
			{Name: IDColumn, SQLType: t.Identity, Identity: true},
			{Name: records.ColLastName, SQLType: t.Text},
			{Name: records.ColFirstName, SQLType: t.Text},
			{Name: records.ColEmail, SQLType: email, Unique: true},
			{Name: records.ColAge, SQLType: t.Int},
			{Name: records.ColCountry, SQLType: t.Text},
		},
	}
}

// BuildCreateTableSQL renders a CREATE TABLE statement. Every column except
// the identity one renders as
//
//	<Name> <SQLType> NOT NULL [UNIQUE]
//
// quote may be nil, in which case names are emitted verbatim.
func BuildCreateTableSQL(t TableDef, quote func(string) string) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}
	q := quote
	if q == nil {
		q = func(s string) string { return s }
	}

	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("ddl: column %s missing SQLType", name)
		}

		var sb strings.Builder
		sb.WriteString(q(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Identity {
			sb.WriteString(" NOT NULL")
			if c.Unique {
				sb.WriteString(" UNIQUE")
			}
		}
		cols = append(cols, sb.String())
	}

	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", QuoteFQN(fqn, quote), strings.Join(cols, ",\n  ")), nil
}
