package ddl

// ColumnDef describes a single column. Names are unquoted; renderers quote
// them with the dialect's quoting function.
//
// Identity marks a surrogate key column whose SQLType carries the whole
// dialect clause (e.g. "INTEGER PRIMARY KEY AUTOINCREMENT"); such a column is
// rendered as "<name> <SQLType>" with nothing appended.
type ColumnDef struct {
	Name     string
	SQLType  string
	Unique   bool
	Identity bool
}

// TableDef holds the possibly schema-qualified table name and its columns in
// order.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// Types maps the logical column kinds of the users table to dialect types.
type Types struct {
	Identity string
	Text     string
	Int      string

	// Email types the unique email column. It must compare byte for byte,
	// so dialects whose default collation folds case set a binary one here.
	// Empty means Text.
	Email string
}
