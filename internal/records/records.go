// Package records defines the row types that flow through the loader.
//
// A Record is one raw CSV row keyed by normalized column name. Missing values
// are represented explicitly as nil; the CSV parser maps the configured NA
// tokens and empty fields to nil so downstream stages never have to guess.
// A User is the typed, canonical projection of a Record that survived
// cleaning and is what both sinks consume.
package records

import (
	"fmt"
	"slices"
	"strconv"
)

// Canonical column names, in output order.
const (
	ColLastName  = "last_name"
	ColFirstName = "first_name"
	ColEmail     = "email"
	ColAge       = "age"
	ColCountry   = "country"
)

// CanonicalColumns is the ordered set of columns every input must carry and
// every output row is restricted to.
var CanonicalColumns = []string{ColLastName, ColFirstName, ColEmail, ColAge, ColCountry}

// Record is a raw row. Values are string or nil (missing).
type Record map[string]any

// String returns the string value for col and whether it is present.
// A nil or non-string value reports false.
func (r Record) String(col string) (string, bool) {
	v, ok := r[col]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Dataset is an ordered collection of raw rows plus the header they were read
// with. Columns keeps header order; Rows keeps file order.
type Dataset struct {
	Columns []string
	Rows    []Record
}

// HasColumn reports whether col is part of the header.
func (d Dataset) HasColumn(col string) bool {
	return slices.Contains(d.Columns, col)
}

// MissingCounts returns, per header column, how many rows carry no value.
func (d Dataset) MissingCounts() map[string]int {
	out := make(map[string]int, len(d.Columns))
	for _, c := range d.Columns {
		out[c] = 0
	}
	for _, r := range d.Rows {
		for _, c := range d.Columns {
			if v, ok := r[c]; !ok || v == nil {
				out[c]++
			}
		}
	}
	return out
}

// User is a cleaned row restricted to the canonical columns.
type User struct {
	LastName  string
	FirstName string
	Email     string
	Age       int
	Country   string
}

// Row renders u in CanonicalColumns order for CSV output.
func (u User) Row() []string {
	return []string{u.LastName, u.FirstName, u.Email, strconv.Itoa(u.Age), u.Country}
}

// Args returns u in CanonicalColumns order as driver arguments.
func (u User) Args() []any {
	return []any{u.LastName, u.FirstName, u.Email, u.Age, u.Country}
}

// ToUser projects a validated Record onto the canonical columns. It fails if
// any canonical value is missing or age is not a base-10 integer.
func ToUser(r Record) (User, error) {
	var u User
	var ok bool
	if u.LastName, ok = r.String(ColLastName); !ok {
		return User{}, fmt.Errorf("records: %s missing", ColLastName)
	}
	if u.FirstName, ok = r.String(ColFirstName); !ok {
		return User{}, fmt.Errorf("records: %s missing", ColFirstName)
	}
	if u.Email, ok = r.String(ColEmail); !ok {
		return User{}, fmt.Errorf("records: %s missing", ColEmail)
	}
	if u.Country, ok = r.String(ColCountry); !ok {
		return User{}, fmt.Errorf("records: %s missing", ColCountry)
	}
	raw, ok := r.String(ColAge)
	if !ok {
		return User{}, fmt.Errorf("records: %s missing", ColAge)
	}
	age, err := strconv.Atoi(raw)
	if err != nil {
		return User{}, fmt.Errorf("records: %s %q: %w", ColAge, raw, err)
	}
	u.Age = age
	return u, nil
}
