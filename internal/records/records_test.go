package records

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToUser(t *testing.T) {
	t.Parallel()

	u, err := ToUser(Record{
		ColLastName: "Doe", ColFirstName: "Jane", ColEmail: "jane@example.com",
		ColAge: "025", ColCountry: "US", "note": "ignored",
	})
	require.NoError(t, err)
	assert.Equal(t, User{LastName: "Doe", FirstName: "Jane", Email: "jane@example.com", Age: 25, Country: "US"}, u)
	assert.Equal(t, []string{"Doe", "Jane", "jane@example.com", "25", "US"}, u.Row())
	assert.Equal(t, []any{"Doe", "Jane", "jane@example.com", 25, "US"}, u.Args())
}

func TestToUser_Errors(t *testing.T) {
	t.Parallel()

	base := func() Record {
		return Record{ColLastName: "Doe", ColFirstName: "Jane", ColEmail: "j@x.io", ColAge: "30", ColCountry: "US"}
	}
	tests := []struct {
		name   string
		mutate func(Record)
	}{
		{"nil last name", func(r Record) { r[ColLastName] = nil }},
		{"absent email", func(r Record) { delete(r, ColEmail) }},
		{"non-string country", func(r Record) { r[ColCountry] = 7 }},
		{"nil age", func(r Record) { r[ColAge] = nil }},
		{"non-numeric age", func(r Record) { r[ColAge] = "thirty" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := base()
			tc.mutate(r)
			_, err := ToUser(r)
			assert.Error(t, err)
		})
	}
}

func TestDataset_MissingCounts(t *testing.T) {
	t.Parallel()

	ds := Dataset{
		Columns: []string{"a", "b"},
		Rows: []Record{
			{"a": "1", "b": nil},
			{"a": nil},
			{"a": "3", "b": "x"},
		},
	}
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, ds.MissingCounts())
	assert.True(t, ds.HasColumn("b"))
	assert.False(t, ds.HasColumn("c"))
}
