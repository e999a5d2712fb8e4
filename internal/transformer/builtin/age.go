package builtin

import (
	"strconv"

	"userload/internal/records"
)

// AgeRange keeps records whose Field is a plain non-negative integer
// (ASCII digits only, no sign, no decimal point) within [Min, Max].
// The record itself is left untouched; the typed value is derived again
// when the row is projected to records.User.
type AgeRange struct {
	Field    string
	Min, Max int
}

// Name implements transformer.Transformer.
func (a AgeRange) Name() string { return "age" }

// Apply filters in place.
func (a AgeRange) Apply(in []records.Record) []records.Record {
	out := in[:0]
	for _, rec := range in {
		s, ok := rec.String(a.Field)
		if !ok {
			continue
		}
		n, ok := parseAge(s)
		if !ok || n < a.Min || n > a.Max {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// parseAge accepts only [0-9]+ and values that fit in an int.
func parseAge(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
