package builtin

import (
	"unicode/utf8"

	"userload/internal/records"
)

// MaxLength drops records where any limited field is longer than its limit,
// measured in characters (code points), not bytes.
type MaxLength struct {
	Limits map[string]int
}

// Name implements transformer.Transformer.
func (m MaxLength) Name() string { return "field_length" }

// Apply filters in place. A missing limited field is treated as empty.
func (m MaxLength) Apply(in []records.Record) []records.Record {
	out := in[:0]
	for _, rec := range in {
		ok := true
		for f, limit := range m.Limits {
			s, _ := rec.String(f)
			if utf8.RuneCountInString(s) > limit {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, rec)
		}
	}
	return out
}
