package builtin

import "userload/internal/records"

// Require removes any record missing a value for one of Fields.
type Require struct {
	Fields []string
}

// Name implements transformer.Transformer.
func (r Require) Name() string { return "completeness" }

// Apply returns a filtered slice containing only records that have all
// required fields present and non-empty.
func (r Require) Apply(in []records.Record) []records.Record {
	out := in[:0]
	for _, rec := range in {
		ok := true
		for _, f := range r.Fields {
			v, exists := rec[f]
			if !exists || v == nil || v == "" {
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
