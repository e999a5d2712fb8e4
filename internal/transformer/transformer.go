// Package transformer runs ordered, named filter stages over a slice of
// records and keeps count of how many rows each stage dropped.
package transformer

import "userload/internal/records"

// Transformer is a single pipeline stage. Apply may reuse the backing array
// of in; callers must not keep using in after the call.
type Transformer interface {
	Name() string
	Apply(in []records.Record) []records.Record
}

// StageCount is the number of rows a named stage removed.
type StageCount struct {
	Stage    string
	Rejected int
}

// Chain is an ordered list of transformers.
type Chain []Transformer

// Apply runs every stage in order and returns the survivors together with
// one StageCount per stage, in chain order.
func (c Chain) Apply(in []records.Record) ([]records.Record, []StageCount) {
	out := in
	counts := make([]StageCount, 0, len(c))
	for _, t := range c {
		before := len(out)
		out = t.Apply(out)
		counts = append(counts, StageCount{Stage: t.Name(), Rejected: before - len(out)})
	}
	return out, counts
}
