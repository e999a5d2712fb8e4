// Package builtin contains the filter stages used by the cleaning pipeline.
//
// DeDup collapses records that agree on every configured key column. The
// winner is chosen by policy:
//
//   - "keep-first": keep the earliest occurrence (default)
//   - "keep-last" : keep the latest occurrence, at its own position
//
// Keys are hashed with xxh3 and hash hits are confirmed by comparing the
// actual values, so a collision can never merge two different rows. A nil or
// absent value is a value of its own: two rows that are both missing the
// same field still count as duplicates. Canon maps a key's raw text onto the
// form that is compared, so "025" and "25" can collide for a numeric column.
package builtin

import (
	"io"
	"strings"

	"github.com/zeebo/xxh3"

	"userload/internal/records"
)

// DeDup implements exact-match de-duplication over Keys.
type DeDup struct {
	// Keys are the columns that must all match; for whole-row dedup pass
	// every header column.
	Keys []string

	// Policy is "keep-first" or "keep-last".
	Policy string

	// Canon optionally rewrites a key's value before it is hashed and
	// compared. Keys without an entry compare verbatim.
	Canon map[string]func(string) string
}

// Name implements transformer.Transformer.
func (d DeDup) Name() string { return "dedup" }

// Apply filters in place and preserves the relative order of survivors.
func (d DeDup) Apply(in []records.Record) []records.Record {
	if len(in) == 0 || len(d.Keys) == 0 {
		return in
	}
	keepLast := strings.EqualFold(strings.TrimSpace(d.Policy), "keep-last")

	h := xxh3.New()
	seen := make(map[uint64][]int, len(in)) // hash -> indexes of current winners
	keep := make([]bool, len(in))

	for i, r := range in {
		sum := d.hash(h, r)
		bucket := seen[sum]
		pos := -1
		for bi, j := range bucket {
			if d.equal(in[j], r) {
				pos = bi
				break
			}
		}
		switch {
		case pos < 0:
			seen[sum] = append(bucket, i)
			keep[i] = true
		case keepLast:
			keep[bucket[pos]] = false
			bucket[pos] = i
			keep[i] = true
		}
	}

	out := in[:0]
	for i, r := range in {
		if keep[i] {
			out = append(out, r)
		}
	}
	return out
}

func (d DeDup) hash(h *xxh3.Hasher, r records.Record) uint64 {
	h.Reset()
	for _, k := range d.Keys {
		if s, ok := d.key(r, k); ok {
			_, _ = h.Write([]byte{1})
			_, _ = io.WriteString(h, s)
		} else {
			_, _ = h.Write([]byte{0})
		}
		_, _ = h.Write([]byte{0x1f})
	}
	return h.Sum64()
}

func (d DeDup) equal(a, b records.Record) bool {
	for _, k := range d.Keys {
		as, aok := d.key(a, k)
		bs, bok := d.key(b, k)
		if aok != bok || as != bs {
			return false
		}
	}
	return true
}

func (d DeDup) key(r records.Record, k string) (string, bool) {
	s, ok := r.String(k)
	if ok {
		if f := d.Canon[k]; f != nil {
			s = f(s)
		}
	}
	return s, ok
}

// CanonInt strips leading zeros from an all-digit value so that "025" and
// "25" compare equal. Anything else is returned unchanged.
func CanonInt(s string) string {
	if s == "" {
		return s
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return s
		}
	}
	t := strings.TrimLeft(s, "0")
	if t == "" {
		return "0"
	}
	return t
}
