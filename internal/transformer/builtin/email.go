package builtin

import (
	"regexp"
	"strings"

	"userload/internal/records"
)

// emailPattern is matched against the whole value; RE2 has no partial-match
// mode once both anchors are present.
var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// ValidEmail reports whether s is local@domain.tld with a local part free of
// consecutive dots.
func ValidEmail(s string) bool {
	if !emailPattern.MatchString(s) {
		return false
	}
	local, _, _ := strings.Cut(s, "@")
	return !strings.Contains(local, "..")
}

// ValidateEmail drops records whose Field is missing or not a valid address.
type ValidateEmail struct {
	Field string
}

// Name implements transformer.Transformer.
func (v ValidateEmail) Name() string { return "email" }

// Apply filters in place.
func (v ValidateEmail) Apply(in []records.Record) []records.Record {
	out := in[:0]
	for _, rec := range in {
		if s, ok := rec.String(v.Field); ok && ValidEmail(s) {
			out = append(out, rec)
		}
	}
	return out
}
