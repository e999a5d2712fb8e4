// Package etlerr defines the structural failure kinds a run can report.
//
// Row-level validation failures are never errors; they are filtered and
// counted by the cleaning pipeline. Only the failures below surface to the
// caller, always wrapped with %w so errors.Is and KindOf keep working
// through any number of fmt.Errorf layers.
package etlerr

import "errors"

var (
	// ErrInputNotFound means the source file does not exist.
	ErrInputNotFound = errors.New("input not found")
	// ErrParse means the tabular input is malformed.
	ErrParse = errors.New("malformed input")
	// ErrSchema means required columns are missing from the header.
	ErrSchema = errors.New("schema mismatch")
	// ErrIntegrity means the store rejected the batch on a constraint.
	ErrIntegrity = errors.New("integrity constraint violation")
)

// Kind classifies an error for reporting and exit codes.
type Kind int

const (
	KindNone Kind = iota
	KindInputNotFound
	KindParse
	KindSchema
	KindIntegrity
	KindUnexpected
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindInputNotFound:
		return "input_not_found"
	case KindParse:
		return "parse_error"
	case KindSchema:
		return "schema_error"
	case KindIntegrity:
		return "integrity_error"
	default:
		return "unexpected_error"
	}
}

// KindOf maps err onto a Kind. nil maps to KindNone; anything not wrapping
// one of the sentinels is KindUnexpected.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInputNotFound):
		return KindInputNotFound
	case errors.Is(err, ErrParse):
		return KindParse
	case errors.Is(err, ErrSchema):
		return KindSchema
	case errors.Is(err, ErrIntegrity):
		return KindIntegrity
	default:
		return KindUnexpected
	}
}
