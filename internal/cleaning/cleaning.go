// Package cleaning validates and normalizes a raw user dataset.
//
// Clean runs a fixed chain of filter stages:
//
//	dedup → completeness → email → age → field_length
//
// after a schema check that aborts with etlerr.ErrSchema when a required
// column is missing. Rejected rows are counted per stage and never reported
// as errors. Surviving rows keep their original relative order and are
// projected onto the canonical columns.
package cleaning

import (
	"fmt"
	"slices"
	"strings"

	"userload/internal/etlerr"
	"userload/internal/records"
	"userload/internal/transformer"
	"userload/internal/transformer/builtin"
)

// Bounds enforced by the chain. MaxEmailLength is the SMTP path limit and
// the width of the store's email key on every backend.
const (
	MinAge         = 18
	MaxAge         = 100
	MaxNameLength  = 50
	MaxCountryLen  = 30
	MaxEmailLength = 254
)

// Result is the cleaned dataset plus bookkeeping for observability.
type Result struct {
	// Input is the number of rows before cleaning.
	Input int
	// Users are the survivors, in input order.
	Users []records.User
	// Rejections holds one entry per stage, in chain order.
	Rejections []transformer.StageCount
}

// Rejected returns the total number of dropped rows.
func (r Result) Rejected() int {
	n := 0
	for _, c := range r.Rejections {
		n += c.Rejected
	}
	return n
}

// Stages returns the cleaning chain for a dataset with the given header.
// Dedup and completeness look at every column; the remaining stages only
// look at canonical ones.
func Stages(columns []string) transformer.Chain {
	all := append([]string(nil), columns...)
	required := append([]string(nil), all...)
	for _, c := range records.CanonicalColumns {
		if !slices.Contains(required, c) {
			required = append(required, c)
		}
	}
	return transformer.Chain{
		builtin.DeDup{
			Keys:   all,
			Policy: "keep-first",
			Canon:  map[string]func(string) string{records.ColAge: builtin.CanonInt},
		},
		builtin.Require{Fields: required},
		builtin.ValidateEmail{Field: records.ColEmail},
		builtin.AgeRange{Field: records.ColAge, Min: MinAge, Max: MaxAge},
		builtin.MaxLength{Limits: map[string]int{
			records.ColLastName:  MaxNameLength,
			records.ColFirstName: MaxNameLength,
			records.ColCountry:   MaxCountryLen,
			records.ColEmail:     MaxEmailLength,
		}},
	}
}

// CheckSchema returns an error wrapping etlerr.ErrSchema naming every
// required column absent from ds.
func CheckSchema(ds records.Dataset, required []string) error {
	var missing []string
	for _, c := range required {
		if !ds.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required columns [%s]", etlerr.ErrSchema, strings.Join(missing, ", "))
	}
	return nil
}

// Clean applies the schema check and the stage chain to ds. ds.Rows is
// filtered in place and must not be used afterwards.
func Clean(ds records.Dataset, required []string) (Result, error) {
	if err := CheckSchema(ds, required); err != nil {
		return Result{}, err
	}

	res := Result{Input: len(ds.Rows)}
	rows, counts := Stages(ds.Columns).Apply(ds.Rows)
	res.Rejections = counts

	res.Users = make([]records.User, 0, len(rows))
	for _, r := range rows {
		u, err := records.ToUser(r)
		if err != nil {
			// Unreachable once the chain passed; treat as a bug, not a row reject.
			return Result{}, fmt.Errorf("cleaning: project row: %w", err)
		}
		res.Users = append(res.Users, u)
	}
	return res, nil
}
