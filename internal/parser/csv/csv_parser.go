// Package csv reads a user CSV file into a records.Dataset.
//
// Missing values are made explicit: empty fields and any of the configured
// NA tokens become nil. Headers are normalized (BOM strip, accent strip,
// lower snake_case) and then mapped through HeaderMap so that localized or
// legacy column names land on the canonical keys.
//
// Unlike the soft-fail streaming readers, Parse is strict: any malformed
// line, including one that is not valid UTF-8, aborts the whole read with an
// error wrapping etlerr.ErrParse.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"userload/internal/etlerr"
	"userload/internal/records"
)

// DefaultNAValues are the tokens treated as missing in any column.
var DefaultNAValues = []string{"NA", "n/a"}

// DefaultHeaderMap maps the legacy French headers onto canonical names.
var DefaultHeaderMap = map[string]string{
	"nom":    records.ColLastName,
	"prenom": records.ColFirstName,
	"pays":   records.ColCountry,
}

// Options configures the parser. Zero values pick the defaults above.
type Options struct {
	// Comma is the field delimiter; ',' when zero.
	Comma rune

	// NAValues are matched exactly (after leading-space trim). Nil selects
	// DefaultNAValues; an empty non-nil slice disables token matching.
	NAValues []string

	// HeaderMap maps normalized header names to canonical keys. Nil selects
	// DefaultHeaderMap.
	HeaderMap map[string]string
}

// Parser parses CSV input according to Options. It is safe to reuse across
// inputs, but Parser itself is not concurrency-safe.
type Parser struct {
	opt Options
	na  map[string]struct{}
}

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser {
	if opt.Comma == 0 {
		opt.Comma = ','
	}
	if opt.NAValues == nil {
		opt.NAValues = DefaultNAValues
	}
	if opt.HeaderMap == nil {
		opt.HeaderMap = DefaultHeaderMap
	}
	na := make(map[string]struct{}, len(opt.NAValues))
	for _, v := range opt.NAValues {
		na[v] = struct{}{}
	}
	return &Parser{opt: opt, na: na}
}

// utf8BOM is skipped at the start of the input if present.
const utf8BOM = "\uFEFF"

// Parse reads the whole input. Rows shorter than the header are padded with
// missing values; rows longer than the header are a parse error.
func (p *Parser) Parse(r io.Reader) (records.Dataset, error) {
	cr := csv.NewReader(SkipBOM(r))
	cr.Comma = p.opt.Comma
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	h, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return records.Dataset{}, fmt.Errorf("csv: %w: empty input, no header", etlerr.ErrParse)
	}
	if err != nil {
		return records.Dataset{}, fmt.Errorf("csv: read header: %w: %w", etlerr.ErrParse, err)
	}
	if err := checkUTF8(cr, h); err != nil {
		return records.Dataset{}, err
	}
	headers, err := normalizeHeaders(h, p.opt.HeaderMap)
	if err != nil {
		return records.Dataset{}, err
	}

	ds := records.Dataset{Columns: headers}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return records.Dataset{}, fmt.Errorf("csv: %w: %w", etlerr.ErrParse, err)
		}
		if len(row) > len(headers) {
			line, _ := cr.FieldPos(0)
			return records.Dataset{}, fmt.Errorf("csv: %w: line %d: expected %d fields, saw %d",
				etlerr.ErrParse, line, len(headers), len(row))
		}
		if err := checkUTF8(cr, row); err != nil {
			return records.Dataset{}, err
		}

		rec := make(records.Record, len(headers))
		for i, col := range headers {
			if i < len(row) {
				rec[col] = p.value(row[i])
			} else {
				rec[col] = nil
			}
		}
		ds.Rows = append(ds.Rows, rec)
	}
	return ds, nil
}

// checkUTF8 rejects the record just read if any field is not valid UTF-8.
func checkUTF8(cr *csv.Reader, row []string) error {
	for i, f := range row {
		if !utf8.ValidString(f) {
			line, col := cr.FieldPos(i)
			return fmt.Errorf("csv: %w: line %d, field %d: invalid UTF-8 (col %d)", etlerr.ErrParse, line, i+1, col)
		}
	}
	return nil
}

// value converts an empty string or NA token to nil.
func (p *Parser) value(s string) any {
	if s == "" {
		return nil
	}
	if _, ok := p.na[s]; ok {
		return nil
	}
	return s
}

// normalizeHeaders produces canonical header keys and rejects duplicates
// (after normalization two columns must not collapse onto one key).
func normalizeHeaders(h []string, headerMap map[string]string) ([]string, error) {
	res := make([]string, len(h))
	seen := make(map[string]int, len(h))
	for i, col := range h {
		c := NormalizeFieldName(col)
		if c == "" {
			c = fmt.Sprintf("col_%d", i)
		}
		if m, ok := headerMap[c]; ok {
			c = m
		}
		if prev, dup := seen[c]; dup {
			return nil, fmt.Errorf("csv: %w: columns %d and %d both map to %q", etlerr.ErrParse, prev+1, i+1, c)
		}
		seen[c] = i
		res[i] = c
	}
	return res, nil
}

// NormalizeFieldName lowercases, strips accents (NFD → remove Mn → NFC),
// turns spaces, dashes and dots into single underscores and drops anything
// outside [a-z0-9_]. "Prénom" → "prenom", "Last Name" → "last_name".
func NormalizeFieldName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	ascii, _, _ := transform.String(t, s)

	var b strings.Builder
	prevUnderscore := false
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		case r == '_' || r == ' ' || r == '-' || r == '.':
			if !prevUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				prevUnderscore = true
			}
		}
	}
	return strings.TrimRight(b.String(), "_")
}
