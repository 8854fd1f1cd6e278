// Package csvsrc reads CSV files into rows ready for tempdb loads.
//
// The header row names the columns. Values are trimmed and, unless Raw is
// set, coerced: empty fields become NULL and fields that parse as integers,
// floats or booleans become int64, float64 or bool, so column types can be
// inferred from the data.
package csvsrc

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const utf8BOM = "\uFEFF"

// ErrNoHeader is returned for an input without a header row.
var ErrNoHeader = errors.New("csvsrc: missing header row")

// Options controls parsing.
type Options struct {
	// Comma is the field delimiter; 0 means ','.
	Comma rune
	// NormalizeHeaders turns header cells into lower_snake_case ASCII
	// identifiers (see NormalizeName).
	NormalizeHeaders bool
	// Raw keeps every value as a string.
	Raw bool
	// OnError, when set, receives per-row errors and the row is skipped.
	// Without it the first bad row ends the stream.
	OnError func(line int, err error)
}

// ParseComma validates a one-character delimiter string.
func ParseComma(s string) (rune, error) {
	if s == "" {
		return ',', nil
	}
	if s == `\t` {
		return '\t', nil
	}
	r, n := utf8.DecodeRuneInString(s)
	if n != len(s) || r == utf8.RuneError || r == '"' || r == '\r' || r == '\n' {
		return 0, fmt.Errorf("csvsrc: invalid delimiter %q", s)
	}
	return r, nil
}

// Source is an open CSV input positioned after its header.
type Source struct {
	cr      *csv.Reader
	columns []string
	opt     Options
	line    int
}

// NewSource reads the header from r.
func NewSource(r io.Reader, opt Options) (*Source, error) {
	cr := csv.NewReader(r)
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}
	// Width is checked against the header after reading.
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	h, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("csvsrc: read header: %w", err)
	}
	return &Source{cr: cr, columns: headers(h, opt.NormalizeHeaders), opt: opt, line: 1}, nil
}

// Columns returns the column names from the header.
func (s *Source) Columns() []string { return append([]string(nil), s.columns...) }

// Stream sends every data row to out until EOF, a fatal error or ctx ends.
// The caller closes out.
func (s *Source) Stream(ctx context.Context, out chan<- []any) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		row, err := s.next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if s.opt.OnError != nil {
				s.opt.OnError(s.line, err)
				continue
			}
			return err
		}

		select {
		case out <- row:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// ReadAll reads every remaining row.
func (s *Source) ReadAll() ([][]any, error) {
	var rows [][]any
	for {
		row, err := s.next()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			if s.opt.OnError != nil {
				s.opt.OnError(s.line, err)
				continue
			}
			return nil, err
		}
		rows = append(rows, row)
	}
}

func (s *Source) next() ([]any, error) {
	rec, err := s.cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	s.line++
	if err != nil {
		return nil, fmt.Errorf("csvsrc: line %d: %w", s.line, err)
	}
	if len(rec) != len(s.columns) {
		return nil, fmt.Errorf("csvsrc: line %d: expected %d fields, got %d", s.line, len(s.columns), len(rec))
	}
	row := make([]any, len(rec))
	for i, v := range rec {
		v = strings.TrimSpace(v)
		if s.opt.Raw {
			row[i] = v
			continue
		}
		row[i] = Coerce(v)
	}
	return row, nil
}

// Coerce turns a trimmed field into nil, int64, float64, bool or string.
func Coerce(v string) any {
	if v == "" {
		return nil
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil && !strings.ContainsAny(v, "xXpP") && !isSpecialFloat(v) {
		return f
	}
	switch strings.ToLower(v) {
	case "true":
		return true
	case "false":
		return false
	}
	return v
}

// isSpecialFloat reports spellings ParseFloat accepts that are words, not
// numbers.
func isSpecialFloat(v string) bool {
	switch strings.ToLower(strings.TrimLeft(v, "+-")) {
	case "inf", "infinity", "nan":
		return true
	}
	return false
}

func headers(h []string, normalize bool) []string {
	out := make([]string, len(h))
	seen := make(map[string]int, len(h))
	for i, c := range h {
		c = strings.TrimSpace(c)
		if i == 0 {
			c = strings.TrimPrefix(c, utf8BOM)
		}
		if normalize {
			c = NormalizeName(c)
		}
		if c == "" {
			c = fmt.Sprintf("col_%d", i)
		}
		// Keep names unique; a table cannot have two columns of one name.
		if n := seen[c]; n > 0 {
			seen[c] = n + 1
			c = fmt.Sprintf("%s_%d", c, n+1)
		}
		seen[c]++
		out[i] = c
	}
	return out
}

// NormalizeName converts header text into a lowercase ASCII identifier:
// accents are stripped, runs of space, dash, dot or underscore become one
// underscore, anything else outside [a-z0-9] is dropped, and a leading digit
// gets an underscore prefix. An empty result is "col".
func NormalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	ascii, _, _ := transform.String(t, s)

	var b strings.Builder
	prevUnderscore := false
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		case r == '_' || r == ' ' || r == '-' || r == '.':
			if !prevUnderscore {
				b.WriteRune('_')
				prevUnderscore = true
			}
		}
	}
	name := strings.Trim(b.String(), "_")
	if name == "" {
		return "col"
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "_" + name
	}
	return name
}
