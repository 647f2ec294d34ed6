package core

// resolve.go maps canonical fields onto the headers of one source file.
//
// Resolution runs once per source, before any row is read:
//  1. Exact: the first candidate whose normalized form equals a normalized
//     header wins. Candidate order is priority order.
//  2. Fuzzy: otherwise the first candidate whose normalized form contains,
//     or is contained in, a normalized header wins.
//
// When two headers normalize to the same token the later one is used.
// Fuzzy matching can pick a wrong column when candidates are short; the
// candidate lists in the tables package avoid tokens that occur inside
// other canonical headers.

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

// ColumnNotFoundError reports that no header matched any candidate.
type ColumnNotFoundError struct {
	Candidates []string
	Headers    []string
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("column not found: none of %q in headers %q", e.Candidates, e.Headers)
}

// SchemaError wraps a resolution failure with the source and field it belongs to.
type SchemaError struct {
	Source string
	Field  string
	Err    error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("source %s: field %s: %v", e.Source, e.Field, e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// ResolveColumn returns the raw header matching one of the candidates.
// Returns a *ColumnNotFoundError carrying both lists if nothing matches.
func ResolveColumn(headers, candidates []string) (string, error) {
	keys := make([]string, 0, len(headers))
	byKey := make(map[string]string, len(headers))
	for _, h := range headers {
		k := NormalizeHeader(h)
		if _, seen := byKey[k]; !seen {
			keys = append(keys, k)
		}
		byKey[k] = h
	}

	normalized := make([]string, len(candidates))
	for i, c := range candidates {
		normalized[i] = NormalizeHeader(c)
	}

	for _, nc := range normalized {
		if nc == "" {
			continue
		}
		if h, ok := byKey[nc]; ok {
			return h, nil
		}
	}

	for _, nc := range normalized {
		if nc == "" {
			continue
		}
		for _, k := range keys {
			if k == "" {
				continue
			}
			if strings.Contains(k, nc) || strings.Contains(nc, k) {
				return byKey[k], nil
			}
		}
	}

	return "", &ColumnNotFoundError{
		Candidates: slices.Clone(candidates),
		Headers:    slices.Clone(headers),
	}
}

// Resolution is the outcome of resolving one canonical field.
// Found is false only for optional fields that matched nothing.
type Resolution struct {
	Header string
	Index  int
	Found  bool
}

// ResolvedSchema maps each canonical field of a source to a column position.
// It is read-only once built.
type ResolvedSchema struct {
	Source  string
	Headers []string
	fields  []CanonicalField
	columns map[string]Resolution
}

// ResolveSchema resolves every field of def against headers.
// Required fields that cannot be resolved fail with a *SchemaError wrapping
// the *ColumnNotFoundError. Optional ones are recorded as not found.
func ResolveSchema(def SourceDefinition, headers []string) (*ResolvedSchema, error) {
	schema := &ResolvedSchema{
		Source:  def.Info.Key,
		Headers: slices.Clone(headers),
		fields:  def.Fields,
		columns: make(map[string]Resolution, len(def.Fields)),
	}

	for _, f := range def.Fields {
		header, err := ResolveColumn(headers, f.Candidates)
		if err != nil {
			if f.Required {
				return nil, &SchemaError{Source: def.Info.Key, Field: f.Name, Err: err}
			}
			schema.columns[f.Name] = Resolution{Index: -1}
			continue
		}
		schema.columns[f.Name] = Resolution{
			Header: header,
			Index:  lastIndex(headers, header),
			Found:  true,
		}
	}

	return schema, nil
}

// lastIndex returns the position of the last header equal to h.
// Duplicate header names read from the rightmost column.
func lastIndex(headers []string, h string) int {
	for i := len(headers) - 1; i >= 0; i-- {
		if headers[i] == h {
			return i
		}
	}
	return -1
}

// Resolution returns how a field was resolved.
// Unknown field names report not found.
func (s *ResolvedSchema) Resolution(field string) Resolution {
	r, ok := s.columns[field]
	if !ok {
		return Resolution{Index: -1}
	}
	return r
}

// Text returns the trimmed cell for field, or "" when the field is absent
// or the row is too short.
func (s *ResolvedSchema) Text(row []string, field string) string {
	r := s.Resolution(field)
	if !r.Found || r.Index >= len(row) {
		return ""
	}
	return CoerceText(row[r.Index])
}

// Int returns the cell for field coerced with CoerceInt.
func (s *ResolvedSchema) Int(row []string, field string) int64 {
	r := s.Resolution(field)
	if !r.Found || r.Index >= len(row) {
		return 0
	}
	return CoerceInt(row[r.Index])
}

// LogValue reports the field to header mapping for structured logs.
func (s *ResolvedSchema) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(s.fields))
	for _, f := range s.fields {
		r := s.columns[f.Name]
		if r.Found {
			attrs = append(attrs, slog.String(f.Name, r.Header))
		} else {
			attrs = append(attrs, slog.String(f.Name, "<absent>"))
		}
	}
	return slog.GroupValue(attrs...)
}
