// Maps raw source records onto typed, storage-ready rows. All the locale and
// format quirks of the sources live here, declared per field.
package normalize

import (
	"fmt"
	"strings"

	"finsync/source"
)

// Schema is the fixed, ordered field set of one destination table.
type Schema struct {
	Fields []*Field
}

// NewSchema exists to make job declarations read like the tables they feed.
func NewSchema(fields ...*Field) *Schema {
	return &Schema{Fields: fields}
}

// Columns returns the destination column names in wire order.
func (s *Schema) Columns() []string {
	cols := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		cols[i] = f.DstName
	}

	return cols
}

// Record is one normalized row, values ordered exactly as Columns. nil values
// are nulls.
type Record []any

// ValidationError identifies the field and raw value that failed
// normalization, for diagnosis from run output.
type ValidationError struct {
	Field string
	Raw   any
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: field %q value %q: %v", e.Field, fmt.Sprint(e.Raw), e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Kind() string { return "validation" }

// Normalize converts one raw record. A field absent from the raw record yields
// null (or the field's placeholder default), never a parse attempt.
func (s *Schema) Normalize(raw source.RawRecord) (Record, error) {
	rec := make(Record, 0, len(s.Fields))

	for _, f := range s.Fields {
		v := raw[f.SrcName]

		for _, t := range f.Transforms {
			v = t(raw, v)
		}

		parsed, err := f.parse(v)

		if err != nil {
			return nil, &ValidationError{Field: f.SrcName, Raw: v, Err: err}
		}

		rec = append(rec, parsed)
	}

	return rec, nil
}

// StripAfterColon keeps only the leading code of a composite code:suffix
// identifier.
func StripAfterColon(_ source.RawRecord, v any) any {
	s, ok := v.(string)

	if !ok {
		return v
	}

	if i := strings.Index(s, ":"); i >= 0 {
		return s[:i]
	}

	return s
}
