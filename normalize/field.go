package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"finsync/source"

	"github.com/shopspring/decimal"
)

type Kind int

const (
	KindText Kind = iota
	KindInt
	KindBigInt
	KindDecimal
	KindDate
	KindTimestamp
)

// Date layouts the sources actually use.
const (
	LayoutDate        = "02.01.2006"
	LayoutDateTime    = "02.01.2006 15:04:05"
	LayoutISODateTime = "2006-01-02 15:04:05"
)

// Transform rewrites a raw value before type parsing; it sees the whole raw
// record for cross-field cases.
type Transform func(record source.RawRecord, v any) any

// Field declares how one raw field maps onto one destination column.
type Field struct {
	// The underlying type of the destination column.
	Kind Kind
	// The source name of the field.
	SrcName string
	// The output name of the field.
	DstName string
	// Literal placeholder applied when the raw value is absent or empty.
	// Only meaningful for text fields (category labels, notes); numeric and
	// date fields always map absence to null.
	Default any
	// Date/timestamp layouts, tried in order.
	Layouts []string
	// Localized month names for "day monthname" dates.
	Months map[string]time.Month
	// Any transformations for the field.
	Transforms []Transform
}

func NewText(srcName, dstName string, defValue any, transforms ...Transform) *Field {
	return &Field{
		Kind:       KindText,
		SrcName:    srcName,
		DstName:    dstName,
		Default:    defValue,
		Transforms: transforms,
	}
}

func NewInt(srcName, dstName string, transforms ...Transform) *Field {
	return &Field{
		Kind:       KindInt,
		SrcName:    srcName,
		DstName:    dstName,
		Transforms: transforms,
	}
}

func NewBigInt(srcName, dstName string, transforms ...Transform) *Field {
	return &Field{
		Kind:       KindBigInt,
		SrcName:    srcName,
		DstName:    dstName,
		Transforms: transforms,
	}
}

func NewDecimal(srcName, dstName string, transforms ...Transform) *Field {
	return &Field{
		Kind:       KindDecimal,
		SrcName:    srcName,
		DstName:    dstName,
		Transforms: transforms,
	}
}

func NewDate(srcName, dstName string, layouts ...string) *Field {
	return &Field{
		Kind:    KindDate,
		SrcName: srcName,
		DstName: dstName,
		Layouts: layouts,
	}
}

func NewTimestamp(srcName, dstName string, layouts ...string) *Field {
	return &Field{
		Kind:    KindTimestamp,
		SrcName: srcName,
		DstName: dstName,
		Layouts: layouts,
	}
}

// SetMonths switches a date field to the localized "day monthname [year]"
// form; a missing year means the current one.
func (f *Field) SetMonths(m map[string]time.Month) *Field {
	f.Months = m
	return f
}

// Date is a calendar date without a time of day. Distinct from time.Time so
// the loader can serialize date columns without a bogus midnight timestamp.
type Date struct {
	time.Time
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

// parse converts a transformed raw value into the field's canonical typed
// representation. nil stands for null throughout.
func (f *Field) parse(v any) (any, error) {
	if v == nil {
		return f.parseAbsent()
	}

	if s, ok := v.(string); ok && s == "" {
		return f.parseAbsent()
	}

	switch f.Kind {
	case KindText:
		if s, ok := v.(string); ok {
			return s, nil
		}

		return fmt.Sprintf("%v", v), nil
	case KindInt, KindBigInt:
		return parseInt(v)
	case KindDecimal:
		return parseDecimal(v)
	case KindDate:
		t, err := f.parseTime(v)

		if err != nil {
			return nil, err
		}

		return Date{t}, nil
	case KindTimestamp:
		return f.parseTime(v)
	}

	return nil, fmt.Errorf("unknown field kind %d", f.Kind)
}

func (f *Field) parseAbsent() (any, error) {
	if f.Kind == KindText && f.Default != nil {
		return f.Default, nil
	}

	return nil, nil
}

// Source numbers may use a comma as the decimal separator; it is replaced with
// a point before any numeric parsing.
func pointDecimal(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
}

func parseDecimal(v any) (any, error) {
	switch n := v.(type) {
	case string:
		return decimal.NewFromString(pointDecimal(n))
	case float64:
		return decimal.NewFromFloat(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case decimal.Decimal:
		return n, nil
	}

	return nil, fmt.Errorf("cannot parse %T as decimal", v)
}

func parseInt(v any) (any, error) {
	switch n := v.(type) {
	case string:
		s := pointDecimal(n)

		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}

		f, err := strconv.ParseFloat(s, 64)

		if err != nil {
			return nil, err
		}

		return int64(f), nil
	case float64:
		return int64(n), nil
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	}

	return nil, fmt.Errorf("cannot parse %T as integer", v)
}

func (f *Field) parseTime(v any) (time.Time, error) {
	if t, ok := v.(time.Time); ok {
		return t, nil
	}

	s, ok := v.(string)

	if !ok {
		return time.Time{}, fmt.Errorf("cannot parse %T as time", v)
	}

	s = strings.TrimSpace(s)

	if f.Months != nil {
		return f.parseMonthName(s)
	}

	layouts := f.Layouts
	if len(layouts) == 0 {
		layouts = []string{LayoutDate, LayoutDateTime, LayoutISODateTime, time.RFC3339}
	}

	var firstErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)

		if err == nil {
			return t, nil
		}

		if firstErr == nil {
			firstErr = err
		}
	}

	return time.Time{}, firstErr
}

func (f *Field) parseMonthName(s string) (time.Time, error) {
	parts := strings.Fields(s)

	if len(parts) < 2 {
		return time.Time{}, fmt.Errorf("%q is not a day-monthname date", s)
	}

	day, err := strconv.Atoi(parts[0])

	if err != nil {
		return time.Time{}, err
	}

	month, ok := f.Months[strings.ToLower(parts[1])]

	if !ok {
		return time.Time{}, fmt.Errorf("unknown month name %q", parts[1])
	}

	year := time.Now().Year()
	if len(parts) > 2 {
		if year, err = strconv.Atoi(parts[2]); err != nil {
			return time.Time{}, err
		}
	}

	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), nil
}
