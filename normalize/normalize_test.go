package normalize

import (
	"testing"
	"time"

	"finsync/source"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDecimals(t *testing.T) {
	schema := NewSchema(NewDecimal("amount", "amount"))

	t.Run("comma separator becomes point", func(t *testing.T) {
		rec, err := schema.Normalize(source.RawRecord{"amount": "1234,56"})
		require.NoError(t, err)

		got, ok := rec[0].(decimal.Decimal)
		require.True(t, ok)
		assert.True(t, got.Equal(decimal.RequireFromString("1234.56")))
	})

	t.Run("empty is null, not zero", func(t *testing.T) {
		rec, err := schema.Normalize(source.RawRecord{"amount": ""})
		require.NoError(t, err)
		assert.Nil(t, rec[0])
	})

	t.Run("absent is null", func(t *testing.T) {
		rec, err := schema.Normalize(source.RawRecord{})
		require.NoError(t, err)
		assert.Nil(t, rec[0])
	})

	t.Run("native float is accepted", func(t *testing.T) {
		rec, err := schema.Normalize(source.RawRecord{"amount": 12.5})
		require.NoError(t, err)

		got := rec[0].(decimal.Decimal)
		assert.True(t, got.Equal(decimal.NewFromFloat(12.5)))
	})

	t.Run("garbage is a validation error", func(t *testing.T) {
		_, err := schema.Normalize(source.RawRecord{"amount": "abc"})

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "amount", verr.Field)
		assert.Equal(t, "abc", verr.Raw)
		assert.Equal(t, "validation", verr.Kind())
	})
}

func TestNormalizeDates(t *testing.T) {
	t.Run("day.month.year", func(t *testing.T) {
		schema := NewSchema(NewDate("d", "d", LayoutDate))

		rec, err := schema.Normalize(source.RawRecord{"d": "05.09.2021"})
		require.NoError(t, err)
		assert.Equal(t, Date{time.Date(2021, 9, 5, 0, 0, 0, 0, time.UTC)}, rec[0])
	})

	t.Run("day.month.year with time", func(t *testing.T) {
		schema := NewSchema(NewTimestamp("d", "d", LayoutDateTime))

		rec, err := schema.Normalize(source.RawRecord{"d": "05.09.2021 14:30:00"})
		require.NoError(t, err)
		assert.Equal(t, time.Date(2021, 9, 5, 14, 30, 0, 0, time.UTC), rec[0])
	})

	t.Run("iso date-time truncated to date", func(t *testing.T) {
		schema := NewSchema(NewDate("d", "d", LayoutISODateTime))

		rec, err := schema.Normalize(source.RawRecord{"d": "2021-09-05 14:30:00"})
		require.NoError(t, err)

		got := rec[0].(Date)
		assert.Equal(t, "2021-09-05", got.String())
	})

	t.Run("absent date yields null, never a parse attempt", func(t *testing.T) {
		schema := NewSchema(NewDate("d", "d", LayoutDate))

		rec, err := schema.Normalize(source.RawRecord{})
		require.NoError(t, err)
		assert.Nil(t, rec[0])
	})

	t.Run("localized month name", func(t *testing.T) {
		months := map[string]time.Month{"января": time.January, "сентября": time.September}
		schema := NewSchema(NewDate("d", "d").SetMonths(months))

		rec, err := schema.Normalize(source.RawRecord{"d": "15 сентября 2021"})
		require.NoError(t, err)
		assert.Equal(t, Date{time.Date(2021, 9, 15, 0, 0, 0, 0, time.UTC)}, rec[0])
	})

	t.Run("month name without year means current year", func(t *testing.T) {
		months := map[string]time.Month{"января": time.January}
		schema := NewSchema(NewDate("d", "d").SetMonths(months))

		rec, err := schema.Normalize(source.RawRecord{"d": "2 января"})
		require.NoError(t, err)
		assert.Equal(t, Date{time.Date(time.Now().Year(), 1, 2, 0, 0, 0, 0, time.UTC)}, rec[0])
	})

	t.Run("unknown month name is a validation error", func(t *testing.T) {
		schema := NewSchema(NewDate("d", "d").SetMonths(map[string]time.Month{}))

		_, err := schema.Normalize(source.RawRecord{"d": "2 nowhere"})

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "d", verr.Field)
	})
}

func TestNormalizeText(t *testing.T) {
	t.Run("placeholder default only on designated fields", func(t *testing.T) {
		schema := NewSchema(
			NewText("category", "category", "-"),
			NewText("status", "status", nil),
		)

		rec, err := schema.Normalize(source.RawRecord{})
		require.NoError(t, err)
		assert.Equal(t, "-", rec[0])
		assert.Nil(t, rec[1])
	})

	t.Run("empty string also takes the placeholder", func(t *testing.T) {
		schema := NewSchema(NewText("category", "category", "-"))

		rec, err := schema.Normalize(source.RawRecord{"category": ""})
		require.NoError(t, err)
		assert.Equal(t, "-", rec[0])
	})

	t.Run("identifier stripping", func(t *testing.T) {
		schema := NewSchema(NewText("ticker", "ticker", nil, StripAfterColon))

		rec, err := schema.Normalize(source.RawRecord{"ticker": "RU000A:EQ"})
		require.NoError(t, err)
		assert.Equal(t, "RU000A", rec[0])

		rec, err = schema.Normalize(source.RawRecord{"ticker": "SBER"})
		require.NoError(t, err)
		assert.Equal(t, "SBER", rec[0])
	})
}

func TestNormalizeIntegers(t *testing.T) {
	schema := NewSchema(NewInt("mcc", "mcc"))

	t.Run("plain digits", func(t *testing.T) {
		rec, err := schema.Normalize(source.RawRecord{"mcc": "5411"})
		require.NoError(t, err)
		assert.Equal(t, int64(5411), rec[0])
	})

	t.Run("empty is null", func(t *testing.T) {
		rec, err := schema.Normalize(source.RawRecord{"mcc": ""})
		require.NoError(t, err)
		assert.Nil(t, rec[0])
	})

	t.Run("json number", func(t *testing.T) {
		rec, err := schema.Normalize(source.RawRecord{"mcc": float64(5411)})
		require.NoError(t, err)
		assert.Equal(t, int64(5411), rec[0])
	})
}

func TestSchemaColumns(t *testing.T) {
	schema := NewSchema(
		NewText("a", "col_a", nil),
		NewDecimal("b", "col_b"),
	)

	assert.Equal(t, []string{"col_a", "col_b"}, schema.Columns())
}
