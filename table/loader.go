package table

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"finsync/normalize"
	"finsync/ui"

	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"
)

// LoadError reports a bulk transfer failure. The COPY stream either commits
// whole or not at all, so a LoadError never leaves a half-written unit behind.
type LoadError struct {
	Table string
	Unit  string
	Err   error
}

func (e *LoadError) Error() string {
	if e.Unit != "" {
		return "load " + e.Table + " (" + e.Unit + "): " + e.Err.Error()
	}

	return "load " + e.Table + ": " + e.Err.Error()
}

func (e *LoadError) Unwrap() error { return e.Err }

func (e *LoadError) Kind() string { return "load" }

// Loader streams normalized records into Postgres with the COPY protocol.
type Loader struct {
	Pool *pgxpool.Pool
}

func NewLoader(pool *pgxpool.Pool) *Loader {
	return &Loader{Pool: pool}
}

// Begin prepares the destination for a run. Replace mode truncates here, once,
// before any unit loads; concurrent readers may observe an empty table until
// the run's copies land. That window is the accepted trade-off of the replace
// strategy.
func (l *Loader) Begin(ctx context.Context, t Table) error {
	if t.Mode != Replace {
		return nil
	}

	if _, err := l.Pool.Exec(ctx, "truncate "+t.Name); err != nil {
		return &LoadError{Table: t.Name, Err: err}
	}

	return nil
}

// Load lands one unit's records. AppendKeyed mode first deletes the unit's
// existing rows; either way the records then go over a single COPY stream.
func (l *Loader) Load(ctx context.Context, t Table, unit string, records []normalize.Record) error {
	if t.Mode == AppendKeyed {
		db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
		db.DeleteFrom(t.Name)
		db.Where(db.Equal(t.KeyColumn, unit))

		sql, args := db.Build()

		if _, err := l.Pool.Exec(ctx, sql, args...); err != nil {
			return &LoadError{Table: t.Name, Unit: unit, Err: err}
		}
	}

	if len(records) == 0 {
		return nil
	}

	spool, err := writeSpool(t.Columns, records)

	if err != nil {
		return &LoadError{Table: t.Name, Unit: unit, Err: err}
	}

	defer os.Remove(spool)

	f, err := os.Open(spool)

	if err != nil {
		return &LoadError{Table: t.Name, Unit: unit, Err: err}
	}

	defer f.Close()

	conn, err := l.Pool.Acquire(ctx)

	if err != nil {
		return &LoadError{Table: t.Name, Unit: unit, Err: err}
	}

	defer conn.Release()

	_, err = conn.Conn().PgConn().CopyFrom(ctx, f, "copy "+t.Name+" from stdin with csv header;")

	if err != nil {
		return &LoadError{Table: t.Name, Unit: unit, Err: err}
	}

	return nil
}

// writeSpool serializes records to a scoped temporary CSV, header row first.
// The file is private to one Load call; the caller removes it on every path.
func writeSpool(columns []string, records []normalize.Record) (string, error) {
	f, err := os.CreateTemp("", "finsync-"+uuid.NewString()+"-*.csv")

	if err != nil {
		return "", err
	}

	path := f.Name()

	bar := ui.StartBar("spool", int64(len(records)))
	defer bar.Done()

	w := csv.NewWriter(f)

	write := func() error {
		if err := w.Write(columns); err != nil {
			return err
		}

		for _, rec := range records {
			if len(rec) != len(columns) {
				return fmt.Errorf("record has %d fields, table has %d columns", len(rec), len(columns))
			}

			row := make([]string, len(rec))
			for i, v := range rec {
				row[i] = formatValue(v)
			}

			if err := w.Write(row); err != nil {
				return err
			}

			bar.Increment()
		}

		w.Flush()

		return w.Error()
	}

	err = write()

	if cerr := f.Close(); err == nil {
		err = cerr
	}

	if err != nil {
		os.Remove(path)
		return "", err
	}

	return path, nil
}

// formatValue renders one normalized value in the CSV text form COPY expects.
// nil becomes an empty field, which Postgres reads as null in csv mode.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case normalize.Date:
		return val.String()
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	case decimal.Decimal:
		return val.String()
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	}

	return fmt.Sprintf("%v", v)
}
