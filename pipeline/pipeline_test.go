package pipeline

import (
	"context"
	"errors"
	"os"
	"testing"

	"finsync/normalize"
	"finsync/reconcile"
	"finsync/source"
	"finsync/table"
	"finsync/ui"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	ui.Quiet = true
	os.Exit(m.Run())
}

type fakeSource struct {
	err error
}

func (f fakeSource) Authenticate(ctx context.Context) (*source.Session, error) {
	if f.err != nil {
		return nil, f.err
	}

	return &source.Session{}, nil
}

type fakeLoader struct {
	begins   int
	loaded   []string
	failUnit string
}

func (l *fakeLoader) Begin(ctx context.Context, t table.Table) error {
	l.begins++
	return nil
}

func (l *fakeLoader) Load(ctx context.Context, t table.Table, unit string, records []normalize.Record) error {
	if unit == l.failUnit && l.failUnit != "" {
		return &table.LoadError{Table: t.Name, Unit: unit, Err: errors.New("connection reset")}
	}

	l.loaded = append(l.loaded, unit)

	return nil
}

type fakeReconciler struct {
	calls    int
	mappings []reconcile.Mapping
}

func (r *fakeReconciler) Reconcile(ctx context.Context, m reconcile.Mapping) (int64, error) {
	r.calls++
	r.mappings = append(r.mappings, m)

	return 3, nil
}

type fakeRefresher struct {
	calls int
	names []string
	err   error
}

func (r *fakeRefresher) Refresh(ctx context.Context, names []string) error {
	r.calls++
	r.names = names

	return r.err
}

func testJob(units []string) Job {
	return Job{
		Name:   "orders",
		Source: fakeSource{},
		Units: func(ctx context.Context, s *source.Session) ([]string, error) {
			return units, nil
		},
		Fetch: func(ctx context.Context, s *source.Session, unit string) ([]source.RawRecord, error) {
			return []source.RawRecord{{"id": unit}}, nil
		},
		Schema: normalize.NewSchema(normalize.NewText("id", "id", nil)),
		Table:  table.Table{Name: "orders", Columns: []string{"id"}, Mode: table.AppendKeyed, KeyColumn: "id"},
	}
}

func TestRunHappyPath(t *testing.T) {
	loader := &fakeLoader{}
	rec := &fakeReconciler{}
	ref := &fakeRefresher{}
	runner := &Runner{Loader: loader, Reconciler: rec, Refresher: ref}

	job := testJob([]string{"u1", "u2", "u3"})
	job.Mapping = &reconcile.Mapping{SourceTable: "orders", MappingTable: "orders_mapping", KeyColumns: []string{"id"}}
	job.Views = []string{"portfolio_performance"}

	require.NoError(t, runner.Run(context.Background(), job))

	assert.Equal(t, 1, loader.begins)
	assert.Equal(t, []string{"u1", "u2", "u3"}, loader.loaded)
	assert.Equal(t, 1, rec.calls)
	assert.Equal(t, 1, ref.calls)
	assert.Equal(t, []string{"portfolio_performance"}, ref.names)
}

func TestRunAbortsOnFirstFailedUnit(t *testing.T) {
	loader := &fakeLoader{failUnit: "u2"}
	rec := &fakeReconciler{}
	ref := &fakeRefresher{}
	runner := &Runner{Loader: loader, Reconciler: rec, Refresher: ref}

	job := testJob([]string{"u1", "u2", "u3"})
	job.Mapping = &reconcile.Mapping{MappingTable: "orders_mapping"}
	job.Views = []string{"portfolio_performance"}

	err := runner.Run(context.Background(), job)

	var uerr *UnitError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "u2", uerr.Unit)
	assert.Equal(t, "load", Kind(err))

	// u1's load stands, u3 was never attempted
	assert.Equal(t, []string{"u1"}, loader.loaded)

	// neither reconciliation nor refresh runs after an aborted loop
	assert.Zero(t, rec.calls)
	assert.Zero(t, ref.calls)
}

func TestRunFetchFailureAbortsUnit(t *testing.T) {
	loader := &fakeLoader{}
	runner := &Runner{Loader: loader}

	job := testJob([]string{"u1", "u2"})
	job.Fetch = func(ctx context.Context, s *source.Session, unit string) ([]source.RawRecord, error) {
		if unit == "u2" {
			return nil, &source.StructureError{Marker: "table.positions"}
		}

		return []source.RawRecord{{"id": unit}}, nil
	}

	err := runner.Run(context.Background(), job)

	var uerr *UnitError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "u2", uerr.Unit)
	assert.Equal(t, "structure", Kind(err))
	assert.Equal(t, []string{"u1"}, loader.loaded)
}

func TestRunValidationFailureAbortsUnit(t *testing.T) {
	loader := &fakeLoader{}
	runner := &Runner{Loader: loader}

	job := testJob([]string{"u1"})
	job.Schema = normalize.NewSchema(normalize.NewDecimal("id", "id"))
	job.Fetch = func(ctx context.Context, s *source.Session, unit string) ([]source.RawRecord, error) {
		return []source.RawRecord{{"id": "not-a-number"}}, nil
	}

	err := runner.Run(context.Background(), job)

	require.Error(t, err)
	assert.Equal(t, "validation", Kind(err))
	assert.Empty(t, loader.loaded)
}

func TestRunAuthFailureIsFatalBeforeAnyUnit(t *testing.T) {
	loader := &fakeLoader{}
	runner := &Runner{Loader: loader}

	job := testJob([]string{"u1"})
	job.Source = fakeSource{err: &source.AuthError{Reason: "bad credentials"}}

	err := runner.Run(context.Background(), job)

	assert.Equal(t, "auth", Kind(err))
	assert.Zero(t, loader.begins)
	assert.Empty(t, loader.loaded)
}

func TestRunWholeDatasetJob(t *testing.T) {
	loader := &fakeLoader{}
	runner := &Runner{Loader: loader}

	job := testJob(nil)
	job.Units = nil

	require.NoError(t, runner.Run(context.Background(), job))

	// one anonymous unit covering the whole dataset
	assert.Equal(t, []string{""}, loader.loaded)
}

func TestRunViewsOnlyJob(t *testing.T) {
	ref := &fakeRefresher{}
	runner := &Runner{Refresher: ref}

	job := Job{Name: "views", Source: source.NoAuth{}, Views: []string{"portfolio_performance"}}

	require.NoError(t, runner.Run(context.Background(), job))
	assert.Equal(t, 1, ref.calls)
}

func TestRunRefreshFailureFailsRun(t *testing.T) {
	loader := &fakeLoader{}
	ref := &fakeRefresher{err: errors.New("view is being refreshed concurrently")}
	runner := &Runner{Loader: loader, Refresher: ref}

	job := testJob([]string{"u1"})
	job.Views = []string{"portfolio_performance"}

	err := runner.Run(context.Background(), job)

	require.Error(t, err)
	// data landed before the refresh failed
	assert.Equal(t, []string{"u1"}, loader.loaded)
}

func TestKind(t *testing.T) {
	assert.Equal(t, "auth", Kind(&source.AuthError{Reason: "x"}))
	assert.Equal(t, "decode", Kind(&source.DecodeError{Name: "f.csv", Err: errors.New("x")}))
	assert.Equal(t, "load", Kind(&UnitError{Unit: "u", Err: &table.LoadError{Table: "t", Err: errors.New("x")}}))
	assert.Equal(t, "error", Kind(errors.New("plain")))
}
