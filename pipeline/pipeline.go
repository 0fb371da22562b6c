// Drives one sync job end to end: authenticate, then fetch, normalize and load
// every unit in turn, reconcile mappings and refresh views. Units run strictly
// sequentially; the first failed unit aborts the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"finsync/normalize"
	"finsync/reconcile"
	"finsync/source"
	"finsync/table"
	"finsync/ui"

	"github.com/google/uuid"
)

// Kind classifies err by the pipeline failure taxonomy (auth, structure,
// decode, validation, load); anything else reports as plain "error".
func Kind(err error) string {
	var k interface{ Kind() string }

	if errors.As(err, &k) {
		return k.Kind()
	}

	return "error"
}

// UnitError wraps the failure of one unit with its identifier so the failing
// unit is always discoverable from run output.
type UnitError struct {
	Unit string
	Err  error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("unit %s failed (%s): %v", e.Unit, Kind(e.Err), e.Err)
}

func (e *UnitError) Unwrap() error { return e.Err }

// Job declares one sync end to end. The generic run logic lives in Runner;
// everything source- or table-specific is data here.
type Job struct {
	Name string
	// produces the Session threaded through Units and Fetch
	Source source.Source
	// enumerates the unit identifiers; nil means one whole-dataset unit
	Units func(ctx context.Context, s *source.Session) ([]string, error)
	// fetches one unit's raw records; nil means the job loads nothing
	// (views-only runs)
	Fetch func(ctx context.Context, s *source.Session, unit string) ([]source.RawRecord, error)

	Schema *normalize.Schema
	Table  table.Table

	// optional post-load reconciliation
	Mapping *reconcile.Mapping
	// views to refresh after everything else succeeded
	Views []string
}

type Loader interface {
	Begin(ctx context.Context, t table.Table) error
	Load(ctx context.Context, t table.Table, unit string, records []normalize.Record) error
}

type Reconciler interface {
	Reconcile(ctx context.Context, m reconcile.Mapping) (int64, error)
}

type Refresher interface {
	Refresh(ctx context.Context, names []string) error
}

type Runner struct {
	Loader     Loader
	Reconciler Reconciler
	Refresher  Refresher
}

// Run executes the job. Any error is fatal to the run; recovery is an
// external re-invocation, which the table's load mode makes idempotent.
func (r *Runner) Run(ctx context.Context, job Job) error {
	runID := uuid.NewString()[:8]
	ui.Header("Syncing " + job.Name + " [" + runID + "]")

	sess, err := job.Source.Authenticate(ctx)

	if err != nil {
		return err
	}

	if job.Fetch != nil {
		// The unit list is fixed before the loop begins; units appearing
		// mid-run are left for the next invocation.
		units := []string{""}

		if job.Units != nil {
			units, err = job.Units(ctx, sess)

			if err != nil {
				return err
			}
		}

		if err := r.Loader.Begin(ctx, job.Table); err != nil {
			return err
		}

		for _, unit := range units {
			if err := r.syncUnit(ctx, job, sess, unit); err != nil {
				// Already-loaded units stay in the destination; the rerun
				// skips or overwrites them depending on the load mode.
				return &UnitError{Unit: displayUnit(job, unit), Err: err}
			}
		}
	}

	if job.Mapping != nil {
		n, err := r.Reconciler.Reconcile(ctx, *job.Mapping)

		if err != nil {
			return err
		}

		if n > 0 {
			ui.NotifyMsg("info", fmt.Sprintf("%d new %s rows await curation", n, job.Mapping.MappingTable))
		}
	}

	if len(job.Views) > 0 {
		// A refresh failure fails the run even though the data already
		// landed: the run is not complete until dependent views are current.
		if err := r.Refresher.Refresh(ctx, job.Views); err != nil {
			return err
		}
	}

	return nil
}

func (r *Runner) syncUnit(ctx context.Context, job Job, sess *source.Session, unit string) error {
	ui.UnitStart(displayUnit(job, unit))

	raws, err := job.Fetch(ctx, sess, unit)

	if err != nil {
		ui.UnitError()
		return err
	}

	records := make([]normalize.Record, 0, len(raws))
	for _, raw := range raws {
		rec, err := job.Schema.Normalize(raw)

		if err != nil {
			ui.UnitError()
			return err
		}

		records = append(records, rec)
	}

	if err := r.Loader.Load(ctx, job.Table, unit, records); err != nil {
		ui.UnitError()
		return err
	}

	ui.UnitOK()

	return nil
}

func displayUnit(job Job, unit string) string {
	if unit == "" {
		return job.Name
	}

	return unit
}
