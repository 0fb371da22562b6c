// Synchronous materialized view refresh, the last step of a successful run.
package views

import (
	"context"
	"fmt"

	"finsync/ui"

	"github.com/jackc/pgx/v4/pgxpool"
)

type Refresher struct {
	Pool *pgxpool.Pool
}

func NewRefresher(pool *pgxpool.Pool) *Refresher {
	return &Refresher{Pool: pool}
}

// Refresh recomputes each named view in order, reporting per-view outcome. The
// first failure aborts: downstream reporting must not read a half-refreshed
// set of views as current.
func (r *Refresher) Refresh(ctx context.Context, names []string) error {
	ui.Header("Refreshing materialized views")

	for _, name := range names {
		ui.UnitStart(name)

		if _, err := r.Pool.Exec(ctx, "refresh materialized view "+name); err != nil {
			ui.UnitError()
			return fmt.Errorf("refresh %s: %w", name, err)
		}

		ui.UnitOK()
	}

	return nil
}
