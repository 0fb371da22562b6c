// Grows the category-mapping side tables: every key combination seen in a
// source table gets a row awaiting human curation.
package reconcile

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v4/pgxpool"
)

// Mapping describes one reconciliation: which key columns of the source table
// feed the mapping table, and which curation columns stay null for a human to
// fill in later.
type Mapping struct {
	SourceTable     string
	MappingTable    string
	KeyColumns      []string
	CurationColumns []string
}

type Reconciler struct {
	Pool *pgxpool.Pool
}

func NewReconciler(pool *pgxpool.Pool) *Reconciler {
	return &Reconciler{Pool: pool}
}

// Reconcile inserts one row per distinct key tuple present in the source table
// but absent from the mapping table, curation columns null. The set difference
// is evaluated against current table contents at call time, so running it
// again with no new data inserts nothing, and existing rows are never touched.
func (r *Reconciler) Reconcile(ctx context.Context, m Mapping) (int64, error) {
	tag, err := r.Pool.Exec(ctx, buildSQL(m))

	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}

func buildSQL(m Mapping) string {
	srcKeys := make([]string, len(m.KeyColumns))
	matches := make([]string, len(m.KeyColumns))
	for i, k := range m.KeyColumns {
		srcKeys[i] = "src." + k
		matches[i] = "m." + k + " = src." + k
	}

	selects := make([]string, 0, len(m.KeyColumns)+len(m.CurationColumns))
	selects = append(selects, srcKeys...)
	for _, c := range m.CurationColumns {
		selects = append(selects, "null as "+c)
	}

	return "insert into " + m.MappingTable + "\n" +
		"select " + strings.Join(selects, ", ") + "\n" +
		"from " + m.SourceTable + " src\n" +
		"where not exists (select 1 from " + m.MappingTable + " m where " + strings.Join(matches, " and ") + ")\n" +
		"group by " + strings.Join(srcKeys, ", ")
}
