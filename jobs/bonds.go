package jobs

import (
	"context"
	"regexp"

	"finsync/normalize"
	"finsync/pipeline"
	"finsync/source"
	"finsync/source/web"
	"finsync/table"
)

var bondDate = regexp.MustCompile(`\d{2}\.\d{2}\.\d{4}`)

// Bonds rebuilds portfolio_bonds_payments: for every bond ticker already seen
// in portfolio_operations, the coupon payment schedule is scraped off the
// bond's page, with the trading start date prepended as a schedule anchor row.
func Bonds(d Deps) pipeline.Job {
	client := newBrokerClient(d.Cfg)

	schema := normalize.NewSchema(
		normalize.NewText("bond", "bond", nil),
		normalize.NewDate("Датавыплаты", "payment_date", normalize.LayoutDate),
		normalize.NewDecimal("Ставкакупона", "coupon"),
		normalize.NewDecimal("Размервыплаты", "payment"),
		normalize.NewDecimal("%отноминала", "percent"),
		normalize.NewDecimal("номинал", "nominal"),
	)

	return pipeline.Job{
		Name:   "bonds",
		Source: client,
		Units: func(ctx context.Context, _ *source.Session) ([]string, error) {
			rows, err := d.Pool.Query(ctx,
				`select distinct ticker from portfolio_operations where ticker like 'RU000A%'`)

			if err != nil {
				return nil, err
			}

			defer rows.Close()

			var bonds []string
			for rows.Next() {
				var ticker string

				if err := rows.Scan(&ticker); err != nil {
					return nil, err
				}

				bonds = append(bonds, ticker)
			}

			return bonds, rows.Err()
		},
		Fetch: func(ctx context.Context, s *source.Session, bond string) ([]source.RawRecord, error) {
			doc, err := client.GetDocument(ctx, s, "/bonds/"+bond)

			if err != nil {
				return nil, err
			}

			rows, err := web.WidgetTable(doc, "График выплаты купонов")

			if err != nil {
				return nil, err
			}

			started, err := web.LabeledCell(doc, "Дата начала торгов")

			if err != nil {
				return nil, err
			}

			date := bondDate.FindString(started)

			if date == "" {
				return nil, &source.StructureError{Marker: "Дата начала торгов"}
			}

			records := []source.RawRecord{{
				"bond":        bond,
				"Датавыплаты": date,
			}}

			for _, row := range rows {
				row["bond"] = bond
				records = append(records, row)
			}

			return records, nil
		},
		Schema: schema,
		Table: table.Table{
			Name:    "portfolio_bonds_payments",
			Columns: schema.Columns(),
			Mode:    table.Replace,
		},
		Views: d.refreshViews(),
	}
}
