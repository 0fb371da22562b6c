package jobs

import (
	"context"

	"finsync/normalize"
	"finsync/pipeline"
	"finsync/source"
	"finsync/table"
)

// Portfolio replaces portfolio_operations with the broker's full transaction
// export, one whole-dataset fetch.
func Portfolio(d Deps) pipeline.Job {
	client := newBrokerClient(d.Cfg)
	exportPath := "/tools/ajax-portfolio-export.php?id=" + d.Cfg.BrokerPortfolioID + "&service=bt_json"

	schema := normalize.NewSchema(
		normalize.NewBigInt("id", "id"),
		normalize.NewText("transaction_code", "transaction_code", nil),
		normalize.NewText("asset", "asset", nil, normalize.StripAfterColon),
		normalize.NewText("assetname", "assetname", nil),
		normalize.NewDate("date", "date", normalize.LayoutISODateTime),
		normalize.NewDecimal("price", "price"),
		normalize.NewText("ticker", "ticker", nil, normalize.StripAfterColon),
		normalize.NewDecimal("quantity", "quantity"),
		normalize.NewDecimal("fee", "fee"),
		normalize.NewDecimal("nkd", "nkd"),
		normalize.NewDecimal("nominal", "nominal"),
		normalize.NewText("note", "note", "-"),
		normalize.NewText("currency", "currency", nil),
		normalize.NewText("type", "type", nil),
		normalize.NewText("operation", "operation", nil),
	)

	return pipeline.Job{
		Name:   "portfolio",
		Source: client,
		Fetch: func(ctx context.Context, s *source.Session, _ string) ([]source.RawRecord, error) {
			var out struct {
				Transactions map[string]map[string]any `json:"transactions"`
			}

			if err := client.GetJSON(ctx, s, exportPath, &out); err != nil {
				return nil, err
			}

			records := make([]source.RawRecord, 0, len(out.Transactions))
			for _, tx := range out.Transactions {
				records = append(records, source.RawRecord(tx))
			}

			return records, nil
		},
		Schema: schema,
		Table: table.Table{
			Name:    "portfolio_operations",
			Columns: schema.Columns(),
			Mode:    table.Replace,
		},
		Views: d.refreshViews(),
	}
}
