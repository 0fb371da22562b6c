package jobs

import (
	"context"
	"time"

	"finsync/normalize"
	"finsync/pipeline"
	"finsync/source"
	"finsync/source/api"
	"finsync/table"
)

const (
	investAPIURL = "https://api-invest.tinkoff.ru/openapi/sandbox"
	// currency candles are needed from the earliest operation onward to
	// value foreign-currency positions
	currencyTicker = "USD000UTSTOM"
)

// Prices rebuilds portfolio_prices with day candles for every ticker the
// portfolio has operations in, from each ticker's first operation to now.
func Prices(d Deps) pipeline.Job {
	client := &api.Client{
		BaseURL: investAPIURL,
		Token:   d.Cfg.InvestToken,
	}

	schema := normalize.NewSchema(
		normalize.NewText("ticker", "ticker", nil),
		normalize.NewDecimal("o", "o"),
		normalize.NewDecimal("c", "c"),
		normalize.NewDecimal("h", "h"),
		normalize.NewDecimal("l", "l"),
		normalize.NewBigInt("v", "v"),
		normalize.NewTimestamp("time", "time", time.RFC3339),
		normalize.NewText("interval", "interval", nil),
	)

	starts := map[string]time.Time{}

	return pipeline.Job{
		Name:   "prices",
		Source: client,
		Units: func(ctx context.Context, _ *source.Session) ([]string, error) {
			rows, err := d.Pool.Query(ctx, `
				select ticker, min(date) as started_at
				from portfolio_operations
				where ticker != 'MONEY'
				group by ticker`)

			if err != nil {
				return nil, err
			}

			defer rows.Close()

			var tickers []string
			for rows.Next() {
				var ticker string
				var startedAt time.Time

				if err := rows.Scan(&ticker, &startedAt); err != nil {
					return nil, err
				}

				tickers = append(tickers, ticker)
				starts[ticker] = startedAt
			}

			if err := rows.Err(); err != nil {
				return nil, err
			}

			if len(tickers) > 0 {
				earliest := starts[tickers[0]]
				for _, t := range tickers {
					if starts[t].Before(earliest) {
						earliest = starts[t]
					}
				}

				tickers = append(tickers, currencyTicker)
				starts[currencyTicker] = earliest
			}

			return tickers, nil
		},
		Fetch: func(ctx context.Context, s *source.Session, ticker string) ([]source.RawRecord, error) {
			return client.CandlesSince(ctx, s, ticker, starts[ticker])
		},
		Schema: schema,
		Table: table.Table{
			Name:    "portfolio_prices",
			Columns: schema.Columns(),
			Mode:    table.Replace,
		},
		Views: d.refreshViews(),
	}
}
