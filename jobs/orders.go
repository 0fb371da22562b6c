package jobs

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"finsync/normalize"
	"finsync/pipeline"
	"finsync/reconcile"
	"finsync/source"
	"finsync/source/web"
	"finsync/table"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/exp/slices"
)

// Month names as the shop renders issue dates ("15 января").
var monthsRu = map[string]time.Month{
	"января":   time.January,
	"февраля":  time.February,
	"марта":    time.March,
	"апреля":   time.April,
	"мая":      time.May,
	"июня":     time.June,
	"июля":     time.July,
	"августа":  time.August,
	"сентября": time.September,
	"октября":  time.October,
	"ноября":   time.November,
	"декабря":  time.December,
}

// Orders syncs this year's grocery orders that are not in utkonos_orders yet.
// Each order is one unit, loaded append-keyed on order_id so a rerun after a
// partial failure only refetches what is missing.
func Orders(d Deps) pipeline.Job {
	client := &web.Client{
		BaseURL:   "https://www.utkonos.ru",
		LoginPath: "/auth/request",
		LoginForm: url.Values{
			"login":    {d.Cfg.ShopEmail},
			"password": {d.Cfg.ShopPassword},
			"pfb":      {"dnd"},
		},
	}

	schema := normalize.NewSchema(
		normalize.NewText("order_id", "order_id", nil),
		normalize.NewDate("date", "date").SetMonths(monthsRu),
		normalize.NewText("name", "name", nil),
		normalize.NewBigInt("id", "id"),
		normalize.NewBigInt("article", "article"),
		normalize.NewText("unit", "unit", nil),
		normalize.NewDecimal("amount", "amount"),
		normalize.NewDecimal("price", "price"),
		normalize.NewDecimal("total", "total"),
	)

	year := time.Now().Year()

	return pipeline.Job{
		Name:   "orders",
		Source: client,
		Units: func(ctx context.Context, s *source.Session) ([]string, error) {
			known, err := knownOrderIDs(ctx, d)

			if err != nil {
				return nil, err
			}

			doc, err := client.GetDocument(ctx, s, fmt.Sprintf("/my-account/orders/year/%d", year))

			if err != nil {
				return nil, err
			}

			var ids []string
			doc.Find(".order_view-id").Each(func(_ int, sel *goquery.Selection) {
				id := strings.TrimSpace(sel.Text())

				if id != "" && !slices.Contains(known, id) {
					ids = append(ids, id)
				}
			})

			return ids, nil
		},
		Fetch: func(ctx context.Context, s *source.Session, id string) ([]source.RawRecord, error) {
			return fetchOrder(ctx, client, s, id)
		},
		Schema: schema,
		Table: table.Table{
			Name:      "utkonos_orders",
			Columns:   schema.Columns(),
			Mode:      table.AppendKeyed,
			KeyColumn: "order_id",
		},
		Mapping: &reconcile.Mapping{
			SourceTable:     "utkonos_orders",
			MappingTable:    "utkonos_mapping",
			KeyColumns:      []string{"name"},
			CurationColumns: []string{"custom_category"},
		},
	}
}

func knownOrderIDs(ctx context.Context, d Deps) ([]string, error) {
	rows, err := d.Pool.Query(ctx, `select distinct order_id from utkonos_orders`)

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string

		if err := rows.Scan(&id); err != nil {
			return nil, err
		}

		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// fetchOrder resolves the order's printable blank page and reads the issue
// date plus every position row off it.
func fetchOrder(ctx context.Context, client *web.Client, s *source.Session, id string) ([]source.RawRecord, error) {
	orderDoc, err := client.GetDocument(ctx, s, "/my-account/order/"+id)

	if err != nil {
		return nil, err
	}

	href, ok := orderDoc.Find(".page-control_blank a").Attr("href")

	if !ok || digits(href) == "" {
		return nil, &source.StructureError{Marker: ".page-control_blank"}
	}

	doc, err := client.GetDocument(ctx, s, "/my-account/orders/order/blank/"+digits(href))

	if err != nil {
		return nil, err
	}

	issued, err := web.LabeledCell(doc, "Дата выдачи")

	if err != nil {
		return nil, err
	}

	rows := doc.Find("table.positions tr")

	// header row plus trailing total row at minimum
	if rows.Length() < 2 {
		return nil, &source.StructureError{Marker: "table.positions"}
	}

	var records []source.RawRecord

	// first row is the header, last is the order total
	rows.Slice(1, rows.Length()-1).Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		itemHref, _ := cells.Eq(0).Find("a").Attr("href")

		records = append(records, source.RawRecord{
			"order_id": id,
			"date":     issued,
			"name":     strings.TrimSpace(cells.Eq(0).Find("a").Text()),
			"id":       digits(itemHref),
			"article":  strings.TrimSpace(cells.Eq(1).Find("a").Text()),
			"unit":     strings.TrimSpace(cells.Eq(2).Text()),
			"amount":   strings.TrimSpace(cells.Eq(3).Text()),
			"price":    strings.TrimSpace(cells.Eq(4).Text()),
			"total":    strings.TrimSpace(cells.Eq(5).Text()),
		})
	})

	return records, nil
}
