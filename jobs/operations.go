package jobs

import (
	"context"

	"finsync/normalize"
	"finsync/pipeline"
	"finsync/reconcile"
	"finsync/source"
	"finsync/source/file"
	"finsync/table"
)

// Operations replaces the operations table from the bank's card statement
// exports (cp1251, semicolon-delimited), one file per unit, then reconciles
// the (category, description) mapping table.
func Operations(d Deps) pipeline.Job {
	src := &file.Source{Dir: d.Cfg.OperationsDir}

	schema := normalize.NewSchema(
		normalize.NewTimestamp("Дата операции", "operation_time", normalize.LayoutDateTime),
		normalize.NewDate("Дата платежа", "payment_date", normalize.LayoutDate),
		normalize.NewText("Номер карты", "card", nil),
		normalize.NewText("Статус", "status", nil),
		normalize.NewDecimal("Сумма операции", "operation_amount"),
		normalize.NewText("Валюта операции", "operation_currency", nil),
		normalize.NewDecimal("Сумма платежа", "payment_amount"),
		normalize.NewText("Валюта платежа", "payment_currency", nil),
		normalize.NewDecimal("Кэшбэк", "cashback"),
		normalize.NewText("Категория", "category", "-"),
		normalize.NewInt("MCC", "mcc"),
		normalize.NewText("Описание", "description", nil),
		normalize.NewDecimal("Бонусы (включая кэшбэк)", "bonuses"),
	)

	return pipeline.Job{
		Name:   "operations",
		Source: src,
		Units: func(ctx context.Context, s *source.Session) ([]string, error) {
			return src.ListUnits(ctx, s)
		},
		Fetch: func(ctx context.Context, s *source.Session, unit string) ([]source.RawRecord, error) {
			return src.FetchUnit(ctx, s, unit)
		},
		Schema: schema,
		Table: table.Table{
			Name:    "operations",
			Columns: schema.Columns(),
			Mode:    table.Replace,
		},
		Mapping: &reconcile.Mapping{
			SourceTable:     "operations",
			MappingTable:    "operations_mapping",
			KeyColumns:      []string{"category", "description"},
			CurationColumns: []string{"custom_category", "custom_category_group"},
		},
	}
}
