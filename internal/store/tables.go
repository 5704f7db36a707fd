package store

import (
	"github.com/sells-group/retail-pipeline/internal/model"
	"github.com/sells-group/retail-pipeline/internal/normalize"
)

// tableSpec maps a normalized table onto its database columns.
type tableSpec struct {
	Name       string
	Columns    []string
	PrimaryKey []string
	Rows       func(t *normalize.Tables) [][]any
}

// tableSpecs is in foreign-key dependency order; loads walk it forwards and
// deletes walk it backwards.
var tableSpecs = []tableSpec{
	{
		Name:       model.TableCategories,
		Columns:    []string{"category_id", "category_name"},
		PrimaryKey: []string{"category_id"},
		Rows: func(t *normalize.Tables) [][]any {
			rows := make([][]any, len(t.Categories))
			for i, c := range t.Categories {
				rows[i] = []any{c.ID, c.Name}
			}
			return rows
		},
	},
	{
		Name:       model.TableLocations,
		Columns:    []string{"location_id", "location_name"},
		PrimaryKey: []string{"location_id"},
		Rows: func(t *normalize.Tables) [][]any {
			rows := make([][]any, len(t.Locations))
			for i, l := range t.Locations {
				rows[i] = []any{l.ID, l.Name}
			}
			return rows
		},
	},
	{
		Name:       model.TablePaymentMethods,
		Columns:    []string{"payment_method_id", "payment_method_name"},
		PrimaryKey: []string{"payment_method_id"},
		Rows: func(t *normalize.Tables) [][]any {
			rows := make([][]any, len(t.PaymentMethods))
			for i, p := range t.PaymentMethods {
				rows[i] = []any{p.ID, p.Name}
			}
			return rows
		},
	},
	{
		Name:       model.TableCustomers,
		Columns:    []string{"customer_id"},
		PrimaryKey: []string{"customer_id"},
		Rows: func(t *normalize.Tables) [][]any {
			rows := make([][]any, len(t.Customers))
			for i, c := range t.Customers {
				rows[i] = []any{c.ID}
			}
			return rows
		},
	},
	{
		Name:       model.TableItems,
		Columns:    []string{"item_id", "item_name", "price_per_unit", "category_id"},
		PrimaryKey: []string{"item_id"},
		Rows: func(t *normalize.Tables) [][]any {
			rows := make([][]any, len(t.Items))
			for i, it := range t.Items {
				rows[i] = []any{it.ID, it.Name, it.PricePerUnit, it.CategoryID}
			}
			return rows
		},
	},
	{
		Name: model.TableTransactions,
		Columns: []string{
			"transaction_id", "customer_id", "item_id", "payment_method_id", "location_id",
			"quantity", "total_price", "transaction_date", "discount_applied",
		},
		PrimaryKey: []string{"transaction_id"},
		Rows: func(t *normalize.Tables) [][]any {
			rows := make([][]any, len(t.Transactions))
			for i, tx := range t.Transactions {
				var date any
				if tx.TransactionDate != nil {
					date = *tx.TransactionDate
				}
				rows[i] = []any{
					tx.TransactionID, tx.CustomerID, tx.ItemID, tx.PaymentMethodID, tx.LocationID,
					tx.Quantity, tx.TotalPrice, date, tx.DiscountApplied,
				}
			}
			return rows
		},
	},
}

// batches splits rows into chunks of at most size rows.
func batches(rows [][]any, size int) [][][]any {
	if size <= 0 {
		size = DefaultBatchSize
	}
	out := make([][][]any, 0, (len(rows)+size-1)/size)
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		out = append(out, rows[start:end])
	}
	return out
}
