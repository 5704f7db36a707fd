package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/retail-pipeline/internal/model"
	"github.com/sells-group/retail-pipeline/internal/normalize"
)

func testRecords() []model.Record {
	d := time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC)
	return []model.Record{
		{
			TransactionID: "TXN_1", CustomerID: "CUST_01", Category: "Food", Item: "Item_1_FOOD",
			PricePerUnit: model.Float(10), Quantity: model.Float(2), TotalSpent: model.Float(20),
			PaymentMethod: "Cash", Location: "Online", TransactionDate: &d, DiscountApplied: model.Bool(true),
		},
		{
			TransactionID: "TXN_2", CustomerID: "CUST_02", Category: "Milk", Item: "Item_2_MILK",
			PricePerUnit: model.Float(4.5), Quantity: model.Float(3), TotalSpent: model.Float(13.5),
			PaymentMethod: "Credit Card", Location: "In-store",
		},
		{
			TransactionID: "TXN_3", CustomerID: "CUST_01", Category: "Milk", Item: "Item_2_MILK",
			PricePerUnit: model.Float(4.5), Quantity: model.Float(1), TotalSpent: model.Float(4.5),
			PaymentMethod: "Cash", Location: "In-store", TransactionDate: &d,
		},
	}
}

func testTables(t *testing.T) *normalize.Tables {
	t.Helper()
	tbl, err := normalize.Build(testRecords(), normalize.Options{})
	require.NoError(t, err)
	return tbl
}

// expectedCounts is the per-table row count of testTables in load order.
var expectedCounts = []TableCount{
	{Table: model.TableCategories, Rows: 2},
	{Table: model.TableLocations, Rows: 2},
	{Table: model.TablePaymentMethods, Rows: 2},
	{Table: model.TableCustomers, Rows: 2},
	{Table: model.TableItems, Rows: 2},
	{Table: model.TableTransactions, Rows: 3},
}
