// Package export writes pipeline artifacts: normalized tables, workbooks,
// denormalized documents and run reports.
package export

import (
	"strconv"

	"github.com/sells-group/retail-pipeline/internal/dataset"
	"github.com/sells-group/retail-pipeline/internal/model"
	"github.com/sells-group/retail-pipeline/internal/normalize"
)

// Sheet is one normalized table rendered as text cells.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Sheets renders every table in foreign-key dependency order.
func Sheets(t *normalize.Tables) []Sheet {
	sheets := make([]Sheet, 0, len(model.TableNames))

	s := Sheet{Name: model.TableCategories, Header: []string{"CategoryID", "CategoryName"}}
	for _, c := range t.Categories {
		s.Rows = append(s.Rows, []string{strconv.Itoa(c.ID), c.Name})
	}
	sheets = append(sheets, s)

	s = Sheet{Name: model.TableLocations, Header: []string{"LocationID", "LocationName"}}
	for _, l := range t.Locations {
		s.Rows = append(s.Rows, []string{strconv.Itoa(l.ID), l.Name})
	}
	sheets = append(sheets, s)

	s = Sheet{Name: model.TablePaymentMethods, Header: []string{"PaymentMethodID", "PaymentMethodName"}}
	for _, p := range t.PaymentMethods {
		s.Rows = append(s.Rows, []string{strconv.Itoa(p.ID), p.Name})
	}
	sheets = append(sheets, s)

	s = Sheet{Name: model.TableCustomers, Header: []string{"CustomerID"}}
	for _, c := range t.Customers {
		s.Rows = append(s.Rows, []string{c.ID})
	}
	sheets = append(sheets, s)

	s = Sheet{Name: model.TableItems, Header: []string{"ItemID", "ItemName", "PricePerUnit", "CategoryID"}}
	for _, it := range t.Items {
		s.Rows = append(s.Rows, []string{
			strconv.Itoa(it.ID),
			it.Name,
			dataset.FormatMoney(&it.PricePerUnit),
			strconv.Itoa(it.CategoryID),
		})
	}
	sheets = append(sheets, s)

	s = Sheet{Name: model.TableTransactions, Header: []string{
		"TransactionID", "CustomerID", "ItemID", "PaymentMethodID", "LocationID",
		"Quantity", "TotalPrice", "TransactionDate", "DiscountApplied",
	}}
	for _, tx := range t.Transactions {
		s.Rows = append(s.Rows, []string{
			tx.TransactionID,
			tx.CustomerID,
			strconv.Itoa(tx.ItemID),
			strconv.Itoa(tx.PaymentMethodID),
			strconv.Itoa(tx.LocationID),
			dataset.FormatQuantity(&tx.Quantity),
			dataset.FormatMoney(&tx.TotalPrice),
			dataset.FormatDate(tx.TransactionDate),
			dataset.FormatBool(tx.DiscountApplied),
		})
	}
	sheets = append(sheets, s)

	return sheets
}
