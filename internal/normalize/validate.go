package normalize

import (
	"fmt"

	"github.com/sells-group/retail-pipeline/internal/model"
)

// Issue is a referential or key integrity violation.
type Issue struct {
	Table string
	Key   string
	Msg   string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s[%s]: %s", i.Table, i.Key, i.Msg)
}

// Validate checks that primary keys are unique and every foreign key
// resolves. An empty result means the schema is consistent.
func Validate(t *Tables) []Issue {
	var issues []Issue
	dup := func(table string, key any) {
		issues = append(issues, Issue{Table: table, Key: fmt.Sprint(key), Msg: "duplicate primary key"})
	}
	dangling := func(table string, key any, fk string, ref any) {
		issues = append(issues, Issue{Table: table, Key: fmt.Sprint(key), Msg: fmt.Sprintf("%s %v does not resolve", fk, ref)})
	}

	categories := make(map[int]bool, len(t.Categories))
	for _, c := range t.Categories {
		if categories[c.ID] {
			dup(model.TableCategories, c.ID)
		}
		categories[c.ID] = true
	}
	locations := make(map[int]bool, len(t.Locations))
	for _, l := range t.Locations {
		if locations[l.ID] {
			dup(model.TableLocations, l.ID)
		}
		locations[l.ID] = true
	}
	payments := make(map[int]bool, len(t.PaymentMethods))
	for _, p := range t.PaymentMethods {
		if payments[p.ID] {
			dup(model.TablePaymentMethods, p.ID)
		}
		payments[p.ID] = true
	}
	customers := make(map[string]bool, len(t.Customers))
	for _, c := range t.Customers {
		if customers[c.ID] {
			dup(model.TableCustomers, c.ID)
		}
		customers[c.ID] = true
	}
	items := make(map[int]bool, len(t.Items))
	for _, it := range t.Items {
		if items[it.ID] {
			dup(model.TableItems, it.ID)
		}
		items[it.ID] = true
		if !categories[it.CategoryID] {
			dangling(model.TableItems, it.ID, model.FKCategory, it.CategoryID)
		}
	}

	txns := make(map[string]bool, len(t.Transactions))
	for _, tx := range t.Transactions {
		if txns[tx.TransactionID] {
			dup(model.TableTransactions, tx.TransactionID)
		}
		txns[tx.TransactionID] = true
		if !customers[tx.CustomerID] {
			dangling(model.TableTransactions, tx.TransactionID, model.FKCustomer, tx.CustomerID)
		}
		if !items[tx.ItemID] {
			dangling(model.TableTransactions, tx.TransactionID, model.FKItem, tx.ItemID)
		}
		if !payments[tx.PaymentMethodID] {
			dangling(model.TableTransactions, tx.TransactionID, model.FKPaymentMethod, tx.PaymentMethodID)
		}
		if !locations[tx.LocationID] {
			dangling(model.TableTransactions, tx.TransactionID, model.FKLocation, tx.LocationID)
		}
	}
	return issues
}
