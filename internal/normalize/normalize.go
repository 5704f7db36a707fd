// Package normalize decomposes cleaned records into 3NF dimension and fact
// tables with integer surrogate keys.
package normalize

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sells-group/retail-pipeline/internal/model"
)

// ErrUnresolvedReference is returned by Build under FKFail when a cleaned
// record cannot be linked to every dimension.
var ErrUnresolvedReference = eris.New("unresolved foreign key")

// Options controls key enumeration and foreign-key handling.
type Options struct {
	ItemIdentity model.ItemIdentity
	EnumOrder    model.EnumOrder
	FKPolicy     model.FKPolicy
}

func (o Options) withDefaults() Options {
	if o.ItemIdentity == "" {
		o.ItemIdentity = model.ItemByNameCategoryPrice
	}
	if o.EnumOrder == "" {
		o.EnumOrder = model.OrderFirstSeen
	}
	if o.FKPolicy == "" {
		o.FKPolicy = model.FKReport
	}
	return o
}

// Tables is the normalized schema. Dimension slices are ordered by ID.
type Tables struct {
	Categories     []model.Category
	Locations      []model.Location
	PaymentMethods []model.PaymentMethod
	Customers      []model.Customer
	Items          []model.Item
	Transactions   []model.Transaction

	// Unresolved holds cleaned records left out of Transactions.
	Unresolved []model.UnresolvedReference
}

// Len returns the row count of the named table, or 0 for an unknown name.
func (t *Tables) Len(table string) int {
	switch table {
	case model.TableCategories:
		return len(t.Categories)
	case model.TableLocations:
		return len(t.Locations)
	case model.TablePaymentMethods:
		return len(t.PaymentMethods)
	case model.TableCustomers:
		return len(t.Customers)
	case model.TableItems:
		return len(t.Items)
	case model.TableTransactions:
		return len(t.Transactions)
	default:
		return 0
	}
}

// itemKey identifies an item. cents is -1 when price is not part of the
// identity.
type itemKey struct {
	category string
	name     string
	cents    int64
}

// Build produces the normalized tables for cleaned. Identical input and
// options always produce identical IDs.
func Build(cleaned []model.Record, opts Options) (*Tables, error) {
	opts = opts.withDefaults()
	log := zap.L().With(zap.String("component", "normalize"))

	t := &Tables{}

	categoryIDs, categories := enumerate(cleaned, opts.EnumOrder, func(r model.Record) string { return r.Category })
	for i, name := range categories {
		t.Categories = append(t.Categories, model.Category{ID: i + 1, Name: name})
	}
	locationIDs, locations := enumerate(cleaned, opts.EnumOrder, func(r model.Record) string { return r.Location })
	for i, name := range locations {
		t.Locations = append(t.Locations, model.Location{ID: i + 1, Name: name})
	}
	paymentIDs, payments := enumerate(cleaned, opts.EnumOrder, func(r model.Record) string { return r.PaymentMethod })
	for i, name := range payments {
		t.PaymentMethods = append(t.PaymentMethods, model.PaymentMethod{ID: i + 1, Name: name})
	}
	customerIDs, customers := enumerate(cleaned, opts.EnumOrder, func(r model.Record) string { return r.CustomerID })
	for _, id := range customers {
		t.Customers = append(t.Customers, model.Customer{ID: id})
	}

	itemIDs := make(map[itemKey]int)
	var keys []itemKey
	prices := make(map[itemKey]float64)
	for _, r := range cleaned {
		k, ok := opts.itemKey(r)
		if !ok {
			continue
		}
		if _, seen := prices[k]; seen {
			continue
		}
		prices[k] = roundCents(*r.PricePerUnit)
		keys = append(keys, k)
	}
	if opts.EnumOrder == model.OrderSorted {
		sort.SliceStable(keys, func(i, j int) bool { return lessItem(keys[i], keys[j]) })
	}
	for i, k := range keys {
		itemIDs[k] = i + 1
		t.Items = append(t.Items, model.Item{
			ID:           i + 1,
			Name:         k.name,
			PricePerUnit: prices[k],
			CategoryID:   categoryIDs[k.category],
		})
	}

	t.Transactions = make([]model.Transaction, 0, len(cleaned))
	for _, r := range cleaned {
		var missing []string
		if customerIDs[r.CustomerID] == 0 {
			missing = append(missing, model.FKCustomer)
		}
		if categoryIDs[r.Category] == 0 {
			missing = append(missing, model.FKCategory)
		}
		k, ok := opts.itemKey(r)
		itemID := 0
		if ok {
			itemID = itemIDs[k]
		}
		if itemID == 0 {
			missing = append(missing, model.FKItem)
		}
		paymentID := paymentIDs[r.PaymentMethod]
		if paymentID == 0 {
			missing = append(missing, model.FKPaymentMethod)
		}
		locationID := locationIDs[r.Location]
		if locationID == 0 {
			missing = append(missing, model.FKLocation)
		}
		if r.Quantity == nil || r.TotalSpent == nil {
			// Quantity and total are not foreign keys but a fact row needs both.
			missing = append(missing, model.ColQuantity)
		}

		if len(missing) > 0 {
			if opts.FKPolicy == model.FKFail {
				return nil, eris.Wrapf(ErrUnresolvedReference, "normalize: transaction %q line %d: missing %s",
					r.TransactionID, r.Line, strings.Join(missing, ", "))
			}
			t.Unresolved = append(t.Unresolved, model.UnresolvedReference{Record: r.Clone(), Missing: missing})
			continue
		}

		txn := model.Transaction{
			TransactionID:   r.TransactionID,
			CustomerID:      r.CustomerID,
			ItemID:          itemID,
			PaymentMethodID: paymentID,
			LocationID:      locationID,
			Quantity:        *r.Quantity,
			TotalPrice:      *r.TotalSpent,
			DiscountApplied: r.Discount(),
		}
		if r.TransactionDate != nil {
			d := *r.TransactionDate
			txn.TransactionDate = &d
		}
		t.Transactions = append(t.Transactions, txn)
	}

	log.Info("normalized tables",
		zap.Int("categories", len(t.Categories)),
		zap.Int("locations", len(t.Locations)),
		zap.Int("payment_methods", len(t.PaymentMethods)),
		zap.Int("customers", len(t.Customers)),
		zap.Int("items", len(t.Items)),
		zap.Int("transactions", len(t.Transactions)),
		zap.Int("unresolved", len(t.Unresolved)),
	)
	if len(t.Unresolved) > 0 {
		log.Warn("records excluded from transactions", zap.Int("count", len(t.Unresolved)))
	}
	return t, nil
}

func (o Options) itemKey(r model.Record) (itemKey, bool) {
	if r.Item == "" || r.Category == "" || r.PricePerUnit == nil {
		return itemKey{}, false
	}
	k := itemKey{category: r.Category, name: r.Item, cents: -1}
	if o.ItemIdentity == model.ItemByNameCategoryPrice {
		k.cents = decimal.NewFromFloat(*r.PricePerUnit).Shift(2).Round(0).IntPart()
	}
	return k, true
}

func lessItem(a, b itemKey) bool {
	if a.category != b.category {
		return a.category < b.category
	}
	if a.name != b.name {
		return a.name < b.name
	}
	return a.cents < b.cents
}

// enumerate collects distinct non-empty values of field and assigns them
// IDs starting at 1.
func enumerate(recs []model.Record, order model.EnumOrder, field func(model.Record) string) (map[string]int, []string) {
	seen := make(map[string]bool)
	var values []string
	for _, r := range recs {
		v := field(r)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		values = append(values, v)
	}
	if order == model.OrderSorted {
		sort.Strings(values)
	}
	ids := make(map[string]int, len(values))
	for i, v := range values {
		ids[v] = i + 1
	}
	return ids, values
}

func roundCents(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
