package store

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/sells-group/retail-pipeline/internal/model"
	"github.com/sells-group/retail-pipeline/internal/normalize"
)

// Natural-key queries read in upsert mode, one per dimension with a surrogate ID.
const (
	selectCategoryKeys      = "SELECT category_id, category_name FROM categories"
	selectLocationKeys      = "SELECT location_id, location_name FROM locations"
	selectPaymentMethodKeys = "SELECT payment_method_id, payment_method_name FROM payment_methods"
	selectItemKeys          = "SELECT item_id, item_name, price_per_unit, category_id FROM items"
)

// keyReader runs query inside the load transaction and calls row once per
// result row with that row's Scan.
type keyReader func(ctx context.Context, query string, row func(scan func(dest ...any) error) error) error

// surrogates assigns IDs to natural keys, reusing the ones already stored
// and numbering new keys after the highest stored ID.
type surrogates[K comparable] struct {
	ids map[K]int
	max int
}

func newSurrogates[K comparable]() *surrogates[K] {
	return &surrogates[K]{ids: make(map[K]int)}
}

func (s *surrogates[K]) add(k K, id int) {
	s.ids[k] = id
	s.max = max(s.max, id)
}

func (s *surrogates[K]) assign(k K) int {
	if id, ok := s.ids[k]; ok {
		return id
	}
	s.max++
	s.ids[k] = s.max
	return s.max
}

type itemNaturalKey struct {
	name       string
	categoryID int
	cents      int64
}

func priceCents(price float64) int64 {
	return decimal.NewFromFloat(price).Shift(2).Round(0).IntPart()
}

// storedKeys is the natural-to-surrogate mapping already in the target.
type storedKeys struct {
	categories     *surrogates[string]
	locations      *surrogates[string]
	paymentMethods *surrogates[string]
	items          *surrogates[itemNaturalKey]
}

func readStoredKeys(ctx context.Context, read keyReader) (*storedKeys, error) {
	k := &storedKeys{
		categories:     newSurrogates[string](),
		locations:      newSurrogates[string](),
		paymentMethods: newSurrogates[string](),
		items:          newSurrogates[itemNaturalKey](),
	}

	named := []struct {
		table string
		query string
		keys  *surrogates[string]
	}{
		{model.TableCategories, selectCategoryKeys, k.categories},
		{model.TableLocations, selectLocationKeys, k.locations},
		{model.TablePaymentMethods, selectPaymentMethodKeys, k.paymentMethods},
	}
	for _, n := range named {
		err := read(ctx, n.query, func(scan func(dest ...any) error) error {
			var id int
			var name string
			if err := scan(&id, &name); err != nil {
				return err
			}
			n.keys.add(name, id)
			return nil
		})
		if err != nil {
			return nil, eris.Wrapf(err, "store: read %s keys", n.table)
		}
	}

	err := read(ctx, selectItemKeys, func(scan func(dest ...any) error) error {
		var id, categoryID int
		var name string
		var price float64
		if err := scan(&id, &name, &price, &categoryID); err != nil {
			return err
		}
		k.items.add(itemNaturalKey{name: name, categoryID: categoryID, cents: priceCents(price)}, id)
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "store: read %s keys", model.TableItems)
	}
	return k, nil
}

func remapID(ids map[int]int, id int) int {
	if n, ok := ids[id]; ok {
		return n
	}
	return id
}

// remap returns a copy of t whose surrogate keys agree with the stored ones,
// so a merge matches rows by name rather than by the order a run first saw
// them. Unknown references are left as they are for the database to reject.
func (k *storedKeys) remap(t *normalize.Tables) *normalize.Tables {
	out := *t

	categoryIDs := make(map[int]int, len(t.Categories))
	out.Categories = make([]model.Category, len(t.Categories))
	for i, c := range t.Categories {
		id := k.categories.assign(c.Name)
		categoryIDs[c.ID] = id
		out.Categories[i] = model.Category{ID: id, Name: c.Name}
	}

	locationIDs := make(map[int]int, len(t.Locations))
	out.Locations = make([]model.Location, len(t.Locations))
	for i, l := range t.Locations {
		id := k.locations.assign(l.Name)
		locationIDs[l.ID] = id
		out.Locations[i] = model.Location{ID: id, Name: l.Name}
	}

	paymentIDs := make(map[int]int, len(t.PaymentMethods))
	out.PaymentMethods = make([]model.PaymentMethod, len(t.PaymentMethods))
	for i, p := range t.PaymentMethods {
		id := k.paymentMethods.assign(p.Name)
		paymentIDs[p.ID] = id
		out.PaymentMethods[i] = model.PaymentMethod{ID: id, Name: p.Name}
	}

	itemIDs := make(map[int]int, len(t.Items))
	out.Items = make([]model.Item, len(t.Items))
	for i, it := range t.Items {
		it.CategoryID = remapID(categoryIDs, it.CategoryID)
		id := k.items.assign(itemNaturalKey{name: it.Name, categoryID: it.CategoryID, cents: priceCents(it.PricePerUnit)})
		itemIDs[it.ID] = id
		it.ID = id
		out.Items[i] = it
	}

	out.Transactions = make([]model.Transaction, len(t.Transactions))
	for i, tx := range t.Transactions {
		tx.ItemID = remapID(itemIDs, tx.ItemID)
		tx.PaymentMethodID = remapID(paymentIDs, tx.PaymentMethodID)
		tx.LocationID = remapID(locationIDs, tx.LocationID)
		out.Transactions[i] = tx
	}
	return &out
}
