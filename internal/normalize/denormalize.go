package normalize

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/retail-pipeline/internal/model"
)

// Denormalize joins every transaction with its dimensions into a flat
// document. It fails on the first foreign key that does not resolve.
func Denormalize(t *Tables) ([]model.Document, error) {
	categories := make(map[int]string, len(t.Categories))
	for _, c := range t.Categories {
		categories[c.ID] = c.Name
	}
	locations := make(map[int]string, len(t.Locations))
	for _, l := range t.Locations {
		locations[l.ID] = l.Name
	}
	payments := make(map[int]string, len(t.PaymentMethods))
	for _, p := range t.PaymentMethods {
		payments[p.ID] = p.Name
	}
	items := make(map[int]model.Item, len(t.Items))
	for _, it := range t.Items {
		items[it.ID] = it
	}

	docs := make([]model.Document, 0, len(t.Transactions))
	for _, tx := range t.Transactions {
		it, ok := items[tx.ItemID]
		if !ok {
			return nil, eris.Wrapf(ErrUnresolvedReference, "normalize: denormalize %s: item %d", tx.TransactionID, tx.ItemID)
		}
		category, ok := categories[it.CategoryID]
		if !ok {
			return nil, eris.Wrapf(ErrUnresolvedReference, "normalize: denormalize %s: category %d", tx.TransactionID, it.CategoryID)
		}
		payment, ok := payments[tx.PaymentMethodID]
		if !ok {
			return nil, eris.Wrapf(ErrUnresolvedReference, "normalize: denormalize %s: payment method %d", tx.TransactionID, tx.PaymentMethodID)
		}
		location, ok := locations[tx.LocationID]
		if !ok {
			return nil, eris.Wrapf(ErrUnresolvedReference, "normalize: denormalize %s: location %d", tx.TransactionID, tx.LocationID)
		}

		docs = append(docs, model.Document{
			TransactionID:     tx.TransactionID,
			CustomerID:        tx.CustomerID,
			CategoryName:      category,
			ItemName:          it.Name,
			PricePerUnit:      it.PricePerUnit,
			Quantity:          tx.Quantity,
			TotalPrice:        tx.TotalPrice,
			PaymentMethodName: payment,
			LocationName:      location,
			TransactionDate:   tx.TransactionDate,
			DiscountApplied:   tx.DiscountApplied,
		})
	}
	return docs, nil
}
