package recovery

import "github.com/sells-group/retail-pipeline/internal/model"

// row builds a record with every field present; callers null out fields.
func row(id, category, item string, price, qty, total float64) model.Record {
	return model.Record{
		TransactionID:   id,
		CustomerID:      "CUST_01",
		Category:        category,
		Item:            item,
		PricePerUnit:    model.Float(price),
		Quantity:        model.Float(qty),
		TotalSpent:      model.Float(total),
		PaymentMethod:   "Cash",
		Location:        "Online",
		DiscountApplied: model.Bool(false),
	}
}
