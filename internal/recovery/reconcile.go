package recovery

import (
	"math"

	"github.com/sells-group/retail-pipeline/internal/model"
)

// DefaultTolerance is the absolute difference allowed between a stored total
// and price * quantity.
const DefaultTolerance = 0.01

// Reconcile sets round(price*quantity, 2) as the total of every row with
// price and quantity whose total is missing or differs from price*quantity by
// more than tolerance. The derived value wins. It returns the number of rows
// updated; a second pass over its output updates none.
func Reconcile(recs []model.Record, tolerance float64) int {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	n := 0
	for i := range recs {
		r := &recs[i]
		if r.PricePerUnit == nil || r.Quantity == nil {
			continue
		}
		// Compare against the exact product; the rounded total is only the
		// replacement value.
		product := *r.PricePerUnit * *r.Quantity
		if r.TotalSpent == nil || math.Abs(*r.TotalSpent-product) > tolerance {
			r.TotalSpent = model.Float(LineTotal(*r.PricePerUnit, *r.Quantity))
			n++
		}
	}
	return n
}
