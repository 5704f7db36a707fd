package recovery

import (
	"math"

	"github.com/sells-group/retail-pipeline/internal/model"
)

// DefaultItemPriceTolerance is the relative window around a row's unit price
// within which a category item's mean price counts as a match.
const DefaultItemPriceTolerance = 0.15

// ItemPrice is the mean observed unit price of an item within a category.
type ItemPrice struct {
	Category  string
	Item      string
	MeanPrice float64
}

// ReferencePrices groups rows with category, item and price all known by
// (category, item) and averages the price. Entries keep the order in which
// each pair first appears.
func ReferencePrices(recs []model.Record) []ItemPrice {
	type key struct{ category, item string }
	type acc struct {
		sum   float64
		count int
	}

	var order []key
	sums := make(map[key]*acc)
	for _, r := range recs {
		if r.Category == "" || r.Item == "" || r.PricePerUnit == nil {
			continue
		}
		k := key{r.Category, r.Item}
		a, ok := sums[k]
		if !ok {
			a = &acc{}
			sums[k] = a
			order = append(order, k)
		}
		a.sum += *r.PricePerUnit
		a.count++
	}

	out := make([]ItemPrice, 0, len(order))
	for _, k := range order {
		a := sums[k]
		out = append(out, ItemPrice{Category: k.category, Item: k.item, MeanPrice: a.sum / float64(a.count)})
	}
	return out
}

// NearestItem picks the reference entry in category whose mean price lies
// within tolerance*price of price and is closest to it. Equal distances go
// to the earlier entry.
func NearestItem(ref []ItemPrice, category string, price, tolerance float64) (string, bool) {
	best := ""
	bestDiff := math.Inf(1)
	window := price * tolerance
	for _, ip := range ref {
		if ip.Category != category {
			continue
		}
		diff := math.Abs(ip.MeanPrice - price)
		if diff > window {
			continue
		}
		if diff < bestDiff {
			best, bestDiff = ip.Item, diff
		}
	}
	return best, best != ""
}

// InferItems fills missing items from same-category items with a similar
// mean price. The reference table is built once, before any row is filled,
// so inferred items never feed later inferences.
func InferItems(recs []model.Record, tolerance float64) int {
	if tolerance <= 0 {
		tolerance = DefaultItemPriceTolerance
	}
	ref := ReferencePrices(recs)

	n := 0
	for i := range recs {
		r := &recs[i]
		if r.Item != "" || r.Category == "" || r.PricePerUnit == nil {
			continue
		}
		if item, ok := NearestItem(ref, r.Category, *r.PricePerUnit, tolerance); ok {
			r.Item = item
			n++
		}
	}
	return n
}
