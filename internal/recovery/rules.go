package recovery

import (
	"github.com/shopspring/decimal"

	"github.com/sells-group/retail-pipeline/internal/model"
)

// Kind tells the report whether a rule derived values or filled defaults.
type Kind int

const (
	Recovered Kind = iota + 1
	Imputed
)

// String returns the report bucket name.
func (k Kind) String() string {
	switch k {
	case Recovered:
		return "recovered"
	case Imputed:
		return "imputed"
	default:
		return "unknown"
	}
}

// Rule fills one missingness pattern. Apply mutates recs in place, touches
// only positions its mask selects and returns how many it filled.
type Rule struct {
	Field string
	Kind  Kind
	Apply func(recs []model.Record) int
}

// SmartRules returns the derivation rules in application order. Later rules
// see values filled by earlier ones.
func SmartRules(priceTolerance float64) []Rule {
	return []Rule{
		{Field: "discount_applied", Kind: Imputed, Apply: NormalizeDiscount},
		{Field: "prices", Kind: Recovered, Apply: RecoverPrice},
		{Field: "quantities", Kind: Recovered, Apply: RecoverQuantity},
		{Field: "totals", Kind: Recovered, Apply: RecoverTotal},
		{Field: "items", Kind: Recovered, Apply: func(recs []model.Record) int {
			return InferItems(recs, priceTolerance)
		}},
	}
}

// NormalizeDiscount defaults every missing or unrecognized discount flag to false.
func NormalizeDiscount(recs []model.Record) int {
	return fill(recs,
		func(r model.Record) bool { return r.DiscountApplied == nil },
		func(r *model.Record) { r.DiscountApplied = model.Bool(false) },
	)
}

// RecoverPrice sets price = round(total / quantity, 2) where quantity > 0.
func RecoverPrice(recs []model.Record) int {
	return fill(recs,
		func(r model.Record) bool {
			return r.PricePerUnit == nil && r.Quantity != nil && r.TotalSpent != nil && *r.Quantity > 0
		},
		func(r *model.Record) { r.PricePerUnit = model.Float(Round(*r.TotalSpent / *r.Quantity, 2)) },
	)
}

// RecoverQuantity sets quantity = round(total / price, 1) where price > 0.
func RecoverQuantity(recs []model.Record) int {
	return fill(recs,
		func(r model.Record) bool {
			return r.Quantity == nil && r.PricePerUnit != nil && r.TotalSpent != nil && *r.PricePerUnit > 0
		},
		func(r *model.Record) { r.Quantity = model.Float(Round(*r.TotalSpent / *r.PricePerUnit, 1)) },
	)
}

// RecoverTotal sets total = round(price * quantity, 2).
func RecoverTotal(recs []model.Record) int {
	return fill(recs,
		func(r model.Record) bool {
			return r.TotalSpent == nil && r.PricePerUnit != nil && r.Quantity != nil
		},
		func(r *model.Record) { r.TotalSpent = model.Float(LineTotal(*r.PricePerUnit, *r.Quantity)) },
	)
}

// fill computes the eligibility mask over the whole slice first, then
// applies set to the masked positions.
func fill(recs []model.Record, eligible func(model.Record) bool, set func(*model.Record)) int {
	mask := make([]bool, len(recs))
	n := 0
	for i, r := range recs {
		if eligible(r) {
			mask[i] = true
			n++
		}
	}
	for i := range recs {
		if mask[i] {
			set(&recs[i])
		}
	}
	return n
}

// Round rounds v to places decimals, half away from zero, on v's shortest
// decimal representation.
func Round(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

// LineTotal is round(price * quantity, 2) computed in decimal arithmetic.
func LineTotal(price, quantity float64) float64 {
	f, _ := decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(quantity)).Round(2).Float64()
	return f
}
