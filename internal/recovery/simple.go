package recovery

import (
	"sort"

	"github.com/sells-group/retail-pipeline/internal/model"
)

// UnknownValue is the placeholder the simple strategy writes into missing
// categorical fields.
const UnknownValue = "Unknown"

// SimpleRules returns the placeholder/median rule set. Totals are left to
// the reconciler, which derives them from the filled price and quantity.
func SimpleRules() []Rule {
	return []Rule{
		{Field: "discount_applied", Kind: Imputed, Apply: NormalizeDiscount},
		{Field: "items", Kind: Imputed, Apply: func(recs []model.Record) int {
			return fill(recs,
				func(r model.Record) bool { return r.Item == "" },
				func(r *model.Record) { r.Item = UnknownValue },
			)
		}},
		{Field: "categories", Kind: Imputed, Apply: func(recs []model.Record) int {
			return fill(recs,
				func(r model.Record) bool { return r.Category == "" },
				func(r *model.Record) { r.Category = UnknownValue },
			)
		}},
		{Field: "prices", Kind: Imputed, Apply: func(recs []model.Record) int {
			return fillMedian(recs, func(r *model.Record) **float64 { return &r.PricePerUnit })
		}},
		{Field: "quantities", Kind: Imputed, Apply: func(recs []model.Record) int {
			return fillMedian(recs, func(r *model.Record) **float64 { return &r.Quantity })
		}},
	}
}

// fillMedian replaces missing values of one numeric field with the median
// of its present values. With no present values nothing is filled.
func fillMedian(recs []model.Record, field func(*model.Record) **float64) int {
	var present []float64
	for i := range recs {
		if p := *field(&recs[i]); p != nil {
			present = append(present, *p)
		}
	}
	med, ok := Median(present)
	if !ok {
		return 0
	}

	n := 0
	for i := range recs {
		if p := field(&recs[i]); *p == nil {
			*p = model.Float(med)
			n++
		}
	}
	return n
}

// Median returns the middle value of vs (mean of the two middle values for
// an even count). vs is not modified.
func Median(vs []float64) (float64, bool) {
	if len(vs) == 0 {
		return 0, false
	}
	s := append([]float64(nil), vs...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid], true
	}
	return (s[mid-1] + s[mid]) / 2, true
}
