package dataset

import (
	"math"
	"sort"

	"github.com/sells-group/retail-pipeline/internal/model"
)

// MissingLabel stands in for absent values in value distributions.
const MissingLabel = "<missing>"

// ValueCount is one distinct value and how often it occurs.
type ValueCount struct {
	Value string `json:"value" yaml:"value"`
	Count int    `json:"count" yaml:"count"`
}

// NumericStats summarizes the present values of a numeric column.
type NumericStats struct {
	Column string  `json:"column" yaml:"column"`
	Count  int     `json:"count" yaml:"count"`
	Min    float64 `json:"min" yaml:"min"`
	Max    float64 `json:"max" yaml:"max"`
	Mean   float64 `json:"mean" yaml:"mean"`
}

// Profile describes the raw extract before any cleaning.
type Profile struct {
	Rows                    int            `json:"rows" yaml:"rows"`
	Columns                 []string       `json:"columns" yaml:"columns"`
	Missing                 []ValueCount   `json:"missing" yaml:"missing"`
	DuplicateTransactionIDs int            `json:"duplicate_transaction_ids" yaml:"duplicate_transaction_ids"`
	PaymentMethods          []ValueCount   `json:"payment_methods" yaml:"payment_methods"`
	Locations               []ValueCount   `json:"locations" yaml:"locations"`
	DiscountValues          []ValueCount   `json:"discount_values" yaml:"discount_values"`
	Numeric                 []NumericStats `json:"numeric" yaml:"numeric"`
	Unparseable             map[string]int `json:"unparseable,omitempty" yaml:"unparseable,omitempty"`
}

// Describe profiles t. Value distributions are ordered by descending count,
// then by value.
func Describe(t *Table) Profile {
	p := Profile{
		Rows:        len(t.Records),
		Columns:     append([]string(nil), t.Header...),
		Unparseable: t.Unparseable,
	}

	missing := model.MissingCounts(t.Records)
	for _, col := range model.Columns {
		p.Missing = append(p.Missing, ValueCount{Value: col, Count: missing[col]})
	}

	seen := make(map[string]int, len(t.Records))
	payments := make(map[string]int)
	locations := make(map[string]int)
	discounts := make(map[string]int)
	for _, r := range t.Records {
		if r.TransactionID != "" {
			seen[r.TransactionID]++
		}
		payments[orMissing(r.PaymentMethod)]++
		locations[orMissing(r.Location)]++
		if r.DiscountApplied == nil {
			discounts[MissingLabel]++
		} else {
			discounts[FormatBool(*r.DiscountApplied)]++
		}
	}
	for _, n := range seen {
		if n > 1 {
			p.DuplicateTransactionIDs += n - 1
		}
	}
	p.PaymentMethods = distribution(payments)
	p.Locations = distribution(locations)
	p.DiscountValues = distribution(discounts)

	p.Numeric = []NumericStats{
		numericStats(t.Records, model.ColPricePerUnit, func(r model.Record) *float64 { return r.PricePerUnit }),
		numericStats(t.Records, model.ColQuantity, func(r model.Record) *float64 { return r.Quantity }),
		numericStats(t.Records, model.ColTotalSpent, func(r model.Record) *float64 { return r.TotalSpent }),
	}
	return p
}

func orMissing(s string) string {
	if s == "" {
		return MissingLabel
	}
	return s
}

func distribution(m map[string]int) []ValueCount {
	out := make([]ValueCount, 0, len(m))
	for v, n := range m {
		out = append(out, ValueCount{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out
}

func numericStats(recs []model.Record, col string, get func(model.Record) *float64) NumericStats {
	s := NumericStats{Column: col, Min: math.Inf(1), Max: math.Inf(-1)}
	var sum float64
	for _, r := range recs {
		v := get(r)
		if v == nil {
			continue
		}
		s.Count++
		sum += *v
		s.Min = math.Min(s.Min, *v)
		s.Max = math.Max(s.Max, *v)
	}
	if s.Count == 0 {
		s.Min, s.Max = 0, 0
		return s
	}
	s.Mean = sum / float64(s.Count)
	return s
}
