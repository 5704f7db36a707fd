// Package recovery repairs missing and inconsistent fields in the raw extract
// using deterministic business rules.
package recovery

import "github.com/sells-group/retail-pipeline/internal/model"

// Partition is the outcome of a stage that removes rows.
type Partition struct {
	Retained []model.Record
	Dropped  []model.DroppedRecord
}

// Classify splits rows into recoverable and unrecoverable ones. A row is
// unrecoverable when it lacks a transaction or customer identifier, or when
// both quantity and total are missing. Retained rows are deep copies.
func Classify(recs []model.Record) Partition {
	var p Partition
	p.Retained = make([]model.Record, 0, len(recs))

	for _, r := range recs {
		if reason, drop := unrecoverable(r); drop {
			p.Dropped = append(p.Dropped, model.NewDropped(r, reason, model.StageClassify))
			continue
		}
		p.Retained = append(p.Retained, r.Clone())
	}
	return p
}

func unrecoverable(r model.Record) (string, bool) {
	if r.TransactionID == "" || r.CustomerID == "" {
		return model.ReasonMissingIdentifiers, true
	}
	if r.Quantity == nil && r.TotalSpent == nil {
		return model.ReasonQuantityAndTotal, true
	}
	return "", false
}

// DropIncomplete removes rows that still miss a critical value after
// recovery, naming the first missing field as the reason.
func DropIncomplete(recs []model.Record) Partition {
	var p Partition
	p.Retained = make([]model.Record, 0, len(recs))

	for _, r := range recs {
		if reason := incompleteReason(r); reason != "" {
			p.Dropped = append(p.Dropped, model.NewDropped(r, reason, model.StageCompleteness))
			continue
		}
		p.Retained = append(p.Retained, r)
	}
	return p
}

func incompleteReason(r model.Record) string {
	switch {
	case r.Category == "":
		return model.ReasonMissingCategory
	case r.Item == "":
		return model.ReasonItemNotInferred
	case r.PricePerUnit == nil:
		return model.ReasonPriceNotRecovered
	case r.Quantity == nil:
		return model.ReasonQuantityNotFound
	case r.TotalSpent == nil:
		return model.ReasonTotalNotRecovered
	default:
		return ""
	}
}
