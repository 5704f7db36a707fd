package recovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/retail-pipeline/internal/model"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	noQtyTotal := row("T2", "Food", "Item_1_FOOD", 10, 0, 0)
	noQtyTotal.Quantity, noQtyTotal.TotalSpent = nil, nil

	noTxn := row("", "Food", "Item_1_FOOD", 10, 2, 20)
	noCust := row("T4", "Food", "Item_1_FOOD", 10, 2, 20)
	noCust.CustomerID = ""

	onlyTotal := row("T5", "Food", "Item_1_FOOD", 10, 0, 20)
	onlyTotal.Quantity = nil

	recs := []model.Record{row("T1", "Food", "Item_1_FOOD", 10, 2, 20), noQtyTotal, noTxn, noCust, onlyTotal}
	p := Classify(recs)

	require.Len(t, p.Retained, 2)
	require.Len(t, p.Dropped, 3)
	assert.Equal(t, "T1", p.Retained[0].TransactionID)
	assert.Equal(t, "T5", p.Retained[1].TransactionID)

	assert.Equal(t, model.ReasonQuantityAndTotal, p.Dropped[0].Reason)
	assert.Equal(t, model.ReasonMissingIdentifiers, p.Dropped[1].Reason)
	assert.Equal(t, model.ReasonMissingIdentifiers, p.Dropped[2].Reason)
	for _, d := range p.Dropped {
		assert.Equal(t, model.StageClassify, d.Stage)
	}
}

func TestClassify_MissingIdentifierWinsOverQuantity(t *testing.T) {
	t.Parallel()

	r := row("", "Food", "", 0, 0, 0)
	r.Quantity, r.TotalSpent = nil, nil
	p := Classify([]model.Record{r})

	require.Len(t, p.Dropped, 1)
	assert.Equal(t, model.ReasonMissingIdentifiers, p.Dropped[0].Reason)
}

func TestClassify_EveryRowLandsInOnePartition(t *testing.T) {
	t.Parallel()

	var recs []model.Record
	for i := 0; i < 16; i++ {
		r := row("T", "Food", "Item", 5, 2, 10)
		if i&1 != 0 {
			r.TransactionID = ""
		}
		if i&2 != 0 {
			r.CustomerID = ""
		}
		if i&4 != 0 {
			r.Quantity = nil
		}
		if i&8 != 0 {
			r.TotalSpent = nil
		}
		r.Line = i + 1
		recs = append(recs, r)
	}

	p := Classify(recs)
	assert.Equal(t, len(recs), len(p.Retained)+len(p.Dropped))

	for _, r := range p.Retained {
		assert.NotEmpty(t, r.TransactionID)
		assert.NotEmpty(t, r.CustomerID)
		assert.False(t, r.Quantity == nil && r.TotalSpent == nil, "line %d", r.Line)
	}
	for _, d := range p.Dropped {
		idMissing := d.TransactionID == "" || d.CustomerID == ""
		bothMissing := d.Quantity == nil && d.TotalSpent == nil
		assert.True(t, idMissing || bothMissing, "line %d", d.Line)
	}
}

func TestClassify_RetainedAreCopies(t *testing.T) {
	t.Parallel()

	recs := []model.Record{row("T1", "Food", "Item_1_FOOD", 10, 2, 20)}
	p := Classify(recs)
	*p.Retained[0].PricePerUnit = 99

	assert.InDelta(t, 10.0, *recs[0].PricePerUnit, 1e-9)
}

func TestDropIncomplete(t *testing.T) {
	t.Parallel()

	noCategory := row("T1", "", "Item_1_FOOD", 10, 2, 20)
	noItem := row("T2", "Food", "", 10, 2, 20)
	noPrice := row("T3", "Food", "Item_1_FOOD", 0, 2, 20)
	noPrice.PricePerUnit = nil
	noQty := row("T4", "Food", "Item_1_FOOD", 10, 0, 20)
	noQty.Quantity = nil
	noTotal := row("T5", "Food", "Item_1_FOOD", 10, 2, 0)
	noTotal.TotalSpent = nil
	complete := row("T6", "Food", "Item_1_FOOD", 10, 2, 20)
	complete.PaymentMethod = ""

	p := DropIncomplete([]model.Record{noCategory, noItem, noPrice, noQty, noTotal, complete})

	require.Len(t, p.Retained, 1)
	assert.Equal(t, "T6", p.Retained[0].TransactionID)

	reasons := make([]string, 0, len(p.Dropped))
	for _, d := range p.Dropped {
		assert.Equal(t, model.StageCompleteness, d.Stage)
		reasons = append(reasons, d.Reason)
	}
	assert.Equal(t, []string{
		model.ReasonMissingCategory,
		model.ReasonItemNotInferred,
		model.ReasonPriceNotRecovered,
		model.ReasonQuantityNotFound,
		model.ReasonTotalNotRecovered,
	}, reasons)
}
