package recovery

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/retail-pipeline/internal/model"
)

func TestReconcile(t *testing.T) {
	t.Parallel()

	missing := row("T4", "Food", "Item_1_FOOD", 5, 2, 0)
	missing.TotalSpent = nil
	noPrice := row("T5", "Food", "Item_1_FOOD", 0, 2, 99)
	noPrice.PricePerUnit = nil

	recs := []model.Record{
		row("T1", "Food", "Item_1_FOOD", 10, 2, 20),
		row("T2", "Food", "Item_1_FOOD", 10, 2, 20.005),
		row("T3", "Food", "Item_1_FOOD", 10, 2, 25),
		missing,
		noPrice,
	}

	n := Reconcile(recs, DefaultTolerance)
	assert.Equal(t, 2, n)
	assert.InDelta(t, 20.0, *recs[0].TotalSpent, 1e-9)
	assert.InDelta(t, 20.005, *recs[1].TotalSpent, 1e-9)
	assert.InDelta(t, 20.0, *recs[2].TotalSpent, 1e-9)
	assert.InDelta(t, 10.0, *recs[3].TotalSpent, 1e-9)
	assert.InDelta(t, 99.0, *recs[4].TotalSpent, 1e-9)
}

func TestReconcile_Idempotent(t *testing.T) {
	t.Parallel()

	recs := []model.Record{
		row("T1", "Food", "Item_1_FOOD", 3.333, 3, 1),
		row("T2", "Food", "Item_1_FOOD", 0.1, 3, 0.35),
		row("T3", "Food", "Item_1_FOOD", 17.49, 7.3, 0),
		row("T4", "Food", "Item_1_FOOD", 2.5, 4, 10),
	}

	first := Reconcile(recs, DefaultTolerance)
	assert.Equal(t, 3, first)
	assert.Zero(t, Reconcile(recs, DefaultTolerance))

	for _, r := range recs {
		diff := math.Abs(*r.TotalSpent - *r.PricePerUnit**r.Quantity)
		assert.LessOrEqual(t, diff, DefaultTolerance, r.TransactionID)
	}
}

func TestReconcile_DefaultTolerance(t *testing.T) {
	t.Parallel()

	recs := []model.Record{row("T1", "Food", "Item_1_FOOD", 10, 2, 20.5)}
	assert.Equal(t, 1, Reconcile(recs, 0))
	assert.InDelta(t, 20.0, *recs[0].TotalSpent, 1e-9)
}

func TestReconcile_EmptyInput(t *testing.T) {
	t.Parallel()
	assert.Zero(t, Reconcile(nil, DefaultTolerance))
	assert.Zero(t, Reconcile([]model.Record{}, DefaultTolerance))
}

func TestReconcile_ComparesExactProduct(t *testing.T) {
	t.Parallel()

	// 9.06 is within tolerance of round(2.01*4.5, 2) = 9.05 but 0.015 from 9.045.
	recs := []model.Record{
		row("T1", "Food", "Item_1_FOOD", 2.01, 4.5, 9.06),
		row("T2", "Food", "Item_1_FOOD", 1.01, 7.8, 7.89),
	}

	assert.Equal(t, 2, Reconcile(recs, DefaultTolerance))
	assert.InDelta(t, 9.05, *recs[0].TotalSpent, 1e-9)
	assert.InDelta(t, 7.88, *recs[1].TotalSpent, 1e-9)
	assert.Zero(t, Reconcile(recs, DefaultTolerance))
}

func TestReconcile_TwoDecimalGrid(t *testing.T) {
	t.Parallel()

	var recs []model.Record
	for p := 101; p <= 999; p += 7 {
		for total := 100; total <= 5000; total += 37 {
			r := row("T", "Food", "Item_1_FOOD", float64(p)/100, 0, float64(total)/100)
			r.Quantity = nil
			recs = append(recs, r)
		}
	}

	RecoverQuantity(recs)
	Reconcile(recs, DefaultTolerance)
	for _, r := range recs {
		diff := math.Abs(*r.TotalSpent - *r.PricePerUnit**r.Quantity)
		assert.LessOrEqual(t, diff, DefaultTolerance, "price=%v qty=%v", *r.PricePerUnit, *r.Quantity)
	}
}
