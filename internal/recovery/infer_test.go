package recovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/retail-pipeline/internal/model"
)

func TestReferencePrices(t *testing.T) {
	t.Parallel()

	noPrice := row("T4", "Food", "Item_9_FOOD", 0, 1, 1)
	noPrice.PricePerUnit = nil

	recs := []model.Record{
		row("T1", "Food", "Item_2_FOOD", 10, 1, 10),
		row("T2", "Milk", "Item_1_MILK", 4, 1, 4),
		row("T3", "Food", "Item_2_FOOD", 12, 1, 12),
		noPrice,
		row("T5", "Food", "", 11, 1, 11),
	}

	ref := ReferencePrices(recs)
	require.Len(t, ref, 2)
	assert.Equal(t, ItemPrice{Category: "Food", Item: "Item_2_FOOD", MeanPrice: 11}, ref[0])
	assert.Equal(t, ItemPrice{Category: "Milk", Item: "Item_1_MILK", MeanPrice: 4}, ref[1])
}

func TestNearestItem(t *testing.T) {
	t.Parallel()

	ref := []ItemPrice{
		{Category: "Food", Item: "Item_A", MeanPrice: 9},
		{Category: "Food", Item: "Item_B", MeanPrice: 11},
		{Category: "Food", Item: "Item_C", MeanPrice: 10.4},
		{Category: "Milk", Item: "Item_M", MeanPrice: 10},
	}

	tests := []struct {
		name     string
		category string
		price    float64
		want     string
		ok       bool
	}{
		{name: "closest within window", category: "Food", price: 10, want: "Item_C", ok: true},
		{name: "category filter", category: "Milk", price: 10, want: "Item_M", ok: true},
		{name: "outside window", category: "Food", price: 20},
		{name: "unknown category", category: "Butchers", price: 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := NearestItem(ref, tt.category, tt.price, DefaultItemPriceTolerance)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNearestItem_TieGoesToFirstEntry(t *testing.T) {
	t.Parallel()

	ref := []ItemPrice{
		{Category: "Food", Item: "Item_Low", MeanPrice: 9},
		{Category: "Food", Item: "Item_High", MeanPrice: 11},
	}
	got, ok := NearestItem(ref, "Food", 10, DefaultItemPriceTolerance)
	require.True(t, ok)
	assert.Equal(t, "Item_Low", got)
}

func TestNearestItem_WindowBoundary(t *testing.T) {
	t.Parallel()

	// The window for a price of 10.00 is +/- 1.50.
	ref := []ItemPrice{{Category: "Food", Item: "Item_Edge", MeanPrice: 11.45}}
	got, ok := NearestItem(ref, "Food", 10, DefaultItemPriceTolerance)
	assert.True(t, ok)
	assert.Equal(t, "Item_Edge", got)

	ref[0].MeanPrice = 11.6
	_, ok = NearestItem(ref, "Food", 10, DefaultItemPriceTolerance)
	assert.False(t, ok)
}

func TestInferItems(t *testing.T) {
	t.Parallel()

	noCategory := row("T3", "", "", 10, 1, 10)
	noPrice := row("T4", "Food", "", 0, 1, 10)
	noPrice.PricePerUnit = nil

	recs := []model.Record{
		row("T1", "Food", "Item_5_FOOD", 10, 1, 10),
		row("T2", "Food", "", 10.5, 2, 21),
		noCategory,
		noPrice,
		row("T5", "Food", "", 30, 1, 30),
	}

	n := InferItems(recs, DefaultItemPriceTolerance)
	assert.Equal(t, 1, n)
	assert.Equal(t, "Item_5_FOOD", recs[1].Item)
	assert.Empty(t, recs[2].Item)
	assert.Empty(t, recs[3].Item)
	assert.Empty(t, recs[4].Item)
}

func TestInferItems_ReferenceBuiltBeforeFilling(t *testing.T) {
	t.Parallel()

	// T3 is out of range of Item_A's mean of 10, but would match the mean
	// of 10.7 if T2's inferred item fed back into the reference.
	recs := []model.Record{
		row("T1", "Food", "Item_A", 10, 1, 10),
		row("T2", "Food", "", 11.4, 1, 11.4),
		row("T3", "Food", "", 12.5, 1, 12.5),
	}

	n := InferItems(recs, DefaultItemPriceTolerance)
	assert.Equal(t, 1, n)
	assert.Equal(t, "Item_A", recs[1].Item)
	assert.Empty(t, recs[2].Item)
}
