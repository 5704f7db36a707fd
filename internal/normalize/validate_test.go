package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/retail-pipeline/internal/model"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	tbl := &Tables{
		Categories:     []model.Category{{ID: 1, Name: "Food"}, {ID: 1, Name: "Milk"}},
		Locations:      []model.Location{{ID: 1, Name: "Online"}},
		PaymentMethods: []model.PaymentMethod{{ID: 1, Name: "Cash"}},
		Customers:      []model.Customer{{ID: "CUST_01"}},
		Items:          []model.Item{{ID: 1, Name: "Item_1", PricePerUnit: 5, CategoryID: 9}},
		Transactions: []model.Transaction{
			{TransactionID: "T1", CustomerID: "CUST_01", ItemID: 1, PaymentMethodID: 1, LocationID: 1},
			{TransactionID: "T2", CustomerID: "CUST_99", ItemID: 2, PaymentMethodID: 1, LocationID: 3},
		},
	}

	issues := Validate(tbl)
	require.Len(t, issues, 5)
	assert.Equal(t, "categories[1]: duplicate primary key", issues[0].String())
	assert.Equal(t, "items[1]: CategoryID 9 does not resolve", issues[1].String())
	assert.Equal(t, "transactions[T2]: CustomerID CUST_99 does not resolve", issues[2].String())
	assert.Equal(t, "transactions[T2]: ItemID 2 does not resolve", issues[3].String())
	assert.Equal(t, "transactions[T2]: LocationID 3 does not resolve", issues[4].String())
}

func TestValidate_DuplicateTransaction(t *testing.T) {
	t.Parallel()

	tbl, err := Build(sample(), Options{})
	require.NoError(t, err)
	tbl.Transactions = append(tbl.Transactions, tbl.Transactions[0])

	issues := Validate(tbl)
	require.Len(t, issues, 1)
	assert.Equal(t, model.TableTransactions, issues[0].Table)
	assert.Equal(t, "T1", issues[0].Key)
}

func TestDenormalize(t *testing.T) {
	t.Parallel()

	tbl, err := Build(sample(), Options{})
	require.NoError(t, err)

	docs, err := Denormalize(tbl)
	require.NoError(t, err)
	require.Len(t, docs, 4)

	d := docs[1]
	assert.Equal(t, "T2", d.TransactionID)
	assert.Equal(t, "CUST_01", d.CustomerID)
	assert.Equal(t, "Food", d.CategoryName)
	assert.Equal(t, "Item_3_FOOD", d.ItemName)
	assert.InDelta(t, 10.0, d.PricePerUnit, 1e-9)
	assert.Equal(t, "Credit Card", d.PaymentMethodName)
	assert.Equal(t, "In-store", d.LocationName)
	assert.True(t, d.DiscountApplied)
	require.NotNil(t, d.TransactionDate)
}

func TestDenormalize_Dangling(t *testing.T) {
	t.Parallel()

	tbl, err := Build(sample(), Options{})
	require.NoError(t, err)
	tbl.Transactions[0].LocationID = 42

	_, err = Denormalize(tbl)
	assert.ErrorIs(t, err, ErrUnresolvedReference)
}
