package db

import (
	"context"
	"fmt"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func itemsUpsert() UpsertConfig {
	return UpsertConfig{
		Table:        "items",
		Columns:      []string{"item_id", "item_name", "price_per_unit"},
		ConflictKeys: []string{"item_id"},
	}
}

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(context.TODO(), nil, itemsUpsert(), nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_NoColumns(t *testing.T) {
	_, err := BulkUpsert(context.TODO(), nil, UpsertConfig{
		Table:        "items",
		ConflictKeys: []string{"item_id"},
	}, [][]any{{1, "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestBulkUpsert_NoConflictKeys(t *testing.T) {
	_, err := BulkUpsert(context.TODO(), nil, UpsertConfig{
		Table:   "items",
		Columns: []string{"item_id", "item_name"},
	}, [][]any{{1, "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestUpsertSQL(t *testing.T) {
	cfg := itemsUpsert()
	assert.Equal(t,
		`INSERT INTO "items" ("item_id", "item_name", "price_per_unit") SELECT "item_id", "item_name", "price_per_unit" FROM "_tmp_upsert_items" ON CONFLICT ("item_id") DO UPDATE SET "item_name" = EXCLUDED."item_name", "price_per_unit" = EXCLUDED."price_per_unit"`,
		cfg.UpsertSQL(cfg.TempTable()),
	)

	keyOnly := UpsertConfig{Table: "retail.customers", Columns: []string{"customer_id"}, ConflictKeys: []string{"customer_id"}}
	assert.Equal(t, "_tmp_upsert_retail_customers", keyOnly.TempTable())
	assert.Equal(t,
		`INSERT INTO "retail"."customers" ("customer_id") SELECT "customer_id" FROM "_tmp_upsert_retail_customers" ON CONFLICT ("customer_id") DO NOTHING`,
		keyOnly.UpsertSQL(keyOnly.TempTable()),
	)
}

func TestBulkUpsert_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cfg := itemsUpsert()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TEMP TABLE IF NOT EXISTS "_tmp_upsert_items"`)).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_items"}, cfg.Columns).WillReturnResult(2)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "items"`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := BulkUpsert(context.Background(), mock, cfg, [][]any{{1, "Item_1", 5.0}, {2, "Item_2", 7.5}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_CopyError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cfg := itemsUpsert()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TEMP TABLE`)).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_items"}, cfg.Columns).WillReturnError(fmt.Errorf("disk full"))
	mock.ExpectRollback()

	_, err = BulkUpsert(context.Background(), mock, cfg, [][]any{{1, "Item_1", 5.0}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY into temp table for items")
	assert.NoError(t, mock.ExpectationsWereMet())
}
