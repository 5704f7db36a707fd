package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/retail-pipeline/internal/config"
)

const sampleCSV = "Transaction ID,Customer ID,Category,Item,Price Per Unit,Quantity,Total Spent,Payment Method,Location,Transaction Date,Discount Applied\n" +
	"TXN_1,CUST_01,Food,Item_1_FOOD,10.00,2,20.00,Cash,In-store,2023-01-05,True\n" +
	"TXN_2,CUST_02,Milk,Item_2_MILK,4.50,,13.50,Credit Card,Online,2023-01-06,\n" +
	"TXN_3,,Food,Item_1_FOOD,10.00,1,10.00,Cash,Online,2023-01-07,False\n" +
	"TXN_4,CUST_01,Milk,Item_2_MILK,4.50,1,,Cash,Online,2023-01-08,False\n" +
	"TXN_5,CUST_03,Food,Item_1_FOOD,10.00,1,10.00,,Online,2023-01-09,False\n"

// testConfig points every path of a default configuration into a temp dir
// holding the sample extract.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	input := filepath.Join(dir, "dataset", "retail_store_sales.csv")
	require.NoError(t, os.MkdirAll(filepath.Dir(input), 0o755))
	require.NoError(t, os.WriteFile(input, []byte(sampleCSV), 0o644))

	c := &config.Config{}
	c.Input.Path = input
	c.Output.Dir = filepath.Join(dir, "results")
	c.Output.NormalizedDir = filepath.Join(dir, "dataset", "normalized")
	c.Output.CleanPath = filepath.Join(dir, "dataset", "retail_store_sales_clean.csv")
	c.Recovery.Strategy = "smart"
	c.Recovery.Tolerance = 0.01
	c.Recovery.ItemPriceTolerance = 0.15
	c.Normalize.ItemIdentity = "name_category_price"
	c.Normalize.EnumOrder = "first_seen"
	c.Normalize.FKPolicy = "report"
	c.Store.Driver = "sqlite"
	c.Store.DatabaseURL = filepath.Join(dir, "retail.db")
	c.Store.Mode = "replace"
	c.Store.BatchSize = 1000
	c.Store.Retry.MaxAttempts = 1
	c.Log.Level = "info"
	c.Log.Format = "json"
	return c
}

func runCommand(t *testing.T, cmd *cobra.Command) error {
	t.Helper()
	cmd.SetContext(context.Background())
	defer cmd.SetContext(context.TODO())
	return cmd.RunE(cmd, nil)
}
