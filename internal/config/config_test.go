package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dataset/retail_store_sales.csv", cfg.Input.Path)
	assert.Equal(t, "results", cfg.Output.Dir)
	assert.Equal(t, "dataset/normalized", cfg.Output.NormalizedDir)
	assert.Equal(t, "dataset/retail_store_sales_clean.csv", cfg.Output.CleanPath)
	assert.Equal(t, "smart", cfg.Recovery.Strategy)
	assert.InDelta(t, 0.01, cfg.Recovery.Tolerance, 0.0001)
	assert.InDelta(t, 0.15, cfg.Recovery.ItemPriceTolerance, 0.0001)
	assert.Equal(t, "name_category_price", cfg.Normalize.ItemIdentity)
	assert.Equal(t, "first_seen", cfg.Normalize.EnumOrder)
	assert.Equal(t, "report", cfg.Normalize.FKPolicy)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "retail.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "replace", cfg.Store.Mode)
	assert.Equal(t, 1000, cfg.Store.BatchSize)
	assert.Zero(t, cfg.Store.BatchesPerSecond)
	assert.Equal(t, 3, cfg.Store.Retry.MaxAttempts)
	assert.Equal(t, 250, cfg.Store.Retry.InitialBackoffMs)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	assert.NoError(t, cfg.Validate())
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
recovery:
  strategy: simple
normalize:
  enum_order: sorted
store:
  driver: postgres
  database_url: postgres://localhost/retail
  mode: upsert
  pool:
    max_conns: 8
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "simple", cfg.Recovery.Strategy)
	assert.Equal(t, "sorted", cfg.Normalize.EnumOrder)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/retail", cfg.Store.DatabaseURL)
	assert.Equal(t, "upsert", cfg.Store.Mode)
	assert.Equal(t, int32(8), cfg.Store.Pool.MaxConns)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	// Defaults still apply for unset values
	assert.Equal(t, 1000, cfg.Store.BatchSize)
	assert.Equal(t, "report", cfg.Normalize.FKPolicy)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("RETAIL_STORE_DRIVER", "sqlite")
	t.Setenv("RETAIL_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("RETAIL_RECOVERY_TOLERANCE", "0.05")
	t.Setenv("RETAIL_STORE_BATCH_SIZE", "250")

	cfg, err := Load()
	require.NoError(t, err)
	assert.InDelta(t, 0.05, cfg.Recovery.Tolerance, 0.0001)
	assert.Equal(t, 250, cfg.Store.BatchSize)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Recovery.Strategy = "smart"
	cfg.Recovery.Tolerance = 0.01
	cfg.Recovery.ItemPriceTolerance = 0.15
	cfg.Normalize.ItemIdentity = "name_category_price"
	cfg.Normalize.EnumOrder = "first_seen"
	cfg.Normalize.FKPolicy = "report"
	cfg.Store.Driver = "sqlite"
	cfg.Store.Mode = "replace"
	cfg.Store.BatchSize = 1000
	cfg.Log.Format = "json"
	return cfg
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "empty enums fall back", mutate: func(c *Config) {
			c.Recovery.Strategy = ""
			c.Normalize.FKPolicy = ""
			c.Store.Mode = ""
		}},
		{name: "unknown strategy", mutate: func(c *Config) { c.Recovery.Strategy = "clever" }, wantErr: "recovery.strategy"},
		{name: "negative tolerance", mutate: func(c *Config) { c.Recovery.Tolerance = -1 }, wantErr: "recovery.tolerance must be >= 0"},
		{name: "unknown identity", mutate: func(c *Config) { c.Normalize.ItemIdentity = "name" }, wantErr: "normalize.item_identity"},
		{name: "unknown order", mutate: func(c *Config) { c.Normalize.EnumOrder = "random" }, wantErr: "normalize.enum_order"},
		{name: "unknown fk policy", mutate: func(c *Config) { c.Normalize.FKPolicy = "ignore" }, wantErr: "normalize.fk_policy"},
		{name: "unknown driver", mutate: func(c *Config) { c.Store.Driver = "mysql" }, wantErr: "store.driver must be postgres or sqlite"},
		{name: "unknown mode", mutate: func(c *Config) { c.Store.Mode = "append" }, wantErr: "store.mode must be replace or upsert"},
		{name: "zero batch size", mutate: func(c *Config) { c.Store.BatchSize = 0 }, wantErr: "store.batch_size must be > 0"},
		{name: "negative rate", mutate: func(c *Config) { c.Store.BatchesPerSecond = -1 }, wantErr: "store.batches_per_second"},
		{name: "unknown log format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: "log.format must be json or console"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validDefaults()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	t.Parallel()

	cfg := validDefaults()
	cfg.Recovery.Strategy = "clever"
	cfg.Store.Driver = "mysql"
	cfg.Store.BatchSize = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recovery.strategy")
	assert.Contains(t, err.Error(), "store.driver")
	assert.Contains(t, err.Error(), "store.batch_size")
}
