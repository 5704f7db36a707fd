package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/retail-pipeline/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Input     InputConfig     `yaml:"input" mapstructure:"input"`
	Output    OutputConfig    `yaml:"output" mapstructure:"output"`
	Recovery  RecoveryConfig  `yaml:"recovery" mapstructure:"recovery"`
	Normalize NormalizeConfig `yaml:"normalize" mapstructure:"normalize"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// InputConfig locates the raw extract.
type InputConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// OutputConfig locates the pipeline artifacts.
type OutputConfig struct {
	Dir           string `yaml:"dir" mapstructure:"dir"`
	NormalizedDir string `yaml:"normalized_dir" mapstructure:"normalized_dir"`
	CleanPath     string `yaml:"clean_path" mapstructure:"clean_path"`
}

// RecoveryConfig configures the field recovery engine.
type RecoveryConfig struct {
	Strategy           string  `yaml:"strategy" mapstructure:"strategy"`
	Tolerance          float64 `yaml:"tolerance" mapstructure:"tolerance"`
	ItemPriceTolerance float64 `yaml:"item_price_tolerance" mapstructure:"item_price_tolerance"`
}

// NormalizeConfig configures schema normalization.
type NormalizeConfig struct {
	ItemIdentity string `yaml:"item_identity" mapstructure:"item_identity"`
	EnumOrder    string `yaml:"enum_order" mapstructure:"enum_order"`
	FKPolicy     string `yaml:"fk_policy" mapstructure:"fk_policy"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver           string      `yaml:"driver" mapstructure:"driver"`
	DatabaseURL      string      `yaml:"database_url" mapstructure:"database_url"`
	Mode             string      `yaml:"mode" mapstructure:"mode"`
	BatchSize        int         `yaml:"batch_size" mapstructure:"batch_size"`
	BatchesPerSecond float64     `yaml:"batches_per_second" mapstructure:"batches_per_second"`
	Retry            RetryConfig `yaml:"retry" mapstructure:"retry"`
	Pool             PoolConfig  `yaml:"pool" mapstructure:"pool"`
}

// RetryConfig configures retries of transient database errors.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
}

// PoolConfig tunes the PostgreSQL connection pool. Zero keeps the loader default.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RETAIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("input.path", "dataset/retail_store_sales.csv")
	v.SetDefault("output.dir", "results")
	v.SetDefault("output.normalized_dir", "dataset/normalized")
	v.SetDefault("output.clean_path", "dataset/retail_store_sales_clean.csv")
	v.SetDefault("recovery.strategy", string(model.StrategySmart))
	v.SetDefault("recovery.tolerance", 0.01)
	v.SetDefault("recovery.item_price_tolerance", 0.15)
	v.SetDefault("normalize.item_identity", string(model.ItemByNameCategoryPrice))
	v.SetDefault("normalize.enum_order", string(model.OrderFirstSeen))
	v.SetDefault("normalize.fk_policy", string(model.FKReport))
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "retail.db")
	v.SetDefault("store.mode", "replace")
	v.SetDefault("store.batch_size", 1000)
	v.SetDefault("store.batches_per_second", 0)
	v.SetDefault("store.retry.max_attempts", 3)
	v.SetDefault("store.retry.initial_backoff_ms", 250)
	v.SetDefault("store.pool.max_conns", 0)
	v.SetDefault("store.pool.min_conns", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks enumerations and numeric bounds, reporting every problem
// at once.
func (c *Config) Validate() error {
	var errs []string

	if _, err := model.ParseStrategy(c.Recovery.Strategy); err != nil {
		errs = append(errs, "recovery.strategy: "+err.Error())
	}
	if c.Recovery.Tolerance < 0 {
		errs = append(errs, "recovery.tolerance must be >= 0")
	}
	if c.Recovery.ItemPriceTolerance < 0 {
		errs = append(errs, "recovery.item_price_tolerance must be >= 0")
	}
	if _, err := model.ParseItemIdentity(c.Normalize.ItemIdentity); err != nil {
		errs = append(errs, "normalize.item_identity: "+err.Error())
	}
	if _, err := model.ParseEnumOrder(c.Normalize.EnumOrder); err != nil {
		errs = append(errs, "normalize.enum_order: "+err.Error())
	}
	if _, err := model.ParseFKPolicy(c.Normalize.FKPolicy); err != nil {
		errs = append(errs, "normalize.fk_policy: "+err.Error())
	}

	switch c.Store.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, "store.driver must be postgres or sqlite")
	}
	switch c.Store.Mode {
	case "", "replace", "upsert":
	default:
		errs = append(errs, "store.mode must be replace or upsert")
	}
	if c.Store.BatchSize < 1 {
		errs = append(errs, "store.batch_size must be > 0")
	}
	if c.Store.BatchesPerSecond < 0 {
		errs = append(errs, "store.batches_per_second must be >= 0")
	}
	if c.Store.Retry.MaxAttempts < 0 {
		errs = append(errs, "store.retry.max_attempts must be >= 0")
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, "log.format must be json or console")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
