package main

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/retail-pipeline/internal/config"
	"github.com/sells-group/retail-pipeline/internal/model"
	"github.com/sells-group/retail-pipeline/internal/normalize"
	"github.com/sells-group/retail-pipeline/internal/pipeline"
	"github.com/sells-group/retail-pipeline/internal/recovery"
	"github.com/sells-group/retail-pipeline/internal/resilience"
	"github.com/sells-group/retail-pipeline/internal/store"
)

// orDefault returns flag when it was given, otherwise the configured value.
func orDefault(flag, configured string) string {
	if flag != "" {
		return flag
	}
	return configured
}

// pipelineOptions resolves the recovery and normalization settings, letting
// a non-empty strategy flag override the configuration.
func pipelineOptions(c *config.Config, strategy string) (pipeline.Options, error) {
	st, err := model.ParseStrategy(orDefault(strategy, c.Recovery.Strategy))
	if err != nil {
		return pipeline.Options{}, eris.Wrap(err, "strategy")
	}
	identity, err := model.ParseItemIdentity(c.Normalize.ItemIdentity)
	if err != nil {
		return pipeline.Options{}, eris.Wrap(err, "item identity")
	}
	order, err := model.ParseEnumOrder(c.Normalize.EnumOrder)
	if err != nil {
		return pipeline.Options{}, eris.Wrap(err, "enum order")
	}
	policy, err := model.ParseFKPolicy(c.Normalize.FKPolicy)
	if err != nil {
		return pipeline.Options{}, eris.Wrap(err, "fk policy")
	}

	return pipeline.Options{
		Recovery: recovery.Options{
			Strategy:           st,
			Tolerance:          c.Recovery.Tolerance,
			ItemPriceTolerance: c.Recovery.ItemPriceTolerance,
		},
		Normalize: normalize.Options{
			ItemIdentity: identity,
			EnumOrder:    order,
			FKPolicy:     policy,
		},
	}, nil
}

// storeOptions maps the store configuration onto loader options.
func storeOptions(c config.StoreConfig) store.Options {
	opts := store.Options{
		Driver:           c.Driver,
		DSN:              c.DatabaseURL,
		Mode:             store.Mode(c.Mode),
		BatchSize:        c.BatchSize,
		BatchesPerSecond: c.BatchesPerSecond,
		Retry:            resilience.NewRetryConfig(c.Retry.MaxAttempts, c.Retry.InitialBackoffMs),
	}
	if c.Pool.MaxConns > 0 || c.Pool.MinConns > 0 {
		opts.Pool = &store.PoolConfig{MaxConns: c.Pool.MaxConns, MinConns: c.Pool.MinConns}
	}
	return opts
}
