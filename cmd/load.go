package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/retail-pipeline/internal/pipeline"
	"github.com/sells-group/retail-pipeline/internal/store"
)

var (
	loadInput        string
	loadStrategy     string
	loadDriver       string
	loadDSN          string
	loadMode         string
	loadDryRun       bool
	loadSkipCleaning bool
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Clean, normalize and load the tables into a database",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		opts, err := pipelineOptions(cfg, loadStrategy)
		if err != nil {
			return eris.Wrap(err, "load")
		}
		p := pipeline.New(opts)

		run, err := cleanedRun(ctx, p, orDefault(loadInput, cfg.Input.Path), loadSkipCleaning)
		if err != nil {
			return eris.Wrap(err, "load")
		}
		if err := p.Normalize(ctx, run); err != nil {
			return eris.Wrap(err, "load")
		}
		if err := run.IntegrityError(); err != nil {
			return eris.Wrap(err, "load")
		}

		storeCfg := cfg.Store
		storeCfg.Driver = orDefault(loadDriver, storeCfg.Driver)
		storeCfg.DatabaseURL = orDefault(loadDSN, storeCfg.DatabaseURL)
		storeCfg.Mode = orDefault(loadMode, storeCfg.Mode)
		sopts := storeOptions(storeCfg)
		sopts.DryRun = loadDryRun

		loader, err := store.New(ctx, sopts)
		if err != nil {
			return eris.Wrap(err, "load: open store")
		}
		defer loader.Close() //nolint:errcheck

		if err := p.Load(ctx, run, loader); err != nil {
			return eris.Wrap(err, "load")
		}
		if _, err := pipeline.WriteReport(run, cfg.Output.Dir); err != nil {
			return eris.Wrap(err, "load: write report")
		}

		fields := []zap.Field{
			zap.String("run_id", run.Summary().RunID),
			zap.String("driver", run.Load.Driver),
			zap.String("mode", string(run.Load.Mode)),
			zap.Bool("dry_run", run.Load.DryRun),
			zap.Int64("rows", run.Load.Total()),
		}
		for _, tc := range run.Load.Tables {
			fields = append(fields, zap.Int64(tc.Table, tc.Rows))
		}
		zap.L().Info("load complete", fields...)
		return nil
	},
}

func init() {
	loadCmd.Flags().StringVar(&loadInput, "input", "", "path to the raw extract (default from config input.path)")
	loadCmd.Flags().StringVar(&loadStrategy, "strategy", "", "recovery strategy: smart or simple (default from config recovery.strategy)")
	loadCmd.Flags().StringVar(&loadDriver, "driver", "", "database driver: postgres or sqlite (default from config store.driver)")
	loadCmd.Flags().StringVar(&loadDSN, "dsn", "", "database URL or SQLite file (default from config store.database_url)")
	loadCmd.Flags().StringVar(&loadMode, "mode", "", "replace or upsert (default from config store.mode)")
	loadCmd.Flags().BoolVar(&loadDryRun, "dry-run", false, "count rows without connecting to the database")
	loadCmd.Flags().BoolVar(&loadSkipCleaning, "skip-cleaning", false, "reuse the cleaned extract at output.clean_path when it exists")
	rootCmd.AddCommand(loadCmd)
}
