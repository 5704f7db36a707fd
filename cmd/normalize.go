package main

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/retail-pipeline/internal/pipeline"
)

var (
	normalizeInput        string
	normalizeStrategy     string
	normalizeOutputDir    string
	normalizeSkipCleaning bool
	normalizeDenormalize  bool
	normalizeXLSX         bool
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Decompose the cleaned extract into 3NF tables",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		opts, err := pipelineOptions(cfg, normalizeStrategy)
		if err != nil {
			return eris.Wrap(err, "normalize")
		}
		p := pipeline.New(opts)

		run, err := cleanedRun(ctx, p, orDefault(normalizeInput, cfg.Input.Path), normalizeSkipCleaning)
		if err != nil {
			return eris.Wrap(err, "normalize")
		}
		if err := p.Normalize(ctx, run); err != nil {
			return eris.Wrap(err, "normalize")
		}

		files, err := pipeline.WriteNormalized(ctx, run, pipeline.NormalizedOptions{
			Dir:         orDefault(normalizeOutputDir, cfg.Output.NormalizedDir),
			Denormalize: normalizeDenormalize,
			Workbook:    normalizeXLSX,
		})
		if err != nil {
			return eris.Wrap(err, "normalize: write tables")
		}
		if _, err := pipeline.WriteReport(run, cfg.Output.Dir); err != nil {
			return eris.Wrap(err, "normalize: write report")
		}
		if err := run.IntegrityError(); err != nil {
			return eris.Wrap(err, "normalize")
		}

		s := run.Summary()
		zap.L().Info("normalize complete",
			zap.String("run_id", s.RunID),
			zap.Int("transactions", len(run.Tables.Transactions)),
			zap.Int("unresolved", s.Unresolved),
			zap.Strings("files", files),
		)
		return nil
	},
}

// cleanedRun cleans input, or reuses the cleaned extract at
// output.clean_path when skipCleaning is set and that file exists. A fresh
// clean also writes its artifacts.
func cleanedRun(ctx context.Context, p *pipeline.Pipeline, input string, skipCleaning bool) (*pipeline.Run, error) {
	cleanPath := cfg.Output.CleanPath
	if skipCleaning {
		if _, err := os.Stat(cleanPath); err == nil {
			zap.L().Info("reusing cleaned extract", zap.String("path", cleanPath))
			return p.FromCleaned(ctx, cleanPath)
		}
		zap.L().Warn("cleaned extract not found, cleaning raw input", zap.String("path", cleanPath))
	}

	run, err := p.CleanFile(ctx, input)
	if err != nil {
		return nil, err
	}
	if _, err := pipeline.WriteCleaned(run, cleanPath, cfg.Output.Dir); err != nil {
		return nil, err
	}
	return run, nil
}

func init() {
	normalizeCmd.Flags().StringVar(&normalizeInput, "input", "", "path to the raw extract (default from config input.path)")
	normalizeCmd.Flags().StringVar(&normalizeStrategy, "strategy", "", "recovery strategy: smart or simple (default from config recovery.strategy)")
	normalizeCmd.Flags().StringVar(&normalizeOutputDir, "output-dir", "", "directory for the table CSVs (default from config output.normalized_dir)")
	normalizeCmd.Flags().BoolVar(&normalizeSkipCleaning, "skip-cleaning", false, "reuse the cleaned extract at output.clean_path when it exists")
	normalizeCmd.Flags().BoolVar(&normalizeDenormalize, "denormalize", false, "also write denormalized transactions as JSONL")
	normalizeCmd.Flags().BoolVar(&normalizeXLSX, "xlsx", false, "also write every table into one XLSX workbook")
	rootCmd.AddCommand(normalizeCmd)
}
