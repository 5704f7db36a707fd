package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/retail-pipeline/internal/pipeline"
)

var (
	cleanInput     string
	cleanStrategy  string
	cleanOutput    string
	cleanReportDir string
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Recover missing fields and write the cleaned extract",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		opts, err := pipelineOptions(cfg, cleanStrategy)
		if err != nil {
			return eris.Wrap(err, "clean")
		}
		input := orDefault(cleanInput, cfg.Input.Path)
		output := orDefault(cleanOutput, cfg.Output.CleanPath)
		reportDir := orDefault(cleanReportDir, cfg.Output.Dir)

		p := pipeline.New(opts)
		run, err := p.CleanFile(ctx, input)
		if err != nil {
			return eris.Wrap(err, "clean")
		}

		files, err := pipeline.WriteCleaned(run, output, reportDir)
		if err != nil {
			return eris.Wrap(err, "clean: write cleaned")
		}
		reports, err := pipeline.WriteReport(run, reportDir)
		if err != nil {
			return eris.Wrap(err, "clean: write report")
		}

		s := run.Summary()
		zap.L().Info("clean complete",
			zap.String("run_id", s.RunID),
			zap.String("strategy", s.Strategy),
			zap.String("input", input),
			zap.Int("initial_rows", s.InitialRows),
			zap.Int("final_rows", s.FinalRows),
			zap.Int("dropped", s.DroppedTotal()),
			zap.Float64("retention_pct", s.Retention()),
			zap.Strings("files", append(files, reports...)),
		)
		return nil
	},
}

func init() {
	cleanCmd.Flags().StringVar(&cleanInput, "input", "", "path to the raw extract (default from config input.path)")
	cleanCmd.Flags().StringVar(&cleanStrategy, "strategy", "", "recovery strategy: smart or simple (default from config recovery.strategy)")
	cleanCmd.Flags().StringVar(&cleanOutput, "output", "", "path of the cleaned CSV (default from config output.clean_path)")
	cleanCmd.Flags().StringVar(&cleanReportDir, "report-dir", "", "directory for report artifacts (default from config output.dir)")
	rootCmd.AddCommand(cleanCmd)
}
