package main

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/retail-pipeline/internal/dataset"
)

var (
	exploreInput  string
	exploreFormat string
)

var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Profile the raw extract before cleaning",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := orDefault(exploreInput, cfg.Input.Path)

		tbl, err := dataset.ReadFile(path)
		if err != nil {
			return eris.Wrap(err, "explore")
		}
		p := dataset.Describe(tbl)

		zap.L().Info("explored extract",
			zap.String("input", path),
			zap.Int("rows", p.Rows),
			zap.Int("duplicate_transaction_ids", p.DuplicateTransactionIDs),
		)
		return writeProfile(cmd.OutOrStdout(), p, exploreFormat)
	},
}

func writeProfile(w io.Writer, p dataset.Profile, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(p), "explore: encode json")
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(p); err != nil {
			return eris.Wrap(err, "explore: encode yaml")
		}
		return eris.Wrap(enc.Close(), "explore: close yaml encoder")
	case "text", "":
		writeProfileText(w, p)
		return nil
	default:
		return eris.Errorf("explore: unknown format %q (valid: text, json, yaml)", format)
	}
}

func writeProfileText(w io.Writer, p dataset.Profile) {
	pr := message.NewPrinter(language.English)

	pr.Fprintf(w, "=== DATASET PROFILE ===\n")
	pr.Fprintf(w, "Rows: %d\n", p.Rows)
	pr.Fprintf(w, "Columns: %d\n", len(p.Columns))
	pr.Fprintf(w, "Duplicate transaction IDs: %d\n", p.DuplicateTransactionIDs)

	pr.Fprintf(w, "\nMissing values per column:\n")
	for _, m := range p.Missing {
		pr.Fprintf(w, "  %s: %d\n", m.Value, m.Count)
	}
	if len(p.Unparseable) > 0 {
		pr.Fprintf(w, "\nUnparseable values per column:\n")
		for _, m := range p.Missing {
			if n := p.Unparseable[m.Value]; n > 0 {
				pr.Fprintf(w, "  %s: %d\n", m.Value, n)
			}
		}
	}

	for _, dist := range []struct {
		title  string
		values []dataset.ValueCount
	}{
		{"Payment methods", p.PaymentMethods},
		{"Locations", p.Locations},
		{"Discount values", p.DiscountValues},
	} {
		pr.Fprintf(w, "\n%s:\n", dist.title)
		for _, v := range dist.values {
			pr.Fprintf(w, "  %s: %d\n", v.Value, v.Count)
		}
	}

	pr.Fprintf(w, "\nNumeric columns:\n")
	for _, s := range p.Numeric {
		pr.Fprintf(w, "  %s: count=%d min=%.2f max=%.2f mean=%.2f\n", s.Column, s.Count, s.Min, s.Max, s.Mean)
	}
}

func init() {
	exploreCmd.Flags().StringVar(&exploreInput, "input", "", "path to the raw extract (default from config input.path)")
	exploreCmd.Flags().StringVar(&exploreFormat, "format", "text", "output format: text, json or yaml")
	rootCmd.AddCommand(exploreCmd)
}
