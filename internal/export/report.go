package export

import (
	"encoding/csv"
	"io"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/retail-pipeline/internal/dataset"
	"github.com/sells-group/retail-pipeline/internal/report"
)

// Report artifact file names.
const (
	ReportCSV       = "report.csv"
	QualityCSV      = "quality_checks.csv"
	ReportYAML      = "report.yaml"
	ReportText      = "report.txt"
	DroppedRowsCSV  = "dropped_rows.csv"
	UnresolvedCSV   = "unresolved_references.csv"
	DenormalizedOut = "transactions_denormalized.jsonl"
	WorkbookOut     = "normalized.xlsx"
)

// WriteReport writes the machine and human renderings of s into dir.
func WriteReport(dir string, s report.Summary) error {
	writers := []struct {
		name  string
		write func(io.Writer) error
	}{
		{ReportCSV, func(w io.Writer) error { return writeReportCSV(w, s) }},
		{QualityCSV, func(w io.Writer) error { return writeQualityCSV(w, s) }},
		{ReportYAML, func(w io.Writer) error { return writeReportYAML(w, s) }},
		{ReportText, func(w io.Writer) error {
			_, err := io.WriteString(w, report.Format(s))
			return eris.Wrap(err, "export: write report text")
		}},
	}
	for _, wr := range writers {
		if err := dataset.WriteFile(filepath.Join(dir, wr.name), wr.write); err != nil {
			return err
		}
	}
	return nil
}

func writeReportCSV(w io.Writer, s report.Summary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"metric", "count"}); err != nil {
		return eris.Wrap(err, "export: write report header")
	}
	for _, r := range s.Rows() {
		if err := cw.Write([]string{r.Key, strconv.Itoa(r.Count)}); err != nil {
			return eris.Wrap(err, "export: write report row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush report csv")
}

func writeQualityCSV(w io.Writer, s report.Summary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"column", "missing_before", "missing_after", "reduction"}); err != nil {
		return eris.Wrap(err, "export: write quality header")
	}
	for _, q := range s.QualityChecks() {
		row := []string{
			q.Column,
			strconv.Itoa(q.MissingBefore),
			strconv.Itoa(q.MissingAfter),
			strconv.Itoa(q.Reduction),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "export: write quality row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush quality csv")
}

func writeReportYAML(w io.Writer, s report.Summary) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return eris.Wrap(err, "export: encode report yaml")
	}
	return eris.Wrap(enc.Close(), "export: close report yaml")
}
