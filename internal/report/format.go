package report

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// QualityCheck compares missing values per column before and after cleaning.
type QualityCheck struct {
	Column        string `json:"column" yaml:"column"`
	MissingBefore int    `json:"missing_before" yaml:"missing_before"`
	MissingAfter  int    `json:"missing_after" yaml:"missing_after"`
	Reduction     int    `json:"reduction" yaml:"reduction"`
}

// DroppedTotal is the number of rows removed for any reason.
func (s Summary) DroppedTotal() int {
	return sum(s.Dropped)
}

// Retention is the percentage of input rows that survived cleaning.
func (s Summary) Retention() float64 {
	if s.InitialRows == 0 {
		return 0
	}
	return float64(s.FinalRows) / float64(s.InitialRows) * 100
}

// MissingBeforeTotal sums missing values across all columns of the raw input.
func (s Summary) MissingBeforeTotal() int {
	return sum(s.MissingBefore)
}

// MissingAfterTotal sums missing values across all columns of the cleaned output.
func (s Summary) MissingAfterTotal() int {
	return sum(s.MissingAfter)
}

// QualityChecks pairs the before/after missing counts column by column.
func (s Summary) QualityChecks() []QualityCheck {
	after := make(map[string]int, len(s.MissingAfter))
	for _, c := range s.MissingAfter {
		after[c.Key] = c.Count
	}
	out := make([]QualityCheck, 0, len(s.MissingBefore))
	for _, c := range s.MissingBefore {
		out = append(out, QualityCheck{
			Column:        c.Key,
			MissingBefore: c.Count,
			MissingAfter:  after[c.Key],
			Reduction:     c.Count - after[c.Key],
		})
	}
	return out
}

// Rows flattens the summary into key/count pairs for machine consumption.
func (s Summary) Rows() []Count {
	rows := []Count{
		{Key: "initial_rows", Count: s.InitialRows},
		{Key: "rows_dropped", Count: s.DroppedTotal()},
	}
	rows = appendPrefixed(rows, "dropped.", s.Dropped)
	rows = appendPrefixed(rows, "recovered.", s.Recovered)
	rows = appendPrefixed(rows, "imputed.", s.Imputed)
	rows = append(rows, Count{Key: "reconciled_totals", Count: s.ReconciledTotals})
	rows = appendPrefixed(rows, "unparseable.", s.Unparseable)
	rows = append(rows,
		Count{Key: "missing_before", Count: s.MissingBeforeTotal()},
		Count{Key: "missing_after", Count: s.MissingAfterTotal()},
		Count{Key: "final_rows", Count: s.FinalRows},
	)
	rows = appendPrefixed(rows, "tables.", s.Tables)
	rows = append(rows, Count{Key: "unresolved_references", Count: s.Unresolved})
	return rows
}

// Format renders the summary as the human-readable cleaning report.
func Format(s Summary) string {
	p := message.NewPrinter(language.English)
	var b strings.Builder

	b.WriteString("=== CLEANING SUMMARY ===\n")
	p.Fprintf(&b, "Run ID: %s\n", s.RunID)
	p.Fprintf(&b, "Strategy: %s\n", s.Strategy)
	p.Fprintf(&b, "Initial dataset rows: %d\n", s.InitialRows)
	p.Fprintf(&b, "Rows dropped (unrecoverable): %d\n", s.DroppedTotal())
	for _, c := range s.Dropped {
		p.Fprintf(&b, "  %s: %d\n", c.Key, c.Count)
	}
	p.Fprintf(&b, "Final dataset rows: %d\n", s.FinalRows)
	p.Fprintf(&b, "Data retention: %.1f%%\n", s.Retention())

	b.WriteString("\nValues RECOVERED (using business logic):\n")
	writeCounts(&b, p, s.Recovered)
	b.WriteString("\nValues IMPUTED (using defaults):\n")
	writeCounts(&b, p, s.Imputed)

	p.Fprintf(&b, "\nTotals reconciled for consistency: %d\n", s.ReconciledTotals)
	if len(s.Unparseable) > 0 {
		b.WriteString("\nUnparseable values (loaded as missing):\n")
		writeCounts(&b, p, s.Unparseable)
	}

	before, after := s.MissingBeforeTotal(), s.MissingAfterTotal()
	b.WriteString("\nMissing values reduction:\n")
	p.Fprintf(&b, "  Before: %d missing values\n", before)
	p.Fprintf(&b, "  After: %d missing values\n", after)
	p.Fprintf(&b, "  Reduction: %d values recovered/filled\n", before-after)

	if len(s.Tables) > 0 {
		b.WriteString("\n=== NORMALIZATION SUMMARY ===\n")
		p.Fprintf(&b, "Total normalized tables created: %d\n", len(s.Tables))
		for _, c := range s.Tables {
			p.Fprintf(&b, "  %s.csv: %d rows\n", c.Key, c.Count)
		}
		p.Fprintf(&b, "Total rows across all tables: %d\n", sum(s.Tables))
		p.Fprintf(&b, "Unresolved references: %d\n", s.Unresolved)
	}
	return b.String()
}

func writeCounts(b *strings.Builder, p *message.Printer, counts []Count) {
	if len(counts) == 0 {
		b.WriteString("  none\n")
		return
	}
	for _, c := range counts {
		p.Fprintf(b, "  %s: %d\n", c.Key, c.Count)
	}
}

func appendPrefixed(rows []Count, prefix string, counts []Count) []Count {
	for _, c := range counts {
		rows = append(rows, Count{Key: prefix + c.Key, Count: c.Count})
	}
	return rows
}

func sum(counts []Count) int {
	n := 0
	for _, c := range counts {
		n += c.Count
	}
	return n
}
