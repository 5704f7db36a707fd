// Package report accumulates pipeline counts into a structured summary.
package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/sells-group/retail-pipeline/internal/model"
)

// Count is a named counter. Slices of Count keep insertion order so every
// rendering of a summary is deterministic.
type Count struct {
	Key   string `json:"key" yaml:"key"`
	Count int    `json:"count" yaml:"count"`
}

// Summary is the immutable result of a pipeline run.
type Summary struct {
	RunID     string    `json:"run_id" yaml:"run_id"`
	Strategy  string    `json:"strategy" yaml:"strategy"`
	StartedAt time.Time `json:"started_at" yaml:"started_at"`

	InitialRows int `json:"initial_rows" yaml:"initial_rows"`
	FinalRows   int `json:"final_rows" yaml:"final_rows"`

	Dropped          []Count `json:"dropped" yaml:"dropped"`
	Recovered        []Count `json:"recovered" yaml:"recovered"`
	Imputed          []Count `json:"imputed" yaml:"imputed"`
	ReconciledTotals int     `json:"reconciled_totals" yaml:"reconciled_totals"`
	Unparseable      []Count `json:"unparseable,omitempty" yaml:"unparseable,omitempty"`

	MissingBefore []Count `json:"missing_before" yaml:"missing_before"`
	MissingAfter  []Count `json:"missing_after" yaml:"missing_after"`

	Tables     []Count `json:"tables,omitempty" yaml:"tables,omitempty"`
	Unresolved int     `json:"unresolved_references" yaml:"unresolved_references"`
}

// Builder accumulates counts from every pipeline stage. It is owned by a
// single run and is not safe for concurrent use.
type Builder struct {
	s Summary
}

// NewBuilder starts a summary for a run using strategy.
func NewBuilder(strategy model.Strategy) *Builder {
	return &Builder{s: Summary{
		RunID:     uuid.NewString(),
		Strategy:  string(strategy),
		StartedAt: time.Now().UTC(),
	}}
}

// SetInitial records the raw row count and per-column missing counts.
func (b *Builder) SetInitial(rows int, missing map[string]int) {
	b.s.InitialRows = rows
	b.s.MissingBefore = columnCounts(missing)
}

// SetUnparseable records cells that held text but failed to parse.
func (b *Builder) SetUnparseable(byColumn map[string]int) {
	b.s.Unparseable = nil
	for _, col := range model.Columns {
		if n := byColumn[col]; n > 0 {
			b.s.Unparseable = append(b.s.Unparseable, Count{Key: col, Count: n})
		}
	}
}

// AddDropped adds n rows dropped for reason.
func (b *Builder) AddDropped(reason string, n int) {
	b.s.Dropped = add(b.s.Dropped, reason, n)
}

// AddRecovered adds n values derived for field. Zero counts are kept so
// every rule that ran shows up in the report.
func (b *Builder) AddRecovered(field string, n int) {
	b.s.Recovered = add(b.s.Recovered, field, n)
}

// AddImputed adds n values defaulted for field.
func (b *Builder) AddImputed(field string, n int) {
	b.s.Imputed = add(b.s.Imputed, field, n)
}

// AddReconciled adds n totals overwritten by reconciliation.
func (b *Builder) AddReconciled(n int) {
	b.s.ReconciledTotals += n
}

// SetFinal records the cleaned row count and per-column missing counts.
func (b *Builder) SetFinal(rows int, missing map[string]int) {
	b.s.FinalRows = rows
	b.s.MissingAfter = columnCounts(missing)
}

// SetTable records the row count of a normalized table.
func (b *Builder) SetTable(name string, rows int) {
	for i := range b.s.Tables {
		if b.s.Tables[i].Key == name {
			b.s.Tables[i].Count = rows
			return
		}
	}
	b.s.Tables = append(b.s.Tables, Count{Key: name, Count: rows})
}

// SetUnresolved records fact rows whose foreign keys did not resolve.
func (b *Builder) SetUnresolved(n int) {
	b.s.Unresolved = n
}

// Summary returns a copy of the accumulated counts.
func (b *Builder) Summary() Summary {
	s := b.s
	s.Dropped = append([]Count(nil), b.s.Dropped...)
	s.Recovered = append([]Count(nil), b.s.Recovered...)
	s.Imputed = append([]Count(nil), b.s.Imputed...)
	s.Unparseable = append([]Count(nil), b.s.Unparseable...)
	s.MissingBefore = append([]Count(nil), b.s.MissingBefore...)
	s.MissingAfter = append([]Count(nil), b.s.MissingAfter...)
	s.Tables = append([]Count(nil), b.s.Tables...)
	return s
}

func add(counts []Count, key string, n int) []Count {
	for i := range counts {
		if counts[i].Key == key {
			counts[i].Count += n
			return counts
		}
	}
	return append(counts, Count{Key: key, Count: n})
}

func columnCounts(m map[string]int) []Count {
	out := make([]Count, 0, len(model.Columns))
	for _, col := range model.Columns {
		out = append(out, Count{Key: col, Count: m[col]})
	}
	return out
}
