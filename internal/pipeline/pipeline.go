// Package pipeline wires the cleaning, normalization and load stages into
// one run.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/retail-pipeline/internal/dataset"
	"github.com/sells-group/retail-pipeline/internal/model"
	"github.com/sells-group/retail-pipeline/internal/normalize"
	"github.com/sells-group/retail-pipeline/internal/recovery"
	"github.com/sells-group/retail-pipeline/internal/report"
	"github.com/sells-group/retail-pipeline/internal/store"
)

// Phase names recorded on a Run.
const (
	PhaseRead      = "read"
	PhaseClean     = "clean"
	PhaseNormalize = "normalize"
	PhaseLoad      = "load"
)

// PhaseStatus is the outcome of one phase.
type PhaseStatus string

const (
	PhaseStatusComplete PhaseStatus = "complete"
	PhaseStatusFailed   PhaseStatus = "failed"
)

// PhaseResult records how one phase went.
type PhaseResult struct {
	Name     string      `json:"name"`
	Status   PhaseStatus `json:"status"`
	Duration int64       `json:"duration_ms"`
	Error    string      `json:"error,omitempty"`
}

// ErrIntegrity is returned by Load when the normalized tables failed
// validation.
var ErrIntegrity = eris.New("pipeline: integrity issues")

// Options configures every stage of a run.
type Options struct {
	Recovery  recovery.Options
	Normalize normalize.Options
}

// Pipeline runs the stages with fixed options. It holds no per-run state and
// may be reused.
type Pipeline struct {
	opts   Options
	engine *recovery.Engine
}

// New creates a Pipeline.
func New(opts Options) *Pipeline {
	return &Pipeline{
		opts:   opts,
		engine: recovery.NewEngine(opts.Recovery),
	}
}

// Run is the state of one execution. Later stages read what earlier ones
// left behind.
type Run struct {
	Builder *report.Builder
	Raw     *dataset.Table
	Cleaned []model.Record
	Dropped []model.DroppedRecord
	Tables  *normalize.Tables
	Issues  []normalize.Issue
	Load    *store.LoadResult
	Phases  []PhaseResult

	log *zap.Logger
}

// Summary returns the report for the stages run so far.
func (r *Run) Summary() report.Summary {
	return r.Builder.Summary()
}

func (p *Pipeline) newRun() *Run {
	b := report.NewBuilder(p.engine.Strategy())
	s := b.Summary()
	return &Run{
		Builder: b,
		log: zap.L().With(
			zap.String("component", "pipeline"),
			zap.String("run_id", s.RunID),
		),
	}
}

// track runs fn as the named phase and records its outcome.
func (r *Run) track(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	res := PhaseResult{Name: name, Status: PhaseStatusComplete, Duration: time.Since(start).Milliseconds()}
	if err != nil {
		res.Status = PhaseStatusFailed
		res.Error = err.Error()
		r.log.Error("pipeline: phase failed",
			zap.String("phase", name),
			zap.Int64("duration_ms", res.Duration),
			zap.Error(err),
		)
	} else {
		r.log.Info("pipeline: phase complete",
			zap.String("phase", name),
			zap.Int64("duration_ms", res.Duration),
		)
	}
	r.Phases = append(r.Phases, res)
	return err
}

// CleanFile reads the raw extract at path and cleans it.
func (p *Pipeline) CleanFile(ctx context.Context, path string) (*Run, error) {
	run := p.newRun()
	err := run.track(PhaseRead, func() error {
		tbl, err := dataset.ReadFile(path)
		if err != nil {
			return err
		}
		run.Raw = tbl
		return nil
	})
	if err != nil {
		return run, err
	}
	return run, p.clean(ctx, run)
}

// Clean cleans an already loaded extract.
func (p *Pipeline) Clean(ctx context.Context, tbl *dataset.Table) (*Run, error) {
	run := p.newRun()
	run.Raw = tbl
	return run, p.clean(ctx, run)
}

func (p *Pipeline) clean(ctx context.Context, run *Run) error {
	return run.track(PhaseClean, func() error {
		if err := ctx.Err(); err != nil {
			return eris.Wrap(err, "pipeline: clean")
		}
		res, err := p.engine.Run(run.Raw, run.Builder)
		if err != nil {
			return err
		}
		run.Cleaned = res.Cleaned
		run.Dropped = res.Dropped

		s := run.Builder.Summary()
		run.log.Info("pipeline: cleaned extract",
			zap.Int("initial_rows", s.InitialRows),
			zap.Int("final_rows", s.FinalRows),
			zap.Int("dropped", s.DroppedTotal()),
			zap.Int("reconciled", s.ReconciledTotals),
		)
		return nil
	})
}

// FromCleaned starts a run from a previously written cleaned extract,
// skipping recovery. The report shows no drops or repairs.
func (p *Pipeline) FromCleaned(ctx context.Context, path string) (*Run, error) {
	run := p.newRun()
	err := run.track(PhaseRead, func() error {
		if err := ctx.Err(); err != nil {
			return eris.Wrap(err, "pipeline: read cleaned")
		}
		tbl, err := dataset.ReadFile(path)
		if err != nil {
			return err
		}
		run.Raw = tbl
		run.Cleaned = tbl.Records
		missing := model.MissingCounts(tbl.Records)
		run.Builder.SetInitial(len(tbl.Records), missing)
		run.Builder.SetUnparseable(tbl.Unparseable)
		run.Builder.SetFinal(len(tbl.Records), missing)
		return nil
	})
	return run, err
}

// Normalize builds the 3NF tables from the run's cleaned records and
// validates their keys. Under the fail policy an unresolved reference
// aborts the phase.
func (p *Pipeline) Normalize(ctx context.Context, run *Run) error {
	return run.track(PhaseNormalize, func() error {
		if err := ctx.Err(); err != nil {
			return eris.Wrap(err, "pipeline: normalize")
		}
		tables, err := normalize.Build(run.Cleaned, p.opts.Normalize)
		if err != nil {
			return err
		}
		run.Tables = tables
		for _, name := range model.TableNames {
			run.Builder.SetTable(name, tables.Len(name))
		}
		run.Builder.SetUnresolved(len(tables.Unresolved))

		run.Issues = normalize.Validate(tables)
		for _, issue := range run.Issues {
			run.log.Warn("pipeline: integrity issue", zap.String("issue", issue.String()))
		}
		return nil
	})
}

// IntegrityError reports the validation issues found by Normalize, or nil
// when there are none.
func (r *Run) IntegrityError() error {
	if len(r.Issues) == 0 {
		return nil
	}
	return eris.Wrapf(ErrIntegrity, "%d found, first: %s", len(r.Issues), r.Issues[0])
}

// Load migrates the target schema, writes the run's tables through l and
// records the run summary. Tables with integrity issues are never written.
func (p *Pipeline) Load(ctx context.Context, run *Run, l store.Loader) error {
	if run.Tables == nil {
		return eris.New("pipeline: load requires normalized tables")
	}
	if err := run.IntegrityError(); err != nil {
		return err
	}
	return run.track(PhaseLoad, func() error {
		if err := l.Migrate(ctx); err != nil {
			return eris.Wrap(err, "pipeline: migrate")
		}
		res, err := l.Load(ctx, run.Tables)
		if err != nil {
			return eris.Wrap(err, "pipeline: load tables")
		}
		run.Load = res
		if err := l.RecordRun(ctx, run.Summary()); err != nil {
			return eris.Wrap(err, "pipeline: record run")
		}
		run.log.Info("pipeline: loaded tables",
			zap.String("driver", res.Driver),
			zap.Bool("dry_run", res.DryRun),
			zap.Int64("rows", res.Total()),
		)
		return nil
	})
}
