package recovery

import (
	"go.uber.org/zap"

	"github.com/sells-group/retail-pipeline/internal/dataset"
	"github.com/sells-group/retail-pipeline/internal/model"
	"github.com/sells-group/retail-pipeline/internal/report"
)

// Options configures an Engine.
type Options struct {
	Strategy           model.Strategy
	Tolerance          float64 // reconciliation tolerance, default DefaultTolerance
	ItemPriceTolerance float64 // item inference window, default DefaultItemPriceTolerance
}

// Engine runs classification, field recovery, reconciliation and the
// completeness gate over a materialized table.
type Engine struct {
	opts Options
}

// Result is the cleaned table and every row removed on the way.
type Result struct {
	Cleaned []model.Record
	Dropped []model.DroppedRecord
}

// NewEngine returns an Engine with defaults applied to opts.
func NewEngine(opts Options) *Engine {
	if opts.Strategy == "" {
		opts.Strategy = model.StrategySmart
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultTolerance
	}
	if opts.ItemPriceTolerance <= 0 {
		opts.ItemPriceTolerance = DefaultItemPriceTolerance
	}
	return &Engine{opts: opts}
}

// Strategy returns the recovery strategy the engine applies.
func (e *Engine) Strategy() model.Strategy {
	return e.opts.Strategy
}

// Rules returns the ordered rule set for the configured strategy.
func (e *Engine) Rules() []Rule {
	if e.opts.Strategy == model.StrategySimple {
		return SimpleRules()
	}
	return SmartRules(e.opts.ItemPriceTolerance)
}

// Run cleans tbl, recording every stage's counts in b. The input table is
// not modified. An empty table is a structural error.
func (e *Engine) Run(tbl *dataset.Table, b *report.Builder) (*Result, error) {
	if tbl == nil || len(tbl.Records) == 0 {
		return nil, &dataset.StructuralError{Msg: "input has no data rows"}
	}
	log := zap.L().With(zap.String("component", "recovery.engine"), zap.String("strategy", string(e.opts.Strategy)))

	b.SetInitial(len(tbl.Records), model.MissingCounts(tbl.Records))
	b.SetUnparseable(tbl.Unparseable)

	cls := Classify(tbl.Records)
	for _, d := range cls.Dropped {
		b.AddDropped(d.Reason, 1)
	}
	log.Info("classified rows",
		zap.Int("rows", len(tbl.Records)),
		zap.Int("retained", len(cls.Retained)),
		zap.Int("unrecoverable", len(cls.Dropped)),
	)

	work := cls.Retained
	for _, rule := range e.Rules() {
		n := rule.Apply(work)
		switch rule.Kind {
		case Imputed:
			b.AddImputed(rule.Field, n)
		default:
			b.AddRecovered(rule.Field, n)
		}
		log.Debug("applied rule", zap.String("field", rule.Field), zap.Stringer("kind", rule.Kind), zap.Int("rows", n))
	}

	reconciled := Reconcile(work, e.opts.Tolerance)
	b.AddReconciled(reconciled)
	log.Info("reconciled totals", zap.Int("updated", reconciled))

	gate := DropIncomplete(work)
	for _, d := range gate.Dropped {
		b.AddDropped(d.Reason, 1)
	}
	if len(gate.Dropped) > 0 {
		log.Warn("dropped incomplete rows after recovery", zap.Int("rows", len(gate.Dropped)))
	}

	b.SetFinal(len(gate.Retained), model.MissingCounts(gate.Retained))

	return &Result{
		Cleaned: gate.Retained,
		Dropped: append(cls.Dropped, gate.Dropped...),
	}, nil
}
