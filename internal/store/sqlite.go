package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	_ "modernc.org/sqlite"

	"github.com/sells-group/retail-pipeline/internal/dataset"
	"github.com/sells-group/retail-pipeline/internal/normalize"
	"github.com/sells-group/retail-pipeline/internal/report"
	"github.com/sells-group/retail-pipeline/internal/resilience"
)

// sqliteMaxVars stays under SQLITE_MAX_VARIABLE_NUMBER.
const sqliteMaxVars = 32000

// SQLiteLoader loads tables into a SQLite file with batched INSERTs.
type SQLiteLoader struct {
	db      *sql.DB
	opts    Options
	limiter *rate.Limiter
	log     *zap.Logger
}

// NewSQLite opens the database at opts.DSN and configures WAL mode with
// foreign keys enforced.
func NewSQLite(opts Options) (*SQLiteLoader, error) {
	opts = opts.withDefaults()
	db, err := sql.Open("sqlite", opts.DSN)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteLoader{
		db:      db,
		opts:    opts,
		limiter: newLimiter(opts.BatchesPerSecond),
		log:     zap.L().With(zap.String("component", "store.sqlite")),
	}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS categories (
	category_id   INTEGER PRIMARY KEY,
	category_name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS locations (
	location_id   INTEGER PRIMARY KEY,
	location_name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS payment_methods (
	payment_method_id   INTEGER PRIMARY KEY,
	payment_method_name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS customers (
	customer_id TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS items (
	item_id        INTEGER PRIMARY KEY,
	item_name      TEXT NOT NULL,
	price_per_unit REAL NOT NULL,
	category_id    INTEGER NOT NULL REFERENCES categories(category_id)
);

CREATE TABLE IF NOT EXISTS transactions (
	transaction_id    TEXT PRIMARY KEY,
	customer_id       TEXT NOT NULL REFERENCES customers(customer_id),
	item_id           INTEGER NOT NULL REFERENCES items(item_id),
	payment_method_id INTEGER NOT NULL REFERENCES payment_methods(payment_method_id),
	location_id       INTEGER NOT NULL REFERENCES locations(location_id),
	quantity          REAL NOT NULL,
	total_price       REAL NOT NULL,
	transaction_date  TEXT,
	discount_applied  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS pipeline_runs (
	run_id       TEXT PRIMARY KEY,
	strategy     TEXT NOT NULL,
	started_at   DATETIME NOT NULL,
	initial_rows INTEGER NOT NULL,
	final_rows   INTEGER NOT NULL,
	summary      TEXT NOT NULL,
	loaded_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_items_category_id ON items(category_id);
CREATE INDEX IF NOT EXISTS idx_transactions_customer_id ON transactions(customer_id);
CREATE INDEX IF NOT EXISTS idx_transactions_item_id ON transactions(item_id);
CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(transaction_date);
`

func (s *SQLiteLoader) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Load writes every table inside one transaction.
func (s *SQLiteLoader) Load(ctx context.Context, t *normalize.Tables) (*LoadResult, error) {
	retry := s.opts.Retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger(DriverSQLite, "load")
	}
	res, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*LoadResult, error) {
		return s.loadOnce(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("loaded tables", zap.String("mode", string(s.opts.Mode)), zap.Int64("rows", res.Total()))
	return res, nil
}

func (s *SQLiteLoader) loadOnce(ctx context.Context, t *normalize.Tables) (*LoadResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin load")
	}
	defer tx.Rollback() //nolint:errcheck

	if s.opts.Mode == ModeReplace {
		for i := len(tableSpecs) - 1; i >= 0; i-- {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+tableSpecs[i].Name); err != nil {
				return nil, eris.Wrapf(err, "sqlite: clear %s", tableSpecs[i].Name)
			}
		}
	}

	if s.opts.Mode == ModeUpsert {
		keys, err := readStoredKeys(ctx, sqliteKeyReader(tx))
		if err != nil {
			return nil, err
		}
		t = keys.remap(t)
	}

	res := &LoadResult{Driver: DriverSQLite, Mode: s.opts.Mode}
	for _, spec := range tableSpecs {
		size := min(s.opts.BatchSize, sqliteMaxVars/len(spec.Columns))
		var total int64
		for _, batch := range batches(spec.Rows(t), size) {
			if err := waitBatch(ctx, s.limiter); err != nil {
				return nil, err
			}
			n, err := s.insertBatch(ctx, tx, spec, batch)
			if err != nil {
				return nil, err
			}
			total += n
		}
		res.Tables = append(res.Tables, TableCount{Table: spec.Name, Rows: total})
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit load")
	}
	return res, nil
}

func (s *SQLiteLoader) insertBatch(ctx context.Context, tx *sql.Tx, spec tableSpec, rows [][]any) (int64, error) {
	query := insertSQL(spec, len(rows), s.opts.Mode == ModeUpsert)
	args := make([]any, 0, len(rows)*len(spec.Columns))
	for _, r := range rows {
		for _, v := range r {
			args = append(args, sqliteValue(v))
		}
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return 0, eris.Wrapf(err, "sqlite: insert into %s", spec.Name)
	}
	return int64(len(rows)), nil
}

func sqliteKeyReader(tx *sql.Tx) keyReader {
	return func(ctx context.Context, query string, row func(scan func(dest ...any) error) error) error {
		rows, err := tx.QueryContext(ctx, query)
		if err != nil {
			return err
		}
		defer rows.Close() //nolint:errcheck
		for rows.Next() {
			if err := row(rows.Scan); err != nil {
				return err
			}
		}
		return rows.Err()
	}
}

// insertSQL builds a multi-row INSERT, merging on the primary key when upsert
// is set. Upsert callers remap surrogate keys first so the merge never trips
// a name's UNIQUE constraint.
func insertSQL(spec tableSpec, rows int, upsert bool) string {
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(spec.Columns)), ", ") + ")"
	values := make([]string, rows)
	for i := range values {
		values[i] = placeholder
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES %s", spec.Name, strings.Join(spec.Columns, ", "), strings.Join(values, ", "))
	if upsert {
		pk := make(map[string]bool, len(spec.PrimaryKey))
		for _, k := range spec.PrimaryKey {
			pk[k] = true
		}
		var set []string
		for _, c := range spec.Columns {
			if !pk[c] {
				set = append(set, fmt.Sprintf("%s = excluded.%s", c, c))
			}
		}
		fmt.Fprintf(&b, " ON CONFLICT (%s) ", strings.Join(spec.PrimaryKey, ", "))
		if len(set) == 0 {
			b.WriteString("DO NOTHING")
		} else {
			b.WriteString("DO UPDATE SET " + strings.Join(set, ", "))
		}
	}
	return b.String()
}

// sqliteValue stores dates as YYYY-MM-DD text.
func sqliteValue(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.Format(dataset.DateLayout)
	}
	return v
}

// RecordRun stores the run summary alongside the loaded tables.
func (s *SQLiteLoader) RecordRun(ctx context.Context, sum report.Summary) error {
	summary, err := json.Marshal(sum)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal summary")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO pipeline_runs (run_id, strategy, started_at, initial_rows, final_rows, summary)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id) DO UPDATE SET final_rows = excluded.final_rows, summary = excluded.summary`,
		sum.RunID, sum.Strategy, sum.StartedAt, sum.InitialRows, sum.FinalRows, string(summary),
	)
	return eris.Wrapf(err, "sqlite: record run %s", sum.RunID)
}

func (s *SQLiteLoader) Close() error {
	return s.db.Close()
}
