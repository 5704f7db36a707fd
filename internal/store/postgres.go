package store

import (
	"context"
	"embed"
	"encoding/json"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/retail-pipeline/internal/db"
	"github.com/sells-group/retail-pipeline/internal/normalize"
	"github.com/sells-group/retail-pipeline/internal/report"
	"github.com/sells-group/retail-pipeline/internal/resilience"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// migrationLockID keys the advisory lock held while migrations run.
const migrationLockID = 7301

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// PostgresLoader loads tables over a pgx pool with COPY.
type PostgresLoader struct {
	pool    db.Pool
	closeFn func()
	opts    Options
	limiter *rate.Limiter
	log     *zap.Logger
}

// NewPostgres connects to opts.DSN and returns a loader.
func NewPostgres(ctx context.Context, opts Options) (*PostgresLoader, error) {
	pgxCfg, err := pgxpool.ParseConfig(opts.DSN)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns, minConns := int32(4), int32(1)
	if opts.Pool != nil {
		if opts.Pool.MaxConns > 0 {
			maxConns = opts.Pool.MaxConns
		}
		if opts.Pool.MinConns > 0 {
			minConns = opts.Pool.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	l := NewPostgresWithPool(pool, opts)
	l.closeFn = pool.Close
	return l, nil
}

// NewPostgresWithPool wraps an existing pool. It never closes the pool.
func NewPostgresWithPool(pool db.Pool, opts Options) *PostgresLoader {
	opts = opts.withDefaults()
	return &PostgresLoader{
		pool:    pool,
		opts:    opts,
		limiter: newLimiter(opts.BatchesPerSecond),
		log:     zap.L().With(zap.String("component", "store.postgres")),
	}
}

func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}

func waitBatch(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		return nil
	}
	return eris.Wrap(limiter.Wait(ctx), "store: rate limit wait")
}

// Migrate applies pending embedded migrations in file name order under an
// advisory lock.
func (l *PostgresLoader) Migrate(ctx context.Context) error {
	if _, err := l.pool.Exec(ctx, "SELECT pg_advisory_lock($1)", migrationLockID); err != nil {
		return eris.Wrap(err, "postgres: acquire migration lock")
	}
	defer func() {
		if _, err := l.pool.Exec(ctx, "SELECT pg_advisory_unlock($1)", migrationLockID); err != nil {
			l.log.Warn("failed to release migration lock", zap.Error(err))
		}
	}()

	if _, err := l.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename   TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return eris.Wrap(err, "postgres: ensure migration table")
	}

	applied, err := l.appliedMigrations(ctx)
	if err != nil {
		return err
	}

	entries, err := fs.ReadDir(migrationFS, "migrations")
	if err != nil {
		return eris.Wrap(err, "postgres: read migration dir")
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		name := entry.Name()
		if applied[name] {
			continue
		}
		data, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return eris.Wrapf(err, "postgres: read migration %s", name)
		}
		if _, err := l.pool.Exec(ctx, string(data)); err != nil {
			return eris.Wrapf(err, "postgres: apply migration %s", name)
		}
		if _, err := l.pool.Exec(ctx, "INSERT INTO schema_migrations (filename) VALUES ($1)", name); err != nil {
			return eris.Wrapf(err, "postgres: record migration %s", name)
		}
		l.log.Info("migration applied", zap.String("file", name))
	}
	return nil
}

func (l *PostgresLoader) appliedMigrations(ctx context.Context) (map[string]bool, error) {
	rows, err := l.pool.Query(ctx, "SELECT filename FROM schema_migrations")
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query applied migrations")
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "postgres: scan migration row")
		}
		applied[name] = true
	}
	return applied, eris.Wrap(rows.Err(), "postgres: iterate migrations")
}

// Load writes every table inside one transaction, retrying the whole
// transaction on transient errors.
func (l *PostgresLoader) Load(ctx context.Context, t *normalize.Tables) (*LoadResult, error) {
	retry := l.opts.Retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger(DriverPostgres, "load")
	}
	res, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*LoadResult, error) {
		return l.loadOnce(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	l.log.Info("loaded tables", zap.String("mode", string(l.opts.Mode)), zap.Int64("rows", res.Total()))
	return res, nil
}

func (l *PostgresLoader) loadOnce(ctx context.Context, t *normalize.Tables) (*LoadResult, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin load")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if l.opts.Mode == ModeReplace {
		if _, err := tx.Exec(ctx, truncateSQL()); err != nil {
			return nil, eris.Wrap(err, "postgres: truncate tables")
		}
	}

	if l.opts.Mode == ModeUpsert {
		keys, err := readStoredKeys(ctx, pgxKeyReader(tx))
		if err != nil {
			return nil, err
		}
		t = keys.remap(t)
	}

	res := &LoadResult{Driver: DriverPostgres, Mode: l.opts.Mode}
	for _, spec := range tableSpecs {
		n, err := l.loadTable(ctx, tx, spec, spec.Rows(t))
		if err != nil {
			return nil, err
		}
		res.Tables = append(res.Tables, TableCount{Table: spec.Name, Rows: n})
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit load")
	}
	return res, nil
}

func pgxKeyReader(tx pgx.Tx) keyReader {
	return func(ctx context.Context, query string, row func(scan func(dest ...any) error) error) error {
		rows, err := tx.Query(ctx, query)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			if err := row(rows.Scan); err != nil {
				return err
			}
		}
		return rows.Err()
	}
}

func (l *PostgresLoader) loadTable(ctx context.Context, tx pgx.Tx, spec tableSpec, rows [][]any) (int64, error) {
	if l.opts.Mode == ModeUpsert {
		// The staging table is shared, so each table merges as one batch.
		if err := waitBatch(ctx, l.limiter); err != nil {
			return 0, err
		}
		return db.UpsertTx(ctx, tx, db.UpsertConfig{
			Table:        spec.Name,
			Columns:      spec.Columns,
			ConflictKeys: spec.PrimaryKey,
		}, rows)
	}

	var total int64
	for _, batch := range batches(rows, l.opts.BatchSize) {
		if err := waitBatch(ctx, l.limiter); err != nil {
			return 0, err
		}
		n, err := db.CopyFrom(ctx, tx, spec.Name, spec.Columns, batch)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func truncateSQL() string {
	names := make([]string, len(tableSpecs))
	for i, spec := range tableSpecs {
		names[i] = db.QuoteTable(spec.Name)
	}
	return "TRUNCATE TABLE " + strings.Join(names, ", ")
}

const upsertRunSQL = `INSERT INTO pipeline_runs (run_id, strategy, started_at, initial_rows, final_rows, summary)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (run_id) DO UPDATE SET final_rows = EXCLUDED.final_rows, summary = EXCLUDED.summary, loaded_at = now()`

// RecordRun stores the run summary alongside the loaded tables.
func (l *PostgresLoader) RecordRun(ctx context.Context, s report.Summary) error {
	summary, err := json.Marshal(s)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal summary")
	}
	return resilience.Do(ctx, l.opts.Retry, func(ctx context.Context) error {
		_, err := l.pool.Exec(ctx, upsertRunSQL, s.RunID, s.Strategy, s.StartedAt, s.InitialRows, s.FinalRows, summary)
		return eris.Wrapf(err, "postgres: record run %s", s.RunID)
	})
}

// Close releases the pool if the loader opened it.
func (l *PostgresLoader) Close() error {
	if l.closeFn != nil {
		l.closeFn()
	}
	return nil
}
