// Package store persists check reports so runs can be listed and compared.
// SQLite (modernc.org/sqlite, no cgo) is the default; PostgreSQL is
// supported through lib/pq.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"cleanarch/internal/cleanarch"
	"cleanarch/internal/config"
	"cleanarch/internal/logging"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("run not found")

// Dialect identifies the SQL flavor.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// RunSummary is one row of the run history.
type RunSummary struct {
	ID        string           `json:"id"`
	Module    string           `json:"module"`
	StartedAt time.Time        `json:"started_at"`
	Duration  time.Duration    `json:"duration"`
	Failed    bool             `json:"failed"`
	Stopped   bool             `json:"stopped"`
	Totals    cleanarch.Totals `json:"totals"`
}

// timeLayout sorts lexically in chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store is the run history database.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open opens (and creates) the history database described by cfg. A
// relative SQLite path is resolved against workspace.
func Open(ctx context.Context, cfg config.StoreConfig, workspace string) (*Store, error) {
	dialect := Dialect(cfg.Driver)
	if dialect == "" {
		dialect = DialectSQLite
	}

	var dsn, driver string
	switch dialect {
	case DialectSQLite:
		path := cfg.DSN
		if path == "" {
			path = config.DefaultStoreConfig().DSN
		}
		if path != ":memory:" && !filepath.IsAbs(path) {
			path = filepath.Join(workspace, path)
		}
		if path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return nil, fmt.Errorf("failed to create store directory: %w", err)
			}
		}
		driver = "sqlite"
		dsn = path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	case DialectPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("store.dsn is required for postgres")
		}
		driver = "postgres"
		dsn = cfg.DSN
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dialect == DialectSQLite {
		// SQLite allows one writer at a time.
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db, dialect: dialect}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	logging.Store("opened %s history store", dialect)
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dialect returns the SQL flavor in use.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	module TEXT NOT NULL,
	started_at TEXT NOT NULL,
	duration_ms BIGINT NOT NULL,
	failed INTEGER NOT NULL,
	stopped INTEGER NOT NULL,
	rules INTEGER NOT NULL,
	passed INTEGER NOT NULL,
	failed_rules INTEGER NOT NULL,
	warnings INTEGER NOT NULL,
	violations INTEGER NOT NULL,
	report_json TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

CREATE TABLE IF NOT EXISTS violations (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	seq INTEGER NOT NULL,
	rule TEXT NOT NULL,
	severity TEXT NOT NULL,
	element TEXT NOT NULL,
	target TEXT NOT NULL,
	message TEXT NOT NULL,
	file TEXT NOT NULL,
	line INTEGER NOT NULL,
	PRIMARY KEY (run_id, seq)
);
CREATE INDEX IF NOT EXISTS idx_violations_rule ON violations(rule);
`

func (s *Store) initSchema(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// rebind rewrites ? placeholders into the dialect's form.
func rebind(d Dialect, query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) q(query string) string {
	return rebind(s.dialect, query)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// SaveReport stores a report and its violations in one transaction.
func (s *Store) SaveReport(ctx context.Context, rep *cleanarch.Report) error {
	data, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	t := rep.Totals
	_, err = tx.ExecContext(ctx, s.q(`
		INSERT INTO runs (id, module, started_at, duration_ms, failed, stopped,
			rules, passed, failed_rules, warnings, violations, report_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		rep.RunID, rep.Module, rep.StartedAt.UTC().Format(timeLayout), rep.Duration().Milliseconds(),
		boolInt(rep.Failed()), boolInt(rep.Stopped),
		t.Rules, t.Passed, t.Failed, t.Warnings, t.Violations, string(data))
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	insert := s.q(`
		INSERT INTO violations (run_id, seq, rule, severity, element, target, message, file, line)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	seq := 0
	for _, res := range rep.Results {
		for _, v := range res.Violations {
			seq++
			if _, err := tx.ExecContext(ctx, insert,
				rep.RunID, seq, res.Rule, string(res.Severity), v.Element, v.Target, v.Message, v.Pos.File, v.Pos.Line); err != nil {
				return fmt.Errorf("failed to insert violation: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	logging.Store("saved run %s (%d violations)", rep.RunID, seq)
	return nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	query := `
		SELECT id, module, started_at, duration_ms, failed, stopped,
			rules, passed, failed_rules, warnings, violations
		FROM runs
		ORDER BY started_at DESC, id`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		var started string
		var durationMS int64
		var failed, stopped int
		if err := rows.Scan(&r.ID, &r.Module, &started, &durationMS, &failed, &stopped,
			&r.Totals.Rules, &r.Totals.Passed, &r.Totals.Failed, &r.Totals.Warnings, &r.Totals.Violations); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.StartedAt, _ = time.Parse(timeLayout, started)
		r.Duration = time.Duration(durationMS) * time.Millisecond
		r.Failed = failed != 0
		r.Stopped = stopped != 0
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns the full report of a run.
func (s *Store) GetRun(ctx context.Context, id string) (*cleanarch.Report, error) {
	var data string
	err := s.db.QueryRowContext(ctx, s.q(`SELECT report_json FROM runs WHERE id = ?`), id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var rep cleanarch.Report
	if err := json.Unmarshal([]byte(data), &rep); err != nil {
		return nil, fmt.Errorf("failed to decode run %s: %w", id, err)
	}
	return &rep, nil
}

// ViolationCounts returns the number of stored violations per rule of a run.
func (s *Store) ViolationCounts(ctx context.Context, id string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT rule, COUNT(*) FROM violations WHERE run_id = ? GROUP BY rule`), id)
	if err != nil {
		return nil, fmt.Errorf("failed to count violations: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var rule string
		var n int
		if err := rows.Scan(&rule, &n); err != nil {
			return nil, err
		}
		counts[rule] = n
	}
	return counts, rows.Err()
}
