/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	applog "visionboard/internal/log"
	"visionboard/internal/version"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"

	// JournalFileName is the default SQLite file inside the data dir.
	JournalFileName = "journal.sqlite"
)

// Op names recorded in the journal.
const (
	OpGenerate = "generate"
	OpEdit     = "edit"
	OpExport   = "export"
)

// Outcomes recorded in the journal.
const (
	OutcomeOK        = "ok"
	OutcomeFailed    = "failed"
	OutcomeDiscarded = "discarded"
)

// Entry is one journal row.
type Entry struct {
	ID       int64         `json:"id"`
	At       time.Time     `json:"at"`
	Op       string        `json:"op"`
	Prompt   string        `json:"prompt,omitempty"`
	ItemID   string        `json:"itemId,omitempty"`
	Outcome  string        `json:"outcome"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Journal is safe for concurrent use.
type Journal struct {
	db     *sql.DB
	driver string
	log    *slog.Logger
}

// DefaultPath returns the SQLite journal path inside dir.
func DefaultPath(dir string) string { return filepath.Join(dir, JournalFileName) }

// Open connects to the journal database and applies pending migrations.
// For the sqlite driver dsn is a file path; for pgx a PostgreSQL URL.
func Open(ctx context.Context, driver, dsn string) (*Journal, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "journal_open").With(slog.String("driver", driver))
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("journal dsn is required")
	}
	var (
		db  *sql.DB
		err error
	)
	switch driver {
	case DriverSQLite, "":
		driver = DriverSQLite
		db, err = openSQLite(ctx, dsn)
	case DriverPostgres, "postgres":
		driver = DriverPostgres
		db, err = sql.Open(DriverPostgres, dsn)
		if err == nil {
			err = db.PingContext(ctx)
		}
	default:
		return nil, fmt.Errorf("unknown journal driver %q", driver)
	}
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		l.Error("open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open journal: %w", err)
	}
	j := &Journal{db: db, driver: driver, log: l}
	if err := j.migrate(ctx); err != nil {
		_ = db.Close()
		l.Error("migrate failed", slog.Any("err", err))
		return nil, err
	}
	l.Info("journal ready")
	return j, nil
}

func openSQLite(ctx context.Context, file string) (*sql.DB, error) {
	if dir := filepath.Dir(file); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(file))
	db, err := sql.Open(DriverSQLite, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		return db, fmt.Errorf("enable WAL: %w", err)
	}
	return db, nil
}

func (j *Journal) dialectDir() string {
	if j.driver == DriverPostgres {
		return "migrations/postgres"
	}
	return "migrations/sqlite"
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (j *Journal) rebind(q string) string {
	if j.driver != DriverPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (j *Journal) migrate(ctx context.Context) error {
	stamp := "TEXT"
	if j.driver == DriverPostgres {
		stamp = "TIMESTAMPTZ"
	}
	if _, err := j.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    BIGINT PRIMARY KEY,
		name       TEXT NOT NULL,
		app        TEXT NOT NULL,
		applied_at `+stamp+` NOT NULL
	)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}
	applied := map[int64]bool{}
	rows, err := j.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("select schema_migrations: %w", err)
	}
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			_ = rows.Close()
			return err
		}
		applied[v] = true
	}
	if err := rows.Close(); err != nil {
		return err
	}

	dir := j.dialectDir()
	entries, err := migrationsFS.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	for _, name := range files {
		v, err := parseVersion(name)
		if err != nil {
			return err
		}
		if applied[v] {
			continue
		}
		b, err := migrationsFS.ReadFile(path.Join(dir, name))
		if err != nil {
			return err
		}
		tx, err := j.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		for _, stmt := range splitStatements(string(b)) {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("apply %s: %w", name, err)
			}
		}
		var at any = time.Now().UTC().Format(time.RFC3339Nano)
		if j.driver == DriverPostgres {
			at = time.Now().UTC()
		}
		if _, err := tx.ExecContext(ctx, j.rebind(`INSERT INTO schema_migrations (version, name, app, applied_at) VALUES (?, ?, ?, ?)`), v, name, version.String(), at); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		j.log.Debug("applied migration", slog.String("name", name))
	}
	return nil
}

func parseVersion(name string) (int64, error) {
	head, _, _ := strings.Cut(path.Base(name), "_")
	v, err := strconv.ParseInt(head, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse version from %s: %w", name, err)
	}
	return v, nil
}

func splitStatements(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SchemaVersion returns the highest applied migration.
func (j *Journal) SchemaVersion(ctx context.Context) (int64, error) {
	var v sql.NullInt64
	if err := j.db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_migrations`).Scan(&v); err != nil {
		return 0, err
	}
	return v.Int64, nil
}

// Record appends an entry. A zero At is set to now.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if j == nil {
		return nil
	}
	if e.Op == "" || e.Outcome == "" {
		return errors.New("journal entry needs op and outcome")
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	_, err := j.db.ExecContext(ctx, j.rebind(`INSERT INTO journal (at, op, prompt, item_id, outcome, error, duration_ms) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		j.timeArg(e.At), e.Op, e.Prompt, e.ItemID, e.Outcome, e.Error, e.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("record %s: %w", e.Op, err)
	}
	return nil
}

func (j *Journal) timeArg(t time.Time) any {
	if j.driver == DriverPostgres {
		return t.UTC()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// Filter narrows Recent. Zero values match everything.
type Filter struct {
	Op      string
	Outcome string
	Limit   int
}

// Recent returns entries newest first.
func (j *Journal) Recent(ctx context.Context, f Filter) ([]Entry, error) {
	q := `SELECT id, at, op, prompt, item_id, outcome, error, duration_ms FROM journal WHERE 1=1`
	var args []any
	if f.Op != "" {
		q += ` AND op = ?`
		args = append(args, f.Op)
	}
	if f.Outcome != "" {
		q += ` AND outcome = ?`
		args = append(args, f.Outcome)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	q += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)
	rows, err := j.db.QueryContext(ctx, j.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Entry
	for rows.Next() {
		var (
			e  Entry
			at any
			ms int64
		)
		if err := rows.Scan(&e.ID, &at, &e.Op, &e.Prompt, &e.ItemID, &e.Outcome, &e.Error, &ms); err != nil {
			return nil, err
		}
		e.At = parseTime(at)
		e.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, e)
	}
	return out, rows.Err()
}

func parseTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		p, _ := time.Parse(time.RFC3339Nano, t)
		return p
	case []byte:
		p, _ := time.Parse(time.RFC3339Nano, string(t))
		return p
	}
	return time.Time{}
}

// Stats counts entries per op and outcome.
type Stats map[string]map[string]int

func (j *Journal) Stats(ctx context.Context) (Stats, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT op, outcome, COUNT(*) FROM journal GROUP BY op, outcome`)
	if err != nil {
		return nil, fmt.Errorf("journal stats: %w", err)
	}
	defer func() { _ = rows.Close() }()
	out := Stats{}
	for rows.Next() {
		var op, outcome string
		var n int
		if err := rows.Scan(&op, &outcome, &n); err != nil {
			return nil, err
		}
		if out[op] == nil {
			out[op] = map[string]int{}
		}
		out[op][outcome] = n
	}
	return out, rows.Err()
}

// Ping checks the connection, for readiness probes.
func (j *Journal) Ping(ctx context.Context) error { return j.db.PingContext(ctx) }

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}
