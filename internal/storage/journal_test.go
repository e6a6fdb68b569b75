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
	"os"
	"path/filepath"
	"testing"
	"time"
)

func openTemp(t *testing.T) *Journal {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	j, err := Open(ctx, DriverSQLite, DefaultPath(filepath.Join(t.TempDir(), "data")))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestJournalRecordAndRecent(t *testing.T) {
	j := openTemp(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := []Entry{
		{At: base, Op: OpGenerate, Prompt: "a lighthouse", ItemID: "img-1", Outcome: OutcomeOK, Duration: 1500 * time.Millisecond},
		{At: base.Add(time.Minute), Op: OpEdit, Prompt: "make it night", ItemID: "img-1", Outcome: OutcomeFailed, Error: "quota"},
		{At: base.Add(2 * time.Minute), Op: OpExport, Prompt: "png", Outcome: OutcomeOK},
	}
	for _, e := range entries {
		if err := j.Record(ctx, e); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	got, err := j.Recent(ctx, Filter{})
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("want 3 entries, got %d", len(got))
	}
	if got[0].Op != OpExport || got[2].Op != OpGenerate {
		t.Fatalf("want newest first, got %s..%s", got[0].Op, got[2].Op)
	}
	if got[2].Duration != 1500*time.Millisecond || !got[2].At.Equal(base) {
		t.Fatalf("round trip lost data: %+v", got[2])
	}
	if got[1].Error != "quota" || got[1].ItemID != "img-1" {
		t.Fatalf("unexpected edit row: %+v", got[1])
	}

	failed, err := j.Recent(ctx, Filter{Outcome: OutcomeFailed})
	if err != nil || len(failed) != 1 || failed[0].Op != OpEdit {
		t.Fatalf("filter by outcome: %v %+v", err, failed)
	}
	one, err := j.Recent(ctx, Filter{Limit: 1})
	if err != nil || len(one) != 1 {
		t.Fatalf("limit: %v %d", err, len(one))
	}
}

func TestJournalStats(t *testing.T) {
	j := openTemp(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_ = j.Record(ctx, Entry{Op: OpGenerate, Outcome: OutcomeOK})
	}
	_ = j.Record(ctx, Entry{Op: OpGenerate, Outcome: OutcomeFailed})
	_ = j.Record(ctx, Entry{Op: OpEdit, Outcome: OutcomeDiscarded})
	st, err := j.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st[OpGenerate][OutcomeOK] != 3 || st[OpGenerate][OutcomeFailed] != 1 || st[OpEdit][OutcomeDiscarded] != 1 {
		t.Fatalf("unexpected stats %v", st)
	}
}

func TestJournalRejectsIncompleteEntry(t *testing.T) {
	j := openTemp(t)
	if err := j.Record(context.Background(), Entry{Op: OpGenerate}); err == nil {
		t.Fatal("expected error for missing outcome")
	}
}

func TestJournalMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()
	p := DefaultPath(dir)
	ctx := context.Background()
	j, err := Open(ctx, DriverSQLite, p)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := j.Record(ctx, Entry{Op: OpExport, Outcome: OutcomeOK}); err != nil {
		t.Fatalf("record: %v", err)
	}
	_ = j.Close()

	j2, err := Open(ctx, DriverSQLite, p)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = j2.Close() }()
	v, err := j2.SchemaVersion(ctx)
	if err != nil || v != 2 {
		t.Fatalf("schema version = %d, %v", v, err)
	}
	got, _ := j2.Recent(ctx, Filter{})
	if len(got) != 1 {
		t.Fatalf("entry lost across reopen: %d", len(got))
	}
}

func TestOpenErrors(t *testing.T) {
	ctx := context.Background()
	if _, err := Open(ctx, DriverSQLite, " "); err == nil {
		t.Fatal("expected error for empty dsn")
	}
	if _, err := Open(ctx, "oracle", "x"); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestNilJournalRecordIsNoop(t *testing.T) {
	var j *Journal
	if err := j.Record(context.Background(), Entry{Op: OpGenerate, Outcome: OutcomeOK}); err != nil {
		t.Fatalf("nil journal: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("nil close: %v", err)
	}
}

func TestRebind(t *testing.T) {
	pg := &Journal{driver: DriverPostgres}
	if got := pg.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Fatalf("rebind = %q", got)
	}
	lite := &Journal{driver: DriverSQLite}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Fatalf("sqlite rebind = %q", got)
	}
}

func TestParseVersion(t *testing.T) {
	if v, err := parseVersion("migrations/sqlite/002_journal_op.sql"); err != nil || v != 2 {
		t.Fatalf("parseVersion = %d, %v", v, err)
	}
	if _, err := parseVersion("nover.sql"); err == nil {
		t.Fatal("expected error")
	}
}

func TestJournalPostgres(t *testing.T) {
	dsn := os.Getenv("VB_PG_DSN")
	if dsn == "" {
		t.Skip("VB_PG_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	j, err := Open(ctx, DriverPostgres, dsn)
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	defer func() { _ = j.Close() }()
	if err := j.Record(ctx, Entry{Op: OpGenerate, Prompt: "pg", Outcome: OutcomeOK}); err != nil {
		t.Fatalf("record: %v", err)
	}
	got, err := j.Recent(ctx, Filter{Op: OpGenerate, Limit: 1})
	if err != nil || len(got) != 1 {
		t.Fatalf("recent: %v %d", err, len(got))
	}
}
