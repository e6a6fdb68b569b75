/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func lastJSONLine(t *testing.T, b []byte) map[string]any {
	t.Helper()
	sc := bufio.NewScanner(bytes.NewReader(b))
	var last string
	for sc.Scan() {
		if s := strings.TrimSpace(sc.Text()); s != "" {
			last = s
		}
	}
	if last == "" {
		t.Fatalf("no log lines found")
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(last), &m); err != nil {
		t.Fatalf("unmarshal json log: %v", err)
	}
	return m
}

func TestInitJSONConsoleCarriesStaticAndContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: "debug", Format: "json", Console: &buf})
	t.Cleanup(func() { Init(Options{Console: &bytes.Buffer{}}) })

	l := WithOperation(WithComponent("board"), "shuffle")
	ctx := WithRequestID(context.Background(), "req-7")
	l.InfoContext(ctx, "shuffled", slog.Int("items", 3))

	m := lastJSONLine(t, buf.Bytes())
	if m["app"] != "visionboard" {
		t.Fatalf("app attr = %v", m["app"])
	}
	if _, ok := m["ver"].(string); !ok {
		t.Fatalf("missing ver attr")
	}
	if m["component"] != "board" || m["op"] != "shuffle" {
		t.Fatalf("context attrs = %v / %v", m["component"], m["op"])
	}
	if m["request_id"] != "req-7" {
		t.Fatalf("request_id = %v", m["request_id"])
	}
	if m["items"] != float64(3) {
		t.Fatalf("items = %v", m["items"])
	}
}

func TestInitWritesRotatingFile(t *testing.T) {
	fpath := filepath.Join(t.TempDir(), "vb.log")
	Init(Options{Level: "info", Format: "console", File: fpath, Console: &bytes.Buffer{}})
	t.Cleanup(func() { Init(Options{Console: &bytes.Buffer{}}) })

	WithComponent("export").Info("exported", slog.String("format", "png"))
	time.Sleep(20 * time.Millisecond)

	b, err := os.ReadFile(fpath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	m := lastJSONLine(t, b)
	if m["msg"] != "exported" || m["format"] != "png" {
		t.Fatalf("unexpected record %v", m)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("VB_LOG_LEVEL", "warn")
	t.Setenv("VB_LOG_FORMAT", "json")
	t.Setenv("VB_LOG_SOURCE", "true")
	t.Setenv("VB_LOG_FILE", "")

	opts := FromEnv()
	if opts.Level != "warn" || opts.Format != "json" || !opts.AddSource || opts.File != "" {
		t.Fatalf("FromEnv mismatch: %+v", opts)
	}
	if v := getenv("VB_SOME_UNSET_VAR", "fallback"); v != "fallback" {
		t.Fatalf("getenv fallback failed: %q", v)
	}
}

func TestPrettyTextHandler(t *testing.T) {
	var buf bytes.Buffer
	var h slog.Handler = &prettyTextHandler{opts: prettyOpts{Level: slog.LevelWarn}, w: &buf}
	ctx := context.Background()

	if h.Enabled(ctx, slog.LevelInfo) {
		t.Fatalf("info should not be enabled at warn level")
	}
	if !h.Enabled(ctx, slog.LevelError) {
		t.Fatalf("error should be enabled at warn level")
	}

	h = h.WithAttrs([]slog.Attr{slog.String("k", "v")}).WithGroup("grp")
	r := slog.NewRecord(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), slog.LevelError, "boom", 0)
	r.AddAttrs(slog.Int("n", 42), slog.Float64("scale", 10), slog.Bool("ok", true), slog.String("prompt", "a red fox"))
	if err := h.Handle(ctx, r); err != nil {
		t.Fatalf("handle error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"2025-01-02T03:04:05Z", "ERR", "boom", "grp.k=v", "grp.n=42", "grp.scale=10 ", "grp.ok=true", `grp.prompt="a red fox"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("output %q missing %q", out, want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{"debug": slog.LevelDebug, "WARNING": slog.LevelWarn, "error": slog.LevelError, "": slog.LevelInfo}
	for in, want := range cases {
		if got := parseLevel(in).Level(); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestOrDefaultAndRequestID(t *testing.T) {
	d := Discard()
	if OrDefault(d, "x") != d {
		t.Fatal("OrDefault should keep a non-nil logger")
	}
	if OrDefault(nil, "x") == nil {
		t.Fatal("OrDefault should build a component logger")
	}
	if RequestID(context.Background()) != "" {
		t.Fatal("empty context should have no request id")
	}
}
