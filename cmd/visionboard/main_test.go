/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zalando/go-keyring"

	"visionboard/internal/config"
	"visionboard/internal/version"
)

// isolate points config, data and keyring at throwaway locations and writes
// a config with a small export size.
func isolate(t *testing.T) string {
	t.Helper()
	keyring.MockInit()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("AppData", filepath.Join(dir, "appdata"))
	t.Setenv(config.EnvDataDir, filepath.Join(dir, "data"))
	t.Setenv(config.EnvAPIKey, "")
	t.Setenv(config.EnvLogLevel, "error")
	t.Setenv(config.EnvTelemetryOptIn, "")
	t.Setenv(config.EnvJournalDriver, "")
	t.Setenv(config.EnvJournalDSN, "")
	t.Setenv(config.EnvExportDir, "")
	t.Setenv(config.EnvExportPreset, "")
	require(t, os.MkdirAll(filepath.Join(dir, "data"), 0o755))
	cfg := config.Defaults()
	cfg.Export.Size = 96
	require(t, config.Save(cfg, ""))
	return dir
}

func require(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func runCmd(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(context.Background(), nil, args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestVersionAndUsage(t *testing.T) {
	code, out, _ := runCmd(t, "--version")
	if code != 0 || !strings.Contains(out, version.String()) {
		t.Fatalf("version: code=%d out=%q", code, out)
	}
	code, out, _ = runCmd(t)
	if code != 0 || !strings.Contains(out, "Usage:") {
		t.Fatalf("usage: code=%d out=%q", code, out)
	}
}

func TestUnknownCommand(t *testing.T) {
	isolate(t)
	code, _, errOut := runCmd(t, "frobnicate")
	if code != 2 || !strings.Contains(errOut, `unknown command "frobnicate"`) {
		t.Fatalf("code=%d stderr=%q", code, errOut)
	}
}

func TestDemoExportsAndJournals(t *testing.T) {
	dir := isolate(t)
	out := filepath.Join(dir, "out")

	code, stdout, stderr := runCmd(t, "demo", "-dir", out, "-preset", "print")
	if code != 0 {
		t.Fatalf("demo failed: %d %s", code, stderr)
	}
	for _, name := range []string{"vision-board.png", "vision-board.pdf"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Fatalf("missing %s: %v (stdout %q)", name, err, stdout)
		}
	}

	code, stdout, stderr = runCmd(t, "journal", "-op", "generate")
	if code != 0 {
		t.Fatalf("journal failed: %s", stderr)
	}
	if n := strings.Count(stdout, "generate"); n != 2 {
		t.Fatalf("expected 2 generate rows, got %d:\n%s", n, stdout)
	}
	if !strings.Contains(stdout, "sunrise over the mountains") {
		t.Fatalf("prompt missing from journal:\n%s", stdout)
	}

	code, stdout, _ = runCmd(t, "journal", "-stats")
	if code != 0 || !strings.Contains(stdout, "DISCARDED") || !strings.Contains(stdout, "generate") {
		t.Fatalf("stats: %d %q", code, stdout)
	}
}

func TestExportFromSnapshot(t *testing.T) {
	dir := isolate(t)
	snap := `{"items":[{"id":"a","type":"STICKER","x":10,"y":10,"width":50,"height":50,"content":"star","zIndex":2}],"selected":""}`
	path := filepath.Join(dir, "board.json")
	require(t, os.WriteFile(path, []byte(snap), 0o644))

	code, stdout, stderr := runCmd(t, "export", "-format", "svg", "-dir", dir, path)
	if code != 0 {
		t.Fatalf("export failed: %s", stderr)
	}
	data, err := os.ReadFile(strings.TrimSpace(stdout))
	require(t, err)
	if !strings.Contains(string(data), `id="a"`) {
		t.Fatalf("svg does not contain the item")
	}

	code, _, _ = runCmd(t, "export")
	if code != 2 {
		t.Fatalf("missing argument should be a usage error, got %d", code)
	}
	bad := filepath.Join(dir, "bad.json")
	require(t, os.WriteFile(bad, []byte(`[{"id":"x","type":"VIDEO"}]`), 0o644))
	if code, _, _ = runCmd(t, "export", bad); code != 1 {
		t.Fatalf("invalid kind should fail, got %d", code)
	}
}

func TestConfigCommands(t *testing.T) {
	isolate(t)
	if code, _, _ := runCmd(t, "config", "set-key", "sk-test-123456"); code != 0 {
		t.Fatalf("set-key: %d", code)
	}
	_, stdout, _ := runCmd(t, "config", "show")
	if strings.Contains(stdout, "sk-test-123456") || !strings.Contains(stdout, "3456") {
		t.Fatalf("key should be masked: %q", stdout)
	}
	if !strings.Contains(stdout, "size: 96") {
		t.Fatalf("saved config not loaded: %q", stdout)
	}
	if code, _, _ := runCmd(t, "config", "forget-key"); code != 0 {
		t.Fatalf("forget-key: %d", code)
	}
	_, stdout, _ = runCmd(t, "config", "show")
	if !strings.Contains(stdout, "(not set)") {
		t.Fatalf("key should be gone: %q", stdout)
	}
	if code, _, _ := runCmd(t, "config", "bogus"); code != 2 {
		t.Fatalf("unknown config command: %d", code)
	}
}

func TestMaskAndTruncate(t *testing.T) {
	if maskKey("abcdef") != "**cdef" || maskKey("ab") != "**" {
		t.Fatalf("maskKey")
	}
	if truncate("hello", 3) != "he…" || truncate("hi", 3) != "hi" {
		t.Fatalf("truncate")
	}
}
