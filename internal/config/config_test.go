/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zalando/go-keyring"
)

func isolate(t *testing.T) string {
	t.Helper()
	keyring.MockInit()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("AppData", filepath.Join(dir, "appdata"))
	for _, env := range envByKey {
		t.Setenv(env, "")
	}
	t.Setenv(EnvAPIKey, "")
	return dir
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	isolate(t)
	cfg, key, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if key != "" {
		t.Fatalf("expected no api key, got %q", key)
	}
	if cfg.Export.Size != 5000 || cfg.Export.Background != "#1f2937" || cfg.Journal.Driver != "sqlite" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.General.DataDir == "" {
		t.Fatal("data dir should resolve to the config dir")
	}
}

func TestSaveThenLoadRoundTripsAndKeepsKeyOutOfFile(t *testing.T) {
	isolate(t)
	cfg := Defaults()
	cfg.ImageGen.Offline = true
	cfg.Server.Addr = "0.0.0.0:9000"
	cfg.Export.Preset = "print"
	if err := Save(cfg, "secret-key"); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	path, _ := ConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if string(data) == "" || strings.Contains(string(data), "secret-key") {
		t.Fatalf("api key leaked into yaml:\n%s", data)
	}
	got, key, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if key != "secret-key" {
		t.Fatalf("api key = %q", key)
	}
	if !got.ImageGen.Offline || got.Server.Addr != "0.0.0.0:9000" || got.Export.Preset != "print" {
		t.Fatalf("round trip mismatch %+v", got)
	}
	if err := ForgetAPIKey(); err != nil {
		t.Fatalf("ForgetAPIKey: %v", err)
	}
	if err := ForgetAPIKey(); err != nil {
		t.Fatalf("second ForgetAPIKey: %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv(EnvImageGenURL, "http://localhost:9999")
	t.Setenv(EnvImageGenTimeMs, "1500")
	t.Setenv(EnvOffline, "yes")
	t.Setenv(EnvJournalDriver, "pgx")
	t.Setenv(EnvLogLevel, "DEBUG")
	t.Setenv(EnvLogSource, "1")
	t.Setenv(EnvAPIKey, "env-key")

	cfg, key, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ImageGen.BaseURL != "http://localhost:9999" || cfg.ImageGen.Timeout() != 1500*time.Millisecond || !cfg.ImageGen.Offline {
		t.Fatalf("imagegen overrides not applied: %+v", cfg.ImageGen)
	}
	if cfg.Journal.Driver != "pgx" || cfg.Logging.Level != "debug" || !cfg.Logging.Source {
		t.Fatalf("overrides not applied: %+v %+v", cfg.Journal, cfg.Logging)
	}
	if key != "env-key" {
		t.Fatalf("api key = %q", key)
	}
	if env, ok := EnvOverrideFor("imagegen.offline"); !ok || env != EnvOffline {
		t.Fatalf("EnvOverrideFor = %q %v", env, ok)
	}
	if _, ok := EnvOverrideFor("export.dir"); ok {
		t.Fatal("export.dir is not overridden")
	}
}

func TestMergeKeepsDefaultsForZeroValues(t *testing.T) {
	dst := Defaults()
	src := AppConfig{Logging: LoggingConfig{Level: " WARN ", File: "/tmp/vb.log"}}
	mergeInto(&dst, &src)
	if dst.Logging.Level != "warn" || dst.Logging.File != "/tmp/vb.log" {
		t.Fatalf("logging merge: %+v", dst.Logging)
	}
	if dst.Export.Size != 5000 || dst.Server.ViewportWidth != 1280 {
		t.Fatalf("zero values clobbered defaults: %+v", dst)
	}
}

func TestJournalDSN(t *testing.T) {
	cfg := Defaults()
	cfg.General.DataDir = "/data"
	if got := cfg.JournalDSN(); got != filepath.Join("/data", "journal.sqlite") {
		t.Fatalf("JournalDSN = %q", got)
	}
	cfg.Journal.DSN = "postgres://x"
	if cfg.JournalDSN() != "postgres://x" {
		t.Fatal("explicit dsn ignored")
	}
}
