/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"visionboard/internal/config"
	"visionboard/internal/editor"
	"visionboard/internal/export"
	"visionboard/internal/imagegen"
	applog "visionboard/internal/log"
	"visionboard/internal/storage"
	"visionboard/internal/telemetry"
	"visionboard/internal/vector"
)

// app holds what every subcommand shares: config, logger and lazily opened
// resources.
type app struct {
	cfg    config.AppConfig
	apiKey string
	log    *slog.Logger
	tele   *telemetry.Client
	jr     *storage.Journal
}

func loadApp(stderr io.Writer) (*app, error) {
	cfg, key, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
		Console:   stderr,
	})
	tc := telemetry.FromEnv()
	tc.OptIn = tc.OptIn || cfg.General.TelemetryOptIn
	return &app{cfg: cfg, apiKey: key, log: applog.WithComponent("cli"), tele: telemetry.SetDefault(tc)}, nil
}

func (a *app) close() {
	if a.jr != nil {
		_ = a.jr.Close()
	}
	a.tele.Close()
}

// openJournal opens the configured journal once. required decides whether a
// failure is returned or only logged.
func (a *app) openJournal(ctx context.Context, required bool) (*storage.Journal, error) {
	if a.jr != nil {
		return a.jr, nil
	}
	jr, err := storage.Open(ctx, a.cfg.Journal.Driver, a.cfg.JournalDSN())
	if err != nil {
		if required {
			return nil, err
		}
		a.log.Warn("journal disabled", slog.Any("err", err))
		return nil, nil
	}
	a.jr = jr
	return jr, nil
}

// service picks the image backend: the remote service when a key is set,
// otherwise the offline placeholder.
func (a *app) service(offline bool) imagegen.Service {
	ic := a.cfg.ImageGen
	if offline || ic.Offline || a.apiKey == "" {
		if !offline && !ic.Offline {
			a.log.Warn("no API key configured, using offline placeholder images")
		}
		return imagegen.Placeholder{}
	}
	return imagegen.NewGemini(ic.BaseURL, a.apiKey, ic.Model, ic.Timeout())
}

func (a *app) exporter() (*export.Exporter, error) {
	exp := export.NewExporter()
	if n := a.cfg.Export.Size; n > 0 {
		exp.Width, exp.Height = n, n
	}
	bg, err := export.ParseHexColor(a.cfg.Export.Background)
	if err != nil {
		return nil, fmt.Errorf("export background: %w", err)
	}
	exp.Background = bg
	exp.Log = applog.WithComponent("export")
	return exp, nil
}

// newSession wires a session with the configured service, exporter, journal
// and telemetry. n receives alerts.
func (a *app) newSession(ctx context.Context, offline bool, n editor.Notifier) (*editor.Session, error) {
	exp, err := a.exporter()
	if err != nil {
		return nil, err
	}
	opts := []editor.Option{
		editor.WithService(a.service(offline)),
		editor.WithExporter(exp),
		editor.WithTelemetry(a.tele),
		editor.WithLogger(applog.WithComponent("editor")),
		editor.WithScreen(vector.Size{W: float64(a.cfg.Server.ViewportWidth), H: float64(a.cfg.Server.ViewportHeight)}),
	}
	if n != nil {
		opts = append(opts, editor.WithNotifier(n))
	}
	jr, err := a.openJournal(ctx, false)
	if err != nil {
		return nil, err
	}
	if jr != nil {
		opts = append(opts, editor.WithJournal(jr))
	}
	return editor.New(opts...), nil
}

func maskKey(k string) string {
	if k == "" {
		return "(not set)"
	}
	if len(k) <= 4 {
		return strings.Repeat("*", len(k))
	}
	return strings.Repeat("*", len(k)-4) + k[len(k)-4:]
}
