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
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"visionboard/internal/config"
	"visionboard/internal/crash"
	"visionboard/internal/domain"
	"visionboard/internal/export"
	"visionboard/internal/server"
	"visionboard/internal/storage"
	"visionboard/internal/ui"
)

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return usageError(fmt.Sprintf("%s: %v", fs.Name(), err))
	}
	return nil
}

func (a *app) serve(ctx context.Context, cc *crash.Context, args []string) error {
	fs := newFlagSet("serve")
	addr := fs.String("addr", a.cfg.Server.Addr, "listen address")
	offline := fs.Bool("offline", false, "use placeholder images instead of the image service")
	anyOrigin := fs.Bool("allow-any-origin", false, "accept WebSocket connections from any origin")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	hub := server.NewHub(a.log.With(slog.String("component", "hub")))
	sess, err := a.newSession(ctx, *offline, hub)
	if err != nil {
		return err
	}
	if cc != nil {
		cc.State = sess
	}
	cfg := server.Config{Session: sess, Hub: hub, Logger: a.log.With(slog.String("component", "server")), AllowAnyOrigin: *anyOrigin}
	if a.jr != nil {
		cfg.Journal = a.jr
	}
	srv, err := server.New(cfg)
	if err != nil {
		return err
	}
	return srv.ListenAndServe(ctx, *addr)
}

func (a *app) demo(ctx context.Context, args []string, stdout io.Writer) error {
	fs := newFlagSet("demo")
	dir := fs.String("dir", a.cfg.Export.Dir, "output directory")
	preset := fs.String("preset", a.cfg.Export.Preset, "export preset: web or print")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	sess, err := a.newSession(ctx, true, nil)
	if err != nil {
		return err
	}
	if _, err := sess.AddText(""); err != nil {
		return err
	}
	for _, key := range []string{"star", "heart", "idea"} {
		if _, err := sess.AddSticker(key); err != nil {
			return err
		}
	}
	for _, p := range []string{"sunrise over the mountains", "a cosy reading nook"} {
		if _, err := sess.Generate(ctx, p); err != nil {
			return err
		}
	}
	sess.Shuffle()
	paths, err := sess.ExportPreset(ctx, *dir, export.PresetName(*preset))
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintln(stdout, p)
	}
	return nil
}

// loadItems reads a board snapshot as served by GET /api/board, or a bare
// item list.
func loadItems(path string) ([]domain.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []domain.Item
	if err := json.Unmarshal(data, &items); err != nil {
		var snap struct {
			Items []domain.Item `json:"items"`
		}
		if err2 := json.Unmarshal(data, &snap); err2 != nil {
			return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		}
		items = snap.Items
	}
	for _, it := range items {
		if !it.Kind.Valid() {
			return nil, fmt.Errorf("%w: item %q has kind %q", domain.ErrInvalidItem, it.ID, it.Kind)
		}
	}
	return items, nil
}

func (a *app) export(ctx context.Context, args []string, stdout io.Writer) error {
	fs := newFlagSet("export")
	dir := fs.String("dir", a.cfg.Export.Dir, "output directory")
	format := fs.String("format", "", "png, pdf or svg; overrides -preset")
	preset := fs.String("preset", a.cfg.Export.Preset, "export preset: web or print")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usageError("export requires <board.json>")
	}
	items, err := loadItems(fs.Arg(0))
	if err != nil {
		return err
	}
	exp, err := a.exporter()
	if err != nil {
		return err
	}
	opt := export.BatchOptions{Preset: export.PresetName(*preset), OutDir: *dir}
	if *format != "" {
		opt.Formats = []string{*format}
	}
	start := time.Now()
	paths, err := exp.Batch(ctx, &export.StaticTarget{Items: items}, opt)
	outcome := storage.OutcomeOK
	if err != nil {
		outcome = storage.OutcomeFailed
	}
	if jr, _ := a.openJournal(ctx, false); jr != nil {
		e := storage.Entry{Op: storage.OpExport, Outcome: outcome, Duration: time.Since(start)}
		if err != nil {
			e.Error = err.Error()
		}
		if rerr := jr.Record(ctx, e); rerr != nil {
			a.log.Warn("journal record", slog.Any("err", rerr))
		}
	}
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintln(stdout, p)
	}
	return nil
}

func (a *app) journal(ctx context.Context, args []string, stdout io.Writer) error {
	fs := newFlagSet("journal")
	op := fs.String("op", "", "filter by operation: generate, edit, export")
	outcome := fs.String("outcome", "", "filter by outcome: ok, failed, discarded")
	limit := fs.Int("limit", 20, "maximum entries")
	stats := fs.Bool("stats", false, "print counts per operation and outcome")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	jr, err := a.openJournal(ctx, true)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	defer tw.Flush()
	if *stats {
		st, err := jr.Stats(ctx)
		if err != nil {
			return err
		}
		ops := make([]string, 0, len(st))
		for o := range st {
			ops = append(ops, o)
		}
		sort.Strings(ops)
		fmt.Fprintln(tw, "OP\tOK\tFAILED\tDISCARDED")
		for _, o := range ops {
			m := st[o]
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", o, m[storage.OutcomeOK], m[storage.OutcomeFailed], m[storage.OutcomeDiscarded])
		}
		return nil
	}
	entries, err := jr.Recent(ctx, storage.Filter{Op: *op, Outcome: *outcome, Limit: *limit})
	if err != nil {
		return err
	}
	fmt.Fprintln(tw, "WHEN\tOP\tOUTCOME\tTOOK\tITEM\tPROMPT")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.At.Local().Format(time.DateTime), e.Op, e.Outcome, e.Duration.Round(time.Millisecond), e.ItemID, truncate(e.Prompt, 60))
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func (a *app) config(args []string, stdout io.Writer) error {
	sub := "show"
	if len(args) > 0 {
		sub = args[0]
	}
	switch sub {
	case "show":
		b, err := yaml.Marshal(a.cfg)
		if err != nil {
			return err
		}
		_, _ = stdout.Write(b)
		fmt.Fprintf(stdout, "# api key: %s\n", maskKey(a.apiKey))
	case "path":
		p, err := config.ConfigPath()
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, p)
	case "set-key":
		if len(args) < 2 || args[1] == "" {
			return usageError("config set-key requires <key>")
		}
		if err := config.Save(a.cfg, args[1]); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "API key stored in the system keyring.")
	case "forget-key":
		if err := config.ForgetAPIKey(); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "API key removed.")
	default:
		return usageError(fmt.Sprintf("unknown config command %q", sub))
	}
	return nil
}

func (a *app) ui(ctx context.Context, cc *crash.Context) error {
	sink := &ui.AlertSink{}
	sess, err := a.newSession(ctx, false, sink)
	if err != nil {
		return err
	}
	if cc != nil {
		cc.State = sess
	}
	return ui.Run(ctx, ui.Options{Session: sess, Alerts: sink, ExportDir: a.cfg.Export.Dir, Logger: a.log.With(slog.String("component", "ui"))})
}
