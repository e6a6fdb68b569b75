/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"visionboard/internal/board"
	"visionboard/internal/domain"
	"visionboard/internal/export"
	"visionboard/internal/storage"
	"visionboard/internal/telemetry"
	"visionboard/internal/vector"
)

// Generate asks the image service for a new image and places it at the
// screen centre. On failure the board is left untouched and an alert is
// raised.
func (s *Session) Generate(ctx context.Context, prompt string) (domain.Item, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return domain.Item{}, ErrEmptyPrompt
	}
	if s.svc == nil {
		return domain.Item{}, ErrNoService
	}
	if !s.generating.begin() {
		return domain.Item{}, ErrBusy
	}
	defer s.generating.end()

	start := time.Now()
	uri, err := s.svc.Generate(ctx, prompt)
	if err == nil {
		var it domain.Item
		if it, err = s.AddImage(uri); err == nil {
			s.record(ctx, &s.generating, prompt, it.ID, storage.OutcomeOK, start, nil)
			s.event(telemetry.EventImageGenerated, nil)
			return it, nil
		}
	}
	s.log.Error("image generation failed", slog.Any("err", err))
	s.record(ctx, &s.generating, prompt, "", storage.OutcomeFailed, start, err)
	s.alert(AlertGenerateFailed)
	return domain.Item{}, err
}

// EditSelected sends the selected image and prompt to the image service and
// replaces the image content with the result. If the item was deleted while
// the call was in flight the result is dropped without error. On success the
// selection is cleared.
func (s *Session) EditSelected(ctx context.Context, prompt string) (domain.Item, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return domain.Item{}, ErrEmptyPrompt
	}
	sel, ok := s.board.SelectedItem()
	if !ok || sel.Kind != domain.KindImage {
		return domain.Item{}, ErrNoImageSelected
	}
	if s.svc == nil {
		return domain.Item{}, ErrNoService
	}
	if !s.editing.begin() {
		return domain.Item{}, ErrBusy
	}
	defer s.editing.end()

	start := time.Now()
	uri, err := s.svc.Edit(ctx, sel.Content, prompt)
	if err != nil {
		s.log.Error("image edit failed", slog.String("item", sel.ID), slog.Any("err", err))
		s.record(ctx, &s.editing, prompt, sel.ID, storage.OutcomeFailed, start, err)
		s.alert(AlertEditFailed)
		return domain.Item{}, err
	}

	s.mu.Lock()
	it, err := s.board.Modify(sel.ID, func(it domain.Item) (domain.Item, error) {
		return domain.SetContent(it, uri)
	})
	if err == nil && s.board.Selected() == sel.ID {
		_ = s.board.Select("")
	}
	s.mu.Unlock()
	if errors.Is(err, board.ErrNotFound) {
		s.log.Info("edited item gone, result discarded", slog.String("item", sel.ID))
		s.record(ctx, &s.editing, prompt, sel.ID, storage.OutcomeDiscarded, start, nil)
		return domain.Item{}, nil
	}
	if err != nil {
		s.record(ctx, &s.editing, prompt, sel.ID, storage.OutcomeFailed, start, err)
		s.alert(AlertEditFailed)
		return domain.Item{}, err
	}
	s.record(ctx, &s.editing, prompt, sel.ID, storage.OutcomeOK, start, nil)
	s.event(telemetry.EventImageEdited, nil)
	return it, nil
}

// Export renders the board in one format under a neutral transform. The live
// view is left alone; input waits until it is done.
func (s *Session) Export(ctx context.Context, f export.Format) ([]byte, error) {
	if s.exp == nil {
		return nil, export.ErrExportUnavailable
	}
	if !s.exporting.begin() {
		return nil, ErrBusy
	}
	defer s.exporting.end()

	start := time.Now()
	s.mu.Lock()
	data, err := s.exp.Render(ctx, &sessionTarget{s: s, view: s.vp.Transform()}, f)
	s.mu.Unlock()
	if err != nil {
		s.log.Error("export failed", slog.String("format", string(f)), slog.Any("err", err))
		s.record(ctx, &s.exporting, string(f), "", storage.OutcomeFailed, start, err)
		s.alert(AlertExportFailed)
		return nil, err
	}
	s.record(ctx, &s.exporting, string(f), "", storage.OutcomeOK, start, nil)
	s.event(telemetry.EventBoardExported, map[string]any{"format": string(f), "items": s.board.Len()})
	return data, nil
}

// ExportFile renders f and writes it as dir/vision-board.<ext>.
func (s *Session) ExportFile(ctx context.Context, dir string, f export.Format) (string, error) {
	data, err := s.Export(ctx, f)
	if err != nil {
		return "", err
	}
	path, err := export.WriteFile(dir, f.FileName(), data)
	if err != nil {
		s.alert(AlertExportFailed)
		return "", fmt.Errorf("write export: %w", err)
	}
	s.log.Info("board exported", slog.String("path", path))
	return path, nil
}

// ExportPreset writes every format of a preset into dir.
func (s *Session) ExportPreset(ctx context.Context, dir string, p export.PresetName) ([]string, error) {
	var paths []string
	for _, f := range export.PresetFormats(p) {
		path, err := s.ExportFile(ctx, dir, f)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (s *Session) record(ctx context.Context, a *Affordance, prompt, itemID, outcome string, start time.Time, err error) {
	if s.journal == nil {
		return
	}
	e := storage.Entry{At: start, Op: a.Name(), Prompt: prompt, ItemID: itemID, Outcome: outcome, Duration: time.Since(start)}
	if err != nil {
		e.Error = err.Error()
	}
	// The caller's context may already be done when the service failed.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if rerr := s.journal.Record(rctx, e); rerr != nil {
		s.log.Warn("journal record failed", slog.Any("err", rerr))
	}
}

// sessionTarget exposes the session to the exporter. It is only used while
// s.mu is held. The exporter's transform changes stay local to the capture
// and never reach the viewport or its listeners.
type sessionTarget struct {
	s    *Session
	view vector.Transform
}

func (t *sessionTarget) PaintOrder() []domain.Item       { return t.s.board.PaintOrder() }
func (t *sessionTarget) Transform() vector.Transform     { return t.view }
func (t *sessionTarget) SetTransform(v vector.Transform) { t.view = v }
