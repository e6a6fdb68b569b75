/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package ui is the optional desktop viewer. The fyne front end is compiled
// only with -tags fyne; the frame rendering and alert plumbing here are
// shared by every build.
package ui

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"sync"

	"visionboard/internal/domain"
	"visionboard/internal/editor"
	"visionboard/internal/export"
	"visionboard/internal/gesture"
	"visionboard/internal/vector"
)

// Options configures Run.
type Options struct {
	Session *editor.Session
	// Alerts must be the session's Notifier for alerts to reach the window.
	Alerts    *AlertSink
	ExportDir string
	Logger    *slog.Logger
}

var (
	selectionColor = color.RGBA{R: 59, G: 130, B: 246, A: 255}
	handleColor    = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// AlertSink forwards session alerts to whatever display is attached. Alerts
// raised before a display attaches are kept and replayed.
type AlertSink struct {
	mu      sync.Mutex
	fn      func(string)
	pending []string
}

func (a *AlertSink) Alert(msg string) {
	a.mu.Lock()
	fn := a.fn
	if fn == nil {
		a.pending = append(a.pending, msg)
	}
	a.mu.Unlock()
	if fn != nil {
		fn(msg)
	}
}

// Attach sets the display func and replays queued alerts to it.
func (a *AlertSink) Attach(fn func(string)) {
	a.mu.Lock()
	a.fn = fn
	queued := a.pending
	a.pending = nil
	a.mu.Unlock()
	for _, m := range queued {
		fn(m)
	}
}

var _ editor.Notifier = (*AlertSink)(nil)

// RenderFrame paints the board as the session currently sees it into a w x h
// image and outlines the selected item with its resize handle.
func RenderFrame(ctx context.Context, s *editor.Session, r export.Renderer, bg color.RGBA, w, h int) (*image.RGBA, error) {
	if w <= 0 || h <= 0 {
		return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)
	view := s.Transform()
	m := view.Matrix()
	if err := r.Render(ctx, dst, m, s.Items()); err != nil {
		return dst, err
	}
	if id := s.Board().Selected(); id != "" {
		if it, ok := s.Board().Item(id); ok {
			strokeRect(dst, screenRect(view, it.Bounds()), selectionColor)
			if it.Kind == domain.KindImage {
				hr := gesture.HandleRect(it)
				fillRect(dst, screenRect(view, hr), handleColor)
				strokeRect(dst, screenRect(view, hr), selectionColor)
			}
		}
	}
	return dst, nil
}

func screenRect(t vector.Transform, r vector.Rect) image.Rectangle {
	a := t.WorldToScreen(r.Min())
	b := t.WorldToScreen(r.Max())
	return image.Rect(int(a.X), int(a.Y), int(b.X+0.5), int(b.Y+0.5))
}

func fillRect(dst *image.RGBA, r image.Rectangle, c color.RGBA) {
	draw.Draw(dst, r.Intersect(dst.Bounds()), &image.Uniform{C: c}, image.Point{}, draw.Src)
}

func strokeRect(dst *image.RGBA, r image.Rectangle, c color.RGBA) {
	const w = 2
	fillRect(dst, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+w), c)
	fillRect(dst, image.Rect(r.Min.X, r.Max.Y-w, r.Max.X, r.Max.Y), c)
	fillRect(dst, image.Rect(r.Min.X, r.Min.Y, r.Min.X+w, r.Max.Y), c)
	fillRect(dst, image.Rect(r.Max.X-w, r.Min.Y, r.Max.X, r.Max.Y), c)
}

// WheelDelta converts a toolkit scroll amount (positive when scrolling up)
// into a wheel deltaY (negative zooms in).
func WheelDelta(scrollDY float32) float64 { return -float64(scrollDY) }

// MouseEvent builds a pointer event from toolkit coordinates.
func MouseEvent(phase gesture.Phase, button gesture.Button, x, y float32) gesture.Event {
	return gesture.Mouse(phase, button, vector.P(float64(x), float64(y)))
}
