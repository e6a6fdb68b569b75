/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"visionboard/internal/vector"
)

const (
	// CaptureSize is the side of the square capture in pixels.
	CaptureSize = 5000
	// FileBase is the download name without extension.
	FileBase = "vision-board"
)

// Exporter captures a board and writes it out as PNG, PDF or SVG.
type Exporter struct {
	Capturer   Capturer
	Width      int
	Height     int
	Background color.RGBA
	Renderer   Renderer
	Log        *slog.Logger
}

// NewExporter uses a RasterCapturer at the full 5000x5000 resolution.
func NewExporter() *Exporter {
	return &Exporter{
		Capturer:   RasterCapturer{},
		Width:      CaptureSize,
		Height:     CaptureSize,
		Background: BoardBackground,
		Log:        slog.Default().With(slog.String("component", "export")),
	}
}

func (e *Exporter) size() (int, int) {
	w, h := e.Width, e.Height
	if w <= 0 {
		w = CaptureSize
	}
	if h <= 0 {
		h = CaptureSize
	}
	return w, h
}

func (e *Exporter) logger() *slog.Logger {
	if e.Log != nil {
		return e.Log
	}
	return slog.Default()
}

// Capture neutralises the target's pan and zoom, captures the canvas from
// the world origin and restores the transform afterwards, whatever happened.
func (e *Exporter) Capture(ctx context.Context, target Target) (img image.Image, err error) {
	if e == nil || e.Capturer == nil || target == nil {
		return nil, ErrExportUnavailable
	}
	saved := target.Transform()
	target.SetTransform(vector.DefaultTransform())
	defer target.SetTransform(saved)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("capture panicked: %v", r)
		}
	}()
	w, h := e.size()
	start := time.Now()
	img, err = e.Capturer.Capture(ctx, target, CaptureOptions{Width: w, Height: h, Background: e.Background})
	if err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}
	e.logger().Debug("captured board", slog.Int("w", w), slog.Int("h", h), slog.Duration("took", time.Since(start)))
	return img, nil
}

// PNG captures the target and encodes it.
func (e *Exporter) PNG(ctx context.Context, target Target) ([]byte, error) {
	img, err := e.Capture(ctx, target)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile writes data to dir/name through a temp file and rename, so a
// reader never sees a partial export.
func WriteFile(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure out dir: %w", err)
	}
	path := filepath.Join(dir, name)
	tmp, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("rename %s: %w", name, err)
	}
	return path, nil
}
