/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"

	"visionboard/internal/domain"
	"visionboard/internal/vector"
)

// ErrExportUnavailable means there is no capture capability or no target.
var ErrExportUnavailable = errors.New("export unavailable")

// Target is the live canvas being captured. The exporter neutralises its
// transform for the duration of a capture.
type Target interface {
	PaintOrder() []domain.Item
	Transform() vector.Transform
	SetTransform(vector.Transform)
}

// CaptureOptions select the captured region in target coordinates.
type CaptureOptions struct {
	Width, Height    int
	OriginX, OriginY float64
	Background       color.Color
}

// Capturer rasterises a target region.
type Capturer interface {
	Capture(ctx context.Context, target Target, opts CaptureOptions) (image.Image, error)
}

// RasterCapturer renders the target with the live transform applied, the way
// the screen shows it.
type RasterCapturer struct {
	Renderer Renderer
}

func (c RasterCapturer) Capture(ctx context.Context, target Target, opts CaptureOptions) (image.Image, error) {
	if target == nil {
		return nil, ErrExportUnavailable
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, errors.New("capture size must be positive")
	}
	img := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	bg := opts.Background
	if bg == nil {
		bg = color.Transparent
	}
	draw.Draw(img, img.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)
	view := vector.Translate(-opts.OriginX, -opts.OriginY).Mul(target.Transform().Matrix())
	if err := c.Renderer.Render(ctx, img, view, target.PaintOrder()); err != nil {
		return nil, err
	}
	return img, nil
}

// StaticTarget is a fixed list of items, for exporting outside a live session.
type StaticTarget struct {
	Items []domain.Item
	View  vector.Transform
}

func (s *StaticTarget) PaintOrder() []domain.Item {
	out := make([]domain.Item, len(s.Items))
	copy(out, s.Items)
	sortByZ(out)
	return out
}

func (s *StaticTarget) Transform() vector.Transform     { return s.View }
func (s *StaticTarget) SetTransform(t vector.Transform) { s.View = t }
