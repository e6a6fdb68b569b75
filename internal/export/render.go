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
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
	rast "golang.org/x/image/vector"

	"visionboard/internal/domain"
	"visionboard/internal/imagegen"
	"visionboard/internal/textlayout"
	"visionboard/internal/vector"
)

var (
	// BoardBackground is the canvas colour (#1f2937).
	BoardBackground = color.RGBA{R: 0x1f, G: 0x29, B: 0x37, A: 0xff}
	// StickerColor is the fill of sticker artwork (#facc15).
	StickerColor  = color.RGBA{R: 0xfa, G: 0xcc, B: 0x15, A: 0xff}
	brokenImgFill = color.RGBA{R: 0x37, G: 0x41, B: 0x51, A: 0xff}
)

// ParseHexColor reads #rgb or #rrggbb. An empty string yields BoardBackground.
func ParseHexColor(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if s == "" {
		return BoardBackground, nil
	}
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// Renderer draws items onto an RGBA canvas. The zero value uses the Go fonts
// and the default text style.
type Renderer struct {
	Fonts textlayout.Provider
	Style *textlayout.TextStyle
}

func (r Renderer) fonts() textlayout.Provider {
	if r.Fonts != nil {
		return r.Fonts
	}
	return textlayout.OTProvider{Lib: textlayout.GoFonts()}
}

func (r Renderer) style() textlayout.TextStyle {
	if r.Style != nil {
		return *r.Style
	}
	return textlayout.DefaultStyle()
}

// Render paints items in the given order. view maps world to canvas pixels.
func (r Renderer) Render(ctx context.Context, dst *image.RGBA, view vector.Affine2D, items []domain.Item) error {
	images := map[string]image.Image{}
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		m := view.Mul(vector.RotateAbout(it.Rotation, it.Bounds().Center()))
		switch it.Kind {
		case domain.KindImage:
			src, ok := images[it.Content]
			if !ok {
				var err error
				src, err = imagegen.DecodeImage(it.Content)
				if err != nil {
					src = nil
				}
				images[it.Content] = src
			}
			if src == nil {
				c := it.Bounds().Corners()
				fillPolygon(dst, transformAll(m, c[:]), brokenImgFill)
				continue
			}
			drawCover(dst, m, it, src)
		case domain.KindText:
			r.drawText(dst, m, it)
		case domain.KindSticker:
			st, ok := domain.LookupSticker(it.Content)
			if !ok {
				continue
			}
			pts := make([]vector.Pt, len(st.Outline))
			for i, p := range st.Outline {
				pts[i] = vector.Pt{X: it.X + p.X*it.Width/domain.StickerBox, Y: it.Y + p.Y*it.Height/domain.StickerBox}
			}
			fillPolygon(dst, transformAll(m, pts), StickerColor)
		}
	}
	return nil
}

// drawCover scales src to cover the item box, crops the overflow evenly and
// blits it through m.
func drawCover(dst *image.RGBA, m vector.Affine2D, it domain.Item, src image.Image) {
	sb := src.Bounds()
	sw, sh := float64(sb.Dx()), float64(sb.Dy())
	if sw == 0 || sh == 0 {
		return
	}
	k := math.Max(it.Width/sw, it.Height/sh)
	cw, ch := it.Width/k, it.Height/k
	crop := image.Rect(
		sb.Min.X+int(math.Floor((sw-cw)/2)), sb.Min.Y+int(math.Floor((sh-ch)/2)),
		sb.Min.X+int(math.Ceil((sw+cw)/2)), sb.Min.Y+int(math.Ceil((sh+ch)/2)),
	).Intersect(sb)
	// source pixel s maps to world it.Pos + (s - off)*k, off being the
	// unrounded top-left of the centred crop
	offX := float64(sb.Min.X) + (sw-cw)/2
	offY := float64(sb.Min.Y) + (sh-ch)/2
	local := vector.Translate(it.X-offX*k, it.Y-offY*k).Mul(vector.Scale(k, k))
	draw.BiLinear.Transform(dst, aff3(m.Mul(local)), src, crop, draw.Over, nil)
}

func (r Renderer) drawText(dst *image.RGBA, m vector.Affine2D, it domain.Item) {
	w, h := int(math.Ceil(it.Width)), int(math.Ceil(it.Height))
	if w <= 0 || h <= 0 {
		return
	}
	st := r.style()
	p := r.fonts()
	box := textlayout.Wrap(p, st.Font, it.Content, it.Width-2*st.Padding)
	face, met := p.Resolve(st.Font)
	tile := image.NewRGBA(image.Rect(0, 0, w, h))
	d := &font.Drawer{Dst: tile, Src: image.NewUniform(st.Color), Face: face}
	y := st.Padding + met.Ascent
	for _, line := range box.Lines {
		d.Dot = fixed.Point26_6{X: fixed.Int26_6(st.Padding * 64), Y: fixed.Int26_6(y * 64)}
		d.DrawString(line.Text)
		y += met.LineHeight()
	}
	local := vector.Translate(it.X, it.Y)
	draw.BiLinear.Transform(dst, aff3(m.Mul(local)), tile, tile.Bounds(), draw.Over, nil)
}

func transformAll(m vector.Affine2D, pts []vector.Pt) []vector.Pt {
	out := make([]vector.Pt, len(pts))
	for i, p := range pts {
		out[i] = m.Apply(p)
	}
	return out
}

// fillPolygon rasterises a closed polygon, clipped to its bounding box so a
// large canvas does not cost a canvas-sized coverage buffer per shape.
func fillPolygon(dst *image.RGBA, pts []vector.Pt, col color.Color) {
	if len(pts) < 3 {
		return
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		minX, minY = math.Min(minX, p.X), math.Min(minY, p.Y)
		maxX, maxY = math.Max(maxX, p.X), math.Max(maxY, p.Y)
	}
	bb := image.Rect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX)), int(math.Ceil(maxY))).Intersect(dst.Bounds())
	if bb.Empty() {
		return
	}
	z := rast.NewRasterizer(bb.Dx(), bb.Dy())
	z.DrawOp = draw.Over
	ox, oy := float64(bb.Min.X), float64(bb.Min.Y)
	z.MoveTo(float32(pts[0].X-ox), float32(pts[0].Y-oy))
	for _, p := range pts[1:] {
		z.LineTo(float32(p.X-ox), float32(p.Y-oy))
	}
	z.ClosePath()
	z.Draw(dst, bb, image.NewUniform(col), image.Point{})
}

// aff3 converts to the row-major layout used by x/image/draw.
func aff3(m vector.Affine2D) f64.Aff3 {
	return f64.Aff3{m.A, m.C, m.E, m.B, m.D, m.F}
}

func sortByZ(items []domain.Item) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].ZIndex < items[j].ZIndex })
}
