/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

// Text measurement and line breaking for text items, kept behind small
// interfaces so export renderers and tests can swap the font engine.

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// FontSpec describes a requested font.
type FontSpec struct {
	Family string
	SizePx float64
	Weight int // 100..900
	Italic bool
}

// Metrics are font metrics in pixels for the resolved face.
type Metrics struct {
	Ascent, Descent, LineGap float64
}

// LineHeight is ascent + descent + gap.
func (m Metrics) LineHeight() float64 { return m.Ascent + m.Descent + m.LineGap }

// Line is one laid out line.
type Line struct {
	Text  string
	Width float64
}

// TextBox is the result of laying out text into a box width.
type TextBox struct {
	Lines   []Line
	Width   float64
	Height  float64
	Metrics Metrics
}

// Provider maps FontSpec to a concrete font.Face.
type Provider interface {
	Resolve(FontSpec) (font.Face, Metrics)
}

// BasicProvider uses x/image/basicfont Face7x13 for deterministic tests. The
// requested size is ignored.
type BasicProvider struct{}

func (BasicProvider) Resolve(FontSpec) (font.Face, Metrics) {
	f := basicfont.Face7x13
	return f, metricsOf(f)
}

func metricsOf(f font.Face) Metrics {
	m := f.Metrics()
	return Metrics{
		Ascent:  float64(m.Ascent.Round()),
		Descent: float64(m.Descent.Round()),
		LineGap: float64(m.Height.Round() - m.Ascent.Round() - m.Descent.Round()),
	}
}

// Wrap breaks text on spaces and newlines so that no line exceeds maxWidth.
// A word wider than the box is split between characters, the way CSS
// break-words does. maxWidth <= 0 disables wrapping.
func Wrap(p Provider, spec FontSpec, text string, maxWidth float64) TextBox {
	if p == nil {
		p = BasicProvider{}
	}
	face, met := p.Resolve(spec)
	d := &font.Drawer{Face: face}
	box := TextBox{Metrics: met}
	add := func(s string) {
		w := advance(d, s)
		box.Lines = append(box.Lines, Line{Text: s, Width: w})
		if w > box.Width {
			box.Width = w
		}
		box.Height += met.LineHeight()
	}
	for _, para := range strings.Split(text, "\n") {
		cur := ""
		for _, word := range strings.Fields(para) {
			cand := word
			if cur != "" {
				cand = cur + " " + word
			}
			if maxWidth <= 0 || advance(d, cand) <= maxWidth {
				cur = cand
				continue
			}
			if cur != "" {
				add(cur)
			}
			cur = word
			for maxWidth > 0 && advance(d, cur) > maxWidth && utf8.RuneCountInString(cur) > 1 {
				head, tail := splitToWidth(d, cur, maxWidth)
				add(head)
				cur = tail
			}
		}
		add(cur)
	}
	return box
}

// splitToWidth returns the longest prefix (at least one rune) that fits.
func splitToWidth(d *font.Drawer, s string, maxWidth float64) (string, string) {
	cut := 0
	for i, r := range s {
		next := i + utf8.RuneLen(r)
		if cut > 0 && advance(d, s[:next]) > maxWidth {
			break
		}
		cut = next
	}
	return s[:cut], s[cut:]
}

func advance(d *font.Drawer, s string) float64 {
	return float64(d.MeasureString(s)) / 64
}

// Measure returns the width and line height of single-line text.
func Measure(p Provider, spec FontSpec, text string) (w, h float64) {
	if p == nil {
		p = BasicProvider{}
	}
	face, met := p.Resolve(spec)
	return advance(&font.Drawer{Face: face}, text), met.Ascent + met.Descent
}
