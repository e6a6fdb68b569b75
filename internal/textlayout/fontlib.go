/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// FontLibrary stores parsed OpenType fonts keyed by family, weight and italic.
// It has no support for variable fonts.
type FontLibrary struct {
	mu    sync.RWMutex
	fonts map[fontKey]*opentype.Font
}

type fontKey struct {
	family string
	weight int
	italic bool
}

func NewFontLibrary() *FontLibrary { return &FontLibrary{fonts: make(map[fontKey]*opentype.Font)} }

// LoadTTF loads a font file into the library.
func (fl *FontLibrary) LoadTTF(family string, weight int, italic bool, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read font %s: %w", path, err)
	}
	return fl.LoadBytes(family, weight, italic, data)
}

// LoadBytes parses TTF/OTF data into the library.
func (fl *FontLibrary) LoadBytes(family string, weight int, italic bool, data []byte) error {
	f, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("parse font %s: %w", family, err)
	}
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.fonts == nil {
		fl.fonts = make(map[fontKey]*opentype.Font)
	}
	fl.fonts[fontKey{family: family, weight: weight, italic: italic}] = f
	return nil
}

var (
	goOnce sync.Once
	goLib  *FontLibrary
)

// GoFonts returns a shared library holding the Go font family at weights
// 400 and 700 under the family name "Go".
func GoFonts() *FontLibrary {
	goOnce.Do(func() {
		goLib = NewFontLibrary()
		_ = goLib.LoadBytes("Go", 400, false, goregular.TTF)
		_ = goLib.LoadBytes("Go", 700, false, gobold.TTF)
	})
	return goLib
}

func (fl *FontLibrary) find(spec FontSpec) *opentype.Font {
	if fl == nil {
		return nil
	}
	fl.mu.RLock()
	defer fl.mu.RUnlock()
	if f, ok := fl.fonts[fontKey{family: spec.Family, weight: spec.Weight, italic: spec.Italic}]; ok {
		return f
	}
	// nearest weight within the family
	var best *opentype.Font
	bestDiff := 1 << 30
	for k, f := range fl.fonts {
		if k.family != spec.Family {
			continue
		}
		diff := k.weight - spec.Weight
		if diff < 0 {
			diff = -diff
		}
		if diff < bestDiff {
			best, bestDiff = f, diff
		}
	}
	return best
}

// OTProvider resolves FontSpec using a FontLibrary and falls back to another
// Provider when the family is unknown.
type OTProvider struct {
	Lib      *FontLibrary
	DPI      float64 // 72 if zero, so SizePx maps 1:1 to pixels
	Fallback Provider
}

func (p OTProvider) Resolve(spec FontSpec) (font.Face, Metrics) {
	if spec.SizePx <= 0 {
		spec.SizePx = 12
	}
	dpi := p.DPI
	if dpi <= 0 {
		dpi = 72
	}
	if f := p.Lib.find(spec); f != nil {
		face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: spec.SizePx, DPI: dpi, Hinting: font.HintingFull})
		if err == nil {
			return face, metricsOf(face)
		}
	}
	fb := p.Fallback
	if fb == nil {
		fb = BasicProvider{}
	}
	return fb.Resolve(spec)
}
