/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import "image/color"

// TextStyle is the rendering style of a text item: font, inner padding and
// fill colour.
type TextStyle struct {
	Name    string
	Font    FontSpec
	Padding float64
	Color   color.RGBA
}

var builtinStyles = map[string]TextStyle{
	"board": {
		Name:    "board",
		Font:    FontSpec{Family: "Go", SizePx: 24, Weight: 700},
		Padding: 8,
		Color:   color.RGBA{R: 255, G: 255, B: 255, A: 255},
	},
	"caption": {
		Name:    "caption",
		Font:    FontSpec{Family: "Go", SizePx: 14, Weight: 400},
		Padding: 4,
		Color:   color.RGBA{R: 229, G: 231, B: 235, A: 255},
	},
}

// DefaultStyle is the style text items are drawn with.
func DefaultStyle() TextStyle { return builtinStyles["board"] }

// GetStyle returns a builtin style by name.
func GetStyle(name string) (TextStyle, bool) { s, ok := builtinStyles[name]; return s, ok }

// ListStyles lists the builtin style names in stable order.
func ListStyles() []string { return []string{"board", "caption"} }
