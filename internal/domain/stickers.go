/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"math"
	"sort"

	"visionboard/internal/vector"
)

// StickerBox is the side of the square coordinate space sticker artwork is drawn in.
const StickerBox = 24.0

// Sticker is a built-in vector decoration. Path is SVG path data in a 24x24
// box; Outline approximates the same shape as a closed polygon for rasterisers
// without an SVG path parser.
type Sticker struct {
	Key     string
	Path    string
	Outline []vector.Pt
}

var stickers = map[string]Sticker{
	"star": {
		Key:  "star",
		Path: "M12 17.27L18.18 21l-1.64-7.03L22 9.24l-7.19-.61L12 2 9.19 8.63 2 9.24l5.46 4.73L5.82 21z",
		Outline: []vector.Pt{
			{X: 12, Y: 17.27}, {X: 18.18, Y: 21}, {X: 16.54, Y: 13.97}, {X: 22, Y: 9.24}, {X: 14.81, Y: 8.63},
			{X: 12, Y: 2}, {X: 9.19, Y: 8.63}, {X: 2, Y: 9.24}, {X: 7.46, Y: 13.97}, {X: 5.82, Y: 21},
		},
	},
	"heart": {
		Key:     "heart",
		Path:    "M12 21.35l-1.45-1.32C5.4 15.36 2 12.28 2 8.5 2 5.42 4.42 3 7.5 3c1.74 0 3.41.81 4.5 2.09C13.09 3.81 14.76 3 16.5 3 19.58 3 22 5.42 22 8.5c0 3.78-3.4 6.86-8.55 11.54L12 21.35z",
		Outline: heartOutline(32),
	},
	"arrow": {
		Key:  "arrow",
		Path: "M12 4l1.41 1.41L7.83 11H20v2H7.83l5.58 5.59L12 20l-8-8z",
		Outline: []vector.Pt{
			{X: 12, Y: 4}, {X: 13.41, Y: 5.41}, {X: 7.83, Y: 11}, {X: 20, Y: 11}, {X: 20, Y: 13},
			{X: 7.83, Y: 13}, {X: 13.41, Y: 18.59}, {X: 12, Y: 20}, {X: 4, Y: 12},
		},
	},
	"bolt": {
		Key:  "bolt",
		Path: "M7 2v11h3v9l7-12h-4l4-8H7z",
		Outline: []vector.Pt{
			{X: 7, Y: 2}, {X: 7, Y: 13}, {X: 10, Y: 13}, {X: 10, Y: 22}, {X: 17, Y: 10}, {X: 13, Y: 10}, {X: 17, Y: 2},
		},
	},
	"idea": {
		Key:     "idea",
		Path:    "M9 21c0 .55.45 1 1 1h4c.55 0 1-.45 1-1v-1H9v1zm3-19C8.14 2 5 5.14 5 9c0 2.38 1.19 4.47 3 5.74V17c0 .55.45 1 1 1h4c.55 0 1-.45 1-1v-2.26c1.81-1.27 3-3.36 3-5.74 0-3.86-3.14-7-7-7z",
		Outline: bulbOutline(24),
	},
}

// LookupSticker returns the registered sticker for key.
func LookupSticker(key string) (Sticker, bool) {
	s, ok := stickers[key]
	return s, ok
}

// StickerKeys lists the registry keys in sorted order.
func StickerKeys() []string {
	keys := make([]string, 0, len(stickers))
	for k := range stickers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// heartOutline samples the classic parametric heart, fitted into x 2..22, y 3..21.35.
func heartOutline(n int) []vector.Pt {
	pts := make([]vector.Pt, 0, n)
	for i := 0; i < n; i++ {
		t := 2 * math.Pi * float64(i) / float64(n)
		x := 16 * math.Pow(math.Sin(t), 3)
		y := 13*math.Cos(t) - 5*math.Cos(2*t) - 2*math.Cos(3*t) - math.Cos(4*t)
		// x in [-16,16], y in [-17,~12]; flip y for screen space.
		pts = append(pts, vector.Pt{X: 12 + x*10/16, Y: 3 + (12-y)*18.35/29})
	}
	return pts
}

// bulbOutline is a circle of radius 7 around (12,9) opening into a 6 wide base down to y=22.
func bulbOutline(n int) []vector.Pt {
	const r = 7.0
	c := vector.Pt{X: 12, Y: 9}
	// the arc meets the base at x=15 and x=9, y = 9 + sqrt(49-9)
	start := math.Atan2(math.Sqrt(r*r-9), 3)
	end := math.Atan2(math.Sqrt(r*r-9), -3)
	sweep := 2*math.Pi - (end - start)
	pts := make([]vector.Pt, 0, n+4)
	for i := 0; i <= n; i++ {
		a := end + sweep*float64(i)/float64(n)
		pts = append(pts, vector.Pt{X: c.X + r*math.Cos(a), Y: c.Y + r*math.Sin(a)})
	}
	return append(pts, vector.Pt{X: 15, Y: 22}, vector.Pt{X: 9, Y: 22})
}
