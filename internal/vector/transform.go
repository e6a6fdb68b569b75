/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import "math"

// Canvas scale bounds. Every scale change goes through ClampScale.
const (
	MinScale = 0.2
	MaxScale = 3.0
)

// Transform is the canvas view state: world points are rendered at
// screen = world*Scale + Pan (translate, then scale).
type Transform struct {
	Scale float64 `json:"scale"`
	PanX  float64 `json:"x"`
	PanY  float64 `json:"y"`
}

// DefaultTransform is the initial view: scale 1, no pan.
func DefaultTransform() Transform { return Transform{Scale: 1} }

// ClampScale limits s to [MinScale, MaxScale]. NaN maps to 1.
func ClampScale(s float64) float64 {
	if math.IsNaN(s) {
		return 1
	}
	return Clamp(s, MinScale, MaxScale)
}

func (t Transform) Pan() Pt { return Pt{t.PanX, t.PanY} }

// WithPan returns t with the pan replaced.
func (t Transform) WithPan(p Pt) Transform {
	t.PanX, t.PanY = p.X, p.Y
	return t
}

// ScreenToWorld converts a screen point to world space: (p - pan) / scale.
func (t Transform) ScreenToWorld(p Pt) Pt {
	return p.Sub(t.Pan()).Div(t.scale())
}

// WorldToScreen converts a world point to screen space: p*scale + pan.
func (t Transform) WorldToScreen(p Pt) Pt {
	return p.Mul(t.scale()).Add(t.Pan())
}

// ZoomAt returns the transform with scale set to clamp(target) while the
// screen point anchor stays visually fixed. When the clamped scale equals the
// current one the pan is returned unchanged.
func (t Transform) ZoomAt(anchor Pt, target float64) Transform {
	cur := t.scale()
	next := ClampScale(target)
	k := 1 - next/cur
	pan := t.Pan().Add(anchor.Sub(t.Pan()).Mul(k))
	return Transform{Scale: next, PanX: pan.X, PanY: pan.Y}
}

// Matrix returns the world-to-screen affine transform.
func (t Transform) Matrix() Affine2D {
	return Translate(t.PanX, t.PanY).Mul(Scale(t.scale(), t.scale()))
}

// scale guards against a zero-value Transform.
func (t Transform) scale() float64 {
	if t.Scale == 0 {
		return 1
	}
	return t.Scale
}
