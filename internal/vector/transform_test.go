/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import (
	"math"
	"math/rand"
	"testing"
)

const eps = 1e-9

func TestScreenWorldRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		tr := Transform{
			Scale: MinScale + rnd.Float64()*(MaxScale-MinScale),
			PanX:  rnd.Float64()*4000 - 2000,
			PanY:  rnd.Float64()*4000 - 2000,
		}
		p := Pt{rnd.Float64()*10000 - 5000, rnd.Float64()*10000 - 5000}
		if got := tr.ScreenToWorld(tr.WorldToScreen(p)); !got.Near(p, 1e-6) {
			t.Fatalf("round trip %d: got %+v want %+v (tr=%+v)", i, got, p, tr)
		}
	}
}

func TestZoomAtKeepsAnchorStationary(t *testing.T) {
	rnd := rand.New(rand.NewSource(11))
	for i := 0; i < 500; i++ {
		old := Transform{Scale: MinScale + rnd.Float64()*(MaxScale-MinScale), PanX: rnd.Float64()*800 - 400, PanY: rnd.Float64()*800 - 400}
		anchor := Pt{rnd.Float64() * 1000, rnd.Float64() * 800}
		next := old.ZoomAt(anchor, rnd.Float64()*4)
		world := old.ScreenToWorld(anchor)
		if got := next.WorldToScreen(world); !got.Near(anchor, 1e-6) {
			t.Fatalf("anchor drifted: got %+v want %+v", got, anchor)
		}
		if next.Scale < MinScale || next.Scale > MaxScale {
			t.Fatalf("scale out of bounds: %v", next.Scale)
		}
	}
}

func TestZoomAtClampedIsAbsorbed(t *testing.T) {
	tr := Transform{Scale: MaxScale, PanX: 12, PanY: -30}
	for i := 0; i < 10; i++ {
		tr = tr.ZoomAt(Pt{500, 400}, tr.Scale+0.5)
	}
	if tr.Scale != MaxScale || tr.PanX != 12 || tr.PanY != -30 {
		t.Fatalf("expected no drift at the bound, got %+v", tr)
	}
}

func TestWheelScenarioPanShift(t *testing.T) {
	tr := DefaultTransform()
	next := tr.ZoomAt(Pt{500, 400}, 1+0.1)
	if math.Abs(next.Scale-1.1) > eps {
		t.Fatalf("scale = %v, want 1.1", next.Scale)
	}
	// pan' = 0 + (500 - 0) * (1 - 1.1/1)
	if math.Abs(next.PanX-(-50)) > 1e-9 || math.Abs(next.PanY-(-40)) > 1e-9 {
		t.Fatalf("pan = (%v, %v), want (-50, -40)", next.PanX, next.PanY)
	}
}

func TestMatrixMatchesWorldToScreen(t *testing.T) {
	tr := Transform{Scale: 0.75, PanX: 33, PanY: -12}
	p := Pt{400, 250}
	if got, want := tr.Matrix().Apply(p), tr.WorldToScreen(p); !got.Near(want, eps) {
		t.Fatalf("Matrix().Apply = %+v, want %+v", got, want)
	}
}

func TestClampScale(t *testing.T) {
	cases := map[float64]float64{0: MinScale, 0.1: MinScale, 1: 1, 2.5: 2.5, 9: MaxScale, math.NaN(): 1}
	for in, want := range cases {
		if got := ClampScale(in); got != want {
			t.Fatalf("ClampScale(%v) = %v, want %v", in, got, want)
		}
	}
}
