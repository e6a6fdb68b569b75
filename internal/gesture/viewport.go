/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package gesture

import (
	"log/slog"

	"visionboard/internal/vector"
)

// WheelSensitivity converts wheel delta to scale change.
const WheelSensitivity = 0.001

// ViewState is the board viewport gesture state.
type ViewState int

const (
	ViewIdle ViewState = iota
	Panning
	Pinching
)

func (s ViewState) String() string {
	return [...]string{"idle", "panning", "pinching"}[s]
}

// ViewportDeps wires a Viewport into a session.
type ViewportDeps struct {
	Window  *Window
	Arbiter *Arbiter
	// ClearSelection runs when a pan or pinch starts on the background.
	ClearSelection func()
	// OnChange observes every transform change.
	OnChange func(vector.Transform)
	Logger   *slog.Logger
}

// Viewport owns the canvas transform and runs the pan and pinch state
// machine. It is not safe for concurrent use.
type Viewport struct {
	deps ViewportDeps
	log  *slog.Logger

	t     vector.Transform
	state ViewState
	att   *Attachment

	offset     vector.Pt // pointer minus pan while panning
	startDist  float64
	startScale float64
}

func NewViewport(deps ViewportDeps) *Viewport {
	l := deps.Logger
	if l == nil {
		l = slog.Default()
	}
	return &Viewport{deps: deps, log: l, t: vector.DefaultTransform()}
}

func (v *Viewport) Transform() vector.Transform { return v.t }
func (v *Viewport) State() ViewState            { return v.state }

// SetTransform replaces the transform, clamping the scale.
func (v *Viewport) SetTransform(t vector.Transform) {
	t.Scale = vector.ClampScale(t.Scale)
	v.apply(t)
}

func (v *Viewport) apply(t vector.Transform) {
	if t == v.t {
		return
	}
	v.t = t
	if v.deps.OnChange != nil {
		v.deps.OnChange(t)
	}
}

// PointerDown handles a press on the empty background. Two touches start
// (or upgrade a pan into) a pinch; a primary single press starts a pan.
func (v *Viewport) PointerDown(e Event) bool {
	if e.Phase != PhaseStart {
		return false
	}
	if _, dist, ok := e.Pinch(); ok {
		if v.state == Pinching || !v.deps.Arbiter.Acquire(v, ActivityPinch) {
			return false
		}
		v.startDist = dist
		v.startScale = v.t.Scale
		if v.deps.ClearSelection != nil {
			v.deps.ClearSelection()
		}
		v.enter(Pinching)
		return true
	}
	if v.state != ViewIdle || !e.IsPrimary() {
		return false
	}
	if !v.deps.Arbiter.Acquire(v, ActivityPan) {
		return false
	}
	pos, _ := e.Pos()
	v.offset = pos.Sub(v.t.Pan())
	if v.deps.ClearSelection != nil {
		v.deps.ClearSelection()
	}
	v.enter(Panning)
	return true
}

func (v *Viewport) enter(s ViewState) {
	if v.att == nil {
		v.att = v.deps.Window.Attach(v.onWindow)
	}
	v.state = s
	v.log.Debug("viewport gesture", slog.String("state", s.String()))
}

func (v *Viewport) exit() {
	if v.state == ViewIdle {
		return
	}
	v.att.Detach()
	v.att = nil
	v.deps.Arbiter.Release(v)
	v.state = ViewIdle
}

func (v *Viewport) onWindow(e Event) {
	switch e.Phase {
	case PhaseMove:
		v.move(e)
	case PhaseEnd:
		if e.Source == SourceMouse || e.Contacts() == 0 {
			v.exit()
		}
	case PhaseCancel:
		v.exit()
	}
}

func (v *Viewport) move(e Event) {
	switch v.state {
	case Panning:
		pos, ok := e.Pos()
		if !ok {
			return
		}
		v.apply(v.t.WithPan(pos.Sub(v.offset)))
	case Pinching:
		mid, dist, ok := e.Pinch()
		if !ok {
			return
		}
		ratio := 1.0
		if v.startDist > 0 {
			ratio = dist / v.startDist
		}
		v.apply(v.t.ZoomAt(mid, v.startScale*ratio))
	}
}

// Wheel zooms about the cursor. It is legal in every state and does not
// change the gesture state.
func (v *Viewport) Wheel(pos vector.Pt, deltaY float64) vector.Transform {
	v.apply(v.t.ZoomAt(pos, v.t.Scale-deltaY*WheelSensitivity))
	return v.t
}

// Abort ends any active gesture.
func (v *Viewport) Abort() { v.exit() }
