/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package gesture turns abstract pointer input into item and viewport
// manipulations. Mouse and touch are adapted at the boundary into Event, so a
// single state machine serves both.
package gesture

import (
	"fmt"

	"visionboard/internal/vector"
)

// Source tells which device produced an event.
type Source int

const (
	SourceMouse Source = iota
	SourceTouch
)

func (s Source) String() string {
	if s == SourceTouch {
		return "touch"
	}
	return "mouse"
}

// Phase is the lifecycle step of a pointer sequence.
type Phase int

const (
	PhaseStart Phase = iota
	PhaseMove
	PhaseEnd
	PhaseCancel
)

func (p Phase) String() string {
	switch p {
	case PhaseStart:
		return "start"
	case PhaseMove:
		return "move"
	case PhaseEnd:
		return "end"
	case PhaseCancel:
		return "cancel"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// ParsePhase maps the wire names used by transports.
func ParsePhase(s string) (Phase, error) {
	switch s {
	case "start", "down":
		return PhaseStart, nil
	case "move":
		return PhaseMove, nil
	case "end", "up":
		return PhaseEnd, nil
	case "cancel":
		return PhaseCancel, nil
	}
	return 0, fmt.Errorf("unknown pointer phase %q", s)
}

// Button identifies the mouse button; touches always report ButtonPrimary.
type Button int

const (
	ButtonPrimary Button = iota
	ButtonMiddle
	ButtonSecondary
)

// Point is one contact in screen space.
type Point struct {
	ID  int       `json:"id"`
	Pos vector.Pt `json:"pos"`
}

// Event is a unified pointer event. Points holds the contacts that are
// down after the event is applied, except for mouse end events, which carry
// the release position.
type Event struct {
	Source Source
	Phase  Phase
	Button Button
	Points []Point
}

// Mouse adapts a mouse event.
func Mouse(phase Phase, button Button, pos vector.Pt) Event {
	return Event{Source: SourceMouse, Phase: phase, Button: button, Points: []Point{{ID: 0, Pos: pos}}}
}

// Touch adapts a touch event; points are the contacts still on the surface.
func Touch(phase Phase, points ...Point) Event {
	return Event{Source: SourceTouch, Phase: phase, Button: ButtonPrimary, Points: points}
}

// Contacts is the number of active points.
func (e Event) Contacts() int { return len(e.Points) }

// Pos is the position of the first contact, zero when there is none.
func (e Event) Pos() (vector.Pt, bool) {
	if len(e.Points) == 0 {
		return vector.Pt{}, false
	}
	return e.Points[0].Pos, true
}

// IsPrimary reports whether the event can begin a single-pointer gesture:
// primary mouse button or at least one touch. Multi-touch presses follow
// the first contact.
func (e Event) IsPrimary() bool {
	if e.Source == SourceTouch {
		return len(e.Points) >= 1
	}
	return e.Button == ButtonPrimary
}

// Pinch returns midpoint and distance of the first two contacts.
func (e Event) Pinch() (mid vector.Pt, dist float64, ok bool) {
	if e.Source != SourceTouch || len(e.Points) < 2 {
		return vector.Pt{}, 0, false
	}
	a, b := e.Points[0].Pos, e.Points[1].Pos
	return a.Mid(b), a.Dist(b), true
}
