/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the board item model. Items are plain values; the board
// owns identity and stacking order, everything here is a pure mutation.

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"visionboard/internal/vector"
)

// Kind is the fixed type of a board item.
type Kind string

const (
	KindImage   Kind = "IMAGE"
	KindText    Kind = "TEXT"
	KindSticker Kind = "STICKER"
)

const (
	// MinWidth is the smallest width an image can be resized to.
	MinWidth = 50.0
	// CanvasExtent bounds the shuffle area and the export capture, in world units.
	CanvasExtent = 5000.0
	// DefaultText is the content of a freshly added text item.
	DefaultText = "Your Goal Here"
)

var (
	ErrNotResizable   = errors.New("item kind does not support resizing")
	ErrStickerUnknown = errors.New("unknown sticker")
	ErrInvalidItem    = errors.New("invalid item")
)

// ParseKind accepts the kind names case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToUpper(strings.TrimSpace(s))); k {
	case KindImage, KindText, KindSticker:
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidItem, s)
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k == KindImage || k == KindText || k == KindSticker
}

// Item is a single element placed on the board, positioned in world space.
type Item struct {
	ID       string  `json:"id"`
	Kind     Kind    `json:"type"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation float64 `json:"rotation"` // degrees, display only
	Content  string  `json:"content"`
	ZIndex   int64   `json:"zIndex"`
}

func (it Item) Pos() vector.Pt      { return vector.Pt{X: it.X, Y: it.Y} }
func (it Item) Size() vector.Size   { return vector.Size{W: it.Width, H: it.Height} }
func (it Item) Bounds() vector.Rect { return vector.R(it.X, it.Y, it.Width, it.Height) }

// Aspect is width over height, 1 for degenerate sizes.
func (it Item) Aspect() float64 {
	return sanitizeAspect(it.Width / it.Height)
}

// DefaultSize returns the initial world size for a new item of the given kind.
// aspect is only consulted for images.
func DefaultSize(kind Kind, aspect float64) vector.Size {
	switch kind {
	case KindImage:
		return vector.Size{W: 300, H: 300 / sanitizeAspect(aspect)}
	case KindText:
		return vector.Size{W: 250, H: 50}
	default:
		return vector.Size{W: 100, H: 100}
	}
}

func sanitizeAspect(a float64) float64 {
	if a <= 0 || math.IsNaN(a) || math.IsInf(a, 0) {
		return 1
	}
	return a
}

// NewItem builds an unplaced item centred on a screen point. ID and ZIndex are
// left for the board to assign.
func NewItem(kind Kind, content string, size vector.Size, centerScreen vector.Pt, t vector.Transform) (Item, error) {
	if !kind.Valid() {
		return Item{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidItem, kind)
	}
	if kind == KindSticker {
		if _, ok := LookupSticker(content); !ok {
			return Item{}, fmt.Errorf("%w: %q", ErrStickerUnknown, content)
		}
	}
	world := t.ScreenToWorld(centerScreen).Sub(size.Half())
	it := Item{Kind: kind, X: world.X, Y: world.Y, Width: size.W, Height: size.H, Content: content}
	return it, Validate(it)
}

// Move places the item's top-left corner at pos. No clamping.
func Move(it Item, pos vector.Pt) Item {
	it.X, it.Y = pos.X, pos.Y
	return it
}

// Resize sets a new width for an image, keeping height = width/aspect.
func Resize(it Item, width, aspect float64) (Item, error) {
	if it.Kind != KindImage {
		return it, ErrNotResizable
	}
	w := math.Max(MinWidth, width)
	if math.IsNaN(width) {
		w = MinWidth
	}
	it.Width = w
	it.Height = w / sanitizeAspect(aspect)
	return it, nil
}

// SetRotation replaces the rotation as given. Non-finite values become 0.
func SetRotation(it Item, deg float64) Item {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		deg = 0
	}
	it.Rotation = deg
	return it
}

func SetContent(it Item, content string) (Item, error) {
	if it.Kind == KindSticker {
		if _, ok := LookupSticker(content); !ok {
			return it, fmt.Errorf("%w: %q", ErrStickerUnknown, content)
		}
	}
	it.Content = content
	return it, nil
}

// Validate checks the structural invariants of an item.
func Validate(it Item) error {
	if !it.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidItem, it.Kind)
	}
	if !(it.Width > 0) || !(it.Height > 0) || math.IsInf(it.Width, 0) || math.IsInf(it.Height, 0) {
		return fmt.Errorf("%w: size %vx%v must be positive", ErrInvalidItem, it.Width, it.Height)
	}
	return nil
}
