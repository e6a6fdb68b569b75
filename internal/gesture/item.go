/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package gesture

import (
	"errors"
	"log/slog"

	"visionboard/internal/domain"
	"visionboard/internal/vector"
)

// ItemState is the per-item gesture state.
type ItemState int

const (
	ItemIdle ItemState = iota
	Dragging
	Resizing
	EditingText
)

func (s ItemState) String() string {
	return [...]string{"idle", "dragging", "resizing", "editing"}[s]
}

// HandleSize is the side of the square resize handle in world units. The
// handle is centred on the bottom-right corner of an image.
const HandleSize = 16.0

// HandleRect returns the world-space resize handle of an item.
func HandleRect(it domain.Item) vector.Rect {
	br := it.Bounds().Max()
	return vector.R(br.X-HandleSize/2, br.Y-HandleSize/2, HandleSize, HandleSize)
}

// Store is the part of the board the item controller mutates.
type Store interface {
	Item(id string) (domain.Item, bool)
	Selected() string
	Select(id string) error
	BringToFront(id string) (int64, error)
	Modify(id string, fn func(domain.Item) (domain.Item, error)) (domain.Item, error)
}

// Deps are shared between all controllers of one session.
type Deps struct {
	Store     Store
	Window    *Window
	Arbiter   *Arbiter
	Transform func() vector.Transform
	Logger    *slog.Logger
}

// TextEdit is the inline editing surface of a text item. On entry it has
// focus and the whole content selected.
type TextEdit struct {
	Buffer   string
	Focused  bool
	SelStart int
	SelEnd   int
}

// ItemController runs the drag/resize/edit state machine of a single item.
// It is not safe for concurrent use; callers serialise input.
type ItemController struct {
	id   string
	deps Deps
	log  *slog.Logger

	state  ItemState
	att    *Attachment
	offset vector.Pt // pointer world minus item position, fixed per drag
	startX float64
	startW float64
	aspect float64
	edit   *TextEdit
}

func NewItemController(id string, deps Deps) *ItemController {
	l := deps.Logger
	if l == nil {
		l = slog.Default()
	}
	return &ItemController{id: id, deps: deps, log: l.With(slog.String("item", id))}
}

func (c *ItemController) ID() string       { return c.id }
func (c *ItemController) State() ItemState { return c.state }

// Edit returns the text edit surface while EditingText.
func (c *ItemController) Edit() *TextEdit { return c.edit }

func (c *ItemController) transform() vector.Transform {
	if c.deps.Transform == nil {
		return vector.DefaultTransform()
	}
	return c.deps.Transform()
}

// PointerDown starts a drag when e is a primary press over the item body.
// It reports whether the event was consumed; a consumed event must not start
// a viewport gesture.
func (c *ItemController) PointerDown(e Event) bool {
	if c.state != ItemIdle || e.Phase != PhaseStart || !e.IsPrimary() {
		return false
	}
	pos, _ := e.Pos()
	it, ok := c.deps.Store.Item(c.id)
	if !ok {
		return false
	}
	if !c.deps.Arbiter.Acquire(c, ActivityDrag) {
		return false
	}
	if err := c.deps.Store.Select(c.id); err != nil {
		c.deps.Arbiter.Release(c)
		return false
	}
	if _, err := c.deps.Store.BringToFront(c.id); err != nil {
		c.deps.Arbiter.Release(c)
		return false
	}
	c.offset = c.transform().ScreenToWorld(pos).Sub(it.Pos())
	c.enter(Dragging)
	return true
}

// HandleDown starts a resize when e presses the resize handle of the
// selected image.
func (c *ItemController) HandleDown(e Event) bool {
	if c.state != ItemIdle || e.Phase != PhaseStart || !e.IsPrimary() {
		return false
	}
	it, ok := c.deps.Store.Item(c.id)
	if !ok || it.Kind != domain.KindImage || c.deps.Store.Selected() != c.id {
		return false
	}
	if !c.deps.Arbiter.Acquire(c, ActivityResize) {
		return false
	}
	pos, _ := e.Pos()
	c.startX = c.transform().ScreenToWorld(pos).X
	c.startW = it.Width
	c.aspect = it.Width / it.Height
	c.enter(Resizing)
	return true
}

func (c *ItemController) enter(s ItemState) {
	c.state = s
	c.att = c.deps.Window.Attach(c.onWindow)
	c.log.Debug("gesture start", slog.String("state", s.String()))
}

// exit leaves Dragging or Resizing and releases every resource held by it.
func (c *ItemController) exit() {
	if c.state != Dragging && c.state != Resizing {
		return
	}
	c.att.Detach()
	c.att = nil
	c.deps.Arbiter.Release(c)
	c.log.Debug("gesture end", slog.String("state", c.state.String()))
	c.state = ItemIdle
}

func (c *ItemController) onWindow(e Event) {
	switch e.Phase {
	case PhaseMove:
		pos, ok := e.Pos()
		if !ok {
			return
		}
		c.move(pos)
	case PhaseEnd, PhaseCancel:
		c.exit()
	}
}

func (c *ItemController) move(screen vector.Pt) {
	world := c.transform().ScreenToWorld(screen)
	var err error
	switch c.state {
	case Dragging:
		_, err = c.deps.Store.Modify(c.id, func(it domain.Item) (domain.Item, error) {
			return domain.Move(it, world.Sub(c.offset)), nil
		})
	case Resizing:
		w := c.startW + (world.X - c.startX)
		_, err = c.deps.Store.Modify(c.id, func(it domain.Item) (domain.Item, error) {
			return domain.Resize(it, w, c.aspect)
		})
	default:
		return
	}
	if err != nil {
		c.log.Warn("gesture aborted", slog.Any("err", err))
		c.exit()
	}
}

// ErrNotEditable is returned when a double tap targets a non-text item.
var ErrNotEditable = errors.New("item is not editable text")

// DoubleTap enters EditingText for text items.
func (c *ItemController) DoubleTap() (*TextEdit, error) {
	it, ok := c.deps.Store.Item(c.id)
	if !ok {
		return nil, errors.New("item not found")
	}
	if it.Kind != domain.KindText {
		return nil, ErrNotEditable
	}
	if c.state == EditingText {
		return c.edit, nil
	}
	// A double tap ends any drag the first tap started.
	c.exit()
	n := len([]rune(it.Content))
	c.edit = &TextEdit{Buffer: it.Content, Focused: true, SelStart: 0, SelEnd: n}
	c.state = EditingText
	return c.edit, nil
}

// Input replaces the live buffer while editing.
func (c *ItemController) Input(text string) {
	if c.state != EditingText {
		return
	}
	c.edit.Buffer = text
	n := len([]rune(text))
	c.edit.SelStart, c.edit.SelEnd = n, n
}

// Blur commits the buffer as the item's content and returns to Idle.
func (c *ItemController) Blur() error {
	if c.state != EditingText {
		return nil
	}
	text := c.edit.Buffer
	c.edit = nil
	c.state = ItemIdle
	_, err := c.deps.Store.Modify(c.id, func(it domain.Item) (domain.Item, error) {
		return domain.SetContent(it, text)
	})
	return err
}

// Abort drops any gesture or edit without committing. Used when the item is
// deleted.
func (c *ItemController) Abort() {
	c.exit()
	c.edit = nil
	c.state = ItemIdle
}
