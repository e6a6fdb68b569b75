/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor composes a board, its gesture controllers and the canvas
// viewport into one session. Front-ends feed raw pointer input, wheel
// deltas and toolbar commands into a Session and re-render on the change
// notifications it forwards.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"visionboard/internal/board"
	"visionboard/internal/domain"
	"visionboard/internal/export"
	"visionboard/internal/gesture"
	"visionboard/internal/imagegen"
	applog "visionboard/internal/log"
	"visionboard/internal/storage"
	"visionboard/internal/telemetry"
	"visionboard/internal/vector"
)

var (
	ErrBusy            = errors.New("operation already in progress")
	ErrEmptyPrompt     = errors.New("prompt is empty")
	ErrNoImageSelected = errors.New("no image selected")
	ErrNoService       = errors.New("image service not configured")
	ErrNotEditing      = errors.New("no text item is being edited")
)

// Alert messages raised through the Notifier.
const (
	AlertGenerateFailed = "Failed to generate image. Please try again."
	AlertEditFailed     = "Failed to edit image. Please try again."
	AlertExportFailed   = "Failed to export the board."
)

// Notifier surfaces user-facing failures.
type Notifier interface {
	Alert(msg string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(msg string)

func (f NotifierFunc) Alert(msg string) { f(msg) }

// Recorder keeps the journal of async operations. *storage.Journal
// implements it.
type Recorder interface {
	Record(ctx context.Context, e storage.Entry) error
}

// Option configures a Session.
type Option func(*Session)

func WithBoard(b *board.Board) Option          { return func(s *Session) { s.board = b } }
func WithService(svc imagegen.Service) Option  { return func(s *Session) { s.svc = svc } }
func WithExporter(e *export.Exporter) Option   { return func(s *Session) { s.exp = e } }
func WithNotifier(n Notifier) Option           { return func(s *Session) { s.notify = n } }
func WithJournal(r Recorder) Option            { return func(s *Session) { s.journal = r } }
func WithTelemetry(t telemetry.Emitter) Option { return func(s *Session) { s.tele = t } }
func WithLogger(l *slog.Logger) Option         { return func(s *Session) { s.log = l } }
func WithScreen(size vector.Size) Option       { return func(s *Session) { s.screen = size } }

// Session is safe for concurrent use. Input is processed in arrival order
// under one lock; the async affordances run their service calls outside it.
// Change listeners run synchronously, possibly under the input lock; they
// may read Transform, Items and Loading but must not send input.
type Session struct {
	mu     sync.Mutex
	board  *board.Board
	win    *gesture.Window
	arb    *gesture.Arbiter
	vp     *gesture.Viewport
	ctrls  map[string]*gesture.ItemController
	screen vector.Size

	svc     imagegen.Service
	exp     *export.Exporter
	notify  Notifier
	journal Recorder
	tele    telemetry.Emitter
	log     *slog.Logger

	generating Affordance
	editing    Affordance
	exporting  Affordance

	// tmu guards the transform listeners and view, the last transform the
	// viewport reported. Readers use view so they never need mu.
	tmu     sync.Mutex
	tsubs   map[int]func(vector.Transform)
	nextSub int
	view    vector.Transform
}

// New builds a session with an empty board, an identity transform and a
// 1280x800 screen unless options say otherwise.
func New(opts ...Option) *Session {
	s := &Session{
		win:        gesture.NewWindow(),
		arb:        &gesture.Arbiter{},
		ctrls:      map[string]*gesture.ItemController{},
		screen:     vector.Size{W: 1280, H: 800},
		generating: Affordance{name: storage.OpGenerate},
		editing:    Affordance{name: storage.OpEdit},
		exporting:  Affordance{name: storage.OpExport},
		tsubs:      map[int]func(vector.Transform){},
		view:       vector.DefaultTransform(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.board == nil {
		s.board = board.New()
	}
	s.log = applog.OrDefault(s.log, "editor")
	s.vp = gesture.NewViewport(gesture.ViewportDeps{
		Window:         s.win,
		Arbiter:        s.arb,
		ClearSelection: func() { _ = s.board.Select("") },
		OnChange:       s.emitTransform,
		Logger:         s.log,
	})
	return s
}

// Board exposes the underlying collection for read access and Subscribe.
func (s *Session) Board() *board.Board { return s.board }

// Transform returns the current canvas transform. It does not take the
// input lock, so change listeners may call it.
func (s *Session) Transform() vector.Transform {
	s.tmu.Lock()
	defer s.tmu.Unlock()
	return s.view
}

// SetTransform replaces the canvas transform (scale is clamped).
func (s *Session) SetTransform(t vector.Transform) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vp.SetTransform(t)
}

// SetScreen records the viewport size new items are centred in.
func (s *Session) SetScreen(size vector.Size) {
	if size.W <= 0 || size.H <= 0 {
		return
	}
	s.mu.Lock()
	s.screen = size
	s.mu.Unlock()
}

// SubscribeTransform registers fn for every transform change and returns a
// cancel func.
func (s *Session) SubscribeTransform(fn func(vector.Transform)) (cancel func()) {
	s.tmu.Lock()
	id := s.nextSub
	s.nextSub++
	s.tsubs[id] = fn
	s.tmu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.tmu.Lock()
			delete(s.tsubs, id)
			s.tmu.Unlock()
		})
	}
}

func (s *Session) emitTransform(t vector.Transform) {
	s.tmu.Lock()
	s.view = t
	ids := make([]int, 0, len(s.tsubs))
	for id := range s.tsubs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(vector.Transform), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.tsubs[id])
	}
	s.tmu.Unlock()
	for _, fn := range fns {
		fn(t)
	}
}

// GestureState reports the active exclusive gesture, if any.
func (s *Session) GestureState() gesture.Activity { return s.arb.Active() }

// ViewState reports the viewport state machine.
func (s *Session) ViewState() gesture.ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vp.State()
}

// ItemState reports the gesture state of one item.
func (s *Session) ItemState(id string) gesture.ItemState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.ctrls[id]; ok {
		return c.State()
	}
	return gesture.ItemIdle
}

func (s *Session) Loading() Loading {
	return Loading{Generate: s.generating.Loading(), Edit: s.editing.Loading(), Export: s.exporting.Loading()}
}

// ctrl returns the controller of an item, creating it on first use. Callers
// hold s.mu.
func (s *Session) ctrl(id string) *gesture.ItemController {
	c, ok := s.ctrls[id]
	if !ok {
		c = gesture.NewItemController(id, gesture.Deps{
			Store:     s.board,
			Window:    s.win,
			Arbiter:   s.arb,
			Transform: s.vp.Transform,
			Logger:    s.log,
		})
		s.ctrls[id] = c
	}
	return c
}

// Pointer feeds one raw pointer event. Presses are routed by hit-test on the
// first contact: the selected image's resize handle first, then the topmost
// item, then the background. Moves, releases and cancels go to whatever listeners the
// active gesture attached.
func (s *Session) Pointer(e gesture.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.Phase != gesture.PhaseStart {
		s.win.Dispatch(e)
		return
	}
	// A second finger while panning upgrades the pan into a pinch.
	if s.arb.HeldBy(s.vp) {
		s.vp.PointerDown(e)
		return
	}
	if s.arb.Active() != gesture.ActivityNone {
		s.win.Dispatch(e)
		return
	}
	if pos, ok := e.Pos(); ok {
		world := s.vp.Transform().ScreenToWorld(pos)
		if sel, ok := s.board.SelectedItem(); ok && sel.Kind == domain.KindImage && gesture.HandleRect(sel).Contains(world) {
			s.blurExcept(sel.ID)
			if s.ctrl(sel.ID).HandleDown(e) {
				return
			}
		}
		if it, ok := s.board.HitTest(world); ok {
			s.blurExcept(it.ID)
			c := s.ctrl(it.ID)
			if c.State() != gesture.EditingText {
				c.PointerDown(e)
			}
			return
		}
	}
	s.blurExcept("")
	s.vp.PointerDown(e)
}

// blurExcept commits every text edit except the one on id.
func (s *Session) blurExcept(id string) {
	for cid, c := range s.ctrls {
		if cid == id || c.State() != gesture.EditingText {
			continue
		}
		if err := c.Blur(); err != nil {
			s.log.Warn("commit text edit", slog.String("item", cid), slog.Any("err", err))
		}
	}
}

// Wheel zooms about pos. Legal during any gesture.
func (s *Session) Wheel(pos vector.Pt, deltaY float64) vector.Transform {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vp.Wheel(pos, deltaY)
}

// Cancel aborts every running gesture, e.g. when the front-end loses focus.
func (s *Session) Cancel() {
	s.Pointer(gesture.Event{Source: gesture.SourceMouse, Phase: gesture.PhaseCancel})
}

// DoubleTap enters text editing on the text item under the screen point.
func (s *Session) DoubleTap(pos vector.Pt) (string, gesture.TextEdit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.board.HitTest(s.vp.Transform().ScreenToWorld(pos))
	if !ok {
		return "", gesture.TextEdit{}, fmt.Errorf("%w: nothing at %v", board.ErrNotFound, pos)
	}
	s.blurExcept(it.ID)
	ed, err := s.ctrl(it.ID).DoubleTap()
	if err != nil {
		return it.ID, gesture.TextEdit{}, err
	}
	return it.ID, *ed, nil
}

// editingCtrl returns the controller in EditingText. Callers hold s.mu.
func (s *Session) editingCtrl() (*gesture.ItemController, bool) {
	for _, c := range s.ctrls {
		if c.State() == gesture.EditingText {
			return c, true
		}
	}
	return nil, false
}

// Editing returns the item being edited and its live buffer.
func (s *Session) Editing() (string, gesture.TextEdit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.editingCtrl()
	if !ok {
		return "", gesture.TextEdit{}, false
	}
	return c.ID(), *c.Edit(), true
}

// TextInput replaces the live edit buffer. Nothing is committed until Blur.
func (s *Session) TextInput(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.editingCtrl()
	if !ok {
		return ErrNotEditing
	}
	c.Input(text)
	return nil
}

// Blur commits the edit buffer as the item's content.
func (s *Session) Blur() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.editingCtrl()
	if !ok {
		return nil
	}
	return c.Blur()
}

// centre returns the screen centre new items are placed at. Callers hold s.mu.
func (s *Session) centre() vector.Pt { return vector.P(s.screen.W/2, s.screen.H/2) }

// AddImage places an image given as a data URI at the centre of the screen.
// The intrinsic aspect ratio is read from the payload; an undecodable payload
// is placed square.
func (s *Session) AddImage(dataURI string) (domain.Item, error) {
	if _, err := imagegen.ParseDataURI(dataURI); err != nil {
		return domain.Item{}, err
	}
	aspect, err := imagegen.Aspect(dataURI)
	if err != nil {
		s.log.Warn("image aspect unknown, placing square", slog.Any("err", err))
		aspect = 1
	}
	return s.add(domain.KindImage, dataURI, aspect)
}

// AddText places a text item with the default content when text is empty.
func (s *Session) AddText(text string) (domain.Item, error) {
	if strings.TrimSpace(text) == "" {
		text = domain.DefaultText
	}
	return s.add(domain.KindText, text, 1)
}

// AddSticker places the sticker registered under key.
func (s *Session) AddSticker(key string) (domain.Item, error) {
	return s.add(domain.KindSticker, key, 1)
}

// Add dispatches on kind.
func (s *Session) Add(kind domain.Kind, content string) (domain.Item, error) {
	switch kind {
	case domain.KindImage:
		return s.AddImage(content)
	case domain.KindText:
		return s.AddText(content)
	case domain.KindSticker:
		return s.AddSticker(content)
	}
	return domain.Item{}, fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidItem, kind)
}

func (s *Session) add(kind domain.Kind, content string, aspect float64) (domain.Item, error) {
	s.mu.Lock()
	it, err := s.board.Create(kind, content, domain.DefaultSize(kind, aspect), s.centre(), s.vp.Transform())
	s.mu.Unlock()
	if err != nil {
		return domain.Item{}, fmt.Errorf("add %s: %w", strings.ToLower(string(kind)), err)
	}
	s.log.Info("item added", slog.String("item", it.ID), slog.String("kind", string(kind)))
	s.event(telemetry.EventItemAdded, map[string]any{"kind": string(kind)})
	return it, nil
}

// Delete removes an item, aborting any gesture or edit on it.
func (s *Session) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.ctrls[id]; ok {
		c.Abort()
		delete(s.ctrls, id)
	}
	return s.board.Delete(id)
}

// Select marks id as selected; "" clears the selection.
func (s *Session) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.Select(id)
}

func (s *Session) BringToFront(id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.BringToFront(id)
}

// Rotate sets an item's rotation in degrees. Rotation is display only.
func (s *Session) Rotate(id string, deg float64) (domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.Modify(id, func(it domain.Item) (domain.Item, error) {
		return domain.SetRotation(it, deg), nil
	})
}

// SetContent replaces text or sticker content. Image content changes only
// through EditSelected or a new upload.
func (s *Session) SetContent(id, content string) (domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.Modify(id, func(it domain.Item) (domain.Item, error) {
		if it.Kind == domain.KindImage {
			if _, err := imagegen.ParseDataURI(content); err != nil {
				return it, err
			}
		}
		return domain.SetContent(it, content)
	})
}

// Shuffle scatters every item across the canvas.
func (s *Session) Shuffle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.board.Shuffle()
}

// Items returns the board in paint order.
func (s *Session) Items() []domain.Item { return s.board.PaintOrder() }

// CrashSummary lists the items for crash reports.
func (s *Session) CrashSummary() string {
	items := s.board.PaintOrder()
	var b strings.Builder
	fmt.Fprintf(&b, "%d items, selected=%q\n", len(items), s.board.Selected())
	for _, it := range items {
		fmt.Fprintf(&b, "  %s %s z=%d at (%.0f,%.0f) %.0fx%.0f rot=%.0f\n", it.Kind, it.ID, it.ZIndex, it.X, it.Y, it.Width, it.Height, it.Rotation)
	}
	return b.String()
}

func (s *Session) event(name string, props map[string]any) {
	if s.tele != nil {
		s.tele.Event(name, props)
	}
}

func (s *Session) alert(msg string) {
	if s.notify != nil {
		s.notify.Alert(msg)
	}
}
