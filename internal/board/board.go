/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package board holds the live collection of items on a vision board: their
// insertion order, the z-index counter, the current selection and change
// notification for renderers.
package board

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"visionboard/internal/domain"
	"visionboard/internal/vector"
)

var (
	ErrNotFound    = errors.New("item not found")
	ErrDuplicateID = errors.New("duplicate item id")
)

// ChangeKind describes what happened to the board.
type ChangeKind string

const (
	ChangeAdded     ChangeKind = "added"
	ChangeUpdated   ChangeKind = "updated"
	ChangeDeleted   ChangeKind = "deleted"
	ChangeReordered ChangeKind = "reordered"
	ChangeSelected  ChangeKind = "selected"
	ChangeShuffled  ChangeKind = "shuffled"
)

// Change is delivered to subscribers after every mutation. ID is empty for
// board-wide changes.
type Change struct {
	Kind ChangeKind
	ID   string
}

// Listener receives board changes. It is called without the board lock held
// and may read the board.
type Listener func(Change)

// Board is safe for concurrent use.
type Board struct {
	mu       sync.RWMutex
	items    []domain.Item
	byID     map[string]int
	zCounter int64
	selected string

	subMu   sync.Mutex
	subs    map[uint64]Listener
	nextSub uint64

	rnd   *rand.Rand
	newID func() string
}

// Option configures a Board.
type Option func(*Board)

// WithRand fixes the random source used by Shuffle.
func WithRand(r *rand.Rand) Option { return func(b *Board) { b.rnd = r } }

// WithIDFunc replaces the UUID generator.
func WithIDFunc(fn func() string) Option { return func(b *Board) { b.newID = fn } }

func New(opts ...Option) *Board {
	b := &Board{
		byID:     make(map[string]int),
		zCounter: 1,
		subs:     make(map[uint64]Listener),
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		newID:    uuid.NewString,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Add inserts an item, assigning an id when it has none and always assigning
// the next z-index.
func (b *Board) Add(it domain.Item) (domain.Item, error) {
	if err := domain.Validate(it); err != nil {
		return domain.Item{}, err
	}
	b.mu.Lock()
	if it.ID == "" {
		it.ID = b.newID()
	}
	if _, dup := b.byID[it.ID]; dup {
		b.mu.Unlock()
		return domain.Item{}, fmt.Errorf("%w: %s", ErrDuplicateID, it.ID)
	}
	it.ZIndex = b.nextZ()
	b.byID[it.ID] = len(b.items)
	b.items = append(b.items, it)
	b.mu.Unlock()
	b.emit(Change{Kind: ChangeAdded, ID: it.ID})
	return it, nil
}

// Create builds an item centred on a screen point and adds it.
func (b *Board) Create(kind domain.Kind, content string, size vector.Size, centerScreen vector.Pt, t vector.Transform) (domain.Item, error) {
	it, err := domain.NewItem(kind, content, size, centerScreen, t)
	if err != nil {
		return domain.Item{}, err
	}
	return b.Add(it)
}

// Update replaces the stored item with the same id. ID, Kind and ZIndex are
// always kept from the stored item.
func (b *Board) Update(it domain.Item) error {
	b.mu.Lock()
	i, ok := b.byID[it.ID]
	if !ok {
		b.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, it.ID)
	}
	cur := b.items[i]
	it.Kind, it.ZIndex = cur.Kind, cur.ZIndex
	if err := domain.Validate(it); err != nil {
		b.mu.Unlock()
		return err
	}
	b.items[i] = it
	b.mu.Unlock()
	b.emit(Change{Kind: ChangeUpdated, ID: it.ID})
	return nil
}

// Modify applies fn to the stored item under the board lock and stores the
// result through the same rules as Update.
func (b *Board) Modify(id string, fn func(domain.Item) (domain.Item, error)) (domain.Item, error) {
	b.mu.Lock()
	i, ok := b.byID[id]
	if !ok {
		b.mu.Unlock()
		return domain.Item{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	cur := b.items[i]
	next, err := fn(cur)
	if err == nil {
		next.ID, next.Kind, next.ZIndex = cur.ID, cur.Kind, cur.ZIndex
		err = domain.Validate(next)
	}
	if err != nil {
		b.mu.Unlock()
		return cur, err
	}
	b.items[i] = next
	b.mu.Unlock()
	b.emit(Change{Kind: ChangeUpdated, ID: id})
	return next, nil
}

// Delete removes an item and clears the selection if it pointed at it.
func (b *Board) Delete(id string) error {
	b.mu.Lock()
	i, ok := b.byID[id]
	if !ok {
		b.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	b.items = append(b.items[:i], b.items[i+1:]...)
	delete(b.byID, id)
	for j := i; j < len(b.items); j++ {
		b.byID[b.items[j].ID] = j
	}
	wasSelected := b.selected == id
	if wasSelected {
		b.selected = ""
	}
	b.mu.Unlock()
	b.emit(Change{Kind: ChangeDeleted, ID: id})
	if wasSelected {
		b.emit(Change{Kind: ChangeSelected})
	}
	return nil
}

// Select marks id as the selected item; "" clears the selection.
func (b *Board) Select(id string) error {
	b.mu.Lock()
	if id != "" {
		if _, ok := b.byID[id]; !ok {
			b.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
	}
	changed := b.selected != id
	b.selected = id
	b.mu.Unlock()
	if changed {
		b.emit(Change{Kind: ChangeSelected, ID: id})
	}
	return nil
}

func (b *Board) Selected() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.selected
}

// SelectedItem returns the selected item, if any.
func (b *Board) SelectedItem() (domain.Item, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.selected == "" {
		return domain.Item{}, false
	}
	return b.items[b.byID[b.selected]], true
}

// BringToFront gives the item the next z-index and returns it.
func (b *Board) BringToFront(id string) (int64, error) {
	b.mu.Lock()
	i, ok := b.byID[id]
	if !ok {
		b.mu.Unlock()
		return 0, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	z := b.nextZ()
	b.items[i].ZIndex = z
	b.mu.Unlock()
	b.emit(Change{Kind: ChangeReordered, ID: id})
	return z, nil
}

// Shuffle scatters every item uniformly inside the canvas extent and gives it
// a random tilt in [-20, 20] degrees. Ids, sizes and z-indexes are kept.
func (b *Board) Shuffle() {
	b.mu.Lock()
	for i := range b.items {
		it := &b.items[i]
		it.X = b.rnd.Float64() * maxSpan(domain.CanvasExtent-it.Width)
		it.Y = b.rnd.Float64() * maxSpan(domain.CanvasExtent-it.Height)
		it.Rotation = b.rnd.Float64()*40 - 20
	}
	b.mu.Unlock()
	b.emit(Change{Kind: ChangeShuffled})
}

func maxSpan(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func (b *Board) Item(id string) (domain.Item, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	i, ok := b.byID[id]
	if !ok {
		return domain.Item{}, false
	}
	return b.items[i], true
}

// Items returns a copy of the items in insertion order.
func (b *Board) Items() []domain.Item {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]domain.Item, len(b.items))
	copy(out, b.items)
	return out
}

// PaintOrder returns a copy of the items sorted by ascending z-index.
func (b *Board) PaintOrder() []domain.Item {
	out := b.Items()
	sort.SliceStable(out, func(i, j int) bool { return out[i].ZIndex < out[j].ZIndex })
	return out
}

func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.items)
}

// HitTest returns the topmost item whose unrotated bounds contain the world point.
func (b *Board) HitTest(p vector.Pt) (domain.Item, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var (
		best  domain.Item
		found bool
	)
	for _, it := range b.items {
		if it.Bounds().Contains(p) && (!found || it.ZIndex > best.ZIndex) {
			best, found = it, true
		}
	}
	return best, found
}

// nextZ must be called with b.mu held.
func (b *Board) nextZ() int64 {
	b.zCounter++
	return b.zCounter
}

// Subscription is returned by Subscribe; Cancel stops delivery and is idempotent.
type Subscription struct {
	b    *Board
	id   uint64
	once sync.Once
}

func (s *Subscription) Cancel() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.b.subMu.Lock()
		delete(s.b.subs, s.id)
		s.b.subMu.Unlock()
	})
}

// Subscribe registers fn for every subsequent change.
func (b *Board) Subscribe(fn Listener) *Subscription {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	b.nextSub++
	b.subs[b.nextSub] = fn
	return &Subscription{b: b, id: b.nextSub}
}

func (b *Board) emit(c Change) {
	b.subMu.Lock()
	ids := make([]uint64, 0, len(b.subs))
	for id := range b.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	ls := make([]Listener, 0, len(ids))
	for _, id := range ids {
		ls = append(ls, b.subs[id])
	}
	b.subMu.Unlock()
	for _, l := range ls {
		l(c)
	}
}
