/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package board

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"visionboard/internal/domain"
	"visionboard/internal/vector"
)

func seqIDs() Option {
	n := 0
	return WithIDFunc(func() string { n++; return fmt.Sprintf("item-%d", n) })
}

func addText(t *testing.T, b *Board, x, y float64) domain.Item {
	t.Helper()
	it, err := b.Add(domain.Item{Kind: domain.KindText, X: x, Y: y, Width: 250, Height: 50, Content: "t"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	return it
}

func TestZIndexStrictlyIncreases(t *testing.T) {
	b := New(seqIDs())
	first := addText(t, b, 0, 0)
	if first.ZIndex != 2 {
		t.Fatalf("first z = %d, want 2", first.ZIndex)
	}
	second := addText(t, b, 10, 10)
	z, err := b.BringToFront(first.ID)
	if err != nil {
		t.Fatalf("BringToFront: %v", err)
	}
	third := addText(t, b, 20, 20)
	if !(first.ZIndex < second.ZIndex && second.ZIndex < z && z < third.ZIndex) {
		t.Fatalf("z sequence not strictly increasing: %d %d %d %d", first.ZIndex, second.ZIndex, z, third.ZIndex)
	}
	seen := map[int64]bool{}
	for _, it := range b.Items() {
		if seen[it.ZIndex] {
			t.Fatalf("duplicate z %d", it.ZIndex)
		}
		seen[it.ZIndex] = true
	}
}

func TestAddAssignsUUIDByDefault(t *testing.T) {
	b := New()
	a := addText(t, b, 0, 0)
	c := addText(t, b, 0, 0)
	if a.ID == "" || a.ID == c.ID || len(a.ID) != 36 {
		t.Fatalf("unexpected ids %q %q", a.ID, c.ID)
	}
}

func TestAddRejectsDuplicateAndInvalid(t *testing.T) {
	b := New()
	if _, err := b.Add(domain.Item{ID: "x", Kind: domain.KindText, Width: 1, Height: 1}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := b.Add(domain.Item{ID: "x", Kind: domain.KindText, Width: 1, Height: 1}); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
	if _, err := b.Add(domain.Item{Kind: domain.KindText}); !errors.Is(err, domain.ErrInvalidItem) {
		t.Fatalf("expected ErrInvalidItem, got %v", err)
	}
}

func TestUpdateKeepsIdentityAndZ(t *testing.T) {
	b := New(seqIDs())
	it := addText(t, b, 0, 0)
	changed := it
	changed.Kind = domain.KindImage
	changed.ZIndex = 999
	changed.X = 42
	if err := b.Update(changed); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ := b.Item(it.ID)
	if got.Kind != domain.KindText || got.ZIndex != it.ZIndex || got.X != 42 {
		t.Fatalf("unexpected stored item: %+v", got)
	}
	if err := b.Update(domain.Item{ID: "missing", Kind: domain.KindText, Width: 1, Height: 1}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestModify(t *testing.T) {
	b := New(seqIDs())
	it := addText(t, b, 0, 0)
	got, err := b.Modify(it.ID, func(cur domain.Item) (domain.Item, error) {
		return domain.Move(cur, vector.Pt{X: 5, Y: 6}), nil
	})
	if err != nil || got.X != 5 || got.Y != 6 {
		t.Fatalf("Modify: %+v %v", got, err)
	}
	_, err = b.Modify(it.ID, func(cur domain.Item) (domain.Item, error) { return domain.Resize(cur, 10, 1) })
	if !errors.Is(err, domain.ErrNotResizable) {
		t.Fatalf("expected ErrNotResizable, got %v", err)
	}
	if stored, _ := b.Item(it.ID); stored.Width != 250 {
		t.Fatalf("failed Modify changed the item: %+v", stored)
	}
}

func TestDeleteClearsSelection(t *testing.T) {
	b := New(seqIDs())
	a := addText(t, b, 0, 0)
	c := addText(t, b, 0, 0)
	if err := b.Select(a.ID); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if err := b.Delete(c.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if b.Selected() != a.ID {
		t.Fatalf("deleting another item cleared selection")
	}
	if err := b.Delete(a.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if b.Selected() != "" || b.Len() != 0 {
		t.Fatalf("selection %q len %d", b.Selected(), b.Len())
	}
	if err := b.Delete(a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteKeepsInsertionOrder(t *testing.T) {
	b := New(seqIDs())
	for i := 0; i < 4; i++ {
		addText(t, b, 0, 0)
	}
	_ = b.Delete("item-2")
	items := b.Items()
	want := []string{"item-1", "item-3", "item-4"}
	for i, id := range want {
		if items[i].ID != id {
			t.Fatalf("order = %v", items)
		}
		if got, ok := b.Item(id); !ok || got.ID != id {
			t.Fatalf("index broken for %s", id)
		}
	}
}

func TestSelectUnknown(t *testing.T) {
	b := New()
	if err := b.Select("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := b.Select(""); err != nil {
		t.Fatalf("clearing selection: %v", err)
	}
	if _, ok := b.SelectedItem(); ok {
		t.Fatalf("expected no selected item")
	}
}

func TestHitTestTopmost(t *testing.T) {
	b := New(seqIDs())
	low := addText(t, b, 0, 0)
	high := addText(t, b, 100, 0)
	got, ok := b.HitTest(vector.Pt{X: 150, Y: 25})
	if !ok || got.ID != high.ID {
		t.Fatalf("expected %s, got %+v", high.ID, got)
	}
	if _, err := b.BringToFront(low.ID); err != nil {
		t.Fatal(err)
	}
	got, _ = b.HitTest(vector.Pt{X: 150, Y: 25})
	if got.ID != low.ID {
		t.Fatalf("expected promoted item on top, got %s", got.ID)
	}
	if _, ok := b.HitTest(vector.Pt{X: -1, Y: -1}); ok {
		t.Fatalf("expected miss")
	}
}

func TestPaintOrderAscendingZ(t *testing.T) {
	b := New(seqIDs())
	a := addText(t, b, 0, 0)
	addText(t, b, 0, 0)
	_, _ = b.BringToFront(a.ID)
	order := b.PaintOrder()
	if order[len(order)-1].ID != a.ID {
		t.Fatalf("promoted item not painted last")
	}
	for i := 1; i < len(order); i++ {
		if order[i-1].ZIndex >= order[i].ZIndex {
			t.Fatalf("paint order not ascending")
		}
	}
}

func TestShufflePreservesIdentity(t *testing.T) {
	b := New(seqIDs(), WithRand(rand.New(rand.NewSource(3))))
	for i := 0; i < 20; i++ {
		addText(t, b, 0, 0)
	}
	before := b.Items()
	b.Shuffle()
	after := b.Items()
	for i := range before {
		if before[i].ID != after[i].ID || before[i].ZIndex != after[i].ZIndex || before[i].Width != after[i].Width {
			t.Fatalf("shuffle changed identity: %+v -> %+v", before[i], after[i])
		}
		it := after[i]
		if it.X < 0 || it.Y < 0 || it.X+it.Width > domain.CanvasExtent || it.Y+it.Height > domain.CanvasExtent {
			t.Fatalf("item outside canvas: %+v", it)
		}
		if it.Rotation < -20 || it.Rotation > 20 {
			t.Fatalf("rotation out of range: %v", it.Rotation)
		}
	}
}

func TestSubscribeAndCancel(t *testing.T) {
	b := New(seqIDs())
	var got []Change
	sub := b.Subscribe(func(c Change) { got = append(got, c) })
	it := addText(t, b, 0, 0)
	_ = b.Select(it.ID)
	_ = b.Delete(it.ID)
	want := []ChangeKind{ChangeAdded, ChangeSelected, ChangeDeleted, ChangeSelected}
	if len(got) != len(want) {
		t.Fatalf("changes = %+v", got)
	}
	for i, k := range want {
		if got[i].Kind != k {
			t.Fatalf("change %d = %s, want %s", i, got[i].Kind, k)
		}
	}
	sub.Cancel()
	sub.Cancel()
	addText(t, b, 0, 0)
	if len(got) != len(want) {
		t.Fatalf("cancelled subscription still notified")
	}
}

func TestListenerMayReadBoard(t *testing.T) {
	b := New()
	var n int
	b.Subscribe(func(Change) { n = b.Len() })
	addText(t, b, 0, 0)
	if n != 1 {
		t.Fatalf("listener saw len %d", n)
	}
}

func TestConcurrentAdds(t *testing.T) {
	b := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				_, _ = b.Add(domain.Item{Kind: domain.KindSticker, Content: "star", Width: 100, Height: 100})
			}
		}()
	}
	wg.Wait()
	if b.Len() != 200 {
		t.Fatalf("len = %d", b.Len())
	}
	seen := map[int64]bool{}
	for _, it := range b.Items() {
		if seen[it.ZIndex] {
			t.Fatalf("duplicate z under concurrency")
		}
		seen[it.ZIndex] = true
	}
}
