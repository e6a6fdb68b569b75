/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"errors"
	"math"
	"testing"

	"visionboard/internal/vector"
)

func TestDefaultSize(t *testing.T) {
	if s := DefaultSize(KindImage, 1.5); s.W != 300 || s.H != 200 {
		t.Fatalf("image size = %+v", s)
	}
	if s := DefaultSize(KindImage, 0); s.W != 300 || s.H != 300 {
		t.Fatalf("image with bad aspect = %+v", s)
	}
	if s := DefaultSize(KindImage, math.Inf(1)); s.H != 300 {
		t.Fatalf("image with inf aspect = %+v", s)
	}
	if s := DefaultSize(KindText, 0); s.W != 250 || s.H != 50 {
		t.Fatalf("text size = %+v", s)
	}
	if s := DefaultSize(KindSticker, 0); s.W != 100 || s.H != 100 {
		t.Fatalf("sticker size = %+v", s)
	}
}

func TestNewTextItemAtViewportCentre(t *testing.T) {
	center := vector.Pt{X: 1000 / 2, Y: 800 / 2}
	it, err := NewItem(KindText, DefaultText, DefaultSize(KindText, 0), center, vector.DefaultTransform())
	if err != nil {
		t.Fatalf("NewItem: %v", err)
	}
	if it.X != 375 || it.Y != 375 || it.Width != 250 || it.Height != 50 || it.Rotation != 0 {
		t.Fatalf("unexpected item: %+v", it)
	}
	if it.Content != "Your Goal Here" {
		t.Fatalf("content = %q", it.Content)
	}
}

func TestNewItemUsesTransform(t *testing.T) {
	tr := vector.Transform{Scale: 2, PanX: 100, PanY: 50}
	it, err := NewItem(KindSticker, "star", DefaultSize(KindSticker, 0), vector.Pt{X: 500, Y: 450}, tr)
	if err != nil {
		t.Fatalf("NewItem: %v", err)
	}
	// world centre (200, 200) minus half size
	if it.X != 150 || it.Y != 150 {
		t.Fatalf("unexpected position: %+v", it)
	}
}

func TestNewItemRejectsUnknownSticker(t *testing.T) {
	_, err := NewItem(KindSticker, "unicorn", DefaultSize(KindSticker, 0), vector.Pt{}, vector.DefaultTransform())
	if !errors.Is(err, ErrStickerUnknown) {
		t.Fatalf("expected ErrStickerUnknown, got %v", err)
	}
	if _, err := NewItem(Kind("VIDEO"), "", vector.Size{W: 1, H: 1}, vector.Pt{}, vector.DefaultTransform()); !errors.Is(err, ErrInvalidItem) {
		t.Fatalf("expected ErrInvalidItem, got %v", err)
	}
}

func TestResize(t *testing.T) {
	img := Item{Kind: KindImage, Width: 300, Height: 200}
	got, err := Resize(img, 20, 1.5)
	if err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if got.Width != MinWidth || math.Abs(got.Height-MinWidth/1.5) > 1e-9 {
		t.Fatalf("resize below minimum: %+v", got)
	}
	got, _ = Resize(img, 450, 1.5)
	if got.Width != 450 || got.Height != 300 {
		t.Fatalf("resize: %+v", got)
	}
	if _, err := Resize(Item{Kind: KindText, Width: 250, Height: 50}, 400, 5); !errors.Is(err, ErrNotResizable) {
		t.Fatalf("expected ErrNotResizable, got %v", err)
	}
}

func TestMoveAndRotation(t *testing.T) {
	it := Move(Item{Kind: KindText, Width: 1, Height: 1}, vector.Pt{X: -7000, Y: 12})
	if it.X != -7000 || it.Y != 12 {
		t.Fatalf("Move should not clamp: %+v", it)
	}
	if r := SetRotation(it, 725).Rotation; r != 725 {
		t.Fatalf("rotation = %v", r)
	}
	if r := SetRotation(it, math.NaN()).Rotation; r != 0 {
		t.Fatalf("NaN rotation = %v", r)
	}
	if r := SetRotation(it, math.Inf(-1)).Rotation; r != 0 {
		t.Fatalf("-Inf rotation = %v", r)
	}
}

func TestSetContent(t *testing.T) {
	st := Item{Kind: KindSticker, Content: "star", Width: 100, Height: 100}
	if _, err := SetContent(st, "nope"); !errors.Is(err, ErrStickerUnknown) {
		t.Fatalf("expected ErrStickerUnknown, got %v", err)
	}
	got, err := SetContent(st, "heart")
	if err != nil || got.Content != "heart" {
		t.Fatalf("SetContent: %+v %v", got, err)
	}
	txt, err := SetContent(Item{Kind: KindText}, "anything goes")
	if err != nil || txt.Content != "anything goes" {
		t.Fatalf("text SetContent: %+v %v", txt, err)
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(Item{Kind: KindText, Width: 0, Height: 10}); !errors.Is(err, ErrInvalidItem) {
		t.Fatalf("zero width accepted")
	}
	if err := Validate(Item{Kind: KindImage, Width: 10, Height: math.NaN()}); !errors.Is(err, ErrInvalidItem) {
		t.Fatalf("NaN height accepted")
	}
	if err := Validate(Item{Kind: KindImage, Width: 10, Height: 10}); err != nil {
		t.Fatalf("valid item rejected: %v", err)
	}
}

func TestParseKind(t *testing.T) {
	if k, err := ParseKind(" image "); err != nil || k != KindImage {
		t.Fatalf("ParseKind: %v %v", k, err)
	}
	if _, err := ParseKind("shape"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestStickerRegistry(t *testing.T) {
	want := []string{"arrow", "bolt", "heart", "idea", "star"}
	got := StickerKeys()
	if len(got) != len(want) {
		t.Fatalf("keys = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("keys = %v, want %v", got, want)
		}
	}
	box := vector.R(0, 0, StickerBox, StickerBox)
	for _, k := range got {
		s, _ := LookupSticker(k)
		if s.Path == "" || len(s.Outline) < 3 {
			t.Fatalf("sticker %s incomplete", k)
		}
		for _, p := range s.Outline {
			if !box.Contains(p) {
				t.Fatalf("sticker %s outline point %+v outside box", k, p)
			}
		}
	}
}
