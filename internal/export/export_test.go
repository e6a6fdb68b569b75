/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"visionboard/internal/domain"
	"visionboard/internal/imagegen"
	"visionboard/internal/vector"
)

func smallExporter() *Exporter {
	e := NewExporter()
	e.Width, e.Height = 200, 200
	return e
}

func redPNG(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return imagegen.EncodeDataURI("image/png", buf.Bytes())
}

func sampleTarget(t *testing.T) *StaticTarget {
	return &StaticTarget{
		View: vector.Transform{Scale: 2.5, PanX: -300, PanY: 120},
		Items: []domain.Item{
			{ID: "img", Kind: domain.KindImage, X: 10, Y: 10, Width: 80, Height: 40, Content: redPNG(t, 20, 10), ZIndex: 2},
			{ID: "txt", Kind: domain.KindText, X: 100, Y: 100, Width: 300, Height: 50, Content: "Run & <jump>", ZIndex: 3},
			{ID: "st", Kind: domain.KindSticker, X: 120, Y: 10, Width: 60, Height: 60, Content: "star", Rotation: 15, ZIndex: 4},
		},
	}
}

func TestCaptureNeutralisesAndRestoresTransform(t *testing.T) {
	target := sampleTarget(t)
	live := target.View
	var seen vector.Transform
	e := smallExporter()
	e.Capturer = capturerFunc(func(ctx context.Context, tg Target, opts CaptureOptions) (image.Image, error) {
		seen = tg.Transform()
		if opts.Width != 200 || opts.Height != 200 || opts.OriginX != 0 || opts.OriginY != 0 {
			t.Errorf("unexpected options %+v", opts)
		}
		return RasterCapturer{}.Capture(ctx, tg, opts)
	})
	img, err := e.Capture(context.Background(), target)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if seen != vector.DefaultTransform() {
		t.Fatalf("capture saw transform %+v", seen)
	}
	if target.View != live {
		t.Fatalf("transform not restored: %+v", target.View)
	}
	// image item fills (10,10)-(90,50) in world space
	if c := color.RGBAModel.Convert(img.At(50, 30)).(color.RGBA); c.R < 200 || c.G > 50 {
		t.Fatalf("expected red image pixel, got %+v", c)
	}
	if c := color.RGBAModel.Convert(img.At(5, 195)).(color.RGBA); c != BoardBackground {
		t.Fatalf("expected background, got %+v", c)
	}
	if c := color.RGBAModel.Convert(img.At(150, 40)).(color.RGBA); c.R < 200 || c.G < 150 || c.B > 100 {
		t.Fatalf("expected sticker yellow at centre, got %+v", c)
	}
}

type capturerFunc func(context.Context, Target, CaptureOptions) (image.Image, error)

func (f capturerFunc) Capture(ctx context.Context, t Target, o CaptureOptions) (image.Image, error) {
	return f(ctx, t, o)
}

func TestCaptureFailureStillRestores(t *testing.T) {
	target := sampleTarget(t)
	live := target.View
	e := smallExporter()
	boom := errors.New("boom")
	e.Capturer = capturerFunc(func(context.Context, Target, CaptureOptions) (image.Image, error) { return nil, boom })
	if _, err := e.Capture(context.Background(), target); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if target.View != live {
		t.Fatalf("transform not restored after failure")
	}
	e.Capturer = capturerFunc(func(context.Context, Target, CaptureOptions) (image.Image, error) { panic("renderer bug") })
	if _, err := e.Capture(context.Background(), target); err == nil {
		t.Fatalf("expected error from panicking capturer")
	}
	if target.View != live {
		t.Fatalf("transform not restored after panic")
	}
}

func TestExportUnavailable(t *testing.T) {
	e := smallExporter()
	e.Capturer = nil
	if _, err := e.PNG(context.Background(), sampleTarget(t)); !errors.Is(err, ErrExportUnavailable) {
		t.Fatalf("expected ErrExportUnavailable, got %v", err)
	}
	if _, err := smallExporter().PNG(context.Background(), nil); !errors.Is(err, ErrExportUnavailable) {
		t.Fatalf("expected ErrExportUnavailable for nil target, got %v", err)
	}
	var nilExp *Exporter
	if err := nilExp.PDF(context.Background(), sampleTarget(t), &bytes.Buffer{}); !errors.Is(err, ErrExportUnavailable) {
		t.Fatalf("expected ErrExportUnavailable, got %v", err)
	}
}

func TestPNGAndWriteFile(t *testing.T) {
	data, err := smallExporter().PNG(context.Background(), sampleTarget(t))
	if err != nil {
		t.Fatalf("PNG: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width != 200 || cfg.Height != 200 {
		t.Fatalf("decoded %+v %v", cfg, err)
	}
	dir := filepath.Join(t.TempDir(), "out")
	p, err := WriteFile(dir, FormatPNG.FileName(), data)
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if filepath.Base(p) != "vision-board.png" {
		t.Fatalf("path = %s", p)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestPDF(t *testing.T) {
	var buf bytes.Buffer
	if err := smallExporter().PDF(context.Background(), sampleTarget(t), &buf); err != nil {
		t.Fatalf("PDF: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("not a pdf")
	}
}

func TestSVG(t *testing.T) {
	var buf bytes.Buffer
	if err := smallExporter().SVG(context.Background(), sampleTarget(t), &buf); err != nil {
		t.Fatalf("SVG: %v", err)
	}
	s := buf.String()
	for _, want := range []string{"<svg", `preserveAspectRatio="xMidYMid slice"`, "Run &amp; &lt;jump&gt;", `rotate(15 150 40)`, "M12 17.27L18.18 21"} {
		if !strings.Contains(s, want) {
			t.Fatalf("svg missing %q", want)
		}
	}
	if strings.Index(s, `id="img"`) > strings.Index(s, `id="st"`) {
		t.Fatalf("svg not in paint order")
	}
}

func TestBatchPresets(t *testing.T) {
	dir := t.TempDir()
	paths, err := smallExporter().Batch(context.Background(), sampleTarget(t), BatchOptions{Preset: PresetPrint, OutDir: dir})
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if len(paths) != 2 || filepath.Base(paths[0]) != "vision-board.pdf" || filepath.Base(paths[1]) != "vision-board.png" {
		t.Fatalf("paths = %v", paths)
	}
	if _, err := smallExporter().Batch(context.Background(), sampleTarget(t), BatchOptions{Formats: []string{"gif"}, OutDir: dir}); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected unknown format error")
	}
	paths, err = smallExporter().Batch(context.Background(), sampleTarget(t), BatchOptions{Formats: []string{" SVG "}, OutDir: dir})
	if err != nil || len(paths) != 1 || filepath.Ext(paths[0]) != ".svg" {
		t.Fatalf("override formats: %v %v", paths, err)
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("PDF")
	if err != nil || f != FormatPDF || f.ContentType() != "application/pdf" {
		t.Fatalf("ParseFormat: %v %v", f, err)
	}
}

func TestCaptureHonoursLiveTransform(t *testing.T) {
	// Without neutralisation a capture reflects pan and zoom.
	target := &StaticTarget{
		View:  vector.Transform{Scale: 2, PanX: 50, PanY: 0},
		Items: []domain.Item{{ID: "a", Kind: domain.KindSticker, X: 0, Y: 0, Width: 24, Height: 24, Content: "bolt", ZIndex: 2}},
	}
	img, err := RasterCapturer{}.Capture(context.Background(), target, CaptureOptions{Width: 120, Height: 60, Background: color.Black})
	if err != nil {
		t.Fatal(err)
	}
	// bolt covers world (8,5); on screen that is (66,10)
	if c := color.RGBAModel.Convert(img.At(66, 10)).(color.RGBA); c.R < 200 {
		t.Fatalf("expected sticker at transformed position, got %+v", c)
	}
	if c := color.RGBAModel.Convert(img.At(16, 10)).(color.RGBA); c.R != 0 {
		t.Fatalf("expected background at untransformed position, got %+v", c)
	}
}

func TestUndecodableImageDrawsPlaceholder(t *testing.T) {
	target := &StaticTarget{
		View:  vector.DefaultTransform(),
		Items: []domain.Item{{ID: "bad", Kind: domain.KindImage, X: 10, Y: 10, Width: 40, Height: 20, Content: "data:image/png;base64,AAAA", ZIndex: 1}},
	}
	img, err := RasterCapturer{}.Capture(context.Background(), target, CaptureOptions{Width: 60, Height: 40, Background: color.White})
	if err != nil {
		t.Fatal(err)
	}
	if c := color.RGBAModel.Convert(img.At(30, 20)).(color.RGBA); c != brokenImgFill {
		t.Fatalf("expected placeholder fill inside the item, got %+v", c)
	}
	if c := color.RGBAModel.Convert(img.At(2, 2)).(color.RGBA); c.R != 0xff || c.G != 0xff {
		t.Fatalf("expected background outside the item, got %+v", c)
	}
}

func TestParseHexColor(t *testing.T) {
	cases := map[string]color.RGBA{
		"":        BoardBackground,
		"#1f2937": BoardBackground,
		"#fff":    {R: 0xff, G: 0xff, B: 0xff, A: 0xff},
		"00ff00":  {G: 0xff, A: 0xff},
	}
	for in, want := range cases {
		got, err := ParseHexColor(in)
		if err != nil || got != want {
			t.Fatalf("ParseHexColor(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	for _, bad := range []string{"#12", "#zzzzzz", "1234567"} {
		if _, err := ParseHexColor(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
