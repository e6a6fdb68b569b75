/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package imagegen

import (
	"bytes"
	"context"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Placeholder renders images locally so the board works without an API key.
// Generated images are a gradient seeded by the prompt with the prompt
// printed on top; edits scale the source down and stamp the prompt below it.
type Placeholder struct {
	Width, Height int
}

func (p Placeholder) size() (int, int) {
	w, h := p.Width, p.Height
	if w <= 0 {
		w = 512
	}
	if h <= 0 {
		h = 512
	}
	return w, h
}

func (p Placeholder) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &GenerationError{Prompt: prompt, Err: err}
	}
	w, h := p.size()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	a, b := promptColors(prompt)
	for y := 0; y < h; y++ {
		t := float64(y) / float64(h)
		c := lerp(a, b, t)
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	stamp(img, prompt)
	uri, err := encodePNG(img)
	if err != nil {
		return "", &GenerationError{Prompt: prompt, Err: err}
	}
	return uri, nil
}

func (p Placeholder) Edit(ctx context.Context, source, prompt string) (string, error) {
	if _, err := ParseDataURI(source); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", &EditError{Prompt: prompt, Err: err}
	}
	src, err := DecodeImage(source)
	if err != nil {
		return "", &EditError{Prompt: prompt, Err: err}
	}
	sb := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, sb.Dx(), sb.Dy()))
	a, _ := promptColors(prompt)
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: a}, image.Point{}, draw.Src)
	// inset the source so the tint shows as a frame
	inset := sb.Dx() / 16
	inner := image.Rect(inset, inset, sb.Dx()-inset, sb.Dy()-inset)
	if inner.Empty() {
		inner = dst.Bounds()
	}
	draw.CatmullRom.Scale(dst, inner, src, sb, draw.Over, nil)
	stamp(dst, prompt)
	uri, err := encodePNG(dst)
	if err != nil {
		return "", &EditError{Prompt: prompt, Err: err}
	}
	return uri, nil
}

func promptColors(prompt string) (color.RGBA, color.RGBA) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(prompt)))
	v := h.Sum32()
	a := color.RGBA{R: uint8(v), G: uint8(v >> 8), B: uint8(v >> 16), A: 255}
	b := color.RGBA{R: 255 - a.R/2, G: 255 - a.G/2, B: 255 - a.B/2, A: 255}
	return a, b
}

func lerp(a, b color.RGBA, t float64) color.RGBA {
	mix := func(x, y uint8) uint8 { return uint8(float64(x) + (float64(y)-float64(x))*t) }
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 255}
}

// stamp prints the prompt on a dark band at the bottom of img.
func stamp(img *image.RGBA, text string) {
	face := basicfont.Face7x13
	b := img.Bounds()
	band := image.Rect(b.Min.X, b.Max.Y-24, b.Max.X, b.Max.Y)
	draw.Draw(img, band, &image.Uniform{C: color.RGBA{A: 160}}, image.Point{}, draw.Over)
	maxChars := (b.Dx() - 16) / 7
	if maxChars <= 0 {
		return
	}
	if r := []rune(text); len(r) > maxChars {
		text = string(r[:maxChars])
	}
	d := &font.Drawer{
		Dst:  img,
		Src:  image.White,
		Face: face,
		Dot:  fixed.P(b.Min.X+8, b.Max.Y-8),
	}
	d.DrawString(text)
}

func encodePNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return EncodeDataURI("image/png", buf.Bytes()), nil
}
