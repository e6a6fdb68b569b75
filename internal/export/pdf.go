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
	"fmt"
	"hash/fnv"
	"image/png"
	"io"

	"github.com/jung-kurt/gofpdf"

	"visionboard/internal/domain"
	"visionboard/internal/imagegen"
)

// PDF writes the board as a single page in points, one point per world unit.
// Images are embedded as PNG; text uses the built-in Helvetica so nothing
// needs embedding.
func (e *Exporter) PDF(ctx context.Context, target Target, w io.Writer) error {
	if e == nil || target == nil {
		return ErrExportUnavailable
	}
	pw, ph := e.size()
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: float64(pw), Ht: float64(ph)},
	})
	pdf.SetTitle("Vision Board", true)
	pdf.SetCreator("visionboard", true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	bg := e.Background
	pdf.SetFillColor(int(bg.R), int(bg.G), int(bg.B))
	pdf.Rect(0, 0, float64(pw), float64(ph), "F")

	st := e.Renderer.style()
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	for _, it := range target.PaintOrder() {
		if err := ctx.Err(); err != nil {
			return err
		}
		c := it.Bounds().Center()
		pdf.TransformBegin()
		// gofpdf rotates counter-clockwise
		pdf.TransformRotate(-it.Rotation, c.X, c.Y)
		switch it.Kind {
		case domain.KindImage:
			pdfImage(pdf, it)
		case domain.KindText:
			size := st.Font.SizePx * 0.75
			pdf.SetFont("Helvetica", "B", size)
			pdf.SetTextColor(int(st.Color.R), int(st.Color.G), int(st.Color.B))
			y := it.Y + st.Padding + size
			for _, line := range pdf.SplitText(it.Content, it.Width-2*st.Padding) {
				pdf.Text(it.X+st.Padding, y, tr(line))
				y += size * 1.25
			}
		case domain.KindSticker:
			if s, ok := domain.LookupSticker(it.Content); ok {
				pts := make([]gofpdf.PointType, len(s.Outline))
				for i, p := range s.Outline {
					pts[i] = gofpdf.PointType{X: it.X + p.X*it.Width/domain.StickerBox, Y: it.Y + p.Y*it.Height/domain.StickerBox}
				}
				pdf.SetFillColor(int(StickerColor.R), int(StickerColor.G), int(StickerColor.B))
				pdf.Polygon(pts, "F")
			}
		}
		pdf.TransformEnd()
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("build pdf: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// pdfImage embeds an image item, clipped to its box with cover scaling.
func pdfImage(pdf *gofpdf.Fpdf, it domain.Item) {
	src, err := imagegen.DecodeImage(it.Content)
	if err != nil {
		pdf.SetFillColor(int(brokenImgFill.R), int(brokenImgFill.G), int(brokenImgFill.B))
		pdf.Rect(it.X, it.Y, it.Width, it.Height, "F")
		return
	}
	h := fnv.New64a()
	_, _ = io.WriteString(h, it.Content)
	name := fmt.Sprintf("img-%x", h.Sum64())
	if info := pdf.GetImageInfo(name); info == nil {
		var buf bytes.Buffer
		if err := png.Encode(&buf, src); err != nil {
			return
		}
		pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: "PNG"}, &buf)
	}
	b := src.Bounds()
	sw, sh := float64(b.Dx()), float64(b.Dy())
	k := it.Width / sw
	if s := it.Height / sh; s > k {
		k = s
	}
	dw, dh := sw*k, sh*k
	pdf.ClipRect(it.X, it.Y, it.Width, it.Height, false)
	pdf.ImageOptions(name, it.X-(dw-it.Width)/2, it.Y-(dh-it.Height)/2, dw, dh, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	pdf.ClipEnd()
}
