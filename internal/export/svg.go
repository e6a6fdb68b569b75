/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"visionboard/internal/domain"
	"visionboard/internal/textlayout"
)

// SVG writes the board as a standalone SVG document in world units. Images
// stay embedded as their data URIs.
func (e *Exporter) SVG(ctx context.Context, target Target, w io.Writer) error {
	if e == nil || target == nil {
		return ErrExportUnavailable
	}
	pw, ph := e.size()
	bw := bufio.NewWriter(w)
	var werr error
	wf := func(format string, args ...any) {
		if werr != nil {
			return
		}
		_, werr = fmt.Fprintf(bw, format, args...)
	}
	st := e.Renderer.style()
	fonts := e.Renderer.fonts()

	wf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	wf("<svg xmlns=\"http://www.w3.org/2000/svg\" xmlns:xlink=\"http://www.w3.org/1999/xlink\" version=\"1.1\" width=\"%d\" height=\"%d\" viewBox=\"0 0 %d %d\">\n", pw, ph, pw, ph)
	wf("  <rect x=\"0\" y=\"0\" width=\"%d\" height=\"%d\" fill=\"%s\"/>\n", pw, ph, svgColor(e.Background.R, e.Background.G, e.Background.B))
	for _, it := range target.PaintOrder() {
		if err := ctx.Err(); err != nil {
			return err
		}
		c := it.Bounds().Center()
		wf("  <g id=\"%s\" transform=\"rotate(%g %g %g)\">\n", escAttr(it.ID), it.Rotation, c.X, c.Y)
		switch it.Kind {
		case domain.KindImage:
			wf("    <image x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" preserveAspectRatio=\"xMidYMid slice\" xlink:href=\"%s\"/>\n",
				it.X, it.Y, it.Width, it.Height, escAttr(it.Content))
		case domain.KindText:
			box := textlayout.Wrap(fonts, st.Font, it.Content, it.Width-2*st.Padding)
			y := it.Y + st.Padding + box.Metrics.Ascent
			for _, line := range box.Lines {
				wf("    <text x=\"%g\" y=\"%g\" font-family=\"Go, Helvetica, Arial, sans-serif\" font-weight=\"%d\" font-size=\"%g\" fill=\"%s\">%s</text>\n",
					it.X+st.Padding, y, st.Font.Weight, st.Font.SizePx, svgColor(st.Color.R, st.Color.G, st.Color.B), escText(line.Text))
				y += box.Metrics.LineHeight()
			}
		case domain.KindSticker:
			if s, ok := domain.LookupSticker(it.Content); ok {
				wf("    <path transform=\"translate(%g %g) scale(%g %g)\" fill=\"%s\" d=\"%s\"/>\n",
					it.X, it.Y, it.Width/domain.StickerBox, it.Height/domain.StickerBox,
					svgColor(StickerColor.R, StickerColor.G, StickerColor.B), s.Path)
			}
		}
		wf("  </g>\n")
	}
	wf("</svg>\n")
	if werr != nil {
		return fmt.Errorf("build svg: %w", werr)
	}
	return bw.Flush()
}

func svgColor(r, g, b uint8) string {
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

var (
	attrEscaper = strings.NewReplacer("&", "&amp;", "\"", "&quot;", "<", "&lt;", "\n", " ", "\r", "")
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
)

func escAttr(s string) string { return attrEscaper.Replace(s) }
func escText(s string) string { return textEscaper.Replace(s) }
