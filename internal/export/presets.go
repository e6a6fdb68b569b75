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
	"fmt"
	"strings"
)

// Format is an export file format.
type Format string

const (
	FormatPNG Format = "png"
	FormatPDF Format = "pdf"
	FormatSVG Format = "svg"
)

// ErrUnknownFormat is returned for names other than png, pdf and svg.
var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat normalises and validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatPNG, FormatPDF, FormatSVG:
		return f, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownFormat, s)
}

// FileName is the download name for a format, e.g. vision-board.png.
func (f Format) FileName() string { return FileBase + "." + string(f) }

// ContentType is the MIME type served for a format.
func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatSVG:
		return "image/svg+xml"
	}
	return "image/png"
}

// PresetName represents a named export preset.
type PresetName string

const (
	PresetWeb   PresetName = "web"
	PresetPrint PresetName = "print"
)

// PresetFormats lists the formats written by a preset. Unknown presets
// export PNG only.
func PresetFormats(p PresetName) []Format {
	switch p {
	case PresetWeb:
		return []Format{FormatPNG, FormatSVG}
	case PresetPrint:
		return []Format{FormatPDF, FormatPNG}
	default:
		return []Format{FormatPNG}
	}
}

// Render produces one format in memory.
func (e *Exporter) Render(ctx context.Context, target Target, f Format) ([]byte, error) {
	switch f {
	case FormatPNG:
		return e.PNG(ctx, target)
	case FormatPDF:
		var buf bytes.Buffer
		if err := e.PDF(ctx, target, &buf); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatSVG:
		var buf bytes.Buffer
		if err := e.SVG(ctx, target, &buf); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unknown format: %s", f)
}

// BatchOptions control a multi-format export into one directory.
type BatchOptions struct {
	Preset  PresetName
	Formats []string // overrides the preset when set
	OutDir  string
}

// Batch writes every requested format as OutDir/vision-board.<ext> and
// returns the written paths.
func (e *Exporter) Batch(ctx context.Context, target Target, opt BatchOptions) ([]string, error) {
	formats := PresetFormats(opt.Preset)
	if len(opt.Formats) > 0 {
		formats = formats[:0:0]
		for _, s := range opt.Formats {
			f, err := ParseFormat(s)
			if err != nil {
				return nil, err
			}
			formats = append(formats, f)
		}
	}
	dir := opt.OutDir
	if dir == "" {
		dir = "."
	}
	var paths []string
	for _, f := range formats {
		data, err := e.Render(ctx, target, f)
		if err != nil {
			return paths, fmt.Errorf("%s: %w", f, err)
		}
		p, err := WriteFile(dir, f.FileName(), data)
		if err != nil {
			return paths, fmt.Errorf("%s: %w", f, err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}
