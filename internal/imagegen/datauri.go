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
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"regexp"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var mimeHeader = regexp.MustCompile(`^data:(.*);base64$`)

// DataURI is a parsed base64 data URI.
type DataURI struct {
	MIME string
	// Base64 is the payload exactly as it appeared in the URI.
	Base64 string
}

// ParseDataURI splits "data:<mime>;base64,<payload>". It does not decode the
// payload.
func ParseDataURI(s string) (DataURI, error) {
	header, data, ok := strings.Cut(s, ",")
	if !ok || header == "" || data == "" {
		return DataURI{}, fmt.Errorf("%w: not a base64 data uri", ErrInvalidImageFormat)
	}
	m := mimeHeader.FindStringSubmatch(header)
	if m == nil || m[1] == "" {
		return DataURI{}, fmt.Errorf("%w: could not determine MIME type", ErrInvalidImageFormat)
	}
	return DataURI{MIME: m[1], Base64: data}, nil
}

func (d DataURI) String() string { return "data:" + d.MIME + ";base64," + d.Base64 }

// Bytes decodes the payload.
func (d DataURI) Bytes() ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(d.Base64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImageFormat, err)
	}
	return b, nil
}

// EncodeDataURI builds a data URI from raw bytes.
func EncodeDataURI(mime string, data []byte) string {
	return DataURI{MIME: mime, Base64: base64.StdEncoding.EncodeToString(data)}.String()
}

// DecodeImage decodes the payload of an image data URI.
func DecodeImage(s string) (image.Image, error) {
	d, err := ParseDataURI(s)
	if err != nil {
		return nil, err
	}
	b, err := d.Bytes()
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImageFormat, err)
	}
	return img, nil
}

// Aspect reads only the image header and returns width/height.
func Aspect(s string) (float64, error) {
	d, err := ParseDataURI(s)
	if err != nil {
		return 0, err
	}
	b, err := d.Bytes()
	if err != nil {
		return 0, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidImageFormat, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, fmt.Errorf("%w: empty image", ErrInvalidImageFormat)
	}
	return float64(cfg.Width) / float64(cfg.Height), nil
}
