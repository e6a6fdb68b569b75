/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package imagegen talks to the generative-image service that creates new
// board images from prompts and edits existing ones.
package imagegen

import (
	"context"
	"errors"
	"fmt"
)

// Service produces images as data URIs. Calls are network-bound and never
// retried here.
type Service interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Edit(ctx context.Context, sourceDataURI, prompt string) (string, error)
}

var (
	// ErrInvalidImageFormat is returned for data URIs without a MIME type or payload.
	ErrInvalidImageFormat = errors.New("invalid image format")
	// ErrNoImage means the service answered without an image payload.
	ErrNoImage = errors.New("no image in response")
)

// GenerationError wraps any failure of Generate.
type GenerationError struct {
	Prompt string
	Err    error
}

func (e *GenerationError) Error() string { return fmt.Sprintf("failed to generate image: %v", e.Err) }
func (e *GenerationError) Unwrap() error { return e.Err }

// EditError wraps any failure of Edit after the source was parsed.
type EditError struct {
	Prompt string
	Err    error
}

func (e *EditError) Error() string { return fmt.Sprintf("failed to edit image: %v", e.Err) }
func (e *EditError) Unwrap() error { return e.Err }
