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
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-2.5-flash-image-preview"
)

// Gemini is a minimal REST client for the generateContent endpoint.
type Gemini struct {
	BaseURL string
	APIKey  string
	Model   string
	client  *http.Client
	log     *slog.Logger
}

// NewGemini creates a client. baseURL may include a trailing slash; empty
// values fall back to the public endpoint and default model.
func NewGemini(baseURL, apiKey, model string, timeout time.Duration) *Gemini {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Gemini{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Model:   model,
		client:  &http.Client{Timeout: timeout},
		log:     slog.Default().With(slog.String("component", "imagegen")),
	}
}

// WithLogger sets the logger used for request diagnostics.
func (g *Gemini) WithLogger(l *slog.Logger) *Gemini {
	if l != nil {
		g.log = l
	}
	return g
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents         []content `json:"contents"`
	GenerationConfig struct {
		ResponseModalities []string `json:"responseModalities"`
	} `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Generate creates an image from a text prompt.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	uri, err := g.call(ctx, []part{{Text: prompt}})
	if err != nil {
		return "", &GenerationError{Prompt: prompt, Err: err}
	}
	return uri, nil
}

// Edit sends the source image together with the prompt. A malformed source
// fails with ErrInvalidImageFormat before any request is made.
func (g *Gemini) Edit(ctx context.Context, source, prompt string) (string, error) {
	src, err := ParseDataURI(source)
	if err != nil {
		return "", err
	}
	uri, err := g.call(ctx, []part{
		{InlineData: &inlineData{MimeType: src.MIME, Data: src.Base64}},
		{Text: prompt},
	})
	if err != nil {
		return "", &EditError{Prompt: prompt, Err: err}
	}
	return uri, nil
}

func (g *Gemini) call(ctx context.Context, parts []part) (string, error) {
	var body generateRequest
	body.Contents = []content{{Parts: parts}}
	body.GenerationConfig.ResponseModalities = []string{"IMAGE", "TEXT"}
	buf, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.BaseURL, url.PathEscape(g.Model)))
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(buf))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.APIKey != "" {
		req.Header.Set("x-goog-api-key", g.APIKey)
	}
	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	g.log.Debug("generateContent", slog.Int("status", resp.StatusCode), slog.Duration("took", time.Since(start)))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("server %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	for _, c := range out.Candidates {
		for _, p := range c.Content.Parts {
			if p.InlineData != nil && p.InlineData.Data != "" && strings.HasPrefix(p.InlineData.MimeType, "image/") {
				return DataURI{MIME: p.InlineData.MimeType, Base64: p.InlineData.Data}.String(), nil
			}
		}
	}
	return "", ErrNoImage
}
