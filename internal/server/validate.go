/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package server

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const maxBody = 32 << 20 // image data URIs can be large

var (
	schemaOnce sync.Once
	schemas    map[string]*gojsonschema.Schema
	schemaErr  error
)

func loadSchemas() (map[string]*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		entries, err := schemaFS.ReadDir("schemas")
		if err != nil {
			schemaErr = err
			return
		}
		out := make(map[string]*gojsonschema.Schema, len(entries))
		for _, e := range entries {
			b, err := schemaFS.ReadFile("schemas/" + e.Name())
			if err != nil {
				schemaErr = err
				return
			}
			s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(b))
			if err != nil {
				schemaErr = fmt.Errorf("compile %s: %w", e.Name(), err)
				return
			}
			out[strings.TrimSuffix(e.Name(), ".json")] = s
		}
		schemas = out
	})
	return schemas, schemaErr
}

// ValidationError lists every schema violation of a request.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + strings.Join(e.Problems, "; ")
}

var errUnknownSchema = errors.New("unknown schema")

// validate checks raw JSON against the named embedded schema.
func validate(name string, raw []byte) error {
	all, err := loadSchemas()
	if err != nil {
		return err
	}
	s, ok := all[name]
	if !ok {
		return fmt.Errorf("%w: %s", errUnknownSchema, name)
	}
	res, err := s.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return &ValidationError{Problems: []string{"malformed JSON: " + err.Error()}}
	}
	if res.Valid() {
		return nil
	}
	ve := &ValidationError{}
	for _, re := range res.Errors() {
		ve.Problems = append(ve.Problems, re.String())
	}
	return ve
}

// decode reads the body, validates it and unmarshals into dst.
func decode(w http.ResponseWriter, r *http.Request, schema string, dst any) error {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		return &ValidationError{Problems: []string{"read body: " + err.Error()}}
	}
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	if err := validate(schema, raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &ValidationError{Problems: []string{err.Error()}}
	}
	return nil
}
