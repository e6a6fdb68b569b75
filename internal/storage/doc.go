/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage keeps the generation journal: an append-only record of
// every image generation, image edit and export attempt with its prompt,
// outcome and duration. Boards themselves are never persisted.
//
// The journal lives in an embedded SQLite file by default and can be pointed
// at PostgreSQL instead; both share one schema applied from embedded
// migrations.
package storage
