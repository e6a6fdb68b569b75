/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import "sync/atomic"

// Affordance is the loading flag of one async operation. At most one call
// of each affordance is in flight; the flag is cleared on every exit path.
type Affordance struct {
	name string
	busy atomic.Bool
}

func (a *Affordance) Name() string { return a.name }

// Loading reports whether a call is outstanding.
func (a *Affordance) Loading() bool { return a.busy.Load() }

func (a *Affordance) begin() bool { return a.busy.CompareAndSwap(false, true) }
func (a *Affordance) end()        { a.busy.Store(false) }

// Loading is the snapshot of all loading flags.
type Loading struct {
	Generate bool `json:"generate"`
	Edit     bool `json:"edit"`
	Export   bool `json:"export"`
}
