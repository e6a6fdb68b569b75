/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package gesture

import "sync"

// Activity is the kind of exclusive gesture currently running.
type Activity int

const (
	ActivityNone Activity = iota
	ActivityDrag
	ActivityResize
	ActivityPan
	ActivityPinch
)

func (a Activity) String() string {
	return [...]string{"none", "drag", "resize", "pan", "pinch"}[a]
}

// Arbiter grants at most one of drag, resize, pan or pinch at a time across
// all controllers.
type Arbiter struct {
	mu    sync.Mutex
	owner any
	act   Activity
}

// Acquire claims act for owner. It fails while another owner holds the
// arbiter; the current owner may switch activity (pan to pinch).
func (a *Arbiter) Acquire(owner any, act Activity) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.act != ActivityNone && a.owner != owner {
		return false
	}
	a.owner, a.act = owner, act
	return true
}

// Release frees the arbiter if owner holds it.
func (a *Arbiter) Release(owner any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.owner == owner {
		a.owner, a.act = nil, ActivityNone
	}
}

func (a *Arbiter) Active() Activity {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.act
}

// HeldBy reports whether owner currently holds the arbiter.
func (a *Arbiter) HeldBy(owner any) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.act != ActivityNone && a.owner == owner
}
