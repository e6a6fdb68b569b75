/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package gesture

import (
	"sort"
	"sync"
)

// Window is the global pointer listener bus. Controllers attach to it only
// while a gesture is in progress and receive every subsequent move, end and
// cancel event regardless of what lies under the pointer.
type Window struct {
	mu   sync.Mutex
	next uint64
	ls   map[uint64]func(Event)
}

func NewWindow() *Window {
	return &Window{ls: make(map[uint64]func(Event))}
}

// Attachment is a scoped listener registration.
type Attachment struct {
	w    *Window
	id   uint64
	once sync.Once
}

// Attach registers fn until the returned attachment is detached.
func (w *Window) Attach(fn func(Event)) *Attachment {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.next++
	w.ls[w.next] = fn
	return &Attachment{w: w, id: w.next}
}

// Detach removes the listener. Safe to call more than once and on nil.
func (a *Attachment) Detach() {
	if a == nil {
		return
	}
	a.once.Do(func() {
		a.w.mu.Lock()
		delete(a.w.ls, a.id)
		a.w.mu.Unlock()
	})
}

// Len is the number of attached listeners.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.ls)
}

// Dispatch delivers e to listeners in attach order. Listeners may detach
// themselves or others while being dispatched; a detached listener that has
// not yet been called is skipped.
func (w *Window) Dispatch(e Event) int {
	w.mu.Lock()
	ids := make([]uint64, 0, len(w.ls))
	for id := range w.ls {
		ids = append(ids, id)
	}
	w.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	n := 0
	for _, id := range ids {
		w.mu.Lock()
		fn, ok := w.ls[id]
		w.mu.Unlock()
		if !ok {
			continue
		}
		fn(e)
		n++
	}
	return n
}
