/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package server

import (
	"encoding/json"
	"log/slog"
	"sync"

	"visionboard/internal/board"
	"visionboard/internal/domain"
	"visionboard/internal/editor"
	"visionboard/internal/vector"
)

// Server frame types.
const (
	FrameBoard     = "board"
	FrameTransform = "transform"
	FrameAlert     = "alert"
	FrameEdit      = "edit"
	FrameError     = "error"
)

// Frame is a server-to-client message.
type Frame struct {
	Type      string            `json:"type"`
	Board     *BoardView        `json:"board,omitempty"`
	Transform *vector.Transform `json:"transform,omitempty"`
	Message   string            `json:"message,omitempty"`
	ItemID    string            `json:"id,omitempty"`
	Edit      *EditView         `json:"edit,omitempty"`
}

// BoardView is the full board snapshot sent on every change.
type BoardView struct {
	Items     []domain.Item    `json:"items"`
	Transform vector.Transform `json:"transform"`
	Selected  string           `json:"selected"`
	Loading   editor.Loading   `json:"loading"`
}

// EditView is the inline text editor state of one item.
type EditView struct {
	Buffer   string `json:"buffer"`
	Focused  bool   `json:"focused"`
	SelStart int    `json:"selStart"`
	SelEnd   int    `json:"selEnd"`
}

func snapshot(s *editor.Session) BoardView {
	items := s.Items()
	if items == nil {
		items = []domain.Item{}
	}
	return BoardView{Items: items, Transform: s.Transform(), Selected: s.Board().Selected(), Loading: s.Loading()}
}

// Hub fans frames out to every connected client. It implements
// editor.Notifier so alerts reach the browser.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	log     *slog.Logger
}

func NewHub(l *slog.Logger) *Hub {
	if l == nil {
		l = slog.Default()
	}
	return &Hub{clients: map[*client]struct{}{}, log: l}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// Len is the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast queues f for every client. Slow clients drop frames rather than
// block the session.
func (h *Hub) Broadcast(f Frame) {
	b, err := json.Marshal(f)
	if err != nil {
		h.log.Error("encode frame", slog.String("type", f.Type), slog.Any("err", err))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.enqueue(b)
	}
}

func (h *Hub) Alert(msg string) { h.Broadcast(Frame{Type: FrameAlert, Message: msg}) }

// Watch forwards board and transform changes of s until the returned func
// is called.
func (h *Hub) Watch(s *editor.Session) (stop func()) {
	sub := s.Board().Subscribe(func(board.Change) {
		v := snapshot(s)
		h.Broadcast(Frame{Type: FrameBoard, Board: &v})
	})
	cancel := s.SubscribeTransform(func(t vector.Transform) {
		h.Broadcast(Frame{Type: FrameTransform, Transform: &t})
	})
	return func() {
		sub.Cancel()
		cancel()
	}
}

var _ editor.Notifier = (*Hub)(nil)
