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
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"visionboard/internal/gesture"
	"visionboard/internal/vector"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendQueue  = 64
	maxFrame   = 1 << 16
)

// clientFrame is a client-to-server message. Which fields apply depends on
// Type; the ws_frame schema enforces the required ones.
type clientFrame struct {
	Type   string `json:"type"`
	Source string `json:"source"`
	Phase  string `json:"phase"`
	Button int    `json:"button"`
	Points []struct {
		ID int     `json:"id"`
		X  float64 `json:"x"`
		Y  float64 `json:"y"`
	} `json:"points"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	DeltaY float64 `json:"deltaY"`
	Text   string  `json:"text"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// event converts a pointer frame into a gesture event.
func (f clientFrame) event() (gesture.Event, error) {
	phase, err := gesture.ParsePhase(f.Phase)
	if err != nil {
		return gesture.Event{}, err
	}
	if f.Source == "touch" {
		pts := make([]gesture.Point, 0, len(f.Points))
		for _, p := range f.Points {
			pts = append(pts, gesture.Point{ID: p.ID, Pos: vector.P(p.X, p.Y)})
		}
		return gesture.Touch(phase, pts...), nil
	}
	pos := vector.P(f.X, f.Y)
	if len(f.Points) > 0 {
		pos = vector.P(f.Points[0].X, f.Points[0].Y)
	}
	return gesture.Mouse(phase, gesture.Button(f.Button), pos), nil
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
	done chan struct{}
}

func (c *client) enqueue(b []byte) {
	select {
	case <-c.done:
	case c.send <- b:
	default:
	}
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.cfg.AllowAnyOrigin || origin == "http://"+r.Host || origin == "https://"+r.Host
		},
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", slog.Any("err", err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendQueue), done: make(chan struct{})}
	s.hub.add(c)
	l := s.log.With(slog.String("remote", r.RemoteAddr))
	l.Info("client connected", slog.Int("clients", s.hub.Len()))

	v := snapshot(s.sess)
	if b, err := json.Marshal(Frame{Type: FrameBoard, Board: &v}); err == nil {
		c.enqueue(b)
	}
	go s.writeLoop(c, l)
	s.readLoop(c, l)

	s.hub.remove(c)
	c.close()
	// A dropped connection must not leave a gesture running.
	s.sess.Cancel()
	l.Info("client disconnected", slog.Int("clients", s.hub.Len()))
}

func (s *Server) readLoop(c *client, l *slog.Logger) {
	defer func() { _ = c.conn.Close() }()
	c.conn.SetReadLimit(maxFrame)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				l.Warn("websocket read", slog.Any("err", err))
			}
			return
		}
		if err := s.applyFrame(c, raw); err != nil {
			l.Debug("frame rejected", slog.Any("err", err))
			if b, merr := json.Marshal(Frame{Type: FrameError, Message: err.Error()}); merr == nil {
				c.enqueue(b)
			}
		}
	}
}

func (s *Server) writeLoop(c *client, l *slog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case b := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				l.Debug("websocket write", slog.Any("err", err))
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

var errUnknownFrame = errors.New("unknown frame type")

// applyFrame validates one client frame and feeds it to the session.
func (s *Server) applyFrame(c *client, raw []byte) error {
	if err := validate("ws_frame", raw); err != nil {
		return err
	}
	var f clientFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return err
	}
	switch f.Type {
	case "pointer":
		e, err := f.event()
		if err != nil {
			return err
		}
		s.sess.Pointer(e)
	case "wheel":
		s.sess.Wheel(vector.P(f.X, f.Y), f.DeltaY)
	case "doubletap":
		id, ed, err := s.sess.DoubleTap(vector.P(f.X, f.Y))
		if err != nil {
			return err
		}
		s.sendEdit(c, id, ed)
	case "text":
		if err := s.sess.TextInput(f.Text); err != nil {
			return err
		}
		if id, ed, ok := s.sess.Editing(); ok {
			s.sendEdit(c, id, ed)
		}
	case "blur":
		return s.sess.Blur()
	case "viewport":
		s.sess.SetScreen(vector.Size{W: f.Width, H: f.Height})
	default:
		return errUnknownFrame
	}
	return nil
}

func (s *Server) sendEdit(c *client, id string, ed gesture.TextEdit) {
	b, err := json.Marshal(Frame{Type: FrameEdit, ItemID: id, Edit: &EditView{Buffer: ed.Buffer, Focused: ed.Focused, SelStart: ed.SelStart, SelEnd: ed.SelEnd}})
	if err == nil {
		c.enqueue(b)
	}
}
