/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package server exposes an editor session over HTTP and a WebSocket. REST
// endpoints carry toolbar commands and exports; the /ws stream carries raw
// pointer input one way and board, transform and alert frames the other.
// Every request body is validated against an embedded JSON schema.
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"visionboard/internal/board"
	"visionboard/internal/domain"
	"visionboard/internal/editor"
	"visionboard/internal/export"
	"visionboard/internal/gesture"
	"visionboard/internal/imagegen"
	applog "visionboard/internal/log"
	"visionboard/internal/storage"
	"visionboard/internal/version"
)

// Journal is the read side of the generation journal.
type Journal interface {
	Recent(ctx context.Context, f storage.Filter) ([]storage.Entry, error)
	Ping(ctx context.Context) error
}

type Config struct {
	Session *editor.Session
	// Hub should be the session's Notifier so alerts reach clients.
	Hub     *Hub
	Journal Journal
	Logger  *slog.Logger
	// AllowAnyOrigin disables the same-origin check on /ws.
	AllowAnyOrigin bool
}

type Server struct {
	cfg  Config
	sess *editor.Session
	hub  *Hub
	log  *slog.Logger
	mux  *http.ServeMux
}

func New(cfg Config) (*Server, error) {
	if cfg.Session == nil {
		return nil, errors.New("server needs a session")
	}
	if _, err := loadSchemas(); err != nil {
		return nil, fmt.Errorf("load schemas: %w", err)
	}
	l := applog.OrDefault(cfg.Logger, "server")
	if cfg.Hub == nil {
		cfg.Hub = NewHub(l)
	}
	s := &Server{cfg: cfg, sess: cfg.Session, hub: cfg.Hub, log: l, mux: http.NewServeMux()}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	s.mux.HandleFunc("GET /readyz", s.handleReady)
	s.mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("visionboard " + version.String()))
	})
	s.mux.HandleFunc("GET /api/board", s.handleBoard)
	s.mux.HandleFunc("POST /api/items", s.handleCreate)
	s.mux.HandleFunc("PATCH /api/items/{id}", s.handlePatch)
	s.mux.HandleFunc("DELETE /api/items/{id}", s.handleDelete)
	s.mux.HandleFunc("POST /api/items/{id}/front", s.handleFront)
	s.mux.HandleFunc("POST /api/select", s.handleSelect)
	s.mux.HandleFunc("POST /api/shuffle", s.handleShuffle)
	s.mux.HandleFunc("POST /api/generate", s.handleGenerate)
	s.mux.HandleFunc("POST /api/edit", s.handleEdit)
	s.mux.HandleFunc("GET /api/export/{format}", s.handleExport)
	s.mux.HandleFunc("GET /api/journal", s.handleJournal)
	s.mux.HandleFunc("GET /api/stickers", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, domain.StickerKeys())
	})
	s.mux.HandleFunc("GET /ws", s.handleWS)
}

// Handler returns the routed handler with request ids and access logs.
func (s *Server) Handler() http.Handler { return s.withRequestLog(s.mux) }

// Hub returns the client fan-out.
func (s *Server) Hub() *Hub { return s.hub }

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	stop := s.hub.Watch(s.sess)
	defer stop()
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("listening", slog.String("addr", addr))
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// Hijack passes the connection through for the websocket upgrade.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := applog.WithRequestID(r.Context(), id)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(ctx))
		s.log.DebugContext(ctx, "request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("took", time.Since(start)))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	body := map[string]any{"error": err.Error()}
	var ve *ValidationError
	if errors.As(err, &ve) {
		body["problems"] = ve.Problems
	}
	writeJSON(w, status, body)
}

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	var ve *ValidationError
	var ge *imagegen.GenerationError
	var ee *imagegen.EditError
	switch {
	case errors.As(err, &ve),
		errors.Is(err, editor.ErrEmptyPrompt),
		errors.Is(err, domain.ErrInvalidItem),
		errors.Is(err, domain.ErrStickerUnknown),
		errors.Is(err, domain.ErrNotResizable),
		errors.Is(err, imagegen.ErrInvalidImageFormat),
		errors.Is(err, export.ErrUnknownFormat),
		errors.Is(err, gesture.ErrNotEditable):
		return http.StatusBadRequest
	case errors.Is(err, board.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, editor.ErrBusy),
		errors.Is(err, editor.ErrNoImageSelected),
		errors.Is(err, editor.ErrNotEditing),
		errors.Is(err, board.ErrDuplicateID):
		return http.StatusConflict
	case errors.As(err, &ge), errors.As(err, &ee):
		return http.StatusBadGateway
	case errors.Is(err, editor.ErrNoService),
		errors.Is(err, export.ErrExportUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= 500 {
		s.log.ErrorContext(r.Context(), "request failed", slog.String("path", r.URL.Path), slog.Any("err", err))
	}
	writeError(w, code, err)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Journal != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.cfg.Journal.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("journal not ready"))
			return
		}
	}
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, snapshot(s.sess))
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind    string `json:"kind"`
		Content string `json:"content"`
	}
	if err := decode(w, r, "create_item", &req); err != nil {
		s.fail(w, r, err)
		return
	}
	kind, err := domain.ParseKind(req.Kind)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	it, err := s.sess.Add(kind, req.Content)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, it)
}

func (s *Server) handlePatch(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req struct {
		Rotation *float64 `json:"rotation"`
		Content  *string  `json:"content"`
	}
	if err := decode(w, r, "patch_item", &req); err != nil {
		s.fail(w, r, err)
		return
	}
	var (
		it  domain.Item
		err error
		ok  bool
	)
	if it, ok = s.sess.Board().Item(id); !ok {
		s.fail(w, r, fmt.Errorf("%w: %s", board.ErrNotFound, id))
		return
	}
	if req.Content != nil {
		if it, err = s.sess.SetContent(id, *req.Content); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	if req.Rotation != nil {
		if it, err = s.sess.Rotate(id, *req.Rotation); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, it)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.sess.Delete(r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFront(w http.ResponseWriter, r *http.Request) {
	z, err := s.sess.BringToFront(r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"zIndex": z})
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := decode(w, r, "select", &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.sess.Select(req.ID); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"selected": req.ID})
}

func (s *Server) handleShuffle(w http.ResponseWriter, r *http.Request) {
	s.sess.Shuffle()
	writeJSON(w, http.StatusOK, snapshot(s.sess))
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := decode(w, r, "prompt", &req); err != nil {
		s.fail(w, r, err)
		return
	}
	it, err := s.sess.Generate(r.Context(), req.Prompt)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, it)
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := decode(w, r, "prompt", &req); err != nil {
		s.fail(w, r, err)
		return
	}
	it, err := s.sess.EditSelected(r.Context(), req.Prompt)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if it.ID == "" {
		// the item was deleted while the edit ran
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	f, err := export.ParseFormat(r.PathValue("format"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	data, err := s.sess.Export(r.Context(), f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.FileName()))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Journal == nil {
		writeJSON(w, http.StatusOK, []storage.Entry{})
		return
	}
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	entries, err := s.cfg.Journal.Recent(r.Context(), storage.Filter{Op: q.Get("op"), Outcome: q.Get("outcome"), Limit: limit})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if entries == nil {
		entries = []storage.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
