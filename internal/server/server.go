/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package server exposes editing sessions over HTTP. Each session wraps one
// editor.Editor; the JSON API covers the editor operations and a websocket
// per session streams pointer events through the interaction state machine.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"printdesigner/internal/editor"
	"printdesigner/internal/history"
	applog "printdesigner/internal/log"
	"printdesigner/internal/storage"
	"printdesigner/internal/version"
)

// Options configures a Server.
type Options struct {
	// Editor is the template for every new session; Preset and
	// OnCheckpoint are set per session.
	Editor editor.Options
	// Repo stores saved templates. Required.
	Repo storage.Repository
	// Library, when set, also receives thumbnails and checkpoint journals.
	Library *storage.Library
	// Token, when non-empty, is required as a bearer token on /api.
	Token string
	// MaxSessions bounds open sessions; 0 means 64.
	MaxSessions int
	// OnSaved is told about every template a session saves.
	OnSaved func(storage.Summary)
}

type session struct {
	id      string
	ed      *editor.Editor
	created time.Time
	// guards the websocket so a session has at most one pointer stream
	streaming sync.Mutex
}

// Server holds the open sessions.
type Server struct {
	opts Options
	log  *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*session
}

func New(opts Options) (*Server, error) {
	if opts.Repo == nil {
		return nil, errors.New("server: repository is required")
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = 64
	}
	return &Server{
		opts:     opts,
		log:      applog.WithComponent("server"),
		sessions: map[string]*session{},
	}, nil
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	r.HandleFunc("/version", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"version": version.String()})
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.requireToken)
	api.HandleFunc("/presets", s.handlePresets).Methods(http.MethodGet)
	api.HandleFunc("/templates", s.handleListTemplates).Methods(http.MethodGet)
	api.HandleFunc("/templates/{tid}", s.handleGetTemplate).Methods(http.MethodGet)
	api.HandleFunc("/templates/{tid}", s.handleDeleteTemplate).Methods(http.MethodDelete)
	api.HandleFunc("/templates/{tid}/thumbnail.png", s.handleThumbnail).Methods(http.MethodGet)

	api.HandleFunc("/sessions", s.handleCreateSession).Methods(http.MethodPost)
	ss := api.PathPrefix("/sessions/{sid}").Subrouter()
	ss.Use(s.withSession)
	ss.HandleFunc("", s.handleCloseSession).Methods(http.MethodDelete)
	ss.HandleFunc("/state", s.handleState).Methods(http.MethodGet)
	ss.HandleFunc("/elements", s.handleListElements).Methods(http.MethodGet)
	ss.HandleFunc("/elements", s.handleAddElement).Methods(http.MethodPost)
	ss.HandleFunc("/elements/{id}", s.handleUpdateElement).Methods(http.MethodPatch)
	ss.HandleFunc("/elements/{id}", s.handleDeleteElement).Methods(http.MethodDelete)
	ss.HandleFunc("/elements/{id}/{op:front|back|lock|visibility}", s.handleElementOp).Methods(http.MethodPost)
	ss.HandleFunc("/select", s.handleSelect).Methods(http.MethodPost)
	ss.HandleFunc("/undo", s.handleUndo).Methods(http.MethodPost)
	ss.HandleFunc("/redo", s.handleRedo).Methods(http.MethodPost)
	ss.HandleFunc("/keys", s.handleKey).Methods(http.MethodPost)
	ss.HandleFunc("/groups", s.handleGroup).Methods(http.MethodPost)
	ss.HandleFunc("/groups/{gid}", s.handleUngroup).Methods(http.MethodDelete)
	ss.HandleFunc("/align", s.handleAlign).Methods(http.MethodPost)
	ss.HandleFunc("/subtotal", s.handleAddSubtotal).Methods(http.MethodPost)
	ss.HandleFunc("/subtotal", s.handleSubtotalComponents).Methods(http.MethodPut)
	ss.HandleFunc("/view", s.handleView).Methods(http.MethodPut)
	ss.HandleFunc("/page", s.handlePage).Methods(http.MethodPut)
	ss.HandleFunc("/table", s.handleTable).Methods(http.MethodPut)
	ss.HandleFunc("/preset", s.handleLoadPreset).Methods(http.MethodPost)
	ss.HandleFunc("/canvas", s.handleCanvas).Methods(http.MethodGet)
	ss.HandleFunc("/document", s.handleDocument).Methods(http.MethodGet)
	ss.HandleFunc("/preview.png", s.handlePreview).Methods(http.MethodGet)
	ss.HandleFunc("/save", s.handleSave).Methods(http.MethodPost)
	ss.HandleFunc("/ws", s.handlePointerStream).Methods(http.MethodGet)
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("listening", slog.String("addr", addr))
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	}
}

// Sessions reports the number of open sessions.
func (s *Server) Sessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

var errTooManySessions = errors.New("too many open sessions")

// open creates a session on a preset or, when templateID is set, on a
// stored template.
func (s *Server) open(ctx context.Context, preset, templateID string) (*session, error) {
	s.mu.RLock()
	full := len(s.sessions) >= s.opts.MaxSessions
	s.mu.RUnlock()
	if full {
		return nil, errTooManySessions
	}
	var journal func(history.Snapshot)
	opts := s.opts.Editor
	opts.Preset = preset
	opts.OnCheckpoint = func(snap history.Snapshot) {
		if journal != nil {
			journal(snap)
		}
	}
	ed, err := editor.New(opts)
	if err != nil {
		return nil, err
	}
	if templateID != "" {
		t, err := s.opts.Repo.Get(ctx, templateID)
		if err != nil {
			return nil, err
		}
		if err := ed.LoadTemplate(t); err != nil {
			return nil, err
		}
	}
	if s.opts.Library != nil {
		journal = s.opts.Library.Journal(ed.Template("").ID)
	}
	sess := &session{id: uuid.NewString(), ed: ed, created: time.Now()}
	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	return sess, nil
}

func (s *Server) close(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	return ok
}

func (s *Server) get(id string) (*session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

type sessionKey struct{}

func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.get(mux.Vars(r)["sid"])
		if !ok {
			writeError(w, http.StatusNotFound, errors.New("session not found"))
			return
		}
		ctx := applog.ContextWithSession(r.Context(), sess.id)
		ctx = context.WithValue(ctx, sessionKey{}, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFrom(r *http.Request) *session {
	return r.Context().Value(sessionKey{}).(*session)
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.Token == "" {
			next.ServeHTTP(w, r)
			return
		}
		token := r.URL.Query().Get("token") // browsers cannot set headers on websocket upgrades
		if auth := r.Header.Get("Authorization"); len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
			token = strings.TrimSpace(auth[7:])
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.opts.Token)) != 1 {
			writeError(w, http.StatusUnauthorized, errors.New("invalid or missing bearer token"))
			return
		}
		next.ServeHTTP(w, r)
	})
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

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/ws") {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.LogAttrs(r.Context(), slog.LevelDebug, "request",
			slog.String("method", r.Method), slog.String("path", r.URL.Path),
			slog.Int("status", rec.status), slog.Duration("took", time.Since(start)))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<20))
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid request payload: " + err.Error())
	}
	return nil
}
