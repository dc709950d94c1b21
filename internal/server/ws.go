/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"printdesigner/internal/geom"
	"printdesigner/internal/interaction"
	"printdesigner/internal/scene"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The API is token protected; any origin holding the token may stream.
	CheckOrigin: func(*http.Request) bool { return true },
}

// pointerMessage is one client input on the stream. X and Y are
// pointer-surface coordinates.
type pointerMessage struct {
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

var eventTypes = map[string]interaction.EventType{
	"down":   interaction.PointerDown,
	"move":   interaction.PointerMove,
	"up":     interaction.PointerUp,
	"cancel": interaction.CaptureLost,
	"escape": interaction.Escape,
}

func (m pointerMessage) event() (interaction.Event, error) {
	t, ok := eventTypes[m.Type]
	if !ok {
		return interaction.Event{}, fmt.Errorf("unknown pointer event %q", m.Type)
	}
	return interaction.Event{Type: t, Pos: geom.Pt{X: m.X, Y: m.Y}}, nil
}

type wireUpdate struct {
	ID    string      `json:"id"`
	Patch scene.Patch `json:"patch"`
}

// pointerReply answers every pointerMessage.
type pointerReply struct {
	Updates  []wireUpdate `json:"updates"`
	Commit   bool         `json:"commit"`
	Selected string       `json:"selected"`
	Mode     string       `json:"mode"`
	Error    string       `json:"error,omitempty"`
}

func replyFor(res interaction.Result, c interaction.Context) pointerReply {
	rep := pointerReply{
		Updates:  make([]wireUpdate, 0, len(res.Updates)),
		Commit:   res.Commit,
		Selected: c.Selected,
		Mode:     c.Session.Mode.String(),
	}
	for _, u := range res.Updates {
		rep.Updates = append(rep.Updates, wireUpdate{ID: u.ID, Patch: u.Patch})
	}
	return rep
}

// handlePointerStream feeds pointer events from a websocket into the
// session. One stream per session; a dropped connection ends any drag as
// if pointer capture was lost.
func (s *Server) handlePointerStream(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if !sess.streaming.TryLock() {
		writeError(w, http.StatusConflict, fmt.Errorf("session %s already has a pointer stream", sess.id))
		return
	}
	defer sess.streaming.Unlock()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WarnContext(r.Context(), "websocket upgrade", slog.Any("err", err))
		return
	}
	defer conn.Close()
	log := s.log.With(slog.String("session", sess.id))
	log.Debug("pointer stream opened")

	defer func() {
		if sess.ed.Context().Capturing() {
			sess.ed.Pointer(interaction.Event{Type: interaction.CaptureLost})
			log.Debug("pointer stream closed mid-gesture")
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(pongWait)) })

	done := make(chan struct{})
	defer close(done)
	go func() {
		t := time.NewTicker(pingPeriod)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			}
		}
	}()

	for {
		var msg pointerMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("pointer stream read", slog.Any("err", err))
			}
			return
		}
		var rep pointerReply
		if ev, err := msg.event(); err != nil {
			rep = pointerReply{Updates: []wireUpdate{}, Error: err.Error()}
		} else {
			c, res := sess.ed.Pointer(ev)
			rep = replyFor(res, c)
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(rep); err != nil {
			log.Warn("pointer stream write", slog.Any("err", err))
			return
		}
	}
}
