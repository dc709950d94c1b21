/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package server

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"printdesigner/internal/editor"
	"printdesigner/internal/interaction"
	"printdesigner/internal/scene"
	"printdesigner/internal/storage"
)

type fixture struct {
	t   *testing.T
	srv *Server
	ts  *httptest.Server
	lib *storage.Library
}

func newFixture(t *testing.T, token string) *fixture {
	t.Helper()
	lib, err := storage.OpenLibrary(filepath.Join(t.TempDir(), "library.db"))
	if err != nil {
		t.Fatalf("OpenLibrary: %v", err)
	}
	t.Cleanup(func() { _ = lib.Close() })
	srv, err := New(Options{
		Editor:  editor.Options{Grid: interaction.Grid{Size: 20, Snap: true}},
		Repo:    lib,
		Library: lib,
		Token:   token,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &fixture{t: t, srv: srv, ts: ts, lib: lib}
}

func (f *fixture) do(method, path string, body any, out any) int {
	f.t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, _ := http.NewRequest(method, f.ts.URL+path, rd)
	if f.srv.opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+f.srv.opts.Token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		f.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			f.t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (f *fixture) session(preset string) state {
	f.t.Helper()
	var st state
	if code := f.do(http.MethodPost, "/api/sessions", map[string]string{"preset": preset}, &st); code != http.StatusCreated {
		f.t.Fatalf("create session = %d", code)
	}
	return st
}

func TestHealthAndPresets(t *testing.T) {
	f := newFixture(t, "")
	if code := f.do(http.MethodGet, "/healthz", nil, nil); code != http.StatusOK {
		t.Fatalf("healthz = %d", code)
	}
	var out struct{ Presets []string }
	f.do(http.MethodGet, "/api/presets", nil, &out)
	if strings.Join(out.Presets, ",") != "default,fintech,minimal,professional" {
		t.Fatalf("presets = %v", out.Presets)
	}
}

func TestTokenRequired(t *testing.T) {
	f := newFixture(t, "s3cret")
	resp, err := http.Get(f.ts.URL + "/api/presets")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no token = %d", resp.StatusCode)
	}
	resp, err = http.Get(f.ts.URL + "/api/presets?token=s3cret")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("query token = %d", resp.StatusCode)
	}
	if code := f.do(http.MethodGet, "/api/presets", nil, nil); code != http.StatusOK {
		t.Fatalf("bearer = %d", code)
	}
	// health stays open for probes
	resp, _ = http.Get(f.ts.URL + "/healthz")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz = %d", resp.StatusCode)
	}
}

func TestSessionLifecycle(t *testing.T) {
	f := newFixture(t, "")
	st := f.session("")
	if len(st.Elements) != 13 || st.Mode != "idle" || st.CanUndo {
		t.Fatalf("initial state = %+v", st)
	}
	base := "/api/sessions/" + st.ID

	if code := f.do(http.MethodDelete, base+"/elements/5", nil, nil); code != http.StatusNoContent {
		t.Fatalf("delete = %d", code)
	}
	if code := f.do(http.MethodDelete, base+"/elements/5", nil, nil); code != http.StatusNotFound {
		t.Fatalf("second delete = %d", code)
	}
	var after state
	f.do(http.MethodPost, base+"/undo", nil, &after)
	if len(after.Elements) != 13 || !after.CanRedo {
		t.Fatalf("after undo = %d elements, redo=%v", len(after.Elements), after.CanRedo)
	}
	if code := f.do(http.MethodPost, base+"/redo", nil, nil); code != http.StatusOK {
		t.Fatalf("redo = %d", code)
	}
	if code := f.do(http.MethodPost, base+"/redo", nil, nil); code != http.StatusConflict {
		t.Fatalf("redo past end = %d", code)
	}

	if code := f.do(http.MethodDelete, base, nil, nil); code != http.StatusNoContent {
		t.Fatalf("close = %d", code)
	}
	if code := f.do(http.MethodGet, base+"/state", nil, nil); code != http.StatusNotFound {
		t.Fatalf("closed session = %d", code)
	}
	if f.srv.Sessions() != 0 {
		t.Fatalf("sessions = %d", f.srv.Sessions())
	}
}

func TestUnknownPresetRejected(t *testing.T) {
	f := newFixture(t, "")
	if code := f.do(http.MethodPost, "/api/sessions", map[string]string{"preset": "baroque"}, nil); code != http.StatusBadRequest {
		t.Fatalf("code = %d", code)
	}
}

func TestElementEndpoints(t *testing.T) {
	f := newFixture(t, "")
	base := "/api/sessions/" + f.session("").ID

	var el scene.Element
	if code := f.do(http.MethodPost, base+"/elements", map[string]string{"type": "rectangle"}, &el); code != http.StatusCreated {
		t.Fatalf("add = %d", code)
	}
	if el.Kind != scene.KindRectangle || el.ZIndex != 14 {
		t.Fatalf("added = %+v", el)
	}
	if code := f.do(http.MethodPost, base+"/elements", map[string]string{"type": "hexagon"}, nil); code != http.StatusBadRequest {
		t.Fatalf("bad kind = %d", code)
	}

	var moved scene.Element
	f.do(http.MethodPatch, base+"/elements/"+el.ID, map[string]float64{"x": 300}, &moved)
	if moved.X != 300 || moved.Y != el.Y {
		t.Fatalf("patched = %v,%v", moved.X, moved.Y)
	}
	var st state
	f.do(http.MethodGet, base+"/state", nil, &st)
	if st.History.Entries != 2 {
		t.Fatalf("transient patch recorded history: %+v", st.History)
	}
	f.do(http.MethodPatch, base+"/elements/"+el.ID+"?history=1", map[string]float64{"y": 40}, nil)
	f.do(http.MethodGet, base+"/state", nil, &st)
	if st.History.Entries != 3 {
		t.Fatalf("history patch entries = %+v", st.History)
	}

	var back scene.Element
	f.do(http.MethodPost, base+"/elements/"+el.ID+"/back", nil, &back)
	if back.ZIndex != -1 {
		t.Fatalf("send to back z = %d", back.ZIndex)
	}
	var locked scene.Element
	f.do(http.MethodPost, base+"/elements/"+el.ID+"/lock", nil, &locked)
	if !locked.Locked {
		t.Fatal("lock did not toggle")
	}
	if code := f.do(http.MethodPost, base+"/elements/nope/front", nil, nil); code != http.StatusNotFound {
		t.Fatalf("missing element op = %d", code)
	}

	var grp struct{ GroupID string }
	if code := f.do(http.MethodPost, base+"/groups", map[string][]string{"ids": {"7", "8"}}, &grp); code != http.StatusCreated || grp.GroupID == "" {
		t.Fatalf("group = %d %q", code, grp.GroupID)
	}
	if code := f.do(http.MethodDelete, base+"/groups/"+grp.GroupID, nil, nil); code != http.StatusNoContent {
		t.Fatalf("ungroup = %d", code)
	}
	if code := f.do(http.MethodPost, base+"/align", map[string]any{"ids": []string{"7"}, "align": "diagonal"}, nil); code != http.StatusBadRequest {
		t.Fatalf("bad alignment = %d", code)
	}
}

func TestViewAndKeys(t *testing.T) {
	f := newFixture(t, "")
	base := "/api/sessions/" + f.session("").ID

	var st state
	f.do(http.MethodPut, base+"/view", map[string]any{"zoom": 5, "gridSize": 10, "showGrid": true}, &st)
	if st.Zoom != editor.MaxZoom || st.Grid.Size != 10 || !st.Grid.Show || !st.Grid.Snap {
		t.Fatalf("view = %+v", st)
	}

	f.do(http.MethodPost, base+"/select", map[string]string{"id": "5"}, nil)
	var out struct {
		Handled bool
		State   state
	}
	f.do(http.MethodPost, base+"/keys", map[string]string{"key": "Delete"}, &out)
	if !out.Handled || out.State.Selected != "" || !out.State.CanUndo {
		t.Fatalf("delete key = %+v", out)
	}
	f.do(http.MethodPost, base+"/keys", map[string]string{"key": "ctrl+z"}, &out)
	if !out.Handled || out.State.CanUndo {
		t.Fatalf("undo key = %+v", out)
	}
}

func TestRenderEndpoints(t *testing.T) {
	f := newFixture(t, "")
	base := f.ts.URL + "/api/sessions/" + f.session("").ID

	resp, err := http.Get(base + "/document?full=1")
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	resp.Body.Close()
	doc := buf.String()
	if !strings.HasPrefix(doc, "<!DOCTYPE html>") || !strings.Contains(doc, "INVOICE") {
		t.Fatalf("document = %.200s", doc)
	}

	resp, err = http.Get(base + "/canvas?guides=1")
	if err != nil {
		t.Fatal(err)
	}
	buf.Reset()
	_, _ = buf.ReadFrom(resp.Body)
	resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("canvas content type = %q", ct)
	}

	resp, err = http.Get(base + "/preview.png?width=120")
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("decode preview: %v", err)
	}
	if img.Bounds().Dx() != 120 {
		t.Fatalf("preview width = %d", img.Bounds().Dx())
	}
}

func TestSaveAndReopen(t *testing.T) {
	f := newFixture(t, "")
	var saved []storage.Summary
	f.srv.opts.OnSaved = func(s storage.Summary) { saved = append(saved, s) }
	st := f.session("minimal")
	base := "/api/sessions/" + st.ID

	var sum storage.Summary
	if code := f.do(http.MethodPost, base+"/save", map[string]string{"name": "Plain"}, &sum); code != http.StatusOK {
		t.Fatalf("save = %d", code)
	}
	if sum.ID == "" || sum.Name != "Plain" || sum.Elements != len(st.Elements) || len(saved) != 1 {
		t.Fatalf("summary = %+v saved=%v", sum, saved)
	}

	var list struct{ Templates []storage.Summary }
	f.do(http.MethodGet, "/api/templates", nil, &list)
	if len(list.Templates) != 1 || list.Templates[0].ID != sum.ID {
		t.Fatalf("list = %+v", list)
	}
	resp, err := http.Get(f.ts.URL + "/api/templates/" + sum.ID + "/thumbnail.png")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("thumbnail = %d %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}

	var reopened state
	if code := f.do(http.MethodPost, "/api/sessions", map[string]string{"templateId": sum.ID}, &reopened); code != http.StatusCreated {
		t.Fatalf("reopen = %d", code)
	}
	if len(reopened.Elements) != len(st.Elements) {
		t.Fatalf("reopened %d elements, want %d", len(reopened.Elements), len(st.Elements))
	}
	if code := f.do(http.MethodPost, "/api/sessions", map[string]string{"templateId": "template-missing"}, nil); code != http.StatusNotFound {
		t.Fatalf("missing template = %d", code)
	}

	if code := f.do(http.MethodDelete, "/api/templates/"+sum.ID, nil, nil); code != http.StatusNoContent {
		t.Fatalf("delete template = %d", code)
	}
	if code := f.do(http.MethodGet, "/api/templates/"+sum.ID, nil, nil); code != http.StatusNotFound {
		t.Fatalf("get deleted = %d", code)
	}
}

func TestPointerStream(t *testing.T) {
	f := newFixture(t, "")
	st := f.session("")
	base := "/api/sessions/" + st.ID
	var el scene.Element
	f.do(http.MethodPost, base+"/elements", map[string]string{"type": "text"}, &el)

	url := "ws" + strings.TrimPrefix(f.ts.URL, "http") + base + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	send := func(m pointerMessage) pointerReply {
		t.Helper()
		if err := conn.WriteJSON(m); err != nil {
			t.Fatalf("write: %v", err)
		}
		var rep pointerReply
		if err := conn.ReadJSON(&rep); err != nil {
			t.Fatalf("read: %v", err)
		}
		return rep
	}

	rep := send(pointerMessage{Type: "down", X: 110, Y: 110})
	if rep.Mode != "dragging" || rep.Selected != el.ID {
		t.Fatalf("down = %+v", rep)
	}
	send(pointerMessage{Type: "move", X: 130, Y: 130})
	rep = send(pointerMessage{Type: "move", X: 147, Y: 162})
	if len(rep.Updates) != 1 || rep.Updates[0].ID != el.ID || rep.Commit {
		t.Fatalf("move = %+v", rep)
	}
	rep = send(pointerMessage{Type: "up", X: 147, Y: 162})
	if !rep.Commit || rep.Mode != "idle" {
		t.Fatalf("up = %+v", rep)
	}
	if rep = send(pointerMessage{Type: "wiggle"}); rep.Error == "" {
		t.Fatal("unknown event accepted")
	}

	var got scene.Element
	var list struct{ Elements []scene.Element }
	f.do(http.MethodGet, base+"/elements", nil, &list)
	for _, e := range list.Elements {
		if e.ID == el.ID {
			got = e
		}
	}
	if got.X != 140 || got.Y != 160 {
		t.Fatalf("dragged to %v,%v", got.X, got.Y)
	}

	if _, resp, err := websocket.DefaultDialer.Dial(url, nil); err == nil || resp == nil || resp.StatusCode != http.StatusConflict {
		t.Fatalf("second stream err=%v", err)
	}
}
