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
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"printdesigner/internal/editor"
	"printdesigner/internal/export"
	"printdesigner/internal/geom"
	"printdesigner/internal/scene"
	"printdesigner/internal/storage"
	"printdesigner/internal/telemetry"
	"printdesigner/internal/templates"
)

// state is the session summary returned by most mutating calls.
type state struct {
	ID       string          `json:"id"`
	Selected string          `json:"selected"`
	Mode     string          `json:"mode"`
	Zoom     float64         `json:"zoom"`
	Grid     gridState       `json:"grid"`
	CanUndo  bool            `json:"canUndo"`
	CanRedo  bool            `json:"canRedo"`
	History  historyState    `json:"history"`
	Elements []scene.Element `json:"elements,omitempty"`
}

type gridState struct {
	Size float64 `json:"size"`
	Snap bool    `json:"snap"`
	Show bool    `json:"show"`
}

type historyState struct {
	Entries int `json:"entries"`
	Cursor  int `json:"cursor"`
}

func stateOf(sess *session, withElements bool) state {
	ed := sess.ed
	c := ed.Context()
	entries, cursor := ed.HistoryStats()
	st := state{
		ID:       sess.id,
		Selected: c.Selected,
		Mode:     c.Session.Mode.String(),
		Zoom:     c.View.Zoom,
		Grid:     gridState{Size: c.View.Grid.Size, Snap: c.View.Grid.Snap, Show: c.View.Grid.Show},
		CanUndo:  ed.CanUndo(),
		CanRedo:  ed.CanRedo(),
		History:  historyState{Entries: entries, Cursor: cursor},
	}
	if withElements {
		st.Elements = ed.Ordered()
	}
	return st
}

func (s *Server) handlePresets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"presets": templates.Names()})
}

type createSessionRequest struct {
	Preset     string `json:"preset"`
	TemplateID string `json:"templateId"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.ContentLength != 0 {
		if err := decode(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	sess, err := s.open(r.Context(), req.Preset, req.TemplateID)
	switch {
	case errors.Is(err, editor.ErrUnknownPreset), errors.Is(err, storage.ErrInvalidTemplate):
		writeError(w, http.StatusBadRequest, err)
		return
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
		return
	case errors.Is(err, errTooManySessions):
		writeError(w, http.StatusServiceUnavailable, err)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.log.Info("session opened", slog.String("session", sess.id), slog.String("preset", req.Preset), slog.String("template", req.TemplateID))
	if req.TemplateID != "" {
		telemetry.Event(telemetry.EventTemplateLoaded, map[string]any{"elements": len(sess.ed.Elements())})
	}
	writeJSON(w, http.StatusCreated, stateOf(sess, true))
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	s.close(sess.id)
	s.log.InfoContext(r.Context(), "session closed")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, stateOf(sessionFrom(r), r.URL.Query().Get("elements") == "1"))
}

func (s *Server) handleListElements(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"elements": sessionFrom(r).ed.Ordered()})
}

func (s *Server) handleAddElement(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type string `json:"type"`
	}
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	k, err := scene.ParseKind(req.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	el, err := sessionFrom(r).ed.AddElement(k)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, el)
}

// handleUpdateElement applies a partial update. ?history=1 records a
// checkpoint; otherwise the write is transient.
func (s *Server) handleUpdateElement(w http.ResponseWriter, r *http.Request) {
	var p scene.Patch
	if err := decode(w, r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ed := sessionFrom(r).ed
	id := mux.Vars(r)["id"]
	var ok bool
	if withHistory, _ := strconv.ParseBool(r.URL.Query().Get("history")); withHistory {
		ok = ed.UpdateElementWithHistory(id, p)
	} else {
		ok = ed.UpdateElement(id, p)
	}
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("element not found"))
		return
	}
	el, _ := ed.Element(id)
	writeJSON(w, http.StatusOK, el)
}

func (s *Server) handleDeleteElement(w http.ResponseWriter, r *http.Request) {
	if !sessionFrom(r).ed.DeleteElement(mux.Vars(r)["id"]) {
		writeError(w, http.StatusNotFound, errors.New("element not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleElementOp(w http.ResponseWriter, r *http.Request) {
	ed := sessionFrom(r).ed
	vars := mux.Vars(r)
	id := vars["id"]
	var ok bool
	switch vars["op"] {
	case "front":
		ok = ed.BringToFront(id)
	case "back":
		ok = ed.SendToBack(id)
	case "lock":
		ok = ed.ToggleLock(id)
	case "visibility":
		ok = ed.ToggleVisibility(id)
	}
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("element not found"))
		return
	}
	el, _ := ed.Element(id)
	writeJSON(w, http.StatusOK, el)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sess := sessionFrom(r)
	sess.ed.SetSelected(req.ID)
	writeJSON(w, http.StatusOK, stateOf(sess, false))
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if !sess.ed.Undo() {
		writeError(w, http.StatusConflict, errors.New("nothing to undo"))
		return
	}
	writeJSON(w, http.StatusOK, stateOf(sess, true))
}

func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if !sess.ed.Redo() {
		writeError(w, http.StatusConflict, errors.New("nothing to redo"))
		return
	}
	writeJSON(w, http.StatusOK, stateOf(sess, true))
}

func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key string `json:"key"`
	}
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sess := sessionFrom(r)
	handled := sess.ed.KeyDown(editor.ParseKey(req.Key))
	writeJSON(w, http.StatusOK, map[string]any{"handled": handled, "state": stateOf(sess, false)})
}

func (s *Server) handleGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	gid := sessionFrom(r).ed.Group(req.IDs)
	if gid == "" {
		writeError(w, http.StatusBadRequest, errors.New("grouping needs at least two existing elements"))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"groupId": gid})
}

func (s *Server) handleUngroup(w http.ResponseWriter, r *http.Request) {
	if !sessionFrom(r).ed.Ungroup(mux.Vars(r)["gid"]) {
		writeError(w, http.StatusNotFound, errors.New("group not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAlign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs   []string `json:"ids"`
		Align string   `json:"align"`
	}
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	a, err := editor.ParseAlignment(req.Align)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	changed := sessionFrom(r).ed.Align(req.IDs, a)
	writeJSON(w, http.StatusOK, map[string]bool{"changed": changed})
}

func (s *Server) handleAddSubtotal(w http.ResponseWriter, r *http.Request) {
	els := sessionFrom(r).ed.AddSubtotalSection()
	writeJSON(w, http.StatusCreated, map[string]any{"elements": els})
}

func (s *Server) handleSubtotalComponents(w http.ResponseWriter, r *http.Request) {
	ed := sessionFrom(r).ed
	v := ed.SubtotalComponents()
	if err := decode(w, r, &v); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ed.SetSubtotalComponents(v)
	writeJSON(w, http.StatusOK, ed.SubtotalComponents())
}

// viewRequest changes only the fields that are present.
type viewRequest struct {
	Zoom     *float64 `json:"zoom"`
	GridSize *float64 `json:"gridSize"`
	Snap     *bool    `json:"snap"`
	ShowGrid *bool    `json:"showGrid"`
	Origin   *geom.Pt `json:"origin"`
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	var req viewRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sess := sessionFrom(r)
	ed := sess.ed
	if req.Zoom != nil {
		ed.SetZoom(*req.Zoom)
	}
	if req.GridSize != nil {
		ed.SetGrid(*req.GridSize)
	}
	if req.Snap != nil {
		ed.SetSnap(*req.Snap)
	}
	if req.ShowGrid != nil {
		ed.SetShowGrid(*req.ShowGrid)
	}
	if req.Origin != nil {
		ed.SetCanvasOrigin(*req.Origin)
	}
	writeJSON(w, http.StatusOK, stateOf(sess, false))
}

type pageRequest struct {
	Width      float64           `json:"width"`
	Height     float64           `json:"height"`
	Background *scene.Background `json:"background"`
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	var req pageRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ed := sessionFrom(r).ed
	if req.Width > 0 || req.Height > 0 {
		p := ed.Page()
		if req.Width > 0 {
			p.Width = req.Width
		}
		if req.Height > 0 {
			p.Height = req.Height
		}
		ed.SetPageSize(p.Width, p.Height)
	}
	if req.Background != nil {
		ed.SetBackground(*req.Background)
	}
	writeJSON(w, http.StatusOK, ed.Page())
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	ed := sessionFrom(r).ed
	tc := ed.Table()
	if err := decode(w, r, &tc); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ed.SetTableColumns(tc.Columns)
	ed.SetTableStyles(tc.Styles)
	writeJSON(w, http.StatusOK, ed.Table())
}

func (s *Server) handleLoadPreset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Preset string `json:"preset"`
	}
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sess := sessionFrom(r)
	if err := sess.ed.LoadPreset(req.Preset); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, stateOf(sess, true))
}

func (s *Server) handleCanvas(w http.ResponseWriter, r *http.Request) {
	guides, _ := strconv.ParseBool(r.URL.Query().Get("guides"))
	writeHTML(w, sessionFrom(r).ed.RenderCanvas(guides))
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	ed := sessionFrom(r).ed
	doc := ed.GenerateDocument()
	if full, _ := strconv.ParseBool(r.URL.Query().Get("full")); full {
		page, err := export.Complete(doc, "", ed.Template("").Name)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		doc = page
	}
	telemetry.Event(telemetry.EventExport, map[string]any{"format": "html"})
	writeHTML(w, doc)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	width := export.ThumbnailWidth
	if v, err := strconv.Atoi(r.URL.Query().Get("width")); err == nil && v > 0 && v <= 4096 {
		width = v
	}
	img := export.RenderPreview(sessionFrom(r).ed.Scene(), width)
	var buf bytes.Buffer
	if err := export.WritePNG(&buf, img); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	telemetry.Event(telemetry.EventExport, map[string]any{"format": "png"})
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}

// handleSave stores the session as a template, plus a thumbnail when a
// library is attached.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if r.ContentLength != 0 {
		if err := decode(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	ed := sessionFrom(r).ed
	ed.Save()
	t := ed.Template(req.Name)
	ctx := r.Context()
	if err := s.opts.Repo.Put(ctx, t); err != nil {
		s.log.ErrorContext(ctx, "save template", slog.String("template", t.ID), slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if s.opts.Library != nil {
		if png, err := export.Thumbnail(ed.Scene()); err != nil {
			s.log.WarnContext(ctx, "thumbnail", slog.Any("err", err))
		} else if err := s.opts.Library.PutThumbnail(ctx, t.ID, png); err != nil {
			s.log.WarnContext(ctx, "store thumbnail", slog.Any("err", err))
		}
	}
	sum := storage.Summary{ID: t.ID, Name: t.Name, UpdatedAt: t.UpdatedAt, Elements: len(t.Elements)}
	if s.opts.OnSaved != nil {
		s.opts.OnSaved(sum)
	}
	telemetry.Event(telemetry.EventTemplateSaved, map[string]any{"elements": sum.Elements})
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	list, err := s.opts.Repo.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if list == nil {
		list = []storage.Summary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": list})
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := s.opts.Repo.Get(r.Context(), mux.Vars(r)["tid"])
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.opts.Repo.Delete(r.Context(), mux.Vars(r)["tid"]); err != nil {
		writeStorageError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	if s.opts.Library == nil {
		writeError(w, http.StatusNotFound, storage.ErrNotFound)
		return
	}
	png, err := s.opts.Library.Thumbnail(r.Context(), mux.Vars(r)["tid"])
	if err != nil {
		writeStorageError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

func writeStorageError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeError(w, http.StatusInternalServerError, err)
}

func writeHTML(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(body))
}
