/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor is one editing session over a document: it owns the scene
// store, the undo timeline and the pointer session context, and is the only
// place where store mutations are paired with history checkpoints. Editor
// methods are safe for concurrent use; calls are serialised.
package editor

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"printdesigner/internal/compositor"
	"printdesigner/internal/geom"
	"printdesigner/internal/history"
	"printdesigner/internal/interaction"
	applog "printdesigner/internal/log"
	"printdesigner/internal/scene"
	"printdesigner/internal/templates"
)

// ErrUnknownPreset is returned by New and LoadPreset for preset names
// templates does not know.
var ErrUnknownPreset = templates.ErrUnknownPreset

// Zoom limits and step of ZoomIn/ZoomOut.
const (
	MinZoom  = 0.25
	MaxZoom  = 2.0
	ZoomStep = 0.25
)

// Options configures a new session. Zero values pick the defaults.
type Options struct {
	Grid       interaction.Grid
	Zoom       float64
	MaxHistory int
	// Preset is the document the session opens with; "" means "default".
	Preset string
	// OnSave receives the generated document and an always-empty stylesheet.
	OnSave       func(html, css string)
	OnCheckpoint func(history.Snapshot)
	NewID        func() string
	Now          func() time.Time
	Logger       *slog.Logger
}

// Editor is one editing session.
type Editor struct {
	mu sync.Mutex

	store   *scene.Store
	page    scene.Page
	table   scene.TableConfig
	invoice scene.InvoiceData
	ctx     interaction.Context
	hist    *history.Manager

	subtotal templates.SubtotalVisibility

	name       string
	templateID string
	createdAt  time.Time

	onSave func(html, css string)
	newID  func() string
	now    func() time.Time
	log    *slog.Logger
}

// New opens a session on the requested preset.
func New(opts Options) (*Editor, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return ulid.Make().String() }
	}
	if opts.Logger == nil {
		opts.Logger = applog.WithComponent("editor")
	}
	if opts.Preset == "" {
		opts.Preset = "default"
	}
	doc, err := templates.Preset(opts.Preset, opts.Now())
	if err != nil {
		return nil, err
	}
	if opts.Grid.Size <= 0 {
		opts.Grid.Size = 20
	}
	e := &Editor{
		store:    scene.NewStore(doc.Elements...),
		page:     doc.Page,
		table:    scene.DefaultTableConfig(),
		invoice:  scene.SampleInvoice(),
		subtotal: templates.SubtotalVisibility{Subtotal: true, Tax: true, Total: true},
		name:     doc.Name,
		onSave:   opts.OnSave,
		newID:    opts.NewID,
		now:      opts.Now,
		log:      opts.Logger,
	}
	e.createdAt = opts.Now()
	zoom := opts.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	e.ctx.View = interaction.View{View: geom.View{Zoom: clampZoom(zoom)}, Grid: opts.Grid}
	e.hist = history.NewManager(history.Config{MaxEntries: opts.MaxHistory, OnCheckpoint: opts.OnCheckpoint, Now: opts.Now}, e.store.All())
	return e, nil
}

func clampZoom(z float64) float64 { return geom.Clamp(z, MinZoom, MaxZoom) }

func (e *Editor) checkpointLocked(label string) {
	e.hist.Checkpoint(e.store.All(), label)
	e.log.Debug("checkpoint", slog.String("label", label), slog.Int("elements", e.store.Len()))
}

// Elements returns copies of all elements in insertion order.
func (e *Editor) Elements() []scene.Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.All()
}

// Ordered returns copies of all elements in paint order.
func (e *Editor) Ordered() []scene.Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Ordered()
}

func (e *Editor) Element(id string) (scene.Element, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Get(id)
}

// Selected returns the selected element id, or "".
func (e *Editor) Selected() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ctx.Selected
}

// SetSelected selects id; "" clears the selection. Unknown ids are ignored.
func (e *Editor) SetSelected(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if id == "" {
		e.ctx.Selected = ""
		return
	}
	if _, ok := e.store.Get(id); ok {
		e.ctx.Selected = id
	}
}

// Context returns the current interaction context.
func (e *Editor) Context() interaction.Context {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ctx
}

// AddElement adds a new element of kind k at (100,100), snapped when snap
// is on, above every existing element, selects it and checkpoints.
func (e *Editor) AddElement(k scene.Kind) (scene.Element, error) {
	if !k.Valid() {
		return scene.Element{}, fmt.Errorf("add element: unknown kind %q", k)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	el := templates.NewElement(k)
	el.ID = e.newID()
	pos := 100.0
	if e.ctx.View.Grid.Snap {
		pos = geom.Snap(pos, e.ctx.View.Grid.Size)
	}
	el.X, el.Y = pos, pos
	el = e.store.Add(el)
	e.ctx.Selected = el.ID
	e.checkpointLocked("add " + string(k))
	return el, nil
}

// UpdateElement merges p into element id without checkpointing. Unknown ids
// are ignored.
func (e *Editor) UpdateElement(id string, p scene.Patch) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Update(id, p)
}

// UpdateElementWithHistory is UpdateElement followed by a checkpoint.
func (e *Editor) UpdateElementWithHistory(id string, p scene.Patch) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.store.Update(id, p) {
		return false
	}
	e.checkpointLocked("update")
	return true
}

// DeleteElement removes id, clears it from the selection and checkpoints.
func (e *Editor) DeleteElement(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.deleteLocked(id)
}

func (e *Editor) deleteLocked(id string) bool {
	if !e.store.Remove(id) {
		return false
	}
	if e.ctx.Selected == id {
		e.ctx.Selected = ""
	}
	if e.ctx.Session.Target == id {
		e.ctx.Session = interaction.Session{}
	}
	e.checkpointLocked("delete")
	return true
}

// Undo restores the previous checkpoint. It reports false at the oldest entry.
func (e *Editor) Undo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	els, ok := e.hist.Undo()
	if ok {
		e.restoreLocked(els)
	}
	return ok
}

// Redo restores the next checkpoint. It reports false at the newest entry.
func (e *Editor) Redo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	els, ok := e.hist.Redo()
	if ok {
		e.restoreLocked(els)
	}
	return ok
}

func (e *Editor) restoreLocked(els []scene.Element) {
	e.store.Replace(els)
	e.ctx.Session = interaction.Session{}
	if _, ok := e.store.Get(e.ctx.Selected); !ok {
		e.ctx.Selected = ""
	}
}

func (e *Editor) CanUndo() bool { return e.hist.CanUndo() }
func (e *Editor) CanRedo() bool { return e.hist.CanRedo() }

// HistoryStats returns the timeline length and cursor.
func (e *Editor) HistoryStats() (entries, cursor int) { return e.hist.Stats() }

// Pointer feeds one pointer event through the interaction state machine,
// applies the resulting geometry and checkpoints when a session ends. The
// returned context is the one the event stepped to.
func (e *Editor) Pointer(ev interaction.Event) (interaction.Context, interaction.Result) {
	e.mu.Lock()
	defer e.mu.Unlock()
	res := e.stepLocked(ev)
	return e.ctx, res
}

func (e *Editor) stepLocked(ev interaction.Event) interaction.Result {
	next, res := interaction.Step(e.ctx, e.store, ev)
	e.ctx = next
	for _, u := range res.Updates {
		e.store.Update(u.ID, u.Patch)
	}
	if res.Commit {
		e.checkpointLocked("pointer")
	}
	return res
}

// SetGrid sets the grid pitch; non-positive sizes are ignored.
func (e *Editor) SetGrid(size float64) {
	if size <= 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ctx.View.Grid.Size = size
}

func (e *Editor) SetSnap(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ctx.View.Grid.Snap = on
}

func (e *Editor) SetShowGrid(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ctx.View.Grid.Show = on
}

// SetZoom sets the zoom factor, clamped to [MinZoom, MaxZoom].
func (e *Editor) SetZoom(z float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ctx.View.Zoom = clampZoom(z)
	return e.ctx.View.Zoom
}

func (e *Editor) ZoomIn() float64  { return e.zoomBy(ZoomStep) }
func (e *Editor) ZoomOut() float64 { return e.zoomBy(-ZoomStep) }

func (e *Editor) zoomBy(d float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ctx.View.Zoom = clampZoom(e.ctx.View.Zoom + d)
	return e.ctx.View.Zoom
}

// SetCanvasOrigin records where the page's top-left corner sits on the
// pointer surface.
func (e *Editor) SetCanvasOrigin(p geom.Pt) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ctx.View.Origin = p
}

// Page returns the page configuration.
func (e *Editor) Page() scene.Page {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.page
}

// SetPageSize changes the page dimensions; non-positive values are ignored.
func (e *Editor) SetPageSize(w, h float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if w > 0 {
		e.page.Width = w
	}
	if h > 0 {
		e.page.Height = h
	}
}

func (e *Editor) SetBackground(bg scene.Background) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.page.Background = bg
}

func (e *Editor) Table() scene.TableConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.table
}

func (e *Editor) SetTableColumns(c scene.Columns) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.table.Columns = c
}

func (e *Editor) SetTableStyles(s scene.TableStyles) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.table.Styles = s
}

func (e *Editor) sceneLocked() compositor.Scene {
	return compositor.Scene{
		Page:     e.page,
		Elements: e.store.All(),
		Data:     compositor.Data{Table: e.table, Invoice: e.invoice},
	}
}

// Scene returns the compositor input for the current state.
func (e *Editor) Scene() compositor.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sceneLocked()
}

// GenerateDocument renders the standalone export document.
func (e *Editor) GenerateDocument() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return compositor.Document(e.sceneLocked(), e.name)
}

// RenderCanvas renders the live editing view.
func (e *Editor) RenderCanvas(guides bool) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	g := e.ctx.View.Grid
	return compositor.RenderCanvas(e.sceneLocked(), compositor.Canvas{
		Selected: e.ctx.Selected, Zoom: e.ctx.View.Zoom,
		GridSize: g.Size, ShowGrid: g.Show, Guides: guides,
	})
}

// Save generates the document and hands it to the OnSave callback with an
// empty stylesheet. The document is also returned.
func (e *Editor) Save() string {
	e.mu.Lock()
	doc := compositor.Document(e.sceneLocked(), e.name)
	cb := e.onSave
	e.mu.Unlock()
	if cb != nil {
		cb(doc, "")
	}
	e.log.Info("template saved", slog.Int("bytes", len(doc)))
	return doc
}
