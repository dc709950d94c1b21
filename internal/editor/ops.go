/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"fmt"
	"log/slog"

	"printdesigner/internal/compositor"
	"printdesigner/internal/geom"
	"printdesigner/internal/interaction"
	"printdesigner/internal/scene"
	"printdesigner/internal/templates"
	"printdesigner/internal/version"
)

// BringToFront puts id above every element. The new ZIndex is
// max(all ZIndex, 0) + 1 even when id already holds the maximum.
func (e *Editor) BringToFront(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	z := e.store.MaxZ() + 1
	return e.patchWithHistoryLocked(id, scene.Patch{ZIndex: &z}, "bring to front")
}

// SendToBack puts id below every element: min(all ZIndex, 0) - 1.
func (e *Editor) SendToBack(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	z := e.store.MinZ() - 1
	return e.patchWithHistoryLocked(id, scene.Patch{ZIndex: &z}, "send to back")
}

func (e *Editor) ToggleLock(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	el, ok := e.store.Get(id)
	if !ok {
		return false
	}
	locked := !el.Locked
	return e.patchWithHistoryLocked(id, scene.Patch{Locked: &locked}, "toggle lock")
}

func (e *Editor) ToggleVisibility(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	el, ok := e.store.Get(id)
	if !ok {
		return false
	}
	visible := !el.Visible
	return e.patchWithHistoryLocked(id, scene.Patch{Visible: &visible}, "toggle visibility")
}

func (e *Editor) patchWithHistoryLocked(id string, p scene.Patch, label string) bool {
	if !e.store.Update(id, p) {
		return false
	}
	e.checkpointLocked(label)
	return true
}

// Group tags the existing elements among ids with a fresh group id so that
// dragging one moves all of them. Fewer than two existing elements is a
// no-op and returns "".
func (e *Editor) Group(ids []string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var members []string
	for _, id := range ids {
		if _, ok := e.store.Get(id); ok {
			members = append(members, id)
		}
	}
	if len(members) < 2 {
		return ""
	}
	gid := "group-" + e.newID()
	for _, id := range members {
		e.store.Update(id, scene.Patch{GroupID: &gid})
	}
	e.checkpointLocked("group")
	return gid
}

// Ungroup clears groupID from its members.
func (e *Editor) Ungroup(groupID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	members := e.store.Group(groupID)
	if len(members) == 0 {
		return false
	}
	none := ""
	for _, id := range members {
		e.store.Update(id, scene.Patch{GroupID: &none})
	}
	e.checkpointLocked("ungroup")
	return true
}

// Alignment names an edge or centre line of the selection bounds.
type Alignment string

const (
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
	AlignRight  Alignment = "right"
	AlignTop    Alignment = "top"
	AlignMiddle Alignment = "middle"
	AlignBottom Alignment = "bottom"
)

// ParseAlignment validates an alignment name.
func ParseAlignment(s string) (Alignment, error) {
	switch a := Alignment(s); a {
	case AlignLeft, AlignCenter, AlignRight, AlignTop, AlignMiddle, AlignBottom:
		return a, nil
	}
	return "", fmt.Errorf("unknown alignment %q", s)
}

// Align lines up the elements among ids against the union of their bounds.
// An empty ids aligns the selected element. Locked elements keep their
// position but still count towards the bounds.
func (e *Editor) Align(ids []string, a Alignment) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(ids) == 0 && e.ctx.Selected != "" {
		ids = []string{e.ctx.Selected}
	}
	var els []scene.Element
	var rects []geom.Rect
	for _, id := range ids {
		if el, ok := e.store.Get(id); ok {
			els = append(els, el)
			rects = append(rects, el.Bounds())
		}
	}
	if len(els) == 0 {
		return false
	}
	b := geom.Bounds(rects...)
	c := b.Center()
	changed := false
	for _, el := range els {
		if el.Locked {
			continue
		}
		x, y := el.X, el.Y
		switch a {
		case AlignLeft:
			x = b.X
		case AlignCenter:
			x = c.X - el.Width/2
		case AlignRight:
			x = b.X + b.W - el.Width
		case AlignTop:
			y = b.Y
		case AlignMiddle:
			y = c.Y - el.Height/2
		case AlignBottom:
			y = b.Y + b.H - el.Height
		default:
			return false
		}
		if x != el.X || y != el.Y {
			e.store.Update(el.ID, scene.Move(x, y))
			changed = true
		}
	}
	if changed {
		e.checkpointLocked("align " + string(a))
	}
	return changed
}

// AddSubtotalSection appends the summary block above every existing
// element, honouring the current subtotal visibility.
func (e *Editor) AddSubtotalSection() []scene.Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	els := templates.SubtotalSection(e.newID, e.store.MaxZ()+1, e.subtotal)
	e.store.Replace(append(e.store.All(), els...))
	e.checkpointLocked("add subtotal section")
	return els
}

// SubtotalComponents returns which summary lines are shown.
func (e *Editor) SubtotalComponents() templates.SubtotalVisibility {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.subtotal
}

// SetSubtotalComponents shows or hides the subtotal, tax and total lines
// already on the page and records v for sections added later.
func (e *Editor) SetSubtotalComponents(v templates.SubtotalVisibility) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subtotal = v
	changed := false
	for _, el := range e.store.All() {
		role := templates.SubtotalRole(el)
		if role == "" || el.Visible == v.Shown(role) {
			continue
		}
		shown := v.Shown(role)
		e.store.Update(el.ID, scene.Patch{Visible: &shown})
		changed = true
	}
	if changed {
		e.checkpointLocked("subtotal components")
	}
}

// Template builds the persisted record of the current document. Styles are
// fully defaulted so the record renders the same without the editor's
// default table. name, when non-empty, renames the document.
func (e *Editor) Template(name string) scene.Template {
	e.mu.Lock()
	defer e.mu.Unlock()
	if name != "" {
		e.name = name
	}
	if e.templateID == "" {
		e.templateID = scene.NewTemplateID()
	}
	els := e.store.All()
	for i := range els {
		els[i] = compositor.Defaulted(els[i])
	}
	table, invoice := e.table, e.invoice
	return scene.Template{
		ID:               e.templateID,
		Name:             e.name,
		CreatedAt:        e.createdAt,
		UpdatedAt:        e.now(),
		CanvasSize:       e.page.Size,
		CanvasBackground: e.page.Background,
		Elements:         els,
		Table:            &table,
		Invoice:          &invoice,
		Metadata:         &scene.Metadata{Version: scene.FormatVersion, CreatedBy: "printdesigner " + version.String()},
	}
}

// LoadTemplate replaces the page and elements with t and pushes one
// checkpoint. Invalid records leave the editor untouched.
func (e *Editor) LoadTemplate(t scene.Template) error {
	if err := t.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.store.Replace(t.Elements)
	e.page = t.Page()
	if t.Table != nil {
		e.table = *t.Table
	}
	if t.Invoice != nil {
		e.invoice = *t.Invoice
	}
	e.name, e.templateID = t.Name, t.ID
	if !t.CreatedAt.IsZero() {
		e.createdAt = t.CreatedAt
	}
	e.ctx.Selected = ""
	e.ctx.Session = interaction.Session{}
	e.checkpointLocked("load template")
	e.log.Info("template loaded", slog.String("template", t.ID), slog.Int("elements", len(t.Elements)))
	return nil
}

// LoadPreset replaces the document with a built-in layout. The session
// starts a new template id on the next Template call.
func (e *Editor) LoadPreset(name string) error {
	doc, err := templates.Preset(name, e.now())
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.store.Replace(doc.Elements)
	e.page = doc.Page
	e.name = doc.Name
	e.templateID = ""
	e.createdAt = e.now()
	e.ctx.Selected = ""
	e.ctx.Session = interaction.Session{}
	e.checkpointLocked("preset " + name)
	return nil
}
