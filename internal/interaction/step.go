/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package interaction

import (
	"math"

	"printdesigner/internal/geom"
	"printdesigner/internal/scene"
)

// Step advances the session by one event.
func Step(ctx Context, sc Scene, ev Event) (Context, Result) {
	switch ev.Type {
	case PointerDown:
		return pointerDown(ctx, sc, ev.Pos)
	case PointerMove:
		return pointerMove(ctx, sc, ev.Pos)
	case PointerUp, CaptureLost:
		if !ctx.Capturing() {
			return ctx, Result{}
		}
		ctx.Session = Session{}
		return ctx, Result{Commit: true}
	case Escape:
		res := Result{Commit: ctx.Session.Moved, SelectionChanged: ctx.Selected != ""}
		ctx.Session = Session{}
		ctx.Selected = ""
		return ctx, res
	}
	return ctx, Result{}
}

// HitHandle returns the corner grip of the selected element under p (canvas units).
func HitHandle(ctx Context, sc Scene, p geom.Pt) (Handle, bool) {
	if ctx.Selected == "" {
		return HandleNone, false
	}
	el, ok := sc.Get(ctx.Selected)
	if !ok || el.Locked {
		return HandleNone, false
	}
	for _, h := range CornerHandles {
		if geom.Square(h.Anchor(el.Bounds()), HandleSize).Contains(p) {
			return h, true
		}
	}
	return HandleNone, false
}

// HitElement returns the topmost unlocked element under p (canvas units).
// Locked elements let the pointer through to whatever lies beneath.
func HitElement(sc Scene, p geom.Pt) (scene.Element, bool) {
	ord := sc.Ordered()
	for i := len(ord) - 1; i >= 0; i-- {
		if e := ord[i]; !e.Locked && e.Bounds().Contains(p) {
			return e, true
		}
	}
	return scene.Element{}, false
}

func pointerDown(ctx Context, sc Scene, pos geom.Pt) (Context, Result) {
	if ctx.Capturing() {
		return ctx, Result{}
	}
	p := ctx.View.ToCanvas(pos)
	local := ctx.View.ToLocal(pos)
	zoom := zoomOf(ctx.View)

	if h, ok := HitHandle(ctx, sc, p); ok {
		el, _ := sc.Get(ctx.Selected)
		ctx.Session = Session{Mode: Resizing, Target: el.ID, Handle: h, Offset: offset(local, el, zoom)}
		return ctx, Result{}
	}
	if el, ok := HitElement(sc, p); ok {
		changed := ctx.Selected != el.ID
		ctx.Selected = el.ID
		ctx.Session = Session{Mode: Dragging, Target: el.ID, Offset: offset(local, el, zoom)}
		return ctx, Result{SelectionChanged: changed}
	}
	changed := ctx.Selected != ""
	ctx.Selected = ""
	return ctx, Result{SelectionChanged: changed}
}

func offset(local geom.Pt, el scene.Element, zoom float64) geom.Pt {
	return local.Sub(geom.Pt{X: el.X, Y: el.Y}.Scale(zoom))
}

func zoomOf(v View) float64 {
	if v.Zoom <= 0 {
		return 1
	}
	return v.Zoom
}

func pointerMove(ctx Context, sc Scene, pos geom.Pt) (Context, Result) {
	s := ctx.Session
	if s.Mode == Idle {
		return ctx, Result{}
	}
	el, ok := sc.Get(s.Target)
	if !ok || el.Locked {
		// target vanished or was locked mid-session
		ctx.Session = Session{}
		return ctx, Result{Commit: s.Moved}
	}
	var ups []Update
	switch s.Mode {
	case Dragging:
		ups = drag(ctx.View, sc, el, s.Offset, pos)
	case Resizing:
		ups = resize(ctx.View, el, s.Handle, ctx.View.ToCanvas(pos))
	}
	if len(ups) > 0 {
		ctx.Session.Moved = true
	}
	return ctx, Result{Updates: ups}
}

func drag(v View, sc Scene, el scene.Element, off geom.Pt, pos geom.Pt) []Update {
	zoom := zoomOf(v)
	local := v.ToLocal(pos)
	x := v.Grid.snap((local.X - off.X) / zoom)
	y := v.Grid.snap((local.Y - off.Y) / zoom)
	dx, dy := x-el.X, y-el.Y
	if dx == 0 && dy == 0 {
		return nil
	}
	ups := []Update{{ID: el.ID, Patch: scene.Move(x, y)}}
	if el.GroupID == "" {
		return ups
	}
	for _, m := range sc.Ordered() {
		if m.ID == el.ID || m.GroupID != el.GroupID || m.Locked {
			continue
		}
		ups = append(ups, Update{ID: m.ID, Patch: scene.Move(m.X+dx, m.Y+dy)})
	}
	return ups
}

// resize applies the handle's edge rules, clamps to the minimum size and
// then snaps each of x, y, width and height independently.
func resize(v View, el scene.Element, h Handle, mouse geom.Pt) []Update {
	x, y, w, hh := el.X, el.Y, el.Width, el.Height
	right, bottom := el.X+el.Width, el.Y+el.Height
	const minSize = scene.MinSize

	switch h {
	case HandleE, HandleNE, HandleSE:
		w = math.Max(minSize, mouse.X-el.X)
	case HandleW, HandleNW, HandleSW:
		w = math.Max(minSize, right-mouse.X)
		x = math.Min(right-minSize, mouse.X)
	}
	switch h {
	case HandleS, HandleSE, HandleSW:
		hh = math.Max(minSize, mouse.Y-el.Y)
	case HandleN, HandleNE, HandleNW:
		hh = math.Max(minSize, bottom-mouse.Y)
		y = math.Min(bottom-minSize, mouse.Y)
	}

	x, y = v.Grid.snap(x), v.Grid.snap(y)
	w, hh = v.Grid.snapSize(w), v.Grid.snapSize(hh)
	if x == el.X && y == el.Y && w == el.Width && hh == el.Height {
		return nil
	}
	return []Update{{ID: el.ID, Patch: scene.Resize(x, y, w, hh)}}
}
