/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package interaction

import (
	"testing"

	"printdesigner/internal/geom"
	"printdesigner/internal/scene"
)

func box(id string, x, y, w, h float64) scene.Element {
	return scene.Element{ID: id, Kind: scene.KindRectangle, X: x, Y: y, Width: w, Height: h, Visible: true, Style: scene.ShapeStyle{}}
}

// run feeds events through Step and applies the updates the way the editor does.
func run(t *testing.T, ctx Context, st *scene.Store, evs ...Event) (Context, int) {
	t.Helper()
	commits := 0
	for _, ev := range evs {
		var res Result
		ctx, res = Step(ctx, st, ev)
		for _, u := range res.Updates {
			st.Update(u.ID, u.Patch)
		}
		if res.Commit {
			commits++
		}
	}
	return ctx, commits
}

func at(t EventType, x, y float64) Event { return Event{Type: t, Pos: geom.Pt{X: x, Y: y}} }

func gridView(size float64, snap bool) View {
	return View{View: geom.View{Zoom: 1}, Grid: Grid{Size: size, Snap: snap, Show: true}}
}

func TestDragSnapsToGrid(t *testing.T) {
	st := scene.NewStore()
	el := st.Add(box("a", 100, 100, 80, 40))
	ctx := Context{View: gridView(20, true)}

	ctx, commits := run(t, ctx, st,
		at(PointerDown, 110, 110),
		at(PointerMove, 147, 162),
		at(PointerUp, 147, 162),
	)
	got, _ := st.Get(el.ID)
	if got.X != 140 || got.Y != 160 {
		t.Fatalf("position: got (%v,%v) want (140,160)", got.X, got.Y)
	}
	if commits != 1 {
		t.Fatalf("commits: got %d want 1", commits)
	}
	if ctx.Capturing() || ctx.Selected != "a" {
		t.Fatalf("after up: %+v", ctx)
	}
}

func TestDragWithoutSnapIsRaw(t *testing.T) {
	st := scene.NewStore(box("a", 100, 100, 80, 40))
	ctx := Context{View: gridView(20, false)}
	run(t, ctx, st, at(PointerDown, 100, 100), at(PointerMove, 137, 152))
	if got, _ := st.Get("a"); got.X != 137 || got.Y != 152 {
		t.Fatalf("got (%v,%v) want (137,152)", got.X, got.Y)
	}
}

func TestDragHonoursZoomAndOrigin(t *testing.T) {
	st := scene.NewStore(box("a", 100, 100, 80, 40))
	ctx := Context{View: View{View: geom.View{Zoom: 2, Origin: geom.Pt{X: 50, Y: 30}}}}
	// element origin on screen: 50+100*2, 30+100*2
	run(t, ctx, st, at(PointerDown, 260, 240), at(PointerMove, 280, 250))
	if got, _ := st.Get("a"); got.X != 110 || got.Y != 105 {
		t.Fatalf("got (%v,%v) want (110,105)", got.X, got.Y)
	}
}

func TestLockedElementNeverStartsSession(t *testing.T) {
	locked := box("l", 0, 0, 100, 100)
	locked.Locked = true
	st := scene.NewStore(locked)
	ctx := Context{Selected: "l", View: gridView(0, false)}

	ctx, _ = run(t, ctx, st, at(PointerDown, 50, 50))
	if ctx.Capturing() {
		t.Fatalf("locked element entered %v", ctx.Session.Mode)
	}
	if ctx.Selected != "" {
		t.Fatalf("pointer-down through a locked element onto the canvas must deselect")
	}
	ctx = Context{Selected: "l", View: gridView(0, false)}
	ctx, _ = run(t, ctx, st, at(PointerDown, 100, 100))
	if ctx.Session.Mode == Resizing {
		t.Fatalf("locked element exposes no handles")
	}
}

func TestLockedElementPassesPointerThrough(t *testing.T) {
	under := box("under", 0, 0, 100, 100)
	over := box("over", 0, 0, 100, 100)
	over.ZIndex, over.Locked = 5, true
	st := scene.NewStore(under, over)
	ctx, _ := run(t, Context{View: gridView(0, false)}, st, at(PointerDown, 10, 10))
	if ctx.Session.Mode != Dragging || ctx.Session.Target != "under" {
		t.Fatalf("expected drag of element beneath, got %+v", ctx.Session)
	}
}

func TestResizeCornersKeepMinimum(t *testing.T) {
	cases := []struct {
		h          Handle
		mx, my     float64
		x, y, w, z float64
	}{
		{HandleSE, 0, 0, 100, 100, 20, 20},
		{HandleSE, 250, 180, 100, 100, 150, 80},
		{HandleSW, 500, 180, 180, 100, 20, 80},
		{HandleNE, 250, 500, 100, 180, 150, 20},
		{HandleNW, 60, 40, 60, 40, 140, 160},
		{HandleNW, 999, 999, 180, 180, 20, 20},
	}
	for _, c := range cases {
		st := scene.NewStore(box("a", 100, 100, 100, 100))
		ctx := Context{Selected: "a", View: gridView(0, false)}
		anchor := c.h.Anchor(geom.R(100, 100, 100, 100))
		ctx, _ = run(t, ctx, st, Event{Type: PointerDown, Pos: anchor})
		if ctx.Session.Mode != Resizing || ctx.Session.Handle != c.h {
			t.Fatalf("%s: did not start resizing: %+v", c.h, ctx.Session)
		}
		run(t, ctx, st, at(PointerMove, c.mx, c.my))
		got, _ := st.Get("a")
		if got.X != c.x || got.Y != c.y || got.Width != c.w || got.Height != c.z {
			t.Fatalf("%s to (%v,%v): got %v,%v %vx%v want %v,%v %vx%v", c.h, c.mx, c.my,
				got.X, got.Y, got.Width, got.Height, c.x, c.y, c.w, c.z)
		}
		if got.Width < scene.MinSize || got.Height < scene.MinSize {
			t.Fatalf("%s: below minimum %vx%v", c.h, got.Width, got.Height)
		}
	}
}

func TestResizeSnapRaisesToGridMinimum(t *testing.T) {
	st := scene.NewStore(box("a", 0, 0, 100, 100))
	ctx := Context{Selected: "a", View: gridView(15, true)}
	run(t, ctx, st, at(PointerDown, 100, 100), at(PointerMove, 21, 21))
	got, _ := st.Get("a")
	if got.Width != 30 || got.Height != 30 {
		t.Fatalf("got %vx%v want 30x30", got.Width, got.Height)
	}
}

func TestEscapeEndsSessionWithoutRevert(t *testing.T) {
	st := scene.NewStore(box("a", 0, 0, 50, 50))
	ctx := Context{View: gridView(0, false)}
	ctx, commits := run(t, ctx, st, at(PointerDown, 10, 10), at(PointerMove, 30, 10), Event{Type: Escape})
	if ctx.Capturing() || ctx.Selected != "" {
		t.Fatalf("escape left %+v", ctx)
	}
	if got, _ := st.Get("a"); got.X != 20 {
		t.Fatalf("escape must not revert geometry, x=%v", got.X)
	}
	if commits != 1 {
		t.Fatalf("moved session should commit once on escape, got %d", commits)
	}
	_, commits = run(t, Context{Selected: "a"}, st, Event{Type: Escape})
	if commits != 0 {
		t.Fatalf("escape without a session must not commit")
	}
}

func TestCaptureLostActsAsPointerUp(t *testing.T) {
	st := scene.NewStore(box("a", 0, 0, 50, 50))
	ctx, commits := run(t, Context{View: gridView(0, false)}, st,
		at(PointerDown, 10, 10), at(PointerMove, 20, 20), Event{Type: CaptureLost})
	if ctx.Capturing() || commits != 1 {
		t.Fatalf("capture lost: capturing=%v commits=%d", ctx.Capturing(), commits)
	}
}

func TestIdleIgnoresMoveAndUp(t *testing.T) {
	st := scene.NewStore(box("a", 0, 0, 50, 50))
	ctx, commits := run(t, Context{}, st, at(PointerMove, 10, 10), at(PointerUp, 10, 10))
	if commits != 0 || ctx.Capturing() {
		t.Fatalf("idle events had effect: commits=%d", commits)
	}
}

func TestEmptyCanvasClearsSelection(t *testing.T) {
	st := scene.NewStore(box("a", 0, 0, 50, 50))
	ctx, res := Step(Context{Selected: "a"}, st, at(PointerDown, 400, 400))
	if ctx.Selected != "" || !res.SelectionChanged {
		t.Fatalf("selection: %q changed=%v", ctx.Selected, res.SelectionChanged)
	}
}

func TestGroupMovesTogether(t *testing.T) {
	a, b, c := box("a", 0, 0, 50, 50), box("b", 100, 0, 50, 50), box("c", 200, 0, 50, 50)
	a.GroupID, b.GroupID, c.GroupID = "g", "g", "g"
	c.Locked = true
	st := scene.NewStore(a, b, c)
	run(t, Context{View: gridView(0, false)}, st, at(PointerDown, 10, 10), at(PointerMove, 20, 15))
	if got, _ := st.Get("b"); got.X != 110 || got.Y != 5 {
		t.Fatalf("group member: got (%v,%v)", got.X, got.Y)
	}
	if got, _ := st.Get("c"); got.X != 200 {
		t.Fatalf("locked group member moved to %v", got.X)
	}
}

func TestTargetRemovedMidSession(t *testing.T) {
	st := scene.NewStore(box("a", 0, 0, 50, 50))
	ctx, _ := run(t, Context{}, st, at(PointerDown, 10, 10))
	st.Remove("a")
	ctx, _ = run(t, ctx, st, at(PointerMove, 30, 30))
	if ctx.Capturing() {
		t.Fatalf("session should end when its target disappears")
	}
}
