/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import (
	"encoding/json"
	"strings"
	"testing"

	"printdesigner/internal/geom"
)

func rect(id string, x, y, w, h float64, z int) Element {
	return Element{ID: id, Kind: KindRectangle, X: x, Y: y, Width: w, Height: h, ZIndex: z, Visible: true}
}

func TestAddAssignsZAboveMax(t *testing.T) {
	s := NewStore()
	if got := s.Add(Element{ID: "a", Kind: KindText}).ZIndex; got != 1 {
		t.Fatalf("first element z: got %d want 1", got)
	}
	s = NewStore(rect("n", 0, 0, 10, 10, -4))
	if got := s.Add(Element{ID: "b", Kind: KindText}).ZIndex; got != 1 {
		t.Fatalf("z with only negative layers: got %d want 1", got)
	}
	s = NewStore(rect("x", 0, 0, 10, 10, 7))
	if got := s.Add(Element{ID: "c", Kind: KindLine}).ZIndex; got != 8 {
		t.Fatalf("z: got %d want 8", got)
	}
}

func TestUpdateMergesAndClamps(t *testing.T) {
	s := NewStore(rect("a", 10, 10, 100, 50, 1))
	w, h := -5.0, 0.0
	content := "hello"
	if !s.Update("a", Patch{Width: &w, Height: &h, Content: &content}) {
		t.Fatalf("Update reported unknown id")
	}
	e, _ := s.Get("a")
	if e.Width != MinSize || e.Height != MinSize {
		t.Fatalf("non-positive sizes not clamped: %vx%v", e.Width, e.Height)
	}
	if e.X != 10 || e.Content != "hello" {
		t.Fatalf("merge lost fields: %+v", e)
	}
	thin := 2.0
	s.Update("a", Patch{Height: &thin})
	if e, _ = s.Get("a"); e.Height != 2 {
		t.Fatalf("thin height should be kept, got %v", e.Height)
	}
	if s.Update("missing", Move(1, 1)) || s.Remove("missing") {
		t.Fatalf("unknown ids must be no-ops")
	}
}

func TestStyleReplacementIsCoercedToKind(t *testing.T) {
	s := NewStore(rect("r", 0, 0, 10, 10, 1))
	s.Update("r", Patch{Style: Attrs{
		Box:        Box{BackgroundColor: "#fff"},
		Typography: Typography{FontSize: 30},
	}})
	e, _ := s.Get("r")
	st, ok := e.Style.(ShapeStyle)
	if !ok {
		t.Fatalf("rectangle style: got %T", e.Style)
	}
	if st.BackgroundColor != "#fff" {
		t.Fatalf("background lost: %+v", st)
	}
	if _, ok := TypographyOf(e.Style); ok {
		t.Fatalf("shape style must not carry typography")
	}
}

func TestOrderedIsStableByZ(t *testing.T) {
	s := NewStore(rect("a", 0, 0, 1, 1, 3), rect("b", 0, 0, 1, 1, 1), rect("c", 0, 0, 1, 1, 3), rect("d", 0, 0, 1, 1, -1))
	var ids []string
	for _, e := range s.Ordered() {
		ids = append(ids, e.ID)
	}
	if got := strings.Join(ids, ","); got != "d,b,a,c" {
		t.Fatalf("paint order: got %q want %q", got, "d,b,a,c")
	}
	if s.MaxZ() != 3 || s.MinZ() != -1 {
		t.Fatalf("MaxZ/MinZ: %d %d", s.MaxZ(), s.MinZ())
	}
}

func TestAllReturnsCopies(t *testing.T) {
	s := NewStore(rect("a", 0, 0, 1, 1, 1))
	all := s.All()
	all[0].X = 999
	if e, _ := s.Get("a"); e.X != 0 {
		t.Fatalf("store mutated through All() copy")
	}
}

func TestTopmostAt(t *testing.T) {
	s := NewStore(rect("low", 0, 0, 100, 100, 1), rect("high", 50, 50, 100, 100, 2))
	e, ok := s.TopmostAt(geom.Pt{X: 60, Y: 60}, nil)
	if !ok || e.ID != "high" {
		t.Fatalf("topmost: got %q %v", e.ID, ok)
	}
	e, ok = s.TopmostAt(geom.Pt{X: 60, Y: 60}, func(e Element) bool { return e.ID != "high" })
	if !ok || e.ID != "low" {
		t.Fatalf("filtered topmost: got %q %v", e.ID, ok)
	}
	if _, ok := s.TopmostAt(geom.Pt{X: 500, Y: 500}, nil); ok {
		t.Fatalf("empty point should miss")
	}
}

func TestElementJSON(t *testing.T) {
	in := Element{
		ID: "t1", Kind: KindText, X: 1, Y: 2, Width: 30, Height: 40, ZIndex: 3, Visible: true,
		Content: "hi",
		Style:   TextStyle{Box: Box{Padding: 4}, Typography: Typography{FontSize: 12, Color: "#333"}},
	}
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, want := range []string{`"type":"text"`, `"fontSize":12`, `"padding":4`, `"zIndex":3`} {
		if !strings.Contains(string(b), want) {
			t.Fatalf("json %s missing %s", b, want)
		}
	}
	var out Element
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out != in {
		t.Fatalf("round trip: got %+v want %+v", out, in)
	}

	var hidden Element
	if err := json.Unmarshal([]byte(`{"id":"x","type":"image","x":0,"y":0,"width":5,"height":5,"content":"","zIndex":1,"locked":false,"style":{"backgroundSize":"contain","fontSize":9}}`), &hidden); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !hidden.Visible {
		t.Fatalf("missing visible must default to true")
	}
	img, ok := hidden.Style.(ImageStyle)
	if !ok || img.Size != "contain" {
		t.Fatalf("image style: %#v", hidden.Style)
	}
	if err := json.Unmarshal([]byte(`{"id":"x","type":"hexagon"}`), &hidden); err == nil {
		t.Fatalf("unknown kind must fail")
	}
}

func TestPatchJSON(t *testing.T) {
	var p Patch
	if err := json.Unmarshal([]byte(`{"x":5,"style":{"color":"#f00"}}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.X == nil || *p.X != 5 || p.Y != nil {
		t.Fatalf("coordinates: %+v", p)
	}
	e := p.Apply(Element{Kind: KindHeader, Style: TextStyle{}})
	if e.Typography().Color != "#f00" {
		t.Fatalf("style not applied: %#v", e.Style)
	}
	if !(Patch{}).Empty() || p.Empty() {
		t.Fatalf("Empty() wrong")
	}
}

func TestParseKind(t *testing.T) {
	if k, err := ParseKind(" QR "); err != nil || k != KindQR {
		t.Fatalf("ParseKind: %v %v", k, err)
	}
	if _, err := ParseKind("star"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestInvoiceTotals(t *testing.T) {
	d := SampleInvoice()
	if d.Subtotal() != 200 || d.Tax() != 20 || d.Total() != 220 {
		t.Fatalf("totals: %v %v %v", d.Subtotal(), d.Tax(), d.Total())
	}
}

func TestTableConfigDefaultsOnDecode(t *testing.T) {
	var c TableConfig
	if err := json.Unmarshal([]byte(`{"columns":{"rate":false}}`), &c); err != nil {
		t.Fatal(err)
	}
	if c.Columns.Rate || !c.Columns.Amount || c.Styles.HeaderFontSize != 14 {
		t.Fatalf("defaults not preserved: %+v", c)
	}
}
