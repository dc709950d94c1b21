/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

import "testing"

func TestRectBasics(t *testing.T) {
	r := R(10, 20, 30, 40)
	if !r.Contains(Pt{10, 20}) || !r.Contains(Pt{40, 60}) || r.Contains(Pt{41, 60}) {
		t.Fatalf("Contains edges wrong for %+v", r)
	}
	if c := r.Center(); c != (Pt{25, 40}) {
		t.Fatalf("Center: got %+v", c)
	}
	if in := r.Inset(5, 5); in != R(15, 25, 20, 30) {
		t.Fatalf("Inset: got %+v", in)
	}
	u := R(0, 0, 10, 10).Union(R(5, -5, 10, 10))
	if u != R(0, -5, 15, 15) {
		t.Fatalf("Union: got %+v", u)
	}
	if b := Bounds(); b != (Rect{}) {
		t.Fatalf("empty Bounds: got %+v", b)
	}
	if b := Bounds(R(50, 50, 10, 10), R(0, 0, 5, 5), R(100, 0, 1, 200)); b != R(0, 0, 101, 200) {
		t.Fatalf("Bounds: got %+v", b)
	}
	if s := Square(Pt{100, 100}, 12); s != R(94, 94, 12, 12) {
		t.Fatalf("Square: got %+v", s)
	}
}

func TestViewRoundTrip(t *testing.T) {
	v := View{Zoom: 1.5, Origin: Pt{200, 40}}
	p := Pt{137, 152}
	if got := v.ToCanvas(v.ToSurface(p)); !got.Eq(p, 1e-9) {
		t.Fatalf("round trip: got %+v want %+v", got, p)
	}
	if got := (View{}).ToCanvas(Pt{3, 4}); got != (Pt{3, 4}) {
		t.Fatalf("zero view must be identity: %+v", got)
	}
}

func TestSnap(t *testing.T) {
	cases := []struct{ v, g, want float64 }{
		{137, 20, 140},
		{152, 20, 160},
		{150, 20, 160},
		{149.9, 20, 140},
		{-10, 20, 0},
		{-11, 20, -20},
		{7, 0, 7},
	}
	for _, c := range cases {
		if got := Snap(c.v, c.g); got != c.want {
			t.Fatalf("Snap(%v,%v): got %v want %v", c.v, c.g, got, c.want)
		}
	}
}

func TestSnapSizeRespectsMinimum(t *testing.T) {
	if got := SnapSize(9, 20, 20); got != 20 {
		t.Fatalf("got %v want 20", got)
	}
	if got := SnapSize(21, 15, 20); got != 30 {
		t.Fatalf("got %v want 30", got)
	}
	if got := SnapSize(5, 0, 20); got != 20 {
		t.Fatalf("got %v want 20", got)
	}
	if got := SnapSize(55, 20, 20); got != 60 {
		t.Fatalf("got %v want 60", got)
	}
}

func TestRoundAndClamp(t *testing.T) {
	if got := Round(1.23456, 2); got != 1.23 {
		t.Fatalf("Round: got %v", got)
	}
	if got := Clamp(3, 0.25, 2); got != 2 {
		t.Fatalf("Clamp: got %v", got)
	}
}
