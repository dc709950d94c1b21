/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package geom holds the 2D primitives of the canvas: points, rectangles,
// the zoom/pan view transform and grid snapping. Units are canvas pixels.
package geom

import "math"

// Pt is a 2D point.
type Pt struct{ X, Y float64 }

func (p Pt) Add(q Pt) Pt            { return Pt{p.X + q.X, p.Y + q.Y} }
func (p Pt) Sub(q Pt) Pt            { return Pt{p.X - q.X, p.Y - q.Y} }
func (p Pt) Scale(f float64) Pt     { return Pt{p.X * f, p.Y * f} }
func (p Pt) Div(f float64) Pt       { return Pt{p.X / f, p.Y / f} }
func (p Pt) Eq(q Pt, eps float64) bool {
	return math.Abs(p.X-q.X) <= eps && math.Abs(p.Y-q.Y) <= eps
}

// Rect is an axis-aligned rectangle defined by its top-left corner and size.
type Rect struct {
	X, Y float64
	W, H float64
}

func R(x, y, w, h float64) Rect { return Rect{X: x, Y: y, W: w, H: h} }

func (r Rect) Min() Pt    { return Pt{r.X, r.Y} }
func (r Rect) Max() Pt    { return Pt{r.X + r.W, r.Y + r.H} }
func (r Rect) Center() Pt { return Pt{r.X + r.W/2, r.Y + r.H/2} }

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Pt) bool {
	return p.X >= r.X && p.Y >= r.Y && p.X <= r.X+r.W && p.Y <= r.Y+r.H
}

// Inset shrinks r by dx,dy on every side; negative values grow it.
func (r Rect) Inset(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, W: r.W - 2*dx, H: r.H - 2*dy}
}

// Union returns the minimal rect containing both.
func (r Rect) Union(o Rect) Rect {
	minX := math.Min(r.X, o.X)
	minY := math.Min(r.Y, o.Y)
	maxX := math.Max(r.X+r.W, o.X+o.W)
	maxY := math.Max(r.Y+r.H, o.Y+o.H)
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// Bounds returns the union of rs, or the zero Rect when rs is empty.
func Bounds(rs ...Rect) Rect {
	if len(rs) == 0 {
		return Rect{}
	}
	b := rs[0]
	for _, r := range rs[1:] {
		b = b.Union(r)
	}
	return b
}

// Square returns the side×side rect centred on c. Resize handles use it.
func Square(c Pt, side float64) Rect {
	return Rect{X: c.X - side/2, Y: c.Y - side/2, W: side, H: side}
}

// View maps canvas coordinates to the pointer surface: the canvas is scaled
// by Zoom and its top-left corner sits at Origin.
type View struct {
	Zoom   float64
	Origin Pt
}

func (v View) zoom() float64 {
	if v.Zoom <= 0 {
		return 1
	}
	return v.Zoom
}

// ToCanvas converts a pointer position to unscaled canvas coordinates.
func (v View) ToCanvas(p Pt) Pt { return p.Sub(v.Origin).Div(v.zoom()) }

// ToLocal converts a pointer position to the canvas-local but still scaled space.
func (v View) ToLocal(p Pt) Pt { return p.Sub(v.Origin) }

// ToSurface converts a canvas coordinate back to pointer space.
func (v View) ToSurface(p Pt) Pt { return p.Scale(v.zoom()).Add(v.Origin) }

// Snap rounds v to the nearest multiple of grid, half-way values rounding up.
// A non-positive grid leaves v unchanged.
func Snap(v, grid float64) float64 {
	if grid <= 0 {
		return v
	}
	return math.Floor(v/grid+0.5) * grid
}

// SnapSize snaps a length and raises it to the smallest multiple of grid that
// is not below minimum.
func SnapSize(v, grid, minimum float64) float64 {
	s := Snap(v, grid)
	if s >= minimum {
		return s
	}
	if grid <= 0 {
		return minimum
	}
	return math.Ceil(minimum/grid) * grid
}

// Round rounds v to n decimal places.
func Round(v float64, places int) float64 {
	if places < 0 {
		return v
	}
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
