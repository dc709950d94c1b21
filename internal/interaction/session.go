/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package interaction turns pointer input into element geometry changes.
// Step is a pure transition function: it takes the session context, a
// read-only view of the scene and one event, and returns the next context
// plus the updates the caller must apply. Nothing here mutates a store.
package interaction

import (
	"printdesigner/internal/geom"
	"printdesigner/internal/scene"
)

// Mode is the state of the pointer session.
type Mode int

const (
	Idle Mode = iota
	Dragging
	Resizing
)

func (m Mode) String() string {
	switch m {
	case Dragging:
		return "dragging"
	case Resizing:
		return "resizing"
	default:
		return "idle"
	}
}

// Handle is a resize grip named by compass point.
type Handle string

const (
	HandleNone Handle = ""
	HandleN    Handle = "n"
	HandleNE   Handle = "ne"
	HandleE    Handle = "e"
	HandleSE   Handle = "se"
	HandleS    Handle = "s"
	HandleSW   Handle = "sw"
	HandleW    Handle = "w"
	HandleNW   Handle = "nw"
)

// CornerHandles are the grips offered on a selected element.
var CornerHandles = []Handle{HandleNW, HandleNE, HandleSW, HandleSE}

// HandleSize is the side of a grip square in canvas units.
const HandleSize = 12.0

// Anchor returns the point of r the handle sits on.
func (h Handle) Anchor(r geom.Rect) geom.Pt {
	x, y := r.X+r.W/2, r.Y+r.H/2
	switch h {
	case HandleNW, HandleW, HandleSW:
		x = r.X
	case HandleNE, HandleE, HandleSE:
		x = r.X + r.W
	}
	switch h {
	case HandleNW, HandleN, HandleNE:
		y = r.Y
	case HandleSW, HandleS, HandleSE:
		y = r.Y + r.H
	}
	return geom.Pt{X: x, Y: y}
}

// Grid is the snapping configuration. Snap works whether or not the grid
// is shown.
type Grid struct {
	Size float64
	Snap bool
	Show bool
}

func (g Grid) snap(v float64) float64 {
	if !g.Snap {
		return v
	}
	return geom.Snap(v, g.Size)
}

func (g Grid) snapSize(v float64) float64 {
	if !g.Snap {
		return v
	}
	return geom.SnapSize(v, g.Size, scene.MinSize)
}

// View is how the canvas sits on the pointer surface.
type View struct {
	geom.View
	Grid Grid
}

// Session is the transient state of one drag or resize.
type Session struct {
	Mode   Mode
	Target string
	Handle Handle
	// Offset is pointer minus element origin, both in zoomed canvas-local units.
	Offset geom.Pt
	// Moved is set once a move changed geometry.
	Moved bool
}

// Context is everything Step needs besides the scene.
type Context struct {
	Selected string
	Session  Session
	View     View
}

// Capturing reports whether move and up events are being listened to.
func (c Context) Capturing() bool { return c.Session.Mode != Idle }

// Scene is the read-only view of elements Step consults.
type Scene interface {
	Get(id string) (scene.Element, bool)
	Ordered() []scene.Element
}

// EventType enumerates pointer and key input.
type EventType int

const (
	PointerDown EventType = iota
	PointerMove
	PointerUp
	// CaptureLost is handled exactly like PointerUp.
	CaptureLost
	// Escape ends any session and clears the selection.
	Escape
)

// Event is one input. Pos is in pointer-surface coordinates.
type Event struct {
	Type EventType
	Pos  geom.Pt
}

// Update is one geometry write for the caller to apply.
type Update struct {
	ID    string
	Patch scene.Patch
}

// Result tells the caller what to apply after a Step.
type Result struct {
	Updates []Update
	// Commit asks for exactly one history checkpoint after Updates are applied.
	Commit           bool
	SelectionChanged bool
}
