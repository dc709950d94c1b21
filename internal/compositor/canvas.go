/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package compositor

import (
	"fmt"
	"html"
	"strings"

	"printdesigner/internal/scene"
)

// Canvas holds the editor state the live view decorates the page with.
type Canvas struct {
	Selected string
	Zoom     float64
	GridSize float64
	ShowGrid bool
	Guides   bool
}

const (
	accent       = "#3b82f6"
	guideMargin  = 32.0
	handleSide   = 12.0
	handleOffset = handleSide / 2
)

// RenderCanvas renders the editable canvas: the same element boxes as
// Fragment plus selection ring, resize handles, size label, grid and guides.
// Hidden elements stay on the canvas at half opacity.
func RenderCanvas(s Scene, c Canvas) string {
	zoom := c.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	page := append(PageDeclarations(s.Page),
		Decl{"transform", "scale(" + num(zoom) + ")"},
		Decl{"transform-origin", "top left"},
	)
	var b strings.Builder
	fmt.Fprintf(&b, `<div class="canvas" data-zoom="%s" style="%s">`, num(zoom), html.EscapeString(Style(page)))
	if c.ShowGrid && c.GridSize > 0 {
		g := px(c.GridSize)
		grid := []Decl{
			{"position", "absolute"},
			{"inset", "0"},
			{"pointer-events", "none"},
			{"background-image", "linear-gradient(rgba(59,130,246,0.3) 1px, transparent 1px), linear-gradient(90deg, rgba(59,130,246,0.3) 1px, transparent 1px)"},
			{"background-size", g + " " + g},
		}
		fmt.Fprintf(&b, `<div class="canvas-grid" style="%s"></div>`, html.EscapeString(Style(grid)))
	}
	if c.Guides {
		writeGuides(&b, s.Page)
	}
	for _, el := range Paint(s.Elements) {
		b.WriteString("\n")
		var extra []Decl
		attrs := ""
		selected := el.ID == c.Selected
		if selected {
			extra = append(extra, Decl{"outline", "2px solid " + accent}, Decl{"outline-offset", "0"})
			attrs += ` data-selected="true"`
		}
		if !el.Visible {
			extra = append(extra, Decl{"opacity", "0.5"})
			attrs += ` data-hidden="true"`
		}
		if el.Locked {
			extra = append(extra, Decl{"pointer-events", "none"})
			attrs += ` data-locked="true"`
		} else {
			extra = append(extra, Decl{"cursor", "move"})
		}
		writeElement(&b, el, s.Data, extra, attrs, true)
		if selected && !el.Locked {
			writeHandles(&b)
			fmt.Fprintf(&b, `<div class="dimension-label" style="position: absolute; top: -24px; left: 0; font-size: 10px; color: #ffffff; background-color: %s; padding: 2px 6px; border-radius: 4px; white-space: nowrap;">%s × %s</div>`,
				accent, num(el.Width), num(el.Height))
		}
		b.WriteString("</div>")
	}
	b.WriteString("\n</div>")
	return b.String()
}

var handleCursors = map[string]string{"nw": "nwse-resize", "ne": "nesw-resize", "sw": "nesw-resize", "se": "nwse-resize"}

func writeHandles(b *strings.Builder) {
	for _, h := range []string{"nw", "ne", "sw", "se"} {
		vert, horiz := "top", "left"
		if h[0] == 's' {
			vert = "bottom"
		}
		if h[1] == 'e' {
			horiz = "right"
		}
		st := []Decl{
			{"position", "absolute"},
			{vert, px(-handleOffset)},
			{horiz, px(-handleOffset)},
			{"width", px(handleSide)},
			{"height", px(handleSide)},
			{"background-color", accent},
			{"border", "2px solid #ffffff"},
			{"border-radius", "2px"},
			{"cursor", handleCursors[h]},
		}
		fmt.Fprintf(b, `<div class="resize-handle" data-handle="%s" style="%s"></div>`, h, html.EscapeString(Style(st)))
	}
}

func writeGuides(b *strings.Builder, p scene.Page) {
	line := func(vertical bool, at float64) {
		d := []Decl{{"position", "absolute"}, {"pointer-events", "none"}}
		if vertical {
			d = append(d, Decl{"left", px(at)}, Decl{"top", "0"}, Decl{"bottom", "0"}, Decl{"border-left", "1px dashed rgba(59,130,246,0.5)"})
		} else {
			d = append(d, Decl{"top", px(at)}, Decl{"left", "0"}, Decl{"right", "0"}, Decl{"border-top", "1px dashed rgba(59,130,246,0.5)"})
		}
		fmt.Fprintf(b, `<div class="canvas-guide" style="%s"></div>`, html.EscapeString(Style(d)))
	}
	line(true, p.Width/2)
	line(false, p.Height/2)
	line(true, guideMargin)
	line(true, p.Width-guideMargin)
	line(false, guideMargin)
	line(false, p.Height-guideMargin)
}

// HandleRect is where a corner handle is drawn for el, in canvas units.
// It matches the hit area the interaction package uses.
func HandleRect(el scene.Element, corner string) (x, y, w, h float64) {
	x, y = el.X-handleOffset, el.Y-handleOffset
	if strings.Contains(corner, "e") {
		x += el.Width
	}
	if strings.Contains(corner, "s") {
		y += el.Height
	}
	return x, y, handleSide, handleSide
}
