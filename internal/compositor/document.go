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
	"sort"
	"strings"

	"printdesigner/internal/scene"
)

// Scene is the input of both render paths.
type Scene struct {
	Page     scene.Page
	Elements []scene.Element
	Data
}

// Paint returns the elements in paint order: ascending ZIndex, ties kept in
// insertion order.
func Paint(els []scene.Element) []scene.Element {
	out := append([]scene.Element(nil), els...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ZIndex < out[j].ZIndex })
	return out
}

func placement(el scene.Element) []Decl {
	return []Decl{
		{"position", "absolute"},
		{"left", px(el.X)},
		{"top", px(el.Y)},
		{"width", px(el.Width)},
		{"height", px(el.Height)},
		{"z-index", fmt.Sprint(el.ZIndex)},
	}
}

// PageDeclarations is the style of the page surface.
func PageDeclarations(p scene.Page) []Decl {
	bg := p.Background
	d := []Decl{
		{"position", "relative"},
		{"width", px(p.Width)},
		{"height", px(p.Height)},
		{"background-color", or(bg.Color, "#ffffff")},
	}
	if bg.Image != "" {
		d = append(d,
			Decl{"background-image", "url('" + cssURL(bg.Image) + "')"},
			Decl{"background-size", or(bg.Size, "cover")},
			Decl{"background-position", or(bg.Position, "center")},
			Decl{"background-repeat", "no-repeat"},
		)
	}
	return append(d, Decl{"overflow", "hidden"})
}

func writeElement(b *strings.Builder, el scene.Element, d Data, extra []Decl, attrs string, live bool) {
	fmt.Fprintf(b, `<div class="element element-%s" data-element-id="%s" data-kind="%s"%s style="%s">`,
		html.EscapeString(el.ID), html.EscapeString(el.ID), el.Kind, attrs,
		html.EscapeString(Style(append(placement(el), extra...))))
	writeBody(b, el, Resolve(el), d, live)
}

// Fragment renders the page and its visible elements as one self-contained
// block of markup. Hidden elements are left out entirely.
func Fragment(s Scene) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<div class="invoice-container" style="%s">`, html.EscapeString(Style(PageDeclarations(s.Page))))
	for _, el := range Paint(s.Elements) {
		if !el.Visible {
			continue
		}
		b.WriteString("\n")
		writeElement(&b, el, s.Data, nil, "", false)
		b.WriteString("</div>")
	}
	b.WriteString("\n</div>")
	return b.String()
}

// Document wraps Fragment into a standalone HTML page.
func Document(s Scene, title string) string {
	if title == "" {
		title = "Invoice Template"
	}
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"UTF-8\">\n")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(title))
	b.WriteString("<style>\n")
	b.WriteString("body { font-family: Arial, sans-serif; margin: 0; padding: 20px; background-color: #f9f9f9; }\n")
	b.WriteString(".invoice-container { margin: 0 auto; box-shadow: 0 2px 10px rgba(0,0,0,0.1); }\n")
	b.WriteString("@media print { body { padding: 0; background: none; } .invoice-container { box-shadow: none; } }\n")
	b.WriteString("</style>\n</head>\n<body>\n")
	b.WriteString(Fragment(s))
	b.WriteString("\n</body>\n</html>\n")
	return b.String()
}
