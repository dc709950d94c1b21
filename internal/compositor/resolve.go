/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package compositor turns a scene into markup. Resolve is the single
// default table for element styles; the live canvas (RenderCanvas) and the
// exported document (Document) both build their element boxes from it, so
// what the editor shows and what is exported cannot drift apart.
package compositor

import (
	"strconv"
	"strings"

	"printdesigner/internal/scene"
)

const defaultFont = "Inter, sans-serif"

// Layout is how a box arranges its content.
type Layout struct {
	Display    string
	Direction  string
	AlignItems string
	Justify    string
	Overflow   string
}

// Resolved is an element style with every kind default applied.
type Resolved struct {
	Kind scene.Kind

	Background         string
	BackgroundImage    string // URL without the url() wrapper
	BackgroundSize     string
	BackgroundPosition string

	BorderWidth   float64
	BorderColor   string
	BorderStyle   string // "solid", "dashed" or "none"
	BorderTopOnly bool

	Radius float64
	Round  bool // radius is 50%

	Padding   float64
	Opacity   float64
	BoxShadow string
	Transform string

	HasText        bool
	FontSize       float64
	FontWeight     string
	FontFamily     string
	Color          string
	TextAlign      string
	LineHeight     float64
	LetterSpacing  float64
	TextDecoration string

	Layout Layout
}

func or[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

// Resolve applies the kind's defaults to every absent style attribute.
func Resolve(el scene.Element) Resolved {
	box := el.Box()
	typ := el.Typography()
	r := Resolved{
		Kind:        el.Kind,
		Background:  or(box.BackgroundColor, "transparent"),
		Opacity:     or(box.Opacity, 1),
		Padding:     box.Padding,
		Radius:      box.BorderRadius,
		BoxShadow:   box.BoxShadow,
		Transform:   box.Transform,
		BorderStyle: "none",
	}
	// outlined boxes draw a border only when a width is set
	outlined := func() {
		if box.BorderWidth > 0 {
			r.BorderWidth, r.BorderColor, r.BorderStyle = box.BorderWidth, or(box.BorderColor, "#000"), "solid"
		}
	}
	// framed boxes always draw one
	framed := func(width float64, color string) {
		r.BorderWidth, r.BorderColor, r.BorderStyle = or(box.BorderWidth, width), or(box.BorderColor, color), "solid"
	}
	text := func(size float64, weight, color, align string, lineHeight float64) {
		r.HasText = true
		r.FontSize = or(typ.FontSize, size)
		r.FontWeight = or(typ.FontWeight, weight)
		r.FontFamily = or(typ.FontFamily, defaultFont)
		r.Color = or(typ.Color, color)
		r.TextAlign = or(typ.TextAlign, align)
		r.LineHeight = or(typ.LineHeight, lineHeight)
		r.LetterSpacing = typ.LetterSpacing
		r.TextDecoration = typ.TextDecoration
	}

	switch el.Kind {
	case scene.KindText, scene.KindPayment:
		text(14, "normal", "#333", "left", 1.4)
		outlined()
		r.Layout = Layout{Display: "flex", AlignItems: "center"}
	case scene.KindRichText:
		text(14, "normal", "#333", "left", 1.5)
		outlined()
		r.Padding = or(box.Padding, 15)
		r.Layout = Layout{Display: "flex", AlignItems: "flex-start", Overflow: "hidden"}
	case scene.KindHeader:
		text(24, "bold", "#1f2937", "left", 1.3)
		outlined()
		r.Padding = or(box.Padding, 20)
		r.Layout = Layout{Display: "flex", Direction: "column", Justify: "center"}
	case scene.KindLogo:
		text(32, "bold", "#ffffff", "center", 1.4)
		outlined()
		r.Background = or(box.BackgroundColor, "#3b82f6")
		r.Radius = or(box.BorderRadius, 12)
		r.BoxShadow = or(box.BoxShadow, "0 4px 12px rgba(59, 130, 246, 0.3)")
		r.Layout = Layout{Display: "flex", AlignItems: "center", Justify: "center"}
		if el.LogoType == scene.LogoImage && el.ImageURL != "" {
			r.BackgroundImage, r.BackgroundSize, r.BackgroundPosition = el.ImageURL, "contain", "center"
		}
	case scene.KindQR:
		r.Background = or(box.BackgroundColor, "#f3f4f6")
		framed(1, "#d1d5db")
		r.Radius = or(box.BorderRadius, 8)
		r.Padding = or(box.Padding, 8)
		r.Layout = Layout{Display: "flex", Direction: "column", AlignItems: "center", Justify: "center"}
	case scene.KindImage:
		bd, _ := scene.BackdropOf(el.Style)
		r.BackgroundSize = or(bd.Size, "cover")
		r.BackgroundPosition = or(bd.Position, "center")
		r.BackgroundImage = or(el.ImageURL, bd.Image)
		r.Layout = Layout{Display: "flex", AlignItems: "center", Justify: "center"}
		if r.BackgroundImage == "" && box.BorderWidth == 0 {
			// empty image slot
			r.Background = or(box.BackgroundColor, "#f8fafc")
			r.BorderWidth, r.BorderColor, r.BorderStyle = 2, "#cbd5e1", "dashed"
			r.HasText, r.FontSize, r.FontWeight, r.Color = true, 12, "500", "#64748b"
			r.FontFamily, r.TextAlign, r.LineHeight = defaultFont, "center", 1.4
		} else {
			outlined()
		}
	case scene.KindTable:
		r.Background = or(box.BackgroundColor, "#f8f9fa")
		r.Padding = or(box.Padding, 12)
		framed(1, "#dee2e6")
		r.Layout = Layout{Display: "table"}
	case scene.KindRectangle, scene.KindCircle:
		r.Background = or(box.BackgroundColor, "#e9ecef")
		framed(1, "#dee2e6")
		r.Radius = or(box.BorderRadius, 4)
		r.Round = el.Kind == scene.KindCircle
	case scene.KindLine:
		framed(2, "#dee2e6")
		r.BorderTopOnly = true
	default:
		outlined()
	}
	if r.BoxShadow == "none" {
		r.BoxShadow = ""
	}
	if r.Transform == "none" {
		r.Transform = ""
	}
	if r.TextDecoration == "none" {
		r.TextDecoration = ""
	}
	return r
}

// Decl is one CSS declaration.
type Decl struct{ Prop, Value string }

func px(v float64) string { return num(v) + "px" }

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// Border returns the CSS border shorthand, or "none".
func (r Resolved) Border() string {
	if r.BorderStyle == "none" || r.BorderStyle == "" {
		return "none"
	}
	return px(r.BorderWidth) + " " + r.BorderStyle + " " + r.BorderColor
}

// Declarations renders r as the inline style of the element body. Tables
// draw their borders and padding on cells, see CellDeclarations.
func (r Resolved) Declarations() []Decl {
	d := []Decl{
		{"box-sizing", "border-box"},
		{"width", "100%"},
		{"height", "100%"},
		{"background-color", r.Background},
	}
	if r.BackgroundImage != "" {
		d = append(d,
			Decl{"background-image", "url('" + cssURL(r.BackgroundImage) + "')"},
			Decl{"background-size", r.BackgroundSize},
			Decl{"background-position", r.BackgroundPosition},
			Decl{"background-repeat", "no-repeat"},
		)
	}
	switch {
	case r.Kind == scene.KindTable:
		d = append(d, Decl{"border-collapse", "collapse"})
	case r.BorderTopOnly:
		d = append(d, Decl{"border-top", r.Border()})
	default:
		d = append(d, Decl{"border", r.Border()})
	}
	if r.Round {
		d = append(d, Decl{"border-radius", "50%"})
	} else if r.Kind != scene.KindTable {
		d = append(d, Decl{"border-radius", px(r.Radius)})
	}
	if r.Kind != scene.KindTable {
		d = append(d, Decl{"padding", px(r.Padding)})
	}
	d = append(d, Decl{"opacity", num(r.Opacity)})
	if r.BoxShadow != "" {
		d = append(d, Decl{"box-shadow", r.BoxShadow})
	}
	if r.Transform != "" {
		d = append(d, Decl{"transform", r.Transform})
	}
	if r.HasText {
		d = append(d,
			Decl{"font-family", r.FontFamily},
			Decl{"font-size", px(r.FontSize)},
			Decl{"font-weight", r.FontWeight},
			Decl{"color", r.Color},
			Decl{"text-align", r.TextAlign},
			Decl{"line-height", num(r.LineHeight)},
		)
		if r.LetterSpacing != 0 {
			d = append(d, Decl{"letter-spacing", px(r.LetterSpacing)})
		}
		if r.TextDecoration != "" {
			d = append(d, Decl{"text-decoration", r.TextDecoration})
		}
	}
	l := r.Layout
	if l.Display != "" {
		d = append(d, Decl{"display", l.Display})
	}
	if l.Direction != "" {
		d = append(d, Decl{"flex-direction", l.Direction})
	}
	if l.AlignItems != "" {
		d = append(d, Decl{"align-items", l.AlignItems})
	}
	if l.Justify != "" {
		d = append(d, Decl{"justify-content", l.Justify})
	}
	if l.Overflow != "" {
		d = append(d, Decl{"overflow", l.Overflow})
	}
	return d
}

// CellDeclarations is the inline style of one table cell.
func (r Resolved) CellDeclarations(header bool, align string, ts scene.TableStyles) []Decl {
	d := []Decl{
		{"padding", px(r.Padding)},
		{"border", r.Border()},
	}
	if align != "" {
		d = append(d, Decl{"text-align", align})
	}
	if header {
		return append(d,
			Decl{"font-weight", ts.HeaderFontWeight},
			Decl{"font-size", px(ts.HeaderFontSize)},
			Decl{"color", ts.HeaderTextColor},
		)
	}
	return append(d,
		Decl{"color", ts.CellTextColor},
		Decl{"font-size", px(ts.CellFontSize)},
		Decl{"font-weight", ts.CellFontWeight},
	)
}

// Style joins declarations into an inline style attribute value.
func Style(ds []Decl) string {
	var b strings.Builder
	for i, d := range ds {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(d.Prop)
		b.WriteString(": ")
		b.WriteString(d.Value)
		b.WriteByte(';')
	}
	return b.String()
}

func cssURL(u string) string {
	return strings.NewReplacer(`'`, `%27`, `\`, `%5C`, "\n", "", "\r", "").Replace(u)
}

// Defaulted returns el with its style fully populated from Resolve, the form
// templates are saved in. Resolving a defaulted element gives the same result.
func Defaulted(el scene.Element) scene.Element {
	probe := el
	if el.Kind == scene.KindImage && el.ImageURL == "" {
		// keep the empty-slot look out of the stored style
		probe.ImageURL = "-"
	}
	r := Resolve(probe)
	box := scene.Box{
		BackgroundColor: r.Background,
		BorderColor:     r.BorderColor,
		BorderWidth:     r.BorderWidth,
		BorderRadius:    r.Radius,
		Padding:         r.Padding,
		Opacity:         r.Opacity,
		BoxShadow:       or(r.BoxShadow, "none"),
		Transform:       or(r.Transform, "none"),
	}
	if r.BorderStyle == "none" {
		box.BorderWidth, box.BorderColor = 0, el.Box().BorderColor
	}
	if el.Kind == scene.KindImage && el.ImageURL == "" {
		box.BackgroundColor = el.Box().BackgroundColor
	}
	typ := scene.Typography{
		FontSize: r.FontSize, FontWeight: r.FontWeight, FontFamily: r.FontFamily, Color: r.Color,
		TextAlign: r.TextAlign, LineHeight: r.LineHeight, LetterSpacing: r.LetterSpacing,
		TextDecoration: or(r.TextDecoration, "none"),
	}
	bd, _ := scene.BackdropOf(el.Style)
	bd.Size, bd.Position = r.BackgroundSize, r.BackgroundPosition
	el.Style = scene.CoerceStyle(el.Kind, scene.Attrs{Box: box, Typography: typ, Backdrop: bd})
	return el
}
