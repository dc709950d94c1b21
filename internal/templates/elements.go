/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package templates

import (
	"strings"

	"printdesigner/internal/scene"
)

// NewElement returns a freshly added element of kind k with the palette
// defaults for size, content and style. Id, position and ZIndex are left
// for the caller.
func NewElement(k scene.Kind) scene.Element {
	e := scene.Element{Kind: k, Visible: true, Width: 150, Height: 100}
	switch k {
	case scene.KindText:
		e.Width, e.Height, e.Content = 200, 50, "New Text"
	case scene.KindLine:
		e.Width, e.Height = 300, 2
	case scene.KindImage:
		e.Width, e.Height = 150, 150
	case scene.KindHeader:
		e.Width, e.Height, e.Content = 400, 100, "HEADER\nCompany Name\nTagline"
	case scene.KindQR:
		e.Width, e.Height, e.Content = 100, 100, "QR_CODE"
	case scene.KindLogo:
		e.Width, e.Height, e.Content = 80, 80, "LOGO"
	case scene.KindRichText:
		e.Width, e.Height = 300, 100
		e.Content = "<p><strong>Rich Text</strong> with <em>formatting</em> options</p>"
	}
	switch k {
	case scene.KindQR:
		e.QRData = "https://example.com/payment"
	case scene.KindLogo:
		e.LogoType = scene.LogoText
	}
	e.Style = scene.CoerceStyle(k, newStyle(k))
	return e
}

func newStyle(k scene.Kind) scene.Attrs {
	a := scene.Attrs{
		Box: scene.Box{
			BackgroundColor: "transparent", BorderColor: "#ccc", BorderWidth: 1,
			Padding: 10, Opacity: 1, BoxShadow: "none", Transform: "none",
		},
		Typography: scene.Typography{
			FontSize: 14, FontWeight: "normal", FontFamily: "Inter, sans-serif", Color: "#333",
			TextAlign: "left", LineHeight: 1.4, TextDecoration: "none",
		},
	}
	switch k {
	case scene.KindHeader:
		a.FontSize, a.FontWeight, a.Color, a.Padding = 24, "bold", "#1f2937", 20
	case scene.KindLogo:
		a.FontSize, a.FontWeight, a.TextAlign = 32, "bold", "center"
		a.BackgroundColor, a.BorderRadius = "#3b82f6", 12
		a.BoxShadow = "0 4px 12px rgba(59, 130, 246, 0.3)"
	case scene.KindRectangle:
		a.BackgroundColor = "#f0f0f0"
	case scene.KindImage:
		a.BorderColor, a.BorderWidth, a.Padding = "transparent", 0, 0
	case scene.KindRichText:
		a.BorderColor, a.BorderWidth, a.Padding = "transparent", 0, 15
	}
	return a
}

// Subtotal roles recognised by SubtotalRole.
const (
	RoleSubtotal = "subtotal"
	RoleTax      = "tax"
	RoleTotal    = "total"
)

// SubtotalVisibility selects which summary lines are shown.
type SubtotalVisibility struct {
	Subtotal bool `json:"subtotal"`
	Tax      bool `json:"tax"`
	Total    bool `json:"total"`
}

// Shown reports whether lines of role are visible under v.
func (v SubtotalVisibility) Shown(role string) bool {
	switch role {
	case RoleSubtotal:
		return v.Subtotal
	case RoleTax:
		return v.Tax
	case RoleTotal:
		return v.Total
	}
	return true
}

// SubtotalRole classifies a text element as a subtotal, tax or total line by
// its content. A total line must also be bold.
func SubtotalRole(e scene.Element) string {
	switch {
	case strings.Contains(e.Content, "Subtotal:"):
		return RoleSubtotal
	case strings.Contains(e.Content, "Tax ("):
		return RoleTax
	case strings.Contains(e.Content, "Total:") && e.Typography().FontWeight == "bold":
		return RoleTotal
	}
	return ""
}

// SubtotalSection builds the summary block: a panel followed by subtotal,
// tax, separator and total lines. ids must yield five distinct ids; z is the
// ZIndex of the panel and each line stacks one above the previous.
func SubtotalSection(ids func() string, z int, vis SubtotalVisibility) []scene.Element {
	line := func(y float64, content, weight string, visible bool, dz int) scene.Element {
		e := el(ids(), scene.KindText, 120, y, 210, 20, content, z+dz, text(14, weight, "#333", "right"))
		e.Visible = visible
		return e
	}
	box := panel("#f8f9fa", "#dee2e6", 1, 20)
	box.BorderRadius = 4
	return []scene.Element{
		el(ids(), scene.KindRectangle, 100, 100, 250, 120, "", z, box),
		line(120, "Subtotal: $0.00", "normal", vis.Subtotal, 1),
		line(145, "Tax (10%): $0.00", "normal", vis.Tax, 2),
		line(170, "─────────", "normal", true, 3),
		line(195, "Total: $0.00", "bold", vis.Total, 4),
	}
}
