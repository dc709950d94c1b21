/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package templates holds the documents an editing session can start from:
// the seeded invoice every session opens with and the named presets.
package templates

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"printdesigner/internal/scene"
)

// ErrUnknownPreset is returned by Preset for names not in Names().
var ErrUnknownPreset = errors.New("unknown preset")

// Document is a page plus its elements.
type Document struct {
	Name     string
	Page     scene.Page
	Elements []scene.Element
}

type builder func(now time.Time) Document

var presets = map[string]builder{
	"default":      Default,
	"fintech":      Fintech,
	"professional": Professional,
	"minimal":      Minimal,
}

// Names lists the available presets, sorted.
func Names() []string {
	out := make([]string, 0, len(presets))
	for k := range presets {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Preset builds the named document.
func Preset(name string, now time.Time) (Document, error) {
	b, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Document{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return b(now), nil
}

func el(id string, k scene.Kind, x, y, w, h float64, content string, z int, st scene.Style) scene.Element {
	return scene.Element{
		ID: id, Kind: k, X: x, Y: y, Width: w, Height: h, Content: content,
		ZIndex: z, Visible: true, Style: scene.CoerceStyle(k, st),
	}
}

func text(size float64, weight, color, align string) scene.TextStyle {
	return scene.TextStyle{Typography: scene.Typography{FontSize: size, FontWeight: weight, Color: color, TextAlign: align}}
}

func panel(bg, border string, width, padding float64) scene.ShapeStyle {
	return scene.ShapeStyle{Box: scene.Box{BackgroundColor: bg, BorderColor: border, BorderWidth: width, Padding: padding}}
}

func whitePage(w, h float64) scene.Page {
	p := scene.DefaultPage()
	p.Width, p.Height = w, h
	return p
}

// Default is the invoice a new session opens with. Ids run "1" to "13" and
// each element's ZIndex equals its id.
func Default(now time.Time) Document {
	date := now.Format("1/2/2006")
	table := scene.TableStyle{Box: scene.Box{BorderColor: "#dee2e6", BorderWidth: 1}}
	rule := scene.ShapeStyle{Box: scene.Box{BackgroundColor: "#e9ecef"}}
	return Document{
		Name: "Invoice Template",
		Page: scene.DefaultPage(),
		Elements: []scene.Element{
			el("1", scene.KindText, 50, 50, 300, 80, "Your Company Name", 1, text(28, "bold", "#333", "")),
			el("2", scene.KindText, 50, 130, 300, 60, "123 Business Street\nCity, State 12345", 2, text(14, "", "#666", "")),
			el("3", scene.KindText, 500, 50, 250, 80, "INVOICE", 3, text(24, "bold", "#333", "right")),
			el("4", scene.KindText, 500, 130, 250, 60, "Invoice #: INV-001\nDate: "+date, 4, text(14, "", "#666", "right")),
			el("5", scene.KindLine, 50, 220, 700, 2, "", 5, rule),
			el("6", scene.KindText, 50, 250, 200, 30, "Bill To:", 6, text(18, "bold", "#333", "")),
			el("7", scene.KindRectangle, 50, 290, 300, 100, "", 7, panel("#f8f9fa", "#dee2e6", 1, 15)),
			el("8", scene.KindText, 65, 305, 270, 70, "Client Company Name\n456 Client Avenue\nClient City, State 67890", 8, text(14, "", "#333", "")),
			el("9", scene.KindTable, 50, 420, 700, 200, "items", 9, table),
			el("10", scene.KindRectangle, 500, 650, 250, 120, "", 10, panel("#f8f9fa", "#dee2e6", 1, 20)),
			el("11", scene.KindText, 520, 670, 210, 80, "Subtotal: $200.00\nTax (10%): $20.00\n─────────────────────\nTotal: $220.00", 11, text(14, "normal", "#333", "right")),
			el("12", scene.KindRectangle, 50, 780, 700, 120, "", 12, panel("#f8f9fa", "#dee2e6", 1, 20)),
			el("13", scene.KindText, 70, 800, 660, 80, "Payment Information\nPayment is due within 30 days of invoice date.\nPlease make checks payable to: Your Company Name\nFor questions: contact@yourcompany.com", 13, text(14, "", "#666", "")),
		},
	}
}

func lh(s scene.TextStyle, lineHeight, padding float64) scene.TextStyle {
	s.LineHeight = lineHeight
	s.Padding = padding
	return s
}

// Fintech is a dark-banded crypto invoice with a wallet QR code.
func Fintech(time.Time) Document {
	const wallet = "TPgazse1uRb4DAAqS6Dg4SF62BMyUae97Y"
	band := scene.ShapeStyle{Box: scene.Box{BackgroundColor: "#1a1a1a"}}
	header := lh(text(32, "bold", "#1a1a1a", "left"), 1.2, 20)
	header.FontFamily = "Inter, sans-serif"
	logo := text(48, "bold", "#ffffff", "center")
	logo.BackgroundColor = "#3b82f6"
	logo.BorderRadius = 12
	logo.BoxShadow = "0 4px 12px rgba(59, 130, 246, 0.3)"
	muted := lh(text(12, "normal", "#6b7280", "left"), 1.4, 0)
	mutedRight := lh(text(12, "normal", "#6b7280", "right"), 1.4, 0)
	onBand := lh(text(14, "bold", "#ffffff", "left"), 1.2, 12)
	body := lh(text(14, "normal", "#1a1a1a", "left"), 1.4, 12)

	logoEl := el("logo-1", scene.KindLogo, 600, 50, 80, 80, "P", 2, logo)
	logoEl.LogoType = scene.LogoText
	qr := el("qr-1", scene.KindQR, 600, 480, 100, 100, "QR_CODE", 12,
		scene.ShapeStyle{Box: scene.Box{BackgroundColor: "#f3f4f6", BorderRadius: 8, Padding: 8}})
	qr.QRData = wallet

	return Document{
		Name: "Fintech Invoice",
		Page: whitePage(800, 700),
		Elements: []scene.Element{
			el("header-1", scene.KindHeader, 50, 50, 500, 120, "INVOICE\nPAPERBOT\nFINTECH SOLUTIONS", 1, header),
			logoEl,
			el("client-1", scene.KindText, 50, 200, 300, 60, "CLIENT INFO\nTenex Markets Ltd\nDubai, UAE", 3, muted),
			el("date-1", scene.KindText, 400, 200, 200, 40, "ISSUED DATE\n7 June 2025", 3, mutedRight),
			el("table-header-1", scene.KindRectangle, 50, 300, 500, 40, "", 4, band),
			el("table-header-text-1", scene.KindText, 50, 300, 500, 40, "DESCRIPTION CHARGES", 5, onBand),
			el("table-item-1", scene.KindText, 50, 340, 500, 40, "# PaperBot Trade Copier\nMonth - June, 2025 $ 350", 6, body),
			el("total-1", scene.KindRectangle, 350, 400, 200, 40, "", 7, band),
			el("total-text-1", scene.KindText, 350, 400, 200, 40, "Total $ 350", 8, onBand),
			el("payment-header-1", scene.KindRectangle, 50, 480, 500, 40, "", 9, band),
			el("payment-header-text-1", scene.KindText, 50, 480, 500, 40, "PAYMENT INFO", 10, onBand),
			el("payment-details-1", scene.KindText, 50, 520, 500, 60, "Paperbot Fintech Solutions\nWallet ID : "+wallet, 11, lh(text(14, "normal", "#1a1a1a", "left"), 1.4, 0)),
			qr,
		},
	}
}

// Professional is a plain services invoice.
func Professional(time.Time) Document {
	table := scene.TableStyle{
		Box:        scene.Box{BackgroundColor: "#ffffff", BorderColor: "#d1d5db", BorderWidth: 1, Padding: 12},
		Typography: scene.Typography{FontSize: 14},
	}
	return Document{
		Name: "Professional Invoice",
		Page: whitePage(650, 700),
		Elements: []scene.Element{
			el("company-header-1", scene.KindHeader, 50, 50, 400, 100, "Your Company Name\nProfessional Services\n123 Business St, City, State 12345", 1, lh(text(24, "bold", "#1f2937", "left"), 1.3, 0)),
			el("invoice-title-1", scene.KindText, 500, 50, 200, 60, "INVOICE\n#INV-001\nDate: 2025-01-15", 2, lh(text(18, "bold", "#1f2937", "right"), 1.3, 0)),
			el("client-info-1", scene.KindText, 50, 180, 300, 80, "Bill To:\nClient Company Name\n123 Client Street\nClient City, State 12345", 3, lh(text(14, "normal", "#374151", "left"), 1.4, 0)),
			el("invoice-table-1", scene.KindTable, 50, 280, 500, 200, "items", 4, table),
			el("total-section-1", scene.KindText, 400, 500, 150, 80, "Subtotal: $1,200.00\nTax (8%): $96.00\nTotal: $1,296.00", 5, lh(text(14, "normal", "#1f2937", "right"), 1.4, 0)),
			el("payment-terms-1", scene.KindText, 50, 600, 500, 40, "Payment Terms: Net 30 days. Thank you for your business!", 6, lh(text(12, "normal", "#6b7280", "left"), 1.4, 0)),
		},
	}
}

// Minimal is a title, a table and a total.
func Minimal(time.Time) Document {
	table := scene.TableStyle{
		Box:        scene.Box{BackgroundColor: "#ffffff", BorderColor: "#000000", BorderWidth: 1, Padding: 8},
		Typography: scene.Typography{FontSize: 12},
	}
	return Document{
		Name: "Minimal Invoice",
		Page: whitePage(500, 400),
		Elements: []scene.Element{
			el("minimal-header-1", scene.KindText, 50, 50, 300, 40, "INVOICE", 1, text(28, "bold", "#000000", "left")),
			el("minimal-table-1", scene.KindTable, 50, 120, 400, 150, "items", 2, table),
			el("minimal-total-1", scene.KindText, 300, 290, 150, 30, "Total: $1,296.00", 3, text(16, "bold", "#000000", "right")),
		},
	}
}
