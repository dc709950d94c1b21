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
	"hash/fnv"
	"html"
	"strings"

	"rsc.io/qr"

	"printdesigner/internal/scene"
)

// Data is what element bodies are filled from besides the element itself.
type Data struct {
	Table   scene.TableConfig
	Invoice scene.InvoiceData
}

type column struct {
	title string
	align string
	on    func(scene.Columns) bool
	cell  func(scene.LineItem) string
}

var columns = []column{
	{"Description", "left", func(c scene.Columns) bool { return c.Description }, func(it scene.LineItem) string { return it.Description }},
	{"Quantity", "center", func(c scene.Columns) bool { return c.Quantity }, func(it scene.LineItem) string { return num(it.Quantity) }},
	{"Rate", "right", func(c scene.Columns) bool { return c.Rate }, func(it scene.LineItem) string { return money(it.Rate) }},
	{"Amount", "right", func(c scene.Columns) bool { return c.Amount }, func(it scene.LineItem) string { return money(it.Amount) }},
}

func money(v float64) string { return fmt.Sprintf("$%.2f", v) }

// writeBody writes the element body: the styled box and its content.
func writeBody(b *strings.Builder, el scene.Element, r Resolved, d Data, live bool) {
	if el.Kind == scene.KindTable {
		writeTable(b, r, d)
		return
	}
	fmt.Fprintf(b, `<div class="element-body" style="%s">`, html.EscapeString(Style(r.Declarations())))
	switch el.Kind {
	case scene.KindText, scene.KindPayment:
		writeLines(b, el.Content)
	case scene.KindLogo:
		if !(el.LogoType == scene.LogoImage && el.ImageURL != "") {
			writeLines(b, el.Content)
		}
	case scene.KindHeader:
		for i, line := range strings.Split(el.Content, "\n") {
			margin := "4px"
			if i == 0 {
				margin = "8px"
			}
			fmt.Fprintf(b, `<div style="margin-bottom: %s;">%s</div>`, margin, html.EscapeString(line))
		}
	case scene.KindRichText:
		// trusted markup
		b.WriteString(el.Content)
	case scene.KindQR:
		b.WriteString(QRSymbol(QRPayload(el), 60))
		b.WriteString(`<div style="font-size: 8px; color: #6b7280; margin-top: 4px; text-align: center;">QR Code</div>`)
	case scene.KindImage:
		if live && r.BackgroundImage == "" {
			b.WriteString("Click to upload image")
		}
	}
	b.WriteString("</div>")
}

func writeLines(b *strings.Builder, content string) {
	b.WriteString(`<div style="width: 100%;">`)
	for i, line := range strings.Split(content, "\n") {
		if i > 0 {
			b.WriteString("<br>")
		}
		b.WriteString(html.EscapeString(line))
	}
	b.WriteString("</div>")
}

// TableCells returns the enabled column titles and alignments and the
// line-item rows as text, in the order the table renders them.
func TableCells(d Data) (titles, aligns []string, rows [][]string) {
	for _, c := range columns {
		if c.on(d.Table.Columns) {
			titles = append(titles, c.title)
			aligns = append(aligns, c.align)
		}
	}
	for _, it := range d.Invoice.Items {
		var row []string
		for _, c := range columns {
			if c.on(d.Table.Columns) {
				row = append(row, c.cell(it))
			}
		}
		rows = append(rows, row)
	}
	return titles, aligns, rows
}

func writeTable(b *strings.Builder, r Resolved, d Data) {
	fmt.Fprintf(b, `<table class="element-body" style="%s">`, html.EscapeString(Style(r.Declarations())))
	b.WriteString("<thead><tr>")
	for _, c := range columns {
		if c.on(d.Table.Columns) {
			fmt.Fprintf(b, `<th style="%s">%s</th>`, html.EscapeString(Style(r.CellDeclarations(true, c.align, d.Table.Styles))), c.title)
		}
	}
	b.WriteString("</tr></thead><tbody>")
	for _, it := range d.Invoice.Items {
		b.WriteString("<tr>")
		for _, c := range columns {
			if !c.on(d.Table.Columns) {
				continue
			}
			align := c.align
			if align == "left" {
				align = ""
			}
			fmt.Fprintf(b, `<td style="%s">%s</td>`, html.EscapeString(Style(r.CellDeclarations(false, align, d.Table.Styles))), html.EscapeString(c.cell(it)))
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</tbody></table>")
}

// QRPayload is the text a QR element encodes: QRData, else custom content,
// else the "QR_CODE" placeholder.
func QRPayload(el scene.Element) string {
	if el.QRData != "" {
		return el.QRData
	}
	if el.Content != "" && el.Content != "QR_CODE" {
		return el.Content
	}
	return "QR_CODE"
}

// QRSymbol draws payload as an inline SVG of the given pixel size. Payloads
// the encoder rejects get a deterministic 8×8 stand-in pattern instead.
func QRSymbol(payload string, size int) string {
	var b strings.Builder
	code, err := qr.Encode(payload, qr.M)
	if err != nil {
		return placeholderSymbol(payload, size)
	}
	const quiet = 4
	n := code.Size + 2*quiet
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" shape-rendering="crispEdges">`, size, size, n, n)
	fmt.Fprintf(&b, `<rect width="%d" height="%d" fill="#ffffff"/><path fill="#000000" d="`, n, n)
	for y := 0; y < code.Size; y++ {
		for x := 0; x < code.Size; x++ {
			if code.Black(x, y) {
				fmt.Fprintf(&b, "M%d %dh1v1h-1z", x+quiet, y+quiet)
			}
		}
	}
	b.WriteString(`"/></svg>`)
	return b.String()
}

func placeholderSymbol(payload string, size int) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(payload))
	bits := h.Sum64()
	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 10 10" shape-rendering="crispEdges">`, size, size)
	b.WriteString(`<rect width="10" height="10" fill="#000000"/><path fill="#ffffff" d="`)
	for i := 0; i < 64; i++ {
		if bits&(1<<uint(i)) == 0 {
			fmt.Fprintf(&b, "M%d %dh1v1h-1z", 1+i%8, 1+i/8)
		}
	}
	b.WriteString(`"/></svg>`)
	return b.String()
}
