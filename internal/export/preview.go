/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"strconv"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"rsc.io/qr"

	"printdesigner/internal/compositor"
	"printdesigner/internal/scene"
)

// ThumbnailWidth is the pixel width of library thumbnails.
const ThumbnailWidth = 240

var (
	regularFont, _ = opentype.Parse(goregular.TTF)
	boldFont, _    = opentype.Parse(gobold.TTF)
)

// previewer rasterises one scene. Faces are cached per size and weight.
type previewer struct {
	img   *image.RGBA
	scale float64
	faces map[faceKey]font.Face
}

type faceKey struct {
	px   int
	bold bool
}

// RenderPreview rasterises the scene at the given pixel width. It draws
// what the export document shows: backgrounds, borders, text, the
// line-items table and QR symbols. Images, shadows and transforms are left
// out.
func RenderPreview(s compositor.Scene, width int) *image.RGBA {
	pw, ph := s.Page.Width, s.Page.Height
	if pw <= 0 || ph <= 0 {
		pw, ph = scene.DefaultPage().Width, scene.DefaultPage().Height
	}
	if width <= 0 {
		width = int(pw)
	}
	scale := float64(width) / pw
	p := &previewer{
		img:   image.NewRGBA(image.Rect(0, 0, width, int(math.Round(ph*scale)))),
		scale: scale,
		faces: map[faceKey]font.Face{},
	}
	bg, ok := ParseColor(s.Page.Background.Color)
	if !ok {
		bg = color.NRGBA{255, 255, 255, 255}
	}
	draw.Draw(p.img, p.img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	for _, el := range compositor.Paint(s.Elements) {
		if el.Visible {
			p.element(el, s.Data)
		}
	}
	return p.img
}

// Thumbnail renders a ThumbnailWidth preview as PNG bytes.
func Thumbnail(s compositor.Scene) ([]byte, error) {
	var buf bytes.Buffer
	if err := WritePNG(&buf, RenderPreview(s, ThumbnailWidth)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WritePNG encodes img to w.
func WritePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

func (p *previewer) rect(x, y, w, h float64) image.Rectangle {
	s := p.scale
	return image.Rect(int(math.Round(x*s)), int(math.Round(y*s)), int(math.Round((x+w)*s)), int(math.Round((y+h)*s)))
}

func (p *previewer) element(el scene.Element, d compositor.Data) {
	r := compositor.Resolve(el)
	box := p.rect(el.X, el.Y, el.Width, el.Height).Intersect(p.img.Bounds())
	if box.Empty() {
		return
	}
	fill := func(c color.NRGBA, area image.Rectangle) {
		c.A = uint8(float64(c.A) * clamp01(r.Opacity))
		if r.Round {
			fillEllipse(p.img, area, c)
			return
		}
		draw.Draw(p.img, area, image.NewUniform(c), image.Point{}, draw.Over)
	}
	if c, ok := ParseColor(r.Background); ok {
		fill(c, box)
	}
	if c, ok := ParseColor(r.BorderColor); ok && r.BorderStyle != "none" && r.BorderWidth > 0 {
		bw := int(math.Max(1, math.Round(r.BorderWidth*p.scale)))
		if r.BorderTopOnly {
			fill(c, image.Rect(box.Min.X, box.Min.Y, box.Max.X, box.Min.Y+bw))
		} else if !r.Round {
			for _, edge := range []image.Rectangle{
				image.Rect(box.Min.X, box.Min.Y, box.Max.X, box.Min.Y+bw),
				image.Rect(box.Min.X, box.Max.Y-bw, box.Max.X, box.Max.Y),
				image.Rect(box.Min.X, box.Min.Y, box.Min.X+bw, box.Max.Y),
				image.Rect(box.Max.X-bw, box.Min.Y, box.Max.X, box.Max.Y),
			} {
				fill(c, edge.Intersect(box))
			}
		}
	}

	pad := int(math.Round(r.Padding * p.scale))
	inner := box.Inset(pad)
	if inner.Empty() {
		return
	}
	switch el.Kind {
	case scene.KindTable:
		p.table(inner, r, d)
	case scene.KindQR:
		p.qr(inner, compositor.QRPayload(el))
	case scene.KindRichText:
		p.text(inner, r, PlainText(el.Content))
	case scene.KindLogo:
		if el.LogoType != scene.LogoImage || el.ImageURL == "" {
			p.text(inner, r, el.Content)
		}
	default:
		if r.HasText {
			p.text(inner, r, el.Content)
		}
	}
}

func (p *previewer) face(size float64, bold bool) font.Face {
	px := int(math.Round(size * p.scale))
	if px < 1 {
		px = 1
	}
	k := faceKey{px, bold}
	if f, ok := p.faces[k]; ok {
		return f
	}
	var f font.Face = basicfont.Face7x13
	src := regularFont
	if bold {
		src = boldFont
	}
	if src != nil {
		if of, err := opentype.NewFace(src, &opentype.FaceOptions{Size: float64(px), DPI: 72, Hinting: font.HintingFull}); err == nil {
			f = of
		}
	}
	p.faces[k] = f
	return f
}

func isBold(weight string) bool {
	if weight == "bold" || weight == "bolder" {
		return true
	}
	n, err := strconv.Atoi(weight)
	return err == nil && n >= 600
}

// text draws content wrapped to the width of area, clipped to it.
func (p *previewer) text(area image.Rectangle, r compositor.Resolved, content string) {
	col, ok := ParseColor(r.Color)
	if !ok {
		col = color.NRGBA{0, 0, 0, 255}
	}
	col.A = uint8(float64(col.A) * clamp01(r.Opacity))
	face := p.face(r.FontSize, isBold(r.FontWeight))
	lh := r.LineHeight
	if lh <= 0 {
		lh = 1.2
	}
	step := int(math.Round(r.FontSize * lh * p.scale))
	if step < 1 {
		step = 1
	}
	dst := p.img.SubImage(area).(*image.RGBA)
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(col), Face: face}
	ascent := face.Metrics().Ascent.Ceil()
	y := area.Min.Y + ascent
	for _, line := range wrapLines(face, content, area.Dx()) {
		if y-ascent > area.Max.Y {
			break
		}
		p.drawLine(d, area, y, r.TextAlign, line)
		y += step
	}
}

func (p *previewer) drawLine(d *font.Drawer, area image.Rectangle, baseline int, align, line string) {
	w := d.MeasureString(line).Ceil()
	x := area.Min.X
	switch align {
	case "center":
		x += (area.Dx() - w) / 2
	case "right":
		x = area.Max.X - w
	}
	d.Dot = fixed.P(x, baseline)
	d.DrawString(line)
}

func (p *previewer) table(area image.Rectangle, r compositor.Resolved, d compositor.Data) {
	titles, aligns, rows := compositor.TableCells(d)
	if len(titles) == 0 {
		return
	}
	st := d.Table.Styles
	rowH := int(math.Round((math.Max(st.HeaderFontSize, st.CellFontSize) + 16) * p.scale))
	colW := area.Dx() / len(titles)
	grid, ok := ParseColor(r.BorderColor)
	if !ok {
		grid = color.NRGBA{0xde, 0xe2, 0xe6, 255}
	}
	drawRow := func(y int, cells []string, header bool) {
		size, weight, c := st.CellFontSize, st.CellFontWeight, st.CellTextColor
		if header {
			size, weight, c = st.HeaderFontSize, st.HeaderFontWeight, st.HeaderTextColor
			draw.Draw(p.img, image.Rect(area.Min.X, y, area.Max.X, y+rowH).Intersect(area), image.NewUniform(color.NRGBA{0xf8, 0xf9, 0xfa, 255}), image.Point{}, draw.Over)
		}
		col, ok := ParseColor(c)
		if !ok {
			col = color.NRGBA{0, 0, 0, 255}
		}
		face := p.face(size, isBold(weight))
		pad := int(math.Round(8 * p.scale))
		for i, txt := range cells {
			cell := image.Rect(area.Min.X+i*colW, y, area.Min.X+(i+1)*colW, y+rowH).Intersect(area)
			if cell.Empty() {
				continue
			}
			dr := &font.Drawer{Dst: p.img.SubImage(cell).(*image.RGBA), Src: image.NewUniform(col), Face: face}
			baseline := y + (rowH+face.Metrics().Ascent.Ceil())/2
			p.drawLine(dr, cell.Inset(pad), baseline, aligns[i], txt)
		}
		draw.Draw(p.img, image.Rect(area.Min.X, y+rowH-1, area.Max.X, y+rowH).Intersect(area), image.NewUniform(grid), image.Point{}, draw.Over)
	}
	y := area.Min.Y
	drawRow(y, titles, true)
	for _, row := range rows {
		y += rowH
		if y >= area.Max.Y {
			return
		}
		drawRow(y, row, false)
	}
}

// qr draws the symbol as large as fits centred in the top of area.
func (p *previewer) qr(area image.Rectangle, payload string) {
	code, err := qr.Encode(payload, qr.M)
	if err != nil {
		return
	}
	const quiet = 4
	n := code.Size + 2*quiet
	side := int(math.Min(float64(area.Dx()), float64(area.Dy())))
	mod := side / n
	if mod < 1 {
		return
	}
	x0 := area.Min.X + (area.Dx()-mod*n)/2
	y0 := area.Min.Y
	draw.Draw(p.img, image.Rect(x0, y0, x0+mod*n, y0+mod*n), image.White, image.Point{}, draw.Src)
	for y := 0; y < code.Size; y++ {
		for x := 0; x < code.Size; x++ {
			if code.Black(x, y) {
				px, py := x0+(x+quiet)*mod, y0+(y+quiet)*mod
				draw.Draw(p.img, image.Rect(px, py, px+mod, py+mod), image.Black, image.Point{}, draw.Src)
			}
		}
	}
}

func fillEllipse(img *image.RGBA, r image.Rectangle, c color.NRGBA) {
	cx, cy := float64(r.Min.X+r.Max.X)/2, float64(r.Min.Y+r.Max.Y)/2
	rx, ry := float64(r.Dx())/2, float64(r.Dy())/2
	if rx <= 0 || ry <= 0 {
		return
	}
	u := image.NewUniform(c)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		dy := (float64(y) + 0.5 - cy) / ry
		if dy*dy > 1 {
			continue
		}
		half := rx * math.Sqrt(1-dy*dy)
		x0, x1 := int(math.Round(cx-half)), int(math.Round(cx+half))
		draw.Draw(img, image.Rect(x0, y, x1, y+1), u, image.Point{}, draw.Over)
	}
}

func clamp01(v float64) float64 {
	if v <= 0 || v > 1 {
		return 1
	}
	return v
}
