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
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/image/font/basicfont"

	"printdesigner/internal/compositor"
	"printdesigner/internal/scene"
	"printdesigner/internal/templates"
)

func defaultScene() compositor.Scene {
	doc := templates.Default(time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC))
	return compositor.Scene{
		Page:     doc.Page,
		Elements: doc.Elements,
		Data:     compositor.Data{Table: scene.DefaultTableConfig(), Invoice: scene.SampleInvoice()},
	}
}

func TestWriteHTML(t *testing.T) {
	p := filepath.Join(t.TempDir(), "out", "invoice.html")
	doc := compositor.Document(defaultScene(), "Invoice")
	if err := WriteHTML(p, doc); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(p)
	if err != nil || string(b) != doc {
		t.Fatalf("written file differs: %v", err)
	}
	if err := WriteHTML(" ", doc); err == nil {
		t.Fatal("empty path accepted")
	}
}

func TestCompleteWrapsFragment(t *testing.T) {
	frag := compositor.Fragment(defaultScene())
	out, err := Complete(frag, ".x { color: red; }", "Acme & Co")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"<!DOCTYPE html>", "<title>Acme &amp; Co</title>", "<style>.x { color: red; }</style>", `data-element-id="5"`, "invoice-container"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q", want)
		}
	}
	bare, _ := Complete("<p>hi", "", "")
	if strings.Contains(bare, "<style>") || !strings.Contains(bare, "<p>hi</p>") {
		t.Fatalf("bare = %s", bare)
	}
}

func TestPlainText(t *testing.T) {
	got := PlainText("<p><strong>Rich Text</strong> with <em>formatting</em></p><p>second</p>")
	if got != "Rich Text with formatting\nsecond" {
		t.Fatalf("got %q", got)
	}
}

func TestParseColor(t *testing.T) {
	cases := map[string]color.NRGBA{
		"#333":              {0x33, 0x33, 0x33, 255},
		"#f8f9fa":           {0xf8, 0xf9, 0xfa, 255},
		"#00000080":         {0, 0, 0, 0x80},
		"rgb(10, 20, 30)":   {10, 20, 30, 255},
		"rgba(0,0,0,0.5)":   {0, 0, 0, 128},
		" White ":           {255, 255, 255, 255},
		"rebeccapurple":     {0x66, 0x33, 0x99, 255},
		"hsl(0, 100%, 50%)": {255, 0, 0, 255},
	}
	for in, want := range cases {
		got, ok := ParseColor(in)
		if !ok || got != want {
			t.Errorf("%q = %v %v, want %v", in, got, ok, want)
		}
	}
	for _, in := range []string{"transparent", "", "#12", "linear-gradient(red, blue)", "rgb(1,2)"} {
		if _, ok := ParseColor(in); ok {
			t.Errorf("%q parsed", in)
		}
	}
}

func TestRenderPreviewPaintsElements(t *testing.T) {
	s := defaultScene()
	img := RenderPreview(s, 397)
	if b := img.Bounds(); b.Dx() != 397 || b.Dy() != 562 {
		t.Fatalf("bounds = %v", b)
	}
	// divider line "5" at y=220 is drawn by its top border, #dee2e6
	got := img.RGBAAt(200, 110)
	if got != (color.RGBA{0xde, 0xe2, 0xe6, 255}) {
		t.Fatalf("divider pixel = %v", got)
	}
	// page background stays white away from any element
	if got := img.RGBAAt(390, 5); got != (color.RGBA{255, 255, 255, 255}) {
		t.Fatalf("margin pixel = %v", got)
	}
	// the company name is dark text somewhere in its box
	dark := false
	for y := 25; y < 65 && !dark; y++ {
		for x := 25; x < 175; x++ {
			if c := img.RGBAAt(x, y); c.R < 0x80 {
				dark = true
				break
			}
		}
	}
	if !dark {
		t.Fatal("no text pixels in company name box")
	}
}

func TestHiddenElementsAreNotPainted(t *testing.T) {
	s := defaultScene()
	for i := range s.Elements {
		if s.Elements[i].ID == "5" {
			s.Elements[i].Visible = false
		}
	}
	if got := RenderPreview(s, 397).RGBAAt(200, 110); got != (color.RGBA{255, 255, 255, 255}) {
		t.Fatalf("hidden divider painted: %v", got)
	}
}

func TestThumbnailIsPNG(t *testing.T) {
	b, err := Thumbnail(defaultScene())
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != ThumbnailWidth {
		t.Fatalf("width = %d", img.Bounds().Dx())
	}
}

func TestWrapLines(t *testing.T) {
	face := basicfont.Face7x13 // 7px per glyph
	got := wrapLines(face, "Payment is due  within 30 days\nThanks", 70)
	want := []string{"Payment is", "due within", "30 days", "Thanks"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("wrapLines = %q", got)
	}
	if got := wrapLines(face, "Supercalifragilistic", 35); len(got) != 1 {
		t.Fatalf("long word split: %q", got)
	}
	if got := wrapLines(face, "a\n\nb", 70); len(got) != 3 || got[1] != "" {
		t.Fatalf("blank line lost: %q", got)
	}
}
