/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export turns rendered documents into files: standalone HTML,
// complete documents assembled from a body fragment and a stylesheet, and
// PNG previews rasterised from the scene.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// WriteHTML writes a rendered document to path, creating parent folders.
func WriteHTML(path, doc string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("output path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		return fmt.Errorf("write html: %w", err)
	}
	return nil
}

// Complete builds a standalone document from a body fragment and an
// optional stylesheet, the pair a save callback receives. The fragment is
// parsed in body context so stray markup is normalised the way a browser
// would.
func Complete(fragment, css, title string) (string, error) {
	if title == "" {
		title = "Invoice Template"
	}
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), body)
	if err != nil {
		return "", fmt.Errorf("parse fragment: %w", err)
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}

	head := element(atom.Head)
	meta := element(atom.Meta)
	meta.Attr = []html.Attribute{{Key: "charset", Val: "UTF-8"}}
	head.AppendChild(meta)
	t := element(atom.Title)
	t.AppendChild(&html.Node{Type: html.TextNode, Data: title})
	head.AppendChild(t)
	if strings.TrimSpace(css) != "" {
		st := element(atom.Style)
		st.AppendChild(&html.Node{Type: html.RawNode, Data: css})
		head.AppendChild(st)
	}

	root := element(atom.Html)
	root.Attr = []html.Attribute{{Key: "lang", Val: "en"}}
	root.AppendChild(head)
	root.AppendChild(body)

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n")
	if err := html.Render(&b, root); err != nil {
		return "", fmt.Errorf("render document: %w", err)
	}
	b.WriteByte('\n')
	return b.String(), nil
}

func element(a atom.Atom) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: a.String(), DataAtom: a}
}

// PlainText returns the text content of a markup fragment with block
// boundaries turned into newlines.
func PlainText(markup string) string {
	z := html.NewTokenizer(strings.NewReader(markup))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(b.String())
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "p", "br", "div", "li", "h1", "h2", "h3", "h4", "tr":
				if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
					b.WriteByte('\n')
				}
			}
		}
	}
}
