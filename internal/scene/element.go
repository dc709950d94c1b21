/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import (
	"encoding/json"

	"printdesigner/internal/geom"
)

// MinSize is the smallest width and height an interactive resize may produce.
const MinSize = 20.0

// Element is one positioned item on the page. It is a plain value: copying
// an Element copies everything it owns.
type Element struct {
	ID       string
	Kind     Kind
	X, Y     float64
	Width    float64
	Height   float64
	ZIndex   int
	Locked   bool
	Visible  bool
	Content  string
	Style    Style
	ImageURL string
	GroupID  string
	QRData   string
	LogoType LogoType
}

// Bounds returns the element rectangle in canvas coordinates.
func (e Element) Bounds() geom.Rect { return geom.R(e.X, e.Y, e.Width, e.Height) }

// Typography returns the element's typography section, if its kind has one.
func (e Element) Typography() Typography {
	t, _ := TypographyOf(e.Style)
	return t
}

// Box returns the element's box section.
func (e Element) Box() Box {
	if e.Style == nil {
		return Box{}
	}
	return e.Style.BoxStyle()
}

type elementJSON struct {
	ID       string          `json:"id"`
	Kind     Kind            `json:"type"`
	X        float64         `json:"x"`
	Y        float64         `json:"y"`
	Width    float64         `json:"width"`
	Height   float64         `json:"height"`
	Content  string          `json:"content"`
	Style    json.RawMessage `json:"style,omitempty"`
	ZIndex   int             `json:"zIndex"`
	Locked   bool            `json:"locked"`
	Visible  *bool           `json:"visible,omitempty"`
	ImageURL string          `json:"imageUrl,omitempty"`
	GroupID  string          `json:"groupId,omitempty"`
	QRData   string          `json:"qrData,omitempty"`
	LogoType LogoType        `json:"logoType,omitempty"`
}

func (e Element) MarshalJSON() ([]byte, error) {
	st, err := MarshalStyle(e.Style)
	if err != nil {
		return nil, err
	}
	vis := e.Visible
	return json.Marshal(elementJSON{
		ID: e.ID, Kind: e.Kind, X: e.X, Y: e.Y, Width: e.Width, Height: e.Height,
		Content: e.Content, Style: st, ZIndex: e.ZIndex, Locked: e.Locked, Visible: &vis,
		ImageURL: e.ImageURL, GroupID: e.GroupID, QRData: e.QRData, LogoType: e.LogoType,
	})
}

// UnmarshalJSON decodes an element; a missing "visible" means visible.
func (e *Element) UnmarshalJSON(b []byte) error {
	var j elementJSON
	if err := json.Unmarshal(b, &j); err != nil {
		return err
	}
	var a Attrs
	if len(j.Style) > 0 {
		var err error
		if a, err = UnmarshalStyle(j.Style); err != nil {
			return err
		}
	}
	*e = Element{
		ID: j.ID, Kind: j.Kind, X: j.X, Y: j.Y, Width: j.Width, Height: j.Height,
		ZIndex: j.ZIndex, Locked: j.Locked, Visible: j.Visible == nil || *j.Visible,
		Content: j.Content, Style: CoerceStyle(j.Kind, a), ImageURL: j.ImageURL,
		GroupID: j.GroupID, QRData: j.QRData, LogoType: j.LogoType,
	}
	return nil
}

// Patch is a partial update. Nil fields are left alone; Style, when set,
// replaces the whole style record.
type Patch struct {
	X, Y     *float64
	Width    *float64
	Height   *float64
	ZIndex   *int
	Locked   *bool
	Visible  *bool
	Content  *string
	Style    Style
	ImageURL *string
	GroupID  *string
	QRData   *string
	LogoType *LogoType
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p == Patch{}
}

// Move is a patch setting the position.
func Move(x, y float64) Patch { return Patch{X: &x, Y: &y} }

// Resize is a patch setting position and size.
func Resize(x, y, w, h float64) Patch { return Patch{X: &x, Y: &y, Width: &w, Height: &h} }

// Apply merges p into e. Non-positive sizes are raised to MinSize; sizes
// between zero and MinSize are kept so thin rules stay thin.
func (p Patch) Apply(e Element) Element {
	if p.X != nil {
		e.X = *p.X
	}
	if p.Y != nil {
		e.Y = *p.Y
	}
	if p.Width != nil {
		e.Width = *p.Width
		if e.Width <= 0 {
			e.Width = MinSize
		}
	}
	if p.Height != nil {
		e.Height = *p.Height
		if e.Height <= 0 {
			e.Height = MinSize
		}
	}
	if p.ZIndex != nil {
		e.ZIndex = *p.ZIndex
	}
	if p.Locked != nil {
		e.Locked = *p.Locked
	}
	if p.Visible != nil {
		e.Visible = *p.Visible
	}
	if p.Content != nil {
		e.Content = *p.Content
	}
	if p.Style != nil {
		e.Style = CoerceStyle(e.Kind, p.Style)
	}
	if p.ImageURL != nil {
		e.ImageURL = *p.ImageURL
	}
	if p.GroupID != nil {
		e.GroupID = *p.GroupID
	}
	if p.QRData != nil {
		e.QRData = *p.QRData
	}
	if p.LogoType != nil {
		e.LogoType = *p.LogoType
	}
	return e
}

type patchJSON struct {
	X        *float64  `json:"x,omitempty"`
	Y        *float64  `json:"y,omitempty"`
	Width    *float64  `json:"width,omitempty"`
	Height   *float64  `json:"height,omitempty"`
	ZIndex   *int      `json:"zIndex,omitempty"`
	Locked   *bool     `json:"locked,omitempty"`
	Visible  *bool     `json:"visible,omitempty"`
	Content  *string   `json:"content,omitempty"`
	Style    *Attrs    `json:"style,omitempty"`
	ImageURL *string   `json:"imageUrl,omitempty"`
	GroupID  *string   `json:"groupId,omitempty"`
	QRData   *string   `json:"qrData,omitempty"`
	LogoType *LogoType `json:"logoType,omitempty"`
}

func (p *Patch) UnmarshalJSON(b []byte) error {
	var j patchJSON
	if err := json.Unmarshal(b, &j); err != nil {
		return err
	}
	*p = Patch{
		X: j.X, Y: j.Y, Width: j.Width, Height: j.Height, ZIndex: j.ZIndex,
		Locked: j.Locked, Visible: j.Visible, Content: j.Content,
		ImageURL: j.ImageURL, GroupID: j.GroupID, QRData: j.QRData, LogoType: j.LogoType,
	}
	if j.Style != nil {
		p.Style = *j.Style
	}
	return nil
}

func (p Patch) MarshalJSON() ([]byte, error) {
	j := patchJSON{
		X: p.X, Y: p.Y, Width: p.Width, Height: p.Height, ZIndex: p.ZIndex,
		Locked: p.Locked, Visible: p.Visible, Content: p.Content,
		ImageURL: p.ImageURL, GroupID: p.GroupID, QRData: p.QRData, LogoType: p.LogoType,
	}
	if p.Style != nil {
		a := attrsOf(p.Style)
		j.Style = &a
	}
	return json.Marshal(j)
}
