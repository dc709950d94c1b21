/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import "encoding/json"

// Box holds the attributes every element kind understands. A zero field
// means "not set"; the compositor supplies the kind's default.
type Box struct {
	BackgroundColor string
	BorderColor     string
	BorderWidth     float64
	BorderRadius    float64
	Padding         float64
	Opacity         float64
	BoxShadow       string
	Transform       string
}

// Typography holds font attributes of kinds that render text.
type Typography struct {
	FontSize       float64
	FontWeight     string
	FontFamily     string
	Color          string
	TextAlign      string
	LineHeight     float64
	LetterSpacing  float64
	TextDecoration string
}

// Backdrop holds background-image attributes of image elements.
type Backdrop struct {
	Image    string
	Size     string // cover | contain | auto
	Position string // center | top | bottom | left | right
}

// Style is the per-kind style record. The variants are TextStyle,
// TableStyle, ImageStyle and ShapeStyle, plus Attrs which carries every
// section and is only used for transport before CoerceStyle narrows it.
type Style interface {
	BoxStyle() Box
	isStyle()
}

// TextStyle styles text, richtext, header, logo and payment elements.
type TextStyle struct {
	Box
	Typography
}

// TableStyle styles the line-items table.
type TableStyle struct {
	Box
	Typography
}

// ImageStyle styles image elements.
type ImageStyle struct {
	Box
	Backdrop
}

// ShapeStyle styles rectangle, circle, line, qr and illustration elements.
type ShapeStyle struct {
	Box
}

// Attrs is the loose form of a style with every section present.
type Attrs struct {
	Box
	Typography
	Backdrop
}

func (s TextStyle) BoxStyle() Box  { return s.Box }
func (s TableStyle) BoxStyle() Box { return s.Box }
func (s ImageStyle) BoxStyle() Box { return s.Box }
func (s ShapeStyle) BoxStyle() Box { return s.Box }
func (s Attrs) BoxStyle() Box      { return s.Box }

func (TextStyle) isStyle()  {}
func (TableStyle) isStyle() {}
func (ImageStyle) isStyle() {}
func (ShapeStyle) isStyle() {}
func (Attrs) isStyle()      {}

// TypographyOf returns the typography section when the style has one.
func TypographyOf(s Style) (Typography, bool) {
	switch v := s.(type) {
	case TextStyle:
		return v.Typography, true
	case TableStyle:
		return v.Typography, true
	case Attrs:
		return v.Typography, true
	}
	return Typography{}, false
}

// BackdropOf returns the backdrop section when the style has one.
func BackdropOf(s Style) (Backdrop, bool) {
	switch v := s.(type) {
	case ImageStyle:
		return v.Backdrop, true
	case Attrs:
		return v.Backdrop, true
	}
	return Backdrop{}, false
}

func attrsOf(s Style) Attrs {
	if s == nil {
		return Attrs{}
	}
	a := Attrs{Box: s.BoxStyle()}
	a.Typography, _ = TypographyOf(s)
	a.Backdrop, _ = BackdropOf(s)
	return a
}

// CoerceStyle converts s into the variant for kind, dropping sections the
// kind cannot use. A nil style becomes the empty variant.
func CoerceStyle(k Kind, s Style) Style {
	a := attrsOf(s)
	switch k {
	case KindText, KindRichText, KindHeader, KindLogo, KindPayment:
		return TextStyle{Box: a.Box, Typography: a.Typography}
	case KindTable:
		return TableStyle{Box: a.Box, Typography: a.Typography}
	case KindImage:
		return ImageStyle{Box: a.Box, Backdrop: a.Backdrop}
	default:
		return ShapeStyle{Box: a.Box}
	}
}

// flatStyle is the JSON shape of every style variant.
type flatStyle struct {
	BackgroundColor    string  `json:"backgroundColor,omitempty"`
	BorderColor        string  `json:"borderColor,omitempty"`
	BorderWidth        float64 `json:"borderWidth,omitempty"`
	BorderRadius       float64 `json:"borderRadius,omitempty"`
	Padding            float64 `json:"padding,omitempty"`
	Opacity            float64 `json:"opacity,omitempty"`
	BoxShadow          string  `json:"boxShadow,omitempty"`
	Transform          string  `json:"transform,omitempty"`
	FontSize           float64 `json:"fontSize,omitempty"`
	FontWeight         string  `json:"fontWeight,omitempty"`
	FontFamily         string  `json:"fontFamily,omitempty"`
	Color              string  `json:"color,omitempty"`
	TextAlign          string  `json:"textAlign,omitempty"`
	LineHeight         float64 `json:"lineHeight,omitempty"`
	LetterSpacing      float64 `json:"letterSpacing,omitempty"`
	TextDecoration     string  `json:"textDecoration,omitempty"`
	BackgroundImage    string  `json:"backgroundImage,omitempty"`
	BackgroundSize     string  `json:"backgroundSize,omitempty"`
	BackgroundPosition string  `json:"backgroundPosition,omitempty"`
}

func flatten(s Style) flatStyle {
	a := attrsOf(s)
	return flatStyle{
		BackgroundColor: a.BackgroundColor, BorderColor: a.BorderColor, BorderWidth: a.BorderWidth,
		BorderRadius: a.BorderRadius, Padding: a.Padding, Opacity: a.Opacity, BoxShadow: a.BoxShadow,
		Transform: a.Transform, FontSize: a.FontSize, FontWeight: a.FontWeight, FontFamily: a.FontFamily,
		Color: a.Color, TextAlign: a.TextAlign, LineHeight: a.LineHeight, LetterSpacing: a.LetterSpacing,
		TextDecoration: a.TextDecoration, BackgroundImage: a.Image, BackgroundSize: a.Size,
		BackgroundPosition: a.Position,
	}
}

func (f flatStyle) attrs() Attrs {
	return Attrs{
		Box: Box{
			BackgroundColor: f.BackgroundColor, BorderColor: f.BorderColor, BorderWidth: f.BorderWidth,
			BorderRadius: f.BorderRadius, Padding: f.Padding, Opacity: f.Opacity, BoxShadow: f.BoxShadow,
			Transform: f.Transform,
		},
		Typography: Typography{
			FontSize: f.FontSize, FontWeight: f.FontWeight, FontFamily: f.FontFamily, Color: f.Color,
			TextAlign: f.TextAlign, LineHeight: f.LineHeight, LetterSpacing: f.LetterSpacing,
			TextDecoration: f.TextDecoration,
		},
		Backdrop: Backdrop{Image: f.BackgroundImage, Size: f.BackgroundSize, Position: f.BackgroundPosition},
	}
}

// MarshalStyle encodes any variant as one flat JSON object.
func MarshalStyle(s Style) ([]byte, error) { return json.Marshal(flatten(s)) }

// UnmarshalStyle decodes a flat JSON style into Attrs.
func UnmarshalStyle(b []byte) (Attrs, error) {
	var f flatStyle
	if err := json.Unmarshal(b, &f); err != nil {
		return Attrs{}, err
	}
	return f.attrs(), nil
}

func (s Attrs) MarshalJSON() ([]byte, error) { return MarshalStyle(s) }

func (s *Attrs) UnmarshalJSON(b []byte) error {
	a, err := UnmarshalStyle(b)
	if err != nil {
		return err
	}
	*s = a
	return nil
}
