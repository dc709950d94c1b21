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
	"fmt"
	"strings"
)

// Kind is the closed set of element types. It never changes after creation.
type Kind string

const (
	KindText         Kind = "text"
	KindRichText     Kind = "richtext"
	KindImage        Kind = "image"
	KindTable        Kind = "table"
	KindLine         Kind = "line"
	KindRectangle    Kind = "rectangle"
	KindCircle       Kind = "circle"
	KindHeader       Kind = "header"
	KindQR           Kind = "qr"
	KindLogo         Kind = "logo"
	KindPayment      Kind = "payment"
	KindIllustration Kind = "illustration"
)

// Kinds lists every element kind in palette order.
var Kinds = []Kind{
	KindText, KindRichText, KindImage, KindTable, KindLine, KindRectangle,
	KindCircle, KindHeader, KindQR, KindLogo, KindPayment, KindIllustration,
}

// ParseKind accepts a kind name case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if k.Valid() {
		return k, nil
	}
	return "", fmt.Errorf("unknown element kind %q", s)
}

func (k Kind) Valid() bool {
	for _, v := range Kinds {
		if v == k {
			return true
		}
	}
	return false
}

// HasText reports whether the kind renders its Content as text lines.
func (k Kind) HasText() bool {
	switch k {
	case KindText, KindRichText, KindHeader, KindLogo, KindPayment:
		return true
	}
	return false
}

func (k *Kind) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// LogoType selects whether a logo shows its text content or an image.
type LogoType string

const (
	LogoText  LogoType = "text"
	LogoImage LogoType = "image"
)
