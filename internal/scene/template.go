/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Metadata describes an exported template file.
type Metadata struct {
	Version     string `json:"version"`
	CreatedBy   string `json:"createdBy"`
	Description string `json:"description,omitempty"`
}

// FormatVersion is written into Metadata.Version of exported records.
const FormatVersion = "1.0"

// Template is the persisted form of a document: page plus elements with
// fully populated styles.
type Template struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	CreatedAt        time.Time    `json:"createdAt"`
	UpdatedAt        time.Time    `json:"updatedAt"`
	CanvasSize       Size         `json:"canvasSize"`
	CanvasBackground Background   `json:"canvasBackground"`
	Elements         []Element    `json:"elements"`
	Table            *TableConfig `json:"tableConfig,omitempty"`
	Invoice          *InvoiceData `json:"invoiceData,omitempty"`
	Metadata         *Metadata    `json:"metadata,omitempty"`
}

// NewTemplateID returns a fresh "template-<uuid>" id.
func NewTemplateID() string { return "template-" + uuid.NewString() }

// Page returns the template's page.
func (t Template) Page() Page {
	return Page{Size: t.CanvasSize, Background: t.CanvasBackground}
}

// ErrInvalidTemplate marks a template record that cannot be loaded.
var ErrInvalidTemplate = errors.New("invalid template")

// Validate checks the structural rules a loadable record must meet: a
// positive page, known element kinds and unique, non-empty element ids.
func (t Template) Validate() error {
	if t.CanvasSize.Width <= 0 || t.CanvasSize.Height <= 0 {
		return fmt.Errorf("%w: canvas size %vx%v", ErrInvalidTemplate, t.CanvasSize.Width, t.CanvasSize.Height)
	}
	seen := make(map[string]struct{}, len(t.Elements))
	for i, e := range t.Elements {
		if e.ID == "" {
			return fmt.Errorf("%w: element %d has no id", ErrInvalidTemplate, i)
		}
		if !e.Kind.Valid() {
			return fmt.Errorf("%w: element %s has unknown type %q", ErrInvalidTemplate, e.ID, e.Kind)
		}
		if _, dup := seen[e.ID]; dup {
			return fmt.Errorf("%w: duplicate element id %s", ErrInvalidTemplate, e.ID)
		}
		seen[e.ID] = struct{}{}
	}
	return nil
}
