/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"printdesigner/internal/scene"
)

//go:embed template.schema.json
var templateSchema []byte

// ErrInvalidTemplate is returned for records that fail schema or structural
// validation.
var ErrInvalidTemplate = scene.ErrInvalidTemplate

// ErrNotFound is returned when a template id is not in a repository.
var ErrNotFound = errors.New("template not found")

var schemaLoader = gojsonschema.NewBytesLoader(templateSchema)

// ValidateTemplate checks raw JSON against the template schema and decodes
// it. Schema violations are reported together, wrapped in ErrInvalidTemplate.
func ValidateTemplate(data []byte) (scene.Template, error) {
	res, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return scene.Template{}, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return scene.Template{}, fmt.Errorf("%w: %s", ErrInvalidTemplate, strings.Join(msgs, "; "))
	}
	var t scene.Template
	if err := json.Unmarshal(data, &t); err != nil {
		return scene.Template{}, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	if err := t.Validate(); err != nil {
		return scene.Template{}, err
	}
	return t, nil
}

// MarshalTemplate renders t in the indented on-disk form.
func MarshalTemplate(t scene.Template) ([]byte, error) {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal template: %w", err)
	}
	return append(data, '\n'), nil
}
