/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package scene is the element model of a document page: element kinds and
// their styles, the page, and the Store that owns the authoritative element
// list. The Store keeps insertion order; paint order comes from ZIndex.
package scene

import (
	"sort"

	"printdesigner/internal/geom"
)

// Store is the scene's element collection. It is not safe for concurrent
// use; the editor serialises access.
type Store struct {
	elems []Element
}

// NewStore returns a store holding copies of els, kept as given.
func NewStore(els ...Element) *Store {
	s := &Store{}
	s.Replace(els)
	return s
}

func (s *Store) Len() int { return len(s.elems) }

// Add appends el with ZIndex one above the current maximum (floor 0) and
// a style narrowed to its kind. The stored element is returned.
func (s *Store) Add(el Element) Element {
	el.ZIndex = s.MaxZ() + 1
	el.Style = CoerceStyle(el.Kind, el.Style)
	s.elems = append(s.elems, el)
	return el
}

// Update merges p into the element with id. Unknown ids are ignored.
func (s *Store) Update(id string, p Patch) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.elems[i] = p.Apply(s.elems[i])
	return true
}

// Remove deletes the element with id. Unknown ids are ignored.
func (s *Store) Remove(id string) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.elems = append(s.elems[:i], s.elems[i+1:]...)
	return true
}

func (s *Store) Get(id string) (Element, bool) {
	i := s.index(id)
	if i < 0 {
		return Element{}, false
	}
	return s.elems[i], true
}

// All returns a copy of the elements in insertion order.
func (s *Store) All() []Element {
	return append([]Element(nil), s.elems...)
}

// Ordered returns a copy of the elements in paint order: ascending ZIndex,
// ties broken by insertion order.
func (s *Store) Ordered() []Element {
	out := s.All()
	sort.SliceStable(out, func(i, j int) bool { return out[i].ZIndex < out[j].ZIndex })
	return out
}

// Replace swaps the whole collection for copies of els.
func (s *Store) Replace(els []Element) {
	s.elems = make([]Element, len(els))
	for i, el := range els {
		el.Style = CoerceStyle(el.Kind, el.Style)
		s.elems[i] = el
	}
}

// MaxZ is the highest ZIndex, never below 0.
func (s *Store) MaxZ() int {
	m := 0
	for _, e := range s.elems {
		m = max(m, e.ZIndex)
	}
	return m
}

// MinZ is the lowest ZIndex, never above 0.
func (s *Store) MinZ() int {
	m := 0
	for _, e := range s.elems {
		m = min(m, e.ZIndex)
	}
	return m
}

// TopmostAt returns the highest painted element containing p for which
// accept returns true. A nil accept matches everything.
func (s *Store) TopmostAt(p geom.Pt, accept func(Element) bool) (Element, bool) {
	ord := s.Ordered()
	for i := len(ord) - 1; i >= 0; i-- {
		e := ord[i]
		if accept != nil && !accept(e) {
			continue
		}
		if e.Bounds().Contains(p) {
			return e, true
		}
	}
	return Element{}, false
}

// Group returns the ids of elements sharing groupID, in insertion order.
func (s *Store) Group(groupID string) []string {
	if groupID == "" {
		return nil
	}
	var ids []string
	for _, e := range s.elems {
		if e.GroupID == groupID {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

func (s *Store) index(id string) int {
	for i := range s.elems {
		if s.elems[i].ID == id {
			return i
		}
	}
	return -1
}
