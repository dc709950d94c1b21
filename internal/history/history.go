/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package history keeps the linear undo/redo timeline of a document. Each
// entry is a full copy of the element list; the cursor marks the entry that
// matches the live scene.
package history

import (
	"sync"
	"time"

	"printdesigner/internal/scene"
)

// Snapshot is one timeline entry.
type Snapshot struct {
	Elements []scene.Element
	Label    string
	TS       time.Time
}

// Config caps the timeline. Checkpoints are never coalesced.
type Config struct {
	// MaxEntries drops the oldest entries beyond this count; 0 means unlimited.
	MaxEntries int
	// OnCheckpoint, when set, observes every recorded snapshot after the
	// timeline has been updated. It must not call back into the Manager.
	OnCheckpoint func(Snapshot)
	// Now overrides the clock; tests set it.
	Now func() time.Time
}

// Manager is safe for concurrent use.
type Manager struct {
	cfg     Config
	mu      sync.Mutex
	entries []Snapshot
	cursor  int
}

// NewManager starts a timeline whose first entry is initial.
func NewManager(cfg Config, initial []scene.Element) *Manager {
	if cfg.MaxEntries < 0 {
		cfg.MaxEntries = 0
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	m := &Manager{cfg: cfg}
	m.entries = []Snapshot{{Elements: clone(initial), Label: "initial", TS: cfg.Now()}}
	return m
}

func clone(els []scene.Element) []scene.Element {
	return append(make([]scene.Element, 0, len(els)), els...)
}

// Checkpoint records els after the cursor, discarding any redo entries.
func (m *Manager) Checkpoint(els []scene.Element, label string) {
	m.mu.Lock()
	s := Snapshot{Elements: clone(els), Label: label, TS: m.cfg.Now()}
	m.entries = append(m.entries[:m.cursor+1], s)
	m.cursor = len(m.entries) - 1
	m.enforceCapLocked()
	hook := m.cfg.OnCheckpoint
	m.mu.Unlock()
	if hook != nil {
		hook(Snapshot{Elements: clone(s.Elements), Label: s.Label, TS: s.TS})
	}
}

// Undo steps the cursor back and returns a copy of that entry. At the first
// entry it returns false and changes nothing.
func (m *Manager) Undo() ([]scene.Element, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cursor == 0 {
		return nil, false
	}
	m.cursor--
	return clone(m.entries[m.cursor].Elements), true
}

// Redo steps the cursor forward and returns a copy of that entry. At the
// last entry it returns false and changes nothing.
func (m *Manager) Redo() ([]scene.Element, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cursor >= len(m.entries)-1 {
		return nil, false
	}
	m.cursor++
	return clone(m.entries[m.cursor].Elements), true
}

func (m *Manager) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursor > 0
}

func (m *Manager) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursor < len(m.entries)-1
}

// Current returns a copy of the entry under the cursor.
func (m *Manager) Current() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.entries[m.cursor]
	s.Elements = clone(s.Elements)
	return s
}

// Reset discards the timeline and starts over from els.
func (m *Manager) Reset(els []scene.Element) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = []Snapshot{{Elements: clone(els), Label: "initial", TS: m.cfg.Now()}}
	m.cursor = 0
}

// Stats returns the number of entries and the cursor position.
func (m *Manager) Stats() (entries, cursor int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries), m.cursor
}

// Labels lists entry labels oldest first.
func (m *Manager) Labels() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Label
	}
	return out
}

func (m *Manager) enforceCapLocked() {
	if m.cfg.MaxEntries <= 0 || len(m.entries) <= m.cfg.MaxEntries {
		return
	}
	drop := len(m.entries) - m.cfg.MaxEntries
	m.entries = append([]Snapshot(nil), m.entries[drop:]...)
	m.cursor -= drop
	if m.cursor < 0 {
		m.cursor = 0
	}
}
