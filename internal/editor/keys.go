/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"strings"

	"printdesigner/internal/interaction"
)

// Key is a key press with its modifiers. Name follows the DOM key names
// ("Delete", "Escape", "s", "z", ...).
type Key struct {
	Name  string
	Ctrl  bool
	Meta  bool
	Shift bool
}

// ParseKey reads shortcuts written as "ctrl+shift+z", "cmd+s" or "Delete".
func ParseKey(s string) Key {
	var k Key
	parts := strings.Split(s, "+")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if i == len(parts)-1 {
			k.Name = p
			break
		}
		switch strings.ToLower(p) {
		case "ctrl", "control":
			k.Ctrl = true
		case "cmd", "meta":
			k.Meta = true
		case "shift":
			k.Shift = true
		}
	}
	return k
}

func (k Key) command() bool { return k.Ctrl || k.Meta }

// KeyDown runs the shortcut bound to k and reports whether one matched.
//
//	Delete               remove the selected element
//	Escape               end any pointer session and clear the selection
//	Ctrl/Cmd+S           save
//	Ctrl/Cmd+Z           undo
//	Ctrl/Cmd+Shift+Z, Y  redo
func (e *Editor) KeyDown(k Key) bool {
	switch {
	case k.Name == "Delete":
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.ctx.Selected == "" {
			return false
		}
		return e.deleteLocked(e.ctx.Selected)
	case k.Name == "Escape":
		e.mu.Lock()
		defer e.mu.Unlock()
		e.stepLocked(interaction.Event{Type: interaction.Escape})
		return true
	case k.command() && strings.EqualFold(k.Name, "s"):
		e.Save()
		return true
	case k.command() && strings.EqualFold(k.Name, "z") && !k.Shift:
		e.Undo()
		return true
	case k.command() && (strings.EqualFold(k.Name, "z") || strings.EqualFold(k.Name, "y")):
		e.Redo()
		return true
	}
	return false
}
