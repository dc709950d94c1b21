/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"printdesigner/internal/scene"
	"printdesigner/internal/storage"
)

func captureExit(t *testing.T) *int {
	t.Helper()
	code := -1
	old := exitFn
	exitFn = func(c int) { code = c }
	t.Cleanup(func() { exitFn = old })

	oldStderr := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	t.Cleanup(func() {
		_ = w.Close()
		os.Stderr = oldStderr
		_, _ = io.Copy(io.Discard, r)
	})
	return &code
}

func TestRecoverWritesReportAndAutosave(t *testing.T) {
	code := captureExit(t)
	dir := t.TempDir()
	tpl := scene.Template{ID: "template-x", Name: "Crashy", CanvasSize: scene.Size{Width: 100, Height: 100}}

	func() {
		defer Recover(Options{Dir: dir, Snapshot: func() (scene.Template, bool) { return tpl, true }})
		panic("boom")
	}()

	if *code != 2 {
		t.Fatalf("exit code = %d", *code)
	}
	reports, _ := filepath.Glob(filepath.Join(dir, "crash-*.log"))
	if len(reports) != 1 {
		t.Fatalf("reports = %v", reports)
	}
	b, _ := os.ReadFile(reports[0])
	if !strings.Contains(string(b), "Panic: boom") || !strings.Contains(string(b), "Autosave: ") {
		t.Fatalf("report = %s", b)
	}
	saved, _ := filepath.Glob(filepath.Join(dir, storage.AutosaveDirName, "template-x-*.json"))
	if len(saved) != 1 {
		t.Fatalf("autosaves = %v", saved)
	}
}

func TestRecoverSurvivesPanickingSnapshot(t *testing.T) {
	code := captureExit(t)
	dir := t.TempDir()
	func() {
		defer Recover(Options{Dir: dir, Snapshot: func() (scene.Template, bool) { panic("locked") }})
		panic("boom")
	}()
	if *code != 2 {
		t.Fatalf("exit code = %d", *code)
	}
	if _, err := os.Stat(filepath.Join(dir, storage.AutosaveDirName)); !os.IsNotExist(err) {
		t.Fatal("autosave written from panicking snapshot")
	}
}

func TestRecoverWithoutPanicIsNoop(t *testing.T) {
	code := captureExit(t)
	func() { defer Recover(Options{}) }()
	if *code != -1 {
		t.Fatalf("exit called with %d", *code)
	}
}
