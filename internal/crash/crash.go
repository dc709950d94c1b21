/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic into a crash report and an autosave of the
// template being edited, then exits.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "printdesigner/internal/log"
	"printdesigner/internal/scene"
	"printdesigner/internal/storage"
	"printdesigner/internal/telemetry"
	"printdesigner/internal/version"
)

// exitFn lets tests observe the exit without terminating.
var exitFn = os.Exit

// Options tells Recover where to write and what to save.
type Options struct {
	// Dir receives the crash report and the autosave folder; "" means the
	// system temp dir.
	Dir string
	// Snapshot returns the live template, or false when nothing is open.
	Snapshot func() (scene.Template, bool)
}

// Recover must be deferred directly:
//
//	defer crash.Recover(opts)
func Recover(opts Options) {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	dir := opts.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	var autosaved string
	if opts.Snapshot != nil {
		if t, ok := safeSnapshot(opts.Snapshot); ok {
			p, err := storage.AutosaveCrashSnapshot(dir, t)
			if err != nil {
				l.Error("autosave crash snapshot failed", slog.Any("err", err))
			} else {
				autosaved = p
				l.Info("autosave crash snapshot written", slog.String("path", p))
			}
		}
	}
	reportPath, err := writeReport(dir, r, stack, autosaved)
	if err != nil {
		l.Error("write crash report failed", slog.Any("err", err))
	}

	_, _ = fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath)
	if autosaved != "" {
		_, _ = fmt.Fprintf(os.Stderr, "Your template was saved to: %s\n", autosaved)
	}
	_, _ = fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)
	exitFn(2)
}

// safeSnapshot guards against the snapshot itself panicking, for example
// when the editor lock is held by the goroutine that crashed.
func safeSnapshot(fn func() (scene.Template, bool)) (t scene.Template, ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return fn()
}

func writeReport(dir string, panicVal any, stack []byte, autosaved string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", time.Now().Format("20060102-150405")))

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Print Designer Crash Report\n")
	fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&buf, "Version: %s\n", version.String())
	fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if autosaved != "" {
		fmt.Fprintf(&buf, "Autosave: %s\n", autosaved)
	}
	fmt.Fprintf(&buf, "\nPanic: %v\n\nStack:\n%s\n", panicVal, stack)

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return path, err
	}
	telemetry.UploadCrash(buf.Bytes())
	return path, nil
}
