/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func lastJSONLine(t *testing.T, b []byte) map[string]any {
	t.Helper()
	sc := bufio.NewScanner(bytes.NewReader(b))
	var last string
	for sc.Scan() {
		if s := strings.TrimSpace(sc.Text()); s != "" {
			last = s
		}
	}
	if last == "" {
		t.Fatalf("no log lines found")
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(last), &m); err != nil {
		t.Fatalf("unmarshal json log: %v", err)
	}
	return m
}

func TestInitWritesRotatingJSONFile(t *testing.T) {
	fpath := filepath.Join(t.TempDir(), "pd.log")
	var console bytes.Buffer
	Init(Options{Level: "debug", Format: "json", File: fpath, Output: &console})

	l := WithOperation(WithComponent("testcomp"), "op1")
	l.Info("hello world", slog.String("k", "v"))

	b, err := os.ReadFile(fpath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	m := lastJSONLine(t, b)
	if m["app"] != "printdesigner" {
		t.Fatalf("app attr: got %v", m["app"])
	}
	if _, ok := m["ver"].(string); !ok {
		t.Fatalf("missing ver attr")
	}
	if m["component"] != "testcomp" || m["op"] != "op1" || m["msg"] != "hello world" {
		t.Fatalf("unexpected record: %v", m)
	}
	if console.Len() == 0 {
		t.Fatalf("console handler received nothing")
	}
}

func TestSessionAttrsFromContext(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Format: "json", Output: &buf})
	ctx := ContextWithTemplate(ContextWithSession(context.Background(), "s-1"), "template-9")
	L().InfoContext(ctx, "moved")
	m := lastJSONLine(t, buf.Bytes())
	if m["session"] != "s-1" || m["template"] != "template-9" {
		t.Fatalf("context attrs missing: %v", m)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("PD_LOG_LEVEL", "warn")
	t.Setenv("PD_LOG_FORMAT", "json")
	t.Setenv("PD_LOG_SOURCE", "true")
	t.Setenv("PD_LOG_FILE", "")

	opts := FromEnv()
	if opts.Level != "warn" || opts.Format != "json" || !opts.AddSource || opts.File != "" {
		t.Fatalf("FromEnv mismatch: %+v", opts)
	}
	if v := getenv("PD_SOME_UNSET_VAR", "fallback"); v != "fallback" {
		t.Fatalf("getenv fallback: got %q", v)
	}
}

func TestPrettyTextHandler(t *testing.T) {
	var buf bytes.Buffer
	var h slog.Handler = &prettyTextHandler{level: slog.LevelWarn, w: &buf}

	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatalf("info should not be enabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Fatalf("error should be enabled at warn level")
	}

	h = h.WithAttrs([]slog.Attr{slog.String("k", "v")}).WithGroup("grp")
	r := slog.NewRecord(time.Now(), slog.LevelError, "boom", 0)
	r.AddAttrs(slog.Int("n", 42), slog.Float64("pi", 3.14), slog.String("msg2", "two words"))
	if err := h.Handle(context.Background(), r); err != nil {
		t.Fatalf("handle: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"ERR", "boom", " k=v", "grp.n=42", "grp.pi=3.14", `grp.msg2="two words"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("output %q missing %q", out, want)
		}
	}
	if strings.Contains(out, "grp.k=") {
		t.Fatalf("attrs added before the group must not be prefixed: %q", out)
	}
}

func TestPrettyTextHandlerSource(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(&prettyTextHandler{level: slog.LevelInfo, addSource: true, w: &buf})
	l.Info("here")
	out := buf.String()
	if !strings.Contains(out, " src=") || !strings.Contains(out, "logger_test.go:") {
		t.Fatalf("source missing: %q", out)
	}
}
