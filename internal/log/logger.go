/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package log configures slog for printdesigner. Records go to a console
// handler (pretty or JSON) and optionally to a rotating JSON file. Records
// logged with a context carrying an editing session get the session and
// template ids attached automatically.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"printdesigner/internal/version"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger initialization.
// Environment equivalents (see FromEnv):
//   - PD_LOG_LEVEL=debug|info|warn|error
//   - PD_LOG_FORMAT=console|json
//   - PD_LOG_FILE=<path> (rotating JSON file)
//   - PD_LOG_SOURCE=true|false
type Options struct {
	Level     string
	Format    string // "console" or "json"
	AddSource bool
	File      string
	// MaxSizeMB is the rotation threshold for File; 0 means 10.
	MaxSizeMB int
	// Output replaces stderr for the console handler. Tests use it.
	Output io.Writer
}

var (
	defaultLoggerMu sync.RWMutex
	defaultLogger   *slog.Logger
)

// L returns the application logger, initializing it from the environment on first use.
func L() *slog.Logger {
	defaultLoggerMu.RLock()
	l := defaultLogger
	defaultLoggerMu.RUnlock()
	if l != nil {
		return l
	}
	Init(FromEnv())
	defaultLoggerMu.RLock()
	defer defaultLoggerMu.RUnlock()
	return defaultLogger
}

// Init configures the global logger and installs it as slog.Default.
func Init(opts Options) {
	lvl := parseLevel(opts.Level)
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	var handlers []slog.Handler
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "json":
		handlers = append(handlers, withSessionAttrs(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: lvl, AddSource: opts.AddSource})))
	default:
		handlers = append(handlers, withSessionAttrs(&prettyTextHandler{level: lvl, addSource: opts.AddSource, w: out, mu: &sync.Mutex{}}))
	}

	if f := strings.TrimSpace(opts.File); f != "" {
		size := opts.MaxSizeMB
		if size <= 0 {
			size = 10
		}
		w := &lj.Logger{Filename: f, MaxSize: size, MaxBackups: 3, MaxAge: 28, Compress: true}
		handlers = append(handlers, withSessionAttrs(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl, AddSource: opts.AddSource})))
	}

	var h slog.Handler = handlers[0]
	if len(handlers) > 1 {
		h = &fanout{hs: handlers}
	}

	logger := slog.New(h).With(
		slog.String("app", "printdesigner"),
		slog.String("ver", version.String()),
	)

	defaultLoggerMu.Lock()
	defaultLogger = logger
	defaultLoggerMu.Unlock()
	slog.SetDefault(logger)
}

// FromEnv builds Options from PD_LOG_* environment variables.
func FromEnv() Options {
	return Options{
		Level:     getenv("PD_LOG_LEVEL", "info"),
		Format:    getenv("PD_LOG_FORMAT", "console"),
		AddSource: strings.EqualFold(getenv("PD_LOG_SOURCE", "false"), "true"),
		File:      os.Getenv("PD_LOG_FILE"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// WithComponent returns a logger with the component attribute pre-set.
func WithComponent(name string) *slog.Logger { return L().With(slog.String("component", name)) }

// WithOperation annotates the logger with an operation name.
func WithOperation(l *slog.Logger, op string) *slog.Logger { return l.With(slog.String("op", op)) }

type ctxKey int

const (
	sessionKey ctxKey = iota
	templateKey
)

// ContextWithSession tags ctx with an editing session id.
func ContextWithSession(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey, id)
}

// ContextWithTemplate tags ctx with the id of the template being edited.
func ContextWithTemplate(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, templateKey, id)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// fanout sends each record to every handler that accepts its level.
type fanout struct{ hs []slog.Handler }

func (m *fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.hs {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *fanout) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, h := range m.hs {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	res := make([]slog.Handler, len(m.hs))
	for i, h := range m.hs {
		res[i] = h.WithAttrs(attrs)
	}
	return &fanout{hs: res}
}

func (m *fanout) WithGroup(name string) slog.Handler {
	res := make([]slog.Handler, len(m.hs))
	for i, h := range m.hs {
		res[i] = h.WithGroup(name)
	}
	return &fanout{hs: res}
}

func withSessionAttrs(h slog.Handler) slog.Handler { return &sessionAttrs{next: h} }

// sessionAttrs copies session and template ids from the context onto the record.
type sessionAttrs struct{ next slog.Handler }

func (e *sessionAttrs) Enabled(ctx context.Context, level slog.Level) bool {
	return e.next.Enabled(ctx, level)
}

func (e *sessionAttrs) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		if id, ok := ctx.Value(sessionKey).(string); ok && id != "" {
			r.AddAttrs(slog.String("session", id))
		}
		if id, ok := ctx.Value(templateKey).(string); ok && id != "" {
			r.AddAttrs(slog.String("template", id))
		}
	}
	return e.next.Handle(ctx, r)
}

func (e *sessionAttrs) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &sessionAttrs{next: e.next.WithAttrs(attrs)}
}

func (e *sessionAttrs) WithGroup(name string) slog.Handler {
	return &sessionAttrs{next: e.next.WithGroup(name)}
}

// prettyTextHandler writes one human-readable line per record:
// "15:04:05.000 INF message key=val group.key=val".
type prettyTextHandler struct {
	level     slog.Level
	addSource bool
	w         io.Writer
	mu        *sync.Mutex
	// pre holds attributes added through WithAttrs, already rendered with their group prefix.
	pre    string
	prefix string
}

func (h *prettyTextHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *prettyTextHandler) Handle(_ context.Context, r slog.Record) error {
	b := &strings.Builder{}
	b.Grow(256)
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	b.WriteString(ts.Format("15:04:05.000"))
	b.WriteByte(' ')
	b.WriteString(levelString(r.Level))
	if r.Message != "" {
		b.WriteByte(' ')
		b.WriteString(r.Message)
	}
	b.WriteString(h.pre)
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(b, h.prefix, a)
		return true
	})
	if h.addSource && r.PC != 0 {
		if src := recordSource(r); src != nil {
			b.WriteString(" src=")
			b.WriteString(src.File)
			b.WriteByte(':')
			b.WriteString(strconv.Itoa(src.Line))
		}
	}
	b.WriteByte('\n')
	if h.mu != nil {
		h.mu.Lock()
		defer h.mu.Unlock()
	}
	_, err := io.WriteString(h.w, b.String())
	return err
}

// recordSource resolves the caller of r. Record.Source only exists on newer
// Go releases, so older ones fall back to the program counter.
func recordSource(r slog.Record) *slog.Source {
	if rs, ok := any(r).(interface{ Source() *slog.Source }); ok {
		return rs.Source()
	}
	f, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
	if f.File == "" {
		return nil
	}
	return &slog.Source{Function: f.Function, File: f.File, Line: f.Line}
}

func (h *prettyTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	b := &strings.Builder{}
	b.WriteString(h.pre)
	for _, a := range attrs {
		writeAttr(b, h.prefix, a)
	}
	nh := *h
	nh.pre = b.String()
	return &nh
}

func (h *prettyTextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	nh := *h
	nh.prefix = h.prefix + name + "."
	return &nh
}

func writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			writeAttr(b, p, ga)
		}
		return
	}
	b.WriteByte(' ')
	b.WriteString(prefix)
	b.WriteString(a.Key)
	b.WriteByte('=')
	b.WriteString(attrValueString(a.Value))
}

func levelString(l slog.Level) string {
	switch l {
	case slog.LevelDebug:
		return "DBG"
	case slog.LevelInfo:
		return "INF"
	case slog.LevelWarn:
		return "WRN"
	case slog.LevelError:
		return "ERR"
	default:
		return l.String()
	}
}

func attrValueString(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		s := v.String()
		if strings.ContainsAny(s, " \t\n\"=") {
			return strconv.Quote(s)
		}
		return s
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	default:
		return v.String()
	}
}
