/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package telemetry sends opt-in anonymous usage events and crash reports.
// Nothing is sent unless the user opted in and an endpoint is configured.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	applog "printdesigner/internal/log"
	"printdesigner/internal/version"
)

// Event names emitted by printdesigner.
const (
	EventTemplateSaved  = "template_saved"
	EventTemplateLoaded = "template_loaded"
	EventExport         = "export"
	EventServerStarted  = "server_started"
)

// allowedProps are the only event properties forwarded; anything else is
// dropped so template content never leaves the machine.
var allowedProps = map[string]bool{
	"elements": true,
	"kind":     true,
	"format":   true,
	"preset":   true,
	"driver":   true,
	"sessions": true,
}

// Config controls the sender.
//
// Environment (FromEnv):
//   - PD_TELEMETRY_OPT_IN=1|true|yes|on
//   - PD_TELEMETRY_URL: endpoint for JSON events
//   - PD_CRASH_UPLOAD_URL: endpoint for crash reports
//   - PD_TELEMETRY_TIMEOUT_MS: request timeout, default 1500
//   - PD_TELEMETRY_DEBUG: log send attempts
type Config struct {
	OptIn        bool
	EventsURL    string
	CrashURL     string
	Timeout      time.Duration
	DebugLogging bool
}

func FromEnv() Config {
	cfg := Config{
		OptIn:        parseBool(os.Getenv("PD_TELEMETRY_OPT_IN")),
		EventsURL:    strings.TrimSpace(os.Getenv("PD_TELEMETRY_URL")),
		CrashURL:     strings.TrimSpace(os.Getenv("PD_CRASH_UPLOAD_URL")),
		Timeout:      1500 * time.Millisecond,
		DebugLogging: os.Getenv("PD_TELEMETRY_DEBUG") != "",
	}
	if ms := strings.TrimSpace(os.Getenv("PD_TELEMETRY_TIMEOUT_MS")); ms != "" {
		if v, err := time.ParseDuration(ms + "ms"); err == nil {
			cfg.Timeout = v
		}
	}
	return cfg
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// Client sends events from a bounded queue on its own goroutine and drops
// them on any error or when the queue is full.
type Client struct {
	cfg     Config
	log     *slog.Logger
	cli     *http.Client
	q       chan map[string]any
	once    sync.Once
	closed  chan struct{}
	dropped atomic.Int64
}

var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

// Default returns the package client, built from the environment on first use.
func Default() *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultClient == nil {
		defaultClient = New(FromEnv())
	}
	return defaultClient
}

// SetDefault installs c as the package client.
func SetDefault(c *Client) {
	defaultMu.Lock()
	defaultClient = c
	defaultMu.Unlock()
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 1500 * time.Millisecond
	}
	c := &Client{
		cfg:    cfg,
		log:    applog.WithComponent("telemetry"),
		cli:    &http.Client{Timeout: cfg.Timeout},
		q:      make(chan map[string]any, 64),
		closed: make(chan struct{}),
	}
	go c.loop()
	return c
}

// Enabled reports whether events are sent.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Dropped counts events lost to a full queue.
func (c *Client) Dropped() int64 { return c.dropped.Load() }

// Event queues an event. Properties outside the allow list are removed.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	payload := map[string]any{
		"name":    name,
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
		"version": version.String(),
		"os":      runtime.GOOS,
		"arch":    runtime.GOARCH,
	}
	for k, v := range props {
		if allowedProps[k] {
			payload[k] = v
		}
	}
	select {
	case c.q <- payload:
	default:
		c.dropped.Add(1)
	}
}

// Event queues an event on the default client.
func Event(name string, props map[string]any) { Default().Event(name, props) }

// Flush waits up to half a second for the queue to drain.
func (c *Client) Flush(ctx context.Context) {
	deadline := time.Now().Add(500 * time.Millisecond)
	for len(c.q) > 0 && time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return
		case <-time.After(25 * time.Millisecond):
		}
	}
}

func (c *Client) Close() { c.once.Do(func() { close(c.closed) }) }

func (c *Client) loop() {
	for {
		select {
		case <-c.closed:
			return
		case item := <-c.q:
			buf, _ := json.Marshal(item)
			c.post(c.cfg.EventsURL, "application/json", buf, "event")
		}
	}
}

func (c *Client) post(url, contentType string, body []byte, what string) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.cli.Do(req)
	if err != nil {
		if c.cfg.DebugLogging {
			c.log.Debug("telemetry send failed", slog.String("what", what), slog.Any("err", err))
		}
		return
	}
	_ = resp.Body.Close()
	if c.cfg.DebugLogging {
		c.log.Debug("telemetry sent", slog.String("what", what), slog.Int("status", resp.StatusCode))
	}
}

// UploadCrash posts a crash report when opted in. It does not block.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return
	}
	go c.post(c.cfg.CrashURL, "text/plain; charset=utf-8", append([]byte(nil), report...), "crash")
}

// UploadCrash posts a crash report through the default client.
func UploadCrash(report []byte) { Default().UploadCrash(report) }
