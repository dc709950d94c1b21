/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package config loads the per-user printdesigner configuration: a YAML file
// merged over built-in defaults, then PD_* environment overrides. The API token
// for the HTTP server lives in the OS keyring, never in the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"

	applog "printdesigner/internal/log"
)

// EditorConfig seeds a new editing session.
type EditorConfig struct {
	GridSize   int     `yaml:"grid_size"`
	SnapToGrid bool    `yaml:"snap_to_grid"`
	ShowGrid   bool    `yaml:"show_grid"`
	Zoom       float64 `yaml:"zoom"`
	PageWidth  float64 `yaml:"page_width"`
	PageHeight float64 `yaml:"page_height"`
}

type HistoryConfig struct {
	// MaxEntries caps the undo timeline; 0 keeps every checkpoint.
	MaxEntries int `yaml:"max_entries"`
}

type StorageConfig struct {
	Driver  string `yaml:"driver"` // "sqlite" | "postgres"
	Library string `yaml:"library"`
	DSN     string `yaml:"dsn"`
	// Backups is how many timestamped copies a template file keeps.
	Backups int `yaml:"backups"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	// RequireToken rejects API calls that lack the keyring token.
	RequireToken bool `yaml:"require_token"`
}

type GeneralConfig struct {
	TelemetryOptIn bool `yaml:"telemetry_opt_in"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// AppConfig is the YAML document at ConfigPath.
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Editor        EditorConfig  `yaml:"editor"`
	History       HistoryConfig `yaml:"history"`
	Storage       StorageConfig `yaml:"storage"`
	Server        ServerConfig  `yaml:"server"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Editor:        EditorConfig{GridSize: 20, SnapToGrid: true, ShowGrid: true, Zoom: 1, PageWidth: 794, PageHeight: 1123},
		History:       HistoryConfig{MaxEntries: 0},
		Storage:       StorageConfig{Driver: "sqlite", Backups: 5},
		Server:        ServerConfig{Addr: "127.0.0.1:8787"},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath     = "PD_CONFIG"
	EnvGridSize       = "PD_GRID_SIZE"
	EnvSnapToGrid     = "PD_SNAP_TO_GRID"
	EnvHistoryMax     = "PD_HISTORY_MAX"
	EnvStorageDriver  = "PD_STORAGE_DRIVER"
	EnvLibraryPath    = "PD_LIBRARY"
	EnvDSN            = "PD_DSN"
	EnvServerAddr     = "PD_ADDR"
	EnvTelemetryOptIn = "PD_TELEMETRY_OPT_IN"
	EnvLogLevel       = "PD_LOG_LEVEL"
	EnvLogFormat      = "PD_LOG_FORMAT"
	EnvLogSource      = "PD_LOG_SOURCE"
	EnvLogFile        = "PD_LOG_FILE"
)

const (
	keyringService = "PrintDesigner"
	keyringToken   = "api_token"
)

// TokenStore abstracts the OS keyring so tests can stub it.
type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

var tokenStore TokenStore = osKeyring{}

// ConfigPath returns the per-user config file path. PD_CONFIG wins when set.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "PrintDesigner")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "PrintDesigner")
	default:
		if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
			base = filepath.Join(x, "printdesigner")
		} else if h := os.Getenv("HOME"); h != "" {
			base = filepath.Join(h, ".config", "printdesigner")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// DefaultLibraryPath places the SQLite template library next to the config file.
func DefaultLibraryPath() (string, error) {
	p, err := ConfigPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(p), "library.db"), nil
}

// Load reads the config file (if present), applies defaults and environment
// overrides, and returns the API token from the keyring. A missing keyring
// entry yields an empty token; a malformed file is an error.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, "", fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		return cfg, "", fmt.Errorf("read %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	if cfg.Storage.Library == "" {
		if lp, err := DefaultLibraryPath(); err == nil {
			cfg.Storage.Library = lp
		}
	}
	tok, err := tokenStore.Get(keyringService, keyringToken)
	if err != nil {
		tok = ""
	}
	return cfg, tok, nil
}

// Save writes the YAML config.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// SetToken stores the API token in the OS keyring.
func SetToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("empty token")
	}
	return tokenStore.Set(keyringService, keyringToken, token)
}

// ClearToken removes the API token; clearing an absent token is not an error.
func ClearToken() error {
	if err := tokenStore.Delete(keyringService, keyringToken); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return nil
}

// LogOptions converts the logging section into logger options.
func (l LoggingConfig) LogOptions() applog.Options {
	return applog.Options{Level: l.Level, Format: l.Format, AddSource: l.Source, File: l.File}
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn

	if src.Editor.GridSize > 0 {
		dst.Editor.GridSize = src.Editor.GridSize
	}
	// booleans are copied as written so a user can turn them off
	dst.Editor.SnapToGrid = src.Editor.SnapToGrid
	dst.Editor.ShowGrid = src.Editor.ShowGrid
	if src.Editor.Zoom > 0 {
		dst.Editor.Zoom = src.Editor.Zoom
	}
	if src.Editor.PageWidth > 0 {
		dst.Editor.PageWidth = src.Editor.PageWidth
	}
	if src.Editor.PageHeight > 0 {
		dst.Editor.PageHeight = src.Editor.PageHeight
	}

	if src.History.MaxEntries > 0 {
		dst.History.MaxEntries = src.History.MaxEntries
	}

	if d := strings.ToLower(strings.TrimSpace(src.Storage.Driver)); d != "" {
		dst.Storage.Driver = d
	}
	if s := strings.TrimSpace(src.Storage.Library); s != "" {
		dst.Storage.Library = s
	}
	if s := strings.TrimSpace(src.Storage.DSN); s != "" {
		dst.Storage.DSN = s
	}
	if src.Storage.Backups > 0 {
		dst.Storage.Backups = src.Storage.Backups
	}

	if s := strings.TrimSpace(src.Server.Addr); s != "" {
		dst.Server.Addr = s
	}
	dst.Server.RequireToken = src.Server.RequireToken

	if s := strings.TrimSpace(src.Logging.Level); s != "" {
		dst.Logging.Level = strings.ToLower(s)
	}
	if s := strings.TrimSpace(src.Logging.Format); s != "" {
		dst.Logging.Format = strings.ToLower(s)
	}
	dst.Logging.Source = src.Logging.Source
	if s := strings.TrimSpace(src.Logging.File); s != "" {
		dst.Logging.File = s
	}
}

func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

func applyEnvOverrides(cfg *AppConfig) {
	env := func(k string) string { return strings.TrimSpace(os.Getenv(k)) }
	if v := env(EnvGridSize); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Editor.GridSize = n
		}
	}
	if v := env(EnvSnapToGrid); v != "" {
		cfg.Editor.SnapToGrid = parseBool(v)
	}
	if v := env(EnvHistoryMax); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.History.MaxEntries = n
		}
	}
	if v := env(EnvStorageDriver); v != "" {
		cfg.Storage.Driver = strings.ToLower(v)
	}
	if v := env(EnvLibraryPath); v != "" {
		cfg.Storage.Library = v
	}
	if v := env(EnvDSN); v != "" {
		cfg.Storage.DSN = v
	}
	if v := env(EnvServerAddr); v != "" {
		cfg.Server.Addr = v
	}
	if v := env(EnvTelemetryOptIn); v != "" {
		cfg.General.TelemetryOptIn = parseBool(v)
	}
	if v := env(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := env(EnvLogFormat); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := env(EnvLogSource); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := env(EnvLogFile); v != "" {
		cfg.Logging.File = v
	}
}

var overrideKeys = map[string]string{
	"editor.grid_size":         EnvGridSize,
	"editor.snap_to_grid":      EnvSnapToGrid,
	"history.max_entries":      EnvHistoryMax,
	"storage.driver":           EnvStorageDriver,
	"storage.library":          EnvLibraryPath,
	"storage.dsn":              EnvDSN,
	"server.addr":              EnvServerAddr,
	"general.telemetry_opt_in": EnvTelemetryOptIn,
	"logging.level":            EnvLogLevel,
	"logging.format":           EnvLogFormat,
	"logging.source":           EnvLogSource,
	"logging.file":             EnvLogFile,
}

// EnvOverrideFor reports which env var, if any, currently overrides a config key.
func EnvOverrideFor(key string) (string, bool) {
	name, ok := overrideKeys[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}
