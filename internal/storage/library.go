/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"printdesigner/internal/history"
	applog "printdesigner/internal/log"
	"printdesigner/internal/scene"
	"printdesigner/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

// schemaVersion tracks the library schema. Bump it together with a new
// step in runMigrations.
const schemaVersion = 2

// Summary is one row of a repository listing.
type Summary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updatedAt"`
	Elements  int       `json:"elements"`
}

// Repository stores whole template records by id.
type Repository interface {
	Put(ctx context.Context, t scene.Template) error
	Get(ctx context.Context, id string) (scene.Template, error)
	List(ctx context.Context) ([]Summary, error)
	Delete(ctx context.Context, id string) error
}

// Library is the local template collection in a single SQLite file.
type Library struct {
	db   *sql.DB
	path string
	log  *slog.Logger
}

var _ Repository = (*Library)(nil)

// OpenLibrary opens or creates the library at path in WAL mode and brings
// its schema up to date.
func OpenLibrary(path string) (*Library, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "library_open").With(slog.String("path", path))
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("library path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create library dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		l.Warn("enable foreign_keys failed", slog.Any("err", err))
	}
	for _, step := range []func(context.Context, *sql.DB) error{ensureMetaAndVersion, ensureBaseSchema, runMigrations} {
		if err := step(ctx, db); err != nil {
			_ = db.Close()
			l.Error("prepare library failed", slog.Any("err", err))
			return nil, err
		}
	}
	l.Debug("library ready")
	return &Library{db: db, path: path, log: applog.WithComponent("storage")}, nil
}

func (lib *Library) Close() error { return lib.db.Close() }

// Path returns the database file path.
func (lib *Library) Path() string { return lib.path }

// SchemaVersion reports the schema version recorded in the database.
func (lib *Library) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := lib.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&v)
	return v, err
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var cur int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// fresh database starts at the base schema; migrations take it further
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, 1, ?, ?, ?)`, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// language=SQL
// dialect=SQLite
var baseSchema = []string{
	`CREATE TABLE IF NOT EXISTS templates (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL,
		elements    INTEGER NOT NULL,
		body        BLOB NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS checkpoints (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		template_id  TEXT NOT NULL,
		ts           TEXT NOT NULL,
		label        TEXT NOT NULL,
		elements     BLOB NOT NULL
	);`,
}

func ensureBaseSchema(ctx context.Context, db *sql.DB) error {
	for _, q := range baseSchema {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create base schema: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema steps up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for cur < schemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			stmts = []string{
				`CREATE TABLE IF NOT EXISTS thumbnails (
					template_id TEXT PRIMARY KEY REFERENCES templates(id) ON DELETE CASCADE,
					png         BLOB NOT NULL,
					updated_at  TEXT NOT NULL
				);`,
				`CREATE INDEX IF NOT EXISTS idx_checkpoints_template ON checkpoints(template_id, ts);`,
			}
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		cur = next
	}
	return nil
}

// language=SQL
// dialect=SQLite
const upsertTemplateSQL = `INSERT INTO templates(id, name, created_at, updated_at, elements, body)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET name=excluded.name, updated_at=excluded.updated_at,
	elements=excluded.elements, body=excluded.body`

// Put inserts or replaces t. A template without an id gets a fresh one.
func (lib *Library) Put(ctx context.Context, t scene.Template) error {
	if t.ID == "" {
		t.ID = scene.NewTemplateID()
	}
	if err := t.Validate(); err != nil {
		return err
	}
	body, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal template: %w", err)
	}
	_, err = lib.db.ExecContext(ctx, upsertTemplateSQL, t.ID, t.Name,
		formatTS(t.CreatedAt), formatTS(t.UpdatedAt), len(t.Elements), body)
	if err != nil {
		return fmt.Errorf("put template %s: %w", t.ID, err)
	}
	return nil
}

func (lib *Library) Get(ctx context.Context, id string) (scene.Template, error) {
	var body []byte
	err := lib.db.QueryRowContext(ctx, `SELECT body FROM templates WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return scene.Template{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return scene.Template{}, fmt.Errorf("get template %s: %w", id, err)
	}
	var t scene.Template
	if err := json.Unmarshal(body, &t); err != nil {
		return scene.Template{}, fmt.Errorf("%w: stored body of %s: %v", ErrInvalidTemplate, id, err)
	}
	return t, nil
}

// List returns every template, most recently updated first.
func (lib *Library) List(ctx context.Context) ([]Summary, error) {
	rows, err := lib.db.QueryContext(ctx, `SELECT id, name, updated_at, elements FROM templates ORDER BY updated_at DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Summary
	for rows.Next() {
		var s Summary
		var ts string
		if err := rows.Scan(&s.ID, &s.Name, &ts, &s.Elements); err != nil {
			return nil, err
		}
		s.UpdatedAt = parseTS(ts)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Delete removes a template with its thumbnail and checkpoint journal.
func (lib *Library) Delete(ctx context.Context, id string) error {
	tx, err := lib.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM templates WHERE id = ?`, id)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete template %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_ = tx.Rollback()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM checkpoints WHERE template_id = ?`, id); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete checkpoints of %s: %w", id, err)
	}
	return tx.Commit()
}

// Import validates the template file at path and stores it.
func (lib *Library) Import(ctx context.Context, path string) (scene.Template, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return scene.Template{}, fmt.Errorf("read %s: %w", path, err)
	}
	t, err := ValidateTemplate(b)
	if err != nil {
		return scene.Template{}, err
	}
	if err := lib.Put(ctx, t); err != nil {
		return scene.Template{}, err
	}
	return t, nil
}

// PutThumbnail stores a PNG preview for an existing template.
func (lib *Library) PutThumbnail(ctx context.Context, id string, png []byte) error {
	_, err := lib.db.ExecContext(ctx, `INSERT INTO thumbnails(template_id, png, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(template_id) DO UPDATE SET png=excluded.png, updated_at=excluded.updated_at`,
		id, png, formatTS(time.Now()))
	if err != nil {
		return fmt.Errorf("put thumbnail %s: %w", id, err)
	}
	return nil
}

// Thumbnail returns the stored PNG preview of id, or ErrNotFound.
func (lib *Library) Thumbnail(ctx context.Context, id string) ([]byte, error) {
	var png []byte
	err := lib.db.QueryRowContext(ctx, `SELECT png FROM thumbnails WHERE template_id = ?`, id).Scan(&png)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: thumbnail %s", ErrNotFound, id)
	}
	return png, err
}

func formatTS(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTS(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

// checkpoint journal

// language=SQL
// dialect=SQLite
const insertCheckpointSQL = `INSERT INTO checkpoints(template_id, ts, label, elements) VALUES (?, ?, ?, ?)`

// language=SQL
// dialect=SQLite
const listCheckpointsSQL = `SELECT ts, label, elements FROM checkpoints WHERE template_id = ? ORDER BY id DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneCheckpointsSQL = `DELETE FROM checkpoints WHERE template_id = ? AND id NOT IN (
	SELECT id FROM checkpoints WHERE template_id = ? ORDER BY id DESC LIMIT ?
)`

// AppendCheckpoint journals one history snapshot of a template.
func (lib *Library) AppendCheckpoint(ctx context.Context, templateID string, s history.Snapshot) error {
	els, err := json.Marshal(s.Elements)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	_, err = lib.db.ExecContext(ctx, insertCheckpointSQL, templateID, formatTS(s.TS), s.Label, els)
	return err
}

// Checkpoints returns up to limit journaled snapshots, newest first.
func (lib *Library) Checkpoints(ctx context.Context, templateID string, limit int) ([]history.Snapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := lib.db.QueryContext(ctx, listCheckpointsSQL, templateID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []history.Snapshot
	for rows.Next() {
		var ts, label string
		var blob []byte
		if err := rows.Scan(&ts, &label, &blob); err != nil {
			return nil, err
		}
		var els []scene.Element
		if err := json.Unmarshal(blob, &els); err != nil {
			return nil, fmt.Errorf("decode checkpoint: %w", err)
		}
		out = append(out, history.Snapshot{Elements: els, Label: label, TS: parseTS(ts)})
	}
	return out, rows.Err()
}

// PruneCheckpoints keeps the newest keep entries of a template's journal.
func (lib *Library) PruneCheckpoints(ctx context.Context, templateID string, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	res, err := lib.db.ExecContext(ctx, pruneCheckpointsSQL, templateID, templateID, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Journal returns a history checkpoint hook that appends to the journal of
// templateID. Write failures are logged, never surfaced to the editor.
func (lib *Library) Journal(templateID string) func(history.Snapshot) {
	return func(s history.Snapshot) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := lib.AppendCheckpoint(ctx, templateID, s); err != nil {
			lib.log.Warn("journal checkpoint failed", slog.String("template", templateID), slog.Any("err", err))
		}
	}
}
