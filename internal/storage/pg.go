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
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	applog "printdesigner/internal/log"
	"printdesigner/internal/scene"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PGRepository is a Repository on a shared Postgres database, used when
// several designers work from one template collection.
type PGRepository struct {
	db  *sql.DB
	log *slog.Logger
}

var _ Repository = (*PGRepository)(nil)

// OpenPG connects through the pgx stdlib driver, pings and migrates.
func OpenPG(ctx context.Context, dsn string) (*PGRepository, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	r := &PGRepository{db: db, log: applog.WithComponent("storage").With(slog.String("driver", "postgres"))}
	if err := r.migrate(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return r, nil
}

func (r *PGRepository) Close() error { return r.db.Close() }

func (r *PGRepository) migrate(ctx context.Context) error {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	// dialect=PostgreSQL
	if _, err := r.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}
	applied := map[int64]bool{}
	rows, err := r.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("select schema_migrations: %w", err)
	}
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			_ = rows.Close()
			return err
		}
		applied[v] = true
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, fname := range files {
		v, err := migrationVersion(fname)
		if err != nil {
			return err
		}
		if applied[v] {
			continue
		}
		b, err := migrationsFS.ReadFile(path.Join("migrations", fname))
		if err != nil {
			return err
		}
		r.log.Info("applying migration", slog.String("file", fname))
		if _, err := r.db.ExecContext(ctx, string(b)); err != nil {
			return fmt.Errorf("apply %s: %w", fname, err)
		}
		if _, err := r.db.ExecContext(ctx, `INSERT INTO schema_migrations(version, name) VALUES($1, $2)`, v, fname); err != nil {
			return fmt.Errorf("record %s: %w", fname, err)
		}
	}
	return nil
}

func migrationVersion(name string) (int64, error) {
	prefix, _, ok := strings.Cut(path.Base(name), "_")
	if !ok {
		return 0, errors.New("invalid migration filename: " + name)
	}
	v, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse version from %s: %w", name, err)
	}
	return v, nil
}

func (r *PGRepository) Put(ctx context.Context, t scene.Template) error {
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
	_, err = r.db.ExecContext(ctx, `INSERT INTO templates(id, name, created_at, updated_at, elements, body)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, updated_at=EXCLUDED.updated_at,
			elements=EXCLUDED.elements, body=EXCLUDED.body`,
		t.ID, t.Name, orNow(t.CreatedAt), orNow(t.UpdatedAt), len(t.Elements), string(body))
	if err != nil {
		return fmt.Errorf("put template %s: %w", t.ID, err)
	}
	return nil
}

func (r *PGRepository) Get(ctx context.Context, id string) (scene.Template, error) {
	var body string
	err := r.db.QueryRowContext(ctx, `SELECT body::text FROM templates WHERE id = $1`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return scene.Template{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return scene.Template{}, fmt.Errorf("get template %s: %w", id, err)
	}
	var t scene.Template
	if err := json.Unmarshal([]byte(body), &t); err != nil {
		return scene.Template{}, fmt.Errorf("%w: stored body of %s: %v", ErrInvalidTemplate, id, err)
	}
	return t, nil
}

func (r *PGRepository) List(ctx context.Context) ([]Summary, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, updated_at, elements FROM templates ORDER BY updated_at DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Summary
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.Name, &s.UpdatedAt, &s.Elements); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PGRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete template %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

// OpenRepository opens the repository selected by driver: "sqlite" (the
// default) at dsn as a file path, or "postgres" at dsn as a connection URL.
func OpenRepository(ctx context.Context, driver, dsn string) (Repository, func() error, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite":
		lib, err := OpenLibrary(dsn)
		if err != nil {
			return nil, nil, err
		}
		return lib, lib.Close, nil
	case "postgres", "pg":
		r, err := OpenPG(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		return r, r.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown storage driver %q", driver)
}
