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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"printdesigner/internal/history"
	"printdesigner/internal/scene"
	"printdesigner/internal/templates"
)

func sampleTemplate(name string) scene.Template {
	now := time.Date(2025, 5, 6, 7, 8, 9, 0, time.UTC)
	doc := templates.Default(now)
	table, invoice := scene.DefaultTableConfig(), scene.SampleInvoice()
	return scene.Template{
		ID:               scene.NewTemplateID(),
		Name:             name,
		CreatedAt:        now,
		UpdatedAt:        now,
		CanvasSize:       doc.Page.Size,
		CanvasBackground: doc.Page.Background,
		Elements:         doc.Elements,
		Table:            &table,
		Invoice:          &invoice,
		Metadata:         &scene.Metadata{Version: scene.FormatVersion, CreatedBy: "test"},
	}
}

func TestSavedTemplateConformsToSchema(t *testing.T) {
	data, err := MarshalTemplate(sampleTemplate("Schema"))
	if err != nil {
		t.Fatal(err)
	}
	got, err := ValidateTemplate(data)
	if err != nil {
		t.Fatalf("ValidateTemplate: %v", err)
	}
	if len(got.Elements) != 13 || got.Table == nil || got.Table.Styles.HeaderFontSize != 14 {
		t.Fatalf("decoded = %d elements, table %+v", len(got.Elements), got.Table)
	}
}

func TestValidateTemplateRejects(t *testing.T) {
	cases := map[string]string{
		"not json":      `{`,
		"missing id":    `{"name":"x","canvasSize":{"width":1,"height":1},"elements":[]}`,
		"zero canvas":   `{"id":"t","name":"x","canvasSize":{"width":0,"height":1},"elements":[]}`,
		"unknown type":  `{"id":"t","name":"x","canvasSize":{"width":1,"height":1},"elements":[{"id":"a","type":"video","x":0,"y":0,"width":1,"height":1,"zIndex":1}]}`,
		"fractional z":  `{"id":"t","name":"x","canvasSize":{"width":1,"height":1},"elements":[{"id":"a","type":"text","x":0,"y":0,"width":1,"height":1,"zIndex":1.5}]}`,
		"duplicate ids": `{"id":"t","name":"x","canvasSize":{"width":1,"height":1},"elements":[{"id":"a","type":"text","x":0,"y":0,"width":1,"height":1,"zIndex":1},{"id":"a","type":"line","x":0,"y":0,"width":1,"height":1,"zIndex":2}]}`,
	}
	for name, doc := range cases {
		if _, err := ValidateTemplate([]byte(doc)); !errors.Is(err, ErrInvalidTemplate) {
			t.Errorf("%s: err = %v", name, err)
		}
	}
}

func TestSaveTemplateKeepsBackups(t *testing.T) {
	p := filepath.Join(t.TempDir(), "invoice.json")
	tpl := sampleTemplate("v1")
	for i := 1; i <= 4; i++ {
		tpl.Name = fmt.Sprintf("v%d", i)
		if err := SaveTemplate(p, tpl, 2); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}
	bks, err := Backups(p)
	if err != nil {
		t.Fatal(err)
	}
	if len(bks) != 2 {
		t.Fatalf("backups = %v", bks)
	}
	got, err := OpenTemplate(p)
	if err != nil || got.Name != "v4" {
		t.Fatalf("open = %q, %v", got.Name, err)
	}
	ents, _ := os.ReadDir(filepath.Dir(p))
	for _, e := range ents {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestOpenTemplateFallsBackToBackup(t *testing.T) {
	p := filepath.Join(t.TempDir(), "invoice.json")
	tpl := sampleTemplate("first")
	if err := SaveTemplate(p, tpl, 0); err != nil {
		t.Fatal(err)
	}
	tpl.Name = "second"
	if err := SaveTemplate(p, tpl, 0); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(`{"id":`), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := OpenTemplate(p)
	if err != nil {
		t.Fatalf("OpenTemplate: %v", err)
	}
	if got.Name != "first" {
		t.Fatalf("restored %q", got.Name)
	}

	lone := filepath.Join(t.TempDir(), "broken.json")
	_ = os.WriteFile(lone, []byte(`[]`), 0o644)
	if _, err := OpenTemplate(lone); !errors.Is(err, ErrInvalidTemplate) {
		t.Fatalf("err = %v", err)
	}
}

func TestAutosaveCrashSnapshot(t *testing.T) {
	dir := t.TempDir()
	p, err := AutosaveCrashSnapshot(dir, scene.Template{Name: "unsaved work"})
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Dir(p) != filepath.Join(dir, AutosaveDirName) || !strings.HasPrefix(filepath.Base(p), "unsaved-") {
		t.Fatalf("path = %s", p)
	}
	if b, _ := os.ReadFile(p); !strings.Contains(string(b), "unsaved work") {
		t.Fatal("autosave content missing")
	}
}

func openTestLibrary(t *testing.T) *Library {
	t.Helper()
	lib, err := OpenLibrary(filepath.Join(t.TempDir(), "lib", "library.db"))
	if err != nil {
		t.Fatalf("OpenLibrary: %v", err)
	}
	t.Cleanup(func() { _ = lib.Close() })
	return lib
}

func TestLibraryCRUD(t *testing.T) {
	lib := openTestLibrary(t)
	ctx := context.Background()
	a, b := sampleTemplate("Alpha"), sampleTemplate("Beta")
	b.UpdatedAt = b.UpdatedAt.Add(time.Hour)
	for _, tpl := range []scene.Template{a, b} {
		if err := lib.Put(ctx, tpl); err != nil {
			t.Fatalf("put: %v", err)
		}
	}
	list, err := lib.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Name != "Beta" || list[0].Elements != 13 {
		t.Fatalf("list = %+v", list)
	}
	got, err := lib.Get(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Alpha" || len(got.Elements) != 13 || got.Elements[4].ZIndex != 5 {
		t.Fatalf("get = %+v", got)
	}
	a.Name = "Alpha 2"
	if err := lib.Put(ctx, a); err != nil {
		t.Fatal(err)
	}
	if got, _ := lib.Get(ctx, a.ID); got.Name != "Alpha 2" {
		t.Fatalf("upsert kept %q", got.Name)
	}
	if err := lib.Delete(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := lib.Get(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get deleted: %v", err)
	}
	if err := lib.Delete(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete twice: %v", err)
	}
}

func TestLibraryThumbnailsCascade(t *testing.T) {
	lib := openTestLibrary(t)
	ctx := context.Background()
	tpl := sampleTemplate("Thumb")
	if err := lib.Put(ctx, tpl); err != nil {
		t.Fatal(err)
	}
	if err := lib.PutThumbnail(ctx, tpl.ID, []byte("\x89PNG")); err != nil {
		t.Fatal(err)
	}
	if png, err := lib.Thumbnail(ctx, tpl.ID); err != nil || string(png) != "\x89PNG" {
		t.Fatalf("thumbnail = %q, %v", png, err)
	}
	_ = lib.Delete(ctx, tpl.ID)
	if _, err := lib.Thumbnail(ctx, tpl.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("thumbnail after delete: %v", err)
	}
}

func TestLibraryImport(t *testing.T) {
	lib := openTestLibrary(t)
	p := filepath.Join(t.TempDir(), "in.json")
	tpl := sampleTemplate("Imported")
	if err := SaveTemplate(p, tpl, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := lib.Import(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	_ = os.WriteFile(p, []byte(`{"id":"x"}`), 0o644)
	if _, err := lib.Import(context.Background(), p); !errors.Is(err, ErrInvalidTemplate) {
		t.Fatalf("import invalid: %v", err)
	}
}

func TestCheckpointJournal(t *testing.T) {
	lib := openTestLibrary(t)
	ctx := context.Background()
	els := templates.Default(time.Now()).Elements
	hook := lib.Journal("tpl-1")
	for i := 0; i < 5; i++ {
		hook(history.Snapshot{Elements: els[:i+1], Label: fmt.Sprintf("step %d", i), TS: time.Now()})
	}
	got, err := lib.Checkpoints(ctx, "tpl-1", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0].Label != "step 4" || len(got[0].Elements) != 5 {
		t.Fatalf("checkpoints = %d, first %q", len(got), got[0].Label)
	}
	n, err := lib.PruneCheckpoints(ctx, "tpl-1", 2)
	if err != nil || n != 3 {
		t.Fatalf("pruned %d, %v", n, err)
	}
	if rest, _ := lib.Checkpoints(ctx, "tpl-1", 0); len(rest) != 2 || rest[1].Label != "step 3" {
		t.Fatalf("after prune = %d", len(rest))
	}
}

func TestMigrationsUpgradeV1(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.db")
	db, err := sql.Open("sqlite", "file:"+filepath.ToSlash(path))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	seed := append([]string{
		`CREATE TABLE meta (key TEXT PRIMARY KEY, value TEXT NOT NULL);`,
		`CREATE TABLE version (id INTEGER PRIMARY KEY CHECK(id=1), schema INTEGER NOT NULL, app TEXT, created_at TEXT NOT NULL, updated_at TEXT NOT NULL);`,
		`INSERT INTO version VALUES(1, 1, 'old', '2024-01-01T00:00:00Z', '2024-01-01T00:00:00Z');`,
	}, baseSchema...)
	for _, q := range seed {
		if _, err := db.ExecContext(ctx, q); err != nil {
			t.Fatalf("seed v1: %v (q=%s)", err, q)
		}
	}
	_ = db.Close()

	lib, err := OpenLibrary(path)
	if err != nil {
		t.Fatal(err)
	}
	defer lib.Close()
	if v, err := lib.SchemaVersion(ctx); err != nil || v != schemaVersion {
		t.Fatalf("schema = %d, %v", v, err)
	}
	var cnt int
	if err := lib.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE name IN ('thumbnails','idx_checkpoints_template')`).Scan(&cnt); err != nil {
		t.Fatal(err)
	}
	if cnt != 2 {
		t.Fatalf("migration objects = %d", cnt)
	}
}

func TestOpenRepositoryDrivers(t *testing.T) {
	repo, closeFn, err := OpenRepository(context.Background(), "sqlite", filepath.Join(t.TempDir(), "l.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer closeFn()
	if _, ok := repo.(*Library); !ok {
		t.Fatalf("sqlite driver gave %T", repo)
	}
	if _, _, err := OpenRepository(context.Background(), "mongo", ""); err == nil {
		t.Fatal("unknown driver accepted")
	}
}
