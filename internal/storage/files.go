/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	applog "printdesigner/internal/log"
	"printdesigner/internal/scene"
)

const (
	BackupsDirName  = "backups"
	AutosaveDirName = "autosave"
	// DefaultBackups is how many timestamped copies SaveTemplate keeps.
	DefaultBackups = 5
)

// SaveTemplate writes t to path. The previous file, if any, is copied into
// the sibling backups folder first and only the newest keep copies are
// retained. The new content goes to a temp file that is renamed over path.
func SaveTemplate(path string, t scene.Template, keep int) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("template path is required")
	}
	data, err := MarshalTemplate(t)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create template dir: %w", err)
	}
	if _, statErr := os.Stat(path); statErr == nil {
		if err := backup(path, keep); err != nil {
			return err
		}
	}
	return writeAtomic(path, data)
}

// OpenTemplate reads and validates the template at path. A missing or
// invalid file falls back to its newest backup; both errors are reported
// when that fails too.
func OpenTemplate(path string) (scene.Template, error) {
	t, err := readTemplate(path)
	if err == nil {
		return t, nil
	}
	bt, berr := openLatestBackup(path)
	if berr != nil {
		return scene.Template{}, fmt.Errorf("open template: %w; backup attempt: %v", err, berr)
	}
	applog.WithComponent("storage").Warn("template restored from backup",
		slog.String("path", path), slog.Any("err", err))
	return bt, nil
}

func readTemplate(path string) (scene.Template, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return scene.Template{}, err
	}
	return ValidateTemplate(b)
}

// Backups lists the backup files of path, oldest first.
func Backups(path string) ([]string, error) {
	bdir := filepath.Join(filepath.Dir(path), BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	prefix := filepath.Base(path) + "."
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	sort.Strings(out) // timestamp in name yields lexicographic order
	return out, nil
}

func backup(path string, keep int) error {
	bdir := filepath.Join(filepath.Dir(path), BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}
	stamp := time.Now().UTC().Format("20060102-150405.000000")
	bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(path), stamp))
	if err := copyFile(path, bpath); err != nil {
		return fmt.Errorf("backup current template: %w", err)
	}
	if keep <= 0 {
		keep = DefaultBackups
	}
	all, err := Backups(path)
	if err != nil {
		return err
	}
	for len(all) > keep {
		_ = os.Remove(all[0])
		all = all[1:]
	}
	return nil
}

func openLatestBackup(path string) (scene.Template, error) {
	all, err := Backups(path)
	if err != nil {
		return scene.Template{}, err
	}
	if len(all) == 0 {
		return scene.Template{}, errors.New("no backups found")
	}
	t, err := readTemplate(all[len(all)-1])
	if err != nil {
		return scene.Template{}, fmt.Errorf("read latest backup: %w", err)
	}
	return t, nil
}

// AutosaveCrashSnapshot writes t into dir/autosave under a timestamped name
// and returns the file path. It is used from panic recovery, so it never
// validates and never touches backups.
func AutosaveCrashSnapshot(dir string, t scene.Template) (string, error) {
	adir := filepath.Join(dir, AutosaveDirName)
	if err := os.MkdirAll(adir, 0o755); err != nil {
		return "", fmt.Errorf("create autosave dir: %w", err)
	}
	data, err := MarshalTemplate(t)
	if err != nil {
		return "", err
	}
	id := t.ID
	if id == "" {
		id = "unsaved"
	}
	p := filepath.Join(adir, fmt.Sprintf("%s-%s.json", id, time.Now().UTC().Format("20060102-150405")))
	if err := writeAtomic(p, data); err != nil {
		return "", err
	}
	return p, nil
}

// writeAtomic writes data to a temp file in the target directory and
// renames it over path.
func writeAtomic(path string, data []byte) error {
	temp := filepath.Join(filepath.Dir(path), fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if err := writeFileSync(temp, data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	// Windows refuses to rename over an existing file
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if err := os.Rename(temp, path); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}
