/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"printdesigner/internal/config"
	"printdesigner/internal/crash"
	"printdesigner/internal/editor"
	"printdesigner/internal/export"
	"printdesigner/internal/interaction"
	applog "printdesigner/internal/log"
	"printdesigner/internal/scene"
	"printdesigner/internal/server"
	"printdesigner/internal/storage"
	"printdesigner/internal/telemetry"
	"printdesigner/internal/templates"
	"printdesigner/internal/version"
)

func usage() {
	fmt.Println("PrintDesigner invoice layout editor")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  printdesigner version                          Show version")
	fmt.Println("  printdesigner init                             Write the default config file")
	fmt.Println("  printdesigner new <preset> <file> [name]       Create a template file from a preset")
	fmt.Println("  printdesigner render <file> <out.html>         Export a template as a standalone HTML page")
	fmt.Println("  printdesigner preview <file> <out.png> [w]     Rasterize a template")
	fmt.Println("  printdesigner library list                     List stored templates")
	fmt.Println("  printdesigner library import <file>            Store a template file in the library")
	fmt.Println("  printdesigner library history <id>             Show recent checkpoints of a template")
	fmt.Println("  printdesigner serve [addr]                     Serve the editing API")
	fmt.Println("  printdesigner token set <value>|clear          Manage the API token in the OS keyring")
	fmt.Printf("Presets: %v\n", templates.Names())
}

// current is the template open in this process, saved by the crash handler.
var current *editor.Editor

func snapshot() (scene.Template, bool) {
	if current == nil {
		return scene.Template{}, false
	}
	return current.Template(""), true
}

func main() {
	cfg, token, cfgErr := config.Load()
	applog.Init(mergeLogEnv(cfg.Logging.LogOptions()))
	l := applog.WithComponent("cli")
	if cfgErr != nil {
		l.Warn("config", slog.Any("err", cfgErr))
	}
	tcfg := telemetry.FromEnv()
	tcfg.OptIn = tcfg.OptIn || cfg.General.TelemetryOptIn
	tc := telemetry.New(tcfg)
	telemetry.SetDefault(tc)
	defer tc.Close()

	crashDir := ""
	if p, err := config.ConfigPath(); err == nil {
		crashDir = filepath.Dir(p)
	}
	defer crash.Recover(crash.Options{Dir: crashDir, Snapshot: snapshot})

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) < 2 {
		usage()
		return
	}
	var err error
	switch args[1] {
	case "version", "--version", "-v":
		fmt.Println(version.String())
		return
	case "init":
		err = cmdInit()
	case "new":
		need(args, 4, "new requires <preset> and <file>")
		name := ""
		if len(args) > 4 {
			name = args[4]
		}
		err = cmdNew(cfg, args[2], args[3], name)
	case "render":
		need(args, 4, "render requires <file> and <out.html>")
		err = cmdRender(args[2], args[3])
	case "preview":
		need(args, 4, "preview requires <file> and <out.png>")
		width := export.ThumbnailWidth * 4
		if len(args) > 4 {
			if _, scanErr := fmt.Sscanf(args[4], "%d", &width); scanErr != nil || width <= 0 {
				fail(l, fmt.Errorf("invalid width %q", args[4]))
			}
		}
		err = cmdPreview(args[2], args[3], width)
	case "library":
		need(args, 3, "library requires list, import or history")
		err = cmdLibrary(cfg, args[2:])
	case "serve":
		addr := cfg.Server.Addr
		if len(args) > 2 {
			addr = args[2]
		}
		err = cmdServe(cfg, token, addr)
	case "token":
		need(args, 3, "token requires set <value> or clear")
		err = cmdToken(args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fail(l, err)
	}
}

func need(args []string, n int, msg string) {
	if len(args) < n {
		fmt.Println(msg)
		usage()
		os.Exit(2)
	}
}

func fail(l *slog.Logger, err error) {
	l.Error("command failed", slog.Any("err", err))
	fmt.Println("Error:", err)
	os.Exit(1)
}

// mergeLogEnv lets PD_LOG_* variables win over the config file.
func mergeLogEnv(o applog.Options) applog.Options {
	env := applog.FromEnv()
	if os.Getenv(config.EnvLogLevel) != "" {
		o.Level = env.Level
	}
	if os.Getenv(config.EnvLogFormat) != "" {
		o.Format = env.Format
	}
	if os.Getenv(config.EnvLogFile) != "" {
		o.File = env.File
	}
	return o
}

func editorOptions(cfg config.AppConfig) editor.Options {
	return editor.Options{
		Grid: interaction.Grid{
			Size: float64(cfg.Editor.GridSize),
			Snap: cfg.Editor.SnapToGrid,
			Show: cfg.Editor.ShowGrid,
		},
		Zoom:       cfg.Editor.Zoom,
		MaxHistory: cfg.History.MaxEntries,
	}
}

func cmdInit() error {
	p, err := config.ConfigPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(p); err == nil {
		fmt.Println("Config already exists at", p)
		return nil
	}
	if err := config.Save(config.Defaults()); err != nil {
		return err
	}
	fmt.Println("Wrote", p)
	return nil
}

func cmdNew(cfg config.AppConfig, preset, path, name string) error {
	opts := editorOptions(cfg)
	opts.Preset = preset
	ed, err := editor.New(opts)
	if err != nil {
		return err
	}
	current = ed
	if cfg.Editor.PageWidth > 0 && cfg.Editor.PageHeight > 0 {
		ed.SetPageSize(cfg.Editor.PageWidth, cfg.Editor.PageHeight)
	}
	t := ed.Template(name)
	if err := storage.SaveTemplate(path, t, cfg.Storage.Backups); err != nil {
		return err
	}
	telemetry.Event(telemetry.EventTemplateSaved, map[string]any{"preset": preset, "elements": len(t.Elements)})
	fmt.Printf("Created %s (%s, %d elements)\n", path, t.ID, len(t.Elements))
	return nil
}

// load opens a template file into a fresh editor.
func load(path string) (*editor.Editor, scene.Template, error) {
	t, err := storage.OpenTemplate(path)
	if err != nil {
		return nil, t, err
	}
	ed, err := editor.New(editor.Options{})
	if err != nil {
		return nil, t, err
	}
	if err := ed.LoadTemplate(t); err != nil {
		return nil, t, err
	}
	current = ed
	return ed, t, nil
}

func cmdRender(path, out string) error {
	ed, t, err := load(path)
	if err != nil {
		return err
	}
	page, err := export.Complete(ed.GenerateDocument(), "", t.Name)
	if err != nil {
		return err
	}
	if err := export.WriteHTML(out, page); err != nil {
		return err
	}
	telemetry.Event(telemetry.EventExport, map[string]any{"format": "html"})
	fmt.Println("Wrote", out)
	return nil
}

func cmdPreview(path, out string, width int) error {
	ed, _, err := load(path)
	if err != nil {
		return err
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := export.WritePNG(f, export.RenderPreview(ed.Scene(), width)); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	telemetry.Event(telemetry.EventExport, map[string]any{"format": "png"})
	fmt.Println("Wrote", out)
	return nil
}

func cmdLibrary(cfg config.AppConfig, args []string) error {
	if cfg.Storage.Library == "" {
		return errors.New("no library path configured")
	}
	lib, err := storage.OpenLibrary(cfg.Storage.Library)
	if err != nil {
		return err
	}
	defer lib.Close()
	ctx := context.Background()
	switch args[0] {
	case "list":
		list, err := lib.List(ctx)
		if err != nil {
			return err
		}
		for _, s := range list {
			fmt.Printf("%s\t%s\t%d elements\t%s\n", s.ID, s.Name, s.Elements, s.UpdatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	case "import":
		if len(args) < 2 {
			return errors.New("library import requires <file>")
		}
		t, err := lib.Import(ctx, args[1])
		if err != nil {
			return err
		}
		ed := editorFor(t)
		if ed != nil {
			if png, err := export.Thumbnail(ed.Scene()); err == nil {
				_ = lib.PutThumbnail(ctx, t.ID, png)
			}
		}
		fmt.Printf("Imported %s (%s)\n", t.Name, t.ID)
		return nil
	case "history":
		if len(args) < 2 {
			return errors.New("library history requires <id>")
		}
		snaps, err := lib.Checkpoints(ctx, args[1], 0)
		if err != nil {
			return err
		}
		for _, s := range snaps {
			fmt.Printf("%s\t%s\t%d elements\n", s.TS.Format("2006-01-02 15:04:05"), s.Label, len(s.Elements))
		}
		return nil
	}
	return fmt.Errorf("unknown library command %q", args[0])
}

func editorFor(t scene.Template) *editor.Editor {
	ed, err := editor.New(editor.Options{})
	if err != nil || ed.LoadTemplate(t) != nil {
		return nil
	}
	return ed
}

func cmdServe(cfg config.AppConfig, token, addr string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := storage.OpenRepository(ctx, cfg.Storage.Driver, repoDSN(cfg))
	if err != nil {
		return err
	}
	defer closeRepo()
	lib, _ := repo.(*storage.Library)

	opts := server.Options{Editor: editorOptions(cfg), Repo: repo, Library: lib}
	if cfg.Server.RequireToken {
		if token == "" {
			return errors.New("server.require_token is set but no token is stored; run: printdesigner token set <value>")
		}
		opts.Token = token
	}
	srv, err := server.New(opts)
	if err != nil {
		return err
	}
	telemetry.Event(telemetry.EventServerStarted, map[string]any{"driver": cfg.Storage.Driver})
	fmt.Println("Serving on", addr)
	return srv.ListenAndServe(ctx, addr)
}

func repoDSN(cfg config.AppConfig) string {
	switch cfg.Storage.Driver {
	case "postgres", "pg":
		return cfg.Storage.DSN
	}
	return cfg.Storage.Library
}

func cmdToken(args []string) error {
	switch args[0] {
	case "set":
		if len(args) < 2 {
			return errors.New("token set requires <value>")
		}
		if err := config.SetToken(args[1]); err != nil {
			return err
		}
		fmt.Println("Token stored in the OS keyring.")
		return nil
	case "clear":
		if err := config.ClearToken(); err != nil {
			return err
		}
		fmt.Println("Token removed.")
		return nil
	}
	return fmt.Errorf("unknown token command %q", args[0])
}
