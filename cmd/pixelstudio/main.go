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
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"pixelstudio/internal/config"
	"pixelstudio/internal/crash"
	"pixelstudio/internal/export"
	"pixelstudio/internal/library"
	applog "pixelstudio/internal/log"
	"pixelstudio/internal/storage"
	"pixelstudio/internal/ui"
	"pixelstudio/internal/version"
)

func usage() {
	fmt.Println("Pixel Studio")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  pixelstudio version|-v|--version     Show version")
	fmt.Println("  pixelstudio ui                       Launch the studio (build with -tags fyne for the full UI)")
	fmt.Println("  pixelstudio sessions                 List saved sessions")
	fmt.Println("  pixelstudio export <sessionId> <out.pdf>")
	fmt.Println("                                       Write a contact-sheet PDF of a session's canvas")
	fmt.Println("  pixelstudio products [query]         List or search the product library")
	fmt.Println("  pixelstudio set-key <api-key>        Store the AI API key in the OS keychain")
	fmt.Println("  pixelstudio forget-key               Remove the stored AI API key")
}

func main() {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("cli")
	dataDir, _ := config.DataDir()
	defer crash.Recover(dataDir, nil)

	args := os.Args
	if len(args) < 2 {
		usage()
		return
	}
	switch args[1] {
	case "version", "--version", "-v":
		fmt.Println("Pixel Studio")
		fmt.Println(version.String())
	case "ui":
		if err := ui.Run(); err != nil {
			l.Error("ui failed", slog.Any("err", err))
			fmt.Println("Error:", err)
			os.Exit(1)
		}
	case "sessions":
		store := mustOpenStore(l)
		defer store.Close()
		w := store.LoadWorkspace()
		if len(w.Sessions) == 0 {
			fmt.Println("No sessions.")
			return
		}
		for _, s := range w.Sessions {
			marker := " "
			if s.ID == w.ActiveSessionID {
				marker = "*"
			}
			fmt.Printf("%s %s  %-32s  %d items, %d messages\n",
				marker, s.ID, s.Title, len(s.Canvas.Items), len(s.Messages))
		}
	case "export":
		if len(args) < 4 {
			fmt.Println("export requires <sessionId> and <out.pdf>")
			usage()
			os.Exit(2)
		}
		store := mustOpenStore(l)
		defer store.Close()
		w := store.LoadWorkspace()
		for _, s := range w.Sessions {
			if s.ID == args[2] {
				out, _ := filepath.Abs(args[3])
				err := export.ContactSheet(s.Canvas, out, export.ContactSheetOptions{Title: s.Title})
				if err != nil {
					l.Error("export failed", slog.Any("err", err))
					fmt.Println("Error:", err)
					os.Exit(1)
				}
				fmt.Println("Wrote", out)
				return
			}
		}
		fmt.Println("Error: no session with id", args[2])
		os.Exit(1)
	case "products":
		store := mustOpenStore(l)
		defer store.Close()
		ctx := context.Background()
		lib, err := openLibrary(ctx, store)
		if err != nil {
			fmt.Println("Error:", err)
			os.Exit(1)
		}
		var list []library.Product
		if len(args) >= 3 {
			list, err = lib.Search(ctx, args[2])
		} else {
			list, err = lib.List(ctx)
		}
		if err != nil {
			fmt.Println("Error:", err)
			os.Exit(1)
		}
		if len(list) == 0 {
			fmt.Println("No products.")
			return
		}
		for _, p := range list {
			fmt.Printf("%s  %-24s  %s\n", p.ID, p.Name, p.Category)
		}
	case "set-key":
		if len(args) < 3 {
			fmt.Println("set-key requires <api-key>")
			os.Exit(2)
		}
		cfg, _, err := config.Load()
		if err != nil {
			fmt.Println("Error:", err)
			os.Exit(1)
		}
		if err := config.Save(cfg, args[2]); err != nil {
			fmt.Println("Error:", err)
			os.Exit(1)
		}
		fmt.Println("API key stored in the OS keychain.")
	case "forget-key":
		if err := config.ForgetAPIKey(); err != nil {
			fmt.Println("Error:", err)
			os.Exit(1)
		}
		fmt.Println("API key removed.")
	default:
		usage()
		os.Exit(2)
	}
}

func mustOpenStore(l *slog.Logger) *storage.Store {
	dir, err := config.DataDir()
	if err == nil {
		var store *storage.Store
		store, err = storage.Open(dir, 200*time.Millisecond)
		if err == nil {
			return store
		}
	}
	l.Error("open workspace store failed", slog.Any("err", err))
	fmt.Println("Error:", err)
	os.Exit(1)
	return nil
}

// openLibrary picks the shared Postgres library when a DSN is configured,
// falling back to the embedded store.
func openLibrary(ctx context.Context, store *storage.Store) (library.Store, error) {
	cfg, _, err := config.Load()
	if err != nil {
		return nil, err
	}
	if dsn := cfg.Library.PostgresDSN; dsn != "" {
		return library.OpenPG(ctx, dsn)
	}
	return library.NewSQLiteStore(ctx, store.DB())
}
