/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage persists the workspace as permissively-parsed JSON
// documents in an embedded SQLite database. The store is the single source
// of truth across restarts; loading tolerates corrupt or missing fields and
// always yields a workable workspace.
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
	"time"

	applog "pixelstudio/internal/log"
	"pixelstudio/internal/version"

	"pixelstudio/internal/domain"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// DBFileName is the workspace database file under the data directory.
	DBFileName = "workspace.sqlite"

	workspaceKey = "workspace"

	schemaVersion = 1
)

// Store wraps the embedded database plus the debounced writer. Structural
// canvas commits write synchronously through SaveWorkspace; small field
// edits coalesce through SaveWorkspaceSoon.
type Store struct {
	log      *slog.Logger
	db       *sql.DB
	path     string
	debounce *Debouncer
}

// Open creates or opens the workspace database at dir/workspace.sqlite,
// enables WAL mode and ensures the schema. debounceDelay controls the
// coalescing window of SaveWorkspaceSoon.
func Open(dir string, debounceDelay time.Duration) (*Store, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "open")
	if dir == "" {
		return nil, errors.New("data directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	path := filepath.Join(dir, DBFileName)
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
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
	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{
		log:  applog.WithComponent("storage"),
		db:   db,
		path: path,
	}
	s.debounce = NewDebouncer(debounceDelay)
	l.Info("workspace store ready", slog.String("path", path))
	return s, nil
}

// DB exposes the underlying handle for sibling stores sharing the database.
func (s *Store) DB() *sql.DB { return s.db }

// Close flushes any pending debounced write and closes the database.
func (s *Store) Close() error {
	s.debounce.Stop()
	return s.db.Close()
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO meta(key, value) VALUES('schema', ?), ('app_version', ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value;`,
		fmt.Sprint(schemaVersion), version.Version)
	if err != nil {
		return fmt.Errorf("write meta: %w", err)
	}
	return nil
}

// LoadWorkspace reads the persisted workspace. A missing row, corrupt JSON
// or schema drift never fails the call: the document goes through tolerant
// validation and the normalizers, and in the worst case an empty workspace
// comes back so the editor can always start.
func (s *Store) LoadWorkspace() domain.Workspace {
	var raw string
	err := s.db.QueryRow(`SELECT value FROM documents WHERE key = ?`, workspaceKey).Scan(&raw)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.log.Warn("workspace read failed, starting empty", slog.Any("err", err))
		}
		return domain.Workspace{}
	}
	for _, warn := range ValidateWorkspaceDoc([]byte(raw)) {
		s.log.Warn("workspace document deviates from schema", slog.String("detail", warn))
	}
	var w domain.Workspace
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		s.log.Warn("workspace document corrupt, starting empty", slog.Any("err", err))
		return domain.Workspace{}
	}
	return domain.NormalizeWorkspace(w)
}

// SaveWorkspace writes the workspace synchronously. Canvas commits call
// this so structural data survives a crash inside the debounce window.
func (s *Store) SaveWorkspace(w domain.Workspace) error {
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("marshal workspace: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO documents(key, value, updated_at) VALUES(?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at;`,
		workspaceKey, string(data), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("write workspace: %w", err)
	}
	return nil
}

// SaveWorkspaceSoon schedules a debounced write of the workspace. A newer
// call within the window supersedes the pending one.
func (s *Store) SaveWorkspaceSoon(w domain.Workspace) {
	s.debounce.Trigger(func() {
		if err := s.SaveWorkspace(w); err != nil {
			s.log.Error("debounced workspace save failed", slog.Any("err", err))
		}
	})
}

// Flush forces any pending debounced write to run now, e.g. on shutdown.
func (s *Store) Flush() { s.debounce.Flush() }
