/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type memKeyring struct {
	vals map[string]string
}

func (m *memKeyring) key(service, key string) string { return service + "/" + key }

func (m *memKeyring) Get(service, key string) (string, error) {
	v, ok := m.vals[m.key(service, key)]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func (m *memKeyring) Set(service, key, value string) error {
	if m.vals == nil {
		m.vals = map[string]string{}
	}
	m.vals[m.key(service, key)] = value
	return nil
}

func (m *memKeyring) Delete(service, key string) error {
	delete(m.vals, m.key(service, key))
	return nil
}

func withTestEnv(t *testing.T) *memKeyring {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, e := range []string{
		EnvAIBaseURL, EnvAIChatModel, EnvAIImageModel, EnvAITimeoutMs,
		EnvAIAPIKey, EnvLibraryDSN, EnvTelemetry,
		EnvLogLevel, EnvLogFormat, EnvLogSource, EnvLogFile,
	} {
		t.Setenv(e, "")
	}
	kr := &memKeyring{}
	SetTokenStore(kr)
	t.Cleanup(func() { SetTokenStore(osKeyring{}) })
	return kr
}

func TestLoadDefaultsWhenNoFile(t *testing.T) {
	withTestEnv(t)
	cfg, key, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if key != "" {
		t.Fatalf("unexpected API key %q", key)
	}
	def := Defaults()
	if cfg.AI.ChatModel != def.AI.ChatModel || cfg.Canvas.ZoomMax != def.Canvas.ZoomMax {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	kr := withTestEnv(t)
	cfg := Defaults()
	cfg.AI.ChatModel = "custom-model"
	cfg.Canvas.GridCols = 12
	cfg.Library.PostgresDSN = "postgres://u:p@db/library"
	if err := Save(cfg, "sk-secret"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got, _ := kr.Get(keyringService, keyringAIKey); got != "sk-secret" {
		t.Fatalf("API key not stored in keyring, got %q", got)
	}

	loaded, key, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.AI.ChatModel != "custom-model" || loaded.Canvas.GridCols != 12 {
		t.Fatalf("round trip lost values: %+v", loaded)
	}
	if loaded.Library.PostgresDSN != "postgres://u:p@db/library" {
		t.Fatalf("library DSN lost")
	}
	if key != "sk-secret" {
		t.Fatalf("API key not loaded from keyring, got %q", key)
	}
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	withTestEnv(t)
	path, err := Path()
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("ai:\n  chat_model: tiny\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AI.ChatModel != "tiny" {
		t.Fatalf("file value ignored")
	}
	if cfg.Canvas.ZoomMin != Defaults().Canvas.ZoomMin {
		t.Fatalf("unspecified sections lost defaults")
	}
}

func TestCorruptFileFallsBackToDefaults(t *testing.T) {
	withTestEnv(t)
	path, _ := Path()
	os.MkdirAll(filepath.Dir(path), 0o755)
	os.WriteFile(path, []byte("{{{not yaml"), 0o600)
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AI.ChatModel != Defaults().AI.ChatModel {
		t.Fatalf("corrupt file should yield defaults")
	}
}

func TestEnvOverrides(t *testing.T) {
	kr := withTestEnv(t)
	kr.Set(keyringService, keyringAIKey, "from-keyring")
	t.Setenv(EnvAIBaseURL, "https://proxy.example/v1")
	t.Setenv(EnvAITimeoutMs, "1500")
	t.Setenv(EnvAIAPIKey, "from-env")
	t.Setenv(EnvTelemetry, "true")
	t.Setenv(EnvLogLevel, "DEBUG")

	cfg, key, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AI.BaseURL != "https://proxy.example/v1" || cfg.AI.TimeoutMs != 1500 {
		t.Fatalf("AI env overrides not applied: %+v", cfg.AI)
	}
	if !cfg.General.TelemetryOptIn {
		t.Fatalf("telemetry env override not applied")
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("log level override not applied: %q", cfg.Logging.Level)
	}
	if key != "from-env" {
		t.Fatalf("env API key should win over keyring, got %q", key)
	}
}

func TestForgetAPIKey(t *testing.T) {
	kr := withTestEnv(t)
	kr.Set(keyringService, keyringAIKey, "x")
	if err := ForgetAPIKey(); err != nil {
		t.Fatalf("ForgetAPIKey: %v", err)
	}
	if _, err := kr.Get(keyringService, keyringAIKey); err == nil {
		t.Fatalf("key still present after forget")
	}
}
