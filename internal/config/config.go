/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package config loads and saves the user-editable YAML configuration.
// Environment variables act as read-only overrides at runtime. The AI API
// key never touches the config file; it lives in the OS keychain.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	keyring "github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// GeneralConfig holds miscellaneous app-level switches.
type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	Theme          string `yaml:"theme"` // "system" | "light" | "dark"
}

// AIConfig points at the image analysis/generation collaborator. The service
// speaks an OpenAI-compatible API; BaseURL allows proxies and self-hosted
// gateways. The key is stored in the keychain, not here.
type AIConfig struct {
	BaseURL    string `yaml:"base_url"`
	ChatModel  string `yaml:"chat_model"`
	ImageModel string `yaml:"image_model"`
	TimeoutMs  int    `yaml:"timeout_ms"`
}

// LibraryConfig selects the product library backend. With an empty DSN the
// library lives in the local workspace database; a Postgres DSN switches to
// the shared store.
type LibraryConfig struct {
	PostgresDSN string `yaml:"postgres_dsn"`
}

// CanvasConfig carries the workbench engine tuning. The zoom step factors
// and the placement grid bound are deliberate heuristics kept configurable.
type CanvasConfig struct {
	ZoomMin      float64 `yaml:"zoom_min"`
	ZoomMax      float64 `yaml:"zoom_max"`
	WheelStepIn  float64 `yaml:"wheel_step_in"`
	WheelStepOut float64 `yaml:"wheel_step_out"`
	GridCols     int     `yaml:"grid_cols"`
	GridRows     int     `yaml:"grid_rows"`
	Margin       float64 `yaml:"margin"`
	DebounceMs   int     `yaml:"debounce_ms"`
}

// LoggingConfig mirrors internal/log.Options.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// AppConfig is the persisted configuration document.
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	AI            AIConfig      `yaml:"ai"`
	Library       LibraryConfig `yaml:"library"`
	Canvas        CanvasConfig  `yaml:"canvas"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{Theme: "system"},
		AI: AIConfig{
			BaseURL:    "",
			ChatModel:  "gpt-4o-mini",
			ImageModel: "gpt-image-1",
			TimeoutMs:  60000,
		},
		Canvas: CanvasConfig{
			ZoomMin:      0.1,
			ZoomMax:      8.0,
			WheelStepIn:  1.1,
			WheelStepOut: 0.9,
			GridCols:     8,
			GridRows:     32,
			Margin:       24,
			DebounceMs:   200,
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvAIBaseURL    = "PXS_AI_BASE_URL"
	EnvAIChatModel  = "PXS_AI_CHAT_MODEL"
	EnvAIImageModel = "PXS_AI_IMAGE_MODEL"
	EnvAITimeoutMs  = "PXS_AI_TIMEOUT_MS"
	EnvAIAPIKey     = "PXS_AI_API_KEY" // takes priority over the keychain; useful in CI
	EnvLibraryDSN   = "PXS_LIBRARY_PG_DSN"
	EnvTelemetry    = "PXS_TELEMETRY_OPT_IN"
	EnvLogLevel     = "PXS_LOG_LEVEL"
	EnvLogFormat    = "PXS_LOG_FORMAT"
	EnvLogSource    = "PXS_LOG_SOURCE"
	EnvLogFile      = "PXS_LOG_FILE"
)

// Keyring service/key for the AI API key.
const (
	keyringService = "PixelStudio"
	keyringAIKey   = "ai_api_key"
)

// TokenStore abstracts the OS keychain so tests can stub it.
type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

var tokenStore TokenStore = osKeyring{}

type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

// SetTokenStore swaps the keychain implementation; intended for tests.
func SetTokenStore(ts TokenStore) { tokenStore = ts }

// Path returns the per-user config file path.
func Path() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "PixelStudio")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "PixelStudio")
	default:
		base = filepath.Join(os.Getenv("HOME"), ".config", "pixelstudio")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// DataDir returns the directory holding the workspace database and exports.
func DataDir() (string, error) {
	p, err := Path()
	if err != nil {
		return "", err
	}
	return filepath.Dir(p), nil
}

// Load reads the config file (if present), applies defaults, merges env
// overrides and fetches the AI API key (env first, then keychain).
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := Path()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	key := strings.TrimSpace(os.Getenv(EnvAIAPIKey))
	if key == "" {
		key, _ = tokenStore.Get(keyringService, keyringAIKey)
	}
	return cfg, key, nil
}

// Save writes the config YAML and stores the API key in the keychain when
// non-empty.
func Save(cfg AppConfig, apiKey string) error {
	path, err := Path()
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
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if apiKey != "" {
		return tokenStore.Set(keyringService, keyringAIKey, apiKey)
	}
	return nil
}

// ForgetAPIKey removes the stored key from the keychain.
func ForgetAPIKey() error {
	return tokenStore.Delete(keyringService, keyringAIKey)
}

func mergeInto(dst, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.General.Theme != "" {
		dst.General.Theme = src.General.Theme
	}
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	if s := strings.TrimSpace(src.AI.BaseURL); s != "" {
		dst.AI.BaseURL = s
	}
	if s := strings.TrimSpace(src.AI.ChatModel); s != "" {
		dst.AI.ChatModel = s
	}
	if s := strings.TrimSpace(src.AI.ImageModel); s != "" {
		dst.AI.ImageModel = s
	}
	if src.AI.TimeoutMs > 0 {
		dst.AI.TimeoutMs = src.AI.TimeoutMs
	}
	if s := strings.TrimSpace(src.Library.PostgresDSN); s != "" {
		dst.Library.PostgresDSN = s
	}
	if src.Canvas.ZoomMin > 0 {
		dst.Canvas.ZoomMin = src.Canvas.ZoomMin
	}
	if src.Canvas.ZoomMax > 0 {
		dst.Canvas.ZoomMax = src.Canvas.ZoomMax
	}
	if src.Canvas.WheelStepIn > 0 {
		dst.Canvas.WheelStepIn = src.Canvas.WheelStepIn
	}
	if src.Canvas.WheelStepOut > 0 {
		dst.Canvas.WheelStepOut = src.Canvas.WheelStepOut
	}
	if src.Canvas.GridCols > 0 {
		dst.Canvas.GridCols = src.Canvas.GridCols
	}
	if src.Canvas.GridRows > 0 {
		dst.Canvas.GridRows = src.Canvas.GridRows
	}
	if src.Canvas.Margin > 0 {
		dst.Canvas.Margin = src.Canvas.Margin
	}
	if src.Canvas.DebounceMs > 0 {
		dst.Canvas.DebounceMs = src.Canvas.DebounceMs
	}
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

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvAIBaseURL)); v != "" {
		cfg.AI.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAIChatModel)); v != "" {
		cfg.AI.ChatModel = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAIImageModel)); v != "" {
		cfg.AI.ImageModel = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAITimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.AI.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvLibraryDSN)); v != "" {
		cfg.Library.PostgresDSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetry)); v != "" {
		cfg.General.TelemetryOptIn = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

func parseBool(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	return s == "1" || s == "true" || s == "on" || s == "yes"
}
