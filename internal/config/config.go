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
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted as YAML in the user
// scope. Environment variables are read-only overrides applied on Load. The
// image-service API key is never written to the file; it lives in the OS
// keyring.
//
// config_version: bump when the structure changes incompatibly.
type AppConfig struct {
	ConfigVersion int            `yaml:"config_version"`
	General       GeneralConfig  `yaml:"general"`
	Server        ServerConfig   `yaml:"server"`
	ImageGen      ImageGenConfig `yaml:"imagegen"`
	Export        ExportConfig   `yaml:"export"`
	Journal       JournalConfig  `yaml:"journal"`
	Logging       LoggingConfig  `yaml:"logging"`
}

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	DataDir        string `yaml:"data_dir"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	// Viewport is the screen size new items are centred in.
	ViewportWidth  int `yaml:"viewport_width"`
	ViewportHeight int `yaml:"viewport_height"`
}

type ImageGenConfig struct {
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	TimeoutMs int    `yaml:"timeout_ms"`
	// Offline uses the local placeholder generator instead of the service.
	Offline bool `yaml:"offline"`
}

type ExportConfig struct {
	Dir        string `yaml:"dir"`
	Size       int    `yaml:"size"`
	Background string `yaml:"background"`
	Preset     string `yaml:"preset"`
}

type JournalConfig struct {
	Driver string `yaml:"driver"` // "sqlite" | "pgx"
	DSN    string `yaml:"dsn"`    // empty: <data_dir>/journal.sqlite
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{},
		Server:        ServerConfig{Addr: "127.0.0.1:8787", ViewportWidth: 1280, ViewportHeight: 800},
		ImageGen:      ImageGenConfig{BaseURL: "https://generativelanguage.googleapis.com", Model: "gemini-2.5-flash-image-preview", TimeoutMs: 60000},
		Export:        ExportConfig{Dir: ".", Size: 5000, Background: "#1f2937", Preset: "web"},
		Journal:       JournalConfig{Driver: "sqlite"},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvTelemetryOptIn = "VB_TELEMETRY_OPT_IN"
	EnvDataDir        = "VB_DATA_DIR"
	EnvServerAddr     = "VB_SERVER_ADDR"
	EnvImageGenURL    = "VB_IMAGEGEN_URL"
	EnvImageGenModel  = "VB_IMAGEGEN_MODEL"
	EnvImageGenTimeMs = "VB_IMAGEGEN_TIMEOUT_MS"
	EnvOffline        = "VB_OFFLINE"
	EnvAPIKey         = "VB_API_KEY"
	EnvExportDir      = "VB_EXPORT_DIR"
	EnvExportPreset   = "VB_EXPORT_PRESET"
	EnvJournalDriver  = "VB_JOURNAL_DRIVER"
	EnvJournalDSN     = "VB_JOURNAL_DSN"
	EnvLogLevel       = "VB_LOG_LEVEL"
	EnvLogFormat      = "VB_LOG_FORMAT"
	EnvLogSource      = "VB_LOG_SOURCE"
	EnvLogFile        = "VB_LOG_FILE"
)

const (
	keyringService = "VisionBoard"
	keyringAPIKey  = "imagegen_api_key"
)

// TokenStore abstracts the keyring so tests can swap it.
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

// ConfigDir returns the per-user application directory.
func ConfigDir() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "VisionBoard")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "VisionBoard")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "visionboard"), nil
		}
		home := os.Getenv("HOME")
		if home == "" {
			return "", errors.New("cannot resolve config directory")
		}
		base = filepath.Join(home, ".config", "visionboard")
	}
	return base, nil
}

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults and merges
// environment overrides. The API key comes from VB_API_KEY or the keyring and
// is returned separately.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, "", fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	}
	applyEnvOverrides(&cfg)
	if cfg.General.DataDir == "" {
		if dir, err := ConfigDir(); err == nil {
			cfg.General.DataDir = dir
		}
	}
	key := strings.TrimSpace(os.Getenv(EnvAPIKey))
	if key == "" {
		key, _ = tokenStore.Get(keyringService, keyringAPIKey)
	}
	return cfg, key, nil
}

// Save writes the YAML file and stores the API key in the keyring if non-empty.
func Save(cfg AppConfig, apiKey string) error {
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
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if apiKey != "" {
		if err := tokenStore.Set(keyringService, keyringAPIKey, apiKey); err != nil {
			return fmt.Errorf("store api key: %w", err)
		}
	}
	return nil
}

// ForgetAPIKey removes the stored key. A missing key is not an error.
func ForgetAPIKey() error {
	if err := tokenStore.Delete(keyringService, keyringAPIKey); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return nil
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// booleans: copy directly so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	dst.ImageGen.Offline = src.ImageGen.Offline
	dst.Logging.Source = src.Logging.Source

	setStr(&dst.General.DataDir, src.General.DataDir)
	setStr(&dst.Server.Addr, src.Server.Addr)
	setInt(&dst.Server.ViewportWidth, src.Server.ViewportWidth)
	setInt(&dst.Server.ViewportHeight, src.Server.ViewportHeight)
	setStr(&dst.ImageGen.BaseURL, src.ImageGen.BaseURL)
	setStr(&dst.ImageGen.Model, src.ImageGen.Model)
	setInt(&dst.ImageGen.TimeoutMs, src.ImageGen.TimeoutMs)
	setStr(&dst.Export.Dir, src.Export.Dir)
	setInt(&dst.Export.Size, src.Export.Size)
	setStr(&dst.Export.Background, src.Export.Background)
	setStr(&dst.Export.Preset, strings.ToLower(src.Export.Preset))
	setStr(&dst.Journal.Driver, strings.ToLower(src.Journal.Driver))
	setStr(&dst.Journal.DSN, src.Journal.DSN)
	setStr(&dst.Logging.Level, strings.ToLower(src.Logging.Level))
	setStr(&dst.Logging.Format, strings.ToLower(src.Logging.Format))
	setStr(&dst.Logging.File, src.Logging.File)
}

func setStr(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

func applyEnvOverrides(cfg *AppConfig) {
	str := func(env string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			*dst = v
		}
	}
	boolean := func(env string, dst *bool) {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			*dst = parseBool(v)
		}
	}
	boolean(EnvTelemetryOptIn, &cfg.General.TelemetryOptIn)
	str(EnvDataDir, &cfg.General.DataDir)
	str(EnvServerAddr, &cfg.Server.Addr)
	str(EnvImageGenURL, &cfg.ImageGen.BaseURL)
	str(EnvImageGenModel, &cfg.ImageGen.Model)
	if v := strings.TrimSpace(os.Getenv(EnvImageGenTimeMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ImageGen.TimeoutMs = n
		}
	}
	boolean(EnvOffline, &cfg.ImageGen.Offline)
	str(EnvExportDir, &cfg.Export.Dir)
	str(EnvExportPreset, &cfg.Export.Preset)
	str(EnvJournalDriver, &cfg.Journal.Driver)
	str(EnvJournalDSN, &cfg.Journal.DSN)
	str(EnvLogLevel, &cfg.Logging.Level)
	str(EnvLogFormat, &cfg.Logging.Format)
	boolean(EnvLogSource, &cfg.Logging.Source)
	str(EnvLogFile, &cfg.Logging.File)
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
	cfg.Logging.Format = strings.ToLower(cfg.Logging.Format)
}

var envByKey = map[string]string{
	"general.telemetry_opt_in": EnvTelemetryOptIn,
	"general.data_dir":         EnvDataDir,
	"server.addr":              EnvServerAddr,
	"imagegen.base_url":        EnvImageGenURL,
	"imagegen.model":           EnvImageGenModel,
	"imagegen.timeout_ms":      EnvImageGenTimeMs,
	"imagegen.offline":         EnvOffline,
	"export.dir":               EnvExportDir,
	"export.preset":            EnvExportPreset,
	"journal.driver":           EnvJournalDriver,
	"journal.dsn":              EnvJournalDSN,
	"logging.level":            EnvLogLevel,
	"logging.format":           EnvLogFormat,
	"logging.source":           EnvLogSource,
	"logging.file":             EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by the
// environment.
func EnvOverrideFor(key string) (string, bool) {
	env, ok := envByKey[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}

// Timeout returns the image-service timeout, falling back to the default.
func (c ImageGenConfig) Timeout() time.Duration {
	ms := c.TimeoutMs
	if ms <= 0 {
		ms = Defaults().ImageGen.TimeoutMs
	}
	return time.Duration(ms) * time.Millisecond
}

// JournalDSN resolves the journal location for the configured driver.
func (c AppConfig) JournalDSN() string {
	if c.Journal.DSN != "" {
		return c.Journal.DSN
	}
	return filepath.Join(c.General.DataDir, "journal.sqlite")
}
