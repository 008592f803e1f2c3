// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"

	"github.com/jeranaias/mediguard/internal/model"
	"github.com/jeranaias/mediguard/internal/offline"
	"github.com/jeranaias/mediguard/internal/storage"
	"github.com/jeranaias/mediguard/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete mediguard configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	Storage  StorageConfig  `toml:"storage" json:"storage"`
	UI       UIConfig       `toml:"ui" json:"ui"`
	Offline  OfflineConfig  `toml:"offline" json:"offline"`
	Chat     ChatConfig     `toml:"chat" json:"chat"`
	Security SecurityConfig `toml:"security" json:"security"`
	Log      LogConfig      `toml:"log" json:"log"`
}

// StorageConfig selects the durable store.
type StorageConfig struct {
	// Backend is one of storage.Backends.
	Backend string `toml:"backend" json:"backend"`
	// Dir holds the store data (empty = ~/.mediguard/data)
	Dir string `toml:"dir" json:"dir"`
}

// UIConfig contains terminal presentation settings.
type UIConfig struct {
	// Theme is "light", "dark" or "auto" (detect from the terminal)
	Theme string `toml:"theme" json:"theme"`
	// Language is the initial display locale
	Language string `toml:"language" json:"language"`
}

// OfflineConfig drives the offline cache worker and its proxy.
type OfflineConfig struct {
	CacheVersion string   `toml:"cache_version" json:"cache_version"`
	Origin       string   `toml:"origin" json:"origin"`
	Listen       string   `toml:"listen" json:"listen"`
	Manifest     []string `toml:"manifest" json:"manifest"`

	InstallAttempts    int `toml:"install_attempts" json:"install_attempts"`
	InstallConcurrency int `toml:"install_concurrency" json:"install_concurrency"`

	// RateLimitRPS bounds proxy requests per client (0 = unlimited)
	RateLimitRPS float64 `toml:"rate_limit_rps" json:"rate_limit_rps"`
	RateBurst    int     `toml:"rate_burst" json:"rate_burst"`
}

// ChatConfig selects the chat responder.
type ChatConfig struct {
	// Provider is "gemini" or "local"
	Provider string `toml:"provider" json:"provider"`
	Model    string `toml:"model" json:"model"`
	APIKey   string `toml:"api_key" json:"api_key"`
}

// SecurityConfig controls sealing of secrets at rest.
type SecurityConfig struct {
	// SealAPIKey encrypts the profile's external API key before storage
	SealAPIKey bool `toml:"seal_api_key" json:"seal_api_key"`
	// KeyFile holds the sealing key (empty = ~/.mediguard/seal.key)
	KeyFile string `toml:"key_file" json:"key_file"`
}

// LogConfig controls log output and rotation.
type LogConfig struct {
	// File enables rotated file logging (empty = stderr)
	File       string `toml:"file" json:"file"`
	MaxSizeMB  int    `toml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" json:"max_age_days"`
	Verbose    bool   `toml:"verbose" json:"verbose"`
}

// Chat providers.
const (
	ProviderGemini = "gemini"
	ProviderLocal  = "local"
)

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a configuration with built-in defaults.
func Default() *Config {
	return &Config{
		Version: "1",
		Storage: StorageConfig{
			Backend: storage.BackendFile,
		},
		UI: UIConfig{
			Theme:    "light",
			Language: model.DefaultLanguage,
		},
		Offline: OfflineConfig{
			CacheVersion:       offline.DefaultVersion,
			Origin:             "http://localhost:3000",
			Listen:             "127.0.0.1:8080",
			Manifest:           slices.Clone(offline.DefaultManifest),
			InstallAttempts:    1,
			InstallConcurrency: offline.DefaultConcurrency,
			RateLimitRPS:       20,
			RateBurst:          40,
		},
		Chat: ChatConfig{
			Provider: ProviderGemini,
			Model:    "gemini-2.5-flash",
		},
		Security: SecurityConfig{
			SealAPIKey: true,
		},
		Log: LogConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = defaults.Storage.Backend
	}
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}
	if cfg.UI.Language == "" {
		cfg.UI.Language = defaults.UI.Language
	}

	if cfg.Offline.CacheVersion == "" {
		cfg.Offline.CacheVersion = defaults.Offline.CacheVersion
	}
	if cfg.Offline.Origin == "" {
		cfg.Offline.Origin = defaults.Offline.Origin
	}
	if cfg.Offline.Listen == "" {
		cfg.Offline.Listen = defaults.Offline.Listen
	}
	if len(cfg.Offline.Manifest) == 0 {
		cfg.Offline.Manifest = defaults.Offline.Manifest
	}
	if cfg.Offline.InstallAttempts == 0 {
		cfg.Offline.InstallAttempts = defaults.Offline.InstallAttempts
	}
	if cfg.Offline.InstallConcurrency == 0 {
		cfg.Offline.InstallConcurrency = defaults.Offline.InstallConcurrency
	}
	if cfg.Offline.RateBurst == 0 {
		cfg.Offline.RateBurst = defaults.Offline.RateBurst
	}

	if cfg.Chat.Provider == "" {
		cfg.Chat.Provider = defaults.Chat.Provider
	}
	if cfg.Chat.Model == "" {
		cfg.Chat.Model = defaults.Chat.Model
	}

	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = defaults.Log.MaxSizeMB
	}
	if cfg.Log.MaxBackups == 0 {
		cfg.Log.MaxBackups = defaults.Log.MaxBackups
	}
	if cfg.Log.MaxAgeDays == 0 {
		cfg.Log.MaxAgeDays = defaults.Log.MaxAgeDays
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the mediguard directory. MEDIGUARD_HOME overrides
// ~/.mediguard.
func ConfigDir() (string, error) {
	if dir := os.Getenv("MEDIGUARD_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".mediguard"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// DataDir resolves the storage directory.
func (c *Config) DataDir() (string, error) {
	if c.Storage.Dir != "" {
		return c.Storage.Dir, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "data"), nil
}

// KeyFilePath resolves the sealing key path.
func (c *Config) KeyFilePath() (string, error) {
	if c.Security.KeyFile != "" {
		return c.Security.KeyFile, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "seal.key"), nil
}

// ensureSecurePermissions checks and fixes permissions on config files.
// Config files may hold API keys and must be 0600.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	mode := info.Mode().Perm()
	if mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// LoadDotEnv loads .env.local and .env from the working directory. Variables
// already set in the environment win.
func LoadDotEnv() {
	for _, p := range []string{".env.local", ".env"} {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			fmt.Fprintf(os.Stderr, "Warning: failed to load %s: %v\n", p, err)
		}
	}
}

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	var loadErr error

	if tomlPath, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			cfg, err := LoadFromPath(tomlPath)
			if err == nil {
				return cfg, nil
			}
			loadErr = err
		}
	}

	if loadErr == nil {
		if jsonPath, err := ConfigPathJSON(); err == nil {
			if _, statErr := os.Stat(jsonPath); statErr == nil {
				cfg, err := LoadFromPath(jsonPath)
				if err == nil {
					return cfg, nil
				}
				loadErr = err
			}
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return Default(), errors.Join(loadErr, fmt.Errorf("invalid config: %w", err))
	}
	// Return defaults (with any load error for informational purposes)
	return cfg, loadErr
}

// LoadTOML loads configuration from a TOML file.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	fillDefaults(cfg)
	return nil
}

// LoadJSON loads configuration from a JSON file.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	fillDefaults(cfg)
	return nil
}

// LoadFromPath loads configuration from a specific file path with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := &Config{}

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf strings.Builder
	buf.WriteString("# mediguard configuration file\n")
	buf.WriteString("# Generated by mediguard - edit with care\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(afero.NewOsFs(), path, []byte(buf.String()), 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file with 0600 permissions.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(afero.NewOsFs(), path, data, 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns all problems at once.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if !slices.Contains(storage.Backends, c.Storage.Backend) {
		add("storage.backend", "must be one of %s, got %q", strings.Join(storage.Backends, ", "), c.Storage.Backend)
	}

	switch c.UI.Theme {
	case "light", "dark", "auto":
	default:
		add("ui.theme", "must be light, dark or auto, got %q", c.UI.Theme)
	}
	if _, ok := model.LookupLanguage(c.UI.Language); !ok {
		add("ui.language", "unsupported language %q", c.UI.Language)
	}

	if c.Offline.CacheVersion == "" {
		add("offline.cache_version", "must not be empty")
	}
	origin, err := offline.ParseOrigin(c.Offline.Origin)
	if err != nil {
		add("offline.origin", "%v", err)
	} else if _, err := offline.ResolveManifest(origin, c.Offline.Manifest); err != nil {
		add("offline.manifest", "%v", err)
	}
	if _, _, err := net.SplitHostPort(c.Offline.Listen); err != nil {
		add("offline.listen", "must be host:port: %v", err)
	}
	if c.Offline.InstallAttempts < 1 || c.Offline.InstallAttempts > 10 {
		add("offline.install_attempts", "must be between 1 and 10, got %d", c.Offline.InstallAttempts)
	}
	if c.Offline.InstallConcurrency < 1 || c.Offline.InstallConcurrency > 64 {
		add("offline.install_concurrency", "must be between 1 and 64, got %d", c.Offline.InstallConcurrency)
	}
	if c.Offline.RateLimitRPS < 0 {
		add("offline.rate_limit_rps", "must not be negative")
	}
	if c.Offline.RateBurst < 1 {
		add("offline.rate_burst", "must be at least 1")
	}

	switch c.Chat.Provider {
	case ProviderGemini, ProviderLocal:
	default:
		add("chat.provider", "must be gemini or local, got %q", c.Chat.Provider)
	}

	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		add("log", "rotation limits must not be negative")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - MEDIGUARD_STORAGE_BACKEND: overrides storage.backend
//   - MEDIGUARD_DATA_DIR: overrides storage.dir
//   - MEDIGUARD_THEME: overrides ui.theme
//   - MEDIGUARD_ORIGIN: overrides offline.origin
//   - MEDIGUARD_LISTEN: overrides offline.listen
//   - MEDIGUARD_CACHE_VERSION: overrides offline.cache_version
//   - MEDIGUARD_GEMINI_KEY or GEMINI_API_KEY: overrides chat.api_key
//   - MEDIGUARD_MODEL: overrides chat.model
//   - MEDIGUARD_LOG_FILE: overrides log.file
//   - MEDIGUARD_VERBOSE: set to "1" or "true" for verbose logging
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("MEDIGUARD_STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("MEDIGUARD_DATA_DIR"); v != "" {
		c.Storage.Dir = v
	}
	if v := os.Getenv("MEDIGUARD_THEME"); v != "" {
		c.UI.Theme = v
	}
	if v := os.Getenv("MEDIGUARD_ORIGIN"); v != "" {
		c.Offline.Origin = v
	}
	if v := os.Getenv("MEDIGUARD_LISTEN"); v != "" {
		c.Offline.Listen = v
	}
	if v := os.Getenv("MEDIGUARD_CACHE_VERSION"); v != "" {
		c.Offline.CacheVersion = v
	}

	// GEMINI_API_KEY is the name the Gemini tooling uses
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Chat.APIKey = v
	}
	if v := os.Getenv("MEDIGUARD_GEMINI_KEY"); v != "" {
		c.Chat.APIKey = v
	}

	if v := os.Getenv("MEDIGUARD_MODEL"); v != "" {
		c.Chat.Model = v
	}
	if v := os.Getenv("MEDIGUARD_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	if v := os.Getenv("MEDIGUARD_VERBOSE"); v != "" {
		c.Log.Verbose = v == "1" || strings.ToLower(v) == "true"
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "offline.origin").
func (c *Config) Get(key string) (any, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation (e.g., "offline.origin").
func (c *Config) Set(key string, value any) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from a value with type conversion.
// Strings are parsed for numeric, bool and comma-separated list fields.
func setFieldValue(field reflect.Value, value any) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			lower := strings.ToLower(strVal)
			field.SetBool(lower == "1" || lower == "true" || lower == "yes")
			return nil
		case reflect.Slice:
			if field.Type().Elem().Kind() == reflect.String {
				var items []string
				for _, s := range strings.Split(strVal, ",") {
					if s = strings.TrimSpace(s); s != "" {
						items = append(items, s)
					}
				}
				field.Set(reflect.ValueOf(items))
				return nil
			}
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	var keys []string
	var walk func(t reflect.Type, prefix string)
	walk = func(t reflect.Type, prefix string) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			name, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
			if name == "" {
				continue
			}
			if f.Type.Kind() == reflect.Struct {
				walk(f.Type, prefix+name+".")
				continue
			}
			keys = append(keys, prefix+name)
		}
	}
	walk(reflect.TypeOf(Config{}), "")
	return keys
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Offline.Manifest = slices.Clone(c.Offline.Manifest)
	return &clone
}

// String returns a JSON rendering with secrets redacted.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.Chat.APIKey != "" {
		safe.Chat.APIKey = "[REDACTED]"
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}
