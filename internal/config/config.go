package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Store contains settings for the shared remote store client.
type Store struct {
	BaseURL             string `toml:"base_url"`
	APIKey              string `toml:"api_key"`
	ReadTimeoutSeconds  int    `toml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `toml:"write_timeout_seconds"`
	RetryCount          int    `toml:"retry_count"`
	RetryBaseDelayMS    int    `toml:"retry_base_delay_ms"`
	SearchLimit         int    `toml:"search_limit"`
}

// Cache contains settings for the device-local ephemeral cache.
type Cache struct {
	Path     string `toml:"path"`
	Capacity int    `toml:"capacity"`
	TTLHours int    `toml:"ttl_hours"`
}

// Matching contains the thresholds that gate persistence and deduplication.
type Matching struct {
	SimilarityThreshold float64 `toml:"similarity_threshold"`
	ConfidenceGate      float64 `toml:"confidence_gate"`
	Metric              string  `toml:"metric"`
}

// Server contains settings for the reference shared store daemon.
type Server struct {
	Bind     string `toml:"bind"`
	DBPath   string `toml:"db_path"`
	LockPath string `toml:"lock_path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	File   string `toml:"file"`
}

// Config encapsulates all configuration values for artcache.
//
// Configuration sections by subsystem:
//   - Store: remote shared store endpoint, credential, timeouts, retries
//   - Cache: local ephemeral cache file, capacity, and TTL
//   - Matching: similarity threshold and confidence gate
//   - Server: reference store daemon bind address and database
//   - Logging: log format, level, and optional file output
type Config struct {
	Store    Store    `toml:"store"`
	Cache    Cache    `toml:"cache"`
	Matching Matching `toml:"matching"`
	Server   Server   `toml:"server"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/artcache/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("artcache.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// ReadTimeout returns the per-attempt timeout for read operations.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Store.ReadTimeoutSeconds) * time.Second
}

// WriteTimeout returns the per-attempt timeout for write operations.
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.Store.WriteTimeoutSeconds) * time.Second
}

// RetryBaseDelay returns the linear backoff unit between retries.
func (c *Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.Store.RetryBaseDelayMS) * time.Millisecond
}

// CacheTTL returns how long a local cache entry is served.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLHours) * time.Hour
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
