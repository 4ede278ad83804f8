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

// Paths contains directory and bind address configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Backend contains configuration for the ScrollSafe analysis backend.
type Backend struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	RequestTimeout int    `toml:"request_timeout"`
}

// SharedCache contains configuration for the Redis-backed shared verdict
// cache. When disabled, authoritative verdicts are kept in process memory
// only.
type SharedCache struct {
	Enabled       bool   `toml:"enabled"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	TTLSeconds    int    `toml:"ttl_seconds"`
}

// Detection contains timing and platform configuration for the detection
// pipeline and the change signal bridge.
type Detection struct {
	StructureDebounceMs  int `toml:"structure_debounce_ms"`
	ScrollDebounceMs     int `toml:"scroll_debounce_ms"`
	HeuristicDebounceMs  int `toml:"heuristic_debounce_ms"`
	SweepIntervalSeconds int `toml:"sweep_interval_seconds"`
	// Platforms are tried in registration order; the first match wins.
	Platforms []string `toml:"platforms"`
	// RecheckPlatforms always re-issue the authoritative lookup for a
	// known identity, to catch server-side metadata overrides that land
	// after the first display.
	RecheckPlatforms []string `toml:"recheck_platforms"`
}

// Sampler contains frame capture configuration.
type Sampler struct {
	AmbientFrames         int     `toml:"ambient_frames"`
	DeepScanFrames        int     `toml:"deep_scan_frames"`
	SeekTimeoutSeconds    int     `toml:"seek_timeout_seconds"`
	SettleDelayMs         int     `toml:"settle_delay_ms"`
	MetadataRetryMs       int     `toml:"metadata_retry_ms"`
	MetadataRetryAttempts int     `toml:"metadata_retry_attempts"`
	CaptureQuality        float64 `toml:"capture_quality"`
}

// DeepScan contains configuration for the deep-scan polling loop.
type DeepScan struct {
	PollIntervalSeconds int `toml:"poll_interval_seconds"`
	PollMaxAttempts     int `toml:"poll_max_attempts"`
}

// History contains configuration for the recent-history store.
type History struct {
	MaxEntries int `toml:"max_entries"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the scrollsafe daemon.
type Config struct {
	Paths       Paths       `toml:"paths"`
	Backend     Backend     `toml:"backend"`
	SharedCache SharedCache `toml:"shared_cache"`
	Detection   Detection   `toml:"detection"`
	Sampler     Sampler     `toml:"sampler"`
	DeepScan    DeepScan    `toml:"deep_scan"`
	History     History     `toml:"history"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/scrollsafe/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
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
		if _, err := os.Stat(expanded); err != nil {
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
	projectPath, err := filepath.Abs("scrollsafe.toml")
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

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// StructureDebounce returns the document-structure debounce window.
func (c *Config) StructureDebounce() time.Duration {
	return time.Duration(c.Detection.StructureDebounceMs) * time.Millisecond
}

// ScrollDebounce returns the scroll debounce window.
func (c *Config) ScrollDebounce() time.Duration {
	return time.Duration(c.Detection.ScrollDebounceMs) * time.Millisecond
}

// HeuristicDebounce returns the quiet period before a cheap heuristic
// request is issued for a full cache miss.
func (c *Config) HeuristicDebounce() time.Duration {
	return time.Duration(c.Detection.HeuristicDebounceMs) * time.Millisecond
}

// SweepInterval returns the mount-state eviction sweep interval.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Detection.SweepIntervalSeconds) * time.Second
}

// RecheckPlatform reports whether known identities on the platform must
// always re-issue the authoritative lookup.
func (c *Config) RecheckPlatform(platform string) bool {
	for _, p := range c.Detection.RecheckPlatforms {
		if strings.EqualFold(p, platform) {
			return true
		}
	}
	return false
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
