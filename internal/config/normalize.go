package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeBackend()
	c.normalizeSharedCache()
	c.normalizeDetection()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeBackend() {
	if c.Backend.APIKey == "" {
		if value, ok := os.LookupEnv("SCROLLSAFE_API_KEY"); ok {
			c.Backend.APIKey = value
		}
	}
	c.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(c.Backend.BaseURL), "/")
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = defaultBackendBaseURL
	}
	if c.Backend.RequestTimeout <= 0 {
		c.Backend.RequestTimeout = defaultBackendTimeout
	}
}

func (c *Config) normalizeSharedCache() {
	c.SharedCache.RedisAddr = strings.TrimSpace(c.SharedCache.RedisAddr)
	if c.SharedCache.RedisAddr == "" {
		c.SharedCache.RedisAddr = defaultRedisAddr
	}
	if c.SharedCache.TTLSeconds <= 0 {
		c.SharedCache.TTLSeconds = defaultSharedCacheTTL
	}
}

func (c *Config) normalizeDetection() {
	normalized := make([]string, 0, len(c.Detection.Platforms))
	for _, platform := range c.Detection.Platforms {
		platform = strings.ToLower(strings.TrimSpace(platform))
		if platform != "" {
			normalized = append(normalized, platform)
		}
	}
	if len(normalized) == 0 {
		normalized = []string{"youtube", "tiktok", "reels"}
	}
	c.Detection.Platforms = normalized

	rechecks := make([]string, 0, len(c.Detection.RecheckPlatforms))
	for _, platform := range c.Detection.RecheckPlatforms {
		platform = strings.ToLower(strings.TrimSpace(platform))
		if platform != "" {
			rechecks = append(rechecks, platform)
		}
	}
	c.Detection.RecheckPlatforms = rechecks
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
