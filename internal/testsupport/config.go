package testsupport

import (
	"path/filepath"
	"testing"

	"scrollsafe/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test
// and timings short enough for fast tests.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Backend.BaseURL = "http://127.0.0.1:0"
	cfg.Backend.APIKey = "test"
	cfg.Detection.StructureDebounceMs = 10
	cfg.Detection.ScrollDebounceMs = 20
	cfg.Detection.HeuristicDebounceMs = 25
	cfg.Detection.SweepIntervalSeconds = 1
	cfg.Sampler.SeekTimeoutSeconds = 1
	cfg.Sampler.SettleDelayMs = 1
	cfg.Sampler.MetadataRetryMs = 5
	cfg.DeepScan.PollIntervalSeconds = 1

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithRecheckPlatforms overrides the platforms that always re-check the
// authoritative store for known identities.
func WithRecheckPlatforms(platforms ...string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Detection.RecheckPlatforms = platforms
	}
}

// WithSharedCache points the shared cache at a Redis address.
func WithSharedCache(addr string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.SharedCache.Enabled = true
		cfg.SharedCache.RedisAddr = addr
	}
}
