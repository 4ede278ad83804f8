package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateBackend(); err != nil {
		return err
	}
	if err := c.validateDetection(); err != nil {
		return err
	}
	if err := c.validateSampler(); err != nil {
		return err
	}
	if err := c.validateDeepScan(); err != nil {
		return err
	}
	if c.History.MaxEntries < 1 {
		return errors.New("history.max_entries must be >= 1")
	}
	return nil
}

func (c *Config) validateBackend() error {
	if c.Backend.BaseURL == "" {
		return errors.New("backend.base_url must be set")
	}
	if c.Backend.RequestTimeout <= 0 {
		return errors.New("backend.request_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateDetection() error {
	return ensurePositiveMap(map[string]int{
		"detection.structure_debounce_ms":  c.Detection.StructureDebounceMs,
		"detection.scroll_debounce_ms":     c.Detection.ScrollDebounceMs,
		"detection.heuristic_debounce_ms":  c.Detection.HeuristicDebounceMs,
		"detection.sweep_interval_seconds": c.Detection.SweepIntervalSeconds,
	})
}

func (c *Config) validateSampler() error {
	if err := ensurePositiveMap(map[string]int{
		"sampler.ambient_frames":          c.Sampler.AmbientFrames,
		"sampler.deep_scan_frames":        c.Sampler.DeepScanFrames,
		"sampler.seek_timeout_seconds":    c.Sampler.SeekTimeoutSeconds,
		"sampler.settle_delay_ms":         c.Sampler.SettleDelayMs,
		"sampler.metadata_retry_ms":       c.Sampler.MetadataRetryMs,
		"sampler.metadata_retry_attempts": c.Sampler.MetadataRetryAttempts,
	}); err != nil {
		return err
	}
	if c.Sampler.CaptureQuality <= 0 || c.Sampler.CaptureQuality > 1 {
		return errors.New("sampler.capture_quality must be in (0, 1]")
	}
	return nil
}

func (c *Config) validateDeepScan() error {
	return ensurePositiveMap(map[string]int{
		"deep_scan.poll_interval_seconds": c.DeepScan.PollIntervalSeconds,
		"deep_scan.poll_max_attempts":     c.DeepScan.PollMaxAttempts,
	})
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
