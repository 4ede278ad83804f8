package config

const (
	defaultStateDir              = "~/.local/share/scrollsafe"
	defaultLogDir                = "~/.local/share/scrollsafe/logs"
	defaultAPIBind               = "127.0.0.1:7511"
	defaultBackendBaseURL        = "https://api.scrollsafe.app"
	defaultBackendTimeout        = 30
	defaultSharedCacheTTL        = 3600
	defaultRedisAddr             = "localhost:6379"
	defaultStructureDebounceMs   = 200
	defaultScrollDebounceMs      = 500
	defaultHeuristicDebounceMs   = 2000
	defaultSweepIntervalSeconds  = 30
	defaultAmbientFrames         = 16
	defaultDeepScanFrames        = 8
	defaultSeekTimeoutSeconds    = 4
	defaultSettleDelayMs         = 160
	defaultMetadataRetryMs       = 300
	defaultMetadataRetryAttempts = 12
	defaultCaptureQuality        = 0.85
	defaultPollIntervalSeconds   = 3
	defaultPollMaxAttempts       = 80
	defaultHistoryMaxEntries     = 5
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
			APIBind:  defaultAPIBind,
		},
		Backend: Backend{
			BaseURL:        defaultBackendBaseURL,
			RequestTimeout: defaultBackendTimeout,
		},
		SharedCache: SharedCache{
			RedisAddr:  defaultRedisAddr,
			TTLSeconds: defaultSharedCacheTTL,
		},
		Detection: Detection{
			StructureDebounceMs:  defaultStructureDebounceMs,
			ScrollDebounceMs:     defaultScrollDebounceMs,
			HeuristicDebounceMs:  defaultHeuristicDebounceMs,
			SweepIntervalSeconds: defaultSweepIntervalSeconds,
			Platforms:            []string{"youtube", "tiktok", "reels"},
			RecheckPlatforms:     []string{"tiktok"},
		},
		Sampler: Sampler{
			AmbientFrames:         defaultAmbientFrames,
			DeepScanFrames:        defaultDeepScanFrames,
			SeekTimeoutSeconds:    defaultSeekTimeoutSeconds,
			SettleDelayMs:         defaultSettleDelayMs,
			MetadataRetryMs:       defaultMetadataRetryMs,
			MetadataRetryAttempts: defaultMetadataRetryAttempts,
			CaptureQuality:        defaultCaptureQuality,
		},
		DeepScan: DeepScan{
			PollIntervalSeconds: defaultPollIntervalSeconds,
			PollMaxAttempts:     defaultPollMaxAttempts,
		},
		History: History{
			MaxEntries: defaultHistoryMaxEntries,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
