package config

const (
	defaultStoreBaseURL        = "http://127.0.0.1:8787"
	defaultReadTimeoutSeconds  = 8
	defaultWriteTimeoutSeconds = 10
	defaultRetryCount          = 2
	defaultRetryBaseDelayMS    = 1000
	defaultSearchLimit         = 5
	defaultCachePath           = "~/.cache/artcache/recent.json"
	defaultCacheCapacity       = 20
	defaultCacheTTLHours       = 24
	defaultSimilarityThreshold = 0.85
	defaultConfidenceGate      = 0.8
	defaultMetric              = "levenshtein"
	defaultServerBind          = "127.0.0.1:8787"
	defaultServerDBPath        = "~/.local/share/artcache/store.db"
	defaultServerLockPath      = "~/.local/share/artcache/artcached.lock"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"

	maxRetryCount  = 5
	maxSearchLimit = 50
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Store: Store{
			BaseURL:             defaultStoreBaseURL,
			ReadTimeoutSeconds:  defaultReadTimeoutSeconds,
			WriteTimeoutSeconds: defaultWriteTimeoutSeconds,
			RetryCount:          defaultRetryCount,
			RetryBaseDelayMS:    defaultRetryBaseDelayMS,
			SearchLimit:         defaultSearchLimit,
		},
		Cache: Cache{
			Path:     defaultCachePath,
			Capacity: defaultCacheCapacity,
			TTLHours: defaultCacheTTLHours,
		},
		Matching: Matching{
			SimilarityThreshold: defaultSimilarityThreshold,
			ConfidenceGate:      defaultConfidenceGate,
			Metric:              defaultMetric,
		},
		Server: Server{
			Bind:     defaultServerBind,
			DBPath:   defaultServerDBPath,
			LockPath: defaultServerLockPath,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
