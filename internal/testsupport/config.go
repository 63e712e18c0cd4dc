package testsupport

import (
	"path/filepath"
	"testing"

	"artcache/internal/config"
)

// TestAPIKey is the shared credential used by test configs and stores.
const TestAPIKey = "test-key"

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config whose file paths live under a per-test temp
// directory. Retries run without delay.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Store.APIKey = TestAPIKey
	cfgVal.Store.RetryBaseDelayMS = 0
	cfgVal.Cache.Path = filepath.Join(base, "cache", "recent.json")
	cfgVal.Server.Bind = "127.0.0.1:0"
	cfgVal.Server.DBPath = filepath.Join(base, "store", "store.db")
	cfgVal.Server.LockPath = filepath.Join(base, "store", "artcached.lock")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithAPIKey sets the shared store credential on the test config.
func WithAPIKey(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Store.APIKey = key
	}
}

// WithStoreURL points the client config at a running test store.
func WithStoreURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Store.BaseURL = url
	}
}

// WithoutCacheFile keeps the local cache in memory only.
func WithoutCacheFile() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cache.Path = ""
	}
}
