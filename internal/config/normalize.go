package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeStore()
	if err := c.normalizeCache(); err != nil {
		return err
	}
	c.normalizeMatching()
	if err := c.normalizeServer(); err != nil {
		return err
	}
	return c.normalizeLogging()
}

func (c *Config) normalizeStore() {
	if value, ok := os.LookupEnv("ARTCACHE_STORE_URL"); ok && strings.TrimSpace(value) != "" {
		c.Store.BaseURL = value
	}
	c.Store.BaseURL = strings.TrimRight(strings.TrimSpace(c.Store.BaseURL), "/")
	if c.Store.BaseURL == "" {
		c.Store.BaseURL = defaultStoreBaseURL
	}
	if c.Store.APIKey == "" {
		if value, ok := os.LookupEnv("ARTCACHE_API_KEY"); ok {
			c.Store.APIKey = value
		}
	}
	c.Store.APIKey = strings.TrimSpace(c.Store.APIKey)
	if c.Store.ReadTimeoutSeconds <= 0 {
		c.Store.ReadTimeoutSeconds = defaultReadTimeoutSeconds
	}
	if c.Store.WriteTimeoutSeconds <= 0 {
		c.Store.WriteTimeoutSeconds = defaultWriteTimeoutSeconds
	}
	if c.Store.RetryBaseDelayMS < 0 {
		c.Store.RetryBaseDelayMS = defaultRetryBaseDelayMS
	}
	if c.Store.SearchLimit <= 0 {
		c.Store.SearchLimit = defaultSearchLimit
	}
}

func (c *Config) normalizeCache() error {
	var err error
	if c.Cache.Path, err = expandPath(strings.TrimSpace(c.Cache.Path)); err != nil {
		return fmt.Errorf("cache.path: %w", err)
	}
	if c.Cache.Capacity <= 0 {
		c.Cache.Capacity = defaultCacheCapacity
	}
	if c.Cache.TTLHours <= 0 {
		c.Cache.TTLHours = defaultCacheTTLHours
	}
	return nil
}

func (c *Config) normalizeMatching() {
	if c.Matching.SimilarityThreshold == 0 {
		c.Matching.SimilarityThreshold = defaultSimilarityThreshold
	}
	if c.Matching.ConfidenceGate == 0 {
		c.Matching.ConfidenceGate = defaultConfidenceGate
	}
	c.Matching.Metric = strings.ToLower(strings.TrimSpace(c.Matching.Metric))
	if c.Matching.Metric == "" {
		c.Matching.Metric = defaultMetric
	}
}

func (c *Config) normalizeServer() error {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultServerBind
	}
	var err error
	if strings.TrimSpace(c.Server.DBPath) == "" {
		c.Server.DBPath = defaultServerDBPath
	}
	if c.Server.DBPath, err = expandPath(c.Server.DBPath); err != nil {
		return fmt.Errorf("server.db_path: %w", err)
	}
	if strings.TrimSpace(c.Server.LockPath) == "" {
		c.Server.LockPath = defaultServerLockPath
	}
	if c.Server.LockPath, err = expandPath(c.Server.LockPath); err != nil {
		return fmt.Errorf("server.lock_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(c.Logging.File) != "" {
		var err error
		if c.Logging.File, err = expandPath(strings.TrimSpace(c.Logging.File)); err != nil {
			return fmt.Errorf("logging.file: %w", err)
		}
	}
	return nil
}
