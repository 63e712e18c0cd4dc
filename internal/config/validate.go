package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	return c.validateLogging()
}

// ValidateClient additionally requires the credential the remote client sends.
func (c *Config) ValidateClient() error {
	if c.Store.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/artcache/config.toml"
		}
		return fmt.Errorf("store.api_key is required. Set ARTCACHE_API_KEY env var or edit %s (create with 'artcache config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateStore() error {
	parsed, err := url.Parse(c.Store.BaseURL)
	if err != nil {
		return fmt.Errorf("store.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("store.base_url must use http or https, got %q", c.Store.BaseURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("store.base_url must include a host, got %q", c.Store.BaseURL)
	}
	if c.Store.RetryCount < 0 || c.Store.RetryCount > maxRetryCount {
		return fmt.Errorf("store.retry_count must be between 0 and %d", maxRetryCount)
	}
	if c.Store.SearchLimit > maxSearchLimit {
		return fmt.Errorf("store.search_limit must not exceed %d", maxSearchLimit)
	}
	return nil
}

func (c *Config) validateMatching() error {
	if c.Matching.SimilarityThreshold <= 0 || c.Matching.SimilarityThreshold > 1 {
		return errors.New("matching.similarity_threshold must be within (0, 1]")
	}
	if c.Matching.ConfidenceGate < 0 || c.Matching.ConfidenceGate > 1 {
		return errors.New("matching.confidence_gate must be between 0 and 1")
	}
	switch c.Matching.Metric {
	case "levenshtein", "jaro-winkler":
	default:
		return fmt.Errorf("matching.metric must be levenshtein or jaro-winkler, got %q", c.Matching.Metric)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
