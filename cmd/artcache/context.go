package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"artcache/internal/config"
	"artcache/internal/fingerprint"
	"artcache/internal/localcache"
	"artcache/internal/logging"
	"artcache/internal/remote"
	"artcache/internal/resolver"
)

const closeTimeout = 15 * time.Second

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// JSONMode reports whether output should be JSON.
func (c *commandContext) JSONMode() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func (c *commandContext) newCLILogger(cfg *config.Config, component string) (*slog.Logger, error) {
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logging.NewComponentLogger(logger, component), nil
}

func newGenerator(cfg *config.Config) *fingerprint.Generator {
	opts := []fingerprint.Option{fingerprint.WithThreshold(cfg.Matching.SimilarityThreshold)}
	if metric, ok := fingerprint.MetricByName(cfg.Matching.Metric); ok {
		opts = append(opts, fingerprint.WithMetric(metric))
	}
	return fingerprint.New(opts...)
}

func newLocalCache(cfg *config.Config, logger *slog.Logger) *localcache.Cache {
	return localcache.New(cfg.Cache.Path, logger,
		localcache.WithCapacity(cfg.Cache.Capacity),
		localcache.WithTTL(cfg.CacheTTL()),
	)
}

func newRemoteClient(cfg *config.Config, generator *fingerprint.Generator, logger *slog.Logger) (*remote.Client, error) {
	if err := cfg.ValidateClient(); err != nil {
		return nil, err
	}
	return remote.New(remote.Config{
		BaseURL:        cfg.Store.BaseURL,
		APIKey:         cfg.Store.APIKey,
		ReadTimeout:    cfg.ReadTimeout(),
		WriteTimeout:   cfg.WriteTimeout(),
		RetryCount:     cfg.Store.RetryCount,
		RetryBaseDelay: cfg.RetryBaseDelay(),
		SearchLimit:    cfg.Store.SearchLimit,
	}, remote.WithLogger(logger), remote.WithGenerator(generator))
}

// withResolver builds a resolver from config, runs fn, then drains
// background writes before returning.
func (c *commandContext) withResolver(cmd *cobra.Command, component string, fn func(*resolver.Resolver) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.newCLILogger(cfg, component)
	if err != nil {
		return err
	}
	generator := newGenerator(cfg)
	client, err := newRemoteClient(cfg, generator, logger)
	if err != nil {
		return err
	}
	res, err := resolver.New(client,
		resolver.WithCache(newLocalCache(cfg, logger)),
		resolver.WithGenerator(generator),
		resolver.WithLogger(logger),
		resolver.WithConfidenceGate(cfg.Matching.ConfidenceGate),
	)
	if err != nil {
		return err
	}

	runErr := fn(res)

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), closeTimeout)
	defer cancel()
	if err := res.Close(closeCtx); err != nil {
		logging.WarnWithContext(logger, "background writes did not finish", "background_drain_timeout",
			logging.Error(err),
			logging.String(logging.FieldImpact, "some view counts or introductions may not be saved"),
		)
	}
	return runErr
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
