package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"artcache/internal/config"
	"artcache/internal/logging"
	"artcache/internal/sharedstore"
)

func newRootCommand() *cobra.Command {
	var (
		configFlag string
		bindFlag   string
		dbFlag     string
	)

	cmd := &cobra.Command{
		Use:           "artcached",
		Short:         "Serve the shared artwork store",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadServerConfig(configFlag, bindFlag, dbFlag)
			if err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			srv, err := sharedstore.NewServer(cfg, logger)
			if err != nil {
				return err
			}
			err = srv.Run(cmd.Context())
			logger.Info("artcached shutting down")
			return err
		},
	}

	cmd.Flags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	cmd.Flags().StringVar(&bindFlag, "bind", "", "Listen address (overrides server.bind)")
	cmd.Flags().StringVar(&dbFlag, "db", "", "Database path (overrides server.db_path)")
	return cmd
}

func loadServerConfig(path, bind, dbPath string) (*config.Config, error) {
	cfg, _, _, err := config.Load(strings.TrimSpace(path))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if bind = strings.TrimSpace(bind); bind != "" {
		cfg.Server.Bind = bind
	}
	if dbPath = strings.TrimSpace(dbPath); dbPath != "" {
		expanded, err := config.ExpandPath(dbPath)
		if err != nil {
			return nil, fmt.Errorf("resolve db path: %w", err)
		}
		cfg.Server.DBPath = expanded
	}
	return cfg, nil
}
