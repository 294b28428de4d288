package cli

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/avelikov/echogate/internal/config"
	"github.com/avelikov/echogate/internal/gateway"
	"github.com/avelikov/echogate/internal/provider"
	"github.com/avelikov/echogate/internal/quota"
	"github.com/avelikov/echogate/internal/store"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		bind string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the completion gateway server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}

			if port != 0 {
				cfg.Gateway.Port = port
			}
			if bind != "" {
				cfg.Gateway.Bind = bind
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			// Usage ledger (SQLite or in-memory)
			var ledger quota.Ledger
			if cfg.Quota.Store == "sqlite" {
				if err := paths.EnsureDirs(); err != nil {
					return fmt.Errorf("creating data directories: %w", err)
				}
				dbPath := filepath.Join(paths.Data, "echogate.db")
				db, err := store.Open(dbPath, log)
				if err != nil {
					return fmt.Errorf("opening database: %w", err)
				}
				defer db.Close()
				ledger = store.NewUsageStore(db, cfg.Quota.Cap)
				log.Info().Str("path", dbPath).Int("cap", cfg.Quota.Cap).Msg("using SQLite usage ledger")
			} else {
				ledger = quota.NewMemoryLedger(cfg.Quota.Cap)
				log.Warn().Int("cap", cfg.Quota.Cap).Msg("using in-memory usage ledger; counts reset on restart")
			}

			registry := provider.NewRegistryFromConfig(cfg, log)

			gw := gateway.New(registry, ledger, log)
			srv := gateway.NewServer(cfg, gw, ledger, log)

			// Block until SIGINT/SIGTERM
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return srv.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override gateway port")
	cmd.Flags().StringVar(&bind, "bind", "", "override bind mode (loopback, lan, custom)")

	return cmd
}
