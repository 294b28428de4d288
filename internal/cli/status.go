package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/avelikov/echogate/internal/config"
	"github.com/avelikov/echogate/internal/version"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show echogate status and configuration summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("echogate %s (commit %s)\n\n", version.Version, version.Commit)

			// Show paths
			fmt.Printf("Config:  %s\n", paths.Config)
			fmt.Printf("Data:    %s\n", paths.Data)
			fmt.Printf("Logs:    %s\n", paths.Logs)
			fmt.Println()

			cfg, err := config.Load(paths.Config)
			if err != nil {
				fmt.Printf("Config:  error loading: %v\n", err)
				return nil
			}
			if _, statErr := os.Stat(paths.Config); os.IsNotExist(statErr) {
				fmt.Println("Config:  not found (using defaults)")
			}

			fmt.Printf("Gateway: port=%d bind=%s tls=%v\n",
				cfg.Gateway.Port, cfg.Gateway.Bind, cfg.Gateway.TLS.Enabled)
			fmt.Printf("Quota:   cap=%d store=%s\n", cfg.Quota.Cap, cfg.Quota.Store)

			// Providers and key presence. The key itself is never printed.
			var configured, unkeyed []string
			for _, name := range config.KnownProviders {
				pc, _ := cfg.Provider(name)
				if pc.APIKey != "" {
					configured = append(configured, fmt.Sprintf("%s (%s)", name, pc.Model))
				} else {
					unkeyed = append(unkeyed, name)
				}
			}
			if len(configured) > 0 {
				fmt.Printf("Ready:   %s\n", strings.Join(configured, ", "))
			}
			if len(unkeyed) > 0 {
				fmt.Printf("No key:  %s\n", strings.Join(unkeyed, ", "))
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				fmt.Printf("\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Printf("  - %s: %s\n", issue.Path, issue.Message)
				}
			}

			return nil
		},
	}

	return cmd
}
