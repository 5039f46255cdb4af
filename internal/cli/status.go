package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soyeahso/loom/internal/agent"
	"github.com/soyeahso/loom/internal/config"
	"github.com/soyeahso/loom/internal/version"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show Loom status and configuration summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("Loom %s (commit %s)\n\n", version.Version, version.Commit)

			fmt.Printf("Config:  %s\n", paths.Config)
			fmt.Printf("Data:    %s\n", paths.Data)
			fmt.Printf("Logs:    %s\n", paths.Logs)
			fmt.Println()

			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()
			cfg := app.cfg

			fmt.Printf("Server:  port=%d bind=%s auth=%s\n",
				cfg.Server.Port, cfg.Server.Bind, cfg.Server.Auth.Mode)
			fmt.Printf("Store:   backend=%s\n", cfg.Store.Backend)
			fmt.Printf("Dispatch: timeout=%ds maxParallel=%d\n",
				cfg.Activation.DispatchTimeoutSec, cfg.Activation.MaxParallel)

			// Agents
			artifacts := app.agents.List()
			fmt.Printf("Agents:  %d registered\n", len(artifacts))
			for _, art := range artifacts {
				if desc, err := agent.Describe(art); err == nil {
					fmt.Printf("  %-16s %s (%d dependencies)\n", art.ID(), desc.Kind, len(desc.Dependencies))
				}
			}

			// Providers
			configs, err := app.providers.List(context.Background(), "")
			if err == nil {
				fmt.Printf("Providers: %d configured\n", len(configs))
				for _, c := range configs {
					marker := " "
					if c.Default {
						marker = "*"
					}
					fmt.Printf("  %s %s/%s\n", marker, c.Type, c.Name)
				}
			}

			// Instances
			accounts, err := config.LoadInstances(paths.Instances)
			if err == nil {
				fmt.Printf("Instances: %d configured\n", len(accounts))
			}

			// Validation
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
