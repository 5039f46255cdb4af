package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/soyeahso/loom/internal/domain"
	"github.com/soyeahso/loom/internal/provider"
)

func newProvidersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "Manage configured service providers",
	}

	cmd.AddCommand(newProvidersAddCmd())
	cmd.AddCommand(newProvidersListCmd())
	cmd.AddCommand(newProvidersSetDefaultCmd())
	cmd.AddCommand(newProvidersRemoveCmd())

	return cmd
}

func newProvidersAddCmd() *cobra.Command {
	var (
		providerType string
		name         string
		apiKey       string
		endpoint     string
		model        string
		setDefault   bool
		settings     []string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add or update a service provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			if providerType == "" || name == "" {
				return fmt.Errorf("--type and --provider are required")
			}

			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			// Known LLM provider names fill in endpoint and model
			endpoint, model = provider.ApplyKnownDefaults(name, endpoint, model)

			settingsMap, err := parseSettings(settings)
			if err != nil {
				return err
			}

			cfg, err := app.providers.Upsert(context.Background(), domain.ProviderConfig{
				Type:     providerType,
				Name:     name,
				APIKey:   apiKey,
				Endpoint: endpoint,
				Model:    model,
				Default:  setDefault,
				Settings: settingsMap,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Provider %s/%s saved (id %s)", cfg.Type, cfg.Name, cfg.ID)
			if cfg.Default {
				fmt.Print(" [default]")
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().StringVar(&providerType, "type", "", "service type (llm, oauth, storage, data)")
	cmd.Flags().StringVar(&name, "provider", "", "provider name (e.g. anthropic, openai, gdrive, local)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "provider API key (supports ${ENV_VAR})")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "provider endpoint URL")
	cmd.Flags().StringVar(&model, "model", "", "default model for LLM providers")
	cmd.Flags().BoolVar(&setDefault, "set-default", false, "make this the default provider for its type")
	cmd.Flags().StringArrayVar(&settings, "setting", nil, "extra provider setting as key=value (repeatable)")

	return cmd
}

func newProvidersListCmd() *cobra.Command {
	var providerType string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			configs, err := app.providers.List(context.Background(), providerType)
			if err != nil {
				return err
			}
			if len(configs) == 0 {
				fmt.Println("No providers configured.")
				return nil
			}
			for _, cfg := range configs {
				marker := " "
				if cfg.Default {
					marker = "*"
				}
				line := fmt.Sprintf("%s %-8s %-16s", marker, cfg.Type, cfg.Name)
				if cfg.Model != "" {
					line += "  model=" + cfg.Model
				}
				if cfg.Endpoint != "" {
					line += "  endpoint=" + cfg.Endpoint
				}
				fmt.Println(line)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&providerType, "type", "", "filter by service type")

	return cmd
}

func newProvidersSetDefaultCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-default <type> <name>",
		Short: "Make a provider the default for its service type",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := context.Background()
			cfg, err := app.providers.Lookup(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			cfg.Default = true
			if _, err := app.providers.Upsert(ctx, cfg); err != nil {
				return err
			}
			fmt.Printf("Provider %s/%s is now the default.\n", args[0], args[1])
			return nil
		},
	}
}

func newProvidersRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <type> <name>",
		Short: "Remove a configured provider",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			remover, ok := app.providers.(interface {
				Delete(ctx context.Context, providerType, name string) error
			})
			if !ok {
				return fmt.Errorf("the %s store backend does not support provider removal", app.cfg.Store.Backend)
			}
			if err := remover.Delete(context.Background(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("Provider %s/%s removed.\n", args[0], args[1])
			return nil
		},
	}
}

func parseSettings(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok || key == "" || value == "" {
			return nil, fmt.Errorf("invalid --setting value %q, expected key=value", p)
		}
		out[key] = value
	}
	return out, nil
}
