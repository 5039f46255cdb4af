package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soyeahso/loom/internal/config"
	"github.com/soyeahso/loom/internal/domain"
)

func newInstanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "instance",
		Short: "Manage remote instance accounts",
	}

	cmd.AddCommand(newInstanceAddCmd())
	cmd.AddCommand(newInstanceListCmd())
	cmd.AddCommand(newInstanceSetDefaultCmd())
	cmd.AddCommand(newInstanceRemoveCmd())

	return cmd
}

func newInstanceAddCmd() *cobra.Command {
	var (
		name       string
		baseURL    string
		apiKey     string
		setDefault bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Save a remote instance account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := paths.EnsureDirs(); err != nil {
				return err
			}
			acct := domain.InstanceAccount{
				Name:    name,
				BaseURL: baseURL,
				APIKey:  apiKey,
			}
			if err := config.SaveInstance(paths.Instances, acct); err != nil {
				return err
			}
			if setDefault {
				if err := config.SetDefaultInstance(paths.Instances, name); err != nil {
					return err
				}
			}
			fmt.Printf("Instance %q saved", name)
			if setDefault {
				fmt.Print(" [default]")
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "instance alias used with --to-instance")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "instance base URL (http or https)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "instance API key (supports ${ENV_VAR})")
	cmd.Flags().BoolVar(&setDefault, "set-default", false, "make this the default remote instance")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("base-url")

	return cmd
}

func newInstanceListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved instance accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			accounts, err := config.LoadInstances(paths.Instances)
			if err != nil {
				return err
			}
			if len(accounts) == 0 {
				fmt.Println("No instances configured.")
				return nil
			}
			for _, acct := range accounts {
				marker := " "
				if acct.Default {
					marker = "*"
				}
				fmt.Printf("%s %-16s %s\n", marker, acct.Name, acct.BaseURL)
			}
			return nil
		},
	}
}

func newInstanceSetDefaultCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-default <name>",
		Short: "Make a saved instance the default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.SetDefaultInstance(paths.Instances, args[0]); err != nil {
				return err
			}
			fmt.Printf("Instance %q is now the default.\n", args[0])
			return nil
		},
	}
}

func newInstanceRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a saved instance account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.RemoveInstance(paths.Instances, args[0]); err != nil {
				return err
			}
			fmt.Printf("Instance %q removed.\n", args[0])
			return nil
		},
	}
}
