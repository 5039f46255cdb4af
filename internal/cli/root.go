package cli

import (
	"github.com/spf13/cobra"

	"github.com/soyeahso/loom/internal/config"
	"github.com/soyeahso/loom/internal/logging"
)

var (
	cfgFile  string
	logLevel string

	// loaded at init time
	paths config.Paths
	log   *logging.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loom",
		Short: "Loom agent activation platform",
		Long:  "Loom activates agents by resolving their declared service dependencies against configured providers and routing execution to a local or remote instance.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			paths, err = config.ResolvePaths()
			if err != nil {
				return err
			}
			if cfgFile != "" {
				paths.Config = cfgFile
			}
			level := logLevel
			if level == "" {
				level = "info"
			}
			log = logging.New(nil, level)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.loom/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newActivateCmd())
	cmd.AddCommand(newActivateMultiCmd())
	cmd.AddCommand(newActivationsCmd())
	cmd.AddCommand(newProvidersCmd())
	cmd.AddCommand(newInstanceCmd())
	cmd.AddCommand(newWorkflowCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
