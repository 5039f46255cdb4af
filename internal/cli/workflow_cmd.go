package cli

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/soyeahso/loom/internal/activation"
	"github.com/soyeahso/loom/internal/domain"
	"github.com/soyeahso/loom/internal/workflow"
)

func newWorkflowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Manage saved multi-agent workflows",
	}

	cmd.AddCommand(newWorkflowCreateCmd())
	cmd.AddCommand(newWorkflowRunCmd())
	cmd.AddCommand(newWorkflowListCmd())
	cmd.AddCommand(newWorkflowDeleteCmd())

	return cmd
}

func newWorkflowCreateCmd() *cobra.Command {
	var (
		agents      []string
		mode        string
		description string
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Save a workflow template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := paths.EnsureDirs(); err != nil {
				return err
			}
			store := workflow.NewStore(paths.Workflows)
			tpl := workflow.Template{
				Name:        args[0],
				Description: description,
				Agents:      agents,
				Mode:        mode,
			}
			if err := store.Save(tpl); err != nil {
				return err
			}
			fmt.Printf("Workflow %q saved (%d agents, mode %s)\n",
				tpl.Name, len(tpl.Agents), modeOrDefault(tpl.Mode))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&agents, "agents", nil, "ordered agent IDs (comma-separated or repeated)")
	cmd.Flags().StringVar(&mode, "mode", "", "coordination mode: sequential, parallel, chain, conversation")
	cmd.Flags().StringVar(&description, "description", "", "what this workflow does")
	cmd.MarkFlagRequired("agents")

	return cmd
}

func newWorkflowRunCmd() *cobra.Command {
	var (
		inputData  string
		inputFile  string
		toInstance string
	)

	cmd := &cobra.Command{
		Use:   "run <name>",
		Short: "Run a saved workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			tpl, err := app.workflows.Load(args[0])
			if err != nil {
				return err
			}
			input, err := parseInput(inputData, inputFile)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			recs, err := app.activations.ActivateMany(ctx, activation.MultiRequest{
				Agents:   tpl.Agents,
				Mode:     tpl.Mode,
				Input:    input,
				Instance: toInstance,
			})
			if err != nil {
				return err
			}

			failed := 0
			for _, rec := range recs {
				printRecordSummary(rec)
				if rec.Status == domain.StatusFailed {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("workflow %q: %d of %d activations failed", tpl.Name, failed, len(recs))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&inputData, "input-data", "", "input as a JSON object")
	cmd.Flags().StringVar(&inputFile, "input-file", "", "path to a JSON file with input data")
	cmd.Flags().StringVar(&toInstance, "to-instance", "", "execution target for every agent")

	return cmd
}

func newWorkflowListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved workflows",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := workflow.NewStore(paths.Workflows)
			templates, err := store.List()
			if err != nil {
				return err
			}
			if len(templates) == 0 {
				fmt.Println("No workflows saved.")
				return nil
			}
			for _, t := range templates {
				line := fmt.Sprintf("%-20s %-13s %s",
					t.Name, modeOrDefault(t.Mode), strings.Join(t.Agents, " -> "))
				if t.Description != "" {
					line += "  (" + t.Description + ")"
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}

func newWorkflowDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a saved workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := workflow.NewStore(paths.Workflows)
			if err := store.Delete(args[0]); err != nil {
				return err
			}
			fmt.Printf("Workflow %q deleted.\n", args[0])
			return nil
		},
	}
}

func modeOrDefault(mode string) string {
	if mode == "" {
		return activation.ModeSequential
	}
	return mode
}
