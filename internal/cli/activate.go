package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/soyeahso/loom/internal/activation"
	"github.com/soyeahso/loom/internal/agent"
	"github.com/soyeahso/loom/internal/domain"
)

func newActivateCmd() *cobra.Command {
	var (
		inputData  string
		inputFile  string
		toInstance string
		sessionID  string
		overrides  []string
		watch      bool
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "activate <agent-id>",
		Short: "Activate an agent and print the outcome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			input, err := parseInput(inputData, inputFile)
			if err != nil {
				return err
			}
			overrideMap, err := parseOverrides(overrides)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if verbose {
				printResolutionPlan(ctx, app, args[0], overrideMap, toInstance)
			}

			rec, err := app.activations.Activate(ctx, activation.Request{
				AgentID:   args[0],
				Input:     input,
				Instance:  toInstance,
				SessionID: sessionID,
				Overrides: overrideMap,
			})
			if err != nil {
				return err
			}
			if watch && !rec.Status.Terminal() {
				rec, err = app.activations.Watch(ctx, rec.ID)
				if err != nil {
					return err
				}
			}

			printRecord(rec)
			if rec.Status == domain.StatusFailed {
				return fmt.Errorf("activation failed (%s)", rec.Error.Kind)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&inputData, "input-data", "", "input as a JSON object")
	cmd.Flags().StringVar(&inputFile, "input-file", "", "path to a JSON file with input data")
	cmd.Flags().StringVar(&toInstance, "to-instance", "", "execution target: empty/local, default, or a saved instance name")
	cmd.Flags().StringVar(&sessionID, "session", "", "session ID to group activations under")
	cmd.Flags().StringArrayVar(&overrides, "use-provider", nil, "override a dependency's provider as param=name (repeatable)")
	cmd.Flags().BoolVar(&watch, "watch", false, "poll the activation until it reaches a terminal status")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "print the resolved binding table and routing decision")

	return cmd
}

func newActivateMultiCmd() *cobra.Command {
	var (
		inputData  string
		inputFile  string
		toInstance string
		mode       string
	)

	cmd := &cobra.Command{
		Use:   "activate-multi <agent-id>...",
		Short: "Activate several agents under one shared session",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			input, err := parseInput(inputData, inputFile)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			recs, err := app.activations.ActivateMany(ctx, activation.MultiRequest{
				Agents:   args,
				Mode:     mode,
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
				return fmt.Errorf("%d of %d activations failed", failed, len(recs))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&inputData, "input-data", "", "input as a JSON object")
	cmd.Flags().StringVar(&inputFile, "input-file", "", "path to a JSON file with input data")
	cmd.Flags().StringVar(&toInstance, "to-instance", "", "execution target for every agent")
	cmd.Flags().StringVar(&mode, "mode", "", "coordination mode: sequential, parallel, chain, conversation")

	return cmd
}

// parseInput merges --input-file and --input-data; inline data wins on
// key conflicts.
func parseInput(inputData, inputFile string) (map[string]any, error) {
	input := map[string]any{}

	if inputFile != "" {
		data, err := os.ReadFile(inputFile)
		if err != nil {
			return nil, fmt.Errorf("reading input file: %w", err)
		}
		if err := json.Unmarshal(data, &input); err != nil {
			return nil, fmt.Errorf("input file is not a JSON object: %w", err)
		}
	}
	if inputData != "" {
		inline := map[string]any{}
		if err := json.Unmarshal([]byte(inputData), &inline); err != nil {
			return nil, fmt.Errorf("--input-data is not a JSON object: %w", err)
		}
		for k, v := range inline {
			input[k] = v
		}
	}
	if len(input) == 0 {
		return nil, nil
	}
	return input, nil
}

func parseOverrides(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		param, name, ok := strings.Cut(p, "=")
		if !ok || param == "" || name == "" {
			return nil, fmt.Errorf("invalid --use-provider value %q, expected param=provider", p)
		}
		out[param] = name
	}
	return out, nil
}

// printResolutionPlan shows what would bind and where execution would
// route, without creating a record.
func printResolutionPlan(ctx context.Context, app *app, agentID string, overrides map[string]string, instance string) {
	art, err := app.agents.Get(agentID)
	if err != nil {
		return
	}
	desc, err := agent.Describe(art)
	if err != nil {
		return
	}
	fmt.Printf("Agent:    %s (%s, %s)\n", desc.AgentID, desc.Kind, desc.Version)

	bindings, err := app.resolver.Resolve(ctx, desc, overrides)
	if err == nil {
		for _, b := range bindings {
			if b.Source == domain.SourceUnavailable {
				fmt.Printf("Binding:  %s (%s) -> unavailable\n", b.Param, b.Service)
				continue
			}
			fmt.Printf("Binding:  %s (%s) -> %s [%s]\n", b.Param, b.Service, b.ProviderName, b.Source)
		}
	}

	target := "local_direct (in-process)"
	switch instance {
	case "", "local":
	case "default":
		target = "local_server"
	default:
		target = "remote_server (" + instance + ")"
	}
	fmt.Printf("Route:    %s\n", target)
	fmt.Println()
}

func printRecord(rec domain.ActivationRecord) {
	fmt.Printf("Activation: %s\n", rec.ID)
	fmt.Printf("Agent:      %s", rec.AgentID)
	if rec.AgentVersion != "" {
		fmt.Printf(" (%s)", rec.AgentVersion)
	}
	fmt.Println()
	if rec.SessionID != "" {
		fmt.Printf("Session:    %s\n", rec.SessionID)
	}
	if rec.InstanceMode != "" {
		fmt.Printf("Instance:   %s", rec.InstanceMode)
		if rec.InstanceAlias != "" {
			fmt.Printf(" (%s)", rec.InstanceAlias)
		}
		fmt.Println()
	}
	fmt.Printf("Status:     %s", rec.Status)
	if d := rec.Duration(); d > 0 {
		fmt.Printf(" (%s)", d.Round(time.Millisecond))
	}
	fmt.Println()
	if rec.Error != nil {
		fmt.Printf("Error:      [%s] %s\n", rec.Error.Kind, rec.Error.Message)
	}
	if rec.Output != nil {
		data, err := json.MarshalIndent(rec.Output, "", "  ")
		if err == nil {
			fmt.Printf("Output:\n%s\n", data)
		}
	}
}

func printRecordSummary(rec domain.ActivationRecord) {
	line := fmt.Sprintf("%s  %-12s  %s", rec.ID, rec.Status, rec.AgentID)
	if rec.Error != nil {
		line += fmt.Sprintf("  [%s] %s", rec.Error.Kind, rec.Error.Message)
	}
	fmt.Println(line)
}
