package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/soyeahso/loom/internal/domain"
	"github.com/soyeahso/loom/internal/store"
)

func newActivationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activations",
		Short: "Inspect activation history",
	}

	cmd.AddCommand(newActivationsListCmd())
	cmd.AddCommand(newActivationsShowCmd())
	cmd.AddCommand(newActivationsWatchCmd())
	cmd.AddCommand(newActivationsRetryCmd())

	return cmd
}

func newActivationsListCmd() *cobra.Command {
	var (
		agentID   string
		sessionID string
		status    string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List activations, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			recs, err := app.activations.List(context.Background(), store.ActivationFilter{
				AgentID:   agentID,
				SessionID: sessionID,
				Status:    domain.ActivationStatus(status),
				Limit:     limit,
			})
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Println("No activations found.")
				return nil
			}
			for _, rec := range recs {
				fmt.Printf("%s  %-9s  %-20s  %s\n",
					rec.ID, rec.Status, rec.AgentID, rec.CreatedAt.Format(time.DateTime))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&agentID, "agent", "", "filter by agent ID")
	cmd.Flags().StringVar(&sessionID, "session", "", "filter by session ID")
	cmd.Flags().StringVar(&status, "status", "", "filter by status (pending, running, succeeded, failed)")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum records to show (0 = all)")

	return cmd
}

func newActivationsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <activation-id>",
		Short: "Show one activation record in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			rec, err := app.activations.Get(context.Background(), args[0])
			if err != nil {
				return err
			}
			printRecord(rec)
			return nil
		},
	}
}

func newActivationsWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <activation-id>",
		Short: "Poll an activation until it reaches a terminal status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rec, err := app.activations.Watch(ctx, args[0])
			if err != nil {
				return err
			}
			printRecord(rec)
			return nil
		},
	}
}

func newActivationsRetryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retry <activation-id>",
		Short: "Rerun a terminal activation as a fresh record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rec, err := app.activations.Retry(ctx, args[0])
			if err != nil {
				return err
			}
			printRecord(rec)
			if rec.Status == domain.StatusFailed {
				return fmt.Errorf("activation failed (%s)", rec.Error.Kind)
			}
			return nil
		},
	}
}
