package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alfredjeanlab/formflow/internal/client"
	"github.com/alfredjeanlab/formflow/internal/events"
	"github.com/alfredjeanlab/formflow/internal/model"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:     "watch <group>...",
	Short:   "Stream gateway events for one or more collections",
	GroupID: "events",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		return client.Watch(ctx, serverURL, credentials(), args, func(ev model.Event) error {
			if jsonOutput {
				return printJSON(out, ev)
			}
			printEventLine(out, ev)
			return nil
		})
	},
}

var tailCmd = &cobra.Command{
	Use:     "tail [event-type]",
	Short:   "Follow the NATS mutation bus",
	GroupID: "events",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if natsURL == "" {
			return fmt.Errorf("no NATS URL; pass --nats-url or set nats_url in %s", configPath)
		}
		subject := events.SubjectAll
		if len(args) == 1 {
			subject = events.Subject(model.EventType(args[0]))
		}

		sub, err := events.NewNATSSubscriber(natsURL)
		if err != nil {
			return err
		}
		defer sub.Close()

		ch, cancel, err := sub.Subscribe(subject)
		if err != nil {
			return err
		}
		defer cancel()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev, ok := <-ch:
				if !ok {
					return nil
				}
				if jsonOutput {
					if err := printJSON(out, ev); err != nil {
						return err
					}
					continue
				}
				printEventLine(out, ev)
			}
		}
	},
}

var subscribersCmd = &cobra.Command{
	Use:     "subscribers <group>",
	Short:   "Show how many connections are subscribed to a collection",
	GroupID: "events",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := formsClient.SubscriberCount(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("counting subscribers: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"resourceGroupId": model.GroupFor(args[0]).String(),
				"count":           n,
			})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d subscribers\n", model.GroupFor(args[0]), n)
		return nil
	},
}

var pendingCmd = &cobra.Command{
	Use:     "pending <event-id>",
	Short:   "Report whether an event is still awaiting acknowledgement",
	GroupID: "events",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pending, err := formsClient.EventPending(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("checking event %s: %w", args[0], err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]any{"eventId": args[0], "pending": pending})
		}
		state := "acknowledged or expired"
		if pending {
			state = "pending"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], state)
		return nil
	},
}

var healthCmd = &cobra.Command{
	Use:     "health",
	Short:   "Check server health",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := formsClient.Health(context.Background())
		if err != nil {
			return fmt.Errorf("health check: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), h)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (connections=%d pending=%d)\n", h.Status, h.Connections, h.Pending)
		return nil
	},
}
