package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/kmrl/docintel/internal/core/domain"
	"github.com/kmrl/docintel/internal/infrastructure/queue/nats"
)

func newEventsCmd(opts *rootOptions) *cobra.Command {
	var queueGroup string
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print processed-document events from NATS until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.cfg.NATSURL == "" {
				return errors.New("NATS_URL is not set")
			}
			sub, err := nats.New(opts.cfg.NATSURL, opts.cfg.NATSSubject)
			if err != nil {
				return err
			}
			defer sub.Close()

			return sub.SubscribeDocumentProcessed(cmd.Context(), queueGroup, func(_ context.Context, event domain.DocumentProcessed) error {
				return printJSON(cmd.OutOrStdout(), event)
			})
		},
	}
	cmd.Flags().StringVar(&queueGroup, "queue-group", "", "join a queue group instead of receiving every event")
	return cmd
}
