package main

import (
	"encoding/json"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kmrl/docintel/internal/config"
	"github.com/kmrl/docintel/internal/observability/logging"
)

const serviceName = "docctl"

type rootOptions struct {
	cfg      config.Config
	logLevel string
	noAI     bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{cfg: config.Load()}

	cmd := &cobra.Command{
		Use:           "docctl",
		Short:         "Operate the document intelligence pipeline from the command line",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if opts.noAI {
				opts.cfg.AIEnabled = false
			}
			slog.SetDefault(logging.NewJSONLoggerTo(cmd.ErrOrStderr(), serviceName, opts.logLevel))
		},
	}
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", opts.cfg.LogLevel, "log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&opts.noAI, "no-ai", false, "skip the AI analyzer and use keyword rules only")

	cmd.AddCommand(
		newIngestCmd(opts),
		newClassifyCmd(opts),
		newEventsCmd(opts),
	)
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
