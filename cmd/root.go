package cmd

import (
	"fmt"
	"os"

	"rafflehub/config"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands
type RootOptions struct {
	LogLevel  string
	LogFormat string
}

// NewRootCommand creates the rafflehub root command. Without a subcommand it
// serves the API.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "rafflehub",
		Short:         "Raffle and ticketing backend",
		Long:          "rafflehub serves the raffle HTTP API and the realtime WebSocket channel, and manages its database schema.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(config.Get(), opts)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(cmd.Context(), config.Get())
		},
	}

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level override (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "", "log format override (json|text)")

	cmd.AddCommand(NewServeCommand())
	cmd.AddCommand(NewMigrateCommand())

	return cmd
}

// setupLogging configures the global logrus logger. Flags win over config.
func setupLogging(cfg *config.Config, opts *RootOptions) error {
	level := cfg.LogLevel
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	format := cfg.LogFormat
	if opts.LogFormat != "" {
		format = opts.LogFormat
	}

	parsed, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	log.SetLevel(parsed)
	log.SetOutput(os.Stdout)

	switch format {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("invalid log format %q: must be json or text", format)
	}

	return nil
}
