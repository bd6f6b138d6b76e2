// Package cli defines the command-line interface for mergelogctl.
package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mergelog/mergelogctl/internal/logging"
)

const (
	// defaultConfigPath is the default path to the digest configuration file.
	defaultConfigPath = "mergelog.yaml"
)

// Options stores global CLI options shared between commands.
type Options struct {
	ConfigPath string
	LogLevel   logging.Level
}

// Execute builds the root command, runs it with the provided args and logger, and returns any error.
func Execute(args []string, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.NewLogger(os.Stderr, logging.LevelInfo)
	}

	rootOpts := &Options{
		ConfigPath: defaultConfigPath,
		LogLevel:   logging.LevelInfo,
	}
	if err := applyRootEnv(rootOpts); err != nil {
		return err
	}

	rootCmd := newRootCommand(rootOpts, logger)
	rootCmd.SetArgs(args)

	return rootCmd.Execute()
}

// newRootCommand constructs the root cobra.Command with global flags and subcommands.
func newRootCommand(opts *Options, logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mergelogctl",
		Short: "mergelogctl maintains an auto-generated merge digest",
		Long: "mergelogctl polls a repository's recently merged pull requests, summarizes them via an " +
			"LLM API and maintains the time-partitioned digest pages, manifest, data store and RSS feed.",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := logging.ParseLevel(cmd.Flag("log-level").Value.String())
			opts.LogLevel = level
			logger = logging.NewLogger(os.Stderr, level)
			cmd.SetContext(context.WithValue(cmd.Context(), loggerKey{}, logger))
			logger.Debug("logger initialized", "level", level)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", opts.ConfigPath, "Path to mergelog.yaml configuration file")
	// The default is seeded from opts so MERGELOG_LOG_LEVEL survives when
	// the flag is not passed explicitly.
	cmd.PersistentFlags().String("log-level", opts.LogLevel.String(), "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newRunCommand(opts),
		newRebuildCommand(opts),
		newDoctorCommand(opts),
	)

	return cmd
}

// loggerKey is a private context key used to store a logger in command contexts.
type loggerKey struct{}

// LoggerFromContext extracts a logger from the context or falls back to a default logger.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return logging.NewLogger(os.Stderr, logging.LevelInfo)
	}
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return logging.NewLogger(os.Stderr, logging.LevelInfo)
}
