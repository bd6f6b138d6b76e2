package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mergelog/mergelogctl/internal/config"
)

// newDoctorCommand creates the "doctor" subcommand that runs preflight checks.
func newDoctorCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run configuration and filesystem preflight checks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := LoggerFromContext(cmd.Context())

			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return err
			}
			logger.Info("config parsed", "path", opts.ConfigPath, "repo", cfg.Repo)

			if err := runDoctorChecks(logger, cfg); err != nil {
				return err
			}

			logger.Info("doctor checks completed successfully")
			return nil
		},
	}
}

// runDoctorChecks verifies credentials and the filesystem layout.
func runDoctorChecks(logger *slog.Logger, cfg *config.Config) error {
	creds, err := cfg.LoadCredentials()
	if err != nil {
		return err
	}
	if err := creds.Validate(); err != nil {
		return err
	}
	logger.Info("credentials present")

	if err := checkDirWritable(cfg.Paths.DocsDir); err != nil {
		return fmt.Errorf("partition directory check: %w", err)
	}
	logger.Info("partition directory writable", "dir", cfg.Paths.DocsDir)

	landing := filepath.Join(cfg.Paths.DocsDir, cfg.Paths.LandingPage)
	if _, err := os.Stat(landing); err != nil {
		logger.Warn("landing page not found, latest pointer updates will be skipped", "path", landing)
	} else {
		logger.Info("landing page present", "path", landing)
	}

	return nil
}

// checkDirWritable ensures the directory exists and accepts writes.
func checkDirWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	probe, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return err
	}
	name := probe.Name()
	_ = probe.Close()
	return os.Remove(name)
}
