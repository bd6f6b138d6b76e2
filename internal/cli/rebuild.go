package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mergelog/mergelogctl/internal/config"
	"github.com/mergelog/mergelogctl/internal/pipeline"
)

// newRebuildCommand creates "rebuild", which re-derives the manifest, data
// store and feed from the partition files on disk without any network calls.
// Useful after hand-editing partition pages.
func newRebuildCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Re-derive manifest, data store and feed from partition files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := LoggerFromContext(cmd.Context())

			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return err
			}

			p, err := pipeline.NewDeriver(cfg, logger)
			if err != nil {
				return err
			}
			if err := p.Rebuild(); err != nil {
				return fmt.Errorf("rebuild derived artifacts: %w", err)
			}

			logger.Info("derived artifacts rebuilt")
			return nil
		},
	}
}
