package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mergelog/mergelogctl/internal/config"
	"github.com/mergelog/mergelogctl/internal/githubapi"
	"github.com/mergelog/mergelogctl/internal/pipeline"
	"github.com/mergelog/mergelogctl/internal/summarize"
)

// newRunCommand creates "run", which executes one full digest pipeline pass.
func newRunCommand(opts *Options) *cobra.Command {
	var (
		repo        string
		windowHours int
		dryRun      bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch, summarize and store recently merged pull requests",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := LoggerFromContext(cmd.Context())

			var envVars runEnv
			if err := parseEnv(&envVars); err != nil {
				return err
			}
			if repo == "" {
				repo = envVars.Repo
			}
			if windowHours == 0 {
				windowHours = envVars.WindowHours
			}
			if !dryRun {
				dryRun = envVars.DryRun
			}

			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return err
			}
			if strings.TrimSpace(repo) != "" {
				cfg.Repo = repo
			}
			if windowHours > 0 {
				cfg.Digest.WindowHours = windowHours
			}

			creds, err := cfg.LoadCredentials()
			if err != nil {
				return err
			}
			if err := creds.Validate(); err != nil {
				return err
			}

			fetcher, err := githubapi.NewClient(logger, creds.GitHubToken, cfg.Repo)
			if err != nil {
				return err
			}
			summarizer := summarize.NewClient(logger, creds.LLMAPIKey, cfg.LLM.BaseURL, cfg.LLM.Model)

			p, err := pipeline.New(cfg, fetcher, summarizer, logger)
			if err != nil {
				return err
			}

			if dryRun {
				candidates, err := p.Plan(cmd.Context())
				if err != nil {
					return err
				}
				if len(candidates) == 0 {
					logger.Info("dry run: no new merged pull requests")
					return nil
				}
				for _, rec := range candidates {
					logger.Info("dry run: would process", "number", rec.Number, "title", rec.Title)
				}
				return nil
			}

			if err := p.Run(cmd.Context()); err != nil {
				return fmt.Errorf("digest run: %w", err)
			}

			logger.Info("digest run completed", "repo", cfg.Repo)
			return nil
		},
	}

	cmd.Flags().StringVar(&repo, "repo", "", "Repository slug override (owner/name)")
	cmd.Flags().IntVar(&windowHours, "window-hours", 0, "Trailing fetch window in hours (overrides config)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List the pull requests a run would process without writing")

	return cmd
}
