package cli

import (
	"strings"

	envparse "github.com/caarlos0/env/v11"

	"github.com/mergelog/mergelogctl/internal/logging"
)

// rootEnv defines root CLI defaults sourced from MERGELOG_* env vars.
type rootEnv struct {
	// ConfigPath is the mergelog.yaml path from MERGELOG_CONFIG.
	ConfigPath string `env:"MERGELOG_CONFIG"`
	// LogLevel is the logging level from MERGELOG_LOG_LEVEL.
	LogLevel string `env:"MERGELOG_LOG_LEVEL"`
}

// runEnv captures MERGELOG_* inputs for the run command.
type runEnv struct {
	// Repo overrides the configured repository slug from MERGELOG_REPO.
	Repo string `env:"MERGELOG_REPO"`
	// WindowHours overrides the fetch window from MERGELOG_WINDOW_HOURS.
	WindowHours int `env:"MERGELOG_WINDOW_HOURS"`
	// DryRun toggles plan-only mode from MERGELOG_DRY_RUN.
	DryRun bool `env:"MERGELOG_DRY_RUN"`
}

// parseEnv fills target from MERGELOG_* env vars via caarlos0/env.
func parseEnv(target any) error {
	return envparse.Parse(target)
}

// applyRootEnv overlays root options with values from the environment.
func applyRootEnv(opts *Options) error {
	var vars rootEnv
	if err := parseEnv(&vars); err != nil {
		return err
	}
	if strings.TrimSpace(vars.ConfigPath) != "" {
		opts.ConfigPath = vars.ConfigPath
	}
	if strings.TrimSpace(vars.LogLevel) != "" {
		opts.LogLevel = logging.ParseLevel(vars.LogLevel)
	}
	return nil
}
