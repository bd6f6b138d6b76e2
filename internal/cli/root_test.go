package cli

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mergelog/mergelogctl/internal/logging"
)

func TestApplyRootEnvOverridesDefaults(t *testing.T) {
	t.Setenv("MERGELOG_CONFIG", "/etc/mergelog/custom.yaml")
	t.Setenv("MERGELOG_LOG_LEVEL", "debug")

	opts := &Options{ConfigPath: defaultConfigPath, LogLevel: logging.LevelInfo}
	require.NoError(t, applyRootEnv(opts))

	assert.Equal(t, "/etc/mergelog/custom.yaml", opts.ConfigPath)
	assert.Equal(t, logging.LevelDebug, opts.LogLevel)
}

func TestEnvLogLevelSeedsFlagDefault(t *testing.T) {
	t.Setenv("MERGELOG_LOG_LEVEL", "warn")

	opts := &Options{ConfigPath: defaultConfigPath, LogLevel: logging.LevelInfo}
	require.NoError(t, applyRootEnv(opts))

	cmd := newRootCommand(opts, logging.NewLogger(io.Discard, logging.LevelInfo))
	assert.Equal(t, "warn", cmd.Flag("log-level").Value.String())
}

func TestEnvLogLevelSurvivesCommandRun(t *testing.T) {
	t.Setenv("MERGELOG_LOG_LEVEL", "debug")
	// A config path that does not exist: the subcommand fails after the
	// persistent pre-run has resolved the level.
	t.Setenv("MERGELOG_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	opts := &Options{ConfigPath: defaultConfigPath, LogLevel: logging.LevelInfo}
	require.NoError(t, applyRootEnv(opts))

	cmd := newRootCommand(opts, logging.NewLogger(io.Discard, logging.LevelInfo))
	cmd.SetArgs([]string{"doctor"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	_ = cmd.Execute()

	assert.Equal(t, logging.LevelDebug, opts.LogLevel,
		"the env level must not be reset to info by the flag default")
}
