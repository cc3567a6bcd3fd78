package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"vaibvoice/internal/config"
)

func resolveWith(t *testing.T, createDefault bool, args ...string) (config.Config, error) {
	t.Helper()
	var (
		cfg  config.Config
		rerr error
	)
	a := newCLIApp()
	a.Action = func(c *cli.Context) error {
		cfg, rerr = resolveConfig(c, createDefault)
		return nil
	}
	require.NoError(t, a.Run(append([]string{"vaibvoice"}, args...)))
	return cfg, rerr
}

func TestResolveConfigWritesDefault(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := resolveWith(t, true)
	require.ErrorIs(t, err, errDefaultWritten)
	_, statErr := os.Stat(defaultConfigPath)
	require.NoError(t, statErr)
}

func TestResolveConfigFlagsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := resolveWith(t, true, "--api-port", "5055")
	require.NoError(t, err)
	require.Equal(t, 5055, cfg.APIPort)
	require.True(t, filepath.IsAbs(cfg.AudioDir))
	_, statErr := os.Stat(defaultConfigPath)
	require.True(t, os.IsNotExist(statErr))
}

func TestResolveConfigFileThenFlags(t *testing.T) {
	t.Chdir(t.TempDir())
	require.NoError(t, os.WriteFile(defaultConfigPath, []byte(`{"API_PORT": 6000, "INJECT_MODE": "type"}`), 0644))

	cfg, err := resolveWith(t, true)
	require.NoError(t, err)
	require.Equal(t, 6000, cfg.APIPort)
	require.Equal(t, config.InjectType, cfg.InjectMode)

	cfg, err = resolveWith(t, true, "--api-port", "7000")
	require.NoError(t, err)
	require.Equal(t, 7000, cfg.APIPort)
}

func TestResolveConfigExplicitYAML(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "vaib.yaml")
	require.NoError(t, os.WriteFile(path, []byte("LOG_LEVEL: debug\nAPI_PORT: 5100\n"), 0644))

	cfg, err := resolveWith(t, false, "--config", path)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, 5100, cfg.APIPort)
}

func TestResolveConfigRejectsInvalid(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := resolveWith(t, false, "--inject-mode", "shout")
	require.ErrorContains(t, err, "INJECT_MODE")
}

func TestNonRunCommandsNeverWriteDefault(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := resolveWith(t, false)
	require.NoError(t, err)
	require.Equal(t, config.DefaultConfig().APIPort, cfg.APIPort)
	_, statErr := os.Stat(defaultConfigPath)
	require.True(t, os.IsNotExist(statErr))
}
