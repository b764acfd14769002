package cmd

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/adalundhe/pollwatch/core/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Root Command Tests
// =============================================================================

func TestRootCmd_Definition(t *testing.T) {
	t.Run("command is defined", func(t *testing.T) {
		assert.Equal(t, "pollwatch", rootCmd.Use)
		assert.True(t, rootCmd.SilenceUsage)
	})

	t.Run("has subcommands", func(t *testing.T) {
		found := map[string]bool{}
		for _, c := range rootCmd.Commands() {
			found[c.Name()] = true
		}

		for _, name := range []string{"watch", "history", "preview", "config"} {
			assert.True(t, found[name], "%s subcommand should exist", name)
		}
	})

	t.Run("has persistent flags", func(t *testing.T) {
		pflags := rootCmd.PersistentFlags()

		for _, name := range []string{"config", "log-level", "log-format"} {
			flag := pflags.Lookup(name)
			require.NotNil(t, flag, name)
			assert.Equal(t, "", flag.DefValue)
		}
	})
}

func TestNewLogger(t *testing.T) {
	t.Run("text handler filters by level", func(t *testing.T) {
		var buf bytes.Buffer
		logger, level, err := newLogger(config.LogConfig{Level: "warn", Format: "text"}, &buf)
		require.NoError(t, err)

		logger.Info("hidden")
		logger.Warn("shown", slog.String("k", "v"))

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "msg=shown")
		assert.Contains(t, buf.String(), "k=v")
		assert.Equal(t, slog.LevelWarn, level.Level())
	})

	t.Run("level can change after construction", func(t *testing.T) {
		var buf bytes.Buffer
		logger, level, err := newLogger(config.LogConfig{Level: "error", Format: "text"}, &buf)
		require.NoError(t, err)

		require.NoError(t, setLogLevel(level, "info"))
		logger.Info("now visible")

		assert.Contains(t, buf.String(), "now visible")
	})

	t.Run("json handler", func(t *testing.T) {
		var buf bytes.Buffer
		logger, _, err := newLogger(config.LogConfig{Level: "DEBUG", Format: "json"}, &buf)
		require.NoError(t, err)

		logger.Debug("hello")

		assert.Contains(t, buf.String(), `"msg":"hello"`)
	})

	t.Run("invalid level", func(t *testing.T) {
		_, _, err := newLogger(config.LogConfig{Level: "loud", Format: "text"}, &bytes.Buffer{})
		assert.True(t, errors.Is(err, config.ErrInvalidLogLevel))
	})

	t.Run("invalid format", func(t *testing.T) {
		_, _, err := newLogger(config.LogConfig{Level: "info", Format: "xml"}, &bytes.Buffer{})
		assert.True(t, errors.Is(err, config.ErrInvalidLogFormat))
	})
}

func TestConfigCmd_PrintsEffectiveConfig(t *testing.T) {
	t.Setenv("POLLWATCH_INTERVAL", "3s")
	t.Setenv("POLLWATCH_DIR", "/srv/inbox")

	var buf bytes.Buffer
	configCmd.SetOut(&buf)
	t.Cleanup(func() { configCmd.SetOut(nil) })

	require.NoError(t, runConfig(configCmd, nil))

	assert.Contains(t, buf.String(), "interval: 3s")
	assert.Contains(t, buf.String(), "dir: /srv/inbox")
}
