// Package cmd provides CLI commands for the pollwatch application.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/adalundhe/pollwatch/core/config"
	"github.com/adalundhe/pollwatch/core/storage"
	"github.com/spf13/cobra"
)

// ANSI color codes for terminal output.
const (
	colorReset  = "\033[0m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// =============================================================================
// Global Flags
// =============================================================================

var (
	configFile string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "pollwatch",
	Short: "pollwatch - A polling directory change detector",
	Long: `pollwatch watches a single directory by polling it, reporting every
created, modified and deleted file to the console and to a JSON-lines log.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (loaded after user and project config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json")
}

func Execute() error {
	return rootCmd.Execute()
}

// =============================================================================
// Shared Helpers
// =============================================================================

// loadConfig resolves the layered configuration and applies the global flags.
func loadConfig() (*config.Manager, error) {
	dirs, err := storage.ResolveDirs()
	if err != nil {
		return nil, fmt.Errorf("resolve directories: %w", err)
	}

	mgr := config.NewManager(dirs, ".")
	if configFile != "" {
		mgr.SetConfigFile(configFile)
	}
	if err := mgr.Load(); err != nil {
		return nil, err
	}

	overrides := &config.Overrides{}
	if logLevel != "" {
		overrides.LogLevel = &logLevel
	}
	if logFormat != "" {
		overrides.LogFormat = &logFormat
	}
	if err := mgr.Override(overrides); err != nil {
		return nil, err
	}
	return mgr, nil
}

// defaultSQLiteValue selects the event database in the state directory when
// --sqlite is given without a path.
const defaultSQLiteValue = "default"

// resolveSQLitePath maps the --sqlite flag value to a database path.
func resolveSQLitePath(value string) (string, error) {
	if value != defaultSQLiteValue {
		return value, nil
	}
	dirs, err := storage.ResolveDirs()
	if err != nil {
		return "", fmt.Errorf("resolve directories: %w", err)
	}
	return dirs.EventDBPath(), nil
}

// newLogger builds the process logger from the log section of the config.
// The returned level can be changed while the logger is in use.
func newLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, *slog.LevelVar, error) {
	level := new(slog.LevelVar)
	if err := setLogLevel(level, cfg.Level); err != nil {
		return nil, nil, err
	}

	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(cfg.Format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), level, nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), level, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", config.ErrInvalidLogFormat, cfg.Format)
	}
}

func setLogLevel(level *slog.LevelVar, name string) error {
	var l slog.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return fmt.Errorf("%w: %q", config.ErrInvalidLogLevel, name)
	}
	level.Set(l)
	return nil
}
