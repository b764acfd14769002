package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/adalundhe/pollwatch/core/config"
	"github.com/adalundhe/pollwatch/core/console"
	"github.com/adalundhe/pollwatch/core/preview"
	"github.com/adalundhe/pollwatch/core/signal"
	"github.com/adalundhe/pollwatch/core/sink"
	"github.com/adalundhe/pollwatch/core/watcher"
	"github.com/spf13/cobra"
)

// =============================================================================
// Watch Command Flags
// =============================================================================

var (
	watchInterval  time.Duration
	watchLogFile   string
	watchSQLite    string
	watchInclude   []string
	watchExclude   []string
	watchNoPreview bool
)

// =============================================================================
// Watch Command
// =============================================================================

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Watch a directory for changes",
	Long: `Poll a directory and report created, modified and deleted files.

The directory is created if it does not exist. Its contents at startup form
the baseline and are not reported. Each change is printed, appended to the
JSON-lines change log and, when enabled, followed by a binary preview of the
file's leading bytes.

Examples:
  pollwatch watch                          # Watch the configured directory
  pollwatch watch ./inbox                  # Watch ./inbox
  pollwatch watch ./inbox --interval 250ms # Poll four times a second
  pollwatch watch --include '*.csv'        # Only report CSV files
  pollwatch watch --sqlite                 # Also record changes in SQLite`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().DurationVarP(&watchInterval, "interval", "i", 0, "Poll interval (default from config, 1s)")
	watchCmd.Flags().StringVar(&watchLogFile, "log-file", "", "JSON-lines change log path")
	watchCmd.Flags().StringVar(&watchSQLite, "sqlite", "", "Also record changes in this SQLite database (bare flag: state directory)")
	watchCmd.Flags().Lookup("sqlite").NoOptDefVal = defaultSQLiteValue
	watchCmd.Flags().StringSliceVarP(&watchInclude, "include", "I", nil, "Include patterns (e.g., '*.txt,*.csv')")
	watchCmd.Flags().StringSliceVarP(&watchExclude, "exclude", "E", nil, "Exclude patterns (e.g., '*.tmp')")
	watchCmd.Flags().BoolVar(&watchNoPreview, "no-preview", false, "Disable the binary preview")
}

// runWatch runs the change engine until interrupted.
func runWatch(cmd *cobra.Command, args []string) error {
	mgr, err := loadConfig()
	if err != nil {
		return err
	}
	defer mgr.Close()

	cfg, err := watchConfig(mgr, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, level, err := newLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	followLogLevel(mgr, level, logger)

	out := cmd.OutOrStdout()
	engine, closeSinks, err := buildEngine(cfg, out, logger)
	if err != nil {
		return err
	}
	defer closeSinks()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	signals := signal.NewOSSignalHandler(engine, cancel, cmd.ErrOrStderr())
	signals.OnReload(func() {
		if err := mgr.Reload(); err != nil {
			logger.Warn("config reload failed", slog.Any("error", err))
		}
	})
	signals.Start()
	defer signals.Stop()

	if err := engine.Init(ctx); err != nil {
		return fmt.Errorf("initialize watcher: %w", err)
	}

	printWatchBanner(out, cfg, engine.Baseline().Len())

	if err := engine.Run(ctx); err != nil {
		return err
	}

	printWatchSummary(out, engine.Stats())
	return nil
}

// watchConfig layers the command flags over the loaded configuration.
func watchConfig(mgr *config.Manager, args []string) (*config.Config, error) {
	sqlitePath, err := resolveSQLitePath(watchSQLite)
	if err != nil {
		return nil, err
	}

	overrides := &config.Overrides{
		Include: optionalSlice(watchInclude),
		Exclude: optionalSlice(watchExclude),
	}
	if len(args) > 0 {
		overrides.Dir = &args[0]
	}
	if watchInterval > 0 {
		interval := watchInterval.String()
		overrides.Interval = &interval
	}
	if watchLogFile != "" {
		overrides.LogFile = &watchLogFile
	}
	if sqlitePath != "" {
		overrides.SQLitePath = &sqlitePath
	}
	if watchNoPreview {
		enabled := false
		overrides.Preview = &enabled
	}

	if err := mgr.Override(overrides); err != nil {
		return nil, err
	}
	return mgr.Get(), nil
}

// followLogLevel applies log.level from every reloaded config to level.
// Other settings take effect on the next start.
func followLogLevel(mgr *config.Manager, level *slog.LevelVar, logger *slog.Logger) {
	mgr.OnChange(func(cfg *config.Config) {
		if err := setLogLevel(level, cfg.Log.Level); err != nil {
			logger.Warn("keeping log level", slog.Any("error", err))
			return
		}
		logger.Info("config reloaded", slog.String("log_level", level.Level().String()))
	})
}

// optionalSlice distinguishes an unset slice flag (nil) from one set to an
// empty list.
func optionalSlice(v []string) *[]string {
	if v == nil {
		return nil
	}
	return &v
}

// buildEngine wires the console notifier, the sinks and the preview into an
// engine for cfg. The returned func closes any sink holding resources.
func buildEngine(cfg *config.Config, out io.Writer, logger *slog.Logger) (*watcher.Engine, func(), error) {
	interval, err := cfg.IntervalDuration()
	if err != nil {
		return nil, nil, err
	}

	var sinks []watcher.Consumer
	closers := []func() error{}
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn("close sink", slog.Any("error", err))
			}
		}
	}

	if cfg.Sink.LogFile != "" {
		sinks = append(sinks, sink.NewJSONLSink(cfg.Sink.LogFile))
	}
	if cfg.Sink.SQLitePath != "" {
		db, err := sink.NewSQLiteSink(cfg.Sink.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, db)
		closers = append(closers, db.Close)
	}

	var pv watcher.Consumer
	if cfg.Preview.Enabled {
		pv = preview.NewConsumer(cfg.Watch.Dir, preview.NewRenderer(cfg.Preview.Bytes, cfg.Preview.Group), out)
	}

	engine, err := watcher.NewEngine(watcher.EngineConfig{
		Dir:      cfg.Watch.Dir,
		Interval: interval,
		Include:  cfg.Watch.Include,
		Exclude:  cfg.Watch.Exclude,
		Console:  console.NewNotifier(out),
		Sinks:    sinks,
		Preview:  pv,
		Logger:   logger,
	})
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	return engine, closeAll, nil
}

func printWatchBanner(w io.Writer, cfg *config.Config, baseline int) {
	fmt.Fprintf(w, "%s%sMonitoring %s for changes...%s\n", colorBold, colorCyan, cfg.Watch.Dir, colorReset)
	fmt.Fprintf(w, "%sInterval:%s %s\n", colorGray, colorReset, cfg.Watch.Interval)
	fmt.Fprintf(w, "%sBaseline:%s %d files\n", colorGray, colorReset, baseline)
	if cfg.Sink.LogFile != "" {
		fmt.Fprintf(w, "%sLogging changes to:%s %s\n", colorGray, colorReset, cfg.Sink.LogFile)
	}
	if cfg.Sink.SQLitePath != "" {
		fmt.Fprintf(w, "%sRecording changes in:%s %s\n", colorGray, colorReset, cfg.Sink.SQLitePath)
	}
	fmt.Fprintln(w)
}

func printWatchSummary(w io.Writer, stats watcher.EngineStats) {
	fmt.Fprintf(w, "\nStopped after %d cycles: %d changes, %d scan failures, %d dispatch failures\n",
		stats.Cycles, stats.Events, stats.ScanFailures, stats.DispatchFailures)
}
