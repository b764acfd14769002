package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/adalundhe/pollwatch/core/storage"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Errors
// =============================================================================

var (
	ErrInvalidInterval  = errors.New("watch.interval must be a positive duration")
	ErrEmptyDir         = errors.New("watch.dir cannot be empty")
	ErrInvalidPreview   = errors.New("preview.bytes and preview.group must be positive")
	ErrInvalidLogLevel  = errors.New("log.level must be one of debug, info, warn, error")
	ErrInvalidLogFormat = errors.New("log.format must be text or json")
)

// =============================================================================
// Config
// =============================================================================

// Manager owns the effective configuration. Layers are applied in order:
// defaults, user file, project file, explicit file, environment, then every
// Overrides value passed to Override. Reload repeats the whole stack.
type Manager struct {
	configPtr    atomic.Pointer[Config]
	dirs         *storage.Dirs
	projectRoot  string
	explicitPath string

	overrideMu sync.Mutex
	overrides  []*Overrides

	watcherMu sync.RWMutex
	watchers  []func(*Config)
}

type Config struct {
	Watch   WatchConfig   `yaml:"watch"`
	Sink    SinkConfig    `yaml:"sink"`
	Preview PreviewConfig `yaml:"preview"`
	Log     LogConfig     `yaml:"log"`
}

type WatchConfig struct {
	Dir      string   `yaml:"dir"`
	Interval string   `yaml:"interval"`
	Include  []string `yaml:"include"`
	Exclude  []string `yaml:"exclude"`
}

type SinkConfig struct {
	LogFile    string `yaml:"log_file"`
	SQLitePath string `yaml:"sqlite_path"`
}

type PreviewConfig struct {
	Enabled bool `yaml:"enabled"`
	Bytes   int  `yaml:"bytes"`
	Group   int  `yaml:"group"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// IntervalDuration parses Watch.Interval.
func (c *Config) IntervalDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.Watch.Interval)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidInterval, err)
	}
	if d <= 0 {
		return 0, ErrInvalidInterval
	}
	return d, nil
}

// Validate checks that the configuration can drive a watcher.
func (c *Config) Validate() error {
	if c.Watch.Dir == "" {
		return ErrEmptyDir
	}
	if _, err := c.IntervalDuration(); err != nil {
		return err
	}
	if c.Preview.Bytes <= 0 || c.Preview.Group <= 0 {
		return ErrInvalidPreview
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return ErrInvalidLogFormat
	}
	return nil
}

// =============================================================================
// Manager
// =============================================================================

func NewManager(dirs *storage.Dirs, projectRoot string) *Manager {
	if projectRoot == "" {
		projectRoot = "."
	}
	m := &Manager{
		dirs:        dirs,
		projectRoot: projectRoot,
	}
	m.configPtr.Store(DefaultConfigFor(dirs))
	return m
}

// DefaultConfig returns the defaults without any platform directories; the
// change log then lives next to the working directory.
func DefaultConfig() *Config {
	return DefaultConfigFor(nil)
}

// DefaultConfigFor returns the defaults with state files placed under dirs.
func DefaultConfigFor(dirs *storage.Dirs) *Config {
	logFile := "changes_log.json"
	if dirs != nil {
		logFile = dirs.ChangeLogPath()
	}

	return &Config{
		Watch: WatchConfig{
			Dir:      "./target_folder",
			Interval: "1s",
		},
		Sink: SinkConfig{
			LogFile: logFile,
		},
		Preview: PreviewConfig{
			Enabled: true,
			Bytes:   50,
			Group:   10,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// SetConfigFile adds an explicit config file, loaded after the user and
// project layers. A missing explicit file is an error.
func (m *Manager) SetConfigFile(path string) {
	m.explicitPath = path
}

func (m *Manager) Get() *Config {
	return m.configPtr.Load()
}

func (m *Manager) Load() error {
	cfg := DefaultConfigFor(m.dirs)

	if err := m.loadUserConfig(cfg); err != nil {
		return fmt.Errorf("user config: %w", err)
	}

	if err := m.loadProjectConfig(cfg); err != nil {
		return fmt.Errorf("project config: %w", err)
	}

	if err := m.loadExplicitConfig(cfg); err != nil {
		return fmt.Errorf("config file: %w", err)
	}

	m.applyEnvironment(cfg)

	m.overrideMu.Lock()
	for _, o := range m.overrides {
		if err := o.Merge(cfg); err != nil {
			m.overrideMu.Unlock()
			return fmt.Errorf("overrides: %w", err)
		}
	}
	m.overrideMu.Unlock()

	m.configPtr.Store(cfg)
	m.notifyWatchers(cfg)

	return nil
}

// Override applies o on top of the current config and keeps it, so later
// reloads apply it again. Watchers are notified unless o sets nothing.
func (m *Manager) Override(o *Overrides) error {
	if o.IsEmpty() {
		return nil
	}

	cfg := *m.Get()
	if err := o.Merge(&cfg); err != nil {
		return err
	}

	m.overrideMu.Lock()
	m.overrides = append(m.overrides, o)
	m.overrideMu.Unlock()

	m.configPtr.Store(&cfg)
	m.notifyWatchers(&cfg)
	return nil
}

func (m *Manager) loadUserConfig(cfg *Config) error {
	if m.dirs == nil {
		return nil
	}
	return m.loadYAMLFile(m.dirs.ConfigDir("config.yaml"), cfg)
}

func (m *Manager) loadProjectConfig(cfg *Config) error {
	projectDirs := storage.ResolveProjectDirs(m.projectRoot)
	return m.loadYAMLFile(projectDirs.Config, cfg)
}

func (m *Manager) loadExplicitConfig(cfg *Config) error {
	if m.explicitPath == "" {
		return nil
	}
	if _, err := os.Stat(m.explicitPath); err != nil {
		return err
	}
	return m.loadYAMLFile(m.explicitPath, cfg)
}

func (m *Manager) loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

// envKeys maps POLLWATCH_* variables to config keys.
var envKeys = []struct {
	env string
	key string
}{
	{"POLLWATCH_DIR", "watch.dir"},
	{"POLLWATCH_INTERVAL", "watch.interval"},
	{"POLLWATCH_INCLUDE", "watch.include"},
	{"POLLWATCH_EXCLUDE", "watch.exclude"},
	{"POLLWATCH_LOG_FILE", "sink.log_file"},
	{"POLLWATCH_SQLITE_PATH", "sink.sqlite_path"},
	{"POLLWATCH_PREVIEW", "preview.enabled"},
	{"POLLWATCH_PREVIEW_BYTES", "preview.bytes"},
	{"POLLWATCH_PREVIEW_GROUP", "preview.group"},
	{"POLLWATCH_LOG_LEVEL", "log.level"},
	{"POLLWATCH_LOG_FORMAT", "log.format"},
}

// applyEnvironment sets every non-empty POLLWATCH_* variable. A value that
// does not parse leaves the lower layers in place.
func (m *Manager) applyEnvironment(cfg *Config) {
	for _, e := range envKeys {
		if v := os.Getenv(e.env); v != "" {
			_ = SetString(cfg, e.key, v)
		}
	}
}

func (m *Manager) OnChange(fn func(*Config)) {
	m.watcherMu.Lock()
	m.watchers = append(m.watchers, fn)
	m.watcherMu.Unlock()
}

func (m *Manager) notifyWatchers(cfg *Config) {
	m.watcherMu.RLock()
	watchers := m.watchers
	m.watcherMu.RUnlock()

	for _, fn := range watchers {
		fn(cfg)
	}
}

// Reload re-reads every layer and reapplies the stored overrides.
func (m *Manager) Reload() error {
	return m.Load()
}

// Close detaches every OnChange watcher. The manager stays usable.
func (m *Manager) Close() error {
	m.watcherMu.Lock()
	m.watchers = nil
	m.watcherMu.Unlock()
	return nil
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}
