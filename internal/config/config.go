// Package config loads, validates and saves the mixdeck configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// ConfigFileName is the file searched for in the XDG config dirs
const ConfigFileName = "config.json"

// Config errors
var (
	ErrInvalidConfig = errors.New("config validation failed")
	ErrUnknownKey    = errors.New("unknown config key")
)

var (
	supportedEngines   = []string{"auto", "mixer", "null", "system_command"}
	supportedOutputs   = []string{"auto", "oto", "malgo"}
	supportedLogLevels = []string{"debug", "info", "warn", "error"}
)

// FileLoggingConfig represents file-based logging configuration
type FileLoggingConfig struct {
	Enabled    bool   `json:"enabled"`
	Filename   string `json:"filename"`     // empty = XDG cache path
	MaxSizeMB  int    `json:"max_size_mb"`  // size before rotation
	MaxBackups int    `json:"max_backups"`  // rotated files kept
	MaxAgeDays int    `json:"max_age_days"` // age before deletion
	Compress   bool   `json:"compress"`
}

// Config represents mixdeck configuration
type Config struct {
	SoundEnabled   bool               `json:"sound_enabled"`
	MusicEnabled   bool               `json:"music_enabled"`
	SoundVolume    float64            `json:"sound_volume"`  // 0.0 to 1.0
	MusicVolume    float64            `json:"music_volume"`  // 0.0 to 1.0
	MasterVolume   float64            `json:"master_volume"` // 0.0 to 1.0
	Engine         string             `json:"engine"`        // auto, mixer, null, system_command
	Output         string             `json:"output"`        // auto, oto, malgo
	Soundpack      string             `json:"soundpack"`     // id, directory or .json file
	SoundpackPaths []string           `json:"soundpack_paths"`
	LogLevel       string             `json:"log_level"`
	FileLogging    *FileLoggingConfig `json:"file_logging,omitempty"`
	Tracking       *TrackingConfig    `json:"tracking,omitempty"`
}

// FeatureFlags is a read-only snapshot of the two sound switches
type FeatureFlags struct {
	sound bool
	music bool
}

func (f FeatureFlags) SoundEnabled() bool { return f.sound }
func (f FeatureFlags) MusicEnabled() bool { return f.music }

// Flags returns the config's sound and music switches
func (c *Config) Flags() FeatureFlags {
	return FeatureFlags{sound: c.SoundEnabled, music: c.MusicEnabled}
}

// XDGInterface defines the interface for XDG directory operations
type XDGInterface interface {
	GetConfigPaths(filename string) []string
	GetSoundpackPaths(soundpackID string) []string
	GetCachePath(purpose string) string
	CreateCacheDir(purpose string) (string, error)
}

// ConfigManager handles loading, saving, and validating configuration
type ConfigManager struct {
	fs  afero.Fs
	xdg XDGInterface
}

// NewConfigManager creates a configuration manager on the OS filesystem
func NewConfigManager() *ConfigManager {
	return NewConfigManagerWithFilesystem(afero.NewOsFs())
}

// NewConfigManagerWithFilesystem creates a configuration manager that reads
// and writes through fs
func NewConfigManagerWithFilesystem(fs afero.Fs) *ConfigManager {
	slog.Debug("creating new config manager")
	return &ConfigManager{
		fs:  fs,
		xdg: NewXDGDirsWithFilesystem(fs),
	}
}

// NewConfigManagerWithDependencies creates a configuration manager with an
// injected XDG implementation
func NewConfigManagerWithDependencies(fs afero.Fs, xdg XDGInterface) *ConfigManager {
	return &ConfigManager{fs: fs, xdg: xdg}
}

// XDG returns the directory provider the manager uses
func (cm *ConfigManager) XDG() XDGInterface {
	return cm.xdg
}

// GetDefaultConfig returns the default configuration
func (cm *ConfigManager) GetDefaultConfig() *Config {
	defaultConfig := &Config{
		SoundEnabled:   true,
		MusicEnabled:   true,
		SoundVolume:    1.0,
		MusicVolume:    1.0,
		MasterVolume:   1.0,
		Engine:         "auto",
		Output:         "auto",
		Soundpack:      "default",
		SoundpackPaths: []string{},
		LogLevel:       "warn",
		FileLogging: &FileLoggingConfig{
			Enabled:    false,
			Filename:   "",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
		Tracking: GetDefaultTrackingConfig(),
	}

	slog.Debug("generated default config",
		"engine", defaultConfig.Engine,
		"soundpack", defaultConfig.Soundpack,
		"log_level", defaultConfig.LogLevel)

	return defaultConfig
}

// LoadFromFile loads configuration from a specific file. Keys missing from
// the file keep their default values.
func (cm *ConfigManager) LoadFromFile(filePath string) (*Config, error) {
	slog.Debug("loading config from file", "file_path", filePath)

	data, err := afero.ReadFile(cm.fs, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := cm.GetDefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		slog.Error("failed to parse config JSON", "file_path", filePath, "error", err)
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cm.ValidateConfig(config); err != nil {
		return nil, err
	}

	slog.Debug("config loaded successfully",
		"file_path", filePath,
		"engine", config.Engine,
		"soundpack", config.Soundpack)

	return config, nil
}

// SaveToFile validates config and writes it to filePath while holding the
// file's lock
func (cm *ConfigManager) SaveToFile(config *Config, filePath string) error {
	if err := cm.ValidateConfig(config); err != nil {
		return fmt.Errorf("cannot save invalid config: %w", err)
	}
	return cm.WriteConfig(filePath, config)
}

// WriteConfig writes config to filePath without validating it
func (cm *ConfigManager) WriteConfig(filePath string, config *Config) error {
	slog.Debug("saving config to file", "file_path", filePath)

	dir := filepath.Dir(filePath)
	if err := cm.fs.MkdirAll(dir, 0755); err != nil {
		slog.Error("failed to create config directory", "directory", dir, "error", err)
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	lock := lockFor(cm.fs, filePath)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock config file: %w", err)
	}
	defer func() {
		if unlockErr := lock.Unlock(); unlockErr != nil {
			slog.Warn("failed to unlock config file", "file_path", filePath, "error", unlockErr)
		}
	}()

	if err := afero.WriteFile(cm.fs, filePath, data, 0644); err != nil {
		slog.Error("failed to write config file", "file_path", filePath, "error", err)
		return fmt.Errorf("failed to write config file: %w", err)
	}

	slog.Info("config saved successfully", "file_path", filePath)
	return nil
}

// FindConfigFile returns the first existing config file in XDG order
func (cm *ConfigManager) FindConfigFile() (string, bool) {
	for i, configPath := range cm.xdg.GetConfigPaths(ConfigFileName) {
		if _, err := cm.fs.Stat(configPath); err == nil {
			slog.Debug("found config file", "path_index", i, "path", configPath)
			return configPath, true
		}
	}
	return "", false
}

// UserConfigPath is where `config set` writes
func (cm *ConfigManager) UserConfigPath() string {
	return cm.xdg.GetConfigPaths(ConfigFileName)[0]
}

// LoadConfig loads configuration using XDG path discovery
func (cm *ConfigManager) LoadConfig() (*Config, error) {
	if configPath, ok := cm.FindConfigFile(); ok {
		return cm.LoadFromFile(configPath)
	}

	slog.Debug("no config file found, using defaults")
	return cm.GetDefaultConfig(), nil
}

// ValidateConfig validates configuration values and reports every problem
// at once
func (cm *ConfigManager) ValidateConfig(config *Config) error {
	var problems []string

	for _, v := range []struct {
		name  string
		value float64
	}{
		{"sound_volume", config.SoundVolume},
		{"music_volume", config.MusicVolume},
		{"master_volume", config.MasterVolume},
	} {
		if v.value < 0.0 || v.value > 1.0 {
			problems = append(problems, fmt.Sprintf("%s must be between 0.0 and 1.0, got %g", v.name, v.value))
		}
	}

	if config.Soundpack == "" {
		problems = append(problems, "soundpack cannot be empty")
	}

	if config.LogLevel != "" && !slices.Contains(supportedLogLevels, config.LogLevel) {
		problems = append(problems, fmt.Sprintf("invalid log level '%s', must be one of: %s",
			config.LogLevel, strings.Join(supportedLogLevels, ", ")))
	}

	if !cm.IsValidEngine(config.Engine) {
		problems = append(problems, fmt.Sprintf("invalid engine '%s', must be one of: %s",
			config.Engine, strings.Join(supportedEngines, ", ")))
	}

	if !cm.IsValidOutput(config.Output) {
		problems = append(problems, fmt.Sprintf("invalid output '%s', must be one of: %s",
			config.Output, strings.Join(supportedOutputs, ", ")))
	}

	if fl := config.FileLogging; fl != nil {
		if fl.MaxSizeMB < 0 {
			problems = append(problems, fmt.Sprintf("file logging max_size_mb must be >= 0, got %d", fl.MaxSizeMB))
		}
		if fl.MaxBackups < 0 {
			problems = append(problems, fmt.Sprintf("file logging max_backups must be >= 0, got %d", fl.MaxBackups))
		}
		if fl.MaxAgeDays < 0 {
			problems = append(problems, fmt.Sprintf("file logging max_age_days must be >= 0, got %d", fl.MaxAgeDays))
		}
	}

	if len(problems) > 0 {
		errMsg := strings.Join(problems, "; ")
		slog.Error("config validation failed", "errors", errMsg)
		return fmt.Errorf("%w: %s", ErrInvalidConfig, errMsg)
	}

	return nil
}

// ApplyEnvironmentOverrides applies MIXDECK_* environment variables to a
// copy of config. Unparseable values are logged and ignored.
func (cm *ConfigManager) ApplyEnvironmentOverrides(config *Config) *Config {
	slog.Debug("applying environment variable overrides")

	result := *config

	envBool := func(key string, dst *bool) {
		raw := os.Getenv(key)
		if raw == "" {
			return
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			slog.Warn("invalid boolean environment variable", "key", key, "value", raw, "error", err)
			return
		}
		*dst = v
		slog.Debug("applied override from environment", "key", key, "value", v)
	}
	envFloat := func(key string, dst *float64) {
		raw := os.Getenv(key)
		if raw == "" {
			return
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			slog.Warn("invalid numeric environment variable", "key", key, "value", raw, "error", err)
			return
		}
		*dst = v
		slog.Debug("applied override from environment", "key", key, "value", v)
	}

	envBool("MIXDECK_SOUND_ENABLED", &result.SoundEnabled)
	envBool("MIXDECK_MUSIC_ENABLED", &result.MusicEnabled)
	envFloat("MIXDECK_SOUND_VOLUME", &result.SoundVolume)
	envFloat("MIXDECK_MUSIC_VOLUME", &result.MusicVolume)
	envFloat("MIXDECK_MASTER_VOLUME", &result.MasterVolume)

	if soundpack := os.Getenv("MIXDECK_SOUNDPACK"); soundpack != "" {
		result.Soundpack = soundpack
	}

	if logLevel := os.Getenv("MIXDECK_LOG_LEVEL"); logLevel != "" {
		result.LogLevel = logLevel
	}

	if engine := os.Getenv("MIXDECK_ENGINE"); engine != "" {
		if cm.IsValidEngine(engine) {
			result.Engine = engine
		} else {
			slog.Warn("invalid MIXDECK_ENGINE environment variable", "value", engine)
		}
	}

	if output := os.Getenv("MIXDECK_OUTPUT"); output != "" {
		if cm.IsValidOutput(output) {
			result.Output = output
		} else {
			slog.Warn("invalid MIXDECK_OUTPUT environment variable", "value", output)
		}
	}

	tracking := result.Tracking
	if tracking == nil {
		tracking = GetDefaultTrackingConfig()
	}
	result.Tracking = ApplyTrackingEnvironmentOverrides(tracking)

	return &result
}

// Set assigns one key, as accepted by `mixdeck config set`. Nested keys use
// dots, e.g. "tracking.enabled".
func (cm *ConfigManager) Set(config *Config, key, value string) error {
	parseVolume := func() (float64, error) {
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid value for %s: %w", key, err)
		}
		return v, nil
	}
	parseBool := func() (bool, error) {
		v, err := strconv.ParseBool(value)
		if err != nil {
			return false, fmt.Errorf("invalid value for %s: %w", key, err)
		}
		return v, nil
	}

	var err error
	switch key {
	case "sound_enabled":
		config.SoundEnabled, err = parseBool()
	case "music_enabled":
		config.MusicEnabled, err = parseBool()
	case "sound_volume":
		config.SoundVolume, err = parseVolume()
	case "music_volume":
		config.MusicVolume, err = parseVolume()
	case "master_volume":
		config.MasterVolume, err = parseVolume()
	case "engine":
		config.Engine = value
	case "output":
		config.Output = value
	case "soundpack":
		config.Soundpack = value
	case "soundpack_paths":
		config.SoundpackPaths = splitList(value)
	case "log_level":
		config.LogLevel = strings.ToLower(value)
	case "file_logging.enabled":
		if config.FileLogging == nil {
			config.FileLogging = cm.GetDefaultConfig().FileLogging
		}
		config.FileLogging.Enabled, err = parseBool()
	case "file_logging.filename":
		if config.FileLogging == nil {
			config.FileLogging = cm.GetDefaultConfig().FileLogging
		}
		config.FileLogging.Filename = value
	case "tracking.enabled":
		if config.Tracking == nil {
			config.Tracking = GetDefaultTrackingConfig()
		}
		config.Tracking.Enabled, err = parseBool()
	case "tracking.database_path":
		if config.Tracking == nil {
			config.Tracking = GetDefaultTrackingConfig()
		}
		config.Tracking.DatabasePath = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return err
}

func splitList(value string) []string {
	paths := []string{}
	for _, p := range strings.Split(value, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// ParseLogLevel converts a config log level to a slog.Level
func ParseLogLevel(logLevel string) (slog.Level, error) {
	switch strings.ToLower(logLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelWarn, fmt.Errorf("invalid log level '%s', must be one of: %s",
			logLevel, strings.Join(supportedLogLevels, ", "))
	}
}

// ResolveLogFilePath resolves the log file path using XDG cache directory when filename is empty
func (cm *ConfigManager) ResolveLogFilePath(filename string) string {
	if filename != "" {
		return filename
	}
	return filepath.Join(cm.xdg.GetCachePath("logs"), AppName+".log")
}

// SupportedEngines returns the engine names a config may select
func (cm *ConfigManager) SupportedEngines() []string {
	return slices.Clone(supportedEngines)
}

// IsValidEngine reports whether engine is supported. Empty means auto.
func (cm *ConfigManager) IsValidEngine(engine string) bool {
	return engine == "" || slices.Contains(supportedEngines, engine)
}

// IsValidOutput reports whether output is supported. Empty means auto.
func (cm *ConfigManager) IsValidOutput(output string) bool {
	return output == "" || slices.Contains(supportedOutputs, output)
}
