// Package cli implements the mixdeck command line.
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"mixdeck.dev/internal/config"
	"mixdeck.dev/internal/fs"
	"mixdeck.dev/internal/sound"
	"mixdeck.dev/internal/soundpack"
	"mixdeck.dev/internal/tracking"
)

const Version = "0.4.0"

// CLI represents the command-line interface
type CLI struct {
	rootCmd          *cobra.Command
	fsFactory        fs.Factory
	configManager    *config.ConfigManager
	engineFactory    *sound.Factory
	terminalDetector TerminalDetector
	now              func() time.Time

	resolver   *soundpack.Resolver
	watcher    *soundpack.Watcher
	engine     sound.Engine
	trackingDB *sql.DB
	recorder   *tracking.Recorder
	logFile    io.Closer

	mu        sync.Mutex
	lastEvent *sound.PlayEvent
}

// NewCLI creates a CLI on the real filesystem and audio devices
func NewCLI() *CLI {
	return NewCLIWithDependencies(fs.NewDefaultFactory(), sound.NewFactory(), nil)
}

// NewCLIWithDependencies creates a CLI with injected filesystems, engine
// factory and terminal detection
func NewCLIWithDependencies(fsFactory fs.Factory, engineFactory *sound.Factory, detector TerminalDetector) *CLI {
	slog.Debug("creating new CLI instance")

	rootCmd := &cobra.Command{
		Use:           "mixdeck",
		Short:         "Game sound mixer",
		Long:          "mixdeck plays game sounds and music through a software mixer, with soundpacks, volume control and a playback journal.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handled, err := handleVersionFlag(cmd); handled || err != nil {
				return err
			}
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	rootCmd.PersistentFlags().String("soundpack", "", "Soundpack id, directory or JSON file")
	rootCmd.PersistentFlags().String("engine", "", "Sound engine (auto, mixer, null, system_command)")
	rootCmd.PersistentFlags().String("output", "", "Audio output (auto, oto, malgo)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("silent", false, "Disable sound and music")
	rootCmd.Flags().BoolP("version", "v", false, "Show version information")

	rootCmd.AddCommand(newPlayCommand())
	rootCmd.AddCommand(newMusicCommand())
	rootCmd.AddCommand(newFormatsCommand())
	rootCmd.AddCommand(newStatsCommand())
	rootCmd.AddCommand(newConsoleCommand())
	rootCmd.AddCommand(newConfigCommand())

	return &CLI{
		rootCmd:          rootCmd,
		fsFactory:        fsFactory,
		configManager:    config.NewConfigManagerWithFilesystem(fsFactory.Production()),
		engineFactory:    engineFactory,
		terminalDetector: detector,
		now:              time.Now,
	}
}

type cliContextKey struct{}

func contextWithCLI(ctx context.Context, cli *CLI) context.Context {
	return context.WithValue(ctx, cliContextKey{}, cli)
}

func cliFromContext(ctx context.Context) (*CLI, error) {
	if cli, ok := ctx.Value(cliContextKey{}).(*CLI); ok {
		return cli, nil
	}
	return nil, fmt.Errorf("CLI instance not found in context")
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "mixdeck version %s\n", Version)
}

// handleVersionFlag prints the version when --version is set. It reports
// whether processing should stop.
func handleVersionFlag(cmd *cobra.Command) (bool, error) {
	version, _ := cmd.Flags().GetBool("version")
	if version {
		printVersion(cmd.OutOrStdout())
		return true, nil
	}
	return false, nil
}

// Run executes the CLI with the given arguments and I/O streams
func (c *CLI) Run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) > 1 && (args[1] == "--version" || args[1] == "-v") {
		printVersion(stdout)
		return 0
	}

	defer c.Close()

	c.rootCmd.SetArgs(args[1:])
	c.rootCmd.SetIn(stdin)
	c.rootCmd.SetOut(stdout)
	c.rootCmd.SetErr(stderr)

	if err := c.rootCmd.ExecuteContext(contextWithCLI(context.Background(), c)); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		slog.Debug("command failed", "error", err)
		return 1
	}
	return 0
}

// loadAndValidateConfig loads configuration from flags and files, applies
// overrides, validates, and sets up logging
func (c *CLI) loadAndValidateConfig(cmd *cobra.Command) (*config.Config, error) {
	configFile, _ := cmd.Flags().GetString("config")
	soundpackFlag, _ := cmd.Flags().GetString("soundpack")
	engineFlag, _ := cmd.Flags().GetString("engine")
	outputFlag, _ := cmd.Flags().GetString("output")
	logLevel, _ := cmd.Flags().GetString("log-level")
	silent, _ := cmd.Flags().GetBool("silent")

	var cfg *config.Config
	var err error
	if configFile != "" {
		cfg, err = c.configManager.LoadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error loading config %s: %w", configFile, err)
		}
	} else {
		cfg, err = c.configManager.LoadConfig()
		if err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	}

	cfg = c.configManager.ApplyEnvironmentOverrides(cfg)

	if soundpackFlag != "" {
		cfg.Soundpack = soundpackFlag
	}
	if engineFlag != "" {
		cfg.Engine = engineFlag
	}
	if outputFlag != "" {
		cfg.Output = outputFlag
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if silent {
		cfg.SoundEnabled = false
		cfg.MusicEnabled = false
	}

	if err := c.configManager.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	c.logFile = setupLogging(cfg, c.configManager, cmd.ErrOrStderr())
	return cfg, nil
}

// initializeTracking opens the journal when tracking is enabled. Failures
// leave tracking off.
func (c *CLI) initializeTracking(cfg *config.Config) {
	if c.trackingDB != nil || cfg.Tracking == nil || !cfg.Tracking.Enabled {
		return
	}

	dbPath := cfg.Tracking.ResolveDatabasePath(c.configManager.XDG())
	db, err := tracking.NewDatabase(dbPath)
	if err != nil {
		slog.Error("failed to initialize tracking database, continuing without tracking",
			"path", dbPath, "error", err)
		return
	}

	c.trackingDB = db
	c.recorder = tracking.NewRecorder(db, "")
	slog.Info("tracking database initialized", "path", dbPath, "session_id", c.recorder.SessionID())
}

// initializeAudioSystem builds the soundpack resolver and the sound engine.
// With watch set the resolver memo is flushed when soundpack files change.
func (c *CLI) initializeAudioSystem(cfg *config.Config, watch bool) error {
	c.initializeTracking(cfg)

	assets := c.fsFactory.Assets()
	searchPaths := append(c.configManager.XDG().GetSoundpackPaths(cfg.Soundpack), cfg.SoundpackPaths...)

	mapper, err := soundpack.NewMapper(assets, cfg.Soundpack, searchPaths)
	if err != nil {
		slog.Warn("configured soundpack unavailable, searching default paths",
			"soundpack", cfg.Soundpack, "error", err)
		mapper = soundpack.NewDirectoryMapper("fallback", searchPaths)
	}
	c.resolver = soundpack.NewResolver(mapper, soundpack.WithFilesystem(assets))

	slog.Debug("soundpack resolver initialized",
		"resolver_type", c.resolver.Type(),
		"resolver_name", c.resolver.Name())

	if watch {
		watcher, err := c.resolver.Watch(watchDirs(mapper, cfg.Soundpack))
		if err != nil {
			slog.Warn("soundpack watching unavailable", "error", err)
		} else {
			c.watcher = watcher
		}
	}

	var recordHook sound.EventHook
	if c.recorder != nil {
		recordHook = c.recorder.Hook()
	}
	hook := tracking.Chain(tracking.NewSlogHook(nil).Hook(), recordHook, c.observe)

	engine, err := c.engineFactory.CreateEngine(cfg.Engine, sound.Dependencies{
		Resolver:   c.resolver,
		Flags:      cfg.Flags(),
		Output:     cfg.Output,
		Filesystem: assets,
		Options:    []sound.Option{sound.WithEventHook(hook)},
	})
	if err != nil {
		return fmt.Errorf("error initializing sound engine: %w", err)
	}

	engine.SetSoundVolume(cfg.SoundVolume)
	engine.SetMusicVolume(cfg.MusicVolume)
	engine.SetMasterVolume(cfg.MasterVolume)
	c.engine = engine

	slog.Debug("sound engine initialized",
		"engine", cfg.Engine,
		"engine_type", fmt.Sprintf("%T", engine))
	return nil
}

func watchDirs(mapper soundpack.PathMapper, soundpackValue string) []string {
	switch m := mapper.(type) {
	case *soundpack.DirectoryMapper:
		var dirs []string
		for _, base := range m.BasePaths() {
			dirs = append(dirs, base, filepath.Join(base, soundpack.SoundsDir))
		}
		return dirs
	case *soundpack.JSONMapper:
		return []string{filepath.Dir(soundpackValue)}
	default:
		return nil
	}
}

// observe keeps the latest play event so commands can report outcomes
func (c *CLI) observe(event sound.PlayEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastEvent = &event
}

// LastEvent returns the most recent play event, if any
func (c *CLI) LastEvent() (sound.PlayEvent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastEvent == nil {
		return sound.PlayEvent{}, false
	}
	return *c.lastEvent, true
}

// Close releases the engine, watcher, journal and log file. It is safe to
// call more than once.
func (c *CLI) Close() {
	if c.engine != nil {
		if err := c.engine.Close(); err != nil {
			slog.Error("error closing sound engine", "error", err)
		}
		c.engine = nil
	}
	if c.watcher != nil {
		if err := c.watcher.Close(); err != nil {
			slog.Error("error closing soundpack watcher", "error", err)
		}
		c.watcher = nil
	}
	if c.trackingDB != nil {
		if err := c.trackingDB.Close(); err != nil {
			slog.Error("error closing tracking database", "error", err)
		}
		c.trackingDB = nil
	}
	if c.logFile != nil {
		c.logFile.Close()
		c.logFile = nil
	}
}
