package cli

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"mixdeck.dev/internal/config"
)

// setupLogging installs the default slog logger: stderr at the configured
// level, plus a rotated debug-level log file when file logging is on. The
// returned closer is non-nil when a log file was opened.
func setupLogging(cfg *config.Config, cm *config.ConfigManager, stderrWriter io.Writer) io.Closer {
	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelWarn
	}

	handlers := []slog.Handler{
		slog.NewTextHandler(stderrWriter, &slog.HandlerOptions{Level: level}),
	}

	var closer io.Closer
	if cfg.FileLogging != nil && cfg.FileLogging.Enabled {
		logFilePath := cm.ResolveLogFilePath(cfg.FileLogging.Filename)

		logDir := filepath.Dir(logFilePath)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			slog.Error("failed to create log directory", "path", logDir, "error", err)
		} else {
			fileWriter := &lumberjack.Logger{
				Filename:   logFilePath,
				MaxSize:    cfg.FileLogging.MaxSizeMB,
				MaxBackups: cfg.FileLogging.MaxBackups,
				MaxAge:     cfg.FileLogging.MaxAgeDays,
				Compress:   cfg.FileLogging.Compress,
			}
			handlers = append(handlers, slog.NewTextHandler(fileWriter, &slog.HandlerOptions{Level: slog.LevelDebug}))
			closer = fileWriter
		}
	}

	slog.SetDefault(slog.New(NewMultiLevelHandler(handlers...)))

	slog.Debug("logging setup completed",
		"level", level.String(),
		"handlers", len(handlers),
		"file_enabled", closer != nil)

	return closer
}
