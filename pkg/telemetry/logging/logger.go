package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"switchboard-hq/switchboard/pkg/config"
)

// Logger wraps the configured slog logger and its adjustable level.
type Logger struct {
	slog  *slog.Logger
	level *slog.LevelVar
	file  io.Closer
}

// Setup builds a logger from configuration and installs it as the slog
// default. The returned Logger keeps the level handle for live adjustment
// and the file handle (if any) for closing at shutdown.
func Setup(cfg *config.LoggingConfig) (*Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	levelVar := &slog.LevelVar{}
	levelVar.Set(level)

	var (
		writer io.Writer = os.Stderr
		file   io.Closer
	)
	if cfg.File.Enabled {
		rotating := &lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSizeMB,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAgeDays,
			Compress:   cfg.File.Compress,
		}
		writer = rotating
		file = rotating
	}

	opts := &slog.HandlerOptions{
		Level:     levelVar,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(writer, opts)
	default:
		handler = slog.NewJSONHandler(writer, opts)
	}

	logger := &Logger{
		slog:  slog.New(handler),
		level: levelVar,
		file:  file,
	}
	slog.SetDefault(logger.slog)

	return logger, nil
}

// SetLevel adjusts the minimum level at runtime.
func (l *Logger) SetLevel(name string) error {
	level, err := ParseLevel(name)
	if err != nil {
		return err
	}
	l.level.Set(level)
	return nil
}

// Level returns the current minimum level.
func (l *Logger) Level() slog.Level {
	return l.level.Level()
}

// Close releases the rotating file handle, if one is open.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// ParseLevel maps a configuration level name to an slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch name {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", name)
	}
}
