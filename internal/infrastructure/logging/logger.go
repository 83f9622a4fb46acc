package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/gray-logic-charts/internal/infrastructure/config"
)

// serviceName is attached to every log entry.
const serviceName = "graylogic-charts"

// logFileMode is the permission of a log file created by New.
const logFileMode = 0o640

// Logger wraps slog.Logger for Gray Logic Charts.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Logger struct {
	*slog.Logger

	// closer is the log file opened by New, if any.
	closer io.Closer
}

// New creates a Logger from configuration.
//
// Output is "stderr" (default), "stdout" or a file path. A file is opened
// for appending so successive cron runs share one log. If the file cannot
// be opened the logger falls back to stderr and says so in its first entry.
//
// Parameters:
//   - cfg: Logging configuration from charts.yaml
//   - version: Application version for default field
//
// Returns:
//   - *Logger: Configured logger ready for use; Close it when done
func New(cfg config.LoggingConfig, version string) *Logger {
	var openErr error
	var file *os.File
	var output io.Writer = os.Stderr

	switch target := strings.TrimSpace(cfg.Output); strings.ToLower(target) {
	case "", "stderr":
	case "stdout":
		output = os.Stdout
	default:
		file, openErr = os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFileMode)
		if openErr == nil {
			output = file
		}
	}

	logger := NewWithWriter(cfg, version, output)
	if file != nil {
		logger.closer = file
	}
	if openErr != nil {
		logger.Warn("log file unavailable, logging to stderr", "path", cfg.Output, "error", openErr)
	}
	return logger
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(cfg config.LoggingConfig, version string, output io.Writer) *Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	}

	// Text unless json is requested.
	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", serviceName),
		slog.String("version", version),
	})

	return &Logger{
		Logger: slog.New(handler),
	}
}

// Discard returns a Logger that drops every entry.
func Discard() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// parseLevel converts a string log level to slog.Level.
//
// Supported levels: debug, info, warn, error
// Defaults to info if unrecognised.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a new Logger with additional default attributes. The child
// shares the parent's log file; only the parent should be closed.
//
// Example:
//
//	runLog := logger.With("interval", "week")
//	runLog.Info("chart rendered", "chart", "kessel") // includes interval=week
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
	}
}

// Close closes the log file opened by New. It is a no-op for stderr,
// stdout and child loggers.
func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	err := l.closer.Close()
	l.closer = nil
	if err != nil {
		return fmt.Errorf("closing log file: %w", err)
	}
	return nil
}
