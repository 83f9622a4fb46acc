package availability

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// Defaults match a store started by the init system alongside this tool.
const (
	DefaultMaxRetries = 30
	DefaultRetryDelay = time.Second
)

// ErrTimeout is returned when the endpoint did not appear within the
// retry budget. The caller cannot tell a slow start from a dead store.
var ErrTimeout = errors.New("availability: store endpoint did not appear")

// Logger defines the logging interface for the waiter.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Config holds the polling parameters.
type Config struct {
	// Endpoint is the path to wait for, typically a database socket.
	// Empty disables waiting.
	Endpoint string

	// MaxRetries is the number of existence checks before giving up.
	MaxRetries int

	// RetryDelay is the pause between checks.
	RetryDelay time.Duration
}

// Waiter polls for a store endpoint to exist.
type Waiter struct {
	cfg    Config
	logger Logger

	// stat and sleep are replaced in tests.
	stat  func(name string) (os.FileInfo, error)
	sleep func(ctx context.Context, d time.Duration) error
}

// NewWaiter creates a Waiter, filling zero values with the defaults.
func NewWaiter(cfg Config) *Waiter {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	return &Waiter{
		cfg:    cfg,
		logger: noopLogger{},
		stat:   os.Stat,
		sleep:  sleepContext,
	}
}

// SetLogger sets the logger for the waiter.
func (w *Waiter) SetLogger(logger Logger) {
	w.logger = logger
}

// Wait blocks until the endpoint exists, the retry budget is spent
// (ErrTimeout), or ctx is cancelled.
//
// The endpoint is checked exactly MaxRetries times at most, with
// RetryDelay between checks.
func (w *Waiter) Wait(ctx context.Context) error {
	if w.cfg.Endpoint == "" {
		w.logger.Debug("no store endpoint configured, not waiting")
		return nil
	}

	for attempt := 1; attempt <= w.cfg.MaxRetries; attempt++ {
		if _, err := w.stat(w.cfg.Endpoint); err == nil {
			if attempt > 1 {
				w.logger.Info("store endpoint appeared", "endpoint", w.cfg.Endpoint, "attempts", attempt)
			}
			return nil
		}

		if attempt == 1 {
			w.logger.Info("waiting for store endpoint",
				"endpoint", w.cfg.Endpoint,
				"max_retries", w.cfg.MaxRetries,
				"retry_delay", w.cfg.RetryDelay,
			)
		}

		if attempt == w.cfg.MaxRetries {
			break
		}
		if err := w.sleep(ctx, w.cfg.RetryDelay); err != nil {
			return fmt.Errorf("waiting for %s: %w", w.cfg.Endpoint, err)
		}
	}

	w.logger.Warn("store endpoint never appeared", "endpoint", w.cfg.Endpoint, "attempts", w.cfg.MaxRetries)
	return fmt.Errorf("%w: %s after %d attempts", ErrTimeout, w.cfg.Endpoint, w.cfg.MaxRetries)
}

// sleepContext pauses for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
