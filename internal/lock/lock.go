package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const (
	// DefaultRetryDelay is the pause between attempts while another
	// holder owns the lock.
	DefaultRetryDelay = 5 * time.Second

	// lockFileMode is the permission mode for the lock file.
	lockFileMode = 0644
)

// Logger defines the logging interface for the guard.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Config holds lock guard settings.
type Config struct {
	// Path is the lock file. Its existence is the lock.
	Path string

	// RetryDelay is the pause between acquisition attempts.
	RetryDelay time.Duration

	// StaleAfter, when positive, lets a lock older than this be broken.
	StaleAfter time.Duration

	// ReclaimDeadOwner lets a lock whose recorded PID no longer exists
	// be broken.
	ReclaimDeadOwner bool
}

// Guard serialises runs through an exclusively created lock file.
type Guard struct {
	cfg    Config
	logger Logger

	// Replaced in tests.
	pid   int
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
	alive func(pid int) bool
}

// NewGuard creates a Guard for cfg.
func NewGuard(cfg Config) (*Guard, error) {
	if cfg.Path == "" {
		return nil, ErrNoPath
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	return &Guard{
		cfg:    cfg,
		logger: noopLogger{},
		pid:    os.Getpid(),
		now:    time.Now,
		sleep:  sleepContext,
		alive:  processAlive,
	}, nil
}

// SetLogger sets the logger for the guard.
func (g *Guard) SetLogger(logger Logger) {
	g.logger = logger
}

// Lock is a held lock. Release it exactly once; further calls are no-ops.
type Lock struct {
	path   string
	logger Logger
	held   bool
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release removes the lock file.
func (l *Lock) Release() error {
	if l == nil || !l.held {
		return nil
	}
	l.held = false

	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		l.logger.Warn("failed to remove lock file", "path", l.path, "error", err)
		return fmt.Errorf("removing lock file %s: %w", l.path, err)
	}
	l.logger.Debug("released lock", "path", l.path)
	return nil
}

// Acquire blocks until the lock file could be created exclusively or ctx
// is done. There is no retry limit.
func (g *Guard) Acquire(ctx context.Context) (*Lock, error) {
	waiting := false
	for {
		ok, err := g.tryCreate()
		if err != nil {
			return nil, err
		}
		if ok {
			if waiting {
				g.logger.Info("acquired lock after waiting", "path", g.cfg.Path)
			} else {
				g.logger.Debug("acquired lock", "path", g.cfg.Path)
			}
			return &Lock{path: g.cfg.Path, logger: g.logger, held: true}, nil
		}

		if g.breakStale() {
			continue
		}

		if !waiting {
			g.logger.Info("lock held by another run, waiting", "path", g.cfg.Path, "retry_delay", g.cfg.RetryDelay)
			waiting = true
		}
		if err := g.sleep(ctx, g.cfg.RetryDelay); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrCancelled, g.cfg.Path, err)
		}
	}
}

// tryCreate attempts the exclusive create. It reports false when the file
// already exists.
func (g *Guard) tryCreate() (bool, error) {
	f, err := os.OpenFile(g.cfg.Path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, lockFileMode)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("creating lock file %s: %w", g.cfg.Path, err)
	}
	defer f.Close()

	content := fmt.Sprintf("%d\n%s\n", g.pid, g.now().Format(time.RFC3339))
	if _, err := f.WriteString(content); err != nil {
		os.Remove(g.cfg.Path) //nolint:errcheck // best-effort cleanup of our own file
		return false, fmt.Errorf("writing lock file: %w", err)
	}
	return true, nil
}

// breakStale removes an existing lock when one of the enabled safeguards
// applies. It reports whether the lock was removed.
func (g *Guard) breakStale() bool {
	if g.cfg.StaleAfter <= 0 && !g.cfg.ReclaimDeadOwner {
		return false
	}

	info, err := os.Stat(g.cfg.Path)
	if err != nil {
		// Released between our create and stat, so simply retry.
		return errors.Is(err, os.ErrNotExist)
	}

	if g.cfg.StaleAfter > 0 {
		if age := g.now().Sub(info.ModTime()); age > g.cfg.StaleAfter {
			g.logger.Warn("removing stale lock", "path", g.cfg.Path, "age", age.Round(time.Second))
			return g.remove()
		}
	}

	if g.cfg.ReclaimDeadOwner {
		pid, ok := readOwner(g.cfg.Path)
		if ok && pid != g.pid && !g.alive(pid) {
			g.logger.Warn("removing lock of dead owner", "path", g.cfg.Path, "stale_pid", pid)
			return g.remove()
		}
	}
	return false
}

func (g *Guard) remove() bool {
	err := os.Remove(g.cfg.Path)
	return err == nil || errors.Is(err, os.ErrNotExist)
}

// readOwner parses the PID on the first line of a lock file.
func readOwner(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	first, _, _ := strings.Cut(string(data), "\n")
	pid, err := strconv.Atoi(strings.TrimSpace(first))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

// processAlive reports whether pid exists. On Unix FindProcess always
// succeeds, so signal 0 is the actual check.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

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
