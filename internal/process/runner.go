package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"
)

// outputBufferSize is how much of each output stream is retained.
const outputBufferSize = 4096

// defaultGracefulTimeout is the pause between SIGTERM and SIGKILL.
const defaultGracefulTimeout = 5 * time.Second

// Config describes one program invocation.
type Config struct {
	// Name is a human-readable identifier for logging.
	Name string

	// Binary is the path to the executable, or a name looked up in PATH.
	Binary string

	// Args are command-line arguments to pass to the binary.
	Args []string

	// Env are additional environment variables (key=value format).
	// If nil, inherits from parent process.
	Env []string

	// WorkDir is the working directory for the process.
	// If empty, inherits from parent process.
	WorkDir string

	// Stdin is fed to the process. Nil means no input.
	Stdin io.Reader

	// Timeout bounds the run. Zero means no limit beyond ctx.
	Timeout time.Duration

	// GracefulTimeout is how long to wait after SIGTERM before SIGKILL.
	GracefulTimeout time.Duration
}

// Result describes a finished run.
type Result struct {
	PID      int
	ExitCode int
	Duration time.Duration

	// Stdout and Stderr hold the last bytes written to each stream.
	Stdout string
	Stderr string
}

// Logger defines the logging interface for the runner.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Runner starts programs and waits for them.
type Runner struct {
	logger Logger
}

// NewRunner creates a Runner.
func NewRunner() *Runner {
	return &Runner{logger: noopLogger{}}
}

// SetLogger sets the logger for the runner.
func (r *Runner) SetLogger(logger Logger) {
	r.logger = logger
}

// Run starts the program described by cfg and waits for it to exit.
//
// When ctx ends or cfg.Timeout passes first, the process group receives
// SIGTERM and, after cfg.GracefulTimeout, SIGKILL.
//
// Returns:
//   - Result: Exit status and captured output (also on failure)
//   - error: ErrStartFailed, ErrNonZeroExit, ErrTimeout or ErrCancelled, wrapped
func (r *Runner) Run(ctx context.Context, cfg Config) (Result, error) {
	if cfg.GracefulTimeout <= 0 {
		cfg.GracefulTimeout = defaultGracefulTimeout
	}
	if cfg.Name == "" {
		cfg.Name = cfg.Binary
	}

	runCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	cmd := exec.Command(cfg.Binary, cfg.Args...) //nolint:gosec // Binary comes from validated configuration

	// Create a new process group so we can signal all children on shutdown
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if cfg.Env != nil {
		cmd.Env = append(os.Environ(), cfg.Env...)
	}
	if cfg.WorkDir != "" {
		cmd.Dir = cfg.WorkDir
	}
	cmd.Stdin = cfg.Stdin

	stdout := newTailBuffer(outputBufferSize)
	stderr := newTailBuffer(outputBufferSize)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	r.logger.Debug("starting process", "name", cfg.Name, "binary", cfg.Binary, "args", cfg.Args)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("%w: %s: %w", ErrStartFailed, cfg.Name, err)
	}
	pid := cmd.Process.Pid

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var waitErr, stopReason error
	select {
	case waitErr = <-done:
	case <-runCtx.Done():
		if ctx.Err() != nil {
			stopReason = ErrCancelled
		} else {
			stopReason = ErrTimeout
		}
		waitErr = r.stop(cfg, pid, done)
	}

	res := Result{
		PID:      pid,
		ExitCode: exitCode(cmd),
		Duration: time.Since(start),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}

	if stopReason != nil {
		return res, fmt.Errorf("%w: %s after %s", stopReason, cfg.Name, res.Duration.Round(time.Millisecond))
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			r.logger.Debug("process failed", "name", cfg.Name, "pid", pid, "exit_code", res.ExitCode)
			return res, fmt.Errorf("%w: %s exited with status %d", ErrNonZeroExit, cfg.Name, res.ExitCode)
		}
		return res, fmt.Errorf("waiting for %s: %w", cfg.Name, waitErr)
	}

	r.logger.Debug("process finished", "name", cfg.Name, "pid", pid, "duration", res.Duration)
	return res, nil
}

// stop terminates the process group and waits for the process to exit.
func (r *Runner) stop(cfg Config, pid int, done <-chan error) error {
	r.logger.Warn("stopping process", "name", cfg.Name, "pid", pid)

	// Use negative PID to signal the process group (created via Setpgid)
	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil && !errors.Is(err, syscall.ESRCH) {
		r.logger.Warn("failed to send SIGTERM to process group", "name", cfg.Name, "error", err)
	}

	timer := time.NewTimer(cfg.GracefulTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		r.logger.Warn("graceful shutdown timeout, sending SIGKILL",
			"name", cfg.Name,
			"timeout", cfg.GracefulTimeout,
		)
	}

	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		r.logger.Error("killing process group failed", "name", cfg.Name, "error", err)
	}
	return <-done
}

func exitCode(cmd *exec.Cmd) int {
	if cmd.ProcessState == nil {
		return -1
	}
	return cmd.ProcessState.ExitCode()
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.max; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.TrimSpace(string(b.buf))
}
