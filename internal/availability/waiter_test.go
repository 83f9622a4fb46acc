package availability

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// fakeClock records sleeps instead of sleeping.
type fakeClock struct {
	sleeps []time.Duration
}

func (c *fakeClock) sleep(_ context.Context, d time.Duration) error {
	c.sleeps = append(c.sleeps, d)
	return nil
}

func TestWait_EndpointNeverAppears(t *testing.T) {
	w := NewWaiter(Config{
		Endpoint:   "/nonexistent/mysqld.sock",
		MaxRetries: 30,
		RetryDelay: time.Second,
	})

	polls := 0
	w.stat = func(string) (os.FileInfo, error) {
		polls++
		return nil, os.ErrNotExist
	}
	clock := &fakeClock{}
	w.sleep = clock.sleep

	err := w.Wait(context.Background())
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Wait() error = %v, want ErrTimeout", err)
	}
	if polls != 30 {
		t.Errorf("polls = %d, want exactly 30", polls)
	}
	if len(clock.sleeps) != 29 {
		t.Errorf("sleeps = %d, want 29 (none after the final poll)", len(clock.sleeps))
	}
	for _, d := range clock.sleeps {
		if d != time.Second {
			t.Errorf("sleep = %v, want fixed 1s", d)
		}
	}
}

func TestWait_EndpointAppearsLater(t *testing.T) {
	w := NewWaiter(Config{Endpoint: "/run/mysqld.sock", MaxRetries: 30, RetryDelay: time.Second})

	polls := 0
	w.stat = func(string) (os.FileInfo, error) {
		polls++
		if polls < 4 {
			return nil, os.ErrNotExist
		}
		return nil, nil
	}
	w.sleep = (&fakeClock{}).sleep

	if err := w.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if polls != 4 {
		t.Errorf("polls = %d, want 4", polls)
	}
}

func TestWait_RealFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.sock")
	if err := os.WriteFile(path, nil, 0600); err != nil {
		t.Fatal(err)
	}

	w := NewWaiter(Config{Endpoint: path, MaxRetries: 1, RetryDelay: time.Millisecond})
	if err := w.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
}

func TestWait_NoEndpoint(t *testing.T) {
	w := NewWaiter(Config{})
	w.stat = func(string) (os.FileInfo, error) {
		t.Fatal("stat should not be called without an endpoint")
		return nil, nil
	}

	if err := w.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
}

func TestWait_ContextCancelled(t *testing.T) {
	w := NewWaiter(Config{
		Endpoint:   filepath.Join(t.TempDir(), "never"),
		MaxRetries: 100,
		RetryDelay: time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := w.Wait(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Wait() error = %v, want context.Canceled", err)
	}
	if errors.Is(err, ErrTimeout) {
		t.Error("cancellation must not be reported as a timeout")
	}
}

func TestNewWaiter_Defaults(t *testing.T) {
	w := NewWaiter(Config{Endpoint: "/x", RetryDelay: -1})
	if w.cfg.MaxRetries != DefaultMaxRetries {
		t.Errorf("MaxRetries = %d, want %d", w.cfg.MaxRetries, DefaultMaxRetries)
	}
	if w.cfg.RetryDelay != DefaultRetryDelay {
		t.Errorf("RetryDelay = %v, want %v", w.cfg.RetryDelay, DefaultRetryDelay)
	}
}
