// Package lock provides the file lock that keeps chart runs from
// overlapping.
//
// The lock is a file created with O_EXCL. Whoever creates it holds the
// lock until the file is removed. A waiter re-checks at a fixed delay and
// never gives up on its own; only context cancellation ends the wait.
//
// A holder that crashes leaves the file behind. Two opt-in safeguards can
// break such a lock: an age limit on the file and a liveness check on the
// PID written into it.
//
// Usage:
//
//	guard, err := lock.NewGuard(lock.Config{Path: "/tmp/graylogic-charts.lock"})
//	l, err := guard.Acquire(ctx)
//	if err != nil {
//	    return err
//	}
//	defer l.Release()
package lock
