// Package process runs short-lived helper programs such as gnuplot.
//
// Features:
//   - Script input on stdin
//   - Capture of the tail of stdout/stderr for error reports and logs
//   - Per-run timeout and context cancellation
//   - Graceful stop: SIGTERM to the whole process group, SIGKILL after a
//     grace period
//
// Example usage:
//
//	r := process.NewRunner()
//	res, err := r.Run(ctx, process.Config{
//	    Name:    "gnuplot",
//	    Binary:  "/usr/bin/gnuplot",
//	    Stdin:   strings.NewReader(script),
//	    Timeout: time.Minute,
//	})
//	if err != nil {
//	    log.Printf("gnuplot failed: %v (%s)", err, res.Stderr)
//	}
package process
