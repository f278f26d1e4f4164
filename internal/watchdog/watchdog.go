// Package watchdog force-kills the process if it runs past a deadline,
// a safety net for the one-shot CLI against a hung UIA/COM call that a
// per-command timeout inside the daemon loop never gets a chance to catch
// because the hang happens before the loop is even reached.
package watchdog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// DefaultTimeout matches the original's module-level default.
const DefaultTimeout = 30 * time.Second

var osExit = os.Exit

// Start arms a timer that kills the process after timeout, writing a JSON
// error line to stderr first. Canceling ctx or calling the returned stop
// function disarms it.
func Start(ctx context.Context, timeout time.Duration) (stop func()) {
	pid := os.Getpid()
	timer := time.AfterFunc(timeout, func() {
		msg, _ := json.Marshal(map[string]any{
			"ok":    false,
			"error": fmt.Sprintf("Nexus timed out after %s (PID %d)", timeout, pid),
		})
		fmt.Fprintln(os.Stderr, string(msg))
		osExit(1)
	})

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-done:
		}
	}()

	return func() {
		close(done)
		timer.Stop()
	}
}
