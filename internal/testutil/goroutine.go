// Package testutil holds helpers shared by the gateway's tests
package testutil

import (
	"runtime"
	"testing"
	"time"
)

// LeakDetector fails a test when goroutines started during it are still
// running at the end. Background goroutines of watchers, fan-out workers
// and HTTP clients get a grace period to exit.
type LeakDetector struct {
	t             testing.TB
	initialCount  int
	allowedGrowth int
	grace         time.Duration
	pollInterval  time.Duration
}

// NewLeakDetector records the current goroutine count
func NewLeakDetector(t testing.TB) *LeakDetector {
	t.Helper()
	return &LeakDetector{
		t:            t,
		initialCount: runtime.NumGoroutine(),
		grace:        2 * time.Second,
		pollInterval: 50 * time.Millisecond,
	}
}

// AllowGrowth tolerates n goroutines above the initial count, for example
// pooled HTTP connections kept alive by a shared transport.
func (d *LeakDetector) AllowGrowth(n int) *LeakDetector {
	d.allowedGrowth = n
	return d
}

// Check waits up to the grace period for the count to fall back and
// reports the stacks of everything still running if it does not.
func (d *LeakDetector) Check() {
	d.t.Helper()
	deadline := time.Now().Add(d.grace)
	count := runtime.NumGoroutine()
	for count-d.initialCount > d.allowedGrowth && time.Now().Before(deadline) {
		time.Sleep(d.pollInterval)
		count = runtime.NumGoroutine()
	}

	leaked := count - d.initialCount
	if leaked <= d.allowedGrowth {
		return
	}
	buf := make([]byte, 1<<20)
	n := runtime.Stack(buf, true)
	d.t.Errorf("goroutine leak: started with %d, ended with %d (allowed growth %d)\n%s",
		d.initialCount, count, d.allowedGrowth, buf[:n])
}
