package testutil

import (
	"testing"
	"time"
)

type recordingTB struct {
	testing.TB
	failed bool
}

func (r *recordingTB) Helper() {}

func (r *recordingTB) Errorf(string, ...interface{}) { r.failed = true }

func TestLeakDetectorPasses(t *testing.T) {
	d := NewLeakDetector(t)
	done := make(chan struct{})
	go func() { <-done }()
	close(done)
	d.Check()
}

func TestLeakDetectorReportsLeak(t *testing.T) {
	rec := &recordingTB{TB: t}
	d := NewLeakDetector(rec)
	d.grace = 100 * time.Millisecond

	stop := make(chan struct{})
	defer close(stop)
	go func() { <-stop }()

	d.Check()
	if !rec.failed {
		t.Fatal("leaked goroutine was not reported")
	}
}
