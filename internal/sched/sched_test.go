package sched

import (
	"sync"
	"testing"
	"time"

	logx "pulse/pkg/logx"
)

// recordingTask is the shared test task: it records execution times, elapsed
// values, lifecycle hook calls and the owner it was registered with, and can
// be told to fail, panic, or run a callback on execution.
type recordingTask struct {
	name     string
	interval time.Duration
	fail     error
	panicMsg string
	onExec   func(t *recordingTask)

	mu           sync.Mutex
	execs        []time.Time
	elapsed      []time.Duration
	owner        Scheduler
	registered   int
	unregistered int
}

func (t *recordingTask) Name() string            { return t.name }
func (t *recordingTask) Interval() time.Duration { return t.interval }

func (t *recordingTask) Execute(elapsed time.Duration) error {
	t.mu.Lock()
	t.execs = append(t.execs, time.Now())
	t.elapsed = append(t.elapsed, elapsed)
	fn := t.onExec
	t.mu.Unlock()

	if fn != nil {
		fn(t)
	}
	if t.panicMsg != "" {
		panic(t.panicMsg)
	}
	return t.fail
}

func (t *recordingTask) OnRegistered(owner Scheduler) {
	t.mu.Lock()
	t.owner = owner
	t.registered++
	t.mu.Unlock()
}

func (t *recordingTask) OnUnregistered(Scheduler) {
	t.mu.Lock()
	t.unregistered++
	t.mu.Unlock()
}

func (t *recordingTask) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.execs)
}

func (t *recordingTask) firstExec() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.execs) == 0 {
		return time.Time{}, false
	}
	return t.execs[0], true
}

func (t *recordingTask) hookCounts() (registered, unregistered int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.registered, t.unregistered
}

// countingSink records reported failures.
type countingSink struct {
	mu       sync.Mutex
	failures []Failure
}

func (s *countingSink) Report(f Failure) {
	s.mu.Lock()
	s.failures = append(s.failures, f)
	s.mu.Unlock()
}

func (s *countingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.failures)
}

// testConfig keeps test loops polite to the CPU without losing timeliness.
func testConfig(workers int) Config {
	return Config{Workers: workers, IdleSleep: time.Millisecond}
}

func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func testLogger() logx.Logger { return logx.Nop() }
