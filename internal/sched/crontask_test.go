package sched

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestNewCronTaskValidation(t *testing.T) {
	t.Parallel()
	ok := func() error { return nil }

	if _, err := NewCronTask("", "@hourly", ok); err == nil {
		t.Fatal("empty name accepted")
	}
	if _, err := NewCronTask("job", "@hourly", nil); err == nil {
		t.Fatal("nil callback accepted")
	}
	if _, err := NewCronTask("job", "not a cron spec", ok); err == nil {
		t.Fatal("invalid spec accepted")
	}

	for _, spec := range []string{"* * * * *", "*/5 * * * * *", "@hourly", "@every 55m"} {
		if _, err := NewCronTask("job", spec, ok); err != nil {
			t.Fatalf("NewCronTask(%q) err = %v", spec, err)
		}
	}
}

func TestCronTaskGatesOnSchedule(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	task, err := NewCronTask("gated", "@every 1h", func() error {
		calls.Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("NewCronTask: %v", err)
	}

	task.OnRegistered(nil)
	// Next activation is an hour out: the interval loop may invoke the task
	// every second, but the callback must not fire.
	for i := 0; i < 5; i++ {
		if err := task.Execute(cronGate); err != nil {
			t.Fatalf("Execute: %v", err)
		}
	}
	if got := calls.Load(); got != 0 {
		t.Fatalf("callback fired %d times before the schedule was due", got)
	}
}

func TestCronTaskFiresOncePastActivation(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	task, err := NewCronTask("due", "@every 1h", func() error {
		calls.Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("NewCronTask: %v", err)
	}

	// Backdate the next activation instead of waiting an hour.
	ct := task.(*cronTask)
	ct.mu.Lock()
	ct.next = time.Now().Add(-time.Minute)
	ct.mu.Unlock()

	if err := task.Execute(cronGate); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("callback fired %d times, want 1", got)
	}

	// The activation was re-armed an hour out, so it does not fire again.
	if err := task.Execute(cronGate); err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("callback fired %d times after re-arm, want 1", got)
	}
}

func TestCronTaskIntervalIsTheGate(t *testing.T) {
	t.Parallel()
	task, err := NewCronTask("tick", "* * * * *", func() error { return nil })
	if err != nil {
		t.Fatalf("NewCronTask: %v", err)
	}
	if got := task.Interval(); got != cronGate {
		t.Fatalf("Interval = %v, want %v", got, cronGate)
	}
	if n, ok := task.(Named); !ok || n.Name() != "tick" {
		t.Fatalf("cron task does not expose its name")
	}
}
