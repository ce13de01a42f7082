package sched

import (
	"fmt"
	"time"
)

// Task is a recurring unit of work.
//
// Tasks are compared by identity: implement Task with a pointer receiver so
// that registration, unregistration and timestamp tracking all refer to the
// same instance. A task has no equality beyond identity.
type Task interface {
	// Interval is the minimum duration between consecutive executions.
	// It must be non-negative and must not change after registration.
	// Zero means "run on every pass".
	Interval() time.Duration

	// Execute performs the work. elapsed is the actual time since the last
	// execution start (not the nominal interval), enabling rate-independent
	// logic. Errors are reported to the scheduler's failure sink; they do
	// not unregister the task.
	Execute(elapsed time.Duration) error

	// OnRegistered fires synchronously when the task is added to a
	// scheduling entity, OnUnregistered when it is removed.
	OnRegistered(owner Scheduler)
	OnUnregistered(owner Scheduler)
}

// Named is implemented by tasks that carry a human-readable name.
// Unnamed tasks are identified by their Go type in logs and events.
type Named interface {
	Name() string
}

func taskName(t Task) string {
	if n, ok := t.(Named); ok {
		if s := n.Name(); s != "" {
			return s
		}
	}
	return fmt.Sprintf("%T", t)
}

// funcTask adapts a closure to the Task contract.
type funcTask struct {
	name     string
	interval time.Duration
	fn       func(elapsed time.Duration) error
}

// NewTask wraps fn as a named Task with the given interval.
// Lifecycle hooks are no-ops; implement Task directly when they matter.
func NewTask(name string, interval time.Duration, fn func(elapsed time.Duration) error) Task {
	return &funcTask{name: name, interval: interval, fn: fn}
}

func (t *funcTask) Name() string            { return t.name }
func (t *funcTask) Interval() time.Duration { return t.interval }

func (t *funcTask) Execute(elapsed time.Duration) error {
	if t.fn == nil {
		return nil
	}
	return t.fn(elapsed)
}

func (t *funcTask) OnRegistered(Scheduler)   {}
func (t *funcTask) OnUnregistered(Scheduler) {}
