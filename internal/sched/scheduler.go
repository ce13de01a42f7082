package sched

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrPoolSize is returned by pool constructors when workers < 1.
	// The size is never silently clamped.
	ErrPoolSize = errors.New("sched: pool size must be at least 1")

	// ErrNilTask is returned when a nil task reaches a registration boundary.
	ErrNilTask = errors.New("sched: nil task")

	// ErrNegativeInterval is returned when a task reports an interval < 0.
	ErrNegativeInterval = errors.New("sched: negative task interval")
)

// Scheduler is the registration and lifecycle contract shared by all
// scheduling strategies.
//
// Lifecycle calls are idempotent: Initialize and Start may be repeated,
// Interrupt after the workers already stopped is a no-op. Terminate is an
// alias for Interrupt; no distinct hard-kill semantics exist.
type Scheduler interface {
	// Register adds one task to a worker chosen by the strategy.
	Register(t Task) error

	// RegisterSync places every task onto the same single worker, in call
	// order. This is the only mechanism guaranteeing relative execution
	// order between tasks.
	RegisterSync(tasks ...Task) error

	// RegisterAsync assigns each task independently; no ordering guarantee
	// across tasks.
	RegisterAsync(tasks ...Task) error

	// Unregister removes tasks wherever they are held. Removing a task that
	// is not present is a no-op.
	Unregister(tasks ...Task) error

	// Initialize performs idempotent setup before Start.
	Initialize() error

	// Start launches the worker goroutine(s). The loops exit when ctx is
	// done or Interrupt is called. Starting a running scheduler is a no-op.
	Start(ctx context.Context) error

	// Interrupt signals a graceful stop without blocking for completion.
	// In-flight task executions finish; only the next pass is prevented.
	Interrupt()

	// Terminate is an alias for Interrupt.
	Terminate()
}

// Config carries construction-time settings shared by all strategies.
type Config struct {
	// Workers is the pool size for AtomicScheduler and CommunalScheduler.
	// SyncScheduler ignores it (always one worker).
	Workers int

	// IdleSleep bounds the pause after a pass that executed nothing.
	// Zero keeps the strict busy loop (yield only).
	IdleSleep time.Duration
}

func validateTasks(tasks []Task) error {
	for _, t := range tasks {
		if t == nil {
			return ErrNilTask
		}
		if t.Interval() < 0 {
			return fmt.Errorf("%w: task %s reports %v", ErrNegativeInterval, taskName(t), t.Interval())
		}
	}
	return nil
}
