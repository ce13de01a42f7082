package sched

import (
	"context"
	"fmt"
	"sync"

	"pulse/internal/eventbus"
	logx "pulse/pkg/logx"
)

// AtomicScheduler distributes tasks round-robin across a fixed pool of
// workers with fully independent state. One worker's fault cannot affect the
// others' task lists or timing, which is the resilience property this
// strategy exists for.
type AtomicScheduler struct {
	log logx.Logger

	// mu serializes the rotation; registrations may arrive from any
	// goroutine concurrently.
	mu   sync.Mutex
	ring []*worker

	workers []*worker
}

// NewAtomic builds a pool of cfg.Workers independent workers.
// It returns ErrPoolSize when cfg.Workers < 1; the size is never clamped.
func NewAtomic(cfg Config, log logx.Logger, sink FailureSink, bus eventbus.Bus) (*AtomicScheduler, error) {
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrPoolSize, cfg.Workers)
	}

	workers := make([]*worker, cfg.Workers)
	for i := range workers {
		workers[i] = newWorker(fmt.Sprintf("worker-%d", i), newRegistry(), cfg, log, sink, bus)
	}
	return &AtomicScheduler{
		log:     log,
		ring:    append([]*worker(nil), workers...),
		workers: workers,
	}, nil
}

// nextWorker rotates the ring: pop the front, push it to the back. Every
// registration advances the rotation by one, giving approximate (not
// workload-aware) balancing.
func (s *AtomicScheduler) nextWorker() *worker {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.ring[0]
	s.ring = append(s.ring[1:], w)
	return w
}

func (s *AtomicScheduler) Register(t Task) error {
	if err := validateTasks([]Task{t}); err != nil {
		return err
	}
	return s.nextWorker().Register(t)
}

// RegisterSync places the whole batch onto one rotation slot, preserving the
// batch's relative execution order. An empty batch does not advance the
// rotation.
func (s *AtomicScheduler) RegisterSync(tasks ...Task) error {
	if err := validateTasks(tasks); err != nil {
		return err
	}
	if len(tasks) == 0 {
		return nil
	}
	return s.nextWorker().RegisterSync(tasks...)
}

// RegisterAsync fans the batch out: each task takes its own rotation step.
func (s *AtomicScheduler) RegisterAsync(tasks ...Task) error {
	if err := validateTasks(tasks); err != nil {
		return err
	}
	for _, t := range tasks {
		if err := s.nextWorker().Register(t); err != nil {
			return err
		}
	}
	return nil
}

// Unregister broadcasts to every worker: the caller does not track which
// worker holds which task, and removal is a cheap no-op where absent.
func (s *AtomicScheduler) Unregister(tasks ...Task) error {
	for _, t := range tasks {
		if t == nil {
			return ErrNilTask
		}
	}
	for _, w := range s.workers {
		if err := w.Unregister(tasks...); err != nil {
			return err
		}
	}
	return nil
}

func (s *AtomicScheduler) Initialize() error {
	for _, w := range s.workers {
		if err := w.Initialize(); err != nil {
			return err
		}
	}
	return nil
}

func (s *AtomicScheduler) Start(ctx context.Context) error {
	for _, w := range s.workers {
		if err := w.Start(ctx); err != nil {
			return err
		}
	}
	s.log.Info("scheduler started", logx.String("strategy", "atomic"), logx.Int("workers", len(s.workers)))
	return nil
}

func (s *AtomicScheduler) Interrupt() {
	for _, w := range s.workers {
		w.Interrupt()
	}
}

func (s *AtomicScheduler) Terminate() { s.Interrupt() }

// TaskCount reports the number of registered tasks across all workers.
func (s *AtomicScheduler) TaskCount() int {
	n := 0
	for _, w := range s.workers {
		n += w.taskCount()
	}
	return n
}

var _ Scheduler = (*AtomicScheduler)(nil)
