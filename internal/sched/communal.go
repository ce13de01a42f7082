package sched

import (
	"context"
	"fmt"
	"time"

	"pulse/internal/eventbus"
	logx "pulse/pkg/logx"
)

// CommunalScheduler runs a pool of workers over one shared task list and one
// shared timestamp map. Registration and unregistration happen once against
// the shared registry instead of being broadcast, at the cost of the atomic
// strategy's per-worker fault isolation.
//
// Workers racing on the shared registry claim a due task by updating its
// timestamp inside the registry's critical section, so a task never executes
// more often than its interval even when several workers see it due in the
// same pass. A task unregistered between a worker's snapshot and its claim is
// simply skipped.
type CommunalScheduler struct {
	log    logx.Logger
	shared *registry

	workers []*worker
}

// NewCommunal builds a pool of cfg.Workers workers over one shared registry.
// It returns ErrPoolSize when cfg.Workers < 1.
func NewCommunal(cfg Config, log logx.Logger, sink FailureSink, bus eventbus.Bus) (*CommunalScheduler, error) {
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrPoolSize, cfg.Workers)
	}

	shared := newRegistry()
	workers := make([]*worker, cfg.Workers)
	for i := range workers {
		workers[i] = newWorker(fmt.Sprintf("worker-%d", i), shared, cfg, log, sink, bus)
	}
	return &CommunalScheduler{log: log, shared: shared, workers: workers}, nil
}

func (s *CommunalScheduler) Register(t Task) error {
	return s.RegisterSync(t)
}

func (s *CommunalScheduler) RegisterSync(tasks ...Task) error {
	if err := validateTasks(tasks); err != nil {
		return err
	}
	for _, t := range tasks {
		s.shared.add(t, time.Now())
		t.OnRegistered(s)
	}
	return nil
}

// RegisterAsync is RegisterSync here: there is only one place for tasks to
// go, and which worker picks a task up is decided pass by pass anyway.
func (s *CommunalScheduler) RegisterAsync(tasks ...Task) error {
	return s.RegisterSync(tasks...)
}

func (s *CommunalScheduler) Unregister(tasks ...Task) error {
	for _, t := range tasks {
		if t == nil {
			return ErrNilTask
		}
	}
	for _, t := range tasks {
		if s.shared.remove(t) {
			t.OnUnregistered(s)
		}
	}
	return nil
}

func (s *CommunalScheduler) Initialize() error {
	for _, w := range s.workers {
		if err := w.Initialize(); err != nil {
			return err
		}
	}
	return nil
}

func (s *CommunalScheduler) Start(ctx context.Context) error {
	for _, w := range s.workers {
		if err := w.Start(ctx); err != nil {
			return err
		}
	}
	s.log.Info("scheduler started", logx.String("strategy", "communal"), logx.Int("workers", len(s.workers)))
	return nil
}

func (s *CommunalScheduler) Interrupt() {
	for _, w := range s.workers {
		w.Interrupt()
	}
}

func (s *CommunalScheduler) Terminate() { s.Interrupt() }

// TaskCount reports the number of tasks in the shared registry.
func (s *CommunalScheduler) TaskCount() int { return s.shared.len() }

var _ Scheduler = (*CommunalScheduler)(nil)
