package sched

import (
	"pulse/internal/eventbus"
	logx "pulse/pkg/logx"
)

// SyncScheduler is a scheduler that is a single worker: every operation
// forwards directly, so all tasks execute on one goroutine in deterministic
// registration order.
type SyncScheduler struct {
	*worker
}

// NewSync builds a single-worker scheduler. sink may be nil (defaults to a
// log-backed sink), bus may be nil (no events published).
func NewSync(cfg Config, log logx.Logger, sink FailureSink, bus eventbus.Bus) *SyncScheduler {
	return &SyncScheduler{
		worker: newWorker("worker-0", newRegistry(), cfg, log, sink, bus),
	}
}

// TaskCount reports the number of currently registered tasks.
func (s *SyncScheduler) TaskCount() int { return s.taskCount() }

var _ Scheduler = (*SyncScheduler)(nil)
