package sched

import (
	"time"

	"pulse/internal/eventbus"
	logx "pulse/pkg/logx"
)

// Failure describes one task execution failure. One Failure is reported per
// missed interval; there is no backoff or circuit breaker at this level.
type Failure struct {
	Worker  string
	Task    string
	Elapsed time.Duration
	Err     error
	At      time.Time
}

// FailureSink receives per-task execution failures. It is the subsystem's
// only output channel besides the side effects of the tasks themselves.
// Implementations must be safe for concurrent use and must not block.
type FailureSink interface {
	Report(f Failure)
}

type logSink struct {
	log logx.Logger
}

// NewLogSink reports failures as structured warnings.
func NewLogSink(log logx.Logger) FailureSink {
	return logSink{log: log}
}

func (s logSink) Report(f Failure) {
	s.log.Warn("task failed",
		logx.String("worker", f.Worker),
		logx.String("task", f.Task),
		logx.Duration("elapsed", f.Elapsed),
		logx.Err(f.Err),
	)
}

type busSink struct {
	bus eventbus.Bus
}

// NewBusSink publishes failures as task.failed events.
func NewBusSink(bus eventbus.Bus) FailureSink {
	return busSink{bus: bus}
}

func (s busSink) Report(f Failure) {
	if s.bus == nil {
		return
	}
	msg := ""
	if f.Err != nil {
		msg = f.Err.Error()
	}
	s.bus.Publish(eventbus.Event{
		Topic: eventbus.TopicTaskFailed,
		Time:  f.At,
		Data:  eventbus.TaskEvent{Worker: f.Worker, Task: f.Task, Elapsed: f.Elapsed, Error: msg},
	})
}

// MultiSink fans a failure out to every sink in order.
type MultiSink []FailureSink

func (m MultiSink) Report(f Failure) {
	for _, s := range m {
		if s != nil {
			s.Report(f)
		}
	}
}

type nopSink struct{}

func (nopSink) Report(Failure) {}
