package sched

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"pulse/internal/eventbus"
	logx "pulse/pkg/logx"
)

// worker owns one execution loop. In the sync and atomic strategies the
// registry is private to the worker; in the communal strategy every worker in
// the pool scans the same registry.
//
// Lifecycle: created -> running -> stopped. There is no pause or restart;
// stopping is signalled through stopCh and checked at the top of every pass.
type worker struct {
	name string
	log  logx.Logger
	sink FailureSink
	bus  eventbus.Bus
	idle time.Duration

	reg *registry

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	done      chan struct{}
}

func newWorker(name string, reg *registry, cfg Config, log logx.Logger, sink FailureSink, bus eventbus.Bus) *worker {
	if sink == nil {
		sink = NewLogSink(log)
	}
	return &worker{
		name:   name,
		log:    log.With(logx.String("worker", name)),
		sink:   sink,
		bus:    bus,
		idle:   cfg.IdleSleep,
		reg:    reg,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// ---- Scheduler contract ----

func (w *worker) Register(t Task) error {
	return w.RegisterSync(t)
}

func (w *worker) RegisterSync(tasks ...Task) error {
	if err := validateTasks(tasks); err != nil {
		return err
	}
	for _, t := range tasks {
		w.reg.add(t, time.Now())
		t.OnRegistered(w)
	}
	return nil
}

// RegisterAsync on a single worker degenerates to RegisterSync: there is only
// one place for the tasks to go.
func (w *worker) RegisterAsync(tasks ...Task) error {
	return w.RegisterSync(tasks...)
}

func (w *worker) Unregister(tasks ...Task) error {
	for _, t := range tasks {
		if t == nil {
			return ErrNilTask
		}
	}
	for _, t := range tasks {
		if w.reg.remove(t) {
			t.OnUnregistered(w)
		}
	}
	return nil
}

func (w *worker) Initialize() error { return nil }

func (w *worker) Start(ctx context.Context) error {
	w.startOnce.Do(func() {
		go w.run(ctx)
	})
	return nil
}

func (w *worker) Interrupt() {
	w.stopOnce.Do(func() { close(w.stopCh) })
}

func (w *worker) Terminate() { w.Interrupt() }

// Done is closed when the run loop has exited.
func (w *worker) Done() <-chan struct{} { return w.done }

func (w *worker) taskCount() int { return w.reg.len() }

// ---- Run loop ----

func (w *worker) run(ctx context.Context) {
	defer close(w.done)
	w.log.Debug("worker started")
	defer w.log.Debug("worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		default:
		}

		ran := false
		for _, t := range w.reg.snapshot() {
			now := time.Now()
			elapsed, due := w.reg.claim(t, now)
			if !due {
				continue
			}
			w.invoke(t, elapsed, now)
			ran = true
		}

		if ran {
			continue
		}
		if w.idle <= 0 {
			// Strict mode: yield, never sleep, so a newly due task is
			// picked up with minimal latency.
			runtime.Gosched()
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-time.After(w.idle):
		}
	}
}

func (w *worker) invoke(t Task, elapsed time.Duration, start time.Time) {
	name := taskName(t)
	if w.bus != nil {
		w.bus.Publish(eventbus.Event{
			Topic: eventbus.TopicTaskStarted,
			Time:  start,
			Data:  eventbus.TaskEvent{Worker: w.name, Task: name, Elapsed: elapsed},
		})
	}

	err := execute(t, elapsed)
	took := time.Since(start)

	if err != nil {
		w.sink.Report(Failure{Worker: w.name, Task: name, Elapsed: elapsed, Err: err, At: start})
		return
	}

	w.log.Trace("task completed", logx.String("task", name), logx.Duration("elapsed", elapsed), logx.Duration("took", took))
	if w.bus != nil {
		w.bus.Publish(eventbus.Event{
			Topic: eventbus.TopicTaskCompleted,
			Time:  time.Now(),
			Data:  eventbus.TaskEvent{Worker: w.name, Task: name, Elapsed: elapsed, Took: took},
		})
	}
}

// execute isolates one task invocation: a panic inside Execute surfaces as an
// error instead of killing the worker loop.
func execute(t Task, elapsed time.Duration) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return t.Execute(elapsed)
}
