package journal

import (
	"context"
	"time"

	"pulse/internal/eventbus"
	logx "pulse/pkg/logx"
)

// Recorder subscribes to task completion and failure events and appends one
// RunRecord per event. It is the only writer of the journal; schedulers know
// nothing about persistence.
type Recorder struct {
	log   logx.Logger
	bus   eventbus.Bus
	store Store
}

func NewRecorder(store Store, bus eventbus.Bus, log logx.Logger) *Recorder {
	return &Recorder{log: log.With(logx.String("svc", "journal")), bus: bus, store: store}
}

// Run drains bus events until ctx is done. Append errors are logged and
// dropped; run history is best-effort and must never stall the bus.
func (r *Recorder) Run(ctx context.Context) error {
	ch, unsub := r.bus.Subscribe(128)
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			rec, ok := toRecord(ev)
			if !ok {
				continue
			}
			wctx, cancel := context.WithTimeout(context.Background(), time.Second)
			err := r.store.AppendRun(wctx, rec)
			cancel()
			if err != nil {
				r.log.Warn("journal append failed", logx.String("task", rec.Task), logx.Err(err))
			}
		}
	}
}

func toRecord(ev eventbus.Event) (RunRecord, bool) {
	te, ok := ev.Data.(eventbus.TaskEvent)
	if !ok {
		return RunRecord{}, false
	}
	switch ev.Topic {
	case eventbus.TopicTaskCompleted:
		return RunRecord{At: ev.Time, Worker: te.Worker, Task: te.Task, Elapsed: te.Elapsed, Took: te.Took, OK: true}, true
	case eventbus.TopicTaskFailed:
		return RunRecord{At: ev.Time, Worker: te.Worker, Task: te.Task, Elapsed: te.Elapsed, Took: te.Took, Error: te.Error}, true
	default:
		return RunRecord{}, false
	}
}
