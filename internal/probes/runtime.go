package probes

import (
	"runtime"
	"time"

	"pulse/internal/sched"
	logx "pulse/pkg/logx"
)

// DefaultRuntimeInterval is used when the config leaves the interval empty.
const DefaultRuntimeInterval = time.Minute

// RuntimeStats samples the Go runtime and logs a compact snapshot: goroutine
// count, heap in use, and GC activity since the previous sample.
type RuntimeStats struct {
	log      logx.Logger
	interval time.Duration

	lastGC uint32
}

func NewRuntimeStats(interval time.Duration, log logx.Logger) *RuntimeStats {
	if interval <= 0 {
		interval = DefaultRuntimeInterval
	}
	return &RuntimeStats{log: log, interval: interval}
}

func (r *RuntimeStats) Name() string            { return "runtime-stats" }
func (r *RuntimeStats) Interval() time.Duration { return r.interval }

func (r *RuntimeStats) Execute(elapsed time.Duration) error {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	gcDelta := m.NumGC - r.lastGC
	r.lastGC = m.NumGC

	r.log.Info("runtime stats",
		logx.Int("goroutines", runtime.NumGoroutine()),
		logx.Uint64("heap_in_use_bytes", m.HeapInuse),
		logx.Uint64("heap_objects", m.HeapObjects),
		logx.Uint64("total_alloc_bytes", m.TotalAlloc),
		logx.Int("gc_runs", int(gcDelta)),
		logx.Duration("elapsed", elapsed.Truncate(time.Millisecond)),
	)
	return nil
}

func (r *RuntimeStats) OnRegistered(sched.Scheduler) { r.lastGC = 0 }

func (r *RuntimeStats) OnUnregistered(sched.Scheduler) {}
