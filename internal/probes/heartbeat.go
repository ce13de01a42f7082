package probes

import (
	"sync"
	"time"

	"pulse/internal/sched"
	logx "pulse/pkg/logx"
)

// DefaultHeartbeatInterval is used when the config leaves the interval empty.
const DefaultHeartbeatInterval = 30 * time.Second

// Heartbeat logs one line per interval with the process uptime. Its main job
// is to prove the scheduler is alive in production logs.
type Heartbeat struct {
	log      logx.Logger
	interval time.Duration

	mu    sync.Mutex
	since time.Time
	beats uint64
}

func NewHeartbeat(interval time.Duration, log logx.Logger) *Heartbeat {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	return &Heartbeat{log: log, interval: interval}
}

func (h *Heartbeat) Name() string            { return "heartbeat" }
func (h *Heartbeat) Interval() time.Duration { return h.interval }

func (h *Heartbeat) Execute(elapsed time.Duration) error {
	h.mu.Lock()
	h.beats++
	beats := h.beats
	uptime := time.Since(h.since)
	h.mu.Unlock()

	h.log.Info("heartbeat",
		logx.Uint64("beat", beats),
		logx.Duration("uptime", uptime.Truncate(time.Second)),
		logx.Duration("elapsed", elapsed.Truncate(time.Millisecond)),
	)
	return nil
}

func (h *Heartbeat) OnRegistered(sched.Scheduler) {
	h.mu.Lock()
	h.since = time.Now()
	h.beats = 0
	h.mu.Unlock()
}

func (h *Heartbeat) OnUnregistered(sched.Scheduler) {}
