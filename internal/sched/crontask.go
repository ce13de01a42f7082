package sched

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// cronGate is the polling granularity of cron-gated tasks. Cron resolution is
// one second at best (6-field specs), so checking more often buys nothing.
const cronGate = time.Second

// cronTask rides the interval loop while gating execution on a cron
// schedule: the task becomes due every cronGate, but the callback only fires
// once the schedule's next activation has passed.
type cronTask struct {
	name  string
	spec  string
	sched cron.Schedule
	fn    func() error

	mu   sync.Mutex
	next time.Time
}

// NewCronTask adapts a cron expression to the Task contract.
//
// Accepted specs: 5-field (min hour dom mon dow), 6-field with seconds, and
// descriptors such as "@hourly" or "@every 55m".
func NewCronTask(name, spec string, fn func() error) (Task, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("sched: cron task name required")
	}
	if fn == nil {
		return nil, errors.New("sched: cron task callback required")
	}
	// SecondOptional allows both 5-field and 6-field (with seconds) cron specs.
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	s, err := parser.Parse(spec)
	if err != nil {
		return nil, err
	}
	return &cronTask{name: name, spec: spec, sched: s, fn: fn}, nil
}

func (t *cronTask) Name() string            { return t.name }
func (t *cronTask) Interval() time.Duration { return cronGate }

func (t *cronTask) Execute(time.Duration) error {
	now := time.Now()

	t.mu.Lock()
	if t.next.IsZero() {
		t.next = t.sched.Next(now)
	}
	if now.Before(t.next) {
		t.mu.Unlock()
		return nil
	}
	t.next = t.sched.Next(now)
	t.mu.Unlock()

	return t.fn()
}

// OnRegistered seeds the first activation so the schedule counts from
// registration time, mirroring how plain tasks wait out one full interval.
func (t *cronTask) OnRegistered(Scheduler) {
	now := time.Now()
	t.mu.Lock()
	t.next = t.sched.Next(now)
	t.mu.Unlock()
}

func (t *cronTask) OnUnregistered(Scheduler) {
	t.mu.Lock()
	t.next = time.Time{}
	t.mu.Unlock()
}
