package sched

import (
	"sync"
	"time"
)

// registry holds one task list and its execution-time map. Every task in
// tasks has an entry in last (seeded at registration). A registry is private
// to one worker in the sync/atomic strategies and shared by the whole pool in
// the communal strategy, so all access goes through the mutex.
type registry struct {
	mu    sync.Mutex
	tasks []Task
	last  map[Task]time.Time
}

func newRegistry() *registry {
	return &registry{last: make(map[Task]time.Time)}
}

// add appends t in insertion order and seeds its timestamp to now, so the
// first execution happens after one full interval.
func (r *registry) add(t Task, now time.Time) {
	r.mu.Lock()
	r.tasks = append(r.tasks, t)
	r.last[t] = now
	r.mu.Unlock()
}

// remove deletes t from both structures. It reports whether t was present.
func (r *registry) remove(t Task) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, present := r.last[t]
	if !present {
		return false
	}
	delete(r.last, t)
	for i, cur := range r.tasks {
		if cur == t {
			r.tasks = append(r.tasks[:i], r.tasks[i+1:]...)
			break
		}
	}
	return true
}

// snapshot returns a stable copy of the task list so the caller can iterate
// while registration and unregistration proceed concurrently.
func (r *registry) snapshot() []Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.tasks) == 0 {
		return nil
	}
	cp := make([]Task, len(r.tasks))
	copy(cp, r.tasks)
	return cp
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// claim atomically checks whether t is due at now and, if so, records now as
// its new execution start. The check and the update share one critical
// section so racing workers on a shared registry cannot double-run a task.
//
// A missing timestamp means t was unregistered after the caller's snapshot;
// the claim fails and the task is skipped.
func (r *registry) claim(t Task, now time.Time) (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.last[t]
	if !ok {
		return 0, false
	}
	elapsed := now.Sub(prev)
	if elapsed < t.Interval() {
		return 0, false
	}
	// Recorded before the task runs, success or not: a persistently failing
	// task still waits out its interval instead of busy-retrying.
	r.last[t] = now
	return elapsed, true
}
