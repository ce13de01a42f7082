package sched

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewAtomicRejectsBadPoolSize(t *testing.T) {
	t.Parallel()
	for _, n := range []int{0, -1, -7} {
		if _, err := NewAtomic(Config{Workers: n}, testLogger(), nil, nil); !errors.Is(err, ErrPoolSize) {
			t.Fatalf("NewAtomic(workers=%d) err = %v, want ErrPoolSize", n, err)
		}
	}
	if _, err := NewAtomic(Config{Workers: 1}, testLogger(), nil, nil); err != nil {
		t.Fatalf("NewAtomic(workers=1) err = %v", err)
	}
}

func TestRoundRobinAssignsDistinctWorkersFirst(t *testing.T) {
	t.Parallel()
	const n = 4
	s, err := NewAtomic(testConfig(n), testLogger(), nil, nil)
	if err != nil {
		t.Fatalf("NewAtomic: %v", err)
	}

	for i := 0; i < n; i++ {
		if err := s.Register(&recordingTask{name: "t"}); err != nil {
			t.Fatalf("Register %d: %v", i, err)
		}
	}
	// No worker receives a second task until all received one.
	for i, w := range s.workers {
		if got := w.taskCount(); got != 1 {
			t.Fatalf("worker %d holds %d tasks, want 1", i, got)
		}
	}
}

func TestRoundRobinDistributionTwoWorkersThreeTasks(t *testing.T) {
	t.Parallel()
	s, err := NewAtomic(testConfig(2), testLogger(), nil, nil)
	if err != nil {
		t.Fatalf("NewAtomic: %v", err)
	}

	t1 := &recordingTask{name: "t1"}
	t2 := &recordingTask{name: "t2"}
	t3 := &recordingTask{name: "t3"}
	for _, task := range []Task{t1, t2, t3} {
		if err := s.Register(task); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}

	// 1 -> w0, 2 -> w1, 3 -> w0.
	if got := s.workers[0].taskCount(); got != 2 {
		t.Fatalf("worker 0 holds %d tasks, want 2", got)
	}
	if got := s.workers[1].taskCount(); got != 1 {
		t.Fatalf("worker 1 holds %d tasks, want 1", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = s.Start(ctx)
	defer s.Interrupt()

	waitFor(t, 2*time.Second, "all three tasks to run", func() bool {
		return t1.count() > 0 && t2.count() > 0 && t3.count() > 0
	})
}

func TestRegisterSyncKeepsBatchOnOneWorkerInOrder(t *testing.T) {
	t.Parallel()
	s, err := NewAtomic(testConfig(3), testLogger(), nil, nil)
	if err != nil {
		t.Fatalf("NewAtomic: %v", err)
	}

	var mu sync.Mutex
	var order []string
	record := func(name string) func(*recordingTask) {
		return func(*recordingTask) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
		}
	}

	// Large interval: each task runs exactly once during the test window.
	a := &recordingTask{name: "A", interval: time.Hour}
	b := &recordingTask{name: "B", interval: time.Hour}
	c := &recordingTask{name: "C", interval: time.Hour}
	a.onExec, b.onExec, c.onExec = record("A"), record("B"), record("C")

	if err := s.RegisterSync(a, b, c); err != nil {
		t.Fatalf("RegisterSync: %v", err)
	}

	// Whole batch on one rotation slot.
	var holder *worker
	for _, w := range s.workers {
		switch w.taskCount() {
		case 0:
		case 3:
			holder = w
		default:
			t.Fatalf("batch split across workers: worker %s holds %d", w.name, w.taskCount())
		}
	}
	if holder == nil {
		t.Fatal("no worker holds the whole batch")
	}

	// Force all three due at once, then run one pass.
	holder.reg.mu.Lock()
	past := time.Now().Add(-2 * time.Hour)
	for task := range holder.reg.last {
		holder.reg.last[task] = past
	}
	holder.reg.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = s.Start(ctx)
	defer s.Interrupt()

	waitFor(t, 2*time.Second, "batch to execute", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 3
	})

	mu.Lock()
	defer mu.Unlock()
	if order[0] != "A" || order[1] != "B" || order[2] != "C" {
		t.Fatalf("execution order = %v, want [A B C]", order)
	}
}

func TestRegisterAsyncFansOut(t *testing.T) {
	t.Parallel()
	const n = 3
	s, err := NewAtomic(testConfig(n), testLogger(), nil, nil)
	if err != nil {
		t.Fatalf("NewAtomic: %v", err)
	}

	tasks := []Task{
		&recordingTask{name: "a"},
		&recordingTask{name: "b"},
		&recordingTask{name: "c"},
	}
	if err := s.RegisterAsync(tasks...); err != nil {
		t.Fatalf("RegisterAsync: %v", err)
	}

	for i, w := range s.workers {
		if got := w.taskCount(); got != 1 {
			t.Fatalf("worker %d holds %d tasks, want 1", i, got)
		}
	}
}

func TestEmptySyncBatchDoesNotAdvanceRotation(t *testing.T) {
	t.Parallel()
	s, err := NewAtomic(testConfig(2), testLogger(), nil, nil)
	if err != nil {
		t.Fatalf("NewAtomic: %v", err)
	}

	if err := s.RegisterSync(); err != nil {
		t.Fatalf("empty RegisterSync: %v", err)
	}
	_ = s.Register(&recordingTask{name: "first"})

	if got := s.workers[0].taskCount(); got != 1 {
		t.Fatalf("first registration landed on worker %d tasks=%d, rotation advanced by empty batch", 0, got)
	}
}

func TestUnregisterBroadcastsToAllWorkers(t *testing.T) {
	t.Parallel()
	s, err := NewAtomic(testConfig(3), testLogger(), nil, nil)
	if err != nil {
		t.Fatalf("NewAtomic: %v", err)
	}

	tasks := make([]*recordingTask, 6)
	for i := range tasks {
		tasks[i] = &recordingTask{name: "t"}
		_ = s.Register(tasks[i])
	}
	if got := s.TaskCount(); got != 6 {
		t.Fatalf("TaskCount = %d, want 6", got)
	}

	// The caller does not know which worker holds which task.
	for _, task := range tasks {
		if err := s.Unregister(task); err != nil {
			t.Fatalf("Unregister: %v", err)
		}
	}
	if got := s.TaskCount(); got != 0 {
		t.Fatalf("TaskCount after unregister = %d, want 0", got)
	}
	for _, task := range tasks {
		if _, unreg := task.hookCounts(); unreg != 1 {
			t.Fatalf("task saw %d OnUnregistered calls, want 1", unreg)
		}
	}
}

func TestConcurrentRegistrationKeepsRotationBalanced(t *testing.T) {
	t.Parallel()
	const n = 4
	const perG = 25
	s, err := NewAtomic(testConfig(n), testLogger(), nil, nil)
	if err != nil {
		t.Fatalf("NewAtomic: %v", err)
	}

	var wg sync.WaitGroup
	var failures atomic.Int32
	for g := 0; g < n; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perG; i++ {
				if err := s.Register(&recordingTask{name: "c"}); err != nil {
					failures.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	if failures.Load() != 0 {
		t.Fatalf("%d concurrent registrations failed", failures.Load())
	}
	// Every registration advances the rotation exactly once, so the final
	// distribution is perfectly even.
	for i, w := range s.workers {
		if got := w.taskCount(); got != perG {
			t.Fatalf("worker %d holds %d tasks, want %d", i, got, perG)
		}
	}
}

func TestWorkerFaultDoesNotAffectSiblingWorkers(t *testing.T) {
	t.Parallel()
	sink := &countingSink{}
	s, err := NewAtomic(testConfig(2), testLogger(), sink, nil)
	if err != nil {
		t.Fatalf("NewAtomic: %v", err)
	}

	boom := &recordingTask{name: "boom", panicMsg: "shard down"}
	calm := &recordingTask{name: "calm"}
	_ = s.Register(boom) // worker 0
	_ = s.Register(calm) // worker 1

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = s.Start(ctx)
	defer s.Interrupt()

	waitFor(t, 2*time.Second, "sibling shard to keep scheduling", func() bool {
		return calm.count() >= 20 && sink.count() >= 2
	})
}

func TestAtomicLifecycleBroadcasts(t *testing.T) {
	t.Parallel()
	s, err := NewAtomic(testConfig(3), testLogger(), nil, nil)
	if err != nil {
		t.Fatalf("NewAtomic: %v", err)
	}
	if err := s.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := s.Initialize(); err != nil {
		t.Fatalf("second Initialize: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = s.Start(ctx)
	s.Terminate()
	s.Terminate()

	for i, w := range s.workers {
		select {
		case <-w.Done():
		case <-time.After(2 * time.Second):
			t.Fatalf("worker %d did not stop", i)
		}
	}
}
