package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pulse/internal/config"
	"pulse/internal/sched"
	logx "pulse/pkg/logx"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pulse.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestBuildSchedulerStrategies(t *testing.T) {
	t.Parallel()
	log := logx.Nop()

	s, err := buildScheduler(config.SchedulerConfig{Strategy: config.StrategySync}, log, nil, nil)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if _, ok := s.(*sched.SyncScheduler); !ok {
		t.Fatalf("sync strategy built %T", s)
	}

	s, err = buildScheduler(config.SchedulerConfig{Strategy: config.StrategyAtomic, Workers: 2}, log, nil, nil)
	if err != nil {
		t.Fatalf("atomic: %v", err)
	}
	if _, ok := s.(*sched.AtomicScheduler); !ok {
		t.Fatalf("atomic strategy built %T", s)
	}

	s, err = buildScheduler(config.SchedulerConfig{Strategy: config.StrategyCommunal, Workers: 2}, log, nil, nil)
	if err != nil {
		t.Fatalf("communal: %v", err)
	}
	if _, ok := s.(*sched.CommunalScheduler); !ok {
		t.Fatalf("communal strategy built %T", s)
	}

	if _, err := buildScheduler(config.SchedulerConfig{Strategy: config.StrategyAtomic, Workers: 0}, log, nil, nil); !errors.Is(err, sched.ErrPoolSize) {
		t.Fatalf("atomic with 0 workers err = %v, want ErrPoolSize", err)
	}
}

func TestRegisterProbesHonorsConfig(t *testing.T) {
	t.Parallel()
	s := sched.NewSync(sched.Config{IdleSleep: time.Millisecond}, logx.Nop(), nil, nil)
	pc := config.ProbesConfig{
		Heartbeat: config.ProbeConfig{Enabled: true, Interval: "10s"},
		Runtime:   config.ProbeConfig{Enabled: false},
		Speedtest: config.SpeedtestConfig{Enabled: true, Cron: "@every 6h"},
	}
	if err := registerProbes(s, pc, logx.Nop()); err != nil {
		t.Fatalf("registerProbes: %v", err)
	}
	if got := s.TaskCount(); got != 2 {
		t.Fatalf("TaskCount = %d, want 2 (heartbeat + speedtest)", got)
	}
}

func TestAppStartStop(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
logging:
  level: error
  console: false
scheduler:
  strategy: atomic
  workers: 2
  idle_sleep: 1ms
journal:
  driver: file
  path: `+filepath.Join(t.TempDir(), "journal")+`
probes:
  heartbeat:
    enabled: true
    interval: 10ms
`)

	a, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	counter, ok := a.Scheduler().(interface{ TaskCount() int })
	if !ok {
		t.Fatalf("scheduler %T does not report task counts", a.Scheduler())
	}
	if counter.TaskCount() != 1 {
		t.Fatalf("TaskCount = %d, want the heartbeat probe", counter.TaskCount())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Let the heartbeat fire at least once.
	time.Sleep(50 * time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if err := a.Stop(stopCtx, StopAppStop); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	select {
	case <-a.Done():
	default:
		t.Fatal("Done not closed after Stop")
	}
}

func TestAppNewRejectsBadConfig(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "scheduler:\n  strategy: quantum\n")
	if _, err := New(path); err == nil {
		t.Fatal("New accepted an unknown strategy")
	}
}

func TestPprofServerApplyAndStop(t *testing.T) {
	t.Parallel()
	p := newPprofServer(logx.Nop())
	defer p.Stop(context.Background())

	p.Apply(context.Background(), config.PprofConfig{Enabled: true, Addr: "127.0.0.1:0"})
	addr := p.Addr()
	if addr == "" {
		t.Fatal("pprof server did not start")
	}

	resp, err := http.Get("http://" + addr + "/debug/pprof/")
	if err != nil {
		t.Fatalf("GET pprof index: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("pprof index status = %d", resp.StatusCode)
	}

	// Disabling via Apply stops the listener.
	p.Apply(context.Background(), config.PprofConfig{Enabled: false})
	if p.Addr() != "" {
		t.Fatal("pprof server still running after disable")
	}
}
