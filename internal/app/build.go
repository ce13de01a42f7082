package app

import (
	"pulse/internal/config"
	"pulse/internal/eventbus"
	"pulse/internal/journal"
	"pulse/internal/probes"
	"pulse/internal/sched"
	logx "pulse/pkg/logx"
)

func mapLogConfig(lc config.LoggingConfig) logx.Config {
	return logx.Config{
		Level:   lc.Level,
		Console: lc.Console,
		File: logx.FileConfig{
			Enabled:   lc.File.Enabled,
			Path:      lc.File.Path,
			MaxPerSec: lc.File.MaxPerSec,
		},
	}
}

func mapJournalConfig(cfg *config.Config) (journal.Config, bool) {
	j := cfg.Journal
	if j == nil || j.Driver == "" {
		return journal.Config{}, false
	}
	// Validated by config.Validate already; a parse error here means zero.
	busy, _ := config.ParseDurationField("journal.busy_timeout", j.BusyTimeout)
	return journal.Config{Driver: j.Driver, Path: j.Path, BusyTimeout: busy}, true
}

// buildScheduler constructs the strategy named by the config. The pool size
// check lives in the sched constructors; config.Validate merely front-runs it
// for friendlier errors at load time.
func buildScheduler(sc config.SchedulerConfig, log logx.Logger, sink sched.FailureSink, bus eventbus.Bus) (sched.Scheduler, error) {
	idle, err := config.ParseDurationField("scheduler.idle_sleep", sc.IdleSleep)
	if err != nil {
		return nil, err
	}
	cfg := sched.Config{Workers: sc.Workers, IdleSleep: idle}

	switch sc.Strategy {
	case config.StrategyAtomic:
		return sched.NewAtomic(cfg, log, sink, bus)
	case config.StrategyCommunal:
		return sched.NewCommunal(cfg, log, sink, bus)
	default:
		return sched.NewSync(cfg, log, sink, bus), nil
	}
}

// registerProbes adds the built-in tasks the config enables.
func registerProbes(s sched.Scheduler, pc config.ProbesConfig, log logx.Logger) error {
	var tasks []sched.Task

	if pc.Heartbeat.Enabled {
		iv, err := config.ParseDurationField("probes.heartbeat.interval", pc.Heartbeat.Interval)
		if err != nil {
			return err
		}
		tasks = append(tasks, probes.NewHeartbeat(iv, log))
	}
	if pc.Runtime.Enabled {
		iv, err := config.ParseDurationField("probes.runtime.interval", pc.Runtime.Interval)
		if err != nil {
			return err
		}
		tasks = append(tasks, probes.NewRuntimeStats(iv, log))
	}
	if pc.Speedtest.Enabled {
		sp := probes.NewSpeedtest(log)
		task, err := sched.NewCronTask("speedtest", pc.Speedtest.Cron, sp.Run)
		if err != nil {
			return err
		}
		tasks = append(tasks, task)
	}

	if len(tasks) == 0 {
		return nil
	}
	// Probes are independent of each other: spread them across the pool.
	return s.RegisterAsync(tasks...)
}
