package config

import (
	"fmt"
	"strings"
)

// Config is the root of the YAML configuration file.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Journal   *JournalConfig  `yaml:"journal,omitempty"`
	Probes    ProbesConfig    `yaml:"probes"`
	Pprof     PprofConfig     `yaml:"pprof,omitempty"`
}

type LoggingConfig struct {
	Level   string      `yaml:"level"`
	Console bool        `yaml:"console"`
	File    LoggingFile `yaml:"file"`
}

type LoggingFile struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	// MaxPerSec caps below-error events written to the file sink.
	// 0 disables the cap.
	MaxPerSec int `yaml:"max_per_sec,omitempty"`
}

// SchedulerConfig selects the scheduling strategy and sizes the worker pool.
//
// Strategy is one of "sync", "atomic" or "communal". Workers is ignored by
// the sync strategy (it always runs one worker). IdleSleep is a Go duration
// string; empty or "0s" keeps the strict busy loop, anything above zero makes
// idle passes sleep instead of spin.
type SchedulerConfig struct {
	Strategy  string `yaml:"strategy"`
	Workers   int    `yaml:"workers"`
	IdleSleep string `yaml:"idle_sleep,omitempty"`
}

const (
	StrategySync     = "sync"
	StrategyAtomic   = "atomic"
	StrategyCommunal = "communal"
)

// JournalConfig controls the optional run-history journal.
// Nil section means disabled.
//
// Example:
//
//	journal:
//	  driver: file
//	  path: ./pulse_journal
type JournalConfig struct {
	Driver      string `yaml:"driver"`
	Path        string `yaml:"path"`
	BusyTimeout string `yaml:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// ProbesConfig enables the built-in tasks that ship with the daemon.
type ProbesConfig struct {
	Heartbeat ProbeConfig     `yaml:"heartbeat"`
	Runtime   ProbeConfig     `yaml:"runtime"`
	Speedtest SpeedtestConfig `yaml:"speedtest"`
}

// ProbeConfig is an enable switch plus an interval. Interval is a Go duration
// string; empty means the probe's default.
type ProbeConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Interval string `yaml:"interval,omitempty"`
}

// SpeedtestConfig schedules the network probe on a cron expression rather
// than a plain interval, since it is expensive to run.
type SpeedtestConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron,omitempty"` // default: "@every 6h"
}

// PprofConfig controls the optional pprof HTTP server.
// Prefer binding to localhost.
type PprofConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr,omitempty"` // default: "127.0.0.1:6060"

	// Server timeouts (Go duration strings). WriteTimeout defaults to 0
	// (disabled) so long profile captures work reliably.
	ReadTimeout  string `yaml:"read_timeout,omitempty"`
	WriteTimeout string `yaml:"write_timeout,omitempty"`
	IdleTimeout  string `yaml:"idle_timeout,omitempty"`
}

// Normalize fills defaults in place. Call after decoding, before Validate.
func (c *Config) Normalize() {
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "info"
	}
	if strings.TrimSpace(c.Scheduler.Strategy) == "" {
		c.Scheduler.Strategy = StrategySync
	}
	if c.Scheduler.Workers == 0 {
		c.Scheduler.Workers = 1
	}
	if c.Probes.Speedtest.Enabled && strings.TrimSpace(c.Probes.Speedtest.Cron) == "" {
		c.Probes.Speedtest.Cron = "@every 6h"
	}
	if c.Pprof.Enabled && strings.TrimSpace(c.Pprof.Addr) == "" {
		c.Pprof.Addr = "127.0.0.1:6060"
	}
}

// Validate rejects configurations the daemon cannot run with. It assumes
// Normalize has been applied.
func (c *Config) Validate() error {
	switch c.Scheduler.Strategy {
	case StrategySync, StrategyAtomic, StrategyCommunal:
	default:
		return fmt.Errorf("scheduler.strategy: unknown strategy %q", c.Scheduler.Strategy)
	}
	if c.Scheduler.Strategy != StrategySync && c.Scheduler.Workers < 1 {
		return fmt.Errorf("scheduler.workers: must be >= 1, got %d", c.Scheduler.Workers)
	}
	if _, err := ParseDurationField("scheduler.idle_sleep", c.Scheduler.IdleSleep); err != nil {
		return err
	}

	if j := c.Journal; j != nil {
		switch strings.TrimSpace(j.Driver) {
		case "file", "sqlite":
			if strings.TrimSpace(j.Path) == "" {
				return fmt.Errorf("journal.path: required when journal.driver is set")
			}
		case "", "none":
			// section present but no driver: treat as disabled
		default:
			return fmt.Errorf("journal.driver: unknown driver %q", j.Driver)
		}
		if _, err := ParseDurationField("journal.busy_timeout", j.BusyTimeout); err != nil {
			return err
		}
	}

	if _, err := ParseDurationField("probes.heartbeat.interval", c.Probes.Heartbeat.Interval); err != nil {
		return err
	}
	if _, err := ParseDurationField("probes.runtime.interval", c.Probes.Runtime.Interval); err != nil {
		return err
	}

	for _, f := range []struct{ path, raw string }{
		{"pprof.read_timeout", c.Pprof.ReadTimeout},
		{"pprof.write_timeout", c.Pprof.WriteTimeout},
		{"pprof.idle_timeout", c.Pprof.IdleTimeout},
	} {
		if _, err := ParseDurationField(f.path, f.raw); err != nil {
			return err
		}
	}
	return nil
}
