package config

import (
	"reflect"
	"sort"
	"strings"

	logx "pulse/pkg/logx"
)

// SummarizeChange returns a compact list of changed sections plus structured
// attrs safe for logging.
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 5)
	attrs := make([]logx.Field, 0, 12)

	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	if oldCfg.Scheduler != newCfg.Scheduler {
		changed = append(changed, "scheduler")
		attrs = append(attrs,
			logx.String("scheduler.strategy", newCfg.Scheduler.Strategy),
			logx.Int("scheduler.workers", newCfg.Scheduler.Workers),
			logx.String("scheduler.idle_sleep", strings.TrimSpace(newCfg.Scheduler.IdleSleep)),
		)
	}

	// Journal: nil means disabled.
	oldJ, newJ := derefJournal(oldCfg.Journal), derefJournal(newCfg.Journal)
	if oldJ != newJ {
		changed = append(changed, "journal")
		attrs = append(attrs,
			logx.String("journal.driver", newJ.Driver),
			logx.Bool("journal.path_set", strings.TrimSpace(newJ.Path) != ""),
		)
	}

	if !reflect.DeepEqual(oldCfg.Probes, newCfg.Probes) {
		changed = append(changed, "probes")
		attrs = append(attrs,
			logx.Bool("probes.heartbeat", newCfg.Probes.Heartbeat.Enabled),
			logx.Bool("probes.runtime", newCfg.Probes.Runtime.Enabled),
			logx.Bool("probes.speedtest", newCfg.Probes.Speedtest.Enabled),
		)
	}

	if oldCfg.Pprof != newCfg.Pprof {
		changed = append(changed, "pprof")
		attrs = append(attrs,
			logx.Bool("pprof.enabled", newCfg.Pprof.Enabled),
			logx.String("pprof.addr", strings.TrimSpace(newCfg.Pprof.Addr)),
		)
	}

	sort.Strings(changed)
	return changed, attrs
}

func derefJournal(j *JournalConfig) JournalConfig {
	if j == nil {
		return JournalConfig{}
	}
	return *j
}
