package journal

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("journal disabled")

// Config configures the run-history journal.
//
// Driver values:
//   - "file": dependency-free JSONL backend
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty or "none", the journal is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// RunRecord is one completed or failed task execution.
// Keep it compact and schema-stable.
type RunRecord struct {
	At      time.Time     `json:"at"`
	Worker  string        `json:"worker"`
	Task    string        `json:"task"`
	Elapsed time.Duration `json:"elapsed"`
	Took    time.Duration `json:"took"`
	OK      bool          `json:"ok"`
	Error   string        `json:"error,omitempty"`
}
