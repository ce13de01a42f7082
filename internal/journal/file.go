package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	logx "pulse/pkg/logx"
)

// ringSize bounds how much history the file driver keeps in memory for
// RecentRuns. The JSONL file itself is append-only and unbounded.
const ringSize = 512

// fileStore is a dependency-free journal backend.
//
// Files:
//   - <prefix>.runs.jsonl (append-only JSON Lines)
//
// The tail of the file is replayed into an in-memory ring on open so
// RecentRuns works across restarts without scanning the file per query.
type fileStore struct {
	log logx.Logger

	mu   sync.Mutex
	file *os.File

	ring []RunRecord // oldest first, capped at ringSize
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("journal.path is required for file driver")
	}

	dir := filepath.Dir(path)
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(filepath.Base(path)))
	runsPath := filepath.Join(dir, base) + ".runs.jsonl"

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	ring, err := replayTail(runsPath, ringSize)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("journal replay failed; starting empty", logx.String("path", runsPath), logx.Err(err))
		ring = nil
	}

	f, err := os.OpenFile(runsPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	return &fileStore{log: log, file: f, ring: ring}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

func (s *fileStore) AppendRun(ctx context.Context, r RunRecord) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return errors.New("journal file closed")
	}
	if err := json.NewEncoder(s.file).Encode(r); err != nil {
		return err
	}
	s.ring = append(s.ring, r)
	if len(s.ring) > ringSize {
		s.ring = s.ring[len(s.ring)-ringSize:]
	}
	return nil
}

// RecentRuns returns up to limit records, newest first.
func (s *fileStore) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	_ = ctx
	if limit <= 0 {
		limit = ringSize
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.ring)
	if limit > n {
		limit = n
	}
	out := make([]RunRecord, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.ring[i])
	}
	return out, nil
}

// replayTail scans the JSONL file and keeps the last keep records.
// Malformed lines (partial writes from a crash) are skipped.
func replayTail(path string, keep int) ([]RunRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var ring []RunRecord
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r RunRecord
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			continue
		}
		ring = append(ring, r)
		if len(ring) > keep {
			ring = ring[len(ring)-keep:]
		}
	}
	return ring, sc.Err()
}
