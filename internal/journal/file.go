package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// compactThreshold bounds journal growth: once the file holds this
	// many entries it is rewritten keeping only compactKeep of them.
	compactThreshold = 10000
	compactKeep      = 5000
)

type fileStore struct {
	path string
	log  zerolog.Logger

	mu    sync.Mutex
	count int // entries since open; -1 until first scan
}

func openFile(cfg Config, log zerolog.Logger) (Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("journal file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}
	return &fileStore{path: cfg.Path, log: log, count: -1}, nil
}

func (s *fileStore) Close() error { return nil }

func (s *fileStore) Append(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	line, err := json.Marshal(e)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.count < 0 {
		entries, err := s.readLocked()
		if err != nil {
			return err
		}
		s.count = len(entries)
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	s.count++

	if s.count >= compactThreshold {
		if err := s.compactLocked(); err != nil {
			s.log.Warn().Err(err).Str("path", s.path).Msg("journal compaction failed")
		}
	}
	return nil
}

func (s *fileStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readLocked()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

func (s *fileStore) readLocked() ([]Entry, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []Entry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			// A torn write at the tail should not poison the journal.
			s.log.Warn().Err(err).Str("path", s.path).Msg("skipping corrupt journal line")
			continue
		}
		out = append(out, e)
	}
	return out, sc.Err()
}

func (s *fileStore) compactLocked() error {
	entries, err := s.readLocked()
	if err != nil {
		return err
	}
	if len(entries) > compactKeep {
		entries = entries[len(entries)-compactKeep:]
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".journal-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for _, e := range entries {
		line, err := json.Marshal(e)
		if err != nil {
			_ = tmp.Close()
			return err
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			_ = tmp.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return err
	}
	s.count = len(entries)
	return nil
}
