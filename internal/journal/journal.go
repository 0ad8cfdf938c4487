// Package journal persists delivery-attempt outcomes: when a report cycle
// ran, through which sink, and whether delivery succeeded. It stores
// outcome metadata only, never report bodies.
//
// Backends:
//   - "file": dependency-free JSONL file
//   - "sqlite": SQLite database (behind the `sqlite` build tag)
//
// An empty or "none" driver disables the journal.
package journal

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var ErrDisabled = errors.New("journal disabled")

// Entry records one delivery attempt.
type Entry struct {
	At      time.Time `json:"at"`
	Host    string    `json:"host"`
	Sink    string    `json:"sink"`
	Subject string    `json:"subject"`
	OK      bool      `json:"ok"`
	Error   string    `json:"error,omitempty"`
	TookMS  int64     `json:"took_ms"`
}

// Store is the persistence API used by the app.
type Store interface {
	Append(ctx context.Context, e Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}

type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Open initializes the configured store. It returns (nil, nil) when the
// journal is disabled.
func Open(cfg Config, log zerolog.Logger) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "none":
		return nil, nil
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown journal driver: " + cfg.Driver)
	}
}
