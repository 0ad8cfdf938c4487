package sched

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type Config struct {
	Timezone       string // IANA TZ; empty means host-local
	DefaultTimeout time.Duration
	HistorySize    int
}

// RunRecord is one completed job run.
type RunRecord struct {
	Name     string
	Started  time.Time
	Duration time.Duration
	Error    string
}

type runState struct {
	mu      sync.Mutex
	running bool
}

type jobDef struct {
	name    string
	spec    string
	timeout time.Duration
	run     func(ctx context.Context) error
	entryID cron.EntryID
	state   *runState
}

type Service struct {
	mu   sync.Mutex
	log  zerolog.Logger
	cfg  Config
	loc  *time.Location
	c    *cron.Cron
	defs map[string]*jobDef

	runCtx    context.Context
	runCancel context.CancelFunc

	hmu     sync.Mutex
	history []RunRecord
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

func New(cfg Config, log zerolog.Logger) *Service {
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 50
	}
	return &Service{cfg: cfg, log: log, defs: map[string]*jobDef{}}
}

// NormalizeSpec turns a user-supplied schedule into a cron-parseable spec.
// Plain Go durations become "@every" descriptors.
func NormalizeSpec(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", errors.New("empty schedule spec")
	}
	if !strings.HasPrefix(s, "@") {
		if d, err := time.ParseDuration(s); err == nil {
			if d < time.Second {
				return "", fmt.Errorf("interval %q is below 1s", raw)
			}
			s = "@every " + d.String()
		}
	}
	if _, err := parser.Parse(s); err != nil {
		return "", fmt.Errorf("invalid schedule %q: %w", raw, err)
	}
	return s, nil
}

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return
	}
	s.loc = s.loadLocationLocked()
	s.runCtx, s.runCancel = context.WithCancel(ctx)
	s.c = cron.New(cron.WithParser(parser), cron.WithLocation(s.loc))
	for _, d := range s.defs {
		s.addLocked(d)
	}
	s.c.Start()
	s.log.Info().Str("tz", s.loc.String()).Int("jobs", len(s.defs)).Msg("scheduler started")
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	cancel := s.runCancel
	s.c = nil
	s.runCancel = nil
	s.runCtx = nil
	s.mu.Unlock()
	if c == nil {
		return
	}

	done := c.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
	}
	if cancel != nil {
		cancel()
	}
	s.log.Info().Msg("scheduler stopped")
}

// Upsert registers a job under a stable name, replacing any existing
// schedule with that name. Registering while stopped is allowed; the
// definition is applied on the next Start.
func (s *Service) Upsert(name, spec string, timeout time.Duration, job func(ctx context.Context) error) error {
	norm, err := NormalizeSpec(spec)
	if err != nil {
		return err
	}
	if timeout <= 0 {
		timeout = s.cfg.DefaultTimeout
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.defs[name]; ok && s.c != nil && old.entryID != 0 {
		s.c.Remove(old.entryID)
	}
	d := &jobDef{name: name, spec: norm, timeout: timeout, run: job, state: &runState{}}
	s.defs[name] = d
	if s.c != nil {
		s.addLocked(d)
	}
	return nil
}

func (s *Service) addLocked(d *jobDef) {
	id, err := s.c.AddFunc(d.spec, func() { s.execute(d) })
	if err != nil {
		// Specs are validated in Upsert; reaching this means a parser
		// mismatch and deserves a loud log.
		s.log.Error().Err(err).Str("job", d.name).Str("spec", d.spec).Msg("failed to register schedule")
		return
	}
	d.entryID = id
}

func (s *Service) execute(d *jobDef) {
	d.state.mu.Lock()
	if d.state.running {
		d.state.mu.Unlock()
		s.log.Warn().Str("job", d.name).Msg("previous run still active, skipping")
		return
	}
	d.state.running = true
	d.state.mu.Unlock()
	defer func() {
		d.state.mu.Lock()
		d.state.running = false
		d.state.mu.Unlock()
	}()

	s.mu.Lock()
	ctx := s.runCtx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	var cancel context.CancelFunc
	if d.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	started := time.Now()
	err := d.run(ctx)
	rec := RunRecord{Name: d.name, Started: started, Duration: time.Since(started)}
	if err != nil {
		rec.Error = err.Error()
		s.log.Warn().Err(err).Str("job", d.name).Dur("took", rec.Duration).Msg("job failed")
	} else {
		s.log.Debug().Str("job", d.name).Dur("took", rec.Duration).Msg("job ok")
	}
	s.appendHistory(rec)
}

func (s *Service) appendHistory(rec RunRecord) {
	s.hmu.Lock()
	defer s.hmu.Unlock()
	s.history = append(s.history, rec)
	if len(s.history) > s.cfg.HistorySize {
		s.history = s.history[len(s.history)-s.cfg.HistorySize:]
	}
}

// History returns a copy of recent run records, oldest first.
func (s *Service) History() []RunRecord {
	s.hmu.Lock()
	defer s.hmu.Unlock()
	return append([]RunRecord(nil), s.history...)
}

func (s *Service) loadLocationLocked() *time.Location {
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn().Err(err).Str("tz", tz).Msg("invalid timezone, falling back to local")
		return time.Local
	}
	return loc
}
