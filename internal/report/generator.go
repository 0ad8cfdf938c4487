package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"memmond/internal/memstats"
	"memmond/internal/sink"
)

// DefaultLocale is used when no locale is configured. It only affects
// numeric grouping and the decimal separator.
const DefaultLocale = "en"

// Config configures a Generator.
type Config struct {
	// ProcessStart is the application start instant. Defaults to the
	// moment the generator is constructed.
	ProcessStart time.Time
	// Locale is a BCP-47 tag ("en", "nb-NO", ...). Defaults to
	// DefaultLocale.
	Locale string
	// Timezone is an IANA zone name used to render instants as local
	// calendar time. Defaults to the host's local timezone.
	Timezone string
	// Provider supplies memory snapshots.
	Provider memstats.Provider
}

// Generator renders memory reports. The first-run flag is its only
// mutable state; a whole RunOnce cycle is serialized under one mutex so
// concurrent cycles cannot both announce the first run or lose the flip.
type Generator struct {
	provider     memstats.Provider
	printer      *message.Printer
	loc          *time.Location
	processStart time.Time

	mu       sync.Mutex
	firstRun bool
}

func New(cfg Config) (*Generator, error) {
	if cfg.Provider == nil {
		return nil, errors.New("report: provider is required")
	}
	locale := strings.TrimSpace(cfg.Locale)
	if locale == "" {
		locale = DefaultLocale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("report: invalid locale %q: %w", cfg.Locale, err)
	}
	loc := time.Local
	if tz := strings.TrimSpace(cfg.Timezone); tz != "" {
		loc, err = time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("report: invalid timezone %q: %w", cfg.Timezone, err)
		}
	}
	start := cfg.ProcessStart
	if start.IsZero() {
		start = time.Now()
	}
	return &Generator{
		provider:     cfg.Provider,
		printer:      message.NewPrinter(tag),
		loc:          loc,
		processStart: start,
		firstRun:     true,
	}, nil
}

// Subject builds the delivery subject for a report from the given host.
func Subject(hostLabel string) string {
	return "Memory snapshot [from " + hostLabel + "]"
}

// Render produces the report text for a snapshot at the given instant.
// It is a pure function of (now, snapshot, firstRun) and does not mutate
// the first-run flag, so it is safe for ad-hoc diagnostic use alongside
// scheduled RunOnce cycles.
func (g *Generator) Render(now time.Time, snap memstats.Snapshot) string {
	g.mu.Lock()
	first := g.firstRun
	g.mu.Unlock()
	return g.render(now, snap, first)
}

// RunOnce captures a snapshot, renders it and delivers it through the
// sink. The first-run flag flips only after a successful delivery; on
// failure it is left untouched and a *sink.DeliveryError is returned.
// Retry policy belongs to the caller.
func (g *Generator) RunOnce(ctx context.Context, s sink.Sink, hostLabel string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	snap := g.provider.Capture()
	body := g.render(now, snap, g.firstRun)

	if err := s.Deliver(ctx, Subject(hostLabel), body); err != nil {
		var derr *sink.DeliveryError
		if errors.As(err, &derr) {
			return err
		}
		return &sink.DeliveryError{Sink: s.Name(), Err: err}
	}
	g.firstRun = false
	return nil
}
