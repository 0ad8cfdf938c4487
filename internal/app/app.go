// Package app wires memmond together: configuration, logging, the report
// generator, sinks, the scheduler, the delivery journal and the
// observability endpoint.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/rs/zerolog"

	"memmond/internal/config"
	"memmond/internal/journal"
	"memmond/internal/logging"
	"memmond/internal/memstats"
	"memmond/internal/obs"
	"memmond/internal/report"
	"memmond/internal/sched"
	"memmond/internal/sink"
)

const reportJob = "memory-report"

// Options are the process-level inputs that do not come from the config
// file.
type Options struct {
	ConfigPath string
	// ProcessStart is the instant main() began; the report's "running
	// since" line is computed from it.
	ProcessStart time.Time
}

type App struct {
	opts Options

	cfgm      *config.Manager
	log       zerolog.Logger
	logCloser io.Closer

	gen     *report.Generator
	sched   *sched.Service
	metrics *obs.Metrics
	obsSrv  *obs.Server
	store   journal.Store

	// mu guards the pieces swapped by config reloads.
	mu   sync.Mutex
	snk  sink.Sink
	host string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(opts Options) (*App, error) {
	if opts.ProcessStart.IsZero() {
		opts.ProcessStart = time.Now()
	}

	// The logger's own settings live in the config file, so the file is
	// parsed once before the real logger exists.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	log, logCloser, err := logging.New(logging.Config{
		Level:   cfg.Log.Level,
		Console: cfg.Log.Console,
		File:    cfg.Log.File,
	})
	if err != nil {
		return nil, err
	}
	log = log.With().Str("comp", "app").Logger()

	cfgm := config.NewManager(opts.ConfigPath, log.With().Str("comp", "config").Logger())
	if _, err := cfgm.Load(); err != nil {
		_ = logCloser.Close()
		return nil, err
	}

	gen, err := report.New(report.Config{
		ProcessStart: opts.ProcessStart,
		Locale:       cfg.Report.Locale,
		Timezone:     cfg.Report.Timezone,
		Provider:     memstats.NewRuntimeProvider(),
	})
	if err != nil {
		_ = logCloser.Close()
		return nil, err
	}

	store, err := journal.Open(journal.Config{
		Driver:      cfg.Journal.Driver,
		Path:        cfg.Journal.Path,
		BusyTimeout: cfg.Journal.BusyTimeout.Std(),
	}, log.With().Str("comp", "journal").Logger())
	if err != nil {
		_ = logCloser.Close()
		return nil, err
	}

	snk, err := buildSinks(cfg, log)
	if err != nil {
		closeStore(store)
		_ = logCloser.Close()
		return nil, err
	}

	metrics := obs.NewMetrics()
	a := &App{
		opts:      opts,
		cfgm:      cfgm,
		log:       log,
		logCloser: logCloser,
		gen:       gen,
		metrics:   metrics,
		obsSrv: obs.NewServer(obs.Config{
			Enabled: cfg.Obs.Enabled,
			Addr:    cfg.Obs.Addr,
		}, metrics, log),
		store: store,
		snk:   snk,
		host:  hostLabel(cfg, log),
	}
	a.sched = sched.New(sched.Config{
		Timezone:       cfg.Schedule.Timezone,
		DefaultTimeout: cfg.Schedule.Timeout.Std(),
	}, log.With().Str("comp", "sched").Logger())

	return a, nil
}

// Start launches the scheduler, the config watcher and the observability
// endpoint, then signals readiness to systemd.
func (a *App) Start(ctx context.Context) error {
	cfg := a.cfgm.Get()

	if err := a.obsSrv.Start(); err != nil {
		return err
	}
	if err := a.sched.Upsert(reportJob, cfg.Schedule.Spec, cfg.Schedule.Timeout.Std(), a.runCycle); err != nil {
		return err
	}
	a.sched.Start(ctx)

	watchCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		_ = a.cfgm.Watch(watchCtx)
	}()

	updates := a.cfgm.Subscribe(1)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.cfgm.Unsubscribe(updates)
		for {
			select {
			case <-watchCtx.Done():
				return
			case cfg, ok := <-updates:
				if !ok {
					return
				}
				a.applyConfig(cfg)
			}
		}
	}()

	if sent, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.log.Warn().Err(err).Msg("sd_notify failed")
	} else if sent {
		a.log.Debug().Msg("notified systemd: ready")
	}
	a.log.Info().Str("schedule", cfg.Schedule.Spec).Str("host", a.hostLabelLocked()).Msg("memmond started")
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	if a.cancel != nil {
		a.cancel()
	}
	a.sched.Stop(ctx)
	a.wg.Wait()
	err := a.obsSrv.Stop(ctx)
	closeStore(a.store)
	a.log.Info().Msg("memmond stopped")
	_ = a.logCloser.Close()
	return err
}

// RunNow executes one report cycle outside the schedule.
func (a *App) RunNow(ctx context.Context) error {
	return a.runCycle(ctx)
}

// RenderOnce writes a single report to w without delivering it through
// the configured sinks and without consuming the first-run banner.
func (a *App) RenderOnce(w io.Writer) error {
	a.mu.Lock()
	host := a.host
	a.mu.Unlock()

	body := a.gen.Render(time.Now(), memstats.NewRuntimeProvider().Capture())
	_, err := fmt.Fprintf(w, "%s\r\n\r\n%s\r\n", report.Subject(host), body)
	return err
}

// runCycle is the scheduled job: one capture, render and delivery, with
// the outcome recorded in metrics and the journal.
func (a *App) runCycle(ctx context.Context) error {
	a.mu.Lock()
	snk := a.snk
	host := a.host
	a.mu.Unlock()

	started := time.Now()
	err := a.gen.RunOnce(ctx, snk, host)
	took := time.Since(started)

	sinkName := snk.Name()
	var derr *sink.DeliveryError
	if errors.As(err, &derr) {
		sinkName = derr.Sink
	}
	a.metrics.ObserveCycle(took, sinkName, err)

	if a.store != nil {
		e := journal.Entry{
			At:      started,
			Host:    host,
			Sink:    sinkName,
			Subject: report.Subject(host),
			OK:      err == nil,
			TookMS:  took.Milliseconds(),
		}
		if err != nil {
			e.Error = err.Error()
		}
		jctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if jerr := a.store.Append(jctx, e); jerr != nil {
			a.log.Warn().Err(jerr).Msg("journal append failed")
		}
		cancel()
	}
	return err
}

// applyConfig swaps the reload-safe parts of the runtime: sinks, host
// label and schedule. Report locale and timezone are fixed at startup;
// changing them takes a restart, which is logged so the operator knows.
func (a *App) applyConfig(cfg *config.Config) {
	snk, err := buildSinks(cfg, a.log)
	if err != nil {
		a.log.Warn().Err(err).Msg("config reload: sink rebuild failed, keeping previous sinks")
	} else {
		a.mu.Lock()
		a.snk = snk
		a.host = hostLabel(cfg, a.log)
		a.mu.Unlock()
	}

	if err := a.sched.Upsert(reportJob, cfg.Schedule.Spec, cfg.Schedule.Timeout.Std(), a.runCycle); err != nil {
		a.log.Warn().Err(err).Str("spec", cfg.Schedule.Spec).Msg("config reload: schedule rejected")
	}
	a.log.Info().Str("schedule", cfg.Schedule.Spec).Msg("config applied")
}

func (a *App) hostLabelLocked() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.host
}

// buildSinks assembles the delivery fanout from the config. Config
// validation guarantees each enabled sink has its required fields.
func buildSinks(cfg *config.Config, log zerolog.Logger) (sink.Sink, error) {
	var sinks []sink.Sink
	if cfg.Sinks.Log {
		sinks = append(sinks, sink.NewLog(log.With().Str("comp", "report").Logger()))
	}
	if f := cfg.Sinks.File; f != nil {
		sinks = append(sinks, sink.NewFile(f.Path))
	}
	if t := cfg.Sinks.Telegram; t != nil {
		tg, err := sink.NewTelegram(sink.TelegramConfig{
			Token:       t.Token,
			ChatID:      t.ChatID,
			ThreadID:    t.ThreadID,
			RatePerSec:  t.RatePerSec,
			SendTimeout: t.SendTimeout.Std(),
		})
		if err != nil {
			return nil, fmt.Errorf("telegram sink: %w", err)
		}
		sinks = append(sinks, tg)
	}
	switch len(sinks) {
	case 0:
		// applyDefaults turns the log sink on when nothing is configured,
		// so this only happens with a hand-built Config.
		return sink.Null{}, nil
	case 1:
		return sinks[0], nil
	default:
		return sink.NewMulti(sinks...), nil
	}
}

func hostLabel(cfg *config.Config, log zerolog.Logger) string {
	if h := strings.TrimSpace(cfg.Report.HostLabel); h != "" {
		return h
	}
	return report.Hostname(log)
}

func closeStore(st journal.Store) {
	if st != nil {
		_ = st.Close()
	}
}
