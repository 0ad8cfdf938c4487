package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "memmond.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadFullConfig(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
log:
  level: debug
  console: true
report:
  locale: nb-NO
  timezone: Europe/Oslo
  host_label: web01
schedule:
  spec: "0 7 * * *"
  timeout: 90s
  timezone: Europe/Oslo
sinks:
  log: true
  file:
    path: /tmp/latest.txt
  telegram:
    token: "123:abc"
    chat_id: -100123
    rate_per_sec: 2
    send_timeout: 15s
journal:
  driver: file
  path: /tmp/journal.jsonl
observability:
  enabled: true
  addr: "127.0.0.1:9999"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Report.Locale != "nb-NO" || cfg.Report.HostLabel != "web01" {
		t.Fatalf("report section: %+v", cfg.Report)
	}
	if cfg.Schedule.Spec != "0 7 * * *" || cfg.Schedule.Timeout.Std() != 90*time.Second {
		t.Fatalf("schedule section: %+v", cfg.Schedule)
	}
	if cfg.Sinks.Telegram == nil || cfg.Sinks.Telegram.ChatID != -100123 {
		t.Fatalf("telegram sink: %+v", cfg.Sinks.Telegram)
	}
	if cfg.Sinks.Telegram.SendTimeout.Std() != 15*time.Second {
		t.Fatalf("send_timeout = %v", cfg.Sinks.Telegram.SendTimeout.Std())
	}
	if cfg.Journal.Driver != "file" {
		t.Fatalf("journal section: %+v", cfg.Journal)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load empty: %v", err)
	}
	if cfg.Schedule.Spec != DefaultScheduleSpec {
		t.Fatalf("schedule.spec = %q, want %q", cfg.Schedule.Spec, DefaultScheduleSpec)
	}
	if !cfg.Sinks.Log {
		t.Fatal("log sink not defaulted on with no sinks configured")
	}
	if !cfg.Log.Console {
		t.Fatal("console logging not defaulted on")
	}
	if cfg.Obs.Addr != DefaultObsAddr {
		t.Fatalf("observability.addr = %q", cfg.Obs.Addr)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	_, err := Load(writeConfig(t, "repport:\n  locale: en\n"))
	if err == nil {
		t.Fatal("expected error for unknown top-level field")
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Parallel()
	_, err := Load(writeConfig(t, "schedule:\n  timeout: quickly\n"))
	if err == nil {
		t.Fatal("expected error for unparseable duration")
	}
	_, err = Load(writeConfig(t, "schedule:\n  timeout: -5s\n"))
	if err == nil {
		t.Fatal("expected error for negative duration")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "telegram without token",
			yaml: "sinks:\n  telegram:\n    chat_id: 5\n",
			want: "token",
		},
		{
			name: "telegram without chat",
			yaml: "sinks:\n  telegram:\n    token: x\n",
			want: "chat_id",
		},
		{
			name: "file sink without path",
			yaml: "sinks:\n  file: {}\n",
			want: "path",
		},
		{
			name: "journal without path",
			yaml: "journal:\n  driver: sqlite\n",
			want: "journal.path",
		},
		{
			name: "unknown journal driver",
			yaml: "journal:\n  driver: postgres\n  path: /tmp/x\n",
			want: "journal.driver",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestManagerLoadAndGet(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "report:\n  host_label: a\n")
	m := NewManager(path, zerolog.Nop())
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Get() != cfg {
		t.Fatal("Get does not return the committed config")
	}
}

func TestManagerReloadRejectsInvalid(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "report:\n  host_label: a\n")
	m := NewManager(path, zerolog.Nop())
	old, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := os.WriteFile(path, []byte("sinks:\n  telegram:\n    chat_id: 5\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	m.reload()
	if m.Get() != old {
		t.Fatal("invalid config replaced the committed one")
	}

	if err := os.WriteFile(path, []byte("report:\n  host_label: b\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	m.reload()
	if got := m.Get(); got == old || got.Report.HostLabel != "b" {
		t.Fatalf("valid config not committed: %+v", got.Report)
	}
}

func TestManagerPublishToSubscriber(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "report:\n  host_label: a\n")
	m := NewManager(path, zerolog.Nop())
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	if err := os.WriteFile(path, []byte("report:\n  host_label: c\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	m.reload()

	select {
	case cfg := <-ch:
		if cfg.Report.HostLabel != "c" {
			t.Fatalf("published config: %+v", cfg.Report)
		}
	case <-time.After(time.Second):
		t.Fatal("no config published to subscriber")
	}
}
