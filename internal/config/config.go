// Package config loads and watches memmond's YAML configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	yaml "go.yaml.in/yaml/v3"
)

// Config is the full daemon configuration.
type Config struct {
	Log      Log      `yaml:"log"`
	Report   Report   `yaml:"report"`
	Schedule Schedule `yaml:"schedule"`
	Sinks    Sinks    `yaml:"sinks"`
	Journal  Journal  `yaml:"journal"`
	Obs      Obs      `yaml:"observability"`
}

type Log struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
	File    string `yaml:"file"`
}

type Report struct {
	// Locale is a BCP-47 tag affecting numeric formatting only.
	Locale string `yaml:"locale"`
	// Timezone is an IANA zone name; empty means host-local.
	Timezone string `yaml:"timezone"`
	// HostLabel overrides the resolved hostname in report subjects.
	HostLabel string `yaml:"host_label"`
}

type Schedule struct {
	// Spec is a cron expression, a cron descriptor ("@hourly"), or a
	// plain Go duration ("30m").
	Spec     string   `yaml:"spec"`
	Timeout  Duration `yaml:"timeout"`
	Timezone string   `yaml:"timezone"`
}

type Sinks struct {
	Log      bool          `yaml:"log"`
	File     *FileSink     `yaml:"file"`
	Telegram *TelegramSink `yaml:"telegram"`
}

type FileSink struct {
	Path string `yaml:"path"`
}

type TelegramSink struct {
	Token       string   `yaml:"token"`
	ChatID      int64    `yaml:"chat_id"`
	ThreadID    int      `yaml:"thread_id"`
	RatePerSec  int      `yaml:"rate_per_sec"`
	SendTimeout Duration `yaml:"send_timeout"`
}

type Journal struct {
	// Driver: "", "none", "file" or "sqlite".
	Driver      string   `yaml:"driver"`
	Path        string   `yaml:"path"`
	BusyTimeout Duration `yaml:"busy_timeout"`
}

type Obs struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

const (
	DefaultScheduleSpec = "@every 1h"
	DefaultObsAddr      = "127.0.0.1:9190"
)

// Load reads, strictly decodes, defaults and validates a config file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := parse(b)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func parse(b []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Schedule.Spec) == "" {
		c.Schedule.Spec = DefaultScheduleSpec
	}
	if strings.TrimSpace(c.Obs.Addr) == "" {
		c.Obs.Addr = DefaultObsAddr
	}
	// Without any configured sink the report would silently vanish;
	// fall back to the log sink.
	if !c.Sinks.Log && c.Sinks.File == nil && c.Sinks.Telegram == nil {
		c.Sinks.Log = true
	}
	// Likewise a logger with no writers falls back to console.
	if !c.Log.Console && strings.TrimSpace(c.Log.File) == "" {
		c.Log.Console = true
	}
}

func (c *Config) Validate() error {
	if t := c.Sinks.Telegram; t != nil {
		if strings.TrimSpace(t.Token) == "" {
			return errors.New("sinks.telegram.token is required")
		}
		if t.ChatID == 0 {
			return errors.New("sinks.telegram.chat_id is required")
		}
	}
	if f := c.Sinks.File; f != nil && strings.TrimSpace(f.Path) == "" {
		return errors.New("sinks.file.path is required")
	}
	switch strings.ToLower(strings.TrimSpace(c.Journal.Driver)) {
	case "", "none":
	case "file", "sqlite", "sqlite3":
		if strings.TrimSpace(c.Journal.Path) == "" {
			return errors.New("journal.path is required when journal.driver is set")
		}
	default:
		return fmt.Errorf("unknown journal.driver %q", c.Journal.Driver)
	}
	return nil
}
