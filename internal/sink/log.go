package sink

import (
	"context"

	"github.com/rs/zerolog"
)

// Log writes reports to the structured log. Handy as an always-on fallback
// channel and for development.
type Log struct {
	log zerolog.Logger
}

func NewLog(log zerolog.Logger) *Log { return &Log{log: log} }

func (s *Log) Name() string { return "log" }

func (s *Log) Deliver(ctx context.Context, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.log.Info().Str("subject", subject).Msg("memory report\n" + body)
	return nil
}
