package report

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Hostname resolves a display label for this machine. Resolution failure
// is never fatal; the caller gets "unknown" instead.
func Hostname(log zerolog.Logger) string {
	h, err := os.Hostname()
	if err != nil || strings.TrimSpace(h) == "" {
		log.Warn().Err(err).Msg("hostname lookup failed, using placeholder")
		return "unknown"
	}
	return h
}
