//go:build !sqlite
// +build !sqlite

package journal

import (
	"errors"

	"github.com/rs/zerolog"
)

func openSQLite(Config, zerolog.Logger) (Store, error) {
	return nil, errors.New("journal: sqlite support not compiled in (build with -tags sqlite)")
}
