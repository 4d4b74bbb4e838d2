// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger at level writing console or JSON lines to w.
// A nil w writes to stderr.
func New(level, format string, w io.Writer) (zerolog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	lvl := zerolog.InfoLevel
	if level != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("log level %q: %w", level, err)
		}
		lvl = l
	}

	switch format {
	case "", "console":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
	case "json":
	default:
		return zerolog.Nop(), fmt.Errorf("log format %q (want console|json)", format)
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}
