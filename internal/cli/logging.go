package cli

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// newLogger writes step diagnostics to stderr. Only warnings show unless
// verbose is set.
func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen, NoColor: !stderrIsTTY()}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func stderrIsTTY() bool {
	info, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
