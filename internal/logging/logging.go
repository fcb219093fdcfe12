package logging

import (
	"io"

	"github.com/rs/zerolog"
)

const timeFormat = "2006/01/02 15:04:05.000"

// New returns a console logger writing to w. Debug level is enabled when
// verbose is set; otherwise only warnings and errors are emitted.
func New(w io.Writer, verbose, colored bool) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    !colored,
		TimeFormat: timeFormat,
	}
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}
