// Package logging provides application-wide logging configuration.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var debugEnabled bool

// Init initializes the global logger. Debug enables per-path and
// per-sample tracing; quiet suppresses everything below warnings so
// solve output stays clean.
func Init(debug, quiet bool) {
	debugEnabled = debug
	level := zerolog.InfoLevel
	switch {
	case debug:
		level = zerolog.DebugLevel
	case quiet:
		level = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	})
}

// DebugEnabled reports whether debug logging is enabled.
func DebugEnabled() bool {
	return debugEnabled
}
