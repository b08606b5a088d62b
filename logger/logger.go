// Package logger provides a configurable logger across qpbridge components.
//
// The root logger defined by default uses github.com/rs/zerolog with a
// console writer. It is silenced under `go test` unless the debug build tag
// is set.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/convexlab/qpbridge/debug"
	"github.com/rs/zerolog"
)

var logger zerolog.Logger

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	logger = zerolog.New(output).With().Timestamp().Logger()

	if !debug.Debug && strings.HasSuffix(os.Args[0], ".test") {
		logger = zerolog.Nop()
	}
}

// SetOutput changes the output of the global logger
func SetOutput(w io.Writer) {
	logger = logger.Output(w)
}

// Set allows a user to override the global logger
func Set(l zerolog.Logger) {
	logger = l
}

// Disable disables logging
func Disable() {
	logger = zerolog.Nop()
}

// Logger returns the root logger
func Logger() zerolog.Logger {
	return logger
}

// For returns a sublogger tagged with a component name.
func For(component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}
