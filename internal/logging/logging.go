// Package logging builds the zerolog.Logger each service binary runs
// with, generalizing the teacher's bare log.Printf/log.Fatalf calls
// into the pack's structured-logging idiom.
package logging

import (
	"os"

	"github.com/rs/zerolog"
)

// New returns a console-writer zerolog.Logger tagged with service,
// reading its level from LOG_LEVEL (defaulting to info).
func New(service string) zerolog.Logger {
	level, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	return zerolog.New(writer).Level(level).With().Timestamp().Str("service", service).Logger()
}
