// Package log provides the logging setup for the Petal framework. It wraps
// the Kratos logging interface with a zerolog backend and exposes a
// package-level helper for framework code.
package log

import (
	"fmt"
	"io"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/rs/zerolog"
)

type zeroLogger struct {
	logger zerolog.Logger
}

// NewZeroLogger returns a Kratos log.Logger backed by zerolog writing to w.
func NewZeroLogger(w io.Writer) log.Logger {
	return zeroLogger{logger: zerolog.New(w).With().Timestamp().Logger()}
}

// Log implements the Kratos log.Logger interface, mapping Kratos levels to
// zerolog levels and translating keyvals into structured fields.
func (l zeroLogger) Log(level log.Level, keyvals ...interface{}) error {
	// Tolerate an odd number of keyvals by appending a placeholder.
	if len(keyvals)%2 != 0 {
		keyvals = append(keyvals, "BAD_VALUE")
	}

	var event *zerolog.Event
	switch level {
	case log.LevelDebug:
		event = l.logger.Debug()
	case log.LevelInfo:
		event = l.logger.Info()
	case log.LevelWarn:
		event = l.logger.Warn()
	case log.LevelError:
		event = l.logger.Error()
	case log.LevelFatal:
		event = l.logger.Fatal()
	default:
		event = l.logger.Warn().Interface("original_level", level)
	}

	var msg string
	for i := 0; i < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			key = fmt.Sprintf("BAD_KEY_%d", i)
			event = event.Interface("original_key", keyvals[i])
		}
		val := keyvals[i+1]

		if key == "msg" {
			if s, ok := val.(string); ok {
				msg = s
			} else {
				msg = fmt.Sprint(val)
			}
			continue
		}
		if key == "err" || key == "error" {
			if e, ok := val.(error); ok {
				event = event.Err(e)
				continue
			}
		}
		event = event.Interface(key, val)
	}

	event.Msg(msg)
	return nil
}
