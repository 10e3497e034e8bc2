package logger

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// New builds a JSON line logger writing to w.
// Timestamps are written under "ts" in RFC3339Nano, rendered in loc, and
// messages under "msg".
// An unknown or empty level falls back to info.
func New(w io.Writer, level string, loc *time.Location) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if loc == nil {
		loc = time.UTC
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.TimestampFieldName = "ts"
	zerolog.MessageFieldName = "msg"
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().In(loc)
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
