// Package shared holds the configuration, database, logging and error plumbing used by every other package.
package shared

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// NewLogger returns a "cake" prefixed logger writing to w, or to [os.Stderr] when w is nil.
// Entries carry a timestamp and the calling file.
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	return log.NewWithOptions(w, log.Options{
		Prefix:          "cake",
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		ReportCaller:    true,
	})
}

// WithLogger derives a logger that adds kv to every entry.
func WithLogger(l *log.Logger, kv ...any) *log.Logger {
	return l.With(kv...)
}

func SetLogLevel(l *log.Logger, ll log.Level) {
	l.SetLevel(ll)
}

// GenerateID returns a random v4 UUID, used for record ids and OAuth state.
func GenerateID() string {
	return uuid.NewString()
}
