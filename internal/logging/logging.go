// Package logging builds the logrus loggers used across dsd.
//
// Diagnostics go to stderr as logfmt-style text. Command results never go
// through a logger; they are printed by the cli package.
package logging

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// ErrInvalidLevel is returned by [ParseLevel] for an unknown level name.
var ErrInvalidLevel = errors.New("invalid log level")

// Levels lists the accepted level names, most verbose first.
func Levels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ParseLevel maps a level name to a logrus level. Matching is
// case-insensitive; "warning" is accepted as an alias for "warn".
func ParseLevel(s string) (logrus.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return logrus.DebugLevel, nil
	case "info":
		return logrus.InfoLevel, nil
	case "warn", "warning":
		return logrus.WarnLevel, nil
	case "error":
		return logrus.ErrorLevel, nil
	default:
		return logrus.PanicLevel, fmt.Errorf("%w: %q (valid: %s)", ErrInvalidLevel, s, strings.Join(Levels(), ", "))
	}
}

// New returns a text logger writing to w at the given level.
func New(w io.Writer, level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
		DisableColors:    true,
	})

	return l
}

// Discard returns a logger that drops everything. Packages use it when the
// caller did not supply one.
func Discard() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)

	return l
}
