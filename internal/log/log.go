// Package log provides the structured logger used throughout the runtime,
// backed by logrus and shaped after Benthos's log.Modular interface.
package log

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Modular is a logger that can be narrowed to a sub-component via With,
// carrying structured fields on every subsequent call.
type Modular interface {
	With(fields Fields) Modular

	Debugf(msg string, args ...any)
	Infof(msg string, args ...any)
	Warnf(msg string, args ...any)
	Errorf(msg string, args ...any)
}

// Fields are structured key/value pairs attached to a log line.
type Fields map[string]any

// Config controls the root logger.
type Config struct {
	Level  string // debug|info|warn|error
	Format string // json|text
	Output io.Writer
}

// New builds a root Modular logger from Config.
func New(cfg Config) Modular {
	l := logrus.New()

	lvl, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	if cfg.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	l.SetOutput(out)

	return &logrusModular{entry: logrus.NewEntry(l)}
}

type logrusModular struct {
	entry *logrus.Entry
}

func (m *logrusModular) With(fields Fields) Modular {
	return &logrusModular{entry: m.entry.WithFields(logrus.Fields(fields))}
}

func (m *logrusModular) Debugf(msg string, args ...any) { m.entry.Debugf(msg, args...) }
func (m *logrusModular) Infof(msg string, args ...any)  { m.entry.Infof(msg, args...) }
func (m *logrusModular) Warnf(msg string, args ...any)  { m.entry.Warnf(msg, args...) }
func (m *logrusModular) Errorf(msg string, args ...any) { m.entry.Errorf(msg, args...) }

// Noop returns a logger that discards everything, useful in tests.
func Noop() Modular {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &logrusModular{entry: logrus.NewEntry(l)}
}
