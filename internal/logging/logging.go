package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type Logger struct {
	level string
	base  *logrus.Entry
}

func New(level string) *Logger {
	return NewWithWriter(level, os.Stdout)
}

func NewWithWriter(level string, w io.Writer) *Logger {
	lv := strings.ToLower(strings.TrimSpace(level))
	if lv == "" {
		lv = "info"
	}
	parsed, err := logrus.ParseLevel(lv)
	if err != nil {
		lv = "info"
		parsed = logrus.InfoLevel
	}
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(parsed)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	return &Logger{level: lv, base: logrus.NewEntry(l)}
}

// Discard is used where a caller does not supply a logger.
func Discard() *Logger {
	return NewWithWriter("error", io.Discard)
}

func (l *Logger) Level() string { return l.level }

func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{level: l.level, base: l.base.WithField(key, value)}
}

func (l *Logger) WithError(err error) *Logger {
	return &Logger{level: l.level, base: l.base.WithError(err)}
}

func (l *Logger) Debugf(format string, args ...any) {
	l.base.Debugf(format, args...)
}

func (l *Logger) Infof(format string, args ...any) {
	l.base.Infof(format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.base.Warnf(format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.base.Errorf(format, args...)
}
