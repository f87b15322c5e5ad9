package internal

// Internal logging utility.

import (
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

// Logger is a leveled logger for one package. All loggers share one logrus
// backend, so setting the level or output on any of them affects all.
type Logger struct {
	entry *logrus.Entry
}

type LogLevel int

const (
	// error levels that should almost always be printed
	LevelFatal LogLevel = iota // error that must stop the program (panics)
	LevelError                 // error that does not need to stop execution

	// debugging levels, okay to disable
	LevelWarn // something may be wrong, but not necessarily an error
	LevelInfo // nothing wrong, informational only

	// Production code by default only shows warnings and above.
	LogLevelDefault = LevelWarn

	// min, max levels for setting print level
	LevelMin = LevelFatal
	LevelMax = LevelInfo
)

var (
	levelToLogrus = []logrus.Level{
		logrus.FatalLevel,
		logrus.ErrorLevel,
		logrus.WarnLevel,
		logrus.InfoLevel,
	}

	backendOnce sync.Once
	backend     *logrus.Logger
)

func std() *logrus.Logger {
	backendOnce.Do(func() {
		backend = logrus.New()
		backend.SetLevel(levelToLogrus[LogLevelDefault])
	})
	return backend
}

// NewLogger returns a logger that tags its messages with the package name.
func NewLogger(pkg string) *Logger {
	return &Logger{entry: std().WithField("pkg", pkg)}
}

func (l *Logger) LogLevel() LogLevel {
	for i, lv := range levelToLogrus {
		if lv == l.entry.Logger.GetLevel() {
			return LogLevel(i)
		}
	}
	return LevelMax
}

// SetLogLevel returns the old level
func (l *Logger) SetLogLevel(level LogLevel) LogLevel {
	if level < LevelMin || level > LevelMax {
		panic("trying to set invalid log level")
	}
	old := l.LogLevel()
	l.entry.Logger.SetLevel(levelToLogrus[level])
	return old
}

// SetOutput redirects all loggers.
func (l *Logger) SetOutput(w io.Writer) {
	l.entry.Logger.SetOutput(w)
}

// WithFields returns an entry carrying structured context.
func (l *Logger) WithFields(fields logrus.Fields) *logrus.Entry {
	return l.entry.WithFields(fields)
}

func (l *Logger) Info(v ...any)                 { l.entry.Info(fmt.Sprint(v...)) }
func (l *Logger) Infof(format string, v ...any) { l.entry.Infof(format, v...) }

func (l *Logger) Warn(v ...any)                 { l.entry.Warn(fmt.Sprint(v...)) }
func (l *Logger) Warnf(format string, v ...any) { l.entry.Warnf(format, v...) }

func (l *Logger) Error(v ...any)                 { l.entry.Error(fmt.Sprint(v...)) }
func (l *Logger) Errorf(format string, v ...any) { l.entry.Errorf(format, v...) }

func (l *Logger) Fatal(v ...any) {
	l.entry.Fatal(fmt.Sprint(v...))
}

func (l *Logger) Fatalf(format string, v ...any) {
	l.entry.Fatalf(format, v...)
}
