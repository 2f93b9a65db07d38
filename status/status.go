// Package status is the user facing diagnostics channel of the tools.
package status

import (
	"io"
	"math"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

type Level = log.Level

const (
	DEBUG = log.DebugLevel
	INFO  = log.InfoLevel
	WARN  = log.WarnLevel
	ERROR = log.ErrorLevel
)

type Logger struct {
	*log.Logger
}

var (
	globalLock sync.Mutex
	level      = INFO
	std        *Logger
)

// New creates a logger writing to w with the current process level. Batch
// workers write to a buffer each and flush it once the file is done.
func New(w io.Writer) *Logger {
	globalLock.Lock()
	defer globalLock.Unlock()
	return newLogger(w, level)
}

func newLogger(w io.Writer, lvl Level) *Logger {
	return &Logger{log.NewWithOptions(w, log.Options{
		Level:           lvl,
		ReportTimestamp: lvl == DEBUG,
		TimeFormat:      time.TimeOnly,
	})}
}

func Default() *Logger {
	globalLock.Lock()
	defer globalLock.Unlock()
	if std == nil {
		std = newLogger(os.Stderr, level)
	}
	return std
}

// SetLevel changes the level of the default logger and of every logger
// created afterwards.
func SetLevel(lvl Level) {
	globalLock.Lock()
	defer globalLock.Unlock()
	level = lvl
	if std != nil {
		std.SetLevel(lvl)
		std.SetReportTimestamp(lvl == DEBUG)
	}
}

func GetLevel() Level {
	globalLock.Lock()
	defer globalLock.Unlock()
	return level
}

// With returns a logger that attaches keyvals to every message.
func (l *Logger) With(keyvals ...interface{}) *Logger {
	return &Logger{l.Logger.With(keyvals...)}
}

// Progress is only shown at debug level.
func (l *Logger) Progress(progress float32, format string, a ...interface{}) {
	if math.IsNaN(float64(progress)) || math.IsInf(float64(progress), 0) {
		progress = 0
	}
	l.With("progress", progress).Debugf(format, a...)
}

func Warnf(format string, a ...interface{}) { Default().Warnf(format, a...) }

func Errorf(format string, a ...interface{}) { Default().Errorf(format, a...) }

func Progress(progress float32, format string, a ...interface{}) {
	Default().Progress(progress, format, a...)
}
