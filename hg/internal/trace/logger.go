// Package trace holds the logger shared by the hg packages.
package trace

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var (
	logger     = log.New(io.Discard)
	loggerMu   sync.RWMutex
	loggerOnce sync.Once
	logEnabled bool
)

// init auto-initializes the logger from environment variables.
// Set HGAZY_LOG_FILE to enable logging to a file.
// Set HGAZY_LOG_LEVEL to control verbosity (debug, info, warn, error).
func init() {
	logPath := os.Getenv("HGAZY_LOG_FILE")
	if logPath == "" {
		return // Logging disabled by default
	}

	if err := InitLogger(logPath, ParseLevel(os.Getenv("HGAZY_LOG_LEVEL"))); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}
}

// ParseLevel maps a level name to a log level. Unknown names mean info.
func ParseLevel(s string) log.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	}
	return log.InfoLevel
}

// InitLogger initializes the logger to write to the specified file.
// If logPath is empty, logging is disabled.
// Only the first call has an effect.
func InitLogger(logPath string, level log.Level) error {
	var initErr error
	loggerOnce.Do(func() {
		if logPath == "" {
			return
		}

		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			initErr = err
			return
		}

		SetLogger(log.NewWithOptions(f, log.Options{
			Level:           level,
			Prefix:          "hg",
			ReportTimestamp: true,
			ReportCaller:    false,
		}))
	})
	return initErr
}

// SetLogger allows injecting a custom logger (useful for testing).
// A nil logger disables logging.
func SetLogger(l *log.Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if l == nil {
		logger = log.New(io.Discard)
		logEnabled = false
		return
	}
	logger = l
	logEnabled = true
}

// Logger returns the current logger. It never returns nil.
func Logger() *log.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

func enabled() bool {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logEnabled
}

// Debug logs at debug level.
func Debug(msg string, keyvals ...any) { Logger().Debug(msg, keyvals...) }

// Info logs at info level.
func Info(msg string, keyvals ...any) { Logger().Info(msg, keyvals...) }

// Warn logs at warn level.
func Warn(msg string, keyvals ...any) { Logger().Warn(msg, keyvals...) }

// Error logs at error level.
func Error(msg string, keyvals ...any) { Logger().Error(msg, keyvals...) }

// Op creates a logging context for an operation.
// Returns a function that should be called when the operation completes.
//
// Usage:
//
//	done := trace.Op("Refresh", "root", root)
//	defer done(nil) // or done(err) on error
func Op(op string, keyvals ...any) func(error) {
	if !enabled() {
		return func(error) {}
	}

	start := time.Now()
	return func(err error) {
		finish(op, start, err, keyvals)
	}
}

// OpWithResult is like Op but allows adding result info at completion.
//
// Usage:
//
//	done := trace.OpWithResult("ParseLog")
//	// ... operation ...
//	done(nil, "count", len(records))
func OpWithResult(op string, keyvals ...any) func(error, ...any) {
	if !enabled() {
		return func(error, ...any) {}
	}

	start := time.Now()
	return func(err error, resultKeyvals ...any) {
		args := make([]any, 0, len(keyvals)+len(resultKeyvals))
		args = append(args, keyvals...)
		args = append(args, resultKeyvals...)
		finish(op, start, err, args)
	}
}

func finish(op string, start time.Time, err error, keyvals []any) {
	args := make([]any, 0, len(keyvals)+6)
	args = append(args, "op", op)
	args = append(args, "duration", time.Since(start).String())
	args = append(args, keyvals...)

	l := Logger()
	if err != nil {
		args = append(args, "error", err.Error())
		l.Error("operation failed", args...)
		return
	}
	l.Info("operation complete", args...)
}

// Truncate truncates a string to maxLen characters for safe logging.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
