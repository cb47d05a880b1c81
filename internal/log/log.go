package log

import "sync/atomic"

var (
	defaultLogger atomic.Pointer[Logger]
	nopLogger     = Nop()
)

// SetDefaultLogger sets the logger behind the package level functions.  Passing nil discards their output again.
func SetDefaultLogger(logger *Logger) {
	defaultLogger.Store(logger)
}

// DefaultLogger returns the logger set with SetDefaultLogger, or nil
func DefaultLogger() *Logger {
	return defaultLogger.Load()
}

// L returns the default logger, or a discarding logger when none has been set.  Components that accept an optional
// *Logger fall back to this.
func L() *Logger {
	if logger := defaultLogger.Load(); logger != nil {
		return logger
	}
	return nopLogger
}

// Debug logs at debug level using the default logger
func Debug(msg string, args ...any) { L().Debug(msg, args...) }

// Info logs at info level using the default logger
func Info(msg string, args ...any) { L().Info(msg, args...) }

// Warn logs at warn level using the default logger
func Warn(msg string, args ...any) { L().Warn(msg, args...) }

// Error logs at error level using the default logger
func Error(msg string, args ...any) { L().Error(msg, args...) }

// Trace logs at debug level when trace logging is enabled
func Trace(msg string, args ...any) { L().Trace(msg, args...) }
