package core

import "github.com/hupe1980/agentcrew/logging"

// loggerAdapter exposes LogDebug/LogInfo/LogWarn/LogError on run and tool
// contexts. Every entry carries the scope attributes (run id, function call
// id) after the caller's own key/value pairs.
type loggerAdapter struct {
	logger logging.Logger
	scope  []any
}

// newLoggerAdapter substitutes a NoOpLogger for nil.
func newLoggerAdapter(l logging.Logger, scope ...any) *loggerAdapter {
	if l == nil {
		l = logging.NoOpLogger{}
	}
	return &loggerAdapter{logger: l, scope: scope}
}

// Logger returns the underlying logger without scope attributes.
func (l *loggerAdapter) Logger() logging.Logger {
	return l.logger
}

func (l *loggerAdapter) with(args []any) []any {
	if len(l.scope) == 0 {
		return args
	}
	out := make([]any, 0, len(args)+len(l.scope))
	return append(append(out, args...), l.scope...)
}

// LogDebug logs a debug message.
func (l *loggerAdapter) LogDebug(msg string, args ...any) { l.logger.Debug(msg, l.with(args)...) }

// LogInfo logs an info message.
func (l *loggerAdapter) LogInfo(msg string, args ...any) { l.logger.Info(msg, l.with(args)...) }

// LogWarn logs a warning message.
func (l *loggerAdapter) LogWarn(msg string, args ...any) { l.logger.Warn(msg, l.with(args)...) }

// LogError logs an error message.
func (l *loggerAdapter) LogError(msg string, args ...any) { l.logger.Error(msg, l.with(args)...) }
