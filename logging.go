package ancestor

import (
	"context"
	"log/slog"
)

// LogEventKind names the engine event being logged.
type LogEventKind string

const (
	LogSchemaComputed     LogEventKind = "schema.computed"
	LogConfigurationError LogEventKind = "schema.configuration_error"
	LogLinkInstalled      LogEventKind = "link.installed"
	LogLinkDropped        LogEventKind = "link.dropped"
	LogChangeForwarded    LogEventKind = "change.forwarded"
	LogChangeSuppressed   LogEventKind = "change.suppressed"
	LogHookFailed         LogEventKind = "activity.hook_failed"
)

// LogEvent describes one engine event.
type LogEvent struct {
	Kind     LogEventKind
	Type     string
	NodeID   string
	Property string
	Count    int
	Err      error
}

// Logger records engine events.
type Logger interface {
	Log(LogEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(LogEvent)

// Log implements Logger.
func (f LoggerFunc) Log(event LogEvent) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) Log(LogEvent) {}

// NewSlogLogger writes engine events to logger. Errors are logged at error
// level, everything else at debug.
func NewSlogLogger(logger *slog.Logger) Logger {
	if logger == nil {
		return noopLogger{}
	}
	return slogLogger{logger: logger}
}

type slogLogger struct {
	logger *slog.Logger
}

func (l slogLogger) Log(event LogEvent) {
	attrs := make([]slog.Attr, 0, 5)
	if event.Type != "" {
		attrs = append(attrs, slog.String("type", event.Type))
	}
	if event.NodeID != "" {
		attrs = append(attrs, slog.String("node_id", event.NodeID))
	}
	if event.Property != "" {
		attrs = append(attrs, slog.String("property", event.Property))
	}
	if event.Kind == LogSchemaComputed {
		attrs = append(attrs, slog.Int("properties", event.Count))
	}
	level := slog.LevelDebug
	if event.Err != nil {
		level = slog.LevelError
		attrs = append(attrs, slog.Any("error", event.Err))
	}
	l.logger.LogAttrs(context.Background(), level, "ancestor: "+string(event.Kind), attrs...)
}
