package logging

import (
	"context"
	"log/slog"
	"time"
)

// Standardized structured logging keys shared by all components.
const (
	// FieldComponent names the subsystem emitting the line.
	FieldComponent = "component"
	// FieldEventType tags lifecycle events for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint carries the suggested next step for a failure.
	FieldErrorHint = "error_hint"
	// FieldSession is the supervisor session identifier for one server run.
	FieldSession = "session"
	// FieldPID is the operating system process id of the device server.
	FieldPID = "pid"
	// FieldDevice names a discovered or configured device.
	FieldDevice = "device"
	// FieldAddress is a listener or device address (port path or host:port).
	FieldAddress = "address"
	// FieldTransport is the discovery transport kind (serial or ethernet).
	FieldTransport = "transport"
)

type Attr = slog.Attr

func Any(key string, value any) Attr { return slog.Any(key, value) }

func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func Int64(key string, value int64) Attr { return slog.Int64(key, value) }

func String(key string, value string) Attr { return slog.String(key, value) }

func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

// Args converts attrs to the variadic any form slog methods take.
func Args(attrs ...Attr) []any {
	args := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	return args
}

// NewNop returns a logger that discards all records.
func NewNop() *slog.Logger {
	return slog.New(NoopHandler{})
}

// NewComponentLogger creates a logger tagged with a component attribute.
// A nil base logger falls back to the no-op logger.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

// NoopHandler discards all log output.
type NoopHandler struct{}

func (NoopHandler) Enabled(context.Context, slog.Level) bool { return false }

func (NoopHandler) Handle(context.Context, slog.Record) error { return nil }

func (NoopHandler) WithAttrs([]slog.Attr) slog.Handler { return NoopHandler{} }

func (NoopHandler) WithGroup(string) slog.Handler { return NoopHandler{} }
