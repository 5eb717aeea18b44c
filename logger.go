package mqttv3

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync/atomic"
)

// LogLevel represents the logging level.
type LogLevel int32

const (
	// LogLevelDebug is the debug log level.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo is the info log level.
	LogLevelInfo
	// LogLevelWarn is the warn log level.
	LogLevelWarn
	// LogLevelError is the error log level.
	LogLevelError
	// LogLevelNone disables all logging.
	LogLevelNone
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	case LogLevelNone:
		return "NONE"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel parses a level name as produced by LogLevel.String.
// Matching is case-insensitive.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LogLevelDebug, nil
	case "INFO", "":
		return LogLevelInfo, nil
	case "WARN", "WARNING":
		return LogLevelWarn, nil
	case "ERROR":
		return LogLevelError, nil
	case "NONE", "OFF":
		return LogLevelNone, nil
	default:
		return LogLevelNone, fmt.Errorf("unknown log level %q", s)
	}
}

// LogFields represents key-value pairs for structured logging.
type LogFields map[string]any

// Logger defines the interface for logging.
type Logger interface {
	// Debug logs a debug message.
	Debug(msg string, fields LogFields)

	// Info logs an info message.
	Info(msg string, fields LogFields)

	// Warn logs a warning message.
	Warn(msg string, fields LogFields)

	// Error logs an error message.
	Error(msg string, fields LogFields)

	// WithFields returns a new logger with the given fields added.
	WithFields(fields LogFields) Logger

	// Level returns the current log level.
	Level() LogLevel

	// SetLevel sets the log level.
	SetLevel(level LogLevel)
}

// NoOpLogger is a logger that does nothing.
type NoOpLogger struct {
	level atomic.Int32
}

// NewNoOpLogger creates a new no-op logger.
func NewNoOpLogger() *NoOpLogger {
	n := &NoOpLogger{}
	n.level.Store(int32(LogLevelNone))
	return n
}

// Debug does nothing.
func (n *NoOpLogger) Debug(_ string, _ LogFields) {}

// Info does nothing.
func (n *NoOpLogger) Info(_ string, _ LogFields) {}

// Warn does nothing.
func (n *NoOpLogger) Warn(_ string, _ LogFields) {}

// Error does nothing.
func (n *NoOpLogger) Error(_ string, _ LogFields) {}

// WithFields returns the same logger.
func (n *NoOpLogger) WithFields(_ LogFields) Logger {
	return n
}

// Level returns the log level.
func (n *NoOpLogger) Level() LogLevel {
	return LogLevel(n.level.Load())
}

// SetLevel sets the log level.
func (n *NoOpLogger) SetLevel(level LogLevel) {
	n.level.Store(int32(level))
}

// StdLogger is a simple logger using the standard library log package.
// Loggers derived through WithFields share the level of their parent.
type StdLogger struct {
	logger *log.Logger
	level  *atomic.Int32
	fields LogFields
}

// NewStdLogger creates a new standard library based logger.
func NewStdLogger(w io.Writer, level LogLevel) *StdLogger {
	if w == nil {
		w = os.Stderr
	}

	s := &StdLogger{
		logger: log.New(w, "", log.LstdFlags),
		level:  new(atomic.Int32),
		fields: make(LogFields),
	}
	s.level.Store(int32(level))
	return s
}

// Debug logs a debug message.
func (s *StdLogger) Debug(msg string, fields LogFields) {
	if s.Level() <= LogLevelDebug {
		s.log("DEBUG", msg, fields)
	}
}

// Info logs an info message.
func (s *StdLogger) Info(msg string, fields LogFields) {
	if s.Level() <= LogLevelInfo {
		s.log("INFO", msg, fields)
	}
}

// Warn logs a warning message.
func (s *StdLogger) Warn(msg string, fields LogFields) {
	if s.Level() <= LogLevelWarn {
		s.log("WARN", msg, fields)
	}
}

// Error logs an error message.
func (s *StdLogger) Error(msg string, fields LogFields) {
	if s.Level() <= LogLevelError {
		s.log("ERROR", msg, fields)
	}
}

// WithFields returns a new logger with the given fields added.
func (s *StdLogger) WithFields(fields LogFields) Logger {
	return &StdLogger{
		logger: s.logger,
		level:  s.level,
		fields: mergeFields(s.fields, fields),
	}
}

// Level returns the current log level.
func (s *StdLogger) Level() LogLevel {
	return LogLevel(s.level.Load())
}

// SetLevel sets the log level.
func (s *StdLogger) SetLevel(level LogLevel) {
	s.level.Store(int32(level))
}

func (s *StdLogger) log(level, msg string, fields LogFields) {
	all := mergeFields(s.fields, fields)
	if len(all) == 0 {
		s.logger.Printf("[%s] %s", level, msg)
		return
	}

	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, all[k])
	}

	s.logger.Printf("[%s] %s%s", level, msg, b.String())
}

// SlogLogger adapts a *slog.Logger to Logger.
type SlogLogger struct {
	logger *slog.Logger
	level  *atomic.Int32
}

// NewSlogLogger wraps l. A nil l uses slog.Default().
func NewSlogLogger(l *slog.Logger, level LogLevel) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}

	s := &SlogLogger{logger: l, level: new(atomic.Int32)}
	s.level.Store(int32(level))
	return s
}

// Debug logs a debug message.
func (s *SlogLogger) Debug(msg string, fields LogFields) {
	s.log(LogLevelDebug, slog.LevelDebug, msg, fields)
}

// Info logs an info message.
func (s *SlogLogger) Info(msg string, fields LogFields) {
	s.log(LogLevelInfo, slog.LevelInfo, msg, fields)
}

// Warn logs a warning message.
func (s *SlogLogger) Warn(msg string, fields LogFields) {
	s.log(LogLevelWarn, slog.LevelWarn, msg, fields)
}

// Error logs an error message.
func (s *SlogLogger) Error(msg string, fields LogFields) {
	s.log(LogLevelError, slog.LevelError, msg, fields)
}

// WithFields returns a new logger with the given fields added.
func (s *SlogLogger) WithFields(fields LogFields) Logger {
	return &SlogLogger{
		logger: s.logger.With(fieldAttrs(fields)...),
		level:  s.level,
	}
}

// Level returns the current log level.
func (s *SlogLogger) Level() LogLevel {
	return LogLevel(s.level.Load())
}

// SetLevel sets the log level.
func (s *SlogLogger) SetLevel(level LogLevel) {
	s.level.Store(int32(level))
}

func (s *SlogLogger) log(level LogLevel, slevel slog.Level, msg string, fields LogFields) {
	if s.Level() > level {
		return
	}

	s.logger.Log(context.Background(), slevel, msg, fieldAttrs(fields)...)
}

// fieldAttrs converts fields to slog key/value arguments in key order.
func fieldAttrs(fields LogFields) []any {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	args := make([]any, 0, len(keys))
	for _, k := range keys {
		args = append(args, slog.Any(k, fields[k]))
	}
	return args
}

func mergeFields(base, extra LogFields) LogFields {
	merged := make(LogFields, len(base)+len(extra))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

// Standard field names for MQTT logging.
const (
	// LogFieldClientID is the client ID field.
	LogFieldClientID = "client_id"

	// LogFieldTopic is the topic field.
	LogFieldTopic = "topic"

	// LogFieldPacketID is the packet ID field.
	LogFieldPacketID = "packet_id"

	// LogFieldPacketType is the packet type field.
	LogFieldPacketType = "packet_type"

	// LogFieldQoS is the QoS field.
	LogFieldQoS = "qos"

	// LogFieldReturnCode is the CONNACK or SUBACK return code field.
	LogFieldReturnCode = "return_code"

	// LogFieldError is the error field.
	LogFieldError = "error"

	// LogFieldRemoteAddr is the remote address field.
	LogFieldRemoteAddr = "remote_addr"

	// LogFieldBytes is the bytes field.
	LogFieldBytes = "bytes"
)
