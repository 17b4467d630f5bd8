// Package logging provides the structured logger used across the gateway.
//
// Logger is a small interface with two implementations: a formatter-based
// logger writing text or JSON lines (New) and an adapter over zerolog
// (NewZerolog) used by the command line. NewNop discards everything and is
// the default wherever a logger is optional.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	mcperrors "github.com/ajitpratap0/mcp-gateway/pkg/errors"
)

// Level orders log severities. The zero value is InfoLevel.
type Level int

const (
	DebugLevel Level = iota - 1
	InfoLevel
	WarnLevel
	ErrorLevel
	// FatalLevel logs and exits the process
	FatalLevel
)

var levelNames = map[Level]string{
	DebugLevel: "DEBUG",
	InfoLevel:  "INFO",
	WarnLevel:  "WARN",
	ErrorLevel: "ERROR",
	FatalLevel: "FATAL",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseLevel converts a level name such as "debug" or "WARN" to a Level.
func ParseLevel(s string) (Level, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	switch name {
	case "":
		return InfoLevel, nil
	case "WARNING":
		return WarnLevel, nil
	}
	for l, n := range levelNames {
		if n == name {
			return l, nil
		}
	}
	return InfoLevel, fmt.Errorf("unknown log level %q", s)
}

// Field is one key=value pair attached to a log line
type Field struct {
	Key   string
	Value interface{}
}

// Typed field constructors. Formatters render durations and times in
// their own layout, everything else through fmt or encoding/json.

func String(key, value string) Field                 { return Field{key, value} }
func Int(key string, value int) Field                { return Field{key, value} }
func Int64(key string, value int64) Field            { return Field{key, value} }
func Bool(key string, value bool) Field              { return Field{key, value} }
func Duration(key string, value time.Duration) Field { return Field{key, value} }
func Time(key string, value time.Time) Field         { return Field{key, value} }
func Any(key string, value interface{}) Field        { return Field{key, value} }

// ErrorField stores err under "error"
func ErrorField(err error) Field { return Field{"error", err} }

// Logger is implemented by the built-in sink logger and the zerolog
// adapter. Loggers derived with the With methods share their parent's
// output and level.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	WithFields(fields ...Field) Logger
	// WithContext adds the request id carried by ctx, if any
	WithContext(ctx context.Context) Logger
	// WithError adds err and, for gateway errors, its code and context
	WithError(err error) Logger

	SetLevel(level Level)
	GetLevel() Level
}

// Header keys. The text formatter prints these ahead of the message
// instead of as key=value pairs.
const (
	KeyRequestID = "request_id"
	KeyComponent = "component"
	KeyMethod    = "method"
	KeySession   = "session"
)

// Entry is one formatted record. Fields keep the order they were added in;
// a repeated key keeps its first position and its last value.
type Entry struct {
	Level     Level
	Message   string
	Fields    []Field
	Timestamp time.Time
}

// Lookup returns the value of the field named key
func (e *Entry) Lookup(key string) (interface{}, bool) {
	for _, f := range e.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// header returns the string value of a header field
func (e *Entry) header(key string) string {
	v, _ := e.Lookup(key)
	s, _ := v.(string)
	return s
}

// Formatter formats log entries
type Formatter interface {
	Format(entry *Entry) ([]byte, error)
}

// sink is shared by a logger and everything derived from it
type sink struct {
	mu        sync.Mutex
	output    io.Writer
	formatter Formatter
	level     atomic.Int32
}

// fieldLogger writes entries through a Formatter
type fieldLogger struct {
	sink   *sink
	fields []Field
}

// New creates a logger writing formatted entries to output. Loggers
// derived with WithFields share its output and level.
func New(output io.Writer, formatter Formatter) Logger {
	if output == nil {
		output = os.Stdout
	}
	if formatter == nil {
		formatter = NewTextFormatter()
	}
	s := &sink{output: output, formatter: formatter}
	s.level.Store(int32(InfoLevel))
	return &fieldLogger{sink: s}
}

func (l *fieldLogger) Debug(msg string, fields ...Field) { l.log(DebugLevel, msg, fields) }
func (l *fieldLogger) Info(msg string, fields ...Field)  { l.log(InfoLevel, msg, fields) }
func (l *fieldLogger) Warn(msg string, fields ...Field)  { l.log(WarnLevel, msg, fields) }
func (l *fieldLogger) Error(msg string, fields ...Field) { l.log(ErrorLevel, msg, fields) }

func (l *fieldLogger) Fatal(msg string, fields ...Field) {
	l.log(FatalLevel, msg, fields)
	os.Exit(1)
}

func (l *fieldLogger) WithFields(fields ...Field) Logger {
	return &fieldLogger{sink: l.sink, fields: merge(l.fields, fields)}
}

// WithContext adds the request id carried by ctx, if any
func (l *fieldLogger) WithContext(ctx context.Context) Logger {
	if id := RequestIDFromContext(ctx); id != "" {
		return l.WithFields(String(KeyRequestID, id))
	}
	return l
}

// WithError adds err and, for an MCPError, its code, category and the
// component that raised it
func (l *fieldLogger) WithError(err error) Logger {
	return l.WithFields(errorFields(err)...)
}

func (l *fieldLogger) SetLevel(level Level) { l.sink.level.Store(int32(level)) }
func (l *fieldLogger) GetLevel() Level      { return Level(l.sink.level.Load()) }

func (l *fieldLogger) log(level Level, msg string, fields []Field) {
	if level < l.GetLevel() {
		return
	}
	entry := &Entry{
		Level:     level,
		Message:   msg,
		Fields:    merge(l.fields, fields),
		Timestamp: time.Now(),
	}
	data, err := l.sink.formatter.Format(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: format entry: %v\n", err)
		return
	}

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	if _, err := l.sink.output.Write(data); err != nil {
		fmt.Fprintf(os.Stderr, "logging: write entry: %v\n", err)
	}
}

// merge appends extra to base without aliasing base
func merge(base, extra []Field) []Field {
	out := make([]Field, len(base), len(base)+len(extra))
	copy(out, base)
next:
	for _, f := range extra {
		for i := range out {
			if out[i].Key == f.Key {
				out[i].Value = f.Value
				continue next
			}
		}
		out = append(out, f)
	}
	return out
}

func errorFields(err error) []Field {
	fields := []Field{ErrorField(err)}
	mcpErr, ok := mcperrors.AsMCPError(err)
	if !ok {
		return fields
	}
	fields = append(fields,
		Int("error_code", mcpErr.Code()),
		String("error_category", string(mcpErr.Category())),
	)
	if ctx := mcpErr.Context(); ctx != nil {
		if ctx.RequestID != "" {
			fields = append(fields, String(KeyRequestID, ctx.RequestID))
		}
		if ctx.Component != "" {
			fields = append(fields, String(KeyComponent, ctx.Component))
		}
		if ctx.Method != "" {
			fields = append(fields, String(KeyMethod, ctx.Method))
		}
		if ctx.Operation != "" {
			fields = append(fields, String("operation", ctx.Operation))
		}
	}
	return fields
}

type nopLogger struct{}

// NewNop returns a Logger that discards all entries
func NewNop() Logger { return nopLogger{} }

func (nopLogger) Debug(string, ...Field)               {}
func (nopLogger) Info(string, ...Field)                {}
func (nopLogger) Warn(string, ...Field)                {}
func (nopLogger) Error(string, ...Field)               {}
func (nopLogger) Fatal(string, ...Field)               { os.Exit(1) }
func (n nopLogger) WithFields(...Field) Logger         { return n }
func (n nopLogger) WithContext(context.Context) Logger { return n }
func (n nopLogger) WithError(error) Logger             { return n }
func (nopLogger) SetLevel(Level)                       {}
func (nopLogger) GetLevel() Level                      { return FatalLevel + 1 }

// OrNop returns l, or a no-op logger when l is nil
func OrNop(l Logger) Logger {
	if l == nil {
		return NewNop()
	}
	return l
}

// contextKey is the type of context keys owned by this package
type contextKey string

const requestIDKey contextKey = KeyRequestID

// ContextWithRequestID returns a context with a request ID
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the request ID from a context
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}
