package logging

import (
	"context"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// zeroLogger adapts a zerolog.Logger to Logger
type zeroLogger struct {
	zl    zerolog.Logger
	level *atomic.Int32
}

// NewZerolog wraps zl as a Logger. The wrapper keeps its own minimum level
// so SetLevel affects every logger derived with WithFields.
func NewZerolog(zl zerolog.Logger) Logger {
	lvl := &atomic.Int32{}
	lvl.Store(int32(InfoLevel))
	return &zeroLogger{zl: zl, level: lvl}
}

// NewConsole builds the zerolog console logger used by the command line
func NewConsole(w io.Writer, noColor bool) Logger {
	if w == nil {
		w = os.Stderr
	}
	out := zerolog.ConsoleWriter{Out: w, NoColor: noColor, TimeFormat: time.RFC3339}
	return NewZerolog(zerolog.New(out).With().Timestamp().Logger())
}

func (l *zeroLogger) Debug(msg string, fields ...Field) { l.log(DebugLevel, msg, fields) }
func (l *zeroLogger) Info(msg string, fields ...Field)  { l.log(InfoLevel, msg, fields) }
func (l *zeroLogger) Warn(msg string, fields ...Field)  { l.log(WarnLevel, msg, fields) }
func (l *zeroLogger) Error(msg string, fields ...Field) { l.log(ErrorLevel, msg, fields) }

func (l *zeroLogger) Fatal(msg string, fields ...Field) {
	l.log(FatalLevel, msg, fields)
	os.Exit(1)
}

func (l *zeroLogger) WithFields(fields ...Field) Logger {
	ctx := l.zl.With()
	for _, f := range fields {
		ctx = withField(ctx, f)
	}
	return &zeroLogger{zl: ctx.Logger(), level: l.level}
}

func (l *zeroLogger) WithContext(ctx context.Context) Logger {
	if id := RequestIDFromContext(ctx); id != "" {
		return l.WithFields(String(KeyRequestID, id))
	}
	return l
}

func (l *zeroLogger) WithError(err error) Logger {
	return l.WithFields(errorFields(err)...)
}

func (l *zeroLogger) SetLevel(level Level) { l.level.Store(int32(level)) }
func (l *zeroLogger) GetLevel() Level      { return Level(l.level.Load()) }

func (l *zeroLogger) log(level Level, msg string, fields []Field) {
	if level < l.GetLevel() {
		return
	}
	var ev *zerolog.Event
	switch level {
	case DebugLevel:
		ev = l.zl.Debug()
	case WarnLevel:
		ev = l.zl.Warn()
	case ErrorLevel:
		ev = l.zl.Error()
	case FatalLevel:
		// zerolog's Fatal exits on Msg; the caller exits instead
		ev = l.zl.WithLevel(zerolog.FatalLevel)
	default:
		ev = l.zl.Info()
	}
	for _, f := range fields {
		ev = eventField(ev, f)
	}
	ev.Msg(msg)
}

func withField(c zerolog.Context, f Field) zerolog.Context {
	switch v := f.Value.(type) {
	case string:
		return c.Str(f.Key, v)
	case int:
		return c.Int(f.Key, v)
	case int64:
		return c.Int64(f.Key, v)
	case bool:
		return c.Bool(f.Key, v)
	case time.Duration:
		return c.Dur(f.Key, v)
	case time.Time:
		return c.Time(f.Key, v)
	case error:
		return c.AnErr(f.Key, v)
	default:
		return c.Interface(f.Key, v)
	}
}

func eventField(e *zerolog.Event, f Field) *zerolog.Event {
	switch v := f.Value.(type) {
	case string:
		return e.Str(f.Key, v)
	case int:
		return e.Int(f.Key, v)
	case int64:
		return e.Int64(f.Key, v)
	case bool:
		return e.Bool(f.Key, v)
	case time.Duration:
		return e.Dur(f.Key, v)
	case time.Time:
		return e.Time(f.Key, v)
	case error:
		return e.AnErr(f.Key, v)
	default:
		return e.Interface(f.Key, v)
	}
}
