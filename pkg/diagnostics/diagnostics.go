// Package diagnostics records the request/response trail of a gateway call.
//
// A Recorder collects Rows in memory while a request is handled and writes
// them to a Sink once, on Flush. Payload strings are truncated to
// MaxPayloadLen when flushed. Sinks are pluggable: an in-memory sink for
// tests, a JSON-lines writer and an SQLite table.
package diagnostics

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"
)

// MaxPayloadLen is the longest payload a sink receives, in characters
const MaxPayloadLen = 40000

// Direction says where a row was observed
type Direction string

const (
	ClientToServer Direction = "client --> server"
	ServerToClient Direction = "server --> client"
	AtServer       Direction = "At server"
	AtClient       Direction = "At client"
	ClientSide     Direction = "Client side"
)

// Row is one diagnostic record. Method and ID are empty for rows that are
// not tied to a single request.
type Row struct {
	Date      time.Time   `json:"date"`
	Method    string      `json:"method,omitempty"`
	ID        interface{} `json:"id,omitempty"`
	Direction Direction   `json:"direction"`
	Payload   string      `json:"payload"`
}

// Sink persists flushed rows
type Sink interface {
	Write(ctx context.Context, rows []Row) error
}

// Recorder buffers rows for one unit of work. All rows of a recorder share
// the date it was created with. A nil *Recorder is valid and records nothing.
type Recorder struct {
	mu    sync.Mutex
	sink  Sink
	date  time.Time
	rows  []Row
	limit int
}

// Option configures a Recorder
type Option func(*Recorder)

// WithDate overrides the timestamp stamped on every row
func WithDate(t time.Time) Option {
	return func(r *Recorder) { r.date = t }
}

// WithPayloadLimit overrides MaxPayloadLen
func WithPayloadLimit(n int) Option {
	return func(r *Recorder) { r.limit = n }
}

// NewRecorder creates a recorder that flushes into sink
func NewRecorder(sink Sink, opts ...Option) *Recorder {
	r := &Recorder{sink: sink, date: time.Now(), limit: MaxPayloadLen}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add appends a row. id may be nil.
func (r *Recorder) Add(method string, id interface{}, dir Direction, payload string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, Row{Date: r.date, Method: method, ID: id, Direction: dir, Payload: payload})
}

// Addf is Add with a formatted payload
func (r *Recorder) Addf(method string, id interface{}, dir Direction, format string, args ...interface{}) {
	if r == nil {
		return
	}
	r.Add(method, id, dir, fmt.Sprintf(format, args...))
}

// Rows returns a copy of the buffered rows
func (r *Recorder) Rows() []Row {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Row(nil), r.rows...)
}

// Flush truncates payloads and writes the buffered rows to the sink.
// Rows are cleared even when the sink fails.
func (r *Recorder) Flush(ctx context.Context) error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	rows := r.rows
	r.rows = nil
	r.mu.Unlock()

	if len(rows) == 0 || r.sink == nil {
		return nil
	}
	for i := range rows {
		rows[i].Payload = Truncate(rows[i].Payload, r.limit)
	}
	if err := r.sink.Write(ctx, rows); err != nil {
		return fmt.Errorf("flush %d diagnostic rows: %w", len(rows), err)
	}
	return nil
}

// Truncate shortens s to at most n characters
func Truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

type recorderKey struct{}

// NewContext returns a context carrying rec
func NewContext(ctx context.Context, rec *Recorder) context.Context {
	return context.WithValue(ctx, recorderKey{}, rec)
}

// FromContext returns the recorder stored in ctx, or nil
func FromContext(ctx context.Context) *Recorder {
	rec, _ := ctx.Value(recorderKey{}).(*Recorder)
	return rec
}
