package diagnostics

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// MemorySink keeps every flushed row in memory
type MemorySink struct {
	mu   sync.Mutex
	rows []Row
}

// NewMemorySink creates an empty MemorySink
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Write(_ context.Context, rows []Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, rows...)
	return nil
}

// Rows returns a copy of the rows written so far
func (s *MemorySink) Rows() []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Row(nil), s.rows...)
}

// WriterSink writes rows as JSON lines
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink creates a sink writing one JSON object per row to w
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Write(_ context.Context, rows []Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	enc := json.NewEncoder(s.w)
	enc.SetEscapeHTML(false)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("encode row: %w", err)
		}
	}
	return nil
}

// MultiSink fans rows out to several sinks and returns the first error
type MultiSink []Sink

func (m MultiSink) Write(ctx context.Context, rows []Row) error {
	var first error
	for _, s := range m {
		if err := s.Write(ctx, rows); err != nil && first == nil {
			first = err
		}
	}
	return first
}
