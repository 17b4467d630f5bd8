package diagnostics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSink struct{}

func (failingSink) Write(context.Context, []Row) error { return errors.New("disk full") }

func TestRecorderFlush(t *testing.T) {
	sink := NewMemorySink()
	date := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	rec := NewRecorder(sink, WithDate(date))

	rec.Add("tools/list", 1, ClientToServer, `{"method":"tools/list"}`)
	rec.Addf("", nil, AtServer, "Return no value to ID %v.", 2)
	assert.Len(t, rec.Rows(), 2)

	require.NoError(t, rec.Flush(context.Background()))
	assert.Empty(t, rec.Rows())

	rows := sink.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, date, rows[0].Date)
	assert.Equal(t, date, rows[1].Date)
	assert.Equal(t, "Return no value to ID 2.", rows[1].Payload)
	assert.Nil(t, rows[1].ID)
}

func TestRecorderTruncatesOnFlush(t *testing.T) {
	sink := NewMemorySink()
	rec := NewRecorder(sink)

	long := strings.Repeat("a", MaxPayloadLen+10)
	rec.Add("x", nil, ServerToClient, long)
	assert.Len(t, rec.Rows()[0].Payload, MaxPayloadLen+10)

	require.NoError(t, rec.Flush(context.Background()))
	assert.Len(t, sink.Rows()[0].Payload, MaxPayloadLen)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "日本", Truncate("日本語", 2))
	assert.Equal(t, "日本語", Truncate("日本語", 3))
	assert.Equal(t, "abc", Truncate("abc", 0))
}

func TestRecorderSinkError(t *testing.T) {
	rec := NewRecorder(failingSink{})
	rec.Add("m", nil, AtClient, "x")

	err := rec.Flush(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Empty(t, rec.Rows())
}

func TestNilRecorder(t *testing.T) {
	var rec *Recorder
	rec.Add("m", nil, AtClient, "x")
	assert.Nil(t, rec.Rows())
	assert.NoError(t, rec.Flush(context.Background()))
	assert.Nil(t, FromContext(context.Background()))
}

func TestContextRoundTrip(t *testing.T) {
	rec := NewRecorder(nil)
	ctx := NewContext(context.Background(), rec)
	assert.Same(t, rec, FromContext(ctx))
}

func TestWriterSink(t *testing.T) {
	var buf bytes.Buffer
	rec := NewRecorder(MultiSink{NewWriterSink(&buf), NewMemorySink()})
	rec.Add("batch process", nil, ServerToClient, `[{"id":1}]`)
	require.NoError(t, rec.Flush(context.Background()))

	var row map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &row))
	assert.Equal(t, "batch process", row["method"])
	assert.Equal(t, "server --> client", row["direction"])
	assert.Equal(t, `[{"id":1}]`, row["payload"])
}

func TestSQLiteSink(t *testing.T) {
	sink, err := NewSQLiteSink(filepath.Join(t.TempDir(), "diag", "rows.db"))
	require.NoError(t, err)
	defer sink.Close()

	rec := NewRecorder(sink)
	rec.Add("initialize", 1, ClientToServer, "{}")
	rec.Add("", nil, AtServer, "Invalid accessKey.")
	rec.Add("tools/call", "No ID", ServerToClient, "{}")
	require.NoError(t, rec.Flush(context.Background()))

	rows, err := sink.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "tools/call", rows[0].Method)
	assert.Equal(t, "No ID", rows[0].ID)
	assert.Equal(t, AtServer, rows[1].Direction)
	assert.Nil(t, rows[1].ID)
	assert.Equal(t, "1", rows[2].ID)
	assert.False(t, rows[2].Date.IsZero())
}
