package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TextFormatter writes one line per entry:
//
//	2025-01-02T15:04:05.000Z INFO  [router] tools/call (req-1): message key=value
//
// The component, JSON-RPC method and request id come from the header
// fields; everything else follows as key=value pairs in the order added.
type TextFormatter struct {
	// TimestampFormat defaults to RFC 3339 with milliseconds
	TimestampFormat  string
	DisableColors    bool
	DisableTimestamp bool
}

// NewTextFormatter creates a text formatter with colors enabled
func NewTextFormatter() *TextFormatter {
	return &TextFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"}
}

var headerKeys = map[string]bool{
	KeyRequestID: true,
	KeyComponent: true,
	KeyMethod:    true,
}

var levelColors = map[Level]string{
	DebugLevel: "\033[90m",
	InfoLevel:  "\033[34m",
	WarnLevel:  "\033[33m",
	ErrorLevel: "\033[31m",
	FatalLevel: "\033[31m",
}

func (f *TextFormatter) Format(entry *Entry) ([]byte, error) {
	var buf bytes.Buffer

	if !f.DisableTimestamp {
		buf.WriteString(entry.Timestamp.Format(f.TimestampFormat))
		buf.WriteByte(' ')
	}

	level := fmt.Sprintf("%-5s", entry.Level.String())
	if color, ok := levelColors[entry.Level]; ok && !f.DisableColors {
		level = color + level + "\033[0m"
	}
	buf.WriteString(level)

	if c := entry.header(KeyComponent); c != "" {
		buf.WriteString(" [" + c + "]")
	}
	if m := entry.header(KeyMethod); m != "" {
		buf.WriteString(" " + m)
	}
	if id := entry.header(KeyRequestID); id != "" {
		buf.WriteString(" (" + id + ")")
	}
	buf.WriteString(": ")
	buf.WriteString(entry.Message)

	for _, field := range entry.Fields {
		if headerKeys[field.Key] {
			continue
		}
		buf.WriteByte(' ')
		buf.WriteString(field.Key)
		buf.WriteByte('=')
		buf.WriteString(textValue(field.Value))
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// textValue renders v, quoting strings that would break key=value parsing
func textValue(v interface{}) string {
	var s string
	switch val := v.(type) {
	case nil:
		return "<nil>"
	case error:
		s = val.Error()
	case string:
		s = val
	case time.Duration:
		return val.String()
	case fmt.Stringer:
		s = val.String()
	default:
		return fmt.Sprintf("%v", v)
	}
	if s == "" || strings.ContainsAny(s, " =\"\n\t") {
		return strconv.Quote(s)
	}
	return s
}

// JSONFormatter writes one JSON object per line. The keys "time", "level"
// and "message" come first, then the fields in the order added.
type JSONFormatter struct {
	TimestampFormat  string
	DisableTimestamp bool
}

// NewJSONFormatter creates a JSON formatter
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{TimestampFormat: time.RFC3339Nano}
}

func (f *JSONFormatter) Format(entry *Entry) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	first := true
	write := func(key string, value interface{}) error {
		if err, ok := value.(error); ok {
			value = err.Error()
		}
		v, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("marshal field %s: %w", key, err)
		}
		k, _ := json.Marshal(key)
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}

	if !f.DisableTimestamp {
		if err := write("time", entry.Timestamp.Format(f.TimestampFormat)); err != nil {
			return nil, err
		}
	}
	if err := write("level", entry.Level.String()); err != nil {
		return nil, err
	}
	if err := write("message", entry.Message); err != nil {
		return nil, err
	}
	for _, field := range entry.Fields {
		switch field.Key {
		case "time", "level", "message":
			continue
		}
		if err := write(field.Key, field.Value); err != nil {
			return nil, err
		}
	}

	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

// NewFormatter returns the formatter for a configured format name:
// "json" selects JSONFormatter, anything else TextFormatter.
func NewFormatter(format string, noColor bool) Formatter {
	if strings.EqualFold(format, "json") {
		return NewJSONFormatter()
	}
	f := NewTextFormatter()
	f.DisableColors = noColor
	return f
}
