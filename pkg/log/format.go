package log

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Formatter renders entries to bytes.
type Formatter interface {
	Format(entry *Entry) ([]byte, error)
}

// TextFormatter renders entries as a single human-readable line:
//
//	2006-01-02T15:04:05.000Z INFO  append stream=t1 seq=4
type TextFormatter struct{}

// Format renders the entry. Fields are sorted for stable output.
func (f *TextFormatter) Format(entry *Entry) ([]byte, error) {
	var b strings.Builder
	b.WriteString(entry.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z"))
	b.WriteByte(' ')
	b.WriteString(fmt.Sprintf("%-5s", entry.Level.String()))
	b.WriteByte(' ')
	b.WriteString(entry.Message)
	keys := make([]string, 0, len(entry.Fields))
	for k := range entry.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(fmt.Sprintf("%v", entry.Fields[k]))
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

// JSONFormatter renders entries as one JSON object per line.
type JSONFormatter struct{}

type jsonEntry struct {
	Time    string                 `json:"time"`
	Level   string                 `json:"level"`
	Message string                 `json:"message"`
	Fields  map[string]interface{} `json:"fields,omitempty"`
}

// Format renders the entry as JSON followed by a newline.
func (f *JSONFormatter) Format(entry *Entry) ([]byte, error) {
	je := jsonEntry{
		Time:    entry.Timestamp.UTC().Format(time.RFC3339Nano),
		Level:   entry.Level.String(),
		Message: entry.Message,
	}
	if len(entry.Fields) > 0 {
		je.Fields = entry.Fields
	}
	b, err := json.Marshal(je)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}
