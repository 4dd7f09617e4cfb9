package logs

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Entry is one decoded JSON log record.
type Entry struct {
	Time      string
	Level     string
	Message   string
	Component string
	Stage     string
	Fields    map[string]any
}

// ParseEntry decodes a JSON log line. ok is false for lines that are not
// JSON objects, such as console-format output.
func ParseEntry(line string) (Entry, bool) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Entry{}, false
	}
	e := Entry{Fields: make(map[string]any, len(raw))}
	for key, value := range raw {
		switch key {
		case "ts":
			e.Time = fmt.Sprint(value)
		case "level":
			e.Level = strings.ToUpper(fmt.Sprint(value))
		case "msg":
			e.Message = fmt.Sprint(value)
		case "component":
			e.Component = fmt.Sprint(value)
		case "stage":
			e.Stage = fmt.Sprint(value)
		case "session_id", "source":
		default:
			e.Fields[key] = value
		}
	}
	return e, true
}

// String renders the entry on one line with fields in key order.
func (e Entry) String() string {
	var b strings.Builder
	b.WriteString(e.Time)
	b.WriteByte(' ')
	b.WriteString(e.Level)
	if e.Component != "" {
		b.WriteString(" [")
		b.WriteString(e.Component)
		b.WriteByte(']')
	}
	if e.Stage != "" {
		b.WriteString(" (")
		b.WriteString(e.Stage)
		b.WriteByte(')')
	}
	b.WriteByte(' ')
	b.WriteString(e.Message)

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Fields[k])
	}
	return b.String()
}

// Format renders line for humans, passing non-JSON lines through unchanged.
func Format(line string) string {
	if e, ok := ParseEntry(line); ok {
		return e.String()
	}
	return line
}
