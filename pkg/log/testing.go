package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// capture is the buffer shared by a TestLogger and all loggers derived from it
// with With. HTTP handler tests log from several goroutines, so writes are
// serialized.
type capture struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// TestLogger is a Logger that records every entry as a JSON line in memory.
type TestLogger struct {
	out    *capture
	level  *Level
	fields map[string]any
}

// NewTestLogger creates a TestLogger that keeps entries at or above level.
//
// Example:
//
//	logger := log.NewTestLogger(log.LevelDebug)
//	logger.Info("test message", "key", "value")
//	if !logger.ContainsField("key", "value") { ... }
func NewTestLogger(level Level) *TestLogger {
	lv := level
	return &TestLogger{
		out:    &capture{},
		level:  &lv,
		fields: map[string]any{},
	}
}

func (t *TestLogger) Debug(msg string, fields ...any) { t.write(LevelDebug, msg, fields) }
func (t *TestLogger) Info(msg string, fields ...any)  { t.write(LevelInfo, msg, fields) }
func (t *TestLogger) Warn(msg string, fields ...any)  { t.write(LevelWarn, msg, fields) }
func (t *TestLogger) Error(msg string, fields ...any) { t.write(LevelError, msg, fields) }

// With implements Logger.With.
func (t *TestLogger) With(fields ...any) Logger {
	next := make(map[string]any, len(t.fields)+len(fields)/2)
	for k, v := range t.fields {
		next[k] = v
	}
	addPairs(next, fields)
	return &TestLogger{out: t.out, level: t.level, fields: next}
}

// Enabled implements Logger.Enabled.
func (t *TestLogger) Enabled(_ context.Context, level Level) bool {
	t.out.mu.Lock()
	defer t.out.mu.Unlock()
	return *t.level <= level
}

func (t *TestLogger) write(level Level, msg string, fields []any) {
	t.out.mu.Lock()
	defer t.out.mu.Unlock()
	if *t.level > level {
		return
	}

	entry := map[string]any{
		"level":   level.String(),
		"message": msg,
	}
	for k, v := range t.fields {
		entry[k] = v
	}
	err, rest := splitError(fields)
	if err != nil {
		entry[ErrAttrKey] = err.Error()
	}
	addPairs(entry, rest)

	data, mErr := json.Marshal(entry)
	if mErr != nil {
		data = []byte(fmt.Sprintf(`{"level":%q,"message":%q}`, level.String(), msg))
	}
	t.out.buf.Write(data)
	t.out.buf.WriteByte('\n')
}

func addPairs(dst map[string]any, fields []any) {
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		if err, ok := fields[i+1].(error); ok {
			dst[key] = err.Error()
			continue
		}
		dst[key] = fields[i+1]
	}
}

// String returns everything captured so far.
func (t *TestLogger) String() string {
	t.out.mu.Lock()
	defer t.out.mu.Unlock()
	return t.out.buf.String()
}

// Entries parses the captured output into one map per log line.
func (t *TestLogger) Entries() ([]map[string]any, error) {
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(t.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ContainsMessage reports whether any entry contains message.
func (t *TestLogger) ContainsMessage(message string) bool {
	return strings.Contains(t.String(), message)
}

// ContainsField reports whether any entry has key set to value. Numbers
// compare as float64 after the JSON round trip.
func (t *TestLogger) ContainsField(key string, value any) bool {
	entries, err := t.Entries()
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if v, ok := entry[key]; ok && v == value {
			return true
		}
	}
	return false
}

// Clear drops all captured entries.
func (t *TestLogger) Clear() {
	t.out.mu.Lock()
	defer t.out.mu.Unlock()
	t.out.buf.Reset()
}

// TestLoggerProvider implements LoggerProvider on top of a single TestLogger.
type TestLoggerProvider struct {
	Logger *TestLogger
}

// NewTestLoggerProvider creates a provider whose loggers all write into the
// same capture.
func NewTestLoggerProvider(level Level) *TestLoggerProvider {
	return &TestLoggerProvider{Logger: NewTestLogger(level)}
}

func (p *TestLoggerProvider) GetLogger() Logger { return p.Logger }

func (p *TestLoggerProvider) GetLoggerWithName(name string) Logger {
	return p.Logger.With(ComponentKey, name)
}

func (p *TestLoggerProvider) SetLevel(level Level) {
	p.Logger.out.mu.Lock()
	defer p.Logger.out.mu.Unlock()
	*p.Logger.level = level
}
