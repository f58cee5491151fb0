package log

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
)

const (
	ErrAttrKey        = "error"
	StacktraceAttrKey = "stacktrace"
)

// ErrAttr is a wrapper to pass err to slog.
func ErrAttr(err error) slog.Attr {
	return slog.Any(ErrAttrKey, err)
}

// ToLogLevel converts a configuration string into a Level.
// Unknown values are rejected so that a typo in the config file fails the run
// instead of silently logging at the wrong level.
func ToLogLevel(level string) (Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, errors.Newf("invalid log level: %q", level)
	}
}

// SlogProvider creates loggers backed by log/slog with a JSON handler wrapped
// in ErrFmtHandler, so errors carry their cockroachdb stack traces.
type SlogProvider struct {
	mu    sync.Mutex
	level *slog.LevelVar
	base  *slog.Logger
}

// NewSlogProvider returns a provider writing JSON records to w.
func NewSlogProvider(w io.Writer, level Level) *SlogProvider {
	lv := new(slog.LevelVar)
	lv.Set(slog.Level(level))
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lv})
	return &SlogProvider{
		level: lv,
		base:  slog.New(WrapByErrFmtHandler(handler)),
	}
}

// GetLogger returns the default logger instance.
func (p *SlogProvider) GetLogger() Logger {
	return &slogLogger{l: p.base}
}

// GetLoggerWithName returns a logger tagged with a component name.
func (p *SlogProvider) GetLoggerWithName(name string) Logger {
	return &slogLogger{l: p.base.With(ComponentKey, name)}
}

// SetLevel changes the minimum level for every logger from this provider.
func (p *SlogProvider) SetLevel(level Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level.Set(slog.Level(level))
}

type slogLogger struct {
	l *slog.Logger
}

func (s *slogLogger) Debug(msg string, fields ...any) { s.log(slog.LevelDebug, msg, fields) }
func (s *slogLogger) Info(msg string, fields ...any)  { s.log(slog.LevelInfo, msg, fields) }
func (s *slogLogger) Warn(msg string, fields ...any)  { s.log(slog.LevelWarn, msg, fields) }
func (s *slogLogger) Error(msg string, fields ...any) { s.log(slog.LevelError, msg, fields) }

func (s *slogLogger) log(level slog.Level, msg string, fields []any) {
	err, rest := splitError(fields)
	if err != nil {
		rest = append([]any{ErrAttr(err)}, rest...)
	}
	s.l.Log(context.Background(), level, msg, rest...)
}

func (s *slogLogger) With(fields ...any) Logger {
	return &slogLogger{l: s.l.With(fields...)}
}

func (s *slogLogger) Enabled(ctx context.Context, level Level) bool {
	return s.l.Enabled(ctx, slog.Level(level))
}
