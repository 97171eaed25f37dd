package logging

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jonwraymond/dbmcp"
)

// Logger is an optional interface for observability of adapter lifecycle,
// tool dispatch, and server state changes.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: logging must be best-effort; Logf should not panic.
// - Ownership: format/args are read-only.
type Logger interface {
	// Logf logs a formatted message.
	Logf(format string, args ...any)
}

type nop struct{}

func (nop) Logf(string, ...any) {}

// Nop returns a Logger that discards everything.
func Nop() Logger { return nop{} }

// OrNop returns l, or Nop when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return nop{}
	}
	return l
}

// ParseLevel maps "debug", "info", "warn", or "error" to a zap level.
// An empty string is "info".
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("%w: unknown log level %q", dbmcp.ErrConfiguration, s)
}

// Zap adapts a zap.SugaredLogger to Logger. Logf writes at info level;
// Debugf, Warnf, and Errorf are available to callers holding a *Zap.
type Zap struct {
	sugar *zap.SugaredLogger
}

// NewZap wraps an existing zap logger.
func NewZap(l *zap.Logger) *Zap {
	if l == nil {
		l = zap.NewNop()
	}
	return &Zap{sugar: l.Sugar()}
}

// NewProduction builds a JSON logger at the given level writing to stderr.
func NewProduction(level string) (*Zap, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(lvl),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return NewZap(l), nil
}

// Logf logs at info level.
func (z *Zap) Logf(format string, args ...any) { z.sugar.Infof(format, args...) }

// Debugf logs at debug level.
func (z *Zap) Debugf(format string, args ...any) { z.sugar.Debugf(format, args...) }

// Warnf logs at warn level.
func (z *Zap) Warnf(format string, args ...any) { z.sugar.Warnf(format, args...) }

// Errorf logs at error level.
func (z *Zap) Errorf(format string, args ...any) { z.sugar.Errorf(format, args...) }

// With returns a child logger carrying the given key/value pairs.
func (z *Zap) With(keysAndValues ...any) *Zap {
	return &Zap{sugar: z.sugar.With(keysAndValues...)}
}

// Sync flushes buffered entries.
func (z *Zap) Sync() error { return z.sugar.Sync() }

// Recorder is a Logger that keeps every formatted line in memory.
// Tests use it to assert on log output.
type Recorder struct {
	mu    sync.Mutex
	lines []string
}

// Logf records the formatted message.
func (r *Recorder) Logf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

// Lines returns a copy of the recorded lines.
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

// Contains reports whether any recorded line contains substr.
func (r *Recorder) Contains(substr string) bool {
	for _, line := range r.Lines() {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}
