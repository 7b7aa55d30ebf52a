// Package logger is a thin structured logging layer over zap.
//
// Loggers are named per service (Named("poller"), Named("httpx")) and debug
// output can be restricted to a set of service name patterns, so a noisy
// component can be traced without turning debug on everywhere. Info, warning
// and error entries are never filtered by service.
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	EncodingJSON    = "json"
	EncodingConsole = "console"
)

// Config holds logger construction inputs.
type Config struct {
	// Level is one of debug, info, warn (warning), error. Default: info.
	Level string `mapstructure:"level"`

	// Encoding is json or console. Default: json.
	Encoding string `mapstructure:"encoding"`

	// Services lists service name patterns allowed to emit debug entries.
	// Patterns use path.Match syntax; a leading "-" excludes. Empty allows all.
	Services []string `mapstructure:"services"`

	// Output receives encoded entries. Default: os.Stderr.
	Output io.Writer `mapstructure:"-"`
}

// Logger is a leveled, service-named structured logger. The zero value and
// a nil *Logger are usable and discard everything.
type Logger struct {
	z     *zap.Logger
	level zap.AtomicLevel
}

// New builds a Logger from cfg.
func New(cfg Config) (*Logger, error) {
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	level := zap.NewAtomicLevelAt(lvl)

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var enc zapcore.Encoder
	switch strings.ToLower(cfg.Encoding) {
	case "", EncodingJSON:
		enc = zapcore.NewJSONEncoder(encCfg)
	case EncodingConsole:
		enc = zapcore.NewConsoleEncoder(encCfg)
	default:
		return nil, fmt.Errorf("logger: unknown encoding %q", cfg.Encoding)
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(out), level)

	return &Logger{
		z:     zap.New(newServiceFilter(core, cfg.Services), zap.AddCaller(), zap.AddCallerSkip(1)),
		level: level,
	}, nil
}

// NewWithCore wraps an existing zap core, applying the same service filter
// New would. Useful with zaptest/observer.
func NewWithCore(core zapcore.Core, services ...string) *Logger {
	return &Logger{
		z:     zap.New(newServiceFilter(core, services)),
		level: zap.NewAtomicLevelAt(zapcore.DebugLevel),
	}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{z: zap.NewNop(), level: zap.NewAtomicLevel()}
}

// ParseLevel accepts debug, info, warn, warning and error (case-insensitive).
// An empty string means info.
func ParseLevel(s string) (zapcore.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		return zapcore.InfoLevel, nil
	case "warning":
		s = "warn"
	}

	lvl, err := zapcore.ParseLevel(s)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("logger: %w", err)
	}
	return lvl, nil
}

func (l *Logger) must() *zap.Logger {
	if l == nil || l.z == nil {
		return zap.NewNop()
	}
	return l.z
}

// Named returns a child logger for a service. Names nest with ".".
func (l *Logger) Named(service string) *Logger {
	return &Logger{z: l.must().Named(service), level: l.atomic()}
}

// With returns a child logger carrying fields on every entry.
func (l *Logger) With(fields ...Field) *Logger {
	return &Logger{z: l.must().With(fields...), level: l.atomic()}
}

// WithContext attaches trace_id and span_id when ctx carries a valid span.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return l
	}
	return l.With(
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	)
}

func (l *Logger) Debug(msg string, fields ...Field) {
	l.must().Debug(msg, fields...)
}

func (l *Logger) Info(msg string, fields ...Field) {
	l.must().Info(msg, fields...)
}

func (l *Logger) Warning(msg string, fields ...Field) {
	l.must().Warn(msg, fields...)
}

// Error logs at error level and returns an error carrying msg. When one of
// the fields is an error field, the returned error wraps it.
func (l *Logger) Error(msg string, fields ...Field) error {
	l.must().Error(msg, fields...)

	for _, f := range fields {
		if f.Type != zapcore.ErrorType {
			continue
		}
		if cause, ok := f.Interface.(error); ok && cause != nil {
			return fmt.Errorf("%s: %w", msg, cause)
		}
	}
	return errors.New(msg)
}

// Enabled reports whether entries at lvl would be written, before service
// filtering.
func (l *Logger) Enabled(lvl zapcore.Level) bool {
	return l.must().Core().Enabled(lvl)
}

// SetLevel changes the minimum level of l and every logger derived from the
// same root.
func (l *Logger) SetLevel(s string) error {
	lvl, err := ParseLevel(s)
	if err != nil {
		return err
	}
	l.atomic().SetLevel(lvl)
	return nil
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.must().Sync()
}

// Raw exposes the underlying zap logger.
func (l *Logger) Raw() *zap.Logger {
	return l.must()
}

func (l *Logger) atomic() zap.AtomicLevel {
	if l == nil || l.level == (zap.AtomicLevel{}) {
		return zap.NewAtomicLevel()
	}
	return l.level
}
