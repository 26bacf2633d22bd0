// Package logging provides the structured logging interface shared by the
// coordinator, fetcher, and indexer binaries.
package logging

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logging interface every component depends on.
// Nothing outside this package touches zap directly.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
	Sync() error
}

// Field is a key-value pair attached to a log entry.
type Field = zap.Field

type Config struct {
	Level       string
	Development bool
}

type zapLogger struct {
	logger *zap.Logger
}

// New builds a Logger. Level defaults to "info" when empty.
func New(cfg Config) (Logger, error) {
	level := parseLevel(cfg.Level)

	zapCfg := zap.NewProductionConfig()
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	if cfg.Development {
		zapCfg.Sampling = nil
	}

	z, err := zapCfg.Build(zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return &zapLogger{logger: z}, nil
}

// Must builds a Logger and exits the process on failure. Intended for use
// in cmd/ main functions, before any other component can log the error.
func Must(cfg Config) Logger {
	l, err := New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return l
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *zapLogger) Debug(msg string, fields ...Field) { l.logger.Debug(msg, fields...) }
func (l *zapLogger) Info(msg string, fields ...Field)  { l.logger.Info(msg, fields...) }
func (l *zapLogger) Warn(msg string, fields ...Field)  { l.logger.Warn(msg, fields...) }
func (l *zapLogger) Error(msg string, fields ...Field) { l.logger.Error(msg, fields...) }
func (l *zapLogger) With(fields ...Field) Logger {
	return &zapLogger{logger: l.logger.With(fields...)}
}
func (l *zapLogger) Sync() error { return l.logger.Sync() }

// Field constructors, re-exported so callers never import zap.

func String(key, val string) Field          { return zap.String(key, val) }
func Int(key string, val int) Field         { return zap.Int(key, val) }
func Int64(key string, val int64) Field     { return zap.Int64(key, val) }
func Uint64(key string, val uint64) Field   { return zap.Uint64(key, val) }
func Float64(key string, val float64) Field { return zap.Float64(key, val) }
func Bool(key string, val bool) Field       { return zap.Bool(key, val) }
func Duration(key string, val time.Duration) Field {
	return zap.Duration(key, val)
}
func Time(key string, val time.Time) Field { return zap.Time(key, val) }
func Err(err error) Field                  { return zap.Error(err) }
func Any(key string, val any) Field        { return zap.Any(key, val) }

// Nop returns a Logger that discards everything, used in tests.
func Nop() Logger {
	return &zapLogger{logger: zap.NewNop()}
}
