// Package logging is the service's structured logger: JSON on stderr, one
// service field on every line, key/value pairs at call sites.
package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "recommendation-service"

type Logger struct {
	s *zap.SugaredLogger
}

// New builds the production logger. An unknown level logs at info.
func New(level string) *Logger {
	z, err := config(level).Build()
	if err != nil {
		z = zap.NewExample()
	}
	return FromZap(z)
}

// config is zap's production preset with sampling off, ISO8601 "ts"
// timestamps and the service field.
func config(level string) zap.Config {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
	cfg.Sampling = nil
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.InitialFields = map[string]any{"service": serviceName}
	return cfg
}

func NewNop() *Logger { return FromZap(zap.NewNop()) }

// FromZap wraps z, for observers in tests.
func FromZap(z *zap.Logger) *Logger {
	return &Logger{s: z.Sugar()}
}

// With returns a child carrying keyvals, typically "component", name.
func (l *Logger) With(keyvals ...any) *Logger {
	return &Logger{s: l.s.With(keyvals...)}
}

func (l *Logger) Debug(msg string, keyvals ...any) { l.s.Debugw(msg, keyvals...) }
func (l *Logger) Info(msg string, keyvals ...any)  { l.s.Infow(msg, keyvals...) }
func (l *Logger) Warn(msg string, keyvals ...any)  { l.s.Warnw(msg, keyvals...) }
func (l *Logger) Error(msg string, keyvals ...any) { l.s.Errorw(msg, keyvals...) }

func (l *Logger) Sync() error { return l.s.Sync() }

// parseLevel accepts debug, info, warn and error. Anything else, fatal and
// panic included, is info.
func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
