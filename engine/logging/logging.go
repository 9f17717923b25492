// Package logging provides the leveled Logger used across the engine, backed by zap.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the leveled logging interface consumed by engine subsystems.
// Implementations must be safe for concurrent use; the clustering pipeline logs
// from worker goroutines.
type Logger interface {
	// DebugEnabled reports whether Debugf output is emitted.
	DebugEnabled() bool

	// SetDebug toggles debug output at runtime.
	SetDebug(enabled bool)

	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type zapLogger struct {
	level zap.AtomicLevel
	sugar *zap.SugaredLogger
}

var _ Logger = &zapLogger{}

// NewZapLogger creates a Logger that writes through a zap development-style logger.
// The prefix becomes the zap logger name so subsystem output can be filtered.
//
// Parameters:
//   - prefix: the logger name (e.g. "cluster"); empty for none
//   - debug: true to emit Debugf output
//
// Returns:
//   - Logger: the new logger
//   - error: error if the zap configuration cannot be built
func NewZapLogger(prefix string, debug bool) (Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(levelFor(debug))
	cfg.DisableStacktrace = true

	base, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return wrap(base, cfg.Level, prefix), nil
}

// FromZap adapts an existing zap logger (for example one from zaptest) to Logger.
//
// Parameters:
//   - base: the zap logger to wrap
//   - prefix: the logger name; empty for none
//   - debug: true to emit Debugf output
//
// Returns:
//   - Logger: the wrapped logger
func FromZap(base *zap.Logger, prefix string, debug bool) Logger {
	level := zap.NewAtomicLevelAt(levelFor(debug))
	return wrap(base.WithOptions(zap.IncreaseLevel(level)), level, prefix)
}

func wrap(base *zap.Logger, level zap.AtomicLevel, prefix string) *zapLogger {
	sugar := base.Sugar()
	if prefix != "" {
		sugar = sugar.Named(prefix)
	}
	return &zapLogger{level: level, sugar: sugar}
}

func levelFor(debug bool) zapcore.Level {
	if debug {
		return zap.DebugLevel
	}
	return zap.InfoLevel
}

func (l *zapLogger) DebugEnabled() bool {
	return l.level.Enabled(zap.DebugLevel)
}

func (l *zapLogger) SetDebug(enabled bool) {
	l.level.SetLevel(levelFor(enabled))
}

func (l *zapLogger) Debugf(format string, args ...any) { l.sugar.Debugf(format, args...) }
func (l *zapLogger) Infof(format string, args ...any)  { l.sugar.Infof(format, args...) }
func (l *zapLogger) Warnf(format string, args ...any)  { l.sugar.Warnf(format, args...) }
func (l *zapLogger) Errorf(format string, args ...any) { l.sugar.Errorf(format, args...) }

type nopLogger struct{}

// NewNopLogger returns a Logger that discards everything.
func NewNopLogger() Logger { return nopLogger{} }

func (nopLogger) DebugEnabled() bool    { return false }
func (nopLogger) SetDebug(bool)         {}
func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

// OrNop returns l, or a no-op logger when l is nil. Never returns nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return NewNopLogger()
	}
	return l
}
