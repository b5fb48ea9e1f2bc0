// Package logging contains the structured logger used by every fire-control component.
package logging

import (
	"io"
	"os"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// encoderConfig is zap's development console layout with production key names, colored levels
// and no stack traces.
func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  zapcore.OmitKey,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalColorLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// consoleCore writes every level to w; filtering happens per logger.
func consoleCore(w io.Writer) zapcore.Core {
	return zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), zapcore.Lock(zapcore.AddSync(w)), zapcore.DebugLevel)
}

// NewLogger returns a new logger that outputs Info+ logs to stdout.
func NewLogger(name string) Logger {
	return newImpl(name, zap.NewAtomicLevelAt(INFO.AsZap()), consoleCore(os.Stdout))
}

// NewDebugLogger returns a new logger that outputs Debug+ logs to stdout.
func NewDebugLogger(name string) Logger {
	return newImpl(name, zap.NewAtomicLevelAt(DEBUG.AsZap()), consoleCore(os.Stdout))
}

// NewBlankLogger returns a Debug+ logger that discards everything.
func NewBlankLogger(name string) Logger {
	return newImpl(name, zap.NewAtomicLevelAt(DEBUG.AsZap()), zapcore.NewNopCore())
}

// NewTestLogger returns a new logger that outputs Debug+ logs to the test's log.
func NewTestLogger(tb testing.TB) Logger {
	logger, _ := NewObservedTestLogger(tb)
	return logger
}

// NewObservedTestLogger is like NewTestLogger but also saves logs to an in memory observer.
func NewObservedTestLogger(tb testing.TB) (Logger, *observer.ObservedLogs) {
	testCore := zaptest.NewLogger(tb, zaptest.Level(zapcore.DebugLevel)).Core()
	observerCore, observedLogs := observer.New(zapcore.DebugLevel)
	level := zap.NewAtomicLevelAt(DEBUG.AsZap())
	return newImpl("", level, zapcore.NewTee(testCore, observerCore)), observedLogs
}
