package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the logging interface handed to every component.
type Logger interface {
	Debug(args ...interface{})
	Debugf(template string, args ...interface{})
	Debugw(msg string, keysAndValues ...interface{})
	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warn(args ...interface{})
	Warnf(template string, args ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Error(args ...interface{})
	Errorf(template string, args ...interface{})
	Errorw(msg string, keysAndValues ...interface{})

	// Sublogger returns a child logger whose name is suffixed with subname.
	Sublogger(subname string) Logger
	Desugar() *zap.Logger
	SetLevel(level Level)
	GetLevel() Level
}

type impl struct {
	*zap.SugaredLogger
	name string
	// base carries the name and core but no level filter, so subloggers can choose their own.
	base  *zap.Logger
	level zap.AtomicLevel
}

func newImpl(name string, level zap.AtomicLevel, core zapcore.Core) *impl {
	base := zap.New(core, zap.AddCaller())
	if name != "" {
		base = base.Named(name)
	}
	return leveled(name, base, level)
}

func leveled(name string, base *zap.Logger, level zap.AtomicLevel) *impl {
	return &impl{
		SugaredLogger: base.WithOptions(zap.IncreaseLevel(level)).Sugar(),
		name:          name,
		base:          base,
		level:         level,
	}
}

// Sublogger starts at the parent's current level; changing either level afterwards does not
// affect the other.
func (imp *impl) Sublogger(subname string) Logger {
	name := subname
	if imp.name != "" {
		name = imp.name + "." + subname
	}
	return leveled(name, imp.base.Named(subname), zap.NewAtomicLevelAt(imp.level.Level()))
}

func (imp *impl) SetLevel(level Level) {
	imp.level.SetLevel(level.AsZap())
}

func (imp *impl) GetLevel() Level {
	return levelFromZap(imp.level.Level())
}
