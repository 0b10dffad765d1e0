package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type zapLogger struct {
	name  string
	level zap.AtomicLevel
	sink  zapcore.Core
	sugar *zap.SugaredLogger
}

func newZapLogger(name string, level zapcore.Level, sink zapcore.Core) *zapLogger {
	l := &zapLogger{name: name, level: zap.NewAtomicLevelAt(level), sink: sink}
	core := leveledCore{Core: sink, level: l.level}
	l.sugar = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Named(name).Sugar()
	return l
}

func (l *zapLogger) Sublogger(subname string) Logger {
	name := subname
	if l.name != "" {
		name = l.name + "." + subname
	}
	return newZapLogger(name, l.level.Level(), l.sink)
}

func (l *zapLogger) SetLevel(level zapcore.Level) {
	l.level.SetLevel(level)
}

func (l *zapLogger) Level() zapcore.Level {
	return l.level.Level()
}

func (l *zapLogger) Debugw(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l *zapLogger) Infow(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, keysAndValues...)
}

func (l *zapLogger) Warnw(msg string, keysAndValues ...interface{}) {
	l.sugar.Warnw(msg, keysAndValues...)
}

func (l *zapLogger) Errorw(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, keysAndValues...)
}

func (l *zapLogger) Fatal(args ...interface{}) {
	l.sugar.Fatal(args...)
}

// leveledCore filters a shared sink by one logger's level.
type leveledCore struct {
	zapcore.Core
	level zap.AtomicLevel
}

func (c leveledCore) Enabled(level zapcore.Level) bool {
	return c.level.Enabled(level)
}

func (c leveledCore) With(fields []zapcore.Field) zapcore.Core {
	return leveledCore{Core: c.Core.With(fields), level: c.level}
}

func (c leveledCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(entry.Level) {
		return ce
	}
	return c.Core.Check(entry, ce)
}
