// Package logging contains the leveled, named logger used across dynscene. Loggers are thin
// wrappers over a zap core; subloggers share their parent's outputs but carry their own level.
package logging

import "go.uber.org/zap/zapcore"

// Logger interface for logging to.
type Logger interface {
	// Sublogger returns a logger named "<name>.<subname>" at the current level.
	Sublogger(subname string) Logger
	SetLevel(level zapcore.Level)
	Level() zapcore.Level

	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})

	// Fatal logs at error level and exits the process.
	Fatal(args ...interface{})
}
