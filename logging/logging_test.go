package logging

import (
	"bytes"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
	"go.viam.com/test"
)

func TestDatasetSubloggers(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	sceneLogger := logger.Sublogger("scene")
	for _, dataset := range []string{"dynerf", "technicolor", "nerfies"} {
		sceneLogger.Sublogger(dataset).Infow("read cameras", "cameras", 4)
	}

	entries := logs.All()
	test.That(t, entries, test.ShouldHaveLength, 3)
	test.That(t, entries[0].LoggerName, test.ShouldEqual, "scene.dynerf")
	test.That(t, entries[1].LoggerName, test.ShouldEqual, "scene.technicolor")
	test.That(t, entries[2].LoggerName, test.ShouldEqual, "scene.nerfies")
	test.That(t, entries[2].ContextMap()["cameras"], test.ShouldEqual, int64(4))
}

func TestPointCloudWarning(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	dynerf := logger.Sublogger("dynerf")
	dynerf.Warnw("cannot read point cloud, continuing without one", "path", "/data/points3D.ply")

	warnings := logs.FilterLevelExact(zapcore.WarnLevel)
	test.That(t, warnings.Len(), test.ShouldEqual, 1)
	entry := warnings.All()[0]
	test.That(t, entry.LoggerName, test.ShouldEqual, "dynerf")
	test.That(t, entry.ContextMap()["path"], test.ShouldEqual, "/data/points3D.ply")
	test.That(t, entry.Caller.File, test.ShouldEndWith, "logging_test.go")
}

func TestSubloggerLevel(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.SetLevel(zapcore.WarnLevel)
	sub := logger.Sublogger("nerfies")
	test.That(t, sub.Level(), test.ShouldEqual, zapcore.WarnLevel)

	sub.Infow("dropped")
	sub.Warnw("kept")
	test.That(t, logs.Len(), test.ShouldEqual, 1)

	// a sublogger's level is its own once created
	sub.SetLevel(zapcore.DebugLevel)
	sub.Debugw("sub debug")
	logger.Infow("parent info")
	test.That(t, logger.Level(), test.ShouldEqual, zapcore.WarnLevel)
	test.That(t, logs.FilterMessage("sub debug").Len(), test.ShouldEqual, 1)
	test.That(t, logs.FilterMessage("parent info").Len(), test.ShouldEqual, 0)
}

func TestWriterLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger("dynscene", &buf, zapcore.InfoLevel)
	logger.Debugw("hidden")
	logger.Sublogger("technicolor").Warnw("frame missing", "frame", 3)

	out := buf.String()
	test.That(t, out, test.ShouldNotContainSubstring, "hidden")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	test.That(t, lines, test.ShouldHaveLength, 1)
	fields := strings.Split(lines[0], "\t")
	test.That(t, fields, test.ShouldHaveLength, 6)
	test.That(t, fields[1], test.ShouldEqual, "WARN")
	test.That(t, fields[2], test.ShouldEqual, "dynscene.technicolor")
	test.That(t, fields[3], test.ShouldStartWith, "logging/logging_test.go:")
	test.That(t, fields[4], test.ShouldEqual, "frame missing")
	test.That(t, fields[5], test.ShouldEqual, `{"frame": 3}`)
}
