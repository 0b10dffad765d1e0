package utils

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	fn := filepath.Join(dir, "0000.png")
	test.That(t, FileExists(fn), test.ShouldBeFalse)
	test.That(t, os.WriteFile(fn, []byte("x"), 0o600), test.ShouldBeNil)
	test.That(t, FileExists(fn), test.ShouldBeTrue)
	test.That(t, FileExists(dir), test.ShouldBeFalse)
}

func TestSafeJoinDir(t *testing.T) {
	joined, err := SafeJoinDir("/data/scene", "sparse/0")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, joined, test.ShouldEqual, "/data/scene/sparse/0")

	_, err = SafeJoinDir("/data/scene", "../other")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unsafe path join")
}

func TestTrimExt(t *testing.T) {
	test.That(t, TrimExt("cam10.png"), test.ShouldEqual, "cam10")
	test.That(t, TrimExt("/a/b/cam00.jpeg"), test.ShouldEqual, "cam00")
	test.That(t, TrimExt("noext"), test.ShouldEqual, "noext")
}

func TestProgressBar(t *testing.T) {
	var buf bytes.Buffer
	bar := NewProgressBar(2, "Reading camera", &buf)
	bar.Increment()
	bar.Increment()
	bar.Finish()
	test.That(t, buf.String(), test.ShouldContainSubstring, "Reading camera")

	quiet := NewProgressBar(1, "quiet", nil)
	quiet.Increment()
	quiet.Finish()
}
