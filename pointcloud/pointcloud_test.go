package pointcloud

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/dynscene/logging"
)

func makeTestCloud(t *testing.T) *BasicPointCloud {
	t.Helper()
	pc, err := New(
		[]r3.Vector{{X: 1, Y: 2, Z: 3}, {X: -1.5, Y: 0.25, Z: 4}, {X: 0, Y: 0, Z: 0}},
		[]r3.Vector{{X: 1, Y: 0, Z: 0}, {X: 0, Y: 51.0 / 255, Z: 1}, {X: 102.0 / 255, Y: 102.0 / 255, Z: 102.0 / 255}},
		[]r3.Vector{{X: 0, Y: 0, Z: 1}, {X: 0, Y: 1, Z: 0}, {X: 1, Y: 0, Z: 0}},
	)
	test.That(t, err, test.ShouldBeNil)
	return pc
}

func shouldMatchVectors(t *testing.T, got, expected []r3.Vector, tol float64) {
	t.Helper()
	test.That(t, got, test.ShouldHaveLength, len(expected))
	for i := range expected {
		test.That(t, got[i].X, test.ShouldAlmostEqual, expected[i].X, tol)
		test.That(t, got[i].Y, test.ShouldAlmostEqual, expected[i].Y, tol)
		test.That(t, got[i].Z, test.ShouldAlmostEqual, expected[i].Z, tol)
	}
}

func TestNew(t *testing.T) {
	pc, err := New([]r3.Vector{{X: 1, Y: 1, Z: 1}, {X: 2, Y: 2, Z: 2}}, nil, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pc.Size(), test.ShouldEqual, 2)
	test.That(t, pc.Colors, test.ShouldHaveLength, 2)
	test.That(t, pc.Normals, test.ShouldResemble, []r3.Vector{{}, {}})
	meta := pc.MetaData()
	test.That(t, meta.HasColor, test.ShouldBeFalse)
	test.That(t, meta.HasNormals, test.ShouldBeFalse)

	_, err = New([]r3.Vector{{X: 1, Y: 1, Z: 1}}, []r3.Vector{}, nil)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = New([]r3.Vector{{X: 1, Y: 1, Z: 1}}, nil, []r3.Vector{{}, {}})
	test.That(t, err, test.ShouldNotBeNil)

	var nilCloud *BasicPointCloud
	test.That(t, nilCloud.Size(), test.ShouldEqual, 0)
}

func TestMetaData(t *testing.T) {
	pc := makeTestCloud(t)
	meta := pc.MetaData()
	test.That(t, meta.HasColor, test.ShouldBeTrue)
	test.That(t, meta.MinX, test.ShouldEqual, -1.5)
	test.That(t, meta.MaxX, test.ShouldEqual, 1)
	test.That(t, meta.MinY, test.ShouldEqual, 0)
	test.That(t, meta.MaxY, test.ShouldEqual, 2)
	test.That(t, meta.MinZ, test.ShouldEqual, 0)
	test.That(t, meta.MaxZ, test.ShouldEqual, 4)
	test.That(t, meta.Center(), test.ShouldResemble, r3.Vector{X: -0.25, Y: 1, Z: 2})
}

func TestIterateStops(t *testing.T) {
	pc := makeTestCloud(t)
	count := 0
	pc.Iterate(func(i int, p, c, n r3.Vector) bool {
		test.That(t, p, test.ShouldResemble, pc.Points[i])
		count++
		return i < 1
	})
	test.That(t, count, test.ShouldEqual, 2)
}

func TestWithPoints(t *testing.T) {
	pc := makeTestCloud(t)
	moved, err := pc.WithPoints([]r3.Vector{{}, {}, {}})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, moved.Colors, test.ShouldResemble, pc.Colors)
	test.That(t, moved.MetaData().HasColor, test.ShouldBeTrue)
	test.That(t, pc.Points[0], test.ShouldResemble, r3.Vector{X: 1, Y: 2, Z: 3})

	_, err = pc.WithPoints(nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPLYRoundTrip(t *testing.T) {
	pc := makeTestCloud(t)
	fn := filepath.Join(t.TempDir(), "points.ply")
	test.That(t, WritePLY(fn, pc), test.ShouldBeNil)

	read, err := ReadPLY(fn)
	test.That(t, err, test.ShouldBeNil)
	shouldMatchVectors(t, read.Points, pc.Points, 1e-6)
	shouldMatchVectors(t, read.Colors, pc.Colors, 1e-6)
	// normals are not persisted
	test.That(t, read.Normals, test.ShouldResemble, []r3.Vector{{}, {}, {}})
}

func TestPLYAscii(t *testing.T) {
	pc := makeTestCloud(t)
	var buf bytes.Buffer
	test.That(t, EncodePLY(&buf, pc, PLYAscii), test.ShouldBeNil)
	test.That(t, buf.String(), test.ShouldStartWith, "ply\nformat ascii 1.0\nelement vertex 3\n")
	test.That(t, buf.String(), test.ShouldContainSubstring, "property uchar red\n")

	read, err := DecodePLY(&buf)
	test.That(t, err, test.ShouldBeNil)
	shouldMatchVectors(t, read.Points, pc.Points, 1e-6)
	shouldMatchVectors(t, read.Colors, pc.Colors, 1e-6)
}

func TestPLYMissingProperty(t *testing.T) {
	noColor := strings.Join([]string{
		"ply",
		"format ascii 1.0",
		"element vertex 1",
		"property float x",
		"property float y",
		"property float z",
		"end_header",
		"1 2 3",
		"",
	}, "\n")
	_, err := DecodePLY(strings.NewReader(noColor))
	test.That(t, err, test.ShouldBeError)
	test.That(t, err.Error(), test.ShouldContainSubstring, "red")
}

func TestPLYMalformed(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "bad.ply")
	test.That(t, os.WriteFile(fn, []byte("definitely not a ply file"), 0o600), test.ShouldBeNil)
	_, err := ReadPLY(fn)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = ReadPLY(filepath.Join(t.TempDir(), "missing.ply"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPCD(t *testing.T) {
	pc := makeTestCloud(t)
	for _, pcdType := range []PCDType{PCDAscii, PCDBinary} {
		var buf bytes.Buffer
		test.That(t, ToPCD(pc, &buf, pcdType), test.ShouldBeNil)
		test.That(t, buf.String(), test.ShouldStartWith, "VERSION .7\nFIELDS x y z rgb\n")

		read, err := ReadPCD(&buf)
		test.That(t, err, test.ShouldBeNil)
		shouldMatchVectors(t, read.Points, pc.Points, 1e-5)
		shouldMatchVectors(t, read.Colors, pc.Colors, 1e-9)
		test.That(t, read.MetaData().HasColor, test.ShouldBeTrue)
	}

	noColor, err := New([]r3.Vector{{X: 1, Y: 2, Z: 3}}, nil, nil)
	test.That(t, err, test.ShouldBeNil)
	var buf bytes.Buffer
	test.That(t, ToPCD(noColor, &buf, PCDAscii), test.ShouldBeNil)
	test.That(t, buf.String(), test.ShouldContainSubstring, "FIELDS x y z\n")
	read, err := ReadPCD(&buf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, read.MetaData().HasColor, test.ShouldBeFalse)
	shouldMatchVectors(t, read.Points, noColor.Points, 1e-5)

	test.That(t, ToPCD(pc, &buf, PCDCompressed), test.ShouldNotBeNil)
}

func TestPCDBadHeader(t *testing.T) {
	_, err := ReadPCD(strings.NewReader("VERSION .7\nFIELDS x y z intensity\n"))
	test.That(t, err, test.ShouldNotBeNil)
	_, err = ReadPCD(strings.NewReader("FIELDS x y z\n"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestFileDispatch(t *testing.T) {
	logger := logging.NewTestLogger(t)
	pc := makeTestCloud(t)
	dir := t.TempDir()

	for _, name := range []string{"out.ply", "out.pcd"} {
		fn := filepath.Join(dir, name)
		test.That(t, WriteToFile(pc, fn), test.ShouldBeNil)
		read, err := NewFromFile(fn, logger)
		test.That(t, err, test.ShouldBeNil)
		shouldMatchVectors(t, read.Points, pc.Points, 1e-5)
	}

	test.That(t, WriteToFile(pc, filepath.Join(dir, "out.xyz")), test.ShouldNotBeNil)
	_, err := NewFromFile(filepath.Join(dir, "out.xyz"), logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestVoxelDownsample(t *testing.T) {
	pc, err := New(
		[]r3.Vector{{X: 0.1, Y: 0.1, Z: 0.1}, {X: 0.3, Y: 0.3, Z: 0.3}, {X: 1.5, Y: 1.5, Z: 1.5}, {X: 0.2, Y: 0.2, Z: 0.2}},
		[]r3.Vector{{X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}, {X: 0, Y: 0, Z: 1}, {X: 0, Y: 0, Z: 1}},
		nil,
	)
	test.That(t, err, test.ShouldBeNil)

	down, err := VoxelDownsample(pc, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, down.Size(), test.ShouldEqual, 2)
	shouldMatchVectors(t, down.Points, []r3.Vector{{X: 0.2, Y: 0.2, Z: 0.2}, {X: 1.5, Y: 1.5, Z: 1.5}}, 1e-9)
	shouldMatchVectors(t, down.Colors, []r3.Vector{{X: 1.0 / 3, Y: 1.0 / 3, Z: 1.0 / 3}, {X: 0, Y: 0, Z: 1}}, 1e-9)
	test.That(t, down.MetaData().HasColor, test.ShouldBeTrue)

	same, err := VoxelDownsample(pc, 0.01)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, same.Size(), test.ShouldEqual, 4)

	_, err = VoxelDownsample(pc, 0)
	test.That(t, err, test.ShouldNotBeNil)

	empty, err := VoxelDownsample(&BasicPointCloud{}, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, empty.Size(), test.ShouldEqual, 0)
}

func TestGetVoxelCoordinates(t *testing.T) {
	c := GetVoxelCoordinates(r3.Vector{X: 2.5, Y: -0.5, Z: 1}, r3.Vector{X: 0, Y: -1, Z: 0}, 1)
	test.That(t, c, test.ShouldResemble, VoxelCoords{I: 2, J: 0, K: 1})
}
