package scene

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/dynscene/hyper/testutils"
	"go.viam.com/dynscene/logging"
	"go.viam.com/dynscene/pointcloud"
)

func cameraAt(center r3.Vector) CameraInfo {
	return CameraInfo{R: mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1}), T: center.Mul(-1)}
}

func TestNerfppNorm(t *testing.T) {
	norm, err := NerfppNorm(nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, norm, test.ShouldResemble, Normalization{})

	norm, err = NerfppNorm([]CameraInfo{cameraAt(r3.Vector{X: 1, Y: 2, Z: 3})})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, norm.Radius, test.ShouldAlmostEqual, 0)
	test.That(t, norm.Translate.X, test.ShouldAlmostEqual, -1)
	test.That(t, norm.Translate.Y, test.ShouldAlmostEqual, -2)
	test.That(t, norm.Translate.Z, test.ShouldAlmostEqual, -3)

	norm, err = NerfppNorm([]CameraInfo{
		cameraAt(r3.Vector{X: -1}),
		cameraAt(r3.Vector{X: 1}),
		cameraAt(r3.Vector{Y: 3}),
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, norm.Translate.X, test.ShouldAlmostEqual, 0)
	test.That(t, norm.Translate.Y, test.ShouldAlmostEqual, -1)
	test.That(t, norm.Radius, test.ShouldAlmostEqual, 2.2)
	test.That(t, norm.Radius, test.ShouldBeGreaterThan, 0)
}

func TestNerfppNormRotated(t *testing.T) {
	// camera-to-world rotation of 90 degrees about z with world-to-camera translation (1,0,0)
	r := mat.NewDense(3, 3, []float64{0, -1, 0, 1, 0, 0, 0, 0, 1})
	norm, err := NerfppNorm([]CameraInfo{{R: r, T: r3.Vector{X: 1}}})
	test.That(t, err, test.ShouldBeNil)
	// center = -R t
	test.That(t, norm.Translate.X, test.ShouldAlmostEqual, 0)
	test.That(t, norm.Translate.Y, test.ShouldAlmostEqual, 1)
}

func TestCameraInfoClone(t *testing.T) {
	c := cameraAt(r3.Vector{X: 1})
	c.Pose = mat.NewDense(4, 4, nil)
	clone := c.Clone()
	clone.R.Set(0, 0, 5)
	clone.Pose.Set(0, 0, 5)
	test.That(t, c.R.At(0, 0), test.ShouldEqual, 1)
	test.That(t, c.Pose.At(0, 0), test.ShouldEqual, 0)
}

func writeNerfies(t *testing.T, root string, ids []string) {
	t.Helper()
	testutils.WriteCapture(t, root, ids, nil, nil)
	for _, id := range ids {
		writePNG(t, filepath.Join(root, "rgb", "2x", id+".png"), 100, 50)
	}
	pcd, err := pointcloud.New([]r3.Vector{{X: 1}, {Y: 2}}, []r3.Vector{{X: 1}, {Y: 1}}, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pointcloud.WritePLY(filepath.Join(root, "points3D_downsample.ply"), pcd), test.ShouldBeNil)
}

func TestLoadNerfies(t *testing.T) {
	logger := logging.NewTestLogger(t)
	root := t.TempDir()
	writeNerfies(t, root, []string{"000", "001", "002", "003", "004", "005", "006", "007", "008"})

	info, err := LoadNerfies(context.Background(), root, LoadOptions{}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info.TrainCameras, test.ShouldHaveLength, 3)
	test.That(t, info.TestCameras, test.ShouldHaveLength, 2)
	test.That(t, info.VideoCameras, test.ShouldHaveLength, 2)
	test.That(t, info.TestCameras[0].ImageName, test.ShouldEqual, "002.png")
	test.That(t, info.TestCameras[0].Timestamp, test.ShouldEqual, 0.25)
	test.That(t, info.TestCameras[0].Near, test.ShouldEqual, 0.1)
	test.That(t, info.TestCameras[0].Far, test.ShouldEqual, 5)

	// the video split is a deep copy
	test.That(t, info.VideoCameras[0].ImagePath, test.ShouldEqual, info.TestCameras[0].ImagePath)
	info.VideoCameras[0].R.Set(0, 0, 7)
	test.That(t, info.TestCameras[0].R.At(0, 0), test.ShouldEqual, 1)

	// train cameras at x = -2, 6, 14 after recentering and scaling
	test.That(t, info.Normalization.Translate.X, test.ShouldAlmostEqual, -6)
	test.That(t, info.Normalization.Radius, test.ShouldAlmostEqual, 8.8)

	test.That(t, info.PointCloud.Size(), test.ShouldEqual, 2)
	test.That(t, info.PLYPath, test.ShouldEqual, filepath.Join(root, "points3D_downsample.ply"))

	img, err := info.TrainCameras[0].LoadImage()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Bounds().Dx(), test.ShouldEqual, 100)
}

func TestLoadNerfiesRequiresPointCloud(t *testing.T) {
	logger := logging.NewTestLogger(t)
	root := t.TempDir()
	ids := []string{"a", "b", "c", "d", "e"}
	testutils.WriteCapture(t, root, ids, nil, nil)
	for _, id := range ids {
		writePNG(t, filepath.Join(root, "rgb", "2x", id+".png"), 100, 50)
	}
	_, err := LoadNerfies(context.Background(), root, LoadOptions{}, logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestLoadNerfiesMissingImage(t *testing.T) {
	logger := logging.NewTestLogger(t)
	root := t.TempDir()
	testutils.WriteCapture(t, root, []string{"a", "b", "c"}, nil, nil)
	_, err := LoadNerfies(context.Background(), root, LoadOptions{}, logger)
	test.That(t, errors.Is(err, ErrImageNotFound), test.ShouldBeTrue)
}

func TestLoaderFor(t *testing.T) {
	for _, name := range []DatasetType{Dynerf, Technicolor, Nerfies} {
		loader, err := LoaderFor(name)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, loader, test.ShouldNotBeNil)
	}
	_, err := LoaderFor("Blender")
	test.That(t, errors.Is(err, ErrUnknownDatasetType), test.ShouldBeTrue)
	test.That(t, DatasetTypes(), test.ShouldResemble, []DatasetType{Dynerf, Nerfies, Technicolor})

	logger := logging.NewTestLogger(t)
	root := t.TempDir()
	writeDynerf(t, root, []string{"cam00.png", "cam01.png"}, 1)
	info, err := Load(context.Background(), Dynerf, root, LoadOptions{Duration: 1, TestOnly: true}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info.TestCameras, test.ShouldHaveLength, 1)

	_, err = Load(context.Background(), "Blender", root, LoadOptions{}, logger)
	test.That(t, errors.Is(err, ErrUnknownDatasetType), test.ShouldBeTrue)
}
