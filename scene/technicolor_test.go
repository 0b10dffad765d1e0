package scene

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/dynscene/colmap"
	"go.viam.com/dynscene/logging"
	"go.viam.com/dynscene/pointcloud"
)

func TestLoadTechnicolor(t *testing.T) {
	logger := logging.NewTestLogger(t)
	root := t.TempDir()
	writeTechnicolor(t, root, []string{"cam00", "cam10", "cam11"}, 2)
	pcd, err := pointcloud.New([]r3.Vector{{X: 1}, {Y: 1}, {Z: 1}}, []r3.Vector{{X: 1}, {Y: 1}, {Z: 1}}, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pointcloud.WritePLY(filepath.Join(root, "points3D_downsample.ply"), pcd), test.ShouldBeNil)

	info, err := LoadTechnicolor(context.Background(), root, LoadOptions{Duration: 2}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info.TestCameras, test.ShouldHaveLength, 2)
	test.That(t, info.TrainCameras, test.ShouldHaveLength, 4)
	test.That(t, info.VideoCameras, test.ShouldBeEmpty)
	for _, c := range info.TestCameras {
		test.That(t, c.ImageName, test.ShouldStartWith, "cam10/")
	}
	for _, c := range info.TrainCameras {
		test.That(t, strings.Contains(c.ImageName, "cam10"), test.ShouldBeFalse)
	}
	test.That(t, info.TrainCameras[1].ImageName, test.ShouldEqual, "cam00/0001.png")
	test.That(t, info.TrainCameras[1].ImagePath, test.ShouldEqual, filepath.Join(root, "images", "cam00", "0001.png"))

	c := info.TestCameras[0]
	test.That(t, c.Width, test.ShouldEqual, 8)
	test.That(t, c.Height, test.ShouldEqual, 4)
	test.That(t, c.Cxr, test.ShouldAlmostEqual, 0.125)
	test.That(t, c.Cyr, test.ShouldAlmostEqual, 0)
	test.That(t, c.Image, test.ShouldNotBeNil)
	test.That(t, c.Image.Bounds().Dx(), test.ShouldEqual, 8)
	test.That(t, info.TestCameras[1].Image, test.ShouldBeNil)
	test.That(t, info.TrainCameras[0].Image, test.ShouldNotBeNil)

	// cam00 at y=0 and cam11 at y=2
	test.That(t, info.Normalization.Translate.Y, test.ShouldAlmostEqual, -1)
	test.That(t, info.Normalization.Radius, test.ShouldAlmostEqual, 1.1)

	test.That(t, info.PointCloud, test.ShouldNotBeNil)
	test.That(t, info.PointCloud.Size(), test.ShouldEqual, 3)
}

func TestLoadTechnicolorTestOnly(t *testing.T) {
	logger := logging.NewTestLogger(t)
	root := t.TempDir()
	writeTechnicolor(t, root, []string{"cam00", "cam10"}, 2)

	info, err := LoadTechnicolor(context.Background(), root, LoadOptions{Duration: 2, TestOnly: true}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info.PointCloud, test.ShouldBeNil)
	test.That(t, info.TestCameras[0].Image, test.ShouldNotBeNil)
	test.That(t, info.TestCameras[0].Pose, test.ShouldNotBeNil)
	test.That(t, info.TestCameras[1].Image, test.ShouldBeNil)
	for _, c := range info.TrainCameras {
		test.That(t, c.Image, test.ShouldBeNil)
	}
	test.That(t, info.TrainCameras[0].Pose, test.ShouldNotBeNil)

	img, err := info.TrainCameras[1].LoadImage()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Bounds().Dx(), test.ShouldEqual, 8)
}

func TestLoadTechnicolorHoldout(t *testing.T) {
	logger := logging.NewTestLogger(t)
	root := t.TempDir()
	writeTechnicolor(t, root, []string{"cam00", "cam01", "cam10"}, 1)

	info, err := LoadTechnicolor(context.Background(), root, LoadOptions{Duration: 1, HoldoutCamera: "cam01"}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info.TestCameras, test.ShouldHaveLength, 1)
	test.That(t, info.TestCameras[0].ImageName, test.ShouldEqual, "cam01/0000.png")

	_, err = LoadTechnicolor(context.Background(), root, LoadOptions{Duration: 1, HoldoutCamera: "cam99"}, logger)
	test.That(t, errors.Is(err, ErrDatasetLayout), test.ShouldBeTrue)

	_, err = LoadTechnicolor(context.Background(), root, LoadOptions{}, logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestLoadTechnicolorErrors(t *testing.T) {
	logger := logging.NewTestLogger(t)
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "images", "cam10", "0000.png"), 8, 4)
	writeSparseModel(t, filepath.Join(root, "colmap", "dense", "workspace", "sparse"),
		map[int]*colmap.Camera{1: {ID: 1, Model: colmap.SimplePinhole, Width: 8, Height: 4, Params: []float64{4, 4, 2}}},
		map[int]*colmap.Image{1: imageAt(1, 1, "cam10.png", r3.Vector{})},
	)
	_, err := LoadTechnicolor(context.Background(), root, LoadOptions{Duration: 1}, logger)
	test.That(t, errors.Is(err, ErrDatasetLayout), test.ShouldBeTrue)

	root = t.TempDir()
	writeTechnicolor(t, root, []string{"cam00", "cam10"}, 1)
	test.That(t, os.Remove(filepath.Join(root, "images", "cam10", "0000.png")), test.ShouldBeNil)
	_, err = LoadTechnicolor(context.Background(), root, LoadOptions{Duration: 1}, logger)
	test.That(t, errors.Is(err, ErrImageNotFound), test.ShouldBeTrue)
}
