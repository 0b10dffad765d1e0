package scene

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/dynscene/colmap"
)

func writePNG(t *testing.T, path string, width, height int) {
	t.Helper()
	test.That(t, os.MkdirAll(filepath.Dir(path), 0o750), test.ShouldBeNil)
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{uint8(x * 16), uint8(y * 32), 128, 255})
		}
	}
	f, err := os.Create(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, png.Encode(f, img), test.ShouldBeNil)
	test.That(t, f.Close(), test.ShouldBeNil)
}

func writeSparseModel(t *testing.T, dir string, cameras map[int]*colmap.Camera, images map[int]*colmap.Image) {
	t.Helper()
	test.That(t, os.MkdirAll(dir, 0o750), test.ShouldBeNil)
	test.That(t, colmap.WriteCamerasBinary(filepath.Join(dir, "cameras.bin"), cameras), test.ShouldBeNil)
	test.That(t, colmap.WriteImagesBinary(filepath.Join(dir, "images.bin"), images), test.ShouldBeNil)
}

func pinholeCamera(id int) *colmap.Camera {
	return &colmap.Camera{ID: id, Model: colmap.Pinhole, Width: 8, Height: 4, Params: []float64{4, 4, 5, 2}}
}

// identity rotation at world position center.
func imageAt(id, cameraID int, name string, center r3.Vector) *colmap.Image {
	return &colmap.Image{
		ID:       id,
		QVec:     [4]float64{1, 0, 0, 0},
		TVec:     center.Mul(-1),
		CameraID: cameraID,
		Name:     name,
	}
}

// writeDynerf writes a Dynerf capture with one 8x4 camera per name and frames 0..frames-1.
// Camera i sits at (2i, 0, 0).
func writeDynerf(t *testing.T, root string, names []string, frames int) {
	t.Helper()
	cameras := map[int]*colmap.Camera{}
	images := map[int]*colmap.Image{}
	for i, name := range names {
		cameras[i+1] = pinholeCamera(i + 1)
		images[i+1] = imageAt(i+1, i+1, name, r3.Vector{X: float64(2 * i)})
		for j := 0; j < frames; j++ {
			writePNG(t, filepath.Join(root, "frames", fmt.Sprintf("%04d", j), name), 8, 4)
		}
	}
	writeSparseModel(t, filepath.Join(root, "sparse", "0"), cameras, images)
}

// writeTechnicolor writes a Technicolor capture with one 8x4 camera per name and frames 0..frames-1.
func writeTechnicolor(t *testing.T, root string, names []string, frames int) {
	t.Helper()
	cameras := map[int]*colmap.Camera{}
	images := map[int]*colmap.Image{}
	for i, name := range names {
		cameras[i+1] = pinholeCamera(i + 1)
		images[i+1] = imageAt(i+1, i+1, name+".png", r3.Vector{Y: float64(i)})
		for j := 0; j < frames; j++ {
			writePNG(t, filepath.Join(root, "images", name, fmt.Sprintf("%04d.png", j)), 8, 4)
		}
	}
	writeSparseModel(t, filepath.Join(root, "colmap", "dense", "workspace", "sparse"), cameras, images)
}
