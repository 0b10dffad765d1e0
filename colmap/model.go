// Package colmap reads the sparse reconstruction files written by COLMAP: cameras, images and
// points3D, in either the binary or the text flavor.
package colmap

import (
	"sort"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/dynscene/rimage/transform"
	"go.viam.com/dynscene/spatialmath"
)

// CameraModel describes one of COLMAP's camera models.
type CameraModel struct {
	ID        int
	Name      string
	NumParams int
}

// The camera models COLMAP knows about, indexed by their numeric id in the binary format.
var cameraModels = []CameraModel{
	{0, "SIMPLE_PINHOLE", 3},
	{1, "PINHOLE", 4},
	{2, "SIMPLE_RADIAL", 4},
	{3, "RADIAL", 5},
	{4, "OPENCV", 8},
	{5, "OPENCV_FISHEYE", 8},
	{6, "FULL_OPENCV", 12},
	{7, "FOV", 5},
	{8, "SIMPLE_RADIAL_FISHEYE", 4},
	{9, "RADIAL_FISHEYE", 5},
	{10, "THIN_PRISM_FISHEYE", 12},
}

// Camera model names that map directly onto a pinhole projection.
const (
	SimplePinhole = "SIMPLE_PINHOLE"
	Pinhole       = "PINHOLE"
)

func cameraModelByID(id int) (CameraModel, bool) {
	if id < 0 || id >= len(cameraModels) {
		return CameraModel{}, false
	}
	return cameraModels[id], true
}

func cameraModelByName(name string) (CameraModel, bool) {
	for _, m := range cameraModels {
		if m.Name == name {
			return m, true
		}
	}
	return CameraModel{}, false
}

// Camera is an intrinsics record.
type Camera struct {
	ID     int
	Model  string
	Width  int
	Height int
	Params []float64
}

// Intrinsics converts a pinhole camera record to PinholeCameraIntrinsics. ok is false for
// models that are not SIMPLE_PINHOLE or PINHOLE.
func (c *Camera) Intrinsics() (*transform.PinholeCameraIntrinsics, bool) {
	params := &transform.PinholeCameraIntrinsics{Width: c.Width, Height: c.Height}
	switch c.Model {
	case SimplePinhole:
		if len(c.Params) < 3 {
			return nil, false
		}
		params.Fx, params.Fy = c.Params[0], c.Params[0]
		params.Ppx, params.Ppy = c.Params[1], c.Params[2]
	case Pinhole:
		if len(c.Params) < 4 {
			return nil, false
		}
		params.Fx, params.Fy = c.Params[0], c.Params[1]
		params.Ppx, params.Ppy = c.Params[2], c.Params[3]
	default:
		return nil, false
	}
	return params, true
}

// Image is an extrinsics record: the world-to-camera pose of one registered image.
type Image struct {
	ID         int
	QVec       [4]float64
	TVec       r3.Vector
	CameraID   int
	Name       string
	XYs        []r2.Point
	Point3DIDs []int64
}

// RotationMatrix returns the world-to-camera rotation.
func (im *Image) RotationMatrix() *mat.Dense {
	return spatialmath.QuatToRotationMatrix(spatialmath.NewQuaternion(im.QVec))
}

// Point3D is a triangulated sparse point.
type Point3D struct {
	ID    int64
	XYZ   r3.Vector
	RGB   [3]uint8
	Error float64
	Track []TrackElement
}

// TrackElement links a 3D point to the keypoint that observed it.
type TrackElement struct {
	ImageID    int
	Point2DIdx int
}

// SortedImageIDs returns the ids of images in ascending order so callers iterate deterministically.
func SortedImageIDs(images map[int]*Image) []int {
	ids := make([]int, 0, len(images))
	for id := range images {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func sortedCameraIDs(cameras map[int]*Camera) []int {
	ids := make([]int, 0, len(cameras))
	for id := range cameras {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
