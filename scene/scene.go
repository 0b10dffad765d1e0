// Package scene turns multi-view, multi-timestamp captures into a SceneInfo: the
// train, test and video camera lists, an optional seed point cloud and the
// normalization that bounds the training volume.
//
// Three dataset layouts are understood. Dynerf and Technicolor captures are COLMAP
// reconstructions with one image per camera per frame; Nerfies captures are read
// through the hyper package.
package scene

import (
	"image"
	"io"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/dynscene/pointcloud"
	"go.viam.com/dynscene/rimage"
)

var (
	// ErrUnsupportedCameraModel is returned for COLMAP cameras that are not SIMPLE_PINHOLE or PINHOLE.
	ErrUnsupportedCameraModel = errors.New("colmap camera model not handled: only undistorted datasets (PINHOLE or SIMPLE_PINHOLE cameras) supported")
	// ErrImageNotFound is returned when a frame referenced by the dataset is missing on disk.
	ErrImageNotFound = errors.New("image does not exist")
	// ErrDatasetLayout is returned when the files on disk contradict each other or the requested split.
	ErrDatasetLayout = errors.New("inconsistent dataset layout")
	// ErrUnknownDatasetType is returned by LoaderFor for names without an assembler.
	ErrUnknownDatasetType = errors.New("unknown dataset type")
)

// CameraInfo is one camera at one frame. R is camera-to-world, T the world-to-camera
// translation. Image and Pose are only set on the first frame of a sequence.
type CameraInfo struct {
	UID       int
	R         *mat.Dense
	T         r3.Vector
	FovY      float64
	FovX      float64
	Image     image.Image
	ImagePath string
	ImageName string
	Width     int
	Height    int
	Near      float64
	Far       float64
	Timestamp float64
	Pose      *mat.Dense
	Cxr       float64
	Cyr       float64

	resampler rimage.Resampler
}

// LoadImage returns the frame, decoding it from ImagePath and resizing it to
// Width x Height when it was not decoded at load time.
func (c *CameraInfo) LoadImage() (image.Image, error) {
	if c.Image != nil {
		return c.Image, nil
	}
	resampler := c.resampler
	if resampler == "" {
		resampler = rimage.DefaultResampler
	}
	return rimage.OpenResized(c.ImagePath, c.Width, c.Height, resampler)
}

// Clone returns a copy that shares no matrices with c.
func (c CameraInfo) Clone() CameraInfo {
	if c.R != nil {
		c.R = mat.DenseCopyOf(c.R)
	}
	if c.Pose != nil {
		c.Pose = mat.DenseCopyOf(c.Pose)
	}
	return c
}

// SceneInfo is a loaded dataset. PointCloud is nil when none could be read or
// the scene was loaded for testing only.
type SceneInfo struct {
	PointCloud    *pointcloud.BasicPointCloud
	TrainCameras  []CameraInfo
	TestCameras   []CameraInfo
	VideoCameras  []CameraInfo
	Normalization Normalization
	PLYPath       string
}

// LoadOptions configures an assembler. Fields that do not apply to a dataset type are ignored.
type LoadOptions struct {
	// Duration is the number of frames per camera. Zero selects the dataset default where one exists.
	Duration int
	// StartFrame is the first frame index read.
	StartFrame int
	// TestOnly skips the point cloud and decodes only what evaluation needs.
	TestOnly bool
	// TestCams are the positions, after sorting by image name, of the Dynerf cameras held out
	// for testing. Nil means camera 0; an empty slice holds out nothing.
	TestCams []int
	// HoldoutCamera is the Technicolor camera directory held out for testing.
	HoldoutCamera string
	// Ratio is the Nerfies image scale.
	Ratio float64
	// Resampler is used to shrink frames. Empty means rimage.DefaultResampler.
	Resampler rimage.Resampler
	// Progress receives the per camera progress bar. Nil discards it.
	Progress io.Writer
	// WriteSparsePLY lets a Dynerf load save the point cloud it builds from the sparse points
	// next to them as points3D.ply. Otherwise the dataset directory is only read.
	WriteSparsePLY bool
}

func (opts LoadOptions) resampler() rimage.Resampler {
	if opts.Resampler == "" {
		return rimage.DefaultResampler
	}
	return opts.Resampler
}

func cloneCameras(cams []CameraInfo) []CameraInfo {
	out := make([]CameraInfo, len(cams))
	for i, c := range cams {
		out[i] = c.Clone()
	}
	return out
}
