// Package transform holds the pinhole camera model used to turn COLMAP intrinsics into fields of view.
package transform

import (
	"math"

	"github.com/pkg/errors"
)

// ErrNoIntrinsics is when a camera does not have usable intrinsics parameters.
var ErrNoIntrinsics = errors.New("camera intrinsic parameters are not available")

// PinholeCameraIntrinsics holds the parameters necessary to do a perspective projection of a 3D scene to the 2D plane.
type PinholeCameraIntrinsics struct {
	Width  int     `json:"width_px"`
	Height int     `json:"height_px"`
	Fx     float64 `json:"fx"`
	Fy     float64 `json:"fy"`
	Ppx    float64 `json:"ppx"`
	Ppy    float64 `json:"ppy"`
}

// CheckValid checks if the fields for PinholeCameraIntrinsics have valid inputs.
func (params *PinholeCameraIntrinsics) CheckValid() error {
	switch {
	case params == nil:
		return errors.Wrap(ErrNoIntrinsics, "intrinsics do not exist")
	case params.Width <= 0 || params.Height <= 0:
		return errors.Wrapf(ErrNoIntrinsics, "invalid size (%d, %d)", params.Width, params.Height)
	case params.Fx <= 0:
		return errors.Wrapf(ErrNoIntrinsics, "invalid focal length Fx = %v", params.Fx)
	case params.Fy <= 0:
		return errors.Wrapf(ErrNoIntrinsics, "invalid focal length Fy = %v", params.Fy)
	case params.Ppx < 0 || params.Ppy < 0:
		return errors.Wrapf(ErrNoIntrinsics, "invalid principal point (%v, %v)", params.Ppx, params.Ppy)
	}
	return nil
}

// Focal2FOV returns the field of view in radians covered by pixels pixels at the given focal length.
func Focal2FOV(focal, pixels float64) float64 {
	return 2 * math.Atan(pixels/(2*focal))
}

// FieldOfView returns the horizontal and vertical field of view in radians.
func (params *PinholeCameraIntrinsics) FieldOfView() (fovX, fovY float64) {
	return Focal2FOV(params.Fx, float64(params.Width)), Focal2FOV(params.Fy, float64(params.Height))
}

// Downscale returns intrinsics for an image shrunk by factor along both axes. Focal lengths and
// principal point are divided as floats, pixel dimensions with integer division, so for odd
// dimensions the field of view of the result is slightly narrower than the original's.
func (params *PinholeCameraIntrinsics) Downscale(factor int) *PinholeCameraIntrinsics {
	if factor <= 1 {
		cp := *params
		return &cp
	}
	f := float64(factor)
	return &PinholeCameraIntrinsics{
		Width:  params.Width / factor,
		Height: params.Height / factor,
		Fx:     params.Fx / f,
		Fy:     params.Fy / f,
		Ppx:    params.Ppx / f,
		Ppy:    params.Ppy / f,
	}
}

// PrincipalOffset returns the principal point as a fraction of the image size, centered on zero.
// An ideal centered pinhole returns (0, 0).
func (params *PinholeCameraIntrinsics) PrincipalOffset() (cxr, cyr float64) {
	return params.Ppx/float64(params.Width) - 0.5, params.Ppy/float64(params.Height) - 0.5
}
