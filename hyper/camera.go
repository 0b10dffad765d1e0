package hyper

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/dynscene/rimage/transform"
)

// Camera is one camera/<id>.json record. Orientation is the world-to-camera rotation in row
// major order and Position is the camera center in world space.
type Camera struct {
	Orientation          [3][3]float64 `json:"orientation"`
	Position             [3]float64    `json:"position"`
	FocalLength          float64       `json:"focal_length"`
	PrincipalPoint       [2]float64    `json:"principal_point"`
	ImageSize            [2]float64    `json:"image_size"`
	PixelAspectRatio     float64       `json:"pixel_aspect_ratio"`
	Skew                 float64       `json:"skew"`
	RadialDistortion     []float64     `json:"radial_distortion,omitempty"`
	TangentialDistortion []float64     `json:"tangential_distortion,omitempty"`
}

// ReadCamera reads a camera json file.
func ReadCamera(path string) (*Camera, error) {
	var c Camera
	if err := readJSON(path, &c); err != nil {
		return nil, err
	}
	if c.PixelAspectRatio == 0 {
		c.PixelAspectRatio = 1
	}
	return &c, nil
}

// Scale returns a copy of the camera for images resized by ratio.
func (c *Camera) Scale(ratio float64) *Camera {
	scaled := *c
	scaled.FocalLength *= ratio
	scaled.PrincipalPoint = [2]float64{c.PrincipalPoint[0] * ratio, c.PrincipalPoint[1] * ratio}
	scaled.ImageSize = [2]float64{math.Round(c.ImageSize[0] * ratio), math.Round(c.ImageSize[1] * ratio)}
	return &scaled
}

// Center returns the camera position as a vector.
func (c *Camera) Center() r3.Vector {
	return r3.Vector{X: c.Position[0], Y: c.Position[1], Z: c.Position[2]}
}

// OrientationMatrix returns the world-to-camera rotation.
func (c *Camera) OrientationMatrix() *mat.Dense {
	data := make([]float64, 0, 9)
	for _, row := range c.Orientation {
		data = append(data, row[:]...)
	}
	return mat.NewDense(3, 3, data)
}

// Intrinsics returns the pinhole parameters of the camera. The vertical focal length is
// scaled by the pixel aspect ratio.
func (c *Camera) Intrinsics() *transform.PinholeCameraIntrinsics {
	return &transform.PinholeCameraIntrinsics{
		Width:  int(c.ImageSize[0]),
		Height: int(c.ImageSize[1]),
		Fx:     c.FocalLength,
		Fy:     c.FocalLength * c.PixelAspectRatio,
		Ppx:    c.PrincipalPoint[0],
		Ppy:    c.PrincipalPoint[1],
	}
}
