package scene

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"go.viam.com/dynscene/spatialmath"
)

// radiusMargin pads the camera sphere so that every camera lies strictly inside it.
const radiusMargin = 1.1

// Normalization recenters the cameras on their centroid and bounds them by Radius.
type Normalization struct {
	Translate r3.Vector `json:"translate"`
	Radius    float64   `json:"radius"`
}

// NerfppNorm computes the normalization of a set of cameras from their centers.
// An empty set yields the zero Normalization.
func NerfppNorm(cams []CameraInfo) (Normalization, error) {
	if len(cams) == 0 {
		return Normalization{}, nil
	}
	xs := make([]float64, len(cams))
	ys := make([]float64, len(cams))
	zs := make([]float64, len(cams))
	centers := make([]r3.Vector, len(cams))
	for i, cam := range cams {
		c, err := spatialmath.CameraCenter(cam.R, cam.T)
		if err != nil {
			return Normalization{}, errors.Wrapf(err, "camera %q", cam.ImageName)
		}
		centers[i] = c
		xs[i], ys[i], zs[i] = c.X, c.Y, c.Z
	}
	n := float64(len(cams))
	centroid := r3.Vector{X: floats.Sum(xs) / n, Y: floats.Sum(ys) / n, Z: floats.Sum(zs) / n}

	dists := make([]float64, len(centers))
	for i, c := range centers {
		dists[i] = c.Sub(centroid).Norm()
	}
	return Normalization{
		Translate: centroid.Mul(-1),
		Radius:    floats.Max(dists) * radiusMargin,
	}, nil
}
