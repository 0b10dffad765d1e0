// Package rimage opens and resizes dataset frames.
package rimage

import (
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// Resampler names an interpolation filter used when shrinking frames.
type Resampler string

// The supported resamplers. Lanczos and CatmullRom go through imaging; Bilinear and
// NearestNeighbor through nfnt/resize, which is noticeably faster for previews.
const (
	Lanczos         Resampler = "lanczos"
	CatmullRom      Resampler = "catmullrom"
	Bilinear        Resampler = "bilinear"
	NearestNeighbor Resampler = "nearest"
)

// DefaultResampler matches the filter used when the datasets were prepared.
const DefaultResampler = Lanczos

// ParseResampler converts a user supplied name to a Resampler. The empty string maps to the default.
func ParseResampler(name string) (Resampler, error) {
	switch r := Resampler(strings.ToLower(name)); r {
	case "":
		return DefaultResampler, nil
	case Lanczos, CatmullRom, Bilinear, NearestNeighbor:
		return r, nil
	default:
		return "", errors.Errorf("unknown resampler %q", name)
	}
}

// Open decodes the image file at path. JPEG and PNG are supported.
func Open(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot decode image %q", path)
	}
	return img, nil
}

// Resize scales img to exactly width x height with the given resampler. If the image already
// has that size it is returned as is.
func Resize(img image.Image, width, height int, r Resampler) image.Image {
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return img
	}
	switch r {
	case Bilinear:
		return resize.Resize(uint(width), uint(height), img, resize.Bilinear)
	case NearestNeighbor:
		return resize.Resize(uint(width), uint(height), img, resize.NearestNeighbor)
	case CatmullRom:
		return imaging.Resize(img, width, height, imaging.CatmullRom)
	default:
		return imaging.Resize(img, width, height, imaging.Lanczos)
	}
}

// OpenResized opens path and resizes it to width x height. A non-positive width or height keeps
// the decoded size.
func OpenResized(path string, width, height int, r Resampler) (image.Image, error) {
	img, err := Open(path)
	if err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return img, nil
	}
	return Resize(img, width, height, r), nil
}
