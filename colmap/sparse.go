package colmap

import (
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Format is the flavor of a sparse model on disk.
type Format string

// The two sparse model flavors.
const (
	FormatBinary Format = "bin"
	FormatText   Format = "txt"
)

// SparseModel is the extrinsics and intrinsics of a reconstruction.
type SparseModel struct {
	Images  map[int]*Image
	Cameras map[int]*Camera
	Format  Format
}

// ReadSparseModel reads images and cameras from dir, preferring images.bin/cameras.bin and falling
// back to images.txt/cameras.txt when the binary files are missing or unreadable.
func ReadSparseModel(dir string) (*SparseModel, error) {
	model, binErr := readSparseModel(dir, FormatBinary)
	if binErr == nil {
		return model, nil
	}
	model, txtErr := readSparseModel(dir, FormatText)
	if txtErr == nil {
		return model, nil
	}
	return nil, errors.Wrapf(multierr.Combine(binErr, txtErr), "cannot read sparse model in %q", dir)
}

func readSparseModel(dir string, format Format) (*SparseModel, error) {
	imagesPath := filepath.Join(dir, "images."+string(format))
	camerasPath := filepath.Join(dir, "cameras."+string(format))
	var (
		images  map[int]*Image
		cameras map[int]*Camera
		err     error
	)
	switch format {
	case FormatBinary:
		if images, err = ReadImagesBinary(imagesPath); err != nil {
			return nil, err
		}
		if cameras, err = ReadCamerasBinary(camerasPath); err != nil {
			return nil, err
		}
	case FormatText:
		if images, err = ReadImagesText(imagesPath); err != nil {
			return nil, err
		}
		if cameras, err = ReadCamerasText(camerasPath); err != nil {
			return nil, err
		}
	default:
		return nil, errors.Errorf("unknown sparse model format %q", format)
	}
	return &SparseModel{Images: images, Cameras: cameras, Format: format}, nil
}

// ReadPoints3D reads points3D.bin from dir, falling back to points3D.txt.
func ReadPoints3D(dir string) ([]Point3D, error) {
	points, binErr := ReadPoints3DBinary(filepath.Join(dir, "points3D.bin"))
	if binErr == nil {
		return points, nil
	}
	points, txtErr := ReadPoints3DText(filepath.Join(dir, "points3D.txt"))
	if txtErr == nil {
		return points, nil
	}
	return nil, errors.Wrapf(multierr.Combine(binErr, txtErr), "cannot read sparse points in %q", dir)
}
