package scene

import (
	"context"
	"fmt"
	"path"
	"path/filepath"

	"github.com/pkg/errors"

	"go.viam.com/dynscene/colmap"
	"go.viam.com/dynscene/rimage"
	"go.viam.com/dynscene/spatialmath"
	"go.viam.com/dynscene/utils"
)

// Dialect describes where a COLMAP based dataset keeps its files and how its
// frames are sized.
type Dialect struct {
	Name string
	// SparseDir holds images.{bin,txt} and cameras.{bin,txt}, relative to the dataset root.
	SparseDir string
	// ImagePath returns the file of frame for the image record named extrName, and the
	// name the frame is sorted and split by.
	ImagePath func(root, extrName string, frame int) (string, string)
	// Downscale divides focal lengths and image dimensions. Frames are resized to match.
	Downscale int
	// PrincipalOffset sets Cxr/Cyr from the full resolution principal point.
	PrincipalOffset bool
	// EagerImage reports whether frame of camera is decoded at load time.
	EagerImage func(camera string, frame, startFrame int, testOnly bool) bool
	Near       float64
	Far        float64
}

// DynerfDialect reads <root>/frames/<frame>/<name> at half resolution.
var DynerfDialect = Dialect{
	Name:      "Dynerf",
	SparseDir: filepath.Join("sparse", "0"),
	ImagePath: func(root, extrName string, frame int) (string, string) {
		p := filepath.Join(root, "frames", fmt.Sprintf("%04d", frame), extrName)
		return p, filepath.Base(p)
	},
	Downscale:  2,
	EagerImage: firstFrameOnly,
	Near:       0.01,
	Far:        100,
}

// TechnicolorDialect reads <root>/images/<camera>/<frame>.png at full resolution.
// In test only mode only the first frame of holdout is decoded eagerly.
func TechnicolorDialect(holdout string) Dialect {
	return Dialect{
		Name:      "Technicolor",
		SparseDir: filepath.Join("colmap", "dense", "workspace", "sparse"),
		ImagePath: func(root, extrName string, frame int) (string, string) {
			camera := utils.TrimExt(extrName)
			file := fmt.Sprintf("%04d.png", frame)
			return filepath.Join(root, "images", camera, file), path.Join(camera, file)
		},
		Downscale:       1,
		PrincipalOffset: true,
		EagerImage: func(camera string, frame, startFrame int, testOnly bool) bool {
			if testOnly {
				return camera == holdout && frame == startFrame
			}
			return frame == startFrame
		},
		Near: 0.01,
		Far:  100,
	}
}

func firstFrameOnly(_ string, frame, startFrame int, _ bool) bool {
	return frame == startFrame
}

// ReadColmapCameras builds one CameraInfo per registered image per frame in
// [opts.StartFrame, opts.StartFrame+opts.Duration). Images are visited in
// ascending id order.
func ReadColmapCameras(
	ctx context.Context,
	root string,
	model *colmap.SparseModel,
	dialect Dialect,
	opts LoadOptions,
) ([]CameraInfo, error) {
	if opts.Duration <= 0 {
		return nil, errors.Errorf("%s needs a positive duration, got %d", dialect.Name, opts.Duration)
	}
	ids := colmap.SortedImageIDs(model.Images)
	bar := utils.NewProgressBar(len(ids), "Reading camera", opts.Progress)
	defer bar.Finish()

	camInfos := make([]CameraInfo, 0, len(ids)*opts.Duration)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		extr := model.Images[id]
		intr, ok := model.Cameras[extr.CameraID]
		if !ok {
			return nil, errors.Wrapf(ErrDatasetLayout, "image %q references missing camera %d", extr.Name, extr.CameraID)
		}
		if intr.Model != colmap.SimplePinhole && intr.Model != colmap.Pinhole {
			return nil, errors.Wrapf(ErrUnsupportedCameraModel, "camera %d is %s", intr.ID, intr.Model)
		}
		intrinsics, ok := intr.Intrinsics()
		if !ok {
			return nil, errors.Wrapf(ErrDatasetLayout, "camera %d has %d parameters", intr.ID, len(intr.Params))
		}
		if err := intrinsics.CheckValid(); err != nil {
			return nil, errors.Wrapf(ErrDatasetLayout, "camera %d: %v", intr.ID, err)
		}
		var cxr, cyr float64
		if dialect.PrincipalOffset {
			if len(intr.Params) < 4 {
				return nil, errors.Wrapf(ErrDatasetLayout,
					"camera %d has %d parameters, principal offset needs 4", intr.ID, len(intr.Params))
			}
			cxr, cyr = intrinsics.PrincipalOffset()
		}
		// frames are resized to the downscaled size, but the field of view is that of the full frame
		scaled := intrinsics.Downscale(dialect.Downscale)
		fovX, fovY := intrinsics.FieldOfView()

		r := spatialmath.Transpose(extr.RotationMatrix())
		t := extr.TVec
		camera := utils.TrimExt(extr.Name)

		for j := opts.StartFrame; j < opts.StartFrame+opts.Duration; j++ {
			imagePath, imageName := dialect.ImagePath(root, extr.Name, j)
			if !utils.FileExists(imagePath) {
				return nil, errors.Wrap(ErrImageNotFound, imagePath)
			}
			info := CameraInfo{
				UID:       intr.ID,
				R:         r,
				T:         t,
				FovY:      fovY,
				FovX:      fovX,
				ImagePath: imagePath,
				ImageName: imageName,
				Width:     scaled.Width,
				Height:    scaled.Height,
				Near:      dialect.Near,
				Far:       dialect.Far,
				Timestamp: float64(j-opts.StartFrame) / float64(opts.Duration),
				Cxr:       cxr,
				Cyr:       cyr,
				resampler: opts.resampler(),
			}
			if j == opts.StartFrame {
				info.Pose = spatialmath.World2View(r, t)
			}
			if dialect.EagerImage(camera, j, opts.StartFrame, opts.TestOnly) {
				img, err := rimage.OpenResized(imagePath, scaled.Width, scaled.Height, info.resampler)
				if err != nil {
					return nil, err
				}
				info.Image = img
			}
			camInfos = append(camInfos, info)
		}
		bar.Increment()
	}
	return camInfos, nil
}
