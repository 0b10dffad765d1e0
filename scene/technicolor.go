package scene

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/dynscene/colmap"
	"go.viam.com/dynscene/logging"
)

// DefaultHoldoutCamera is the Technicolor camera held out for testing.
const DefaultHoldoutCamera = "cam10"

// LoadTechnicolor loads a Technicolor capture. Every frame of the holdout camera
// is a test frame; there is no video split.
func LoadTechnicolor(ctx context.Context, root string, opts LoadOptions, logger logging.Logger) (*SceneInfo, error) {
	logger = logger.Sublogger("technicolor")
	holdout := opts.HoldoutCamera
	if holdout == "" {
		holdout = DefaultHoldoutCamera
	}
	dialect := TechnicolorDialect(holdout)

	sparseDir := filepath.Join(root, dialect.SparseDir)
	model, err := colmap.ReadSparseModel(sparseDir)
	if err != nil {
		return nil, err
	}
	logger.Debugw("read sparse model", "dir", sparseDir, "format", model.Format,
		"images", len(model.Images), "cameras", len(model.Cameras))

	camInfos, err := ReadColmapCameras(ctx, root, model, dialect, opts)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(camInfos, func(i, j int) bool { return camInfos[i].ImageName < camInfos[j].ImageName })

	isHoldout := func(c CameraInfo, _ int) bool { return cameraDir(c.ImageName) == holdout }
	trainCamInfos := lo.Reject(camInfos, isHoldout)
	testCamInfos := lo.Filter(camInfos, isHoldout)

	testNames := lo.Uniq(lo.Map(testCamInfos, func(c CameraInfo, _ int) string { return cameraDir(c.ImageName) }))
	if len(testNames) != 1 {
		return nil, errors.Wrapf(ErrDatasetLayout, "expected one test camera named %q, found %d", holdout, len(testNames))
	}
	trainNames := lo.Uniq(lo.Map(trainCamInfos, func(c CameraInfo, _ int) string { return cameraDir(c.ImageName) }))
	if lo.Contains(trainNames, testNames[0]) {
		return nil, errors.Wrapf(ErrDatasetLayout, "test camera %q also appears in the train split", testNames[0])
	}

	normalization, err := NerfppNorm(trainCamInfos)
	if err != nil {
		return nil, err
	}

	plyPath := filepath.Join(root, "points3D_downsample.ply")
	info := &SceneInfo{
		TrainCameras:  trainCamInfos,
		TestCameras:   testCamInfos,
		VideoCameras:  []CameraInfo{},
		Normalization: normalization,
		PLYPath:       plyPath,
	}
	if !opts.TestOnly {
		info.PointCloud = readOptionalPointCloud(plyPath, logger)
	}
	logger.Infow("loaded scene", "train", len(trainCamInfos), "test", len(testCamInfos), "radius", normalization.Radius)
	return info, nil
}

// cameraDir returns the camera directory of a "<camera>/<frame>.png" image name.
func cameraDir(imageName string) string {
	dir, _, _ := strings.Cut(imageName, "/")
	return dir
}
