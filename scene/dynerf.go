package scene

import (
	"context"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/dynscene/colmap"
	"go.viam.com/dynscene/logging"
)

// DefaultDynerfDuration is the number of frames read per camera when LoadOptions.Duration is zero.
const DefaultDynerfDuration = 300

// LoadDynerf loads a Dynerf capture. Cameras are sorted by image name and each
// entry of opts.TestCams selects one camera's run of frames for testing; the
// video split is the test split.
//
// Unless opts.TestOnly is set, the point cloud is read from points3D.ply in the sparse model
// directory. When that file is missing it is built from the model's points3D file, and it is
// written back as points3D.ply only if opts.WriteSparsePLY is set.
func LoadDynerf(ctx context.Context, root string, opts LoadOptions, logger logging.Logger) (*SceneInfo, error) {
	logger = logger.Sublogger("dynerf")
	dialect := DynerfDialect
	if opts.Duration == 0 {
		opts.Duration = DefaultDynerfDuration
	}

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

	testCams := opts.TestCams
	if testCams == nil {
		testCams = []int{0}
	}
	excluded := map[int]bool{}
	testCamInfos := []CameraInfo{}
	for _, n := range lo.Uniq(testCams) {
		start, stop := n*opts.Duration, (n+1)*opts.Duration
		if n < 0 || stop > len(camInfos) {
			return nil, errors.Wrapf(ErrDatasetLayout, "test camera %d out of range for %d cameras",
				n, len(camInfos)/opts.Duration)
		}
		testCamInfos = append(testCamInfos, camInfos[start:stop]...)
		for i := start; i < stop; i++ {
			excluded[i] = true
		}
	}
	trainCamInfos := lo.Filter(camInfos, func(_ CameraInfo, i int) bool { return !excluded[i] })

	normalization, err := NerfppNorm(trainCamInfos)
	if err != nil {
		return nil, err
	}

	plyPath := filepath.Join(sparseDir, "points3D.ply")
	info := &SceneInfo{
		TrainCameras:  trainCamInfos,
		TestCameras:   testCamInfos,
		VideoCameras:  testCamInfos,
		Normalization: normalization,
		PLYPath:       plyPath,
	}
	if !opts.TestOnly {
		info.PointCloud = sparsePointCloud(plyPath, sparseDir, opts.WriteSparsePLY, logger)
	}
	logger.Infow("loaded scene", "train", len(trainCamInfos), "test", len(testCamInfos), "radius", normalization.Radius)
	return info, nil
}
