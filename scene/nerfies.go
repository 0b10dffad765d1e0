package scene

import (
	"context"
	"path/filepath"
	"slices"

	"github.com/pkg/errors"

	"go.viam.com/dynscene/hyper"
	"go.viam.com/dynscene/logging"
	"go.viam.com/dynscene/pointcloud"
	"go.viam.com/dynscene/utils"
)

// LoadNerfies loads a Nerfies/HyperNeRF capture. Unlike the COLMAP layouts its
// point cloud is required.
func LoadNerfies(ctx context.Context, root string, opts LoadOptions, logger logging.Logger) (*SceneInfo, error) {
	logger = logger.Sublogger("nerfies")
	ds, err := hyper.Load(ctx, root, hyper.Options{
		Ratio:      opts.Ratio,
		StartFrame: opts.StartFrame,
		Duration:   opts.Duration,
	}, logger)
	if err != nil {
		return nil, err
	}

	trainCamInfos, err := hyperCameras(ds, hyper.SplitTrain, opts)
	if err != nil {
		return nil, err
	}
	testCamInfos, err := hyperCameras(ds, hyper.SplitTest, opts)
	if err != nil {
		return nil, err
	}

	normalization, err := NerfppNorm(trainCamInfos)
	if err != nil {
		return nil, err
	}

	plyPath := filepath.Join(root, "points3D_downsample.ply")
	pcd, err := pointcloud.ReadPLY(plyPath)
	if err != nil {
		return nil, err
	}
	pcd, err = pcd.WithPoints(slices.Clone(pcd.Points))
	if err != nil {
		return nil, err
	}

	logger.Infow("loaded scene", "train", len(trainCamInfos), "test", len(testCamInfos), "radius", normalization.Radius)
	return &SceneInfo{
		PointCloud:    pcd,
		TrainCameras:  trainCamInfos,
		TestCameras:   testCamInfos,
		VideoCameras:  cloneCameras(testCamInfos),
		Normalization: normalization,
		PLYPath:       plyPath,
	}, nil
}

func hyperCameras(ds *hyper.Dataset, split hyper.Split, opts LoadOptions) ([]CameraInfo, error) {
	frames, err := ds.Frames(split)
	if err != nil {
		return nil, err
	}
	camInfos := make([]CameraInfo, 0, len(frames))
	for _, f := range frames {
		if !utils.FileExists(f.ImagePath) {
			return nil, errors.Wrap(ErrImageNotFound, f.ImagePath)
		}
		camInfos = append(camInfos, CameraInfo{
			UID:       f.UID,
			R:         f.R,
			T:         f.T,
			FovY:      f.FovY,
			FovX:      f.FovX,
			ImagePath: f.ImagePath,
			ImageName: f.ImageName,
			Width:     f.Width,
			Height:    f.Height,
			Near:      ds.Scene.Near,
			Far:       ds.Scene.Far,
			Timestamp: f.Time,
			resampler: opts.resampler(),
		})
	}
	return camInfos, nil
}
