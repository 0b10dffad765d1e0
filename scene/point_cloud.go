package scene

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/dynscene/colmap"
	"go.viam.com/dynscene/logging"
	"go.viam.com/dynscene/pointcloud"
	"go.viam.com/dynscene/utils"
)

// readOptionalPointCloud reads the PLY at plyPath, logging and returning nil on failure.
func readOptionalPointCloud(plyPath string, logger logging.Logger) *pointcloud.BasicPointCloud {
	pcd, err := pointcloud.ReadPLY(plyPath)
	if err != nil {
		logger.Warnw("cannot read point cloud, continuing without one", "path", plyPath, "error", err)
		return nil
	}
	logger.Debugw("read point cloud", "path", plyPath, "points", pcd.Size())
	return pcd
}

// sparsePointCloud reads plyPath when it exists and otherwise builds the cloud from the points3D
// file of sparseDir, saving it to plyPath when write is set.
func sparsePointCloud(plyPath, sparseDir string, write bool, logger logging.Logger) *pointcloud.BasicPointCloud {
	if utils.FileExists(plyPath) {
		return readOptionalPointCloud(plyPath, logger)
	}
	pcd, err := SparsePointCloud(sparseDir)
	if err != nil {
		logger.Warnw("cannot read point cloud, continuing without one", "path", plyPath, "error", err)
		return nil
	}
	logger.Debugw("built point cloud from sparse points", "dir", sparseDir, "points", pcd.Size())
	if !write {
		return pcd
	}
	if err := pointcloud.WritePLY(plyPath, pcd); err != nil {
		logger.Warnw("cannot save converted point cloud", "path", plyPath, "error", err)
		return pcd
	}
	logger.Infow("converted sparse points to PLY", "path", plyPath)
	return pcd
}

// SparsePointCloud converts the points3D.{bin,txt} of a sparse model into a point cloud with
// colors scaled to [0, 1].
func SparsePointCloud(sparseDir string) (*pointcloud.BasicPointCloud, error) {
	points, err := colmap.ReadPoints3D(sparseDir)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, errors.Errorf("no sparse points in %q", sparseDir)
	}
	xyz := make([]r3.Vector, len(points))
	rgb := make([]r3.Vector, len(points))
	for i, p := range points {
		xyz[i] = p.XYZ
		rgb[i] = r3.Vector{X: float64(p.RGB[0]) / 255, Y: float64(p.RGB[1]) / 255, Z: float64(p.RGB[2]) / 255}
	}
	return pointcloud.New(xyz, rgb, nil)
}
