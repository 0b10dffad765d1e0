package cli

import (
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/dynscene/pointcloud"
)

// DownsampleAction voxel downsamples a point cloud file.
func DownsampleAction(c *cli.Context) error {
	logger := newLogger(c)
	voxel := c.Float64(cloudFlagVoxel)
	if voxel <= 0 {
		return errors.Errorf("--%s must be positive, got %v", cloudFlagVoxel, voxel)
	}
	cloud, err := pointcloud.NewFromFile(c.Path(cloudFlagIn), logger)
	if err != nil {
		return err
	}
	down, err := pointcloud.VoxelDownsample(cloud, voxel)
	if err != nil {
		return err
	}
	if err := pointcloud.WriteToFile(down, c.Path(cloudFlagOut)); err != nil {
		return err
	}
	printf(c.App.Writer, "downsampled %d points to %d, wrote %s", cloud.Size(), down.Size(), c.Path(cloudFlagOut))
	return nil
}

// ExportAction converts a point cloud file to the format named by the output extension.
func ExportAction(c *cli.Context) error {
	logger := newLogger(c)
	cloud, err := pointcloud.NewFromFile(c.Path(cloudFlagIn), logger)
	if err != nil {
		return err
	}
	if err := pointcloud.WriteToFile(cloud, c.Path(cloudFlagOut)); err != nil {
		return err
	}
	printf(c.App.Writer, "wrote %d points to %s", cloud.Size(), c.Path(cloudFlagOut))
	return nil
}
