package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// VoxelCoords stores Voxel coordinates in VoxelGrid axes.
type VoxelCoords struct {
	I, J, K int64
}

// GetVoxelCoordinates computes voxel coordinates in VoxelGrid Axes.
func GetVoxelCoordinates(pt, ptMin r3.Vector, voxelSize float64) VoxelCoords {
	ptVoxel := pt.Sub(ptMin)
	return VoxelCoords{
		I: int64(math.Floor(ptVoxel.X / voxelSize)),
		J: int64(math.Floor(ptVoxel.Y / voxelSize)),
		K: int64(math.Floor(ptVoxel.Z / voxelSize)),
	}
}

type voxelAccumulator struct {
	point, color, normal r3.Vector
	count                float64
}

// VoxelDownsample replaces all points falling in the same cube of side voxelSize
// with their mean position, color and normal. Voxels are emitted in the order
// their first point appears.
func VoxelDownsample(cloud *BasicPointCloud, voxelSize float64) (*BasicPointCloud, error) {
	if voxelSize <= 0 || math.IsNaN(voxelSize) {
		return nil, errors.Errorf("voxel size must be positive, got %v", voxelSize)
	}
	if cloud.Size() == 0 {
		return New(nil, nil, nil)
	}
	meta := cloud.MetaData()
	ptMin := r3.Vector{X: meta.MinX, Y: meta.MinY, Z: meta.MinZ}

	index := map[VoxelCoords]int{}
	var voxels []*voxelAccumulator
	cloud.Iterate(func(_ int, p, c, n r3.Vector) bool {
		key := GetVoxelCoordinates(p, ptMin, voxelSize)
		i, ok := index[key]
		if !ok {
			i = len(voxels)
			index[key] = i
			voxels = append(voxels, &voxelAccumulator{})
		}
		acc := voxels[i]
		acc.point = acc.point.Add(p)
		acc.color = acc.color.Add(c)
		acc.normal = acc.normal.Add(n)
		acc.count++
		return true
	})

	points := make([]r3.Vector, len(voxels))
	colors := make([]r3.Vector, len(voxels))
	normals := make([]r3.Vector, len(voxels))
	for i, acc := range voxels {
		points[i] = acc.point.Mul(1 / acc.count)
		colors[i] = acc.color.Mul(1 / acc.count)
		normals[i] = acc.normal.Mul(1 / acc.count)
	}
	out, err := New(points, colors, normals)
	if err != nil {
		return nil, err
	}
	out.hasColor = meta.HasColor
	out.hasNormals = meta.HasNormals
	return out, nil
}
