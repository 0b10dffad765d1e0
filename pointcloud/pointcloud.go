// Package pointcloud defines the ordered, colored point cloud used to seed a scene
// and provides readers and writers for the file formats it is exchanged in.
//
// Unlike a spatial index, a BasicPointCloud keeps points in the order they were
// read so that positions, colors and normals stay aligned by index.
package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

const (
	maxPreciseFloat64 = float64(9007199254740992)
	minPreciseFloat64 = -maxPreciseFloat64
)

// MetaData is data about what's stored in the point cloud.
type MetaData struct {
	HasColor   bool
	HasNormals bool

	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64
}

// NewMetaData returns empty metadata whose bounds are ready to be merged into.
func NewMetaData() MetaData {
	return MetaData{
		MinX: math.MaxFloat64,
		MinY: math.MaxFloat64,
		MinZ: math.MaxFloat64,
		MaxX: -math.MaxFloat64,
		MaxY: -math.MaxFloat64,
		MaxZ: -math.MaxFloat64,
	}
}

// Merge extends the bounds to include v.
func (meta *MetaData) Merge(v r3.Vector) {
	meta.MinX = math.Min(meta.MinX, v.X)
	meta.MinY = math.Min(meta.MinY, v.Y)
	meta.MinZ = math.Min(meta.MinZ, v.Z)
	meta.MaxX = math.Max(meta.MaxX, v.X)
	meta.MaxY = math.Max(meta.MaxY, v.Y)
	meta.MaxZ = math.Max(meta.MaxZ, v.Z)
}

// Center returns the middle of the bounding box.
func (meta MetaData) Center() r3.Vector {
	return r3.Vector{
		X: (meta.MinX + meta.MaxX) / 2,
		Y: (meta.MinY + meta.MaxY) / 2,
		Z: (meta.MinZ + meta.MaxZ) / 2,
	}
}

// BasicPointCloud is an ordered point cloud. Colors are RGB in [0,1] and every
// slice has the same length as Points.
type BasicPointCloud struct {
	Points  []r3.Vector
	Colors  []r3.Vector
	Normals []r3.Vector

	hasColor   bool
	hasNormals bool
}

// New returns a cloud over the given points. Nil colors or normals are filled
// with zeros; non-nil ones must match the number of points.
func New(points, colors, normals []r3.Vector) (*BasicPointCloud, error) {
	pc := &BasicPointCloud{
		Points:     points,
		Colors:     colors,
		Normals:    normals,
		hasColor:   colors != nil,
		hasNormals: normals != nil,
	}
	if pc.Colors == nil {
		pc.Colors = make([]r3.Vector, len(points))
	}
	if pc.Normals == nil {
		pc.Normals = make([]r3.Vector, len(points))
	}
	if len(pc.Colors) != len(points) {
		return nil, errors.Errorf("have %d colors for %d points", len(pc.Colors), len(points))
	}
	if len(pc.Normals) != len(points) {
		return nil, errors.Errorf("have %d normals for %d points", len(pc.Normals), len(points))
	}
	return pc, nil
}

// Size returns the number of points in the cloud.
func (pc *BasicPointCloud) Size() int {
	if pc == nil {
		return 0
	}
	return len(pc.Points)
}

// MetaData returns the bounds of the cloud and which attributes it carries.
func (pc *BasicPointCloud) MetaData() MetaData {
	meta := NewMetaData()
	meta.HasColor = pc.hasColor
	meta.HasNormals = pc.hasNormals
	for _, p := range pc.Points {
		meta.Merge(p)
	}
	return meta
}

// Iterate calls fn for every point in order until fn returns false.
func (pc *BasicPointCloud) Iterate(fn func(i int, p, c, n r3.Vector) bool) {
	for i, p := range pc.Points {
		if !fn(i, p, pc.Colors[i], pc.Normals[i]) {
			return
		}
	}
}

// WithPoints returns a cloud that shares colors and normals with pc but has
// new positions.
func (pc *BasicPointCloud) WithPoints(points []r3.Vector) (*BasicPointCloud, error) {
	if len(points) != len(pc.Points) {
		return nil, errors.Errorf("cannot replace %d points with %d", len(pc.Points), len(points))
	}
	return &BasicPointCloud{
		Points:     points,
		Colors:     pc.Colors,
		Normals:    pc.Normals,
		hasColor:   pc.hasColor,
		hasNormals: pc.hasNormals,
	}, nil
}

func colorToRGB255(c r3.Vector) (uint8, uint8, uint8) {
	return channelTo255(c.X), channelTo255(c.Y), channelTo255(c.Z)
}

func channelTo255(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}

func rgb255ToColor(r, g, b uint8) r3.Vector {
	return r3.Vector{X: float64(r) / 255, Y: float64(g) / 255, Z: float64(b) / 255}
}
