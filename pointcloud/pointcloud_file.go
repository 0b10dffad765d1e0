package pointcloud

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/edaniels/lidario"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/dynscene/logging"
)

// NewFromFile returns a pointcloud read in from the given file. The format is
// chosen by extension.
func NewFromFile(fn string, logger logging.Logger) (*BasicPointCloud, error) {
	switch strings.ToLower(filepath.Ext(fn)) {
	case ".ply":
		return ReadPLY(fn)
	case ".pcd":
		//nolint:gosec
		f, err := os.Open(fn)
		if err != nil {
			return nil, err
		}
		defer utils.UncheckedErrorFunc(f.Close)
		return ReadPCD(f)
	case ".las":
		return NewFromLASFile(fn, logger)
	default:
		return nil, errors.Errorf("do not know how to read file %q", fn)
	}
}

// WriteToFile writes the cloud to fn in the format named by its extension.
func WriteToFile(cloud *BasicPointCloud, fn string) (err error) {
	switch strings.ToLower(filepath.Ext(fn)) {
	case ".ply":
		return WritePLY(fn, cloud)
	case ".las":
		return WriteToLASFile(cloud, fn)
	case ".pcd":
		//nolint:gosec
		f, createErr := os.Create(fn)
		if createErr != nil {
			return createErr
		}
		defer func() {
			err = multierr.Combine(err, f.Close())
		}()
		w := bufio.NewWriter(f)
		if err = ToPCD(cloud, w, PCDBinary); err != nil {
			return err
		}
		return w.Flush()
	default:
		return errors.Errorf("do not know how to write file %q", fn)
	}
}

// NewFromLASFile returns a point cloud from reading a LAS file. If any
// lossiness of points could occur from reading it in, it's reported but is not
// an error.
func NewFromLASFile(fn string, logger logging.Logger) (*BasicPointCloud, error) {
	lf, err := lidario.NewLasFile(fn, "r")
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(lf.Close)

	hasColor := lf.Header.PointFormatID == 2
	points := make([]r3.Vector, 0, lf.Header.NumberPoints)
	var colors []r3.Vector
	if hasColor {
		colors = make([]r3.Vector, 0, lf.Header.NumberPoints)
	}
	for i := 0; i < lf.Header.NumberPoints; i++ {
		p, err := lf.LasPoint(i)
		if err != nil {
			return nil, err
		}
		data := p.PointData()

		x, y, z := data.X, data.Y, data.Z
		if x < minPreciseFloat64 || x > maxPreciseFloat64 ||
			y < minPreciseFloat64 || y > maxPreciseFloat64 ||
			z < minPreciseFloat64 || z > maxPreciseFloat64 {
			logger.Warnw("potential floating point lossiness for LAS point",
				"point", data, "range", fmt.Sprintf("[%f,%f]", minPreciseFloat64, maxPreciseFloat64))
		}
		points = append(points, r3.Vector{X: x, Y: y, Z: z})

		if hasColor {
			var c r3.Vector
			if rgb := p.RgbData(); rgb != nil {
				c = rgb255ToColor(uint8(rgb.Red/256), uint8(rgb.Green/256), uint8(rgb.Blue/256))
			}
			colors = append(colors, c)
		}
	}
	return New(points, colors, nil)
}

// WriteToLASFile writes the point cloud out to a LAS file. Colors are written
// with point format 2; normals are not stored.
func WriteToLASFile(cloud *BasicPointCloud, fn string) (err error) {
	lf, err := lidario.NewLasFile(fn, "w")
	if err != nil {
		return
	}
	defer func() {
		cerr := lf.Close()
		err = multierr.Combine(err, cerr)
	}()

	meta := cloud.MetaData()

	pointFormatID := 0
	if meta.HasColor {
		pointFormatID = 2
	}
	if err = lf.AddHeader(lidario.LasHeader{
		PointFormatID: byte(pointFormatID),
	}); err != nil {
		return
	}

	cloud.Iterate(func(_ int, pos, c, _ r3.Vector) bool {
		var lp lidario.LasPointer
		pr0 := &lidario.PointRecord0{
			X: pos.X,
			Y: pos.Y,
			Z: pos.Z,
			BitField: lidario.PointBitField{
				Value: (1) | (1 << 3) | (0 << 6) | (0 << 7),
			},
			ClassBitField: lidario.ClassificationBitField{
				Value: 0,
			},
			PointSourceID: 1,
		}
		lp = pr0

		if meta.HasColor {
			r, g, b := colorToRGB255(c)
			lp = &lidario.PointRecord2{
				PointRecord0: pr0,
				RGB: &lidario.RgbData{
					Red:   uint16(r) * 256,
					Green: uint16(g) * 256,
					Blue:  uint16(b) * 256,
				},
			}
		}
		if lerr := lf.AddLasPoint(lp); lerr != nil {
			err = lerr
			return false
		}
		return true
	})

	// nolint:nakedret
	return
}
