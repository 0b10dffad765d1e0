package pointcloud

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/chenzhekl/goply"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// ErrUnknownProperty is returned when a PLY vertex lacks a required property or
// stores it with a type that cannot be read as a number.
var ErrUnknownProperty = errors.New("unknown PLY vertex property")

// PLYFormat is the encoding used for the PLY body.
type PLYFormat int

const (
	// PLYBinary is binary little endian.
	PLYBinary PLYFormat = iota
	// PLYAscii is one whitespace separated vertex per line.
	PLYAscii
)

var plyProperties = []string{"x", "y", "z", "nx", "ny", "nz", "red", "green", "blue"}

// ReadPLY reads the vertex element of a PLY file. Colors are scaled from [0,255]
// into [0,1]; missing normals are left zero.
func ReadPLY(path string) (*BasicPointCloud, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(f.Close)
	pc, err := DecodePLY(f)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %q", path)
	}
	return pc, nil
}

// DecodePLY reads the vertex element from r.
func DecodePLY(r io.Reader) (pc *BasicPointCloud, err error) {
	// goply reports malformed input by panicking.
	defer func() {
		if rec := recover(); rec != nil {
			pc = nil
			err = errors.Errorf("malformed PLY: %v", rec)
		}
	}()
	br := bufio.NewReader(r)
	if magic, err := br.Peek(3); err != nil || string(magic) != "ply" {
		return nil, errors.New("missing ply magic number")
	}
	vertices := goply.New(br).Elements("vertex")

	points := make([]r3.Vector, 0, len(vertices))
	colors := make([]r3.Vector, 0, len(vertices))
	normals := make([]r3.Vector, 0, len(vertices))
	for i, vertex := range vertices {
		var xyz, rgb, n [3]float64
		for j, name := range []string{"x", "y", "z"} {
			v, ok, err := plyProperty(vertex, name)
			if err != nil {
				return nil, errors.Wrapf(err, "vertex %d", i)
			}
			if !ok {
				return nil, errors.Wrapf(ErrUnknownProperty, "vertex %d has no %q", i, name)
			}
			xyz[j] = v
		}
		for j, name := range []string{"red", "green", "blue"} {
			v, ok, err := plyProperty(vertex, name)
			if err != nil {
				return nil, errors.Wrapf(err, "vertex %d", i)
			}
			if !ok {
				return nil, errors.Wrapf(ErrUnknownProperty, "vertex %d has no %q", i, name)
			}
			rgb[j] = v / 255
		}
		for j, name := range []string{"nx", "ny", "nz"} {
			v, _, err := plyProperty(vertex, name)
			if err != nil {
				return nil, errors.Wrapf(err, "vertex %d", i)
			}
			n[j] = v
		}
		points = append(points, r3.Vector{X: xyz[0], Y: xyz[1], Z: xyz[2]})
		colors = append(colors, r3.Vector{X: rgb[0], Y: rgb[1], Z: rgb[2]})
		normals = append(normals, r3.Vector{X: n[0], Y: n[1], Z: n[2]})
	}
	return New(points, colors, normals)
}

func plyProperty(vertex map[string]interface{}, name string) (float64, bool, error) {
	raw, ok := vertex[name]
	if !ok {
		return 0, false, nil
	}
	switch v := raw.(type) {
	case float32:
		return float64(v), true, nil
	case float64:
		return v, true, nil
	case uint8:
		return float64(v), true, nil
	case int8:
		return float64(v), true, nil
	case uint16:
		return float64(v), true, nil
	case int16:
		return float64(v), true, nil
	case uint32:
		return float64(v), true, nil
	case int32:
		return float64(v), true, nil
	default:
		return 0, false, errors.Wrapf(ErrUnknownProperty, "%q has type %T", name, raw)
	}
}

// WritePLY writes the cloud as a binary little endian PLY with float positions,
// float normals and uchar colors. Normals are always written as zero.
func WritePLY(path string, cloud *BasicPointCloud) (err error) {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	w := bufio.NewWriter(f)
	if err = EncodePLY(w, cloud, PLYBinary); err != nil {
		return err
	}
	return w.Flush()
}

type plyVertex struct {
	X, Y, Z          float32
	NX, NY, NZ       float32
	Red, Green, Blue uint8
}

// EncodePLY writes the cloud to w in the given format.
func EncodePLY(w io.Writer, cloud *BasicPointCloud, format PLYFormat) error {
	formatName := "binary_little_endian"
	if format == PLYAscii {
		formatName = "ascii"
	}
	if _, err := fmt.Fprintf(w, "ply\nformat %s 1.0\nelement vertex %d\n", formatName, cloud.Size()); err != nil {
		return err
	}
	for _, name := range plyProperties {
		typ := "float"
		if name == "red" || name == "green" || name == "blue" {
			typ = "uchar"
		}
		if _, err := fmt.Fprintf(w, "property %s %s\n", typ, name); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, "end_header\n"); err != nil {
		return err
	}

	var err error
	cloud.Iterate(func(i int, p, c, _ r3.Vector) bool {
		r, g, b := colorToRGB255(c)
		v := plyVertex{X: float32(p.X), Y: float32(p.Y), Z: float32(p.Z), Red: r, Green: g, Blue: b}
		if format == PLYAscii {
			_, err = fmt.Fprintf(w, "%g %g %g %g %g %g %d %d %d\n",
				v.X, v.Y, v.Z, v.NX, v.NY, v.NZ, v.Red, v.Green, v.Blue)
		} else {
			err = binary.Write(w, binary.LittleEndian, &v)
		}
		if err != nil {
			err = errors.Wrapf(err, "writing vertex %d", i)
			return false
		}
		return true
	})
	return err
}
