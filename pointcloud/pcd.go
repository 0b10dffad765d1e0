package pointcloud

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// PCDType is the format of a pcd file.
type PCDType int

const (
	// PCDAscii ascii format for pcd.
	PCDAscii PCDType = 0
	// PCDBinary binary format for pcd.
	PCDBinary PCDType = 1
	// PCDCompressed binary format for pcd.
	PCDCompressed PCDType = 2
)

func colorToPCDInt(c r3.Vector) uint32 {
	r, g, b := colorToRGB255(c)
	return uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

func pcdIntToColor(c uint32) r3.Vector {
	return rgb255ToColor(uint8(0xFF&(c>>16)), uint8(0xFF&(c>>8)), uint8(0xFF&c))
}

// ToPCD writes the cloud to out as a PCD v0.7 file. Colors are packed into a
// single rgb field when the cloud has them.
func ToPCD(cloud *BasicPointCloud, out io.Writer, outputType PCDType) error {
	if outputType == PCDCompressed {
		return errors.New("compressed PCD not yet implemented")
	}
	hasColor := cloud.MetaData().HasColor

	var err error
	if _, err = fmt.Fprintf(out, "VERSION .7\n"); err != nil {
		return err
	}
	if hasColor {
		_, err = fmt.Fprintf(out, "FIELDS x y z rgb\n"+
			"SIZE 4 4 4 4\n"+
			"TYPE F F F U\n"+
			"COUNT 1 1 1 1\n")
	} else {
		_, err = fmt.Fprintf(out, "FIELDS x y z\n"+
			"SIZE 4 4 4\n"+
			"TYPE F F F\n"+
			"COUNT 1 1 1\n")
	}
	if err != nil {
		return err
	}
	if _, err = fmt.Fprintf(out, "WIDTH %d\n"+
		"HEIGHT %d\n"+
		"VIEWPOINT 0 0 0 1 0 0 0\n"+
		"POINTS %d\n",
		cloud.Size(), 1, cloud.Size()); err != nil {
		return err
	}
	dataName := "ascii"
	if outputType == PCDBinary {
		dataName = "binary"
	}
	if _, err = fmt.Fprintf(out, "DATA %s\n", dataName); err != nil {
		return err
	}

	cloud.Iterate(func(_ int, p, c, _ r3.Vector) bool {
		switch outputType {
		case PCDBinary:
			buf := make([]byte, 12, 16)
			binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(p.X)))
			binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(p.Y)))
			binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(float32(p.Z)))
			if hasColor {
				buf = binary.LittleEndian.AppendUint32(buf, colorToPCDInt(c))
			}
			_, err = out.Write(buf)
		default:
			if hasColor {
				_, err = fmt.Fprintf(out, "%f %f %f %d\n", p.X, p.Y, p.Z, colorToPCDInt(c))
			} else {
				_, err = fmt.Fprintf(out, "%f %f %f\n", p.X, p.Y, p.Z)
			}
		}
		return err == nil
	})
	return err
}

type pcdFieldType int

const (
	pcdPointOnly  pcdFieldType = 3
	pcdPointColor pcdFieldType = 4
)

type pcdHeader struct {
	fields pcdFieldType
	size   []uint64
	width  uint64
	height uint64
	points uint64
	data   PCDType
}

const pcdCommentChar = "#"

var pcdHeaderFields = []string{"VERSION", "FIELDS", "SIZE", "TYPE", "COUNT", "WIDTH", "HEIGHT", "VIEWPOINT", "POINTS", "DATA"}

func parsePCDHeaderLine(line string, index int, header *pcdHeader) error {
	var err error
	name := pcdHeaderFields[index]
	field, value, _ := strings.Cut(line, " ")
	tokens := strings.Fields(value)
	if field != name {
		return errors.Errorf("line is supposed to start with %s but is %s", name, line)
	}

	switch name {
	case "VERSION":
		if value != ".7" && value != "0.7" {
			return errors.Errorf("unsupported pcd version %s", value)
		}
	case "FIELDS":
		switch value {
		case "x y z":
			header.fields = pcdPointOnly
		case "x y z rgb":
			header.fields = pcdPointColor
		default:
			return errors.Errorf("unsupported pcd fields %s", value)
		}
	case "SIZE":
		if len(tokens) != int(header.fields) {
			return errors.New("unexpected number of fields in SIZE line")
		}
		header.size = make([]uint64, len(tokens))
		for i, token := range tokens {
			header.size[i], err = strconv.ParseUint(token, 10, 64)
			if err != nil {
				return errors.Errorf("invalid SIZE field %s", token)
			}
			if header.size[i] != 4 {
				return errors.Errorf("unsupported field size %d", header.size[i])
			}
		}
	case "TYPE", "COUNT":
		if len(tokens) != int(header.fields) {
			return errors.Errorf("unexpected number of fields in %s line", name)
		}
	case "WIDTH":
		header.width, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid WIDTH field %s", value)
		}
	case "HEIGHT":
		header.height, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid HEIGHT field %s", value)
		}
	case "VIEWPOINT":
		if len(tokens) != 7 {
			return errors.Errorf("unexpected number of fields in VIEWPOINT line. Expected 7, got %d", len(tokens))
		}
	case "POINTS":
		header.points, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid POINTS field %s", value)
		}
		if header.points != header.width*header.height {
			return errors.Errorf("POINTS field %d does not match WIDTH*HEIGHT %d", header.points, header.width*header.height)
		}
	case "DATA":
		switch value {
		case "ascii":
			header.data = PCDAscii
		case "binary":
			header.data = PCDBinary
		case "binary_compressed":
			header.data = PCDCompressed
		default:
			return errors.Errorf("unsupported pcd data type %s", value)
		}
	}
	return nil
}

// ReadPCD reads an ascii or binary PCD with x y z and optionally rgb fields.
func ReadPCD(inRaw io.Reader) (*BasicPointCloud, error) {
	header := pcdHeader{}
	in := bufio.NewReader(inRaw)
	headerLineCount := 0
	for headerLineCount < len(pcdHeaderFields) {
		line, err := in.ReadString('\n')
		if err != nil {
			return nil, errors.Wrapf(err, "error reading header line %d", headerLineCount)
		}
		line, _, _ = strings.Cut(line, pcdCommentChar)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := parsePCDHeaderLine(line, headerLineCount, &header); err != nil {
			return nil, err
		}
		headerLineCount++
	}

	points := make([]r3.Vector, 0, header.points)
	var colors []r3.Vector
	if header.fields == pcdPointColor {
		colors = make([]r3.Vector, 0, header.points)
	}
	for i := 0; i < int(header.points); i++ {
		var p r3.Vector
		var c uint32
		var err error
		switch header.data {
		case PCDAscii:
			p, c, err = readPCDAsciiPoint(in, header)
		case PCDBinary:
			p, c, err = readPCDBinaryPoint(in, header)
		default:
			return nil, errors.New("compressed pcd not yet supported")
		}
		if err != nil {
			return nil, errors.Wrapf(err, "point %d", i)
		}
		points = append(points, p)
		if colors != nil {
			colors = append(colors, pcdIntToColor(c))
		}
	}
	return New(points, colors, nil)
}

func readPCDAsciiPoint(in *bufio.Reader, header pcdHeader) (r3.Vector, uint32, error) {
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return r3.Vector{}, 0, err
	}
	tokens := strings.Fields(line)
	if len(tokens) != int(header.fields) {
		return r3.Vector{}, 0, errors.Errorf("unexpected number of fields %d", len(tokens))
	}
	var xyz [3]float64
	for j := range xyz {
		xyz[j], err = strconv.ParseFloat(tokens[j], 64)
		if err != nil {
			return r3.Vector{}, 0, errors.Wrapf(err, "invalid field %s", tokens[j])
		}
	}
	var c uint64
	if header.fields == pcdPointColor {
		c, err = strconv.ParseUint(tokens[3], 10, 32)
		if err != nil {
			return r3.Vector{}, 0, errors.Wrapf(err, "invalid rgb field %s", tokens[3])
		}
	}
	return r3.Vector{X: xyz[0], Y: xyz[1], Z: xyz[2]}, uint32(c), nil
}

func readPCDBinaryPoint(in *bufio.Reader, header pcdHeader) (r3.Vector, uint32, error) {
	buf := make([]byte, 4*int(header.fields))
	if _, err := io.ReadFull(in, buf); err != nil {
		return r3.Vector{}, 0, err
	}
	p := r3.Vector{
		X: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf))),
		Y: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[4:]))),
		Z: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[8:]))),
	}
	var c uint32
	if header.fields == pcdPointColor {
		c = binary.LittleEndian.Uint32(buf[12:])
	}
	return p, c, nil
}
