package colmap

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// readTextLines returns the lines of a COLMAP text file with comments removed. Blank lines are
// kept because images.txt uses an empty line for an image without observations.
func readTextLines(path string) ([]string, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(f.Close)

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid number %q", f)
		}
		out[i] = v
	}
	return out, nil
}

// ReadCamerasText reads a cameras.txt file keyed by camera id.
// Each line is: CAMERA_ID MODEL WIDTH HEIGHT PARAMS[].
func ReadCamerasText(path string) (map[int]*Camera, error) {
	lines, err := readTextLines(path)
	if err != nil {
		return nil, err
	}
	cameras := map[int]*Camera{}
	for lineNo, line := range lines {
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			return nil, errors.Errorf("%s: camera line %d has %d fields, need at least 4", path, lineNo, len(fields))
		}
		id, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, errors.Wrapf(err, "%s: invalid camera id", path)
		}
		width, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, errors.Wrapf(err, "%s: invalid width for camera %d", path, id)
		}
		height, err := strconv.Atoi(fields[3])
		if err != nil {
			return nil, errors.Wrapf(err, "%s: invalid height for camera %d", path, id)
		}
		params, err := parseFloats(fields[4:])
		if err != nil {
			return nil, errors.Wrapf(err, "%s: camera %d", path, id)
		}
		cameras[id] = &Camera{ID: id, Model: fields[1], Width: width, Height: height, Params: params}
	}
	return cameras, nil
}

// ReadImagesText reads an images.txt file keyed by image id. Each image takes two lines:
// IMAGE_ID QW QX QY QZ TX TY TZ CAMERA_ID NAME
// POINTS2D[] as (X, Y, POINT3D_ID).
func ReadImagesText(path string) (map[int]*Image, error) {
	lines, err := readTextLines(path)
	if err != nil {
		return nil, err
	}
	images := map[int]*Image{}
	for i := 0; i < len(lines); i++ {
		if lines[i] == "" {
			continue
		}
		fields := strings.Fields(lines[i])
		if len(fields) < 10 {
			return nil, errors.Errorf("%s: image line has %d fields, need 10", path, len(fields))
		}
		id, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, errors.Wrapf(err, "%s: invalid image id", path)
		}
		pose, err := parseFloats(fields[1:8])
		if err != nil {
			return nil, errors.Wrapf(err, "%s: image %d", path, id)
		}
		cameraID, err := strconv.Atoi(fields[8])
		if err != nil {
			return nil, errors.Wrapf(err, "%s: invalid camera id for image %d", path, id)
		}
		im := &Image{
			ID:       id,
			QVec:     [4]float64{pose[0], pose[1], pose[2], pose[3]},
			TVec:     r3.Vector{X: pose[4], Y: pose[5], Z: pose[6]},
			CameraID: cameraID,
			// names may contain spaces
			Name: strings.Join(fields[9:], " "),
		}

		if i+1 < len(lines) {
			i++
			pts := strings.Fields(lines[i])
			if len(pts)%3 != 0 {
				return nil, errors.Errorf("%s: image %d has a truncated points line", path, id)
			}
			for j := 0; j < len(pts); j += 3 {
				xy, err := parseFloats(pts[j : j+2])
				if err != nil {
					return nil, errors.Wrapf(err, "%s: image %d", path, id)
				}
				pid, err := strconv.ParseInt(pts[j+2], 10, 64)
				if err != nil {
					return nil, errors.Wrapf(err, "%s: image %d", path, id)
				}
				im.XYs = append(im.XYs, r2.Point{X: xy[0], Y: xy[1]})
				im.Point3DIDs = append(im.Point3DIDs, pid)
			}
		}
		images[id] = im
	}
	return images, nil
}

// ReadPoints3DText reads a points3D.txt file.
// Each line is: POINT3D_ID X Y Z R G B ERROR TRACK[] as (IMAGE_ID, POINT2D_IDX).
func ReadPoints3DText(path string) ([]Point3D, error) {
	lines, err := readTextLines(path)
	if err != nil {
		return nil, err
	}
	var points []Point3D
	for _, line := range lines {
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 8 || (len(fields)-8)%2 != 0 {
			return nil, errors.Errorf("%s: malformed point line %q", path, line)
		}
		id, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: invalid point id", path)
		}
		xyz, err := parseFloats(fields[1:4])
		if err != nil {
			return nil, errors.Wrapf(err, "%s: point %d", path, id)
		}
		var rgb [3]uint8
		for c := 0; c < 3; c++ {
			v, err := strconv.ParseUint(fields[4+c], 10, 8)
			if err != nil {
				return nil, errors.Wrapf(err, "%s: point %d color", path, id)
			}
			rgb[c] = uint8(v)
		}
		reprojErr, err := strconv.ParseFloat(fields[7], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: point %d error", path, id)
		}
		pt := Point3D{ID: id, XYZ: r3.Vector{X: xyz[0], Y: xyz[1], Z: xyz[2]}, RGB: rgb, Error: reprojErr}
		for j := 8; j < len(fields); j += 2 {
			imageID, err := strconv.Atoi(fields[j])
			if err != nil {
				return nil, errors.Wrapf(err, "%s: point %d track", path, id)
			}
			idx, err := strconv.Atoi(fields[j+1])
			if err != nil {
				return nil, errors.Wrapf(err, "%s: point %d track", path, id)
			}
			pt.Track = append(pt.Track, TrackElement{ImageID: imageID, Point2DIdx: idx})
		}
		points = append(points, pt)
	}
	return points, nil
}

func createText(path string, header string, body func(w *bufio.Writer) error) (err error) {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	w := bufio.NewWriter(f)
	if _, err := w.WriteString(header); err != nil {
		return err
	}
	if err := body(w); err != nil {
		return err
	}
	return w.Flush()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteCamerasText writes cameras in the cameras.txt layout, ordered by id.
func WriteCamerasText(path string, cameras map[int]*Camera) error {
	header := "# Camera list with one line of data per camera:\n" +
		"#   CAMERA_ID, MODEL, WIDTH, HEIGHT, PARAMS[]\n" +
		fmt.Sprintf("# Number of cameras: %d\n", len(cameras))
	return createText(path, header, func(w *bufio.Writer) error {
		for _, id := range sortedCameraIDs(cameras) {
			c := cameras[id]
			parts := []string{strconv.Itoa(c.ID), c.Model, strconv.Itoa(c.Width), strconv.Itoa(c.Height)}
			for _, p := range c.Params {
				parts = append(parts, formatFloat(p))
			}
			if _, err := fmt.Fprintln(w, strings.Join(parts, " ")); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteImagesText writes images in the images.txt layout, ordered by id.
func WriteImagesText(path string, images map[int]*Image) error {
	header := "# Image list with two lines of data per image:\n" +
		"#   IMAGE_ID, QW, QX, QY, QZ, TX, TY, TZ, CAMERA_ID, NAME\n" +
		"#   POINTS2D[] as (X, Y, POINT3D_ID)\n" +
		fmt.Sprintf("# Number of images: %d\n", len(images))
	return createText(path, header, func(w *bufio.Writer) error {
		for _, id := range SortedImageIDs(images) {
			im := images[id]
			parts := []string{strconv.Itoa(im.ID)}
			for _, q := range im.QVec {
				parts = append(parts, formatFloat(q))
			}
			parts = append(parts,
				formatFloat(im.TVec.X), formatFloat(im.TVec.Y), formatFloat(im.TVec.Z),
				strconv.Itoa(im.CameraID), im.Name)
			if _, err := fmt.Fprintln(w, strings.Join(parts, " ")); err != nil {
				return err
			}
			pts := make([]string, 0, 3*len(im.XYs))
			for j, xy := range im.XYs {
				pts = append(pts, formatFloat(xy.X), formatFloat(xy.Y), strconv.FormatInt(im.Point3DIDs[j], 10))
			}
			if _, err := fmt.Fprintln(w, strings.Join(pts, " ")); err != nil {
				return err
			}
		}
		return nil
	})
}
