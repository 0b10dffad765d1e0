package colmap

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// COLMAP binary files are little endian, with counts stored as uint64 and ids as int32.
var byteOrder = binary.LittleEndian

// Smallest encoded size in bytes of each record kind, used to bound counts read from a file.
const (
	minCameraRecord  = 4 + 4 + 8 + 8
	minImageRecord   = 4 + 7*8 + 4 + 1 + 8
	minImagePoint    = 2*8 + 8
	minPoint3DRecord = 8 + 3*8 + 3 + 8 + 8
	minTrackElement  = 4 + 4
)

type binReader struct {
	r    *bufio.Reader
	buf  [8]byte
	size int64
	off  int64
}

func newBinReader(r io.Reader, size int64) *binReader {
	return &binReader{r: bufio.NewReader(r), size: size}
}

func (br *binReader) read(n int) ([]byte, error) {
	if _, err := io.ReadFull(br.r, br.buf[:n]); err != nil {
		return nil, err
	}
	br.off += int64(n)
	return br.buf[:n], nil
}

// count reads a record count and rejects one the rest of the file cannot hold.
func (br *binReader) count(recordSize uint64) (uint64, error) {
	n, err := br.uint64()
	if err != nil {
		return 0, err
	}
	remaining := uint64(0)
	if br.size > br.off {
		remaining = uint64(br.size - br.off)
	}
	if n > remaining/recordSize {
		return 0, errors.Errorf("count %d does not fit in the %d bytes left", n, remaining)
	}
	return n, nil
}

func (br *binReader) uint64() (uint64, error) {
	b, err := br.read(8)
	if err != nil {
		return 0, err
	}
	return byteOrder.Uint64(b), nil
}

func (br *binReader) int64() (int64, error) {
	v, err := br.uint64()
	return int64(v), err
}

func (br *binReader) int32() (int32, error) {
	b, err := br.read(4)
	if err != nil {
		return 0, err
	}
	return int32(byteOrder.Uint32(b)), nil
}

func (br *binReader) uint8() (uint8, error) {
	b, err := br.read(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (br *binReader) float64() (float64, error) {
	v, err := br.uint64()
	return math.Float64frombits(v), err
}

func (br *binReader) float64s(n int) ([]float64, error) {
	out := make([]float64, n)
	for i := range out {
		v, err := br.float64()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// cstring reads a NUL terminated string.
func (br *binReader) cstring() (string, error) {
	s, err := br.r.ReadString(0)
	if err != nil {
		return "", err
	}
	br.off += int64(len(s))
	return s[:len(s)-1], nil
}

func openBinary(path string, decode func(*binReader) error) error {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer utils.UncheckedErrorFunc(f.Close)
	st, err := f.Stat()
	if err != nil {
		return err
	}
	if err := decode(newBinReader(f, st.Size())); err != nil {
		return errors.Wrapf(err, "malformed COLMAP binary file %q", path)
	}
	return nil
}

// ReadCamerasBinary reads a cameras.bin file keyed by camera id.
func ReadCamerasBinary(path string) (map[int]*Camera, error) {
	cameras := map[int]*Camera{}
	err := openBinary(path, func(br *binReader) error {
		num, err := br.count(minCameraRecord)
		if err != nil {
			return err
		}
		for i := uint64(0); i < num; i++ {
			id, err := br.int32()
			if err != nil {
				return err
			}
			modelID, err := br.int32()
			if err != nil {
				return err
			}
			model, ok := cameraModelByID(int(modelID))
			if !ok {
				return errors.Errorf("unknown camera model id %d for camera %d", modelID, id)
			}
			width, err := br.uint64()
			if err != nil {
				return err
			}
			height, err := br.uint64()
			if err != nil {
				return err
			}
			params, err := br.float64s(model.NumParams)
			if err != nil {
				return err
			}
			cameras[int(id)] = &Camera{
				ID:     int(id),
				Model:  model.Name,
				Width:  int(width),
				Height: int(height),
				Params: params,
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cameras, nil
}

// ReadImagesBinary reads an images.bin file keyed by image id.
func ReadImagesBinary(path string) (map[int]*Image, error) {
	images := map[int]*Image{}
	err := openBinary(path, func(br *binReader) error {
		num, err := br.count(minImageRecord)
		if err != nil {
			return err
		}
		for i := uint64(0); i < num; i++ {
			id, err := br.int32()
			if err != nil {
				return err
			}
			pose, err := br.float64s(7)
			if err != nil {
				return err
			}
			cameraID, err := br.int32()
			if err != nil {
				return err
			}
			name, err := br.cstring()
			if err != nil {
				return err
			}
			numPoints, err := br.count(minImagePoint)
			if err != nil {
				return err
			}
			im := &Image{
				ID:         int(id),
				QVec:       [4]float64{pose[0], pose[1], pose[2], pose[3]},
				TVec:       r3.Vector{X: pose[4], Y: pose[5], Z: pose[6]},
				CameraID:   int(cameraID),
				Name:       name,
				XYs:        make([]r2.Point, 0, numPoints),
				Point3DIDs: make([]int64, 0, numPoints),
			}
			for j := uint64(0); j < numPoints; j++ {
				xy, err := br.float64s(2)
				if err != nil {
					return err
				}
				pid, err := br.int64()
				if err != nil {
					return err
				}
				im.XYs = append(im.XYs, r2.Point{X: xy[0], Y: xy[1]})
				im.Point3DIDs = append(im.Point3DIDs, pid)
			}
			images[im.ID] = im
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return images, nil
}

// ReadPoints3DBinary reads a points3D.bin file.
func ReadPoints3DBinary(path string) ([]Point3D, error) {
	var points []Point3D
	err := openBinary(path, func(br *binReader) error {
		num, err := br.count(minPoint3DRecord)
		if err != nil {
			return err
		}
		points = make([]Point3D, 0, num)
		for i := uint64(0); i < num; i++ {
			id, err := br.uint64()
			if err != nil {
				return err
			}
			xyz, err := br.float64s(3)
			if err != nil {
				return err
			}
			var rgb [3]uint8
			for c := range rgb {
				if rgb[c], err = br.uint8(); err != nil {
					return err
				}
			}
			reprojErr, err := br.float64()
			if err != nil {
				return err
			}
			trackLen, err := br.count(minTrackElement)
			if err != nil {
				return err
			}
			pt := Point3D{
				ID:    int64(id),
				XYZ:   r3.Vector{X: xyz[0], Y: xyz[1], Z: xyz[2]},
				RGB:   rgb,
				Error: reprojErr,
				Track: make([]TrackElement, 0, trackLen),
			}
			for j := uint64(0); j < trackLen; j++ {
				imageID, err := br.int32()
				if err != nil {
					return err
				}
				idx, err := br.int32()
				if err != nil {
					return err
				}
				pt.Track = append(pt.Track, TrackElement{ImageID: int(imageID), Point2DIdx: int(idx)})
			}
			points = append(points, pt)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return points, nil
}

type binWriter struct {
	w   *bufio.Writer
	err error
}

func (bw *binWriter) put(v interface{}) {
	if bw.err != nil {
		return
	}
	bw.err = binary.Write(bw.w, byteOrder, v)
}

func (bw *binWriter) cstring(s string) {
	if bw.err != nil {
		return
	}
	if _, err := bw.w.WriteString(s); err != nil {
		bw.err = err
		return
	}
	bw.err = bw.w.WriteByte(0)
}

func createBinary(path string, encode func(*binWriter)) (err error) {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	bw := &binWriter{w: bufio.NewWriter(f)}
	encode(bw)
	if bw.err != nil {
		return bw.err
	}
	return bw.w.Flush()
}

// WriteCamerasBinary writes cameras in the cameras.bin layout, ordered by id.
func WriteCamerasBinary(path string, cameras map[int]*Camera) error {
	for _, c := range cameras {
		model, ok := cameraModelByName(c.Model)
		if !ok {
			return errors.Errorf("unknown camera model %q for camera %d", c.Model, c.ID)
		}
		if len(c.Params) != model.NumParams {
			return errors.Errorf("camera %d: model %s needs %d params, got %d", c.ID, c.Model, model.NumParams, len(c.Params))
		}
	}
	return createBinary(path, func(bw *binWriter) {
		bw.put(uint64(len(cameras)))
		for _, id := range sortedCameraIDs(cameras) {
			c := cameras[id]
			model, _ := cameraModelByName(c.Model)
			bw.put(int32(c.ID))
			bw.put(int32(model.ID))
			bw.put(uint64(c.Width))
			bw.put(uint64(c.Height))
			bw.put(c.Params)
		}
	})
}

// WriteImagesBinary writes images in the images.bin layout, ordered by id.
func WriteImagesBinary(path string, images map[int]*Image) error {
	return createBinary(path, func(bw *binWriter) {
		bw.put(uint64(len(images)))
		for _, id := range SortedImageIDs(images) {
			im := images[id]
			bw.put(int32(im.ID))
			bw.put(im.QVec)
			bw.put([3]float64{im.TVec.X, im.TVec.Y, im.TVec.Z})
			bw.put(int32(im.CameraID))
			bw.cstring(im.Name)
			bw.put(uint64(len(im.XYs)))
			for j, xy := range im.XYs {
				bw.put([2]float64{xy.X, xy.Y})
				bw.put(im.Point3DIDs[j])
			}
		}
	})
}

// WritePoints3DBinary writes points in the points3D.bin layout.
func WritePoints3DBinary(path string, points []Point3D) error {
	return createBinary(path, func(bw *binWriter) {
		bw.put(uint64(len(points)))
		for _, pt := range points {
			bw.put(uint64(pt.ID))
			bw.put([3]float64{pt.XYZ.X, pt.XYZ.Y, pt.XYZ.Z})
			bw.put(pt.RGB)
			bw.put(pt.Error)
			bw.put(uint64(len(pt.Track)))
			for _, el := range pt.Track {
				bw.put(int32(el.ImageID))
				bw.put(int32(el.Point2DIdx))
			}
		}
	})
}
