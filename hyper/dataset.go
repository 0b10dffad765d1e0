// Package hyper loads Nerfies/HyperNeRF captures: a scene.json describing the
// world normalization, a dataset.json listing the frame ids and their split, a
// metadata.json giving every frame a time and camera, and one camera/<id>.json
// per frame.
package hyper

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/dynscene/logging"
	"go.viam.com/dynscene/spatialmath"
)

// DefaultRatio is the image scale the loader uses when none is given.
const DefaultRatio = 0.5

// Split selects a subset of the frames of a Dataset.
type Split string

// The splits a dataset can be formatted into.
const (
	SplitTrain Split = "train"
	SplitTest  Split = "test"
)

// Options controls how a capture is loaded.
type Options struct {
	// Ratio is the image scale, e.g. 0.5 reads rgb/2x. Zero means DefaultRatio.
	Ratio float64
	// StartFrame and Duration keep only frames whose raw time id lies in
	// [StartFrame, StartFrame+Duration). A zero Duration keeps every frame.
	StartFrame int
	Duration   int
}

// SceneMeta is the content of scene.json.
type SceneMeta struct {
	Scale  float64    `json:"scale"`
	Center [3]float64 `json:"center"`
	Near   float64    `json:"near"`
	Far    float64    `json:"far"`
}

type datasetFile struct {
	Count    int      `json:"count"`
	IDs      []string `json:"ids"`
	TrainIDs []string `json:"train_ids"`
	ValIDs   []string `json:"val_ids"`
}

type frameMeta struct {
	WarpID       *int `json:"warp_id"`
	TimeID       *int `json:"time_id"`
	AppearanceID int  `json:"appearance_id"`
	CameraID     int  `json:"camera_id"`
}

func (m frameMeta) time() (int, bool) {
	if m.WarpID != nil {
		return *m.WarpID, true
	}
	if m.TimeID != nil {
		return *m.TimeID, true
	}
	return 0, false
}

// Dataset is a loaded capture. All per-frame slices are indexed alike, in the
// order of dataset.json's ids.
type Dataset struct {
	Root       string
	Ratio      float64
	Scene      SceneMeta
	StartFrame int
	Duration   int

	IDs        []string
	CameraIDs  []int
	RawTimes   []int
	Times      []float64
	Cameras    []*Camera
	ImagePaths []string

	train []int
	test  []int
}

// Frame is one formatted observation. R is camera-to-world and T is the
// world-to-camera translation.
type Frame struct {
	UID       int
	ID        string
	R         *mat.Dense
	T         r3.Vector
	FovX      float64
	FovY      float64
	ImagePath string
	ImageName string
	Width     int
	Height    int
	Time      float64
}

// Load reads the capture rooted at root.
func Load(ctx context.Context, root string, opts Options, logger logging.Logger) (*Dataset, error) {
	ratio := opts.Ratio
	if ratio == 0 {
		ratio = DefaultRatio
	}
	if ratio < 0 || ratio > 1 {
		return nil, errors.Errorf("image ratio must be in (0,1], got %v", ratio)
	}

	var sceneMeta SceneMeta
	if err := readJSON(filepath.Join(root, "scene.json"), &sceneMeta); err != nil {
		return nil, err
	}
	var dataset datasetFile
	if err := readJSON(filepath.Join(root, "dataset.json"), &dataset); err != nil {
		return nil, err
	}
	var metadata map[string]frameMeta
	if err := readJSON(filepath.Join(root, "metadata.json"), &metadata); err != nil {
		return nil, err
	}
	if len(dataset.IDs) == 0 {
		return nil, errors.Errorf("%s lists no ids", filepath.Join(root, "dataset.json"))
	}

	ds := &Dataset{
		Root:       root,
		Ratio:      ratio,
		Scene:      sceneMeta,
		StartFrame: opts.StartFrame,
		Duration:   opts.Duration,
		IDs:        dataset.IDs,
	}
	center := r3.Vector{X: sceneMeta.Center[0], Y: sceneMeta.Center[1], Z: sceneMeta.Center[2]}
	imageDir := filepath.Join(root, "rgb", fmt.Sprintf("%dx", int(math.Round(1/ratio))))

	for _, id := range dataset.IDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		meta, ok := metadata[id]
		if !ok {
			return nil, errors.Errorf("metadata.json has no entry for %q", id)
		}
		t, ok := meta.time()
		if !ok {
			return nil, errors.Errorf("metadata for %q has neither warp_id nor time_id", id)
		}
		camera, err := ReadCamera(filepath.Join(root, "camera", id+".json"))
		if err != nil {
			return nil, err
		}
		camera = camera.Scale(ratio)
		position := camera.Center().Sub(center).Mul(sceneMeta.Scale)
		camera.Position = [3]float64{position.X, position.Y, position.Z}

		ds.CameraIDs = append(ds.CameraIDs, meta.CameraID)
		ds.RawTimes = append(ds.RawTimes, t)
		ds.Cameras = append(ds.Cameras, camera)
		ds.ImagePaths = append(ds.ImagePaths, filepath.Join(imageDir, id+".png"))
	}

	rawTimes := lo.Map(ds.RawTimes, func(t, _ int) float64 { return float64(t) })
	maxTime := floats.Max(rawTimes)
	ds.Times = make([]float64, len(rawTimes))
	if maxTime > 0 {
		for i, t := range rawTimes {
			ds.Times[i] = t / maxTime
		}
	}

	ds.train, ds.test = splitIndices(dataset)
	if opts.Duration > 0 {
		inWindow := func(i, _ int) bool {
			t := ds.RawTimes[i]
			return t >= opts.StartFrame && t < opts.StartFrame+opts.Duration
		}
		ds.train = lo.Filter(ds.train, inWindow)
		ds.test = lo.Filter(ds.test, inWindow)
	}

	logger.Debugw("loaded hyper capture",
		"root", root, "frames", len(ds.IDs), "train", len(ds.train), "test", len(ds.test), "ratio", ratio)
	return ds, nil
}

// splitIndices partitions the ids. Without val_ids every fourth frame trains and
// the frame two after each training frame tests, except after the last one.
func splitIndices(dataset datasetFile) (train, test []int) {
	if len(dataset.ValIDs) == 0 {
		for i := 0; i < len(dataset.IDs); i += 4 {
			train = append(train, i)
		}
		if len(train) > 0 {
			test = lo.Map(train[:len(train)-1], func(i, _ int) int { return i + 2 })
		}
		return train, test
	}
	for i, id := range dataset.IDs {
		if lo.Contains(dataset.ValIDs, id) {
			test = append(test, i)
		}
		if lo.Contains(dataset.TrainIDs, id) {
			train = append(train, i)
		}
	}
	return train, test
}

// Indices returns the dataset positions belonging to split.
func (ds *Dataset) Indices(split Split) ([]int, error) {
	switch split {
	case SplitTrain:
		return ds.train, nil
	case SplitTest:
		return ds.test, nil
	default:
		return nil, errors.Errorf("unknown split %q", split)
	}
}

// Frames formats the frames of split in dataset order. UIDs count from zero
// within the split.
func (ds *Dataset) Frames(split Split) ([]Frame, error) {
	indices, err := ds.Indices(split)
	if err != nil {
		return nil, err
	}
	frames := make([]Frame, 0, len(indices))
	for uid, i := range indices {
		camera := ds.Cameras[i]
		r := spatialmath.Transpose(camera.OrientationMatrix())
		intrinsics := camera.Intrinsics()
		fovX, fovY := intrinsics.FieldOfView()
		frames = append(frames, Frame{
			UID:       uid,
			ID:        ds.IDs[i],
			R:         r,
			T:         spatialmath.RowVecMulMat(camera.Center(), r).Mul(-1),
			FovX:      fovX,
			FovY:      fovY,
			ImagePath: ds.ImagePaths[i],
			ImageName: filepath.Base(ds.ImagePaths[i]),
			Width:     intrinsics.Width,
			Height:    intrinsics.Height,
			Time:      ds.Times[i],
		})
	}
	return frames, nil
}

func readJSON(path string, v interface{}) error {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer utils.UncheckedErrorFunc(f.Close)
	if err := json.NewDecoder(f).Decode(v); err != nil {
		return errors.Wrapf(err, "decoding %q", path)
	}
	return nil
}
