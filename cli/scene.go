package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/dynscene/config"
	"go.viam.com/dynscene/rimage"
	"go.viam.com/dynscene/scene"
)

// DescribeAction prints a summary table of a dataset.
func DescribeAction(c *cli.Context) error {
	info, dt, err := loadScene(c)
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s", describeTable(c.Path(sceneFlagPath), dt, info))
	return nil
}

// NormalizeAction prints the train camera normalization as JSON.
func NormalizeAction(c *cli.Context) error {
	info, _, err := loadScene(c)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(info.Normalization, "", "  ")
	if err != nil {
		return errors.Wrap(err, "cannot encode normalization")
	}
	printf(c.App.Writer, "%s", out)
	return nil
}

func describeTable(path string, dt scene.DatasetType, info *scene.SceneInfo) string {
	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("%s (%s)", path, dt))
	t.AppendHeader(table.Row{"Split", "Frames", "Decoded"})
	for _, split := range []struct {
		name string
		cams []scene.CameraInfo
	}{
		{"train", info.TrainCameras},
		{"test", info.TestCameras},
		{"video", info.VideoCameras},
	} {
		decoded := 0
		for _, cam := range split.cams {
			if cam.Image != nil {
				decoded++
			}
		}
		t.AppendRow(table.Row{split.name, len(split.cams), decoded})
	}
	t.AppendSeparator()
	norm := info.Normalization
	t.AppendRow(table.Row{"translate", fmt.Sprintf("(%.4f, %.4f, %.4f)", norm.Translate.X, norm.Translate.Y, norm.Translate.Z), ""})
	t.AppendRow(table.Row{"radius", fmt.Sprintf("%.4f", norm.Radius), ""})
	points := "none"
	if info.PointCloud != nil {
		points = fmt.Sprint(info.PointCloud.Size())
	}
	t.AppendRow(table.Row{"points", points, info.PLYPath})
	return t.Render()
}

func loadScene(c *cli.Context) (*scene.SceneInfo, scene.DatasetType, error) {
	dt, err := datasetType(c)
	if err != nil {
		return nil, "", err
	}
	opts, err := loadOptions(c, dt)
	if err != nil {
		return nil, "", err
	}
	logger := newLogger(c)
	info, err := scene.Load(c.Context, dt, c.Path(sceneFlagPath), opts, logger)
	if err != nil {
		return nil, "", err
	}
	return info, dt, nil
}

func datasetType(c *cli.Context) (scene.DatasetType, error) {
	if name := c.String(sceneFlagType); name != "" {
		dt := scene.DatasetType(name)
		if _, err := scene.LoaderFor(dt); err != nil {
			return "", err
		}
		return dt, nil
	}
	if path := c.Path(sceneFlagParams); path != "" {
		params, err := config.Read(path, nil)
		if err != nil {
			return "", err
		}
		return params.ModelParams.DatasetType()
	}
	return "", errors.Errorf("one of --%s or --%s is required", sceneFlagType, sceneFlagParams)
}

func loadOptions(c *cli.Context, dt scene.DatasetType) (scene.LoadOptions, error) {
	resampler, err := rimage.ParseResampler(c.String(sceneFlagResampler))
	if err != nil {
		return scene.LoadOptions{}, err
	}
	opts := scene.LoadOptions{
		Duration:       c.Int(sceneFlagDuration),
		StartFrame:     c.Int(sceneFlagStart),
		TestOnly:       c.Bool(sceneFlagTestOnly),
		HoldoutCamera:  c.String(sceneFlagHoldout),
		Ratio:          c.Float64(sceneFlagRatio),
		Resampler:      resampler,
		WriteSparsePLY: c.Bool(sceneFlagWritePLY),
	}
	if c.IsSet(sceneFlagTestCams) {
		opts.TestCams = c.IntSlice(sceneFlagTestCams)
	}
	if opts.Duration == 0 && dt == scene.Technicolor {
		opts.Duration = technicolorDefaultDuration
	}
	if opts.Duration < 0 || opts.StartFrame < 0 {
		return scene.LoadOptions{}, errors.Errorf("--%s and --%s must not be negative", sceneFlagDuration, sceneFlagStart)
	}
	if !c.Bool(generalFlagQuiet) {
		opts.Progress = c.App.ErrWriter
	} else {
		opts.Progress = io.Discard
	}
	return opts, nil
}
