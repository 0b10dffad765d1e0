// Package cli contains the dynscene command line application.
package cli

import (
	"fmt"
	"io"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap/zapcore"

	"go.viam.com/dynscene/config"
	"go.viam.com/dynscene/logging"
)

const (
	// Flags.
	generalFlagDebug = "debug"
	generalFlagQuiet = "quiet"

	sceneFlagType      = "type"
	sceneFlagPath      = "path"
	sceneFlagDuration  = "duration"
	sceneFlagStart     = "start-frame"
	sceneFlagTestCams  = "test-cams"
	sceneFlagTestOnly  = "testonly"
	sceneFlagHoldout   = "holdout"
	sceneFlagRatio     = "ratio"
	sceneFlagResampler = "resampler"
	sceneFlagParams    = "params"
	sceneFlagWritePLY  = "write-ply"

	cloudFlagIn    = "in"
	cloudFlagOut   = "out"
	cloudFlagVoxel = "voxel"

	paramsFlagPreset = "preset"
	paramsFlagFile   = "file"
	paramsFlagSet    = "set"
)

// technicolorDefaultDuration is the frame count used for Technicolor captures when --duration is unset.
const technicolorDefaultDuration = 50

var sceneFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  sceneFlagType,
		Usage: "dataset layout: Dynerf, Technicolor or Nerfies. Defaults to the loader named by --params",
	},
	&cli.PathFlag{
		Name:     sceneFlagPath,
		Required: true,
		Usage:    "dataset root directory",
	},
	&cli.IntFlag{
		Name:  sceneFlagDuration,
		Usage: "frames per camera",
	},
	&cli.IntFlag{
		Name:  sceneFlagStart,
		Usage: "first frame index",
	},
	&cli.IntSliceFlag{
		Name:  sceneFlagTestCams,
		Usage: "Dynerf camera positions held out for testing",
	},
	&cli.BoolFlag{
		Name:  sceneFlagTestOnly,
		Usage: "skip the point cloud and decode only what evaluation needs",
	},
	&cli.StringFlag{
		Name:  sceneFlagHoldout,
		Usage: "Technicolor camera directory held out for testing",
	},
	&cli.Float64Flag{
		Name:  sceneFlagRatio,
		Usage: "Nerfies image scale",
	},
	&cli.StringFlag{
		Name:  sceneFlagResampler,
		Usage: "resampler used to shrink frames: lanczos, catmullrom, bilinear or nearest",
	},
	&cli.PathFlag{
		Name:      sceneFlagParams,
		Usage:     "parameter file whose loader selects the dataset layout",
		TakesFile: true,
	},
	&cli.BoolFlag{
		Name:  sceneFlagWritePLY,
		Usage: "save the point cloud converted from Dynerf sparse points as points3D.ply in the dataset",
	},
}

var app = &cli.App{
	Name:            "dynscene",
	Usage:           "inspect dynamic scene datasets",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    generalFlagDebug,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
		&cli.BoolFlag{
			Name:    generalFlagQuiet,
			Aliases: []string{"q"},
			Usage:   "hide progress bars",
		},
	},
	Commands: []*cli.Command{
		{
			Name:      "describe",
			Usage:     "summarize the splits, normalization and point cloud of a dataset",
			UsageText: fmt.Sprintf("dynscene describe --%s <%s> [other options]", sceneFlagPath, sceneFlagPath),
			Flags:     sceneFlags,
			Action:    DescribeAction,
		},
		{
			Name:      "normalize",
			Usage:     "print the train camera normalization of a dataset as JSON",
			UsageText: fmt.Sprintf("dynscene normalize --%s <%s> [other options]", sceneFlagPath, sceneFlagPath),
			Flags:     sceneFlags,
			Action:    NormalizeAction,
		},
		{
			Name:  "downsample",
			Usage: "voxel downsample a point cloud",
			UsageText: fmt.Sprintf("dynscene downsample --%s <%s> --%s <%s> --%s <size>",
				cloudFlagIn, cloudFlagIn, cloudFlagOut, cloudFlagOut, cloudFlagVoxel),
			Flags: []cli.Flag{
				&cli.PathFlag{
					Name:      cloudFlagIn,
					Required:  true,
					TakesFile: true,
					Usage:     "input point cloud (.ply, .pcd or .las)",
				},
				&cli.PathFlag{
					Name:      cloudFlagOut,
					Required:  true,
					TakesFile: true,
					Usage:     "output point cloud (.ply, .pcd or .las)",
				},
				&cli.Float64Flag{
					Name:     cloudFlagVoxel,
					Required: true,
					Usage:    "voxel edge length",
				},
			},
			Action: DownsampleAction,
		},
		{
			Name:      "export",
			Usage:     "convert a point cloud between formats",
			UsageText: fmt.Sprintf("dynscene export --%s <%s> --%s <%s>", cloudFlagIn, cloudFlagIn, cloudFlagOut, cloudFlagOut),
			Flags: []cli.Flag{
				&cli.PathFlag{
					Name:      cloudFlagIn,
					Required:  true,
					TakesFile: true,
					Usage:     "input point cloud (.ply, .pcd or .las)",
				},
				&cli.PathFlag{
					Name:      cloudFlagOut,
					Required:  true,
					TakesFile: true,
					Usage:     "output point cloud (.ply, .pcd or .las)",
				},
			},
			Action: ExportAction,
		},
		{
			Name:  "params",
			Usage: "print validated training parameters as JSON",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  paramsFlagPreset,
					Value: config.DefaultPreset,
					Usage: "preset the tables start from",
				},
				&cli.PathFlag{
					Name:      paramsFlagFile,
					TakesFile: true,
					Usage:     "JSON or YAML file decoded over the preset",
				},
				&cli.StringSliceFlag{
					Name:  paramsFlagSet,
					Usage: "override a single value, e.g. OptimizationParams.iterations=1000",
				},
			},
			Action: ParamsAction,
		},
	},
}

// NewApp returns the app with its output writers set.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}

// newLogger logs to the error writer so that JSON printed by the actions stays parseable.
func newLogger(c *cli.Context) logging.Logger {
	level := zapcore.InfoLevel
	if c.Bool(generalFlagDebug) {
		level = zapcore.DebugLevel
	}
	return logging.NewWriterLogger("dynscene", c.App.ErrWriter, level)
}

func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}
