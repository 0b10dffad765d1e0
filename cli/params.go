package cli

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/dynscene/config"
)

// ParamsAction prints the validated parameter tables as JSON.
func ParamsAction(c *cli.Context) error {
	params, err := config.Preset(c.String(paramsFlagPreset))
	if err != nil {
		return err
	}
	if path := c.Path(paramsFlagFile); path != "" {
		if params, err = config.Read(path, params); err != nil {
			return err
		}
	}
	if sets := c.StringSlice(paramsFlagSet); len(sets) > 0 {
		overrides, err := config.ParseOverrides(sets)
		if err != nil {
			return err
		}
		if err := params.ApplyOverrides(overrides); err != nil {
			return err
		}
	}
	if err := params.Validate(); err != nil {
		return err
	}
	out, err := json.MarshalIndent(params, "", "  ")
	if err != nil {
		return errors.Wrap(err, "cannot encode parameters")
	}
	printf(c.App.Writer, "%s", out)
	return nil
}
