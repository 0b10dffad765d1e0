package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// DefaultPreset is the preset used when none is named.
const DefaultPreset = "vru"

var presets = map[string]Params{
	"vru": {
		ModelParams: ModelParams{Loader: "dynerf"},
		ModelHiddenParams: ModelHiddenParams{
			DeforDepth:                 1,
			NetWidth:                   128,
			UseCoarseTemporalEmbedding: true,
			C2FTemporalIter:            10000,
			DeformFromIter:             5000,
			TotalNumFrames:             250,
		},
		OptimizationParams: OptimizationParams{
			Dataloader:                   true,
			BatchSize:                    1,
			Iterations:                   80000,
			MaxTime:                      250,
			DensifyFromIter:              5000,
			PruningFromIter:              5000,
			DensifyGradThresholdFineInit: 0.0003,
			DensifyGradThresholdAfter:    0.0003,
			OpacityThresholdFineInit:     0.005,
			OpacityThresholdFineAfter:    0.005,
			DensifyUntilIter:             80000,
			PositionLRMaxSteps:           80000,
			DeformationLRMaxSteps:        80000,
			LambdaDSSIM:                  1,
			NumMultiviewSSIM:             5,
			UseColmap:                    true,
			RegCoef:                      1.0,
		},
	},
}

// Presets returns the known preset names in sorted order.
func Presets() []string {
	names := lo.Keys(presets)
	sort.Strings(names)
	return names
}

// Preset returns a copy of the named parameter table.
func Preset(name string) (*Params, error) {
	p, ok := presets[name]
	if !ok {
		return nil, errors.Errorf("unknown preset %q, expected one of %v", name, Presets())
	}
	return &p, nil
}

// Read decodes a JSON or YAML parameter file over base and validates the
// result. Keys missing from the file keep their value from base; a nil base
// starts from DefaultPreset.
func Read(path string, base *Params) (*Params, error) {
	if base == nil {
		var err error
		if base, err = Preset(DefaultPreset); err != nil {
			return nil, err
		}
	}
	out := *base

	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read parameter file")
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&out); err != nil {
			return nil, errors.Wrapf(err, "cannot parse %s", path)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&out); err != nil {
			return nil, errors.Wrapf(err, "cannot parse %s", path)
		}
	default:
		return nil, errors.Errorf("unsupported parameter file extension %q", ext)
	}

	if err := out.Validate(); err != nil {
		return nil, err
	}
	return &out, nil
}

// ApplyOverrides merges overrides into p. Keys are either nested maps keyed by
// table name or dotted paths like "OptimizationParams.iterations". String
// values are converted to the field's type. The table is left untouched when
// any override fails to decode.
func (p *Params) ApplyOverrides(overrides map[string]interface{}) error {
	nested, err := expandDotted(overrides)
	if err != nil {
		return err
	}
	out := *p
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return errors.Wrap(err, "error creating decoder")
	}
	if err := decoder.Decode(nested); err != nil {
		return errors.Wrap(err, "cannot apply overrides")
	}
	*p = out
	return nil
}

func expandDotted(overrides map[string]interface{}) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	for key, value := range overrides {
		parts := strings.Split(key, ".")
		cur := out
		for i, part := range parts {
			if part == "" {
				return nil, errors.Errorf("malformed override key %q", key)
			}
			if i == len(parts)-1 {
				if _, exists := cur[part]; exists {
					return nil, errors.Errorf("override key %q given more than once", key)
				}
				cur[part] = value
				break
			}
			next, ok := cur[part]
			if !ok {
				child := map[string]interface{}{}
				cur[part] = child
				cur = child
				continue
			}
			child, ok := next.(map[string]interface{})
			if !ok {
				return nil, errors.Errorf("override key %q conflicts with %q", key, part)
			}
			cur = child
		}
	}
	return out, nil
}

// ParseOverrides turns key=value pairs into an override map.
func ParseOverrides(pairs []string) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, errors.Errorf("override %q is not of the form key=value", pair)
		}
		out[key] = value
	}
	return out, nil
}
