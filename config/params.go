// Package config holds the training parameter tables that travel with a
// dataset: the model, the deformation network and the optimizer. Tables start
// from a named preset and can be overlaid with a JSON or YAML file and with
// individual overrides.
package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.viam.com/utils"

	"go.viam.com/dynscene/scene"
)

// ErrInvalidParams is returned when a parameter table fails validation.
var ErrInvalidParams = errors.New("invalid training parameters")

// ModelParams selects the dataset loader.
type ModelParams struct {
	Loader string `json:"loader" yaml:"loader"`
}

// ModelHiddenParams configures the deformation network.
type ModelHiddenParams struct {
	DeforDepth                 int  `json:"defor_depth" yaml:"defor_depth"`
	NetWidth                   int  `json:"net_width" yaml:"net_width"`
	NoDS                       bool `json:"no_ds" yaml:"no_ds"`
	NoDO                       bool `json:"no_do" yaml:"no_do"`
	NoDC                       bool `json:"no_dc" yaml:"no_dc"`
	UseCoarseTemporalEmbedding bool `json:"use_coarse_temporal_embedding" yaml:"use_coarse_temporal_embedding"`
	C2FTemporalIter            int  `json:"c2f_temporal_iter" yaml:"c2f_temporal_iter"`
	DeformFromIter             int  `json:"deform_from_iter" yaml:"deform_from_iter"`
	TotalNumFrames             int  `json:"total_num_frames" yaml:"total_num_frames"`
}

// OptimizationParams configures the optimizer and the densification schedule.
type OptimizationParams struct {
	Dataloader                   bool    `json:"dataloader" yaml:"dataloader"`
	BatchSize                    int     `json:"batch_size" yaml:"batch_size"`
	Iterations                   int     `json:"iterations" yaml:"iterations"`
	MaxTime                      int     `json:"maxtime" yaml:"maxtime"`
	DensifyFromIter              int     `json:"densify_from_iter" yaml:"densify_from_iter"`
	PruningFromIter              int     `json:"pruning_from_iter" yaml:"pruning_from_iter"`
	DensifyGradThresholdFineInit float64 `json:"densify_grad_threshold_fine_init" yaml:"densify_grad_threshold_fine_init"`
	DensifyGradThresholdAfter    float64 `json:"densify_grad_threshold_after" yaml:"densify_grad_threshold_after"`
	OpacityThresholdFineInit     float64 `json:"opacity_threshold_fine_init" yaml:"opacity_threshold_fine_init"`
	OpacityThresholdFineAfter    float64 `json:"opacity_threshold_fine_after" yaml:"opacity_threshold_fine_after"`
	DensifyUntilIter             int     `json:"densify_until_iter" yaml:"densify_until_iter"`
	PositionLRMaxSteps           int     `json:"position_lr_max_steps" yaml:"position_lr_max_steps"`
	DeformationLRMaxSteps        int     `json:"deformation_lr_max_steps" yaml:"deformation_lr_max_steps"`
	LambdaDSSIM                  float64 `json:"lambda_dssim" yaml:"lambda_dssim"`
	NumMultiviewSSIM             int     `json:"num_multiview_ssim" yaml:"num_multiview_ssim"`
	UseColmap                    bool    `json:"use_colmap" yaml:"use_colmap"`
	RegCoef                      float64 `json:"reg_coef" yaml:"reg_coef"`
}

// Params groups the three tables.
type Params struct {
	ModelParams        ModelParams        `json:"ModelParams" yaml:"ModelParams"`
	ModelHiddenParams  ModelHiddenParams  `json:"ModelHiddenParams" yaml:"ModelHiddenParams"`
	OptimizationParams OptimizationParams `json:"OptimizationParams" yaml:"OptimizationParams"`
}

var loaderDatasetTypes = map[string]scene.DatasetType{
	"dynerf":      scene.Dynerf,
	"technicolor": scene.Technicolor,
	"nerfies":     scene.Nerfies,
}

// DatasetType returns the dataset layout named by Loader.
func (p ModelParams) DatasetType() (scene.DatasetType, error) {
	dt, ok := loaderDatasetTypes[strings.ToLower(p.Loader)]
	if !ok {
		return "", errors.Wrapf(scene.ErrUnknownDatasetType, "loader %q", p.Loader)
	}
	return dt, nil
}

func invalid(path, format string, args ...interface{}) error {
	return utils.NewConfigValidationError(path, errors.Wrapf(ErrInvalidParams, format, args...))
}

// Validate ensures all parts of the table are valid.
func (p *ModelParams) Validate(path string) error {
	if p.Loader == "" {
		return invalid(path, "loader is required")
	}
	if _, ok := loaderDatasetTypes[strings.ToLower(p.Loader)]; !ok {
		return invalid(path, "unknown loader %q, expected one of %v", p.Loader, lo.Keys(loaderDatasetTypes))
	}
	return nil
}

// Validate ensures all parts of the table are valid.
func (p *ModelHiddenParams) Validate(path string) error {
	for name, v := range map[string]int{
		"defor_depth":      p.DeforDepth,
		"net_width":        p.NetWidth,
		"total_num_frames": p.TotalNumFrames,
	} {
		if v <= 0 {
			return invalid(path, "%s must be positive, got %d", name, v)
		}
	}
	for name, v := range map[string]int{
		"c2f_temporal_iter": p.C2FTemporalIter,
		"deform_from_iter":  p.DeformFromIter,
	} {
		if v < 0 {
			return invalid(path, "%s must not be negative, got %d", name, v)
		}
	}
	return nil
}

// Validate ensures all parts of the table are valid.
func (p *OptimizationParams) Validate(path string) error {
	for name, v := range map[string]int{
		"batch_size":               p.BatchSize,
		"iterations":               p.Iterations,
		"maxtime":                  p.MaxTime,
		"num_multiview_ssim":       p.NumMultiviewSSIM,
		"position_lr_max_steps":    p.PositionLRMaxSteps,
		"deformation_lr_max_steps": p.DeformationLRMaxSteps,
	} {
		if v <= 0 {
			return invalid(path, "%s must be positive, got %d", name, v)
		}
	}
	for name, v := range map[string]int{
		"densify_from_iter":  p.DensifyFromIter,
		"pruning_from_iter":  p.PruningFromIter,
		"densify_until_iter": p.DensifyUntilIter,
	} {
		if v < 0 {
			return invalid(path, "%s must not be negative, got %d", name, v)
		}
	}
	for name, v := range map[string]float64{
		"densify_grad_threshold_fine_init": p.DensifyGradThresholdFineInit,
		"densify_grad_threshold_after":     p.DensifyGradThresholdAfter,
		"opacity_threshold_fine_init":      p.OpacityThresholdFineInit,
		"opacity_threshold_fine_after":     p.OpacityThresholdFineAfter,
		"reg_coef":                         p.RegCoef,
	} {
		if v < 0 {
			return invalid(path, "%s must not be negative, got %v", name, v)
		}
	}
	if p.LambdaDSSIM < 0 || p.LambdaDSSIM > 1 {
		return invalid(path, "lambda_dssim must be in [0,1], got %v", p.LambdaDSSIM)
	}
	if p.DensifyFromIter > p.DensifyUntilIter {
		return invalid(path, "densify_from_iter %d is after densify_until_iter %d", p.DensifyFromIter, p.DensifyUntilIter)
	}
	if p.DensifyUntilIter > p.Iterations {
		return invalid(path, "densify_until_iter %d exceeds iterations %d", p.DensifyUntilIter, p.Iterations)
	}
	return nil
}

// Validate ensures all tables are valid.
func (p *Params) Validate() error {
	if err := p.ModelParams.Validate("ModelParams"); err != nil {
		return err
	}
	if err := p.ModelHiddenParams.Validate("ModelHiddenParams"); err != nil {
		return err
	}
	return p.OptimizationParams.Validate("OptimizationParams")
}
