package scene

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/dynscene/logging"
)

// DatasetType names a dataset layout.
type DatasetType string

// The dataset layouts that can be loaded.
const (
	Dynerf      DatasetType = "Dynerf"
	Technicolor DatasetType = "Technicolor"
	Nerfies     DatasetType = "Nerfies"
)

// Loader assembles a SceneInfo from the dataset rooted at path.
type Loader func(ctx context.Context, path string, opts LoadOptions, logger logging.Logger) (*SceneInfo, error)

var loaders = map[DatasetType]Loader{
	Dynerf:      LoadDynerf,
	Technicolor: LoadTechnicolor,
	Nerfies:     LoadNerfies,
}

// LoaderFor returns the assembler registered for name.
func LoaderFor(name DatasetType) (Loader, error) {
	loader, ok := loaders[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownDatasetType, "%q (known: %v)", name, DatasetTypes())
	}
	return loader, nil
}

// DatasetTypes returns the registered dataset type names in sorted order.
func DatasetTypes() []DatasetType {
	names := lo.Keys(loaders)
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Load dispatches to the assembler for name.
func Load(ctx context.Context, name DatasetType, path string, opts LoadOptions, logger logging.Logger) (*SceneInfo, error) {
	loader, err := LoaderFor(name)
	if err != nil {
		return nil, err
	}
	return loader(ctx, path, opts, logger)
}
