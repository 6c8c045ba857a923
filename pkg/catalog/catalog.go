// Package catalog loads the closed household device catalog the extractor
// matches statements against.
package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"github.com/levenlabs/go-lflag"
	"gopkg.in/yaml.v3"

	"github.com/homeflux/homeflux/pkg/log"
	"github.com/homeflux/homeflux/pkg/types"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

type catalogFile struct {
	Devices []types.Device `yaml:"devices"`
}

// Parse decodes a catalog from YAML and validates it.
func Parse(data []byte) (types.DeviceCatalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: failed to parse device catalog: %v", types.ErrInvalidInput, err)
	}
	cat := make(types.DeviceCatalog, len(file.Devices))
	for _, d := range file.Devices {
		if _, ok := cat[d.ID]; ok {
			return nil, fmt.Errorf("%w: duplicate device id %q", types.ErrInvalidInput, d.ID)
		}
		cat[d.ID] = d
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return cat, nil
}

// Load reads and parses a catalog file from disk.
func Load(path string) (types.DeviceCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read device catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Default returns the embedded default catalog.
func Default() types.DeviceCatalog {
	cat, err := Parse(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Errorf("embedded device catalog is invalid: %w", err))
	}
	return cat
}

// Configured returns the device catalog, registering a flag to override the
// embedded default with a YAML file. The returned map is filled in before
// the server starts; it is mutated in place inside lflag.Do so callers can
// hold a reference from startup.
func Configured() types.DeviceCatalog {
	cat := Default()

	path := lflag.String("device-catalog", "", "Path to a YAML device catalog overriding the built-in one")

	lflag.Do(func() {
		if *path == "" {
			return
		}
		loaded, err := Load(*path)
		if err != nil {
			panic(fmt.Sprintf("device catalog load failed: %v", err))
		}
		for id := range cat {
			delete(cat, id)
		}
		for id, d := range loaded {
			cat[id] = d
		}
		ctx := context.Background()
		log.Ctx(ctx).InfoContext(ctx, "loaded device catalog", "path", *path, "devices", len(cat))
	})

	return cat
}
