package gems

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ManifestFileName is the manifest each gem directory carries.
const ManifestFileName = "gem.yaml"

// Manifest is the on-disk description of a gem.
type Manifest struct {
	GemName     string `yaml:"gem_name"`
	Version     string `yaml:"version"`
	DisplayName string `yaml:"display_name"`
	Summary     string `yaml:"summary"`
}

// LoadManifest reads and parses a gem manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	if manifest.GemName == "" {
		return nil, fmt.Errorf("manifest %s has no gem_name", path)
	}

	return &manifest, nil
}

// LoadManifestFromDir loads a gem manifest from a gem directory.
func LoadManifestFromDir(dir string) (*Manifest, error) {
	return LoadManifest(filepath.Join(dir, ManifestFileName))
}
