package depsolve

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// DefaultManifestPath is the conventional manifest file name.
const DefaultManifestPath = "depsolve.toml"

// Manifest is the project input document: the named project, the
// interpreter range it supports and its direct dependencies.
//
//	[project]
//	name = "myapp"
//	requires = ">=3.10"
//	dependencies = [
//	    "alpha >=1.0,<2.0",
//	    "beta[tls] >=1.0 ; sys_platform == 'linux'",
//	]
type Manifest struct {
	Project ProjectSection `toml:"project"`
}

// ProjectSection is the [project] table of a manifest.
type ProjectSection struct {
	Name         string   `toml:"name"`
	Requires     string   `toml:"requires,omitempty"`
	Dependencies []string `toml:"dependencies"`
}

// LoadManifest reads and parses a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return m, nil
}

// ParseManifest parses manifest content.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	if m.Project.Name == "" {
		return nil, fmt.Errorf("invalid manifest: project.name is required")
	}
	return &m, nil
}

// Requirements parses the manifest's dependency strings.
func (m *Manifest) Requirements() ([]Requirement, error) {
	reqs := make([]Requirement, 0, len(m.Project.Dependencies))
	for _, raw := range m.Project.Dependencies {
		req, err := ParseRequirement(raw)
		if err != nil {
			return nil, fmt.Errorf("manifest dependency %q: %w", raw, err)
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}
