package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/dmarquez/rlaunch/pkg/trainer"
)

// File is a named collection of launch profiles. A profile holds the full
// trainer parameter set; values it omits keep the launcher defaults.
type File struct {
	Profiles map[string]*trainer.Params
}

// DefaultPath returns the conventional profiles file location
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "profiles.yaml"
	}
	return filepath.Join(home, ".rlaunch", "profiles.yaml")
}

// Load reads a profiles file. Each profile is decoded over DefaultParams so
// omitted hyperparameters stay at the trainer-side default sentinel.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes profiles from YAML bytes
func Parse(data []byte) (*File, error) {
	var raw struct {
		Profiles map[string]yaml.Node `yaml:"profiles"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse profiles: %w", err)
	}
	if len(raw.Profiles) == 0 {
		return nil, fmt.Errorf("profiles file defines no profiles")
	}

	file := &File{Profiles: make(map[string]*trainer.Params, len(raw.Profiles))}
	for name, node := range raw.Profiles {
		params := trainer.DefaultParams()
		if err := node.Decode(params); err != nil {
			return nil, fmt.Errorf("failed to parse profile %q: %w", name, err)
		}
		file.Profiles[name] = params
	}
	return file, nil
}

// Get returns the named profile
func (f *File) Get(name string) (*trainer.Params, error) {
	params, ok := f.Profiles[name]
	if !ok {
		return nil, fmt.Errorf("profile %q not found (available: %v)", name, f.Names())
	}
	return params, nil
}

// Names returns the defined profile names, sorted
func (f *File) Names() []string {
	names := make([]string, 0, len(f.Profiles))
	for name := range f.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
