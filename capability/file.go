package capability

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

type fileEntry struct {
	Name        string `toml:"name"`
	Executable  string `toml:"executable"`
	Package     string `toml:"package"`
	Risk        string `toml:"risk"`
	Description string `toml:"description"`
	Usage       string `toml:"usage"`
	Defaults    []struct {
		Unless  []string `toml:"unless"`
		Prepend []string `toml:"prepend"`
	} `toml:"defaults"`
}

type fileSpec struct {
	Capability []fileEntry `toml:"capability"`
}

// LoadFile reads capability descriptors from a TOML file.
// A missing executable defaults to the capability name.
func LoadFile(path string) ([]Descriptor, error) {
	var spec fileSpec
	if _, err := toml.DecodeFile(path, &spec); err != nil {
		return nil, fmt.Errorf("decode capabilities %s: %w", path, err)
	}
	return spec.descriptors()
}

// Parse reads capability descriptors from TOML text.
func Parse(data string) ([]Descriptor, error) {
	var spec fileSpec
	if _, err := toml.Decode(data, &spec); err != nil {
		return nil, fmt.Errorf("decode capabilities: %w", err)
	}
	return spec.descriptors()
}

func (s fileSpec) descriptors() ([]Descriptor, error) {
	out := make([]Descriptor, 0, len(s.Capability))
	for i, e := range s.Capability {
		risk, err := ParseRisk(e.Risk)
		if err != nil {
			return nil, fmt.Errorf("capability %d (%s): %w", i, e.Name, err)
		}
		d := Descriptor{
			Name:        e.Name,
			Executable:  e.Executable,
			Package:     e.Package,
			Risk:        risk,
			Description: e.Description,
			Usage:       e.Usage,
		}
		if d.Executable == "" {
			d.Executable = d.Name
		}
		for _, def := range e.Defaults {
			d.Defaults = append(d.Defaults, ArgDefault{Unless: def.Unless, Prepend: def.Prepend})
		}
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("capability %d: %w", i, err)
		}
		out = append(out, d)
	}
	return out, nil
}
