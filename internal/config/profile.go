package config

import (
	"fmt"
	"os"

	"github.com/policysage/policysage-api/internal/domain/model"
	"gopkg.in/yaml.v3"
)

type profileFile struct {
	Profiles []yaml.Node `yaml:"profiles"`
}

// LoadProfiles returns the builtin profiles, overridden or extended by the
// profiles declared in path when path is non-empty.
func LoadProfiles(path string) (map[string]model.Profile, error) {
	profiles := model.BuiltinProfiles()
	if path == "" {
		return profiles, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file %s: %w", path, err)
	}

	var file profileFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse profile file %s: %w", path, err)
	}

	for i := range file.Profiles {
		node := &file.Profiles[i]

		var header struct {
			Name string `yaml:"name"`
		}
		if err := node.Decode(&header); err != nil {
			return nil, fmt.Errorf("profile file %s: entry %d: %w", path, i, err)
		}

		// Fields omitted in the file keep the builtin values of the same name.
		p := profiles[header.Name]
		if err := node.Decode(&p); err != nil {
			return nil, fmt.Errorf("profile file %s: entry %d: %w", path, i, err)
		}
		if p.Ordering == "" {
			p.Ordering = model.OrderingNone
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("profile file %s: %w", path, err)
		}
		profiles[p.Name] = p
	}
	return profiles, nil
}

// RetrievalProfile resolves the profile selected by SAGE_PROFILE.
func (c *Config) RetrievalProfile() (model.Profile, error) {
	profiles, err := LoadProfiles(c.ProfileFile)
	if err != nil {
		return model.Profile{}, err
	}
	p, ok := profiles[c.Profile]
	if !ok {
		return model.Profile{}, fmt.Errorf("unknown retrieval profile %q", c.Profile)
	}
	return p, nil
}
