package resolver

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// LoadAliases returns DefaultAliases merged with the raw: Display pairs in
// the YAML file at path. Entries in the file win. An empty path yields the
// defaults.
//
//	"Hewlett Packard": HP
//	"Trans-cend": Transcend
func LoadAliases(path string) (map[string]string, error) {
	out := make(map[string]string, len(DefaultAliases))
	for k, v := range DefaultAliases {
		out[k] = v
	}
	if path == "" {
		return out, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "resolver: read aliases %s", path)
	}
	var extra map[string]string
	if err := yaml.Unmarshal(b, &extra); err != nil {
		return nil, eris.Wrapf(err, "resolver: parse aliases %s", path)
	}
	for k, v := range extra {
		if k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out, nil
}
