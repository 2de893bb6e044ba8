package model

import (
	_ "embed"
	"sync"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed sectors.yaml
var sectorsYAML []byte

// Sector is a selectable industry for discovery.
type Sector struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
	Icon  string `json:"icon" yaml:"icon"`
}

var (
	sectorsOnce sync.Once
	sectors     []Sector
	sectorsErr  error
)

// ParseSectors decodes a YAML sector list.
func ParseSectors(data []byte) ([]Sector, error) {
	var out []Sector
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, eris.Wrap(err, "model: parse sectors")
	}
	seen := make(map[string]bool, len(out))
	for _, s := range out {
		if s.ID == "" || s.Label == "" {
			return nil, eris.Errorf("model: sector %q missing id or label", s.ID)
		}
		if seen[s.ID] {
			return nil, eris.Errorf("model: duplicate sector %q", s.ID)
		}
		seen[s.ID] = true
	}
	return out, nil
}

// Sectors returns the built-in sector catalog.
func Sectors() []Sector {
	sectorsOnce.Do(func() {
		sectors, sectorsErr = ParseSectors(sectorsYAML)
	})
	if sectorsErr != nil {
		panic(sectorsErr)
	}
	return append([]Sector(nil), sectors...)
}

// LookupSector finds a sector by id.
func LookupSector(id string) (Sector, bool) {
	for _, s := range Sectors() {
		if s.ID == id {
			return s, true
		}
	}
	return Sector{}, false
}
