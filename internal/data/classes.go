package data

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ClassStats holds the base stat line a class starts with.
type ClassStats struct {
	Class string `yaml:"class"`
	MaxHP int32  `yaml:"max_hp"`
	Atk   int32  `yaml:"atk"`
	Def   int32  `yaml:"def"`
	Speed int32  `yaml:"speed"`
}

type classListFile struct {
	Classes []ClassStats `yaml:"classes"`
}

// ClassTable holds base stats indexed by class name.
type ClassTable struct {
	stats map[string]ClassStats
}

func (t *ClassTable) Get(class string) (ClassStats, bool) {
	s, ok := t.stats[class]
	return s, ok
}

func (t *ClassTable) Count() int {
	return len(t.stats)
}

// LoadClassTable loads class base stats from YAML; empty path uses the
// embedded defaults.
func LoadClassTable(path string) (*ClassTable, error) {
	raw, err := readOrDefault(path, "classes.yaml")
	if err != nil {
		return nil, fmt.Errorf("read classes: %w", err)
	}
	var f classListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse classes: %w", err)
	}
	t := &ClassTable{stats: make(map[string]ClassStats, len(f.Classes))}
	for _, c := range f.Classes {
		t.stats[c.Class] = c
	}
	return t, nil
}
