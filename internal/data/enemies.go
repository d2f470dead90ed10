package data

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// EnemyStats is the unscaled stat line for an enemy archetype. SpeedMult
// multiplies the global base move speed.
type EnemyStats struct {
	Type      string  `yaml:"type"`
	HP        int32   `yaml:"hp"`
	Atk       int32   `yaml:"atk"`
	XP        uint64  `yaml:"xp"`
	SpeedMult float64 `yaml:"speed_mult"`
}

type enemyListFile struct {
	Enemies []EnemyStats `yaml:"enemies"`
	Default EnemyStats   `yaml:"default"`
}

// EnemyTable holds archetype stats; unknown types get the default line.
type EnemyTable struct {
	stats map[string]EnemyStats
	def   EnemyStats
}

func (t *EnemyTable) Get(enemyType string) EnemyStats {
	if s, ok := t.stats[enemyType]; ok {
		return s
	}
	return t.def
}

func (t *EnemyTable) Count() int {
	return len(t.stats)
}

// LoadEnemyTable loads archetype stats from YAML; empty path uses the
// embedded defaults.
func LoadEnemyTable(path string) (*EnemyTable, error) {
	raw, err := readOrDefault(path, "enemies.yaml")
	if err != nil {
		return nil, fmt.Errorf("read enemies: %w", err)
	}
	var f enemyListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse enemies: %w", err)
	}
	t := &EnemyTable{stats: make(map[string]EnemyStats, len(f.Enemies)), def: f.Default}
	for _, e := range f.Enemies {
		t.stats[e.Type] = e
	}
	if t.def.SpeedMult == 0 {
		t.def.SpeedMult = 1.0
	}
	return t, nil
}
