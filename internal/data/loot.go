package data

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// RarityRow is one threshold in a roll table: a roll below Below wins this
// rarity. Below of zero marks the catch-all row.
type RarityRow struct {
	Below  int    `yaml:"below"`
	Rarity string `yaml:"rarity"`
}

type lootDefaultRule struct {
	LegendaryBelow int               `yaml:"legendary_below"`
	ByType         map[string]string `yaml:"by_type"`
	Fallback       string            `yaml:"fallback"`
}

type lootFile struct {
	Tables  map[string][]RarityRow `yaml:"tables"`
	Sources map[string]string      `yaml:"sources"`
	Default lootDefaultRule        `yaml:"default"`
}

// LootTable resolves a drop source and a 0-99 roll to a rarity.
type LootTable struct {
	tables  map[string][]RarityRow
	sources map[string]string
	def     lootDefaultRule
}

// Roll resolves rarity for a source. Sources routed to a named table walk
// its thresholds; everything else gets the slim legendary chance, then the
// per-type rarity, then the fallback.
func (t *LootTable) Roll(source string, roll int) string {
	if name, ok := t.sources[source]; ok {
		rows := t.tables[name]
		for _, row := range rows {
			if row.Below == 0 || roll < row.Below {
				return row.Rarity
			}
		}
	}
	if roll < t.def.LegendaryBelow {
		return "legendary"
	}
	if r, ok := t.def.ByType[source]; ok {
		return r
	}
	return t.def.Fallback
}

func (t *LootTable) Count() int {
	return len(t.tables)
}

// LoadLootTable loads rarity tables from YAML; empty path uses the embedded
// defaults.
func LoadLootTable(path string) (*LootTable, error) {
	raw, err := readOrDefault(path, "loot.yaml")
	if err != nil {
		return nil, fmt.Errorf("read loot: %w", err)
	}
	var f lootFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse loot: %w", err)
	}
	t := &LootTable{tables: f.Tables, sources: f.Sources, def: f.Default}
	if t.def.Fallback == "" {
		t.def.Fallback = "common"
	}
	return t, nil
}
