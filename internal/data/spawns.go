package data

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

type spawnListFile struct {
	Rooms    [][]string `yaml:"rooms"`
	Fallback []string   `yaml:"fallback"`
}

// SpawnTable maps a dungeon room index to the archetypes spawned there.
type SpawnTable struct {
	rooms    [][]string
	fallback []string
}

// Room returns the spawn set for a room index; rooms past the table get the
// fallback set.
func (t *SpawnTable) Room(index uint32) []string {
	if int(index) < len(t.rooms) {
		return t.rooms[index]
	}
	return t.fallback
}

func (t *SpawnTable) Count() int {
	return len(t.rooms)
}

// LoadSpawnTable loads room spawn sets from YAML; empty path uses the
// embedded defaults.
func LoadSpawnTable(path string) (*SpawnTable, error) {
	raw, err := readOrDefault(path, "spawns.yaml")
	if err != nil {
		return nil, fmt.Errorf("read spawns: %w", err)
	}
	var f spawnListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse spawns: %w", err)
	}
	return &SpawnTable{rooms: f.Rooms, fallback: f.Fallback}, nil
}
