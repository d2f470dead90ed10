package data

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

type openWorldFile struct {
	Town              []int               `yaml:"town"`
	Rings             []uint32            `yaml:"rings"`
	MaxLevel          uint32              `yaml:"max_level"`
	Tiers             map[uint32][]string `yaml:"tiers"`
	Hotspots          [][]int             `yaml:"hotspots"`
	EnemiesPerRoom    int                 `yaml:"enemies_per_room"`
	EnemiesPerHotspot int                 `yaml:"enemies_per_hotspot"`
	RespawnNormalSec  int                 `yaml:"respawn_normal_sec"`
	RespawnHotspotSec int                 `yaml:"respawn_hotspot_sec"`
	ShardCap          int                 `yaml:"shard_cap"`
}

// OpenWorldTable is the grid tuning: ring-distance enemy levels, archetype
// tiers, hotspot set, spawn counts, respawn delays and the shard cap.
type OpenWorldTable struct {
	TownX, TownY      int
	rings             []uint32
	maxLevel          uint32
	tiers             map[uint32][]string
	hotspots          map[[2]int]bool
	EnemiesPerRoom    int
	EnemiesPerHotspot int
	RespawnNormal     time.Duration
	RespawnHotspot    time.Duration
	ShardCap          int
}

// LevelFor maps a room to its enemy level by Chebyshev ring distance from
// town.
func (t *OpenWorldTable) LevelFor(rx, ry int) uint32 {
	dx := rx - t.TownX
	if dx < 0 {
		dx = -dx
	}
	dy := ry - t.TownY
	if dy < 0 {
		dy = -dy
	}
	ring := dx
	if dy > ring {
		ring = dy
	}
	if ring < len(t.rings) {
		return t.rings[ring]
	}
	return t.maxLevel
}

// TypesFor returns the archetypes eligible at an enemy level.
func (t *OpenWorldTable) TypesFor(level uint32) []string {
	if types, ok := t.tiers[level]; ok && len(types) > 0 {
		return types
	}
	return []string{"slime"}
}

func (t *OpenWorldTable) IsHotspot(rx, ry int) bool {
	return t.hotspots[[2]int{rx, ry}]
}

func (t *OpenWorldTable) IsTown(rx, ry int) bool {
	return rx == t.TownX && ry == t.TownY
}

func (t *OpenWorldTable) SpawnCount(rx, ry int) int {
	if t.IsHotspot(rx, ry) {
		return t.EnemiesPerHotspot
	}
	return t.EnemiesPerRoom
}

func (t *OpenWorldTable) RespawnDelay(rx, ry int) time.Duration {
	if t.IsHotspot(rx, ry) {
		return t.RespawnHotspot
	}
	return t.RespawnNormal
}

// LoadOpenWorldTable loads grid tuning from YAML; empty path uses the
// embedded defaults.
func LoadOpenWorldTable(path string) (*OpenWorldTable, error) {
	raw, err := readOrDefault(path, "openworld.yaml")
	if err != nil {
		return nil, fmt.Errorf("read openworld: %w", err)
	}
	var f openWorldFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse openworld: %w", err)
	}
	t := &OpenWorldTable{
		rings:             f.Rings,
		maxLevel:          f.MaxLevel,
		tiers:             f.Tiers,
		hotspots:          make(map[[2]int]bool, len(f.Hotspots)),
		EnemiesPerRoom:    f.EnemiesPerRoom,
		EnemiesPerHotspot: f.EnemiesPerHotspot,
		RespawnNormal:     time.Duration(f.RespawnNormalSec) * time.Second,
		RespawnHotspot:    time.Duration(f.RespawnHotspotSec) * time.Second,
		ShardCap:          f.ShardCap,
	}
	if len(f.Town) == 2 {
		t.TownX, t.TownY = f.Town[0], f.Town[1]
	}
	for _, h := range f.Hotspots {
		if len(h) == 2 {
			t.hotspots[[2]int{h[0], h[1]}] = true
		}
	}
	return t, nil
}
