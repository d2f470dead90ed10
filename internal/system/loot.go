package system

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/crawld/server/internal/data"
	"github.com/crawld/server/internal/world"
)

// ItemData is the equipment payload serialized into LootDrop.ItemJSON and
// Item.ItemJSON. ClassReq appears on legendary drops only; the key casing
// is what shipped clients already parse.
type ItemData struct {
	Type     string      `json:"type"`
	Source   string      `json:"source"`
	AtkBonus int32       `json:"atk_bonus"`
	DefBonus int32       `json:"def_bonus"`
	Rarity   string      `json:"rarity"`
	ClassReq world.Class `json:"classReq,omitempty"`
}

// LootGenerator rolls and writes drops for dead enemies.
type LootGenerator struct {
	state *world.State
	table *data.LootTable
	log   *zap.Logger
}

func NewLootGenerator(state *world.State, table *data.LootTable, log *zap.Logger) *LootGenerator {
	return &LootGenerator{state: state, table: table, log: log}
}

// DropForDeadEnemy writes one LootDrop at the corpse. The rarity roll keys
// off the low bits of the wall clock. A legendary binds to the class of a
// random participant so somebody present can always equip it.
func (g *LootGenerator) DropForDeadEnemy(e *world.Enemy) *world.LootDrop {
	roll := int(g.state.NowMicros() % 100)
	rarity := g.table.Roll(e.Type, roll)

	item := ItemData{
		Type:     "drop",
		Source:   e.Type,
		AtkBonus: e.Atk / 2,
		DefBonus: e.MaxHP / 10,
		Rarity:   rarity,
	}
	if rarity == "legendary" {
		item.ClassReq = g.randomParticipantClass(e.DungeonID)
	}
	raw, err := json.Marshal(item)
	if err != nil {
		g.log.Error("marshal loot item", zap.Error(err))
		return nil
	}

	id := g.state.IDs.Next()
	drop := &world.LootDrop{
		ID:        id,
		DungeonID: e.DungeonID,
		RoomIndex: e.RoomIndex,
		X:         e.X,
		Y:         e.Y,
		ItemJSON:  string(raw),
		Rarity:    rarity,
	}
	g.state.Loot.Insert(id, drop)
	return drop
}

func (g *LootGenerator) randomParticipantClass(dungeonID uint64) world.Class {
	ids := g.state.ParticipantsOf(dungeonID)
	if len(ids) == 0 {
		return ""
	}
	pick := ids[g.state.Rand().Intn(len(ids))]
	if p, ok := g.state.Players.Find(pick); ok {
		return p.Class
	}
	return ""
}
