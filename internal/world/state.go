package world

import (
	"math"
	"math/rand"
	"slices"
	"time"

	"github.com/crawld/server/internal/core/store"
)

// State holds every live table. Accessed only from the game loop goroutine,
// so no locks; the gateway and persistence observe committed writes through
// the journal.
type State struct {
	Players      *store.Table[Identity, Player]
	Dungeons     *store.Table[uint64, Dungeon]
	Participants *store.Table[ParticipantKey, Participant]
	Enemies      *store.Table[uint64, Enemy]
	Positions    *store.Table[Identity, Position]
	Loot         *store.Table[uint64, LootDrop]
	Inventory    *store.Table[uint64, Item]
	Threat       *store.Table[ThreatKey, ThreatEntry]
	Abilities    *store.Table[Identity, AbilityState]
	HealingZones *store.Table[uint64, HealingZone]
	Modes        *store.Table[Identity, GameMode]

	Shards       *store.Table[uint64, Shard]
	WorldEnemies *store.Table[uint64, WorldEnemy]
	WorldPlayers *store.Table[Identity, WorldPlayer]

	DungeonQueue     *store.Table[Identity, QueueEntry]
	RaidQueue        *store.Table[Identity, RaidQueueEntry]
	Raids            *store.Table[uint64, Raid]
	RaidParticipants *store.Table[RaidParticipantKey, RaidParticipant]
	RaidCooldowns    *store.Table[Identity, RaidCooldown]
	DailyClears      *store.Table[DailyClearKey, DailyRaidClear]

	Messages  *store.Table[uint64, Message]
	Schedules *store.Table[string, Schedule]

	Journal *store.Journal
	IDs     store.Seq

	now func() time.Time
	rng *rand.Rand
}

func New() *State {
	j := store.NewJournal()
	return &State{
		Players:      store.NewTable[Identity, Player]("player", j),
		Dungeons:     store.NewTable[uint64, Dungeon]("active_dungeon", j),
		Participants: store.NewTable[ParticipantKey, Participant]("dungeon_participant", j),
		Enemies:      store.NewTable[uint64, Enemy]("dungeon_enemy", j),
		Positions:    store.NewTable[Identity, Position]("player_position", j),
		Loot:         store.NewTable[uint64, LootDrop]("loot_drop", j),
		Inventory:    store.NewTable[uint64, Item]("inventory_item", j),
		Threat:       store.NewTable[ThreatKey, ThreatEntry]("threat_entry", j),
		Abilities:    store.NewTable[Identity, AbilityState]("player_ability_state", j),
		HealingZones: store.NewTable[uint64, HealingZone]("active_healing_zone", j),
		Modes:        store.NewTable[Identity, GameMode]("player_game_mode", j),

		Shards:       store.NewTable[uint64, Shard]("open_world_instance", j),
		WorldEnemies: store.NewTable[uint64, WorldEnemy]("open_world_enemy", j),
		WorldPlayers: store.NewTable[Identity, WorldPlayer]("open_world_player", j),

		DungeonQueue:     store.NewTable[Identity, QueueEntry]("dungeon_queue", j),
		RaidQueue:        store.NewTable[Identity, RaidQueueEntry]("raid_queue", j),
		Raids:            store.NewTable[uint64, Raid]("raid_instance", j),
		RaidParticipants: store.NewTable[RaidParticipantKey, RaidParticipant]("raid_participant", j),
		RaidCooldowns:    store.NewTable[Identity, RaidCooldown]("raid_cooldown", j),
		DailyClears:      store.NewTable[DailyClearKey, DailyRaidClear]("daily_raid_clear", j),

		Messages:  store.NewTable[uint64, Message]("player_message", j),
		Schedules: store.NewTable[string, Schedule]("schedule", j),

		Journal: j,
		now:     time.Now,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *State) Now() time.Time               { return s.now() }
func (s *State) NowMicros() int64             { return s.now().UnixMicro() }
func (s *State) SetClock(fn func() time.Time) { s.now = fn }
func (s *State) Rand() *rand.Rand             { return s.rng }
func (s *State) SetRand(r *rand.Rand)         { s.rng = r }

// ─── Dungeon queries ───

func (s *State) IsParticipant(dungeonID uint64, id Identity) bool {
	return s.Participants.Has(ParticipantKey{Dungeon: dungeonID, Player: id})
}

func (s *State) ParticipantsOf(dungeonID uint64) []Identity {
	var out []Identity
	s.Participants.Each(func(k ParticipantKey, _ *Participant) {
		if k.Dungeon == dungeonID {
			out = append(out, k.Player)
		}
	})
	return out
}

func (s *State) ParticipantCount(dungeonID uint64) int {
	n := 0
	s.Participants.Each(func(k ParticipantKey, _ *Participant) {
		if k.Dungeon == dungeonID {
			n++
		}
	})
	return n
}

// DungeonsOf returns every dungeon the player participates in. Normally at
// most one, but a dead player who never respawned can linger in an old run.
func (s *State) DungeonsOf(id Identity) []uint64 {
	var out []uint64
	s.Participants.Each(func(k ParticipantKey, _ *Participant) {
		if k.Player == id {
			out = append(out, k.Dungeon)
		}
	})
	return out
}

// LatestDungeon returns the most recently created non-raid dungeon, nil when
// none exist. Raid dungeons are invite-only and never joined ad hoc.
func (s *State) LatestDungeon() *Dungeon {
	var best *Dungeon
	s.Dungeons.Each(func(_ uint64, d *Dungeon) {
		if d.IsRaid {
			return
		}
		if best == nil || d.ID > best.ID {
			best = d
		}
	})
	return best
}

func (s *State) RoomHasEnemies(dungeonID uint64, room uint32) bool {
	found := false
	s.Enemies.Each(func(_ uint64, e *Enemy) {
		if e.DungeonID == dungeonID && e.RoomIndex == room {
			found = true
		}
	})
	return found
}

// NearestPlayer returns the closest positioned player in the dungeon and the
// distance, or nil when the dungeon is empty.
func (s *State) NearestPlayer(dungeonID uint64, x, y float64) (*Position, float64) {
	var best *Position
	bestD := math.MaxFloat64
	s.Positions.Each(func(_ Identity, p *Position) {
		if p.DungeonID != dungeonID {
			return
		}
		d := Dist(x, y, p.X, p.Y)
		if d < bestD {
			best, bestD = p, d
		}
	})
	return best, bestD
}

// TankNear reports whether any tank-class player stands within radius of
// (x, y) in the dungeon.
func (s *State) TankNear(dungeonID uint64, x, y, radius float64) bool {
	found := false
	s.Positions.Each(func(_ Identity, p *Position) {
		if found || p.DungeonID != dungeonID {
			return
		}
		if p.Class == ClassTank && Dist(x, y, p.X, p.Y) <= radius {
			found = true
		}
	})
	return found
}

// PackMembers returns the ids of alive wolves sharing packID in the dungeon,
// ascending, so each member's pack index is stable across ticks.
func (s *State) PackMembers(dungeonID, packID uint64) []uint64 {
	var out []uint64
	s.Enemies.Each(func(id uint64, e *Enemy) {
		if e.Type == "wolf" && e.DungeonID == dungeonID && e.PackID == packID && e.IsAlive {
			out = append(out, id)
		}
	})
	slices.Sort(out)
	return out
}

// ─── Cleanup ───

// CleanupDungeon removes every row scoped to the dungeon and the dungeon
// itself. Player rows survive; positions, threat, loot and messages go.
func (s *State) CleanupDungeon(dungeonID uint64) {
	for _, id := range s.Enemies.Keys() {
		if e, ok := s.Enemies.Find(id); ok && e.DungeonID == dungeonID {
			s.Enemies.Delete(id)
		}
	}
	for _, id := range s.Loot.Keys() {
		if l, ok := s.Loot.Find(id); ok && l.DungeonID == dungeonID {
			s.Loot.Delete(id)
		}
	}
	for _, k := range s.Participants.Keys() {
		if k.Dungeon == dungeonID {
			s.Participants.Delete(k)
		}
	}
	for _, id := range s.Positions.Keys() {
		if p, ok := s.Positions.Find(id); ok && p.DungeonID == dungeonID {
			s.Positions.Delete(id)
		}
	}
	for _, id := range s.Messages.Keys() {
		if m, ok := s.Messages.Find(id); ok && m.DungeonID == dungeonID {
			s.Messages.Delete(id)
		}
	}
	for _, id := range s.HealingZones.Keys() {
		if z, ok := s.HealingZones.Find(id); ok && z.DungeonID == dungeonID {
			s.HealingZones.Delete(id)
		}
	}
	for _, k := range s.Threat.Keys() {
		if k.Dungeon == dungeonID {
			s.Threat.Delete(k)
		}
	}
	s.Dungeons.Delete(dungeonID)
}

// JoinDungeon inserts the membership row and a spawn-point position with
// the player's visual fields cached. Re-joining refreshes both rows.
func (s *State) JoinDungeon(dungeonID uint64, id Identity) {
	s.Participants.Insert(
		ParticipantKey{Dungeon: dungeonID, Player: id},
		&Participant{DungeonID: dungeonID, Player: id},
	)
	pos := &Position{Identity: id, DungeonID: dungeonID, X: SpawnX, Y: SpawnY, FacingX: 1}
	if p, ok := s.Players.Find(id); ok {
		pos.Name, pos.Level, pos.Class = p.Name, p.Level, p.Class
	}
	if old, ok := s.Positions.Find(id); ok {
		pos.WeaponIcon, pos.ArmorIcon, pos.AccessoryIcon = old.WeaponIcon, old.ArmorIcon, old.AccessoryIcon
	}
	s.Positions.Insert(id, pos)
}

// LeaveDungeon removes one player's membership and position; the dungeon is
// cleaned up when they were the last participant.
func (s *State) LeaveDungeon(dungeonID uint64, id Identity) {
	s.Participants.Delete(ParticipantKey{Dungeon: dungeonID, Player: id})
	if p, ok := s.Positions.Find(id); ok && p.DungeonID == dungeonID {
		s.Positions.Delete(id)
	}
	if s.ParticipantCount(dungeonID) == 0 {
		s.CleanupDungeon(dungeonID)
	}
}

// ─── Geometry ───

func Dist(x1, y1, x2, y2 float64) float64 {
	dx := x1 - x2
	dy := y1 - y2
	return math.Sqrt(dx*dx + dy*dy)
}

// ClampToRoom keeps a point one tile inside the room bounds.
func ClampToRoom(x, y float64) (float64, float64) {
	return clamp(x, Tile, RoomW-Tile), clamp(y, Tile, RoomH-Tile)
}

// InRoomBounds reports whether a point is inside the clamp box.
func InRoomBounds(x, y float64) bool {
	return x >= Tile && x <= RoomW-Tile && y >= Tile && y <= RoomH-Tile
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
