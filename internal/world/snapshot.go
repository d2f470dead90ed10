package world

import "github.com/crawld/server/internal/core/store"

// Snapshot returns the current rows of one table as insert events, for
// seeding a new subscription before live journal deltas take over. Unknown
// table names yield nil, which the gateway treats as an empty table.
func (s *State) Snapshot(table string) []store.RowEvent {
	var out []store.RowEvent
	add := func(key, row any) {
		out = append(out, store.RowEvent{Table: table, Kind: store.KindInsert, Key: key, Row: row})
	}
	switch table {
	case "player":
		s.Players.Each(func(k Identity, r *Player) { add(k, r) })
	case "active_dungeon":
		s.Dungeons.Each(func(k uint64, r *Dungeon) { add(k, r) })
	case "dungeon_participant":
		s.Participants.Each(func(k ParticipantKey, r *Participant) { add(k, r) })
	case "dungeon_enemy":
		s.Enemies.Each(func(k uint64, r *Enemy) { add(k, r) })
	case "player_position":
		s.Positions.Each(func(k Identity, r *Position) { add(k, r) })
	case "loot_drop":
		s.Loot.Each(func(k uint64, r *LootDrop) { add(k, r) })
	case "inventory_item":
		s.Inventory.Each(func(k uint64, r *Item) { add(k, r) })
	case "threat_entry":
		s.Threat.Each(func(k ThreatKey, r *ThreatEntry) { add(k, r) })
	case "player_ability_state":
		s.Abilities.Each(func(k Identity, r *AbilityState) { add(k, r) })
	case "active_healing_zone":
		s.HealingZones.Each(func(k uint64, r *HealingZone) { add(k, r) })
	case "player_game_mode":
		s.Modes.Each(func(k Identity, r *GameMode) { add(k, r) })
	case "open_world_instance":
		s.Shards.Each(func(k uint64, r *Shard) { add(k, r) })
	case "open_world_enemy":
		s.WorldEnemies.Each(func(k uint64, r *WorldEnemy) { add(k, r) })
	case "open_world_player":
		s.WorldPlayers.Each(func(k Identity, r *WorldPlayer) { add(k, r) })
	case "dungeon_queue":
		s.DungeonQueue.Each(func(k Identity, r *QueueEntry) { add(k, r) })
	case "raid_queue":
		s.RaidQueue.Each(func(k Identity, r *RaidQueueEntry) { add(k, r) })
	case "raid_instance":
		s.Raids.Each(func(k uint64, r *Raid) { add(k, r) })
	case "raid_participant":
		s.RaidParticipants.Each(func(k RaidParticipantKey, r *RaidParticipant) { add(k, r) })
	case "raid_cooldown":
		s.RaidCooldowns.Each(func(k Identity, r *RaidCooldown) { add(k, r) })
	case "daily_raid_clear":
		s.DailyClears.Each(func(k DailyClearKey, r *DailyRaidClear) { add(k, r) })
	case "player_message":
		s.Messages.Each(func(k uint64, r *Message) { add(k, r) })
	case "schedule":
		s.Schedules.Each(func(k string, r *Schedule) { add(k, r) })
	}
	return out
}
