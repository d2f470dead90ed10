package system

import "github.com/crawld/server/internal/world"

// AddThreat accumulates threat for (dungeon, enemy, player). Upsert-sum;
// non-positive amounts and zero identities are ignored. Game loop is
// single-threaded, no locks.
func AddThreat(s *world.State, dungeonID, enemyID uint64, player world.Identity, amount int64) {
	if amount <= 0 || player == 0 {
		return
	}
	key := world.ThreatKey{Dungeon: dungeonID, Enemy: enemyID, Player: player}
	if t, ok := s.Threat.Find(key); ok {
		t.Amount += amount
		s.Threat.Touch(key)
		return
	}
	s.Threat.Insert(key, &world.ThreatEntry{
		DungeonID: dungeonID,
		EnemyID:   enemyID,
		Player:    player,
		Amount:    amount,
	})
}

// HighestThreat returns the player with the most accumulated threat against
// the enemy, zero when nobody has any. Linear scan; ties go to scan order.
func HighestThreat(s *world.State, dungeonID, enemyID uint64) world.Identity {
	var top world.Identity
	var max int64
	s.Threat.Each(func(k world.ThreatKey, t *world.ThreatEntry) {
		if k.Dungeon != dungeonID || k.Enemy != enemyID {
			return
		}
		if t.Amount > max {
			max = t.Amount
			top = k.Player
		}
	})
	return top
}

// ClearEnemyThreat drops every threat entry for one enemy (enemy death).
func ClearEnemyThreat(s *world.State, dungeonID, enemyID uint64) {
	for _, k := range s.Threat.Keys() {
		if k.Dungeon == dungeonID && k.Enemy == enemyID {
			s.Threat.Delete(k)
		}
	}
}
