package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/crawld/server/internal/scripting"
	"github.com/crawld/server/internal/world"
)

const (
	RaidRewardXP   = 200
	RaidRewardGold = 100
	RaidLockout    = 30 * time.Minute
)

// RaidByDungeon resolves the raid bookkeeping row backing a raid dungeon.
func RaidByDungeon(st *world.State, dungeonID uint64) (*world.Raid, bool) {
	var found *world.Raid
	st.Raids.Each(func(_ uint64, r *world.Raid) {
		if r.DungeonID == dungeonID {
			found = r
		}
	})
	return found, found != nil
}

// RaidMembers lists the participants of a raid.
func RaidMembers(st *world.State, raidID uint64) []world.Identity {
	var out []world.Identity
	for _, k := range st.RaidParticipants.Keys() {
		if k.Raid == raidID {
			out = append(out, k.Player)
		}
	}
	return out
}

// FinishRaid pays out a downed raid boss: rewards, lockout and the daily
// clear mark for every raid participant, then teardown of the raid rows
// and the backing dungeon. Participants land back in the hub.
func FinishRaid(st *world.State, scripts *scripting.Engine, raidID uint64, log *zap.Logger) {
	raid, ok := st.Raids.Find(raidID)
	if !ok {
		return
	}
	now := st.Now()
	date := now.UTC().Format("2006-01-02")

	for _, k := range st.RaidParticipants.Keys() {
		if k.Raid != raidID {
			continue
		}
		if p, ok := st.Players.Find(k.Player); ok {
			p.XP += RaidRewardXP
			p.Gold += RaidRewardGold
			world.ApplyLevelUps(p, scripts.XPForLevel)
			p.HP = p.MaxHP
			p.Dirty = true
			st.Players.Touch(k.Player)
		}
		st.RaidCooldowns.Insert(k.Player, &world.RaidCooldown{
			Player: k.Player,
			Until:  now.Add(RaidLockout).UnixMicro(),
			Dirty:  true,
		})
		key := world.DailyClearKey{Player: k.Player, Date: date}
		if !st.DailyClears.Has(key) {
			st.DailyClears.Insert(key, &world.DailyRaidClear{
				Player:    k.Player,
				Date:      date,
				ClearedAt: now.UnixMicro(),
				Dirty:     true,
			})
		}
		st.Modes.Insert(k.Player, &world.GameMode{Identity: k.Player, Mode: world.ModeHub})
		st.RaidParticipants.Delete(k)
	}

	st.CleanupDungeon(raid.DungeonID)
	st.Raids.Delete(raidID)
	log.Info("raid cleared", zap.Uint64("raid", raidID), zap.Uint64("dungeon", raid.DungeonID))
}
