package handler

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/crawld/server/internal/system"
	"github.com/crawld/server/internal/world"
)

type queueDungeonArgs struct {
	Tier       uint8 `json:"tier"`
	Difficulty uint8 `json:"difficulty"`
}

// HandleQueueDungeon puts the caller into the tiered dungeon queue. Any
// earlier queue entry is dropped first, so a player sits in at most one
// queue at a time.
func HandleQueueDungeon(deps *Deps, caller world.Identity, args json.RawMessage) error {
	var a queueDungeonArgs
	if err := decode(args, &a); err != nil {
		return err
	}
	if a.Tier < 1 || a.Tier > 3 {
		return ErrInvalidTier
	}
	if a.Difficulty < 1 || a.Difficulty > 5 {
		return ErrInvalidDifficulty
	}
	if !deps.World.Players.Has(caller) {
		return ErrNotFound
	}

	deps.World.DungeonQueue.Delete(caller)
	deps.World.RaidQueue.Delete(caller)
	deps.World.DungeonQueue.Insert(caller, &world.QueueEntry{
		Player:     caller,
		Tier:       a.Tier,
		Difficulty: a.Difficulty,
		QueuedAt:   deps.World.NowMicros(),
	})
	system.ArmSchedule(deps.World, deps.Sched, system.ScheduleMatchmaking)

	deps.Log.Info("queued for dungeon",
		zap.Uint64("identity", uint64(caller)),
		zap.Uint8("tier", a.Tier),
		zap.Uint8("difficulty", a.Difficulty))
	return nil
}

// HandleQueueRaid puts the caller into the role-based raid queue, honoring
// the post-clear lockout.
func HandleQueueRaid(deps *Deps, caller world.Identity, _ json.RawMessage) error {
	p, ok := deps.World.Players.Find(caller)
	if !ok {
		return ErrNotFound
	}
	if cd, ok := deps.World.RaidCooldowns.Find(caller); ok && deps.World.NowMicros() < cd.Until {
		return ErrOnCooldown
	}

	deps.World.DungeonQueue.Delete(caller)
	deps.World.RaidQueue.Delete(caller)
	deps.World.RaidQueue.Insert(caller, &world.RaidQueueEntry{
		Player:   caller,
		Class:    p.Class,
		QueuedAt: deps.World.NowMicros(),
	})
	system.ArmSchedule(deps.World, deps.Sched, system.ScheduleMatchmaking)

	deps.Log.Info("queued for raid",
		zap.Uint64("identity", uint64(caller)),
		zap.String("role", string(p.Class)))
	return nil
}

// HandleCancelQueue removes the caller from both queues. Cancelling while
// not queued is a no-op.
func HandleCancelQueue(deps *Deps, caller world.Identity, _ json.RawMessage) error {
	deps.World.DungeonQueue.Delete(caller)
	deps.World.RaidQueue.Delete(caller)
	return nil
}
