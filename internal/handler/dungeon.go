package handler

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/crawld/server/internal/persist"
	"github.com/crawld/server/internal/system"
	"github.com/crawld/server/internal/world"
)

// respawnReset full-heals the caller and, when they had died, removes them
// from any dungeon they were still a member of so the old run can collapse.
func respawnReset(deps *Deps, caller world.Identity, p *world.Player) {
	wasDead := p.HP <= 0
	if p.HP < p.MaxHP {
		p.HP = p.MaxHP
		p.Dirty = true
		deps.World.Players.Touch(caller)
	}
	if !wasDead {
		return
	}
	for _, id := range deps.World.DungeonsOf(caller) {
		deps.World.LeaveDungeon(id, caller)
	}
	deps.Log.Info("stale dungeons released for respawned player",
		zap.Uint64("identity", uint64(caller)))
}

// HandleStartDungeon joins the latest open dungeon when someone else is
// already inside, otherwise creates a fresh run at the caller's depth.
func HandleStartDungeon(deps *Deps, caller world.Identity, _ json.RawMessage) error {
	p, ok := deps.World.Players.Find(caller)
	if !ok {
		return ErrNotFound
	}
	respawnReset(deps, caller, p)

	if latest := deps.World.LatestDungeon(); latest != nil {
		hasOthers := false
		for _, id := range deps.World.ParticipantsOf(latest.ID) {
			if id != caller {
				hasOthers = true
				break
			}
		}
		if hasOthers {
			deps.World.JoinDungeon(latest.ID, caller)
			deps.Log.Info("player joined dungeon",
				zap.Uint64("identity", uint64(caller)),
				zap.Uint64("dungeon", latest.ID))
			return nil
		}
	}

	depth := p.DungeonsCleared + 1
	id := deps.World.IDs.Next()
	d := &world.Dungeon{
		ID:         id,
		Owner:      caller,
		Depth:      depth,
		TotalRooms: 4,
		Seed:       uint64(deps.World.NowMicros()),
		StatMult:   deps.Scripting.DepthScale(depth),
	}
	deps.World.Dungeons.Insert(id, d)
	deps.World.JoinDungeon(id, caller)
	deps.Spawner.SpawnRoom(d, 0)
	system.ArmCombat(deps.World, deps.Sched)

	deps.Log.Info("dungeon started",
		zap.Uint64("dungeon", id),
		zap.Uint32("depth", depth),
		zap.Uint32("rooms", d.TotalRooms))
	return nil
}

type startDungeonSoloArgs struct {
	Tier       uint8 `json:"tier"`
	Difficulty uint8 `json:"difficulty"`
}

// HandleStartDungeonSolo creates a private tiered run for the caller alone,
// bypassing both the shared-dungeon join and the matchmaking queue.
func HandleStartDungeonSolo(deps *Deps, caller world.Identity, args json.RawMessage) error {
	var a startDungeonSoloArgs
	if err := decode(args, &a); err != nil {
		return err
	}
	if a.Tier < 1 || a.Tier > 3 {
		return ErrInvalidTier
	}
	if a.Difficulty < 1 || a.Difficulty > 5 {
		return ErrInvalidDifficulty
	}
	p, ok := deps.World.Players.Find(caller)
	if !ok {
		return ErrNotFound
	}
	respawnReset(deps, caller, p)

	id := deps.World.IDs.Next()
	d := &world.Dungeon{
		ID:         id,
		Owner:      caller,
		Depth:      uint32(a.Tier),
		TotalRooms: 4,
		Seed:       uint64(deps.World.NowMicros()),
		StatMult:   system.DifficultyMult(a.Difficulty, 1),
	}
	deps.World.Dungeons.Insert(id, d)
	deps.World.JoinDungeon(id, caller)
	deps.Spawner.SpawnRoom(d, 0)
	system.ArmCombat(deps.World, deps.Sched)

	deps.Log.Info("solo dungeon started",
		zap.Uint64("dungeon", id),
		zap.Uint8("tier", a.Tier),
		zap.Uint8("difficulty", a.Difficulty))
	return nil
}

type enterRoomArgs struct {
	DungeonID uint64 `json:"dungeon_id"`
	RoomIndex uint32 `json:"room_index"`
}

// HandleEnterRoom advances the dungeon to a room, spawning its enemies on
// first entry and pulling every participant back to the spawn point.
func HandleEnterRoom(deps *Deps, caller world.Identity, args json.RawMessage) error {
	var a enterRoomArgs
	if err := decode(args, &a); err != nil {
		return err
	}
	d, ok := deps.World.Dungeons.Find(a.DungeonID)
	if !ok {
		return ErrNotFound
	}
	if !deps.World.IsParticipant(a.DungeonID, caller) {
		return ErrNotParticipant
	}
	if a.RoomIndex >= d.TotalRooms {
		return ErrOutOfBounds
	}

	d.CurrentRoom = a.RoomIndex
	deps.World.Dungeons.Touch(a.DungeonID)

	if !deps.World.RoomHasEnemies(a.DungeonID, a.RoomIndex) {
		deps.Spawner.SpawnRoom(d, a.RoomIndex)
	}

	for _, pid := range deps.World.ParticipantsOf(a.DungeonID) {
		if pos, ok := deps.World.Positions.Find(pid); ok {
			pos.X, pos.Y = world.SpawnX, world.SpawnY
			deps.World.Positions.Touch(pid)
		}
	}

	deps.Log.Info("room entered",
		zap.Uint64("dungeon", a.DungeonID),
		zap.Uint32("room", a.RoomIndex))
	return nil
}

type completeDungeonArgs struct {
	DungeonID  uint64  `json:"dungeon_id"`
	ClientGold *uint64 `json:"client_gold"`
	ClientXP   *uint64 `json:"client_xp"`
}

// HandleCompleteDungeon rewards the caller, records the clear and removes
// every row scoped to the dungeon. Rewards go to the sender alone; each
// party member sends their own completion.
func HandleCompleteDungeon(deps *Deps, caller world.Identity, args json.RawMessage) error {
	var a completeDungeonArgs
	if err := decode(args, &a); err != nil {
		return err
	}
	d, ok := deps.World.Dungeons.Find(a.DungeonID)
	if !ok {
		return ErrNotFound
	}
	if !deps.World.IsParticipant(a.DungeonID, caller) {
		return ErrNotParticipant
	}
	p, ok := deps.World.Players.Find(caller)
	if !ok {
		return ErrNotFound
	}

	xpReward := uint64(50 * d.Depth)
	if a.ClientXP != nil {
		xpReward = *a.ClientXP
	}
	goldReward := uint64(20 * d.Depth)
	if a.ClientGold != nil {
		goldReward = *a.ClientGold
	}

	p.XP += xpReward
	p.Gold += goldReward
	p.DungeonsCleared++
	world.ApplyLevelUps(p, deps.Scripting.XPForLevel)
	p.HP = p.MaxHP
	p.Dirty = true
	deps.World.Players.Touch(caller)

	if deps.Persister != nil {
		deps.Persister.LogRun(persist.RunEntry{
			Player:    caller,
			DungeonID: d.ID,
			Depth:     d.Depth,
			XP:        xpReward,
			Gold:      goldReward,
			ClearedAt: deps.World.NowMicros(),
		})
	}

	deps.World.CleanupDungeon(a.DungeonID)

	deps.Log.Info("dungeon completed",
		zap.Uint64("dungeon", a.DungeonID),
		zap.Uint64("identity", uint64(caller)),
		zap.Uint64("xp", xpReward),
		zap.Uint64("gold", goldReward))
	return nil
}

type updatePositionArgs struct {
	DungeonID     uint64  `json:"dungeon_id"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	FacingX       float64 `json:"facing_x"`
	FacingY       float64 `json:"facing_y"`
	WeaponIcon    string  `json:"weapon_icon"`
	ArmorIcon     string  `json:"armor_icon"`
	AccessoryIcon string  `json:"accessory_icon"`
}

// HandleUpdatePosition upserts the caller's live position. The client
// streams these every frame; name and level stay cached from the first
// insert while equipment icons follow the client.
func HandleUpdatePosition(deps *Deps, caller world.Identity, args json.RawMessage) error {
	var a updatePositionArgs
	if err := decode(args, &a); err != nil {
		return err
	}

	if pos, ok := deps.World.Positions.Find(caller); ok {
		pos.DungeonID = a.DungeonID
		pos.X, pos.Y = a.X, a.Y
		pos.FacingX, pos.FacingY = a.FacingX, a.FacingY
		pos.WeaponIcon, pos.ArmorIcon, pos.AccessoryIcon = a.WeaponIcon, a.ArmorIcon, a.AccessoryIcon
		deps.World.Positions.Touch(caller)
		return nil
	}

	p, ok := deps.World.Players.Find(caller)
	if !ok {
		return ErrNotFound
	}
	deps.World.Positions.Insert(caller, &world.Position{
		Identity:      caller,
		DungeonID:     a.DungeonID,
		X:             a.X,
		Y:             a.Y,
		FacingX:       a.FacingX,
		FacingY:       a.FacingY,
		Name:          p.Name,
		Level:         p.Level,
		Class:         p.Class,
		WeaponIcon:    a.WeaponIcon,
		ArmorIcon:     a.ArmorIcon,
		AccessoryIcon: a.AccessoryIcon,
	})
	return nil
}
