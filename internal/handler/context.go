package handler

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/crawld/server/internal/config"
	"github.com/crawld/server/internal/core/sched"
	"github.com/crawld/server/internal/data"
	"github.com/crawld/server/internal/persist"
	"github.com/crawld/server/internal/scripting"
	"github.com/crawld/server/internal/system"
	"github.com/crawld/server/internal/world"
)

// Deps holds shared dependencies injected into all command handlers.
type Deps struct {
	Config    *config.Config
	Log       *zap.Logger
	World     *world.State
	Sched     *sched.Scheduler
	Scripting *scripting.Engine

	Classes   *data.ClassTable
	Enemies   *data.EnemyTable
	OpenWorld *data.OpenWorldTable

	Spawner  *system.Spawner
	Loot     *system.LootGenerator
	WorldSys *system.OpenWorldSystem

	Persister *persist.Persister // nil when running without a database
}

// Func is one bound command handler. Handlers validate before they
// mutate, so a returned Code means the store was left untouched.
type Func func(caller world.Identity, args json.RawMessage) error

// Registry maps command names to bound handlers. Populated once at boot,
// read-only afterwards.
type Registry struct {
	byName map[string]Func
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Func, 32)}
}

func (r *Registry) Register(name string, fn Func) {
	r.byName[name] = fn
}

// Dispatch runs one command on the game loop goroutine.
func (r *Registry) Dispatch(caller world.Identity, name string, args json.RawMessage) error {
	fn, ok := r.byName[name]
	if !ok {
		return ErrUnknownCommand
	}
	return fn(caller, args)
}

// RegisterAll registers every command handler into the registry.
func RegisterAll(reg *Registry, deps *Deps) {
	bind := func(name string, fn func(*Deps, world.Identity, json.RawMessage) error) {
		reg.Register(name, func(caller world.Identity, args json.RawMessage) error {
			return fn(deps, caller, args)
		})
	}

	// Account lifecycle
	bind("register_player", HandleRegisterPlayer)
	bind("login", HandleLogin)
	bind("set_game_mode", HandleSetGameMode)

	// Dungeon lifecycle
	bind("start_dungeon", HandleStartDungeon)
	bind("start_dungeon_solo", HandleStartDungeonSolo)
	bind("enter_room", HandleEnterRoom)
	bind("complete_dungeon", HandleCompleteDungeon)
	bind("update_position", HandleUpdatePosition)

	// Combat and abilities
	bind("attack", HandleAttack)
	bind("use_dash", HandleUseDash)
	bind("use_taunt", HandleUseTaunt)
	bind("use_knockback", HandleUseKnockback)
	bind("place_healing_zone", HandlePlaceHealingZone)

	// Loot and inventory
	bind("pickup_loot", HandlePickupLoot)
	bind("add_inventory_item", HandleAddInventoryItem)
	bind("equip_item", HandleEquipItem)
	bind("unequip_item", HandleUnequipItem)
	bind("discard_item", HandleDiscardItem)

	// Social
	bind("send_chat", HandleSendChat)
	bind("send_emote", HandleSendEmote)

	// Open world
	bind("enter_open_world", HandleEnterOpenWorld)
	bind("leave_open_world", HandleLeaveOpenWorld)
	bind("update_open_world_position", HandleUpdateOpenWorldPosition)
	bind("attack_open_world", HandleAttackOpenWorld)

	// Matchmaking
	bind("queue_dungeon", HandleQueueDungeon)
	bind("queue_raid", HandleQueueRaid)
	bind("cancel_queue", HandleCancelQueue)
}

// decode unmarshals command args; empty args decode to the zero value.
func decode(args json.RawMessage, v any) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return ErrBadArgs
	}
	return nil
}
