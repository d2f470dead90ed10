package handler

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/crawld/server/internal/world"
)

type pickupLootArgs struct {
	LootID uint64 `json:"loot_id"`
}

// HandlePickupLoot converts a ground drop into an inventory item. The drop
// row stays behind with picked_up set, so a second attempt fails instead
// of duplicating the item.
func HandlePickupLoot(deps *Deps, caller world.Identity, args json.RawMessage) error {
	var a pickupLootArgs
	if err := decode(args, &a); err != nil {
		return err
	}
	pos, ok := deps.World.Positions.Find(caller)
	if !ok {
		return ErrNotFound
	}
	loot, ok := deps.World.Loot.Find(a.LootID)
	if !ok {
		return ErrNotFound
	}
	if loot.PickedUp {
		return ErrAlreadyPickedUp
	}
	if loot.DungeonID != pos.DungeonID {
		return ErrOutOfRange
	}
	if world.Dist(pos.X, pos.Y, loot.X, loot.Y) > world.LootPickupRange {
		return ErrOutOfRange
	}

	loot.PickedUp = true
	deps.World.Loot.Touch(a.LootID)

	id := deps.World.IDs.Next()
	deps.World.Inventory.Insert(id, &world.Item{
		ID:       id,
		Owner:    caller,
		ItemJSON: loot.ItemJSON,
		Dirty:    true,
	})

	deps.Log.Info("loot picked up",
		zap.Uint64("loot", a.LootID),
		zap.Uint64("identity", uint64(caller)))
	return nil
}

type addInventoryItemArgs struct {
	ItemJSON string `json:"item_json"`
	Rarity   string `json:"rarity"`
}

// HandleAddInventoryItem inserts a client-authored item. Town vendors and
// quest turn-ins run through this; rarity is informational.
func HandleAddInventoryItem(deps *Deps, caller world.Identity, args json.RawMessage) error {
	var a addInventoryItemArgs
	if err := decode(args, &a); err != nil {
		return err
	}
	if !deps.World.Players.Has(caller) {
		return ErrNotFound
	}

	id := deps.World.IDs.Next()
	deps.World.Inventory.Insert(id, &world.Item{
		ID:       id,
		Owner:    caller,
		ItemJSON: a.ItemJSON,
		Dirty:    true,
	})

	deps.Log.Info("inventory item added",
		zap.Uint64("identity", uint64(caller)),
		zap.String("rarity", a.Rarity))
	return nil
}

type equipItemArgs struct {
	ItemID uint64 `json:"item_id"`
	Slot   string `json:"slot"`
}

// HandleEquipItem moves an item into a slot, unequipping whatever the
// caller had there. At most one item per (owner, slot) afterwards.
func HandleEquipItem(deps *Deps, caller world.Identity, args json.RawMessage) error {
	var a equipItemArgs
	if err := decode(args, &a); err != nil {
		return err
	}
	item, ok := deps.World.Inventory.Find(a.ItemID)
	if !ok {
		return ErrNotFound
	}
	if item.Owner != caller {
		return ErrNotOwner
	}

	for _, id := range deps.World.Inventory.Keys() {
		other, ok := deps.World.Inventory.Find(id)
		if !ok || other.Owner != caller || other.EquippedSlot != a.Slot || other.EquippedSlot == "" {
			continue
		}
		other.EquippedSlot = ""
		other.Dirty = true
		deps.World.Inventory.Touch(id)
	}

	item.EquippedSlot = a.Slot
	item.Dirty = true
	deps.World.Inventory.Touch(a.ItemID)
	return nil
}

type itemIDArgs struct {
	ItemID uint64 `json:"item_id"`
}

func HandleUnequipItem(deps *Deps, caller world.Identity, args json.RawMessage) error {
	var a itemIDArgs
	if err := decode(args, &a); err != nil {
		return err
	}
	item, ok := deps.World.Inventory.Find(a.ItemID)
	if !ok {
		return ErrNotFound
	}
	if item.Owner != caller {
		return ErrNotOwner
	}
	item.EquippedSlot = ""
	item.Dirty = true
	deps.World.Inventory.Touch(a.ItemID)
	return nil
}

func HandleDiscardItem(deps *Deps, caller world.Identity, args json.RawMessage) error {
	var a itemIDArgs
	if err := decode(args, &a); err != nil {
		return err
	}
	item, ok := deps.World.Inventory.Find(a.ItemID)
	if !ok {
		return ErrNotFound
	}
	if item.Owner != caller {
		return ErrNotOwner
	}
	deps.World.Inventory.Delete(a.ItemID)
	return nil
}
