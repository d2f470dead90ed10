package handler

import (
	"encoding/json"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/crawld/server/internal/world"
)

type registerPlayerArgs struct {
	Name  string `json:"name"`
	Class string `json:"class"`
}

// HandleRegisterPlayer creates the character row for a fresh identity along
// with its ability-cooldown row and hub game mode.
func HandleRegisterPlayer(deps *Deps, caller world.Identity, args json.RawMessage) error {
	var a registerPlayerArgs
	if err := decode(args, &a); err != nil {
		return err
	}

	name := strings.TrimSpace(norm.NFKC.String(a.Name))
	if name == "" {
		return ErrEmptyName
	}
	if deps.World.Players.Has(caller) {
		return ErrAlreadyRegistered
	}
	canon := world.CanonicalName(name)
	taken := false
	deps.World.Players.Each(func(_ world.Identity, p *world.Player) {
		if world.CanonicalName(p.Name) == canon {
			taken = true
		}
	})
	if taken {
		return ErrAlreadyRegistered
	}
	class := world.Class(a.Class)
	if !world.ValidClass(class) {
		return ErrInvalidClass
	}
	stats, ok := deps.Classes.Get(a.Class)
	if !ok {
		return ErrInvalidClass
	}

	deps.World.Players.Insert(caller, &world.Player{
		Identity: caller,
		Name:     name,
		Class:    class,
		Level:    1,
		HP:       stats.MaxHP,
		MaxHP:    stats.MaxHP,
		Atk:      stats.Atk,
		Def:      stats.Def,
		Speed:    stats.Speed,
		Dirty:    true,
	})
	deps.World.Abilities.Insert(caller, &world.AbilityState{Identity: caller})
	deps.World.Modes.Insert(caller, &world.GameMode{Identity: caller, Mode: world.ModeHub})

	deps.Log.Info("player registered",
		zap.Uint64("identity", uint64(caller)),
		zap.String("name", name),
		zap.String("class", a.Class))
	return nil
}

// HandleLogin verifies the caller has a character. Registration is the only
// writer; login just refreshes the row for subscribers.
func HandleLogin(deps *Deps, caller world.Identity, _ json.RawMessage) error {
	p, ok := deps.World.Players.Find(caller)
	if !ok {
		return ErrNotRegistered
	}
	deps.World.Players.Touch(caller)
	deps.Log.Info("player login",
		zap.Uint64("identity", uint64(caller)),
		zap.String("name", p.Name))
	return nil
}

type setGameModeArgs struct {
	Mode string `json:"mode"`
}

// HandleSetGameMode moves the caller between hub and activity modes. The
// instance id is cleared; dungeon and raid flows set it themselves.
func HandleSetGameMode(deps *Deps, caller world.Identity, args json.RawMessage) error {
	var a setGameModeArgs
	if err := decode(args, &a); err != nil {
		return err
	}
	if !deps.World.Players.Has(caller) {
		return ErrNotFound
	}
	mode := world.Mode(a.Mode)
	if !world.ValidMode(mode) {
		return ErrInvalidMode
	}
	deps.World.Modes.Insert(caller, &world.GameMode{Identity: caller, Mode: mode})
	return nil
}
