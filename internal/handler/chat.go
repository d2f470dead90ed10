package handler

import (
	"encoding/json"

	"github.com/crawld/server/internal/world"
)

const chatMaxLen = 100 // bytes

type sendChatArgs struct {
	DungeonID uint64 `json:"dungeon_id"`
	Content   string `json:"content"`
}

// HandleSendChat posts a typed message to the dungeon's message table.
func HandleSendChat(deps *Deps, caller world.Identity, args json.RawMessage) error {
	var a sendChatArgs
	if err := decode(args, &a); err != nil {
		return err
	}
	if !deps.World.IsParticipant(a.DungeonID, caller) {
		return ErrNotParticipant
	}
	if len(a.Content) > chatMaxLen {
		return ErrTooLong
	}
	return postMessage(deps, caller, a.DungeonID, "chat", a.Content)
}

// HandleSendEmote posts a quick phrase. Emotes are client-curated, so no
// length cap applies.
func HandleSendEmote(deps *Deps, caller world.Identity, args json.RawMessage) error {
	var a sendChatArgs
	if err := decode(args, &a); err != nil {
		return err
	}
	if !deps.World.IsParticipant(a.DungeonID, caller) {
		return ErrNotParticipant
	}
	return postMessage(deps, caller, a.DungeonID, "emote", a.Content)
}

func postMessage(deps *Deps, caller world.Identity, dungeonID uint64, kind, content string) error {
	p, ok := deps.World.Players.Find(caller)
	if !ok {
		return ErrNotFound
	}
	id := deps.World.IDs.Next()
	deps.World.Messages.Insert(id, &world.Message{
		ID:         id,
		DungeonID:  dungeonID,
		Sender:     caller,
		SenderName: p.Name,
		Kind:       kind,
		Content:    content,
		SentAt:     deps.World.NowMicros(),
	})
	return nil
}
