package persist

import (
	"context"
	"fmt"

	"github.com/crawld/server/internal/world"
)

// RunEntry is one appended dungeon or raid completion record.
type RunEntry struct {
	Player    world.Identity
	DungeonID uint64
	Depth     uint32
	IsRaid    bool
	XP        uint64
	Gold      uint64
	ClearedAt int64
}

type RunLogRepo struct {
	db *DB
}

func NewRunLogRepo(db *DB) *RunLogRepo {
	return &RunLogRepo{db: db}
}

// Append atomically writes a batch of run entries in a single transaction.
// Returns nil on success; on failure the caller keeps the batch and retries.
func (r *RunLogRepo) Append(ctx context.Context, entries []RunEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("runlog begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range entries {
		if _, err := tx.Exec(ctx,
			`INSERT INTO run_log (player_identity, dungeon_id, depth, is_raid, xp_awarded, gold_awarded, cleared_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			int64(e.Player), int64(e.DungeonID), e.Depth, e.IsRaid,
			int64(e.XP), int64(e.Gold), e.ClearedAt,
		); err != nil {
			return fmt.Errorf("runlog insert: %w", err)
		}
	}
	return tx.Commit(ctx)
}
