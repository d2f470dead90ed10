package persist

import (
	"context"

	"github.com/crawld/server/internal/world"
)

type PlayerRepo struct {
	db *DB
}

func NewPlayerRepo(db *DB) *PlayerRepo {
	return &PlayerRepo{db: db}
}

// LoadAll returns every persisted player row.
func (r *PlayerRepo) LoadAll(ctx context.Context) ([]world.Player, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT identity, name, class, level, xp, hp, max_hp, atk, def, speed, gold, dungeons_cleared
		 FROM players
		 ORDER BY identity`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []world.Player
	for rows.Next() {
		var (
			p     world.Player
			id    int64
			class string
		)
		if err := rows.Scan(
			&id, &p.Name, &class, &p.Level, &p.XP,
			&p.HP, &p.MaxHP, &p.Atk, &p.Def, &p.Speed,
			&p.Gold, &p.DungeonsCleared,
		); err != nil {
			return nil, err
		}
		p.Identity = world.Identity(id)
		p.Class = world.Class(class)
		result = append(result, p)
	}
	return result, rows.Err()
}

// SaveBatch upserts a batch of player rows in a single transaction.
func (r *PlayerRepo) SaveBatch(ctx context.Context, players []world.Player) error {
	if len(players) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, p := range players {
		if _, err := tx.Exec(ctx,
			`INSERT INTO players (identity, name, class, level, xp, hp, max_hp, atk, def, speed, gold, dungeons_cleared, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
			 ON CONFLICT (identity) DO UPDATE SET
				name = EXCLUDED.name, class = EXCLUDED.class,
				level = EXCLUDED.level, xp = EXCLUDED.xp,
				hp = EXCLUDED.hp, max_hp = EXCLUDED.max_hp,
				atk = EXCLUDED.atk, def = EXCLUDED.def, speed = EXCLUDED.speed,
				gold = EXCLUDED.gold, dungeons_cleared = EXCLUDED.dungeons_cleared,
				updated_at = NOW()`,
			int64(p.Identity), p.Name, string(p.Class), p.Level, int64(p.XP),
			p.HP, p.MaxHP, p.Atk, p.Def, p.Speed,
			int64(p.Gold), p.DungeonsCleared,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
