package persist

import (
	"context"

	"github.com/crawld/server/internal/world"
)

type RaidRepo struct {
	db *DB
}

func NewRaidRepo(db *DB) *RaidRepo {
	return &RaidRepo{db: db}
}

// LoadCooldowns returns all raid lockouts still ahead of now (unix micros).
func (r *RaidRepo) LoadCooldowns(ctx context.Context, now int64) ([]world.RaidCooldown, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT player_identity, cooldown_until
		 FROM raid_cooldowns
		 WHERE cooldown_until > $1`, now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []world.RaidCooldown
	for rows.Next() {
		var (
			cd world.RaidCooldown
			id int64
		)
		if err := rows.Scan(&id, &cd.Until); err != nil {
			return nil, err
		}
		cd.Player = world.Identity(id)
		result = append(result, cd)
	}
	return result, rows.Err()
}

// SaveCooldowns upserts lockout rows in a single transaction.
func (r *RaidRepo) SaveCooldowns(ctx context.Context, cds []world.RaidCooldown) error {
	if len(cds) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, cd := range cds {
		if _, err := tx.Exec(ctx,
			`INSERT INTO raid_cooldowns (player_identity, cooldown_until)
			 VALUES ($1, $2)
			 ON CONFLICT (player_identity) DO UPDATE SET cooldown_until = EXCLUDED.cooldown_until`,
			int64(cd.Player), cd.Until,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// LoadDailyClears returns the clears recorded for one UTC date.
func (r *RaidRepo) LoadDailyClears(ctx context.Context, date string) ([]world.DailyRaidClear, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT player_identity, clear_date, cleared_at
		 FROM daily_raid_clears
		 WHERE clear_date = $1`, date,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []world.DailyRaidClear
	for rows.Next() {
		var (
			dc world.DailyRaidClear
			id int64
		)
		if err := rows.Scan(&id, &dc.Date, &dc.ClearedAt); err != nil {
			return nil, err
		}
		dc.Player = world.Identity(id)
		result = append(result, dc)
	}
	return result, rows.Err()
}

// SaveDailyClears inserts clear rows in a single transaction, keeping the
// first record when a day is already marked.
func (r *RaidRepo) SaveDailyClears(ctx context.Context, clears []world.DailyRaidClear) error {
	if len(clears) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, dc := range clears {
		if _, err := tx.Exec(ctx,
			`INSERT INTO daily_raid_clears (player_identity, clear_date, cleared_at)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (player_identity, clear_date) DO NOTHING`,
			int64(dc.Player), dc.Date, dc.ClearedAt,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
