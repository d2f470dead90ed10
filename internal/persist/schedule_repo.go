package persist

import (
	"context"

	"github.com/crawld/server/internal/world"
)

type ScheduleRepo struct {
	db *DB
}

func NewScheduleRepo(db *DB) *ScheduleRepo {
	return &ScheduleRepo{db: db}
}

// LoadAll returns the armed tick handlers recorded at last shutdown.
func (r *ScheduleRepo) LoadAll(ctx context.Context) ([]world.Schedule, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT name, every_ms FROM schedules ORDER BY name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []world.Schedule
	for rows.Next() {
		var sc world.Schedule
		if err := rows.Scan(&sc.Name, &sc.EveryMS); err != nil {
			return nil, err
		}
		result = append(result, sc)
	}
	return result, rows.Err()
}

// SaveBatch upserts schedule rows in a single transaction.
func (r *ScheduleRepo) SaveBatch(ctx context.Context, schedules []world.Schedule) error {
	if len(schedules) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, sc := range schedules {
		if _, err := tx.Exec(ctx,
			`INSERT INTO schedules (name, every_ms)
			 VALUES ($1, $2)
			 ON CONFLICT (name) DO UPDATE SET every_ms = EXCLUDED.every_ms`,
			sc.Name, sc.EveryMS,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// DeleteBatch removes disarmed handlers in a single transaction.
func (r *ScheduleRepo) DeleteBatch(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, name := range names {
		if _, err := tx.Exec(ctx,
			`DELETE FROM schedules WHERE name = $1`, name,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
