package persist

import (
	"context"

	"github.com/crawld/server/internal/world"
)

type InventoryRepo struct {
	db *DB
}

func NewInventoryRepo(db *DB) *InventoryRepo {
	return &InventoryRepo{db: db}
}

// LoadAll returns every persisted inventory item.
func (r *InventoryRepo) LoadAll(ctx context.Context) ([]world.Item, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, owner_identity, item_json, equipped_slot, card_json
		 FROM inventory_items
		 ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []world.Item
	for rows.Next() {
		var (
			it    world.Item
			id    int64
			owner int64
		)
		if err := rows.Scan(&id, &owner, &it.ItemJSON, &it.EquippedSlot, &it.CardJSON); err != nil {
			return nil, err
		}
		it.ID = uint64(id)
		it.Owner = world.Identity(owner)
		result = append(result, it)
	}
	return result, rows.Err()
}

// MaxID returns the highest persisted item id, for seeding the id sequence
// past rows that survive restarts.
func (r *InventoryRepo) MaxID(ctx context.Context) (uint64, error) {
	var max int64
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(id), 0) FROM inventory_items`,
	).Scan(&max)
	return uint64(max), err
}

// SaveBatch upserts a batch of item rows in a single transaction.
func (r *InventoryRepo) SaveBatch(ctx context.Context, items []world.Item) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, it := range items {
		if _, err := tx.Exec(ctx,
			`INSERT INTO inventory_items (id, owner_identity, item_json, equipped_slot, card_json)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (id) DO UPDATE SET
				owner_identity = EXCLUDED.owner_identity,
				item_json = EXCLUDED.item_json,
				equipped_slot = EXCLUDED.equipped_slot,
				card_json = EXCLUDED.card_json`,
			int64(it.ID), int64(it.Owner), it.ItemJSON, it.EquippedSlot, it.CardJSON,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// DeleteBatch removes discarded item rows in a single transaction. Ids that
// never reached the database are harmless no-ops.
func (r *InventoryRepo) DeleteBatch(ctx context.Context, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, id := range ids {
		if _, err := tx.Exec(ctx,
			`DELETE FROM inventory_items WHERE id = $1`, int64(id),
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
