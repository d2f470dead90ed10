package persist

import (
	"context"

	"go.uber.org/zap"

	"github.com/crawld/server/internal/core/store"
	"github.com/crawld/server/internal/world"
)

// Persister moves dirty world rows into the database on a fixed cadence.
// Everything here runs on the game loop goroutine, so sweeps see a quiet
// world and no locking is needed. Failed batches stay pending and retry on
// the next flush.
type Persister struct {
	Players   *PlayerRepo
	Inventory *InventoryRepo
	Raids     *RaidRepo
	Schedules *ScheduleRepo
	RunLog    *RunLogRepo

	log *zap.Logger

	pendingRuns     []RunEntry
	deletedItems    map[uint64]struct{}
	scheduleUpserts map[string]world.Schedule
	scheduleDeletes map[string]struct{}
}

func NewPersister(db *DB, log *zap.Logger) *Persister {
	return &Persister{
		Players:   NewPlayerRepo(db),
		Inventory: NewInventoryRepo(db),
		Raids:     NewRaidRepo(db),
		Schedules: NewScheduleRepo(db),
		RunLog:    NewRunLogRepo(db),

		log: log,

		deletedItems:    make(map[uint64]struct{}),
		scheduleUpserts: make(map[string]world.Schedule),
		scheduleDeletes: make(map[string]struct{}),
	}
}

// LogRun queues a completion record for the next flush.
func (p *Persister) LogRun(e RunEntry) {
	p.pendingRuns = append(p.pendingRuns, e)
}

// Observe watches the tick journal for writes that persist outside the
// dirty-flag sweep: item deletions and schedule arm state. Dirty flags cover
// upserts for everything else.
func (p *Persister) Observe(events []store.RowEvent) {
	for _, ev := range events {
		switch ev.Table {
		case "inventory_item":
			if ev.Kind == store.KindDelete {
				if id, ok := ev.Key.(uint64); ok {
					p.deletedItems[id] = struct{}{}
				}
			}
		case "schedule":
			name, ok := ev.Key.(string)
			if !ok {
				continue
			}
			if ev.Kind == store.KindDelete {
				delete(p.scheduleUpserts, name)
				p.scheduleDeletes[name] = struct{}{}
			} else if row, ok := ev.Row.(*world.Schedule); ok {
				delete(p.scheduleDeletes, name)
				p.scheduleUpserts[name] = *row
			}
		}
	}
}

// Flush writes every pending batch and clears what succeeded. All batches
// are attempted even after a failure; the first error comes back so the
// caller can count misses.
func (p *Persister) Flush(ctx context.Context, st *world.State) error {
	var firstErr error
	fail := func(batch string, err error) {
		p.log.Warn("persist batch failed", zap.String("batch", batch), zap.Error(err))
		if firstErr == nil {
			firstErr = err
		}
	}

	var players []world.Player
	var playerRows []*world.Player
	st.Players.Each(func(_ world.Identity, pl *world.Player) {
		if pl.Dirty {
			players = append(players, *pl)
			playerRows = append(playerRows, pl)
		}
	})
	if len(players) > 0 {
		if err := p.Players.SaveBatch(ctx, players); err != nil {
			fail("players", err)
		} else {
			for _, pl := range playerRows {
				pl.Dirty = false
			}
		}
	}

	var items []world.Item
	var itemRows []*world.Item
	st.Inventory.Each(func(_ uint64, it *world.Item) {
		if it.Dirty {
			items = append(items, *it)
			itemRows = append(itemRows, it)
		}
	})
	if len(items) > 0 {
		if err := p.Inventory.SaveBatch(ctx, items); err != nil {
			fail("items", err)
		} else {
			for _, it := range itemRows {
				it.Dirty = false
			}
		}
	}

	if len(p.deletedItems) > 0 {
		ids := make([]uint64, 0, len(p.deletedItems))
		for id := range p.deletedItems {
			ids = append(ids, id)
		}
		if err := p.Inventory.DeleteBatch(ctx, ids); err != nil {
			fail("item deletes", err)
		} else {
			clear(p.deletedItems)
		}
	}

	var cds []world.RaidCooldown
	var cdRows []*world.RaidCooldown
	st.RaidCooldowns.Each(func(_ world.Identity, cd *world.RaidCooldown) {
		if cd.Dirty {
			cds = append(cds, *cd)
			cdRows = append(cdRows, cd)
		}
	})
	if len(cds) > 0 {
		if err := p.Raids.SaveCooldowns(ctx, cds); err != nil {
			fail("raid cooldowns", err)
		} else {
			for _, cd := range cdRows {
				cd.Dirty = false
			}
		}
	}

	var clears []world.DailyRaidClear
	var clearRows []*world.DailyRaidClear
	st.DailyClears.Each(func(_ world.DailyClearKey, dc *world.DailyRaidClear) {
		if dc.Dirty {
			clears = append(clears, *dc)
			clearRows = append(clearRows, dc)
		}
	})
	if len(clears) > 0 {
		if err := p.Raids.SaveDailyClears(ctx, clears); err != nil {
			fail("daily clears", err)
		} else {
			for _, dc := range clearRows {
				dc.Dirty = false
			}
		}
	}

	if len(p.scheduleUpserts) > 0 {
		rows := make([]world.Schedule, 0, len(p.scheduleUpserts))
		for _, sc := range p.scheduleUpserts {
			rows = append(rows, sc)
		}
		if err := p.Schedules.SaveBatch(ctx, rows); err != nil {
			fail("schedules", err)
		} else {
			clear(p.scheduleUpserts)
		}
	}
	if len(p.scheduleDeletes) > 0 {
		names := make([]string, 0, len(p.scheduleDeletes))
		for name := range p.scheduleDeletes {
			names = append(names, name)
		}
		if err := p.Schedules.DeleteBatch(ctx, names); err != nil {
			fail("schedule deletes", err)
		} else {
			clear(p.scheduleDeletes)
		}
	}

	if len(p.pendingRuns) > 0 {
		if err := p.RunLog.Append(ctx, p.pendingRuns); err != nil {
			fail("run log", err)
		} else {
			p.pendingRuns = nil
		}
	}

	return firstErr
}
