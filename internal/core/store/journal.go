package store

// Kind classifies a row write.
type Kind uint8

const (
	KindInsert Kind = iota + 1
	KindUpdate
	KindDelete
)

func (k Kind) String() string {
	switch k {
	case KindInsert:
		return "insert"
	case KindUpdate:
		return "update"
	case KindDelete:
		return "delete"
	}
	return "?"
}

// RowEvent is one committed row write. Row is the live row pointer for
// inserts and updates (marshal at drain time, after the tick committed) and
// nil for deletes; Key identifies the row either way.
type RowEvent struct {
	Table string
	Kind  Kind
	Key   any
	Row   any
}

type journalKey struct {
	table string
	key   any
}

// Journal collects row writes during a tick and hands them out once at the
// end. Writes are double-buffered the same way events are: everything
// emitted during tick N is read together after tick N, so subscribers only
// ever observe post-commit state. Repeated writes to one row coalesce.
type Journal struct {
	events []RowEvent
	index  map[journalKey]int
}

func NewJournal() *Journal {
	return &Journal{
		events: make([]RowEvent, 0, 256),
		index:  make(map[journalKey]int, 256),
	}
}

func (j *Journal) record(table string, kind Kind, key any, row any) {
	jk := journalKey{table: table, key: key}
	if i, ok := j.index[jk]; ok {
		prev := j.events[i].Kind
		switch {
		case prev == KindInsert && kind == KindDelete:
			// Insert then delete inside one tick: subscribers never saw it.
			j.events[i] = RowEvent{Table: table, Kind: 0}
			delete(j.index, jk)
		case prev == KindInsert:
			j.events[i].Row = row
		case prev == KindDelete:
			// Delete then re-insert inside one tick: the row existed before
			// the tick and still exists after it, so subscribers see an
			// update carrying the new row.
			j.events[i] = RowEvent{Table: table, Kind: KindUpdate, Key: key, Row: row}
		case kind == KindDelete:
			j.events[i] = RowEvent{Table: table, Kind: KindDelete, Key: key}
		default:
			j.events[i].Row = row
		}
		return
	}
	j.index[jk] = len(j.events)
	j.events = append(j.events, RowEvent{Table: table, Kind: kind, Key: key, Row: row})
}

// Drain returns the coalesced writes in first-write order and resets the
// journal for the next tick.
func (j *Journal) Drain() []RowEvent {
	if len(j.events) == 0 {
		return nil
	}
	out := make([]RowEvent, 0, len(j.events))
	for _, ev := range j.events {
		if ev.Kind == 0 {
			continue
		}
		out = append(out, ev)
	}
	j.events = j.events[:0]
	for k := range j.index {
		delete(j.index, k)
	}
	return out
}

func (j *Journal) Pending() int { return len(j.events) }
