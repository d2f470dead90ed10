package store

// Table is a generic keyed row table: no reflect in the data path, just
// generics over a map. Rows are held by pointer; callers mutate in place and
// report the write with Touch so the change reaches the journal.
type Table[K comparable, R any] struct {
	name    string
	rows    map[K]*R
	journal *Journal
}

func NewTable[K comparable, R any](name string, j *Journal) *Table[K, R] {
	return &Table[K, R]{
		name:    name,
		rows:    make(map[K]*R, 64),
		journal: j,
	}
}

func (t *Table[K, R]) Name() string { return t.name }

func (t *Table[K, R]) Find(key K) (*R, bool) {
	r, ok := t.rows[key]
	return r, ok
}

func (t *Table[K, R]) Has(key K) bool {
	_, ok := t.rows[key]
	return ok
}

// Insert adds a row under key. Inserting over an existing key replaces the
// row and is journaled as an update.
func (t *Table[K, R]) Insert(key K, row *R) {
	_, existed := t.rows[key]
	t.rows[key] = row
	if t.journal != nil {
		if existed {
			t.journal.record(t.name, KindUpdate, key, row)
		} else {
			t.journal.record(t.name, KindInsert, key, row)
		}
	}
}

// Touch journals an in-place mutation of the row under key. No-op when the
// key is absent.
func (t *Table[K, R]) Touch(key K) {
	r, ok := t.rows[key]
	if !ok {
		return
	}
	if t.journal != nil {
		t.journal.record(t.name, KindUpdate, key, r)
	}
}

func (t *Table[K, R]) Delete(key K) {
	if _, ok := t.rows[key]; !ok {
		return
	}
	delete(t.rows, key)
	if t.journal != nil {
		t.journal.record(t.name, KindDelete, key, nil)
	}
}

func (t *Table[K, R]) Len() int { return len(t.rows) }

// Each visits every row. Restart by calling again; insertion order is not
// defined. The callback must not insert or delete rows of this table.
func (t *Table[K, R]) Each(fn func(K, *R)) {
	for k, r := range t.rows {
		fn(k, r)
	}
}

// Keys returns a snapshot of the current key set, for delete-while-scanning
// passes.
func (t *Table[K, R]) Keys() []K {
	out := make([]K, 0, len(t.rows))
	for k := range t.rows {
		out = append(out, k)
	}
	return out
}

// Seq hands out table row ids. One shared sequence is enough: ids only need
// to be unique, not dense.
type Seq struct {
	n uint64
}

func (s *Seq) Next() uint64 {
	s.n++
	return s.n
}

// Skip advances the sequence past id, for seeding from persisted rows.
func (s *Seq) Skip(id uint64) {
	if id > s.n {
		s.n = id
	}
}
