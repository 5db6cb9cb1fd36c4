package value

// maxLoad is the load-factor cap; exceeding it on Set doubles capacity and
// rehashes. Matches original_source/table.c's TABLE_MAX_LOAD.
const maxLoad = 0.75

// entry's live/tombstone/empty state is carried entirely by key/value per
// spec.md §4.C: key=null,value=null is empty; key=null,value=true is
// tombstone; key!=null is live.
type entry struct {
	key   Value
	value Value
}

// Table is an open-addressed, linear-probing hash table keyed by Value, used
// both as the interned-string set and as the backing store for globals and
// Dict objects. Grounded on original_source/table.c's findEntry/tableSet/
// tableGet/tableDelete/adjustCapacity, generalized from ObjString*-only keys
// to arbitrary hashable Values per spec.md §4.C.
type Table struct {
	entries []entry
	count   int // live entries + tombstones, used against maxLoad
	live    int // live entries only
}

func isEmptyEntry(e entry) bool { return e.key.IsNull() && e.value.IsNull() }
func isTombstone(e entry) bool  { return e.key.IsNull() && e.value == True }
func isLiveEntry(e entry) bool  { return !e.key.IsNull() }

// Len reports the number of live (non-tombstone) entries.
func (t *Table) Len() int { return t.live }

func (t *Table) findEntry(entries []entry, key Value) int {
	hash, _ := key.Hash()
	capacity := uint32(len(entries))
	index := hash & (capacity - 1)
	tombstone := -1
	for {
		e := &entries[index]
		switch {
		case isEmptyEntry(*e):
			if tombstone != -1 {
				return tombstone
			}
			return int(index)
		case isTombstone(*e):
			if tombstone == -1 {
				tombstone = int(index)
			}
		case isLiveEntry(*e) && e.key.Equal(key):
			return int(index)
		}
		index = (index + 1) & (capacity - 1)
	}
}

func (t *Table) adjustCapacity(capacity int) {
	entries := make([]entry, capacity)
	for i := range entries {
		entries[i] = entry{key: Null, value: Null}
	}
	t.live = 0
	for _, old := range t.entries {
		if !isLiveEntry(old) {
			continue
		}
		dest := t.findEntry(entries, old.key)
		entries[dest] = entry{key: old.key, value: old.value}
		t.live++
	}
	t.entries = entries
	t.count = t.live
}

// Get returns the value stored for key, and whether key was present.
func (t *Table) Get(key Value) (Value, bool) {
	if len(t.entries) == 0 {
		return Null, false
	}
	idx := t.findEntry(t.entries, key)
	e := &t.entries[idx]
	if !isLiveEntry(*e) {
		return Null, false
	}
	return e.value, true
}

// Set stores value under key, growing the table if the load factor would
// exceed maxLoad. Returns true iff key was not already present.
func (t *Table) Set(key Value, val Value) bool {
	if float64(t.count+1) > float64(len(t.entries))*maxLoad {
		capacity := 8
		if len(t.entries) > 0 {
			capacity = len(t.entries) * 2
		}
		t.adjustCapacity(capacity)
	}
	idx := t.findEntry(t.entries, key)
	e := &t.entries[idx]
	isNew := !isLiveEntry(*e)
	if isNew && isEmptyEntry(*e) {
		t.count++
	}
	t.entries[idx] = entry{key: key, value: val}
	if isNew {
		t.live++
	}
	return isNew
}

// Delete removes key, leaving a tombstone so later probe chains stay intact.
// Reports whether key was present.
func (t *Table) Delete(key Value) bool {
	if len(t.entries) == 0 {
		return false
	}
	idx := t.findEntry(t.entries, key)
	e := &t.entries[idx]
	if !isLiveEntry(*e) {
		return false
	}
	*e = entry{key: Null, value: True}
	t.live--
	return true
}

// AddAll copies every live entry of src into t.
func (t *Table) AddAll(src *Table) {
	for _, e := range src.entries {
		if isLiveEntry(e) {
			t.Set(e.key, e.value)
		}
	}
}

// FindString looks up an interned String by content, used only against the
// Heap's intern table: findEntry's identity-based Equal can't match two
// distinct-but-equal-content strings, so lookup-before-intern needs this
// separate byte-for-byte comparison.
func (t *Table) FindString(chars string, hash uint32) (*String, bool) {
	if len(t.entries) == 0 {
		return nil, false
	}
	capacity := uint32(len(t.entries))
	index := hash & (capacity - 1)
	for {
		e := &t.entries[index]
		switch {
		case isEmptyEntry(*e):
			return nil, false
		case isLiveEntry(*e):
			if s, ok := e.key.AsObj().AsString(); ok && s.Hash == hash && s.Chars == chars {
				return s, true
			}
		}
		index = (index + 1) & (capacity - 1)
	}
}

// Each calls fn for every live entry, in table storage order.
func (t *Table) Each(fn func(key, value Value)) {
	for _, e := range t.entries {
		if isLiveEntry(e) {
			fn(e.key, e.value)
		}
	}
}
