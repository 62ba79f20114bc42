package val

// Map is an insertion-ordered associative container keyed by an arbitrary
// Val (including nested maps/lists). Insert overwrites in place, preserving
// the key's original position; iteration and JSON serialisation walk the
// entries in insertion order. Equality and the total order defined in
// compare.go instead use the *sorted* key/value sequence, so two maps
// built in different insertion orders still compare and hash equal.
//
// Lookup is by structural hash with a collision chain, the same approach
// a name-keyed registry would use for string keys, generalised here to
// arbitrary Val keys.
type Map struct {
	order   []*entry
	buckets map[uint64][]*entry
}

type entry struct {
	key *Val
	val *Val
}

// NewOrderedMap returns an empty ordered map.
func NewOrderedMap() *Map {
	return &Map{buckets: make(map[uint64][]*entry)}
}

// Len reports the number of live entries.
func (m *Map) Len() int { return len(m.order) }

func (m *Map) find(k *Val) *entry {
	h := k.Hash()
	for _, e := range m.buckets[h] {
		if e.key.Equal(k) {
			return e
		}
	}
	return nil
}

// Insert stores k -> v, overwriting v in place if k is already present
// (the key's insertion position is unchanged).
func (m *Map) Insert(k, v *Val) {
	if e := m.find(k); e != nil {
		e.val = v
		return
	}
	e := &entry{key: k, val: v}
	m.order = append(m.order, e)
	h := k.Hash()
	m.buckets[h] = append(m.buckets[h], e)
}

// Get looks up k, reporting whether it was present.
func (m *Map) Get(k *Val) (*Val, bool) {
	if e := m.find(k); e != nil {
		return e.val, true
	}
	return nil, false
}

// Delete removes k if present, reporting whether anything was removed.
func (m *Map) Delete(k *Val) bool {
	h := k.Hash()
	chain := m.buckets[h]
	for i, e := range chain {
		if e.key.Equal(k) {
			m.buckets[h] = append(chain[:i], chain[i+1:]...)
			for j, oe := range m.order {
				if oe == e {
					m.order = append(m.order[:j], m.order[j+1:]...)
					break
				}
			}
			return true
		}
	}
	return false
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []*Val {
	out := make([]*Val, len(m.order))
	for i, e := range m.order {
		out[i] = e.key
	}
	return out
}

// Values returns the values in insertion order.
func (m *Map) Values() []*Val {
	out := make([]*Val, len(m.order))
	for i, e := range m.order {
		out[i] = e.val
	}
	return out
}

// Items returns the key/value pairs in insertion order.
func (m *Map) Items() [][2]*Val {
	out := make([][2]*Val, len(m.order))
	for i, e := range m.order {
		out[i] = [2]*Val{e.key, e.val}
	}
	return out
}

// Clone returns a shallow copy: same key/value pointers, independent
// ordering and bucket structures so the copy can be mutated freely.
func (m *Map) Clone() *Map {
	out := NewOrderedMap()
	for _, e := range m.order {
		out.Insert(e.key, e.val)
	}
	return out
}

// sortedByKeyOrder returns the live entries sorted by key using the total
// order defined in compare.go. Used by Compare/Equal, where map identity
// must not depend on insertion order.
func (m *Map) sortedByKeyOrder() []*entry {
	out := make([]*entry, len(m.order))
	copy(out, m.order)
	sortEntriesByKeyOrder(out)
	return out
}

// sortedByKeyHash returns the live entries sorted by key hash. Used by
// Hash: two maps built from the same pairs in different insertion orders
// must hash identically, and sorting by hash (rather than by the total
// order, which would recursively Compare keys) is the cheapest stable
// ordering.
func (m *Map) sortedByKeyHash() []*entry {
	out := make([]*entry, len(m.order))
	copy(out, m.order)
	sortEntriesByKeyHash(out)
	return out
}
