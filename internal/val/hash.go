package val

import (
	"math"
	"sort"

	"github.com/aledsdavies/kjq/internal/invariant"
)

// Structural hash, composed of a per-variant tag byte folded with the
// hashes of the payload via FNV-1a. Maps hash a copy of their kv-pairs
// sorted by key hash (not insertion order) so two maps built from the
// same pairs in different orders hash identically; see Map.sortedByKeyHash.
const (
	fnvOffset uint64 = 14695981039346656037
	fnvPrime  uint64 = 1099511628211
)

func hashBytes(h uint64, b []byte) uint64 {
	for _, c := range b {
		h ^= uint64(c)
		h *= fnvPrime
	}
	return h
}

func hashString(h uint64, s string) uint64 {
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= fnvPrime
	}
	return h
}

func hashUint64(h, x uint64) uint64 {
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(x >> (8 * i))
	}
	return hashBytes(h, b[:])
}

const (
	tagNull byte = iota
	tagErr
	tagNumber
	tagBool
	tagString
	tagList
	tagMap
	tagBytes
)

// Hash returns v's structural hash, computing and memoising it on first
// call. Equal values always hash equal (hash(x) == hash(y) whenever
// x == y), which is what makes Val usable as an ordered-map key.
func (v *Val) Hash() uint64 {
	if v.hashed {
		return v.hash
	}
	h := fnvOffset
	switch v.kind {
	case KindNull:
		h = hashUint64(h, uint64(tagNull))
	case KindErr:
		h = hashUint64(h, uint64(tagErr))
		h = hashString(h, v.str)
	case KindNumber:
		h = hashUint64(h, uint64(tagNumber))
		h = hashUint64(h, math.Float64bits(v.num))
	case KindBool:
		h = hashUint64(h, uint64(tagBool))
		if v.b {
			h = hashUint64(h, 1)
		} else {
			h = hashUint64(h, 0)
		}
	case KindString:
		h = hashUint64(h, uint64(tagString))
		h = hashString(h, v.str)
	case KindBytes:
		h = hashUint64(h, uint64(tagBytes))
		h = hashBytes(h, v.bytes)
	case KindList:
		h = hashUint64(h, uint64(tagList))
		h = hashUint64(h, uint64(len(v.list)))
		for _, item := range v.list {
			h = hashUint64(h, item.Hash())
		}
	case KindMap:
		h = hashUint64(h, uint64(tagMap))
		h = hashUint64(h, uint64(v.m.Len()))
		entries := v.m.sortedByKeyHash()
		invariant.Invariant(len(entries) == v.m.Len(), "map hash saw %d of %d entries", len(entries), v.m.Len())
		for _, e := range entries {
			h = hashUint64(h, e.key.Hash())
			h = hashUint64(h, e.val.Hash())
		}
	}
	v.hash = h
	v.hashed = true
	return h
}

func sortEntriesByKeyHash(entries []*entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].key.Hash() < entries[j].key.Hash()
	})
}
