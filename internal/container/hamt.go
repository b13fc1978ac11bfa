// Package container adapts the persistent/shared-structure collections
// named in the design notes (hash-array-mapped tries for unordered maps,
// B-trees for ordered-with-logarithmic-range maps, insertion-ordered maps
// for plain "ordered" containers) to the two indexes' needs. The EAV index
// and both AVE shapes are always HashMaps; only cardinality-many value sets
// (ValueSet) pick one of the three container kinds from the schema. The
// schema's secondary-index-map-type does not change how AVE is stored.
package container

import "github.com/benbjohnson/immutable"

// funcHasher adapts a pair of plain functions to immutable.Hasher, so
// callers need not declare a named type per key.
type funcHasher[K any] struct {
	hash  func(K) uint32
	equal func(a, b K) bool
}

func (h funcHasher[K]) Hash(v K) uint32      { return h.hash(v) }
func (h funcHasher[K]) Equal(a, b K) bool    { return h.equal(a, b) }

// HashMap is a persistent hash-array-mapped trie: O(1)-amortized get/set,
// no ordering guarantee. Backs the EAV index, every AVE secondary map
// whatever its secondary-index-map-type, and "unordered" cardinality-many
// value containers.
type HashMap[K, V any] struct {
	m *immutable.Map[K, V]
}

// NewHashMap builds an empty HashMap keyed by K, using hash/equal to
// implement the HAMT's hashing contract (K need not be Go-`comparable`;
// ident.ID and value.Value both carry slice/map-bearing fields that
// aren't, so an explicit hasher is required rather than a builtin one).
func NewHashMap[K, V any](hash func(K) uint32, equal func(a, b K) bool) HashMap[K, V] {
	return HashMap[K, V]{m: immutable.NewMap[K, V](funcHasher[K]{hash: hash, equal: equal})}
}

func (h HashMap[K, V]) Len() int { return h.m.Len() }

func (h HashMap[K, V]) Get(k K) (V, bool) { return h.m.Get(k) }

// Set returns a new HashMap with k bound to v, sharing structure with h.
func (h HashMap[K, V]) Set(k K, v V) HashMap[K, V] {
	return HashMap[K, V]{m: h.m.Set(k, v)}
}

// Delete returns a new HashMap with k removed, sharing structure with h.
func (h HashMap[K, V]) Delete(k K) HashMap[K, V] {
	return HashMap[K, V]{m: h.m.Delete(k)}
}

// Range calls fn for every (key, value) pair in unspecified order, stopping
// early if fn returns false.
func (h HashMap[K, V]) Range(fn func(K, V) bool) {
	itr := h.m.Iterator()
	for !itr.Done() {
		k, v := itr.Next()
		if !fn(k, v) {
			return
		}
	}
}
