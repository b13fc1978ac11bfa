package container

import "github.com/elliotchance/orderedmap/v3"

// InsertionMap preserves first-insertion order (not sorted order). It backs
// the plain "ordered" many-value-container-type, as distinct from the
// sorted, logarithmic-range SortedMap in sorted.go. AVE secondary maps do
// not use it.
//
// orderedmap.OrderedMap mutates in place rather than sharing structure, so
// every write here clones the full key sequence first. That is an explicit
// trade-off: "ordered" containers are the uncommon case (most schemas use
// the default unordered or the range-queryable sorted container), and
// per-entity attribute cardinalities are small, so the clone cost is
// bounded by how many values one attribute on one entity actually holds.
type InsertionMap[K comparable, V any] struct {
	m *orderedmap.OrderedMap[K, V]
}

// NewInsertionMap builds an empty InsertionMap.
func NewInsertionMap[K comparable, V any]() InsertionMap[K, V] {
	return InsertionMap[K, V]{m: orderedmap.NewOrderedMap[K, V]()}
}

func (o InsertionMap[K, V]) Len() int {
	if o.m == nil {
		return 0
	}
	return o.m.Len()
}

func (o InsertionMap[K, V]) Get(k K) (V, bool) {
	if o.m == nil {
		var zero V
		return zero, false
	}
	return o.m.Get(k)
}

// Set returns a new InsertionMap with k bound to v. If k is new it is
// appended after every existing key; if k already exists its position is
// preserved and only its value changes.
func (o InsertionMap[K, V]) Set(k K, v V) InsertionMap[K, V] {
	clone := orderedmap.NewOrderedMap[K, V]()
	if o.m != nil {
		for key := range o.m.Keys() {
			val, _ := o.m.Get(key)
			clone.Set(key, val)
		}
	}
	clone.Set(k, v)
	return InsertionMap[K, V]{m: clone}
}

// Delete returns a new InsertionMap with k removed, preserving the
// relative order of every other key.
func (o InsertionMap[K, V]) Delete(k K) InsertionMap[K, V] {
	clone := orderedmap.NewOrderedMap[K, V]()
	if o.m != nil {
		for key := range o.m.Keys() {
			if key == k {
				continue
			}
			val, _ := o.m.Get(key)
			clone.Set(key, val)
		}
	}
	return InsertionMap[K, V]{m: clone}
}

// Range calls fn for every (key, value) pair in insertion order, stopping
// early if fn returns false.
func (o InsertionMap[K, V]) Range(fn func(K, V) bool) {
	if o.m == nil {
		return
	}
	for key := range o.m.Keys() {
		val, _ := o.m.Get(key)
		if !fn(key, val) {
			return
		}
	}
}
