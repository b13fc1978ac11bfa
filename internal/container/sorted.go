package container

import "github.com/benbjohnson/immutable"

// funcComparer adapts a plain compare function to immutable.Comparer.
type funcComparer[K any] struct {
	compare func(a, b K) int
}

func (c funcComparer[K]) Compare(a, b K) int { return c.compare(a, b) }

// SortedMap is a persistent B-tree: O(log n) get/set/delete and, via Range,
// iteration in key order. It backs "ordered-with-logarithmic-range"
// ValueSets. No range-slice, rank or nearest-key query is exposed.
type SortedMap[K, V any] struct {
	m *immutable.SortedMap[K, V]
}

// NewSortedMap builds an empty SortedMap ordered by compare.
func NewSortedMap[K, V any](compare func(a, b K) int) SortedMap[K, V] {
	return SortedMap[K, V]{m: immutable.NewSortedMap[K, V](funcComparer[K]{compare: compare})}
}

func (s SortedMap[K, V]) Len() int { return s.m.Len() }

func (s SortedMap[K, V]) Get(k K) (V, bool) { return s.m.Get(k) }

// Set returns a new SortedMap with k bound to v, sharing structure with s.
func (s SortedMap[K, V]) Set(k K, v V) SortedMap[K, V] {
	return SortedMap[K, V]{m: s.m.Set(k, v)}
}

// Delete returns a new SortedMap with k removed, sharing structure with s.
func (s SortedMap[K, V]) Delete(k K) SortedMap[K, V] {
	return SortedMap[K, V]{m: s.m.Delete(k)}
}

// Range calls fn for every (key, value) pair in ascending key order,
// stopping early if fn returns false. It always starts at the smallest key.
func (s SortedMap[K, V]) Range(fn func(K, V) bool) {
	itr := s.m.Iterator()
	for !itr.Done() {
		k, v := itr.Next()
		if !fn(k, v) {
			return
		}
	}
}
