package container

import "github.com/brindlewood/facts/internal/value"

// SetKind mirrors the schema's many-value-container-type enumeration,
// selecting which persistent backing a ValueSet uses. The AVE package does
// not use it; its secondary maps are always HashMaps.
type SetKind uint8

const (
	Unordered SetKind = iota
	Ordered
	OrderedLogRange
)

// Comparator is a pluggable value order for OrderedLogRange containers.
// A nil Comparator falls back to value.Compare.
type Comparator func(a, b value.Value) int

// ValueSet is the set-of-distinct-values representation §3 requires for
// every cardinality-many attribute, backed by one of the three container
// kinds a schema may request for that attribute.
type ValueSet struct {
	kind      SetKind
	hashed    HashMap[value.Value, struct{}]
	sorted    SortedMap[value.Value, struct{}]
	insertion InsertionMap[string, value.Value]
}

// NewValueSet builds an empty ValueSet of the given kind. cmp is only
// consulted for OrderedLogRange.
func NewValueSet(kind SetKind, cmp Comparator) ValueSet {
	switch kind {
	case Ordered:
		return ValueSet{kind: kind, insertion: NewInsertionMap[string, value.Value]()}
	case OrderedLogRange:
		compare := func(a, b value.Value) int { return value.Compare(a, b) }
		if cmp != nil {
			compare = cmp
		}
		return ValueSet{kind: kind, sorted: NewSortedMap[value.Value, struct{}](compare)}
	default:
		return ValueSet{kind: Unordered, hashed: NewHashMap[value.Value, struct{}](value.Hash, value.Equal)}
	}
}

func (vs ValueSet) Kind() SetKind { return vs.kind }

func (vs ValueSet) Len() int {
	switch vs.kind {
	case Ordered:
		return vs.insertion.Len()
	case OrderedLogRange:
		return vs.sorted.Len()
	default:
		return vs.hashed.Len()
	}
}

func (vs ValueSet) Contains(v value.Value) bool {
	switch vs.kind {
	case Ordered:
		_, ok := vs.insertion.Get(value.CanonicalKey(v))
		return ok
	case OrderedLogRange:
		_, ok := vs.sorted.Get(v)
		return ok
	default:
		_, ok := vs.hashed.Get(v)
		return ok
	}
}

// Add returns a new ValueSet with v present (a no-op, returning vs
// unchanged in content, if v is already a member).
func (vs ValueSet) Add(v value.Value) ValueSet {
	out := vs
	switch vs.kind {
	case Ordered:
		out.insertion = vs.insertion.Set(value.CanonicalKey(v), v)
	case OrderedLogRange:
		out.sorted = vs.sorted.Set(v, struct{}{})
	default:
		out.hashed = vs.hashed.Set(v, struct{}{})
	}
	return out
}

// Remove returns a new ValueSet without v.
func (vs ValueSet) Remove(v value.Value) ValueSet {
	out := vs
	switch vs.kind {
	case Ordered:
		out.insertion = vs.insertion.Delete(value.CanonicalKey(v))
	case OrderedLogRange:
		out.sorted = vs.sorted.Delete(v)
	default:
		out.hashed = vs.hashed.Delete(v)
	}
	return out
}

// Items returns every member, in the container's natural order (insertion
// order, sorted order, or unspecified hash order, per kind).
func (vs ValueSet) Items() []value.Value {
	items := make([]value.Value, 0, vs.Len())
	switch vs.kind {
	case Ordered:
		vs.insertion.Range(func(_ string, v value.Value) bool {
			items = append(items, v)
			return true
		})
	case OrderedLogRange:
		vs.sorted.Range(func(v value.Value, _ struct{}) bool {
			items = append(items, v)
			return true
		})
	default:
		vs.hashed.Range(func(v value.Value, _ struct{}) bool {
			items = append(items, v)
			return true
		})
	}
	return items
}
