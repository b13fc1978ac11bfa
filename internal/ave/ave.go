// Package ave implements the secondary attribute-value-entity index (§3):
// for each indexed attribute, a persistent map from value to either a
// single entity id (attributes with a uniqueness constraint, and component
// reference attributes) or a set of entity ids (every other indexed
// attribute, including non-component reference attributes). Reverse
// navigation in pull reads these maps; there is no separate reverse index.
// Every per-attribute map is a HashMap whatever the schema's
// secondary-index-map-type, so its iteration order is unspecified and no
// comparator is consulted.
package ave

import (
	"github.com/brindlewood/facts/internal/container"
	"github.com/brindlewood/facts/internal/ident"
	"github.com/brindlewood/facts/internal/schema"
	"github.com/brindlewood/facts/internal/value"
)

func idHash(id ident.ID) uint32  { return id.Hash() }
func idEqual(a, b ident.ID) bool { return a.Equal(b) }

// idSet is the entity-set shape's per-value bucket: a small persistent set
// of entity ids, backed by the same HashMap primitive as everything else.
type idSet = container.HashMap[ident.ID, struct{}]

func newIDSet() idSet { return container.NewHashMap[ident.ID, struct{}](idHash, idEqual) }

func idSetItems(s idSet) []ident.ID {
	out := make([]ident.ID, 0, s.Len())
	s.Range(func(id ident.ID, _ struct{}) bool {
		out = append(out, id)
		return true
	})
	return out
}

// attrIndex is one attribute's AVE entry: exactly one of the two shapes is
// populated, selected once at construction by singleEntityShape (unique
// flags the single-entity shape, not only uniqueness).
type attrIndex struct {
	unique bool
	single container.HashMap[value.Value, ident.ID]
	multi  container.HashMap[value.Value, idSet]
}

func newAttrIndex(unique bool) attrIndex {
	if unique {
		return attrIndex{unique: true, single: container.NewHashMap[value.Value, ident.ID](value.Hash, value.Equal)}
	}
	return attrIndex{unique: false, multi: container.NewHashMap[value.Value, idSet](value.Hash, value.Equal)}
}

// Index is the immutable collection of per-attribute AVE maps.
type Index struct {
	byAttr container.HashMap[string, attrIndex]
	sch    *schema.Schema
}

func attrHash(s string) uint32  { return fnv32(s) }
func attrEqual(a, b string) bool { return a == b }

func fnv32(s string) uint32 {
	const offset32 = 2166136261
	const prime32 = 16777619
	h := uint32(offset32)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime32
	}
	return h
}

// New builds an empty Index compiled against sch.
func New(sch *schema.Schema) Index {
	return Index{byAttr: container.NewHashMap[string, attrIndex](attrHash, attrEqual), sch: sch}
}

// singleEntityShape reports whether attr uses the single-entity (value ->
// one identifier) AVE shape: uniqueness-constrained attributes and
// component reference attributes both do (§3: "single-entity shape (for
// unique attributes and component reference attributes)"); every other
// indexed attribute uses the entity-set shape.
func singleEntityShape(sch *schema.Schema, attr string) bool {
	return sch != nil && (sch.IsUnique(attr) || sch.IsComponent(attr))
}

func (ix Index) attrIndexOf(attr string) attrIndex {
	ai, ok := ix.byAttr.Get(attr)
	if ok {
		return ai
	}
	return newAttrIndex(singleEntityShape(ix.sch, attr))
}

// IsUnique reports whether attr uses the single-entity AVE shape.
func (ix Index) IsUnique(attr string) bool {
	if ai, ok := ix.byAttr.Get(attr); ok {
		return ai.unique
	}
	return singleEntityShape(ix.sch, attr)
}

// Lookup resolves (attr, v) to the one entity id recorded for it, for
// single-entity-shape attributes (unique or component). ok is false if attr
// uses the entity-set shape or v is unmapped.
func (ix Index) Lookup(attr string, v value.Value) (ident.ID, bool) {
	ai, ok := ix.byAttr.Get(attr)
	if !ok || !ai.unique {
		return ident.ID{}, false
	}
	return ai.single.Get(v)
}

// LookupSet resolves (attr, v) to every entity id recorded for it, for
// non-unique indexed attributes (including reverse navigation over
// reference attributes).
func (ix Index) LookupSet(attr string, v value.Value) []ident.ID {
	ai, ok := ix.byAttr.Get(attr)
	if !ok {
		return nil
	}
	if ai.unique {
		if id, found := ai.single.Get(v); found {
			return []ident.ID{id}
		}
		return nil
	}
	set, found := ai.multi.Get(v)
	if !found {
		return nil
	}
	return idSetItems(set)
}

// Add records that id holds v for attr. For the unique shape this
// overwrites any prior occupant of v (callers must have already enforced
// the unique-conflict rule during validation, §4.6); for the entity-set
// shape it inserts id into v's bucket.
func (ix Index) Add(attr string, v value.Value, id ident.ID) Index {
	ai := ix.attrIndexOf(attr)
	if ai.unique {
		ai.single = ai.single.Set(v, id)
	} else {
		set, ok := ai.multi.Get(v)
		if !ok {
			set = newIDSet()
		}
		set = set.Set(id, struct{}{})
		ai.multi = ai.multi.Set(v, set)
	}
	out := ix
	out.byAttr = ix.byAttr.Set(attr, ai)
	return out
}

// Remove un-records that id held v for attr.
func (ix Index) Remove(attr string, v value.Value, id ident.ID) Index {
	ai, ok := ix.byAttr.Get(attr)
	if !ok {
		return ix
	}
	if ai.unique {
		if cur, found := ai.single.Get(v); found && cur.Equal(id) {
			ai.single = ai.single.Delete(v)
		}
	} else {
		set, found := ai.multi.Get(v)
		if !found {
			return ix
		}
		set = set.Delete(id)
		if set.Len() == 0 {
			ai.multi = ai.multi.Delete(v)
		} else {
			ai.multi = ai.multi.Set(v, set)
		}
	}
	out := ix
	out.byAttr = ix.byAttr.Set(attr, ai)
	return out
}

// RemoveEntity drops every occurrence of id across every attribute's AVE
// entry that currently points at it for value v (used by entity
// retraction, which must clear the AVE side of each attribute it held).
func (ix Index) RemoveEntity(attr string, v value.Value, id ident.ID) Index {
	return ix.Remove(attr, v, id)
}
