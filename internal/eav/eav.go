// Package eav implements the primary entity-attribute-value index (§3):
// a persistent map from entity id to a persistent map of attribute name
// to value (or value set, for cardinality-many attributes), plus the
// entity-retraction tombstone set.
package eav

import (
	"github.com/brindlewood/facts/internal/container"
	"github.com/brindlewood/facts/internal/ident"
	"github.com/brindlewood/facts/internal/schema"
	"github.com/brindlewood/facts/internal/value"
)

// Slot holds one attribute's current value on one entity: either a single
// Value (cardinality-one) or a ValueSet (cardinality-many). Exactly one of
// the two is meaningful, selected by Many.
type Slot struct {
	Many   bool
	One    value.Value
	Set    container.ValueSet
}

// entityMap is the persistent attribute->Slot map for a single entity.
type entityMap = container.HashMap[string, Slot]

// Index is the immutable primary store: entity id -> attribute -> value.
// Every mutating method returns a new Index sharing structure with the
// receiver, per the engine-wide immutable-value-as-of-a-transaction model.
type Index struct {
	entities container.HashMap[ident.ID, entityMap]
	retired  container.HashMap[ident.ID, struct{}]
	sch      *schema.Schema
}

func idHash(id ident.ID) uint32        { return id.Hash() }
func idEqual(a, b ident.ID) bool       { return a.Equal(b) }
func attrHash(s string) uint32         { return fnv32(s) }
func attrEqual(a, b string) bool       { return a == b }

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
	return Index{
		entities: container.NewHashMap[ident.ID, entityMap](idHash, idEqual),
		retired:  container.NewHashMap[ident.ID, struct{}](idHash, idEqual),
		sch:      sch,
	}
}

// Schema returns the compiled schema this Index was built against.
func (ix Index) Schema() *schema.Schema { return ix.sch }

// Exists reports whether id has any recorded attributes and has not been
// retracted.
func (ix Index) Exists(id ident.ID) bool {
	if ix.IsRetired(id) {
		return false
	}
	_, ok := ix.entities.Get(id)
	return ok
}

// IsRetired reports whether id has been entity-retracted (§4.3:
// retracted-entity-conflict guards future use of such an id).
func (ix Index) IsRetired(id ident.ID) bool {
	_, ok := ix.retired.Get(id)
	return ok
}

// Get returns the current Slot for (id, attr), or the zero Slot and false
// if unset.
func (ix Index) Get(id ident.ID, attr string) (Slot, bool) {
	em, ok := ix.entities.Get(id)
	if !ok {
		return Slot{}, false
	}
	return em.Get(attr)
}

// Entity returns every (attribute, Slot) pair recorded for id.
func (ix Index) Entity(id ident.ID) map[string]Slot {
	em, ok := ix.entities.Get(id)
	if !ok {
		return nil
	}
	out := make(map[string]Slot, em.Len())
	em.Range(func(attr string, s Slot) bool {
		out[attr] = s
		return true
	})
	return out
}

func (ix Index) entityOf(id ident.ID) entityMap {
	em, ok := ix.entities.Get(id)
	if ok {
		return em
	}
	return container.NewHashMap[string, Slot](attrHash, attrEqual)
}

// SetOne assigns a cardinality-one value for (id, attr).
func (ix Index) SetOne(id ident.ID, attr string, v value.Value) Index {
	em := ix.entityOf(id).Set(attr, Slot{One: v})
	out := ix
	out.entities = ix.entities.Set(id, em)
	return out
}

// AddMany inserts v into the cardinality-many set for (id, attr), creating
// the set (of the schema-selected container kind) if absent.
func (ix Index) AddMany(id ident.ID, attr string, v value.Value) Index {
	em := ix.entityOf(id)
	slot, ok := em.Get(attr)
	if !ok || !slot.Many {
		kind := container.Unordered
		var cmp container.Comparator
		if ix.sch != nil {
			kind = ix.sch.ContainerSetKind(attr)
			cmp = ix.sch.ContainerComparator(attr)
		}
		slot = Slot{Many: true, Set: container.NewValueSet(kind, cmp)}
	}
	slot.Set = slot.Set.Add(v)
	em = em.Set(attr, slot)
	out := ix
	out.entities = ix.entities.Set(id, em)
	return out
}

// RemoveMany removes v from the cardinality-many set for (id, attr). A
// no-op if the value was never present.
func (ix Index) RemoveMany(id ident.ID, attr string, v value.Value) Index {
	em, ok := ix.entities.Get(id)
	if !ok {
		return ix
	}
	slot, ok := em.Get(attr)
	if !ok || !slot.Many {
		return ix
	}
	slot.Set = slot.Set.Remove(v)
	if slot.Set.Len() == 0 {
		em = em.Delete(attr)
	} else {
		em = em.Set(attr, slot)
	}
	out := ix
	if em.Len() == 0 {
		out.entities = ix.entities.Delete(id)
	} else {
		out.entities = ix.entities.Set(id, em)
	}
	return out
}

// RetractAttr removes the attribute entirely from id (§4.2/§4.7: a
// cardinality-one retraction with no value, or clearing a many-set down to
// empty, removes the slot rather than leaving an empty one behind).
func (ix Index) RetractAttr(id ident.ID, attr string) Index {
	em, ok := ix.entities.Get(id)
	if !ok {
		return ix
	}
	em = em.Delete(attr)
	out := ix
	if em.Len() == 0 {
		out.entities = ix.entities.Delete(id)
	} else {
		out.entities = ix.entities.Set(id, em)
	}
	return out
}

// RetractEntity removes every attribute on id and marks it retired, per
// §4.7's entity-retraction pass (which must run before any attribute-value
// retraction or assertion pass in the same transaction).
func (ix Index) RetractEntity(id ident.ID) Index {
	out := ix
	out.entities = ix.entities.Delete(id)
	out.retired = ix.retired.Set(id, struct{}{})
	return out
}

// Datom is one (entity, attribute, value) fact, the unit Datoms() iterates.
type Datom struct {
	E ident.ID
	A string
	V value.Value
}

// Datoms returns every fact currently recorded, flattening cardinality-many
// slots into one Datom per member value. Order is unspecified (entities and
// attributes are HAMT-backed); callers needing a stable order should sort
// the result.
func (ix Index) Datoms() []Datom {
	var out []Datom
	ix.entities.Range(func(id ident.ID, em entityMap) bool {
		em.Range(func(attr string, slot Slot) bool {
			if slot.Many {
				for _, v := range slot.Set.Items() {
					out = append(out, Datom{E: id, A: attr, V: v})
				}
			} else {
				out = append(out, Datom{E: id, A: attr, V: slot.One})
			}
			return true
		})
		return true
	})
	return out
}
