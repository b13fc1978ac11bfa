// Package schema compiles and validates the attribute schema (§4.1):
// per-attribute cardinality, reference/component-ness, uniqueness, and
// container kinds, plus the compiled lookup sets the rest of the engine
// consults on every transaction and pull.
package schema

import (
	"fmt"
	"strings"

	"github.com/brindlewood/facts/internal/container"
	"github.com/brindlewood/facts/internal/value"
)

// SelfAttr is the reserved attribute name under which every entity map
// carries its own identifier (§3: "Each entity map includes its own
// identifier under a reserved key").
const SelfAttr = "db/id"

// Cardinality ∈ {one, many}.
type Cardinality uint8

const (
	CardinalityOne Cardinality = iota
	CardinalityMany
)

// Unique ∈ {none, identity, value}.
type Unique uint8

const (
	UniqueNone Unique = iota
	UniqueIdentity
	UniqueValue
)

// IndexKind ∈ {none, hash, ordered, ordered-with-logarithmic-range}.
type IndexKind uint8

const (
	IndexNone IndexKind = iota
	IndexHash
	IndexOrdered
	IndexOrderedLogRange
)

// ContainerKind ∈ {unordered, ordered, ordered-with-logarithmic-range}.
type ContainerKind uint8

const (
	ContainerUnordered ContainerKind = iota
	ContainerOrdered
	ContainerOrderedLogRange
)

// Property names the engine's compiled, per-attribute facts, for the
// generic check-attr(db, attribute, property) primitive named in §6.
type Property string

const (
	PropCardinality    Property = "cardinality"
	PropIsRef          Property = "is-reference"
	PropIsComponent    Property = "is-component"
	PropUnique         Property = "unique"
	PropIndexKind      Property = "secondary-index-map-type"
	PropContainerKind  Property = "many-value-container-type"
	PropIsIndexed      Property = "indexed"
)

// AttrDef is one attribute's declared properties, as authored by a caller
// of Create/New.
type AttrDef struct {
	Cardinality         Cardinality
	IsRef               bool
	IsComponent         bool
	Unique              Unique
	IndexKind           IndexKind
	IndexComparator     container.Comparator
	ContainerKind       ContainerKind
	ContainerComparator container.Comparator
}

// Schema is the immutable, compiled result of validating a set of AttrDefs.
type Schema struct {
	defs map[string]AttrDef

	cardinalityMany map[string]bool
	refAttrs        map[string]bool
	componentAttrs  map[string]bool
	uniqueIdentity  map[string]bool
	uniqueValue     map[string]bool
	indexed         map[string]bool
	names           []string
}

// New validates defs and compiles a Schema. Errors here surface as
// invalid-schema (§7): no database is produced.
func New(defs map[string]AttrDef) (*Schema, error) {
	s := &Schema{
		defs:            make(map[string]AttrDef, len(defs)),
		cardinalityMany: map[string]bool{},
		refAttrs:        map[string]bool{},
		componentAttrs:  map[string]bool{},
		uniqueIdentity:  map[string]bool{},
		uniqueValue:     map[string]bool{},
		indexed:         map[string]bool{},
	}

	for name, def := range defs {
		if err := validateName(name); err != nil {
			return nil, err
		}
		if def.Unique != UniqueNone && def.Cardinality != CardinalityOne {
			return nil, fmt.Errorf("invalid-schema: attribute %q: unique attributes must be cardinality-one", name)
		}
		if def.IsComponent && !def.IsRef {
			return nil, fmt.Errorf("invalid-schema: attribute %q: is-component requires is-reference", name)
		}
		if def.IsRef && def.ContainerKind != ContainerUnordered {
			return nil, fmt.Errorf("invalid-schema: attribute %q: many-value-container-type must be unordered for reference attributes", name)
		}
		if def.IndexKind == IndexOrderedLogRange && def.IndexComparator == nil {
			def.IndexComparator = value.Compare
		}
		if def.ContainerKind == ContainerOrderedLogRange && def.ContainerComparator == nil {
			def.ContainerComparator = value.Compare
		}

		s.defs[name] = def
		s.names = append(s.names, name)

		if def.Cardinality == CardinalityMany {
			s.cardinalityMany[name] = true
		}
		if def.IsRef {
			s.refAttrs[name] = true
		}
		if def.IsComponent {
			s.componentAttrs[name] = true
		}
		switch def.Unique {
		case UniqueIdentity:
			s.uniqueIdentity[name] = true
		case UniqueValue:
			s.uniqueValue[name] = true
		}
		if def.IsRef || def.Unique != UniqueNone || def.IndexKind != IndexNone {
			s.indexed[name] = true
		}
	}

	return s, nil
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("invalid-schema: attribute name must not be empty")
	}
	if name == SelfAttr {
		return fmt.Errorf("invalid-schema: attribute name %q is reserved", name)
	}
	local := name
	if idx := strings.LastIndexByte(name, '/'); idx >= 0 {
		local = name[idx+1:]
	}
	if strings.HasPrefix(local, "_") {
		return fmt.Errorf("invalid-schema: attribute name %q is in the reserved reverse-navigation namespace (leading underscore)", name)
	}
	return nil
}

// Attributes enumerates every declared attribute name.
func (s *Schema) Attributes() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

func (s *Schema) def(attr string) AttrDef { return s.defs[attr] }

func (s *Schema) Cardinality(attr string) Cardinality { return s.def(attr).Cardinality }
func (s *Schema) IsMany(attr string) bool             { return s.cardinalityMany[attr] }
func (s *Schema) IsRef(attr string) bool              { return s.refAttrs[attr] }
func (s *Schema) IsComponent(attr string) bool         { return s.componentAttrs[attr] }
func (s *Schema) Unique(attr string) Unique            { return s.def(attr).Unique }
func (s *Schema) IsUniqueIdentity(attr string) bool     { return s.uniqueIdentity[attr] }
func (s *Schema) IsUniqueValue(attr string) bool        { return s.uniqueValue[attr] }
func (s *Schema) IsUnique(attr string) bool             { return s.uniqueIdentity[attr] || s.uniqueValue[attr] }
func (s *Schema) IndexKind(attr string) IndexKind       { return s.def(attr).IndexKind }
func (s *Schema) IndexComparator(attr string) container.Comparator {
	return s.def(attr).IndexComparator
}
func (s *Schema) ContainerKind(attr string) ContainerKind { return s.def(attr).ContainerKind }
func (s *Schema) ContainerComparator(attr string) container.Comparator {
	return s.def(attr).ContainerComparator
}
func (s *Schema) IsIndexed(attr string) bool { return s.indexed[attr] }

// ContainerSetKind maps a schema ContainerKind to the container package's
// SetKind (the schema and container packages intentionally keep separate
// enums so container has no dependency on schema).
func (s *Schema) ContainerSetKind(attr string) container.SetKind {
	switch s.ContainerKind(attr) {
	case ContainerOrdered:
		return container.Ordered
	case ContainerOrderedLogRange:
		return container.OrderedLogRange
	default:
		return container.Unordered
	}
}

// Check implements the generic check-attr(db, attribute, property)
// primitive named in §6, returning the compiled property value as `any`.
func (s *Schema) Check(attr string, prop Property) any {
	switch prop {
	case PropCardinality:
		return s.Cardinality(attr)
	case PropIsRef:
		return s.IsRef(attr)
	case PropIsComponent:
		return s.IsComponent(attr)
	case PropUnique:
		return s.Unique(attr)
	case PropIndexKind:
		return s.IndexKind(attr)
	case PropContainerKind:
		return s.ContainerKind(attr)
	case PropIsIndexed:
		return s.IsIndexed(attr)
	default:
		return nil
	}
}
