// Package txn implements the declarative transaction processor (§4.4-§4.7):
// tempid/lookup-ref resolution, nested-map expansion, invariant validation,
// and the two-index update pass, orchestrated by Apply.
package txn

import (
	"fmt"

	"github.com/brindlewood/facts/internal/ident"
	"github.com/brindlewood/facts/internal/schema"
	"github.com/brindlewood/facts/internal/value"
)

// Op is a transaction form's operator.
type Op uint8

const (
	OpAssert Op = iota
	OpRetract
	OpRetractEntity
)

func (op Op) String() string {
	switch op {
	case OpAssert:
		return "assert"
	case OpRetract:
		return "retract"
	case OpRetractEntity:
		return "retract-entity"
	default:
		return "invalid-op"
	}
}

// RawKind discriminates a RawValue's shape before tempid resolution and
// nested-map expansion have run.
type RawKind uint8

const (
	RawScalar RawKind = iota
	RawRef
	RawList
	RawMap
)

// RawValue is an attribute value as it appears in a freshly-submitted
// transaction form: possibly an unresolved identifier (reference slot), a
// nested entity map awaiting expansion, or a list of either (the raw,
// pre-set-normalized form of a cardinality-many value). Scalar wraps
// everything expand.go and resolve.go have no further business with.
type RawValue struct {
	Kind   RawKind
	Scalar value.Value
	Ref    ident.ID
	List   []RawValue
	Map    map[string]RawValue
}

func ScalarOf(v value.Value) RawValue { return RawValue{Kind: RawScalar, Scalar: v} }
func RefOf(id ident.ID) RawValue      { return RawValue{Kind: RawRef, Ref: id} }
func ListOf(items ...RawValue) RawValue {
	cp := append([]RawValue(nil), items...)
	return RawValue{Kind: RawList, List: cp}
}
func MapOf(fields map[string]RawValue) RawValue {
	cp := make(map[string]RawValue, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return RawValue{Kind: RawMap, Map: cp}
}

// RV converts an arbitrary Go value into a RawValue. An ident.ID becomes a
// RawRef; a map[string]any becomes a RawMap (a nested entity, expanded
// later); a []any becomes a RawList (its elements converted recursively,
// for cardinality-many reference attributes whose members are themselves
// nested maps or identifiers); anything else goes through value.From and
// becomes a RawScalar.
func RV(x any) (RawValue, error) {
	switch t := x.(type) {
	case RawValue:
		return t, nil
	case ident.ID:
		return RefOf(t), nil
	case map[string]any:
		fields := make(map[string]RawValue, len(t))
		for k, e := range t {
			if k == "id" || k == schema.SelfAttr {
				idv, err := idFieldValue(e)
				if err != nil {
					return RawValue{}, err
				}
				fields[schema.SelfAttr] = idv
				continue
			}
			ev, err := RV(e)
			if err != nil {
				return RawValue{}, err
			}
			fields[k] = ev
		}
		return MapOf(fields), nil
	case []any:
		items := make([]RawValue, 0, len(t))
		for _, e := range t {
			ev, err := RV(e)
			if err != nil {
				return RawValue{}, err
			}
			items = append(items, ev)
		}
		return ListOf(items...), nil
	default:
		v, err := value.From(x)
		if err != nil {
			return RawValue{}, err
		}
		return ScalarOf(v), nil
	}
}

// Form is one transaction form, either list-form (operator, identifier,
// attribute, optional value) or map-form (attribute map plus optional
// self-identifier and optional operator). Build with Assert/Retract/
// RetractEntity/EntityMap rather than field literals.
type Form struct {
	isMap bool

	Op       Op
	ID       ident.ID
	Attr     string
	Value    RawValue
	HasValue bool

	MapOp    Op
	MapID    ident.ID
	HasMapID bool
	Fields   map[string]RawValue

	// wasTempID records whether the identifier slot was a temp placeholder
	// before resolution, used only to order the updater's assertion passes
	// (§4.7: list-form-with-entity-id before list-form-with-resolved-
	// placeholder before map-form).
	wasTempID bool
}

func (f Form) IsMapForm() bool { return f.isMap }

// Assert builds a list-form assertion: (assert, id, attr, value).
func Assert(id ident.ID, attr string, v any) (Form, error) {
	rv, err := RV(v)
	if err != nil {
		return Form{}, err
	}
	return Form{Op: OpAssert, ID: id, Attr: attr, Value: rv, HasValue: true}, nil
}

// Retract builds a list-form retraction with an explicit value:
// (retract, id, attr, value).
func Retract(id ident.ID, attr string, v any) (Form, error) {
	rv, err := RV(v)
	if err != nil {
		return Form{}, err
	}
	return Form{Op: OpRetract, ID: id, Attr: attr, Value: rv, HasValue: true}, nil
}

// RetractAll builds a list-form retraction with the value omitted:
// (retract, id, attr), meaning "retract whatever is currently there".
func RetractAll(id ident.ID, attr string) Form {
	return Form{Op: OpRetract, ID: id, Attr: attr, HasValue: false}
}

// RetractEntity builds (retract-entity, id).
func RetractEntity(id ident.ID) Form {
	return Form{Op: OpRetractEntity, ID: id}
}

// EntityMap builds a map-form assertion over fields. An "id" (or
// "db/id") key, if present, supplies the self-identifier: a string value
// is treated as a transaction-scoped tempid placeholder (per §8 scenario
// 1's literal {id: "t", ...} form), an ident.ID value is used verbatim
// (symbolic, assigned, lookup-ref, or temp). With no such key, one is
// assigned during resolution unless a uniqueness-identity attribute
// upserts the form onto an existing entity.
func EntityMap(fields map[string]any) (Form, error) {
	return buildMapForm(fields)
}

// EntityMapWithID builds a map-form assertion with an explicit
// self-identifier, for callers that already hold an ident.ID rather than
// embedding one under fields["id"].
func EntityMapWithID(id ident.ID, fields map[string]any) (Form, error) {
	f, err := buildMapForm(fields)
	if err != nil {
		return Form{}, err
	}
	if f.HasMapID {
		return Form{}, fmt.Errorf("fields already specify a %q key; use EntityMap or drop the explicit id", schema.SelfAttr)
	}
	f.MapID = id
	f.HasMapID = true
	return f, nil
}

func buildMapForm(fields map[string]any) (Form, error) {
	rf := make(map[string]RawValue, len(fields))
	var id ident.ID
	hasID := false
	for k, v := range fields {
		if k == "id" || k == schema.SelfAttr {
			idv, err := idFieldValue(v)
			if err != nil {
				return Form{}, err
			}
			id = idv.Ref
			hasID = true
			continue
		}
		rv, err := RV(v)
		if err != nil {
			return Form{}, fmt.Errorf("attribute %q: %w", k, err)
		}
		rf[k] = rv
	}
	return Form{isMap: true, MapOp: OpAssert, MapID: id, HasMapID: hasID, Fields: rf}, nil
}

func idFieldValue(e any) (RawValue, error) {
	switch t := e.(type) {
	case ident.ID:
		return RefOf(t), nil
	case string:
		return RefOf(ident.Temp(t)), nil
	default:
		return RawValue{}, fmt.Errorf("db/id value must be a string or ident.ID, got %T", e)
	}
}
