package txn

import (
	"fmt"

	"github.com/brindlewood/facts/internal/ident"
	"github.com/brindlewood/facts/internal/schema"
)

// expand performs the nested-map expansion of §4.5: breadth-first to a
// fixed point, lifting any map value under a reference attribute into its
// own top-level map form. Non-component nested maps without a
// uniqueness-constrained attribute fail with invalid-nested-entity.
func expand(sch *schema.Schema, forms []Form) ([]Form, error) {
	counter := 0
	queue := append([]Form(nil), forms...)
	var out []Form

	for len(queue) > 0 {
		var next []Form
		for _, f := range queue {
			lifted, spawned, err := expandForm(sch, &counter, f)
			if err != nil {
				return nil, err
			}
			out = append(out, lifted)
			next = append(next, spawned...)
		}
		queue = next
	}
	return out, nil
}

func freshPlaceholder(counter *int) ident.ID {
	*counter++
	return ident.Temp(fmt.Sprintf("auto-%d", *counter))
}

func expandForm(sch *schema.Schema, counter *int, f Form) (Form, []Form, error) {
	if !f.isMap {
		if !f.HasValue {
			return f, nil, nil
		}
		rv, spawned, err := expandValue(sch, counter, f.Attr, f.Value, &f)
		if err != nil {
			return Form{}, nil, err
		}
		f.Value = rv
		return f, spawned, nil
	}

	var spawned []Form
	for attr, rv := range f.Fields {
		nrv, more, err := expandValue(sch, counter, attr, rv, &f)
		if err != nil {
			return Form{}, nil, err
		}
		f.Fields[attr] = nrv
		spawned = append(spawned, more...)
	}
	return f, spawned, nil
}

// expandValue lifts any nested map(s) found in rv when attr is a reference
// attribute, returning the (possibly rewritten) value plus any new
// top-level map forms it spawned.
func expandValue(sch *schema.Schema, counter *int, attr string, rv RawValue, owner *Form) (RawValue, []Form, error) {
	if sch == nil || !sch.IsRef(attr) {
		return rv, nil, nil
	}
	switch rv.Kind {
	case RawMap:
		id, spawnedForm, err := liftNestedMap(sch, counter, attr, rv, owner)
		if err != nil {
			return RawValue{}, nil, err
		}
		return RefOf(id), []Form{spawnedForm}, nil
	case RawList:
		var spawned []Form
		items := make([]RawValue, 0, len(rv.List))
		for _, elem := range rv.List {
			if elem.Kind == RawMap {
				id, spawnedForm, err := liftNestedMap(sch, counter, attr, elem, owner)
				if err != nil {
					return RawValue{}, nil, err
				}
				items = append(items, RefOf(id))
				spawned = append(spawned, spawnedForm)
				continue
			}
			items = append(items, elem)
		}
		return ListOf(items...), spawned, nil
	default:
		return rv, nil, nil
	}
}

func liftNestedMap(sch *schema.Schema, counter *int, attr string, nested RawValue, owner *Form) (ident.ID, Form, error) {
	fields := make(map[string]RawValue, len(nested.Map))
	var id ident.ID
	hasID := false
	for k, v := range nested.Map {
		if k == schema.SelfAttr {
			id = v.Ref
			hasID = true
			continue
		}
		fields[k] = v
	}

	if !sch.IsComponent(attr) {
		hasUnique := false
		for k := range fields {
			if sch.IsUniqueIdentity(k) || sch.IsUniqueValue(k) {
				hasUnique = true
				break
			}
		}
		if !hasUnique {
			return ident.ID{}, Form{}, &TxError{
				Kind:    ErrInvalidNestedEntity,
				Message: fmt.Sprintf("nested map under non-component reference attribute %q has no uniqueness-constrained attribute", attr),
				Form:    owner,
			}
		}
	}

	if !hasID {
		id = freshPlaceholder(counter)
	}

	return id, Form{isMap: true, MapOp: OpAssert, MapID: id, HasMapID: true, Fields: fields}, nil
}
