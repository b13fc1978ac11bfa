package txn

import (
	"fmt"

	"github.com/brindlewood/facts/internal/ident"
	"github.com/brindlewood/facts/internal/value"
)

// resolution is the working state threaded through one transaction's
// tempid/lookup-ref resolution pass (§4.4).
type resolution struct {
	nextID        int64
	bindings      map[string]ident.ID            // temp name -> resolved id
	workingUnique map[string]map[string]ident.ID // attr -> value.CanonicalKey -> id, uniqueness-identity only
}

type uniquePair struct {
	attr string
	val  value.Value
}

func filterForms(forms []Form, pred func(Form) bool) []Form {
	var out []Form
	for _, f := range forms {
		if pred(f) {
			out = append(out, f)
		}
	}
	return out
}

// resolve performs §4.4 end to end: lookup-ref resolution in identifier
// slots, tempid binding via uniqueness-identity attributes (retractions,
// then list-assertions, then map-assertions), fresh assignment of
// still-unbound placeholders, and finally substitution of every reference
// attribute's value slot.
func resolve(db Database, forms []Form) ([]Form, map[string]ident.ID, int64, error) {
	r := &resolution{
		nextID:        db.NextID,
		bindings:      map[string]ident.ID{},
		workingUnique: map[string]map[string]ident.ID{},
	}

	anon := 0
	for i := range forms {
		if forms[i].isMap && !forms[i].HasMapID {
			anon++
			forms[i].MapID = ident.Temp(fmt.Sprintf("anon-%d", anon))
			forms[i].HasMapID = true
		}
	}

	for i := range forms {
		f := &forms[i]
		if !f.isMap {
			f.wasTempID = f.ID.IsTemp()
			resolved, err := r.resolveLookupRef(db, f.ID, f)
			if err != nil {
				return nil, nil, 0, err
			}
			f.ID = resolved
			continue
		}
		f.wasTempID = f.MapID.IsTemp()
		resolved, err := r.resolveLookupRef(db, f.MapID, f)
		if err != nil {
			return nil, nil, 0, err
		}
		f.MapID = resolved
	}

	passes := [][]Form{
		filterForms(forms, func(f Form) bool { return !f.isMap && (f.Op == OpRetract || f.Op == OpRetractEntity) }),
		filterForms(forms, func(f Form) bool { return !f.isMap && f.Op == OpAssert }),
		filterForms(forms, func(f Form) bool { return f.isMap }),
	}
	for _, pass := range passes {
		for _, f := range pass {
			if err := r.bindFormTemp(db, f); err != nil {
				return nil, nil, 0, err
			}
		}
	}

	for i := range forms {
		f := &forms[i]
		if !f.isMap && f.ID.IsTemp() {
			r.bindIfUnbound(f.ID)
		}
		if f.isMap && f.MapID.IsTemp() {
			r.bindIfUnbound(f.MapID)
		}
	}

	for i := range forms {
		f := &forms[i]
		if !f.isMap && f.ID.IsTemp() {
			f.ID = r.bindings[f.ID.TempName()]
		}
		if f.isMap && f.MapID.IsTemp() {
			f.MapID = r.bindings[f.MapID.TempName()]
		}
	}

	for i := range forms {
		f := &forms[i]
		if !f.isMap {
			if f.HasValue {
				rv, err := r.resolveValueSlot(db, f.Attr, f.Value, f)
				if err != nil {
					return nil, nil, 0, err
				}
				f.Value = rv
			}
			continue
		}
		for attr, rv := range f.Fields {
			nrv, err := r.resolveValueSlot(db, attr, rv, f)
			if err != nil {
				return nil, nil, 0, err
			}
			f.Fields[attr] = nrv
		}
	}

	return forms, r.bindings, r.nextID, nil
}

// resolveLookupRef evaluates a lookup-reference identifier against the
// current (pre-transaction) AVE. Non-lookup-ref identifiers pass through
// unchanged.
func (r *resolution) resolveLookupRef(db Database, id ident.ID, f *Form) (ident.ID, error) {
	if id.Kind() != ident.KindLookupRef {
		return id, nil
	}
	attr := id.LookupAttr()
	if db.Schema == nil || !db.Schema.IsUnique(attr) {
		return ident.ID{}, newErr(ErrInvalidLookupRef, f, "attribute %q is not uniqueness-constrained", attr)
	}
	v, err := value.From(id.LookupValue())
	if err != nil {
		return ident.ID{}, newErr(ErrInvalidLookupRef, f, "lookup ref value: %s", err)
	}
	resolved, ok := db.AVE.Lookup(attr, v)
	if !ok {
		return ident.ID{}, newErr(ErrInvalidLookupRef, f, "lookup ref (%s, %v) does not resolve to any entity", attr, id.LookupValue())
	}
	return resolved, nil
}

// uniqueIdentityPairs extracts the temp identifier slot and every
// uniqueness-identity (attribute, value) pair carried by f, if any.
func uniqueIdentityPairs(sch interface {
	IsUniqueIdentity(string) bool
}, f Form) (ident.ID, []uniquePair, bool) {
	if f.isMap {
		if !f.MapID.IsTemp() {
			return ident.ID{}, nil, false
		}
		var pairs []uniquePair
		for attr, rv := range f.Fields {
			if rv.Kind == RawScalar && sch.IsUniqueIdentity(attr) {
				pairs = append(pairs, uniquePair{attr: attr, val: rv.Scalar})
			}
		}
		return f.MapID, pairs, true
	}
	if !f.ID.IsTemp() {
		return ident.ID{}, nil, false
	}
	if f.HasValue && f.Value.Kind == RawScalar && sch.IsUniqueIdentity(f.Attr) {
		return f.ID, []uniquePair{{attr: f.Attr, val: f.Value.Scalar}}, true
	}
	return f.ID, nil, true
}

func (r *resolution) recordWorking(pairs []uniquePair, id ident.ID) {
	for _, p := range pairs {
		m, ok := r.workingUnique[p.attr]
		if !ok {
			m = map[string]ident.ID{}
			r.workingUnique[p.attr] = m
		}
		m[value.CanonicalKey(p.val)] = id
	}
}

// bindFormTemp binds f's temp identifier slot (if any) per §4.4 steps
// 2 and 4: current AVE, then working AVE, then fresh assignment; records
// every uniqueness-identity pair seen into the working AVE either way.
func (r *resolution) bindFormTemp(db Database, f Form) error {
	tempID, pairs, isTemp := uniqueIdentityPairs(db.Schema, f)
	if !isTemp || len(pairs) == 0 {
		return nil
	}
	name := tempID.TempName()

	var resolvedID ident.ID
	found := false
	conflict := false
	for _, p := range pairs {
		var id ident.ID
		var ok bool
		if cur, hit := db.AVE.Lookup(p.attr, p.val); hit {
			id, ok = cur, true
		} else if m, hit := r.workingUnique[p.attr]; hit {
			id, ok = m[value.CanonicalKey(p.val)]
		}
		if !ok {
			continue
		}
		if found && !resolvedID.Equal(id) {
			conflict = true
		}
		resolvedID, found = id, true
	}
	if conflict {
		return newErr(ErrUniqueConflict, &f, "temp id %q resolves to multiple distinct entities via uniqueness-identity attributes", name)
	}

	if existing, already := r.bindings[name]; already {
		if found && !existing.Equal(resolvedID) {
			return newErr(ErrUniqueConflict, &f, "temp id %q is already bound to a different entity", name)
		}
		r.recordWorking(pairs, existing)
		return nil
	}

	if !found {
		resolvedID = ident.Assigned(r.nextID)
		r.nextID++
	}
	r.bindings[name] = resolvedID
	r.recordWorking(pairs, resolvedID)
	return nil
}

func (r *resolution) bindIfUnbound(id ident.ID) {
	name := id.TempName()
	if _, ok := r.bindings[name]; ok {
		return
	}
	r.bindings[name] = ident.Assigned(r.nextID)
	r.nextID++
}

// resolveValueSlot substitutes placeholders/lookup-refs within a reference
// attribute's value (§4.4 step 5); a plain string in a reference slot names
// a temp id, as it does under a map form's "id" key. Non-reference
// attributes pass through unchanged (the validator checks their shape
// separately).
func (r *resolution) resolveValueSlot(db Database, attr string, rv RawValue, f *Form) (RawValue, error) {
	if db.Schema == nil || !db.Schema.IsRef(attr) {
		return rv, nil
	}
	switch rv.Kind {
	case RawRef:
		resolved, err := r.resolveRefID(db, rv.Ref, f)
		if err != nil {
			return RawValue{}, err
		}
		return RefOf(resolved), nil
	case RawScalar:
		if rv.Scalar.Kind() != value.KindString {
			return RawValue{}, newErr(ErrRefResolution, f, "attribute %q: expected a reference value", attr)
		}
		resolved, err := r.resolveRefID(db, ident.Temp(rv.Scalar.Str()), f)
		if err != nil {
			return RawValue{}, err
		}
		return RefOf(resolved), nil
	case RawList:
		items := make([]RawValue, len(rv.List))
		for i, e := range rv.List {
			id := e.Ref
			switch {
			case e.Kind == RawScalar && e.Scalar.Kind() == value.KindString:
				id = ident.Temp(e.Scalar.Str())
			case e.Kind != RawRef:
				return RawValue{}, newErr(ErrRefResolution, f, "attribute %q: expected a reference value in list position %d", attr, i)
			}
			resolved, err := r.resolveRefID(db, id, f)
			if err != nil {
				return RawValue{}, err
			}
			items[i] = RefOf(resolved)
		}
		return ListOf(items...), nil
	default:
		return RawValue{}, newErr(ErrRefResolution, f, "attribute %q: expected a reference value", attr)
	}
}

func (r *resolution) resolveRefID(db Database, id ident.ID, f *Form) (ident.ID, error) {
	switch id.Kind() {
	case ident.KindAssigned, ident.KindSymbolic:
		return id, nil
	case ident.KindLookupRef:
		return r.resolveLookupRef(db, id, f)
	case ident.KindTemp:
		if bound, ok := r.bindings[id.TempName()]; ok {
			return bound, nil
		}
		return ident.ID{}, newErr(ErrRefResolution, f, "temp id %q is never defined as an entity within this transaction", id.TempName())
	default:
		return ident.ID{}, newErr(ErrInvalidEntityID, f, "invalid identifier kind in reference value")
	}
}
