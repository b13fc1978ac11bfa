package txn

import (
	"fmt"

	"github.com/brindlewood/facts/internal/ave"
	"github.com/brindlewood/facts/internal/eav"
	"github.com/brindlewood/facts/internal/ident"
	"github.com/brindlewood/facts/internal/schema"
	"github.com/brindlewood/facts/internal/value"
)

// draft is the transient, single-transaction builder the updater mutates
// in place (§5: "implementations may use interior mutability within one
// transaction... as long as the pre-transaction value remains untouched").
type draft struct {
	before  Database
	eav     eav.Index
	ave     ave.Index
	retiring map[string]bool // id.String() -> true, entities retract-entity'd this tx

	retractedTriples map[string]bool
	oneAssigned      map[string]value.Value
}

func newDraft(before Database) *draft {
	return &draft{
		before:           before,
		eav:              before.EAV,
		ave:              before.AVE,
		retiring:         map[string]bool{},
		retractedTriples: map[string]bool{},
		oneAssigned:      map[string]value.Value{},
	}
}

func tripleKey(id ident.ID, attr string, v value.Value) string {
	return id.String() + "\x00" + attr + "\x00" + value.CanonicalKey(v)
}

func oneKey(id ident.ID, attr string) string {
	return id.String() + "\x00" + attr
}

// update applies the three fixed-order phases of §4.7 to forms (already
// expanded and fully resolved) and returns the resulting Database.
func update(before Database, forms []Form) (Database, error) {
	d := newDraft(before)

	if err := d.applyEntityRetractions(forms); err != nil {
		return Database{}, err
	}
	if err := d.applyAttrValueRetractions(forms); err != nil {
		return Database{}, err
	}

	listEntityID := filterForms(forms, func(f Form) bool { return !f.isMap && f.Op == OpAssert && !f.wasTempID })
	listPlaceholder := filterForms(forms, func(f Form) bool { return !f.isMap && f.Op == OpAssert && f.wasTempID })
	mapForms := filterForms(forms, func(f Form) bool { return f.isMap })

	for _, pass := range [][]Form{listEntityID, listPlaceholder, mapForms} {
		for _, f := range pass {
			if err := d.applyAssertForm(f); err != nil {
				return Database{}, err
			}
		}
	}

	out := before
	out.EAV = d.eav
	out.AVE = d.ave
	out.NextID = before.NextID
	out.TxCount = before.TxCount + 1
	return out, nil
}

// componentDescendants computes the transitive closure of ids reachable
// from seed via component reference attributes (§4.7 phase 1: entity
// retraction is "transitively expanded to include all component
// descendants").
func (d *draft) componentDescendants(seed []ident.ID) []ident.ID {
	sch := d.before.Schema
	seen := map[string]bool{}
	var closure []ident.ID
	queue := append([]ident.ID(nil), seed...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id.String()] {
			continue
		}
		seen[id.String()] = true
		closure = append(closure, id)

		for attr, slot := range d.eav.Entity(id) {
			if !sch.IsComponent(attr) {
				continue
			}
			if slot.Many {
				for _, v := range slot.Set.Items() {
					if v.Kind() == value.KindRef {
						queue = append(queue, v.RefID())
					}
				}
			} else if slot.One.Kind() == value.KindRef {
				queue = append(queue, slot.One.RefID())
			}
		}
	}
	return closure
}

// applyEntityRetractions implements §4.7 phase 1: transitive component
// closure, then for each id in the closure both clear its own attributes
// from EAV/AVE and null every incoming reference across AVE.
func (d *draft) applyEntityRetractions(forms []Form) error {
	sch := d.before.Schema
	var seeds []ident.ID
	for _, f := range forms {
		if !f.isMap && f.Op == OpRetractEntity {
			if err := checkEntityID(f.ID, &f); err != nil {
				return err
			}
			seeds = append(seeds, f.ID)
		}
	}
	if len(seeds) == 0 {
		return nil
	}

	closure := d.componentDescendants(seeds)
	for _, id := range closure {
		d.retiring[id.String()] = true
	}

	for _, id := range closure {
		// Null every incoming reference: for every reference attribute,
		// find whoever currently points at id and clear that binding.
		for _, attr := range sch.Attributes() {
			if !sch.IsRef(attr) {
				continue
			}
			refVal := value.MustRef(id)
			for _, referencer := range d.ave.LookupSet(attr, refVal) {
				if d.retiring[referencer.String()] {
					continue
				}
				if sch.IsMany(attr) {
					d.eav = d.eav.RemoveMany(referencer, attr, refVal)
				} else {
					d.eav = d.eav.RetractAttr(referencer, attr)
				}
				d.ave = d.ave.Remove(attr, refVal, referencer)
			}
		}

		// Clear id's own attributes from AVE, then remove it from EAV.
		for attr, slot := range d.eav.Entity(id) {
			if !sch.IsIndexed(attr) {
				continue
			}
			if slot.Many {
				for _, v := range slot.Set.Items() {
					d.ave = d.ave.Remove(attr, v, id)
				}
			} else {
				d.ave = d.ave.Remove(attr, slot.One, id)
			}
		}
		d.eav = d.eav.RetractEntity(id)
	}
	return nil
}

// applyAttrValueRetractions implements §4.7 phase 2: list-form retractions
// with an explicit value remove exactly that value; retractions with the
// value omitted expand against the database-before snapshot (every
// current value, for cardinality-many).
func (d *draft) applyAttrValueRetractions(forms []Form) error {
	sch := d.before.Schema
	for _, f := range forms {
		if f.isMap || f.Op != OpRetract {
			continue
		}
		if err := checkEntityID(f.ID, &f); err != nil {
			return err
		}
		if d.retiring[f.ID.String()] {
			continue
		}

		var values []value.Value
		if f.HasValue {
			v, err := rawToValue(f.Value, sch.IsRef(f.Attr))
			if err != nil {
				return newErr(ErrRefResolution, &f, "%s", err)
			}
			values = append(values, v)
		} else {
			slot, ok := d.before.EAV.Get(f.ID, f.Attr)
			if ok {
				if slot.Many {
					values = slot.Set.Items()
				} else {
					values = []value.Value{slot.One}
				}
			}
		}

		for _, v := range values {
			d.retractedTriples[tripleKey(f.ID, f.Attr, v)] = true
			if sch.IsMany(f.Attr) {
				d.eav = d.eav.RemoveMany(f.ID, f.Attr, v)
			} else {
				if slot, ok := d.eav.Get(f.ID, f.Attr); ok && !slot.Many && value.Equal(slot.One, v) {
					d.eav = d.eav.RetractAttr(f.ID, f.Attr)
				}
			}
			if sch.IsIndexed(f.Attr) {
				d.ave = d.ave.Remove(f.Attr, v, f.ID)
			}
		}
	}
	return nil
}

// rawToValue converts a fully-resolved RawValue into a concrete value.Value.
// Scalars and resolved references convert directly; lists and maps convert
// recursively, covering the data model's "collections are legal values"
// allowance for non-reference attributes (a literal list or map stored as
// one cardinality-one value, as opposed to a cardinality-many RawList,
// which callers explode into individual elements before reaching here).
func rawToValue(rv RawValue, isRef bool) (value.Value, error) {
	switch rv.Kind {
	case RawScalar:
		return rv.Scalar, nil
	case RawRef:
		return value.Ref(rv.Ref)
	case RawList:
		items := make([]value.Value, 0, len(rv.List))
		for _, e := range rv.List {
			ev, err := rawToValue(e, isRef)
			if err != nil {
				return value.Value{}, err
			}
			items = append(items, ev)
		}
		return value.NewList(items...), nil
	case RawMap:
		fields := make(map[string]value.Value, len(rv.Map))
		for k, e := range rv.Map {
			ev, err := rawToValue(e, false)
			if err != nil {
				return value.Value{}, err
			}
			fields[k] = ev
		}
		return value.NewMap(fields), nil
	default:
		return value.Value{}, fmt.Errorf("value did not resolve to a concrete value")
	}
}

// applyAssertForm applies one fully-resolved assertion form, enforcing
// every per-triple invariant named in §4.6 before mutating the draft.
func (d *draft) applyAssertForm(f Form) error {
	sch := d.before.Schema

	if f.isMap {
		id := f.MapID
		if err := checkEntityID(id, &f); err != nil {
			return err
		}
		if err := checkRetractedEntityConflict(id, d.retiring, &f); err != nil {
			return err
		}
		for attr, rv := range f.Fields {
			if err := d.assertAttr(sch, id, attr, rv, &f); err != nil {
				return err
			}
		}
		return nil
	}

	if err := checkEntityID(f.ID, &f); err != nil {
		return err
	}
	if err := checkRetractedEntityConflict(f.ID, d.retiring, &f); err != nil {
		return err
	}
	return d.assertAttr(sch, f.ID, f.Attr, f.Value, &f)
}

// assertAttr applies every (id, attr, v) pair implied by rv: a single pair
// for cardinality-one, one pair per list element for cardinality-many.
func (d *draft) assertAttr(sch *schema.Schema, id ident.ID, attr string, rv RawValue, f *Form) error {
	many := sch.IsMany(attr)
	isRef := sch.IsRef(attr)

	var raws []RawValue
	if many && rv.Kind == RawList {
		raws = rv.List
	} else {
		raws = []RawValue{rv}
	}

	for _, one := range raws {
		v, err := rawToValue(one, isRef)
		if err != nil {
			return newErr(ErrRefResolution, f, "attribute %q: %s", attr, err)
		}
		if err := d.assertTriple(sch, id, attr, v, many, f); err != nil {
			return err
		}
	}
	return nil
}

func (d *draft) assertTriple(sch *schema.Schema, id ident.ID, attr string, v value.Value, many bool, f *Form) error {
	key := tripleKey(id, attr, v)
	if err := checkAssertionRetractionConflict(d.retractedTriples, key, f); err != nil {
		return err
	}

	if err := checkUniqueConflict(sch, d.ave, attr, v, id, f); err != nil {
		return err
	}
	if err := checkComponentConflict(sch, d.ave, attr, v, id, f); err != nil {
		return err
	}

	if !many {
		ok := oneKey(id, attr)
		if err := checkCardinalityOne(d.before.EAV, d.oneAssigned, ok, id, attr, v, f); err != nil {
			return err
		}
		d.oneAssigned[ok] = v

		prior, hadPrior := d.eav.Get(id, attr)
		if hadPrior && !prior.Many && value.Equal(prior.One, v) {
			return nil
		}
		if sch.IsIndexed(attr) && hadPrior && !prior.Many {
			d.ave = d.ave.Remove(attr, prior.One, id)
		}
		d.eav = d.eav.SetOne(id, attr, v)
		if sch.IsIndexed(attr) {
			d.ave = d.ave.Add(attr, v, id)
		}
		return nil
	}

	if slot, ok := d.eav.Get(id, attr); ok && slot.Many && slot.Set.Contains(v) {
		return nil
	}
	d.eav = d.eav.AddMany(id, attr, v)
	if sch.IsIndexed(attr) {
		d.ave = d.ave.Add(attr, v, id)
	}
	return nil
}
