package txn

import (
	"github.com/brindlewood/facts/internal/eav"
	"github.com/brindlewood/facts/internal/ident"
	"github.com/brindlewood/facts/internal/schema"
	"github.com/brindlewood/facts/internal/value"
)

// checkEntityID enforces invalid-entity-id: by the time an assertion is
// applied, every identifier must have resolved to a stable, at-rest kind.
func checkEntityID(id ident.ID, f *Form) error {
	if !id.IsResolved() {
		return newErr(ErrInvalidEntityID, f, "identifier %s did not resolve to a stable identifier", id)
	}
	return nil
}

// checkRetractedEntityConflict enforces §4.6: asserting on an identifier
// retracted by entity-retraction within the same transaction is illegal.
func checkRetractedEntityConflict(id ident.ID, retiring map[string]bool, f *Form) error {
	if retiring[id.String()] {
		return newErr(ErrRetractedEntity, f, "cannot assert on %s: retracted by entity-retraction in this transaction", id)
	}
	return nil
}

// checkAssertionRetractionConflict enforces §4.6: the same (e, a, v)
// triple cannot be both asserted and retracted within one transaction.
func checkAssertionRetractionConflict(retracted map[string]bool, key string, f *Form) error {
	if retracted[key] {
		return newErr(ErrAssertionRetraction, f, "triple is both asserted and retracted in this transaction")
	}
	return nil
}

// checkCardinalityOne enforces §4.6's cardinality-one-conflict rule: a
// second, distinct value asserted this transaction for the same
// (entity, cardinality-one attribute) is illegal, unless it restores the
// pre-transaction value.
func checkCardinalityOne(before eav.Index, oneAssigned map[string]value.Value, key string, id ident.ID, attr string, v value.Value, f *Form) error {
	prior, ok := oneAssigned[key]
	if !ok || value.Equal(prior, v) {
		return nil
	}
	if slot, present := before.Get(id, attr); present && !slot.Many && value.Equal(slot.One, v) {
		return nil
	}
	return newErr(ErrCardinalityOneConflict, f, "attribute %q on %s: conflicting values asserted in one transaction", attr, id)
}

// checkUniqueConflict enforces §4.6: a uniqueness-identity or
// uniqueness-value value already held by a different (still-live) entity
// is illegal.
func checkUniqueConflict(sch *schema.Schema, currentAVE interface {
	Lookup(attr string, v value.Value) (ident.ID, bool)
}, attr string, v value.Value, id ident.ID, f *Form) error {
	if !sch.IsUnique(attr) {
		return nil
	}
	if owner, ok := currentAVE.Lookup(attr, v); ok && !owner.Equal(id) {
		return newErr(ErrUniqueConflict, f, "value for unique attribute %q is already held by %s", attr, owner)
	}
	return nil
}

// checkComponentConflict enforces §4.6: a component-referenced entity may
// be owned by at most one (parent, attribute) pair.
func checkComponentConflict(sch *schema.Schema, currentAVE interface {
	Lookup(attr string, v value.Value) (ident.ID, bool)
}, attr string, v value.Value, id ident.ID, f *Form) error {
	if !sch.IsComponent(attr) {
		return nil
	}
	if owner, ok := currentAVE.Lookup(attr, v); ok && !owner.Equal(id) {
		return newErr(ErrComponentConflict, f, "component attribute %q: target is already owned by %s", attr, owner)
	}
	return nil
}
