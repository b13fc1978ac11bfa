package txn_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brindlewood/facts/internal/ident"
	"github.com/brindlewood/facts/internal/schema"
	"github.com/brindlewood/facts/internal/txn"
	"github.com/brindlewood/facts/internal/value"
)

// scenarioSchema compiles schema S0, named in §8's concrete scenarios.
func scenarioSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch, err := schema.New(map[string]schema.AttrDef{
		"email":          {Cardinality: schema.CardinalityOne, Unique: schema.UniqueIdentity},
		"name":           {Cardinality: schema.CardinalityOne},
		"age":            {Cardinality: schema.CardinalityOne},
		"city":           {Cardinality: schema.CardinalityOne, IndexKind: schema.IndexHash},
		"past-cities":    {Cardinality: schema.CardinalityMany, IndexKind: schema.IndexHash},
		"best-friend":    {Cardinality: schema.CardinalityOne, IsRef: true},
		"friend":         {Cardinality: schema.CardinalityMany, IsRef: true},
		"license":        {Cardinality: schema.CardinalityOne, IsRef: true, IsComponent: true},
		"license-number": {Cardinality: schema.CardinalityOne, Unique: schema.UniqueValue},
	})
	require.NoError(t, err)
	return sch
}

func TestUpsertViaUniquenessIdentity(t *testing.T) {
	db := txn.New(scenarioSchema(t))

	f1, err := txn.EntityMap(map[string]any{"id": "t", "email": "a@x", "name": "A"})
	require.NoError(t, err)
	r1, err := txn.Apply(db, []txn.Form{f1})
	require.NoError(t, err)

	id := r1.TempIDs["t"]
	require.True(t, id.IsResolved())

	f2, err := txn.EntityMap(map[string]any{"email": "a@x", "age": 30})
	require.NoError(t, err)
	r2, err := txn.Apply(r1.After, []txn.Form{f2})
	require.NoError(t, err)

	entity := r2.After.EAV.Entity(id)
	require.Contains(t, entity, "email")
	require.Contains(t, entity, "name")
	require.Contains(t, entity, "age")
	assert.Equal(t, "A", entity["name"].One.Str())
	assert.Equal(t, int64(30), entity["age"].One.Int())
	assert.True(t, r2.After.EAV.Exists(id), "the upsert must resolve onto the same entity, not a second one")
}

func TestComponentRetraction(t *testing.T) {
	db := txn.New(scenarioSchema(t))

	f, err := txn.EntityMap(map[string]any{
		"id":   "p",
		"name": "P",
		"license": map[string]any{
			"id":             "l",
			"license-number": "L1",
		},
	})
	require.NoError(t, err)
	r, err := txn.Apply(db, []txn.Form{f})
	require.NoError(t, err)

	personID := r.TempIDs["p"]
	licenseID := r.TempIDs["l"]

	r2, err := txn.Apply(r.After, []txn.Form{txn.RetractEntity(personID)})
	require.NoError(t, err)

	assert.False(t, r2.After.EAV.Exists(personID))
	assert.False(t, r2.After.EAV.Exists(licenseID), "retract-entity must transitively retract component descendants")
	_, found := r2.After.AVE.Lookup("license-number", value.String("L1"))
	assert.False(t, found)
}

func TestCardinalityManySetSemantics(t *testing.T) {
	db := txn.New(scenarioSchema(t))

	f, err := txn.EntityMap(map[string]any{
		"id":          "t",
		"past-cities": []any{"Paris", "Paris", "London"},
	})
	require.NoError(t, err)
	r, err := txn.Apply(db, []txn.Form{f})
	require.NoError(t, err)

	id := r.TempIDs["t"]
	slot, ok := r.After.EAV.Get(id, "past-cities")
	require.True(t, ok)
	require.True(t, slot.Many)
	assert.Len(t, slot.Set.Items(), 2, "duplicate assertions within one transaction must collapse")

	set := r.After.AVE.LookupSet("past-cities", value.String("Paris"))
	assert.Len(t, set, 1)
}

func TestUniqueValueRejection(t *testing.T) {
	db := txn.New(scenarioSchema(t))

	f1, err := txn.EntityMap(map[string]any{"license-number": "X"})
	require.NoError(t, err)
	r1, err := txn.Apply(db, []txn.Form{f1})
	require.NoError(t, err)

	f2, err := txn.EntityMap(map[string]any{"license-number": "X"})
	require.NoError(t, err)
	_, err = txn.Apply(r1.After, []txn.Form{f2})
	require.Error(t, err)

	txErr, ok := err.(*txn.TxError)
	require.True(t, ok)
	assert.Equal(t, txn.ErrUniqueConflict, txErr.Kind)
}

func TestAssertingAnExistingTripleIsANoOp(t *testing.T) {
	db := txn.New(scenarioSchema(t))
	f, err := txn.EntityMap(map[string]any{"id": "t", "name": "A"})
	require.NoError(t, err)
	r1, err := txn.Apply(db, []txn.Form{f})
	require.NoError(t, err)

	id := r1.TempIDs["t"]
	again, err := txn.Assert(id, "name", "A")
	require.NoError(t, err)
	r2, err := txn.Apply(r1.After, []txn.Form{again})
	require.NoError(t, err)

	assert.Equal(t, r1.After.TxCount+1, r2.After.TxCount)
	slot, ok := r2.After.EAV.Get(id, "name")
	require.True(t, ok)
	assert.Equal(t, "A", slot.One.Str())
}

func TestRetractAssertSameTransactionConflicts(t *testing.T) {
	db := txn.New(scenarioSchema(t))
	f, err := txn.EntityMap(map[string]any{"id": "t", "name": "A"})
	require.NoError(t, err)
	r1, err := txn.Apply(db, []txn.Form{f})
	require.NoError(t, err)
	id := r1.TempIDs["t"]

	retract, err := txn.Retract(id, "name", "A")
	require.NoError(t, err)
	reassert, err := txn.Assert(id, "name", "A")
	require.NoError(t, err)

	_, err = txn.Apply(r1.After, []txn.Form{retract, reassert})
	require.Error(t, err)
	txErr, ok := err.(*txn.TxError)
	require.True(t, ok)
	assert.Equal(t, txn.ErrAssertionRetraction, txErr.Kind)
}

func TestRetractingAnAbsentValueIsANoOp(t *testing.T) {
	db := txn.New(scenarioSchema(t))
	id := ident.Assigned(1)
	retract, err := txn.Retract(id, "name", "A")
	require.NoError(t, err)

	r, err := txn.Apply(db, []txn.Form{retract})
	require.NoError(t, err)
	_, ok := r.After.EAV.Get(id, "name")
	assert.False(t, ok)
}
