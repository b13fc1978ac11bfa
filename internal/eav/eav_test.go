package eav_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brindlewood/facts/internal/eav"
	"github.com/brindlewood/facts/internal/ident"
	"github.com/brindlewood/facts/internal/schema"
	"github.com/brindlewood/facts/internal/value"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch, err := schema.New(map[string]schema.AttrDef{
		"person/name": {Cardinality: schema.CardinalityOne},
		"person/tags": {Cardinality: schema.CardinalityMany},
	})
	require.NoError(t, err)
	return sch
}

func TestSetOneAndGetIsImmutable(t *testing.T) {
	ix := eav.New(testSchema(t))
	id := ident.Assigned(1)

	before := ix
	after := ix.SetOne(id, "person/name", value.String("ada"))

	_, ok := before.Get(id, "person/name")
	assert.False(t, ok, "the receiver must be untouched by SetOne")

	slot, ok := after.Get(id, "person/name")
	require.True(t, ok)
	assert.Equal(t, "ada", slot.One.Str())
}

func TestAddManyAccumulatesASet(t *testing.T) {
	ix := eav.New(testSchema(t))
	id := ident.Assigned(1)

	ix = ix.AddMany(id, "person/tags", value.String("a"))
	ix = ix.AddMany(id, "person/tags", value.String("b"))

	slot, ok := ix.Get(id, "person/tags")
	require.True(t, ok)
	require.True(t, slot.Many)
	assert.Len(t, slot.Set.Items(), 2)
}

func TestRemoveManyIsANoOpWhenAbsent(t *testing.T) {
	ix := eav.New(testSchema(t))
	id := ident.Assigned(1)

	same := ix.RemoveMany(id, "person/tags", value.String("a"))
	assert.False(t, same.Exists(id))
}

func TestRetractEntityClearsAttributesAndRetires(t *testing.T) {
	ix := eav.New(testSchema(t))
	id := ident.Assigned(1)
	ix = ix.SetOne(id, "person/name", value.String("ada"))

	ix = ix.RetractEntity(id)

	assert.False(t, ix.Exists(id))
	assert.True(t, ix.IsRetired(id))
	_, ok := ix.Get(id, "person/name")
	assert.False(t, ok)
}

func TestDatomsFlattensCardinalityMany(t *testing.T) {
	ix := eav.New(testSchema(t))
	id := ident.Assigned(1)
	ix = ix.SetOne(id, "person/name", value.String("ada"))
	ix = ix.AddMany(id, "person/tags", value.String("x"))
	ix = ix.AddMany(id, "person/tags", value.String("y"))

	datoms := ix.Datoms()
	assert.Len(t, datoms, 3)
}
