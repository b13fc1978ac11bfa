package ave_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brindlewood/facts/internal/ave"
	"github.com/brindlewood/facts/internal/ident"
	"github.com/brindlewood/facts/internal/schema"
	"github.com/brindlewood/facts/internal/value"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch, err := schema.New(map[string]schema.AttrDef{
		"person/email": {Cardinality: schema.CardinalityOne, Unique: schema.UniqueIdentity},
		"person/tags":  {Cardinality: schema.CardinalityMany, IndexKind: schema.IndexHash},
		"person/child": {Cardinality: schema.CardinalityOne, IsRef: true, IsComponent: true},
		"person/friend": {Cardinality: schema.CardinalityMany, IsRef: true},
	})
	require.NoError(t, err)
	return sch
}

func TestUniqueAttrUsesSingleEntityShape(t *testing.T) {
	sch := testSchema(t)
	ix := ave.New(sch)
	id := ident.Assigned(1)

	ix = ix.Add("person/email", value.String("ada@example.com"), id)

	assert.True(t, ix.IsUnique("person/email"))
	got, ok := ix.Lookup("person/email", value.String("ada@example.com"))
	require.True(t, ok)
	assert.True(t, got.Equal(id))
}

func TestComponentRefUsesSingleEntityShape(t *testing.T) {
	sch := testSchema(t)
	ix := ave.New(sch)
	assert.True(t, ix.IsUnique("person/child"), "component reference attributes use the single-entity AVE shape")
}

func TestNonUniqueNonComponentRefUsesEntitySetShape(t *testing.T) {
	sch := testSchema(t)
	ix := ave.New(sch)
	assert.False(t, ix.IsUnique("person/friend"))

	parent1, parent2, child := ident.Assigned(1), ident.Assigned(2), ident.Assigned(3)
	ref := value.MustRef(child)
	ix = ix.Add("person/friend", ref, parent1)
	ix = ix.Add("person/friend", ref, parent2)

	set := ix.LookupSet("person/friend", ref)
	assert.Len(t, set, 2)
}

func TestRemoveDropsExactlyThatEntry(t *testing.T) {
	sch := testSchema(t)
	ix := ave.New(sch)
	id := ident.Assigned(1)
	v := value.String("tag")

	ix = ix.Add("person/tags", v, id)
	ix = ix.Remove("person/tags", v, id)

	assert.Empty(t, ix.LookupSet("person/tags", v))
}

func TestUniqueOverwritePicksLastWriter(t *testing.T) {
	sch := testSchema(t)
	ix := ave.New(sch)
	v := value.String("shared@example.com")

	ix = ix.Add("person/email", v, ident.Assigned(1))
	ix = ix.Add("person/email", v, ident.Assigned(2))

	got, ok := ix.Lookup("person/email", v)
	require.True(t, ok)
	assert.Equal(t, int64(2), got.AssignedInt())
}
