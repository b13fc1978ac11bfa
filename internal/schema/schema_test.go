package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brindlewood/facts/internal/schema"
)

func TestNewCompilesAttributes(t *testing.T) {
	sch, err := schema.New(map[string]schema.AttrDef{
		"person/email": {Cardinality: schema.CardinalityOne, Unique: schema.UniqueIdentity},
		"person/tags":  {Cardinality: schema.CardinalityMany},
		"person/address": {
			Cardinality: schema.CardinalityOne,
			IsRef:       true,
			IsComponent: true,
		},
	})
	require.NoError(t, err)

	assert.True(t, sch.IsUniqueIdentity("person/email"))
	assert.True(t, sch.IsIndexed("person/email"))
	assert.True(t, sch.IsMany("person/tags"))
	assert.False(t, sch.IsMany("person/email"))
	assert.True(t, sch.IsComponent("person/address"))
	assert.True(t, sch.IsIndexed("person/address"))
}

func TestNewRejectsUniqueCardinalityMany(t *testing.T) {
	_, err := schema.New(map[string]schema.AttrDef{
		"person/tags": {Cardinality: schema.CardinalityMany, Unique: schema.UniqueValue},
	})
	require.Error(t, err)
}

func TestNewRejectsComponentWithoutReference(t *testing.T) {
	_, err := schema.New(map[string]schema.AttrDef{
		"person/address": {Cardinality: schema.CardinalityOne, IsComponent: true},
	})
	require.Error(t, err)
}

func TestNewRejectsOrderedContainerOnReference(t *testing.T) {
	_, err := schema.New(map[string]schema.AttrDef{
		"person/friends": {
			Cardinality:   schema.CardinalityMany,
			IsRef:         true,
			ContainerKind: schema.ContainerOrdered,
		},
	})
	require.Error(t, err)
}

func TestNewRejectsReservedNames(t *testing.T) {
	_, err := schema.New(map[string]schema.AttrDef{
		schema.SelfAttr: {Cardinality: schema.CardinalityOne},
	})
	require.Error(t, err)

	_, err = schema.New(map[string]schema.AttrDef{
		"person/_reverse": {Cardinality: schema.CardinalityOne},
	})
	require.Error(t, err)
}

func TestCheckAttrReturnsCompiledProperty(t *testing.T) {
	sch, err := schema.New(map[string]schema.AttrDef{
		"person/name": {Cardinality: schema.CardinalityOne},
	})
	require.NoError(t, err)

	assert.Equal(t, schema.CardinalityOne, sch.Check("person/name", schema.PropCardinality))
	assert.Equal(t, false, sch.Check("person/name", schema.PropIsRef))
}
