package facts_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brindlewood/facts"
	"github.com/brindlewood/facts/internal/schema"
)

func TestCreateTransactAndPull(t *testing.T) {
	sch, err := facts.NewSchema(map[string]facts.AttrDef{
		"name":  {Cardinality: facts.CardinalityOne},
		"email": {Cardinality: facts.CardinalityOne, Unique: facts.UniqueIdentity},
	})
	require.NoError(t, err)

	db := facts.Create(sch)

	f, err := facts.EntityMap(map[string]any{"id": "t", "name": "Ada", "email": "ada@example.com"})
	require.NoError(t, err)

	report, err := facts.Transact(db, []facts.Form{f})
	require.NoError(t, err)

	id := report.TempIDs["t"]
	result, err := facts.Pull(report.After, facts.Pattern{facts.WildcardElem()}, id)
	require.NoError(t, err)
	assert.Equal(t, "Ada", result["name"])
}

func TestFindReverseRefs(t *testing.T) {
	sch, err := facts.NewSchema(map[string]facts.AttrDef{
		"name":   {Cardinality: facts.CardinalityOne},
		"parent": {Cardinality: facts.CardinalityOne, IsRef: true},
	})
	require.NoError(t, err)
	db := facts.Create(sch)

	fp, err := facts.EntityMap(map[string]any{"id": "parent", "name": "P"})
	require.NoError(t, err)
	fc, err := facts.EntityMap(map[string]any{"id": "child", "name": "C", "parent": "parent"})
	require.NoError(t, err)

	report, err := facts.Transact(db, []facts.Form{fp, fc})
	require.NoError(t, err)

	refs := facts.FindReverseRefs(report.After, report.TempIDs["parent"])
	require.Len(t, refs, 1)
	assert.Equal(t, "parent", refs[0].Attr)
	assert.True(t, refs[0].ID.Equal(report.TempIDs["child"]))
}

func TestCheckAttrExposesCompiledProperty(t *testing.T) {
	sch, err := facts.NewSchema(map[string]facts.AttrDef{
		"tags": {Cardinality: facts.CardinalityMany},
	})
	require.NoError(t, err)
	db := facts.Create(sch)

	assert.Equal(t, facts.CardinalityMany, facts.CheckAttr(db, "tags", schema.PropCardinality))
}
