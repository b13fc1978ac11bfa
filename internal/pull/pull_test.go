package pull_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brindlewood/facts/internal/ident"
	"github.com/brindlewood/facts/internal/pull"
	"github.com/brindlewood/facts/internal/schema"
	"github.com/brindlewood/facts/internal/txn"
)

func friendSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch, err := schema.New(map[string]schema.AttrDef{
		"name":        {Cardinality: schema.CardinalityOne},
		"best-friend": {Cardinality: schema.CardinalityOne, IsRef: true},
		"license":     {Cardinality: schema.CardinalityOne, IsRef: true, IsComponent: true},
		"license-number": {
			Cardinality: schema.CardinalityOne,
			Unique:      schema.UniqueValue,
		},
	})
	require.NoError(t, err)
	return sch
}

func TestPullReverseNavigationOverComponent(t *testing.T) {
	db := txn.New(friendSchema(t))
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

	result, err := pull.Pull(r.After, pull.Pattern{pull.Wildcard()}, personID)
	require.NoError(t, err)

	license, ok := result["license"].(pull.Result)
	require.True(t, ok, "a component reference under wildcard must recurse into the full entity map")
	assert.Equal(t, "L1", license["license-number"])
}

func TestPullCycleSafeRecursiveJoin(t *testing.T) {
	db := txn.New(friendSchema(t))

	fa, err := txn.EntityMap(map[string]any{"id": "a", "name": "A", "best-friend": "b"})
	require.NoError(t, err)
	fb, err := txn.EntityMap(map[string]any{"id": "b", "name": "B", "best-friend": "c"})
	require.NoError(t, err)
	fc, err := txn.EntityMap(map[string]any{"id": "c", "name": "C", "best-friend": "a"})
	require.NoError(t, err)

	r, err := txn.Apply(db, []txn.Form{fa, fb, fc})
	require.NoError(t, err)

	idA := r.TempIDs["a"]

	pattern := pull.Pattern{
		pull.A("name"),
		pull.Recurse("best-friend", 3),
	}
	result, err := pull.Pull(r.After, pattern, idA)
	require.NoError(t, err)
	assert.Equal(t, "A", result["name"])

	level1, ok := result["best-friend"].(pull.Result)
	require.True(t, ok)
	assert.Equal(t, "B", level1["name"])

	level2, ok := level1["best-friend"].(pull.Result)
	require.True(t, ok)
	assert.Equal(t, "C", level2["name"])

	level3, ok := level2["best-friend"].(pull.Result)
	require.True(t, ok, "the third hop must still render a map (an identifier-only leaf), not recurse further")
	assert.Equal(t, result[schema.SelfAttr], level3[schema.SelfAttr])
	_, hasName := level3["name"]
	assert.False(t, hasName, "revisiting A on the descent chain yields an identifier-only map")
}

func TestPullBareReferenceAttributeIsIdentifierOnly(t *testing.T) {
	db := txn.New(friendSchema(t))
	fa, err := txn.EntityMap(map[string]any{"id": "a", "name": "A", "best-friend": "b"})
	require.NoError(t, err)
	fb, err := txn.EntityMap(map[string]any{"id": "b", "name": "B"})
	require.NoError(t, err)
	r, err := txn.Apply(db, []txn.Form{fa, fb})
	require.NoError(t, err)

	result, err := pull.Pull(r.After, pull.Pattern{pull.A("best-friend")}, r.TempIDs["a"])
	require.NoError(t, err)

	bf, ok := result["best-friend"].(pull.Result)
	require.True(t, ok)
	assert.Len(t, bf, 1, "a bare reference attribute with no sub-pattern renders identifier-only")
	_, hasName := bf["name"]
	assert.False(t, hasName)
}

func TestPullMissingEntityWithWildcardYieldsIdentifierOnly(t *testing.T) {
	db := txn.New(friendSchema(t))
	result, err := pull.Pull(db, pull.Pattern{pull.Wildcard()}, ident.Assigned(999))
	require.NoError(t, err)
	assert.Contains(t, result, schema.SelfAttr)
}

func TestPullMissingEntityWithoutWildcardYieldsEmpty(t *testing.T) {
	db := txn.New(friendSchema(t))
	result, err := pull.Pull(db, pull.Pattern{pull.A("name")}, ident.Assigned(999))
	require.NoError(t, err)
	assert.Empty(t, result)
}
