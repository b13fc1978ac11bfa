package schemaio_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brindlewood/facts/internal/schema"
	"github.com/brindlewood/facts/schemaio"
)

const tomlDoc = `
[attributes.email]
cardinality = "one"
unique = "identity"

[attributes.tags]
cardinality = "many"
index = "hash"

[attributes.manager]
cardinality = "one"
ref = true
component = false
`

const yamlDoc = `
attributes:
  email:
    cardinality: one
    unique: identity
  tags:
    cardinality: many
    index: hash
`

func TestFromTOMLCompilesAttributes(t *testing.T) {
	sch, err := schemaio.FromTOML([]byte(tomlDoc))
	require.NoError(t, err)

	assert.True(t, sch.IsUniqueIdentity("email"))
	assert.True(t, sch.IsMany("tags"))
	assert.True(t, sch.IsRef("manager"))
	assert.False(t, sch.IsComponent("manager"))
}

func TestFromYAMLCompilesAttributes(t *testing.T) {
	sch, err := schemaio.FromYAML([]byte(yamlDoc))
	require.NoError(t, err)

	assert.True(t, sch.IsUniqueIdentity("email"))
	assert.True(t, sch.IsMany("tags"))
	assert.Equal(t, schema.IndexHash, sch.IndexKind("tags"))
}

func TestFromTOMLRejectsUnrecognizedCardinality(t *testing.T) {
	_, err := schemaio.FromTOML([]byte(`
[attributes.bad]
cardinality = "several"
`))
	require.Error(t, err)
}

func TestLoadFileRejectsUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.ini")
	require.NoError(t, os.WriteFile(path, []byte(tomlDoc), 0o600))

	_, err := schemaio.LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unrecognized schema file extension")
}
