// Package schemaio loads an attribute schema from a declarative TOML or
// YAML document: read bytes, unmarshal into a plain document struct, then
// compile. TOML is the preferred format; YAML is supported as an
// alternative for callers with YAML-based project configuration already
// in place.
package schemaio

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/brindlewood/facts/internal/schema"
)

// attrSpec is one attribute's declarative form. Cardinality, Unique,
// Index, and Container are free-form strings so the TOML/YAML source
// stays human-writable; toAttrDef below maps them onto the schema package's
// compiled enums.
type attrSpec struct {
	Cardinality string `toml:"cardinality" yaml:"cardinality"`
	Ref         bool   `toml:"ref" yaml:"ref"`
	Component   bool   `toml:"component" yaml:"component"`
	Unique      string `toml:"unique" yaml:"unique"`
	Index       string `toml:"index" yaml:"index"`
	Container   string `toml:"container" yaml:"container"`
}

type document struct {
	Attributes map[string]attrSpec `toml:"attributes" yaml:"attributes"`
}

// FromTOML parses a schema document from TOML bytes and compiles it.
func FromTOML(data []byte) (*schema.Schema, error) {
	var doc document
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, fmt.Errorf("schemaio: toml: %w", err)
	}
	return compile(doc)
}

// FromYAML parses a schema document from YAML bytes and compiles it.
func FromYAML(data []byte) (*schema.Schema, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("schemaio: yaml: %w", err)
	}
	return compile(doc)
}

// LoadFile loads a schema document from path, detecting format from its
// extension (".toml" or ".yaml"/".yml").
func LoadFile(path string) (*schema.Schema, error) {
	// #nosec G304 -- path is caller-supplied configuration, not derived from untrusted input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schemaio: read %s: %w", path, err)
	}
	switch {
	case strings.HasSuffix(path, ".toml"):
		return FromTOML(data)
	case strings.HasSuffix(path, ".yaml"), strings.HasSuffix(path, ".yml"):
		return FromYAML(data)
	default:
		return nil, fmt.Errorf("schemaio: %s: unrecognized schema file extension", path)
	}
}

func compile(doc document) (*schema.Schema, error) {
	defs := make(map[string]schema.AttrDef, len(doc.Attributes))
	for name, spec := range doc.Attributes {
		def, err := spec.toAttrDef(name)
		if err != nil {
			return nil, err
		}
		defs[name] = def
	}
	return schema.New(defs)
}

func (spec attrSpec) toAttrDef(name string) (schema.AttrDef, error) {
	def := schema.AttrDef{
		IsRef:       spec.Ref,
		IsComponent: spec.Component,
	}

	switch strings.ToLower(strings.TrimSpace(spec.Cardinality)) {
	case "", "one":
		def.Cardinality = schema.CardinalityOne
	case "many":
		def.Cardinality = schema.CardinalityMany
	default:
		return def, fmt.Errorf("schemaio: attribute %q: unrecognized cardinality %q", name, spec.Cardinality)
	}

	switch strings.ToLower(strings.TrimSpace(spec.Unique)) {
	case "", "none":
		def.Unique = schema.UniqueNone
	case "identity":
		def.Unique = schema.UniqueIdentity
	case "value":
		def.Unique = schema.UniqueValue
	default:
		return def, fmt.Errorf("schemaio: attribute %q: unrecognized unique kind %q", name, spec.Unique)
	}

	switch strings.ToLower(strings.TrimSpace(spec.Index)) {
	case "", "none":
		def.IndexKind = schema.IndexNone
	case "hash":
		def.IndexKind = schema.IndexHash
	case "ordered":
		def.IndexKind = schema.IndexOrdered
	case "ordered-range":
		def.IndexKind = schema.IndexOrderedLogRange
	default:
		return def, fmt.Errorf("schemaio: attribute %q: unrecognized index kind %q", name, spec.Index)
	}

	switch strings.ToLower(strings.TrimSpace(spec.Container)) {
	case "", "unordered":
		def.ContainerKind = schema.ContainerUnordered
	case "ordered":
		def.ContainerKind = schema.ContainerOrdered
	case "ordered-range":
		def.ContainerKind = schema.ContainerOrderedLogRange
	default:
		return def, fmt.Errorf("schemaio: attribute %q: unrecognized container kind %q", name, spec.Container)
	}

	return def, nil
}
