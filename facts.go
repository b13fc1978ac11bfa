// Package facts provides a minimal public API over an in-memory,
// immutable entity-attribute-value database: a schema-driven secondary
// index, a declarative transaction processor, and a hierarchical pull
// operator for reading back nested entity graphs.
//
// Most callers only need Create, Transact, and Pull. The internal
// packages (txn, pull, schema, schemaio) are exported here under
// re-exported names so extensions can be written without importing
// internal/... directly.
package facts

import (
	"context"
	"os"

	"github.com/brindlewood/facts/internal/ident"
	"github.com/brindlewood/facts/internal/pull"
	"github.com/brindlewood/facts/internal/schema"
	"github.com/brindlewood/facts/internal/telemetry"
	"github.com/brindlewood/facts/internal/txn"
	"github.com/brindlewood/facts/schemaio"
)

// Core types for working with a database.
type (
	Database    = txn.Database
	TxReport    = txn.TxReport
	Form        = txn.Form
	TxError     = txn.TxError
	ErrorKind   = txn.ErrorKind
	Schema      = schema.Schema
	AttrDef     = schema.AttrDef
	Cardinality = schema.Cardinality
	Unique      = schema.Unique
	IndexKind   = schema.IndexKind
	Property    = schema.Property
	Pattern     = pull.Pattern
	Elem        = pull.Elem
	Result      = pull.Result
	ID          = ident.ID
)

// Cardinality, uniqueness, and index-kind constants.
const (
	CardinalityOne  = schema.CardinalityOne
	CardinalityMany = schema.CardinalityMany

	UniqueNone     = schema.UniqueNone
	UniqueIdentity = schema.UniqueIdentity
	UniqueValue    = schema.UniqueValue

	IndexNone            = schema.IndexNone
	IndexHash            = schema.IndexHash
	IndexOrdered         = schema.IndexOrdered
	IndexOrderedLogRange = schema.IndexOrderedLogRange
)

// Error-kind constants (§7's diagnostic taxonomy).
const (
	ErrNilValue               = txn.ErrNilValue
	ErrInvalidOp              = txn.ErrInvalidOp
	ErrInvalidEntityID        = txn.ErrInvalidEntityID
	ErrAssertionRetraction    = txn.ErrAssertionRetraction
	ErrCardinalityOneConflict = txn.ErrCardinalityOneConflict
	ErrUniqueConflict         = txn.ErrUniqueConflict
	ErrComponentConflict      = txn.ErrComponentConflict
	ErrRetractedEntity        = txn.ErrRetractedEntity
	ErrRefResolution          = txn.ErrRefResolution
	ErrInvalidNestedEntity    = txn.ErrInvalidNestedEntity
	ErrInvalidLookupRef       = txn.ErrInvalidLookupRef
)

// SelfAttr is the reserved attribute name under which every entity map
// carries its own identifier.
const SelfAttr = schema.SelfAttr

// NewSchema validates and compiles a set of attribute definitions.
func NewSchema(defs map[string]AttrDef) (*Schema, error) {
	return schema.New(defs)
}

// SchemaFromTOML loads and compiles a schema from a TOML document.
func SchemaFromTOML(data []byte) (*Schema, error) {
	return schemaio.FromTOML(data)
}

// SchemaFromYAML loads and compiles a schema from a YAML document.
func SchemaFromYAML(data []byte) (*Schema, error) {
	return schemaio.FromYAML(data)
}

// SchemaFromFile loads and compiles a schema from a TOML or YAML file,
// detecting format from its extension.
func SchemaFromFile(path string) (*Schema, error) {
	return schemaio.LoadFile(path)
}

// Create returns a fresh, empty database under sch.
func Create(sch *Schema) Database {
	return txn.New(sch)
}

// Transact applies forms to db, returning the resulting database and a
// report of what happened, or a fatal diagnostic leaving db unchanged.
func Transact(db Database, forms []Form) (TxReport, error) {
	return txn.Apply(db, forms)
}

// TransactTraced is Transact instrumented with an OpenTelemetry span and
// transaction counters.
func TransactTraced(ctx context.Context, db Database, forms []Form) (TxReport, error) {
	return txn.ApplyTraced(ctx, db, forms)
}

// Pull evaluates pattern against start within db.
func Pull(db Database, pattern Pattern, start ID) (Result, error) {
	return pull.Pull(db, pattern, start)
}

// PullMany applies Pull across a sequence of starting identifiers.
func PullMany(db Database, pattern Pattern, starts []ID) ([]Result, error) {
	return pull.PullMany(db, pattern, starts)
}

// FindReverseRefs returns every (attribute, identifier) pair currently
// referencing target.
func FindReverseRefs(db Database, target ID) []struct {
	Attr string
	ID   ID
} {
	return pull.FindReverseRefs(db, target)
}

// CheckAttr exposes the generic check-attr(db, attribute, property)
// primitive against db's schema.
func CheckAttr(db Database, attr string, prop Property) any {
	if db.Schema == nil {
		return nil
	}
	return db.Schema.Check(attr, prop)
}

// PullTraced is Pull instrumented with an OpenTelemetry span and call
// counters.
func PullTraced(ctx context.Context, db Database, pattern Pattern, start ID) (Result, error) {
	return pull.PullTraced(ctx, db, pattern, start)
}

// InitTelemetry installs stdout trace/metric exporters as the global
// OpenTelemetry providers; until called, every span and instrument
// created by this module is a no-op.
func InitTelemetry() (telemetry.Shutdown, error) {
	return telemetry.Init(os.Stdout)
}

// Identifier constructors.
func AssignedID(n int64) ID             { return ident.Assigned(n) }
func SymbolicID(name string) ID         { return ident.Symbolic(name) }
func TempID(name string) ID             { return ident.Temp(name) }
func LookupRefID(attr string, v any) ID { return ident.LookupRef(attr, v) }

// Form constructors. See internal/txn for the full list-form/map-form
// contract these build against.
func AssertForm(id ID, attr string, v any) (Form, error)  { return txn.Assert(id, attr, v) }
func RetractForm(id ID, attr string, v any) (Form, error) { return txn.Retract(id, attr, v) }
func RetractAllForm(id ID, attr string) Form              { return txn.RetractAll(id, attr) }
func RetractEntityForm(id ID) Form                        { return txn.RetractEntity(id) }
func EntityMap(fields map[string]any) (Form, error)       { return txn.EntityMap(fields) }
func EntityMapWithID(id ID, fields map[string]any) (Form, error) {
	return txn.EntityMapWithID(id, fields)
}

// Pattern constructors.
func AttrElem(attr string) Elem                  { return pull.A(attr) }
func WildcardElem() Elem                         { return pull.Wildcard() }
func JoinElem(attr string, sub Pattern) Elem     { return pull.Join(attr, sub) }
func RecurseElem(attr string, depth int) Elem    { return pull.Recurse(attr, depth) }
