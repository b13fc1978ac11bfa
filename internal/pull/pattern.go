// Package pull implements the hierarchical, recursive, cycle-safe data
// retrieval operator (§4.8): a pattern of attribute names, reverse
// (underscore-prefixed) attribute names, the wildcard, and nested joins
// (plain sub-patterns or depth-limited recursion), evaluated over an
// entity-attribute-value database.
package pull

import "strings"

// ElemKind discriminates one pattern element.
type ElemKind uint8

const (
	ElemAttr ElemKind = iota
	ElemWildcard
	ElemJoin
)

// Elem is one pattern element. Attr names forward navigation; a name whose
// local segment begins with "_" (kept as written in Attr, recognised at
// evaluation time) names reverse navigation over the corresponding forward
// reference attribute.
type Elem struct {
	Kind ElemKind
	Attr string

	// Join-only fields: exactly one of SubPattern or (Depth set, HasDepth
	// true) is populated, selecting a non-recursive join or a recursive
	// join with a depth limit.
	SubPattern Pattern
	Depth      int
	HasDepth   bool
}

// Pattern is an ordered list of pattern elements, composable in one pull
// call.
type Pattern []Elem

// A selects plain forward navigation of attr.
func A(attr string) Elem { return Elem{Kind: ElemAttr, Attr: attr} }

// Wildcard selects every attribute present on the entity (§4.8's reserved
// wildcard element).
func Wildcard() Elem { return Elem{Kind: ElemWildcard} }

// Join selects a non-recursive join: attr (forward or, if it begins with
// "_", reverse) mapped to a sub-pattern.
func Join(attr string, sub Pattern) Elem {
	return Elem{Kind: ElemJoin, Attr: attr, SubPattern: sub}
}

// Recurse selects a recursive join: attr mapped to a non-negative depth
// limit, re-applying the enclosing pattern at each level.
func Recurse(attr string, depth int) Elem {
	return Elem{Kind: ElemJoin, Attr: attr, Depth: depth, HasDepth: true}
}

// isReverseName reports whether name's local segment begins with "_" (§3:
// reserved for reverse navigation in pull patterns).
func isReverseName(name string) bool {
	local := name
	if idx := strings.LastIndexByte(name, '/'); idx >= 0 {
		local = name[idx+1:]
	}
	return strings.HasPrefix(local, "_")
}

// forwardOf strips the reverse marker, returning the forward reference
// attribute a reverse name denotes.
func forwardOf(name string) string {
	idx := strings.LastIndexByte(name, '/')
	if idx < 0 {
		return strings.TrimPrefix(name, "_")
	}
	return name[:idx+1] + strings.TrimPrefix(name[idx+1:], "_")
}

