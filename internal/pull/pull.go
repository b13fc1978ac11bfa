package pull

import (
	"github.com/brindlewood/facts/internal/eav"
	"github.com/brindlewood/facts/internal/ident"
	"github.com/brindlewood/facts/internal/schema"
	"github.com/brindlewood/facts/internal/txn"
	"github.com/brindlewood/facts/internal/value"
)

// Result is one pull's output: a map from attribute name (or reverse
// attribute name) to the selected value, rendered per §4.8's result
// contract.
type Result = map[string]any

func identToAny(id ident.ID) any {
	switch id.Kind() {
	case ident.KindAssigned:
		return id.AssignedInt()
	case ident.KindSymbolic:
		return id.SymbolicName()
	default:
		return id.String()
	}
}

func identOnly(id ident.ID) Result {
	return Result{schema.SelfAttr: identToAny(id)}
}

func containsWildcardOrSelf(pattern Pattern) bool {
	for _, e := range pattern {
		if e.Kind == ElemWildcard {
			return true
		}
		if e.Kind == ElemAttr && e.Attr == schema.SelfAttr {
			return true
		}
	}
	return false
}

func cloneVisited(visited map[string]bool, id ident.ID) map[string]bool {
	out := make(map[string]bool, len(visited)+1)
	for k := range visited {
		out[k] = true
	}
	out[id.String()] = true
	return out
}

// Pull resolves start (a lookup reference is evaluated against AVE first,
// per §2's pull data flow) and evaluates pattern against it.
func Pull(db txn.Database, pattern Pattern, start ident.ID) (Result, error) {
	resolved, ok := resolveStart(db, start)
	if !ok {
		return Result{}, nil
	}
	return evalEntity(db, pattern, resolved, map[string]bool{}), nil
}

// PullMany applies Pull to a sequence of identifiers in order (§4.8).
func PullMany(db txn.Database, pattern Pattern, starts []ident.ID) ([]Result, error) {
	out := make([]Result, 0, len(starts))
	for _, s := range starts {
		r, err := Pull(db, pattern, s)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func resolveStart(db txn.Database, start ident.ID) (ident.ID, bool) {
	if start.Kind() != ident.KindLookupRef {
		return start, true
	}
	v, err := value.From(start.LookupValue())
	if err != nil {
		return ident.ID{}, false
	}
	return db.AVE.Lookup(start.LookupAttr(), v)
}

// evalEntity evaluates pattern against id, the cycle-safe core of §4.8:
// visited is the set of identifiers already on the current descent chain.
func evalEntity(db txn.Database, pattern Pattern, id ident.ID, visited map[string]bool) Result {
	if visited[id.String()] {
		return identOnly(id)
	}
	if !db.EAV.Exists(id) {
		if containsWildcardOrSelf(pattern) {
			return identOnly(id)
		}
		return Result{}
	}

	entity := db.EAV.Entity(id)
	nextVisited := cloneVisited(visited, id)

	out := Result{schema.SelfAttr: identToAny(id)}
	hasWildcard := false
	for _, e := range pattern {
		if e.Kind == ElemWildcard {
			hasWildcard = true
			continue
		}
		applyElem(db, pattern, e, id, entity, nextVisited, out)
	}
	if hasWildcard {
		applyWildcard(db, entity, nextVisited, out)
	}
	return out
}

func applyElem(db txn.Database, enclosing Pattern, e Elem, id ident.ID, entity map[string]eav.Slot, visited map[string]bool, out Result) {
	reverse := isReverseName(e.Attr)
	fwd := e.Attr
	if reverse {
		fwd = forwardOf(e.Attr)
	}

	switch e.Kind {
	case ElemAttr:
		if reverse {
			targets, single := refTargets(db, fwd, true, id)
			if single {
				if len(targets) == 0 {
					out[e.Attr] = nil
				} else {
					out[e.Attr] = identOnly(targets[0])
				}
				return
			}
			list := make([]any, 0, len(targets))
			for _, t := range targets {
				list = append(list, identOnly(t))
			}
			out[e.Attr] = list
			return
		}
		out[e.Attr] = renderBareAttr(db.Schema, entity, e.Attr)
	case ElemJoin:
		if e.HasDepth {
			out[e.Attr] = renderJoin(db, enclosing, fwd, reverse, id, enclosing, visited, e.Depth)
			return
		}
		out[e.Attr] = renderJoin(db, enclosing, fwd, reverse, id, e.SubPattern, visited, -1)
	}
}

// renderBareAttr renders a plain forward attribute with no sub-pattern:
// scalars/collections render via value.ToAny; reference values render as
// identifier-only (map, or list of maps for cardinality-many) since no
// sub-pattern was given to recurse with.
func renderBareAttr(sch *schema.Schema, entity map[string]eav.Slot, attr string) any {
	slot, ok := entity[attr]
	if !ok {
		return nil
	}
	isRef := sch != nil && sch.IsRef(attr)
	if slot.Many {
		items := slot.Set.Items()
		out := make([]any, 0, len(items))
		for _, v := range items {
			if isRef {
				out = append(out, identOnly(v.RefID()))
			} else {
				out = append(out, value.ToAny(v))
			}
		}
		return out
	}
	if isRef {
		return identOnly(slot.One.RefID())
	}
	return value.ToAny(slot.One)
}

// refTargets returns the entity ids reachable from id via attr (forward
// reference lookup straight from EAV, reverse lookup via AVE) plus
// whether the result shape is single (one map) or a sequence.
func refTargets(db txn.Database, fwd string, reverse bool, id ident.ID) ([]ident.ID, bool) {
	if reverse {
		ids := db.AVE.LookupSet(fwd, value.MustRef(id))
		return ids, db.AVE.IsUnique(fwd)
	}
	slot, ok := db.EAV.Get(id, fwd)
	if !ok {
		return nil, !db.Schema.IsMany(fwd)
	}
	if slot.Many {
		items := slot.Set.Items()
		out := make([]ident.ID, 0, len(items))
		for _, v := range items {
			out = append(out, v.RefID())
		}
		return out, false
	}
	return []ident.ID{slot.One.RefID()}, true
}

// renderJoin evaluates a join (recursive if depth >= 0) over attr (or its
// reverse), per §4.8's result-shape contract: single-entity shape (forward
// cardinality-one, or reverse over a single-entity AVE attribute) yields a
// map; everything else yields a sequence.
func renderJoin(db txn.Database, enclosing Pattern, fwd string, reverse bool, id ident.ID, sub Pattern, visited map[string]bool, depth int) any {
	targets, single := refTargets(db, fwd, reverse, id)

	eval := func(t ident.ID) Result {
		if depth == 0 {
			return identOnly(t)
		}
		next := sub
		if depth > 0 {
			next = withDecrementedDepth(enclosing, fwdOrReverseName(fwd, reverse), depth-1)
		}
		return evalEntity(db, next, t, visited)
	}

	if single {
		if len(targets) == 0 {
			return nil
		}
		return eval(targets[0])
	}
	out := make([]Result, 0, len(targets))
	for _, t := range targets {
		out = append(out, eval(t))
	}
	return out
}

func fwdOrReverseName(fwd string, reverse bool) string {
	if !reverse {
		return fwd
	}
	idx := len(fwd)
	for i, c := range fwd {
		if c == '/' {
			idx = i + 1
		}
	}
	return fwd[:idx] + "_" + fwd[idx:]
}

// withDecrementedDepth returns a copy of p with its Join/Recurse element
// for attr set to the given depth, leaving every other element untouched.
func withDecrementedDepth(p Pattern, attr string, depth int) Pattern {
	out := make(Pattern, len(p))
	copy(out, p)
	for i, e := range out {
		if e.Kind == ElemJoin && e.Attr == attr && e.HasDepth {
			out[i] = Elem{Kind: ElemJoin, Attr: attr, HasDepth: true, Depth: depth}
		}
	}
	return out
}

// applyWildcard fills in every entity attribute not already present in
// out, per §4.8: component references recursively pull the target with a
// fresh wildcard; non-component references wrap as identifier-only; the
// wildcard never overwrites an already-accumulated explicit join.
func applyWildcard(db txn.Database, entity map[string]eav.Slot, visited map[string]bool, out Result) {
	sch := db.Schema
	for attr, slot := range entity {
		if _, already := out[attr]; already {
			continue
		}
		if sch == nil || !sch.IsRef(attr) {
			if slot.Many {
				items := slot.Set.Items()
				list := make([]any, 0, len(items))
				for _, v := range items {
					list = append(list, value.ToAny(v))
				}
				out[attr] = list
			} else {
				out[attr] = value.ToAny(slot.One)
			}
			continue
		}

		component := sch.IsComponent(attr)
		if slot.Many {
			items := slot.Set.Items()
			list := make([]any, 0, len(items))
			for _, v := range items {
				target := v.RefID()
				if component {
					list = append(list, evalEntity(db, Pattern{Wildcard()}, target, visited))
				} else {
					list = append(list, identOnly(target))
				}
			}
			out[attr] = list
			continue
		}
		target := slot.One.RefID()
		if component {
			out[attr] = evalEntity(db, Pattern{Wildcard()}, target, visited)
		} else {
			out[attr] = identOnly(target)
		}
	}
}

// FindReverseRefs implements §6's find-reverse-refs(database, target):
// every (attribute, identifier) pair currently referencing target.
func FindReverseRefs(db txn.Database, target ident.ID) []struct {
	Attr string
	ID   ident.ID
} {
	var out []struct {
		Attr string
		ID   ident.ID
	}
	if db.Schema == nil {
		return out
	}
	ref := value.MustRef(target)
	for _, attr := range db.Schema.Attributes() {
		if !db.Schema.IsRef(attr) {
			continue
		}
		for _, id := range db.AVE.LookupSet(attr, ref) {
			out = append(out, struct {
				Attr string
				ID   ident.ID
			}{Attr: attr, ID: id})
		}
	}
	return out
}
