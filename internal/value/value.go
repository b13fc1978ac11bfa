// Package value implements the canonical, heterogeneous attribute-value
// representation: a tagged variant with structural equality, a total
// order (used by ordered/log-range containers), and a stable hash (used
// by hash-backed containers).
package value

import (
	"errors"
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"

	"github.com/brindlewood/facts/internal/ident"
)

// ErrNilValue is returned by From when given Go's nil, which §3/§4.6 of the
// spec treats as the absent marker: never a legal attribute value.
var ErrNilValue = errors.New("value: nil is not a legal attribute value")

// Kind discriminates the value variants named in the data model and in
// §9's design notes (tagged variant: integer, float, text, boolean,
// set-of-value, map-of-attr-to-value, collection, plus a resolved
// reference variant used once a reference attribute's value has been
// pinned to a concrete identifier).
type Kind uint8

const (
	KindInt64 Kind = iota
	KindFloat64
	KindString
	KindBool
	KindRef
	KindSet
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindInt64:
		return "int"
	case KindFloat64:
		return "float"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindRef:
		return "ref"
	case KindSet:
		return "set"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "invalid"
	}
}

// Value is an immutable, comparable-by-content attribute value.
type Value struct {
	kind   Kind
	i      int64
	f      float64
	s      string
	b      bool
	ref    ident.ID
	items  []Value
	fields map[string]Value
}

func Int(i int64) Value       { return Value{kind: KindInt64, i: i} }
func Float(f float64) Value   { return Value{kind: KindFloat64, f: f} }
func String(s string) Value   { return Value{kind: KindString, s: s} }
func Bool(b bool) Value       { return Value{kind: KindBool, b: b} }

// Ref wraps a resolved identifier (assigned or symbolic only) as a value,
// the representation a reference attribute's value takes once tempid
// resolution (§4.4) has replaced placeholders with stable identifiers.
func Ref(id ident.ID) (Value, error) {
	if !id.IsResolved() {
		return Value{}, fmt.Errorf("value: reference must be a resolved identifier, got kind %s", id.Kind())
	}
	return Value{kind: KindRef, ref: id}, nil
}

// MustRef is Ref, panicking on error. Used where the caller already knows
// id is resolved (e.g. a value freshly produced by the tempid resolver).
func MustRef(id ident.ID) Value {
	v, err := Ref(id)
	if err != nil {
		panic(err)
	}
	return v
}

// NewSet builds a cardinality-many value: a deduplicated, canonically
// ordered set. Duplicate items (per Equal) collapse to one.
func NewSet(items ...Value) Value {
	dedup := make([]Value, 0, len(items))
	for _, it := range items {
		dup := false
		for _, d := range dedup {
			if Equal(d, it) {
				dup = true
				break
			}
		}
		if !dup {
			dedup = append(dedup, it)
		}
	}
	sort.Slice(dedup, func(i, j int) bool { return Compare(dedup[i], dedup[j]) < 0 })
	return Value{kind: KindSet, items: dedup}
}

// NewList builds an ordered collection value, preserving input order.
func NewList(items ...Value) Value {
	cp := append([]Value(nil), items...)
	return Value{kind: KindList, items: cp}
}

// NewMap builds a nested map-of-attribute-to-value.
func NewMap(fields map[string]Value) Value {
	cp := make(map[string]Value, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return Value{kind: KindMap, fields: cp}
}

func (v Value) Kind() Kind                { return v.kind }
func (v Value) Int() int64                { return v.i }
func (v Value) FloatVal() float64         { return v.f }
func (v Value) Str() string               { return v.s }
func (v Value) BoolVal() bool             { return v.b }
func (v Value) RefID() ident.ID           { return v.ref }
func (v Value) Items() []Value            { return v.items }
func (v Value) Fields() map[string]Value  { return v.fields }

// Equal reports deep structural equality.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindInt64:
		return a.i == b.i
	case KindFloat64:
		return a.f == b.f
	case KindString:
		return a.s == b.s
	case KindBool:
		return a.b == b.b
	case KindRef:
		return a.ref.Equal(b.ref)
	case KindSet, KindList:
		if len(a.items) != len(b.items) {
			return false
		}
		for i := range a.items {
			if !Equal(a.items[i], b.items[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(a.fields) != len(b.fields) {
			return false
		}
		for k, av := range a.fields {
			bv, ok := b.fields[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Compare imposes a deterministic total order across all kinds, used by
// ordered-with-logarithmic-range containers and as a tie-break when
// canonically sorting sets.
func Compare(a, b Value) int {
	if a.kind != b.kind {
		if a.kind < b.kind {
			return -1
		}
		return 1
	}
	switch a.kind {
	case KindInt64:
		return cmpInt64(a.i, b.i)
	case KindFloat64:
		return cmpFloat64(a.f, b.f)
	case KindString:
		return strings.Compare(a.s, b.s)
	case KindBool:
		return cmpBool(a.b, b.b)
	case KindRef:
		return strings.Compare(a.ref.String(), b.ref.String())
	case KindSet, KindList:
		for i := 0; i < len(a.items) && i < len(b.items); i++ {
			if c := Compare(a.items[i], b.items[i]); c != 0 {
				return c
			}
		}
		return cmpInt(len(a.items), len(b.items))
	case KindMap:
		return strings.Compare(CanonicalKey(a), CanonicalKey(b))
	default:
		return 0
	}
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpFloat64(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpBool(a, b bool) int {
	if a == b {
		return 0
	}
	if !a && b {
		return -1
	}
	return 1
}

// CanonicalKey produces a deterministic string encoding of v, suitable for
// use as a map key where Go requires a `comparable` type (e.g. the
// insertion-ordered container backing) and as the basis for Hash.
func CanonicalKey(v Value) string {
	var b strings.Builder
	writeCanonical(&b, v)
	return b.String()
}

func writeCanonical(b *strings.Builder, v Value) {
	fmt.Fprintf(b, "%d:", v.kind)
	switch v.kind {
	case KindInt64:
		b.WriteString(strconv.FormatInt(v.i, 10))
	case KindFloat64:
		b.WriteString(strconv.FormatFloat(v.f, 'g', -1, 64))
	case KindString:
		b.WriteString(strconv.Quote(v.s))
	case KindBool:
		b.WriteString(strconv.FormatBool(v.b))
	case KindRef:
		b.WriteString(v.ref.String())
	case KindSet, KindList:
		b.WriteByte('[')
		for i, it := range v.items {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCanonical(b, it)
		}
		b.WriteByte(']')
	case KindMap:
		keys := make([]string, 0, len(v.fields))
		for k := range v.fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Quote(k))
			b.WriteByte(':')
			writeCanonical(b, v.fields[k])
		}
		b.WriteByte('}')
	}
}

// Hash produces a stable 32-bit hash for use as a HAMT key.
func Hash(v Value) uint32 {
	h := fnv.New32a()
	h.Write([]byte(CanonicalKey(v)))
	return h.Sum32()
}

// From converts an arbitrary user-supplied Go value (as accepted by the
// public transaction-form API) into a Value. Returns ErrNilValue for nil,
// honoring §4.6's unconditional nil-value rejection.
func From(x any) (Value, error) {
	switch t := x.(type) {
	case Value:
		return t, nil
	case nil:
		return Value{}, ErrNilValue
	case int:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case float32:
		return Float(float64(t)), nil
	case float64:
		return Float(t), nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case []any:
		items := make([]Value, 0, len(t))
		for _, e := range t {
			ev, err := From(e)
			if err != nil {
				return Value{}, err
			}
			items = append(items, ev)
		}
		return NewList(items...), nil
	case map[string]any:
		fields := make(map[string]Value, len(t))
		for k, e := range t {
			if e == nil {
				return Value{}, ErrNilValue
			}
			ev, err := From(e)
			if err != nil {
				return Value{}, err
			}
			fields[k] = ev
		}
		return NewMap(fields), nil
	default:
		return Value{}, fmt.Errorf("value: unsupported type %T", x)
	}
}

// ToAny converts a Value back to a plain Go value, the inverse of From for
// scalar and collection kinds. Reference values surface as their
// ident.ID.
func ToAny(v Value) any {
	switch v.kind {
	case KindInt64:
		return v.i
	case KindFloat64:
		return v.f
	case KindString:
		return v.s
	case KindBool:
		return v.b
	case KindRef:
		return v.ref
	case KindSet, KindList:
		out := make([]any, len(v.items))
		for i, it := range v.items {
			out[i] = ToAny(it)
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.fields))
		for k, fv := range v.fields {
			out[k] = ToAny(fv)
		}
		return out
	default:
		return nil
	}
}
