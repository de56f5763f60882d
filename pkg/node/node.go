// Package node defines the tagged-union value type produced by the parser
// and walked by every other component of the interpreter.
//
// A Node is one of: Null, Bool, Number, String, an ordered List, an ordered
// Map, a tagged Expr (an !exp scalar), or a tagged Fmt (an !fmt scalar).
// Concrete node types are allocated once by the parser and never copied by
// value afterwards, so that a side table keyed by node identity (pointer)
// can map a node back to its source position even when two nodes are
// structurally equal.
package node

import "fmt"

// Node is implemented by every concrete node type.
type Node interface {
	// Kind identifies the concrete type for dispatch without a type switch
	// at every call site.
	Kind() Kind
	// Clone returns a deep copy that shares no mutable List/Map node with
	// the original.
	Clone() Node
}

// Kind enumerates the concrete Node implementations.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindMap
	KindExpr
	KindFmt
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindExpr:
		return "expr"
	case KindFmt:
		return "fmt"
	default:
		return "unknown"
	}
}

// Null is the JSON null value.
type Null struct{}

func (Null) Kind() Kind   { return KindNull }
func (n Null) Clone() Node { return n }

// Bool wraps a JSON boolean.
type Bool bool

func (Bool) Kind() Kind   { return KindBool }
func (b Bool) Clone() Node { return b }

// Number wraps a JSON number. All numbers are stored as float64, matching
// JSON's single numeric type.
type Number float64

func (Number) Kind() Kind   { return KindNumber }
func (n Number) Clone() Node { return n }

// String wraps a JSON string.
type String string

func (String) Kind() Kind   { return KindString }
func (s String) Clone() Node { return s }

// List is an ordered, mutable node list. It is a pointer type so that
// identity is preserved across the tree: *List is the unit of node
// identity the position side table keys off.
type List struct {
	Items []Node
}

func NewList(items ...Node) *List {
	return &List{Items: items}
}

func (*List) Kind() Kind { return KindList }

func (l *List) Clone() Node {
	items := make([]Node, len(l.Items))
	for i, it := range l.Items {
		items[i] = it.Clone()
	}
	return &List{Items: items}
}

// Map is an ordered mapping from string key to Node. Order is preserved
// (unlike a plain Go map) because a command node is a single-key mapping
// and menu/page merges must preserve authoring order.
type Map struct {
	Keys   []string
	Values map[string]Node
}

func NewMap() *Map {
	return &Map{Values: make(map[string]Node)}
}

func (*Map) Kind() Kind { return KindMap }

// Get returns the value for key and whether it was present.
func (m *Map) Get(key string) (Node, bool) {
	v, ok := m.Values[key]
	return v, ok
}

// Set inserts or overwrites key, preserving the original insertion order of
// keys already present.
func (m *Map) Set(key string, v Node) {
	if _, ok := m.Values[key]; !ok {
		m.Keys = append(m.Keys, key)
	}
	m.Values[key] = v
}

func (m *Map) Clone() Node {
	out := NewMap()
	for _, k := range m.Keys {
		out.Set(k, m.Values[k].Clone())
	}
	return out
}

// Expr is a scalar wrapped by the !exp YAML tag: an expression to be
// evaluated against the current scope.
type Expr struct {
	Source string
}

func (*Expr) Kind() Kind    { return KindExpr }
func (e *Expr) Clone() Node { return &Expr{Source: e.Source} }

// Fmt is a scalar wrapped by the !fmt YAML tag: a string template whose
// {{ EXPR }} spans are substituted at render time.
type Fmt struct {
	Source string
}

func (*Fmt) Kind() Kind    { return KindFmt }
func (f *Fmt) Clone() Node { return &Fmt{Source: f.Source} }

// Equal reports whether a and b are deeply, structurally equal. Two
// distinct List/Map pointers with equal contents compare equal; this is the
// default equality function used by pkg/diff.
func Equal(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case Null:
		return true
	case Bool:
		return av == b.(Bool)
	case Number:
		return av == b.(Number)
	case String:
		return av == b.(String)
	case *List:
		bv := b.(*List)
		if len(av.Items) != len(bv.Items) {
			return false
		}
		for i := range av.Items {
			if !Equal(av.Items[i], bv.Items[i]) {
				return false
			}
		}
		return true
	case *Map:
		bv := b.(*Map)
		if len(av.Keys) != len(bv.Keys) {
			return false
		}
		for _, k := range av.Keys {
			bVal, ok := bv.Get(k)
			if !ok || !Equal(av.Values[k], bVal) {
				return false
			}
		}
		return true
	case *Expr:
		return av.Source == b.(*Expr).Source
	case *Fmt:
		return av.Source == b.(*Fmt).Source
	default:
		panic(fmt.Sprintf("node: unhandled kind in Equal: %T", a))
	}
}

// AsCommand unpacks a node as a single-key command mapping {name: args} and
// returns the command name and its argument node. ok is false if n is not a
// *Map with exactly one key.
func AsCommand(n Node) (name string, args Node, ok bool) {
	m, isMap := n.(*Map)
	if !isMap || len(m.Keys) != 1 {
		return "", nil, false
	}
	name = m.Keys[0]
	args, _ = m.Get(name)
	return name, args, true
}

// ToGo converts a Node tree into plain Go values (nil, bool, float64,
// string, []any, map[string]any, or the tagged Expr/Fmt types themselves
// for leaf nodes a caller cannot otherwise represent). This is the
// conversion pkg/script and pkg/scene use to store node values in the scope.
func ToGo(n Node) any {
	switch v := n.(type) {
	case nil:
		return nil
	case Null:
		return nil
	case Bool:
		return bool(v)
	case Number:
		return float64(v)
	case String:
		return string(v)
	case *List:
		out := make([]any, len(v.Items))
		for i, it := range v.Items {
			out[i] = ToGo(it)
		}
		return out
	case *Map:
		out := make(map[string]any, len(v.Keys))
		for _, k := range v.Keys {
			out[k] = ToGo(v.Values[k])
		}
		return out
	case *Expr:
		return v
	case *Fmt:
		return v
	default:
		panic(fmt.Sprintf("node: unhandled kind in ToGo: %T", n))
	}
}

// FromGo converts a plain Go value back into a Node tree. It is the inverse
// of ToGo for values built from JSON-decoded data (map[string]any,
// []any, string, float64/int, bool, nil) and passes *Expr/*Fmt through
// unchanged.
func FromGo(v any) Node {
	switch val := v.(type) {
	case nil:
		return Null{}
	case Node:
		return val
	case bool:
		return Bool(val)
	case float64:
		return Number(val)
	case int:
		return Number(val)
	case int64:
		return Number(val)
	case string:
		return String(val)
	case []any:
		items := make([]Node, len(val))
		for i, it := range val {
			items[i] = FromGo(it)
		}
		return &List{Items: items}
	case map[string]any:
		m := NewMap()
		for k, it := range val {
			m.Set(k, FromGo(it))
		}
		return m
	default:
		panic(fmt.Sprintf("node: cannot convert %T to Node", v))
	}
}
