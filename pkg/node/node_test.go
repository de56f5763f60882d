package node

import "testing"

func TestEqual(t *testing.T) {
	cases := []struct {
		name string
		a, b Node
		want bool
	}{
		{"null equal", Null{}, Null{}, true},
		{"bool equal", Bool(true), Bool(true), true},
		{"bool unequal", Bool(true), Bool(false), false},
		{"number equal", Number(1.5), Number(1.5), true},
		{"string unequal", String("a"), String("b"), false},
		{"different kinds", Bool(true), Number(1), false},
		{"lists equal", NewList(Number(1), Number(2)), NewList(Number(1), Number(2)), true},
		{"lists different length", NewList(Number(1)), NewList(Number(1), Number(2)), false},
		{"lists different order", NewList(Number(1), Number(2)), NewList(Number(2), Number(1)), false},
		{"expr equal", &Expr{Source: "x+1"}, &Expr{Source: "x+1"}, true},
		{"fmt unequal", &Fmt{Source: "a"}, &Fmt{Source: "b"}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Equal(c.a, c.b); got != c.want {
				t.Errorf("Equal(%v, %v) = %v, want %v", c.a, c.b, got, c.want)
			}
		})
	}
}

func TestMapPreservesInsertionOrder(t *testing.T) {
	m := NewMap()
	m.Set("b", String("2"))
	m.Set("a", String("1"))
	m.Set("b", String("overwritten"))

	want := []string{"b", "a"}
	if len(m.Keys) != len(want) {
		t.Fatalf("Keys = %v, want %v", m.Keys, want)
	}
	for i, k := range want {
		if m.Keys[i] != k {
			t.Errorf("Keys[%d] = %q, want %q", i, m.Keys[i], k)
		}
	}
	v, ok := m.Get("b")
	if !ok || v.(String) != String("overwritten") {
		t.Errorf("Get(b) = %v, %v", v, ok)
	}
}

func TestCloneIsDeep(t *testing.T) {
	original := NewList(NewMap())
	clone := original.Clone().(*List)

	originalMap := original.Items[0].(*Map)
	cloneMap := clone.Items[0].(*Map)
	if originalMap == cloneMap {
		t.Fatal("Clone aliased the nested map instead of copying it")
	}

	originalMap.Set("x", Number(1))
	if _, ok := cloneMap.Get("x"); ok {
		t.Error("mutating the original map leaked into the clone")
	}
}

func TestAsCommand(t *testing.T) {
	m := NewMap()
	m.Set("print", String("hi"))
	name, args, ok := AsCommand(m)
	if !ok || name != "print" || args.(String) != String("hi") {
		t.Errorf("AsCommand = %q, %v, %v", name, args, ok)
	}

	multi := NewMap()
	multi.Set("a", Null{})
	multi.Set("b", Null{})
	if _, _, ok := AsCommand(multi); ok {
		t.Error("AsCommand accepted a multi-key mapping")
	}

	if _, _, ok := AsCommand(String("not a command")); ok {
		t.Error("AsCommand accepted a non-mapping")
	}
}

func TestToGoFromGoRoundTrip(t *testing.T) {
	m := NewMap()
	m.Set("name", String("Alice"))
	m.Set("age", Number(30))
	m.Set("tags", NewList(String("a"), String("b")))
	m.Set("active", Bool(true))
	m.Set("nothing", Null{})

	goVal := ToGo(m)
	back := FromGo(goVal)

	mm, ok := back.(*Map)
	if !ok {
		t.Fatalf("FromGo did not produce a *Map: %T", back)
	}
	if v, _ := mm.Get("name"); v.(String) != String("Alice") {
		t.Errorf("name = %v", v)
	}
	if v, _ := mm.Get("age"); v.(Number) != Number(30) {
		t.Errorf("age = %v", v)
	}
}

func TestFromGoPassesThroughTaggedNodes(t *testing.T) {
	e := &Expr{Source: "x+1"}
	if FromGo(e) != Node(e) {
		t.Error("FromGo should pass a Node through unchanged")
	}
}
