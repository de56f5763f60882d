package stack

import (
	"testing"

	"github.com/sealedsins/sealed-away/pkg/node"
)

func TestPushPeekPull(t *testing.T) {
	s := New()
	list := node.NewList(node.String("a"), node.String("b"))
	if _, err := s.Push(list); err != nil {
		t.Fatalf("Push: %v", err)
	}

	_, idx, val, ok := s.Peek()
	if !ok || idx != 0 || val.(node.String) != node.String("a") {
		t.Fatalf("Peek = %v, %v, %v", idx, val, ok)
	}
	// Peek must not advance.
	_, idx2, _, _ := s.Peek()
	if idx2 != 0 {
		t.Fatalf("Peek advanced pc to %d", idx2)
	}

	_, idx, val, ok = s.Pull()
	if !ok || idx != 0 || val.(node.String) != node.String("a") {
		t.Fatalf("first Pull = %v, %v, %v", idx, val, ok)
	}
	_, idx, val, ok = s.Pull()
	if !ok || idx != 1 || val.(node.String) != node.String("b") {
		t.Fatalf("second Pull = %v, %v, %v", idx, val, ok)
	}

	// Frame exhausted after the last item; stack now reports empty.
	if !s.IsEmpty() {
		t.Fatal("stack should be empty after exhausting the only frame")
	}
	if _, _, _, ok = s.Pull(); ok {
		t.Fatal("Pull on an empty stack should report ok=false")
	}
}

func TestPushCollisionDetection(t *testing.T) {
	s := New()
	list := node.NewList(node.String("a"))
	if _, err := s.Push(list); err != nil {
		t.Fatalf("first Push: %v", err)
	}
	if _, err := s.Push(list); err == nil {
		t.Fatal("expected an error pushing the same *node.List identity twice")
	}
}

func TestPushMaxDepth(t *testing.T) {
	s := New()
	for i := 0; i < MaxDepth; i++ {
		list := node.NewList(node.String("x"))
		if _, err := s.Push(list); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
	if _, err := s.Push(node.NewList(node.String("overflow"))); err == nil {
		t.Fatal("expected MaxDepth to be enforced")
	}
}

func TestIsEmptyDiscardsExhaustedFrames(t *testing.T) {
	s := New()
	empty := node.NewList()
	s.Push(empty)
	if !s.IsEmpty() {
		t.Fatal("a frame over an empty list should read as exhausted immediately")
	}
}

func TestClearAndDump(t *testing.T) {
	s := New()
	a := node.NewList(node.String("a"))
	b := node.NewList(node.String("b"))
	s.Push(a)
	s.Push(b)

	dump := s.Dump()
	if len(dump) != 2 || dump[0].List != a || dump[1].List != b {
		t.Fatalf("Dump = %v", dump)
	}
	if root := s.Root(); root == nil || root.List != a {
		t.Fatalf("Root = %v, want frame over a", root)
	}

	s.Clear()
	if !s.IsEmpty() {
		t.Fatal("stack should be empty after Clear")
	}
	if s.Root() != nil {
		t.Fatal("Root should be nil after Clear")
	}
}

func TestPatchNoChangeKeepsPC(t *testing.T) {
	s := New()
	old := node.NewList(node.String("a"), node.String("b"), node.String("c"))
	f := &Frame{List: old, PC: 2}
	same := node.NewList(node.String("a"), node.String("b"), node.String("c"))
	s.Patch(f, same)
	if f.PC != 2 {
		t.Errorf("PC = %d, want 2 (unchanged code should not move pc)", f.PC)
	}
}

func TestPatchInsertionRightAtPCLandsOnInsert(t *testing.T) {
	// An insertion landing exactly at the old pc boundary is treated like a
	// replacement: execution resumes at the newly inserted instruction
	// rather than skipping past it to the original one.
	old := node.NewList(node.String("a"), node.String("b"))
	f := &Frame{List: old, PC: 1} // about to run "b"
	patched := node.NewList(node.String("a"), node.String("new"), node.String("b"))
	s := New()
	s.Patch(f, patched)
	if f.PC != 1 {
		t.Errorf("PC = %d, want 1 (resume at the inserted instruction)", f.PC)
	}
	if f.List.Items[f.PC].(node.String) != node.String("new") {
		t.Errorf("patched code at pc = %v, want \"new\"", f.List.Items[f.PC])
	}
}

func TestPatchRemovalBeforePCShiftsBackward(t *testing.T) {
	old := node.NewList(node.String("a"), node.String("b"), node.String("c"))
	f := &Frame{List: old, PC: 2} // about to run "c"
	patched := node.NewList(node.String("a"), node.String("c"))
	s := New()
	s.Patch(f, patched)
	if f.PC != 1 {
		t.Errorf("PC = %d, want 1 (pc should shift backward to stay on \"c\")", f.PC)
	}
	if f.List.Items[f.PC].(node.String) != node.String("c") {
		t.Errorf("patched code at pc = %v, want \"c\"", f.List.Items[f.PC])
	}
}

func TestPatchReplacingCurrentInstructionLandsOnInsert(t *testing.T) {
	old := node.NewList(node.String("a"), node.String("b"), node.String("c"))
	f := &Frame{List: old, PC: 1} // about to run "b"
	patched := node.NewList(node.String("a"), node.String("replaced"), node.String("c"))
	s := New()
	s.Patch(f, patched)
	if f.PC != 1 {
		t.Errorf("PC = %d, want 1 (resume at the replacement)", f.PC)
	}
	if f.List.Items[f.PC].(node.String) != node.String("replaced") {
		t.Errorf("patched code at pc = %v, want \"replaced\"", f.List.Items[f.PC])
	}
}

func TestPatchClampsPCToNewLength(t *testing.T) {
	old := node.NewList(node.String("a"), node.String("b"), node.String("c"))
	f := &Frame{List: old, PC: 3} // exhausted
	patched := node.NewList(node.String("a"))
	s := New()
	s.Patch(f, patched)
	if f.PC > len(patched.Items) {
		t.Errorf("PC = %d, want <= %d", f.PC, len(patched.Items))
	}
}
