package script

import (
	"testing"

	"github.com/sealedsins/sealed-away/pkg/node"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	setArgs := node.NewMap()
	setArgs.Set("name", node.String("hp"))
	setArgs.Set("value", node.Number(10))
	setCmd := node.NewMap()
	setCmd.Set("set", setArgs)

	source := []node.Node{setCmd, printCmd("a"), printCmd("b")}
	s, out := newTestScript(source)

	// Advance past the "set" so the stack's program counter is mid-script.
	if err := s.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if err := s.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if len(*out) != 1 || (*out)[0] != "a" {
		t.Fatalf("output after two steps = %v, want [a]", *out)
	}

	saved, err := s.Save()
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	// A fresh script over the same source, loaded from the save, should
	// resume exactly where s left off.
	s2, out2 := newTestScript(source)
	if err := s2.Load(saved); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s2.GetVar("hp") != 10.0 {
		t.Errorf("hp after Load = %v, want 10.0", s2.GetVar("hp"))
	}
	if err := s2.Run(); err != nil {
		t.Fatalf("Run after Load: %v", err)
	}
	if len(*out2) != 1 || (*out2)[0] != "b" {
		t.Fatalf("output after Load+Run = %v, want [b]", *out2)
	}
}

func TestLoadIsIdempotent(t *testing.T) {
	source := []node.Node{printCmd("a"), printCmd("b"), printCmd("c")}
	s, _ := newTestScript(source)
	if err := s.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}

	saved, err := s.Save()
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Load(saved); err != nil {
		t.Fatalf("first Load: %v", err)
	}
	savedAgain, err := s.Save()
	if err != nil {
		t.Fatalf("Save after Load: %v", err)
	}
	if err := s.Load(saved); err != nil {
		t.Fatalf("second Load: %v", err)
	}
	savedTwice, err := s.Save()
	if err != nil {
		t.Fatalf("Save after second Load: %v", err)
	}
	if savedAgain != savedTwice {
		t.Errorf("Load is not idempotent: %q != %q", savedAgain, savedTwice)
	}
}

func TestLoadRejectsMalformedSave(t *testing.T) {
	source := []node.Node{printCmd("a")}
	s, _ := newTestScript(source)
	if err := s.Load("not json"); err == nil {
		t.Fatal("expected an error loading a malformed save")
	}
}

func TestLoadDropsFramesWhoseCodeWasRemoved(t *testing.T) {
	source := []node.Node{ifCmd(node.Bool(true), []node.Node{printCmd("inner")}, nil)}
	s, _ := newTestScript(source)

	// Step once: the root frame (a single "if" command) is pulled and
	// popped as exhausted, and the "if" handler pushes the then-block as
	// the new active frame.
	if err := s.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if len(s.stack.Dump()) != 1 {
		t.Fatalf("expected exactly the then-block frame active, got %d frames", len(s.stack.Dump()))
	}

	saved, err := s.Save()
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	// A brand new script whose source has no "if" at all has no node at the
	// saved frame's path; Load must silently drop that frame rather than
	// error, leaving the script with an empty stack.
	other, _ := newTestScript([]node.Node{printCmd("different")})
	other.stack.Clear()
	if err := other.Load(saved); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !other.IsDone() {
		t.Error("script should be done once its only frame's path can't be resolved")
	}
}

func TestPatchAdjustsProgramCounterAfterInsertion(t *testing.T) {
	source := []node.Node{printCmd("a"), printCmd("b")}
	s, out := newTestScript(source)

	if err := s.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if len(*out) != 1 || (*out)[0] != "a" {
		t.Fatalf("output after one step = %v, want [a]", *out)
	}

	newSource := []node.Node{printCmd("a"), printCmd("inserted"), printCmd("b")}
	if err := s.Patch(newSource); err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if err := s.Run(); err != nil {
		t.Fatalf("Run after Patch: %v", err)
	}
	want := []string{"a", "inserted", "b"}
	if len(*out) != len(want) {
		t.Fatalf("output = %v, want %v", *out, want)
	}
	for i := range want {
		if (*out)[i] != want[i] {
			t.Errorf("output[%d] = %q, want %q", i, (*out)[i], want[i])
		}
	}
}

func TestSaveVersionRejectsUnsupportedVersion(t *testing.T) {
	source := []node.Node{printCmd("a")}
	s, _ := newTestScript(source)
	bad := `{"version":999,"scope":{},"stack":[]}`
	if err := s.Load(bad); err == nil {
		t.Fatal("expected an error loading an unsupported save version")
	}
}
