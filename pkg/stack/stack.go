// Package stack implements the explicit execution stack that lets a Script
// pause, resume, save, and hot-patch its running program.
//
// The frame/program-counter bookkeeping is grounded on the teacher's
// pkg/vm/vm.go call stack (StackFrame, PushStackFrame/PopStackFrame,
// MaxStackDepth), generalized from "function call frame" to "arbitrary
// node-list frame" and extended with Patch, which has no teacher analog and
// is built directly from spec.md §4.1 using pkg/diff.
package stack

import (
	"log/slog"

	"github.com/sealedsins/sealed-away/pkg/diff"
	"github.com/sealedsins/sealed-away/pkg/logger"
	"github.com/sealedsins/sealed-away/pkg/node"
	"github.com/sealedsins/sealed-away/pkg/sealederr"
)

// MaxDepth bounds the number of frames the stack will hold before a push is
// refused as a stack-invariant violation.
const MaxDepth = 1000

// Frame is a (code, programCounter) pair. Code is referenced through the
// originating *node.List rather than a plain slice, so that frame identity
// (used for save-path lookup and the push collision check) is a stable
// pointer rather than a slice header. Invariant: 0 <= PC <= len(List.Items);
// PC == len(List.Items) means the frame is exhausted.
type Frame struct {
	List *node.List
	PC   int
}

// Code returns the frame's current instruction list.
func (f *Frame) Code() []node.Node { return f.List.Items }

func (f *Frame) exhausted() bool {
	return f.PC >= len(f.List.Items)
}

// Stack is a LIFO collection of Frames. The active frame is the top; the
// root frame (index 0 of Dump) is the bottom.
type Stack struct {
	frames []*Frame
	log    *slog.Logger
}

// New creates an empty Stack.
func New() *Stack {
	return &Stack{log: logger.Get()}
}

// Push creates a new frame over list with pc=0 and makes it the active
// frame. Pushing a *node.List that already identifies an active frame is a
// stack-invariant violation (spec.md §4.1's "Failure" clause).
func (s *Stack) Push(list *node.List) (*Frame, error) {
	for _, f := range s.frames {
		if f.List == list {
			return nil, sealederr.NewStackError("push: frame with colliding code identity is already active")
		}
	}
	if len(s.frames) >= MaxDepth {
		return nil, sealederr.NewStackError("push: maximum stack depth exceeded")
	}
	f := &Frame{List: list, PC: 0}
	s.frames = append(s.frames, f)
	s.log.Debug("stack push", "depth", len(s.frames))
	return f, nil
}

// PushFrame installs an already-constructed frame (used by pkg/script.Load
// to install frames reconstructed, and then patched, from a save). It does
// not perform the collision check Push does, since a frame rebuilt from a
// save is not "the same live block" in the way a nested push during normal
// execution would be.
func (s *Stack) PushFrame(f *Frame) {
	s.frames = append(s.frames, f)
}

func (s *Stack) top() int {
	return len(s.frames) - 1
}

// Peek returns the current instruction without advancing. If the top frame
// is exhausted, Peek does not pop it — it simply reports no value.
func (s *Stack) Peek() (frame *Frame, index int, value node.Node, ok bool) {
	i := s.top()
	if i < 0 {
		return nil, 0, nil, false
	}
	f := s.frames[i]
	if f.exhausted() {
		return f, f.PC, nil, false
	}
	return f, f.PC, f.List.Items[f.PC], true
}

// Pull returns the current instruction like Peek, then advances pc. If pc
// reaches len(code) after advancing, the frame is popped.
func (s *Stack) Pull() (frame *Frame, index int, value node.Node, ok bool) {
	i := s.top()
	if i < 0 {
		return nil, 0, nil, false
	}
	f := s.frames[i]
	if f.exhausted() {
		s.popExhausted()
		return s.Pull()
	}
	value = f.List.Items[f.PC]
	index = f.PC
	f.PC++
	if f.exhausted() {
		s.popExhausted()
	}
	return f, index, value, true
}

func (s *Stack) popExhausted() {
	n := len(s.frames)
	if n == 0 {
		return
	}
	s.frames = s.frames[:n-1]
	s.log.Debug("stack pop (exhausted)", "depth", len(s.frames))
}

// IsEmpty reports whether no frame would yield a value from Peek/Pull. It
// lazily discards any exhausted frames it encounters on the way down, since
// those can never yield a value again.
func (s *Stack) IsEmpty() bool {
	for len(s.frames) > 0 {
		top := s.frames[len(s.frames)-1]
		if !top.exhausted() {
			return false
		}
		s.popExhausted()
	}
	return true
}

// Clear removes all frames.
func (s *Stack) Clear() {
	s.frames = nil
}

// Dump returns the observable list of frames, root first (bottom-up).
func (s *Stack) Dump() []*Frame {
	out := make([]*Frame, len(s.frames))
	copy(out, s.frames)
	return out
}

// Root returns the bottom (root) frame, or nil if the stack is empty.
func (s *Stack) Root() *Frame {
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[0]
}

// Patch replaces frame's code with newList and shifts frame.PC so it keeps
// pointing at the same logical instruction whenever possible, using a
// line-level diff between the old and new code (spec.md §4.1).
//
// Algorithm: walk the edit script produced by diff.Array(oldCode, newCode),
// maintaining a cursor into the old code starting at 0. For every change
// consumed before the cursor reaches the frame's original pc: a Removed
// change decrements pc and advances the cursor, an Inserted change
// increments pc, a Kept change advances the cursor. Walking stops as soon as the cursor reaches the
// original pc — so if the instruction at pc itself was replaced by one or
// more inserts, execution resumes at the first inserted instruction at that
// position (spec.md §9's resolved Open Question).
func (s *Stack) Patch(frame *Frame, newList *node.List) {
	oldCode := frame.List.Items
	newCode := newList.Items
	originalPC := frame.PC

	changes := diff.Array(oldCode, newCode, node.Equal)

	pc := originalPC
	cursor := 0
	for _, c := range changes {
		if cursor >= originalPC {
			break
		}
		switch c.Kind {
		case diff.Removed:
			pc--
			cursor++
		case diff.Inserted:
			pc++
		case diff.Kept:
			cursor++
		}
	}

	if pc < 0 {
		pc = 0
	}
	if pc > len(newCode) {
		pc = len(newCode)
	}

	frame.List = newList
	frame.PC = pc
	s.log.Debug("stack patch", "old_pc", originalPC, "new_pc", pc, "old_len", len(oldCode), "new_len", len(newCode))
}
