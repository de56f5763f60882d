// Package script implements the generic command interpreter: a Script owns
// a Scope, a Stack, and a table of command handlers, and steps through its
// source one node at a time.
//
// The composition (scope + stack + dispatch table + subscriber list) and
// the functional-option construction are grounded on the teacher's
// pkg/vm/vm.go (VM, Option, WithLogLevel) and pkg/vm/dispatch.go (the
// OpCode.Cmd switch). Where the teacher dispatches a fixed, compiled-in set
// of opcodes, Script keeps the table open via RegisterCommand so pkg/scene
// can add its own dialect without pkg/script knowing about it.
package script

import (
	"fmt"
	"log/slog"

	"github.com/sealedsins/sealed-away/pkg/logger"
	"github.com/sealedsins/sealed-away/pkg/node"
	"github.com/sealedsins/sealed-away/pkg/scope"
	"github.com/sealedsins/sealed-away/pkg/sealederr"
	"github.com/sealedsins/sealed-away/pkg/serializer"
	"github.com/sealedsins/sealed-away/pkg/stack"
)

// Event is what a subscriber receives from Emit, either internally (the
// built-in "step" event) or via the "emit" command.
type Event struct {
	Type string
	Data any
}

// Listener receives every Event a Script emits, in emission order.
type Listener func(Event)

// Handler executes one command's resolved, schema-checked behavior. args is
// the command's raw (unresolved) argument node; path is the command's node
// path, used to build a *sealederr.ScriptError if the handler fails.
type Handler func(s *Script, args node.Node, path sealederr.Path) error

// Option configures a Script at construction time.
type Option func(*Script)

// WithLogger overrides the logger this Script writes to (by default the
// package-level logger).
func WithLogger(l *slog.Logger) Option {
	return func(s *Script) { s.log = l }
}

// WithPrintFunc overrides the sink the "print" command writes to. The
// default sink logs at info level; a host embedding the interpreter (or a
// test asserting on output) will usually want its own.
func WithPrintFunc(fn func(string)) Option {
	return func(s *Script) { s.printFunc = fn }
}

// Script is the runtime state of one interpreter instance: the source
// program, its variable scope, its execution stack, and the set of commands
// it knows how to run.
type Script struct {
	source *node.List

	scope      *scope.Scope
	stack      *stack.Stack
	serializer *serializer.Serializer

	commands map[string]Handler

	listeners []listenerEntry
	nextID    int

	printFunc func(string)
	log       *slog.Logger

	listPaths map[*node.List]sealederr.Path
	pathLists map[string]*node.List
}

type listenerEntry struct {
	id int
	fn Listener
}

// New creates a Script over source and pushes it as the root frame.
func New(source []node.Node, opts ...Option) *Script {
	root := &node.List{Items: source}
	s := &Script{
		source:     root,
		scope:      scope.New(),
		stack:      stack.New(),
		serializer: serializer.New(),
		commands:   make(map[string]Handler),
		log:        logger.Get(),
	}
	s.printFunc = func(msg string) { s.log.Info(msg) }
	s.registerBuiltins()
	for _, opt := range opts {
		opt(s)
	}
	s.reindex()
	if _, err := s.stack.Push(s.source); err != nil {
		// A fresh stack can never collide; surfaced only in case Push's
		// invariants ever change underneath this call.
		panic(err)
	}
	return s
}

// reindex rebuilds the forward (list -> path) and reverse (path -> list)
// indices used by Save/Load, walking the whole current source tree. It must
// be called whenever s.source changes identity, i.e. at construction and in
// Patch.
func (s *Script) reindex() {
	fwd := make(map[*node.List]sealederr.Path)
	rev := make(map[string]*node.List)
	indexTree(s.source, sealederr.Path{}, fwd, rev)
	s.listPaths = fwd
	s.pathLists = rev
}

func indexTree(n node.Node, path sealederr.Path, fwd map[*node.List]sealederr.Path, rev map[string]*node.List) {
	switch v := n.(type) {
	case *node.List:
		cp := append(sealederr.Path{}, path...)
		fwd[v] = cp
		rev[cp.Key()] = v
		for i, item := range v.Items {
			indexTree(item, append(append(sealederr.Path{}, path...), i), fwd, rev)
		}
	case *node.Map:
		for _, k := range v.Keys {
			indexTree(v.Values[k], append(append(sealederr.Path{}, path...), k), fwd, rev)
		}
	}
}

// RegisterCommand adds or overrides a command handler. pkg/scene uses this
// to graft its own dialect onto an embedded *Script.
func (s *Script) RegisterCommand(name string, h Handler) {
	s.commands[name] = h
}

// IsDone reports whether the script has no more instructions to run.
func (s *Script) IsDone() bool {
	return s.stack.IsEmpty()
}

// GetVar reads a scope variable.
func (s *Script) GetVar(name string) any {
	return s.scope.Get(name)
}

// SetVar writes a scope variable.
func (s *Script) SetVar(name string, value any) {
	s.scope.Set(name, value)
}

// Scope exposes the underlying Scope for dialects that need direct access
// (pkg/scene's reserved-key bookkeeping).
func (s *Script) Scope() *scope.Scope { return s.scope }

// Subscribe registers a listener for every event the script emits and
// returns an unsubscribe function. Unsubscribing mid-dispatch removes the
// listener for subsequent events without interrupting the Emit call that
// triggered it, since Emit iterates over a snapshot taken before any
// listener runs.
func (s *Script) Subscribe(fn Listener) func() {
	id := s.nextID
	s.nextID++
	s.listeners = append(s.listeners, listenerEntry{id: id, fn: fn})
	return func() {
		for i, e := range s.listeners {
			if e.id == id {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// Emit sends an event to every currently subscribed listener.
func (s *Script) Emit(eventType string, data any) {
	snapshot := make([]listenerEntry, len(s.listeners))
	copy(snapshot, s.listeners)
	for _, e := range snapshot {
		e.fn(Event{Type: eventType, Data: data})
	}
}

// Step executes exactly one instruction: it pulls the current instruction
// off the stack, resolves and validates its arguments, and dispatches to
// the matching command handler. If the stack is empty, Step is a no-op. On
// success it emits a "step" event; on failure it returns a
// *sealederr.ScriptError carrying the failed command's node path and does
// not emit anything.
func (s *Script) Step() error {
	frame, index, value, ok := s.stack.Pull()
	if !ok {
		return nil
	}
	path := s.pathFor(frame, index)

	if err := s.exec(value, path); err != nil {
		if se, isScriptErr := err.(*sealederr.ScriptError); isScriptErr {
			return se
		}
		return sealederr.WrapScriptError(err, path)
	}
	s.Emit("step", nil)
	return nil
}

// Run steps until the script is done or a command fails.
func (s *Script) Run() error {
	for !s.IsDone() {
		if err := s.Step(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Script) pathFor(frame *stack.Frame, index int) sealederr.Path {
	base, ok := s.listPaths[frame.List]
	if !ok {
		base = sealederr.Path{}
	}
	return append(append(sealederr.Path{}, base...), index)
}

func (s *Script) exec(n node.Node, path sealederr.Path) error {
	name, args, ok := node.AsCommand(n)
	if !ok {
		return sealederr.NewScriptError("not a valid command: expected a single-key mapping", path)
	}
	handler, known := s.commands[name]
	if !known {
		return sealederr.NewScriptError(fmt.Sprintf("unknown command %q", name), path)
	}
	return handler(s, args, path)
}

// resolveNode recursively substitutes every *node.Expr (evaluated via the
// scope) and *node.Fmt (rendered as a template) it finds, walking through
// List items and Map values. It is applied only to a command's data
// arguments — a command's own code-block fields (if.then/else,
// scene.menu's entry bodies) are pushed onto the stack unresolved and
// substituted individually when each of their instructions is stepped, not
// ahead of time. See DESIGN.md for why this departs from a single blanket
// substitution over the whole argument tree.
func (s *Script) resolveNode(n node.Node) (node.Node, error) {
	switch v := n.(type) {
	case *node.Expr:
		val, err := s.scope.RenderExpression(v.Source)
		if err != nil {
			return nil, err
		}
		return node.FromGo(val), nil
	case *node.Fmt:
		val, err := s.scope.RenderTemplate(v.Source)
		if err != nil {
			return nil, err
		}
		return node.String(val), nil
	case *node.List:
		out := make([]node.Node, len(v.Items))
		for i, item := range v.Items {
			resolved, err := s.resolveNode(item)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return &node.List{Items: out}, nil
	case *node.Map:
		out := node.NewMap()
		for _, k := range v.Keys {
			resolved, err := s.resolveNode(v.Values[k])
			if err != nil {
				return nil, err
			}
			out.Set(k, resolved)
		}
		return out, nil
	default:
		return n, nil
	}
}

// Jump repositions the root frame's program counter to the first root-level
// "label" command whose name equals label. Jump only ever affects the root
// frame: nested block frames (an active if.then, a scene page body) are
// left exactly as they are, since a label is a root-level address.
func (s *Script) Jump(label string) error {
	idx := -1
	for i, n := range s.source.Items {
		if name, args, ok := node.AsCommand(n); ok && name == "label" {
			if str, isString := args.(node.String); isString && string(str) == label {
				idx = i
				break
			}
		}
	}
	if idx < 0 {
		return sealederr.NewScriptError(fmt.Sprintf("unknown label %q", label), nil)
	}
	root := s.stack.Root()
	if root == nil {
		var err error
		root, err = s.stack.Push(s.source)
		if err != nil {
			return sealederr.WrapScriptError(err, nil)
		}
	}
	root.List = s.source
	root.PC = idx
	return nil
}

// pushBlock pushes a code block (an if.then/else list, a scene page's body,
// a menu entry's body) as a new active frame.
func (s *Script) pushBlock(list *node.List) error {
	if _, err := s.stack.Push(list); err != nil {
		return err
	}
	return nil
}

// Resolve exposes resolveNode to dialect packages (pkg/scene) that register
// their own commands and need the same expression/template substitution
// builtin commands get.
func (s *Script) Resolve(n node.Node) (node.Node, error) {
	return s.resolveNode(n)
}

// PushBlock exposes pushBlock to dialect packages.
func (s *Script) PushBlock(list *node.List) error {
	return s.pushBlock(list)
}

// PathOf returns the node path of list within source, if list is part of
// the current source tree.
func (s *Script) PathOf(list *node.List) (sealederr.Path, bool) {
	p, ok := s.listPaths[list]
	return p, ok
}

// ResolvePath looks up the *node.List at a JSON-decoded path (as produced
// by PathOf and round-tripped through a scope value, e.g. a menu entry's
// stored path) within the current source tree.
func (s *Script) ResolvePath(raw []any) (*node.List, bool) {
	path := decodePath(raw)
	list, ok := s.pathLists[path.Key()]
	return list, ok
}

// Peek returns the instruction the active frame will yield next, without
// advancing past it. Used by pkg/scene's "page" handler to look ahead for a
// queued "menu" command.
func (s *Script) Peek() (value node.Node, ok bool) {
	_, _, v, ok := s.stack.Peek()
	return v, ok
}

// ArgMap requires args to be a *node.Map, returning a schema-violation
// *sealederr.ScriptError otherwise.
func ArgMap(args node.Node, command string, path sealederr.Path) (*node.Map, error) {
	m, ok := args.(*node.Map)
	if !ok {
		return nil, sealederr.NewScriptError(fmt.Sprintf("%s: expected a mapping argument", command), path)
	}
	return m, nil
}

func RequireField(m *node.Map, field, command string, path sealederr.Path) (node.Node, error) {
	v, ok := m.Get(field)
	if !ok {
		return nil, sealederr.NewScriptError(fmt.Sprintf("%s: missing required field %q", command, field), path)
	}
	return v, nil
}

func AsString(n node.Node, command string, path sealederr.Path) (string, error) {
	switch v := n.(type) {
	case node.String:
		return string(v), nil
	default:
		return "", sealederr.NewScriptError(fmt.Sprintf("%s: expected a string, got %s", command, n.Kind()), path)
	}
}

func AsBlock(n node.Node, command string, path sealederr.Path) (*node.List, error) {
	l, ok := n.(*node.List)
	if !ok {
		return nil, sealederr.NewScriptError(fmt.Sprintf("%s: expected a list of commands", command), path)
	}
	return l, nil
}

// registerBuiltins wires up the fixed command set spec.md §4.6 defines:
// if, label, jump, eval, print, throw, set, emit.
func (s *Script) registerBuiltins() {
	s.commands["label"] = func(s *Script, args node.Node, path sealederr.Path) error {
		// No-op at runtime: labels are only addresses Jump searches for.
		_, err := AsString(args, "label", path)
		return err
	}

	s.commands["jump"] = func(s *Script, args node.Node, path sealederr.Path) error {
		resolved, err := s.resolveNode(args)
		if err != nil {
			return err
		}
		label, err := AsString(resolved, "jump", path)
		if err != nil {
			return err
		}
		if err := s.Jump(label); err != nil {
			return sealederr.WrapScriptError(err, path)
		}
		return nil
	}

	s.commands["print"] = func(s *Script, args node.Node, path sealederr.Path) error {
		resolved, err := s.resolveNode(args)
		if err != nil {
			return err
		}
		str, err := AsString(resolved, "print", path)
		if err != nil {
			return err
		}
		s.printFunc(str)
		return nil
	}

	s.commands["throw"] = func(s *Script, args node.Node, path sealederr.Path) error {
		resolved, err := s.resolveNode(args)
		if err != nil {
			return err
		}
		str, err := AsString(resolved, "throw", path)
		if err != nil {
			return err
		}
		return sealederr.NewScriptError(str, path)
	}

	s.commands["eval"] = func(s *Script, args node.Node, path sealederr.Path) error {
		resolved, err := s.resolveNode(args)
		if err != nil {
			return err
		}
		str, err := AsString(resolved, "eval", path)
		if err != nil {
			return err
		}
		if err := s.scope.EvalStatements(str); err != nil {
			return sealederr.WrapScriptError(err, path)
		}
		return nil
	}

	s.commands["set"] = func(s *Script, args node.Node, path sealederr.Path) error {
		m, err := ArgMap(args, "set", path)
		if err != nil {
			return err
		}
		nameNode, err := RequireField(m, "name", "set", path)
		if err != nil {
			return err
		}
		resolvedName, err := s.resolveNode(nameNode)
		if err != nil {
			return err
		}
		name, err := AsString(resolvedName, "set", path)
		if err != nil {
			return err
		}
		valueNode, err := RequireField(m, "value", "set", path)
		if err != nil {
			return err
		}
		resolvedValue, err := s.resolveNode(valueNode)
		if err != nil {
			return err
		}
		s.scope.Set(name, node.ToGo(resolvedValue))
		return nil
	}

	s.commands["emit"] = func(s *Script, args node.Node, path sealederr.Path) error {
		m, err := ArgMap(args, "emit", path)
		if err != nil {
			return err
		}
		typeNode, err := RequireField(m, "type", "emit", path)
		if err != nil {
			return err
		}
		resolvedType, err := s.resolveNode(typeNode)
		if err != nil {
			return err
		}
		eventType, err := AsString(resolvedType, "emit", path)
		if err != nil {
			return err
		}
		var data any
		if dataNode, ok := m.Get("data"); ok {
			resolvedData, err := s.resolveNode(dataNode)
			if err != nil {
				return err
			}
			data = node.ToGo(resolvedData)
		}
		s.Emit(eventType, data)
		return nil
	}

	s.commands["if"] = func(s *Script, args node.Node, path sealederr.Path) error {
		m, err := ArgMap(args, "if", path)
		if err != nil {
			return err
		}
		condNode, err := RequireField(m, "cond", "if", path)
		if err != nil {
			return err
		}
		resolvedCond, err := s.resolveNode(condNode)
		if err != nil {
			return err
		}
		branchKey := "else"
		if truthy(node.ToGo(resolvedCond)) {
			branchKey = "then"
		}
		branchNode, ok := m.Get(branchKey)
		if !ok {
			return nil
		}
		block, err := AsBlock(branchNode, "if", path)
		if err != nil {
			return err
		}
		return s.pushBlock(block)
	}
}

// truthy mirrors expr-lang's own truthiness: nil and false are falsy, every
// other value (including zero, the empty string, and empty collections) is
// truthy. Kept explicit here rather than delegated to expr so "if" behaves
// identically whether cond came from a bare !exp or a literal boolean.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	default:
		return true
	}
}
