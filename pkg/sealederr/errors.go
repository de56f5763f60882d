// Package sealederr defines the three error kinds the interpreter raises:
// ParserError (invalid YAML/schema, carries a source position), ScriptError
// (any runtime failure, carries a node path), and StackError (an internal
// stack-invariant violation, surfaced to the host as a ScriptError).
//
// The shape (phase + location + message + wrapped cause) is grounded on the
// teacher's pkg/compiler/errors.go (CompileError) and pkg/vm/error.go
// (RuntimeError).
package sealederr

import (
	"fmt"
	"strconv"
	"strings"
)

// ParserError is raised by pkg/parser for invalid YAML, a schema violation,
// or a malformed custom tag. It carries the 1-indexed (line, column) the
// underlying YAML lexer reported.
type ParserError struct {
	Message string
	Line    int
	Column  int
	Cause   error
}

func (e *ParserError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parser error at line %d, column %d: %s", e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("parser error: %s", e.Message)
}

func (e *ParserError) Unwrap() error { return e.Cause }

// NewParserError creates a ParserError with the given source position.
func NewParserError(message string, line, column int) *ParserError {
	return &ParserError{Message: message, Line: line, Column: column}
}

// WrapParserError wraps cause as a ParserError at the given position.
func WrapParserError(cause error, line, column int) *ParserError {
	return &ParserError{Message: cause.Error(), Line: line, Column: column, Cause: cause}
}

// Path is a node path: a sequence of map keys (string) and list indices
// (int) locating a node within a script source tree.
type Path []any

// Key turns the path into a hashable string, distinguishing string segments
// from int segments so that Path{"0"} never collides with Path{0}.
func (p Path) Key() string {
	var b strings.Builder
	for _, seg := range p {
		switch v := seg.(type) {
		case string:
			b.WriteString("s:")
			b.WriteString(v)
		case int:
			b.WriteString("i:")
			b.WriteString(strconv.Itoa(v))
		}
		b.WriteByte(0)
	}
	return b.String()
}

func (p Path) String() string {
	var b strings.Builder
	for i, seg := range p {
		if i > 0 {
			b.WriteByte('.')
		}
		switch v := seg.(type) {
		case string:
			b.WriteString(v)
		case int:
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(v))
			b.WriteByte(']')
		default:
			fmt.Fprintf(&b, "%v", v)
		}
	}
	if b.Len() == 0 {
		return "<root>"
	}
	return b.String()
}

// ScriptError is raised by pkg/script and pkg/scene for any runtime
// failure: an unknown command, a failed argument schema check, an unknown
// label or menu id, an expression failure, or a broken save. It carries the
// node Path of the offending command, relative to the script's source list;
// with "script" prepended, a host can resolve it to a source position via
// pkg/parser's ParserContext.Trace.
type ScriptError struct {
	Message string
	NodePath Path
	Cause    error
}

func (e *ScriptError) Error() string {
	if len(e.NodePath) > 0 {
		return fmt.Sprintf("script error at %s: %s", e.NodePath, e.Message)
	}
	return fmt.Sprintf("script error: %s", e.Message)
}

func (e *ScriptError) Unwrap() error { return e.Cause }

// NewScriptError creates a ScriptError at the given node path.
func NewScriptError(message string, path Path) *ScriptError {
	return &ScriptError{Message: message, NodePath: path}
}

// WrapScriptError wraps cause as a ScriptError at the given node path.
func WrapScriptError(cause error, path Path) *ScriptError {
	return &ScriptError{Message: cause.Error(), NodePath: path, Cause: cause}
}

// ErrBrokenSave is the fixed message spec.md requires for any Load failure.
const ErrBrokenSave = "Error loading save - it may be broken or unsupported."

// NewBrokenSaveError builds the ScriptError a failed Load must return.
func NewBrokenSaveError(cause error) *ScriptError {
	return &ScriptError{Message: ErrBrokenSave, Cause: cause}
}

// StackError represents an internal stack-invariant violation (e.g. a push
// whose frame identity collides with one already on the stack). It is a
// programmer bug in the host or the interpreter itself; pkg/script always
// surfaces it to callers wrapped as a ScriptError, per spec.md §7.
type StackError struct {
	Message string
}

func (e *StackError) Error() string { return fmt.Sprintf("stack error: %s", e.Message) }

// NewStackError creates a StackError.
func NewStackError(message string) *StackError {
	return &StackError{Message: message}
}

// AsScriptError wraps a StackError for propagation to the script layer.
func (e *StackError) AsScriptError(path Path) *ScriptError {
	return WrapScriptError(e, path)
}
