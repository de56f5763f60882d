// Package scope holds the variable environment of a running script and
// evaluates expressions and string templates against it.
//
// The storage shape (sync.RWMutex-guarded map[string]any, Get/Set/Keys/
// Clear/Size) is grounded on the teacher's pkg/vm/scope.go. The parent-chain
// lookup that file implements is dropped: spec.md's Scope is a single flat
// environment, since the Script/Scene dialect has no lexical nesting
// concept (no user-defined functions in this core).
package scope

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/expr-lang/expr"

	"github.com/sealedsins/sealed-away/pkg/logger"
	"github.com/sealedsins/sealed-away/pkg/node"
)

// Scope is the mutable variable environment. Reads of unknown names return
// nil (never an error); only expression/template evaluation can fail.
type Scope struct {
	mu   sync.RWMutex
	vars map[string]any
	log  *slog.Logger
}

// New creates an empty Scope.
func New() *Scope {
	return &Scope{vars: make(map[string]any), log: logger.Get()}
}

// Get returns the value bound to name, or nil if unbound.
func (s *Scope) Get(name string) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vars[name]
}

// Set binds name to value.
func (s *Scope) Set(name string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vars[name] = value
}

// Has reports whether name is explicitly bound (distinct from bound-to-nil).
func (s *Scope) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.vars[name]
	return ok
}

// Delete removes name from the scope.
func (s *Scope) Delete(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.vars, name)
}

// Dump returns a shallow copy of the whole variable mapping, used by
// pkg/script's Save.
func (s *Scope) Dump() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.vars))
	for k, v := range s.vars {
		out[k] = v
	}
	return out
}

// Load replaces the whole variable mapping, used by pkg/script's Load.
func (s *Scope) Load(vars map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if vars == nil {
		vars = make(map[string]any)
	}
	s.vars = vars
}

// Clear removes every variable.
func (s *Scope) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vars = make(map[string]any)
}

// env builds the expr-lang evaluation environment: every variable bound as
// a local, plus a synthetic "vars" entry re-exposing the whole mapping for
// index-style access to names that aren't valid identifiers.
func (s *Scope) env() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e := make(map[string]any, len(s.vars)+1)
	vars := make(map[string]any, len(s.vars))
	for k, v := range s.vars {
		e[k] = v
		vars[k] = v
	}
	e["vars"] = vars
	return e
}

// RenderExpression evaluates src as a single expression (identifiers,
// property access, indexing, unary +/-/!, arithmetic, comparison, boolean
// logic, literal numbers/strings/arrays/objects) and returns its value
// unchanged.
func (s *Scope) RenderExpression(src string) (any, error) {
	out, err := expr.Eval(src, s.env())
	if err != nil {
		return nil, fmt.Errorf("expression %q: %w", src, err)
	}
	return out, nil
}

// templateExpr matches non-greedy, multi-line {{ EXPR }} spans.
var templateExpr = regexp.MustCompile(`(?s)\{\{(.*?)\}\}`)

// RenderTemplate finds every {{ EXPR }} occurrence in src, evaluates the
// inner expression, stringifies it, and substitutes it in place.
func (s *Scope) RenderTemplate(src string) (string, error) {
	var firstErr error
	result := templateExpr.ReplaceAllStringFunc(src, func(match string) string {
		if firstErr != nil {
			return match
		}
		inner := templateExpr.FindStringSubmatch(match)[1]
		val, err := s.RenderExpression(strings.TrimSpace(inner))
		if err != nil {
			firstErr = fmt.Errorf("template %q: %w", src, err)
			return match
		}
		return stringify(val)
	})
	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// stringify converts an evaluated expression value into the textual form a
// template substitutes, matching what stringify(renderExpression(X))
// means for the scope law in spec.md §8.
func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case node.Node:
		return stringify(node.ToGo(val))
	default:
		return fmt.Sprintf("%v", val)
	}
}

// evalStatement matches the single restricted eval grammar accepted by the
// "eval" command: this.<ident> = <expr>. See SPEC_FULL.md §4.6 and
// DESIGN.md's resolution of the eval Open Question.
var evalStatement = regexp.MustCompile(`^this\.([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(.+)$`)

// EvalStatements runs src as a sequence of ';' or newline separated
// "this.<ident> = <expr>" statements against the scope, mutating it in
// place. It is the Go port's safe replacement for the original's
// host-language eval command (spec.md §9's resolved Open Question).
func (s *Scope) EvalStatements(src string) error {
	for _, raw := range splitStatements(src) {
		stmt := strings.TrimSpace(raw)
		if stmt == "" {
			continue
		}
		m := evalStatement.FindStringSubmatch(stmt)
		if m == nil {
			return fmt.Errorf("invalid eval statement: %q (expected this.<name> = <expr>)", stmt)
		}
		name, exprSrc := m[1], m[2]
		val, err := s.RenderExpression(exprSrc)
		if err != nil {
			return fmt.Errorf("eval statement %q: %w", stmt, err)
		}
		s.Set(name, val)
	}
	return nil
}

// splitStatements splits on ';' and newlines, whichever the author used.
func splitStatements(src string) []string {
	src = strings.ReplaceAll(src, "\n", ";")
	return strings.Split(src, ";")
}
