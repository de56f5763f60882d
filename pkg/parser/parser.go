// Package parser is the YAML front end: it turns a UTF-8 YAML document into
// a tree of pkg/node.Node values plus a side table mapping every node back
// to its (line, column) in the source, and recognizes the !exp/!fmt custom
// tags.
//
// Position tracking is grounded on daios-ai-msg/spans.go's SpanIndex (a
// sidecar map keyed by a structural node path, built while walking the
// tree) — adapted here from byte offsets to the line/column pairs
// gopkg.in/yaml.v3's yaml.Node exposes natively, which is exactly the
// "underlying YAML lexer position" spec.md §4.5 requires and the reason
// this module uses yaml.v3 rather than the pack's other yaml dependency
// (mbovo-pulumi's yaml.v2, whose Node type has no position fields).
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sealedsins/sealed-away/pkg/node"
	"github.com/sealedsins/sealed-away/pkg/sealederr"
)

const (
	tagExpr = "!exp"
	tagFmt  = "!fmt"
)

// Position is a 1-indexed source coordinate.
type Position struct {
	Line   int
	Column int
}

// ParserContext holds a parsed document together with its position side
// table, ready for schema validation and Trace lookups.
// The side table is keyed by sealederr.Path.Key(), the same hash pkg/script
// uses for its list-identity index, so the two packages agree on one
// path-hashing scheme.
type ParserContext struct {
	doc       *yaml.Node
	root      node.Node
	positions map[string]Position
}

// Parse decodes src as YAML, converts it to a node.Node tree, and returns a
// ParserContext. The returned error, if any, is a *sealederr.ParserError.
func Parse(src string) (*ParserContext, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(src), &doc); err != nil {
		return nil, wrapYAMLError(err)
	}
	if len(doc.Content) == 0 {
		return nil, sealederr.NewParserError("empty document", 1, 1)
	}

	ctx := &ParserContext{doc: &doc, positions: make(map[string]Position)}
	root, err := ctx.decode(doc.Content[0], sealederr.Path{})
	if err != nil {
		return nil, err
	}
	ctx.root = root
	return ctx, nil
}

// wrapYAMLError best-effort extracts a line number yaml.v3 sometimes embeds
// in its own error text ("yaml: line N: ..."); falls back to (0, 0).
func wrapYAMLError(err error) *sealederr.ParserError {
	msg := err.Error()
	line := 0
	if idx := strings.Index(msg, "line "); idx >= 0 {
		rest := msg[idx+len("line "):]
		end := strings.IndexAny(rest, ": ")
		if end < 0 {
			end = len(rest)
		}
		if n, convErr := strconv.Atoi(rest[:end]); convErr == nil {
			line = n
		}
	}
	return sealederr.WrapParserError(err, line, 0)
}

// Root returns the parsed root node (the "script" list's immediate
// container, i.e. the whole decoded document as a node.Node).
func (c *ParserContext) Root() node.Node { return c.root }

// Validate checks the raw YAML document against schema, returning a
// *sealederr.ParserError carrying the offending node's position on failure.
func (c *ParserContext) Validate(schema Schema) error {
	if err := schema.Validate(c.doc); err != nil {
		return err
	}
	return nil
}

// Script returns the decoded "script" field as a node list, applying
// DocumentSchema() first. This is the tree pkg/script.New consumes as its
// source.
func (c *ParserContext) Script() ([]node.Node, error) {
	if err := c.Validate(DocumentSchema()); err != nil {
		return nil, err
	}
	m, ok := c.root.(*node.Map)
	if !ok {
		return nil, sealederr.NewParserError("document root must be a map", 0, 0)
	}
	scriptNode, _ := m.Get("script")
	list, ok := scriptNode.(*node.List)
	if !ok {
		return nil, sealederr.NewParserError(`"script" must be a list`, 0, 0)
	}
	return list.Items, nil
}

// Trace resolves a node path to its source (line, column), if recorded.
// Paths start at the document root, so a sealederr.ScriptError.NodePath
// (which is relative to the "script" list) needs "script" prepended.
func (c *ParserContext) Trace(path sealederr.Path) (line, column int, ok bool) {
	pos, found := c.positions[path.Key()]
	if !found {
		return 0, 0, false
	}
	return pos.Line, pos.Column, true
}

// decode converts a yaml.Node subtree into a node.Node, recording its
// source position under path.
func (c *ParserContext) decode(yn *yaml.Node, path sealederr.Path) (node.Node, error) {
	if yn.Kind == yaml.AliasNode {
		yn = yn.Alias
	}
	c.positions[path.Key()] = Position{Line: yn.Line, Column: yn.Column}

	switch yn.Kind {
	case yaml.ScalarNode:
		return c.decodeScalar(yn)
	case yaml.SequenceNode:
		items := make([]node.Node, len(yn.Content))
		for i, child := range yn.Content {
			childPath := append(append(sealederr.Path{}, path...), i)
			decoded, err := c.decode(child, childPath)
			if err != nil {
				return nil, err
			}
			items[i] = decoded
		}
		return &node.List{Items: items}, nil
	case yaml.MappingNode:
		m := node.NewMap()
		for i := 0; i+1 < len(yn.Content); i += 2 {
			key := yn.Content[i].Value
			childPath := append(append(sealederr.Path{}, path...), key)
			decoded, err := c.decode(yn.Content[i+1], childPath)
			if err != nil {
				return nil, err
			}
			m.Set(key, decoded)
		}
		return m, nil
	default:
		return nil, sealederr.NewParserError(fmt.Sprintf("unsupported YAML node kind: %v", yn.Kind), yn.Line, yn.Column)
	}
}

func (c *ParserContext) decodeScalar(yn *yaml.Node) (node.Node, error) {
	switch yn.Tag {
	case tagExpr:
		return &node.Expr{Source: yn.Value}, nil
	case tagFmt:
		return &node.Fmt{Source: yn.Value}, nil
	case "!!null":
		return node.Null{}, nil
	case "!!bool":
		var b bool
		if err := yn.Decode(&b); err != nil {
			return nil, sealederr.WrapParserError(err, yn.Line, yn.Column)
		}
		return node.Bool(b), nil
	case "!!int", "!!float":
		var f float64
		if err := yn.Decode(&f); err != nil {
			return nil, sealederr.WrapParserError(err, yn.Line, yn.Column)
		}
		return node.Number(f), nil
	default:
		return node.String(yn.Value), nil
	}
}
