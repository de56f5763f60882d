package parser

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/sealedsins/sealed-away/pkg/sealederr"
)

// Kind enumerates the shapes a Schema can describe.
type Kind int

const (
	KAny Kind = iota
	KMap
	KList
	KString
	KNumber
	KBool
	KTagged
)

// Schema is a small, composable descriptor used to validate the shape of a
// decoded YAML document before it is handed to the rest of the interpreter.
// Per-command argument validation (spec.md §4.6) happens later, inside
// pkg/script, against the already-built node.Node tree — Schema here only
// covers the document-level contract in spec.md §6 ({config?, script}).
type Schema struct {
	Kind     Kind
	Fields   map[string]Schema // KMap
	Required []string          // KMap: keys that must be present
	Elem     *Schema           // KList
	Tag      string            // KTagged: "!exp" or "!fmt"
}

func Any() Schema    { return Schema{Kind: KAny} }
func String() Schema { return Schema{Kind: KString} }
func Number() Schema { return Schema{Kind: KNumber} }
func Bool() Schema   { return Schema{Kind: KBool} }

func ListOf(elem Schema) Schema {
	return Schema{Kind: KList, Elem: &elem}
}

func MapOf(fields map[string]Schema, required ...string) Schema {
	return Schema{Kind: KMap, Fields: fields, Required: required}
}

func Tagged(tag string) Schema {
	return Schema{Kind: KTagged, Tag: tag}
}

// Validate walks yn against the schema, returning a *sealederr.ParserError
// carrying yn's source position on the first mismatch.
func (s Schema) Validate(yn *yaml.Node) error {
	if yn == nil {
		return sealederr.NewParserError("missing value", 0, 0)
	}
	if yn.Kind == yaml.DocumentNode {
		if len(yn.Content) == 0 {
			return sealederr.NewParserError("empty document", yn.Line, yn.Column)
		}
		return s.Validate(yn.Content[0])
	}
	if yn.Kind == yaml.AliasNode {
		return s.Validate(yn.Alias)
	}

	switch s.Kind {
	case KAny:
		return nil
	case KString, KNumber, KBool:
		if yn.Kind != yaml.ScalarNode {
			return sealederr.NewParserError(fmt.Sprintf("expected scalar, got %s", kindName(yn.Kind)), yn.Line, yn.Column)
		}
		return nil
	case KTagged:
		if yn.Kind != yaml.ScalarNode || yn.Tag != s.Tag {
			return sealederr.NewParserError(fmt.Sprintf("expected %s tag", s.Tag), yn.Line, yn.Column)
		}
		return nil
	case KList:
		if yn.Kind != yaml.SequenceNode {
			return sealederr.NewParserError(fmt.Sprintf("expected list, got %s", kindName(yn.Kind)), yn.Line, yn.Column)
		}
		if s.Elem != nil {
			for _, item := range yn.Content {
				if err := s.Elem.Validate(item); err != nil {
					return err
				}
			}
		}
		return nil
	case KMap:
		if yn.Kind != yaml.MappingNode {
			return sealederr.NewParserError(fmt.Sprintf("expected map, got %s", kindName(yn.Kind)), yn.Line, yn.Column)
		}
		seen := make(map[string]*yaml.Node)
		for i := 0; i+1 < len(yn.Content); i += 2 {
			seen[yn.Content[i].Value] = yn.Content[i+1]
		}
		for _, req := range s.Required {
			if _, ok := seen[req]; !ok {
				return sealederr.NewParserError(fmt.Sprintf("missing required field %q", req), yn.Line, yn.Column)
			}
		}
		if s.Fields != nil {
			for key, valueNode := range seen {
				fieldSchema, known := s.Fields[key]
				if !known {
					continue // unknown fields are permitted (host-specific "config", forward compatibility)
				}
				if err := fieldSchema.Validate(valueNode); err != nil {
					return err
				}
			}
		}
		return nil
	default:
		return sealederr.NewParserError("invalid schema", yn.Line, yn.Column)
	}
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "list"
	case yaml.MappingNode:
		return "map"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown"
	}
}

// DocumentSchema is the top-level shape spec.md §6 requires: a mapping with
// an optional host-specific "config" and a required "script" list.
func DocumentSchema() Schema {
	return MapOf(map[string]Schema{
		"config": Any(),
		"script": ListOf(Any()),
	}, "script")
}
