// Package serializer converts arbitrary values — including the tagged
// Expr/Fmt node types — to a self-describing JSON form and back.
//
// No dependency in the retrieved example pack implements class-discriminant
// JSON revival from a caller-supplied name-to-constructor table (every pack
// repo that touches JSON, including the teacher's pkg/compiler.OpCode,
// marshals through encoding/json directly); this package deliberately walks
// values to and from plain Go values itself and hands those to
// encoding/json's Marshal/Unmarshal rather than a third-party library. See
// DESIGN.md's per-component ledger for the justification.
package serializer

import (
	"encoding/json"
	"fmt"

	"github.com/sealedsins/sealed-away/pkg/node"
)

// classTag is the discriminant property name stamped onto every registered
// tagged instance.
const classTag = "__class"

// Reviver constructs a Node from its decoded JSON payload (with __class
// already stripped).
type Reviver func(payload map[string]any) (node.Node, error)

// Serializer stringifies and parses values, reviving any mapping carrying
// __class via a registered Reviver.
type Serializer struct {
	revivers map[string]Reviver
	tags     map[string]func(node.Node) (map[string]any, bool)
}

// New creates a Serializer with the default Expr/Fmt registrations
// (ScriptExp / ScriptFmt), matching the save-format schema in spec.md §6.
func New() *Serializer {
	s := &Serializer{
		revivers: make(map[string]Reviver),
		tags:     make(map[string]func(node.Node) (map[string]any, bool)),
	}
	s.Register("ScriptExp",
		func(payload map[string]any) (node.Node, error) {
			src, _ := payload["source"].(string)
			return &node.Expr{Source: src}, nil
		},
		func(n node.Node) (map[string]any, bool) {
			e, ok := n.(*node.Expr)
			if !ok {
				return nil, false
			}
			return map[string]any{"source": e.Source}, true
		},
	)
	s.Register("ScriptFmt",
		func(payload map[string]any) (node.Node, error) {
			src, _ := payload["source"].(string)
			return &node.Fmt{Source: src}, nil
		},
		func(n node.Node) (map[string]any, bool) {
			f, ok := n.(*node.Fmt)
			if !ok {
				return nil, false
			}
			return map[string]any{"source": f.Source}, true
		},
	)
	return s
}

// Register adds a class name to the serializer's revival table, with the
// matching tagger used by Stringify to detect instances of that class.
func (s *Serializer) Register(className string, revive Reviver, tag func(node.Node) (map[string]any, bool)) {
	s.revivers[className] = revive
	s.tags[className] = tag
}

// Stringify walks v (a node.Node tree or a plain Go value) and encodes it
// as JSON, merging {"__class": NAME} into the JSON form of any value that
// matches a registered class.
func (s *Serializer) Stringify(v any) (string, error) {
	encoded, err := s.encode(v)
	if err != nil {
		return "", err
	}
	out, err := json.Marshal(encoded)
	if err != nil {
		return "", fmt.Errorf("serializer: marshal: %w", err)
	}
	return string(out), nil
}

// Encode walks v exactly as Stringify does, but returns the intermediate
// JSON-able Go value instead of a marshaled string, so a caller can embed it
// inside a larger envelope (pkg/script's save format) and marshal once.
func (s *Serializer) Encode(v any) (any, error) {
	return s.encode(v)
}

// Decode reverses Encode: it accepts an already json.Unmarshal'd value
// (rather than a raw JSON string, which Parse expects) and revives any
// __class-tagged mapping.
func (s *Serializer) Decode(raw any) (node.Node, error) {
	return s.decode(raw)
}

func (s *Serializer) encode(v any) (any, error) {
	n, isNode := v.(node.Node)
	if !isNode {
		// Plain Go values pass through json.Marshal's normal rules; any
		// node.Node nested inside a map/slice is still walked via ToGo
		// callers, so in practice encode is only ever reached with a Node
		// or with json-primitive Go values built by pkg/script/pkg/scene.
		return v, nil
	}
	for className, tag := range s.tags {
		if payload, ok := tag(n); ok {
			out := map[string]any{classTag: className}
			for k, val := range payload {
				out[k] = val
			}
			return out, nil
		}
	}
	switch val := n.(type) {
	case node.Null:
		return nil, nil
	case node.Bool:
		return bool(val), nil
	case node.Number:
		return float64(val), nil
	case node.String:
		return string(val), nil
	case *node.List:
		out := make([]any, len(val.Items))
		for i, item := range val.Items {
			enc, err := s.encode(item)
			if err != nil {
				return nil, err
			}
			out[i] = enc
		}
		return out, nil
	case *node.Map:
		out := make(map[string]any, len(val.Keys))
		for _, k := range val.Keys {
			enc, err := s.encode(val.Values[k])
			if err != nil {
				return nil, err
			}
			out[k] = enc
		}
		return out, nil
	default:
		return nil, fmt.Errorf("serializer: unregistered type %T", n)
	}
}

// Parse decodes s into a node.Node tree, reviving any mapping carrying
// __class via its registered Reviver.
func (s *Serializer) Parse(data string) (node.Node, error) {
	var raw any
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, fmt.Errorf("serializer: unmarshal: %w", err)
	}
	return s.decode(raw)
}

func (s *Serializer) decode(raw any) (node.Node, error) {
	switch v := raw.(type) {
	case nil:
		return node.Null{}, nil
	case bool:
		return node.Bool(v), nil
	case float64:
		return node.Number(v), nil
	case string:
		return node.String(v), nil
	case []any:
		items := make([]node.Node, len(v))
		for i, item := range v {
			decoded, err := s.decode(item)
			if err != nil {
				return nil, err
			}
			items[i] = decoded
		}
		return &node.List{Items: items}, nil
	case map[string]any:
		if className, ok := v[classTag].(string); ok {
			revive, known := s.revivers[className]
			if !known {
				return nil, fmt.Errorf("serializer: unregistered class %q", className)
			}
			payload := make(map[string]any, len(v)-1)
			for k, val := range v {
				if k != classTag {
					payload[k] = val
				}
			}
			return revive(payload)
		}
		m := node.NewMap()
		for k, val := range v {
			decoded, err := s.decode(val)
			if err != nil {
				return nil, err
			}
			m.Set(k, decoded)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("serializer: unsupported decoded type %T", raw)
	}
}

// DecodeGo converts a decoded node.Node tree into plain Go values, for
// callers that need scope-ready any values rather than Node wrappers.
func DecodeGo(n node.Node) any {
	return node.ToGo(n)
}
