package script

import (
	"encoding/json"
	"fmt"

	"github.com/sealedsins/sealed-away/pkg/node"
	"github.com/sealedsins/sealed-away/pkg/sealederr"
	"github.com/sealedsins/sealed-away/pkg/stack"
)

// saveVersion is stamped into every save this port produces. It exists only
// so Load can reject a document that is obviously not one of ours; it is
// not present in the original save format spec.md §6 describes and does
// not change how a version-1 document loads.
const saveVersion = 1

// Save serializes the current scope and stack to a self-contained JSON
// string. Each stack frame is recorded with the node path of its code
// within source, so Load can relocate it even if source has since changed.
func (s *Script) Save() (string, error) {
	frames := s.stack.Dump()
	stackOut := make([]any, len(frames))
	for i, f := range frames {
		code, err := s.serializer.Encode(&node.List{Items: f.Code()})
		if err != nil {
			return "", fmt.Errorf("script: save: %w", err)
		}
		path, ok := s.listPaths[f.List]
		if !ok {
			path = sealederr.Path{}
		}
		stackOut[i] = map[string]any{
			"path":           []any(path),
			"code":           code,
			"programCounter": f.PC,
		}
	}

	envelope := map[string]any{
		"version": saveVersion,
		"scope":   s.scope.Dump(),
		"stack":   stackOut,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return "", fmt.Errorf("script: save: %w", err)
	}
	return string(data), nil
}

// Load rebuilds the scope and stack from a string produced by Save. For
// each saved frame, it looks up the frame's code by path in the current
// source; a frame whose path no longer exists is silently dropped. Frames
// that are found are patched (pkg/stack.Stack.Patch) against the current
// code at that path, so a Load across an edited source keeps each frame's
// program counter pointing at the same logical instruction.
//
// Load is transactional: a malformed or otherwise unloadable document
// leaves the script's current scope and stack untouched and returns a
// *sealederr.ScriptError whose message is sealederr.ErrBrokenSave and whose
// cause is the underlying failure.
func (s *Script) Load(data string) error {
	var envelope map[string]any
	if err := json.Unmarshal([]byte(data), &envelope); err != nil {
		return sealederr.NewBrokenSaveError(err)
	}

	version, ok := envelope["version"].(float64)
	if !ok || int(version) != saveVersion {
		return sealederr.NewBrokenSaveError(fmt.Errorf("unsupported save version"))
	}
	scopeRaw, ok := envelope["scope"].(map[string]any)
	if !ok {
		return sealederr.NewBrokenSaveError(fmt.Errorf("missing or malformed scope"))
	}
	stackRaw, ok := envelope["stack"].([]any)
	if !ok {
		return sealederr.NewBrokenSaveError(fmt.Errorf("missing or malformed stack"))
	}

	newFrames := make([]*stack.Frame, 0, len(stackRaw))
	for _, entryRaw := range stackRaw {
		entry, ok := entryRaw.(map[string]any)
		if !ok {
			return sealederr.NewBrokenSaveError(fmt.Errorf("malformed stack frame"))
		}
		pathRaw, _ := entry["path"].([]any)
		path := decodePath(pathRaw)
		codeRaw, _ := entry["code"].([]any)
		pcRaw, _ := entry["programCounter"].(float64)

		savedItems := make([]node.Node, len(codeRaw))
		for i, item := range codeRaw {
			decoded, err := s.serializer.Decode(item)
			if err != nil {
				return sealederr.NewBrokenSaveError(err)
			}
			savedItems[i] = decoded
		}

		currentList, found := s.pathLists[path.Key()]
		if !found {
			continue
		}

		frame := &stack.Frame{List: &node.List{Items: savedItems}, PC: int(pcRaw)}
		if frame.PC < 0 {
			frame.PC = 0
		}
		if frame.PC > len(savedItems) {
			frame.PC = len(savedItems)
		}
		s.stack.Patch(frame, currentList)
		newFrames = append(newFrames, frame)
	}

	s.scope.Load(scopeRaw)
	s.stack.Clear()
	for _, f := range newFrames {
		s.stack.PushFrame(f)
	}
	return nil
}

// Patch replaces the script's source with newSource, adjusting every active
// frame's program counter via Save+Load, exactly as spec.md §6 defines it.
func (s *Script) Patch(newSource []node.Node) error {
	saved, err := s.Save()
	if err != nil {
		return err
	}
	s.source = &node.List{Items: newSource}
	s.reindex()
	return s.Load(saved)
}

// decodePath accepts path segments in either of the two shapes a path can
// carry before it reaches here: int (built fresh in-process, e.g. by
// pkg/scene's menu command) or float64 (round-tripped through JSON by Save
// and Load).
func decodePath(raw []any) sealederr.Path {
	out := make(sealederr.Path, 0, len(raw))
	for _, seg := range raw {
		switch v := seg.(type) {
		case string:
			out = append(out, v)
		case float64:
			out = append(out, int(v))
		case int:
			out = append(out, v)
		}
	}
	return out
}
