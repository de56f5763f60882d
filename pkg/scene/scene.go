// Package scene implements the narrative dialect on top of pkg/script: a
// Scene embeds a *script.Script and adds page/menu/play/stop/wait/show/hide
// commands plus a derived presentation state, reusing the generic
// interpreter for everything else (variables, if/jump/eval/set, save/load,
// patch, events).
//
// The embed-and-register-more-commands shape mirrors how the teacher's
// pkg/vm/vm.go itself layers a handful of builtin opcodes over a small
// dispatch core — Scene does the analogous thing one level up, against
// pkg/script's open command table instead of a fixed opcode switch.
package scene

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/sealedsins/sealed-away/pkg/node"
	"github.com/sealedsins/sealed-away/pkg/script"
	"github.com/sealedsins/sealed-away/pkg/sealederr"
)

// Scene reserved scope keys.
const (
	keyState = "state"
	keyYield = "yield"
	keyMenu  = "menu"
)

// Scene is a Script with presentation state and menus layered on top.
type Scene struct {
	*script.Script
}

// New creates a Scene over source, registers the narrative command set, and
// resets presentation state to its initial value.
func New(source []node.Node, opts ...script.Option) *Scene {
	sc := &Scene{Script: script.New(source, opts...)}
	sc.registerCommands()
	sc.resetState()
	return sc
}

func initialState() map[string]any {
	return map[string]any{
		"name": "",
		"text": "",
		"background": map[string]any{
			"image":    nil,
			"position": "center",
			"color":    "#333",
		},
		"sprites": []any{},
		"loop":    nil,
	}
}

func (sc *Scene) resetState() {
	sc.SetVar(keyState, initialState())
	sc.SetVar(keyYield, true)
	sc.SetVar(keyMenu, nil)
}

func (sc *Scene) state() map[string]any {
	if m, ok := sc.GetVar(keyState).(map[string]any); ok {
		return m
	}
	fresh := initialState()
	sc.SetVar(keyState, fresh)
	return fresh
}

// State returns the current presentation state mapping.
func (sc *Scene) State() map[string]any {
	return sc.state()
}

// Menu returns the active menu entries (each a map with "id", "label", and
// "path" keys), or nil if no menu is active. Entries are kept as plain
// JSON-shaped values, like scene state, so they save and load without a
// dedicated revival step.
func (sc *Scene) Menu() []any {
	raw, ok := sc.GetVar(keyMenu).([]any)
	if !ok {
		return nil
	}
	return raw
}

// Next resumes execution: if a menu is active, it is a no-op (the host must
// call Pick first); otherwise it clears yield and name/text, then steps
// until yield is set again or the script is done.
func (sc *Scene) Next() error {
	if sc.GetVar(keyMenu) != nil {
		return nil
	}
	sc.SetVar(keyYield, false)
	st := sc.state()
	st["name"] = ""
	st["text"] = ""
	sc.SetVar(keyState, st)

	for {
		yielded, _ := sc.GetVar(keyYield).(bool)
		if yielded || sc.IsDone() {
			return nil
		}
		if err := sc.Step(); err != nil {
			return err
		}
	}
}

// Pick resolves the active menu entry matching id, clears the menu, pushes
// the entry's block as a new frame, and resumes execution via Next.
func (sc *Scene) Pick(id string) error {
	entries := sc.Menu()
	if entries == nil {
		return sealederr.NewScriptError("pick: no menu is active", nil)
	}
	var target map[string]any
	for _, e := range entries {
		entry, ok := e.(map[string]any)
		if !ok {
			continue
		}
		if entryID, _ := entry["id"].(string); entryID == id {
			target = entry
			break
		}
	}
	if target == nil {
		return sealederr.NewScriptError(fmt.Sprintf("pick: unknown menu id %q", id), nil)
	}
	sc.SetVar(keyMenu, nil)

	pathRaw, _ := target["path"].([]any)
	block, found := sc.ResolvePath(pathRaw)
	if !found {
		return sealederr.NewScriptError("pick: menu target no longer exists in source", nil)
	}
	if err := sc.PushBlock(block); err != nil {
		return sealederr.WrapScriptError(err, nil)
	}
	return sc.Next()
}

func (sc *Scene) registerCommands() {
	sc.RegisterCommand("page", sc.cmdPage)
	sc.RegisterCommand("menu", sc.cmdMenu)
	sc.RegisterCommand("play", sc.cmdPlay)
	sc.RegisterCommand("stop", sc.cmdStop)
	sc.RegisterCommand("wait", sc.cmdWait)
	sc.RegisterCommand("show", sc.cmdShow)
	sc.RegisterCommand("hide", sc.cmdHide)
	sc.RegisterCommand("name", sc.cmdName)
	sc.RegisterCommand("rollback", sc.cmdRollback)
	sc.RegisterCommand("flag", sc.cmdFlag)
}

func (sc *Scene) cmdPage(s *script.Script, args node.Node, path sealederr.Path) error {
	resolved, err := s.Resolve(args)
	if err != nil {
		return err
	}
	patch, ok := resolved.(*node.Map)
	if !ok {
		return sealederr.NewScriptError("page: expected a mapping", path)
	}
	st := sc.state()
	mergeState(st, node.ToGo(patch).(map[string]any))
	sc.SetVar(keyState, st)

	// Look ahead: if the next queued instruction is a "menu" command, leave
	// yield false so the page and the menu it introduces present together.
	if next, ok := s.Peek(); ok {
		if name, _, isCmd := node.AsCommand(next); isCmd && name == "menu" {
			return nil
		}
	}
	sc.SetVar(keyYield, true)
	return nil
}

// mergeState applies patch onto state: scalars overwrite, nested mappings
// merge recursively, lists (including sprites) replace wholesale.
func mergeState(state, patch map[string]any) {
	for k, v := range patch {
		existing, hasExisting := state[k]
		existingMap, existingIsMap := existing.(map[string]any)
		patchMap, patchIsMap := v.(map[string]any)
		if hasExisting && existingIsMap && patchIsMap {
			mergeState(existingMap, patchMap)
			continue
		}
		state[k] = v
	}
}

func (sc *Scene) cmdMenu(s *script.Script, args node.Node, path sealederr.Path) error {
	m, ok := args.(*node.Map)
	if !ok {
		return sealederr.NewScriptError("menu: expected a mapping of label to block", path)
	}
	entries := make([]any, 0, len(m.Keys))
	for _, label := range m.Keys {
		blockNode, _ := m.Get(label)
		block, isList := blockNode.(*node.List)
		if !isList {
			return sealederr.NewScriptError(fmt.Sprintf("menu: entry %q must be a list of commands", label), path)
		}
		blockPath, found := s.PathOf(block)
		if !found {
			return sealederr.NewScriptError(fmt.Sprintf("menu: entry %q block is not part of the source tree", label), path)
		}
		entries = append(entries, map[string]any{
			"id":    camelCase(label),
			"label": label,
			"path":  pathToAny(blockPath),
		})
	}
	sc.SetVar(keyMenu, entries)
	sc.SetVar(keyYield, true)
	return nil
}

func (sc *Scene) cmdPlay(s *script.Script, args node.Node, path sealederr.Path) error {
	resolved, err := s.Resolve(args)
	if err != nil {
		return err
	}
	m, ok := resolved.(*node.Map)
	if !ok {
		return sealederr.NewScriptError("play: expected a mapping", path)
	}
	if _, hasPath := m.Get("path"); !hasPath {
		return sealederr.NewScriptError(`play: missing required field "path"`, path)
	}
	data := node.ToGo(m).(map[string]any)
	sc.Emit("play", data)

	loop, _ := data["loop"].(bool)
	st := sc.state()
	if loop {
		st["loop"] = data
	}
	sc.SetVar(keyState, st)
	return nil
}

func (sc *Scene) cmdStop(s *script.Script, args node.Node, path sealederr.Path) error {
	resolved, err := s.Resolve(args)
	if err != nil {
		return err
	}
	var data map[string]any
	if m, ok := resolved.(*node.Map); ok {
		data = node.ToGo(m).(map[string]any)
	}
	st := sc.state()
	st["loop"] = nil
	sc.SetVar(keyState, st)
	sc.Emit("stop", data)
	return nil
}

func (sc *Scene) cmdWait(s *script.Script, args node.Node, path sealederr.Path) error {
	resolved, err := s.Resolve(args)
	if err != nil {
		return err
	}
	m, ok := resolved.(*node.Map)
	if !ok {
		return sealederr.NewScriptError("wait: expected a mapping", path)
	}
	secondsNode, err := script.RequireField(m, "seconds", "wait", path)
	if err != nil {
		return err
	}
	if _, isNumber := secondsNode.(node.Number); !isNumber {
		return sealederr.NewScriptError(`wait: "seconds" must be a number`, path)
	}
	sc.Emit("wait", node.ToGo(secondsNode))
	sc.SetVar(keyYield, true)
	return nil
}

func (sc *Scene) cmdShow(s *script.Script, args node.Node, path sealederr.Path) error {
	resolved, err := s.Resolve(args)
	if err != nil {
		return err
	}
	m, ok := resolved.(*node.Map)
	if !ok {
		return sealederr.NewScriptError("show: expected a sprite descriptor mapping", path)
	}
	idNode, err := script.RequireField(m, "id", "show", path)
	if err != nil {
		return err
	}
	id, err := script.AsString(idNode, "show", path)
	if err != nil {
		return err
	}
	descriptor := node.ToGo(m).(map[string]any)

	st := sc.state()
	existing, _ := st["sprites"].([]any)
	filtered := make([]any, 0, len(existing)+1)
	filtered = append(filtered, descriptor)
	for _, sprite := range existing {
		if spriteMap, ok := sprite.(map[string]any); ok {
			if spriteID, _ := spriteMap["id"].(string); spriteID == id {
				continue
			}
		}
		filtered = append(filtered, sprite)
	}
	st["sprites"] = filtered
	sc.SetVar(keyState, st)
	return nil
}

func (sc *Scene) cmdHide(s *script.Script, args node.Node, path sealederr.Path) error {
	resolved, err := s.Resolve(args)
	if err != nil {
		return err
	}
	m, ok := resolved.(*node.Map)
	if !ok {
		return sealederr.NewScriptError("hide: expected a mapping", path)
	}
	idNode, err := script.RequireField(m, "id", "hide", path)
	if err != nil {
		return err
	}
	id, err := script.AsString(idNode, "hide", path)
	if err != nil {
		return err
	}

	st := sc.state()
	existing, _ := st["sprites"].([]any)
	filtered := make([]any, 0, len(existing))
	for _, sprite := range existing {
		if spriteMap, ok := sprite.(map[string]any); ok {
			if spriteID, _ := spriteMap["id"].(string); spriteID == id {
				continue
			}
		}
		filtered = append(filtered, sprite)
	}
	st["sprites"] = filtered
	sc.SetVar(keyState, st)
	return nil
}

// cmdName is sugar for a page{name:...} carrying no other fields, for
// authors who want to change the speaker tag without touching text.
func (sc *Scene) cmdName(s *script.Script, args node.Node, path sealederr.Path) error {
	m, ok := args.(*node.Map)
	if !ok {
		return sealederr.NewScriptError("name: expected a mapping", path)
	}
	valueNode, err := script.RequireField(m, "value", "name", path)
	if err != nil {
		return err
	}
	resolved, err := s.Resolve(valueNode)
	if err != nil {
		return err
	}
	value, err := script.AsString(resolved, "name", path)
	if err != nil {
		return err
	}
	st := sc.state()
	st["name"] = value
	sc.SetVar(keyState, st)
	return nil
}

// cmdRollback is a no-op marker recorded only in the event stream, letting
// authors flag "no rollback past this point" boundaries for a host UI.
func (sc *Scene) cmdRollback(s *script.Script, args node.Node, path sealederr.Path) error {
	sc.Emit("rollback", nil)
	return nil
}

// cmdFlag sets a scope variable from a literal value, bypassing set's
// expression evaluation so authors can toggle completion flags without
// writing !exp "true" everywhere.
func (sc *Scene) cmdFlag(s *script.Script, args node.Node, path sealederr.Path) error {
	m, ok := args.(*node.Map)
	if !ok {
		return sealederr.NewScriptError("flag: expected a mapping", path)
	}
	nameNode, err := script.RequireField(m, "name", "flag", path)
	if err != nil {
		return err
	}
	name, err := script.AsString(nameNode, "flag", path)
	if err != nil {
		return err
	}
	valueNode, err := script.RequireField(m, "value", "flag", path)
	if err != nil {
		return err
	}
	switch valueNode.(type) {
	case node.String, node.Bool, node.Number, node.Null:
		sc.SetVar(name, node.ToGo(valueNode))
		return nil
	default:
		return sealederr.NewScriptError("flag: value must be a literal string, bool, or number", path)
	}
}

// camelCase derives a menu entry id from its authored label ("Label A" ->
// "labelA"), splitting on runs of non-alphanumeric characters.
func camelCase(label string) string {
	var words []string
	var current strings.Builder
	for _, r := range label {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current.WriteRune(r)
		} else if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		words = append(words, current.String())
	}
	var b strings.Builder
	for i, w := range words {
		if i == 0 {
			b.WriteString(strings.ToLower(w))
			continue
		}
		runes := []rune(w)
		b.WriteRune(unicode.ToUpper(runes[0]))
		b.WriteString(strings.ToLower(string(runes[1:])))
	}
	return b.String()
}

func pathToAny(p sealederr.Path) []any {
	out := make([]any, len(p))
	copy(out, p)
	return out
}
