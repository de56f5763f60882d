// Command sealed-away is a minimal Ebitengine host for the interpreter: it
// loads a YAML script, drives a Scene with keyboard input, renders the
// derived presentation state as plain text, and persists a save file to
// disk on request.
//
// It exists to exercise pkg/scene's public contract end to end and to give
// a concrete home to the teacher's Ebitengine dependency; it is not part of
// the interpreter core.
package main

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/sealedsins/sealed-away/internal/config"
	"github.com/sealedsins/sealed-away/pkg/logger"
	"github.com/sealedsins/sealed-away/pkg/parser"
	"github.com/sealedsins/sealed-away/pkg/scene"
	"github.com/sealedsins/sealed-away/pkg/script"
)

const (
	screenWidth  = 960
	screenHeight = 540
	saveFile     = "save.json"
)

// Game implements ebiten.Game, driving one Scene instance.
type Game struct {
	cfg   *config.Config
	scene *scene.Scene
}

func newGame(cfg *config.Config, sc *scene.Scene) *Game {
	sc.Subscribe(func(ev script.Event) {
		logger.Get().Debug("event", "type", ev.Type, "data", ev.Data)
	})
	return &Game{cfg: cfg, scene: sc}
}

func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) || inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		if err := g.next(); err != nil {
			return fmt.Errorf("scene.Next: %w", err)
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyS) {
		if err := g.save(); err != nil {
			logger.Get().Error("save failed", "error", err)
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyL) {
		if err := g.load(); err != nil {
			logger.Get().Error("load failed", "error", err)
		}
	}
	for digit := ebiten.Key1; digit <= ebiten.Key9; digit++ {
		if inpututil.IsKeyJustPressed(digit) {
			g.pickByIndex(int(digit - ebiten.Key1))
		}
	}
	return nil
}

// next advances the scene with the configured stuck-script timeout. A
// script that never reaches a yielding command (an infinite jump loop) is
// reported as an error rather than hanging the game loop forever; the Step
// goroutine itself is left running, since pkg/script has no cooperative
// cancellation point to stop it mid-instruction.
func (g *Game) next() error {
	return withTimeout(g.cfg.Timeout, g.scene.Next)
}

// withTimeout runs fn to completion, or reports a timeout error once
// timeout elapses. Mirrors the teacher's time.AfterFunc/time.After-based
// headless execution timeout (pkg/engine.TestHeadlessTimeout in the
// original VM host). A zero timeout disables the bound.
func withTimeout(timeout time.Duration, fn func() error) error {
	if timeout <= 0 {
		return fn()
	}
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("script did not yield within %s; treating it as stuck", timeout)
	}
}

func (g *Game) pickByIndex(i int) {
	entries := g.scene.Menu()
	if i < 0 || i >= len(entries) {
		return
	}
	entry, ok := entries[i].(map[string]any)
	if !ok {
		return
	}
	id, _ := entry["id"].(string)
	if err := g.scene.Pick(id); err != nil {
		logger.Get().Error("pick failed", "error", err)
	}
}

func (g *Game) save() error {
	data, err := g.scene.Save()
	if err != nil {
		return err
	}
	path := filepath.Join(g.cfg.SaveDir, saveFile)
	if err := os.MkdirAll(g.cfg.SaveDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(data), 0o644)
}

func (g *Game) load() error {
	path := filepath.Join(g.cfg.SaveDir, saveFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return g.scene.Load(string(data))
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{0x20, 0x20, 0x20, 0xff})
	state := g.scene.State()
	name, _ := state["name"].(string)
	text, _ := state["text"].(string)

	line := 20
	if name != "" {
		ebitenutil.DebugPrintAt(screen, name, 20, line)
		line += 20
	}
	ebitenutil.DebugPrintAt(screen, text, 20, line)
	line += 40

	if menu := g.scene.Menu(); menu != nil {
		for i, e := range menu {
			entry, ok := e.(map[string]any)
			if !ok {
				continue
			}
			label, _ := entry["label"].(string)
			ebitenutil.DebugPrintAt(screen, fmt.Sprintf("%d. %s", i+1, label), 40, line)
			line += 20
		}
	}
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}

func main() {
	cfg, err := config.FromFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.Get()

	data, err := os.ReadFile(cfg.Script)
	if err != nil {
		log.Error("failed to read script", "path", cfg.Script, "error", err)
		os.Exit(1)
	}

	ctx, err := parser.Parse(string(data))
	if err != nil {
		log.Error("failed to parse script", "error", err)
		os.Exit(1)
	}
	source, err := ctx.Script()
	if err != nil {
		log.Error("failed to validate script", "error", err)
		os.Exit(1)
	}

	sc := scene.New(source)
	game := newGame(cfg, sc)

	if cfg.Headless {
		if err := withTimeout(cfg.Timeout, sc.Next); err != nil {
			log.Error("script error", "error", err)
			os.Exit(1)
		}
		return
	}

	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowTitle("sealed-away")
	if err := ebiten.RunGame(game); err != nil {
		log.Error("game loop exited with error", "error", err)
		os.Exit(1)
	}
}
