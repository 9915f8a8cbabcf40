package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"

	"hackvm/pkg/compiler"
	"hackvm/pkg/cpu"
	"hackvm/pkg/utils"
)

// Hack keyboard codes for keys that have no printable character.
var specialKeys = map[ebiten.Key]uint16{
	ebiten.KeyEnter:      128,
	ebiten.KeyBackspace:  129,
	ebiten.KeyArrowLeft:  130,
	ebiten.KeyArrowUp:    131,
	ebiten.KeyArrowRight: 132,
	ebiten.KeyArrowDown:  133,
	ebiten.KeyHome:       134,
	ebiten.KeyEnd:        135,
	ebiten.KeyPageUp:     136,
	ebiten.KeyPageDown:   137,
	ebiten.KeyInsert:     138,
	ebiten.KeyDelete:     139,
	ebiten.KeyEscape:     140,
	ebiten.KeyF1:         141,
	ebiten.KeyF2:         142,
	ebiten.KeyF3:         143,
	ebiten.KeyF4:         144,
	ebiten.KeyF5:         145,
	ebiten.KeyF6:         146,
	ebiten.KeyF7:         147,
	ebiten.KeyF8:         148,
	ebiten.KeyF9:         149,
	ebiten.KeyF10:        150,
	ebiten.KeyF11:        151,
	ebiten.KeyF12:        152,
}

type Game struct {
	vm            *cpu.CPU
	stepsPerFrame int
	screenImg     *ebiten.Image // reused 512×256 canvas
	heldChar      uint16
	showStatus    bool
}

// keyCode returns the value the keyboard register should hold this frame:
// a special key if one is down, else the last typed character while any key
// stays down, else 0.
func (g *Game) keyCode(typed []rune, pressed []ebiten.Key) uint16 {
	for _, k := range pressed {
		if code, ok := specialKeys[k]; ok {
			return code
		}
	}
	if len(typed) > 0 {
		g.heldChar = uint16(typed[len(typed)-1])
	}
	if len(pressed) == 0 {
		g.heldChar = 0
	}
	return g.heldChar
}

func (g *Game) Update() error {
	g.vm.SetKey(g.keyCode(ebiten.AppendInputChars(nil), ebiten.AppendPressedKeys(nil)))
	g.runFrame()
	return nil
}

// runFrame executes up to stepsPerFrame instructions.
func (g *Game) runFrame() {
	for i := 0; i < g.stepsPerFrame; i++ {
		if g.vm.Halted {
			break
		}
		g.vm.Step()
	}
}

func (g *Game) Draw(screen *ebiten.Image) {
	if g.screenImg == nil {
		g.screenImg = ebiten.NewImage(cpu.ScreenWidth, cpu.ScreenHeight)
	}
	g.screenImg.WritePixels(g.vm.GetFramebufferRGBA())
	screen.DrawImage(g.screenImg, nil)

	if g.showStatus {
		msg := fmt.Sprintf("PC=%d SP=%d steps=%d", g.vm.PC, g.vm.StackPointer(), g.vm.Steps)
		if g.vm.Halted {
			msg += " halted"
		}
		ebitenutil.DebugPrintAt(screen, msg, 4, cpu.ScreenHeight-16)
	}
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return cpu.ScreenWidth, cpu.ScreenHeight
}

// newGame builds the program at path and loads it into a fresh machine.
func newGame(path string, stepsPerFrame int) (*Game, error) {
	prog, err := compiler.Compile(path, compiler.Options{})
	if err != nil {
		return nil, err
	}
	vm := cpu.NewCPU()
	if err := vm.Load(prog.Code); err != nil {
		return nil, err
	}
	vm.RAM[cpu.AddrSP] = 256
	return &Game{vm: vm, stepsPerFrame: stepsPerFrame}, nil
}

func main() {
	steps := flag.Int("steps", 50000, "instructions executed per frame")
	status := flag.Bool("status", false, "overlay PC and SP")
	scale := flag.Int("scale", 2, "window scale")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: desktop [flags] <file.vm|file.asm|file.hack|directory>")
		os.Exit(2)
	}

	fullPath, _, err := utils.GetPathInfo(flag.Arg(0))
	if err != nil {
		log.Fatalf("Bad path: %v", err)
	}
	game, err := newGame(fullPath, *steps)
	if err != nil {
		log.Fatalf("Build failed: %v", err)
	}
	game.showStatus = *status

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(cpu.ScreenWidth * *scale, cpu.ScreenHeight * *scale)
	ebiten.SetWindowTitle("Hack VM Desktop")

	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}
}
