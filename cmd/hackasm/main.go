package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/tebeka/atexit"

	"hackvm/pkg/compiler"
	"hackvm/pkg/cpu"
	"hackvm/pkg/translator"
	"hackvm/pkg/utils"
)

const usage = "Usage: hackasm [flags] <file.vm|file.asm|file.hack|directory>"

func main() {
	utils.ExitOnInterrupt()
	atexit.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run builds the input to machine code, optionally writes it as .hack and
// optionally executes it on the emulator.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("hackasm", flag.ContinueOnError)
	fs.SetOutput(stderr)
	out := fs.String("o", "", "write machine code in .hack format to this file")
	exec := fs.Bool("run", false, "execute the program on the emulator")
	steps := fs.Int("steps", 10_000_000, "instruction limit for -run (0 = unlimited)")
	stackBase := fs.Int("sp", 256, "initial SP before the program starts")
	dump := fs.String("dump", "", "hibernate the machine to this zip after running")
	screenshot := fs.String("screenshot", "", "save the screen to this PNG after running")
	scale := fs.Int("scale", 1, "screenshot scale factor")
	showAsm := fs.Bool("show-asm", false, "print the generated assembly")
	entry := fs.String("entry", translator.DefaultEntryUnit, "unit whose presence enables the bootstrap")
	verbose := fs.Bool("v", false, "debug logging")
	fs.Usage = func() {
		fmt.Fprintln(stderr, usage)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	input := fs.Arg(0)

	logger, closeLog, err := utils.NewLogger(stderr, "", *verbose)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	logHook := utils.OnExit(func() { _ = closeLog() })
	defer logHook.Run()

	prog, err := compiler.Compile(input, compiler.Options{Entry: *entry, Logger: logger})
	if err != nil {
		logger.Error("build failed", "path", input, "err", err)
		return 1
	}
	logger.Debug("built program", "path", input, "words", len(prog.Code))

	if *showAsm {
		fmt.Fprintf(stdout, "Generated Assembly:\n%s\n", prog.Assembly)
	}

	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			logger.Error("cannot create output", "path", *out, "err", err)
			return 1
		}
		werr := prog.WriteHack(f)
		if cerr := f.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			logger.Error("write failed", "path", *out, "err", werr)
			return 1
		}
		fmt.Fprintf(stdout, "File created: %s\n", *out)
	}

	if !*exec {
		return 0
	}

	vm := cpu.NewCPU()
	if err := vm.Load(prog.Code); err != nil {
		logger.Error("load failed", "err", err)
		return 1
	}
	// A bootstrap overwrites this; bare programs need a stack.
	vm.RAM[cpu.AddrSP] = uint16(*stackBase)

	runErr := vm.Run(*steps)
	fmt.Fprintf(stdout, "PC=%d A=%d D=%d SP=%d top=%d steps=%d halted=%v\n",
		vm.PC, vm.A, vm.D, vm.StackPointer(), int16(vm.StackTop()), vm.Steps, vm.Halted)

	if *dump != "" {
		if err := vm.HibernateToFile(*dump); err != nil {
			logger.Error("hibernate failed", "path", *dump, "err", err)
			return 1
		}
	}
	if *screenshot != "" {
		if err := vm.SaveScreenshot(*screenshot, *scale); err != nil {
			logger.Error("screenshot failed", "path", *screenshot, "err", err)
			return 1
		}
	}
	if runErr != nil {
		logger.Error("run stopped", "err", runErr)
		return 1
	}
	return 0
}
