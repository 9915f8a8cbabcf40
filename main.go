//go:build !js

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/tebeka/atexit"

	"hackvm/pkg/codegen"
	"hackvm/pkg/translator"
	"hackvm/pkg/utils"
)

const usage = "Usage: hackvm [flags] <file.vm|directory>"

func main() {
	utils.ExitOnInterrupt()
	atexit.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run translates the single file or directory named in args and returns the
// process exit code: 0 on success, 1 on a failed translation, 2 on bad usage.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("hackvm", flag.ContinueOnError)
	fs.SetOutput(stderr)
	annotate := fs.Bool("annotate", false, "precede each command's code with a comment naming it")
	entry := fs.String("entry", translator.DefaultEntryUnit, "unit whose presence enables the bootstrap; its <entry>.init is called first")
	logPath := fs.String("log", "", "append JSON logs to this file instead of stderr")
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

	logger, closeLog, err := utils.NewLogger(stderr, *logPath, *verbose)
	if err != nil {
		fmt.Fprintf(stderr, "failed to open log file %q: %v\n", *logPath, err)
		return 1
	}
	logHook := utils.OnExit(func() { _ = closeLog() })
	defer logHook.Run()

	paths, err := utils.DiscoverUnits(input)
	if err != nil {
		logger.Error("no input", "path", input, "err", err)
		return 1
	}
	units := make([]translator.Unit, len(paths))
	for i, p := range paths {
		units[i] = translator.FileUnit(p)
	}

	opts := translator.Options{
		Bootstrap: translator.HasEntryUnit(units, *entry),
		BootstrapConfig: codegen.BootstrapConfig{
			StackBase: codegen.DefaultBootstrap.StackBase,
			Entry:     *entry + ".init",
		},
		Annotate: *annotate,
		Logger:   logger,
	}

	output := utils.OutputPath(input)
	sink, err := translator.NewFileSink(output)
	if err != nil {
		logger.Error("cannot create output", "path", output, "err", err)
		return 1
	}

	// An interrupted run must not leave a half-written file behind.
	removeOutput := utils.OnExit(func() {
		if rmErr := os.Remove(output); rmErr != nil {
			logger.Warn("could not remove partial output", "path", output, "err", rmErr)
		}
	})

	logger.Debug("translating", "units", len(units), "bootstrap", opts.Bootstrap, "output", output)
	if err := translator.Translate(units, opts, sink); err != nil {
		logger.Error("translation failed", "err", err)
		removeOutput.Run()
		return 1
	}
	removeOutput.Cancel()

	fmt.Fprintf(stdout, "File created: %s\n", output)
	return 0
}
