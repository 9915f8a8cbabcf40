// Package compiler builds runnable Hack machine code from any of the
// project's source forms: VM units (a .vm file or a directory of them),
// Hack assembly (.asm) or an already assembled .hack text file.
package compiler

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"hackvm/pkg/asm"
	"hackvm/pkg/codegen"
	"hackvm/pkg/translator"
	"hackvm/pkg/utils"
	"hackvm/pkg/vm"
)

const (
	AsmExt  = ".asm"
	HackExt = ".hack"
)

// Program is the result of a build. Assembly is empty when the input was
// a .hack file, and Symbols is nil in that case too.
type Program struct {
	Assembly  string
	Code      []uint16
	SourceMap map[uint16]int
	Symbols   *asm.Assembler
}

type Options struct {
	// Entry names the unit whose presence turns on the bootstrap.
	Entry    string
	Annotate bool
	Logger   *slog.Logger
}

func (o Options) entry() string {
	if o.Entry == "" {
		return translator.DefaultEntryUnit
	}
	return o.Entry
}

// Compile builds the program at path.
func Compile(path string, opts Options) (*Program, error) {
	switch filepath.Ext(path) {
	case HackExt:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", vm.ErrInput, err)
		}
		code, err := asm.ParseHack(string(data))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return &Program{Code: code}, nil
	case AsmExt:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", vm.ErrInput, err)
		}
		return Assemble(string(data))
	}

	paths, err := utils.DiscoverUnits(path)
	if err != nil {
		return nil, err
	}
	units := make([]translator.Unit, len(paths))
	for i, p := range paths {
		units[i] = translator.FileUnit(p)
	}
	return CompileUnits(units, opts)
}

// CompileUnits translates units and assembles the result. The bootstrap is
// emitted when one of the units is the entry unit.
func CompileUnits(units []translator.Unit, opts Options) (*Program, error) {
	entry := opts.entry()
	topts := translator.Options{
		Bootstrap: translator.HasEntryUnit(units, entry),
		BootstrapConfig: codegen.BootstrapConfig{
			StackBase: codegen.DefaultBootstrap.StackBase,
			Entry:     entry + ".init",
		},
		Annotate: opts.Annotate,
		Logger:   opts.Logger,
	}

	var sb strings.Builder
	if err := translator.Translate(units, topts, translator.NewWriterSink(&sb)); err != nil {
		return nil, err
	}
	prog, err := Assemble(sb.String())
	if err != nil {
		return &Program{Assembly: sb.String()}, err
	}
	return prog, nil
}

// Assemble turns Hack assembly into a Program.
func Assemble(assembly string) (*Program, error) {
	a := asm.NewAssembler()
	code, sourceMap, err := a.Assemble(assembly)
	if err != nil {
		return &Program{Assembly: assembly}, fmt.Errorf("assembly error: %w", err)
	}
	return &Program{
		Assembly:  assembly,
		Code:      code,
		SourceMap: sourceMap,
		Symbols:   a,
	}, nil
}

// WriteHack writes the program's machine code as a .hack text file.
func (p *Program) WriteHack(w io.Writer) error {
	_, err := io.WriteString(w, asm.FormatHack(p.Code))
	return err
}
