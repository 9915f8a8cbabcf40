// Package translator drives whole programs through the parser and code
// generator: one Generator for all units, optional bootstrap first, one
// output sink closed on every path.
package translator

import (
	"fmt"
	"io"
	"log/slog"

	"hackvm/pkg/codegen"
	"hackvm/pkg/vm"
)

// DefaultEntryUnit is the unit whose presence turns on the bootstrap.
const DefaultEntryUnit = "Sys"

// Options configures a run. The zero value translates without bootstrap,
// annotations or logging.
type Options struct {
	// Bootstrap emits the startup sequence before the first unit.
	Bootstrap bool
	// BootstrapConfig picks the stack base and entry function; zero fields
	// take codegen.DefaultBootstrap.
	BootstrapConfig codegen.BootstrapConfig
	// Annotate precedes each command's code with a "// <command>" line.
	Annotate bool
	Logger   *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Translate writes the assembly for units, in order, to sink. The sink is
// closed before Translate returns. A unit that fails contributes no lines.
func Translate(units []Unit, opts Options, sink Sink) (err error) {
	defer func() {
		if cerr := sink.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close output: %w", cerr)
		}
	}()

	log := opts.logger()
	gen := codegen.New()

	if opts.Bootstrap {
		log.Debug("emitting bootstrap", "entry", opts.BootstrapConfig.Entry, "stack_base", opts.BootstrapConfig.StackBase)
		var lines []string
		if opts.Annotate {
			lines = append(lines, "// bootstrap")
		}
		lines = append(lines, gen.Bootstrap(opts.BootstrapConfig)...)
		if err := writeLines(sink, lines); err != nil {
			return fmt.Errorf("write bootstrap: %w", err)
		}
	}

	for _, u := range units {
		lines, err := translateUnit(gen, u, opts.Annotate)
		if err != nil {
			return fmt.Errorf("translate %s: %w", u.Name, err)
		}
		if err := writeLines(sink, lines); err != nil {
			return fmt.Errorf("write %s: %w", u.Name, err)
		}
		log.Debug("translated unit", "unit", u.Name, "lines", len(lines), "labels", gen.LabelCount())
	}
	return nil
}

func translateUnit(gen *codegen.Generator, u Unit, annotate bool) ([]string, error) {
	if err := gen.SetNamespace(u.Name); err != nil {
		return nil, err
	}
	rc, err := u.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	p, err := vm.NewParser(rc)
	if err != nil {
		return nil, err
	}

	var out []string
	for p.HasNext() {
		if err := p.Advance(); err != nil {
			return nil, err
		}
		cmd, err := p.Command()
		if err != nil {
			return nil, err
		}
		lines, err := gen.Translate(cmd)
		if err != nil {
			return nil, err
		}
		if annotate {
			out = append(out, "// "+cmd.String())
		}
		out = append(out, lines...)
	}
	return out, nil
}

func writeLines(sink Sink, lines []string) error {
	for _, l := range lines {
		if err := sink.WriteLine(l); err != nil {
			return err
		}
	}
	return nil
}
