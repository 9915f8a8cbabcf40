package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tebeka/atexit"

	"hackvm/pkg/codegen"
	"hackvm/pkg/vm"
)

const testSource = `push constant 7
push constant 8
add
`

func main() {
	src := testSource
	name := "Main"
	if len(os.Args) > 1 {
		data, err := os.ReadFile(os.Args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, "read error:", err)
			atexit.Exit(1)
		}
		src = string(data)
		name = strings.TrimSuffix(filepath.Base(os.Args[1]), filepath.Ext(os.Args[1]))
	}

	if err := dump(os.Stdout, name, src); err != nil {
		fmt.Fprintln(os.Stderr, err)
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

// dump prints every command of one unit followed by the assembly generated
// for it, stopping at the first error.
func dump(w io.Writer, name, src string) error {
	fmt.Fprintf(w, "Source:\n%s\n", src)

	p, err := vm.NewParser(strings.NewReader(src))
	if err != nil {
		return fmt.Errorf("read error: %w", err)
	}

	gen := codegen.New()
	if err := gen.SetNamespace(name); err != nil {
		return err
	}

	fmt.Fprintf(w, "Commands (%s)\n", name)
	total := 0
	for p.HasNext() {
		if err := p.Advance(); err != nil {
			return fmt.Errorf("parse error: %w", err)
		}
		cmd, err := p.Command()
		if err != nil {
			return fmt.Errorf("parse error: %w", err)
		}
		lines, err := gen.Translate(cmd)
		if err != nil {
			return fmt.Errorf("codegen error: %w", err)
		}
		fmt.Fprintf(w, "%4d  %-10s %s\n", cmd.Line, cmd.Kind, cmd)
		for _, l := range lines {
			fmt.Fprintf(w, "        %s\n", l)
		}
		total += len(lines)
	}
	fmt.Fprintf(w, "\n%d assembly lines, %d generated labels\n", total, gen.LabelCount())
	return nil
}
