package compiler

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hackvm/pkg/asm"
	"hackvm/pkg/cpu"
	"hackvm/pkg/translator"
	"hackvm/pkg/vm"
)

func run(t *testing.T, p *Program) *cpu.CPU {
	t.Helper()
	c := cpu.NewCPU()
	if err := c.Load(p.Code); err != nil {
		t.Fatal(err)
	}
	c.RAM[cpu.AddrSP] = 256
	if err := c.Run(100000); err != nil {
		t.Fatal(err)
	}
	return c
}

func TestCompileUnits_Bootstrap(t *testing.T) {
	units := []translator.Unit{
		translator.SourceUnit("Sys", "function Sys.init 0\npush constant 9\npop static 3\nlabel L\ngoto L\n"),
	}
	p, err := CompileUnits(units, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(p.Assembly, "@256\n") {
		t.Errorf("missing bootstrap:\n%.40s", p.Assembly)
	}
	c := run(t, p)
	addr, ok := p.Symbols.Symbol("Sys.3")
	if !ok || c.RAM[addr] != 9 {
		t.Errorf("Sys.3 = %d (bound %v); want 9", c.RAM[addr], ok)
	}
}

func TestCompileUnits_CustomEntry(t *testing.T) {
	units := []translator.Unit{translator.SourceUnit("Sys", "push constant 1\n")}
	p, err := CompileUnits(units, Options{Entry: "Main"})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(p.Assembly, "@Main.init") || strings.Contains(p.Assembly, "@Sys.init") {
		t.Errorf("bootstrap emitted without entry unit")
	}
}

func TestCompileUnits_Error(t *testing.T) {
	units := []translator.Unit{translator.SourceUnit("Bad", "pop constant 1\n")}
	if _, err := CompileUnits(units, Options{}); !errors.Is(err, vm.ErrUnsupportedOperation) {
		t.Errorf("err = %v; want ErrUnsupportedOperation", err)
	}
}

func TestCompile_SourceForms(t *testing.T) {
	dir := t.TempDir()

	vmPath := filepath.Join(dir, "Add.vm")
	os.WriteFile(vmPath, []byte("push constant 2\npush constant 3\nadd\n"), 0644)

	asmPath := filepath.Join(dir, "Add.asm")
	os.WriteFile(asmPath, []byte("@5\nD=A\n@0\nM=D\n"), 0644)

	words, _, err := asm.Assemble("@7\nD=A\n@0\nM=D\n")
	if err != nil {
		t.Fatal(err)
	}
	hackPath := filepath.Join(dir, "Add.hack")
	os.WriteFile(hackPath, []byte(asm.FormatHack(words)), 0644)

	p, err := Compile(vmPath, Options{})
	if err != nil {
		t.Fatalf("vm: %v", err)
	}
	if c := run(t, p); c.StackTop() != 5 {
		t.Errorf("vm top = %d; want 5", c.StackTop())
	}

	p, err = Compile(asmPath, Options{})
	if err != nil {
		t.Fatalf("asm: %v", err)
	}
	if c := run(t, p); c.RAM[0] != 5 {
		t.Errorf("asm RAM[0] = %d; want 5", c.RAM[0])
	}

	p, err = Compile(hackPath, Options{})
	if err != nil {
		t.Fatalf("hack: %v", err)
	}
	if p.Symbols != nil || p.Assembly != "" {
		t.Errorf("hack input should carry no assembly")
	}
	if c := run(t, p); c.RAM[0] != 7 {
		t.Errorf("hack RAM[0] = %d; want 7", c.RAM[0])
	}

	var buf bytes.Buffer
	if err := p.WriteHack(&buf); err != nil {
		t.Fatal(err)
	}
	if buf.String() != asm.FormatHack(words) {
		t.Errorf("WriteHack round trip differs")
	}
}

func TestCompile_MissingInput(t *testing.T) {
	_, err := Compile(filepath.Join(t.TempDir(), "nope.vm"), Options{})
	if !errors.Is(err, vm.ErrInput) {
		t.Errorf("err = %v; want ErrInput", err)
	}
}

func TestAssemble_Error(t *testing.T) {
	p, err := Assemble("D=Q\n")
	if err == nil {
		t.Fatal("expected an error")
	}
	if p == nil || p.Assembly != "D=Q\n" {
		t.Errorf("failed build should keep its assembly")
	}
}
