// Package codegen turns VM commands into Hack assembly lines.
//
// Every command maps to a fixed template. The only state is the static
// namespace of the unit being translated, the function currently being
// emitted (for label scoping) and a counter that keeps generated labels
// unique across the whole output.
package codegen

import (
	"fmt"
	"strconv"

	"hackvm/pkg/vm"
)

// Generated labels start with '$', which no user label may, so the two
// never collide.
const (
	cmpTruePrefix = "$CMP_TRUE."
	cmpEndPrefix  = "$CMP_END."
	returnPrefix  = "$RET."
)

// BootstrapConfig controls the startup sequence.
type BootstrapConfig struct {
	StackBase int    // initial SP, 256 when zero
	Entry     string // function called first, "Sys.init" when empty
}

// DefaultBootstrap is the conventional startup: SP=256, call Sys.init 0.
var DefaultBootstrap = BootstrapConfig{StackBase: 256, Entry: "Sys.init"}

// Generator translates commands one at a time. It is not safe for
// concurrent use; one Generator serves one output file.
type Generator struct {
	namespace string
	function  string
	labels    int
}

// New returns a Generator with an empty namespace.
func New() *Generator {
	return &Generator{}
}

// SetNamespace switches to a new source unit. Statics that follow are
// qualified with ns and function scope is cleared. The label counter
// carries over. A name that cannot prefix an assembly symbol is rejected
// and leaves the generator unchanged.
func (g *Generator) SetNamespace(ns string) error {
	if err := ValidateNamespace(ns); err != nil {
		return err
	}
	g.namespace = ns
	g.function = ""
	return nil
}

// Namespace returns the current static namespace.
func (g *Generator) Namespace() string {
	return g.namespace
}

// CurrentFunction returns the function whose body is being emitted, or "".
func (g *Generator) CurrentFunction() string {
	return g.function
}

// LabelCount returns how many unique labels have been drawn so far.
func (g *Generator) LabelCount() int {
	return g.labels
}

func (g *Generator) nextID() int {
	id := g.labels
	g.labels++
	return id
}

// Translate emits the template for cmd.
func (g *Generator) Translate(cmd vm.Command) ([]string, error) {
	var (
		lines []string
		err   error
	)
	switch cmd.Kind {
	case vm.Arithmetic:
		lines, err = g.Arithmetic(cmd.Arg1)
	case vm.Push:
		lines, err = g.Push(cmd.Arg1, cmd.Arg2)
	case vm.Pop:
		lines, err = g.Pop(cmd.Arg1, cmd.Arg2)
	case vm.Label:
		lines, err = g.Label(cmd.Arg1)
	case vm.Goto:
		lines, err = g.Goto(cmd.Arg1)
	case vm.IfGoto:
		lines, err = g.IfGoto(cmd.Arg1)
	case vm.Function:
		lines, err = g.Function(cmd.Arg1, cmd.Arg2)
	case vm.Call:
		lines, err = g.Call(cmd.Arg1, cmd.Arg2)
	case vm.Return:
		lines = g.Return()
	default:
		return nil, fmt.Errorf("%w: %s", vm.ErrUnknownCommand, cmd.Kind)
	}
	if err != nil && cmd.Line > 0 {
		return nil, fmt.Errorf("%w on line %d", err, cmd.Line)
	}
	return lines, err
}

// Arithmetic emits one of the nine stack operations.
func (g *Generator) Arithmetic(op string) ([]string, error) {
	if comp, ok := binaryOps[op]; ok {
		return binaryTemplate(comp), nil
	}
	if comp, ok := unaryOps[op]; ok {
		return unaryTemplate(comp), nil
	}
	if jump, ok := comparisonJumps[op]; ok {
		id := strconv.Itoa(g.nextID())
		return comparisonTemplate(jump, cmpTruePrefix+id, cmpEndPrefix+id), nil
	}
	return nil, fmt.Errorf("%w %q", vm.ErrUnknownArithmeticOp, op)
}

// Push emits push <segment> <index>.
func (g *Generator) Push(segment string, index int) ([]string, error) {
	seg, err := vm.ParseSegment(segment)
	if err != nil {
		return nil, err
	}
	if err := checkIndex(seg, index); err != nil {
		return nil, err
	}
	switch seg {
	case vm.Constant:
		return pushConstantTemplate(index), nil
	case vm.Local, vm.Argument, vm.This, vm.That:
		return pushIndirectTemplate(baseRegisters[seg], index), nil
	case vm.Temp:
		return pushDirectTemplate(strconv.Itoa(TempBase + index)), nil
	case vm.Pointer:
		return pushDirectTemplate(pointerRegisters[index]), nil
	case vm.Static:
		return pushDirectTemplate(g.staticSymbol(index)), nil
	}
	return nil, fmt.Errorf("%w: %q", vm.ErrInvalidSegment, segment)
}

// Pop emits pop <segment> <index>.
func (g *Generator) Pop(segment string, index int) ([]string, error) {
	seg, err := vm.ParseSegment(segment)
	if err != nil {
		return nil, err
	}
	if seg == vm.Constant {
		return nil, fmt.Errorf("%w: pop constant %d", vm.ErrUnsupportedOperation, index)
	}
	if err := checkIndex(seg, index); err != nil {
		return nil, err
	}
	switch seg {
	case vm.Local, vm.Argument, vm.This, vm.That:
		return popIndirectTemplate(baseRegisters[seg], index), nil
	case vm.Temp:
		return popDirectTemplate(strconv.Itoa(TempBase + index)), nil
	case vm.Pointer:
		return popDirectTemplate(pointerRegisters[index]), nil
	case vm.Static:
		return popDirectTemplate(g.staticSymbol(index)), nil
	}
	return nil, fmt.Errorf("%w: %q", vm.ErrInvalidSegment, segment)
}

func checkIndex(seg vm.Segment, index int) error {
	if index < 0 {
		return fmt.Errorf("%w: %s %d", vm.ErrIndexOutOfRange, seg, index)
	}
	switch seg {
	case vm.Constant:
		if index > MaxConstant {
			return fmt.Errorf("%w: constant %d exceeds %d", vm.ErrIndexOutOfRange, index, MaxConstant)
		}
	case vm.Temp:
		if index >= TempSize {
			return fmt.Errorf("%w: temp %d", vm.ErrIndexOutOfRange, index)
		}
	case vm.Pointer:
		if index > 1 {
			return fmt.Errorf("%w: %d", vm.ErrInvalidPointerIndex, index)
		}
	}
	return nil
}

func (g *Generator) staticSymbol(index int) string {
	return g.namespace + "." + strconv.Itoa(index)
}

// Label declares a jump target.
func (g *Generator) Label(name string) ([]string, error) {
	label, err := g.scopedLabel(name)
	if err != nil {
		return nil, err
	}
	return labelTemplate(label), nil
}

// Goto jumps unconditionally.
func (g *Generator) Goto(name string) ([]string, error) {
	label, err := g.scopedLabel(name)
	if err != nil {
		return nil, err
	}
	return gotoTemplate(label), nil
}

// IfGoto pops the top of the stack and jumps when it is nonzero.
func (g *Generator) IfGoto(name string) ([]string, error) {
	label, err := g.scopedLabel(name)
	if err != nil {
		return nil, err
	}
	return ifGotoTemplate(label), nil
}

func (g *Generator) scopedLabel(name string) (string, error) {
	if err := ValidateLabel(name); err != nil {
		return "", err
	}
	if g.function == "" {
		if err := checkEmittedName(name); err != nil {
			return "", err
		}
		return name, nil
	}
	return g.function + "$" + name, nil
}

// Function declares a function with nLocals zeroed locals and makes it the
// scope for the labels that follow.
func (g *Generator) Function(name string, nLocals int) ([]string, error) {
	if err := ValidateLabel(name); err != nil {
		return nil, err
	}
	if err := checkEmittedName(name); err != nil {
		return nil, err
	}
	g.function = name
	return functionTemplate(name, nLocals), nil
}

// Call saves the caller's frame and transfers control to name.
func (g *Generator) Call(name string, nArgs int) ([]string, error) {
	if err := ValidateLabel(name); err != nil {
		return nil, err
	}
	if err := checkEmittedName(name); err != nil {
		return nil, err
	}
	return callTemplate(name, nArgs, returnPrefix+strconv.Itoa(g.nextID())), nil
}

// Return restores the caller's frame and jumps to the saved return address.
func (g *Generator) Return() []string {
	return returnTemplate()
}

// Bootstrap emits the startup sequence that must precede all translated
// code when an entry unit is present.
func (g *Generator) Bootstrap(cfg BootstrapConfig) []string {
	if cfg.StackBase == 0 {
		cfg.StackBase = DefaultBootstrap.StackBase
	}
	if cfg.Entry == "" {
		cfg.Entry = DefaultBootstrap.Entry
	}
	return concat(
		setStackPointerTemplate(cfg.StackBase),
		callTemplate(cfg.Entry, 0, returnPrefix+strconv.Itoa(g.nextID())),
	)
}
