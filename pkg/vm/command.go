// Package vm holds the data model of the stack-based VM language and the
// line-oriented parser that turns one source unit into commands.
package vm

import (
	"fmt"
	"strconv"
)

// Kind identifies the category of a VM command.
type Kind int

const (
	Arithmetic Kind = iota
	Push
	Pop
	Label
	Goto
	IfGoto
	Function
	Call
	Return
)

var kindNames = [...]string{
	Arithmetic: "arithmetic",
	Push:       "push",
	Pop:        "pop",
	Label:      "label",
	Goto:       "goto",
	IfGoto:     "if-goto",
	Function:   "function",
	Call:       "call",
	Return:     "return",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// HasArg1 reports whether commands of this kind carry a symbolic operand.
func (k Kind) HasArg1() bool {
	return k != Return
}

// HasArg2 reports whether commands of this kind carry a numeric operand.
func (k Kind) HasArg2() bool {
	switch k {
	case Push, Pop, Function, Call:
		return true
	}
	return false
}

// keywordKinds maps the leading keyword of a non-arithmetic line to its kind.
var keywordKinds = map[string]Kind{
	"push":     Push,
	"pop":      Pop,
	"label":    Label,
	"goto":     Goto,
	"if-goto":  IfGoto,
	"function": Function,
	"call":     Call,
	"return":   Return,
}

// ArithmeticOps is the fixed set of arithmetic/logical keywords.
var ArithmeticOps = map[string]bool{
	"add": true,
	"sub": true,
	"neg": true,
	"eq":  true,
	"gt":  true,
	"lt":  true,
	"and": true,
	"or":  true,
	"not": true,
}

// Command is one classified VM instruction. Which operands are meaningful
// depends on Kind: Arg1 for everything but Return, Arg2 for Push, Pop,
// Function and Call.
type Command struct {
	Kind Kind
	Arg1 string
	Arg2 int
	Line int // 1-based source line, 0 when synthesized
}

func (c Command) String() string {
	switch {
	case c.Kind == Return:
		return "return"
	case c.Kind == Arithmetic:
		return c.Arg1
	case c.Kind.HasArg2():
		return fmt.Sprintf("%s %s %d", c.Kind, c.Arg1, c.Arg2)
	default:
		return fmt.Sprintf("%s %s", c.Kind, c.Arg1)
	}
}

// Segment is a VM memory segment addressed by push and pop.
type Segment int

const (
	Constant Segment = iota
	Local
	Argument
	This
	That
	Temp
	Pointer
	Static
)

var segmentNames = [...]string{
	Constant: "constant",
	Local:    "local",
	Argument: "argument",
	This:     "this",
	That:     "that",
	Temp:     "temp",
	Pointer:  "pointer",
	Static:   "static",
}

var segmentsByName = func() map[string]Segment {
	m := make(map[string]Segment, len(segmentNames))
	for seg, name := range segmentNames {
		m[name] = Segment(seg)
	}
	return m
}()

func (s Segment) String() string {
	if s >= 0 && int(s) < len(segmentNames) {
		return segmentNames[s]
	}
	return "Segment(" + strconv.Itoa(int(s)) + ")"
}

// ParseSegment resolves a segment keyword.
func ParseSegment(name string) (Segment, error) {
	seg, ok := segmentsByName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSegment, name)
	}
	return seg, nil
}
