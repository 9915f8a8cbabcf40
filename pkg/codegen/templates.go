package codegen

import (
	"strconv"

	"hackvm/pkg/vm"
)

// Fixed memory map of the target machine.
const (
	// TempBase is the first cell of the eight-word temp segment.
	TempBase = 5
	// TempSize is the number of temp cells.
	TempSize = 8
	// MaxConstant is the largest literal an A-instruction can load.
	MaxConstant = 32767
	// FrameSize is the number of words a call saves below the callee's locals.
	FrameSize = 5
)

// baseRegisters maps relocatable segments to the cell holding their base.
var baseRegisters = map[vm.Segment]string{
	vm.Local:    "LCL",
	vm.Argument: "ARG",
	vm.This:     "THIS",
	vm.That:     "THAT",
}

// pointerRegisters maps pointer 0/1 onto the this/that base cells.
var pointerRegisters = [2]string{"THIS", "THAT"}

// binaryOps combine the two topmost words into the lower one. D holds y,
// M holds x.
var binaryOps = map[string]string{
	"add": "M=D+M",
	"sub": "M=M-D",
	"and": "M=D&M",
	"or":  "M=D|M",
}

// unaryOps rewrite the top of the stack in place.
var unaryOps = map[string]string{
	"neg": "M=-M",
	"not": "M=!M",
}

// comparisonJumps holds the jump taken when x-y satisfies the comparison.
var comparisonJumps = map[string]string{
	"eq": "JEQ",
	"gt": "JGT",
	"lt": "JLT",
}

func concat(blocks ...[]string) []string {
	n := 0
	for _, b := range blocks {
		n += len(b)
	}
	out := make([]string, 0, n)
	for _, b := range blocks {
		out = append(out, b...)
	}
	return out
}

func at(symbol string) string {
	return "@" + symbol
}

func atInt(n int) string {
	return "@" + strconv.Itoa(n)
}

func declare(label string) string {
	return "(" + label + ")"
}

// pushD pushes the D register.
func pushD() []string {
	return []string{"@SP", "A=M", "M=D", "@SP", "M=M+1"}
}

// popD pops the top of the stack into D.
func popD() []string {
	return []string{"@SP", "AM=M-1", "D=M"}
}

// popToTopOperand pops y into D and leaves A addressing x.
func popToTopOperand() []string {
	return []string{"@SP", "AM=M-1", "D=M", "A=A-1"}
}

func binaryTemplate(comp string) []string {
	return concat(popToTopOperand(), []string{comp})
}

func unaryTemplate(comp string) []string {
	return []string{"@SP", "A=M-1", comp}
}

// comparisonTemplate leaves -1 on the stack when x-y satisfies jump, else 0.
func comparisonTemplate(jump, trueLabel, endLabel string) []string {
	return concat(popToTopOperand(), []string{
		"D=M-D",
		at(trueLabel),
		"D;" + jump,
		"@SP", "A=M-1", "M=0",
		at(endLabel),
		"0;JMP",
		declare(trueLabel),
		"@SP", "A=M-1", "M=-1",
		declare(endLabel),
	})
}

func pushConstantTemplate(value int) []string {
	return concat([]string{atInt(value), "D=A"}, pushD())
}

// pushIndirectTemplate pushes RAM[RAM[base]+index].
func pushIndirectTemplate(base string, index int) []string {
	return concat([]string{at(base), "D=M", atInt(index), "A=D+A", "D=M"}, pushD())
}

// popIndirectTemplate pops into RAM[RAM[base]+index], staging the address in R13.
func popIndirectTemplate(base string, index int) []string {
	return concat(
		[]string{at(base), "D=M", atInt(index), "D=D+A", "@R13", "M=D"},
		popD(),
		[]string{"@R13", "A=M", "M=D"},
	)
}

// pushDirectTemplate pushes the cell named by symbol.
func pushDirectTemplate(symbol string) []string {
	return concat([]string{at(symbol), "D=M"}, pushD())
}

// popDirectTemplate pops into the cell named by symbol.
func popDirectTemplate(symbol string) []string {
	return concat(popD(), []string{at(symbol), "M=D"})
}

func labelTemplate(label string) []string {
	return []string{declare(label)}
}

func gotoTemplate(label string) []string {
	return []string{at(label), "0;JMP"}
}

// ifGotoTemplate pops the condition and jumps when it is nonzero.
func ifGotoTemplate(label string) []string {
	return concat(popD(), []string{at(label), "D;JNE"})
}

// callTemplate builds the caller side of the frame protocol:
// return address, LCL, ARG, THIS, THAT, then ARG = SP-5-nArgs, LCL = SP.
func callTemplate(function string, nArgs int, returnLabel string) []string {
	return concat(
		[]string{at(returnLabel), "D=A"}, pushD(),
		[]string{"@LCL", "D=M"}, pushD(),
		[]string{"@ARG", "D=M"}, pushD(),
		[]string{"@THIS", "D=M"}, pushD(),
		[]string{"@THAT", "D=M"}, pushD(),
		[]string{"@SP", "D=M", atInt(FrameSize + nArgs), "D=D-A", "@ARG", "M=D"},
		[]string{"@SP", "D=M", "@LCL", "M=D"},
		gotoTemplate(function),
		[]string{declare(returnLabel)},
	)
}

// functionTemplate declares the entry point and zeroes nLocals slots.
func functionTemplate(function string, nLocals int) []string {
	out := []string{declare(function)}
	for i := 0; i < nLocals; i++ {
		out = append(out, pushConstantTemplate(0)...)
	}
	return out
}

// restoreTemplate loads RAM[frame-offset] into register. R13 holds the frame
// and is not modified.
func restoreTemplate(register string, offset int) []string {
	return []string{"@R13", "D=M", atInt(offset), "A=D-A", "D=M", at(register), "M=D"}
}

// returnTemplate unwinds the frame built by callTemplate.
func returnTemplate() []string {
	return concat(
		// R13 = frame, R14 = return address
		[]string{"@LCL", "D=M", "@R13", "M=D", atInt(FrameSize), "A=D-A", "D=M", "@R14", "M=D"},
		// *ARG = pop(), SP = ARG+1
		popD(),
		[]string{"@ARG", "A=M", "M=D", "@ARG", "D=M+1", "@SP", "M=D"},
		restoreTemplate("THAT", 1),
		restoreTemplate("THIS", 2),
		restoreTemplate("ARG", 3),
		restoreTemplate("LCL", 4),
		[]string{"@R14", "A=M", "0;JMP"},
	)
}

func setStackPointerTemplate(base int) []string {
	return []string{atInt(base), "D=A", "@SP", "M=D"}
}
