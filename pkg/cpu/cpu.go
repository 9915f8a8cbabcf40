package cpu

import (
	"errors"
	"fmt"
)

const (
	RomSize = 32768
	RamSize = 32768

	// Address bus width: the top bit of A is ignored for memory access.
	addressMask = 0x7FFF

	ScreenBase   = 16384
	ScreenWords  = 8192
	KeyboardAddr = 24576
)

// Register cells of the VM memory convention.
const (
	AddrSP   = 0
	AddrLCL  = 1
	AddrARG  = 2
	AddrTHIS = 3
	AddrTHAT = 4
)

var (
	ErrProgramTooLarge = errors.New("program does not fit in ROM")
	ErrStepLimit       = errors.New("step limit reached before halt")
)

// Instruction fields of a C-instruction.
const (
	cBit     = 1 << 15
	aBit     = 1 << 12
	destA    = 1 << 5
	destD    = 1 << 4
	destM    = 1 << 3
	jumpLT   = 1 << 2
	jumpEQ   = 1 << 1
	jumpGT   = 1 << 0
	destMask = destA | destD | destM
)

type CPU struct {
	A  uint16
	D  uint16
	PC uint16

	ROM [RomSize]uint16
	RAM [RamSize]uint16

	// ProgramLength is the number of loaded words. Running past it halts.
	ProgramLength int

	// Halted is set when PC leaves the program or the program enters a
	// tight "@X; 0;JMP" loop at X, the conventional end-of-program idiom.
	Halted bool

	Steps uint64
}

func NewCPU() *CPU {
	return &CPU{}
}

// Load copies program into ROM and resets control state. RAM is kept.
func (c *CPU) Load(program []uint16) error {
	if len(program) > RomSize {
		return fmt.Errorf("%w: %d words", ErrProgramTooLarge, len(program))
	}
	c.ROM = [RomSize]uint16{}
	copy(c.ROM[:], program)
	c.ProgramLength = len(program)
	c.Reset()
	return nil
}

// Reset restarts execution at address 0.
func (c *CPU) Reset() {
	c.A = 0
	c.D = 0
	c.PC = 0
	c.Halted = false
	c.Steps = 0
}

// SetKey publishes the code of the key currently held, 0 for none.
func (c *CPU) SetKey(code uint16) {
	c.RAM[KeyboardAddr] = code
}

// StackPointer returns RAM[SP].
func (c *CPU) StackPointer() uint16 {
	return c.RAM[AddrSP]
}

// StackTop returns the word just below the stack pointer.
func (c *CPU) StackTop() uint16 {
	return c.RAM[(c.RAM[AddrSP]-1)&addressMask]
}

// Step executes one instruction.
func (c *CPU) Step() {
	if c.Halted {
		return
	}
	if int(c.PC) >= c.ProgramLength {
		c.Halted = true
		return
	}

	pc := c.PC
	instr := c.ROM[pc]
	c.Steps++

	if instr&cBit == 0 {
		c.A = instr
		c.PC++
		return
	}

	addr := c.A & addressMask
	y := c.A
	if instr&aBit != 0 {
		y = c.RAM[addr]
	}
	out := alu(c.D, y, (instr>>6)&0x3F)

	// Memory and jumps see A as it was before this instruction.
	if instr&destM != 0 {
		c.RAM[addr] = out
	}
	target := c.A & addressMask
	if instr&destA != 0 {
		c.A = out
	}
	if instr&destD != 0 {
		c.D = out
	}

	if jumps(out, instr) {
		if instr&destMask == 0 && target+1 == pc && c.ROM[target] == target {
			c.Halted = true
			return
		}
		c.PC = target
		return
	}
	c.PC++
}

// Run steps until the program halts or maxSteps instructions have executed.
// maxSteps <= 0 means no limit.
func (c *CPU) Run(maxSteps int) error {
	for n := 0; !c.Halted; n++ {
		if maxSteps > 0 && n >= maxSteps {
			return fmt.Errorf("%w after %d steps at PC=%d", ErrStepLimit, n, c.PC)
		}
		c.Step()
	}
	return nil
}

// RunUntilDone runs with no step limit.
func (c *CPU) RunUntilDone() {
	_ = c.Run(0)
}

// alu implements the Hack ALU. ctrl holds zx nx zy ny f no from high bit to
// low bit.
func alu(x, y, ctrl uint16) uint16 {
	if ctrl&0b100000 != 0 {
		x = 0
	}
	if ctrl&0b010000 != 0 {
		x = ^x
	}
	if ctrl&0b001000 != 0 {
		y = 0
	}
	if ctrl&0b000100 != 0 {
		y = ^y
	}
	var out uint16
	if ctrl&0b000010 != 0 {
		out = x + y
	} else {
		out = x & y
	}
	if ctrl&0b000001 != 0 {
		out = ^out
	}
	return out
}

func jumps(out, instr uint16) bool {
	v := int16(out)
	switch {
	case v < 0:
		return instr&jumpLT != 0
	case v == 0:
		return instr&jumpEQ != 0
	default:
		return instr&jumpGT != 0
	}
}
