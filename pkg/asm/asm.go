package asm

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxProgramWords is the size of the instruction ROM.
const MaxProgramWords = 32768

// VariableBase is the first RAM cell handed out to symbols that are never
// declared as labels.
const VariableBase = 16

var predefinedSymbols = map[string]uint16{
	"SP":     0,
	"LCL":    1,
	"ARG":    2,
	"THIS":   3,
	"THAT":   4,
	"SCREEN": 16384,
	"KBD":    24576,
}

func init() {
	for i := 0; i < 16; i++ {
		predefinedSymbols["R"+strconv.Itoa(i)] = uint16(i)
	}
}

// compCodes holds the a-bit and the six c-bits of every computation.
var compCodes = map[string]uint16{
	"0":   0b0101010,
	"1":   0b0111111,
	"-1":  0b0111010,
	"D":   0b0001100,
	"A":   0b0110000,
	"!D":  0b0001101,
	"!A":  0b0110001,
	"-D":  0b0001111,
	"-A":  0b0110011,
	"D+1": 0b0011111,
	"A+1": 0b0110111,
	"D-1": 0b0001110,
	"A-1": 0b0110010,
	"D+A": 0b0000010,
	"D-A": 0b0010011,
	"A-D": 0b0000111,
	"D&A": 0b0000000,
	"D|A": 0b0010101,
	"M":   0b1110000,
	"!M":  0b1110001,
	"-M":  0b1110011,
	"M+1": 0b1110111,
	"M-1": 0b1110010,
	"D+M": 0b1000010,
	"D-M": 0b1010011,
	"M-D": 0b1000111,
	"D&M": 0b1000000,
	"D|M": 0b1010101,

	// commuted spellings
	"1+D": 0b0011111,
	"1+A": 0b0110111,
	"1+M": 0b1110111,
	"A+D": 0b0000010,
	"M+D": 0b1000010,
	"A&D": 0b0000000,
	"M&D": 0b1000000,
	"A|D": 0b0010101,
	"M|D": 0b1010101,
}

var jumpCodes = map[string]uint16{
	"":    0b000,
	"JGT": 0b001,
	"JEQ": 0b010,
	"JGE": 0b011,
	"JLT": 0b100,
	"JNE": 0b101,
	"JLE": 0b110,
	"JMP": 0b111,
}

const cInstructionPrefix = 0b111 << 13

type Assembler struct {
	symbols      map[string]uint16
	nextVariable uint16
}

type parsedLine struct {
	lineNo int
	label  string // set for (LABEL) declarations
	symbol string // set for @symbol
	value  uint16 // set for @number
	isA    bool
	dest   string
	comp   string
	jump   string
}

func (p parsedLine) isInstruction() bool {
	return p.isA || p.comp != ""
}

func NewAssembler() *Assembler {
	symbols := make(map[string]uint16, len(predefinedSymbols))
	for k, v := range predefinedSymbols {
		symbols[k] = v
	}
	return &Assembler{
		symbols:      symbols,
		nextVariable: VariableBase,
	}
}

// Assemble translates Hack assembly into machine words. The returned map
// gives the source line of each emitted word.
func Assemble(code string) ([]uint16, map[uint16]int, error) {
	return NewAssembler().Assemble(code)
}

func (a *Assembler) Assemble(code string) ([]uint16, map[uint16]int, error) {
	lines := strings.Split(code, "\n")

	parsed, err := a.pass1(lines)
	if err != nil {
		return nil, nil, err
	}

	return a.pass2(parsed)
}

// pass1 parses every line and binds labels to ROM addresses.
func (a *Assembler) pass1(lines []string) ([]parsedLine, error) {
	var (
		address int
		parsed  []parsedLine
	)
	declared := make(map[string]bool)

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return nil, err
		}

		if p.label != "" {
			if declared[p.label] {
				return nil, fmt.Errorf("duplicate label '%s' on line %d", p.label, lineNo)
			}
			if _, ok := predefinedSymbols[p.label]; ok {
				return nil, fmt.Errorf("label '%s' on line %d redefines a predefined symbol", p.label, lineNo)
			}
			declared[p.label] = true
			a.symbols[p.label] = uint16(address)
			continue
		}

		if !p.isInstruction() {
			continue
		}
		if address >= MaxProgramWords {
			return nil, fmt.Errorf("program too large near line %d", lineNo)
		}
		address++
		parsed = append(parsed, p)
	}

	return parsed, nil
}

// pass2 encodes instructions, allocating variables on first use.
func (a *Assembler) pass2(parsed []parsedLine) ([]uint16, map[uint16]int, error) {
	words := make([]uint16, 0, len(parsed))
	sourceMap := make(map[uint16]int, len(parsed))

	for _, p := range parsed {
		var word uint16
		if p.isA {
			word = p.value
			if p.symbol != "" {
				addr, err := a.resolve(p.symbol, p.lineNo)
				if err != nil {
					return nil, nil, err
				}
				word = addr
			}
		} else {
			w, err := encodeC(p)
			if err != nil {
				return nil, nil, err
			}
			word = w
		}
		sourceMap[uint16(len(words))] = p.lineNo
		words = append(words, word)
	}

	return words, sourceMap, nil
}

func (a *Assembler) resolve(symbol string, lineNo int) (uint16, error) {
	if addr, ok := a.symbols[symbol]; ok {
		return addr, nil
	}
	if a.nextVariable >= predefinedSymbols["SCREEN"] {
		return 0, fmt.Errorf("out of variable space for '%s' on line %d", symbol, lineNo)
	}
	addr := a.nextVariable
	a.symbols[symbol] = addr
	a.nextVariable++
	return addr, nil
}

// Symbol returns the address bound to name after Assemble.
func (a *Assembler) Symbol(name string) (uint16, bool) {
	addr, ok := a.symbols[name]
	return addr, ok
}

func encodeC(p parsedLine) (uint16, error) {
	comp, ok := compCodes[p.comp]
	if !ok {
		return 0, fmt.Errorf("invalid computation '%s' on line %d", p.comp, p.lineNo)
	}
	dest, err := destBits(p.dest, p.lineNo)
	if err != nil {
		return 0, err
	}
	jump, ok := jumpCodes[p.jump]
	if !ok {
		return 0, fmt.Errorf("invalid jump '%s' on line %d", p.jump, p.lineNo)
	}
	return cInstructionPrefix | comp<<6 | dest<<3 | jump, nil
}

// destBits accepts any ordering of A, D and M, each at most once.
func destBits(dest string, lineNo int) (uint16, error) {
	var bits uint16
	for _, r := range dest {
		var bit uint16
		switch r {
		case 'A':
			bit = 0b100
		case 'D':
			bit = 0b010
		case 'M':
			bit = 0b001
		default:
			return 0, fmt.Errorf("invalid destination '%s' on line %d", dest, lineNo)
		}
		if bits&bit != 0 {
			return 0, fmt.Errorf("invalid destination '%s' on line %d", dest, lineNo)
		}
		bits |= bit
	}
	return bits, nil
}

func parseLine(raw string, lineNo int) (parsedLine, error) {
	p := parsedLine{lineNo: lineNo}

	line := stripWhitespace(stripComments(raw))
	if line == "" {
		return p, nil
	}

	switch line[0] {
	case '(':
		if !strings.HasSuffix(line, ")") {
			return p, fmt.Errorf("invalid label on line %d", lineNo)
		}
		label := line[1 : len(line)-1]
		if !isSymbol(label) {
			return p, fmt.Errorf("invalid label '%s' on line %d", label, lineNo)
		}
		p.label = label
		return p, nil

	case '@':
		p.isA = true
		operand := line[1:]
		if operand == "" {
			return p, fmt.Errorf("missing address on line %d", lineNo)
		}
		if isDigit(operand[0]) {
			value, err := strconv.ParseUint(operand, 10, 16)
			if err != nil || value > 32767 {
				return p, fmt.Errorf("address out of range on line %d: %s", lineNo, operand)
			}
			p.value = uint16(value)
			return p, nil
		}
		if !isSymbol(operand) {
			return p, fmt.Errorf("invalid symbol '%s' on line %d", operand, lineNo)
		}
		p.symbol = operand
		return p, nil
	}

	rest := line
	if eq := strings.IndexByte(rest, '='); eq >= 0 {
		p.dest = rest[:eq]
		rest = rest[eq+1:]
		if p.dest == "" {
			return p, fmt.Errorf("empty destination on line %d", lineNo)
		}
	}
	if semi := strings.IndexByte(rest, ';'); semi >= 0 {
		p.jump = rest[semi+1:]
		rest = rest[:semi]
		if p.jump == "" {
			return p, fmt.Errorf("empty jump on line %d", lineNo)
		}
	}
	p.comp = rest
	if p.comp == "" {
		return p, fmt.Errorf("missing computation on line %d", lineNo)
	}
	return p, nil
}

func stripComments(line string) string {
	if i := strings.Index(line, "//"); i >= 0 {
		return line[:i]
	}
	return line
}

func stripWhitespace(line string) string {
	return strings.Join(strings.Fields(line), "")
}

// isSymbol reports whether s is a Hack symbol: letters, digits, '_', '.',
// '$' and ':', not starting with a digit.
func isSymbol(s string) bool {
	if s == "" || isDigit(s[0]) {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', isDigit(c):
		case c == '_', c == '.', c == '$', c == ':':
		default:
			return false
		}
	}
	return true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
