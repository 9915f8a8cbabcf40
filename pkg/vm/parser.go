package vm

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// sourceLine is a preprocessed, non-empty line and where it came from.
type sourceLine struct {
	no   int
	text string
}

// Parser walks the commands of one source unit. Advance must be called
// before any accessor; accessors read the command Advance produced.
type Parser struct {
	lines   []sourceLine
	next    int
	current Command
	valid   bool
}

// NewParser reads the whole unit from r, dropping comments and blank lines.
func NewParser(r io.Reader) (*Parser, error) {
	p := &Parser{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := strings.TrimSpace(stripComment(scanner.Text()))
		if text == "" {
			continue
		}
		p.lines = append(p.lines, sourceLine{no: lineNo, text: text})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading source: %v", ErrInput, err)
	}
	return p, nil
}

// HasNext reports whether another command remains.
func (p *Parser) HasNext() bool {
	return p.next < len(p.lines)
}

// Advance classifies the next line and makes it the current command.
func (p *Parser) Advance() error {
	p.valid = false
	if !p.HasNext() {
		return fmt.Errorf("%w: advance past end of input", ErrInvalidState)
	}
	line := p.lines[p.next]
	p.next++

	cmd, err := parseLine(line.text, line.no)
	if err != nil {
		return err
	}
	p.current = cmd
	p.valid = true
	return nil
}

// Command returns the current command.
func (p *Parser) Command() (Command, error) {
	if !p.valid {
		return Command{}, fmt.Errorf("%w: no current command", ErrInvalidState)
	}
	return p.current, nil
}

// Kind returns the kind of the current command.
func (p *Parser) Kind() (Kind, error) {
	cmd, err := p.Command()
	if err != nil {
		return 0, err
	}
	return cmd.Kind, nil
}

// Arg1 returns the symbolic operand. It is not available for return.
func (p *Parser) Arg1() (string, error) {
	cmd, err := p.Command()
	if err != nil {
		return "", err
	}
	if !cmd.Kind.HasArg1() {
		return "", fmt.Errorf("%w: %s has no first operand", ErrInvalidState, cmd.Kind)
	}
	return cmd.Arg1, nil
}

// Arg2 returns the numeric operand of push, pop, function and call.
func (p *Parser) Arg2() (int, error) {
	cmd, err := p.Command()
	if err != nil {
		return 0, err
	}
	if !cmd.Kind.HasArg2() {
		return 0, fmt.Errorf("%w: %s has no second operand", ErrInvalidState, cmd.Kind)
	}
	return cmd.Arg2, nil
}

// parseLine classifies one preprocessed line.
func parseLine(text string, lineNo int) (Command, error) {
	fields := strings.Fields(text)
	if len(fields) > 3 {
		return Command{}, fmt.Errorf("%w: too many tokens on line %d: %q", ErrMalformedCommand, lineNo, text)
	}

	keyword := fields[0]
	if ArithmeticOps[keyword] {
		if len(fields) != 1 {
			return Command{}, fmt.Errorf("%w: %s takes no operands on line %d", ErrMalformedCommand, keyword, lineNo)
		}
		return Command{Kind: Arithmetic, Arg1: keyword, Line: lineNo}, nil
	}

	kind, ok := keywordKinds[keyword]
	if !ok {
		return Command{}, fmt.Errorf("%w %q on line %d", ErrUnknownCommand, keyword, lineNo)
	}

	if kind == Return {
		if len(fields) != 1 {
			return Command{}, fmt.Errorf("%w: return takes no operands on line %d", ErrMalformedCommand, lineNo)
		}
		return Command{Kind: Return, Line: lineNo}, nil
	}

	if len(fields) < 2 {
		return Command{}, fmt.Errorf("%w: %s expects an operand on line %d", ErrMalformedCommand, keyword, lineNo)
	}
	cmd := Command{Kind: kind, Arg1: fields[1], Line: lineNo}

	if !kind.HasArg2() {
		if len(fields) != 2 {
			return Command{}, fmt.Errorf("%w: %s expects 1 operand on line %d", ErrMalformedCommand, keyword, lineNo)
		}
		return cmd, nil
	}

	if len(fields) != 3 {
		return Command{}, fmt.Errorf("%w: %s expects 2 operands on line %d", ErrMalformedCommand, keyword, lineNo)
	}
	n, err := strconv.Atoi(fields[2])
	if err != nil || n < 0 {
		return Command{}, fmt.Errorf("%w: invalid index %q on line %d", ErrMalformedCommand, fields[2], lineNo)
	}
	cmd.Arg2 = n
	return cmd, nil
}

func stripComment(line string) string {
	if i := strings.Index(line, "//"); i >= 0 {
		return line[:i]
	}
	return line
}
