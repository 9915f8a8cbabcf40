package codegen

import (
	"fmt"
	"strconv"

	"hackvm/pkg/vm"
)

// reservedSymbols are the assembler's predefined names. A label or function
// emitted under one of them would redefine it.
var reservedSymbols = func() map[string]bool {
	m := map[string]bool{
		"SP": true, "LCL": true, "ARG": true, "THIS": true, "THAT": true,
		"SCREEN": true, "KBD": true,
	}
	for i := 0; i < 16; i++ {
		m["R"+strconv.Itoa(i)] = true
	}
	return m
}()

// ValidateLabel checks that name can be used as a user label or function
// name: a letter, '_', '.' or ':' followed by letters, digits, '_', '.',
// ':' or '$'. A leading digit would read as a number in an A-instruction
// and a leading '$' is kept for generated labels.
func ValidateLabel(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty label", vm.ErrInvalidLabelFormat)
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case isLetter(c), c == '_', c == '.', c == ':':
		case i > 0 && (isDigit(c) || c == '$'):
		default:
			return fmt.Errorf("%w: %q", vm.ErrInvalidLabelFormat, name)
		}
	}
	return nil
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// checkEmittedName rejects a label or function name that would be emitted
// verbatim as a predefined symbol.
func checkEmittedName(name string) error {
	if reservedSymbols[name] {
		return fmt.Errorf("%w: %q is a predefined symbol", vm.ErrInvalidLabelFormat, name)
	}
	return nil
}

// ValidateNamespace checks that a unit name can prefix static symbols. It
// follows the label rules, so "my-prog" and "1Main" are rejected.
func ValidateNamespace(ns string) error {
	if err := ValidateLabel(ns); err != nil {
		return fmt.Errorf("unit name: %w", err)
	}
	return nil
}
