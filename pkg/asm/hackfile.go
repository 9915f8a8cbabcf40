package asm

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatHack renders words in the .hack text format: one 16-character
// binary word per line.
func FormatHack(words []uint16) string {
	var sb strings.Builder
	sb.Grow(len(words) * 17)
	for _, w := range words {
		fmt.Fprintf(&sb, "%016b\n", w)
	}
	return sb.String()
}

// ParseHack reads the .hack text format back into words. Blank lines are
// ignored.
func ParseHack(text string) ([]uint16, error) {
	var words []uint16
	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if len(line) != 16 {
			return nil, fmt.Errorf("expected 16 binary digits on line %d, got %d", i+1, len(line))
		}
		w, err := strconv.ParseUint(line, 2, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid binary word on line %d: %s", i+1, line)
		}
		words = append(words, uint16(w))
	}
	return words, nil
}
