package domain

import (
	"fmt"
	"strings"
)

// Pattern is the six lines of a hexagram, index 0 being the bottom line.
// Each element is 0 (yin) or 1 (yang).
type Pattern [NumberOfTosses]uint8

// ChangingLines flags which lines of a Pattern are changing.
type ChangingLines [NumberOfTosses]bool

// ParsePattern parses a bottom-first string of six '0'/'1' characters.
func ParsePattern(s string) (Pattern, error) {
	var p Pattern
	s = strings.TrimSpace(s)
	if len(s) != NumberOfTosses {
		return p, fmt.Errorf("%w: expected %d lines, got %d", ErrMalformedPattern, NumberOfTosses, len(s))
	}
	for i, r := range s {
		switch r {
		case '0':
			p[i] = 0
		case '1':
			p[i] = 1
		default:
			return p, fmt.Errorf("%w: invalid line %q at position %d", ErrMalformedPattern, r, i)
		}
	}
	return p, nil
}

// Validate checks that every element is a single bit.
func (p Pattern) Validate() error {
	for i, b := range p {
		if b > 1 {
			return fmt.Errorf("%w: line %d has value %d", ErrMalformedPattern, i, b)
		}
	}
	return nil
}

// Lower returns the 3-bit value of lines 0..2.
func (p Pattern) Lower() uint8 {
	return p[0] | p[1]<<1 | p[2]<<2
}

// Upper returns the 3-bit value of lines 3..5.
func (p Pattern) Upper() uint8 {
	return p[3] | p[4]<<1 | p[5]<<2
}

// Value returns the 6-bit value of the pattern, bit 0 being the bottom line.
func (p Pattern) Value() uint8 {
	return p.Lower() | p.Upper()<<3
}

// PatternFromTrigrams joins a lower and upper 3-bit value.
func PatternFromTrigrams(lower, upper uint8) Pattern {
	var p Pattern
	for i := 0; i < 3; i++ {
		p[i] = (lower >> i) & 1
		p[i+3] = (upper >> i) & 1
	}
	return p
}

// String renders the pattern bottom-first, e.g. "101110".
func (p Pattern) String() string {
	var b strings.Builder
	for _, bit := range p {
		if bit == 1 {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// MarshalText encodes the pattern as its bottom-first string.
func (p Pattern) MarshalText() ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return []byte(p.String()), nil
}

// UnmarshalText decodes a bottom-first string.
func (p *Pattern) UnmarshalText(text []byte) error {
	parsed, err := ParsePattern(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Any reports whether at least one line is changing.
func (c ChangingLines) Any() bool {
	for _, v := range c {
		if v {
			return true
		}
	}
	return false
}

// Positions returns the 1-based positions of the changing lines.
func (c ChangingLines) Positions() []int {
	var out []int
	for i, v := range c {
		if v {
			out = append(out, i+1)
		}
	}
	return out
}
