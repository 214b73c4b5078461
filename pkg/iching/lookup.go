package iching

import (
	"fmt"

	"github.com/aretw0/hexcast/pkg/domain"
)

// DecomposeTrigrams splits p into its lower (lines 1-3) and upper (lines 4-6) trigrams.
func DecomposeTrigrams(p domain.Pattern) (lower, upper domain.Trigram, err error) {
	if err := p.Validate(); err != nil {
		return lower, upper, err
	}
	return trigramTable[p.Lower()], trigramTable[p.Upper()], nil
}

// ResolveHexagram returns the hexagram identified by p.
func ResolveHexagram(p domain.Pattern) (domain.Hexagram, error) {
	if err := p.Validate(); err != nil {
		return domain.Hexagram{}, err
	}
	n := hexagramsByPattern[p.Value()]
	if n == 0 {
		return domain.Hexagram{}, fmt.Errorf("%w: %s", domain.ErrUnknownPattern, p)
	}
	return hexagramsByNumber[n], nil
}

// Cast assembles six tosses and resolves the complete reading.
func Cast(tosses []domain.Toss) (domain.Reading, error) {
	p, changing, err := Assemble(tosses)
	if err != nil {
		return domain.Reading{}, err
	}
	return Read(p, changing)
}

// Read resolves an already assembled pattern.
func Read(p domain.Pattern, changing domain.ChangingLines) (domain.Reading, error) {
	h, err := ResolveHexagram(p)
	if err != nil {
		return domain.Reading{}, err
	}
	r := domain.Reading{
		Pattern:  p,
		Changing: changing,
		Hexagram: h,
	}
	res, ok, err := Resulting(p, changing)
	if err != nil {
		return domain.Reading{}, err
	}
	if ok {
		r.Resulting = &res
	}
	return r, nil
}
