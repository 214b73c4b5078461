package iching

import (
	"fmt"

	"github.com/aretw0/hexcast/pkg/domain"
)

// Assembler accumulates the six tosses of a cast, bottom line first.
// The zero value is ready to use.
type Assembler struct {
	tosses []domain.Toss
}

// Add appends the next toss and reports whether the cast is now complete.
func (a *Assembler) Add(t domain.Toss) (bool, error) {
	if len(a.tosses) >= domain.NumberOfTosses {
		return true, domain.ErrCastComplete
	}
	if !t.Valid() {
		return false, domain.NewInvalidInput("toss", t, "coin draws must be 2 or 3")
	}
	a.tosses = append(a.tosses, t)
	return a.Complete(), nil
}

// Len returns the number of tosses recorded so far.
func (a *Assembler) Len() int {
	return len(a.tosses)
}

// Complete reports whether all six tosses are present.
func (a *Assembler) Complete() bool {
	return len(a.tosses) == domain.NumberOfTosses
}

// Tosses returns a copy of the recorded tosses.
func (a *Assembler) Tosses() []domain.Toss {
	return append([]domain.Toss(nil), a.tosses...)
}

// Pattern returns the assembled pattern and changing lines.
func (a *Assembler) Pattern() (domain.Pattern, domain.ChangingLines, error) {
	return Assemble(a.tosses)
}

// Reading resolves the full cast.
func (a *Assembler) Reading() (domain.Reading, error) {
	return Cast(a.tosses)
}

// Reset discards every recorded toss.
func (a *Assembler) Reset() {
	a.tosses = nil
}

// Assemble concatenates the bits of six tosses in position order.
func Assemble(tosses []domain.Toss) (domain.Pattern, domain.ChangingLines, error) {
	var (
		p domain.Pattern
		c domain.ChangingLines
	)
	if len(tosses) < domain.NumberOfTosses {
		return p, c, fmt.Errorf("%w: %d of %d tosses", domain.ErrIncompleteCast, len(tosses), domain.NumberOfTosses)
	}
	if len(tosses) > domain.NumberOfTosses {
		return p, c, domain.NewInvalidInput("tosses", len(tosses), fmt.Sprintf("expected exactly %d tosses", domain.NumberOfTosses))
	}
	for i, t := range tosses {
		if !t.Valid() {
			return p, c, domain.NewInvalidInput(fmt.Sprintf("tosses[%d]", i), t, "coin draws must be 2 or 3")
		}
		v := t.Value()
		p[i] = v.Bit()
		c[i] = v.Changing()
	}
	return p, c, nil
}

// Transform flips every changing line of p.
func Transform(p domain.Pattern, changing domain.ChangingLines) domain.Pattern {
	out := p
	for i, ch := range changing {
		if ch {
			out[i] ^= 1
		}
	}
	return out
}

// Resulting resolves the hexagram reached by flipping the changing lines.
// It returns false when no line changes.
func Resulting(p domain.Pattern, changing domain.ChangingLines) (domain.Hexagram, bool, error) {
	if !changing.Any() {
		return domain.Hexagram{}, false, nil
	}
	h, err := ResolveHexagram(Transform(p, changing))
	if err != nil {
		return domain.Hexagram{}, false, err
	}
	return h, true, nil
}
