package iching

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"

	"github.com/aretw0/hexcast/pkg/domain"
)

// RandomSource supplies coin draws. Implementations must choose uniformly
// between domain.Tails and domain.Heads.
type RandomSource interface {
	Draw() domain.CoinDraw
}

type globalSource struct{}

func (globalSource) Draw() domain.CoinDraw {
	if rand.IntN(2) == 1 {
		return domain.Heads
	}
	return domain.Tails
}

// NewRandomSource returns a source backed by the runtime's global generator.
// It is safe for concurrent use.
func NewRandomSource() RandomSource {
	return globalSource{}
}

type seededSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (s *seededSource) Draw() domain.CoinDraw {
	s.mu.Lock()
	n := s.rng.IntN(2)
	s.mu.Unlock()
	if n == 1 {
		return domain.Heads
	}
	return domain.Tails
}

// NewSeededSource returns a deterministic source. Draws are serialized, so
// the sequence is only reproducible from a single goroutine.
func NewSeededSource(seed uint64) RandomSource {
	return &seededSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Resolver turns coin draws into tosses.
type Resolver struct {
	src RandomSource
}

// NewResolver creates a resolver. A nil source falls back to NewRandomSource.
func NewResolver(src RandomSource) *Resolver {
	if src == nil {
		src = NewRandomSource()
	}
	return &Resolver{src: src}
}

// Toss draws three fresh coins.
func (r *Resolver) Toss() domain.Toss {
	return domain.Toss{r.src.Draw(), r.src.Draw(), r.src.Draw()}
}

// Manual builds a toss from three externally supplied draws.
func (r *Resolver) Manual(draws ...int) (domain.Toss, error) {
	return NewToss(draws...)
}

// NewToss validates three raw draws and returns the toss.
func NewToss(draws ...int) (domain.Toss, error) {
	var t domain.Toss
	if len(draws) != domain.CoinsPerToss {
		return t, domain.NewInvalidInput("draws", len(draws), fmt.Sprintf("expected exactly %d coin draws", domain.CoinsPerToss))
	}
	for i, d := range draws {
		c := domain.CoinDraw(d)
		if !c.Valid() {
			return t, domain.NewInvalidInput(fmt.Sprintf("draws[%d]", i), d, "coin draw must be 2 (tails) or 3 (heads)")
		}
		t[i] = c
	}
	return t, nil
}

// ParseToss parses a manual entry such as "3,2,2", "3 2 2", "HTT" or "h,t,t".
func ParseToss(s string) (domain.Toss, error) {
	s = strings.TrimSpace(s)
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == ';' })
	if len(fields) == 1 && len(fields[0]) == domain.CoinsPerToss {
		// Compact letter form: "HTT".
		fields = strings.Split(fields[0], "")
	}
	draws := make([]int, 0, len(fields))
	for _, f := range fields {
		switch strings.ToUpper(f) {
		case "H":
			draws = append(draws, int(domain.Heads))
		case "T":
			draws = append(draws, int(domain.Tails))
		default:
			v, err := strconv.Atoi(f)
			if err != nil {
				return domain.Toss{}, domain.NewInvalidInput("toss", s, fmt.Sprintf("unrecognized coin %q", f))
			}
			draws = append(draws, v)
		}
	}
	return NewToss(draws...)
}

// TossForValue returns a canonical toss whose sum is v. Useful for
// reconstructing a cast from line values alone.
func TossForValue(v domain.LineValue) (domain.Toss, error) {
	switch v {
	case domain.OldYin:
		return domain.Toss{domain.Tails, domain.Tails, domain.Tails}, nil
	case domain.YoungYang:
		return domain.Toss{domain.Heads, domain.Tails, domain.Tails}, nil
	case domain.YoungYin:
		return domain.Toss{domain.Heads, domain.Heads, domain.Tails}, nil
	case domain.OldYang:
		return domain.Toss{domain.Heads, domain.Heads, domain.Heads}, nil
	}
	return domain.Toss{}, domain.NewInvalidInput("line", int(v), "line value must be between 6 and 9")
}
