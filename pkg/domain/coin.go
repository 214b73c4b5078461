package domain

import "fmt"

// CoinDraw is the weighted outcome of a single coin.
type CoinDraw int

const (
	Tails CoinDraw = 2
	Heads CoinDraw = 3
)

// NumberOfTosses is the number of tosses (lines) in a hexagram.
const NumberOfTosses = 6

// CoinsPerToss is the number of coins thrown for each line.
const CoinsPerToss = 3

// Valid reports whether the draw is one of the two legal values.
func (c CoinDraw) Valid() bool {
	return c == Tails || c == Heads
}

// Letter returns "H" for heads and "T" for tails.
func (c CoinDraw) Letter() string {
	if c == Heads {
		return "H"
	}
	return "T"
}

// LineValue is the sum of a toss, in the range [6,9].
type LineValue int

const (
	OldYin    LineValue = 6 // yin, changing
	YoungYang LineValue = 7 // yang, stable
	YoungYin  LineValue = 8 // yin, stable
	OldYang   LineValue = 9 // yang, changing
)

// Valid reports whether v is a possible toss sum.
func (v LineValue) Valid() bool {
	return v >= OldYin && v <= OldYang
}

// Bit returns 1 for yang lines and 0 for yin lines.
func (v LineValue) Bit() uint8 {
	if v == YoungYang || v == OldYang {
		return 1
	}
	return 0
}

// Changing reports whether the line transforms into its opposite.
func (v LineValue) Changing() bool {
	return v == OldYin || v == OldYang
}

// Toss is an ordered triple of coin draws.
type Toss [CoinsPerToss]CoinDraw

// Sum returns the total weight of the three draws.
func (t Toss) Sum() int {
	return int(t[0]) + int(t[1]) + int(t[2])
}

// Value returns the line value of the toss.
func (t Toss) Value() LineValue {
	return LineValue(t.Sum())
}

// Valid reports whether every draw is legal.
func (t Toss) Valid() bool {
	for _, c := range t {
		if !c.Valid() {
			return false
		}
	}
	return true
}

// String renders the toss as heads/tails letters, e.g. "H,T,T".
func (t Toss) String() string {
	return fmt.Sprintf("%s,%s,%s", t[0].Letter(), t[1].Letter(), t[2].Letter())
}

// FlattenTosses returns the raw coin values of tosses in order.
func FlattenTosses(tosses []Toss) []int {
	out := make([]int, 0, len(tosses)*CoinsPerToss)
	for _, t := range tosses {
		for _, c := range t {
			out = append(out, int(c))
		}
	}
	return out
}
