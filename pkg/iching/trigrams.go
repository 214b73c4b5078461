package iching

import "github.com/aretw0/hexcast/pkg/domain"

// Trigram values, bit 0 being the bottom line.
const (
	earth    uint8 = 0b000
	thunder  uint8 = 0b001
	water    uint8 = 0b010
	lake     uint8 = 0b011
	mountain uint8 = 0b100
	fire     uint8 = 0b101
	wind     uint8 = 0b110
	heaven   uint8 = 0b111
)

// trigramTable is indexed by trigram value.
var trigramTable = [8]domain.Trigram{
	earth:    {Value: earth, Name: "K'un", Title: "The Receptive", Image: "Earth", Attribute: "devoted, yielding"},
	thunder:  {Value: thunder, Name: "Chên", Title: "The Arousing", Image: "Thunder", Attribute: "inciting movement"},
	water:    {Value: water, Name: "K'an", Title: "The Abysmal", Image: "Water", Attribute: "dangerous"},
	lake:     {Value: lake, Name: "Tui", Title: "The Joyous", Image: "Lake", Attribute: "joyful"},
	mountain: {Value: mountain, Name: "Kên", Title: "Keeping Still", Image: "Mountain", Attribute: "resting"},
	fire:     {Value: fire, Name: "Li", Title: "The Clinging", Image: "Fire", Attribute: "light-giving"},
	wind:     {Value: wind, Name: "Sun", Title: "The Gentle", Image: "Wind", Attribute: "penetrating"},
	heaven:   {Value: heaven, Name: "Ch'ien", Title: "The Creative", Image: "Heaven", Attribute: "strong"},
}

// Trigrams returns a copy of the eight trigrams ordered by value.
func Trigrams() []domain.Trigram {
	out := make([]domain.Trigram, len(trigramTable))
	copy(out, trigramTable[:])
	return out
}

// TrigramByValue returns the trigram for a 3-bit value.
func TrigramByValue(v uint8) (domain.Trigram, error) {
	if v > 7 {
		return domain.Trigram{}, domain.NewInvalidInput("trigram", v, "must be a 3-bit value")
	}
	return trigramTable[v], nil
}
