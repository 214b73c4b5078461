package iching

import (
	"fmt"

	"github.com/aretw0/hexcast/pkg/domain"
)

type hexagramEntry struct {
	number int
	name   string
	title  string
	lower  uint8
	upper  uint8
}

// hexagramTable lists the 64 hexagrams in King Wen order with their
// lower and upper trigram values.
var hexagramTable = [64]hexagramEntry{
	{1, "Ch'ien", "The Creative", heaven, heaven},
	{2, "K'un", "The Receptive", earth, earth},
	{3, "Chun", "Difficulty at the Beginning", thunder, water},
	{4, "Mêng", "Youthful Folly", water, mountain},
	{5, "Hsü", "Waiting", heaven, water},
	{6, "Sung", "Conflict", water, heaven},
	{7, "Shih", "The Army", water, earth},
	{8, "Pi", "Holding Together", earth, water},
	{9, "Hsiao Ch'u", "The Taming Power of the Small", heaven, wind},
	{10, "Lü", "Treading", lake, heaven},
	{11, "T'ai", "Peace", heaven, earth},
	{12, "P'i", "Standstill", earth, heaven},
	{13, "T'ung Jên", "Fellowship with Men", fire, heaven},
	{14, "Ta Yu", "Possession in Great Measure", heaven, fire},
	{15, "Ch'ien", "Modesty", mountain, earth},
	{16, "Yü", "Enthusiasm", earth, thunder},
	{17, "Sui", "Following", thunder, lake},
	{18, "Ku", "Work on What Has Been Spoiled", wind, mountain},
	{19, "Lin", "Approach", lake, earth},
	{20, "Kuan", "Contemplation", earth, wind},
	{21, "Shih Ho", "Biting Through", thunder, fire},
	{22, "Pi", "Grace", fire, mountain},
	{23, "Po", "Splitting Apart", earth, mountain},
	{24, "Fu", "Return", thunder, earth},
	{25, "Wu Wang", "Innocence", thunder, heaven},
	{26, "Ta Ch'u", "The Taming Power of the Great", heaven, mountain},
	{27, "I", "The Corners of the Mouth", thunder, mountain},
	{28, "Ta Kuo", "Preponderance of the Great", wind, lake},
	{29, "K'an", "The Abysmal", water, water},
	{30, "Li", "The Clinging", fire, fire},
	{31, "Hsien", "Influence", mountain, lake},
	{32, "Hêng", "Duration", wind, thunder},
	{33, "Tun", "Retreat", mountain, heaven},
	{34, "Ta Chuang", "The Power of the Great", heaven, thunder},
	{35, "Chin", "Progress", earth, fire},
	{36, "Ming I", "Darkening of the Light", fire, earth},
	{37, "Chia Jên", "The Family", fire, wind},
	{38, "K'uei", "Opposition", lake, fire},
	{39, "Chien", "Obstruction", mountain, water},
	{40, "Hsieh", "Deliverance", water, thunder},
	{41, "Sun", "Decrease", lake, mountain},
	{42, "I", "Increase", thunder, wind},
	{43, "Kuai", "Break-through", heaven, lake},
	{44, "Kou", "Coming to Meet", wind, heaven},
	{45, "Ts'ui", "Gathering Together", earth, lake},
	{46, "Shêng", "Pushing Upward", wind, earth},
	{47, "K'un", "Oppression", water, lake},
	{48, "Ching", "The Well", wind, water},
	{49, "Ko", "Revolution", fire, lake},
	{50, "Ting", "The Caldron", wind, fire},
	{51, "Chên", "The Arousing", thunder, thunder},
	{52, "Kên", "Keeping Still", mountain, mountain},
	{53, "Chien", "Development", mountain, wind},
	{54, "Kuei Mei", "The Marrying Maiden", lake, thunder},
	{55, "Fêng", "Abundance", fire, thunder},
	{56, "Lü", "The Wanderer", mountain, fire},
	{57, "Sun", "The Gentle", wind, wind},
	{58, "Tui", "The Joyous", lake, lake},
	{59, "Huan", "Dispersion", water, wind},
	{60, "Chieh", "Limitation", lake, water},
	{61, "Chung Fu", "Inner Truth", lake, wind},
	{62, "Hsiao Kuo", "Preponderance of the Small", mountain, thunder},
	{63, "Chi Chi", "After Completion", fire, water},
	{64, "Wei Chi", "Before Completion", water, fire},
}

var (
	hexagramsByNumber  [65]domain.Hexagram
	hexagramsByPattern [64]int // pattern value -> King Wen number, 0 when unset
)

func init() {
	for _, e := range hexagramTable {
		p := domain.PatternFromTrigrams(e.lower, e.upper)
		v := p.Value()
		if hexagramsByPattern[v] != 0 {
			panic(fmt.Sprintf("iching: pattern %s assigned to both %d and %d", p, hexagramsByPattern[v], e.number))
		}
		if hexagramsByNumber[e.number].Number != 0 {
			panic(fmt.Sprintf("iching: hexagram %d declared twice", e.number))
		}
		hexagramsByPattern[v] = e.number
		hexagramsByNumber[e.number] = domain.Hexagram{
			Number:  e.number,
			Name:    e.name,
			Title:   e.title,
			Pattern: p,
			Lower:   trigramTable[e.lower],
			Upper:   trigramTable[e.upper],
		}
	}
}

// Hexagrams returns a copy of the table ordered by King Wen number.
func Hexagrams() []domain.Hexagram {
	out := make([]domain.Hexagram, 0, 64)
	for n := 1; n <= 64; n++ {
		out = append(out, hexagramsByNumber[n])
	}
	return out
}

// HexagramByNumber returns the hexagram with King Wen number n.
func HexagramByNumber(n int) (domain.Hexagram, error) {
	if n < 1 || n > 64 {
		return domain.Hexagram{}, domain.NewInvalidInput("hexagram", n, "must be between 1 and 64")
	}
	return hexagramsByNumber[n], nil
}
