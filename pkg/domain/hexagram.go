package domain

// Trigram is one of the eight 3-line figures.
type Trigram struct {
	// Value is the 3-bit pattern, bit 0 being the bottom line.
	Value     uint8  `json:"value" yaml:"value"`
	Name      string `json:"name" yaml:"name"`   // Wade-Giles romanization, e.g. "Ch'ien"
	Title     string `json:"title" yaml:"title"` // e.g. "The Creative"
	Image     string `json:"image" yaml:"image"` // e.g. "Heaven"
	Attribute string `json:"attribute" yaml:"attribute"`
}

// Hexagram is one of the 64 canonical 6-line figures, numbered in King Wen order.
type Hexagram struct {
	Number  int     `json:"number" yaml:"number"`
	Name    string  `json:"name" yaml:"name"`
	Title   string  `json:"title" yaml:"title"`
	Pattern Pattern `json:"pattern" yaml:"pattern"`
	Lower   Trigram `json:"lower" yaml:"lower"`
	Upper   Trigram `json:"upper" yaml:"upper"`
}

// Reading is the complete result of a cast.
type Reading struct {
	Pattern  Pattern       `json:"pattern"`
	Changing ChangingLines `json:"changing"`
	Hexagram Hexagram      `json:"hexagram"`

	// Resulting is the hexagram obtained by flipping every changing line.
	// It is nil when no line changes.
	Resulting *Hexagram `json:"resulting,omitempty"`
}
