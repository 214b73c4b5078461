package domain

// Section holds a primary text and its commentary.
type Section struct {
	Text     string `json:"text" yaml:"text"`
	Comments string `json:"comments" yaml:"comments"`
}

// LineText is the text of a single line; it shares the Section shape.
type LineText = Section

// LocalizedHexagramText is the reference text of one hexagram in one locale.
type LocalizedHexagramText struct {
	Number   int     `json:"number" yaml:"-"`
	Locale   string  `json:"locale" yaml:"-"`
	Name     string  `json:"name" yaml:"name"`
	Symbolic string  `json:"symbolic" yaml:"symbolic"`
	Judgment Section `json:"judgment" yaml:"judgment"`
	Image    Section `json:"image" yaml:"image"`

	// Lines is keyed by line index 1..6 (bottom to top).
	Lines map[int]LineText `json:"lines" yaml:"lines"`
}

// Line returns the text of line i (1..6).
func (t LocalizedHexagramText) Line(i int) (LineText, bool) {
	l, ok := t.Lines[i]
	return l, ok
}
