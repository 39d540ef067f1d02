package answer

import (
	"unicode/utf8"

	"github.com/samber/mo"
)

// Candidate is one scored answer span found in a paragraph.
type Candidate struct {
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
	StartIndex int     `json:"startIndex"`
	EndIndex   int     `json:"endIndex"`
}

// Within reports whether the span offsets fit inside paragraph.
// Offsets count characters (runes), not bytes.
func (c Candidate) Within(paragraph string) bool {
	return c.StartIndex >= 0 &&
		c.StartIndex <= c.EndIndex &&
		c.EndIndex <= utf8.RuneCountInString(paragraph)
}

// SelectBest returns the candidate with the highest score, or None for an
// empty slice. When several candidates share the maximum score the first one
// scanned wins, but callers must not rely on which tied candidate is returned.
func SelectBest(candidates []Candidate) mo.Option[Candidate] {
	if len(candidates) == 0 {
		return mo.None[Candidate]()
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Score > best.Score {
			best = c
		}
	}
	return mo.Some(best)
}

// Clone copies the slice so callers can't mutate shared state.
func Clone(candidates []Candidate) []Candidate {
	if candidates == nil {
		return nil
	}
	out := make([]Candidate, len(candidates))
	copy(out, candidates)
	return out
}

// RuneSpan converts byte offsets within s into rune offsets.
func RuneSpan(s string, startByte, endByte int) (int, int) {
	if startByte < 0 {
		startByte = 0
	}
	if endByte > len(s) {
		endByte = len(s)
	}
	if startByte > endByte {
		startByte = endByte
	}
	start := utf8.RuneCountInString(s[:startByte])
	return start, start + utf8.RuneCountInString(s[startByte:endByte])
}
