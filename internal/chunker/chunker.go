package chunker

import "unicode"

// Word is the byte range of one whitespace-separated word, so
// text[w.Start:w.End] is the word itself.
type Word struct{ Start, End int }

// Words returns the byte range of every word in text. Callers slice windows
// out of text with these offsets, which keeps inner whitespace intact.
func Words(text string) []Word {
	var words []Word
	inWord := false
	start := 0
	for i, r := range text {
		space := unicode.IsSpace(r)
		switch {
		case !space && !inWord:
			inWord = true
			start = i
		case space && inWord:
			inWord = false
			words = append(words, Word{start, i})
		}
	}
	if inWord {
		words = append(words, Word{start, len(text)})
	}
	return words
}
