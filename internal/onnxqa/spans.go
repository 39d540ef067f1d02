package onnxqa

import "sort"

// encoding is the tokenizer output for one (question, window) pair.
type encoding struct {
	IDs           []int64
	TypeIDs       []int64
	AttentionMask []int64
	// Offsets are byte ranges into the window text for context tokens.
	Offsets [][2]int
	// Context marks tokens that belong to the window, not the question or
	// special tokens.
	Context []bool
}

// truncate caps the encoding at n tokens. When context tokens are dropped it
// reports the end byte of the last context token kept, or -1 if none was.
func (e *encoding) truncate(n int) (keptEnd int, dropped bool) {
	if len(e.IDs) <= n || n < 2 {
		return 0, false
	}
	// keep the trailing separator
	last := len(e.IDs) - 1
	cut := func(s []int64) []int64 { return append(s[:n-1:n-1], s[last]) }
	e.IDs = cut(e.IDs)
	e.TypeIDs = cut(e.TypeIDs)
	e.AttentionMask = cut(e.AttentionMask)
	e.Offsets = append(e.Offsets[:n-1:n-1], [2]int{})
	e.Context = append(e.Context[:n-1:n-1], false)

	keptEnd = -1
	for i, ctx := range e.Context {
		if ctx && e.Offsets[i][1] > keptEnd {
			keptEnd = e.Offsets[i][1]
		}
	}
	return keptEnd, true
}

type tokenSpan struct {
	start, end int
	score      float64
}

// bestSpans scores every context span no longer than maxLen tokens by
// start logit + end logit and returns the top k, best first.
func bestSpans(startLogits, endLogits []float32, context []bool, maxLen, k int) []tokenSpan {
	n := len(context)
	if len(startLogits) < n {
		n = len(startLogits)
	}
	if len(endLogits) < n {
		n = len(endLogits)
	}
	var spans []tokenSpan
	for s := 0; s < n; s++ {
		if !context[s] {
			continue
		}
		for e := s; e < n && e-s < maxLen; e++ {
			if !context[e] {
				break
			}
			spans = append(spans, tokenSpan{start: s, end: e, score: float64(startLogits[s]) + float64(endLogits[e])})
		}
	}
	sort.SliceStable(spans, func(i, j int) bool { return spans[i].score > spans[j].score })
	if len(spans) > k {
		spans = spans[:k]
	}
	return spans
}
