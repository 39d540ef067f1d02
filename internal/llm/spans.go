package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"qna-agents/internal/answer"
)

type span struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

type spanResponse struct {
	Answers []span `json:"answers"`
}

func parseSpans(content string) ([]span, error) {
	var resp spanResponse
	if err := json.Unmarshal([]byte(stripFences(content)), &resp); err != nil {
		return nil, fmt.Errorf("decode model answer: %w", err)
	}
	return resp.Answers, nil
}

// locateSpans maps model spans onto the paragraph, keeping model order.
// Spans that don't occur in the paragraph are dropped; repeated spans take the
// next occurrence.
func locateSpans(paragraph string, spans []span, max int) []answer.Candidate {
	out := []answer.Candidate{}
	used := map[string]int{}
	for _, s := range spans {
		if len(out) == max {
			break
		}
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		from := used[text]
		idx := strings.Index(paragraph[from:], text)
		if idx < 0 && from > 0 {
			from = 0
			idx = strings.Index(paragraph, text)
		}
		if idx < 0 {
			continue
		}
		startByte := from + idx
		endByte := startByte + len(text)
		used[text] = endByte
		start, end := answer.RuneSpan(paragraph, startByte, endByte)
		out = append(out, answer.Candidate{
			Text:       text,
			Score:      s.Score,
			StartIndex: start,
			EndIndex:   end,
		})
	}
	return out
}
