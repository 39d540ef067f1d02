// Package presenter is a read-only view over session state.
package presenter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"qna-agents/internal/answer"
	"qna-agents/internal/session"
)

// Summary is what a client shows next to the input form.
type Summary struct {
	Status    session.Status    `json:"status"`
	Paragraph string            `json:"paragraph"`
	Question  string            `json:"question"`
	Best      *answer.Candidate `json:"best,omitempty"`
	Count     int               `json:"count"`
	// CanRevealAll is set when there is more than one candidate to browse.
	CanRevealAll bool   `json:"can_reveal_all"`
	CanPredict   bool   `json:"can_predict"`
	Notice       string `json:"notice,omitempty"`
}

// Summarize builds the summary view. Results are hidden while a call runs.
func Summarize(s session.State) Summary {
	sum := Summary{
		Status:     s.Status,
		Paragraph:  s.Paragraph,
		Question:   s.Question,
		Count:      len(s.Candidates),
		CanPredict: s.CanPredict(),
		Notice:     s.Notice,
	}
	if s.Status == session.StatusRunning {
		return sum
	}
	sum.Best = s.Best.ToPointer()
	sum.CanRevealAll = len(s.Candidates) > 1
	return sum
}

// RevealAll returns every candidate in the order the model returned them.
// ok is false when there is nothing beyond the best answer to show.
func RevealAll(s session.State) (cands []answer.Candidate, ok bool) {
	if s.Status == session.StatusRunning || len(s.Candidates) <= 1 {
		return nil, false
	}
	return answer.Clone(s.Candidates), true
}

// Title labels the full candidate list.
func Title(n int) string {
	return fmt.Sprintf("%d Predicted Answers", n)
}

// WriteSummary prints a plain-text summary.
func WriteSummary(w io.Writer, sum Summary) error {
	var b strings.Builder
	switch {
	case sum.Status == session.StatusRunning:
		b.WriteString("Predicting...\n")
	case sum.Best != nil:
		fmt.Fprintf(&b, "Answer: %s\n", sum.Best.Text)
		fmt.Fprintf(&b, "Score: %g\n", sum.Best.Score)
		fmt.Fprintf(&b, "Start Index: %d\n", sum.Best.StartIndex)
		fmt.Fprintf(&b, "End Index: %d\n", sum.Best.EndIndex)
	case sum.Status == session.StatusSucceeded:
		b.WriteString("No answer found.\n")
	}
	if sum.Notice != "" && sum.Status == session.StatusFailed {
		fmt.Fprintf(&b, "Error: %s\n", sum.Notice)
	}
	if sum.CanRevealAll {
		fmt.Fprintf(&b, "%d answers available (use --all to view)\n", sum.Count)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteAll prints the titled candidate list as indented JSON.
func WriteAll(w io.Writer, cands []answer.Candidate) error {
	data, err := json.MarshalIndent(cands, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n%s\n", Title(len(cands)), data)
	return err
}
