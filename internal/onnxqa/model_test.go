package onnxqa

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qna-agents/internal/inference"
)

// wordEncoder fakes a tokenizer: [CLS] question words [SEP] window words [SEP].
type wordEncoder struct{}

func (wordEncoder) Encode(question, window string) (*encoding, error) {
	enc := &encoding{}
	add := func(id, typ int64, off [2]int, ctx bool) {
		enc.IDs = append(enc.IDs, id)
		enc.TypeIDs = append(enc.TypeIDs, typ)
		enc.AttentionMask = append(enc.AttentionMask, 1)
		enc.Offsets = append(enc.Offsets, off)
		enc.Context = append(enc.Context, ctx)
	}
	add(101, 0, [2]int{}, false)
	for range strings.Fields(question) {
		add(1, 0, [2]int{}, false)
	}
	add(102, 0, [2]int{}, false)
	pos := 0
	for _, w := range strings.Fields(window) {
		i := strings.Index(window[pos:], w) + pos
		add(2, 1, [2]int{i, i + len(w)}, true)
		pos = i + len(w)
	}
	add(102, 1, [2]int{}, false)
	return enc, nil
}

// wordRunner gives high start logits to words in starts and high end logits
// to words in ends, keyed by window word text.
type wordRunner struct {
	window func(*encoding) []string
	starts map[string]float32
	ends   map[string]float32
	err    error
	closed bool
}

func (r *wordRunner) Run(enc *encoding) ([]float32, []float32, error) {
	if r.err != nil {
		return nil, nil, r.err
	}
	words := r.window(enc)
	start := make([]float32, len(enc.IDs))
	end := make([]float32, len(enc.IDs))
	for i := range enc.IDs {
		start[i], end[i] = -10, -10
		if i < len(words) && words[i] != "" {
			if v, ok := r.starts[words[i]]; ok {
				start[i] = v
			}
			if v, ok := r.ends[words[i]]; ok {
				end[i] = v
			}
		}
	}
	return start, end, nil
}

func (r *wordRunner) Close() error {
	r.closed = true
	return nil
}

func tokensOf(paragraph string) func(*encoding) []string {
	return func(enc *encoding) []string {
		out := make([]string, len(enc.IDs))
		for i, ctx := range enc.Context {
			if ctx {
				out[i] = "?"
			}
		}
		return out
	}
}

const paragraph = "Sundar Pichai was appointed CEO of Google, replacing Larry Page who became the CEO of Alphabet."

func newTestModel(windowWords int, run runner) *Model {
	return newModel(Config{ModelPath: "/models/bert-squad.onnx", WindowWords: windowWords, WindowOverlap: 2, MaxAnswers: 3}, wordEncoder{}, run)
}

func TestFindAnswersRanksSpans(t *testing.T) {
	run := &wordRunner{
		starts: map[string]float32{"Sundar": 5, "Larry": 3},
		ends:   map[string]float32{"Pichai": 4, "Page": 2},
	}
	m := newTestModel(50, run)
	run.window = func(enc *encoding) []string {
		words := make([]string, len(enc.IDs))
		for i, ctx := range enc.Context {
			if ctx {
				words[i] = paragraph[enc.Offsets[i][0]:enc.Offsets[i][1]]
			}
		}
		return words
	}

	got, err := m.FindAnswers(context.Background(), "Who is the CEO of Google?", paragraph)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "Sundar Pichai", got[0].Text)
	assert.Equal(t, 0, got[0].StartIndex)
	assert.Equal(t, 13, got[0].EndIndex)
	assert.InDelta(t, 9.0, got[0].Score, 1e-6)
	for i, c := range got {
		assert.True(t, c.Within(paragraph), "candidate %d out of bounds", i)
		if i > 0 {
			assert.GreaterOrEqual(t, got[i-1].Score, c.Score)
		}
	}
	assert.Equal(t, "onnx:bert-squad", m.ID())
}

func TestFindAnswersAcrossWindows(t *testing.T) {
	// window offsets are shifted back onto the paragraph
	long := "alpha beta gamma delta epsilon zeta eta theta"
	run := &wordRunner{
		starts: map[string]float32{"theta": 6},
		ends:   map[string]float32{"theta": 6},
	}
	m := newModel(Config{ModelPath: "m.onnx", WindowWords: 3, WindowOverlap: 1, MaxAnswers: 1}, wordEncoder{}, run)
	run.window = func(enc *encoding) []string {
		// the fake encoder offsets are relative to the window, so find the
		// window by matching token count against the known layout
		words := make([]string, len(enc.IDs))
		var ctxIdx []int
		for i, ctx := range enc.Context {
			if ctx {
				ctxIdx = append(ctxIdx, i)
			}
		}
		last := ctxIdx[len(ctxIdx)-1]
		if enc.Offsets[last][1]-enc.Offsets[last][0] == len("theta") && len(ctxIdx) == 2 {
			words[last] = "theta"
		}
		return words
	}

	got, err := m.FindAnswers(context.Background(), "Which letter?", long)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "theta", got[0].Text)
	assert.Equal(t, strings.Index(long, "theta"), got[0].StartIndex)
	assert.Equal(t, len(long), got[0].EndIndex)
}

func TestFindAnswersRunnerError(t *testing.T) {
	m := newTestModel(50, &wordRunner{err: errors.New("invalid input shape"), window: tokensOf(paragraph)})
	_, err := m.FindAnswers(context.Background(), "q", paragraph)
	assert.ErrorContains(t, err, "invalid input shape")
}

func TestFindAnswersStopsOnCancelledContext(t *testing.T) {
	m := newTestModel(50, &wordRunner{window: tokensOf(paragraph)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.FindAnswers(ctx, "q", paragraph)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClose(t *testing.T) {
	run := &wordRunner{window: tokensOf(paragraph)}
	m := newTestModel(50, run)
	require.NoError(t, m.Close())
	assert.True(t, run.closed)
	require.NoError(t, m.Close())

	_, err := m.FindAnswers(context.Background(), "q", paragraph)
	assert.ErrorContains(t, err, "model is closed")
}

func TestLoaderReportsMissingFiles(t *testing.T) {
	_, err := NewLoader(Config{}).Load(context.Background())
	var loadErr *inference.ModelLoadError
	require.ErrorAs(t, err, &loadErr)

	dir := t.TempDir()
	model := filepath.Join(dir, "model.onnx")
	require.NoError(t, os.WriteFile(model, []byte("onnx"), 0o644))
	_, err = NewLoader(Config{ModelPath: model, TokenizerPath: filepath.Join(dir, "tokenizer.json")}).Load(context.Background())
	require.ErrorAs(t, err, &loadErr)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// windowEncoder remembers the window text of the last Encode call so the
// runner can map context offsets back to words.
type windowEncoder struct {
	wordEncoder
	last string
}

func (e *windowEncoder) Encode(question, window string) (*encoding, error) {
	e.last = window
	return e.wordEncoder.Encode(question, window)
}

func TestFindAnswersCoversWordsCutByMaxSeqLen(t *testing.T) {
	words := make([]string, 30)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	words[19] = "target"
	long := strings.Join(words, " ")

	enc := &windowEncoder{}
	scored := map[string]bool{}
	run := &wordRunner{
		starts: map[string]float32{"target": 8},
		ends:   map[string]float32{"target": 8},
	}
	run.window = func(e *encoding) []string {
		out := make([]string, len(e.IDs))
		for i, ctx := range e.Context {
			if ctx {
				out[i] = enc.last[e.Offsets[i][0]:e.Offsets[i][1]]
				scored[out[i]] = true
			}
		}
		return out
	}
	// 1 + 3 question + 1 + 10 window + 1 tokens do not fit in 10
	m := newModel(Config{ModelPath: "m.onnx", MaxSeqLen: 10, WindowWords: 10, WindowOverlap: 2, MaxAnswers: 5}, enc, run)

	got, err := m.FindAnswers(context.Background(), "where is it", long)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "target", got[0].Text)
	assert.Equal(t, strings.Index(long, "target"), got[0].StartIndex)
	for _, w := range words {
		assert.True(t, scored[w], "word %q was never scored", w)
	}
}

func TestFindAnswersRejectsQuestionFillingMaxSeqLen(t *testing.T) {
	run := &wordRunner{window: tokensOf(paragraph)}
	m := newModel(Config{ModelPath: "m.onnx", MaxSeqLen: 6}, wordEncoder{}, run)

	_, err := m.FindAnswers(context.Background(), "one two three four five six", paragraph)
	assert.ErrorContains(t, err, "no room for the paragraph")
}
