package onnxqa

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	ort "github.com/yalue/onnxruntime_go"

	"qna-agents/internal/answer"
	"qna-agents/internal/chunker"
	"qna-agents/internal/inference"
)

type encoder interface {
	Encode(question, window string) (*encoding, error)
}

type runner interface {
	Run(enc *encoding) (startLogits, endLogits []float32, err error)
	Close() error
}

// Model answers questions with a local ONNX model. Runs are serialized.
type Model struct {
	cfg Config
	id  string
	enc encoder

	mu  sync.Mutex
	run runner
}

// NewLoader returns a Loader that initializes ONNX Runtime, the tokenizer and
// the model session. Missing files are reported before touching the runtime.
func NewLoader(cfg Config) inference.Loader {
	cfg.ApplyDefaults()
	return inference.LoaderFunc(func(ctx context.Context) (inference.Model, error) {
		for _, p := range []string{cfg.ModelPath, cfg.TokenizerPath} {
			if p == "" {
				return nil, &inference.ModelLoadError{Err: errors.New("ONNX_MODEL_PATH and TOKENIZER_PATH are required")}
			}
			if _, err := os.Stat(p); err != nil {
				return nil, &inference.ModelLoadError{Err: err}
			}
		}
		if err := initEnvironment(cfg.LibraryPath); err != nil {
			return nil, &inference.ModelLoadError{Err: fmt.Errorf("init onnxruntime: %w", err)}
		}
		tk, err := newTokenizer(cfg.TokenizerPath)
		if err != nil {
			return nil, &inference.ModelLoadError{Err: err}
		}
		sess, err := newSession(cfg)
		if err != nil {
			return nil, &inference.ModelLoadError{Err: err}
		}
		return newModel(cfg, tk, sess), nil
	})
}

func newModel(cfg Config, enc encoder, run runner) *Model {
	cfg.ApplyDefaults()
	return &Model{
		cfg: cfg,
		id:  "onnx:" + strings.TrimSuffix(filepath.Base(cfg.ModelPath), filepath.Ext(cfg.ModelPath)),
		enc: enc,
		run: run,
	}
}

func (m *Model) ID() string { return m.id }

// FindAnswers runs the model over overlapping word windows of the paragraph
// and merges the spans, best first. A window whose tokens do not fit in
// MaxSeqLen is cut back to the words that fit, and the next window starts
// inside that shorter range, so every word is scored at least once.
func (m *Model) FindAnswers(ctx context.Context, question, paragraph string) ([]answer.Candidate, error) {
	type located struct {
		startByte, endByte int
		score              float64
	}
	var found []located
	words := chunker.Words(paragraph)
	for i, index := 0, 0; i < len(words); index++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		j := min(i+m.cfg.WindowWords, len(words))
		base := words[i].Start
		text := paragraph[base:words[j-1].End]

		enc, err := m.enc.Encode(question, text)
		if err != nil {
			return nil, fmt.Errorf("tokenize window %d: %w", index, err)
		}
		covered := j - i
		if keptEnd, dropped := enc.truncate(m.cfg.MaxSeqLen); dropped {
			covered = 0
			for covered < j-i && words[i+covered].End-base <= keptEnd {
				covered++
			}
			if covered == 0 {
				return nil, fmt.Errorf("question leaves no room for the paragraph within %d tokens", m.cfg.MaxSeqLen)
			}
		}

		startLogits, endLogits, err := m.infer(enc)
		if err != nil {
			return nil, fmt.Errorf("run window %d: %w", index, err)
		}
		for _, s := range bestSpans(startLogits, endLogits, enc.Context, m.cfg.MaxAnswerTokens, m.cfg.MaxAnswers) {
			from, to := enc.Offsets[s.start][0], enc.Offsets[s.end][1]
			if from < 0 || to > len(text) || from >= to {
				continue
			}
			found = append(found, located{startByte: base + from, endByte: base + to, score: s.score})
		}

		if i+covered == len(words) {
			break
		}
		i += covered - min(m.cfg.WindowOverlap, covered/2)
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].score > found[j].score })
	out := []answer.Candidate{}
	seen := map[[2]int]bool{}
	for _, f := range found {
		if len(out) == m.cfg.MaxAnswers {
			break
		}
		key := [2]int{f.startByte, f.endByte}
		if seen[key] || !utf8.ValidString(paragraph[f.startByte:f.endByte]) {
			continue
		}
		seen[key] = true
		start, end := answer.RuneSpan(paragraph, f.startByte, f.endByte)
		out = append(out, answer.Candidate{
			Text:       paragraph[f.startByte:f.endByte],
			Score:      f.score,
			StartIndex: start,
			EndIndex:   end,
		})
	}
	return out, nil
}

func (m *Model) infer(enc *encoding) ([]float32, []float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.run == nil {
		return nil, nil, errors.New("model is closed")
	}
	return m.run.Run(enc)
}

// Close releases the ONNX session.
func (m *Model) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.run == nil {
		return nil
	}
	err := m.run.Close()
	m.run = nil
	return err
}

var envMu sync.Mutex

func initEnvironment(libraryPath string) error {
	envMu.Lock()
	defer envMu.Unlock()
	if ort.IsInitialized() {
		return nil
	}
	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	return ort.InitializeEnvironment()
}
