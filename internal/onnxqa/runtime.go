package onnxqa

import (
	"fmt"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"
)

type hfTokenizer struct {
	tk *tokenizer.Tokenizer
}

func newTokenizer(path string) (*hfTokenizer, error) {
	tk, err := pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}
	return &hfTokenizer{tk: tk}, nil
}

// Encode tokenizes the pair as [CLS] question [SEP] window [SEP]. Offsets of
// second-sequence tokens are relative to the window text.
func (t *hfTokenizer) Encode(question, window string) (*encoding, error) {
	en, err := t.tk.EncodePair(question, window, true)
	if err != nil {
		return nil, err
	}
	ids := en.GetIds()
	typeIDs := en.GetTypeIds()
	mask := en.GetAttentionMask()
	offsets := en.GetOffsets()
	special := en.GetSpecialTokenMask()

	enc := &encoding{
		IDs:           make([]int64, len(ids)),
		TypeIDs:       make([]int64, len(ids)),
		AttentionMask: make([]int64, len(ids)),
		Offsets:       make([][2]int, len(ids)),
		Context:       make([]bool, len(ids)),
	}
	for i, id := range ids {
		enc.IDs[i] = int64(id)
		if i < len(typeIDs) {
			enc.TypeIDs[i] = int64(typeIDs[i])
		}
		enc.AttentionMask[i] = 1
		if i < len(mask) {
			enc.AttentionMask[i] = int64(mask[i])
		}
		if i < len(offsets) && len(offsets[i]) == 2 {
			enc.Offsets[i] = [2]int{offsets[i][0], offsets[i][1]}
		}
		isSpecial := i < len(special) && special[i] == 1
		enc.Context[i] = enc.TypeIDs[i] == 1 && !isSpecial
	}
	return enc, nil
}

type ortRunner struct {
	session     *ort.DynamicAdvancedSession
	inputNames  []string
	outputNames []string
}

func newSession(cfg Config) (*ortRunner, error) {
	sess, err := ort.NewDynamicAdvancedSession(cfg.ModelPath, cfg.InputNames, cfg.OutputNames, nil)
	if err != nil {
		return nil, fmt.Errorf("create onnx session: %w", err)
	}
	return &ortRunner{session: sess, inputNames: cfg.InputNames, outputNames: cfg.OutputNames}, nil
}

func (r *ortRunner) Run(enc *encoding) ([]float32, []float32, error) {
	if len(r.outputNames) != 2 {
		return nil, nil, fmt.Errorf("expected start and end logit outputs, got %d", len(r.outputNames))
	}
	shape := ort.NewShape(1, int64(len(enc.IDs)))

	inputs := make([]ort.Value, 0, len(r.inputNames))
	defer func() {
		for _, v := range inputs {
			_ = v.Destroy()
		}
	}()
	for _, name := range r.inputNames {
		var data []int64
		switch name {
		case "input_ids":
			data = enc.IDs
		case "attention_mask":
			data = enc.AttentionMask
		case "token_type_ids":
			data = enc.TypeIDs
		default:
			return nil, nil, fmt.Errorf("unsupported model input %q", name)
		}
		t, err := ort.NewTensor(shape, data)
		if err != nil {
			return nil, nil, fmt.Errorf("input %s: %w", name, err)
		}
		inputs = append(inputs, t)
	}

	start, err := ort.NewEmptyTensor[float32](shape)
	if err != nil {
		return nil, nil, err
	}
	defer start.Destroy()
	end, err := ort.NewEmptyTensor[float32](shape)
	if err != nil {
		return nil, nil, err
	}
	defer end.Destroy()

	if err := r.session.Run(inputs, []ort.Value{start, end}); err != nil {
		return nil, nil, err
	}
	startLogits := append([]float32(nil), start.GetData()...)
	endLogits := append([]float32(nil), end.GetData()...)
	return startLogits, endLogits, nil
}

func (r *ortRunner) Close() error {
	return r.session.Destroy()
}
