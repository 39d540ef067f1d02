// Package onnxqa runs an extractive question-answering model (BERT-style,
// fine-tuned on SQuAD, exported to ONNX) through ONNX Runtime.
package onnxqa

// Config locates the runtime, the model and its tokenizer.
type Config struct {
	LibraryPath   string
	ModelPath     string
	TokenizerPath string
	// MaxSeqLen caps question + window tokens per model run.
	MaxSeqLen int
	// MaxAnswerTokens caps the length of one answer span.
	MaxAnswerTokens int
	MaxAnswers      int
	WindowWords     int
	WindowOverlap   int
	InputNames      []string
	OutputNames     []string
}

// ApplyDefaults populates zero values with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.MaxSeqLen <= 0 {
		c.MaxSeqLen = 384
	}
	if c.MaxAnswerTokens <= 0 {
		c.MaxAnswerTokens = 32
	}
	if c.MaxAnswers <= 0 {
		c.MaxAnswers = 5
	}
	if c.WindowWords <= 0 {
		c.WindowWords = 200
	}
	if c.WindowOverlap < 0 || c.WindowOverlap >= c.WindowWords {
		c.WindowOverlap = c.WindowWords / 4
	}
	if len(c.InputNames) == 0 {
		c.InputNames = []string{"input_ids", "attention_mask", "token_type_ids"}
	}
	if len(c.OutputNames) == 0 {
		c.OutputNames = []string{"start_logits", "end_logits"}
	}
}
