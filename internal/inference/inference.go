// Package inference is the boundary to the question-answering model.
//
// A Gateway lazily initializes one model per process and forwards
// FindAnswers calls to it. Concrete backends (OpenAI, ONNX Runtime, a remote
// worker over NATS) plug in through Loader.
package inference

import (
	"context"
	"errors"
	"fmt"

	"qna-agents/internal/answer"
)

// Model is an initialized QA backend.
type Model interface {
	FindAnswers(ctx context.Context, question, paragraph string) ([]answer.Candidate, error)
	// ID names the backend and model, used for cache keys and logs.
	ID() string
}

// Loader initializes a Model. It is called until it succeeds once.
type Loader interface {
	Load(ctx context.Context) (Model, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context) (Model, error)

func (f LoaderFunc) Load(ctx context.Context) (Model, error) { return f(ctx) }

// Gateway is the orchestrator's view of the inference backend.
type Gateway interface {
	EnsureModelLoaded(ctx context.Context) (Model, error)
	FindAnswers(ctx context.Context, model Model, question, paragraph string) ([]answer.Candidate, error)
}

// ErrEmptyInput is returned when question or paragraph is empty.
var ErrEmptyInput = errors.New("question and paragraph must be non-empty")

// ModelLoadError reports a failed backend initialization.
type ModelLoadError struct {
	Err error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("load model: %v", e.Err)
}

func (e *ModelLoadError) Unwrap() error { return e.Err }

// InferenceError reports a failed model call.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("find answers: %v", e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }
