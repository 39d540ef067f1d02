package inference

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"qna-agents/internal/answer"
)

// LazyGateway loads its model on first use and keeps it for the life of the
// process. Failed loads are not remembered.
type LazyGateway struct {
	loader Loader
	log    *slog.Logger

	group singleflight.Group
	mu    sync.RWMutex
	model Model
}

// NewLazyGateway wraps loader. Nothing is loaded until EnsureModelLoaded.
func NewLazyGateway(loader Loader, log *slog.Logger) *LazyGateway {
	return &LazyGateway{loader: loader, log: log}
}

// EnsureModelLoaded returns the shared model, initializing it if needed.
// Concurrent first callers wait on a single initialization.
func (g *LazyGateway) EnsureModelLoaded(ctx context.Context) (Model, error) {
	if m := g.loaded(); m != nil {
		return m, nil
	}
	v, err, _ := g.group.Do("model", func() (any, error) {
		if m := g.loaded(); m != nil {
			return m, nil
		}
		start := time.Now()
		m, err := g.loader.Load(ctx)
		if err != nil {
			return nil, err
		}
		if m == nil {
			return nil, errors.New("loader returned no model")
		}
		g.mu.Lock()
		g.model = m
		g.mu.Unlock()
		g.log.Info("model loaded", "model", m.ID(), "duration_ms", time.Since(start).Milliseconds())
		return m, nil
	})
	if err != nil {
		var loadErr *ModelLoadError
		if errors.As(err, &loadErr) {
			return nil, loadErr
		}
		return nil, &ModelLoadError{Err: err}
	}
	return v.(Model), nil
}

// FindAnswers runs one inference call. Candidates come back in model order.
func (g *LazyGateway) FindAnswers(ctx context.Context, model Model, question, paragraph string) ([]answer.Candidate, error) {
	if question == "" || paragraph == "" {
		return nil, ErrEmptyInput
	}
	if model == nil {
		return nil, &InferenceError{Err: errors.New("nil model")}
	}
	start := time.Now()
	cands, err := model.FindAnswers(ctx, question, paragraph)
	if err != nil {
		// remote models can report a failed load on the worker
		var loadErr *ModelLoadError
		if errors.As(err, &loadErr) {
			return nil, loadErr
		}
		var infErr *InferenceError
		if errors.As(err, &infErr) {
			return nil, infErr
		}
		return nil, &InferenceError{Err: err}
	}
	if cands == nil {
		cands = []answer.Candidate{}
	}
	g.log.Debug("inference done", "model", model.ID(), "answers", len(cands), "duration_ms", time.Since(start).Milliseconds())
	return cands, nil
}

func (g *LazyGateway) loaded() Model {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.model
}

// Close releases the loaded model when it holds native resources.
func (g *LazyGateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.model.(io.Closer)
	if !ok {
		return nil
	}
	g.model = nil
	return c.Close()
}
