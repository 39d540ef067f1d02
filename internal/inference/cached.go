package inference

import (
	"context"
	"log/slog"
	"time"

	"qna-agents/internal/answer"
	"qna-agents/internal/cache"
)

// CachedGateway serves repeated questions from a cache. Cache failures are
// logged and never fail a call.
type CachedGateway struct {
	next  Gateway
	cache cache.Cache
	ttl   time.Duration
	log   *slog.Logger
}

// WithCache decorates next with c.
func WithCache(next Gateway, c cache.Cache, ttl time.Duration, log *slog.Logger) *CachedGateway {
	return &CachedGateway{next: next, cache: c, ttl: ttl, log: log}
}

func (g *CachedGateway) EnsureModelLoaded(ctx context.Context) (Model, error) {
	return g.next.EnsureModelLoaded(ctx)
}

func (g *CachedGateway) FindAnswers(ctx context.Context, model Model, question, paragraph string) ([]answer.Candidate, error) {
	if question == "" || paragraph == "" {
		return nil, ErrEmptyInput
	}
	key := cache.GenerateCacheKey(modelID(model), question, paragraph)
	if cached, err := g.cache.GetAnswers(ctx, key); err != nil {
		g.log.Warn("cache read failed", "err", err)
	} else if cached != nil {
		g.log.Debug("cache hit", "question", question)
		return cached.Candidates, nil
	}

	cands, err := g.next.FindAnswers(ctx, model, question, paragraph)
	if err != nil {
		return nil, err
	}
	if err := g.cache.SetAnswers(ctx, key, &cache.AnswerSet{Candidates: cands}, g.ttl); err != nil {
		g.log.Warn("failed to cache answers", "err", err)
	}
	return cands, nil
}

func modelID(m Model) string {
	if m == nil {
		return ""
	}
	return m.ID()
}
