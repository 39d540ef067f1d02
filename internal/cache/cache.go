package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"time"

	"qna-agents/internal/answer"
)

// Cache stores inference results keyed by model and input.
type Cache interface {
	// GetAnswers returns nil, nil on a miss.
	GetAnswers(ctx context.Context, key string) (*AnswerSet, error)

	SetAnswers(ctx context.Context, key string, set *AnswerSet, ttl time.Duration) error

	// Flush drops every cached answer set.
	Flush(ctx context.Context) error

	Close() error
}

// AnswerSet is one cached model response.
type AnswerSet struct {
	Candidates []answer.Candidate `json:"candidates"`
}

// GenerateCacheKey hashes the model id with the exact question and paragraph.
func GenerateCacheKey(modelID, question, paragraph string) string {
	h := sha256.New()
	_, _ = io.WriteString(h, modelID)
	_, _ = io.WriteString(h, "\x00")
	_, _ = io.WriteString(h, question)
	_, _ = io.WriteString(h, "\x00")
	_, _ = io.WriteString(h, paragraph)
	return hex.EncodeToString(h.Sum(nil))
}
