package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"qna-agents/internal/answer"
)

var ErrNotFound = errors.New("prediction not found")

// Prediction is one completed inference call, successful or not.
type Prediction struct {
	ID         uuid.UUID          `json:"id"`
	SessionID  uuid.UUID          `json:"session_id"`
	Question   string             `json:"question"`
	Paragraph  string             `json:"paragraph"`
	Status     string             `json:"status"`
	Candidates []answer.Candidate `json:"candidates"`
	Answers    []string           `json:"answers"`
	Best       *answer.Candidate  `json:"best,omitempty"`
	Error      string             `json:"error,omitempty"`
	DurationMs int64              `json:"duration_ms"`
	CreatedAt  time.Time          `json:"created_at"`
}

// ListOptions narrows a history listing. Answer, when set, keeps only
// predictions that produced a candidate with exactly that text.
type ListOptions struct {
	Limit  int
	Answer string
}

// Store is the prediction history. It is an audit log; session state itself
// is never persisted.
type Store interface {
	SavePrediction(ctx context.Context, p Prediction) error
	GetPrediction(ctx context.Context, id uuid.UUID) (Prediction, error)
	ListPredictions(ctx context.Context, sessionID uuid.UUID, opts ListOptions) ([]Prediction, error)
	Close() error
}
