package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"qna-agents/internal/answer"
	"qna-agents/internal/queue"
)

// FindAnswersRequest is the wire payload sent to inference workers.
type FindAnswersRequest struct {
	Question  string `json:"question"`
	Paragraph string `json:"paragraph"`
}

// Error kinds carried on the wire so the caller can rebuild the typed error.
const (
	ErrorKindLoad      = "load"
	ErrorKindInference = "inference"
)

// FindAnswersReply carries candidates or the worker-side error. Error holds
// the unwrapped cause; Kind says which typed error it came from.
type FindAnswersReply struct {
	Candidates []answer.Candidate `json:"candidates"`
	Error      string             `json:"error,omitempty"`
	Kind       string             `json:"kind,omitempty"`
}

// ReadyReply answers a readiness check.
type ReadyReply struct {
	ModelID string `json:"model_id"`
	Error   string `json:"error,omitempty"`
	Kind    string `json:"kind,omitempty"`
}

// wireError strips the typed wrapper so the receiving side wraps only once.
func wireError(err error) (message, kind string) {
	var loadErr *ModelLoadError
	if errors.As(err, &loadErr) {
		return loadErr.Err.Error(), ErrorKindLoad
	}
	var infErr *InferenceError
	if errors.As(err, &infErr) {
		return infErr.Err.Error(), ErrorKindInference
	}
	return err.Error(), ErrorKindInference
}

// remoteError rebuilds the typed error a worker reported.
func remoteError(message, kind string) error {
	if kind == ErrorKindLoad {
		return &ModelLoadError{Err: errors.New(message)}
	}
	return &InferenceError{Err: errors.New(message)}
}

// ReadySubject is where workers answer readiness checks for subject.
func ReadySubject(subject string) string {
	return subject + ".ready"
}

// RemoteLoader treats a pool of NATS workers as the model. Loading asks
// the workers until one reports a loaded model.
type RemoteLoader struct {
	q        queue.Queue
	subject  string
	attempts int
	base     time.Duration
}

func NewRemoteLoader(q queue.Queue, subject string, attempts int, base time.Duration) *RemoteLoader {
	return &RemoteLoader{q: q, subject: subject, attempts: attempts, base: base}
}

func (l *RemoteLoader) Load(ctx context.Context) (Model, error) {
	data, err := queue.RequestWithRetry(ctx, l.q, ReadySubject(l.subject), nil, l.attempts, l.base)
	if err != nil {
		return nil, &ModelLoadError{Err: fmt.Errorf("no inference worker on %s: %w", l.subject, err)}
	}
	var ready ReadyReply
	if err := json.Unmarshal(data, &ready); err != nil {
		return nil, &ModelLoadError{Err: fmt.Errorf("decode ready reply: %w", err)}
	}
	if ready.Error != "" {
		return nil, &ModelLoadError{Err: errors.New(ready.Error)}
	}
	return &remoteModel{q: l.q, subject: l.subject, id: "remote:" + ready.ModelID}, nil
}

type remoteModel struct {
	q       queue.Queue
	subject string
	id      string
}

func (m *remoteModel) ID() string { return m.id }

func (m *remoteModel) FindAnswers(ctx context.Context, question, paragraph string) ([]answer.Candidate, error) {
	body, err := json.Marshal(FindAnswersRequest{Question: question, Paragraph: paragraph})
	if err != nil {
		return nil, err
	}
	data, err := m.q.Request(ctx, m.subject, body)
	if err != nil {
		return nil, err
	}
	var reply FindAnswersReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}
	if reply.Error != "" {
		return nil, remoteError(reply.Error, reply.Kind)
	}
	return reply.Candidates, nil
}

// Serve answers readiness checks and FindAnswers requests on subject using gw
// until ctx is done.
func Serve(ctx context.Context, q queue.Queue, subject string, gw Gateway, log *slog.Logger) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return q.Serve(ctx, ReadySubject(subject), func(ctx context.Context, _ []byte) []byte {
			return encodeReply(log, handleReady(ctx, gw))
		})
	})
	g.Go(func() error {
		return q.Serve(ctx, subject, func(ctx context.Context, data []byte) []byte {
			return encodeReply(log, handleFindAnswers(ctx, gw, data, log))
		})
	})
	return g.Wait()
}

func handleReady(ctx context.Context, gw Gateway) ReadyReply {
	model, err := gw.EnsureModelLoaded(ctx)
	if err != nil {
		msg, kind := wireError(err)
		return ReadyReply{Error: msg, Kind: kind}
	}
	return ReadyReply{ModelID: model.ID()}
}

func handleFindAnswers(ctx context.Context, gw Gateway, data []byte, log *slog.Logger) FindAnswersReply {
	var req FindAnswersRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return FindAnswersReply{Error: fmt.Sprintf("invalid request: %v", err), Kind: ErrorKindInference}
	}
	model, err := gw.EnsureModelLoaded(ctx)
	if err != nil {
		msg, kind := wireError(err)
		return FindAnswersReply{Error: msg, Kind: kind}
	}
	cands, err := gw.FindAnswers(ctx, model, req.Question, req.Paragraph)
	if err != nil {
		log.Warn("remote inference failed", "err", err)
		msg, kind := wireError(err)
		return FindAnswersReply{Error: msg, Kind: kind}
	}
	return FindAnswersReply{Candidates: cands}
}

func encodeReply(log *slog.Logger, v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error("failed to encode reply", "err", err)
		return []byte(`{"error":"internal encoding error"}`)
	}
	return data
}
