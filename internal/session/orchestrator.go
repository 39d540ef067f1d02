package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"qna-agents/internal/answer"
	"qna-agents/internal/inference"
	"qna-agents/internal/store"
)

// Recorder persists completed predictions. It is optional.
type Recorder interface {
	SavePrediction(ctx context.Context, p store.Prediction) error
}

// Options carries the collaborators shared by every session.
type Options struct {
	Notifier Notifier
	Recorder Recorder
	Log      *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Log == nil {
		return slog.Default()
	}
	return o.Log
}

// Orchestrator owns one session's state and runs at most one inference call
// at a time. Calls are never cancelled and have no timeout.
type Orchestrator struct {
	id       uuid.UUID
	gw       inference.Gateway
	notifier Notifier
	recorder Recorder
	log      *slog.Logger

	mu    sync.Mutex
	state State
	// done is closed when the latest call completes.
	done chan struct{}
}

// New creates an idle orchestrator. It does not start a prediction.
func New(id uuid.UUID, gw inference.Gateway, paragraph, question string, opts Options) *Orchestrator {
	log := opts.logger()
	notifier := opts.Notifier
	if notifier == nil {
		notifier = LogNotifier{Log: log}
	}
	return &Orchestrator{
		id:       id,
		gw:       gw,
		notifier: notifier,
		recorder: opts.Recorder,
		log:      log.With("session_id", id),
		state:    NewState(paragraph, question),
	}
}

func (o *Orchestrator) ID() uuid.UUID { return o.id }

// SetParagraph updates the source text for the next predict request.
func (o *Orchestrator) SetParagraph(paragraph string) {
	o.mu.Lock()
	o.state.Paragraph = paragraph
	o.mu.Unlock()
}

// SetQuestion updates the question for the next predict request.
func (o *Orchestrator) SetQuestion(question string) {
	o.mu.Lock()
	o.state.Question = question
	o.mu.Unlock()
}

// Snapshot returns a copy of the current state.
func (o *Orchestrator) Snapshot() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.clone()
}

// Predict starts an inference call on the current paragraph and question.
// It returns false without doing anything when either is empty or a call is
// already running. The call outlives ctx.
func (o *Orchestrator) Predict(ctx context.Context) bool {
	o.mu.Lock()
	next, ok := o.state.begin()
	if !ok {
		status := o.state.Status
		o.mu.Unlock()
		o.log.Debug("predict declined", "status", status)
		return false
	}
	o.state = next
	done := make(chan struct{})
	o.done = done
	o.mu.Unlock()

	go o.run(context.WithoutCancel(ctx), next.Question, next.Paragraph, done)
	return true
}

// Wait blocks until the latest call has completed or ctx is done.
func (o *Orchestrator) Wait(ctx context.Context) error {
	o.mu.Lock()
	done := o.done
	o.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) run(ctx context.Context, question, paragraph string, done chan struct{}) {
	defer close(done)
	start := time.Now()

	cands, err := o.infer(ctx, question, paragraph)
	if err != nil {
		o.log.Error("prediction failed", "err", err)
		o.notify(ctx, err.Error())
		o.mu.Lock()
		o.state = o.state.fail(err)
		o.mu.Unlock()
		o.record(ctx, store.Prediction{
			Question:  question,
			Paragraph: paragraph,
			Status:    string(StatusFailed),
			Error:     err.Error(),
		}, start)
		return
	}

	o.mu.Lock()
	o.state = o.state.succeed(cands)
	best := o.state.Best
	o.mu.Unlock()
	o.log.Info("prediction succeeded", "answers", len(cands), "duration_ms", time.Since(start).Milliseconds())
	o.record(ctx, store.Prediction{
		Question:   question,
		Paragraph:  paragraph,
		Status:     string(StatusSucceeded),
		Candidates: cands,
		Best:       best.ToPointer(),
	}, start)
}

// notify reports a failure. A panicking notifier must not keep the session
// in running.
func (o *Orchestrator) notify(ctx context.Context, message string) {
	defer func() {
		if rec := recover(); rec != nil {
			o.log.Error("notifier panicked", "panic", rec)
		}
	}()
	o.notifier.Notify(ctx, o.id, message)
}

func (o *Orchestrator) infer(ctx context.Context, question, paragraph string) (cands []answer.Candidate, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &inference.InferenceError{Err: fmt.Errorf("panic: %v", rec)}
		}
	}()
	model, err := o.gw.EnsureModelLoaded(ctx)
	if err != nil {
		return nil, err
	}
	return o.gw.FindAnswers(ctx, model, question, paragraph)
}

func (o *Orchestrator) record(ctx context.Context, p store.Prediction, start time.Time) {
	if o.recorder == nil {
		return
	}
	p.ID = uuid.New()
	p.SessionID = o.id
	p.DurationMs = time.Since(start).Milliseconds()
	if err := o.recorder.SavePrediction(ctx, p); err != nil {
		o.log.Warn("failed to record prediction", "err", err)
	}
}
