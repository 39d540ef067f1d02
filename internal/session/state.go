// Package session holds the QA workflow: the per-session state, the
// transitions between idle, running, succeeded and failed, and the
// orchestrator that drives the inference gateway.
package session

import (
	"github.com/samber/mo"

	"qna-agents/internal/answer"
)

// Status is the orchestrator's position in the predict cycle.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// State is the mutable data consulted and updated by predict calls.
type State struct {
	Paragraph  string
	Question   string
	Candidates []answer.Candidate
	Best       mo.Option[answer.Candidate]
	Status     Status
	// Notice is the message of the most recent failure, cleared on success.
	Notice string
}

// NewState returns an idle state with no results.
func NewState(paragraph, question string) State {
	return State{
		Paragraph:  paragraph,
		Question:   question,
		Candidates: []answer.Candidate{},
		Best:       mo.None[answer.Candidate](),
		Status:     StatusIdle,
	}
}

// CanPredict reports whether a predict request would start a call.
func (s State) CanPredict() bool {
	return s.Paragraph != "" && s.Question != "" && s.Status != StatusRunning
}

// begin moves to running. ok is false, and s is returned unchanged, when the
// guard rejects the request.
func (s State) begin() (State, bool) {
	if !s.CanPredict() {
		return s, false
	}
	s.Status = StatusRunning
	return s, true
}

// succeed replaces the results with candidates and picks the best one.
func (s State) succeed(candidates []answer.Candidate) State {
	if candidates == nil {
		candidates = []answer.Candidate{}
	}
	s.Candidates = candidates
	s.Best = answer.SelectBest(candidates)
	s.Status = StatusSucceeded
	s.Notice = ""
	return s
}

// fail records the error message and keeps previous results.
func (s State) fail(err error) State {
	s.Status = StatusFailed
	s.Notice = err.Error()
	return s
}

// clone returns a copy that shares no slices with s.
func (s State) clone() State {
	s.Candidates = answer.Clone(s.Candidates)
	return s
}
