package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"qna-agents/internal/answer"
)

func TestStateBeginGuard(t *testing.T) {
	tests := []struct {
		name      string
		state     State
		wantOK    bool
		wantState Status
	}{
		{"idle with input", NewState("p", "q"), true, StatusRunning},
		{"empty paragraph", NewState("", "q"), false, StatusIdle},
		{"empty question", NewState("p", ""), false, StatusIdle},
		{"already running", State{Paragraph: "p", Question: "q", Status: StatusRunning}, false, StatusRunning},
		{"after success", State{Paragraph: "p", Question: "q", Status: StatusSucceeded}, true, StatusRunning},
		{"after failure", State{Paragraph: "p", Question: "q", Status: StatusFailed}, true, StatusRunning},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, ok := tt.state.begin()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantState, next.Status)
			assert.Equal(t, tt.wantOK, tt.state.CanPredict())
		})
	}
}

func TestStateSucceedOverwrites(t *testing.T) {
	old := []answer.Candidate{{Text: "old", Score: 5}}
	s := NewState("p", "q").succeed(old)
	s.Status = StatusRunning
	s.Notice = "previous failure"

	fresh := []answer.Candidate{{Text: "a", Score: 0.2}, {Text: "b", Score: 0.7}}
	s = s.succeed(fresh)

	assert.Equal(t, StatusSucceeded, s.Status)
	assert.Equal(t, fresh, s.Candidates)
	best, ok := s.Best.Get()
	assert.True(t, ok)
	assert.Equal(t, "b", best.Text)
	assert.Empty(t, s.Notice)
}

func TestStateSucceedNil(t *testing.T) {
	s := NewState("p", "q").succeed(nil)
	assert.NotNil(t, s.Candidates)
	assert.Empty(t, s.Candidates)
	assert.True(t, s.Best.IsAbsent())
}

func TestStateFailKeepsResults(t *testing.T) {
	prev := []answer.Candidate{{Text: "kept", Score: 1}}
	s := NewState("p", "q").succeed(prev)
	s = s.fail(errors.New("find answers: boom"))

	assert.Equal(t, StatusFailed, s.Status)
	assert.Equal(t, prev, s.Candidates)
	best, _ := s.Best.Get()
	assert.Equal(t, "kept", best.Text)
	assert.Equal(t, "find answers: boom", s.Notice)
}

func TestStateClone(t *testing.T) {
	s := NewState("p", "q").succeed([]answer.Candidate{{Text: "a"}})
	c := s.clone()
	c.Candidates[0].Text = "mutated"
	assert.Equal(t, "a", s.Candidates[0].Text)
}
