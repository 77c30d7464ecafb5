package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates interview session states.
type SessionStatus string

const (
	SessionStatusInProgress SessionStatus = "in-progress"
	SessionStatusPaused     SessionStatus = "paused"
	SessionStatusCompleted  SessionStatus = "completed"
)

// Session is one candidate's interview attempt from start to completion
// or abandonment.
type Session struct {
	ID          uuid.UUID     `json:"id"`
	CandidateID string        `json:"candidate_id"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Status      SessionStatus `json:"status"`
	// QuestionIndex is the lowest index with no submitted answer, or the
	// last index once every question is answered.
	QuestionIndex int         `json:"question_index"`
	Questions     []Question  `json:"questions"`
	Summary       *Evaluation `json:"summary,omitempty"`

	// In-flight guards. GeneratingQuestions and Evaluating gate the two
	// provider calls; Submitting is the single submission-in-flight flag
	// that arbitrates manual-submit vs. timer-expiry races.
	GeneratingQuestions bool `json:"generating_questions,omitempty"`
	Evaluating          bool `json:"evaluating,omitempty"`
	Submitting          bool `json:"submitting,omitempty"`

	// Restored marks a session that was rehydrated from a snapshot and
	// has not been explicitly resumed yet. It is never persisted.
	Restored bool `json:"-"`
}

// FirstUnanswered returns the index of the first question without a
// submitted answer, or the last index if all are answered. Returns 0
// for an empty question list.
func (s *Session) FirstUnanswered() int {
	if len(s.Questions) == 0 {
		return 0
	}
	for i := range s.Questions {
		if !s.Questions[i].Answered() {
			return i
		}
	}
	return len(s.Questions) - 1
}

// AllAnswered reports whether every question holds a submitted answer.
func (s *Session) AllAnswered() bool {
	if len(s.Questions) == 0 {
		return false
	}
	for i := range s.Questions {
		if !s.Questions[i].Answered() {
			return false
		}
	}
	return true
}

// ActiveQuestionIndex returns the index of the question with a non-nil
// StartedAt, or -1 if no question is running. At most one question may
// be active at a time.
func (s *Session) ActiveQuestionIndex() int {
	for i := range s.Questions {
		if s.Questions[i].StartedAt != nil {
			return i
		}
	}
	return -1
}
