// Package session persists interview sessions and drives them through the
// interview engine.
package session

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/liamcoop/visaintake/interview"
)

var (
	// ErrNotFound is returned when no session or case matches.
	ErrNotFound = errors.New("interview session not found")
	// ErrNotActive is returned when a session can no longer take answers.
	ErrNotActive = errors.New("interview session is not active")
	// ErrLocked is returned for any change to a locked case.
	ErrLocked = errors.New("interview is locked for this case")
	// ErrExpired is returned when an active session outlived its TTL.
	ErrExpired = errors.New("interview session has expired")
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
	StatusLocked    Status = "locked"
)

// Step is one recorded answer. Re-answering a question keeps its step number.
type Step struct {
	Number      int       `json:"stepNumber"`
	QuestionKey string    `json:"questionKey"`
	AnswerValue string    `json:"answerValue"`
	AnsweredAt  time.Time `json:"answeredAt"`
}

// Session is one run of the interview for a case.
type Session struct {
	ID             uuid.UUID                       `json:"id"`
	UserID         string                          `json:"userId"`
	CaseID         string                          `json:"caseId"`
	Status         Status                          `json:"status"`
	Profile        *interview.UserProfile          `json:"profile,omitempty"`
	Steps          []Step                          `json:"steps"`
	Recommendation *interview.RecommendationResult `json:"recommendation,omitempty"`
	StartedAt      time.Time                       `json:"startedAt"`
	FinishedAt     *time.Time                      `json:"finishedAt,omitempty"`
	LockedAt       *time.Time                      `json:"lockedAt,omitempty"`
}

// Answers returns the latest answer per question key.
func (s *Session) Answers() interview.AnswerSet {
	answers := make(interview.AnswerSet, len(s.Steps))
	for _, st := range s.Steps {
		answers[st.QuestionKey] = st.AnswerValue
	}
	return answers
}

func (s *Session) clone() *Session {
	c := *s
	c.Steps = append([]Step(nil), s.Steps...)
	if s.Profile != nil {
		p := *s.Profile
		c.Profile = &p
	}
	if s.Recommendation != nil {
		r := *s.Recommendation
		c.Recommendation = &r
	}
	return &c
}
