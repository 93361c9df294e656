package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/liamcoop/visaintake/internal/logger"
	"github.com/liamcoop/visaintake/internal/metrics"
	"github.com/liamcoop/visaintake/interview"
)

// DefaultTTL is how long a session may stay active.
const DefaultTTL = 24 * time.Hour

// Engine is the part of the interview engine a session needs.
type Engine interface {
	NextQuestion(ctx context.Context, answers interview.AnswerSet, profile *interview.UserProfile) (*interview.QuestionResult, error)
	Recommendation(ctx context.Context, answers interview.AnswerSet, profile *interview.UserProfile) (*interview.RecommendationResult, error)
}

// Service runs interview sessions: it records answers in a Store and asks
// the engine what comes next.
type Service struct {
	store  Store
	engine Engine
	ttl    time.Duration
	now    func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithTTL sets how long a session may stay active. Zero disables expiry.
func WithTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) { s.ttl = ttl }
}

// WithNow sets the service clock.
func WithNow(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates a session service.
func NewService(store Store, engine Engine, opts ...ServiceOption) *Service {
	s := &Service{store: store, engine: engine, ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens a new session for a case and returns its first question.
// An active session already open for the case is cancelled.
func (s *Service) Start(ctx context.Context, userID, caseID string, profile *interview.UserProfile) (*Session, *interview.QuestionResult, error) {
	existing, err := s.store.ListForCase(ctx, caseID)
	if err != nil {
		return nil, nil, err
	}
	now := s.now().UTC()
	for _, prev := range existing {
		if prev.LockedAt != nil {
			return nil, nil, fmt.Errorf("%w: %s", ErrLocked, caseID)
		}
	}

	// Resolve the first question before touching stored sessions so a
	// failed read leaves the case as it was.
	q, err := s.engine.NextQuestion(ctx, nil, profile)
	if err != nil {
		return nil, nil, err
	}

	for _, prev := range existing {
		if prev.Status != StatusActive {
			continue
		}
		if err := s.store.SetStatus(ctx, prev.ID, StatusCancelled, &now); err != nil {
			return nil, nil, err
		}
		logger.Info("cancelled previous interview session", "sessionId", prev.ID, "caseId", caseID)
	}

	sess := &Session{
		ID:        uuid.New(),
		UserID:    userID,
		CaseID:    caseID,
		Status:    StatusActive,
		Profile:   profile,
		StartedAt: now,
	}
	if err := s.store.Create(ctx, sess); err != nil {
		return nil, nil, err
	}
	logger.Info("interview session started", "sessionId", sess.ID, "caseId", caseID)
	return sess, q, nil
}

// Rerun starts a fresh session for a case, carrying over the user and
// profile of its most recent session.
func (s *Service) Rerun(ctx context.Context, caseID string) (*Session, *interview.QuestionResult, error) {
	history, err := s.store.ListForCase(ctx, caseID)
	if err != nil {
		return nil, nil, err
	}
	if len(history) == 0 {
		return nil, nil, fmt.Errorf("%w: no sessions for case %s", ErrNotFound, caseID)
	}
	latest := history[0]
	return s.Start(ctx, latest.UserID, caseID, latest.Profile)
}

// Answer records one answer and returns the next question.
func (s *Service) Answer(ctx context.Context, id uuid.UUID, key, value string) (*Session, *interview.QuestionResult, error) {
	if _, err := s.active(ctx, id); err != nil {
		return nil, nil, err
	}

	step, err := s.store.SaveAnswer(ctx, id, strings.TrimSpace(key), value, s.now().UTC())
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("answer recorded", "sessionId", id, "questionKey", step.QuestionKey, "step", step.Number)

	return s.Next(ctx, id)
}

// Next returns the question the session is waiting on.
func (s *Service) Next(ctx context.Context, id uuid.UUID) (*Session, *interview.QuestionResult, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	q, err := s.engine.NextQuestion(ctx, sess.Answers(), sess.Profile)
	if err != nil {
		return nil, nil, err
	}
	return sess, q, nil
}

// Complete asks for a recommendation and closes the session. A nil
// recommendation still completes the session.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Session, error) {
	sess, err := s.active(ctx, id)
	if err != nil {
		return nil, err
	}

	rec, err := s.engine.Recommendation(ctx, sess.Answers(), sess.Profile)
	if err != nil {
		return nil, err
	}
	if err := s.store.Complete(ctx, id, rec, s.now().UTC()); err != nil {
		return nil, err
	}
	metrics.InterviewsCompleted.Inc()
	logger.Info("interview session completed", "sessionId", id, "recommended", rec != nil)
	return s.store.Get(ctx, id)
}

// Lock freezes every session of a case. Further starts and answers fail
// with ErrLocked.
func (s *Service) Lock(ctx context.Context, caseID string) error {
	n, err := s.store.LockCase(ctx, caseID, s.now().UTC())
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: no sessions for case %s", ErrNotFound, caseID)
	}
	logger.Info("interview locked", "caseId", caseID, "sessions", n)
	return nil
}

// History lists the sessions of a case, newest first.
func (s *Service) History(ctx context.Context, caseID string) ([]*Session, error) {
	return s.store.ListForCase(ctx, caseID)
}

// Get returns a session with its steps.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	return s.store.Get(ctx, id)
}

// active loads a session that can still change, expiring it when its TTL
// has passed.
func (s *Service) active(ctx context.Context, id uuid.UUID) (*Session, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.LockedAt != nil || sess.Status == StatusLocked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, sess.CaseID)
	}
	if sess.Status != StatusActive {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotActive, id, sess.Status)
	}

	now := s.now().UTC()
	if s.ttl > 0 && sess.StartedAt.Add(s.ttl).Before(now) {
		if err := s.store.SetStatus(ctx, id, StatusExpired, &now); err != nil {
			return nil, err
		}
		logger.Info("interview session expired", "sessionId", id)
		return nil, fmt.Errorf("%w: %s", ErrExpired, id)
	}
	return sess, nil
}
