package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/liamcoop/visaintake/interview"
)

// Store persists sessions and their answers.
type Store interface {
	// Create inserts a new session.
	Create(ctx context.Context, s *Session) error

	// Get returns a session with its steps in order.
	Get(ctx context.Context, id uuid.UUID) (*Session, error)

	// SaveAnswer upserts an answer by question key and returns the stored step.
	SaveAnswer(ctx context.Context, id uuid.UUID, key, value string, at time.Time) (Step, error)

	// SetStatus moves a session to status, stamping finishedAt when given.
	SetStatus(ctx context.Context, id uuid.UUID, status Status, finishedAt *time.Time) error

	// Complete stores the recommendation and marks the session completed.
	Complete(ctx context.Context, id uuid.UUID, rec *interview.RecommendationResult, at time.Time) error

	// ListForCase returns every session for a case, newest first.
	ListForCase(ctx context.Context, caseID string) ([]*Session, error)

	// LockCase locks every session of a case and returns how many changed.
	LockCase(ctx context.Context, caseID string, at time.Time) (int, error)
}

// InMemoryStore implements Store using an in-memory map.
// Thread-safe with RWMutex.
type InMemoryStore struct {
	sessions map[uuid.UUID]*Session
	mu       sync.RWMutex
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[uuid.UUID]*Session)}
}

func (m *InMemoryStore) Create(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[s.ID]; exists {
		return fmt.Errorf("session %s already exists", s.ID)
	}
	m.sessions[s.ID] = s.clone()
	return nil
}

func (m *InMemoryStore) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.clone(), nil
}

func (m *InMemoryStore) SaveAnswer(ctx context.Context, id uuid.UUID, key, value string, at time.Time) (Step, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return Step{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	for i := range s.Steps {
		if s.Steps[i].QuestionKey == key {
			s.Steps[i].AnswerValue = value
			s.Steps[i].AnsweredAt = at
			return s.Steps[i], nil
		}
	}

	step := Step{Number: len(s.Steps) + 1, QuestionKey: key, AnswerValue: value, AnsweredAt: at}
	s.Steps = append(s.Steps, step)
	return step, nil
}

func (m *InMemoryStore) SetStatus(ctx context.Context, id uuid.UUID, status Status, finishedAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.Status = status
	if finishedAt != nil {
		t := *finishedAt
		s.FinishedAt = &t
	}
	return nil
}

func (m *InMemoryStore) Complete(ctx context.Context, id uuid.UUID, rec *interview.RecommendationResult, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.Status = StatusCompleted
	s.FinishedAt = &at
	s.Recommendation = nil
	if rec != nil {
		r := *rec
		s.Recommendation = &r
	}
	return nil
}

func (m *InMemoryStore) ListForCase(ctx context.Context, caseID string) ([]*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Session
	for _, s := range m.sessions {
		if s.CaseID == caseID {
			out = append(out, s.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (m *InMemoryStore) LockCase(ctx context.Context, caseID string, at time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, s := range m.sessions {
		if s.CaseID != caseID {
			continue
		}
		if s.LockedAt == nil {
			t := at
			s.LockedAt = &t
		}
		if s.Status == StatusActive || s.Status == StatusCompleted {
			s.Status = StatusLocked
		}
		n++
	}
	return n, nil
}
