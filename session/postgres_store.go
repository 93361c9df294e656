package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/liamcoop/visaintake/interview"
)

// PostgresStore implements Store over the interview_sessions and
// interview_answers tables.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed Store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const sessionColumns = `id, user_id, case_id, status, has_profile, date_of_birth, nationality, marital_status,
	recommended_visa_type_id, rationale, started_at, finished_at, locked_at`

// Create inserts a session row. Steps are stored through SaveAnswer.
func (p *PostgresStore) Create(ctx context.Context, s *Session) error {
	var dob *time.Time
	var nationality, marital string
	if s.Profile != nil {
		dob = s.Profile.DateOfBirth
		nationality = s.Profile.Nationality
		marital = s.Profile.MaritalStatus
	}

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO interview_sessions (id, user_id, case_id, status, has_profile, date_of_birth, nationality, marital_status, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, s.ID, s.UserID, s.CaseID, string(s.Status), s.Profile != nil, dob, nationality, marital, s.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// Get loads a session and its answers.
func (p *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM interview_sessions WHERE id = $1`, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	steps, err := p.steps(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Steps = steps
	return s, nil
}

func (p *PostgresStore) steps(ctx context.Context, id uuid.UUID) ([]Step, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT step_number, question_key, answer_value, answered_at
		FROM interview_answers
		WHERE session_id = $1
		ORDER BY step_number ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query answers: %w", err)
	}
	defer rows.Close()

	var steps []Step
	for rows.Next() {
		var st Step
		if err := rows.Scan(&st.Number, &st.QuestionKey, &st.AnswerValue, &st.AnsweredAt); err != nil {
			return nil, fmt.Errorf("failed to scan answer: %w", err)
		}
		steps = append(steps, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating answers: %w", err)
	}
	return steps, nil
}

// SaveAnswer upserts by (session, question key). A new key takes the next
// step number; an existing key keeps its own.
func (p *PostgresStore) SaveAnswer(ctx context.Context, id uuid.UUID, key, value string, at time.Time) (Step, error) {
	step := Step{QuestionKey: key, AnswerValue: value, AnsweredAt: at}
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO interview_answers (session_id, step_number, question_key, answer_value, answered_at)
		VALUES ($1, (SELECT COALESCE(MAX(step_number), 0) + 1 FROM interview_answers WHERE session_id = $1), $2, $3, $4)
		ON CONFLICT (session_id, question_key)
		DO UPDATE SET answer_value = EXCLUDED.answer_value, answered_at = EXCLUDED.answered_at
		RETURNING step_number
	`, id, key, value, at).Scan(&step.Number)
	if err != nil {
		return Step{}, fmt.Errorf("failed to save answer: %w", err)
	}
	return step, nil
}

func (p *PostgresStore) SetStatus(ctx context.Context, id uuid.UUID, status Status, finishedAt *time.Time) error {
	result, err := p.db.ExecContext(ctx, `
		UPDATE interview_sessions
		SET status = $1, finished_at = COALESCE($2, finished_at)
		WHERE id = $3
	`, string(status), finishedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update session status: %w", err)
	}
	return expectRow(result, id)
}

func (p *PostgresStore) Complete(ctx context.Context, id uuid.UUID, rec *interview.RecommendationResult, at time.Time) error {
	var visaTypeID sql.NullInt64
	var rationale sql.NullString
	if rec != nil {
		visaTypeID = sql.NullInt64{Int64: int64(rec.VisaTypeID), Valid: true}
		rationale = sql.NullString{String: rec.Rationale, Valid: true}
	}

	result, err := p.db.ExecContext(ctx, `
		UPDATE interview_sessions
		SET status = $1, recommended_visa_type_id = $2, rationale = $3, finished_at = $4
		WHERE id = $5
	`, string(StatusCompleted), visaTypeID, rationale, at, id)
	if err != nil {
		return fmt.Errorf("failed to complete session: %w", err)
	}
	return expectRow(result, id)
}

// ListForCase returns sessions without their steps, newest first.
func (p *PostgresStore) ListForCase(ctx context.Context, caseID string) ([]*Session, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM interview_sessions
		WHERE case_id = $1
		ORDER BY started_at DESC, id ASC
	`, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}
	return sessions, nil
}

func (p *PostgresStore) LockCase(ctx context.Context, caseID string, at time.Time) (int, error) {
	result, err := p.db.ExecContext(ctx, `
		UPDATE interview_sessions
		SET locked_at = COALESCE(locked_at, $1),
		    status = CASE WHEN status IN ('active', 'completed') THEN 'locked' ELSE status END
		WHERE case_id = $2
	`, at, caseID)
	if err != nil {
		return 0, fmt.Errorf("failed to lock case: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	var (
		s           Session
		status      string
		hasProfile  bool
		dob         sql.NullTime
		nationality string
		marital     string
		visaTypeID  sql.NullInt64
		rationale   sql.NullString
		finishedAt  sql.NullTime
		lockedAt    sql.NullTime
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.CaseID, &status, &hasProfile, &dob, &nationality, &marital,
		&visaTypeID, &rationale, &s.StartedAt, &finishedAt, &lockedAt); err != nil {
		return nil, err
	}

	s.Status = Status(status)
	if hasProfile {
		s.Profile = &interview.UserProfile{Nationality: nationality, MaritalStatus: marital}
		if dob.Valid {
			s.Profile.DateOfBirth = &dob.Time
		}
	}
	if visaTypeID.Valid {
		s.Recommendation = &interview.RecommendationResult{
			VisaTypeID: int(visaTypeID.Int64),
			Rationale:  rationale.String,
		}
	}
	if finishedAt.Valid {
		s.FinishedAt = &finishedAt.Time
	}
	if lockedAt.Valid {
		s.LockedAt = &lockedAt.Time
	}
	return &s, nil
}

func expectRow(result sql.Result, id uuid.UUID) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
