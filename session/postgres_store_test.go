package session

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamcoop/visaintake/interview"
)

var sessionRowColumns = []string{
	"id", "user_id", "case_id", "status", "has_profile", "date_of_birth", "nationality", "marital_status",
	"recommended_visa_type_id", "rationale", "started_at", "finished_at", "locked_at",
}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db), mock
}

func TestStoreInterfaceExists(t *testing.T) {
	var _ Store = (*InMemoryStore)(nil)
	var _ Store = (*PostgresStore)(nil)
}

func TestPostgresStoreCreate(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()
	started := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO interview_sessions`).
		WithArgs(id, "user-1", "case-1", "active", true, nil, "CA", "", started).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.Create(context.Background(), &Session{
		ID: id, UserID: "user-1", CaseID: "case-1", Status: StatusActive,
		Profile: &interview.UserProfile{Nationality: "CA"}, StartedAt: started,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreGet(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()
	started := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	dob := time.Date(1990, 4, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, user_id, case_id, status, has_profile, .* FROM interview_sessions WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(sessionRowColumns).
			AddRow(id.String(), "user-1", "case-1", "completed", true, dob, "DE", "single", 2, "B-2 rationale", started, started.Add(time.Hour), nil))
	mock.ExpectQuery(`SELECT step_number, question_key, answer_value, answered_at FROM interview_answers WHERE session_id = \$1 ORDER BY step_number ASC`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"step_number", "question_key", "answer_value", "answered_at"}).
			AddRow(1, "purpose", "tourism", started).
			AddRow(2, "durationOfStay", "short", started))

	got, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, StatusCompleted, got.Status)
	require.NotNil(t, got.Profile)
	assert.Equal(t, "DE", got.Profile.Nationality)
	assert.True(t, got.Profile.DateOfBirth.Equal(dob))
	require.NotNil(t, got.Recommendation)
	assert.Equal(t, 2, got.Recommendation.VisaTypeID)
	assert.Nil(t, got.LockedAt)
	assert.Equal(t, interview.AnswerSet{"purpose": "tourism", "durationOfStay": "short"}, got.Answers())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreGetNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectQuery(`FROM interview_sessions WHERE id = \$1`).
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	_, err := store.Get(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStoreSaveAnswer(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()
	at := time.Now().UTC()

	mock.ExpectQuery(`INSERT INTO interview_answers .* ON CONFLICT \(session_id, question_key\)`).
		WithArgs(id, "purpose", "tourism", at).
		WillReturnRows(sqlmock.NewRows([]string{"step_number"}).AddRow(3))

	step, err := store.SaveAnswer(context.Background(), id, "purpose", "tourism", at)
	require.NoError(t, err)
	assert.Equal(t, 3, step.Number)
	assert.Equal(t, "purpose", step.QuestionKey)
}

func TestPostgresStoreComplete(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()
	at := time.Now().UTC()

	mock.ExpectExec(`UPDATE interview_sessions SET status = \$1, recommended_visa_type_id = \$2, rationale = \$3, finished_at = \$4 WHERE id = \$5`).
		WithArgs("completed", sql.NullInt64{Int64: 4, Valid: true}, sql.NullString{String: "H-1B", Valid: true}, at, id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE interview_sessions`).
		WithArgs("completed", sql.NullInt64{}, sql.NullString{}, at, id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Complete(context.Background(), id, &interview.RecommendationResult{VisaTypeID: 4, Rationale: "H-1B"}, at))
	assert.ErrorIs(t, store.Complete(context.Background(), id, nil, at), ErrNotFound)
}

func TestPostgresStoreListForCase(t *testing.T) {
	store, mock := newMockStore(t)
	started := time.Now().UTC()
	a, b := uuid.New(), uuid.New()

	mock.ExpectQuery(`FROM interview_sessions WHERE case_id = \$1 ORDER BY started_at DESC, id ASC`).
		WithArgs("case-1").
		WillReturnRows(sqlmock.NewRows(sessionRowColumns).
			AddRow(a.String(), "u", "case-1", "active", false, nil, "", "", nil, nil, started, nil, nil).
			AddRow(b.String(), "u", "case-1", "cancelled", false, nil, "", "", nil, nil, started.Add(-time.Hour), started, nil))

	sessions, err := store.ListForCase(context.Background(), "case-1")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, a, sessions[0].ID)
	assert.Nil(t, sessions[0].Profile)
	assert.Equal(t, StatusCancelled, sessions[1].Status)
}

func TestPostgresStoreLockCase(t *testing.T) {
	store, mock := newMockStore(t)
	at := time.Now().UTC()

	mock.ExpectExec(`UPDATE interview_sessions SET locked_at = COALESCE\(locked_at, \$1\)`).
		WithArgs(at, "case-1").
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := store.LockCase(context.Background(), "case-1", at)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPostgresStoreSetStatusMissing(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectExec(`UPDATE interview_sessions SET status = \$1, finished_at = COALESCE\(\$2, finished_at\) WHERE id = \$3`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.SetStatus(context.Background(), id, StatusCancelled, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}
