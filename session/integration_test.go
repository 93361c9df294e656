//go:build integration

package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamcoop/visaintake/catalog"
	"github.com/liamcoop/visaintake/internal/testdb"
	"github.com/liamcoop/visaintake/interview"
	"github.com/liamcoop/visaintake/recommend"
	"github.com/liamcoop/visaintake/session"
)

func TestPostgresStore_SessionLifecycle(t *testing.T) {
	db := testdb.Postgres(t)
	ctx := context.Background()

	sc := catalog.NewSQLCatalog(db, "postgres")
	require.NoError(t, sc.Seed(ctx, catalog.DefaultVisaTypes()))

	engine := interview.NewEngine(sc, recommend.NewRuleBasedRecommender(sc))
	store := session.NewPostgresStore(db)
	svc := session.NewService(store, engine)

	dob := time.Date(1988, 3, 14, 0, 0, 0, 0, time.UTC)
	sess, q, err := svc.Start(ctx, "user-1", "case-pg", &interview.UserProfile{DateOfBirth: &dob, Nationality: "BR"})
	require.NoError(t, err)
	assert.Equal(t, "purpose", q.Key)

	_, _, err = svc.Answer(ctx, sess.ID, "purpose", "tourism")
	require.NoError(t, err)
	_, _, err = svc.Answer(ctx, sess.ID, "durationOfStay", "short")
	require.NoError(t, err)
	got, _, err := svc.Answer(ctx, sess.ID, "purpose", "business")
	require.NoError(t, err)

	require.Len(t, got.Steps, 2)
	assert.Equal(t, "purpose", got.Steps[0].QuestionKey)
	assert.Equal(t, "business", got.Steps[0].AnswerValue)
	assert.Equal(t, 2, got.Steps[1].Number)
	require.NotNil(t, got.Profile)
	assert.True(t, got.Profile.DateOfBirth.Equal(dob))

	done, err := svc.Complete(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusCompleted, done.Status)
	require.NotNil(t, done.Recommendation)

	require.NoError(t, svc.Lock(ctx, "case-pg"))
	history, err := svc.History(ctx, "case-pg")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, session.StatusLocked, history[0].Status)
	assert.NotNil(t, history[0].LockedAt)
	assert.NotNil(t, history[0].Recommendation)

	_, _, err = svc.Start(ctx, "user-1", "case-pg", nil)
	assert.ErrorIs(t, err, session.ErrLocked)
}

func TestPostgresStore_StartCancelsPrevious(t *testing.T) {
	db := testdb.Postgres(t)
	ctx := context.Background()

	c := catalog.NewInMemoryCatalog(catalog.DefaultVisaTypes()...)
	svc := session.NewService(session.NewPostgresStore(db),
		interview.NewEngine(c, recommend.NewRuleBasedRecommender(c)))

	first, _, err := svc.Start(ctx, "user-1", "case-2", nil)
	require.NoError(t, err)
	_, _, err = svc.Start(ctx, "user-1", "case-2", nil)
	require.NoError(t, err)

	old, err := svc.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusCancelled, old.Status)
	assert.Nil(t, old.Profile)
}
