package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamcoop/visaintake/catalog"
	"github.com/liamcoop/visaintake/interview"
	"github.com/liamcoop/visaintake/recommend"
	"github.com/liamcoop/visaintake/rules"
	"github.com/liamcoop/visaintake/session"
)

func newTestServer(t *testing.T, limiter *clientLimiter) *Server {
	t.Helper()
	ctx := context.Background()

	mc := catalog.NewInMemoryCatalog(catalog.DefaultVisaTypes()...)
	cached := catalog.NewCachedCatalog(mc, catalog.NewInMemoryCache(catalog.CacheConfig{}))

	ruleEngine, err := rules.NewEngine(ctx, rules.NewInMemoryRuleStore())
	require.NoError(t, err)

	engine := interview.NewEngine(cached, recommend.NewRuleBasedRecommender(cached),
		interview.WithEligibilityRules(ruleEngine))

	return NewServer(Options{
		Catalog: cached,
		SetActive: func(_ context.Context, code string, active bool) error {
			return mc.SetActive(code, active)
		},
		Rules:    ruleEngine,
		Sessions: session.NewService(session.NewInMemoryStore(), engine),
		Limiter:  limiter,
	})
}

func do(t *testing.T, srv http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := do(t, srv, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.EqualValues(t, len(catalog.DefaultVisaTypes()), body["activeVisaTypes"])
}

func TestInterviewStartAnswerComplete(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := do(t, srv, http.MethodPost, "/v1/interview/start", map[string]any{
		"userId": "user-1",
		"caseId": "case-1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	started := decode[InterviewResponse](t, rec)
	assert.Equal(t, session.StatusActive, started.Status)
	require.NotNil(t, started.Question)
	assert.Equal(t, "purpose", started.Question.Key)

	rec = do(t, srv, http.MethodPost, "/v1/interview/answer", map[string]any{
		"sessionId":   started.SessionID,
		"questionKey": "purpose",
		"answerValue": "employment",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	answered := decode[InterviewResponse](t, rec)
	assert.Equal(t, "hasEmployerSponsor", answered.Question.Key)
	require.Len(t, answered.Steps, 1)
	assert.Equal(t, 1, answered.Steps[0].Number)

	rec = do(t, srv, http.MethodPost, "/v1/interview/answer", map[string]any{
		"sessionId":   started.SessionID,
		"questionKey": "hasEmployerSponsor",
		"answerValue": "yes",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/v1/interview/"+started.SessionID.String()+"/next", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	next := decode[InterviewResponse](t, rec)
	assert.Len(t, next.Steps, 2)
	assert.NotContains(t, next.Question.RemainingVisaCodes, "B-2")

	rec = do(t, srv, http.MethodPost, "/v1/interview/complete", map[string]any{"sessionId": started.SessionID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	done := decode[CompleteResponse](t, rec)
	assert.Equal(t, session.StatusCompleted, done.Status)
	assert.Equal(t, "H-1B", done.RecommendationVisaType)
	assert.NotEmpty(t, done.Rationale)

	rec = do(t, srv, http.MethodPost, "/v1/interview/answer", map[string]any{
		"sessionId":   started.SessionID,
		"questionKey": "durationOfStay",
		"answerValue": "long",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, srv, http.MethodGet, "/v1/interview/history?caseId=case-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[HistoryResponse](t, rec)
	require.Len(t, history.Sessions, 1)
	require.NotNil(t, history.LatestRecommendation)
	assert.Equal(t, "H-1B", history.LatestRecommendation.VisaType)
	assert.False(t, history.LatestRecommendation.IsLocked)
}

func TestInterviewRequestValidation(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name string
		path string
		body any
		want int
	}{
		{"missing caseId", "/v1/interview/start", map[string]any{"userId": "u"}, http.StatusBadRequest},
		{"empty body", "/v1/interview/start", nil, http.StatusBadRequest},
		{"malformed JSON", "/v1/interview/start", `{"caseId":`, http.StatusBadRequest},
		{"bad birth date", "/v1/interview/start", map[string]any{
			"caseId":  "c",
			"profile": map[string]any{"dateOfBirth": "02/04/1990"},
		}, http.StatusBadRequest},
		{"unknown profile field", "/v1/interview/start", map[string]any{
			"caseId":  "c",
			"profile": map[string]any{"age": 30},
		}, http.StatusBadRequest},
		{"sessionId not a uuid", "/v1/interview/answer", map[string]any{
			"sessionId": "nope", "questionKey": "purpose", "answerValue": "study",
		}, http.StatusBadRequest},
		{"questionKey with spaces", "/v1/interview/answer", map[string]any{
			"sessionId": "123e4567-e89b-12d3-a456-426614174000", "questionKey": "bad key", "answerValue": "x",
		}, http.StatusBadRequest},
		{"unknown session", "/v1/interview/answer", map[string]any{
			"sessionId": "123e4567-e89b-12d3-a456-426614174000", "questionKey": "purpose", "answerValue": "study",
		}, http.StatusNotFound},
		{"lock without caseId", "/v1/interview/lock", map[string]any{}, http.StatusBadRequest},
		{"lock unknown case", "/v1/interview/lock", map[string]any{"caseId": "nobody"}, http.StatusNotFound},
		{"rerun unknown case", "/v1/interview/rerun", map[string]any{"caseId": "nobody"}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			body := decode[ErrorResponse](t, rec)
			assert.NotEmpty(t, body.Error)
		})
	}

	rec := do(t, srv, http.MethodGet, "/v1/interview/not-a-uuid/next", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodGet, "/v1/interview/history", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInterviewLockAndRerun(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := do(t, srv, http.MethodPost, "/v1/interview/start", map[string]any{
		"userId":  "user-2",
		"caseId":  "case-2",
		"profile": map[string]any{"dateOfBirth": "1985-01-20", "nationality": "de"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decode[InterviewResponse](t, rec)

	rec = do(t, srv, http.MethodPost, "/v1/interview/rerun", map[string]any{"caseId": "case-2"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	second := decode[InterviewResponse](t, rec)
	assert.NotEqual(t, first.SessionID, second.SessionID)

	rec = do(t, srv, http.MethodPost, "/v1/interview/answer", map[string]any{
		"sessionId": first.SessionID, "questionKey": "purpose", "answerValue": "study",
	})
	assert.Equal(t, http.StatusConflict, rec.Code, "rerun cancels the earlier session")

	rec = do(t, srv, http.MethodPost, "/v1/interview/lock", map[string]any{"caseId": "case-2"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodPost, "/v1/interview/answer", map[string]any{
		"sessionId": second.SessionID, "questionKey": "purpose", "answerValue": "study",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, srv, http.MethodPost, "/v1/interview/start", map[string]any{"caseId": "case-2"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestEligibilityRuleLifecycle(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := do(t, srv, http.MethodPost, "/api/v1/eligibility-rules", map[string]any{
		"name":       "No ESTA for India",
		"expression": `visa.code == "ESTA" && profile.nationality == "IN"`,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rule := decode[rules.Rule](t, rec)
	assert.NotEmpty(t, rule.ID)
	assert.True(t, rule.Active)

	rec = do(t, srv, http.MethodGet, "/api/v1/eligibility-rules", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[map[string][]rules.Rule](t, rec)
	assert.Len(t, list["rules"], 1)

	rec = do(t, srv, http.MethodPost, "/api/v1/eligibility-rules/"+rule.ID+"/evaluate", map[string]any{
		"visaCode": "esta",
		"profile":  map[string]any{"nationality": "in"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	eval := decode[map[string]any](t, rec)
	assert.Equal(t, true, eval["matched"])
	assert.Equal(t, "ESTA", eval["visaCode"])

	rec = do(t, srv, http.MethodPost, "/v1/interview/start", map[string]any{
		"caseId":  "case-3",
		"profile": map[string]any{"dateOfBirth": "1980-05-05", "nationality": "IN"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	started := decode[InterviewResponse](t, rec)
	assert.NotContains(t, started.Question.RemainingVisaCodes, "ESTA")

	rec = do(t, srv, http.MethodPut, "/api/v1/eligibility-rules/"+rule.ID, map[string]any{"active": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[rules.Rule](t, rec)
	assert.False(t, updated.Active)
	assert.Equal(t, rule.Expression, updated.Expression)

	rec = do(t, srv, http.MethodGet, "/v1/interview/"+started.SessionID.String()+"/next", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode[InterviewResponse](t, rec).Question.RemainingVisaCodes, "ESTA")

	rec = do(t, srv, http.MethodDelete, "/api/v1/eligibility-rules/"+rule.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/v1/eligibility-rules/"+rule.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEligibilityRuleRejectsBadExpression(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := do(t, srv, http.MethodPost, "/api/v1/eligibility-rules", map[string]any{
		"name":       "broken",
		"expression": `visa.code ==`,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/v1/eligibility-rules", map[string]any{"name": "no expression"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/v1/eligibility-rules/missing/evaluate", map[string]any{"visaCode": "B-2"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVisaTypeToggleInvalidatesCache(t *testing.T) {
	srv := newTestServer(t, nil)
	total := len(catalog.DefaultVisaTypes())

	rec := do(t, srv, http.MethodGet, "/api/v1/visa-types", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[map[string][]catalog.VisaType](t, rec)["visaTypes"], total)

	rec = do(t, srv, http.MethodPut, "/api/v1/visa-types/ESTA/active", map[string]any{"active": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/api/v1/visa-types", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	visas := decode[map[string][]catalog.VisaType](t, rec)["visaTypes"]
	assert.Len(t, visas, total-1)
	assert.NotContains(t, catalog.Codes(visas), "ESTA")

	rec = do(t, srv, http.MethodPut, "/api/v1/visa-types/XX-9/active", map[string]any{"active": true})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInterviewRoutesAreRateLimited(t *testing.T) {
	srv := newTestServer(t, newClientLimiter(1, 1))

	first := do(t, srv, http.MethodGet, "/v1/interview/history?caseId=c", nil)
	assert.Equal(t, http.StatusOK, first.Code)

	second := do(t, srv, http.MethodGet, "/v1/interview/history?caseId=c", nil)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "1", second.Header().Get("Retry-After"))

	health := do(t, srv, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, health.Code, "admin routes are not limited")
}
