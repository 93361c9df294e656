package interview

import (
	"context"
	"strings"
	"time"

	"github.com/liamcoop/visaintake/catalog"
	"github.com/liamcoop/visaintake/internal/logger"
	"github.com/liamcoop/visaintake/internal/metrics"
)

// essentialKeys are the questions that, once two are answered, allow the
// interview to stop with up to earlyCompleteMax candidates.
var essentialKeys = []string{"purpose", "hasEmployerSponsor", "durationOfStay"}

const (
	// smallCandidateSet completes the interview regardless of answers.
	smallCandidateSet = 3
	earlyCompleteMax  = 5
	minEssentials     = 2
)

// Engine sequences interview questions and narrows the candidate visa types.
// It holds no per-call state and is safe for concurrent use.
type Engine struct {
	catalog     catalog.Catalog
	recommender Recommender
	rules       EligibilityRules
	now         func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithClock sets the clock used to compute applicant age.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithEligibilityRules adds operator rules that run after the built-in filters.
func WithEligibilityRules(rules EligibilityRules) EngineOption {
	return func(e *Engine) { e.rules = rules }
}

// NewEngine creates an engine over a visa catalog and a recommender.
func NewEngine(c catalog.Catalog, r Recommender, opts ...EngineOption) *Engine {
	e := &Engine{
		catalog:     c,
		recommender: r,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NextQuestion filters the active visa types by answers and profile, then
// returns the next question to ask or KeyComplete. Catalog and rule store
// faults are returned to the caller.
func (e *Engine) NextQuestion(ctx context.Context, answers AnswerSet, profile *UserProfile) (*QuestionResult, error) {
	res, err := e.next(ctx, answers, profile)
	if err != nil {
		return nil, err
	}

	metrics.QuestionsServed.WithLabelValues(res.Key).Inc()
	metrics.RemainingCandidates.Observe(float64(res.RemainingVisaTypes))
	logger.Debug("next interview question",
		"key", res.Key,
		"answered", len(answers),
		"remaining", res.RemainingVisaTypes)
	return res, nil
}

// IsComplete reports whether NextQuestion would return KeyComplete. Faults
// are logged and reported as not complete.
func (e *Engine) IsComplete(ctx context.Context, answers AnswerSet, profile *UserProfile) bool {
	res, err := e.next(ctx, answers, profile)
	if err != nil {
		logger.Warn("interview completion check failed", "error", err)
		return false
	}
	return res.Complete()
}

// Recommendation asks the recommender for a suggestion. The result, nil
// included, and any fault are passed through unchanged.
func (e *Engine) Recommendation(ctx context.Context, answers AnswerSet, profile *UserProfile) (*RecommendationResult, error) {
	if answers == nil {
		answers = AnswerSet{}
	}
	nationality := ""
	if profile != nil {
		nationality = profile.Nationality
	}

	rec, err := e.recommender.Recommend(ctx, answers, nationality)
	if err != nil {
		metrics.RecommendationFailures.Inc()
		return nil, err
	}
	return rec, nil
}

// Candidates returns the active visa types consistent with answers and profile.
func (e *Engine) Candidates(ctx context.Context, answers AnswerSet, profile *UserProfile) ([]catalog.VisaType, error) {
	visas, err := e.catalog.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	return e.filter(ctx, visas, answers, profile)
}

func (e *Engine) next(ctx context.Context, answers AnswerSet, profile *UserProfile) (*QuestionResult, error) {
	candidates, err := e.Candidates(ctx, answers, profile)
	if err != nil {
		return nil, err
	}

	codes := catalog.Codes(candidates)
	if len(candidates) == 0 {
		return completeResult(codes, false), nil
	}
	if canCompleteEarly(len(candidates), answers) {
		return completeResult(codes, true), nil
	}

	key := nextKey(answers, codes)
	if key == KeyComplete {
		return completeResult(codes, false), nil
	}
	return newResult(key, codes), nil
}

func (e *Engine) filter(ctx context.Context, visas []catalog.VisaType, answers AnswerSet, profile *UserProfile) ([]catalog.VisaType, error) {
	out := make([]catalog.VisaType, 0, len(visas))
	for _, v := range visas {
		if v.Active && allowedByAnswers(v.Code, answers) {
			out = append(out, v)
		}
	}

	today := e.now()
	if profile != nil && !profile.IsAdult(today) {
		out = keepIf(out, adultOnlyCodes.Allows)
	}

	if e.rules == nil || len(out) == 0 {
		return out, nil
	}
	excluded, err := e.rules.ExcludedCodes(ctx, out, profile.Facts(today), answers)
	if err != nil {
		return nil, err
	}
	if len(excluded) == 0 {
		return out, nil
	}
	return keepIf(out, func(code string) bool { return !excluded[code] }), nil
}

func allowedByAnswers(code string, answers AnswerSet) bool {
	for _, af := range answerFilters {
		value, ok := answers[af.key]
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		if f, ok := af.lookup(value); ok && !f.Allows(code) {
			return false
		}
	}
	return true
}

func keepIf(visas []catalog.VisaType, allow func(code string) bool) []catalog.VisaType {
	out := visas[:0]
	for _, v := range visas {
		if allow(v.Code) {
			out = append(out, v)
		}
	}
	return out
}

func canCompleteEarly(remaining int, answers AnswerSet) bool {
	if remaining <= smallCandidateSet {
		return true
	}
	answered := 0
	for _, key := range essentialKeys {
		if strings.TrimSpace(answers[key]) != "" {
			answered++
		}
	}
	return answered >= minEssentials && remaining <= earlyCompleteMax
}

// nextKey walks the applicable question orders and returns the first key
// not yet present in answers. A blank answer still counts as asked.
func nextKey(answers AnswerSet, codes []string) string {
	purpose := normalize(answers["purpose"])

	if purpose == "citizenship" && containsAny(codes, "N-400", "N-600") {
		if key, ok := firstUnasked(citizenshipOrder, answers); ok {
			return key
		}
	}
	if (purpose == "adoption" || purpose == "family") && containsAny(codes, adoptionCodes...) {
		if key, ok := firstUnasked(adoptionOrder, answers); ok {
			return key
		}
	}
	if key, ok := firstUnasked(canonicalOrder, answers); ok {
		return key
	}
	return KeyComplete
}

func firstUnasked(order []string, answers AnswerSet) (string, bool) {
	for _, key := range order {
		if _, asked := answers[key]; !asked {
			return key, true
		}
	}
	return "", false
}

func containsAny(codes []string, want ...string) bool {
	for _, c := range codes {
		for _, w := range want {
			if strings.EqualFold(c, w) {
				return true
			}
		}
	}
	return false
}
