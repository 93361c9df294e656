package interview

import (
	"context"
	"time"

	"github.com/liamcoop/visaintake/catalog"
)

// KeyComplete is the question key returned once no further question is needed.
const KeyComplete = "complete"

// AnswerSet maps a question key to the answer given. A nil set is empty.
type AnswerSet map[string]string

// UserProfile carries the applicant details used by profile filters.
// Every field is optional.
type UserProfile struct {
	DateOfBirth   *time.Time `json:"dateOfBirth,omitempty"`
	Nationality   string     `json:"nationality,omitempty"`
	MaritalStatus string     `json:"maritalStatus,omitempty"`
}

// Option is one selectable answer to a question.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// QuestionResult is the outcome of one sequencing step: the next question to
// ask (or KeyComplete) and the visa types still in play.
type QuestionResult struct {
	Key                string   `json:"key"`
	Question           string   `json:"question"`
	Type               string   `json:"type"`
	Options            []Option `json:"options,omitempty"`
	RemainingVisaTypes int      `json:"remainingVisaTypes"`
	RemainingVisaCodes []string `json:"remainingVisaCodes"`
}

// Complete reports whether the interview has finished.
func (q *QuestionResult) Complete() bool {
	return q.Key == KeyComplete
}

// RecommendationResult is a recommender's suggestion.
type RecommendationResult struct {
	VisaTypeID int    `json:"visaTypeId"`
	Rationale  string `json:"rationale"`
}

// Recommender turns a finished answer set into a single visa suggestion.
// A nil result with a nil error means no suggestion could be made.
type Recommender interface {
	Recommend(ctx context.Context, answers map[string]string, nationality string) (*RecommendationResult, error)
}

// EligibilityRules reports which visa types operator-defined rules exclude
// for a given profile and answer set.
type EligibilityRules interface {
	ExcludedCodes(ctx context.Context, visas []catalog.VisaType, profile map[string]any, answers map[string]string) (map[string]bool, error)
}
