// Package recommend maps a finished interview to a single visa suggestion.
package recommend

import (
	"context"
	"fmt"
	"strings"

	"github.com/liamcoop/visaintake/catalog"
	"github.com/liamcoop/visaintake/internal/logger"
	"github.com/liamcoop/visaintake/interview"
)

const (
	touristCode   = "B-2"
	specialtyCode = "H-1B"

	touristRationale   = "Based on your purpose of travel, a B-2 Tourist Visa is recommended."
	specialtyRationale = "Based on your employment purpose and employer sponsorship, an H-1B Specialty Occupation Visa is recommended."
)

// RuleBasedRecommender picks a visa from the purpose and sponsorship answers
// and resolves its ID from the catalog.
type RuleBasedRecommender struct {
	catalog catalog.Catalog
}

var _ interview.Recommender = (*RuleBasedRecommender)(nil)

// NewRuleBasedRecommender creates a recommender backed by c.
func NewRuleBasedRecommender(c catalog.Catalog) *RuleBasedRecommender {
	return &RuleBasedRecommender{catalog: c}
}

// Recommend returns nil when the catalog has no active visa types.
// Nationality does not change the outcome.
func (r *RuleBasedRecommender) Recommend(ctx context.Context, answers map[string]string, nationality string) (*interview.RecommendationResult, error) {
	code, rationale := decide(answers)

	visas, err := r.catalog.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve recommended visa: %w", err)
	}

	id, ok := resolveID(visas, code)
	if !ok {
		logger.Warn("no visa types available for recommendation", "code", code)
		return nil, nil
	}

	logger.Debug("recommendation made", "code", code, "visaTypeId", id, "nationality", nationality)
	return &interview.RecommendationResult{VisaTypeID: id, Rationale: rationale}, nil
}

func decide(answers map[string]string) (code, rationale string) {
	purpose := normalize(answers["purpose"])
	sponsor := normalize(answers["hasEmployerSponsor"])

	switch purpose {
	case "employment", "work":
		if sponsor == "yes" || sponsor == "true" {
			return specialtyCode, specialtyRationale
		}
	}
	return touristCode, touristRationale
}

// resolveID finds code, then falls back to B-2, then to the first visa.
func resolveID(visas []catalog.VisaType, code string) (int, bool) {
	for _, want := range []string{code, touristCode} {
		if v, err := catalog.Find(visas, want); err == nil {
			return v.ID, true
		}
	}
	if len(visas) == 0 {
		return 0, false
	}
	return visas[0].ID, true
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
