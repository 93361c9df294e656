package rules

import (
	"errors"
	"time"
)

var (
	// ErrRuleNotFound is returned when a rule ID does not exist.
	ErrRuleNotFound = errors.New("eligibility rule not found")

	// ErrRuleExists is returned when adding a rule whose ID is taken.
	ErrRuleExists = errors.New("eligibility rule already exists")

	// ErrInvalidRule is returned when a rule fails validation or compilation.
	ErrInvalidRule = errors.New("rule validation failed")
)

// Rule is an operator-administered CEL eligibility rule. When Expression
// evaluates to true for a visa type, that visa type is excluded from the
// interview's candidate set.
type Rule struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Expression string    `json:"expression"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// EvaluationResult contains the outcome of evaluating a rule against one visa type.
type EvaluationResult struct {
	RuleID   string `json:"ruleId"`
	RuleName string `json:"ruleName"`
	VisaCode string `json:"visaCode"`
	Matched  bool   `json:"matched"`
	Error    error  `json:"-"`
	Trace    any    `json:"-"` // CEL evaluation state
}
