package rules

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/liamcoop/visaintake/catalog"
	"github.com/liamcoop/visaintake/internal/logger"
	"github.com/liamcoop/visaintake/internal/metrics"
)

// costLimit bounds the work a single evaluation may do.
const costLimit = 1000000

type compiledRule struct {
	rule    *Rule
	program cel.Program
}

// Engine compiles eligibility rules and evaluates them per visa type.
// Compiled programs are swapped under an RWMutex so evaluation never blocks
// on a concurrent recompile. Mutations invalidate the active snapshot; the
// next evaluation reloads it from the store.
type Engine struct {
	env      *cel.Env
	store    RuleStore
	programs map[string]compiledRule // ruleID -> compiled program
	active   []string                // active rule IDs, oldest first
	loaded   bool
	version  uint64 // bumped by every mutation
	mu       sync.RWMutex
}

// NewEnvironment declares the variables available to rule expressions:
//
//	visa    {id, code, name}
//	profile {age, adult, hasDateOfBirth, nationality, maritalStatus}
//	answers map of question key to answer value
func NewEnvironment() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable("visa", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("profile", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("answers", cel.MapType(cel.StringType, cel.StringType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return env, nil
}

// NewEngine creates an engine and compiles every active rule in store.
func NewEngine(ctx context.Context, store RuleStore) (*Engine, error) {
	env, err := NewEnvironment()
	if err != nil {
		return nil, err
	}

	en := &Engine{
		env:      env,
		store:    store,
		programs: make(map[string]compiledRule),
	}

	if err := en.Reload(ctx); err != nil {
		return nil, fmt.Errorf("failed to compile rules: %w", err)
	}
	return en, nil
}

// Compile type-checks an expression and builds a program with the cost
// limit applied. Expressions must produce a bool.
func (en *Engine) Compile(expression string) (cel.Program, error) {
	ast, issues := en.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) && !ast.OutputType().IsExactType(cel.DynType) {
		return nil, fmt.Errorf("compile error: expression must return bool, got %s", ast.OutputType())
	}

	prog, err := en.env.Program(ast,
		cel.EvalOptions(cel.OptTrackState),
		cel.CostLimit(costLimit),
	)
	if err != nil {
		return nil, fmt.Errorf("program creation error: %w", err)
	}
	return prog, nil
}

// Reload lists active rules and recompiles any whose expression changed.
func (en *Engine) Reload(ctx context.Context) error {
	en.mu.RLock()
	current := en.programs
	version := en.version
	en.mu.RUnlock()

	active, err := en.store.ListActive(ctx)
	if err != nil {
		return err
	}

	programs := make(map[string]compiledRule, len(active))
	ids := make([]string, 0, len(active))
	for _, r := range active {
		if existing, ok := current[r.ID]; ok && existing.rule.Expression == r.Expression {
			programs[r.ID] = compiledRule{rule: r, program: existing.program}
		} else {
			prog, err := en.Compile(r.Expression)
			if err != nil {
				return fmt.Errorf("failed to compile rule %s: %w", r.ID, err)
			}
			programs[r.ID] = compiledRule{rule: r, program: prog}
		}
		ids = append(ids, r.ID)
	}

	en.mu.Lock()
	en.programs = programs
	en.active = ids
	// A mutation during the listing leaves the snapshot marked stale.
	en.loaded = en.version == version
	en.mu.Unlock()

	return nil
}

func (en *Engine) invalidate() {
	en.mu.Lock()
	en.loaded = false
	en.version++
	en.mu.Unlock()
}

// snapshot returns the active compiled rules, reloading after a mutation.
func (en *Engine) snapshot(ctx context.Context) ([]compiledRule, error) {
	en.mu.RLock()
	loaded := en.loaded
	en.mu.RUnlock()

	if !loaded {
		if err := en.Reload(ctx); err != nil {
			return nil, err
		}
	}

	en.mu.RLock()
	defer en.mu.RUnlock()
	out := make([]compiledRule, 0, len(en.active))
	for _, id := range en.active {
		out = append(out, en.programs[id])
	}
	return out, nil
}

// AddRule validates and compiles a rule before storing it.
func (en *Engine) AddRule(ctx context.Context, r *Rule) error {
	if err := ValidateRule(r); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRule, err)
	}
	if _, err := en.Compile(r.Expression); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRule, err)
	}

	if err := en.store.Add(ctx, r); err != nil {
		return err
	}

	en.invalidate()
	return nil
}

// UpdateRule validates the new expression before updating the store.
func (en *Engine) UpdateRule(ctx context.Context, r *Rule) error {
	if err := ValidateRule(r); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRule, err)
	}
	if _, err := en.Compile(r.Expression); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRule, err)
	}

	if err := en.store.Update(ctx, r); err != nil {
		return err
	}

	en.invalidate()
	return nil
}

// DeleteRule removes a rule from the store.
func (en *Engine) DeleteRule(ctx context.Context, ruleID string) error {
	if err := en.store.Delete(ctx, ruleID); err != nil {
		return err
	}

	en.invalidate()
	return nil
}

func (en *Engine) GetRule(ctx context.Context, ruleID string) (*Rule, error) {
	return en.store.Get(ctx, ruleID)
}

func (en *Engine) ListRules(ctx context.Context) ([]*Rule, error) {
	return en.store.List(ctx)
}

// Facts builds the activation for one visa type.
func Facts(visa catalog.VisaType, profile map[string]any, answers map[string]string) map[string]any {
	if profile == nil {
		profile = map[string]any{}
	}
	if answers == nil {
		answers = map[string]string{}
	}
	return map[string]any{
		"visa": map[string]any{
			"id":   visa.ID,
			"code": visa.Code,
			"name": visa.Name,
		},
		"profile": profile,
		"answers": answers,
	}
}

// Evaluate runs one rule, active or not, against facts. It is used to
// try a rule out before activating it.
func (en *Engine) Evaluate(ctx context.Context, ruleID string, facts map[string]any) (*EvaluationResult, error) {
	rule, err := en.store.Get(ctx, ruleID)
	if err != nil {
		return nil, err
	}

	prog, err := en.Compile(rule.Expression)
	if err != nil {
		return nil, err
	}

	result := evaluate(compiledRule{rule: rule, program: prog}, facts)
	if visa, ok := facts["visa"].(map[string]any); ok {
		result.VisaCode, _ = visa["code"].(string)
	}
	return result, result.Error
}

func evaluate(cr compiledRule, facts map[string]any) *EvaluationResult {
	result := &EvaluationResult{RuleID: cr.rule.ID, RuleName: cr.rule.Name}

	out, details, err := cr.program.Eval(facts)
	if details != nil {
		result.Trace = details.State()
	}
	if err != nil {
		result.Error = err
		return result
	}

	matched, ok := out.Value().(bool)
	if !ok {
		result.Error = fmt.Errorf("rule %s returned %s, not bool", cr.rule.ID, out.Type())
		return result
	}
	result.Matched = matched
	return result
}

// ExcludedCodes returns the codes of visas excluded by at least one active
// rule. A rule that errors or yields a non-bool never excludes. A store
// fault while reloading rules is returned.
func (en *Engine) ExcludedCodes(ctx context.Context, visas []catalog.VisaType, profile map[string]any, answers map[string]string) (map[string]bool, error) {
	compiled, err := en.snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load eligibility rules: %w", err)
	}
	if len(compiled) == 0 {
		return nil, nil
	}

	excluded := make(map[string]bool)
	for _, visa := range visas {
		facts := Facts(visa, profile, answers)
		for _, cr := range compiled {
			res := evaluate(cr, facts)
			if res.Error != nil {
				logger.WarnRuleEval()
				metrics.EligibilityRuleErrors.WithLabelValues(cr.rule.ID).Inc()
				logger.Debug("eligibility rule evaluation failed",
					"ruleId", cr.rule.ID, "visa", visa.Code, "error", res.Error)
				continue
			}
			if res.Matched {
				logger.Trace("eligibility rule excluded visa type", "ruleId", cr.rule.ID, "visa", visa.Code)
				excluded[visa.Code] = true
				break
			}
		}
	}
	return excluded, nil
}
