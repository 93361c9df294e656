package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/liamcoop/visaintake/catalog"
	"github.com/liamcoop/visaintake/rules"
)

// List visa types handler
func (s *Server) handleListVisaTypes(w http.ResponseWriter, r *http.Request) {
	visas, err := s.catalog.ListActive(r.Context())
	if err != nil {
		respondFailure(w, "failed to list visa types", err)
		return
	}
	if visas == nil {
		visas = []catalog.VisaType{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"visaTypes": visas,
	})
}

// Toggle visa type handler
func (s *Server) handleSetVisaActive(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	var req struct {
		Active bool `json:"active"`
	}
	if err := decodeBody(w, r, visaActiveSchema, &req); err != nil {
		respondFailure(w, "invalid request body", err)
		return
	}

	if err := s.setActive(r.Context(), code, req.Active); err != nil {
		respondFailure(w, "failed to update visa type", err)
		return
	}
	if err := s.cached.Invalidate(r.Context()); err != nil {
		respondFailure(w, "failed to invalidate visa catalog cache", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"code":   code,
		"active": req.Active,
	})
}

// List rules handler
func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	list, err := s.rules.ListRules(r.Context())
	if err != nil {
		respondFailure(w, "failed to list rules", err)
		return
	}
	if list == nil {
		list = []*rules.Rule{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"rules": list,
	})
}

// Create rule handler
func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var req CreateRuleRequest
	if err := decodeBody(w, r, createRuleSchema, &req); err != nil {
		respondFailure(w, "invalid request body", err)
		return
	}

	rule := &rules.Rule{
		ID:         uuid.NewString(),
		Name:       req.Name,
		Expression: req.Expression,
		Active:     req.Active == nil || *req.Active,
	}

	// Add rule (this validates and compiles it)
	if err := s.rules.AddRule(r.Context(), rule); err != nil {
		respondFailure(w, "failed to add rule", err)
		return
	}

	respondJSON(w, http.StatusCreated, rule)
}

// Get rule handler
func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	rule, err := s.rules.GetRule(r.Context(), chi.URLParam(r, "ruleId"))
	if err != nil {
		respondFailure(w, "rule not found", err)
		return
	}

	respondJSON(w, http.StatusOK, rule)
}

// Update rule handler. Omitted fields keep their stored values.
func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	var req UpdateRuleRequest
	if err := decodeBody(w, r, updateRuleSchema, &req); err != nil {
		respondFailure(w, "invalid request body", err)
		return
	}

	rule, err := s.rules.GetRule(r.Context(), chi.URLParam(r, "ruleId"))
	if err != nil {
		respondFailure(w, "rule not found", err)
		return
	}
	if req.Name != "" {
		rule.Name = req.Name
	}
	if req.Expression != "" {
		rule.Expression = req.Expression
	}
	if req.Active != nil {
		rule.Active = *req.Active
	}

	if err := s.rules.UpdateRule(r.Context(), rule); err != nil {
		respondFailure(w, "failed to update rule", err)
		return
	}

	respondJSON(w, http.StatusOK, rule)
}

// Delete rule handler
func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := s.rules.DeleteRule(r.Context(), chi.URLParam(r, "ruleId")); err != nil {
		respondFailure(w, "rule not found", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Evaluate rule handler. The rule runs against one visa type, active or not.
func (s *Server) handleEvaluateRule(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRuleRequest
	if err := decodeBody(w, r, evaluateRuleSchema, &req); err != nil {
		respondFailure(w, "invalid request body", err)
		return
	}

	profile, err := req.Profile.profile()
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid dateOfBirth", err)
		return
	}

	visa, err := catalog.GetByCode(r.Context(), s.catalog, req.VisaCode)
	if err != nil {
		respondFailure(w, "visa type not found", err)
		return
	}

	answers := req.Answers
	if answers == nil {
		answers = map[string]string{}
	}
	facts := rules.Facts(visa, profile.Facts(s.now()), answers)

	result, err := s.rules.Evaluate(r.Context(), chi.URLParam(r, "ruleId"), facts)
	if result == nil {
		respondFailure(w, "evaluation failed", err)
		return
	}

	response := map[string]any{
		"ruleId":   result.RuleID,
		"ruleName": result.RuleName,
		"visaCode": result.VisaCode,
		"matched":  result.Matched,
	}
	if err != nil {
		response["error"] = err.Error()
	}
	respondJSON(w, http.StatusOK, response)
}
