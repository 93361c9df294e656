package main

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/liamcoop/visaintake/interview"
	"github.com/liamcoop/visaintake/rules"
	"github.com/liamcoop/visaintake/session"
)

func interviewResponse(sess *session.Session, q *interview.QuestionResult) InterviewResponse {
	steps := sess.Steps
	if steps == nil {
		steps = []session.Step{}
	}
	return InterviewResponse{
		SessionID: sess.ID,
		Status:    sess.Status,
		StartedAt: sess.StartedAt,
		Steps:     steps,
		Question:  q,
	}
}

// Start interview handler
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req StartInterviewRequest
	if err := decodeBody(w, r, startSchema, &req); err != nil {
		respondFailure(w, "invalid request body", err)
		return
	}

	profile, err := req.Profile.profile()
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid dateOfBirth", err)
		return
	}

	sess, q, err := s.sessions.Start(r.Context(), req.UserID, strings.TrimSpace(req.CaseID), profile)
	if err != nil {
		respondFailure(w, "failed to start interview", err)
		return
	}

	respondJSON(w, http.StatusCreated, interviewResponse(sess, q))
}

// Answer handler
func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req AnswerRequest
	if err := decodeBody(w, r, answerSchema, &req); err != nil {
		respondFailure(w, "invalid request body", err)
		return
	}
	if err := rules.ValidateIdentifier(req.QuestionKey); err != nil {
		respondError(w, http.StatusBadRequest, "invalid questionKey", err)
		return
	}

	sess, q, err := s.sessions.Answer(r.Context(), req.SessionID, req.QuestionKey, req.AnswerValue)
	if err != nil {
		respondFailure(w, "failed to record answer", err)
		return
	}

	respondJSON(w, http.StatusOK, interviewResponse(sess, q))
}

// Next question handler
func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid sessionId", err)
		return
	}

	sess, q, err := s.sessions.Next(r.Context(), id)
	if err != nil {
		respondFailure(w, "failed to get next question", err)
		return
	}

	respondJSON(w, http.StatusOK, interviewResponse(sess, q))
}

// Complete handler
func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if err := decodeBody(w, r, sessionSchema, &req); err != nil {
		respondFailure(w, "invalid request body", err)
		return
	}

	sess, err := s.sessions.Complete(r.Context(), req.SessionID)
	if err != nil {
		respondFailure(w, "failed to complete interview", err)
		return
	}

	resp := CompleteResponse{SessionID: sess.ID, Status: sess.Status}
	if rec := sess.Recommendation; rec != nil {
		resp.VisaTypeID = rec.VisaTypeID
		resp.Rationale = rec.Rationale
		resp.RecommendationVisaType = s.visaCode(r.Context(), rec.VisaTypeID)
	}
	respondJSON(w, http.StatusOK, resp)
}

// Rerun handler
func (s *Server) handleRerun(w http.ResponseWriter, r *http.Request) {
	var req CaseRequest
	if err := decodeBody(w, r, caseSchema, &req); err != nil {
		respondFailure(w, "invalid request body", err)
		return
	}

	sess, q, err := s.sessions.Rerun(r.Context(), strings.TrimSpace(req.CaseID))
	if err != nil {
		respondFailure(w, "failed to rerun interview", err)
		return
	}

	respondJSON(w, http.StatusCreated, interviewResponse(sess, q))
}

// Lock handler
func (s *Server) handleLock(w http.ResponseWriter, r *http.Request) {
	var req CaseRequest
	if err := decodeBody(w, r, caseSchema, &req); err != nil {
		respondFailure(w, "invalid request body", err)
		return
	}

	caseID := strings.TrimSpace(req.CaseID)
	if err := s.sessions.Lock(r.Context(), caseID); err != nil {
		respondFailure(w, "failed to lock interview", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"caseId": caseID,
		"status": string(session.StatusLocked),
	})
}

// History handler
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	caseID := strings.TrimSpace(r.URL.Query().Get("caseId"))
	if caseID == "" {
		respondError(w, http.StatusBadRequest, "caseId is required", nil)
		return
	}

	sessions, err := s.sessions.History(r.Context(), caseID)
	if err != nil {
		respondFailure(w, "failed to load history", err)
		return
	}

	resp := HistoryResponse{Sessions: make([]SessionSummary, 0, len(sessions))}
	for _, sess := range sessions {
		resp.Sessions = append(resp.Sessions, SessionSummary{
			ID:         sess.ID,
			UserID:     sess.UserID,
			Status:     sess.Status,
			StartedAt:  sess.StartedAt,
			FinishedAt: sess.FinishedAt,
		})
		if resp.LatestRecommendation != nil || sess.Recommendation == nil {
			continue
		}
		latest := &RecommendationSummary{
			VisaType:  s.visaCode(r.Context(), sess.Recommendation.VisaTypeID),
			Rationale: sess.Recommendation.Rationale,
			IsLocked:  sess.LockedAt != nil,
		}
		if sess.FinishedAt != nil {
			latest.CreatedAt = *sess.FinishedAt
		}
		resp.LatestRecommendation = latest
	}

	respondJSON(w, http.StatusOK, resp)
}

// visaCode resolves a visa type ID to its code, empty when unknown.
func (s *Server) visaCode(ctx context.Context, id int) string {
	visas, err := s.catalog.ListActive(ctx)
	if err != nil {
		return ""
	}
	for _, v := range visas {
		if v.ID == id {
			return v.Code
		}
	}
	return ""
}
