package main

import (
	"time"

	"github.com/google/uuid"

	"github.com/liamcoop/visaintake/interview"
	"github.com/liamcoop/visaintake/session"
)

// API Request and Response Models with Swagger annotations

// ProfileRequest carries the optional applicant details for a new session
type ProfileRequest struct {
	DateOfBirth   string `json:"dateOfBirth,omitempty" example:"1990-04-02"`
	Nationality   string `json:"nationality,omitempty" example:"IN"`
	MaritalStatus string `json:"maritalStatus,omitempty" example:"single"`
} // @name ProfileRequest

// StartInterviewRequest represents the request body for starting an interview
type StartInterviewRequest struct {
	UserID  string          `json:"userId" example:"user-42"`
	CaseID  string          `json:"caseId" example:"case-1001" binding:"required"`
	Profile *ProfileRequest `json:"profile,omitempty"`
} // @name StartInterviewRequest

// AnswerRequest represents one answered question
type AnswerRequest struct {
	SessionID   uuid.UUID `json:"sessionId" example:"123e4567-e89b-12d3-a456-426614174000" binding:"required"`
	QuestionKey string    `json:"questionKey" example:"purpose" binding:"required"`
	AnswerValue string    `json:"answerValue" example:"employment"`
} // @name AnswerRequest

// SessionRequest names an existing session
type SessionRequest struct {
	SessionID uuid.UUID `json:"sessionId" example:"123e4567-e89b-12d3-a456-426614174000" binding:"required"`
} // @name SessionRequest

// CaseRequest names a case
type CaseRequest struct {
	CaseID string `json:"caseId" example:"case-1001" binding:"required"`
} // @name CaseRequest

// InterviewResponse is a session together with the question it waits on
type InterviewResponse struct {
	SessionID uuid.UUID                 `json:"sessionId"`
	Status    session.Status            `json:"status" example:"active"`
	StartedAt time.Time                 `json:"startedAt"`
	Steps     []session.Step            `json:"steps"`
	Question  *interview.QuestionResult `json:"question"`
} // @name InterviewResponse

// CompleteResponse carries the recommendation for a finished session
type CompleteResponse struct {
	SessionID              uuid.UUID      `json:"sessionId"`
	Status                 session.Status `json:"status" example:"completed"`
	RecommendationVisaType string         `json:"recommendationVisaType,omitempty" example:"H-1B"`
	VisaTypeID             int            `json:"visaTypeId,omitempty" example:"4"`
	Rationale              string         `json:"rationale,omitempty"`
} // @name CompleteResponse

// SessionSummary is one entry of a case history
type SessionSummary struct {
	ID         uuid.UUID      `json:"id"`
	UserID     string         `json:"userId"`
	Status     session.Status `json:"status"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt *time.Time     `json:"finishedAt,omitempty"`
} // @name SessionSummary

// RecommendationSummary is the most recent recommendation of a case
type RecommendationSummary struct {
	VisaType  string    `json:"visaType" example:"B-2"`
	Rationale string    `json:"rationale"`
	CreatedAt time.Time `json:"createdAt"`
	IsLocked  bool      `json:"isLocked"`
} // @name RecommendationSummary

// HistoryResponse lists the sessions of a case, newest first
type HistoryResponse struct {
	Sessions             []SessionSummary       `json:"sessions"`
	LatestRecommendation *RecommendationSummary `json:"latestRecommendation,omitempty"`
} // @name HistoryResponse

// CreateRuleRequest represents the request body for creating an eligibility rule
type CreateRuleRequest struct {
	Name       string `json:"name" example:"No ESTA for India" binding:"required"`
	Expression string `json:"expression" example:"visa.code == 'ESTA' && profile.nationality == 'IN'" binding:"required"`
	Active     *bool  `json:"active,omitempty" example:"true"`
} // @name CreateRuleRequest

// UpdateRuleRequest represents the request body for updating a rule
type UpdateRuleRequest struct {
	Name       string `json:"name" example:"No ESTA for India"`
	Expression string `json:"expression" example:"visa.code == 'ESTA' && profile.nationality == 'IN'"`
	Active     *bool  `json:"active,omitempty" example:"true"`
} // @name UpdateRuleRequest

// EvaluateRuleRequest tries one rule against a visa type
type EvaluateRuleRequest struct {
	VisaCode string            `json:"visaCode" example:"ESTA" binding:"required"`
	Profile  *ProfileRequest   `json:"profile,omitempty"`
	Answers  map[string]string `json:"answers,omitempty"`
} // @name EvaluateRuleRequest

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error" example:"invalid request body"`
	Details string `json:"details,omitempty" example:"caseId is required"`
} // @name ErrorResponse

// profile converts the request profile, nil when absent.
func (p *ProfileRequest) profile() (*interview.UserProfile, error) {
	if p == nil {
		return nil, nil
	}
	out := &interview.UserProfile{Nationality: p.Nationality, MaritalStatus: p.MaritalStatus}
	if p.DateOfBirth != "" {
		dob, err := time.Parse(time.DateOnly, p.DateOfBirth)
		if err != nil {
			return nil, err
		}
		out.DateOfBirth = &dob
	}
	return out, nil
}
