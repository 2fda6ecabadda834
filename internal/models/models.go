// Package models defines the core data structures for LiveWell.
//
// It includes the check-in session state, the structured plan, and the request
// and response types shared between the flow and api packages.
package models

import (
	"errors"
	"strings"

	"github.com/BTreeMap/LiveWell/internal/frailty"
)

// Error variables for better error handling and testability
var (
	ErrEmptySessionID = errors.New("session_id is required")
	ErrEmptyAnswer    = errors.New("answer is required")
	ErrEmptyRecipient = errors.New("recipient cannot be empty")
)

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
)

// API Response types for consistent JSON responses

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// APIResponseBuilder provides a fluent interface for building API responses.
type APIResponseBuilder struct {
	response APIResponse
}

// NewAPIResponseBuilder creates a new APIResponseBuilder instance.
func NewAPIResponseBuilder() *APIResponseBuilder {
	return &APIResponseBuilder{
		response: APIResponse{},
	}
}

// WithStatus sets the status of the API response.
func (b *APIResponseBuilder) WithStatus(status APIStatus) *APIResponseBuilder {
	b.response.Status = string(status)
	return b
}

// WithMessage sets the message of the API response.
func (b *APIResponseBuilder) WithMessage(message string) *APIResponseBuilder {
	b.response.Message = message
	return b
}

// WithResult sets the result data of the API response.
func (b *APIResponseBuilder) WithResult(result interface{}) *APIResponseBuilder {
	b.response.Result = result
	return b
}

// Build constructs and returns the final APIResponse.
func (b *APIResponseBuilder) Build() APIResponse {
	return b.response
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithResult(result).
		Build()
}

// SuccessWithMessage creates a successful API response with a message and optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithMessage(message).
		WithResult(result).
		Build()
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusError).
		WithMessage(message).
		Build()
}

// ErrorWithResult creates an error API response carrying details in the result field.
func ErrorWithResult(message string, result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusError).
		WithMessage(message).
		WithResult(result).
		Build()
}

// ChatRequest is one conversational turn. Prisma7 optionally carries all seven
// answers inline; keys may use either the short or the long form.
type ChatRequest struct {
	SessionID string         `json:"session_id"`
	Message   string         `json:"message"`
	Prisma7   map[string]any `json:"prisma7,omitempty"`
}

// Validate checks the request. An empty message is a valid turn.
func (r *ChatRequest) Validate() error {
	r.SessionID = strings.TrimSpace(r.SessionID)
	if r.SessionID == "" {
		return ErrEmptySessionID
	}
	return nil
}

// ChatResult is returned for every conversational turn.
type ChatResult struct {
	Reply string   `json:"reply"`
	State *Session `json:"state"`
}

// SessionRequest addresses a session by id.
type SessionRequest struct {
	SessionID string `json:"session_id"`
}

// Validate checks that a session id is present.
func (r *SessionRequest) Validate() error {
	r.SessionID = strings.TrimSpace(r.SessionID)
	if r.SessionID == "" {
		return ErrEmptySessionID
	}
	return nil
}

// PrismaAnswerRequest answers the outstanding PRISMA-7 question of a session.
type PrismaAnswerRequest struct {
	SessionID string `json:"session_id"`
	Answer    string `json:"answer"`
}

// Validate checks that both the session id and the answer are present.
func (r *PrismaAnswerRequest) Validate() error {
	r.SessionID = strings.TrimSpace(r.SessionID)
	if r.SessionID == "" {
		return ErrEmptySessionID
	}
	if strings.TrimSpace(r.Answer) == "" {
		return ErrEmptyAnswer
	}
	return nil
}

// PrismaScoreResult is the standalone PRISMA-7 scoring result.
type PrismaScoreResult struct {
	Score    int          `json:"score"`
	Band     frailty.Band `json:"band"`
	HighRisk bool         `json:"high_risk"`
}

// PrismaIncompleteResult lists the keys lacking a usable answer.
type PrismaIncompleteResult struct {
	Missing []string `json:"missing"`
}

// TwilioWelcomeRequest asks for a proactive welcome to be sent to a Twilio address.
type TwilioWelcomeRequest struct {
	To string `json:"to"`
}

// Validate checks that a recipient is present.
func (r *TwilioWelcomeRequest) Validate() error {
	r.To = strings.TrimSpace(r.To)
	if r.To == "" {
		return ErrEmptyRecipient
	}
	return nil
}
