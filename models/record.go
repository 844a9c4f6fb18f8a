package models

import (
	"time"

	"github.com/google/uuid"
)

// RequestRecord is the persisted outcome of one routed completion. The model
// field holds whichever backend actually answered (primary or fallback).
type RequestRecord struct {
	ID           string    `json:"id" db:"id"`
	Prompt       string    `json:"prompt" db:"prompt"`
	TaskType     TaskType  `json:"task_type" db:"task_type"`
	Complexity   float64   `json:"complexity" db:"complexity"`
	Confidence   float64   `json:"confidence" db:"confidence"`
	Model        ModelName `json:"model" db:"model"`
	WasRouted    bool      `json:"was_routed" db:"was_routed"`
	ResponseText string    `json:"response_text" db:"response_text"`
	LatencyMs    int       `json:"latency_ms" db:"latency_ms"`
	TokensUsed   int       `json:"tokens_used" db:"tokens_used"`
	CostCents    float64   `json:"cost_cents" db:"cost_cents"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// ComparisonSession identifies one multi-backend comparison run. The winner is
// attached later by a vote; sessions are never deleted by the core.
type ComparisonSession struct {
	ID          string      `json:"id" db:"id"`
	Prompt      string      `json:"prompt" db:"prompt"`
	TaskType    TaskType    `json:"task_type" db:"task_type"`
	Complexity  float64     `json:"complexity" db:"complexity"`
	Models      []ModelName `json:"models" db:"models"`
	WinnerModel *ModelName  `json:"winner_model,omitempty" db:"winner_model"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
}

// NewComparisonSession creates a session with a fresh ID.
func NewComparisonSession(prompt string, taskType TaskType, complexity float64, models []ModelName) *ComparisonSession {
	return &ComparisonSession{
		ID:         uuid.New().String(),
		Prompt:     prompt,
		TaskType:   taskType,
		Complexity: complexity,
		Models:     models,
		CreatedAt:  time.Now().UTC(),
	}
}

// ComparisonResult is one backend's outcome within a comparison session.
// A failed backend is recorded with Error true and zeroed metrics.
type ComparisonResult struct {
	ID           string    `json:"id" db:"id"`
	SessionID    string    `json:"session_id" db:"session_id"`
	Model        ModelName `json:"model" db:"model"`
	ResponseText string    `json:"response_text" db:"response_text"`
	LatencyMs    int       `json:"latency_ms" db:"latency_ms"`
	TokensUsed   int       `json:"tokens_used" db:"tokens_used"`
	CostCents    float64   `json:"cost_cents" db:"cost_cents"`
	Error        bool      `json:"error,omitempty" db:"error"`
}
