// Package gateway provides the backend completion collaborators: a simulated
// gateway used in degraded mode and an OpenRouter-backed gateway for full mode.
// Both satisfy Completer so the dispatcher and comparison services stay
// agnostic about which path is active.
package gateway

import (
	"context"
	"fmt"

	"github.com/routeworks/llm-router/models"
)

// Request carries what a backend needs to produce one completion.
type Request struct {
	Prompt   string
	TaskType models.TaskType
	Model    models.ModelName
}

// Completion is the terminal outcome of one backend invocation.
type Completion struct {
	ResponseText string
	LatencyMs    int
	TokensUsed   int
}

// StreamEvent is one unit of a streaming completion. Content is set on chunk
// events; Final marks terminal success; Err marks terminal failure. After a
// terminal event the channel is closed.
type StreamEvent struct {
	Content string
	Final   *Completion
	Err     error
}

// Completer is the completion collaborator contract. CompleteStream returns
// immediately; the producer goroutine must honor ctx cancellation and close
// the returned channel when it stops for any reason.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Completion, error)
	CompleteStream(ctx context.Context, req Request) (<-chan StreamEvent, error)
}

// ProviderError is returned when a backend call fails, simulated or real.
type ProviderError struct {
	Model   models.ModelName
	Message string
	Cause   error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Model, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Model, e.Message)
}

// Unwrap implements error unwrapping
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// estimateTokens approximates token usage from whitespace-separated words.
func estimateTokens(text string, perWord float64) int {
	words := 0
	inWord := false
	for _, r := range text {
		if r == ' ' || r == '\n' || r == '\t' {
			inWord = false
		} else if !inWord {
			inWord = true
			words++
		}
	}
	tokens := int(float64(words) * perWord)
	if tokens < 10 {
		return 10
	}
	return tokens
}
