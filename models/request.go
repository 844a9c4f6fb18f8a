package models

// Request DTOs carry validator tags; handlers run them through a shared
// validator instance before touching any service.

// ClassifyRequest asks for classification only, no completion.
type ClassifyRequest struct {
	Prompt string `json:"prompt" validate:"required,min=1,max=10000"`
}

// CompletionRequest asks for a routed (or overridden) completion.
// Model, when set, bypasses automatic routing.
type CompletionRequest struct {
	Prompt string     `json:"prompt" validate:"required,min=1,max=10000"`
	Stream *bool      `json:"stream,omitempty"`
	Model  *ModelName `json:"model,omitempty"`
}

// Streaming reports whether the caller wants an SSE response. Defaults to true
// to match the primary UI flow.
func (r *CompletionRequest) Streaming() bool {
	return r.Stream == nil || *r.Stream
}

// ComparisonRequest starts a multi-backend comparison run. Models is optional;
// when absent the comparison service picks defaults for the detected task type.
type ComparisonRequest struct {
	Prompt string      `json:"prompt" validate:"required,min=1,max=10000"`
	Models []ModelName `json:"models,omitempty" validate:"omitempty,min=2,max=3"`
}

// VoteRequest records the winning backend of a comparison session.
type VoteRequest struct {
	WinnerModel ModelName `json:"winner_model" validate:"required"`
}

// ClassificationResponse is the classify endpoint payload: the classifier
// output plus the routing recommendation derived from it.
type ClassificationResponse struct {
	ClassificationResult
	RecommendedModel ModelName `json:"recommended_model"`
	RoutingReason    string    `json:"routing_reason"`
}

// CompletionMetadata is emitted before any backend I/O, both as the SSE
// metadata event and inside the non-streaming response envelope.
type CompletionMetadata struct {
	RequestID     string    `json:"request_id"`
	TaskType      TaskType  `json:"task_type"`
	Complexity    float64   `json:"complexity"`
	Confidence    float64   `json:"confidence"`
	Model         ModelName `json:"model"`
	RoutingReason string    `json:"routing_reason"`
	WasRouted     bool      `json:"was_routed"`
}

// CompletionResponse is the non-streaming completion payload.
type CompletionResponse struct {
	Metadata     CompletionMetadata `json:"metadata"`
	ResponseText string             `json:"response_text"`
	LatencyMs    int                `json:"latency_ms"`
	TokensUsed   int                `json:"tokens_used"`
	CostCents    float64            `json:"cost_cents"`
}

// ModeInfo describes the current serving mode for the mode endpoint.
type ModeInfo struct {
	Mode              ServingMode `json:"mode"`
	Reason            string      `json:"reason"`
	SpendTodayCents   float64     `json:"spend_today_cents"`
	SpendCapCents     float64     `json:"spend_cap_cents"`
	RequestsRemaining *int        `json:"requests_remaining"`
}
