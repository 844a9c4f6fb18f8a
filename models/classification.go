package models

// SignalBreakdown maps each complexity signal to its clamped [0,10] value.
// Produced once per classification and exposed for observability.
type SignalBreakdown map[string]float64

// Signal names used in SignalBreakdown.
const (
	SignalTokenLength          = "token_length"
	SignalTaskTypeMatch        = "task_type_match"
	SignalReasoningDepth       = "reasoning_depth"
	SignalDomainSpecificity    = "domain_specificity"
	SignalContextNeeds         = "context_needs"
	SignalVocabularyComplexity = "vocabulary_complexity"
)

// ClassificationResult is the value produced by the classifier for one prompt.
// Confidence and complexity are derived from the signals, never set directly.
type ClassificationResult struct {
	TaskType   TaskType        `json:"task_type"`
	Complexity float64         `json:"complexity"`
	Confidence float64         `json:"confidence"`
	Signals    SignalBreakdown `json:"signals"`
}

// RoutingDecision records which backend a request was sent to and why.
type RoutingDecision struct {
	Model     ModelName `json:"model"`
	Reason    string    `json:"routing_reason"`
	WasRouted bool      `json:"was_routed"`
}
