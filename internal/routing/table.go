// Package routing holds the fixed model selection tables: the task-by-band
// routing matrix, per-1K-token costs, the fallback graph and the cost helpers.
// Everything here is constructed once and never mutated at runtime.
package routing

import (
	"fmt"
	"math"

	"github.com/routeworks/llm-router/models"
)

// ModelCosts is the per-1K-token cost in cents for each backend.
var ModelCosts = map[models.ModelName]float64{
	models.ModelClaudeSonnet: 0.30,
	models.ModelGPT4o:        0.25,
	models.ModelGeminiPro:    0.18,
	models.ModelDeepSeekV3:   0.14,
	models.ModelGPT4oMini:    0.015,
	models.ModelClaudeHaiku:  0.008,
}

// ExpensiveModelCost is the hypothetical always-use-best-model rate, used by
// the analytics savings calculation.
var ExpensiveModelCost = ModelCosts[models.ModelClaudeSonnet]

// routingMatrix maps (task type, complexity band) to the chosen backend.
var routingMatrix = map[models.TaskType]map[models.ComplexityBand]models.ModelName{
	models.TaskCode: {
		models.BandLow:    models.ModelGPT4oMini,
		models.BandMedium: models.ModelClaudeSonnet,
		models.BandHigh:   models.ModelClaudeSonnet,
	},
	models.TaskMath: {
		models.BandLow:    models.ModelGPT4oMini,
		models.BandMedium: models.ModelDeepSeekV3,
		models.BandHigh:   models.ModelDeepSeekV3,
	},
	models.TaskCreative: {
		models.BandLow:    models.ModelGPT4oMini,
		models.BandMedium: models.ModelGPT4o,
		models.BandHigh:   models.ModelClaudeSonnet,
	},
	models.TaskSummarization: {
		models.BandLow:    models.ModelClaudeHaiku,
		models.BandMedium: models.ModelGPT4oMini,
		models.BandHigh:   models.ModelGeminiPro,
	},
	models.TaskQA: {
		models.BandLow:    models.ModelClaudeHaiku,
		models.BandMedium: models.ModelGPT4oMini,
		models.BandHigh:   models.ModelGPT4o,
	},
	models.TaskTranslation: {
		models.BandLow:    models.ModelGPT4oMini,
		models.BandMedium: models.ModelGPT4o,
		models.BandHigh:   models.ModelGPT4o,
	},
	models.TaskMultiStep: {
		models.BandLow:    models.ModelGPT4oMini,
		models.BandMedium: models.ModelClaudeSonnet,
		models.BandHigh:   models.ModelClaudeSonnet,
	},
}

// routingReasons is the static justification attached to each decision.
var routingReasons = map[models.ModelName]string{
	models.ModelClaudeSonnet: "Best for complex reasoning and code generation",
	models.ModelGPT4o:        "Strong general-purpose model for medium-high complexity",
	models.ModelGeminiPro:    "Excellent for long-context summarization tasks",
	models.ModelDeepSeekV3:   "Specialized in mathematical and logical reasoning",
	models.ModelGPT4oMini:    "Cost-efficient for straightforward tasks",
	models.ModelClaudeHaiku:  "Ultra-fast and cheap for simple lookups",
}

// fallbackOrder maps a failed backend to its single alternate. The graph is
// intentionally not symmetric; a backend without an entry means total failure.
var fallbackOrder = map[models.ModelName]models.ModelName{
	models.ModelClaudeSonnet: models.ModelGPT4o,
	models.ModelGPT4o:        models.ModelClaudeSonnet,
	models.ModelGeminiPro:    models.ModelGPT4o,
	models.ModelDeepSeekV3:   models.ModelGPT4oMini,
	models.ModelGPT4oMini:    models.ModelClaudeHaiku,
	models.ModelClaudeHaiku:  models.ModelGPT4oMini,
}

// BandFor buckets a complexity score: <=3 low, <=6 medium, else high.
func BandFor(complexity float64) models.ComplexityBand {
	switch {
	case complexity <= 3.0:
		return models.BandLow
	case complexity <= 6.0:
		return models.BandMedium
	default:
		return models.BandHigh
	}
}

// Select returns the routed backend for a (task type, complexity) pair with a
// human-readable justification. Total and deterministic.
func Select(taskType models.TaskType, complexity float64) (models.ModelName, string) {
	band := BandFor(complexity)
	model := routingMatrix[taskType][band]
	reason := fmt.Sprintf("%s (complexity %.1f, band=%s)", routingReasons[model], complexity, band)
	return model, reason
}

// Fallback returns the alternate for a failed backend. The second value is
// false when no alternate exists and the request must be treated as failed.
func Fallback(model models.ModelName) (models.ModelName, bool) {
	fb, ok := fallbackOrder[model]
	return fb, ok
}

// Reason returns the static justification text for a backend.
func Reason(model models.ModelName) string {
	return routingReasons[model]
}

// Cost returns the cost in cents for a token count on a backend, rounded to
// four decimal places.
func Cost(model models.ModelName, tokens int) float64 {
	return round4(ModelCosts[model] * float64(tokens) / 1000)
}

// HypotheticalCost is what the same tokens would cost on the most expensive
// backend.
func HypotheticalCost(tokens int) float64 {
	return round4(ExpensiveModelCost * float64(tokens) / 1000)
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
