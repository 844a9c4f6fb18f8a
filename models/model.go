package models

// ModelName identifies one of the interchangeable completion backends.
// Costs, latency profiles and routing entries are keyed by it.
type ModelName string

const (
	ModelClaudeSonnet ModelName = "claude-3.5-sonnet"
	ModelGPT4o        ModelName = "gpt-4o"
	ModelGeminiPro    ModelName = "gemini-1.5-pro"
	ModelDeepSeekV3   ModelName = "deepseek-v3"
	ModelGPT4oMini    ModelName = "gpt-4o-mini"
	ModelClaudeHaiku  ModelName = "claude-3-haiku"
)

// AllModels lists every backend in a stable order.
var AllModels = []ModelName{
	ModelClaudeSonnet,
	ModelGPT4o,
	ModelGeminiPro,
	ModelDeepSeekV3,
	ModelGPT4oMini,
	ModelClaudeHaiku,
}

// IsValid reports whether m is a known backend.
func (m ModelName) IsValid() bool {
	for _, known := range AllModels {
		if m == known {
			return true
		}
	}
	return false
}
