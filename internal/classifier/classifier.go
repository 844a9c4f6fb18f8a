// Package classifier scores prompts into a task type, a confidence and a
// complexity estimate. Classification is a pure function: deterministic, total
// and free of I/O, so every caller can run it before any backend dispatch.
package classifier

import (
	"math"
	"sort"
	"strings"

	"github.com/routeworks/llm-router/models"
)

// defaultConfidence is returned when no profile scores above zero. The
// confidence formula divides by (top+second+epsilon); a zero top score is
// special-cased to the QA default instead of flowing through that division.
const defaultConfidence = 0.3

// Signal weights. They sum to 1.0; complexity is their weighted sum.
var signalWeights = map[string]float64{
	models.SignalTokenLength:          0.20,
	models.SignalTaskTypeMatch:        0.15,
	models.SignalReasoningDepth:       0.25,
	models.SignalDomainSpecificity:    0.15,
	models.SignalContextNeeds:         0.15,
	models.SignalVocabularyComplexity: 0.10,
}

// Classify runs the full pipeline: task type detection plus complexity
// scoring. It never fails; unmatched prompts fall back to QA.
func Classify(prompt string) models.ClassificationResult {
	taskType, confidence := DetectTaskType(prompt)
	complexity, signals := ComputeComplexity(prompt, taskType, confidence)

	return models.ClassificationResult{
		TaskType:   taskType,
		Complexity: complexity,
		Confidence: confidence,
		Signals:    signals,
	}
}

// DetectTaskType scores the prompt against every task profile and returns the
// winner with its confidence. Confidence is top/(top+second+0.001) clamped to
// [0,1]; a zero top score yields the QA default at fixed confidence.
func DetectTaskType(prompt string) (models.TaskType, float64) {
	lower := strings.ToLower(prompt)

	type scored struct {
		taskType models.TaskType
		score    float64
	}
	scores := make([]scored, 0, len(taskProfiles))

	for taskType, profile := range taskProfiles {
		keywordHits := 0
		for _, kw := range profile.keywords {
			if strings.Contains(lower, kw) {
				keywordHits++
			}
		}
		regexHits := 0
		for _, pat := range profile.patterns {
			if pat.MatchString(lower) {
				regexHits++
			}
		}
		score := (float64(keywordHits)*1.0 + float64(regexHits)*2.0) * profile.weight
		scores = append(scores, scored{taskType, score})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		// Deterministic tie-break so repeated calls agree.
		return scores[i].taskType < scores[j].taskType
	})

	top := scores[0]
	if top.score == 0 {
		return models.TaskQA, defaultConfidence
	}

	second := 0.0
	if len(scores) > 1 {
		second = scores[1].score
	}
	confidence := top.score / (top.score + second + 0.001)
	return top.taskType, round(math.Min(1.0, confidence), 3)
}

// ComputeComplexity derives the [1,10] complexity score from six signals, each
// independently clamped to [0,10]. The breakdown is returned for observability.
func ComputeComplexity(prompt string, taskType models.TaskType, confidence float64) (float64, models.SignalBreakdown) {
	words := strings.Fields(prompt)
	wordCount := len(words)
	lower := strings.ToLower(prompt)

	// Signal 1: token length, 50 words scales to 10.
	tokenLength := math.Min(10.0, float64(wordCount)/50.0*10.0)

	// Signal 2: task base difficulty scaled by confidence.
	taskBase, ok := taskBaseComplexity[taskType]
	if !ok {
		taskBase = 5.0
	}
	taskTypeMatch := taskBase * confidence

	// Signal 3: reasoning marker density.
	reasoningHits := 0
	for _, marker := range reasoningMarkers {
		if strings.Contains(lower, marker) {
			reasoningHits++
		}
	}
	reasoningDepth := math.Min(10.0, float64(reasoningHits)*1.5)

	// Signal 4: domain vocabulary density.
	domainHits := 0
	for _, terms := range domainVocabulary {
		for _, term := range terms {
			if strings.Contains(lower, term) {
				domainHits++
			}
		}
	}
	domainSpecificity := math.Min(10.0, float64(domainHits)*2.5)

	// Signal 5: context dependency heuristics, additive then capped.
	contextScore := 0.0
	for _, ref := range []string{"above", "previous", "earlier", "mentioned", "as shown", "given the"} {
		if strings.Contains(lower, ref) {
			contextScore += 2.0
		}
	}
	if strings.Count(prompt, "\n") > 3 {
		contextScore += 2.0
	}
	if wordCount > 200 {
		contextScore += 3.0
	}
	contextNeeds := math.Min(10.0, contextScore)

	// Signal 6: average word length as a vocabulary sophistication proxy.
	totalLen := 0
	for _, w := range words {
		totalLen += len(w)
	}
	avgWordLen := float64(totalLen) / math.Max(1, float64(wordCount))
	vocabularyComplexity := math.Min(10.0, (avgWordLen-3.0)*2.5)
	vocabularyComplexity = math.Max(0.0, vocabularyComplexity)

	signals := models.SignalBreakdown{
		models.SignalTokenLength:          round(tokenLength, 2),
		models.SignalTaskTypeMatch:        round(taskTypeMatch, 2),
		models.SignalReasoningDepth:       round(reasoningDepth, 2),
		models.SignalDomainSpecificity:    round(domainSpecificity, 2),
		models.SignalContextNeeds:         round(contextNeeds, 2),
		models.SignalVocabularyComplexity: round(vocabularyComplexity, 2),
	}

	raw := 0.0
	for name, weight := range signalWeights {
		raw += signals[name] * weight
	}
	complexity := math.Max(1.0, math.Min(10.0, round(raw, 1)))

	return complexity, signals
}

func round(v float64, places int) float64 {
	shift := math.Pow(10, float64(places))
	return math.Round(v*shift) / shift
}
