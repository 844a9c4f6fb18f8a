package routing

import (
	"testing"

	"github.com/routeworks/llm-router/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBandFor_Thresholds(t *testing.T) {
	tests := []struct {
		complexity float64
		expected   models.ComplexityBand
	}{
		{1.0, models.BandLow},
		{3.0, models.BandLow},
		{3.1, models.BandMedium},
		{6.0, models.BandMedium},
		{6.1, models.BandHigh},
		{10.0, models.BandHigh},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, BandFor(tt.complexity), "complexity %.1f", tt.complexity)
	}
}

func TestSelect_TotalOverAllPairs(t *testing.T) {
	for _, taskType := range models.AllTaskTypes {
		for _, complexity := range []float64{1.0, 3.0, 4.5, 6.0, 7.3, 10.0} {
			model, reason := Select(taskType, complexity)
			assert.True(t, model.IsValid(), "task=%s complexity=%.1f", taskType, complexity)
			assert.NotEmpty(t, reason)
			assert.Contains(t, reason, string(BandFor(complexity)))
		}
	}
}

func TestSelect_CodeTaskRoutesToSonnet(t *testing.T) {
	model, _ := Select(models.TaskCode, 5.0)
	assert.Equal(t, models.ModelClaudeSonnet, model)

	model, _ = Select(models.TaskCode, 2.0)
	assert.Equal(t, models.ModelGPT4oMini, model)
}

func TestFallback_EveryModelHasAlternate(t *testing.T) {
	for _, model := range models.AllModels {
		fb, ok := Fallback(model)
		require.True(t, ok, "model %s", model)
		assert.True(t, fb.IsValid())
		assert.NotEqual(t, model, fb)
	}
}

func TestFallback_KnownPairs(t *testing.T) {
	fb, ok := Fallback(models.ModelClaudeSonnet)
	require.True(t, ok)
	assert.Equal(t, models.ModelGPT4o, fb)

	fb, ok = Fallback(models.ModelGPT4oMini)
	require.True(t, ok)
	assert.Equal(t, models.ModelClaudeHaiku, fb)
}

func TestCost(t *testing.T) {
	assert.Equal(t, 0.3, Cost(models.ModelClaudeSonnet, 1000))
	assert.Equal(t, 0.15, Cost(models.ModelClaudeSonnet, 500))
	assert.Equal(t, 0.0075, Cost(models.ModelGPT4oMini, 500))
	assert.Equal(t, 0.0, Cost(models.ModelClaudeSonnet, 0))
}

func TestHypotheticalCost_MatchesMostExpensiveModel(t *testing.T) {
	assert.Equal(t, Cost(models.ModelClaudeSonnet, 1234), HypotheticalCost(1234))
}
