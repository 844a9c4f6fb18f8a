package gateway

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/routeworks/llm-router/models"
	"go.uber.org/zap"
)

// mockFailureRate is the simulated chance that a backend call fails outright.
const mockFailureRate = 0.05

// latencyRanges is the simulated best/worst case latency per backend in ms.
var latencyRanges = map[models.ModelName][2]int{
	models.ModelGeminiPro:    {200, 800},
	models.ModelClaudeHaiku:  {200, 600},
	models.ModelGPT4oMini:    {300, 700},
	models.ModelDeepSeekV3:   {300, 600},
	models.ModelClaudeSonnet: {800, 3000},
	models.ModelGPT4o:        {600, 2500},
}

// Mock simulates the completion backends: canned responses, per-model latency
// ranges and a small random failure rate. It is the degraded-mode path and the
// only path when no live credential is configured.
type Mock struct {
	logger *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand

	failureRate float64
	// sleep is swapped out in tests so simulated latency does not slow them.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewMock creates a simulated gateway.
func NewMock(logger *zap.Logger) *Mock {
	return &Mock{
		logger:      logger,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		failureRate: mockFailureRate,
		sleep:       sleepCtx,
	}
}

// Complete returns a canned response after the model's simulated latency.
func (m *Mock) Complete(ctx context.Context, req Request) (*Completion, error) {
	if m.shouldFail() {
		return nil, &ProviderError{Model: req.Model, Message: "simulated failure"}
	}

	latencyMs := m.simulateLatency(req.Model)
	if err := m.sleep(ctx, time.Duration(latencyMs)*time.Millisecond); err != nil {
		return nil, err
	}

	text := m.mockResponse(req.TaskType)
	return &Completion{
		ResponseText: text,
		LatencyMs:    latencyMs,
		TokensUsed:   estimateTokens(text, 0.75),
	}, nil
}

// CompleteStream yields the canned response word by word with short variable
// delays, terminated by a Final event. An upfront simulated failure is
// reported as an error before any chunk is produced.
func (m *Mock) CompleteStream(ctx context.Context, req Request) (<-chan StreamEvent, error) {
	if m.shouldFail() {
		return nil, &ProviderError{Model: req.Model, Message: "simulated failure"}
	}

	text := m.mockResponse(req.TaskType)
	tokens := estimateTokens(text, 0.75)
	thinkingDelay := m.thinkingDelay(req.Model)

	out := make(chan StreamEvent)
	go func() {
		defer close(out)
		start := time.Now()

		// Simulated model warm-up before the first chunk.
		if err := m.sleep(ctx, thinkingDelay); err != nil {
			return
		}

		// Split on single spaces so the chunks reassemble to the exact text.
		words := strings.Split(text, " ")
		for i, word := range words {
			chunk := word
			if i > 0 {
				chunk = " " + word
			}
			select {
			case out <- StreamEvent{Content: chunk}:
			case <-ctx.Done():
				return
			}
			if err := m.sleep(ctx, m.interChunkDelay()); err != nil {
				return
			}
		}

		final := &Completion{
			ResponseText: text,
			LatencyMs:    int(time.Since(start).Milliseconds()),
			TokensUsed:   tokens,
		}
		select {
		case out <- StreamEvent{Final: final}:
		case <-ctx.Done():
		}
	}()

	return out, nil
}

func (m *Mock) shouldFail() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rng.Float64() < m.failureRate
}

func (m *Mock) simulateLatency(model models.ModelName) int {
	bounds, ok := latencyRanges[model]
	if !ok {
		bounds = [2]int{300, 800}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return bounds[0] + m.rng.Intn(bounds[1]-bounds[0]+1)
}

func (m *Mock) thinkingDelay(model models.ModelName) time.Duration {
	bounds, ok := latencyRanges[model]
	if !ok {
		bounds = [2]int{300, 800}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	scale := 0.5 + m.rng.Float64()*0.5
	return time.Duration(float64(bounds[0])*scale) * time.Millisecond
}

func (m *Mock) interChunkDelay() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return time.Duration(10+m.rng.Intn(41)) * time.Millisecond
}

func (m *Mock) mockResponse(taskType models.TaskType) string {
	templates, ok := mockResponses[taskType]
	if !ok {
		templates = mockResponses[models.TaskQA]
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return templates[m.rng.Intn(len(templates))]
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
