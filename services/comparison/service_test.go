package comparison

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/routeworks/llm-router/models"
	"github.com/routeworks/llm-router/services/admission"
	"github.com/routeworks/llm-router/services/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type backendScript struct {
	chunks         []string
	failUpfront    bool
	failAfterChunk int // fail after emitting this many chunks; 0 means never
}

// scriptedGateway plays a fixed script per model. Unscripted models emit one
// chunk and finish.
type scriptedGateway struct {
	scripts map[models.ModelName]backendScript
}

func (g *scriptedGateway) Complete(context.Context, gateway.Request) (*gateway.Completion, error) {
	panic("comparison never uses the non-streaming path")
}

func (g *scriptedGateway) CompleteStream(ctx context.Context, req gateway.Request) (<-chan gateway.StreamEvent, error) {
	script, ok := g.scripts[req.Model]
	if !ok {
		script = backendScript{chunks: []string{"ok"}}
	}
	if script.failUpfront {
		return nil, &gateway.ProviderError{Model: req.Model, Message: "simulated outage"}
	}

	out := make(chan gateway.StreamEvent)
	go func() {
		defer close(out)
		var text string
		for i, chunk := range script.chunks {
			if script.failAfterChunk > 0 && i == script.failAfterChunk {
				out <- gateway.StreamEvent{Err: &gateway.ProviderError{Model: req.Model, Message: "mid-stream failure"}}
				return
			}
			select {
			case out <- gateway.StreamEvent{Content: chunk}:
				text += chunk
			case <-ctx.Done():
				return
			}
		}
		if script.failAfterChunk > 0 && script.failAfterChunk >= len(script.chunks) {
			out <- gateway.StreamEvent{Err: &gateway.ProviderError{Model: req.Model, Message: "mid-stream failure"}}
			return
		}
		select {
		case out <- gateway.StreamEvent{Final: &gateway.Completion{
			ResponseText: text,
			LatencyMs:    25,
			TokensUsed:   500,
		}}:
		case <-ctx.Done():
		}
	}()
	return out, nil
}

type memoryComparisonRepo struct {
	mu       sync.Mutex
	sessions map[string]*models.ComparisonSession
	results  []*models.ComparisonResult
	winners  map[string]models.ModelName
}

func newMemoryComparisonRepo() *memoryComparisonRepo {
	return &memoryComparisonRepo{
		sessions: make(map[string]*models.ComparisonSession),
		winners:  make(map[string]models.ModelName),
	}
}

func (r *memoryComparisonRepo) InsertSession(_ context.Context, s *models.ComparisonSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
	return nil
}

func (r *memoryComparisonRepo) InsertResult(_ context.Context, res *models.ComparisonResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
	return nil
}

func (r *memoryComparisonRepo) SetWinner(_ context.Context, id string, winner models.ModelName) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.winners[id] = winner
	return nil
}

func (r *memoryComparisonRepo) SessionExists(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[id]
	return ok, nil
}

func (r *memoryComparisonRepo) resultCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}

type zeroLedger struct{}

func (zeroLedger) SpendSince(context.Context, time.Time) (float64, error) { return 0, nil }

func newTestService(gw gateway.Completer, repo *memoryComparisonRepo) *Service {
	adm := admission.New(200.0, false, 20, zeroLedger{}, zap.NewNop())
	svc := New(adm, nil, gw, repo, zap.NewNop())
	svc.livenessPoll = 20 * time.Millisecond
	return svc
}

func TestModelsFor(t *testing.T) {
	t.Run("defaults per task type", func(t *testing.T) {
		got := ModelsFor(models.TaskMath, nil)
		assert.Equal(t, []models.ModelName{models.ModelDeepSeekV3, models.ModelGPT4o, models.ModelGPT4oMini}, got)
	})

	t.Run("requested set wins", func(t *testing.T) {
		want := []models.ModelName{models.ModelClaudeHaiku, models.ModelGPT4oMini}
		assert.Equal(t, want, ModelsFor(models.TaskCode, want))
	})

	t.Run("requested set capped at three", func(t *testing.T) {
		got := ModelsFor(models.TaskCode, []models.ModelName{
			models.ModelClaudeSonnet, models.ModelGPT4o, models.ModelGPT4oMini, models.ModelClaudeHaiku,
		})
		assert.Len(t, got, 3)
	})

	t.Run("single requested model falls back to defaults", func(t *testing.T) {
		got := ModelsFor(models.TaskQA, []models.ModelName{models.ModelGPT4o})
		assert.Equal(t, defaultModels[models.TaskQA], got)
	})
}

func collect(t *testing.T, handle *StreamHandle) []Event {
	t.Helper()
	var events []Event
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-handle.Events:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-deadline:
			t.Fatal("comparison stream did not finish")
		}
	}
}

func TestCompare_AllSucceed(t *testing.T) {
	gw := &scriptedGateway{scripts: map[models.ModelName]backendScript{
		models.ModelGPT4o:       {chunks: []string{"a1", "a2", "a3"}},
		models.ModelGPT4oMini:   {chunks: []string{"b1"}},
		models.ModelClaudeHaiku: {chunks: []string{"c1", "c2"}},
	}}
	repo := newMemoryComparisonRepo()
	svc := newTestService(gw, repo)

	handle, err := svc.Compare(context.Background(), &models.ComparisonRequest{
		Prompt: "What is the capital of France?",
		Models: []models.ModelName{models.ModelGPT4o, models.ModelGPT4oMini, models.ModelClaudeHaiku},
	})
	require.NoError(t, err)

	events := collect(t, handle)

	require.NotEmpty(t, events)
	assert.Equal(t, EventStart, events[0].Type)
	assert.Equal(t, EventComplete, events[len(events)-1].Type)

	var doneCount, completeCount int
	for _, ev := range events {
		switch ev.Type {
		case EventModelDone:
			doneCount++
			assert.False(t, ev.Result.Error)
			assert.Positive(t, ev.Result.CostCents)
		case EventComplete:
			completeCount++
		}
	}
	assert.Equal(t, 3, doneCount)
	assert.Equal(t, 1, completeCount)
	assert.Equal(t, 3, repo.resultCount())
}

func TestCompare_PerBackendChunkOrderPreserved(t *testing.T) {
	gw := &scriptedGateway{scripts: map[models.ModelName]backendScript{
		models.ModelGPT4o:     {chunks: []string{"x1", "x2", "x3", "x4"}},
		models.ModelGPT4oMini: {chunks: []string{"y1", "y2", "y3"}},
	}}
	repo := newMemoryComparisonRepo()
	svc := newTestService(gw, repo)

	handle, err := svc.Compare(context.Background(), &models.ComparisonRequest{
		Prompt: "order check",
		Models: []models.ModelName{models.ModelGPT4o, models.ModelGPT4oMini},
	})
	require.NoError(t, err)

	perModel := make(map[models.ModelName][]string)
	doneSeen := make(map[models.ModelName]bool)
	for _, ev := range collect(t, handle) {
		switch ev.Type {
		case EventChunk:
			assert.False(t, doneSeen[ev.Model], "chunk after model_done for %s", ev.Model)
			perModel[ev.Model] = append(perModel[ev.Model], ev.Content)
		case EventModelDone:
			doneSeen[ev.Model] = true
		}
	}

	assert.Equal(t, []string{"x1", "x2", "x3", "x4"}, perModel[models.ModelGPT4o])
	assert.Equal(t, []string{"y1", "y2", "y3"}, perModel[models.ModelGPT4oMini])
}

func TestCompare_FailureIsolation(t *testing.T) {
	gw := &scriptedGateway{scripts: map[models.ModelName]backendScript{
		models.ModelGPT4o:       {chunks: []string{"fine"}},
		models.ModelGPT4oMini:   {chunks: []string{"p1", "p2", "p3"}, failAfterChunk: 2},
		models.ModelClaudeHaiku: {failUpfront: true},
	}}
	repo := newMemoryComparisonRepo()
	svc := newTestService(gw, repo)

	handle, err := svc.Compare(context.Background(), &models.ComparisonRequest{
		Prompt: "resilience check",
		Models: []models.ModelName{models.ModelGPT4o, models.ModelGPT4oMini, models.ModelClaudeHaiku},
	})
	require.NoError(t, err)

	events := collect(t, handle)

	byModel := make(map[models.ModelName]*models.ComparisonResult)
	var completeCount int
	for _, ev := range events {
		switch ev.Type {
		case EventModelDone:
			byModel[ev.Model] = ev.Result
		case EventComplete:
			completeCount++
		}
	}

	require.Len(t, byModel, 3)
	assert.Equal(t, 1, completeCount)

	assert.False(t, byModel[models.ModelGPT4o].Error)
	assert.Equal(t, "fine", byModel[models.ModelGPT4o].ResponseText)

	for _, failed := range []models.ModelName{models.ModelGPT4oMini, models.ModelClaudeHaiku} {
		res := byModel[failed]
		assert.True(t, res.Error)
		assert.Zero(t, res.TokensUsed)
		assert.Zero(t, res.CostCents)
		assert.Contains(t, res.ResponseText, "failed to generate")
	}

	assert.Equal(t, 3, repo.resultCount())
}

func TestCompareAndWait(t *testing.T) {
	gw := &scriptedGateway{scripts: map[models.ModelName]backendScript{}}
	repo := newMemoryComparisonRepo()
	svc := newTestService(gw, repo)

	outcome, err := svc.CompareAndWait(context.Background(), &models.ComparisonRequest{
		Prompt: "Translate hello to French",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, outcome.SessionID)
	assert.Equal(t, "Translate hello to French", outcome.Prompt)
	assert.Len(t, outcome.Results, len(ModelsFor(outcome.TaskType, nil)))
}

func TestCompare_CancellationClosesStream(t *testing.T) {
	// Long scripts so cancellation lands mid-stream.
	long := make([]string, 10000)
	for i := range long {
		long[i] = "w"
	}
	gw := &scriptedGateway{scripts: map[models.ModelName]backendScript{
		models.ModelGPT4o:     {chunks: long},
		models.ModelGPT4oMini: {chunks: long},
	}}
	repo := newMemoryComparisonRepo()
	svc := newTestService(gw, repo)

	ctx, cancel := context.WithCancel(context.Background())
	handle, err := svc.Compare(ctx, &models.ComparisonRequest{
		Prompt: "cancel check",
		Models: []models.ModelName{models.ModelGPT4o, models.ModelGPT4oMini},
	})
	require.NoError(t, err)

	// Read a few events, then walk away.
	for i := 0; i < 3; i++ {
		<-handle.Events
	}
	cancel()

	deadline := time.After(2 * time.Second)
	sawComplete := false
	for {
		select {
		case ev, ok := <-handle.Events:
			if !ok {
				assert.False(t, sawComplete)
				// Cancelled tasks must not have persisted completion records.
				assert.Zero(t, repo.resultCount())
				return
			}
			if ev.Type == EventComplete {
				sawComplete = true
			}
		case <-deadline:
			t.Fatal("stream not closed after cancellation")
		}
	}
}

func TestRecordVote(t *testing.T) {
	repo := newMemoryComparisonRepo()
	svc := newTestService(&scriptedGateway{}, repo)

	session := models.NewComparisonSession("p", models.TaskQA, 2.0, ModelsFor(models.TaskQA, nil))
	require.NoError(t, repo.InsertSession(context.Background(), session))

	err := svc.RecordVote(context.Background(), session.ID, models.ModelGPT4oMini)
	require.NoError(t, err)
	assert.Equal(t, models.ModelGPT4oMini, repo.winners[session.ID])
}

func TestRecordVote_UnknownSession(t *testing.T) {
	svc := newTestService(&scriptedGateway{}, newMemoryComparisonRepo())

	err := svc.RecordVote(context.Background(), "nope", models.ModelGPT4o)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
