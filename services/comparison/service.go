// Package comparison runs one prompt against several backends concurrently and
// multiplexes their streams into a single ordered event feed. Chunks interleave
// in true arrival order; per backend they stay ordered and always precede that
// backend's model_done event. Exactly one complete event ends every session.
package comparison

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/routeworks/llm-router/internal/classifier"
	"github.com/routeworks/llm-router/internal/routing"
	"github.com/routeworks/llm-router/models"
	"github.com/routeworks/llm-router/repositories"
	"github.com/routeworks/llm-router/services/admission"
	"github.com/routeworks/llm-router/services/gateway"
	"go.uber.org/zap"
)

// ErrSessionNotFound is returned by RecordVote for an unknown session ID.
var ErrSessionNotFound = errors.New("comparison session not found")

// EventType tags the items of a comparison stream.
type EventType string

const (
	EventStart     EventType = "start"
	EventChunk     EventType = "chunk"
	EventModelDone EventType = "model_done"
	EventComplete  EventType = "complete"
)

// Event is one item of a comparison stream. Model is set for chunk and
// model_done events; Result only for model_done.
type Event struct {
	Type    EventType
	Model   models.ModelName
	Content string
	Result  *models.ComparisonResult
}

// StreamHandle is a started comparison: the session resolved up front, then
// the multiplexed event channel. The channel closes after the complete event,
// or without one if the request was cancelled.
type StreamHandle struct {
	Session *models.ComparisonSession
	Events  <-chan Event
}

// Outcome is the buffered form of a finished comparison, used by the
// non-streaming endpoint.
type Outcome struct {
	SessionID  string                    `json:"session_id"`
	Prompt     string                    `json:"prompt"`
	TaskType   models.TaskType           `json:"task_type"`
	Complexity float64                   `json:"complexity"`
	Results    []models.ComparisonResult `json:"results"`
}

// defaultModels is the comparison set used when the caller names no backends.
var defaultModels = map[models.TaskType][]models.ModelName{
	models.TaskCode:          {models.ModelClaudeSonnet, models.ModelGPT4o, models.ModelGPT4oMini},
	models.TaskMath:          {models.ModelDeepSeekV3, models.ModelGPT4o, models.ModelGPT4oMini},
	models.TaskCreative:      {models.ModelClaudeSonnet, models.ModelGPT4o, models.ModelGPT4oMini},
	models.TaskSummarization: {models.ModelGeminiPro, models.ModelGPT4oMini, models.ModelClaudeHaiku},
	models.TaskQA:            {models.ModelGPT4o, models.ModelGPT4oMini, models.ModelClaudeHaiku},
	models.TaskTranslation:   {models.ModelGPT4o, models.ModelGPT4oMini, models.ModelClaudeSonnet},
	models.TaskMultiStep:     {models.ModelClaudeSonnet, models.ModelGPT4o, models.ModelGPT4oMini},
}

// ModelsFor picks the comparison set: the caller's choice capped at three, or
// the task type's default.
func ModelsFor(taskType models.TaskType, requested []models.ModelName) []models.ModelName {
	if len(requested) >= 2 {
		if len(requested) > 3 {
			requested = requested[:3]
		}
		return requested
	}
	if defaults, ok := defaultModels[taskType]; ok {
		return defaults
	}
	return []models.ModelName{models.ModelGPT4o, models.ModelGPT4oMini}
}

// Service coordinates comparison sessions.
type Service struct {
	admission   *admission.Service
	live        gateway.Completer
	mock        gateway.Completer
	comparisons repositories.ComparisonRepository
	logger      *zap.Logger

	// livenessPoll bounds how long the drain loop waits on the shared channel
	// before re-checking whether every backend task has already exited.
	livenessPoll time.Duration
}

// New creates a comparison service. The live gateway may be nil when no
// credential is configured.
func New(adm *admission.Service, live, mock gateway.Completer, comparisons repositories.ComparisonRepository, logger *zap.Logger) *Service {
	return &Service{
		admission:    adm,
		live:         live,
		mock:         mock,
		comparisons:  comparisons,
		logger:       logger,
		livenessPoll: 250 * time.Millisecond,
	}
}

// Compare starts a comparison session. Classification, model selection and the
// session insert happen synchronously; everything else arrives on the handle's
// channel as start, interleaved chunk, per-backend model_done and one final
// complete event.
func (s *Service) Compare(ctx context.Context, req *models.ComparisonRequest) (*StreamHandle, error) {
	result := classifier.Classify(req.Prompt)
	chosen := ModelsFor(result.TaskType, req.Models)

	session := models.NewComparisonSession(req.Prompt, result.TaskType, result.Complexity, chosen)
	if err := s.comparisons.InsertSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create comparison session: %w", err)
	}

	// The mode is resolved once so every backend in the session uses the same
	// gateway.
	mode := s.admission.CurrentMode()
	if mode == models.ModeFull && !s.admission.CheckBudget(ctx) {
		mode = models.ModeDegraded
	}
	gw := s.mock
	if mode == models.ModeFull && s.live != nil {
		gw = s.live
	}

	// Shared fan-in channel: every backend task produces onto it, one drain
	// loop consumes. Buffered so a finishing task is not blocked behind a slow
	// consumer for its last marker.
	inner := make(chan Event, 16)
	var exited atomic.Int32
	for _, model := range chosen {
		go s.runBackend(ctx, gw, session, result.TaskType, model, inner, &exited)
	}

	out := make(chan Event)
	go s.drain(ctx, session, chosen, inner, out, &exited)

	return &StreamHandle{Session: session, Events: out}, nil
}

// CompareAndWait runs a comparison to completion and returns the buffered
// results in arrival order.
func (s *Service) CompareAndWait(ctx context.Context, req *models.ComparisonRequest) (*Outcome, error) {
	handle, err := s.Compare(ctx, req)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{
		SessionID:  handle.Session.ID,
		Prompt:     handle.Session.Prompt,
		TaskType:   handle.Session.TaskType,
		Complexity: handle.Session.Complexity,
	}
	for ev := range handle.Events {
		if ev.Type == EventModelDone && ev.Result != nil {
			outcome.Results = append(outcome.Results, *ev.Result)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outcome, nil
}

// RecordVote attaches the winning backend to a finished session.
func (s *Service) RecordVote(ctx context.Context, sessionID string, winner models.ModelName) error {
	exists, err := s.comparisons.SessionExists(ctx, sessionID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrSessionNotFound
	}
	return s.comparisons.SetWinner(ctx, sessionID, winner)
}

// runBackend streams one backend and pushes its chunks and final marker onto
// the shared channel. A failure is converted into an error-flagged marker and
// never propagates to sibling tasks. A cancelled task discards its partial
// work and persists nothing.
func (s *Service) runBackend(ctx context.Context, gw gateway.Completer, session *models.ComparisonSession, taskType models.TaskType, model models.ModelName, inner chan<- Event, exited *atomic.Int32) {
	defer exited.Add(1)

	fail := func() {
		res := s.errorResult(ctx, session.ID, model)
		s.push(ctx, inner, Event{Type: EventModelDone, Model: model, Result: res})
	}

	events, err := gw.CompleteStream(ctx, gateway.Request{
		Prompt:   session.Prompt,
		TaskType: taskType,
		Model:    model,
	})
	if err != nil {
		fail()
		return
	}

	var final *gateway.Completion
	for ev := range events {
		switch {
		case ev.Err != nil:
			fail()
			return
		case ev.Final != nil:
			final = ev.Final
		default:
			if !s.push(ctx, inner, Event{Type: EventChunk, Model: model, Content: ev.Content}) {
				return
			}
		}
	}
	if final == nil {
		if ctx.Err() != nil {
			return
		}
		fail()
		return
	}

	res := &models.ComparisonResult{
		ID:           uuid.New().String(),
		SessionID:    session.ID,
		Model:        model,
		ResponseText: final.ResponseText,
		LatencyMs:    final.LatencyMs,
		TokensUsed:   final.TokensUsed,
		CostCents:    routing.Cost(model, final.TokensUsed),
	}
	s.insertResult(ctx, res)
	s.push(ctx, inner, Event{Type: EventModelDone, Model: model, Result: res})
}

// drain consumes the shared channel and re-emits the public event sequence.
// It counts model_done markers and finishes once every backend reported; if
// the channel stays quiet past the liveness poll it re-checks whether all
// tasks have exited, synthesizing error markers for any that died without one.
func (s *Service) drain(ctx context.Context, session *models.ComparisonSession, chosen []models.ModelName, inner <-chan Event, out chan<- Event, exited *atomic.Int32) {
	defer close(out)

	if !s.push(ctx, out, Event{Type: EventStart}) {
		return
	}

	seen := make(map[models.ModelName]bool, len(chosen))
	done := 0

	forward := func(ev Event) bool {
		if ev.Type == EventModelDone {
			seen[ev.Model] = true
			done++
		}
		return s.push(ctx, out, ev)
	}

	for done < len(chosen) {
		select {
		case ev := <-inner:
			if !forward(ev) {
				return
			}
		case <-time.After(s.livenessPoll):
			if int(exited.Load()) < len(chosen) {
				continue
			}
			// Every task has exited. Flush whatever is still buffered, then
			// account for tasks that finished without pushing a marker.
			for flushed := true; flushed && done < len(chosen); {
				select {
				case ev := <-inner:
					if !forward(ev) {
						return
					}
				default:
					flushed = false
				}
			}
			for _, model := range chosen {
				if done >= len(chosen) {
					break
				}
				if seen[model] {
					continue
				}
				s.logger.Warn("backend task exited without a completion marker",
					zap.String("session_id", session.ID),
					zap.String("model", string(model)))
				res := s.errorResult(ctx, session.ID, model)
				if !forward(Event{Type: EventModelDone, Model: model, Result: res}) {
					return
				}
			}
		case <-ctx.Done():
			return
		}
	}

	s.push(ctx, out, Event{Type: EventComplete})
}

// errorResult builds and persists the failure marker for one backend.
func (s *Service) errorResult(ctx context.Context, sessionID string, model models.ModelName) *models.ComparisonResult {
	res := &models.ComparisonResult{
		ID:           uuid.New().String(),
		SessionID:    sessionID,
		Model:        model,
		ResponseText: fmt.Sprintf("[Error: %s failed to generate a response]", model),
		Error:        true,
	}
	s.insertResult(ctx, res)
	return res
}

func (s *Service) insertResult(ctx context.Context, res *models.ComparisonResult) {
	if err := s.comparisons.InsertResult(ctx, res); err != nil {
		s.logger.Error("failed to persist comparison result",
			zap.String("session_id", res.SessionID),
			zap.String("model", string(res.Model)),
			zap.Error(err))
	}
}

func (s *Service) push(ctx context.Context, ch chan<- Event, ev Event) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
