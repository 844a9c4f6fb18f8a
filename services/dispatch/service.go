// Package dispatch executes routed completions: classify, pick a backend,
// resolve the serving mode, call the gateway with a single fallback retry and
// persist the outcome attributed to whichever backend actually answered.
package dispatch

import (
	"context"
	"fmt"
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

const overrideReason = "manually selected by user"

// Done carries the final metrics of a streamed completion. Model is the
// backend that actually produced the answer, which differs from the metadata
// model after a fallback.
type Done struct {
	Model        models.ModelName `json:"model"`
	ResponseText string           `json:"response_text"`
	LatencyMs    int              `json:"latency_ms"`
	TokensUsed   int              `json:"tokens_used"`
	CostCents    float64          `json:"cost_cents"`
}

// Event is one item of a dispatched stream. Exactly one of the fields is set.
type Event struct {
	Content string
	Done    *Done
	Err     error
}

// StreamHandle is a started stream: metadata resolved before any backend I/O,
// then the event channel. The channel is closed after Done or Err.
type StreamHandle struct {
	Metadata models.CompletionMetadata
	Events   <-chan Event
}

// Service coordinates one completion end to end.
type Service struct {
	admission *admission.Service
	live      gateway.Completer
	mock      gateway.Completer
	requests  repositories.RequestRepository
	logger    *zap.Logger
}

// New creates a dispatch service. The live gateway may be nil when no
// credential is configured; the admission service guarantees it is never
// selected in that case.
func New(adm *admission.Service, live, mock gateway.Completer, requests repositories.RequestRepository, logger *zap.Logger) *Service {
	return &Service{
		admission: adm,
		live:      live,
		mock:      mock,
		requests:  requests,
		logger:    logger,
	}
}

// Classify runs classification and the routing recommendation without
// dispatching anything.
func (s *Service) Classify(prompt string) *models.ClassificationResponse {
	result := classifier.Classify(prompt)
	model, reason := routing.Select(result.TaskType, result.Complexity)

	return &models.ClassificationResponse{
		ClassificationResult: result,
		RecommendedModel:     model,
		RoutingReason:        reason,
	}
}

// prepare classifies the prompt and resolves the backend and serving mode.
// It runs before any backend I/O so handlers can still fail with a plain
// error response.
func (s *Service) prepare(ctx context.Context, req *models.CompletionRequest) (models.CompletionMetadata, models.ClassificationResult, models.ServingMode) {
	result := classifier.Classify(req.Prompt)

	var decision models.RoutingDecision
	if req.Model != nil {
		decision = models.RoutingDecision{Model: *req.Model, Reason: overrideReason, WasRouted: false}
	} else {
		model, reason := routing.Select(result.TaskType, result.Complexity)
		decision = models.RoutingDecision{Model: model, Reason: reason, WasRouted: true}
	}

	mode := s.admission.CurrentMode()
	if mode == models.ModeFull && !s.admission.CheckBudget(ctx) {
		mode = models.ModeDegraded
	}

	meta := models.CompletionMetadata{
		RequestID:     uuid.New().String(),
		TaskType:      result.TaskType,
		Complexity:    result.Complexity,
		Confidence:    result.Confidence,
		Model:         decision.Model,
		RoutingReason: decision.Reason,
		WasRouted:     decision.WasRouted,
	}
	return meta, result, mode
}

func (s *Service) gatewayFor(mode models.ServingMode) gateway.Completer {
	if mode == models.ModeFull && s.live != nil {
		return s.live
	}
	return s.mock
}

// ServeOne executes a non-streaming completion with one fallback retry.
func (s *Service) ServeOne(ctx context.Context, req *models.CompletionRequest) (*models.CompletionResponse, error) {
	meta, result, mode := s.prepare(ctx, req)
	gw := s.gatewayFor(mode)

	model := meta.Model
	completion, err := gw.Complete(ctx, gateway.Request{
		Prompt:   req.Prompt,
		TaskType: result.TaskType,
		Model:    model,
	})
	if err != nil {
		fallback, ok := routing.Fallback(model)
		if !ok {
			return nil, err
		}
		s.logger.Warn("backend failed, retrying with fallback",
			zap.String("request_id", meta.RequestID),
			zap.String("model", string(model)),
			zap.String("fallback", string(fallback)),
			zap.Error(err))

		completion, err = gw.Complete(ctx, gateway.Request{
			Prompt:   req.Prompt,
			TaskType: result.TaskType,
			Model:    fallback,
		})
		if err != nil {
			return nil, fmt.Errorf("fallback %s also failed: %w", fallback, err)
		}
		model = fallback
	}

	cost := routing.Cost(model, completion.TokensUsed)
	s.persist(ctx, meta, result, req.Prompt, model, completion.ResponseText, completion.LatencyMs, completion.TokensUsed, cost)

	meta.Model = model
	return &models.CompletionResponse{
		Metadata:     meta,
		ResponseText: completion.ResponseText,
		LatencyMs:    completion.LatencyMs,
		TokensUsed:   completion.TokensUsed,
		CostCents:    cost,
	}, nil
}

// ServeStream starts a streamed completion. Metadata is resolved synchronously;
// chunks and the terminal event arrive on the handle's channel. A failed
// primary backend is retried once on its fallback with a visible notice chunk,
// and the restarted stream replaces the failed one entirely.
func (s *Service) ServeStream(ctx context.Context, req *models.CompletionRequest) (*StreamHandle, error) {
	meta, result, mode := s.prepare(ctx, req)
	gw := s.gatewayFor(mode)

	out := make(chan Event)
	go func() {
		defer close(out)

		final, model, err := s.streamFrom(ctx, gw, req.Prompt, result.TaskType, meta.Model, out)
		if err != nil {
			fallback, ok := routing.Fallback(meta.Model)
			if !ok {
				s.emit(ctx, out, Event{Err: err})
				return
			}
			s.logger.Warn("backend stream failed, retrying with fallback",
				zap.String("request_id", meta.RequestID),
				zap.String("model", string(meta.Model)),
				zap.String("fallback", string(fallback)),
				zap.Error(err))
			if !s.emit(ctx, out, Event{Content: fmt.Sprintf("[Retrying with %s...] ", fallback)}) {
				return
			}

			final, model, err = s.streamFrom(ctx, gw, req.Prompt, result.TaskType, fallback, out)
			if err != nil {
				s.emit(ctx, out, Event{Err: fmt.Errorf("fallback %s also failed: %w", fallback, err)})
				return
			}
		}

		cost := routing.Cost(model, final.TokensUsed)
		s.persist(ctx, meta, result, req.Prompt, model, final.ResponseText, final.LatencyMs, final.TokensUsed, cost)

		s.emit(ctx, out, Event{Done: &Done{
			Model:        model,
			ResponseText: final.ResponseText,
			LatencyMs:    final.LatencyMs,
			TokensUsed:   final.TokensUsed,
			CostCents:    cost,
		}})
	}()

	return &StreamHandle{Metadata: meta, Events: out}, nil
}

// streamFrom drains one backend stream into out, forwarding chunks. It returns
// the final completion, or an error if the backend failed before or during
// the stream.
func (s *Service) streamFrom(ctx context.Context, gw gateway.Completer, prompt string, taskType models.TaskType, model models.ModelName, out chan<- Event) (*gateway.Completion, models.ModelName, error) {
	events, err := gw.CompleteStream(ctx, gateway.Request{
		Prompt:   prompt,
		TaskType: taskType,
		Model:    model,
	})
	if err != nil {
		return nil, model, err
	}

	var final *gateway.Completion
	for ev := range events {
		switch {
		case ev.Err != nil:
			return nil, model, ev.Err
		case ev.Final != nil:
			final = ev.Final
		default:
			if !s.emit(ctx, out, Event{Content: ev.Content}) {
				return nil, model, ctx.Err()
			}
		}
	}
	if final == nil {
		return nil, model, fmt.Errorf("backend %s stream ended without completing", model)
	}
	return final, model, nil
}

func (s *Service) emit(ctx context.Context, out chan<- Event, ev Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// persist records the completed request. Storage failures are logged, not
// propagated; the response has already been served.
func (s *Service) persist(ctx context.Context, meta models.CompletionMetadata, result models.ClassificationResult, prompt string, model models.ModelName, responseText string, latencyMs, tokensUsed int, costCents float64) {
	record := &models.RequestRecord{
		ID:           meta.RequestID,
		Prompt:       prompt,
		TaskType:     result.TaskType,
		Complexity:   result.Complexity,
		Confidence:   result.Confidence,
		Model:        model,
		WasRouted:    meta.WasRouted,
		ResponseText: responseText,
		LatencyMs:    latencyMs,
		TokensUsed:   tokensUsed,
		CostCents:    costCents,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.requests.Insert(ctx, record); err != nil {
		s.logger.Error("failed to persist request record",
			zap.String("request_id", meta.RequestID),
			zap.Error(err))
	}
}
