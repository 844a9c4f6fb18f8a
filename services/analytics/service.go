// Package analytics computes dashboard aggregates over the request and
// comparison tables. Read-only; it never mutates what the dispatcher and
// comparison services record.
package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/lib/pq"
	"github.com/routeworks/llm-router/internal/routing"
	"go.uber.org/zap"
)

const promptDisplayLimit = 80

// Summary is the headline aggregate block.
type Summary struct {
	TotalRequests         int     `json:"total_requests"`
	TotalCostCents        float64 `json:"total_cost_cents"`
	AvgLatencyMs          float64 `json:"avg_latency_ms"`
	AvgComplexity         float64 `json:"avg_complexity"`
	HypotheticalCostCents float64 `json:"hypothetical_cost_cents"`
	CostSavingsPercent    float64 `json:"cost_savings_percent"`
	ModelsUsed            int     `json:"models_used"`
	RequestsToday         int     `json:"requests_today"`
}

// TimeseriesPoint is one day's bucket.
type TimeseriesPoint struct {
	Day            string  `json:"day"`
	Requests       int     `json:"requests"`
	AvgLatencyMs   float64 `json:"avg_latency_ms"`
	TotalCostCents float64 `json:"total_cost_cents"`
}

// ModelUsage is one backend's share of all requests.
type ModelUsage struct {
	Model      string  `json:"model"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// ModelCost is one backend's actual spend.
type ModelCost struct {
	Model       string  `json:"model"`
	TotalTokens int     `json:"total_tokens"`
	ActualCost  float64 `json:"actual_cost"`
}

// CostComparison contrasts actual spend with the always-use-the-most-expensive
// hypothetical.
type CostComparison struct {
	ByModel                []ModelCost `json:"by_model"`
	TotalActualCents       float64     `json:"total_actual_cents"`
	TotalHypotheticalCents float64     `json:"total_hypothetical_cents"`
	SavingsCents           float64     `json:"savings_cents"`
	SavingsPercent         float64     `json:"savings_percent"`
}

// RecentRequest is one row of the dashboard's recent-requests table. Prompt is
// truncated for display.
type RecentRequest struct {
	ID         string    `json:"id"`
	Prompt     string    `json:"prompt"`
	TaskType   string    `json:"task_type"`
	Complexity float64   `json:"complexity"`
	Confidence float64   `json:"confidence"`
	Model      string    `json:"model"`
	LatencyMs  int       `json:"latency_ms"`
	TokensUsed int       `json:"tokens_used"`
	CostCents  float64   `json:"cost_cents"`
	CreatedAt  time.Time `json:"created_at"`
}

// HistoryResult is one backend's outcome within a history entry.
type HistoryResult struct {
	Model      string  `json:"model"`
	LatencyMs  int     `json:"latency_ms"`
	TokensUsed int     `json:"tokens_used"`
	CostCents  float64 `json:"cost_cents"`
	Error      bool    `json:"error,omitempty"`
}

// HistoryEntry is one comparison session with its results.
type HistoryEntry struct {
	ID          string          `json:"id"`
	Prompt      string          `json:"prompt"`
	TaskType    string          `json:"task_type"`
	Complexity  float64         `json:"complexity"`
	Models      []string        `json:"models"`
	WinnerModel *string         `json:"winner_model"`
	CreatedAt   time.Time       `json:"created_at"`
	Results     []HistoryResult `json:"results"`
}

// Service runs the analytics queries.
type Service struct {
	db     *sql.DB
	logger *zap.Logger
}

// New creates an analytics service.
func New(db *sql.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// Summary returns the headline aggregates plus the routing savings estimate.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(cost_cents), 0),
			COALESCE(AVG(latency_ms), 0),
			COALESCE(AVG(complexity), 0),
			COUNT(DISTINCT model),
			COALESCE(SUM(tokens_used), 0)
		FROM requests
	`

	var out Summary
	var totalTokens int
	err := s.db.QueryRowContext(ctx, query).Scan(
		&out.TotalRequests,
		&out.TotalCostCents,
		&out.AvgLatencyMs,
		&out.AvgComplexity,
		&out.ModelsUsed,
		&totalTokens,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query summary: %w", err)
	}

	todayQuery := `SELECT COUNT(*) FROM requests WHERE created_at::date = CURRENT_DATE`
	if err := s.db.QueryRowContext(ctx, todayQuery).Scan(&out.RequestsToday); err != nil {
		return nil, fmt.Errorf("failed to query today's requests: %w", err)
	}

	hypothetical := routing.HypotheticalCost(totalTokens)
	if hypothetical > 0 {
		out.CostSavingsPercent = round1((1 - out.TotalCostCents/hypothetical) * 100)
	}
	out.HypotheticalCostCents = round2(hypothetical)
	out.TotalCostCents = round2(out.TotalCostCents)
	out.AvgLatencyMs = round1(out.AvgLatencyMs)
	out.AvgComplexity = round1(out.AvgComplexity)
	return &out, nil
}

// Timeseries returns per-day buckets for the last N days.
func (s *Service) Timeseries(ctx context.Context, days int) ([]TimeseriesPoint, error) {
	if days <= 0 {
		days = 7
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	query := `
		SELECT
			created_at::date,
			COUNT(*),
			COALESCE(AVG(latency_ms), 0),
			COALESCE(SUM(cost_cents), 0)
		FROM requests
		WHERE created_at >= $1
		GROUP BY created_at::date
		ORDER BY created_at::date ASC
	`

	rows, err := s.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query timeseries: %w", err)
	}
	defer rows.Close()

	points := []TimeseriesPoint{}
	for rows.Next() {
		var day time.Time
		var p TimeseriesPoint
		if err := rows.Scan(&day, &p.Requests, &p.AvgLatencyMs, &p.TotalCostCents); err != nil {
			return nil, fmt.Errorf("failed to scan timeseries row: %w", err)
		}
		p.Day = day.Format("2006-01-02")
		p.AvgLatencyMs = round1(p.AvgLatencyMs)
		p.TotalCostCents = round4(p.TotalCostCents)
		points = append(points, p)
	}
	return points, rows.Err()
}

// ModelDistribution returns each backend's share of all requests.
func (s *Service) ModelDistribution(ctx context.Context) ([]ModelUsage, error) {
	query := `
		SELECT model, COUNT(*)
		FROM requests
		GROUP BY model
		ORDER BY COUNT(*) DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query model distribution: %w", err)
	}
	defer rows.Close()

	usage := []ModelUsage{}
	total := 0
	for rows.Next() {
		var u ModelUsage
		if err := rows.Scan(&u.Model, &u.Count); err != nil {
			return nil, fmt.Errorf("failed to scan distribution row: %w", err)
		}
		total += u.Count
		usage = append(usage, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if total > 0 {
		for i := range usage {
			usage[i].Percentage = round1(float64(usage[i].Count) * 100 / float64(total))
		}
	}
	return usage, nil
}

// CostComparison returns per-model actual spend against the hypothetical
// always-expensive spend.
func (s *Service) CostComparison(ctx context.Context) (*CostComparison, error) {
	query := `
		SELECT
			model,
			COALESCE(SUM(tokens_used), 0),
			COALESCE(SUM(cost_cents), 0)
		FROM requests
		GROUP BY model
		ORDER BY COALESCE(SUM(cost_cents), 0) DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query cost comparison: %w", err)
	}
	defer rows.Close()

	out := &CostComparison{ByModel: []ModelCost{}}
	totalTokens := 0
	for rows.Next() {
		var mc ModelCost
		if err := rows.Scan(&mc.Model, &mc.TotalTokens, &mc.ActualCost); err != nil {
			return nil, fmt.Errorf("failed to scan cost row: %w", err)
		}
		mc.ActualCost = round4(mc.ActualCost)
		out.TotalActualCents += mc.ActualCost
		totalTokens += mc.TotalTokens
		out.ByModel = append(out.ByModel, mc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hypothetical := routing.HypotheticalCost(totalTokens)
	out.TotalHypotheticalCents = round2(hypothetical)
	out.SavingsCents = round2(hypothetical - out.TotalActualCents)
	if hypothetical > 0 {
		out.SavingsPercent = round1((1 - out.TotalActualCents/hypothetical) * 100)
	}
	out.TotalActualCents = round2(out.TotalActualCents)
	return out, nil
}

// Recent returns the newest requests with prompts truncated for display.
func (s *Service) Recent(ctx context.Context, limit int) ([]RecentRequest, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT
			id, prompt, task_type, complexity, confidence, model,
			COALESCE(latency_ms, 0), COALESCE(tokens_used, 0), COALESCE(cost_cents, 0),
			created_at
		FROM requests
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent requests: %w", err)
	}
	defer rows.Close()

	recent := []RecentRequest{}
	for rows.Next() {
		var r RecentRequest
		if err := rows.Scan(&r.ID, &r.Prompt, &r.TaskType, &r.Complexity, &r.Confidence,
			&r.Model, &r.LatencyMs, &r.TokensUsed, &r.CostCents, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recent row: %w", err)
		}
		r.Prompt = truncate(r.Prompt)
		recent = append(recent, r)
	}
	return recent, rows.Err()
}

// ComparisonHistory returns the newest comparison sessions with their results.
func (s *Service) ComparisonHistory(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, prompt, task_type, complexity, models, winner_model, created_at
		FROM comparison_sessions
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query comparison history: %w", err)
	}
	defer rows.Close()

	entries := []HistoryEntry{}
	for rows.Next() {
		var e HistoryEntry
		var winner sql.NullString
		if err := rows.Scan(&e.ID, &e.Prompt, &e.TaskType, &e.Complexity,
			pq.Array(&e.Models), &winner, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		if winner.Valid {
			e.WinnerModel = &winner.String
		}
		e.Prompt = truncate(e.Prompt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range entries {
		results, err := s.sessionResults(ctx, entries[i].ID)
		if err != nil {
			return nil, err
		}
		entries[i].Results = results
	}
	return entries, nil
}

func (s *Service) sessionResults(ctx context.Context, sessionID string) ([]HistoryResult, error) {
	query := `
		SELECT model, COALESCE(latency_ms, 0), COALESCE(tokens_used, 0),
			COALESCE(cost_cents, 0), error
		FROM comparison_results
		WHERE session_id = $1
	`

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query session results: %w", err)
	}
	defer rows.Close()

	results := []HistoryResult{}
	for rows.Next() {
		var r HistoryResult
		if err := rows.Scan(&r.Model, &r.LatencyMs, &r.TokensUsed, &r.CostCents, &r.Error); err != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func truncate(prompt string) string {
	if len(prompt) > promptDisplayLimit {
		return prompt[:promptDisplayLimit] + "..."
	}
	return prompt
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
