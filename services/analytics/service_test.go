package analytics

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMockService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, zap.NewNop()), mock
}

func TestSummary(t *testing.T) {
	svc, mock := newMockService(t)

	// 100k tokens at the expensive rate would cost 30 cents; 7.5 actual.
	mock.ExpectQuery(`SELECT\s+COUNT\(\*\),`).
		WillReturnRows(sqlmock.NewRows(
			[]string{"count", "sum", "avg_lat", "avg_cx", "models", "tokens"},
		).AddRow(50, 7.5, 812.34, 4.26, 4, 100000))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM requests WHERE created_at::date = CURRENT_DATE`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 50, summary.TotalRequests)
	assert.Equal(t, 7.5, summary.TotalCostCents)
	assert.Equal(t, 812.3, summary.AvgLatencyMs)
	assert.Equal(t, 4.3, summary.AvgComplexity)
	assert.Equal(t, 30.0, summary.HypotheticalCostCents)
	assert.Equal(t, 75.0, summary.CostSavingsPercent)
	assert.Equal(t, 4, summary.ModelsUsed)
	assert.Equal(t, 12, summary.RequestsToday)
}

func TestSummary_EmptyTable(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery(`SELECT\s+COUNT\(\*\),`).
		WillReturnRows(sqlmock.NewRows(
			[]string{"count", "sum", "avg_lat", "avg_cx", "models", "tokens"},
		).AddRow(0, 0.0, 0.0, 0.0, 0, 0))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM requests WHERE created_at::date = CURRENT_DATE`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)

	assert.Zero(t, summary.TotalRequests)
	assert.Zero(t, summary.HypotheticalCostCents)
	// No division by a zero hypothetical.
	assert.Zero(t, summary.CostSavingsPercent)
}

func TestTimeseries(t *testing.T) {
	svc, mock := newMockService(t)

	day1 := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT\s+created_at::date,`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"day", "requests", "avg_lat", "cost"}).
			AddRow(day1, 10, 500.55, 1.23456).
			AddRow(day2, 20, 300.0, 2.5))

	points, err := svc.Timeseries(context.Background(), 7)
	require.NoError(t, err)

	require.Len(t, points, 2)
	assert.Equal(t, "2025-06-09", points[0].Day)
	assert.Equal(t, 10, points[0].Requests)
	assert.Equal(t, 500.6, points[0].AvgLatencyMs)
	assert.Equal(t, 1.2346, points[0].TotalCostCents)
	assert.Equal(t, "2025-06-10", points[1].Day)
}

func TestModelDistribution(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery(`SELECT model, COUNT\(\*\)`).
		WillReturnRows(sqlmock.NewRows([]string{"model", "count"}).
			AddRow("gpt-4o-mini", 60).
			AddRow("claude-3.5-sonnet", 30).
			AddRow("claude-3-haiku", 10))

	usage, err := svc.ModelDistribution(context.Background())
	require.NoError(t, err)

	require.Len(t, usage, 3)
	assert.Equal(t, 60.0, usage[0].Percentage)
	assert.Equal(t, 30.0, usage[1].Percentage)
	assert.Equal(t, 10.0, usage[2].Percentage)
}

func TestCostComparison(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery(`SELECT\s+model,\s+COALESCE\(SUM\(tokens_used\), 0\),`).
		WillReturnRows(sqlmock.NewRows([]string{"model", "tokens", "cost"}).
			AddRow("claude-3.5-sonnet", 10000, 3.0).
			AddRow("gpt-4o-mini", 90000, 1.35))

	out, err := svc.CostComparison(context.Background())
	require.NoError(t, err)

	require.Len(t, out.ByModel, 2)
	assert.Equal(t, 4.35, out.TotalActualCents)
	// 100k tokens on the expensive model: 30 cents.
	assert.Equal(t, 30.0, out.TotalHypotheticalCents)
	assert.Equal(t, 25.65, out.SavingsCents)
	assert.Equal(t, 85.5, out.SavingsPercent)
}

func TestRecent_TruncatesLongPrompts(t *testing.T) {
	svc, mock := newMockService(t)

	longPrompt := strings.Repeat("x", 200)
	mock.ExpectQuery(`SELECT\s+id, prompt, task_type,`).
		WithArgs(20).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "prompt", "task_type", "complexity", "confidence",
			"model", "latency_ms", "tokens_used", "cost_cents", "created_at",
		}).
			AddRow("a", longPrompt, "code", 5.0, 0.9, "gpt-4o", 100, 50, 0.0125, time.Now()).
			AddRow("b", "short", "qa", 2.0, 0.5, "claude-3-haiku", 40, 20, 0.0002, time.Now()))

	recent, err := svc.Recent(context.Background(), 0)
	require.NoError(t, err)

	require.Len(t, recent, 2)
	assert.Len(t, recent[0].Prompt, 83)
	assert.True(t, strings.HasSuffix(recent[0].Prompt, "..."))
	assert.Equal(t, "short", recent[1].Prompt)
}

func TestComparisonHistory(t *testing.T) {
	svc, mock := newMockService(t)

	created := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT id, prompt, task_type, complexity, models, winner_model`).
		WithArgs(20).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "prompt", "task_type", "complexity", "models", "winner_model", "created_at",
		}).AddRow("s1", "which is better", "qa", 3.0,
			"{gpt-4o,gpt-4o-mini}", sql.NullString{}, created))

	mock.ExpectQuery(`SELECT model, COALESCE\(latency_ms, 0\),`).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"model", "latency_ms", "tokens_used", "cost_cents", "error"}).
			AddRow("gpt-4o", 900, 100, 0.025, false).
			AddRow("gpt-4o-mini", 400, 80, 0.0012, true))

	entries, err := svc.ComparisonHistory(context.Background(), 20)
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, []string{"gpt-4o", "gpt-4o-mini"}, entries[0].Models)
	assert.Nil(t, entries[0].WinnerModel)
	require.Len(t, entries[0].Results, 2)
	assert.True(t, entries[0].Results[1].Error)
}
