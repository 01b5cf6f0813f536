package analyze

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/llm-anomaly-triage/internal/core"
)

// stubLLM returns scripted completions, failing a set number of times first.
type stubLLM struct {
	failures   int
	calls      int
	completion string
}

func (s *stubLLM) Complete(_ context.Context, _ string) (string, error) {
	s.calls++
	if s.calls <= s.failures {
		return "", errors.New("throttled")
	}
	return s.completion, nil
}

func fastRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func anomalySegment() core.Segment {
	return core.Segment{
		EmailID:     "msg-1",
		Index:       0,
		Text:        "Start Date: 2026-01-05\nTotal Impact: $301.55\nAWS Service: Amazon EC2",
		AccountID:   "111111111111",
		AccountName: "Acme Prod",
	}
}

func TestAnalyzeSuccess(t *testing.T) {
	llm := &stubLLM{completion: goodResponse}
	a := NewAnalyzer(llm, zap.NewNop(), fastRetry())

	rec := a.Analyze(context.Background(), anomalySegment(), core.AccountClassification{Family: core.FamilyCostAnomaly})
	require.NotNil(t, rec)
	assert.Equal(t, "111111111111", rec.AccountID)
	assert.Equal(t, core.ConfidenceHigh, rec.Confidence)
	assert.Equal(t, core.UrgencyHigh, rec.Urgency)
	assert.Equal(t, 1, llm.calls)
}

func TestAnalyzeRetriesTransientFailures(t *testing.T) {
	llm := &stubLLM{failures: 2, completion: goodResponse}
	a := NewAnalyzer(llm, zap.NewNop(), fastRetry())

	rec := a.Analyze(context.Background(), anomalySegment(), core.AccountClassification{Family: core.FamilyCostAnomaly})
	assert.Equal(t, core.ConfidenceHigh, rec.Confidence)
	assert.Equal(t, 3, llm.calls)
}

func TestAnalyzeExhaustedRetriesFlagsRecord(t *testing.T) {
	llm := &stubLLM{failures: 10}
	a := NewAnalyzer(llm, zap.NewNop(), fastRetry())

	seg := anomalySegment()
	rec := a.Analyze(context.Background(), seg, core.AccountClassification{Family: core.FamilyCostAnomaly})

	require.NotNil(t, rec, "a failed segment still yields a record")
	assert.True(t, rec.ExtractionFailed)
	assert.True(t, rec.NeedsReview)
	assert.Equal(t, core.ConfidenceLow, rec.Confidence)
	assert.Equal(t, seg.AccountID, rec.AccountID)
	assert.Equal(t, 3, llm.calls, "retry budget is bounded")
}

func TestAnalyzeUnparseableResponseFlagsRecord(t *testing.T) {
	llm := &stubLLM{completion: "sorry, no json here"}
	a := NewAnalyzer(llm, zap.NewNop(), fastRetry())

	rec := a.Analyze(context.Background(), anomalySegment(), core.AccountClassification{Family: core.FamilyCostAnomaly})
	assert.True(t, rec.ExtractionFailed)
	assert.True(t, rec.NeedsReview)
}

func TestAnalyzeFillsAccountFromSegment(t *testing.T) {
	// Model response without an account id: the splitter's facts win.
	llm := &stubLLM{completion: `{
		"services": ["Amazon EC2"],
		"region": "us-east-1",
		"usage_type": "DataTransfer-Out-Bytes",
		"total_impact": "50.00",
		"start_date": "2026-01-05"
	}`}
	a := NewAnalyzer(llm, zap.NewNop(), fastRetry())

	rec := a.Analyze(context.Background(), anomalySegment(), core.AccountClassification{Family: core.FamilyCostAnomaly})
	assert.Equal(t, "111111111111", rec.AccountID)
	assert.Equal(t, "Acme Prod", rec.AccountName)
}

func TestAnalyzeFailedSegmentsKeepDateGroup(t *testing.T) {
	llm := &stubLLM{failures: 10}
	a := NewAnalyzer(llm, zap.NewNop(), fastRetry())
	cls := core.AccountClassification{Family: core.FamilyCostAnomaly}

	first := anomalySegment()
	first.DateKey = "2026-01-05"
	second := anomalySegment()
	second.Index = 1
	second.DateKey = "2026-01-07"

	recA := a.Analyze(context.Background(), first, cls)
	recB := a.Analyze(context.Background(), second, cls)

	require.True(t, recA.ExtractionFailed)
	assert.Equal(t, "2026-01-05", recA.Start.Format("2006-01-02"))
	assert.Equal(t, recA.Start, recA.End)
	assert.NotEqual(t, recA.Key(), recB.Key(), "failed date groups stay distinguishable by their own fields")
}

func TestAnalyzeFillsMonitorFromSegment(t *testing.T) {
	// Model response without a monitor name: the splitter's parsed monitor
	// dimension wins.
	llm := &stubLLM{completion: `{
		"services": ["Amazon EC2"],
		"region": "us-east-1",
		"usage_type": "DataTransfer-Out-Bytes",
		"total_impact": "50.00",
		"start_date": "2026-01-05"
	}`}
	a := NewAnalyzer(llm, zap.NewNop(), fastRetry())

	seg := anomalySegment()
	seg.MonitorType = "SERVICE"
	rec := a.Analyze(context.Background(), seg, core.AccountClassification{Family: core.FamilyCostAnomaly})
	assert.Equal(t, "SERVICE", rec.Monitor)
}

func TestAnalyzeBudgetFamilyPassesThrough(t *testing.T) {
	llm := &stubLLM{}
	a := NewAnalyzer(llm, zap.NewNop(), fastRetry())

	seg := core.Segment{EmailID: "msg-2", AccountID: "111111111111", Text: "budget exceeded"}
	rec := a.Analyze(context.Background(), seg, core.AccountClassification{Family: core.FamilyBudget})

	assert.Equal(t, 0, llm.calls, "non-anomaly families never reach the LLM")
	assert.Equal(t, string(core.FamilyBudget), rec.Monitor)
	assert.Equal(t, core.ConfidenceLow, rec.Confidence)
	assert.True(t, rec.NeedsReview)
	assert.False(t, rec.ExtractionFailed)
}

func TestAnalyzeCancelledContextStopsRetrying(t *testing.T) {
	llm := &stubLLM{failures: 10}
	a := NewAnalyzer(llm, zap.NewNop(), RetryConfig{MaxAttempts: 5, InitialBackoff: time.Minute, MaxBackoff: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := a.Analyze(ctx, anomalySegment(), core.AccountClassification{Family: core.FamilyCostAnomaly})
	assert.True(t, rec.ExtractionFailed)
	assert.Equal(t, 1, llm.calls, "a cancelled context never waits out the backoff")
}
