package analyze

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/llm-anomaly-triage/internal/core"
)

// RetryConfig bounds the retry budget for one segment's LLM call.
type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns the retry budget used when none is configured.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
	}
}

// Analyzer extracts one AnomalyRecord per segment via the LLM. Transient
// failures are retried with exponential backoff; once the budget is
// exhausted the segment is emitted as a minimal, flagged record instead of
// aborting the email.
type Analyzer struct {
	llm    core.LLMClient
	logger *zap.Logger
	retry  RetryConfig
}

// NewAnalyzer creates a new analyzer.
func NewAnalyzer(llm core.LLMClient, logger *zap.Logger, retry RetryConfig) *Analyzer {
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetryConfig()
	}
	return &Analyzer{llm: llm, logger: logger, retry: retry}
}

// Analyze runs extraction for one segment. It always returns a record.
func (a *Analyzer) Analyze(ctx context.Context, seg core.Segment, cls core.AccountClassification) *core.AnomalyRecord {
	// Budget and free-tier families have no anomaly structure to extract;
	// they pass through as review items so they are not silently dropped.
	if cls.Family != core.FamilyCostAnomaly {
		return a.passThrough(seg, cls)
	}

	prompt := BuildPrompt(seg, cls)

	completion, err := a.completeWithRetry(ctx, prompt, seg)
	if err != nil {
		a.logger.Error("LLM extraction exhausted retries",
			zap.String("email_id", seg.EmailID),
			zap.Int("segment", seg.Index),
			zap.Error(err))
		return a.failedRecord(seg)
	}

	rec, err := ParseResponse(completion)
	if err != nil {
		a.logger.Error("Unparseable LLM response",
			zap.String("email_id", seg.EmailID),
			zap.Int("segment", seg.Index),
			zap.Error(err))
		return a.failedRecord(seg)
	}

	a.enrich(rec, seg, cls)
	if rec.NeedsReview {
		a.logger.Warn("Extraction flagged for review",
			zap.String("email_id", seg.EmailID),
			zap.Int("segment", seg.Index),
			zap.String("account_id", rec.AccountID))
	}
	return rec
}

// completeWithRetry invokes the LLM with bounded exponential backoff.
func (a *Analyzer) completeWithRetry(ctx context.Context, prompt string, seg core.Segment) (string, error) {
	backoff := a.retry.InitialBackoff
	var lastErr error
	for attempt := 1; attempt <= a.retry.MaxAttempts; attempt++ {
		completion, err := a.llm.Complete(ctx, prompt)
		if err == nil {
			return completion, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", lastErr
		}
		if attempt == a.retry.MaxAttempts {
			break
		}

		a.logger.Warn("LLM call failed, retrying",
			zap.String("email_id", seg.EmailID),
			zap.Int("segment", seg.Index),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err))

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", lastErr
		case <-timer.C:
		}
		backoff *= 2
		if backoff > a.retry.MaxBackoff {
			backoff = a.retry.MaxBackoff
		}
	}
	return "", fmt.Errorf("%w: %v", core.ErrExtractionFailed, lastErr)
}

// enrich fills account identity from the deterministic splitter facts when
// the model omitted them, and applies the derived urgency.
func (a *Analyzer) enrich(rec *core.AnomalyRecord, seg core.Segment, cls core.AccountClassification) {
	rec.SegmentIndex = seg.Index
	if rec.AccountID == "" {
		rec.AccountID = seg.AccountID
	}
	if rec.AccountID == "" {
		rec.AccountID = cls.AccountID
	}
	if rec.AccountName == "" {
		rec.AccountName = seg.AccountName
	}
	if rec.AccountName == "" {
		rec.AccountName = cls.AccountName
	}
	if rec.Monitor == "" {
		rec.Monitor = seg.MonitorType
	}
	rec.Urgency = AssessUrgency(rec.Impact)
}

// failedRecord emits the minimal record for a segment whose extraction
// failed outright. The splitter's date group, when known, becomes the
// record's period so two failed segments of the same email stay
// distinguishable by their own fields.
func (a *Analyzer) failedRecord(seg core.Segment) *core.AnomalyRecord {
	rec := &core.AnomalyRecord{
		AccountID:        seg.AccountID,
		AccountName:      seg.AccountName,
		Currency:         "USD",
		Monitor:          seg.MonitorType,
		Confidence:       core.ConfidenceLow,
		NeedsReview:      true,
		ExtractionFailed: true,
		Urgency:          core.UrgencyLow,
		SegmentIndex:     seg.Index,
	}
	if d, err := time.Parse(dateLayout, seg.DateKey); err == nil {
		rec.Start = d
		rec.End = d
	}
	return rec
}

// passThrough surfaces a non-anomaly billing notification as a review card.
func (a *Analyzer) passThrough(seg core.Segment, cls core.AccountClassification) *core.AnomalyRecord {
	return &core.AnomalyRecord{
		AccountID:    seg.AccountID,
		AccountName:  seg.AccountName,
		Currency:     "USD",
		Monitor:      string(cls.Family),
		RootCause:    "non-anomaly notification, see source email",
		Confidence:   core.ConfidenceLow,
		NeedsReview:  true,
		Urgency:      core.UrgencyLow,
		SegmentIndex: seg.Index,
	}
}
