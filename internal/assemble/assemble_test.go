package assemble

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/llm-anomaly-triage/internal/core"
)

func TestAssembleFillsPlaceholders(t *testing.T) {
	a := NewAssembler()

	rec := &core.AnomalyRecord{
		AccountID:    "111111111111",
		Impact:       301.55,
		Currency:     "USD",
		Start:        time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		End:          time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		Confidence:   core.ConfidenceLow,
		NeedsReview:  true,
		SegmentIndex: 3,
	}

	card := a.Assemble(rec, "", "msg-1")
	require.NotNil(t, card)

	assert.Equal(t, Unknown, card.Record.AccountName)
	assert.Equal(t, Unknown, card.Record.RootCause)
	assert.Equal(t, Unknown, card.Record.Monitor)
	assert.Equal(t, []string{Unknown}, card.Record.Services)

	// Key components are never rewritten; the placeholder shows up only in
	// the rendered summaries.
	assert.Empty(t, card.Record.Region)
	assert.Empty(t, card.Record.UsageType)
	assert.Contains(t, card.Summary, Unknown)

	// The source record stays untouched.
	assert.Empty(t, rec.AccountName)
	assert.Nil(t, rec.Services)
}

func TestAssembleKeyRecomputableFromCardRecord(t *testing.T) {
	a := NewAssembler()

	// A record missing region and usage type, as failed or partial
	// extractions produce.
	rec := &core.AnomalyRecord{
		AccountID:        "111111111111",
		Currency:         "USD",
		Start:            time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		End:              time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		Confidence:       core.ConfidenceLow,
		NeedsReview:      true,
		ExtractionFailed: true,
	}

	card := a.Assemble(rec, "", "msg-1")
	assert.Equal(t, card.ID, card.Record.Key().String(),
		"the key recomputed from the card's own fields is the card id")
}

func TestAssembleCardIdentity(t *testing.T) {
	a := NewAssembler()

	rec := &core.AnomalyRecord{
		AccountID: "111111111111",
		Region:    "us-east-1",
		UsageType: "DataTransfer-Out-Bytes",
		Services:  []string{"Amazon EC2"},
		Currency:  "USD",
		Impact:    301.55,
		Start:     time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		End:       time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC),
	}

	card := a.Assemble(rec, "https://console.aws.amazon.com/cost-management/home", "msg-1")

	assert.Equal(t, rec.Key().String(), card.ID, "card id is the dedup identity")
	assert.Equal(t, "111111111111|us-east-1|datatransfer-out-bytes|2026-01-05/2026-01-06", card.ID)
	assert.NotEmpty(t, card.ProcessingID)
	assert.Equal(t, "msg-1", card.SourceEmailID)
	assert.Equal(t, "https://console.aws.amazon.com/cost-management/home", card.ConsoleLink)
	assert.False(t, card.CreatedAt.IsZero())

	// Per-run processing ids differ even for the same logical card.
	again := a.Assemble(rec, "", "msg-1")
	assert.Equal(t, card.ID, again.ID)
	assert.NotEqual(t, card.ProcessingID, again.ProcessingID)
}

func TestAssembleRendersBothLocales(t *testing.T) {
	a := NewAssembler()

	rec := &core.AnomalyRecord{
		AccountID: "111111111111",
		Services:  []string{"Amazon EC2"},
		UsageType: "DataTransfer-Out-Bytes",
		Currency:  "USD",
		Impact:    42,
		Start:     time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		End:       time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
	}

	card := a.Assemble(rec, "", "msg-1")
	assert.Contains(t, card.Summary, "On 2026-01-05")
	assert.Contains(t, card.SummaryHebrew, "בתאריך 2026-01-05")
}
