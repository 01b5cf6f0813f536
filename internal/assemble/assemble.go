// Package assemble composes final anomaly cards. It carries no business
// logic beyond field composition: missing non-critical fields become an
// explicit "Unknown" so downstream consumers always see a stable shape.
package assemble

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/mikey/llm-anomaly-triage/internal/analyze"
	"github.com/mikey/llm-anomaly-triage/internal/core"
)

// Unknown is the placeholder for absent non-critical fields.
const Unknown = "Unknown"

// Assembler builds AnomalyCards from surviving records.
type Assembler struct{}

// NewAssembler creates a new card assembler.
func NewAssembler() *Assembler {
	return &Assembler{}
}

// Assemble merges a record, its resolved link and provenance into a card.
// The card id is the record's DedupKey string, so repeated exports of the
// same logical anomaly are recognizable by the tracking layer. Region and
// usage type are key components: they stay empty in the stored record when
// absent, so recomputing the key from the card's own fields always yields
// the card id, and the placeholder appears only in the rendered summaries.
func (a *Assembler) Assemble(rec *core.AnomalyRecord, link, sourceEmailID string) *core.AnomalyCard {
	filled := *rec
	if filled.AccountName == "" {
		filled.AccountName = Unknown
	}
	if filled.RootCause == "" {
		filled.RootCause = Unknown
	}
	if filled.Monitor == "" {
		filled.Monitor = Unknown
	}
	if len(filled.Services) == 0 {
		filled.Services = []string{Unknown}
	}

	display := filled
	if display.Region == "" {
		display.Region = Unknown
	}
	if display.UsageType == "" {
		display.UsageType = Unknown
	}

	return &core.AnomalyCard{
		ID:            rec.Key().String(),
		ProcessingID:  uuid.NewString(),
		Record:        filled,
		ConsoleLink:   link,
		SourceEmailID: sourceEmailID,
		SegmentIndex:  rec.SegmentIndex,
		Summary:       analyze.RenderSummary(&display, language.English),
		SummaryHebrew: analyze.RenderSummary(&display, analyze.Hebrew),
		CreatedAt:     time.Now(),
	}
}
