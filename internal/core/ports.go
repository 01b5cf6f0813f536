package core

import (
	"context"
	"time"
)

// MailSource supplies raw notification emails. Implementations pull from a
// mailbox query or accept pushed messages; either way Fetch returns zero or
// more unprocessed emails.
type MailSource interface {
	// Fetch returns up to limit unprocessed emails.
	Fetch(ctx context.Context, limit int) ([]*RawEmail, error)

	// MarkProcessed records at the source that a message has been handled.
	MarkProcessed(ctx context.Context, emailID string) error
}

// LLMClient is a fallible, rate-limited remote completion service.
type LLMClient interface {
	// Complete sends a prompt and returns the model's raw text completion.
	Complete(ctx context.Context, prompt string) (string, error)
}

// TriageStore persists processed message identifiers (for idempotence) and
// the cards produced from them.
type TriageStore interface {
	// SeenEmail reports whether a message id has already been processed.
	SeenEmail(ctx context.Context, emailID string) (bool, error)

	// RecordEmail marks a message id as processed.
	RecordEmail(ctx context.Context, emailID string, processedAt time.Time) error

	// SaveCard persists a finished anomaly card.
	SaveCard(ctx context.Context, card *AnomalyCard) error

	// Cleanup removes expired processed-email entries.
	Cleanup(ctx context.Context) error
}

// CardExporter hands finished cards to the external tracking layer.
type CardExporter interface {
	Export(ctx context.Context, card *AnomalyCard) error
}

// Pipeline stage ports. Each stage is deterministic except Analyzer, whose
// only non-deterministic surface is the LLM call it wraps.

// Normalizer cleans a raw email into NormalizedContent.
type Normalizer interface {
	Normalize(email *RawEmail) (*NormalizedContent, error)
}

// Classifier decides family and reseller/standard routing. Pure function of
// content: identical content always yields an identical classification.
type Classifier interface {
	Classify(content *NormalizedContent, subject, from string) AccountClassification
}

// Splitter partitions normalized content into segments.
type Splitter interface {
	Split(content *NormalizedContent, cls AccountClassification) []Segment
}

// Analyzer extracts a structured record from one segment.
type Analyzer interface {
	Analyze(ctx context.Context, seg Segment, cls AccountClassification) *AnomalyRecord
}

// Deduplicator collapses duplicate monitor reports of the same anomaly.
type Deduplicator interface {
	Deduplicate(records []*AnomalyRecord) []*AnomalyRecord
}

// LinkResolver recovers a console deep-link from retained HTML when the
// record has none.
type LinkResolver interface {
	Resolve(html string, record *AnomalyRecord) (string, error)
}

// Assembler composes the final card from a surviving record.
type Assembler interface {
	Assemble(record *AnomalyRecord, link, sourceEmailID string) *AnomalyCard
}
