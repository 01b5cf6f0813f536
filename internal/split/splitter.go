package split

import (
	"go.uber.org/zap"

	"github.com/mikey/llm-anomaly-triage/internal/core"
)

// Splitter partitions normalized content into segments, choosing its
// strategy from the account classification: by member-account boundary for
// reseller emails, by date group for standard emails. Splitting fails open:
// when no markers are found the whole content becomes a single segment, so
// an anomaly never disappears because its layout was unexpected.
type Splitter struct {
	logger *zap.Logger
}

// NewSplitter creates a new splitter.
func NewSplitter(logger *zap.Logger) *Splitter {
	return &Splitter{logger: logger}
}

// Split returns at least one segment for any normalized, classified email.
func (s *Splitter) Split(content *core.NormalizedContent, cls core.AccountClassification) []core.Segment {
	if cls.Reseller {
		if segs := s.splitReseller(content); len(segs) > 0 {
			return segs
		}
		s.logger.Warn("Reseller email without member boundaries, falling back to single segment",
			zap.String("email_id", content.EmailID))
	}
	return s.splitStandard(content, cls)
}

func (s *Splitter) splitReseller(content *core.NormalizedContent) []core.Segment {
	blocks, dropped := splitByMemberAccounts(content.Text)
	for _, accountID := range dropped {
		s.logger.Warn("Dropping member boundary with no anomaly content",
			zap.String("email_id", content.EmailID),
			zap.String("member_account_id", accountID))
	}

	segments := make([]core.Segment, 0, len(blocks))
	for i, b := range blocks {
		segments = append(segments, core.Segment{
			EmailID:     content.EmailID,
			Index:       i,
			Text:        b.text,
			AccountID:   b.accountID,
			AccountName: b.accountName,
			MonitorType: b.monitorType,
		})
	}
	s.logger.Debug("Split reseller email",
		zap.String("email_id", content.EmailID),
		zap.Int("segments", len(segments)))
	return segments
}

func (s *Splitter) splitStandard(content *core.NormalizedContent, cls core.AccountClassification) []core.Segment {
	blocks := splitByDates(content.Text)
	if len(blocks) == 0 {
		// Fail open: the whole body is one segment.
		return []core.Segment{{
			EmailID:     content.EmailID,
			Index:       0,
			Text:        content.Text,
			AccountID:   cls.AccountID,
			AccountName: cls.AccountName,
		}}
	}

	segments := make([]core.Segment, 0, len(blocks))
	for i, b := range blocks {
		segments = append(segments, core.Segment{
			EmailID:     content.EmailID,
			Index:       i,
			Text:        b.text,
			AccountID:   cls.AccountID,
			AccountName: cls.AccountName,
			DateKey:     b.dateKey,
			MonitorType: b.monitorType,
		})
	}
	s.logger.Debug("Split standard email by date groups",
		zap.String("email_id", content.EmailID),
		zap.Int("segments", len(segments)))
	return segments
}
