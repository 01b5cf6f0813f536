package core

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// TriageService runs the extraction pipeline: normalize, classify, split,
// analyze, deduplicate, assemble. Segment-level LLM calls within one email
// run concurrently under a shared semaphore; deduplication waits for all of
// them, so its output per email is all-or-nothing.
type TriageService struct {
	normalizer   Normalizer
	classifier   Classifier
	splitter     Splitter
	analyzer     Analyzer
	deduplicator Deduplicator
	linkResolver LinkResolver
	assembler    Assembler
	store        TriageStore
	logger       *zap.Logger

	llmSem       *semaphore.Weighted
	maxBatchConc int
}

// NewTriageService creates a new triage service.
func NewTriageService(
	normalizer Normalizer,
	classifier Classifier,
	splitter Splitter,
	analyzer Analyzer,
	deduplicator Deduplicator,
	linkResolver LinkResolver,
	assembler Assembler,
	store TriageStore,
	logger *zap.Logger,
	maxConcurrentLLM int64,
	maxBatchConcurrency int,
) *TriageService {
	if maxConcurrentLLM <= 0 {
		maxConcurrentLLM = 1
	}
	if maxBatchConcurrency <= 0 {
		maxBatchConcurrency = 1
	}
	return &TriageService{
		normalizer:   normalizer,
		classifier:   classifier,
		splitter:     splitter,
		analyzer:     analyzer,
		deduplicator: deduplicator,
		linkResolver: linkResolver,
		assembler:    assembler,
		store:        store,
		logger:       logger,
		llmSem:       semaphore.NewWeighted(maxConcurrentLLM),
		maxBatchConc: maxBatchConcurrency,
	}
}

// ProcessEmail runs the full pipeline for one email and returns its cards.
// It returns ErrMalformedEmail for unusable input; every other failure is
// absorbed into flagged records rather than propagated.
func (s *TriageService) ProcessEmail(ctx context.Context, email *RawEmail) ([]*AnomalyCard, error) {
	seen, err := s.store.SeenEmail(ctx, email.ID)
	if err != nil {
		s.logger.Warn("Processed-log lookup failed, continuing",
			zap.String("email_id", email.ID), zap.Error(err))
	} else if seen {
		s.logger.Info("Skipping already-processed email", zap.String("email_id", email.ID))
		return nil, nil
	}

	content, err := s.normalizer.Normalize(email)
	if err != nil {
		s.logger.Error("Rejecting malformed email",
			zap.String("email_id", email.ID), zap.Error(err))
		return nil, err
	}

	cls := s.classifier.Classify(content, email.Subject, email.From)
	if cls.Family == FamilyUnknown {
		s.logger.Info("Skipping email of unknown family", zap.String("email_id", email.ID))
		return nil, nil
	}
	s.logger.Info("Classified email",
		zap.String("email_id", email.ID),
		zap.String("family", string(cls.Family)),
		zap.Bool("reseller", cls.Reseller),
		zap.String("account_id", cls.AccountID))

	segments := s.splitter.Split(content, cls)

	records, err := s.analyzeSegments(ctx, segments, cls)
	if err != nil {
		return nil, err
	}

	// Barrier: all segments are analyzed before deduplication, and a
	// cancelled context never yields a partially-deduplicated batch.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	survivors := s.deduplicator.Deduplicate(records)

	cards := make([]*AnomalyCard, 0, len(survivors))
	for _, rec := range survivors {
		link := rec.ConsoleLink
		if link == "" {
			resolved, err := s.linkResolver.Resolve(content.HTML, rec)
			if err != nil {
				s.logger.Debug("Console link not recovered",
					zap.String("email_id", email.ID),
					zap.Int("segment", rec.SegmentIndex),
					zap.Error(err))
			} else {
				link = resolved
			}
		}
		cards = append(cards, s.assembler.Assemble(rec, link, email.ID))
	}

	now := time.Now()
	if err := s.store.RecordEmail(ctx, email.ID, now); err != nil {
		s.logger.Error("Failed to record processed email",
			zap.String("email_id", email.ID), zap.Error(err))
	}
	for _, card := range cards {
		if err := s.store.SaveCard(ctx, card); err != nil {
			s.logger.Error("Failed to persist card",
				zap.String("card_id", card.ID), zap.Error(err))
		}
	}

	s.logger.Info("Finished email",
		zap.String("email_id", email.ID),
		zap.Int("segments", len(segments)),
		zap.Int("cards", len(cards)))
	return cards, nil
}

// analyzeSegments fans segment analysis out under the LLM semaphore and
// returns records ordered by segment index.
func (s *TriageService) analyzeSegments(ctx context.Context, segments []Segment, cls AccountClassification) ([]*AnomalyRecord, error) {
	records := make([]*AnomalyRecord, len(segments))
	g, gctx := errgroup.WithContext(ctx)
	for i, seg := range segments {
		i, seg := i, seg
		g.Go(func() error {
			if err := s.llmSem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer s.llmSem.Release(1)
			records[i] = s.analyzer.Analyze(gctx, seg, cls)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]*AnomalyRecord, 0, len(records))
	for _, r := range records {
		if r != nil {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SegmentIndex < out[j].SegmentIndex
	})
	return out, nil
}

// BatchResult is the per-email outcome of a batch run.
type BatchResult struct {
	EmailID string
	Cards   []*AnomalyCard
	Err     error
}

// ProcessBatch processes emails concurrently. A failure in one email never
// aborts its siblings; only a cancelled context stops the batch. Results come
// back in input order so callers can mark each source message individually.
func (s *TriageService) ProcessBatch(ctx context.Context, emails []*RawEmail) []BatchResult {
	var (
		g, gctx = errgroup.WithContext(ctx)
		results = make([]BatchResult, len(emails))
	)
	g.SetLimit(s.maxBatchConc)
	for i, email := range emails {
		i, email := i, email
		g.Go(func() error {
			cards, err := s.ProcessEmail(gctx, email)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.logger.Error("Email processing failed",
					zap.String("email_id", email.ID), zap.Error(err))
			}
			results[i] = BatchResult{EmailID: email.ID, Cards: cards, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Warn("Batch cancelled", zap.Error(err))
		for i, email := range emails {
			if results[i].EmailID == "" {
				results[i] = BatchResult{EmailID: email.ID, Err: err}
			}
		}
	}
	return results
}
