package store

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/llm-anomaly-triage/internal/core"
)

// MemoryStore is an in-memory implementation of the TriageStore interface.
// Suitable for the one-shot CLI and tests; the daemon should use SQLite or
// MySQL so idempotence survives restarts.
type MemoryStore struct {
	processed map[string]time.Time
	cards     map[string]*core.AnomalyCard
	ttl       time.Duration
	mu        sync.RWMutex
	logger    *zap.Logger
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore(ttl time.Duration, logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		processed: make(map[string]time.Time),
		cards:     make(map[string]*core.AnomalyCard),
		ttl:       ttl,
		logger:    logger,
	}
}

// SeenEmail reports whether a message id has already been processed
func (s *MemoryStore) SeenEmail(_ context.Context, emailID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	processedAt, ok := s.processed[emailID]
	if !ok {
		return false, nil
	}
	if s.ttl > 0 && time.Since(processedAt) > s.ttl {
		return false, nil
	}
	return true, nil
}

// RecordEmail marks a message id as processed
func (s *MemoryStore) RecordEmail(_ context.Context, emailID string, processedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed[emailID] = processedAt
	return nil
}

// SaveCard persists a finished anomaly card, keyed by its dedup identity
func (s *MemoryStore) SaveCard(_ context.Context, card *core.AnomalyCard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards[card.ID] = card
	return nil
}

// Cards returns a snapshot of all saved cards
func (s *MemoryStore) Cards() []*core.AnomalyCard {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cards := make([]*core.AnomalyCard, 0, len(s.cards))
	for _, card := range s.cards {
		cards = append(cards, card)
	}
	return cards
}

// Cleanup removes expired processed-email entries
func (s *MemoryStore) Cleanup(_ context.Context) error {
	if s.ttl <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	cutoff := time.Now().Add(-s.ttl)
	for id, processedAt := range s.processed {
		if processedAt.Before(cutoff) {
			delete(s.processed, id)
			removed++
		}
	}

	if removed > 0 {
		s.logger.Debug("Cleaned up processed-email entries", zap.Int("removed", removed))
	}
	return nil
}
