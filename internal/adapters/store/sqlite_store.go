package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/mikey/llm-anomaly-triage/internal/core"
)

// SQLiteStore is a SQLite implementation of the TriageStore interface
type SQLiteStore struct {
	db          *sql.DB
	ttl         time.Duration
	cleanupFreq time.Duration
	stopCh      chan struct{}
	logger      *zap.Logger
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(dbPath string, ttl, cleanupFreq time.Duration, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	store := &SQLiteStore{
		db:          db,
		ttl:         ttl,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
		logger:      logger,
	}

	if cleanupFreq > 0 {
		go store.startCleanupTask()
	}

	return store, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS processed_emails (
			email_id TEXT PRIMARY KEY,
			processed_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create processed_emails table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_processed_at ON processed_emails(processed_at)
	`)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS anomaly_cards (
			card_id TEXT PRIMARY KEY,
			processing_id TEXT NOT NULL,
			account_id TEXT,
			account_name TEXT,
			services TEXT,
			region TEXT,
			usage_type TEXT,
			impact REAL,
			start_date TEXT,
			end_date TEXT,
			urgency TEXT,
			confidence TEXT,
			needs_review BOOLEAN,
			console_link TEXT,
			source_email_id TEXT,
			summary TEXT,
			summary_hebrew TEXT,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create anomaly_cards table: %w", err)
	}

	return nil
}

// SeenEmail reports whether a message id has already been processed
func (s *SQLiteStore) SeenEmail(ctx context.Context, emailID string) (bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT email_id FROM processed_emails WHERE email_id = ?
	`, emailID).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query processed_emails: %w", err)
	}
	return true, nil
}

// RecordEmail marks a message id as processed
func (s *SQLiteStore) RecordEmail(ctx context.Context, emailID string, processedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO processed_emails (email_id, processed_at)
		VALUES (?, ?)
	`, emailID, processedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to record processed email: %w", err)
	}
	return nil
}

// SaveCard persists a finished anomaly card. Replaying the same card id
// overwrites the previous row, keeping the store idempotent.
func (s *SQLiteStore) SaveCard(ctx context.Context, card *core.AnomalyCard) error {
	rec := card.Record
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO anomaly_cards (
			card_id, processing_id, account_id, account_name, services,
			region, usage_type, impact, start_date, end_date,
			urgency, confidence, needs_review, console_link,
			source_email_id, summary, summary_hebrew, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		card.ID, card.ProcessingID, rec.AccountID, rec.AccountName,
		strings.Join(rec.Services, ", "), rec.Region, rec.UsageType,
		rec.Impact, rec.Start.Format("2006-01-02"), rec.End.Format("2006-01-02"),
		string(rec.Urgency), string(rec.Confidence), rec.NeedsReview,
		card.ConsoleLink, card.SourceEmailID, card.Summary, card.SummaryHebrew,
		card.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save anomaly card: %w", err)
	}
	return nil
}

// Cleanup removes processed-email entries older than the TTL
func (s *SQLiteStore) Cleanup(ctx context.Context) error {
	if s.ttl <= 0 {
		return nil
	}

	cutoff := time.Now().Add(-s.ttl).UTC().Format(time.RFC3339)
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM processed_emails WHERE processed_at < ?
	`, cutoff)
	if err != nil {
		return fmt.Errorf("failed to clean up processed_emails: %w", err)
	}

	if removed, err := result.RowsAffected(); err == nil && removed > 0 {
		s.logger.Debug("Cleaned up processed-email entries", zap.Int64("removed", removed))
	}
	return nil
}

// startCleanupTask runs periodic cleanup until Close
func (s *SQLiteStore) startCleanupTask() {
	ticker := time.NewTicker(s.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := s.Cleanup(ctx); err != nil {
				s.logger.Error("Cleanup task failed", zap.Error(err))
			}
			cancel()
		case <-s.stopCh:
			return
		}
	}
}

// Close stops the cleanup task and closes the database
func (s *SQLiteStore) Close() error {
	close(s.stopCh)
	return s.db.Close()
}
