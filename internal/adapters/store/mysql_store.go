package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/mikey/llm-anomaly-triage/internal/core"
)

// MySQLStore is a MySQL implementation of the TriageStore interface
type MySQLStore struct {
	db          *sql.DB
	ttl         time.Duration
	cleanupFreq time.Duration
	stopCh      chan struct{}
	logger      *zap.Logger
}

// NewMySQLStore creates a new MySQL store
func NewMySQLStore(dsn string, ttl, cleanupFreq time.Duration, logger *zap.Logger) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS processed_emails (
			email_id VARCHAR(255) PRIMARY KEY,
			processed_at TIMESTAMP NOT NULL,
			INDEX idx_processed_at (processed_at)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create processed_emails table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS anomaly_cards (
			card_id VARCHAR(255) PRIMARY KEY,
			processing_id VARCHAR(64) NOT NULL,
			account_id VARCHAR(32),
			account_name VARCHAR(255),
			services TEXT,
			region VARCHAR(64),
			usage_type VARCHAR(255),
			impact DOUBLE,
			start_date VARCHAR(16),
			end_date VARCHAR(16),
			urgency VARCHAR(16),
			confidence VARCHAR(16),
			needs_review BOOLEAN,
			console_link TEXT,
			source_email_id VARCHAR(255),
			summary TEXT,
			summary_hebrew TEXT,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create anomaly_cards table: %w", err)
	}

	store := &MySQLStore{
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

// SeenEmail reports whether a message id has already been processed
func (s *MySQLStore) SeenEmail(ctx context.Context, emailID string) (bool, error) {
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
func (s *MySQLStore) RecordEmail(ctx context.Context, emailID string, processedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		REPLACE INTO processed_emails (email_id, processed_at) VALUES (?, ?)
	`, emailID, processedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record processed email: %w", err)
	}
	return nil
}

// SaveCard persists a finished anomaly card
func (s *MySQLStore) SaveCard(ctx context.Context, card *core.AnomalyCard) error {
	rec := card.Record
	_, err := s.db.ExecContext(ctx, `
		REPLACE INTO anomaly_cards (
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
		card.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save anomaly card: %w", err)
	}
	return nil
}

// Cleanup removes processed-email entries older than the TTL
func (s *MySQLStore) Cleanup(ctx context.Context) error {
	if s.ttl <= 0 {
		return nil
	}

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM processed_emails WHERE processed_at < ?
	`, time.Now().Add(-s.ttl).UTC())
	if err != nil {
		return fmt.Errorf("failed to clean up processed_emails: %w", err)
	}

	if removed, err := result.RowsAffected(); err == nil && removed > 0 {
		s.logger.Debug("Cleaned up processed-email entries", zap.Int64("removed", removed))
	}
	return nil
}

func (s *MySQLStore) startCleanupTask() {
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
func (s *MySQLStore) Close() error {
	close(s.stopCh)
	return s.db.Close()
}
