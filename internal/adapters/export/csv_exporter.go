package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/llm-anomaly-triage/internal/assemble"
	"github.com/mikey/llm-anomaly-triage/internal/core"
)

var csvHeader = []string{
	"card_id", "processing_id", "account_id", "account_name", "services",
	"region", "usage_type", "impact", "start_date", "end_date",
	"urgency", "confidence", "needs_review", "console_link", "summary",
}

// CSVExporter appends finished cards to two CSV files: a per-day file for the
// daily review and a master file holding everything ever exported. A card id
// already present in the master file is skipped, so re-running an export
// after a crash never produces duplicate rows.
type CSVExporter struct {
	dailyFile  string
	masterFile string
	mu         sync.Mutex
	logger     *zap.Logger
}

// NewCSVExporter creates a CSV exporter writing to the given files. The
// daily file name gets the current date inserted before its extension.
func NewCSVExporter(dailyFile, masterFile string, logger *zap.Logger) *CSVExporter {
	return &CSVExporter{
		dailyFile:  dailyFile,
		masterFile: masterFile,
		logger:     logger,
	}
}

// Export appends a card to the daily and master files
func (e *CSVExporter) Export(_ context.Context, card *core.AnomalyCard) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	exported, err := e.alreadyExported(card.ID)
	if err != nil {
		return err
	}
	if exported {
		e.logger.Debug("Skipping already exported card", zap.String("card_id", card.ID))
		return nil
	}

	row := cardRow(card)
	if err := appendRow(e.dailyPath(card.CreatedAt), row); err != nil {
		return fmt.Errorf("failed to write daily export: %w", err)
	}
	if err := appendRow(e.masterFile, row); err != nil {
		return fmt.Errorf("failed to write master export: %w", err)
	}

	e.logger.Info("Exported anomaly card",
		zap.String("card_id", card.ID),
		zap.String("account_id", card.Record.AccountID),
		zap.Float64("impact", card.Record.Impact))
	return nil
}

// dailyPath inserts the card date into the daily file name.
func (e *CSVExporter) dailyPath(t time.Time) string {
	ext := filepath.Ext(e.dailyFile)
	base := strings.TrimSuffix(e.dailyFile, ext)
	return fmt.Sprintf("%s_%s%s", base, t.Format("2006-01-02"), ext)
}

// alreadyExported scans the master file for a card id.
func (e *CSVExporter) alreadyExported(cardID string) (bool, error) {
	f, err := os.Open(e.masterFile)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to open master export: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	for {
		record, err := reader.Read()
		if err != nil {
			return false, nil
		}
		if len(record) > 0 && record[0] == cardID {
			return true, nil
		}
	}
}

// appendRow appends a record to a CSV file, writing the header first when the
// file is new.
func appendRow(path string, row []string) error {
	info, err := os.Stat(path)
	writeHeader := err != nil || info.Size() == 0

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(csvHeader); err != nil {
			return err
		}
	}
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// orUnknown substitutes the display placeholder for fields the record keeps
// empty because they are dedup-key components.
func orUnknown(s string) string {
	if s == "" {
		return assemble.Unknown
	}
	return s
}

func cardRow(card *core.AnomalyCard) []string {
	rec := card.Record
	return []string{
		card.ID,
		card.ProcessingID,
		rec.AccountID,
		rec.AccountName,
		strings.Join(rec.Services, "; "),
		orUnknown(rec.Region),
		orUnknown(rec.UsageType),
		strconv.FormatFloat(rec.Impact, 'f', 2, 64),
		rec.Start.Format("2006-01-02"),
		rec.End.Format("2006-01-02"),
		string(rec.Urgency),
		string(rec.Confidence),
		strconv.FormatBool(rec.NeedsReview),
		card.ConsoleLink,
		card.Summary,
	}
}
