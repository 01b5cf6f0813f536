// Package dedup collapses duplicate monitor reports of the same underlying
// anomaly. Two records are duplicates when their DedupKeys (account, region,
// usage type, normalized date range) are equal after normalization.
package dedup

import (
	"sort"

	"go.uber.org/zap"

	"github.com/mikey/llm-anomaly-triage/internal/core"
)

// Deduplicator selects one whole record per DedupKey group. It never merges
// fields across records.
type Deduplicator struct {
	logger *zap.Logger
}

// NewDeduplicator creates a new deduplicator.
func NewDeduplicator(logger *zap.Logger) *Deduplicator {
	return &Deduplicator{logger: logger}
}

// Deduplicate keeps, within each DedupKey group, the record with the
// greatest monetary impact; ties go to the earliest segment index. Discarded
// records are logged with their key for the audit trail, not silently
// dropped. Output order follows the retained records' original segment
// indices, and the operation is idempotent.
func (d *Deduplicator) Deduplicate(records []*core.AnomalyRecord) []*core.AnomalyRecord {
	if len(records) < 2 {
		return records
	}

	best := make(map[core.DedupKey]*core.AnomalyRecord, len(records))
	for _, rec := range records {
		if !groupable(rec) {
			continue
		}
		key := rec.Key()
		cur, ok := best[key]
		if !ok {
			best[key] = rec
			continue
		}
		if rec.Impact > cur.Impact ||
			(rec.Impact == cur.Impact && rec.SegmentIndex < cur.SegmentIndex) {
			best[key] = rec
		}
	}

	survivors := make([]*core.AnomalyRecord, 0, len(best))
	for _, rec := range records {
		if !groupable(rec) || best[rec.Key()] == rec {
			survivors = append(survivors, rec)
			continue
		}
		d.logger.Info("Discarding duplicate monitor report",
			zap.String("dedup_key", rec.Key().String()),
			zap.Int("segment", rec.SegmentIndex),
			zap.Float64("impact", rec.Impact),
			zap.String("reason", "duplicate-lower-impact"))
	}

	sort.SliceStable(survivors, func(i, j int) bool {
		return survivors[i].SegmentIndex < survivors[j].SegmentIndex
	})
	return survivors
}

// groupable reports whether a record carries enough extracted detail for its
// key to identify one specific anomaly. Failed extractions and pass-through
// notifications leave the usage type and dates empty, so their keys collapse
// to the bare account id; grouping those would discard distinct degraded
// segments as duplicates of each other.
func groupable(rec *core.AnomalyRecord) bool {
	if rec.ExtractionFailed {
		return false
	}
	key := rec.Key()
	return key.UsageType != "" || key.DateRange != ""
}
