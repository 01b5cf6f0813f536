package core

import (
	"fmt"
	"strings"
	"time"
)

// RawEmail is the immutable source unit supplied by a mail source.
type RawEmail struct {
	ID         string
	Subject    string
	From       string
	FromName   string
	TextBody   string
	HTMLBody   string
	ReceivedAt time.Time
}

// NormalizedContent is the cleaned form of a RawEmail: plain text with quoted
// replies, signatures and boilerplate removed, plus the original HTML retained
// for console-link recovery.
type NormalizedContent struct {
	EmailID string
	Text    string
	HTML    string
}

// EmailFamily identifies the kind of billing notification.
type EmailFamily string

const (
	FamilyCostAnomaly EmailFamily = "cost_anomaly"
	FamilyBudget      EmailFamily = "budget_notification"
	FamilyRIAlert     EmailFamily = "ri_utilization_alert"
	FamilyFreeTier    EmailFamily = "free_tier"
	FamilyUnknown     EmailFamily = "unknown"
)

// AccountClassification is the deterministic routing decision for an email.
// Reseller emails aggregate many member accounts under one payer account.
type AccountClassification struct {
	Family         EmailFamily
	Reseller       bool
	PayerAccountID string
	AccountID      string
	AccountName    string
}

// Segment is a contiguous slice of normalized content believed to describe
// exactly one anomaly report.
type Segment struct {
	EmailID     string
	Index       int
	Text        string
	AccountID   string
	AccountName string
	// DateKey is set by the standard (by-date) splitting strategy.
	DateKey string
	// MonitorType is the monitor dimension parsed from the report block,
	// when the layout carries one.
	MonitorType string
}

// Confidence marks how trustworthy an extraction is.
type Confidence string

const (
	ConfidenceHigh Confidence = "high"
	ConfidenceLow  Confidence = "low"
)

// Urgency buckets the monetary impact for triage ordering.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// AnomalyRecord is the structured extraction result for one Segment.
// It is immutable once validated.
type AnomalyRecord struct {
	AccountID   string
	AccountName string
	Services    []string
	Region      string
	UsageType   string
	Currency    string
	Impact      float64
	Start       time.Time
	End         time.Time
	RootCause   string
	Monitor     string
	ConsoleLink string
	Urgency     Urgency

	Confidence       Confidence
	NeedsReview      bool
	ExtractionFailed bool

	SegmentIndex int
}

// DedupKey identifies the underlying anomaly independently of which monitor
// reported it. Two records with equal keys describe the same usage spike.
type DedupKey struct {
	AccountID string
	Region    string
	UsageType string
	DateRange string
}

// String renders the key in its stable exported form. Downstream consumers
// use this as the card identifier so repeated exports of the same logical
// anomaly are recognizable.
func (k DedupKey) String() string {
	return fmt.Sprintf("%s|%s|%s|%s", k.AccountID, k.Region, k.UsageType, k.DateRange)
}

// NormalizeDedupToken is the single normalization step applied to key
// components. Exact match after normalization is the duplicate-monitor rule;
// replace this function if near-duplicate monitor labels ever require a
// fuzzy policy.
func NormalizeDedupToken(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), " ")
}

const dateKeyLayout = "2006-01-02"

// Key derives the record's DedupKey from its own fields.
func (r *AnomalyRecord) Key() DedupKey {
	dr := ""
	if !r.Start.IsZero() {
		dr = r.Start.Format(dateKeyLayout) + "/" + r.End.Format(dateKeyLayout)
	}
	return DedupKey{
		AccountID: NormalizeDedupToken(r.AccountID),
		Region:    NormalizeDedupToken(r.Region),
		UsageType: NormalizeDedupToken(r.UsageType),
		DateRange: dr,
	}
}

// AnomalyCard is the pipeline's final output unit: one surviving record plus
// its resolved console link and provenance. Created once per surviving
// segment, never mutated afterwards.
type AnomalyCard struct {
	ID            string
	ProcessingID  string
	Record        AnomalyRecord
	ConsoleLink   string
	SourceEmailID string
	SegmentIndex  int
	Summary       string
	SummaryHebrew string
	CreatedAt     time.Time
}
