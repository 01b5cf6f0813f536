package analyze

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mikey/llm-anomaly-triage/internal/core"
)

// llmResponse mirrors the JSON schema requested in the prompt.
type llmResponse struct {
	AccountID   string   `json:"account_id"`
	Services    []string `json:"services"`
	Region      string   `json:"region"`
	UsageType   string   `json:"usage_type"`
	Currency    string   `json:"currency"`
	TotalImpact string   `json:"total_impact"`
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date"`
	RootCause   string   `json:"root_cause"`
	MonitorName string   `json:"monitor_name"`
	ConsoleLink string   `json:"console_link"`
}

var codeFencePattern = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

const dateLayout = "2006-01-02"

// ParseResponse parses a model completion into an AnomalyRecord. Responses
// wrapped in code fences or surrounded by prose are tolerated. A response
// with no JSON object at all is an error; a parseable response with missing
// or invalid fields produces a LOW-confidence record flagged for review —
// an anomaly must never vanish because parsing was imperfect.
func ParseResponse(text string) (*core.AnomalyRecord, error) {
	raw := strings.TrimSpace(text)
	if m := codeFencePattern.FindStringSubmatch(raw); m != nil {
		raw = m[1]
	}

	var resp llmResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		obj, ok := extractJSONObject(raw)
		if !ok {
			return nil, fmt.Errorf("no JSON object in LLM response: %w", err)
		}
		if err := json.Unmarshal([]byte(obj), &resp); err != nil {
			return nil, fmt.Errorf("failed to parse LLM response as JSON: %w", err)
		}
	}

	rec := &core.AnomalyRecord{
		AccountID:   strings.TrimSpace(resp.AccountID),
		Region:      strings.TrimSpace(resp.Region),
		UsageType:   strings.TrimSpace(resp.UsageType),
		Currency:    strings.ToUpper(strings.TrimSpace(resp.Currency)),
		RootCause:   strings.TrimSpace(resp.RootCause),
		Monitor:     strings.TrimSpace(resp.MonitorName),
		ConsoleLink: strings.TrimSpace(resp.ConsoleLink),
		Confidence:  core.ConfidenceHigh,
	}
	for _, svc := range resp.Services {
		if svc = strings.TrimSpace(svc); svc != "" {
			rec.Services = append(rec.Services, svc)
		}
	}
	if rec.Currency == "" {
		rec.Currency = "USD"
	}

	valid := true

	impact, err := ParseAmount(resp.TotalImpact)
	if err != nil {
		valid = false
	} else {
		rec.Impact = impact
	}

	start, end, err := parseDateRange(resp.StartDate, resp.EndDate)
	if err != nil {
		valid = false
	} else {
		rec.Start, rec.End = start, end
	}

	if rec.AccountID == "" || rec.Region == "" || rec.UsageType == "" || len(rec.Services) == 0 {
		valid = false
	}

	if !valid {
		rec.Confidence = core.ConfidenceLow
		rec.NeedsReview = true
	}
	return rec, nil
}

// ParseAmount parses a monetary amount, tolerating currency symbols and
// thousands separators. Negative amounts are invalid.
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative amount %q", s)
	}
	return v, nil
}

// parseDateRange parses and validates a calendar date range. A missing end
// date collapses to the start date; start must not follow end.
func parseDateRange(startStr, endStr string) (time.Time, time.Time, error) {
	start, err := time.Parse(dateLayout, strings.TrimSpace(startStr))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q: %w", startStr, err)
	}
	endStr = strings.TrimSpace(endStr)
	if endStr == "" {
		return start, start, nil
	}
	end, err := time.Parse(dateLayout, endStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q: %w", endStr, err)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("date range ends before it starts: %s > %s", startStr, endStr)
	}
	return start, end, nil
}

// extractJSONObject returns the outermost {...} span in text.
func extractJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start == -1 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}
